package telegram

import (
	"context"
	"sync"
)

// Middleware wraps handler invocation. It must call next to continue the
// chain, or return without calling it to stop dispatch.
type Middleware func(ctx context.Context, m *Message, next HandlerFunc) error

// Middlewares is an ordered chain; the first appended middleware runs outermost.
type Middlewares struct {
	mu    sync.RWMutex
	chain Middleware
	n     int
}

func NewMiddlewares(fns ...Middleware) *Middlewares {
	return new(Middlewares).Extend(fns...)
}

// Append adds fn as the innermost middleware.
func (ms *Middlewares) Append(fn Middleware) *Middlewares {
	if fn == nil {
		return ms
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if prev := ms.chain; prev != nil {
		ms.chain = func(ctx context.Context, m *Message, next HandlerFunc) error {
			return prev(ctx, m, func(ctx context.Context, m *Message) error {
				return fn(ctx, m, next)
			})
		}
	} else {
		ms.chain = fn
	}
	ms.n++
	return ms
}

func (ms *Middlewares) Extend(fns ...Middleware) *Middlewares {
	for _, fn := range fns {
		ms.Append(fn)
	}
	return ms
}

func (ms *Middlewares) Len() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return ms.n
}

// Run passes m through the chain to h. Without middlewares h is called directly.
func (ms *Middlewares) Run(ctx context.Context, m *Message, h *Handler) error {
	ms.mu.RLock()
	chain := ms.chain
	ms.mu.RUnlock()

	if chain == nil {
		return h.Call(ctx, m)
	}
	return chain(ctx, m, h.Call)
}
