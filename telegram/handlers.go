package telegram

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// HandlerFunc processes one dispatched update.
type HandlerFunc func(ctx context.Context, m *Message) error

// Criteria selects the updates a handler is registered for. Zero values of
// ChatType, Incoming and Content are wildcards.
type Criteria struct {
	ChatType ChatType
	Incoming Incoming
	Content  Content
	// Rule is a Rule, or a string / integer literal passed through PrepareRule.
	// Nil matches everything in the bucket.
	Rule any
	// Minimum time between two calls, calls inside the window are dropped.
	Pause time.Duration
	// Name used in logs, defaults to the function name
	Name string
}

// Handler is a registered HandlerFunc together with its criteria.
// The zero Handler is the no-op default returned when nothing matches.
type Handler struct {
	Name     string
	ChatType ChatType
	Incoming Incoming
	Content  Content
	Rule     Rule
	Pause    time.Duration

	fn       HandlerFunc
	mu       sync.Mutex
	lastCall time.Time
}

func (h *Handler) Priority() int {
	return rulePriority(h.Rule)
}

// IsNoop reports whether calling h does nothing.
func (h *Handler) IsNoop() bool {
	return h == nil || h.fn == nil
}

// Call runs the handler unless it is the no-op one or is still paused.
func (h *Handler) Call(ctx context.Context, m *Message) error {
	if h.IsNoop() {
		return nil
	}
	if h.Pause > 0 {
		h.mu.Lock()
		if !h.lastCall.IsZero() && time.Since(h.lastCall) < h.Pause {
			h.mu.Unlock()
			return nil
		}
		h.mu.Unlock()
	}

	err := h.fn(ctx, m)

	if h.Pause > 0 {
		h.mu.Lock()
		h.lastCall = time.Now()
		h.mu.Unlock()
	}
	return err
}

func (h *Handler) String() string {
	rule := "<nil>"
	if h.Rule != nil {
		rule = h.Rule.String()
	}
	return fmt.Sprintf("Handler(%s, %s, %s, %s, %s)", h.Name, h.ChatType, h.Incoming, h.Content, rule)
}

func funcName(fn any) string {
	f := runtime.FuncForPC(reflect.ValueOf(fn).Pointer())
	if f == nil {
		return "handler"
	}
	name := f.Name()
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

type buckets map[ChatType]map[Incoming]map[Content][]*Handler

// Handlers is the registry resolving updates to handlers. It is safe for
// concurrent use; registering while dispatching is allowed.
type Handlers struct {
	mu       sync.RWMutex
	handlers buckets
	count    int
	fallback *Handler
}

func NewHandlers() *Handlers {
	return &Handlers{
		handlers: make(buckets),
		fallback: &Handler{Name: "default"},
	}
}

// Register adds fn under criteria. Buckets stay sorted by rule priority,
// equal priorities keep registration order.
func (hs *Handlers) Register(c Criteria, fn HandlerFunc) (*Handlers, error) {
	if fn == nil {
		return hs, errors.Wrap(ErrConfiguration, "handler must be a function")
	}
	if c.Pause < 0 {
		return hs, errors.Wrap(ErrConfiguration, "pause must not be negative")
	}
	if c.Incoming != AnyIncoming && !c.Incoming.IsMessageOrPost() {
		if !c.Content.IsAny() {
			return hs, errors.Wrapf(ErrConfiguration, "content type is allowed only for message or post incoming, got %s", c.Incoming)
		}
		if c.Rule != nil {
			return hs, errors.Wrapf(ErrConfiguration, "rule is allowed only for message or post incoming, got %s", c.Incoming)
		}
	}

	rule, err := PrepareRule(c.Content, c.Rule)
	if err != nil {
		return hs, err
	}

	h := &Handler{
		Name:     c.Name,
		ChatType: c.ChatType,
		Incoming: c.Incoming,
		Content:  c.Content,
		Rule:     rule,
		Pause:    c.Pause,
		fn:       fn,
	}
	if h.Name == "" {
		h.Name = funcName(fn)
	}

	hs.mu.Lock()
	defer hs.mu.Unlock()

	byIncoming, ok := hs.handlers[c.ChatType]
	if !ok {
		byIncoming = make(map[Incoming]map[Content][]*Handler)
		hs.handlers[c.ChatType] = byIncoming
	}
	byContent, ok := byIncoming[c.Incoming]
	if !ok {
		byContent = make(map[Content][]*Handler)
		byIncoming[c.Incoming] = byContent
	}

	bucket := byContent[c.Content]
	for _, existing := range bucket {
		if sameRule(existing.Rule, rule) {
			return hs, errors.Wrapf(ErrConflict, "chat_type=%s, incoming=%s, content_type=%s and rule %v",
				c.ChatType, c.Incoming, c.Content, rule)
		}
	}

	bucket = append(bucket, h)
	slices.SortStableFunc(bucket, func(a, b *Handler) int {
		return a.Priority() - b.Priority()
	})
	byContent[c.Content] = bucket
	hs.count++
	return hs, nil
}

// MustRegister is like Register but panics on error.
func (hs *Handlers) MustRegister(c Criteria, fn HandlerFunc) *Handlers {
	if _, err := hs.Register(c, fn); err != nil {
		panic(err)
	}
	return hs
}

// Get returns the first matching handler, trying the exact bucket first and
// widening content, then incoming, then chat type to the wildcard. The no-op
// default handler is returned when nothing matches.
func (hs *Handlers) Get(chat ChatType, incoming Incoming, content Content, u Update) *Handler {
	hs.mu.RLock()
	defer hs.mu.RUnlock()

	for _, c := range widen(chat, AnyChat) {
		byIncoming, ok := hs.handlers[c]
		if !ok {
			continue
		}
		for _, i := range widen(incoming, AnyIncoming) {
			byContent, ok := byIncoming[i]
			if !ok {
				continue
			}
			for _, t := range widen(content, AnyContent) {
				for _, h := range byContent[t] {
					if IsMatch(h.Rule, incoming, content, u) {
						return h
					}
				}
			}
		}
	}
	return hs.fallback
}

// widen yields v then the wildcard, once if v already is the wildcard.
func widen[T comparable](v, wildcard T) []T {
	if v == wildcard {
		return []T{v}
	}
	return []T{v, wildcard}
}

// Len returns the number of registered handlers.
func (hs *Handlers) Len() int {
	hs.mu.RLock()
	defer hs.mu.RUnlock()
	return hs.count
}

// Default returns the no-op handler Get falls back to.
func (hs *Handlers) Default() *Handler {
	return hs.fallback
}
