package telegram

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	botapi "github.com/v-v-vishnevskiy/aio-telegram-bot"
	"github.com/v-v-vishnevskiy/aio-telegram-bot/internal/utils"
)

// BotConfig is the configuration struct for the bot
type BotConfig struct {
	// Map shared by every Message of the bot, default: empty map
	Ctx map[string]any
	// Set log level (trace, debug, info, warn, error, disable), default: info
	LogLevel string
	// Custom logger, overrides LogLevel
	Logger *utils.Logger
}

// InitOptions configures a Run of the bot; zero values take the defaults.
type InitOptions struct {
	// Updates are pushed through ProcessUpdate, no polling task is started
	Webhook bool
	// Pause between two getUpdates calls, default: 100ms
	Interval time.Duration
	// Dispatches running at once, default: 100
	Limit int
	// Dispatches waiting for a free slot, default: 10000
	PendingLimit int
	// Long polling timeout sent to getUpdates, default: 0 (short polling)
	PollTimeout time.Duration
	// Maximum batch size requested from getUpdates (1-100), default: server side 100
	PollLimit int
	// Update kinds to receive, default: server side setting
	AllowedUpdates []string
	// Delay after a timed out getUpdates, default: 1s
	TimeoutDelay time.Duration
	// Delay after server, auth and connection errors, default: 5s
	ServerErrorBackoff time.Duration
}

func (o InitOptions) withDefaults() InitOptions {
	o.Interval = utils.PositiveDuration(o.Interval, DefaultInterval)
	o.TimeoutDelay = utils.PositiveDuration(o.TimeoutDelay, DefaultTimeoutDelay)
	o.ServerErrorBackoff = utils.PositiveDuration(o.ServerErrorBackoff, DefaultServerErrorBackoff)
	if o.Limit <= 0 {
		o.Limit = DefaultSchedulerLimit
	}
	if o.PendingLimit <= 0 {
		o.PendingLimit = DefaultPendingLimit
	}
	return o
}

// Bot receives updates, resolves a handler for each of them and runs it
// through the middlewares in the background.
type Bot struct {
	Client      APIClient
	Handlers    *Handlers
	Middlewares *Middlewares
	Ctx         map[string]any
	Log         *utils.Logger

	mu        sync.Mutex
	running   bool
	offset    int64
	scheduler *Scheduler
	cancel    context.CancelFunc
	pumpDone  chan struct{}
}

// NewBot creates a stopped bot. A nil handlers gets an empty registry.
func NewBot(client APIClient, handlers *Handlers, config ...BotConfig) *Bot {
	var cfg BotConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	if handlers == nil {
		handlers = NewHandlers()
	}
	if cfg.Ctx == nil {
		cfg.Ctx = make(map[string]any)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = utils.NewLogger("aiotgbot dispatcher").SetLevel(utils.ParseLevel(cfg.LogLevel))
	}

	return &Bot{
		Client:      client,
		Handlers:    handlers,
		Middlewares: NewMiddlewares(),
		Ctx:         cfg.Ctx,
		Log:         logger,
	}
}

// AddHandler registers fn on the bot's registry.
func (b *Bot) AddHandler(c Criteria, fn HandlerFunc) error {
	_, err := b.Handlers.Register(c, fn)
	return err
}

// Use appends middlewares, the first one given runs outermost.
func (b *Bot) Use(fns ...Middleware) *Bot {
	b.Middlewares.Extend(fns...)
	return b
}

// Initialize starts the bot. Unless opts.Webhook is set a polling task is
// started that runs until Close. Calling it on a running bot does nothing.
func (b *Bot) Initialize(ctx context.Context, opts ...InitOptions) error {
	var o InitOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	o = o.withDefaults()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return nil
	}
	if b.Handlers.Len() == 0 {
		return errors.Wrap(ErrConfiguration, "can't initialize with no handlers")
	}

	b.running = true
	b.scheduler = NewScheduler(o.Limit, o.PendingLimit, b.Log)
	if !o.Webhook {
		pumpCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		b.cancel = cancel
		b.pumpDone = make(chan struct{})
		go b.pump(pumpCtx, o, b.pumpDone)
	}
	b.Log.Debug("bot started (webhook: %t, handlers: %d)", o.Webhook, b.Handlers.Len())
	return nil
}

// IsRunning reports whether the bot accepts updates.
func (b *Bot) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// Offset returns the next update id the polling task will ask for, zero when unset.
func (b *Bot) Offset() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.offset
}

// Close stops the polling task, waits for every dispatched handler and resets
// the offset. Closing a stopped bot does nothing.
func (b *Bot) Close() error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return nil
	}
	b.running = false
	cancel, done, sched := b.cancel, b.pumpDone, b.scheduler
	b.cancel, b.pumpDone = nil, nil
	b.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	sched.Close()

	b.mu.Lock()
	b.scheduler = nil
	b.offset = 0
	b.mu.Unlock()
	b.Log.Debug("bot stopped")
	return nil
}

// ProcessUpdate classifies u, resolves its handler and schedules the
// middleware chain with it. It returns as soon as the job is scheduled.
func (b *Bot) ProcessUpdate(ctx context.Context, u Update) error {
	b.mu.Lock()
	running, sched := b.running, b.scheduler
	b.mu.Unlock()
	if !running || sched == nil {
		return ErrNotStarted
	}

	chat, incoming, content := RecognizeType(u)
	handler := b.Handlers.Get(chat, incoming, content, u)
	msg := NewMessage(b.Client, u, b.Ctx, chat, incoming, content)

	b.Log.WithFields(map[string]any{
		"update_id": u.ID(),
		"dispatch":  msg.ID,
	}).Trace("%s/%s/%s -> %s", chat, incoming, content, handler.Name)

	err := sched.Spawn(ctx, handler.Name, func(ctx context.Context) error {
		return b.Middlewares.Run(ctx, msg, handler)
	})
	if errors.Is(err, ErrSchedulerClosed) {
		return ErrNotStarted
	}
	return err
}

// ProcessRawUpdate parses data and dispatches it, see ProcessUpdate.
func (b *Bot) ProcessRawUpdate(ctx context.Context, data []byte) error {
	u, err := ParseUpdate(data)
	if err != nil {
		return err
	}
	return b.ProcessUpdate(ctx, u)
}

func (b *Bot) pump(ctx context.Context, o InitOptions, done chan struct{}) {
	defer close(done)
	log := b.Log.WithPrefix("aiotgbot updates")

	params := &botapi.GetUpdatesParams{
		Limit:          o.PollLimit,
		Timeout:        int(o.PollTimeout / time.Second),
		AllowedUpdates: o.AllowedUpdates,
	}

	for ctx.Err() == nil {
		params.Offset = b.Offset()
		delay := o.Interval

		batch, err := b.Client.GetUpdates(ctx, params)
		switch {
		case err != nil && ctx.Err() != nil:
			return
		case err != nil:
			delay = b.fetchDelay(log, err, o)
		default:
			if err := b.processUpdates(ctx, batch); err != nil {
				if errors.Is(err, ErrNotStarted) {
					return
				}
				log.WithError(err).Error("[ProcessUpdates] batch dispatch failed")
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// processUpdates dispatches batch in arrival order and moves the offset past
// the highest update id seen once the whole batch is scheduled.
func (b *Bot) processUpdates(ctx context.Context, batch []json.RawMessage) error {
	if len(batch) == 0 {
		return nil
	}
	maxID := b.Offset()
	for _, raw := range batch {
		id := gjson.GetBytes(raw, "update_id").Int()
		u, err := ParseUpdate(raw)
		if err != nil {
			b.Log.WithError(err).Warn("[ProcessUpdates] skipping update %d", id)
		} else if err := b.ProcessUpdate(ctx, u); err != nil {
			return err
		}
		maxID = max(maxID, id)
	}

	b.mu.Lock()
	b.offset = maxID + 1
	b.mu.Unlock()
	return nil
}

// fetchDelay logs a failed getUpdates and returns how long to wait before the next one.
func (b *Bot) fetchDelay(log *utils.Logger, err error, o InitOptions) time.Duration {
	log = log.WithError(err)
	if d, ok := botapi.RetryAfter(err); ok {
		log.Warn("[GetUpdates] flood control, retrying in %s", d)
		return d
	}
	switch {
	case botapi.IsTimeout(err):
		log.Warn("[GetUpdates] request timed out")
		return o.TimeoutDelay
	case botapi.IsServerError(err):
		log.Error("[GetUpdates] telegram server error")
		return o.ServerErrorBackoff
	case botapi.IsUnauthorized(err):
		log.Error("[GetUpdates] invalid access token")
		return o.ServerErrorBackoff
	case botapi.IsClientError(err):
		log.Error("[GetUpdates] request rejected")
		return o.Interval
	default:
		log.Error("[GetUpdates] connection error")
		return o.ServerErrorBackoff
	}
}
