package telegram_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	botapi "github.com/v-v-vishnevskiy/aio-telegram-bot"
	"github.com/v-v-vishnevskiy/aio-telegram-bot/telegram"
)

type fetchResult struct {
	batch []json.RawMessage
	err   error
}

// fakeClient replays scripted getUpdates results, then returns empty batches.
type fakeClient struct {
	mu      sync.Mutex
	results []fetchResult
	polls   []botapi.GetUpdatesParams
	sent    []botapi.SendMessageParams
	methods []string
}

func (c *fakeClient) GetUpdates(_ context.Context, params *botapi.GetUpdatesParams) ([]json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.polls = append(c.polls, *params)
	if len(c.results) == 0 {
		return nil, nil
	}
	r := c.results[0]
	c.results = c.results[1:]
	return r.batch, r.err
}

func (c *fakeClient) SendMessage(_ context.Context, params *botapi.SendMessageParams) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, *params)
	return json.RawMessage(`{"message_id":1}`), nil
}

func (c *fakeClient) Request(_ context.Context, method string, _ any) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.methods = append(c.methods, method)
	return json.RawMessage(`true`), nil
}

func (c *fakeClient) pollOffsets() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int64, len(c.polls))
	for i, p := range c.polls {
		out[i] = p.Offset
	}
	return out
}

func (c *fakeClient) sentMessages() []botapi.SendMessageParams {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]botapi.SendMessageParams(nil), c.sent...)
}

func rawText(id int64, text string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(
		`{"update_id":%d,"message":{"message_id":%d,"chat":{"id":555,"type":"private"},"text":%q}}`, id, id+1000, text))
}

func fastOptions() telegram.InitOptions {
	return telegram.InitOptions{
		Interval:           time.Millisecond,
		TimeoutDelay:       time.Millisecond,
		ServerErrorBackoff: time.Millisecond,
	}
}

func newTestBot(client telegram.APIClient, hs *telegram.Handlers) *telegram.Bot {
	return telegram.NewBot(client, hs, telegram.BotConfig{Logger: quietLogger()})
}

func TestBotInitializeWithoutHandlers(t *testing.T) {
	bot := newTestBot(&fakeClient{}, nil)
	err := bot.Initialize(context.Background(), fastOptions())
	assert.ErrorIs(t, err, telegram.ErrConfiguration)
	assert.False(t, bot.IsRunning())
}

func TestBotProcessUpdateWhenStopped(t *testing.T) {
	hs := telegram.NewHandlers().MustRegister(telegram.Criteria{}, noop)
	bot := newTestBot(&fakeClient{}, hs)

	err := bot.ProcessUpdate(context.Background(), textUpdate(1, telegram.ChatPrivate, "hi"))
	assert.ErrorIs(t, err, telegram.ErrNotStarted)

	opts := fastOptions()
	opts.Webhook = true
	require.NoError(t, bot.Initialize(context.Background(), opts))
	require.NoError(t, bot.ProcessUpdate(context.Background(), textUpdate(1, telegram.ChatPrivate, "hi")))
	require.NoError(t, bot.Close())

	err = bot.ProcessUpdate(context.Background(), textUpdate(2, telegram.ChatPrivate, "hi"))
	assert.ErrorIs(t, err, telegram.ErrNotStarted)
}

func TestBotPollingOffset(t *testing.T) {
	client := &fakeClient{results: []fetchResult{
		{batch: []json.RawMessage{rawText(5, "a"), rawText(7, "b"), rawText(6, "c")}},
		{batch: nil},
		{batch: []json.RawMessage{rawText(8, "d")}},
	}}
	var handled atomic.Int32
	hs := telegram.NewHandlers().MustRegister(telegram.Criteria{}, func(context.Context, *telegram.Message) error {
		handled.Add(1)
		return nil
	})
	bot := newTestBot(client, hs)

	require.NoError(t, bot.Initialize(context.Background(), fastOptions()))
	require.Eventually(t, func() bool { return len(client.pollOffsets()) >= 4 }, time.Second, time.Millisecond)
	require.NoError(t, bot.Close())

	offsets := client.pollOffsets()
	assert.Equal(t, []int64{0, 8, 8, 9}, offsets[:4])
	assert.EqualValues(t, 4, handled.Load())
	assert.Zero(t, bot.Offset(), "close resets the offset")
}

func TestBotPollingSurvivesErrors(t *testing.T) {
	client := &fakeClient{results: []fetchResult{
		{err: errors.Wrap(botapi.ErrTimeout, "getUpdates")},
		{err: &botapi.ErrResponseCode{Code: 502, Message: "ServerError"}},
		{err: &botapi.ErrResponseCode{Code: 401, Message: "InvalidAccessToken"}},
		{err: &botapi.ErrResponseCode{Code: 400, Message: "UnexpectedBehavior"}},
		{err: errors.New("connection refused")},
		{batch: []json.RawMessage{rawText(1, "finally")}},
	}}
	got := make(chan string, 1)
	hs := telegram.NewHandlers().MustRegister(telegram.Criteria{}, func(_ context.Context, m *telegram.Message) error {
		got <- m.Text()
		return nil
	})
	bot := newTestBot(client, hs)

	require.NoError(t, bot.Initialize(context.Background(), fastOptions()))
	defer bot.Close()

	select {
	case text := <-got:
		assert.Equal(t, "finally", text)
	case <-time.After(2 * time.Second):
		t.Fatal("update was not dispatched after fetch errors")
	}
	assert.True(t, bot.IsRunning())
}

func TestBotHandlerFailuresAreIsolated(t *testing.T) {
	client := &fakeClient{}
	var ok atomic.Int32
	hs := telegram.NewHandlers().
		MustRegister(telegram.Criteria{Content: telegram.ContentText, Rule: "panic"}, func(context.Context, *telegram.Message) error {
			panic("handler bug")
		}).
		MustRegister(telegram.Criteria{Content: telegram.ContentText, Rule: "fail"}, func(context.Context, *telegram.Message) error {
			return errors.New("handler failed")
		}).
		MustRegister(telegram.Criteria{Content: telegram.ContentText}, func(context.Context, *telegram.Message) error {
			ok.Add(1)
			return nil
		})
	bot := newTestBot(client, hs)
	opts := fastOptions()
	opts.Webhook = true
	require.NoError(t, bot.Initialize(context.Background(), opts))

	assert.NoError(t, bot.ProcessUpdate(context.Background(), textUpdate(1, telegram.ChatPrivate, "panic")))
	assert.NoError(t, bot.ProcessUpdate(context.Background(), textUpdate(2, telegram.ChatPrivate, "fail")))
	assert.NoError(t, bot.ProcessUpdate(context.Background(), textUpdate(3, telegram.ChatPrivate, "fine")))
	require.NoError(t, bot.Close())

	assert.EqualValues(t, 1, ok.Load())
}

func TestBotCloseWaitsForHandlers(t *testing.T) {
	var finished atomic.Bool
	hs := telegram.NewHandlers().MustRegister(telegram.Criteria{}, func(context.Context, *telegram.Message) error {
		time.Sleep(30 * time.Millisecond)
		finished.Store(true)
		return nil
	})
	bot := newTestBot(&fakeClient{}, hs)
	opts := fastOptions()
	opts.Webhook = true
	require.NoError(t, bot.Initialize(context.Background(), opts))
	require.NoError(t, bot.ProcessRawUpdate(context.Background(), rawText(1, "slow")))

	require.NoError(t, bot.Close())
	assert.True(t, finished.Load())
	assert.NoError(t, bot.Close(), "closing twice is a no-op")
}

func TestBotInitializeIsIdempotent(t *testing.T) {
	client := &fakeClient{}
	bot := newTestBot(client, telegram.NewHandlers().MustRegister(telegram.Criteria{}, noop))
	opts := fastOptions()
	opts.Webhook = true

	require.NoError(t, bot.Initialize(context.Background(), opts))
	require.NoError(t, bot.Initialize(context.Background(), fastOptions()))
	require.NoError(t, bot.Close())

	assert.Empty(t, client.pollOffsets(), "webhook bot never polls")
}

func TestBotMiddlewaresAndReply(t *testing.T) {
	client := &fakeClient{}
	bot := newTestBot(client, nil)
	require.NoError(t, bot.AddHandler(telegram.Criteria{Content: telegram.ContentCommand, Rule: "/start"},
		func(ctx context.Context, m *telegram.Message) error {
			_, err := m.SendMessage(ctx, fmt.Sprintf("hello from %v", m.Ctx["greeter"]), true)
			return err
		}))

	bot.Ctx["greeter"] = "bot"
	var seen atomic.Int32
	bot.Use(func(ctx context.Context, m *telegram.Message, next telegram.HandlerFunc) error {
		seen.Add(1)
		return next(ctx, m)
	})

	opts := fastOptions()
	opts.Webhook = true
	require.NoError(t, bot.Initialize(context.Background(), opts))
	require.NoError(t, bot.ProcessUpdate(context.Background(), commandUpdate(9, "/start")))
	require.NoError(t, bot.Close())

	sent := client.sentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, int64(100), sent[0].ChatID)
	assert.Equal(t, int64(9), sent[0].ReplyToMessageID)
	assert.Equal(t, "hello from bot", sent[0].Text)
	assert.EqualValues(t, 1, seen.Load())
}

func TestBotProcessRawUpdateInvalid(t *testing.T) {
	bot := newTestBot(&fakeClient{}, telegram.NewHandlers().MustRegister(telegram.Criteria{}, noop))
	opts := fastOptions()
	opts.Webhook = true
	require.NoError(t, bot.Initialize(context.Background(), opts))
	defer bot.Close()

	assert.ErrorIs(t, bot.ProcessRawUpdate(context.Background(), []byte(`not json`)), telegram.ErrInvalidUpdate)
}
