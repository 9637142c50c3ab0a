package telegram

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	botapi "github.com/v-v-vishnevskiy/aio-telegram-bot"
)

// APIClient is the part of the Bot API client the dispatcher uses.
// *botapi.Client implements it.
type APIClient interface {
	GetUpdates(ctx context.Context, params *botapi.GetUpdatesParams) ([]json.RawMessage, error)
	SendMessage(ctx context.Context, params *botapi.SendMessageParams) (json.RawMessage, error)
	Request(ctx context.Context, method string, params any) (json.RawMessage, error)
}

// Message is what handlers and middlewares receive for every dispatched update.
type Message struct {
	// Unique id of this dispatch, handy for correlating logs
	ID     string
	Update Update
	// Shared map handed to every message of a bot. It is not synchronized,
	// handlers writing to it concurrently must guard it themselves.
	Ctx map[string]any

	ChatType ChatType
	Incoming Incoming
	Content  Content
	// Chat and message ids, zero unless Incoming is message-like
	ChatID    int64
	MessageID int64

	client APIClient
}

// NewMessage builds the dispatch context for an already classified update.
func NewMessage(client APIClient, u Update, ctx map[string]any, chat ChatType, incoming Incoming, content Content) *Message {
	m := &Message{
		ID:       uuid.NewString(),
		Update:   u,
		Ctx:      ctx,
		ChatType: chat,
		Incoming: incoming,
		Content:  content,
		client:   client,
	}
	if incoming.IsMessageOrPost() {
		payload := u.Get(string(incoming))
		m.ChatID = payload.Get("chat.id").Int()
		m.MessageID = payload.Get("message_id").Int()
	}
	return m
}

// Payload returns the object under the incoming field, e.g. the Message of a "message" update.
func (m *Message) Payload() gjson.Result {
	return m.Update.Get(string(m.Incoming))
}

// Text returns the message text or, for media, its caption.
func (m *Message) Text() string {
	p := m.Payload()
	if t := p.Get("text"); t.Exists() {
		return t.String()
	}
	return p.Get("caption").String()
}

// Value returns the part of the message rules are matched against.
func (m *Message) Value() string {
	v, _ := ContentValue(m.Incoming, m.Content, m.Update)
	return v
}

// SendMessage sends text to the chat the update came from, as a reply to it
// when reply is set.
func (m *Message) SendMessage(ctx context.Context, text string, reply bool) (json.RawMessage, error) {
	if m.ChatID == 0 {
		return nil, errors.Errorf("[NoChat] %s update has no chat to send to", m.Incoming)
	}
	params := &botapi.SendMessageParams{ChatID: m.ChatID, Text: text}
	if reply {
		params.ReplyToMessageID = m.MessageID
	}
	return m.client.SendMessage(ctx, params)
}

// Reply is SendMessage with reply set.
func (m *Message) Reply(ctx context.Context, text string) (json.RawMessage, error) {
	return m.SendMessage(ctx, text, true)
}

// Request calls any Bot API method through the bot's client.
func (m *Message) Request(ctx context.Context, method string, params any) (json.RawMessage, error) {
	return m.client.Request(ctx, method, params)
}

func (m *Message) Client() APIClient {
	return m.client
}
