package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/v-v-vishnevskiy/aio-telegram-bot/internal/utils"
	"github.com/v-v-vishnevskiy/aio-telegram-bot/telegram"
)

const helpText = `Commands:
/start - say hello
/help - show this message
Any other private message is echoed back.`

// demoHandlers is the handler set served by `run` and `webhook`.
func demoHandlers() *telegram.Handlers {
	return telegram.NewHandlers().
		MustRegister(telegram.Criteria{Name: "start", Content: telegram.ContentCommand, Rule: "/start"}, start).
		MustRegister(telegram.Criteria{Name: "help", Content: telegram.ContentCommand, Rule: "/help"}, help).
		MustRegister(telegram.Criteria{Name: "hi", Content: telegram.ContentText, Rule: telegram.Contains("hi"), Pause: time.Second}, hi).
		MustRegister(telegram.Criteria{Name: "greeting", Incoming: telegram.NewMessage, Content: telegram.ContentNewChatMembers}, greeting).
		MustRegister(telegram.Criteria{Name: "echo", ChatType: telegram.ChatPrivate, Content: telegram.ContentText}, echo)
}

func start(ctx context.Context, m *telegram.Message) error {
	_, err := m.SendMessage(ctx, "Hello! Send /help to see what I can do.", false)
	return err
}

func help(ctx context.Context, m *telegram.Message) error {
	_, err := m.SendMessage(ctx, helpText, false)
	return err
}

func hi(ctx context.Context, m *telegram.Message) error {
	_, err := m.SendMessage(ctx, "Hello!", true)
	return err
}

func greeting(ctx context.Context, m *telegram.Message) error {
	var names []string
	for _, member := range m.Payload().Get("new_chat_members").Array() {
		if member.Get("is_bot").Bool() {
			continue
		}
		names = append(names, member.Get("first_name").String())
	}
	if len(names) == 0 {
		return nil
	}
	_, err := m.SendMessage(ctx, fmt.Sprintf("Welcome, %s!", strings.Join(names, ", ")), false)
	return err
}

func echo(ctx context.Context, m *telegram.Message) error {
	_, err := m.SendMessage(ctx, m.Text(), true)
	return err
}

// logUpdates logs every dispatch with its duration and outcome.
func logUpdates(log *utils.Logger) telegram.Middleware {
	return func(ctx context.Context, m *telegram.Message, next telegram.HandlerFunc) error {
		started := time.Now()
		err := next(ctx, m)
		entry := log.WithFields(map[string]any{
			"update_id": m.Update.ID(),
			"chat":      m.ChatType.String(),
			"incoming":  m.Incoming.String(),
			"content":   m.Content.String(),
			"took":      time.Since(started).Round(time.Millisecond),
		})
		if err != nil {
			entry.WithError(err).Warn("update %s failed", m.ID)
		} else {
			entry.Debug("update %s handled", m.ID)
		}
		return err
	}
}
