package telegram_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v-v-vishnevskiy/aio-telegram-bot/telegram"
)

func TestPrepareRule(t *testing.T) {
	r, err := telegram.PrepareRule(telegram.ContentCommand, "/start")
	require.NoError(t, err)
	assert.Equal(t, telegram.PriorityPattern, r.Priority())
	assert.True(t, r.Match("/start"))

	_, err = telegram.PrepareRule(telegram.ContentCommand, "start")
	assert.ErrorIs(t, err, telegram.ErrInvalidRule)

	r, err = telegram.PrepareRule(telegram.ContentMention, "@gopher")
	require.NoError(t, err)
	assert.True(t, r.Match("@gopher"))

	_, err = telegram.PrepareRule(telegram.ContentMention, "gopher")
	assert.ErrorIs(t, err, telegram.ErrInvalidRule)

	r, err = telegram.PrepareRule(telegram.ContentText, 42)
	require.NoError(t, err)
	assert.Equal(t, telegram.PriorityText, r.Priority())
	assert.True(t, r.Match("42"))

	contains := telegram.Contains("go")
	r, err = telegram.PrepareRule(telegram.ContentText, contains)
	require.NoError(t, err)
	assert.Same(t, contains, r)

	r, err = telegram.PrepareRule(telegram.ContentText, nil)
	require.NoError(t, err)
	assert.Nil(t, r)

	r, err = telegram.PrepareRule(telegram.ContentHashtag, "#Go")
	require.NoError(t, err)
	assert.True(t, r.Match("#Go"))
	assert.False(t, r.Match("#go"))

	_, err = telegram.PrepareRule(telegram.ContentText, 3.14)
	assert.ErrorIs(t, err, telegram.ErrInvalidRule)
}

func TestPrepareRuleRejectsNilPointer(t *testing.T) {
	var text *telegram.TextRule
	_, err := telegram.PrepareRule(telegram.ContentText, text)
	assert.ErrorIs(t, err, telegram.ErrInvalidRule)

	var re *telegram.RegExpRule
	_, err = telegram.PrepareRule(telegram.ContentText, re)
	assert.ErrorIs(t, err, telegram.ErrInvalidRule)

	cmd, _ := telegram.Command("help")
	hs := telegram.NewHandlers()
	assert.NotPanics(t, func() {
		_, err = hs.Register(telegram.Criteria{Content: telegram.ContentCommand, Rule: cmd}, func(context.Context, *telegram.Message) error { return nil })
	})
	assert.ErrorIs(t, err, telegram.ErrInvalidRule)
	assert.Equal(t, 0, hs.Len())
}

func TestTextRule(t *testing.T) {
	assert.True(t, telegram.Text("Hello").Match("hELLO"))
	assert.False(t, telegram.Text("Hello").Match("hello there"))
	assert.True(t, telegram.Text("ПРИВЕТ").Match("привет"))
	assert.False(t, telegram.Text("Hello", telegram.CaseSensitive()).Match("hello"))
	assert.True(t, telegram.Text("Hello", telegram.CaseSensitive()).Match("Hello"))
}

func TestContainsRule(t *testing.T) {
	assert.True(t, telegram.Contains("hi").Match("Oh HI there"))
	assert.False(t, telegram.Contains("hi").Match("hello"))
	assert.False(t, telegram.Contains("hi", telegram.CaseSensitive()).Match("Oh HI there"))
	assert.Equal(t, telegram.PriorityContains, telegram.Contains("hi").Priority())
}

func TestCommandRule(t *testing.T) {
	cmd := telegram.MustCommand("/start")
	assert.True(t, cmd.Match("/start"))
	assert.True(t, cmd.Match("/start@GopherBot"))
	assert.False(t, cmd.Match("/Start"))
	assert.False(t, cmd.Match("/started"))

	assert.True(t, telegram.MustCommand("/start", telegram.CaseInsensitive()).Match("/START"))

	_, err := telegram.Command("/bad command")
	assert.ErrorIs(t, err, telegram.ErrInvalidRule)
	assert.Panics(t, func() { telegram.MustMention("nope") })
}

func TestRegExpRule(t *testing.T) {
	re := telegram.MustRegExp(`\d+`)
	assert.True(t, re.Match("123abc"))
	assert.False(t, re.Match("abc123"))
	assert.Equal(t, telegram.PriorityRegExp, re.Priority())

	alt := telegram.MustRegExp(`a|b`)
	assert.True(t, alt.Match("b1"))
	assert.False(t, alt.Match("cb"))

	_, err := telegram.RegExp(`(`)
	assert.ErrorIs(t, err, telegram.ErrInvalidRule)
}

func TestRuleEqual(t *testing.T) {
	assert.True(t, telegram.Text("a").Equal(telegram.Text("A")))
	assert.False(t, telegram.Text("a").Equal(telegram.Text("a", telegram.CaseSensitive())))
	assert.False(t, telegram.Text("a").Equal(telegram.Contains("a")))
	assert.True(t, telegram.MustRegExp(`x+`).Equal(telegram.MustRegExp(`x+`)))
	assert.False(t, telegram.MustRegExp(`x+`).Equal(telegram.MustRegExp(`y+`)))
	assert.False(t, telegram.MustRegExp(`x`).Equal(telegram.Text("x")))
	assert.True(t, telegram.MustCommand("/go").Equal(telegram.MustCommand("/go")))
	assert.False(t, telegram.MustCommand("/go").Equal(telegram.Text("/go", telegram.CaseSensitive())))
}

func TestIsMatch(t *testing.T) {
	text := telegram.MustParseUpdate(`{"update_id":1,"message":{"message_id":1,"chat":{"id":1,"type":"private"},"text":"Hello"}}`)
	callback := telegram.MustParseUpdate(`{"update_id":2,"callback_query":{"id":"1","data":"Hello"}}`)

	assert.True(t, telegram.IsMatch(nil, telegram.CallbackQuery, telegram.AnyContent, callback))
	assert.False(t, telegram.IsMatch(telegram.Text("hello"), telegram.CallbackQuery, telegram.AnyContent, callback))
	assert.True(t, telegram.IsMatch(telegram.Text("hello"), telegram.NewMessage, telegram.ContentText, text))
	assert.False(t, telegram.IsMatch(telegram.Text("hello"), telegram.NewMessage, telegram.AnyContent, text))
	assert.False(t, telegram.IsMatch(telegram.Text("bye"), telegram.NewMessage, telegram.ContentText, text))
}

func TestContentValueUTF16(t *testing.T) {
	// the emoji takes two UTF-16 code units
	u := telegram.MustParseUpdate(`{"update_id":1,"message":{"message_id":1,"chat":{"id":1,"type":"private"},` +
		`"text":"https://ex.com/😀 more","entities":[{"type":"url","offset":0,"length":17}]}}`)

	chat, incoming, content := telegram.RecognizeType(u)
	assert.Equal(t, telegram.ChatPrivate, chat)
	require.Equal(t, telegram.ContentURL, content)

	v, ok := telegram.ContentValue(incoming, content, u)
	require.True(t, ok)
	assert.Equal(t, "https://ex.com/😀", v)
}

func TestContentValueCommandWithArgs(t *testing.T) {
	u := telegram.MustParseUpdate(`{"update_id":1,"message":{"message_id":1,"chat":{"id":1,"type":"group"},` +
		`"text":"/echo@GopherBot hi","entities":[{"type":"bot_command","offset":0,"length":15}]}}`)

	v, ok := telegram.ContentValue(telegram.NewMessage, telegram.ContentCommand, u)
	require.True(t, ok)
	assert.Equal(t, "/echo@GopherBot", v)
	assert.True(t, telegram.IsMatch(telegram.MustCommand("/echo"), telegram.NewMessage, telegram.ContentCommand, u))
}
