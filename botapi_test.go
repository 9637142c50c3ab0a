package botapi_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	botapi "github.com/v-v-vishnevskiy/aio-telegram-bot"
	"github.com/v-v-vishnevskiy/aio-telegram-bot/internal/utils"
)

const testToken = "123:abc"

type apiCall struct {
	Method      string
	ContentType string
	Body        []byte
}

func newTestServer(t *testing.T, reply func(w http.ResponseWriter, call apiCall)) (*botapi.Client, chan apiCall) {
	t.Helper()
	calls := make(chan apiCall, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		prefix := "/bot" + testToken + "/"
		if !strings.HasPrefix(r.URL.Path, prefix) {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		call := apiCall{Method: strings.TrimPrefix(r.URL.Path, prefix), ContentType: r.Header.Get("Content-Type"), Body: body}
		calls <- call
		reply(w, call)
	}))
	t.Cleanup(srv.Close)

	client, err := botapi.NewClient(botapi.Config{
		Token:   testToken,
		BaseURL: srv.URL + "/",
		Timeout: time.Second,
		Logger:  utils.NewLogger("test").SetLevel(utils.NoLevel),
	})
	require.NoError(t, err)
	return client, calls
}

func okReply(result string) func(http.ResponseWriter, apiCall) {
	return func(w http.ResponseWriter, _ apiCall) {
		io.WriteString(w, `{"ok":true,"result":`+result+`}`)
	}
}

func TestNewClientRequiresToken(t *testing.T) {
	_, err := botapi.NewClient(botapi.Config{Token: "  "})
	assert.ErrorContains(t, err, "TokenEmpty")

	c, err := botapi.NewClient(botapi.Config{Token: testToken})
	require.NoError(t, err)
	assert.Equal(t, botapi.DefaultBaseURL, c.BaseURL())
}

func TestGetUpdates(t *testing.T) {
	client, calls := newTestServer(t, okReply(`[{"update_id":1},{"update_id":2,"message":{}}]`))

	updates, err := client.GetUpdates(context.Background(), &botapi.GetUpdatesParams{Offset: 5, Limit: 10})
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.JSONEq(t, `{"update_id":2,"message":{}}`, string(updates[1]))

	call := <-calls
	assert.Equal(t, "getUpdates", call.Method)
	assert.Equal(t, "application/json", call.ContentType)
	assert.JSONEq(t, `{"offset":5,"limit":10}`, string(call.Body))
}

func TestGetUpdatesOmitsZeroOffset(t *testing.T) {
	client, calls := newTestServer(t, okReply(`[]`))

	updates, err := client.GetUpdates(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, updates)
	assert.JSONEq(t, `{}`, string((<-calls).Body))
}

func TestSendMessage(t *testing.T) {
	client, calls := newTestServer(t, okReply(`{"message_id":10}`))

	raw, err := client.SendMessage(context.Background(), &botapi.SendMessageParams{ChatID: int64(42), Text: "hi", ReplyToMessageID: 7})
	require.NoError(t, err)
	assert.JSONEq(t, `{"message_id":10}`, string(raw))
	assert.JSONEq(t, `{"chat_id":42,"text":"hi","reply_to_message_id":7}`, string((<-calls).Body))

	_, err = client.SendMessage(context.Background(), &botapi.SendMessageParams{Text: "lost"})
	assert.ErrorContains(t, err, "ChatIDEmpty")
}

func TestErrorClassification(t *testing.T) {
	for name, tc := range map[string]struct {
		status int
		body   string
		check  func(error) bool
	}{
		"server error":     {http.StatusBadGateway, `<html>bad gateway</html>`, botapi.IsServerError},
		"unauthorized":     {http.StatusUnauthorized, `{"ok":false,"error_code":401,"description":"Unauthorized"}`, botapi.IsUnauthorized},
		"client error":     {http.StatusBadRequest, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`, botapi.IsClientError},
		"unsuccessful 200": {http.StatusOK, `{"ok":false,"description":"nope"}`, func(err error) bool { return strings.Contains(err.Error(), "UnsuccessfulRequest") }},
	} {
		t.Run(name, func(t *testing.T) {
			client, _ := newTestServer(t, func(w http.ResponseWriter, _ apiCall) {
				w.WriteHeader(tc.status)
				io.WriteString(w, tc.body)
			})
			_, err := client.Request(context.Background(), "getMe", nil)
			require.Error(t, err)
			assert.True(t, tc.check(err), err.Error())

			var apiErr *botapi.ErrResponseCode
			assert.ErrorAs(t, err, &apiErr)
			assert.Equal(t, "getMe", apiErr.Method)
		})
	}
}

func TestRetryAfter(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, _ apiCall) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"ok":false,"error_code":429,"description":"Too Many Requests","parameters":{"retry_after":3}}`)
	})

	_, err := client.GetUpdates(context.Background(), nil)
	d, ok := botapi.RetryAfter(err)
	require.True(t, ok)
	assert.Equal(t, 3*time.Second, d)
	assert.True(t, botapi.IsClientError(err))
	assert.False(t, botapi.IsServerError(err))
}

func TestRequestTimeout(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	client, _ := newTestServer(t, func(w http.ResponseWriter, _ apiCall) {
		<-block
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := client.Request(ctx, "getMe", nil)
	require.Error(t, err)
	assert.True(t, botapi.IsTimeout(err), err.Error())
}

func TestGetMe(t *testing.T) {
	client, _ := newTestServer(t, okReply(`{"id":1,"is_bot":true,"first_name":"Gopher","username":"gopher_bot"}`))

	me, err := client.GetMe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "gopher_bot", me.Username)
	assert.True(t, me.IsBot)
}

func TestWebhookMethods(t *testing.T) {
	client, calls := newTestServer(t, func(w http.ResponseWriter, call apiCall) {
		if call.Method == "getWebhookInfo" {
			io.WriteString(w, `{"ok":true,"result":{"url":"https://example.com/hook","pending_update_count":2}}`)
			return
		}
		io.WriteString(w, `{"ok":true,"result":true}`)
	})
	ctx := context.Background()

	require.NoError(t, client.SetWebhook(ctx, &botapi.SetWebhookParams{URL: "https://example.com/hook", SecretToken: "s"}))
	call := <-calls
	assert.Equal(t, "setWebhook", call.Method)
	var body map[string]any
	require.NoError(t, json.Unmarshal(call.Body, &body))
	assert.Equal(t, "s", body["secret_token"])

	cert := filepath.Join(t.TempDir(), "cert.pem")
	require.NoError(t, os.WriteFile(cert, []byte("-----BEGIN CERTIFICATE-----"), 0o600))
	require.NoError(t, client.SetWebhook(ctx, &botapi.SetWebhookParams{URL: "https://example.com/hook", Certificate: cert}))
	call = <-calls
	assert.True(t, strings.HasPrefix(call.ContentType, "multipart/form-data"))
	assert.Contains(t, string(call.Body), "BEGIN CERTIFICATE")

	info, err := client.GetWebhookInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, info.PendingUpdateCount)
	<-calls

	require.NoError(t, client.DeleteWebhook(ctx, true))
	assert.JSONEq(t, `{"drop_pending_updates":true}`, string((<-calls).Body))

	assert.Error(t, client.SetWebhook(ctx, &botapi.SetWebhookParams{}))
}

func TestChatIDFromString(t *testing.T) {
	assert.Equal(t, int64(-100123), botapi.ChatIDFromString(" -100123 "))
	assert.Equal(t, "@channel", botapi.ChatIDFromString("@channel"))
}
