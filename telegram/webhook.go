package telegram

import (
	"crypto/subtle"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

// MaxWebhookBody caps the size of a pushed update.
const MaxWebhookBody = 1 << 20

// WebhookHandler is an http.Handler feeding pushed updates into a bot
// started with InitOptions{Webhook: true}.
type WebhookHandler struct {
	bot    *Bot
	secret string
}

// NewWebhookHandler returns a handler for bot. A non empty secretToken must
// match the X-Telegram-Bot-Api-Secret-Token header of every request.
func NewWebhookHandler(bot *Bot, secretToken string) *WebhookHandler {
	return &WebhookHandler{bot: bot, secret: secretToken}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.secret != "" {
		got := r.Header.Get(WebhookSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxWebhookBody+1))
	if err != nil {
		http.Error(w, "can't read body", http.StatusBadRequest)
		return
	}
	if len(body) > MaxWebhookBody {
		http.Error(w, "update too large", http.StatusRequestEntityTooLarge)
		return
	}

	err = h.bot.ProcessRawUpdate(r.Context(), body)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusOK)
	case errors.Is(err, ErrInvalidUpdate):
		http.Error(w, "invalid update", http.StatusBadRequest)
	case errors.Is(err, ErrNotStarted):
		http.Error(w, "bot is not running", http.StatusServiceUnavailable)
	default:
		h.bot.Log.WithError(err).Error("[Webhook] dispatch failed")
		http.Error(w, "dispatch failed", http.StatusInternalServerError)
	}
}
