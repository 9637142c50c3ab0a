// Package botapi is a thin HTTP client for the Telegram Bot API. It covers the
// methods the dispatcher needs (getUpdates, sendMessage, webhooks) and exposes
// Request for everything else.
package botapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/v-v-vishnevskiy/aio-telegram-bot/internal/utils"
)

const (
	DefaultBaseURL = "https://api.telegram.org"
	DefaultTimeout = 10 * time.Second
)

// Client talks to the Bot API on behalf of one bot token.
type Client struct {
	config  *Config
	url     string
	http    *http.Client
	timeout time.Duration
	Log     *utils.Logger
}

// Config is the configuration struct for the client
type Config struct {
	// Bot token issued by @BotFather
	Token string
	// API server, default: https://api.telegram.org
	BaseURL string
	// Deadline of a single request, default: 10s.
	// Long polling requests get their polling timeout on top of it.
	Timeout time.Duration
	// Underlying http client, default: a client without its own timeout
	HTTPClient *http.Client
	// Set log level (trace, debug, info, warn, error, disable), default: info
	LogLevel string
	// Custom logger, overrides LogLevel
	Logger *utils.Logger
}

// NewClient returns a client for the bot identified by c.Token.
func NewClient(c Config) (*Client, error) {
	if strings.TrimSpace(c.Token) == "" {
		return nil, errors.New("[TokenEmpty] bot token cannot be empty, get one from @BotFather")
	}

	logger := c.Logger
	if logger == nil {
		logger = utils.NewLogger("aiotgbot botapi").SetLevel(utils.ParseLevel(c.LogLevel))
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	c.BaseURL = strings.TrimRight(utils.OrDefault(c.BaseURL, DefaultBaseURL), "/")
	return &Client{
		config:  &c,
		url:     c.BaseURL + "/bot" + c.Token + "/",
		http:    httpClient,
		timeout: utils.PositiveDuration(c.Timeout, DefaultTimeout),
		Log:     logger,
	}, nil
}

// BaseURL returns the API server the client was configured with.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Response is the envelope of every Bot API reply.
type Response struct {
	OK          bool                `json:"ok"`
	Result      json.RawMessage     `json:"result,omitempty"`
	ErrorCode   int64               `json:"error_code,omitempty"`
	Description string              `json:"description,omitempty"`
	Parameters  *ResponseParameters `json:"parameters,omitempty"`
}

type ResponseParameters struct {
	MigrateToChatID int64 `json:"migrate_to_chat_id,omitempty"`
	RetryAfter      int   `json:"retry_after,omitempty"`
}

type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

type GetUpdatesParams struct {
	// Identifier of the first update to be returned, omitted when zero
	Offset int64 `json:"offset,omitempty"`
	// Limits the number of updates to be retrieved (1-100)
	Limit int `json:"limit,omitempty"`
	// Long polling timeout in seconds, zero means short polling
	Timeout int `json:"timeout,omitempty"`
	// Update kinds to receive, empty keeps the server side setting
	AllowedUpdates []string `json:"allowed_updates,omitempty"`
}

type SendMessageParams struct {
	// Integer chat id or @channelusername
	ChatID                any    `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	ReplyToMessageID      int64  `json:"reply_to_message_id,omitempty"`
	DisableNotification   bool   `json:"disable_notification,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
}

type SetWebhookParams struct {
	// HTTPS url to send updates to
	URL string
	// Path to a public key certificate (PEM) to upload, optional
	Certificate string
	// Maximum allowed number of simultaneous connections, zero keeps the default
	MaxConnections int
	// Update kinds to receive
	AllowedUpdates []string
	// Sent back in the X-Telegram-Bot-Api-Secret-Token header of every webhook request
	SecretToken string
	// Drop all pending updates
	DropPendingUpdates bool
}

type WebhookInfo struct {
	URL                  string   `json:"url"`
	HasCustomCertificate bool     `json:"has_custom_certificate"`
	PendingUpdateCount   int      `json:"pending_update_count"`
	LastErrorDate        int64    `json:"last_error_date,omitempty"`
	LastErrorMessage     string   `json:"last_error_message,omitempty"`
	MaxConnections       int      `json:"max_connections,omitempty"`
	AllowedUpdates       []string `json:"allowed_updates,omitempty"`
}
