package botapi

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

func (c *Client) GetMe(ctx context.Context) (*User, error) {
	raw, err := c.Request(ctx, "getMe", nil)
	if err != nil {
		return nil, err
	}
	var u User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, errors.Wrap(err, "decoding getMe result")
	}
	return &u, nil
}

// GetUpdates fetches the next batch of raw updates. A nil params fetches
// without offset. Long polling timeouts extend the request deadline.
func (c *Client) GetUpdates(ctx context.Context, params *GetUpdatesParams) ([]json.RawMessage, error) {
	if params == nil {
		params = &GetUpdatesParams{}
	}
	raw, err := c.request(ctx, "getUpdates", params, time.Duration(params.Timeout)*time.Second)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var updates []json.RawMessage
	if err := json.Unmarshal(raw, &updates); err != nil {
		return nil, errors.Wrap(err, "decoding getUpdates result")
	}
	return updates, nil
}

// SendMessage sends a text message and returns the raw sent Message object.
func (c *Client) SendMessage(ctx context.Context, params *SendMessageParams) (json.RawMessage, error) {
	if params == nil || params.ChatID == nil {
		return nil, errors.New("[ChatIDEmpty] sendMessage requires a chat id")
	}
	return c.Request(ctx, "sendMessage", params)
}

// SetWebhook registers url as the push endpoint. A certificate path is uploaded
// as multipart form data, otherwise the params go as json.
func (c *Client) SetWebhook(ctx context.Context, params *SetWebhookParams) error {
	if params == nil || params.URL == "" {
		return errors.New("[WebhookURLEmpty] setWebhook requires an url")
	}

	if params.Certificate != "" {
		fields := map[string]string{"url": params.URL}
		if params.MaxConnections > 0 {
			fields["max_connections"] = strconv.Itoa(params.MaxConnections)
		}
		if params.AllowedUpdates != nil {
			allowed, _ := json.Marshal(params.AllowedUpdates)
			fields["allowed_updates"] = string(allowed)
		}
		if params.SecretToken != "" {
			fields["secret_token"] = params.SecretToken
		}
		if params.DropPendingUpdates {
			fields["drop_pending_updates"] = "true"
		}
		_, err := c.requestMultipart(ctx, "setWebhook", fields, "certificate", params.Certificate)
		return err
	}

	body := map[string]any{"url": params.URL}
	if params.MaxConnections > 0 {
		body["max_connections"] = params.MaxConnections
	}
	if params.AllowedUpdates != nil {
		body["allowed_updates"] = params.AllowedUpdates
	}
	if params.SecretToken != "" {
		body["secret_token"] = params.SecretToken
	}
	if params.DropPendingUpdates {
		body["drop_pending_updates"] = true
	}
	_, err := c.Request(ctx, "setWebhook", body)
	return err
}

func (c *Client) GetWebhookInfo(ctx context.Context) (*WebhookInfo, error) {
	raw, err := c.Request(ctx, "getWebhookInfo", nil)
	if err != nil {
		return nil, err
	}
	var info WebhookInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, errors.Wrap(err, "decoding getWebhookInfo result")
	}
	return &info, nil
}

func (c *Client) DeleteWebhook(ctx context.Context, dropPendingUpdates bool) error {
	var params any
	if dropPendingUpdates {
		params = map[string]bool{"drop_pending_updates": true}
	}
	_, err := c.Request(ctx, "deleteWebhook", params)
	return err
}

// ChatIDFromString turns "12345" into an integer id and keeps "@channel" as is.
func ChatIDFromString(s string) any {
	s = strings.TrimSpace(s)
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return id
	}
	return s
}
