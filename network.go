package botapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// Request calls an arbitrary Bot API method with params encoded as JSON and
// returns the raw result field of a successful reply.
func (c *Client) Request(ctx context.Context, method string, params any) (json.RawMessage, error) {
	return c.request(ctx, method, params, 0)
}

func (c *Client) request(ctx context.Context, method string, params any, extra time.Duration) (json.RawMessage, error) {
	body := []byte("{}")
	if params != nil {
		var err error
		if body, err = json.Marshal(params); err != nil {
			return nil, errors.Wrapf(err, "encoding %s params", method)
		}
	}

	build := func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+method, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}
	return c.do(ctx, method, extra, build)
}

// requestMultipart uploads the file at path under fileField next to the plain fields.
func (c *Client) requestMultipart(ctx context.Context, method string, fields map[string]string, fileField, path string) (json.RawMessage, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, errors.Wrapf(err, "writing field %s", k)
		}
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, "opening upload")
		}
		defer f.Close()

		part, err := w.CreateFormFile(fileField, filepath.Base(path))
		if err != nil {
			return nil, errors.Wrap(err, "creating form file")
		}
		if _, err := io.Copy(part, f); err != nil {
			return nil, errors.Wrap(err, "reading upload")
		}
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "closing multipart body")
	}

	payload := buf.Bytes()
	build := func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+method, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", w.FormDataContentType())
		return req, nil
	}
	return c.do(ctx, method, 0, build)
}

func (c *Client) do(ctx context.Context, method string, extra time.Duration, build func(context.Context) (*http.Request, error)) (json.RawMessage, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout+extra)
	defer cancel()

	req, err := build(reqCtx)
	if err != nil {
		return nil, errors.Wrapf(err, "building %s request", method)
	}

	c.Log.Trace("-> %s", method)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, wrapTransport(method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrapTransport(method, err)
	}

	if resp.StatusCode >= 500 {
		// 5xx bodies are usually proxy pages, not json
		var out Response
		if json.Unmarshal(raw, &out) != nil {
			out = Response{Description: http.StatusText(resp.StatusCode)}
		}
		return nil, responseError(method, resp.StatusCode, &out)
	}

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errors.Wrapf(err, "decoding %s reply (status %d)", method, resp.StatusCode)
	}

	if resp.StatusCode == http.StatusOK && out.OK {
		c.Log.Trace("<- %s (%d bytes)", method, len(out.Result))
		return out.Result, nil
	}

	e := responseError(method, resp.StatusCode, &out)
	c.Log.WithField("status", resp.StatusCode).Debug(fmt.Sprintf("%s failed: %s", method, e.Description))
	return nil, e
}
