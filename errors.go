package botapi

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ErrTimeout is wrapped into every error caused by a request deadline.
var ErrTimeout = errors.New("[Timeout] bot api request timed out")

// ErrResponseCode is an unsuccessful reply of the Bot API server.
type ErrResponseCode struct {
	// HTTP status or the error_code field of the reply
	Code int64
	// Short classification of the failure
	Message string
	// Description sent by the server, if any
	Description string
	// Method that failed
	Method string
	// Seconds to wait before repeating the request (flood control)
	RetryAfter int
	// The group has been migrated to a supergroup with this id
	MigrateToChatID int64
}

func (e *ErrResponseCode) Error() string {
	desc := e.Description
	if desc == "" {
		desc = "no description"
	}
	if e.Method != "" {
		desc = fmt.Sprintf("%s (method: %s)", desc, e.Method)
	}
	return fmt.Sprintf("[%s] %s (code %d)", e.Message, desc, e.Code)
}

const (
	msgServerError  = "ServerError"
	msgUnauthorized = "InvalidAccessToken"
	msgUnsuccessful = "UnsuccessfulRequest"
	msgUnexpected   = "UnexpectedBehavior"
)

// responseError classifies a reply the same way for every method:
// status >= 500 is a server error, 401 an invalid token, ok=false on 200 an unsuccessful
// request and anything else unexpected.
func responseError(method string, status int, resp *Response) *ErrResponseCode {
	e := &ErrResponseCode{Code: int64(status), Method: method}
	switch {
	case status >= 500:
		e.Message = msgServerError
	case status == 401:
		e.Message = msgUnauthorized
	case status == 200:
		e.Message = msgUnsuccessful
	default:
		e.Message = msgUnexpected
	}

	if resp != nil {
		e.Description = resp.Description
		if resp.ErrorCode != 0 {
			e.Code = resp.ErrorCode
		}
		if resp.Parameters != nil {
			e.RetryAfter = resp.Parameters.RetryAfter
			e.MigrateToChatID = resp.Parameters.MigrateToChatID
		}
	}
	return e
}

func asResponseError(err error) (*ErrResponseCode, bool) {
	var e *ErrResponseCode
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsTimeout reports whether err was caused by a request deadline.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsServerError reports an upstream 5xx failure.
func IsServerError(err error) bool {
	e, ok := asResponseError(err)
	return ok && e.Code >= 500
}

func IsUnauthorized(err error) bool {
	e, ok := asResponseError(err)
	return ok && (e.Code == 401 || e.Message == msgUnauthorized)
}

// IsClientError reports a 4xx reply other than 401.
func IsClientError(err error) bool {
	e, ok := asResponseError(err)
	return ok && e.Code >= 400 && e.Code < 500 && !IsUnauthorized(err)
}

// RetryAfter returns the flood control delay sent with a 429 reply.
func RetryAfter(err error) (time.Duration, bool) {
	e, ok := asResponseError(err)
	if !ok || e.RetryAfter <= 0 {
		return 0, false
	}
	return time.Duration(e.RetryAfter) * time.Second, true
}

func wrapTransport(method string, err error) error {
	if IsTimeout(err) && !errors.Is(err, context.Canceled) {
		return errors.Wrapf(ErrTimeout, "%s: %s", method, strings.TrimSpace(err.Error()))
	}
	return errors.Wrapf(err, "%s", method)
}
