package telegram

import "github.com/pkg/errors"

var (
	// ErrConfiguration is returned for setups that can never work: starting without
	// handlers, or a content type / rule attached to a non-message incoming kind.
	ErrConfiguration = errors.New("[Configuration] invalid bot configuration")
	// ErrConflict is returned when a bucket already holds a handler with an equal rule.
	ErrConflict = errors.New("[HandlerConflict] handler already registered")
	// ErrInvalidRule is returned when a literal does not fit the shape its rule requires.
	ErrInvalidRule = errors.New("[InvalidRule] rule literal has an invalid format")
	// ErrNotStarted is returned when an update is dispatched while the bot is stopped.
	ErrNotStarted = errors.New("[NotStarted] the bot isn't initialized")
	// ErrInvalidUpdate is returned for payloads that are not a json object.
	ErrInvalidUpdate = errors.New("[InvalidUpdate] update must be a json object")
)
