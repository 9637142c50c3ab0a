package telegram

import (
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// Update is one raw update object as delivered by getUpdates or a webhook call.
// It is never modified after parsing.
type Update struct {
	raw  []byte
	root gjson.Result
}

// ParseUpdate validates data as a json object and wraps it.
func ParseUpdate(data []byte) (Update, error) {
	if !gjson.ValidBytes(data) {
		return Update{}, errors.Wrap(ErrInvalidUpdate, "malformed json")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return Update{}, errors.Wrapf(ErrInvalidUpdate, "got %s", root.Type)
	}
	raw := make([]byte, len(data))
	copy(raw, data)
	return Update{raw: raw, root: gjson.ParseBytes(raw)}, nil
}

// MustParseUpdate is like ParseUpdate but panics on invalid input.
func MustParseUpdate(data string) Update {
	u, err := ParseUpdate([]byte(data))
	if err != nil {
		panic(err)
	}
	return u
}

// ID returns update_id, zero when absent.
func (u Update) ID() int64 {
	return u.root.Get("update_id").Int()
}

// Get looks a value up by gjson path, e.g. "message.chat.id".
func (u Update) Get(path string) gjson.Result {
	return u.root.Get(path)
}

// Has reports whether the top level field is present.
func (u Update) Has(field string) bool {
	return u.root.Get(field).Exists()
}

// Raw returns the original json bytes.
func (u Update) Raw() []byte {
	return u.raw
}

func (u Update) String() string {
	return string(u.raw)
}

func (u Update) MarshalJSON() ([]byte, error) {
	if len(u.raw) == 0 {
		return []byte("null"), nil
	}
	return u.raw, nil
}
