// Package keychain keeps bot tokens in the system keychain.
package keychain

import (
	"github.com/pkg/errors"
	"github.com/zalando/go-keyring"
)

const serviceName = "aiotgbot"

// DefaultAccount is used when no bot name is given.
const DefaultAccount = "default"

// ErrNotFound is returned when no token is stored for the account.
var ErrNotFound = keyring.ErrNotFound

func account(name string) string {
	if name == "" {
		return DefaultAccount
	}
	return name
}

// Get retrieves the token stored for the bot name.
func Get(name string) (string, error) {
	return keyring.Get(serviceName, account(name))
}

// Set stores a token for the bot name.
func Set(name, token string) error {
	if token == "" {
		return errors.New("[TokenEmpty] refusing to store an empty token")
	}
	return keyring.Set(serviceName, account(name), token)
}

// Delete removes the token stored for the bot name.
func Delete(name string) error {
	return keyring.Delete(serviceName, account(name))
}
