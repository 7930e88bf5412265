// Package auth resolves the portal login credentials.
package auth

import (
	"errors"
	"fmt"

	"github.com/law-makers/reviewwatch/pkg/models"
	"github.com/rs/zerolog/log"
	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name for keyring storage
	KeyringService = "reviewwatch"

	accountKey  = "account"
	passwordKey = "password"
)

// Resolve fills any empty field of env from the OS keyring. Keyring problems
// are not errors: headless hosts often have no keyring, and the login step
// tolerates missing credentials anyway.
func Resolve(env models.Credentials) models.Credentials {
	creds := env
	if creds.Account == "" {
		creds.Account = lookup(accountKey)
	}
	if creds.Password == "" {
		creds.Password = lookup(passwordKey)
	}

	log.Debug().
		Bool("account", creds.Account != "").
		Bool("password", creds.Password != "").
		Msg("Credentials resolved")
	return creds
}

// Save stores non-empty credential fields in the OS keyring.
func Save(creds models.Credentials) error {
	if creds.Account == "" && creds.Password == "" {
		return fmt.Errorf("no credentials to save")
	}
	if creds.Account != "" {
		if err := keyring.Set(KeyringService, accountKey, creds.Account); err != nil {
			return fmt.Errorf("failed to save account to keyring: %w", err)
		}
	}
	if creds.Password != "" {
		if err := keyring.Set(KeyringService, passwordKey, creds.Password); err != nil {
			return fmt.Errorf("failed to save password to keyring: %w", err)
		}
	}
	return nil
}

// Clear removes stored credentials. Missing entries are not an error.
func Clear() error {
	for _, key := range []string{accountKey, passwordKey} {
		if err := keyring.Delete(KeyringService, key); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("failed to delete %s from keyring: %w", key, err)
		}
	}
	return nil
}

func lookup(key string) string {
	v, err := keyring.Get(KeyringService, key)
	if err != nil {
		if !errors.Is(err, keyring.ErrNotFound) {
			log.Debug().Err(err).Str("key", key).Msg("Keyring unavailable")
		}
		return ""
	}
	return v
}
