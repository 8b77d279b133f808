// Package credential reads secrets from the system keyring, falling back to
// environment variables.
package credential

import (
	"errors"
	"fmt"
	"os"

	"github.com/99designs/keyring"
)

const serviceName = "mailassist"

// Well-known credential keys and the environment variables that may supply
// them instead of the keyring.
const (
	KeyAnthropic    = "anthropic_api_key"
	KeyIMAPPassword = "imap_password"
	KeySMTPPassword = "smtp_password"
)

var envFallback = map[string]string{
	KeyAnthropic:    "ANTHROPIC_API_KEY",
	KeyIMAPPassword: "IMAP_PASSWORD",
	KeySMTPPassword: "SMTP_PASSWORD",
}

// ErrNotFound is returned when neither the keyring nor the environment
// holds the credential.
var ErrNotFound = errors.New("credential not found")

// openKeyring returns a configured keyring instance. Replaced in tests.
var openKeyring = func() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/mailassist/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("mailassist-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get retrieves a credential value by key from the system keyring.
func Get(key string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Lookup returns the credential from the environment when its variable is
// set, otherwise from the keyring.
func Lookup(key string) (string, error) {
	if name, ok := envFallback[key]; ok {
		if v := os.Getenv(name); v != "" {
			return v, nil
		}
	}
	return Get(key)
}

// Set stores a credential value by key in the system keyring.
func Set(key string, value string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:  key,
		Data: []byte(value),
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key from the system keyring.
func Delete(key string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Remove(key)
	if err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}
