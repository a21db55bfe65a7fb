// Package credential stores the IMAP app password in the system keyring.
package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "mailtext"

// openRing is replaced in tests with a file-backend ring.
var openRing = openKeyring

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.mailtext/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("mailtext-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get retrieves the stored password for an account.
func Get(account string) (string, error) {
	ring, err := openRing()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(account)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", account, err)
	}

	return string(item.Data), nil
}

// Set stores the password for an account.
func Set(account, password string) error {
	ring, err := openRing()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:  account,
		Data: []byte(password),
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", account, err)
	}

	return nil
}

// Delete removes the stored password for an account.
func Delete(account string) error {
	ring, err := openRing()
	if err != nil {
		return err
	}

	err = ring.Remove(account)
	if err != nil {
		return fmt.Errorf("deleting credential %q: %w", account, err)
	}

	return nil
}

// ResolvePassword returns the app password from the configured value or the
// keyring. The config file value wins when both are set.
func ResolvePassword(account, configured string, useKeyring bool) (string, error) {
	if configured != "" {
		return configured, nil
	}
	if useKeyring {
		return Get(account)
	}
	return "", errors.New("no app password configured: run 'mailtext init'")
}
