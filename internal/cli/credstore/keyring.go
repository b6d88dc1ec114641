package credstore

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const service = "storefront-cli"

// Keyring stores tokens in the OS keychain/credential manager, keyed per
// server host so sessions against different servers don't clobber each other.
type Keyring struct {
	host string
}

// NewKeyring creates a keyring-backed store for the given server host
func NewKeyring(host string) *Keyring {
	return &Keyring{host: host}
}

func (k *Keyring) key(kind string) string {
	return fmt.Sprintf("%s-%s", kind, k.host)
}

// SaveTokens persists both tokens in the OS keychain/credential manager.
// If the refresh write fails the access write is rolled back, so a failure
// leaves the keychain as it was. A crash between the two writes can still
// leave a lone access token behind; Clear repairs that on the next logout.
func (k *Keyring) SaveTokens(access, refresh string) error {
	if err := keyring.Set(service, k.key("access"), access); err != nil {
		return fmt.Errorf("failed to save access token: %w", err)
	}
	if err := keyring.Set(service, k.key("refresh"), refresh); err != nil {
		_ = keyring.Delete(service, k.key("access"))
		return fmt.Errorf("failed to save refresh token: %w", err)
	}
	return nil
}

// SaveAccessToken replaces only the access token
func (k *Keyring) SaveAccessToken(access string) error {
	if err := keyring.Set(service, k.key("access"), access); err != nil {
		return fmt.Errorf("failed to save access token: %w", err)
	}
	return nil
}

// AccessToken retrieves the access token, or "" if none is stored
func (k *Keyring) AccessToken() (string, error) {
	return k.get("access")
}

// RefreshToken retrieves the refresh token, or "" if none is stored
func (k *Keyring) RefreshToken() (string, error) {
	return k.get("refresh")
}

func (k *Keyring) get(kind string) (string, error) {
	token, err := keyring.Get(service, k.key(kind))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to load %s token: %w", kind, err)
	}
	return token, nil
}

// Clear removes both tokens from the OS keychain/credential manager
func (k *Keyring) Clear() error {
	var firstErr error
	for _, kind := range []string{"access", "refresh"} {
		if err := keyring.Delete(service, k.key(kind)); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to delete %s token: %w", kind, err)
			}
		}
	}
	return firstErr
}
