package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// keyringService is the keychain service all n8nctl tokens are stored under.
	keyringService = "n8nctl"

	// TokenEnv overrides the stored token.
	TokenEnv = "N8NCTL_TOKEN"
)

// ErrNoToken is returned when neither the environment nor the keychain has a token.
var ErrNoToken = errors.New("not logged in: run `n8nctl login --token <token>` or set " + TokenEnv)

// TokenStore keeps one bearer token per gateway URL.
type TokenStore interface {
	Get(server string) (string, error)
	Set(server, token string) error
	Delete(server string) error
}

// keychainStore stores tokens in the OS keychain.
type keychainStore struct{}

// NewKeychainStore returns a TokenStore backed by the OS keychain.
func NewKeychainStore() TokenStore {
	return keychainStore{}
}

func (keychainStore) Get(server string) (string, error) {
	token, err := keyring.Get(keyringService, server)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNoToken
	}
	return token, err
}

func (keychainStore) Set(server, token string) error {
	return keyring.Set(keyringService, server, token)
}

func (keychainStore) Delete(server string) error {
	err := keyring.Delete(keyringService, server)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// ResolveToken returns the token from TokenEnv, else from the store.
func ResolveToken(store TokenStore, server string) (string, error) {
	if token := strings.TrimSpace(os.Getenv(TokenEnv)); token != "" {
		return token, nil
	}
	token, err := store.Get(server)
	if err != nil {
		if errors.Is(err, ErrNoToken) {
			return "", err
		}
		return "", fmt.Errorf("failed to read token from keychain: %w", err)
	}
	return token, nil
}
