//go:build !js || !wasm

package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/zalando/go-keyring"
)

// KeyringStore keeps the session in the OS keychain.
type KeyringStore struct {
	service string
	account string
}

// NewKeyringStore stores the session under service/account.
func NewKeyringStore(service, account string) *KeyringStore {
	if account == "" {
		account = "session"
	}
	return &KeyringStore{service: service, account: account}
}

// KeyringAvailable probes the keychain with a throwaway entry.
func KeyringAvailable(service string) bool {
	probe := service + "::probe"
	if err := keyring.Set(service, probe, "ok"); err != nil {
		return false
	}
	_ = keyring.Delete(service, probe)
	return true
}

func (k *KeyringStore) Get(ctx context.Context) (*Credential, *Principal, error) {
	data, err := keyring.Get(k.service, k.account)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read keyring: %w", err)
	}

	var s Session
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, nil, fmt.Errorf("invalid credentials in keyring: %w", err)
	}
	return s.Credential, s.Principal, nil
}

func (k *KeyringStore) Set(ctx context.Context, cred *Credential, principal *Principal) error {
	data, err := json.Marshal(Session{Credential: cred, Principal: principal, SavedAt: time.Now().Unix()})
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	if err := keyring.Set(k.service, k.account, string(data)); err != nil {
		return fmt.Errorf("failed to write keyring: %w", err)
	}
	return nil
}

func (k *KeyringStore) Clear(ctx context.Context) error {
	if err := keyring.Delete(k.service, k.account); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete keyring entry: %w", err)
	}
	return nil
}

func (k *KeyringStore) Name() string {
	return fmt.Sprintf("KeyringStore(%s)", k.service)
}
