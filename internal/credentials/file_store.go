//go:build !js || !wasm

package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/dvcrn/bank-api-client/internal/env"
	"github.com/dvcrn/bank-api-client/internal/logger"
)

// lockTimeout bounds how long the file store waits for another process
// holding the session file.
const lockTimeout = 2 * time.Second

// FileStore persists the session as JSON on disk, guarded by an flock so
// concurrent CLI invocations never interleave writes.
type FileStore struct {
	filePath string
	// seeded stores serve BANK_CREDENTIALS from memory and never touch disk.
	seeded *MemoryStore
}

// NewFileStore creates a store at path. An empty path falls back to
// BANK_CREDENTIALS_PATH, then ~/.bankctl/credentials.json. If BANK_CREDENTIALS
// holds a JSON session, the store starts from it and keeps later changes in
// memory only.
func NewFileStore(path string) (*FileStore, error) {
	if raw, ok := env.Get("BANK_CREDENTIALS"); ok {
		var seed Session
		if err := json.Unmarshal([]byte(raw), &seed); err != nil {
			return nil, fmt.Errorf("failed to parse BANK_CREDENTIALS: %w", err)
		}
		mem := NewMemoryStore()
		mem.cred, mem.principal = seed.Credential, seed.Principal
		return &FileStore{seeded: mem}, nil
	}

	if path == "" {
		path = env.GetOrDefault("BANK_CREDENTIALS_PATH", "")
	}
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, ".bankctl", "credentials.json")
	}
	return &FileStore{filePath: path}, nil
}

// Path returns the backing file, empty for a seeded store.
func (f *FileStore) Path() string {
	return f.filePath
}

func (f *FileStore) Get(ctx context.Context) (*Credential, *Principal, error) {
	if f.seeded != nil {
		return f.seeded.Get(ctx)
	}

	unlock, err := f.lock(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	data, err := os.ReadFile(f.filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, nil, fmt.Errorf("failed to parse credentials from file: %w", err)
	}
	return s.Credential, s.Principal, nil
}

func (f *FileStore) Set(ctx context.Context, cred *Credential, principal *Principal) error {
	if f.seeded != nil {
		logger.Get().Warn().Msg("Credentials loaded from BANK_CREDENTIALS; updated session is kept in memory only")
		return f.seeded.Set(ctx, cred, principal)
	}

	unlock, err := f.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	data, err := json.MarshalIndent(Session{
		Credential: cred,
		Principal:  principal,
		SavedAt:    time.Now().Unix(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	tmp := f.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write credentials to %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.filePath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", f.filePath, err)
	}

	logger.Get().Debug().Str("path", f.filePath).Msg("Saved credentials")
	return nil
}

func (f *FileStore) Clear(ctx context.Context) error {
	if f.seeded != nil {
		return f.seeded.Clear(ctx)
	}

	unlock, err := f.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if err := os.Remove(f.filePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove credentials file: %w", err)
	}
	return nil
}

func (f *FileStore) Name() string {
	if f.seeded != nil {
		return "FileStore(env)"
	}
	return fmt.Sprintf("FileStore(%s)", f.filePath)
}

// lock takes the exclusive sidecar lock, creating the directory if needed.
func (f *FileStore) lock(ctx context.Context) (func(), error) {
	dir := filepath.Dir(f.filePath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	ctx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	fl := flock.New(f.filePath + ".lock")
	locked, err := fl.TryLockContext(ctx, 10*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("failed to lock credentials file: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("timed out waiting for credentials lock %s", fl.Path())
	}
	return func() { _ = fl.Unlock() }, nil
}
