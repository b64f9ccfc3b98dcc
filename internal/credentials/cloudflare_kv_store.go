//go:build js && wasm

package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/syumai/workers/cloudflare/kv"

	"github.com/dvcrn/bank-api-client/internal/logger"
)

const kvSessionKey = "bank_api_session"

// CloudflareKVStore keeps the session in a Workers KV namespace.
type CloudflareKVStore struct {
	kvStore *kv.Namespace
}

// NewCloudflareKVStore binds to the namespace configured in wrangler.toml.
func NewCloudflareKVStore(binding string) (*CloudflareKVStore, error) {
	ns, err := kv.NewNamespace(binding)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize KV namespace: %w", err)
	}
	return &CloudflareKVStore{kvStore: ns}, nil
}

func (c *CloudflareKVStore) Get(ctx context.Context) (*Credential, *Principal, error) {
	raw, err := c.kvStore.GetString(kvSessionKey, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get session from KV: %w", err)
	}
	if raw == "" {
		return nil, nil, nil
	}

	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, nil, fmt.Errorf("failed to parse session JSON: %w", err)
	}
	return s.Credential, s.Principal, nil
}

func (c *CloudflareKVStore) Set(ctx context.Context, cred *Credential, principal *Principal) error {
	data, err := json.Marshal(Session{Credential: cred, Principal: principal, SavedAt: time.Now().Unix()})
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := c.kvStore.PutString(kvSessionKey, string(data), nil); err != nil {
		return fmt.Errorf("failed to store session in KV: %w", err)
	}
	logger.Get().Debug().Msg("Saved session to Cloudflare KV")
	return nil
}

func (c *CloudflareKVStore) Clear(ctx context.Context) error {
	if err := c.kvStore.Delete(kvSessionKey); err != nil {
		return fmt.Errorf("failed to delete session from KV: %w", err)
	}
	return nil
}

func (c *CloudflareKVStore) Name() string {
	return "CloudflareKVStore"
}
