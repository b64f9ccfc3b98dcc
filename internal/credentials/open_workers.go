//go:build js && wasm

package credentials

import (
	"fmt"

	"github.com/dvcrn/bank-api-client/internal/config"
)

// Open builds the store selected by cfg.Store. Workers builds only have KV
// and memory.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return NewMemoryStore(), nil
	case config.StoreKV:
		return NewCloudflareKVStore(cfg.KVBinding)
	default:
		return nil, fmt.Errorf("credential store %q is not available in this build", cfg.Store)
	}
}
