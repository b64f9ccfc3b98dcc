//go:build !js || !wasm

package credentials

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/dvcrn/bank-api-client/internal/config"
	"github.com/dvcrn/bank-api-client/internal/logger"
)

// Open builds the store selected by cfg.Store.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return NewMemoryStore(), nil
	case config.StoreFile:
		return NewFileStore(cfg.CredentialsPath)
	case config.StoreKeyring:
		if !KeyringAvailable(cfg.KeyringService) {
			logger.Get().Warn().Msg("System keyring unavailable, falling back to file store")
			return NewFileStore(cfg.CredentialsPath)
		}
		return NewKeyringStore(cfg.KeyringService, "session"), nil
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return NewRedisStore(client, cfg.RedisKey, cfg.RedisTTL), nil
	default:
		return nil, fmt.Errorf("credential store %q is not available in this build", cfg.Store)
	}
}
