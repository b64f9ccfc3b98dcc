//go:build !js || !wasm

package credentials

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func sampleSession() (*Credential, *Principal) {
	return &Credential{AccessToken: "access-1", RefreshToken: "refresh-1", TokenType: "Bearer", ExpiresAt: 1700000000},
		&Principal{ID: "7", Username: "ada", Role: "ROLE_ADMIN", DisplayName: "Ada"}
}

// exerciseStore runs the get/set/clear contract against any backend.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	cred, principal, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, cred, "fresh store is empty")
	assert.Nil(t, principal)

	wantCred, wantPrincipal := sampleSession()
	require.NoError(t, store.Set(ctx, wantCred, wantPrincipal))

	cred, principal, err = store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, wantCred, cred)
	assert.Equal(t, wantPrincipal, principal)

	replacement := &Credential{AccessToken: "access-2", RefreshToken: "refresh-2"}
	require.NoError(t, store.Set(ctx, replacement, nil))
	cred, principal, err = store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-2", cred.AccessToken)
	assert.Nil(t, principal, "principal is replaced together with the credential")

	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx), "clearing twice is fine")
	cred, principal, err = store.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, cred)
	assert.Nil(t, principal)

	assert.NotEmpty(t, store.Name())
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	cred, principal := sampleSession()
	require.NoError(t, store.Set(context.Background(), cred, principal))

	cred.AccessToken = "mutated"
	got, _, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-1", got.AccessToken)
}

func TestFileStore(t *testing.T) {
	t.Setenv("BANK_CREDENTIALS", "")
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)
	assert.Equal(t, path, store.Path())

	exerciseStore(t, store)
}

func TestFileStorePermissions(t *testing.T) {
	t.Setenv("BANK_CREDENTIALS", "")
	path := filepath.Join(t.TempDir(), "credentials.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)

	cred, principal := sampleSession()
	require.NoError(t, store.Set(context.Background(), cred, principal))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStoreSeededFromEnv(t *testing.T) {
	t.Setenv("BANK_CREDENTIALS", `{"credential":{"access_token":"env-token"},"principal":{"id":3,"username":"ops"}}`)
	store, err := NewFileStore("")
	require.NoError(t, err)
	assert.Equal(t, "FileStore(env)", store.Name())

	cred, principal, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "env-token", cred.AccessToken)
	assert.Equal(t, "3", principal.ID.String())

	cred.AccessToken = "mutated"
	again, _, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "env-token", again.AccessToken, "callers get copies")

	require.NoError(t, store.Set(context.Background(), &Credential{AccessToken: "login-token"}, principal))
	cred, _, err = store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "login-token", cred.AccessToken)

	require.NoError(t, store.Clear(context.Background()))
	cred, principal, err = store.Get(context.Background())
	require.NoError(t, err)
	assert.Nil(t, cred)
	assert.Nil(t, principal)
	assert.Empty(t, store.Path(), "seeded store never writes to disk")
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()
	assert.True(t, KeyringAvailable("bankctl-test"))
	exerciseStore(t, NewKeyringStore("bankctl-test", ""))
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	exerciseStore(t, NewRedisStore(client, "bankctl:test", 0))
}

func TestRedisStoreTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStore(client, "bankctl:ttl", time.Minute)
	cred, principal := sampleSession()
	require.NoError(t, store.Set(context.Background(), cred, principal))
	assert.Equal(t, time.Minute, mr.TTL("bankctl:ttl"))

	mr.FastForward(2 * time.Minute)
	got, _, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}
