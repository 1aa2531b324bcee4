package initializer

import (
	"path/filepath"
	"testing"

	"github.com/lagrangedao/go-compute-to-data/conf"
	"github.com/lagrangedao/go-compute-to-data/internal/credential"
	"github.com/lagrangedao/go-compute-to-data/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCacheStore(t *testing.T) {
	store, err := NewCacheStore(conf.Cache{Backend: conf.CacheMemory})
	require.NoError(t, err)
	assert.IsType(t, &credential.MemoryStore{}, store)

	store, err = NewCacheStore(conf.Cache{Backend: conf.CacheLevelDb, LevelDbDir: filepath.Join(t.TempDir(), "cache")})
	require.NoError(t, err)
	assert.IsType(t, &credential.LevelDBStore{}, store)
	require.NoError(t, store.Close())

	_, err = NewCacheStore(conf.Cache{Backend: conf.CacheRedis})
	assert.Error(t, err)

	_, err = NewCacheStore(conf.Cache{Backend: "etcd"})
	assert.Error(t, err)
}

func TestNewGateFollowsConfig(t *testing.T) {
	cfg := &conf.ComputeClient{}
	cfg.Policy.SsiEnabled = true
	cfg.Policy.SessionTtlMinutes = 15
	gate := NewGate(cfg, provider.NewClient("http://localhost:8030", 0, 0), credential.NewMemoryStore(), Options{})
	assert.True(t, gate.Enabled())
	assert.NotNil(t, gate.Cache())

	cfg.Policy.SsiEnabled = false
	assert.False(t, NewGate(cfg, provider.NewClient("http://localhost:8030", 0, 0), credential.NewMemoryStore(), Options{}).Enabled())
}
