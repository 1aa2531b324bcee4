package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`
[Provider]
Url = "https://provider.example.com"

[Market]
ChainId = 11155111
PaymentToken = "0x1B083D8584dd3e6Ff37d04a6e7e82b5F622f3985"
`), 0o644))

	require.NoError(t, InitConfig(dir))
	c := GetConfig()
	assert.Equal(t, 8086, c.API.Port)
	assert.Equal(t, 30*time.Second, c.Provider.Timeout())
	assert.Equal(t, 15*time.Minute, c.Policy.SessionTTL())
	assert.Equal(t, CacheLevelDb, c.Cache.Backend)
	assert.Equal(t, filepath.Join(dir, "cache"), c.Cache.LevelDbDir)
	assert.Equal(t, filepath.Join(dir, "assets"), c.Assets.Dir)
	assert.Equal(t, DefaultChainName, c.Wallet.ChainName)
	assert.Equal(t, 10, c.Escrow.AllowancePollAttempts)
}

func TestInitConfigMissingFields(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`
[Provider]
TimeoutSeconds = 10
`), 0o644))

	err := InitConfig(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Provider.Url")
	assert.Contains(t, err.Error(), "Market.ChainId")
}
