package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultConfig()
	assert.NotNil(cfg.Voting)
	assert.NotNil(cfg.RPC)
	assert.NotNil(cfg.Mempool)

	// check the root dir stuff...
	cfg.SetRoot("/foo")
	cfg.Genesis = "bar"
	cfg.DBPath = "/opt/data"

	assert.Equal("/foo/bar", cfg.GenesisFile())
	assert.Equal("/opt/data", cfg.DBDir())
	assert.Equal("/foo/config/config.toml", cfg.ConfigFile())
}

func TestConfigValidateBasic(t *testing.T) {
	cfg := TestConfig()
	assert.NoError(t, cfg.ValidateBasic())

	cases := []struct {
		name   string
		modify func(*Config)
	}{
		{"empty address", func(c *Config) { c.Voting.Address = "" }},
		{"empty chain id", func(c *Config) { c.Voting.ChainID = "" }},
		{"zero lockup", func(c *Config) { c.Voting.StakeLockup = 0 }},
		{"zero interval", func(c *Config) { c.Voting.ProposeInterval = 0 }},
		{"timeout less than interval", func(c *Config) { c.Voting.RoundTimeout = time.Millisecond }},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }},
		{"bad db", func(c *Config) { c.DBBackend = "rocksdb" }},
		{"negative connections", func(c *Config) { c.RPC.MaxOpenConnections = -1 }},
		{"zero mempool", func(c *Config) { c.Mempool.Size = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := TestConfig()
			tc.modify(cfg)
			assert.Error(t, cfg.ValidateBasic())
		})
	}
}

func TestWriteConfigFileAndParse(t *testing.T) {
	root, err := ioutil.TempDir("", "voting-config")
	require.NoError(t, err)
	defer os.RemoveAll(root)

	EnsureRoot(root)
	cfg := TestConfig().SetRoot(root)
	cfg.Voting.Address = "alice"
	cfg.Voting.InitialStake = 42
	WriteConfigFile(cfg.ConfigFile(), cfg)

	v := viper.New()
	v.SetConfigFile(filepath.Join(root, "config", "config.toml"))
	require.NoError(t, v.ReadInConfig())

	parsed := DefaultConfig()
	require.NoError(t, v.Unmarshal(parsed))
	assert.Equal(t, "alice", parsed.Voting.Address)
	assert.EqualValues(t, 42, parsed.Voting.InitialStake)
	assert.True(t, parsed.Voting.Bootstrap)
	assert.Equal(t, 10*time.Millisecond, parsed.Voting.ProposeInterval)
	assert.Equal(t, time.Hour, parsed.Voting.StakeLockup)
	assert.Equal(t, "memdb", parsed.DBBackend)
	assert.Equal(t, "", parsed.RPC.ListenAddress)
}
