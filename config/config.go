package config

import (
	"os"
	"path/filepath"
	"time"

	"chainbft_voting/types"

	"github.com/pkg/errors"
)

const (
	// LogFormatPlain is a format for colored text
	LogFormatPlain = "plain"
	// LogFormatJSON is a format for json output
	LogFormatJSON = "json"

	// DefaultLogLevel defines a default log level as INFO.
	DefaultLogLevel = "info"
)

var (
	DefaultVotingDir   = ".chainbft_voting"
	defaultConfigDir   = "config"
	defaultDataDir     = "data"
	defaultConfigName  = "config.toml"
	defaultGenesisName = "genesis.json"

	defaultConfigFilePath  = filepath.Join(defaultConfigDir, defaultConfigName)
	defaultGenesisFilePath = filepath.Join(defaultConfigDir, defaultGenesisName)
)

// Config - 节点的全部配置，对应config.toml
type Config struct {
	BaseConfig `mapstructure:",squash"`

	Voting          *VotingConfig          `mapstructure:"voting"`
	RPC             *RPCConfig             `mapstructure:"rpc"`
	Mempool         *MempoolConfig         `mapstructure:"mempool"`
	Instrumentation *InstrumentationConfig `mapstructure:"instrumentation"`
}

func DefaultConfig() *Config {
	return &Config{
		BaseConfig:      DefaultBaseConfig(),
		Voting:          DefaultVotingConfig(),
		RPC:             DefaultRPCConfig(),
		Mempool:         DefaultMempoolConfig(),
		Instrumentation: DefaultInstrumentationConfig(),
	}
}

// TestConfig 所有的时间都缩短，数据库使用内存
func TestConfig() *Config {
	return &Config{
		BaseConfig:      TestBaseConfig(),
		Voting:          TestVotingConfig(),
		RPC:             TestRPCConfig(),
		Mempool:         DefaultMempoolConfig(),
		Instrumentation: TestInstrumentationConfig(),
	}
}

// SetRoot sets the RootDir for all Config structs
func (cfg *Config) SetRoot(root string) *Config {
	cfg.BaseConfig.RootDir = root
	return cfg
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *Config) ValidateBasic() error {
	if err := cfg.BaseConfig.ValidateBasic(); err != nil {
		return err
	}
	if err := cfg.Voting.ValidateBasic(); err != nil {
		return errors.Wrap(err, "error in [voting] section")
	}
	if err := cfg.RPC.ValidateBasic(); err != nil {
		return errors.Wrap(err, "error in [rpc] section")
	}
	if err := cfg.Mempool.ValidateBasic(); err != nil {
		return errors.Wrap(err, "error in [mempool] section")
	}
	return nil
}

//-----------------------------------------------------------------------------
// BaseConfig

type BaseConfig struct {
	// The root directory for all data.
	// This should be set in viper so it can unmarshal into this struct
	RootDir string `mapstructure:"home"`

	Moniker string `mapstructure:"moniker"`

	// goleveldb | memdb
	DBBackend string `mapstructure:"db_backend"`
	DBPath    string `mapstructure:"db_dir"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	Genesis string `mapstructure:"genesis_file"`
}

func DefaultBaseConfig() BaseConfig {
	return BaseConfig{
		Moniker:   defaultMoniker,
		Genesis:   defaultGenesisFilePath,
		DBBackend: "goleveldb",
		DBPath:    defaultDataDir,
		LogLevel:  DefaultLogLevel,
		LogFormat: LogFormatPlain,
	}
}

func TestBaseConfig() BaseConfig {
	cfg := DefaultBaseConfig()
	cfg.Moniker = "test-node"
	cfg.DBBackend = "memdb"
	return cfg
}

func (cfg BaseConfig) GenesisFile() string {
	return rootify(cfg.Genesis, cfg.RootDir)
}

func (cfg BaseConfig) DBDir() string {
	return rootify(cfg.DBPath, cfg.RootDir)
}

func (cfg BaseConfig) ConfigFile() string {
	return rootify(defaultConfigFilePath, cfg.RootDir)
}

func (cfg BaseConfig) ValidateBasic() error {
	switch cfg.LogFormat {
	case LogFormatPlain, LogFormatJSON:
	default:
		return errors.New("unknown log_format (must be 'plain' or 'json')")
	}
	switch cfg.DBBackend {
	case "goleveldb", "memdb":
	default:
		return errors.Errorf("unsupported db_backend %q", cfg.DBBackend)
	}
	return nil
}

//-----------------------------------------------------------------------------
// VotingConfig

// VotingConfig - 投票引擎的参数
type VotingConfig struct {
	// 本节点在共享状态中的地址
	Address string `mapstructure:"address"`
	ChainID string `mapstructure:"chain_id"`

	// 网络中的第一个节点，负责写入第一个round
	Bootstrap bool `mapstructure:"bootstrap"`

	// 启动时以及质押过期后自动质押的数量，为0时不自动质押
	InitialStake uint64        `mapstructure:"initial_stake"`
	StakeLockup  time.Duration `mapstructure:"stake_lockup"`

	// 状态机推进的间隔
	ProposeInterval time.Duration `mapstructure:"propose_interval"`
	// 超过RoundTimeout没有提交时，proposer以同一高度重新开始一轮
	RoundTimeout time.Duration `mapstructure:"round_timeout"`
}

func DefaultVotingConfig() *VotingConfig {
	return &VotingConfig{
		ChainID:         "voting-chain",
		Bootstrap:       false,
		InitialStake:    100,
		StakeLockup:     24 * time.Hour,
		ProposeInterval: time.Second,
		RoundTimeout:    10 * time.Second,
	}
}

func TestVotingConfig() *VotingConfig {
	cfg := DefaultVotingConfig()
	cfg.Address = "test-node"
	cfg.ChainID = "test-chain"
	cfg.Bootstrap = true
	cfg.StakeLockup = time.Hour
	cfg.ProposeInterval = 10 * time.Millisecond
	cfg.RoundTimeout = 200 * time.Millisecond
	return cfg
}

func (cfg *VotingConfig) NodeAddress() types.Address {
	return types.Address(cfg.Address)
}

func (cfg *VotingConfig) ValidateBasic() error {
	if cfg.Address == "" {
		return errors.New("address can't be empty")
	}
	if cfg.ChainID == "" {
		return errors.New("chain_id can't be empty")
	}
	if cfg.StakeLockup <= 0 {
		return errors.New("stake_lockup must be positive")
	}
	if cfg.ProposeInterval <= 0 {
		return errors.New("propose_interval must be positive")
	}
	if cfg.RoundTimeout < cfg.ProposeInterval {
		return errors.New("round_timeout can't be less than propose_interval")
	}
	return nil
}

//-----------------------------------------------------------------------------
// RPCConfig

type RPCConfig struct {
	// 为空时不启动rpc
	ListenAddress      string `mapstructure:"laddr"`
	MaxOpenConnections int    `mapstructure:"max_open_connections"`
}

func DefaultRPCConfig() *RPCConfig {
	return &RPCConfig{
		ListenAddress:      "tcp://127.0.0.1:26657",
		MaxOpenConnections: 900,
	}
}

func TestRPCConfig() *RPCConfig {
	cfg := DefaultRPCConfig()
	cfg.ListenAddress = ""
	return cfg
}

func (cfg *RPCConfig) ValidateBasic() error {
	if cfg.MaxOpenConnections < 0 {
		return errors.New("max_open_connections can't be negative")
	}
	return nil
}

//-----------------------------------------------------------------------------
// MempoolConfig

type MempoolConfig struct {
	// 单个区块最多打包的交易数，负数表示全部
	MaxBlockTxs int `mapstructure:"max_block_txs"`
	// mempool中最多缓存的交易数
	Size int `mapstructure:"size"`
}

func DefaultMempoolConfig() *MempoolConfig {
	return &MempoolConfig{
		MaxBlockTxs: 1000,
		Size:        5000,
	}
}

func (cfg *MempoolConfig) ValidateBasic() error {
	if cfg.Size <= 0 {
		return errors.New("size must be positive")
	}
	return nil
}

//-----------------------------------------------------------------------------
// InstrumentationConfig

type InstrumentationConfig struct {
	// 为true时在PrometheusListenAddr上提供/metrics
	Prometheus           bool   `mapstructure:"prometheus"`
	PrometheusListenAddr string `mapstructure:"prometheus_listen_addr"`
	Namespace            string `mapstructure:"namespace"`
}

func DefaultInstrumentationConfig() *InstrumentationConfig {
	return &InstrumentationConfig{
		Prometheus:           false,
		PrometheusListenAddr: ":26660",
		Namespace:            "chainbft",
	}
}

func TestInstrumentationConfig() *InstrumentationConfig {
	return DefaultInstrumentationConfig()
}

//-----------------------------------------------------------------------------
// Utils

// helper function to make config creation independent of root dir
func rootify(path, root string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

var defaultMoniker = getDefaultMoniker()

// getDefaultMoniker returns a default moniker, which is the host name. If runtime
// fails to get the host name, "anonymous" will be returned.
func getDefaultMoniker() string {
	moniker, err := os.Hostname()
	if err != nil {
		moniker = "anonymous"
	}
	return moniker
}
