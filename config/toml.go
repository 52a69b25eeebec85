package config

import (
	"bytes"
	"path/filepath"
	"text/template"

	tmos "github.com/tendermint/tendermint/libs/os"
)

// DefaultDirPerm is the default permissions used when creating directories.
const DefaultDirPerm = 0700

var configTemplate *template.Template

func init() {
	var err error
	tmpl := template.New("configFileTemplate")
	if configTemplate, err = tmpl.Parse(defaultConfigTemplate); err != nil {
		panic(err)
	}
}

/****** these are for production settings ***********/

// EnsureRoot creates the root, config, and data directories if they don't exist,
// and panics if it fails.
func EnsureRoot(rootDir string) {
	if err := tmos.EnsureDir(rootDir, DefaultDirPerm); err != nil {
		panic(err.Error())
	}
	if err := tmos.EnsureDir(filepath.Join(rootDir, defaultConfigDir), DefaultDirPerm); err != nil {
		panic(err.Error())
	}
	if err := tmos.EnsureDir(filepath.Join(rootDir, defaultDataDir), DefaultDirPerm); err != nil {
		panic(err.Error())
	}
}

// WriteConfigFile renders config using the template and writes it to configFilePath.
func WriteConfigFile(configFilePath string, config *Config) {
	var buffer bytes.Buffer

	if err := configTemplate.Execute(&buffer, config); err != nil {
		panic(err)
	}

	tmos.MustWriteFile(configFilePath, buffer.Bytes(), 0644)
}

// Note: any changes to the comments/variables/mapstructure
// must be reflected in the appropriate struct in config/config.go
const defaultConfigTemplate = `# This is a TOML config file.
# For more information, see https://github.com/toml-lang/toml

#######################################################################
###                   Main Base Config Options                      ###
#######################################################################

moniker = "{{ .BaseConfig.Moniker }}"

# goleveldb | memdb
db_backend = "{{ .BaseConfig.DBBackend }}"
db_dir = "{{ js .BaseConfig.DBPath }}"

# Output level for logging, including package level options
log_level = "{{ .BaseConfig.LogLevel }}"

# Output format: 'plain' (colored text) or 'json'
log_format = "{{ .BaseConfig.LogFormat }}"

genesis_file = "{{ js .BaseConfig.Genesis }}"

#######################################################################
###                     Voting Config Options                       ###
#######################################################################
[voting]

# 本节点在共享状态中的地址
address = "{{ .Voting.Address }}"
chain_id = "{{ .Voting.ChainID }}"

# 网络中的第一个节点负责写入第一个round
bootstrap = {{ .Voting.Bootstrap }}

initial_stake = {{ .Voting.InitialStake }}
stake_lockup = "{{ .Voting.StakeLockup }}"

propose_interval = "{{ .Voting.ProposeInterval }}"
round_timeout = "{{ .Voting.RoundTimeout }}"

#######################################################################
###                       RPC Config Options                        ###
#######################################################################
[rpc]

# TCP or UNIX socket address for the RPC server to listen on, empty to disable
laddr = "{{ .RPC.ListenAddress }}"

max_open_connections = {{ .RPC.MaxOpenConnections }}

#######################################################################
###                     Mempool Config Options                      ###
#######################################################################
[mempool]

max_block_txs = {{ .Mempool.MaxBlockTxs }}
size = {{ .Mempool.Size }}

#######################################################################
###                 Instrumentation Config Options                  ###
#######################################################################
[instrumentation]

prometheus = {{ .Instrumentation.Prometheus }}
prometheus_listen_addr = "{{ .Instrumentation.PrometheusListenAddr }}"
namespace = "{{ .Instrumentation.Namespace }}"
`
