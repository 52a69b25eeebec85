package commands

import (
	"fmt"

	nm "chainbft_voting/node"

	"github.com/spf13/cobra"
	tmos "github.com/tendermint/tendermint/libs/os"
)

// AddNodeFlags exposes some common configuration options on the command-line
// These are exposed for convenience of commands embedding a voting node
func AddNodeFlags(cmd *cobra.Command) {
	// bind flags
	cmd.Flags().String("moniker", config.Moniker, "node name")
	cmd.Flags().String("db_backend", config.DBBackend, "database backend: goleveldb | memdb")
	cmd.Flags().String("db_dir", config.DBPath, "database directory")

	// voting flags
	cmd.Flags().String("voting.address", config.Voting.Address, "本节点在共享状态中的地址")
	cmd.Flags().String("voting.chain_id", config.Voting.ChainID, "链名")
	cmd.Flags().Bool("voting.bootstrap", config.Voting.Bootstrap, "写入第一个round")
	cmd.Flags().Uint64("voting.initial_stake", config.Voting.InitialStake, "启动和质押过期时自动质押的数量")
	cmd.Flags().Duration("voting.propose_interval", config.Voting.ProposeInterval, "状态机推进的间隔")

	// rpc flags
	cmd.Flags().String("rpc.laddr", config.RPC.ListenAddress, "RPC listen address. Port required")

	cmd.Flags().Bool("instrumentation.prometheus", config.Instrumentation.Prometheus, "expose prometheus metrics")
}

// NewRunNodeCmd returns the command that allows the CLI to start a node.
// It can be used with a custom node provider
func NewRunNodeCmd(nodeProvider nm.Provider) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "start",
		Aliases: []string{"node", "run"},
		Short:   "Run the voting node",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := nodeProvider(config, logger)
			if err != nil {
				return fmt.Errorf("failed to create node: %w", err)
			}

			if err := n.Start(); err != nil {
				return fmt.Errorf("failed to start node: %w", err)
			}

			logger.Info("Started node", "nodeInfo", n.NodeInfo())

			// Stop upon receiving SIGTERM or CTRL-C.
			tmos.TrapSignal(logger, func() {
				if n.IsRunning() {
					if err := n.Stop(); err != nil {
						logger.Error("unable to stop the node", "error", err)
					}
				}
			})

			// 选举失败时节点会自己停止
			<-n.Quit()
			return n.Err()
		},
	}

	AddNodeFlags(cmd)
	return cmd
}
