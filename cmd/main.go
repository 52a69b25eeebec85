package main

import (
	"os"
	"path/filepath"

	cmd "chainbft_voting/cmd/commands"
	cfg "chainbft_voting/config"
	nm "chainbft_voting/node"

	"github.com/joho/godotenv"
	"github.com/tendermint/tendermint/libs/cli"
)

func main() {
	// .env中的VOTE_*变量和真实的环境变量一样生效，不覆盖已经存在的变量
	_ = godotenv.Load()

	rootCmd := cmd.RootCmd
	rootCmd.AddCommand(
		cmd.InitFilesCmd,
		cmd.ShowRoundCmd,
		cmd.StakeCmd,
		cmd.VersionCmd,
	)

	// NOTE:
	// Users wishing to:
	//	* Provide their own DB implementation
	//	* Connect the node to a real network layer
	// can copy this file and use something other than the
	// DefaultNewNode function
	nodeFunc := nm.DefaultNewNode

	// Create & start node
	rootCmd.AddCommand(cmd.NewRunNodeCmd(nodeFunc))

	cmd := cli.PrepareBaseCmd(rootCmd, "VOTE", os.ExpandEnv(filepath.Join("$HOME", cfg.DefaultVotingDir)))
	if err := cmd.Execute(); err != nil {
		panic(err)
	}
}
