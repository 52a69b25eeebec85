package commands

import (
	cfg "chainbft_voting/config"
	"chainbft_voting/types"

	"github.com/spf13/cobra"
	tmos "github.com/tendermint/tendermint/libs/os"
	tmtime "github.com/tendermint/tendermint/types/time"
)

// InitFilesCmd 生成config.toml和genesis.json
var InitFilesCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a voting node",
	RunE:  initFiles,
}

func init() {
	InitFilesCmd.Flags().String("voting.address", config.Voting.Address, "本节点在共享状态中的地址")
	InitFilesCmd.Flags().String("voting.chain_id", config.Voting.ChainID, "链名")
	InitFilesCmd.Flags().Bool("voting.bootstrap", config.Voting.Bootstrap, "是否是网络中的第一个节点")
}

func initFiles(cmd *cobra.Command, args []string) error {
	return initFilesWithConfig(config)
}

func initFilesWithConfig(config *cfg.Config) error {
	configFile := config.ConfigFile()
	if tmos.FileExists(configFile) {
		logger.Info("Found config file", "path", configFile)
	} else {
		if config.Voting.Address == "" {
			config.Voting.Address = config.Moniker
		}
		cfg.WriteConfigFile(configFile, config)
		logger.Info("Generated config file", "path", configFile)
	}

	// genesis file
	genFile := config.GenesisFile()
	if tmos.FileExists(genFile) {
		logger.Info("Found genesis file", "path", genFile)
		return nil
	}
	genDoc := types.GenesisDoc{
		ChainID:     config.Voting.ChainID,
		GenesisTime: tmtime.Now(),
	}
	if err := genDoc.ValidateAndComplete(); err != nil {
		return err
	}
	if err := genDoc.SaveAs(genFile); err != nil {
		return err
	}
	logger.Info("Generated genesis file", "path", genFile, "chain_id", genDoc.ChainID)
	return nil
}
