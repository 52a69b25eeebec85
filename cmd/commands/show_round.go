package commands

import (
	"fmt"

	"chainbft_voting/state"
	"chainbft_voting/store"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

// ShowRoundCmd 打印本地共享状态中的round，节点运行时无法打开数据库
var ShowRoundCmd = &cobra.Command{
	Use:     "show-round",
	Aliases: []string{"show_round"},
	Short:   "Show the current voting round stored in the local state",
	RunE:    showRound,
}

func showRound(cmd *cobra.Command, args []string) error {
	db, err := store.NewDB("state", config.DBBackend, config.DBDir())
	if err != nil {
		return err
	}
	defer db.Close()

	round, err := state.NewDBStore(db).GetRound()
	if err != nil {
		return err
	}
	if round == nil {
		fmt.Println("no voting round")
		return nil
	}
	bz, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(round, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(bz))
	return nil
}
