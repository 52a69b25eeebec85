package commands

import (
	"errors"
	"fmt"

	nm "chainbft_voting/node"
	"chainbft_voting/state"
	"chainbft_voting/store"
	"chainbft_voting/types"

	"github.com/spf13/cobra"
	tmtime "github.com/tendermint/tendermint/types/time"
)

var (
	stakeAmount  uint64
	stakeAddress string
)

func init() {
	StakeCmd.Flags().Uint64Var(&stakeAmount, "amount", 0, "质押数量")
	StakeCmd.Flags().StringVar(&stakeAddress, "address", "", "质押地址，为空时使用配置中的voting.address")
	StakeCmd.MarkFlagRequired("amount") //nolint:errcheck
}

// StakeCmd 离线写入一笔质押，锁定时间使用voting.stake_lockup
var StakeCmd = &cobra.Command{
	Use:   "stake",
	Short: "Deposit stake into the local state offline",
	RunE:  stake,
}

func stake(cmd *cobra.Command, args []string) error {
	if stakeAmount == 0 {
		return errors.New("amount must > 0")
	}
	addr := types.Address(stakeAddress)
	if addr.IsEmpty() {
		addr = config.Voting.NodeAddress()
	}
	if addr.IsEmpty() {
		return errors.New("no address to stake")
	}

	db, err := store.NewDB("state", config.DBBackend, config.DBDir())
	if err != nil {
		return err
	}
	defer db.Close()

	s := state.NewDBStore(db, state.WithStakeLockup(config.Voting.StakeLockup))
	s.SetLogger(logger)

	id := nm.NewPushIDGenerator(nil).Generate()
	if err := s.AddDeposit(addr, id, stakeAmount, tmtime.Now().Add(config.Voting.StakeLockup)); err != nil {
		return err
	}
	record, err := s.GetStake(addr)
	if err != nil {
		return err
	}
	fmt.Println(record)
	return nil
}
