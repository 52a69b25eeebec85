package rpc

import (
	"time"

	cstypes "chainbft_voting/consensus/types"
	"chainbft_voting/libs/metric"
	"chainbft_voting/mempool"
	"chainbft_voting/state"
	"chainbft_voting/store"
	"chainbft_voting/types"

	jsoniter "github.com/json-iterator/go"
)

var (
	env  *Environment
	json = jsoniter.ConfigCompatibleWithStandardLibrary
)

func SetEnvironment(e *Environment) {
	env = e
}

// Voting - 节点事件循环对rpc暴露的部分
type Voting interface {
	Snapshot() cstypes.VotingSnapshot
	ReceiveVote(vote *types.Tx)
}

// Environment contains objects and interfaces used by the RPC. It is expected
// to be setup once during startup.
type Environment struct {
	NodeInfo types.NodeInfo
	Voting   Voting
	Store    state.Store
	Blocks   *store.BlockStore
	Mempool  mempool.Mempool

	MetricSet *metric.MetricSet
	Now       func() time.Time
}
