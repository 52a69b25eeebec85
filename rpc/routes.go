package rpc

import rpc "github.com/tendermint/tendermint/rpc/jsonrpc/server"

var Routes = map[string]*rpc.RPCFunc{
	// info API
	"status": rpc.NewRPCFunc(Status, ""),
	"block":  rpc.NewRPCFunc(Block, "number"),

	// voting API
	"round":            rpc.NewRPCFunc(Round, ""),
	"stake":            rpc.NewRPCFunc(Stake, "address"),
	"recent_proposers": rpc.NewRPCFunc(RecentProposers, ""),

	// tx API
	"broadcast_vote":      rpc.NewRPCFunc(BroadcastVote, "tx"),
	"num_unconfirmed_txs": rpc.NewRPCFunc(NumUnconfirmedTxs, ""),

	"metrics": rpc.NewRPCFunc(JSONMetrics, "label"),
}
