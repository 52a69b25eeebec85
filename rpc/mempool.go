package rpc

import (
	"chainbft_voting/types"

	"github.com/pkg/errors"
	tmbytes "github.com/tendermint/tendermint/libs/bytes"
	rpctypes "github.com/tendermint/tendermint/rpc/jsonrpc/types"
)

type ResultBroadcastVote struct {
	Hash tmbytes.HexBytes `json:"hash"`
}

type ResultUnconfirmedTxs struct {
	Count      int   `json:"n_txs"`
	TotalBytes int64 `json:"total_bytes"`
}

// BroadcastVote tx是json编码的types.Tx，交给事件循环登记并写入共享状态
func BroadcastVote(ctx *rpctypes.Context, tx string) (*ResultBroadcastVote, error) {
	vote := &types.Tx{}
	if err := json.Unmarshal([]byte(tx), vote); err != nil {
		return nil, errors.Wrap(err, "decode tx")
	}
	if len(vote.Hash) == 0 {
		return nil, errors.New("tx has no hash")
	}
	if err := vote.Operation.ValidateBasic(); err != nil {
		return nil, err
	}
	env.Voting.ReceiveVote(vote)
	return &ResultBroadcastVote{Hash: vote.Hash}, nil
}

func NumUnconfirmedTxs(ctx *rpctypes.Context) (*ResultUnconfirmedTxs, error) {
	return &ResultUnconfirmedTxs{
		Count:      env.Mempool.Size(),
		TotalBytes: env.Mempool.TxsBytes(),
	}, nil
}
