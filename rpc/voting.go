package rpc

import (
	cstypes "chainbft_voting/consensus/types"
	"chainbft_voting/types"

	"github.com/pkg/errors"
	tmbytes "github.com/tendermint/tendermint/libs/bytes"
	rpctypes "github.com/tendermint/tendermint/rpc/jsonrpc/types"
)

type ResultStatus struct {
	NodeInfo types.NodeInfo         `json:"node_info"`
	Voting   cstypes.VotingSnapshot `json:"voting"`
}

type ResultRound struct {
	Round *types.RoundDescriptor `json:"round"`
}

type ResultStake struct {
	Address types.Address      `json:"address"`
	Record  *types.StakeRecord `json:"record"`
	Active  bool               `json:"active"`
	Restake bool               `json:"need_restaking"`
}

type ResultRecentProposers struct {
	Proposers []types.Address `json:"proposers"`
}

// ResultBlock 只返回交易的hash和操作的描述
type ResultBlock struct {
	Number        int64              `json:"number"`
	Hash          tmbytes.HexBytes   `json:"hash"`
	LastBlockHash tmbytes.HexBytes   `json:"last_block_hash"`
	Proposer      types.Address      `json:"proposer"`
	TxHashes      []tmbytes.HexBytes `json:"tx_hashes"`
	Operations    []string           `json:"operations"`
}

func Status(ctx *rpctypes.Context) (*ResultStatus, error) {
	return &ResultStatus{
		NodeInfo: env.NodeInfo,
		Voting:   env.Voting.Snapshot(),
	}, nil
}

// Round 当前共享状态中的round
func Round(ctx *rpctypes.Context) (*ResultRound, error) {
	round, err := env.Store.GetRound()
	if err != nil {
		return nil, err
	}
	return &ResultRound{Round: round}, nil
}

func Stake(ctx *rpctypes.Context, address string) (*ResultStake, error) {
	addr := types.Address(address)
	if addr.IsEmpty() {
		addr = env.NodeInfo.Address
	}
	record, err := env.Store.GetStake(addr)
	if err != nil {
		return nil, err
	}
	now := env.Now()
	return &ResultStake{
		Address: addr,
		Record:  record,
		Active:  record.IsActive(now),
		Restake: record.NeedsRestaking(now),
	}, nil
}

func RecentProposers(ctx *rpctypes.Context) (*ResultRecentProposers, error) {
	proposers, err := env.Store.GetRecentProposers()
	if err != nil {
		return nil, err
	}
	return &ResultRecentProposers{Proposers: proposers}, nil
}

// Block number小于0时返回最后一个区块
func Block(ctx *rpctypes.Context, number int64) (*ResultBlock, error) {
	if number < 0 {
		number = env.Blocks.LastBlockNumber()
	}
	block, err := env.Blocks.LoadBlock(number)
	if err != nil {
		return nil, errors.Wrapf(err, "block %d", number)
	}
	result := &ResultBlock{
		Number:        block.Number,
		Hash:          block.Hash(),
		LastBlockHash: block.LastBlockHash,
		Proposer:      block.Proposer,
		TxHashes:      make([]tmbytes.HexBytes, 0, len(block.Txs)),
		Operations:    make([]string, 0, len(block.Txs)),
	}
	for _, tx := range block.Txs {
		result.TxHashes = append(result.TxHashes, tx.Hash)
		result.Operations = append(result.Operations, tx.Operation.String())
	}
	return result, nil
}
