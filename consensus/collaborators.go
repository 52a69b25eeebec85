package consensus

import (
	"chainbft_voting/types"
)

// Chain - 本地链的只读视图，由区块存储提供
type Chain interface {
	// LastBlockNumber 最后一个提交区块的高度
	LastBlockNumber() int64
	LastBlock() *types.Block
	// Length 链上区块的个数，包含genesis
	Length() int
	// BlockAt 第i个区块，不存在时返回nil
	BlockAt(i int) *types.Block
}

// TxBuilder - 交易层，负责把Operation包装成交易
// voting engine只构造交易，不签名也不广播
type TxBuilder interface {
	// CreateTransaction nonced为false时生成不带nonce的交易(如startNewRound)
	CreateTransaction(op types.Operation, nonced bool) (*types.Tx, error)
}

// IDGenerator - 生成质押记录的唯一id
type IDGenerator interface {
	Generate() string
}
