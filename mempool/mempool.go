package mempool

import (
	"chainbft_voting/types"
)

const (
	// UnknownPeerID is the peer ID to use when running CheckTx when there is
	// no peer (e.g. RPC, local voting engine)
	UnknownPeerID uint16 = 0
)

// Mempool - 等待打包进区块的交易(投票、质押、round)
// voting engine生成的交易先进入mempool，proposer出块时按FIFO打包
type Mempool interface {
	// CheckTx 检验一个新交易是否合法，来决定能否将其加入到mempool中
	// hash已经存在的交易返回ErrTxInMap
	CheckTx(*types.Tx, TxInfo) error

	// ReapMaxTxs从mempool中取出caller指定数量的交易
	// 如果max是负数则表示取出mempool所有的交易
	ReapMaxTxs(max int) types.Txs

	// Lock locks the mempool，更新mempool前必须lock mempool
	Lock()

	// Unlock the Mempool
	Unlock()

	// Update committed交易从mempool中删去
	// NOTE: 该函数只能在block被提交后才能调用
	// NOTE: caller负责Lock/Unlock
	Update(number int64, txs types.Txs) error

	// Flush将mempool中的所有交易清空
	Flush()

	// TxsAvailable mempool从空变为非空时通知一次
	TxsAvailable() <-chan struct{}

	// Size返回mempool中的交易条数
	Size() int

	// TxsBytes返回mempool所有交易的byte大小
	TxsBytes() int64
}

//--------------------------------------------------------------------------------
type PreCheckFunc func(*types.Tx) error

// TxInfo are parameters that get passed when attempting to add a tx to the
// mempool.
type TxInfo struct {
	// SenderID is the internal peer ID used in the mempool to identify the
	// sender.
	SenderID uint16
}

// PreCheckOperation 拒绝ValidateBasic不通过的Operation
func PreCheckOperation() PreCheckFunc {
	return func(tx *types.Tx) error {
		if len(tx.Hash) == 0 {
			return ErrTxNoHash
		}
		return tx.Operation.ValidateBasic()
	}
}
