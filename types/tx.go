package types

import (
	"fmt"

	"github.com/tendermint/tendermint/crypto/merkle"
	tmbytes "github.com/tendermint/tendermint/libs/bytes"
)

// Tx - 交易层根据Operation构造出来的交易，投票本身也是一笔交易
// Hash作为去重的key
type Tx struct {
	Hash      tmbytes.HexBytes `json:"hash"`
	Operation Operation        `json:"operation"`
	Nonce     int64            `json:"nonce"` // -1表示不带nonce的交易
	Timestamp int64            `json:"timestamp"`
}

func (tx *Tx) String() string {
	if tx == nil {
		return "nil-Tx"
	}
	return fmt.Sprintf("Tx{%v %v nonce:%d}", tx.Hash, tx.Operation, tx.Nonce)
}

// ===== tx array =====
type Txs []*Tx

// 返回交易形成的merkle tree的根value
func (txs Txs) Hash() []byte {
	txBzs := make([][]byte, len(txs))
	for i := 0; i < len(txs); i++ {
		txBzs[i] = txs[i].Hash
	}
	return merkle.HashFromByteSlices(txBzs)
}
