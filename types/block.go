package types

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/tendermint/tendermint/crypto/merkle"
	tmbytes "github.com/tendermint/tendermint/libs/bytes"
)

// Block - local blockchain维护的区块的基本单位
type Block struct {
	Header `json:"header"`
	Data   `json:"data"`
}

type Header struct {
	ChainID  string    `json:"chain_id"`
	Number   int64     `json:"number"`
	Time     time.Time `json:"time"`
	Proposer Address   `json:"proposer"`

	LastBlockHash tmbytes.HexBytes `json:"last_block_hash"`
	TxsHash       tmbytes.HexBytes `json:"txs_hash"`
	BlockHash     tmbytes.HexBytes `json:"block_hash"`
}

type Data struct {
	Txs Txs `json:"txs"`
}

func MakeGenesisBlock(chainID string, genesisTime time.Time) *Block {
	b := &Block{
		Header: Header{
			ChainID:       chainID,
			Number:        0,
			Time:          genesisTime,
			LastBlockHash: []byte{},
		},
		Data: Data{Txs: Txs{}},
	}
	b.Hash()
	return b
}

// MakeBlock 在last之后生成一个新的区块
func MakeBlock(last *Block, proposer Address, txs Txs, t time.Time) *Block {
	b := &Block{
		Header: Header{
			ChainID:       last.ChainID,
			Number:        last.Number + 1,
			Time:          t,
			Proposer:      proposer,
			LastBlockHash: last.Hash(),
		},
		Data: Data{Txs: txs},
	}
	b.Hash()
	return b
}

// 检验一个block是否合法 - 这里的合法指的是没有明确的错误
func (b *Block) ValidateBasic() error {
	if b == nil {
		return errors.New("nil block")
	}
	if len(b.BlockHash) == 0 {
		return errors.New("block had no blockhash")
	}
	if b.Number < 0 {
		return fmt.Errorf("negative block number %d", b.Number)
	}
	return nil
}

func (b *Block) Hash() tmbytes.HexBytes {
	if b == nil {
		return nil
	}
	if b.TxsHash == nil {
		b.TxsHash = b.Data.Txs.Hash()
	}
	return b.Header.Hash()
}

func (h *Header) Hash() tmbytes.HexBytes {
	if h == nil {
		return nil
	}
	if h.BlockHash == nil {
		number := make([]byte, 8)
		binary.BigEndian.PutUint64(number, uint64(h.Number))
		h.BlockHash = merkle.HashFromByteSlices([][]byte{
			[]byte(h.ChainID),
			number,
			[]byte(h.Proposer),
			h.LastBlockHash,
			h.TxsHash,
		})
	}
	return h.BlockHash
}

func (b *Block) String() string {
	if b == nil {
		return "nil-Block"
	}
	return fmt.Sprintf("Block{#%d %v proposer:%v txs:%d}", b.Number, b.BlockHash, b.Proposer, len(b.Txs))
}
