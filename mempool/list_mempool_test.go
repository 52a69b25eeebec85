package mempool

import (
	"fmt"
	"testing"

	cfg "chainbft_voting/config"
	"chainbft_voting/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendermint/tendermint/crypto/tmhash"
	"github.com/tendermint/tendermint/libs/log"
)

// ----- utility func -----

func newMempool() *ListMempool {
	return newMempoolWithConfig(cfg.DefaultMempoolConfig())
}

func newMempoolWithConfig(config *cfg.MempoolConfig) *ListMempool {
	mempool := NewListMempool(config, 0, SetPreCheck(PreCheckOperation()))
	mempool.SetLogger(log.TestingLogger())
	return mempool
}

var txCounter int

func newTx() *types.Tx {
	txCounter++
	op := types.NewIncOperation(types.PathVotingRoundPreVotes, uint64(txCounter))
	return &types.Tx{
		Hash:      tmhash.Sum([]byte(fmt.Sprint(txCounter))),
		Operation: op,
		Nonce:     int64(txCounter),
	}
}

// 生成一些交易，并对其checktx
func checkTxs(t *testing.T, mempool Mempool, count int, peerID uint16) types.Txs {
	txs := make(types.Txs, count)
	txinfo := TxInfo{
		SenderID: peerID,
	}
	for i := 0; i < count; i++ {
		txs[i] = newTx()
		if err := mempool.CheckTx(txs[i], txinfo); err != nil {
			t.Fatalf("checkTx failed: %v while checking #%d tx", err, i)
		}
	}

	return txs
}

// ----- tests -----

func TestBasicMempool(t *testing.T) {
	mem := newMempool()

	txs := checkTxs(t, mem, 1, UnknownPeerID)
	assert.Equal(t, 1, mem.Size())
	assert.True(t, mem.TxsBytes() > 0)

	mem.Flush()
	assert.Equal(t, 0, mem.Size())
	assert.Equal(t, int64(0), mem.TxsBytes())

	// flush之后同样的交易可以重新加入
	assert.NoError(t, mem.CheckTx(txs[0], TxInfo{SenderID: UnknownPeerID}))
	mem.Flush()
}

func TestCheckTx(t *testing.T) {
	mem := newMempool()

	// 测试交易不能重复check & add
	txs := checkTxs(t, mem, 1, UnknownPeerID)
	assert.Equal(t, ErrTxInMap, mem.CheckTx(txs[0], TxInfo{SenderID: UnknownPeerID}))
	assert.Equal(t, ErrNilTx, mem.CheckTx(nil, TxInfo{}))

	err := mem.CheckTx(&types.Tx{Operation: types.NewIncOperation("x", 1)}, TxInfo{})
	assert.IsType(t, ErrPreCheck{}, err)
	err = mem.CheckTx(&types.Tx{Hash: []byte{0x01}, Operation: types.Operation{Type: "NOPE", Ref: "x"}}, TxInfo{})
	assert.IsType(t, ErrPreCheck{}, err)
	mem.Flush()

	tests := []struct {
		numTxsToCreate int
		expectedTxNum  int
	}{
		{0, 0},
		{1, 1},
		{10, 10},
	}

	for index, test := range tests {
		checkTxs(t, mem, test.numTxsToCreate, UnknownPeerID)
		assert.Equal(t, test.expectedTxNum, mem.Size(),
			"[memNum] Got %d, expected %d tc #%d",
			mem.Size(), test.expectedTxNum, index)
		mem.Flush()
	}
}

func TestMempoolFull(t *testing.T) {
	mem := newMempoolWithConfig(&cfg.MempoolConfig{MaxBlockTxs: 10, Size: 2})
	checkTxs(t, mem, 2, UnknownPeerID)
	err := mem.CheckTx(newTx(), TxInfo{})
	assert.IsType(t, ErrMempoolIsFull{}, err)
}

func TestReapMaxTxs(t *testing.T) {
	mem := newMempool()

	tests := []struct {
		numTxsToCreate int
		max            int
		expectedNumTxs int
	}{
		{20, -1, 20},
		{20, 0, 0},
		{20, 7, 7},
		{20, 30, 20},
	}

	for index, test := range tests {
		txs := checkTxs(t, mem, test.numTxsToCreate, UnknownPeerID)
		txsFromReap := mem.ReapMaxTxs(test.max)
		assert.Equal(t, test.expectedNumTxs, len(txsFromReap),
			"Got %v tx, expected %d, tc #%d",
			len(txsFromReap), test.expectedNumTxs, index)
		// 保持加入的顺序
		assert.Equal(t, txs[:test.expectedNumTxs], txsFromReap)
		assert.Equal(t, test.numTxsToCreate, mem.Size())
		mem.Flush()
	}
}

func TestUpdate(t *testing.T) {
	mem := newMempool()

	txs := checkTxs(t, mem, 3, UnknownPeerID)

	// Removes committed txs from the mempool
	mem.Lock()
	err := mem.Update(1, txs[:2])
	mem.Unlock()
	require.NoError(t, err)
	assert.Equal(t, 1, mem.Size())
	assert.Equal(t, txs[2:], mem.ReapMaxTxs(-1))

	assert.Contains(t, mem.MetricItem().JSONString(), `"committed_txs":2`)
}

func TestTxsAvailable(t *testing.T) {
	mem := newMempool()

	select {
	case <-mem.TxsAvailable():
		t.Fatal("expected no txs available")
	default:
	}

	checkTxs(t, mem, 2, UnknownPeerID)
	select {
	case <-mem.TxsAvailable():
	default:
		t.Fatal("expected txs available")
	}
}
