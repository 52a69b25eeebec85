package consensus

import (
	"fmt"
	"testing"
	"time"

	"chainbft_voting/state"
	"chainbft_voting/store"
	"chainbft_voting/types"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/require"
	"github.com/tendermint/tendermint/crypto/tmhash"
	"github.com/tendermint/tendermint/libs/log"
	"github.com/tendermint/tm-db/memdb"
)

var testNow = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

func testClock() time.Time { return testNow }

// mockTxBuilder 不签名，hash = tmhash(json(op) + nonce)
type mockTxBuilder struct {
	nonce int64
}

func (b *mockTxBuilder) CreateTransaction(op types.Operation, nonced bool) (*types.Tx, error) {
	if err := op.ValidateBasic(); err != nil {
		return nil, err
	}
	tx := &types.Tx{Operation: op, Timestamp: testNow.UnixNano()}
	if nonced {
		b.nonce++
		tx.Nonce = b.nonce
	} else {
		tx.Nonce = -1
	}
	bz, err := jsoniter.Marshal(op)
	if err != nil {
		return nil, err
	}
	tx.Hash = tmhash.Sum(append(bz, []byte(fmt.Sprint(tx.Nonce))...))
	return tx, nil
}

type seqIDGenerator struct {
	n int
}

func (g *seqIDGenerator) Generate() string {
	g.n++
	return fmt.Sprintf("id-%d", g.n)
}

func newTestDBStore() *state.DBStore {
	s := state.NewDBStore(memdb.NewDB(),
		state.WithClock(testClock),
		state.WithStakeLockup(time.Hour),
	)
	s.SetLogger(log.TestingLogger())
	return s
}

func newTestChain(t *testing.T) *store.BlockStore {
	genesis := types.MakeGenesisBlock("test-chain", testNow)
	bs, err := store.NewBlockStore(memdb.NewDB(), genesis, log.TestingLogger())
	require.NoError(t, err)
	return bs
}

// extendChain 在链尾追加n个空区块
func extendChain(t *testing.T, chain *store.BlockStore, n int) {
	for i := 0; i < n; i++ {
		last := chain.LastBlock()
		next := types.MakeBlock(last, "alice", nil, testNow.Add(time.Duration(last.Number+1)*time.Second))
		require.NoError(t, chain.SaveBlock(next))
	}
}

func stake(t *testing.T, s state.Store, addr types.Address, value uint64) {
	require.NoError(t, s.SetStake(addr, &types.StakeRecord{Value: value, ExpireAt: testNow.Add(time.Hour)}))
}

func applyTx(t *testing.T, s state.Store, tx *types.Tx) {
	require.NotNil(t, tx)
	require.NoError(t, s.Apply(tx.Operation))
}

func testRound() *types.RoundDescriptor {
	return &types.RoundDescriptor{
		Number:              5,
		Proposer:            "alice",
		Validators:          types.StakeMap{"alice": 10, "bob": 10, "carol": 10},
		NextRoundValidators: types.StakeMap{"alice": 10, "bob": 10},
		Threshold:           12,
		BlockHash:           []byte{0xBB},
		LastHash:            []byte{0xAA},
		Time:                testNow,
	}
}
