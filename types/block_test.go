package types

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeBlock(t *testing.T) {
	genesis := MakeGenesisBlock("BLOCK_TEST", time.Unix(0, 0))
	require.NoError(t, genesis.ValidateBasic())
	assert.Equal(t, int64(0), genesis.Number)

	b1 := MakeBlock(genesis, "alice", Txs{}, time.Unix(10, 0))
	require.NoError(t, b1.ValidateBasic())
	assert.Equal(t, int64(1), b1.Number)
	assert.Equal(t, genesis.Hash(), b1.LastBlockHash)
	assert.NotEqual(t, genesis.Hash(), b1.Hash())

	// 同样的内容hash一致
	other := MakeBlock(genesis, "alice", Txs{}, time.Unix(10, 0))
	assert.Equal(t, b1.Hash(), other.Hash())

	// proposer不同hash不同
	bob := MakeBlock(genesis, "bob", Txs{}, time.Unix(10, 0))
	assert.NotEqual(t, b1.Hash(), bob.Hash())
}

func TestRoundDescriptorCopy(t *testing.T) {
	rd := &RoundDescriptor{
		Number:     3,
		Proposer:   "alice",
		Validators: StakeMap{"alice": 1, "bob": 2},
		BlockHash:  []byte{0x01},
	}
	cp := rd.Copy()
	cp.Validators["carol"] = 3
	cp.BlockHash[0] = 0x02

	assert.Len(t, rd.Validators, 2)
	assert.Equal(t, byte(0x01), rd.BlockHash[0])
	assert.Nil(t, cp.NextRoundValidators)

	var nilRound *RoundDescriptor
	assert.Nil(t, nilRound.Copy())
}

func TestGenesisDoc(t *testing.T) {
	dir, err := ioutil.TempDir("", "genesis")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	genDoc := &GenesisDoc{ChainID: "test-chain", GenesisTime: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, genDoc.ValidateAndComplete())
	file := filepath.Join(dir, "genesis.json")
	require.NoError(t, genDoc.SaveAs(file))

	loaded, err := GenesisDocFromFile(file)
	require.NoError(t, err)
	assert.Equal(t, genDoc.ChainID, loaded.ChainID)
	assert.True(t, genDoc.GenesisTime.Equal(loaded.GenesisTime))
	assert.Equal(t, genDoc.Block().Hash(), loaded.Block().Hash())

	assert.Error(t, (&GenesisDoc{}).ValidateAndComplete())
}
