package node

import (
	"testing"
	"time"

	cfg "chainbft_voting/config"
	"chainbft_voting/consensus"
	cstypes "chainbft_voting/consensus/types"
	"chainbft_voting/types"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendermint/tendermint/libs/log"
)

func newTestNode(t *testing.T, modify func(*cfg.Config)) *Node {
	config := cfg.TestConfig()
	config.Voting.Address = "alice"
	if modify != nil {
		modify(config)
	}
	genDoc := &types.GenesisDoc{ChainID: config.Voting.ChainID, GenesisTime: time.Unix(0, 0)}
	n, err := NewNode(config, log.TestingLogger(), WithGenesisDoc(genDoc))
	require.NoError(t, err)
	return n
}

func TestNodeStartStop(t *testing.T) {
	defer leaktest.CheckTimeout(t, 5*time.Second)()

	n := newTestNode(t, nil)
	require.NoError(t, n.Start())
	assert.True(t, n.IsRunning())
	require.NoError(t, n.Stop())
	assert.False(t, n.IsRunning())
}

// 单节点网络：第一个节点质押、写入第一个round，然后不断出块
func TestSingleNodeProducesBlocks(t *testing.T) {
	defer leaktest.CheckTimeout(t, 5*time.Second)()

	n := newTestNode(t, nil)
	require.NoError(t, n.Start())
	defer n.Stop() //nolint:errcheck

	require.Eventually(t, func() bool {
		return n.Snapshot().LastBlockNumber >= 3
	}, 3*time.Second, 10*time.Millisecond)

	snapshot := n.Snapshot()
	assert.EqualValues(t, "alice", snapshot.Address)
	assert.True(t, snapshot.IsProposer)
	assert.EqualValues(t, 100, snapshot.Stakes)
	assert.True(t, snapshot.RoundNumber >= snapshot.LastBlockNumber)

	// 每个区块都由alice提出，并且连成一条链
	blocks := n.BlockStore()
	for i := 1; i <= 3; i++ {
		block := blocks.BlockAt(i)
		require.NotNil(t, block)
		assert.EqualValues(t, "alice", block.Proposer)
		assert.Equal(t, blocks.BlockAt(i-1).Hash(), block.LastBlockHash)
	}

	recent, err := n.Store().GetRecentProposers()
	require.NoError(t, err)
	assert.Equal(t, []types.Address{"alice"}, recent)
	assert.Nil(t, n.Err())
}

func TestNodeWithoutBootstrapWaits(t *testing.T) {
	defer leaktest.CheckTimeout(t, 5*time.Second)()

	n := newTestNode(t, func(c *cfg.Config) { c.Voting.Bootstrap = false })
	require.NoError(t, n.Start())

	time.Sleep(50 * time.Millisecond)
	snapshot := n.Snapshot()
	assert.Equal(t, cstypes.StatusStartUp.String(), snapshot.Status)
	assert.EqualValues(t, 0, snapshot.LastBlockNumber)
	assert.EqualValues(t, 0, snapshot.RoundNumber)

	require.NoError(t, n.Stop())
}

// 共享状态中的round被破坏时(没有任何候选人)，节点停止
func TestNodeStopsOnSelectionError(t *testing.T) {
	defer leaktest.CheckTimeout(t, 5*time.Second)()

	n := newTestNode(t, nil)
	require.NoError(t, n.Start())

	require.Eventually(t, func() bool {
		return n.Snapshot().LastBlockNumber >= 1
	}, 3*time.Second, 10*time.Millisecond)

	// 质押清零后无法重新注册，下一轮的候选人集合总权重为0
	require.NoError(t, n.Store().SetStake("alice", &types.StakeRecord{Value: 0, ExpireAt: time.Unix(0, 0)}))
	require.NoError(t, n.Store().SetNextRoundValidator("alice", 0))

	require.Eventually(t, func() bool {
		return !n.IsRunning()
	}, 3*time.Second, 10*time.Millisecond)
	assert.True(t, consensus.IsSelectionError(n.Err()))
}

func TestNodeReceiveVote(t *testing.T) {
	defer leaktest.CheckTimeout(t, 5*time.Second)()

	n := newTestNode(t, nil)
	require.NoError(t, n.Start())
	defer n.Stop() //nolint:errcheck

	vote := &types.Tx{
		Hash:      []byte{0xAB, 0xCD},
		Operation: types.NewIncOperation(types.PathVotingRoundPreVotes, 1),
	}
	n.ReceiveVote(vote)

	included := func() bool {
		blocks := n.BlockStore()
		count := 0
		for i := 1; i < blocks.Length(); i++ {
			for _, tx := range blocks.BlockAt(i).Txs {
				if tx.Hash.String() == vote.Hash.String() {
					count++
				}
			}
		}
		return count > 0
	}
	require.Eventually(t, included, 3*time.Second, 10*time.Millisecond)
}

func TestNodeChainIDMismatch(t *testing.T) {
	config := cfg.TestConfig()
	genDoc := &types.GenesisDoc{ChainID: "other-chain"}
	_, err := NewNode(config, log.TestingLogger(), WithGenesisDoc(genDoc))
	assert.Error(t, err)

	config.Voting.Address = ""
	_, err = NewNode(config, log.TestingLogger(), WithGenesisDoc(genDoc))
	assert.Error(t, err)
}
