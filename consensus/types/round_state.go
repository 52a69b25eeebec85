package types

import (
	"fmt"

	tmbytes "github.com/tendermint/tendermint/libs/bytes"
)

//-----------------------------------------------------------------------------
// VotingStatus enum type

// VotingStatus enumerates the state of the voting state machine
type VotingStatus uint8

// VotingStatus
const (
	StatusStartUp       = VotingStatus(0x01) // 节点刚启动
	StatusSyncing       = VotingStatus(0x02) // 本地视图落后于共享的round number
	StatusBlockReceived = VotingStatus(0x03) // setBlock收到本轮提案
	StatusPreVote       = VotingStatus(0x04) // 已经发出pre-vote
	StatusPreCommit     = VotingStatus(0x05) // 已经发出pre-commit
	StatusCommitted     = VotingStatus(0x06) // reset之后，本轮结束
)

func (s VotingStatus) String() string {
	switch s {
	case StatusStartUp:
		return "START_UP"
	case StatusSyncing:
		return "SYNCING"
	case StatusBlockReceived:
		return "BLOCK_RECEIVED"
	case StatusPreVote:
		return "PRE_VOTE"
	case StatusPreCommit:
		return "PRE_COMMIT"
	case StatusCommitted:
		return "COMMITTED"
	default:
		return "UNKNOWN"
	}
}

// StatusRecord - 每次状态切换都记录发生时的区块高度和设置者，方便排查卡住的round
type StatusRecord struct {
	Status      VotingStatus `json:"status"`
	BlockNumber int64        `json:"block_number"`
	Setter      string       `json:"setter"`
}

func (sr StatusRecord) String() string {
	return fmt.Sprintf("%v@%d(%s)", sr.Status, sr.BlockNumber, sr.Setter)
}

// RoundEvent - 状态切换时通过EventSwitch广播的数据
type RoundEvent struct {
	Previous StatusRecord
	Current  StatusRecord
}

//-----------------------------------------------------------------------------
// VotingSnapshot

// VotingSnapshot - 事件循环每处理完一条消息更新一次，供rpc并发读取
type VotingSnapshot struct {
	Address           string           `json:"address"`
	Status            string           `json:"status"`
	StatusBlockNumber int64            `json:"status_block_number"`
	StatusSetter      string           `json:"status_setter"`
	IsProposer        bool             `json:"is_proposer"`
	Stakes            uint64           `json:"stakes"`
	RoundNumber       int64            `json:"round_number"`
	LastBlockNumber   int64            `json:"last_block_number"`
	LastBlockHash     tmbytes.HexBytes `json:"last_block_hash"`
	Votes             int              `json:"votes"`
	PendingTxs        int              `json:"pending_txs"`
}
