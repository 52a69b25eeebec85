package state

import (
	"time"

	"chainbft_voting/types"
)

// Store - 共享状态的类型化访问接口
// voting engine只通过这个接口读写round/质押/提案者历史，不直接拼路径访问全局状态
type Store interface {
	// GetRound 返回当前的RoundDescriptor，不存在时返回(nil, nil)
	GetRound() (*types.RoundDescriptor, error)
	GetProposer() (types.Address, error)
	GetValidators() (types.StakeMap, error)
	GetPreVotes() (uint64, error)
	GetPreCommits() (uint64, error)
	// GetRoundNumber 第二个返回值表示round是否存在
	GetRoundNumber() (int64, bool, error)

	// GetStake 不存在时返回(nil, nil)
	GetStake(addr types.Address) (*types.StakeRecord, error)
	GetRecentProposers() ([]types.Address, error)

	SetRound(round *types.RoundDescriptor) error
	IncPreVotes(delta uint64) error
	IncPreCommits(delta uint64) error
	// SetBlockHash 记录proposer在本轮提出的区块
	SetBlockHash(hash []byte) error
	SetNextRoundValidator(addr types.Address, weight uint64) error
	SetStake(addr types.Address, record *types.StakeRecord) error
	// AddDeposit 记录一笔质押并累加到账户上，账户的过期时间更新为expireAt
	AddDeposit(addr types.Address, id string, amount uint64, expireAt time.Time) error
	SetRecentProposers(addrs []types.Address) error

	// Apply 执行交易里的Operation
	Apply(op types.Operation) error
}
