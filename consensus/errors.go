package consensus

import (
	"errors"
	"fmt"

	"chainbft_voting/types"
)

var (
	// ErrNotStaked 本节点没有有效的质押，不能投票/初始化
	ErrNotStaked = errors.New("node has no active stake")
	// ErrRoundMismatch registerForNextRound时期望的round number和共享状态不一致
	ErrRoundMismatch = errors.New("round number mismatch")
	// ErrNoRound 共享状态里还没有任何round
	ErrNoRound = errors.New("no voting round")
)

// SelectionError proposer选举失败，说明质押集合为空或者已经损坏，不可恢复
type SelectionError struct {
	Candidates types.StakeMap
	Reason     string
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("no proposer was selected from stakeholders %v: %s", e.Candidates, e.Reason)
}

// IsSelectionError returns true if err is a *SelectionError.
func IsSelectionError(err error) bool {
	var se *SelectionError
	return errors.As(err, &se)
}

// IsSoftError 可以直接丢弃的失败：没有质押或者round已经过期
func IsSoftError(err error) bool {
	return errors.Is(err, ErrNotStaked) || errors.Is(err, ErrRoundMismatch)
}
