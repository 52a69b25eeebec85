package types

import "strings"

// 共享状态中固定的路径
const (
	PathVotingRound             = "voting/round"
	PathVotingRoundProposer     = "voting/round/proposer"
	PathVotingRoundValidators   = "voting/round/validators"
	PathVotingRoundPreVotes     = "voting/round/pre_votes"
	PathVotingRoundPreCommits   = "voting/round/pre_commits"
	PathVotingRoundNumber       = "voting/round/number"
	PathVotingRoundBlockHash    = "voting/round/block_hash"
	PathVotingNextRoundVals     = "voting/next_round_validators"
	PathDepositConsensus        = "deposit/consensus"
	PathDepositAccountConsensus = "deposit_accounts/consensus"
	PathDepositValue            = "value"
	PathRecentProposers         = "recent_proposers"
)

// ResolvePath 用'/'拼接路径
func ResolvePath(subKeys ...string) string {
	return strings.Join(subKeys, "/")
}

// NextRoundValidatorPath voting/next_round_validators/<address>
func NextRoundValidatorPath(addr Address) string {
	return ResolvePath(PathVotingNextRoundVals, addr.String())
}

// DepositPath deposit/consensus/<address>/<id>/value
func DepositPath(addr Address, id string) string {
	return ResolvePath(PathDepositConsensus, addr.String(), id, PathDepositValue)
}

// StakeAccountPath deposit_accounts/consensus/<address>
func StakeAccountPath(addr Address) string {
	return ResolvePath(PathDepositAccountConsensus, addr.String())
}

// ParseNextRoundValidatorPath 解析出address，路径不匹配时返回false
func ParseNextRoundValidatorPath(path string) (Address, bool) {
	prefix := PathVotingNextRoundVals + "/"
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}
	rest := strings.TrimPrefix(path, prefix)
	if rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return Address(rest), true
}

// ParseDepositPath 解析 deposit/consensus/<address>/<id>/value
func ParseDepositPath(path string) (Address, string, bool) {
	prefix := PathDepositConsensus + "/"
	if !strings.HasPrefix(path, prefix) {
		return "", "", false
	}
	parts := strings.Split(strings.TrimPrefix(path, prefix), "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] != PathDepositValue {
		return "", "", false
	}
	return Address(parts[0]), parts[1], true
}
