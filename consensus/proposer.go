package consensus

import (
	"encoding/binary"

	"chainbft_voting/types"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/tendermint/tendermint/libs/log"
	"go.dedis.ch/kyber/v3/xof/blake2xb"
)

// seedDepth 链足够长时使用倒数第4个区块的hash作为种子
const (
	seedMinLength = 5
	seedDepth     = 4
)

// SelectProposer 按质押加权的确定性随机选举，所有诚实节点对同样的输入得到同样的结果
//	1. 地址按字典序排序，和map遍历顺序无关
//	2. 以seed为key的BLAKE2Xb输出流中取前8字节(big endian)作为r
//	3. target = floor(r * totalStake / 2^64)，在256位整数上计算，所有平台bit级一致，totalStake超过uint64也不会回绕
//	4. 累加权重，第一个累计值大于target的候选人当选
func SelectProposer(stakes types.StakeMap, seed []byte) (types.Address, error) {
	if len(stakes) == 0 {
		return "", &SelectionError{Candidates: stakes, Reason: "empty candidate set"}
	}
	candidates := stakes.SortedAddresses()
	total := stakes.Total()
	if total.IsZero() {
		return "", &SelectionError{Candidates: stakes, Reason: "total stake is zero"}
	}

	r, err := drawUint64(seed)
	if err != nil {
		return "", err
	}
	target := new(uint256.Int).Mul(uint256.NewInt(r), total)
	target.Rsh(target, 64)

	cumulative := new(uint256.Int)
	for _, addr := range candidates {
		cumulative.Add(cumulative, uint256.NewInt(stakes[addr]))
		if target.Lt(cumulative) {
			return addr, nil
		}
	}
	return "", &SelectionError{Candidates: stakes, Reason: "candidate walk exhausted"}
}

func drawUint64(seed []byte) (uint64, error) {
	xof := blake2xb.New(seed)
	buf := make([]byte, 8)
	if _, err := xof.Read(buf); err != nil {
		return 0, errors.Wrap(err, "read seeded xof")
	}
	return binary.BigEndian.Uint64(buf), nil
}

// ChainSeed 从已经确认的链上历史推出种子，链长度大于5时取chain[len-4]，否则取genesis
func ChainSeed(chain Chain) ([]byte, error) {
	length := chain.Length()
	idx := 0
	if length > seedMinLength {
		idx = length - seedDepth
	}
	block := chain.BlockAt(idx)
	if block == nil {
		return nil, errors.Errorf("seed block #%d not found, chain length %d", idx, length)
	}
	return block.Hash(), nil
}

// ProposerSelector 结合本地链选出proposer
type ProposerSelector struct {
	chain Chain

	logger log.Logger
}

func NewProposerSelector(chain Chain) *ProposerSelector {
	return &ProposerSelector{chain: chain, logger: log.NewNopLogger()}
}

// GetProposer 返回值为*SelectionError时说明质押集合已经损坏，调用方不能吞掉这个错误
func (ps *ProposerSelector) GetProposer(stakeHolders types.StakeMap) (types.Address, error) {
	seed, err := ChainSeed(ps.chain)
	if err != nil {
		return "", err
	}
	proposer, err := SelectProposer(stakeHolders, seed)
	if err != nil {
		ps.logger.Error("select proposer failed.", "stakeholders", stakeHolders, "err", err)
		return "", err
	}
	ps.logger.Info("Proposer is "+proposer.String(), "seed", seed)
	return proposer, nil
}
