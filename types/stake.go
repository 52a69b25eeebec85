package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/holiman/uint256"
)

// StakeRecord - deposit_accounts/consensus/<address> 下保存的质押记录
type StakeRecord struct {
	Value    uint64    `json:"value"`
	ExpireAt time.Time `json:"expire_at"`
}

// IsActive 只有value > 0且尚未过期的质押才有投票权重
func (sr *StakeRecord) IsActive(now time.Time) bool {
	if sr == nil {
		return false
	}
	return sr.Value > 0 && sr.ExpireAt.After(now)
}

// NeedsRestaking 质押已经过期但是value仍然大于0，需要重新质押
func (sr *StakeRecord) NeedsRestaking(now time.Time) bool {
	if sr == nil {
		return false
	}
	return sr.Value > 0 && !sr.ExpireAt.After(now)
}

func (sr *StakeRecord) String() string {
	if sr == nil {
		return "nil-StakeRecord"
	}
	return fmt.Sprintf("StakeRecord{%d expire:%v}", sr.Value, sr.ExpireAt)
}

// StakeMap - address -> 权重
type StakeMap map[Address]uint64

func (sm StakeMap) Copy() StakeMap {
	cp := make(StakeMap, len(sm))
	for addr, w := range sm {
		cp[addr] = w
	}
	return cp
}

// Total 返回所有地址的权重之和，在256位整数上累加，多个接近MaxUint64的权重也不会回绕
func (sm StakeMap) Total() *uint256.Int {
	total := new(uint256.Int)
	for _, w := range sm {
		total.Add(total, uint256.NewInt(w))
	}
	return total
}

// Without 返回去掉addr之后的拷贝，常用于去掉proposer自己的权重
func (sm StakeMap) Without(addr Address) StakeMap {
	cp := sm.Copy()
	delete(cp, addr)
	return cp
}

// SortedAddresses 返回按字典序排列的地址，和map的遍历顺序无关
func (sm StakeMap) SortedAddresses() []Address {
	addrs := make([]Address, 0, len(sm))
	for addr := range sm {
		addrs = append(addrs, addr)
	}
	SortAddresses(addrs)
	return addrs
}

func (sm StakeMap) Has(addr Address) bool {
	w, ok := sm[addr]
	return ok && w > 0
}

func (sm StakeMap) String() string {
	addrs := sm.SortedAddresses()
	parts := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		parts = append(parts, fmt.Sprintf("%v:%d", addr, sm[addr]))
	}
	return "{" + strings.Join(parts, " ") + "}"
}
