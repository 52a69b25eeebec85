package types

import (
	"sort"
	"strings"
)

// Address - 账户地址，直接以字符串的字典序作为proposer选举时的遍历顺序
type Address string

func (addr Address) String() string {
	return string(addr)
}

func (addr Address) IsEmpty() bool {
	return strings.TrimSpace(string(addr)) == ""
}

func (addr Address) Equal(other Address) bool {
	if addr.IsEmpty() || other.IsEmpty() {
		return false
	}
	return addr == other
}

// SortAddresses 原地按照字典序排序
func SortAddresses(addrs []Address) {
	sort.Slice(addrs, func(i, j int) bool {
		return addrs[i] < addrs[j]
	})
}
