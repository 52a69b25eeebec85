package types

import (
	"errors"
	"strings"
)

// NodeInfo - 节点对外展示的基本信息
type NodeInfo struct {
	Moniker    string  `json:"moniker"`
	Address    Address `json:"address"`
	ChainID    string  `json:"chain_id"`
	Version    string  `json:"version"`
	RPCAddress string  `json:"rpc_address"`
}

func NewNodeInfo(moniker string, addr Address, chainID, version, laddr string) (NodeInfo, error) {
	info := NodeInfo{
		Moniker:    moniker,
		Address:    addr,
		ChainID:    chainID,
		Version:    version,
		RPCAddress: removeProtocolIfDefined(laddr),
	}
	return info, info.Validate()
}

func (info NodeInfo) Validate() error {
	if info.Address.IsEmpty() {
		return errors.New("node address is empty")
	}
	if info.ChainID == "" {
		return errors.New("node chain id is empty")
	}
	return nil
}

func removeProtocolIfDefined(addr string) string {
	if strings.Contains(addr, "://") {
		return strings.Split(addr, "://")[1]
	}
	return addr

}
