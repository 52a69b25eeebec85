package consensus

import (
	"sync"

	cstypes "chainbft_voting/consensus/types"

	jsoniter "github.com/json-iterator/go"
	gometrics "github.com/rcrowley/go-metrics"
)

// votingMetric - 注册到libs/metric.MetricSet中，通过rpc以json的形式查看
type votingMetric struct {
	mtx      sync.RWMutex
	registry gometrics.Registry

	Status      string `json:"current_status"`
	BlockNumber int64  `json:"status_block_number"`
	Setter      string `json:"status_setter"`
	IsProposer  bool   `json:"is_proposer"`
	Proposer    string `json:"proposer_address"`
}

func newVotingMetric() *votingMetric {
	return &votingMetric{
		registry: gometrics.NewRegistry(),
		Status:   cstypes.StatusStartUp.String(),
	}
}

func (vm *votingMetric) JSONString() string {
	vm.mtx.RLock()
	defer vm.mtx.RUnlock()

	snapshot := map[string]interface{}{
		"current_status":      vm.Status,
		"status_block_number": vm.BlockNumber,
		"status_setter":       vm.Setter,
		"is_proposer":         vm.IsProposer,
		"proposer_address":    vm.Proposer,
		"counters":            vm.registry.GetAll(),
	}
	s, _ := jsoniter.MarshalToString(snapshot)
	return s
}

func (vm *votingMetric) MarkStatus(rec cstypes.StatusRecord) {
	vm.mtx.Lock()
	defer vm.mtx.Unlock()
	vm.Status = rec.Status.String()
	vm.BlockNumber = rec.BlockNumber
	vm.Setter = rec.Setter
	gometrics.GetOrRegisterCounter("status_changes", vm.registry).Inc(1)
}

func (vm *votingMetric) MarkProposer(proposer string, isProposer bool) {
	vm.mtx.Lock()
	defer vm.mtx.Unlock()
	vm.Proposer = proposer
	vm.IsProposer = isProposer
}

// MarkCounter 累加名为name的计数器
func (vm *votingMetric) MarkCounter(name string) {
	gometrics.GetOrRegisterCounter(name, vm.registry).Inc(1)
}

func (vm *votingMetric) Count(name string) int64 {
	return gometrics.GetOrRegisterCounter(name, vm.registry).Count()
}
