package metric

import (
	"errors"
	"sort"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

var (
	ErrMetricLabelExist = errors.New("metric label already exist")
	ErrMetricNotFound   = errors.New("metric label not found")
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func NewMetricSet() *MetricSet {
	return &MetricSet{
		metrics: make(map[string]MetricItem),
	}
}

// MetricSet - label -> MetricItem，rpc按label查询
type MetricSet struct {
	mtx     sync.RWMutex
	metrics map[string]MetricItem
}

// SetMetrics - 根据label设置对应的Metrics，如果有存在的label，则返回error
func (ms *MetricSet) SetMetrics(label string, item MetricItem) error {
	ms.mtx.Lock()
	defer ms.mtx.Unlock()

	if _, existed := ms.metrics[label]; existed {
		return ErrMetricLabelExist
	}
	ms.metrics[label] = item
	return nil
}

func (ms *MetricSet) HasMetrics(label string) bool {
	ms.mtx.RLock()
	_, existed := ms.metrics[label]
	ms.mtx.RUnlock()
	return existed
}

func (ms *MetricSet) GetMetrics(label string) MetricItem {
	ms.mtx.RLock()
	defer ms.mtx.RUnlock()
	return ms.metrics[label]
}

// Labels 按字典序返回所有label
func (ms *MetricSet) Labels() []string {
	ms.mtx.RLock()
	keys := make([]string, 0, len(ms.metrics))
	for k := range ms.metrics {
		keys = append(keys, k)
	}
	ms.mtx.RUnlock()

	sort.Strings(keys)
	return keys
}

// Snapshot 返回label对应的json，labels为空时返回全部
func (ms *MetricSet) Snapshot(labels ...string) (map[string]jsoniter.RawMessage, error) {
	if len(labels) == 0 {
		labels = ms.Labels()
	}
	result := make(map[string]jsoniter.RawMessage, len(labels))
	for _, label := range labels {
		item := ms.GetMetrics(label)
		if item == nil {
			return nil, ErrMetricNotFound
		}
		raw := item.JSONString()
		if !json.Valid([]byte(raw)) {
			// 不是json的item按字符串处理
			bz, _ := json.Marshal(raw)
			raw = string(bz)
		}
		result[label] = jsoniter.RawMessage(raw)
	}
	return result, nil
}

// JSONString 所有metric拼成一个json对象
func (ms *MetricSet) JSONString() string {
	snapshot, _ := ms.Snapshot()
	s, _ := json.MarshalToString(snapshot)
	return s
}
