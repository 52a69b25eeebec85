package rpc

import (
	rpctypes "github.com/tendermint/tendermint/rpc/jsonrpc/types"
)

type ResultMetrics struct {
	Metrics map[string]string `json:"metrics"`
}

// JSONMetrics label为空时返回全部metric
func JSONMetrics(ctx *rpctypes.Context, label string) (*ResultMetrics, error) {
	var labels []string
	if label != "" {
		labels = []string{label}
	}
	snapshot, err := env.MetricSet.Snapshot(labels...)
	if err != nil {
		return nil, err
	}

	result := &ResultMetrics{Metrics: make(map[string]string, len(snapshot))}
	for l, raw := range snapshot {
		result.Metrics[l] = string(raw)
	}
	return result, nil
}
