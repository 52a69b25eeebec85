package types

import "fmt"

type OperationType string

const (
	SetValue = OperationType("SET_VALUE") // 替换整棵子树
	IncValue = OperationType("INC_VALUE") // 原子累加，用于pre_votes/pre_commits
)

func (t OperationType) String() string {
	return string(t)
}

// Operation - 写共享状态的操作描述，交由交易层签名广播
type Operation struct {
	Type  OperationType `json:"type"`
	Ref   string        `json:"ref"`
	Value interface{}   `json:"value"`
}

func NewSetOperation(ref string, value interface{}) Operation {
	return Operation{Type: SetValue, Ref: ref, Value: value}
}

func NewIncOperation(ref string, delta uint64) Operation {
	return Operation{Type: IncValue, Ref: ref, Value: delta}
}

func (op Operation) ValidateBasic() error {
	switch op.Type {
	case SetValue, IncValue:
	default:
		return fmt.Errorf("unknown operation type %q", op.Type)
	}
	if op.Ref == "" {
		return fmt.Errorf("operation %v has empty ref", op.Type)
	}
	return nil
}

func (op Operation) String() string {
	return fmt.Sprintf("%v(%s, %v)", op.Type, op.Ref, op.Value)
}
