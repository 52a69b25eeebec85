package metric

// MetricItem - 一个独立的模块(voting/node/store)对应一个MetricItem
// JSONString 必须返回合法的json，由MetricSet拼接后通过rpc返回
type MetricItem interface {
	JSONString() string
}

// FuncItem 把一个返回json的函数包装成MetricItem
type FuncItem func() string

func (f FuncItem) JSONString() string {
	return f()
}
