package service

import (
	"math"
	"time"

	"xgains/internal/domain/model"
)

// ShortfallSlack 补录买入数量相对缺口的放大系数
// The repaired balance ends strictly above zero, so float rounding in later
// steps cannot push it back below.
const ShortfallSlack = 1.00000000001

// GainsEngine FIFO 收益计算（外部协作者）
type GainsEngine interface {
	CapitalGains(ops []model.Operation) []model.CapitalGain
	CostBasis(ops []model.Operation, sale model.Operation) model.CostBasis
}

// Reconciliation 对账结果
type Reconciliation struct {
	Operations []model.Operation   `json:"-"`
	Gains      []model.CapitalGain `json:"gains"`
	Costs      []model.CostBasis   `json:"costs"`
}

// LedgerReconciler 把原始流水整理成可做 FIFO 的操作序列
type LedgerReconciler struct {
	engine GainsEngine
}

// NewLedgerReconciler 创建对账器
func NewLedgerReconciler(engine GainsEngine) *LedgerReconciler {
	return &LedgerReconciler{engine: engine}
}

// Repair walks ops in order and inserts a zero-price synthetic BUY one
// millisecond before every SELL that would leave its symbol with a negative
// running balance. ops must be sorted by date ascending; the input slice is
// not modified.
func Repair(ops []model.Operation) []model.Operation {
	balance := make(map[string]float64)
	out := make([]model.Operation, 0, len(ops))

	for _, op := range ops {
		switch op.Type {
		case model.OperationBuy:
			balance[op.Symbol] += op.Amount
		case model.OperationSell:
			balance[op.Symbol] -= op.Amount
		}
		if op.Type == model.OperationSell && balance[op.Symbol] < 0 {
			out = append(out, model.Operation{
				Symbol:    op.Symbol,
				Type:      model.OperationBuy,
				Amount:    ShortfallSlack * math.Abs(balance[op.Symbol]),
				Price:     0,
				Date:      op.Date.Add(-time.Millisecond),
				Synthetic: true,
			})
			balance[op.Symbol] = 0
		}
		out = append(out, op)
	}
	return out
}

// Reconcile repairs the full history, runs the gains engine over it, and
// keeps only the records that belong to the requested window. window holds
// the unix-ms timestamps of the rows the caller asked for.
func (r *LedgerReconciler) Reconcile(history []model.Transaction, window []int64) Reconciliation {
	ops := make([]model.Operation, 0, len(history))
	for _, tx := range history {
		ops = append(ops, tx.Operation())
	}
	ops = Repair(ops)

	inWindow := make(map[int64]struct{}, len(window))
	for _, ts := range window {
		inWindow[ts] = struct{}{}
	}

	res := Reconciliation{
		Operations: ops,
		Gains:      []model.CapitalGain{},
		Costs:      []model.CostBasis{},
	}
	for _, g := range r.engine.CapitalGains(ops) {
		if _, ok := inWindow[g.Sale.Date.UnixMilli()]; ok {
			res.Gains = append(res.Gains, g)
		}
	}
	for _, op := range ops {
		if op.Type != model.OperationSell {
			continue
		}
		if _, ok := inWindow[op.Date.UnixMilli()]; !ok {
			continue
		}
		res.Costs = append(res.Costs, r.engine.CostBasis(ops, op))
	}
	return res
}
