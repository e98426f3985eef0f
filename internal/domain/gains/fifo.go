package gains

import (
	"github.com/shopspring/decimal"

	"xgains/internal/domain/model"
)

// lot 一次买入形成的持仓批次
type lot struct {
	date     model.OperationRef
	quantity decimal.Decimal
	price    decimal.Decimal
}

// FIFO 先进先出收益引擎
// Operations are consumed in the order given; callers pass a chronological
// sequence. Sells beyond the open lots are matched as far as lots allow.
type FIFO struct{}

// NewFIFO 创建 FIFO 引擎
func NewFIFO() *FIFO { return &FIFO{} }

// CapitalGains matches every sell against the earliest open lots of its
// symbol and returns one record per (sale, lot) match.
func (FIFO) CapitalGains(ops []model.Operation) []model.CapitalGain {
	book := make(map[string][]lot)
	var out []model.CapitalGain

	for _, op := range ops {
		switch op.Type {
		case model.OperationBuy:
			book[op.Symbol] = append(book[op.Symbol], newLot(op))
		case model.OperationSell:
			var matched []match
			book[op.Symbol], matched = consume(book[op.Symbol], decimal.NewFromFloat(op.Amount))
			salePrice := decimal.NewFromFloat(op.Price)
			for _, m := range matched {
				out = append(out, model.CapitalGain{
					Symbol:   op.Symbol,
					Amount:   m.quantity.InexactFloat64(),
					Purchase: m.lot.date,
					Sale:     model.OperationRef{Date: op.Date, Price: op.Price},
					Gain:     m.quantity.Mul(salePrice.Sub(m.lot.price)).InexactFloat64(),
				})
			}
		}
	}
	return out
}

// CostBasis replays ops up to sale and returns the cost of the lots that
// sale consumes.
func (FIFO) CostBasis(ops []model.Operation, sale model.Operation) model.CostBasis {
	book := make(map[string][]lot)
	res := model.CostBasis{
		Symbol:    sale.Symbol,
		Date:      sale.Date,
		Amount:    sale.Amount,
		SalePrice: sale.Price,
	}

	for _, op := range ops {
		if op.Symbol != sale.Symbol {
			continue
		}
		if op.Type == model.OperationBuy {
			book[op.Symbol] = append(book[op.Symbol], newLot(op))
			continue
		}
		var matched []match
		book[op.Symbol], matched = consume(book[op.Symbol], decimal.NewFromFloat(op.Amount))
		if op != sale {
			continue
		}
		cost, qty := decimal.Zero, decimal.Zero
		for _, m := range matched {
			cost = cost.Add(m.quantity.Mul(m.lot.price))
			qty = qty.Add(m.quantity)
		}
		res.Cost = cost.InexactFloat64()
		if !qty.IsZero() {
			res.UnitCost = cost.Div(qty).InexactFloat64()
		}
		break
	}
	return res
}

type match struct {
	lot      lot
	quantity decimal.Decimal
}

func newLot(op model.Operation) lot {
	return lot{
		date:     model.OperationRef{Date: op.Date, Price: op.Price},
		quantity: decimal.NewFromFloat(op.Amount),
		price:    decimal.NewFromFloat(op.Price),
	}
}

// consume 从最早的批次开始扣减 qty，返回剩余批次和匹配明细
func consume(lots []lot, qty decimal.Decimal) ([]lot, []match) {
	var matched []match
	for len(lots) > 0 && qty.IsPositive() {
		head := lots[0]
		if head.quantity.GreaterThan(qty) {
			matched = append(matched, match{lot: head, quantity: qty})
			lots[0].quantity = head.quantity.Sub(qty)
			qty = decimal.Zero
			break
		}
		matched = append(matched, match{lot: head, quantity: head.quantity})
		qty = qty.Sub(head.quantity)
		lots = lots[1:]
	}
	return lots, matched
}
