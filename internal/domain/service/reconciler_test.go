package service

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"xgains/internal/domain/gains"
	"xgains/internal/domain/model"
)

func tx(asset string, side model.Side, amount, price float64, ts int64) model.Transaction {
	return model.Transaction{Type: "test", Asset: asset, Side: side, Amount: amount, Price: price, Timestamp: ts}
}

func runningBalances(ops []model.Operation) []float64 {
	bal := make(map[string]float64)
	out := make([]float64, 0, len(ops))
	for _, op := range ops {
		if op.Type == model.OperationBuy {
			bal[op.Symbol] += op.Amount
		} else {
			bal[op.Symbol] -= op.Amount
		}
		out = append(out, bal[op.Symbol])
	}
	return out
}

func TestRepairInjectsSyntheticBuy(t *testing.T) {
	history := []model.Transaction{
		tx("A", model.SideIn, 1.0, 10, 100),
		tx("A", model.SideOut, 1.5, 12, 200),
	}
	ops := make([]model.Operation, 0, len(history))
	for _, h := range history {
		ops = append(ops, h.Operation())
	}

	repaired := Repair(ops)
	if len(repaired) != 3 {
		t.Fatalf("expected 3 operations, got %d", len(repaired))
	}

	syn := repaired[1]
	if !syn.Synthetic || syn.Type != model.OperationBuy || syn.Price != 0 {
		t.Fatalf("expected synthetic zero-price buy, got %+v", syn)
	}
	if syn.Date.UnixMilli() != 199 {
		t.Errorf("expected synthetic at 199, got %d", syn.Date.UnixMilli())
	}
	if syn.Amount <= 0.5 || math.Abs(syn.Amount-0.50000000001) > 1e-9 {
		t.Errorf("expected amount just above 0.5, got %.17g", syn.Amount)
	}

	want := []float64{1.0, 1.50000000001, 0}
	got := runningBalances(repaired)
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("balance[%d]: expected %v, got %v", i, want[i], got[i])
		}
		if got[i] < 0 {
			t.Errorf("balance[%d] went negative: %v", i, got[i])
		}
	}
}

func TestRepairLeavesHealthyHistoryAlone(t *testing.T) {
	ops := []model.Operation{
		tx("A", model.SideIn, 2, 10, 100).Operation(),
		tx("A", model.SideOut, 1, 12, 200).Operation(),
		tx("B", model.SideIn, 1, 5, 300).Operation(),
		tx("A", model.SideOut, 1, 12, 400).Operation(),
	}
	repaired := Repair(ops)
	if len(repaired) != len(ops) {
		t.Fatalf("expected no injections, got %+v", repaired)
	}
}

func TestRepairTracksSymbolsSeparately(t *testing.T) {
	ops := []model.Operation{
		tx("A", model.SideIn, 5, 10, 100).Operation(),
		tx("B", model.SideOut, 1, 12, 200).Operation(),
	}
	repaired := Repair(ops)
	if len(repaired) != 3 || repaired[1].Symbol != "B" || !repaired[1].Synthetic {
		t.Fatalf("expected synthetic buy for B only, got %+v", repaired)
	}
}

func TestRepairNeverNegativeProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	symbols := []string{"A", "B", "C"}

	for run := 0; run < 200; run++ {
		n := 1 + rng.Intn(60)
		ops := make([]model.Operation, 0, n)
		ts := int64(1_600_000_000_000)
		for i := 0; i < n; i++ {
			ts += int64(1 + rng.Intn(10_000))
			typ := model.OperationBuy
			if rng.Intn(2) == 0 {
				typ = model.OperationSell
			}
			ops = append(ops, model.Operation{
				Symbol: symbols[rng.Intn(len(symbols))],
				Type:   typ,
				Amount: float64(1 + rng.Intn(20)),
				Price:  float64(rng.Intn(1000)),
				Date:   time.UnixMilli(ts).UTC(),
			})
		}

		repaired := Repair(ops)
		for i, b := range runningBalances(repaired) {
			if b < 0 {
				t.Fatalf("run %d: balance negative at %d: %v (%+v)", run, i, b, repaired[i])
			}
		}
		for i := 1; i < len(repaired); i++ {
			if repaired[i].Date.Before(repaired[i-1].Date) {
				t.Fatalf("run %d: sequence out of order at %d", run, i)
			}
		}
	}
}

func TestReconcileFiltersToWindow(t *testing.T) {
	history := []model.Transaction{
		tx("A", model.SideIn, 1, 10, 100),
		tx("A", model.SideOut, 0.5, 20, 200),
		tx("A", model.SideOut, 1, 30, 300),
	}
	r := NewLedgerReconciler(gains.NewFIFO())

	res := r.Reconcile(history, []int64{300})
	if len(res.Gains) == 0 {
		t.Fatal("expected gains for the sale at 300")
	}
	for _, g := range res.Gains {
		if g.Sale.Date.UnixMilli() != 300 {
			t.Errorf("gain outside window: %+v", g)
		}
	}
	if len(res.Costs) != 1 || res.Costs[0].Date.UnixMilli() != 300 {
		t.Fatalf("expected one cost basis at 300, got %+v", res.Costs)
	}
	// 0.5 left at 10 plus a synthetic 0.5 at 0
	if math.Abs(res.Costs[0].Cost-5) > 1e-6 {
		t.Errorf("expected cost ~5, got %v", res.Costs[0].Cost)
	}
	if len(res.Operations) != 4 {
		t.Errorf("expected one synthetic operation, got %d ops", len(res.Operations))
	}
}

func TestReconcileEmptyWindow(t *testing.T) {
	history := []model.Transaction{
		tx("A", model.SideIn, 1, 10, 100),
		tx("A", model.SideOut, 1, 20, 200),
	}
	res := NewLedgerReconciler(gains.NewFIFO()).Reconcile(history, nil)
	if len(res.Gains) != 0 || len(res.Costs) != 0 {
		t.Fatalf("expected nothing for empty window, got %+v", res)
	}
	if res.Gains == nil || res.Costs == nil {
		t.Error("results should be empty slices so they encode as []")
	}
}
