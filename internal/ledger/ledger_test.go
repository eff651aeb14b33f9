package ledger

import (
	"errors"
	"math"
	"testing"
	"time"

	"mekong/internal/domain"
)

func rowAt(day int, close float64) domain.PriceRow {
	d := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day)
	return domain.PriceRow{Date: d, Close: close, CloseY: close}
}

func TestBuyFullCapital(t *testing.T) {
	// 500,000 deployable at price 10, lot size 1000: 50 lots, fee 500.
	l := New(500_000, DefaultTaxRate, DefaultTransactionFee)

	rec, err := l.Buy(rowAt(0, 10), 1.0)
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if rec.Filled != 50 {
		t.Errorf("filled = %g lots, want 50", rec.Filled)
	}
	if math.Abs(rec.Fees-500) > 1e-9 {
		t.Errorf("fee = %g, want 500", rec.Fees)
	}
	if math.Abs(l.Cash()) > 1e-9 {
		t.Errorf("cash = %g, want 0 after deploying 500000", l.Cash())
	}
	if l.Shares() != 50 {
		t.Errorf("shares = %g, want 50", l.Shares())
	}
	// Fee reduces equity but not cash.
	if math.Abs(rec.Equity-(500_000-500)) > 1e-9 {
		t.Errorf("equity = %g, want 499500", rec.Equity)
	}
}

func TestBuySized(t *testing.T) {
	l := New(1_000_000, DefaultTaxRate, DefaultTransactionFee)

	rec, err := l.Buy(rowAt(0, 10), 0.25)
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	// 250,000 deployable buys 25 lots of 10,000 each.
	if rec.Filled != 25 {
		t.Errorf("filled = %g lots, want 25", rec.Filled)
	}
	if rec.Sizing != 0.25 {
		t.Errorf("sizing = %g, want 0.25", rec.Sizing)
	}
	if math.Abs(l.Cash()-750_000) > 1e-9 {
		t.Errorf("cash = %g, want 750000", l.Cash())
	}
}

func TestBuyRoundsDownToWholeLots(t *testing.T) {
	l := New(15_000, DefaultTaxRate, DefaultTransactionFee)

	rec, err := l.Buy(rowAt(0, 10), 1.0)
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if rec.Filled != 1 {
		t.Errorf("filled = %g lots, want 1", rec.Filled)
	}
	if math.Abs(l.Cash()-5_000) > 1e-9 {
		t.Errorf("cash = %g, want 5000", l.Cash())
	}
}

func TestBuyInsufficientCapitalIsNoop(t *testing.T) {
	l := New(5_000, DefaultTaxRate, DefaultTransactionFee)

	rec, err := l.Buy(rowAt(0, 10), 1.0)
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	// One lot costs 10,000; the degenerate trade is recorded, not rejected.
	if rec.Action != domain.ActionBuy || rec.Filled != 0 || rec.Fees != 0 {
		t.Errorf("degenerate buy = %+v, want recorded BUY with zero fill", rec)
	}
	if l.Cash() != 5_000 || l.Shares() != 0 {
		t.Errorf("state changed on zero-fill buy: cash=%g shares=%g", l.Cash(), l.Shares())
	}
}

func TestSell(t *testing.T) {
	l := New(1_000_000, DefaultTaxRate, DefaultTransactionFee)
	if _, err := l.Buy(rowAt(0, 10), 1.0); err != nil {
		t.Fatalf("Buy: %v", err)
	}

	rec, err := l.Sell(rowAt(1, 12), 1.0)
	if err != nil {
		t.Fatalf("Sell: %v", err)
	}
	if rec.Filled != 100 {
		t.Errorf("filled = %g lots, want 100", rec.Filled)
	}
	// 100 lots at 12,000 each with 0.2% combined tax+fee.
	if math.Abs(rec.Fees-(0.002*1_200_000)) > 1e-9 {
		t.Errorf("fee = %g, want 2400", rec.Fees)
	}
	if math.Abs(l.Cash()-1_200_000) > 1e-9 {
		t.Errorf("cash = %g, want 1200000", l.Cash())
	}
	if l.Shares() != 0 {
		t.Errorf("shares = %g, want 0", l.Shares())
	}
}

func TestSellFraction(t *testing.T) {
	l := New(1_000_000, DefaultTaxRate, DefaultTransactionFee)
	if _, err := l.Buy(rowAt(0, 10), 1.0); err != nil {
		t.Fatalf("Buy: %v", err)
	}

	rec, err := l.Sell(rowAt(1, 10), 0.33)
	if err != nil {
		t.Fatalf("Sell: %v", err)
	}
	// floor(0.33 * 100) lots.
	if rec.Filled != 33 {
		t.Errorf("filled = %g lots, want 33", rec.Filled)
	}
	if l.Shares() != 67 {
		t.Errorf("shares = %g, want 67", l.Shares())
	}
}

func TestSellNothingHeldIsNoop(t *testing.T) {
	l := New(100_000, DefaultTaxRate, DefaultTransactionFee)

	rec, err := l.Sell(rowAt(0, 10), 1.0)
	if err != nil {
		t.Fatalf("Sell: %v", err)
	}
	if rec.Action != domain.ActionSell || rec.Filled != 0 {
		t.Errorf("degenerate sell = %+v, want recorded SELL with zero fill", rec)
	}
	if l.Cash() != 100_000 {
		t.Errorf("cash = %g, want unchanged 100000", l.Cash())
	}
}

func TestHold(t *testing.T) {
	l := New(100_000, DefaultTaxRate, DefaultTransactionFee)

	rec := l.Hold(rowAt(0, 10))
	if rec.Action != domain.ActionHold || rec.Sizing != 0 || rec.Fees != 0 {
		t.Errorf("hold = %+v, want zero-fee HOLD", rec)
	}
	if rec.Equity != 100_000 {
		t.Errorf("equity = %g, want 100000", rec.Equity)
	}
}

func TestInvalidPrice(t *testing.T) {
	l := New(100_000, DefaultTaxRate, DefaultTransactionFee)

	if _, err := l.Buy(rowAt(0, 0), 1.0); !errors.Is(err, domain.ErrInvalidPrice) {
		t.Errorf("buy at 0: error = %v, want ErrInvalidPrice", err)
	}
	if _, err := l.Sell(rowAt(0, -5), 1.0); !errors.Is(err, domain.ErrInvalidPrice) {
		t.Errorf("sell at -5: error = %v, want ErrInvalidPrice", err)
	}
	if len(l.Records()) != 0 {
		t.Error("failed trades must not append records")
	}
}

func TestEquityInvariant(t *testing.T) {
	// equity(row) == shares*close*LotSize + cash - fee(row) after every
	// mutation, recomputed from state rather than cached.
	l := New(2_000_000, DefaultTaxRate, DefaultTransactionFee)

	steps := []struct {
		close    float64
		fraction float64
		action   domain.Action
	}{
		{10, 0.5, domain.ActionBuy},
		{11, 0, domain.ActionHold},
		{12, 0.5, domain.ActionSell},
		{9, 1.0, domain.ActionBuy},
		{8, 1.0, domain.ActionSell},
	}

	for i, s := range steps {
		row := rowAt(i, s.close)
		var rec domain.TradeRecord
		var err error
		switch s.action {
		case domain.ActionBuy:
			rec, err = l.Buy(row, s.fraction)
		case domain.ActionSell:
			rec, err = l.Sell(row, s.fraction)
		default:
			rec = l.Hold(row)
		}
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		want := l.Shares()*s.close*LotSize + l.Cash() - rec.Fees
		if math.Abs(rec.Equity-want) > 1e-6 {
			t.Errorf("step %d: equity = %g, invariant gives %g", i, rec.Equity, want)
		}
	}

	if len(l.Records()) != len(steps) {
		t.Errorf("recorded %d trades, want %d", len(l.Records()), len(steps))
	}
}

func TestCashSharesConservation(t *testing.T) {
	// Cash and shares only move through signed buy/sell flows.
	l := New(1_000_000, DefaultTaxRate, DefaultTransactionFee)

	buyRec, _ := l.Buy(rowAt(0, 10), 1.0)
	sellRec, _ := l.Sell(rowAt(1, 10), 1.0)

	flow := -buyRec.Filled*10*LotSize + sellRec.Filled*10*LotSize
	if math.Abs(l.Cash()-(1_000_000+flow)) > 1e-6 {
		t.Errorf("cash = %g, want initial plus net flow %g", l.Cash(), flow)
	}
	if l.Shares() != buyRec.Filled-sellRec.Filled {
		t.Errorf("shares = %g, want %g", l.Shares(), buyRec.Filled-sellRec.Filled)
	}
}
