// Package ledger owns portfolio state during a run: cash, lots held, and
// cumulative fees. It executes buy/sell/hold against a priced row and
// appends exactly one trade record per row.
package ledger

import (
	"fmt"
	"math"

	"mekong/internal/domain"
)

// LotSize converts a per-share price into a per-lot notional (board lot of
// the local exchange).
const LotSize = 1000

// Default rates charged on filled value.
const (
	DefaultTaxRate        = 0.001
	DefaultTransactionFee = 0.001
)

// Ledger tracks cash, held lots, and fees for a single run. State is owned
// exclusively by one run instance; it is never reset mid-run.
type Ledger struct {
	cash     float64
	shares   float64
	feesPaid float64

	taxRate        float64
	transactionFee float64

	records []domain.TradeRecord
}

// New creates a Ledger with the given starting capital and fee rates.
func New(initialCapital, taxRate, transactionFee float64) *Ledger {
	return &Ledger{
		cash:           initialCapital,
		taxRate:        taxRate,
		transactionFee: transactionFee,
	}
}

// Buy deploys fraction*cash at the row's close. Lots filled are rounded down
// to whole board lots; insufficient cash fills zero lots and still records
// the trade. The transaction fee is recorded against equity but is not a
// cash outflow.
func (l *Ledger) Buy(row domain.PriceRow, fraction float64) (domain.TradeRecord, error) {
	if row.Close <= 0 {
		return domain.TradeRecord{}, fmt.Errorf("buy %s at %g: %w", row.Date.Format("2006-01-02"), row.Close, domain.ErrInvalidPrice)
	}

	lots := math.Floor(fraction * l.cash / (row.Close * LotSize))
	value := lots * row.Close * LotSize

	l.shares += lots
	l.cash -= value

	fee := l.transactionFee * value
	return l.record(row, domain.ActionBuy, fraction, lots, fee), nil
}

// Sell liquidates fraction of the held lots at the row's close. Holding
// nothing fills zero lots and still records the trade. Fees include the
// sell-side tax.
func (l *Ledger) Sell(row domain.PriceRow, fraction float64) (domain.TradeRecord, error) {
	if row.Close <= 0 {
		return domain.TradeRecord{}, fmt.Errorf("sell %s at %g: %w", row.Date.Format("2006-01-02"), row.Close, domain.ErrInvalidPrice)
	}

	lots := math.Floor(fraction * l.shares)
	value := lots * row.Close * LotSize

	l.cash += value
	l.shares -= lots

	fee := (l.taxRate + l.transactionFee) * value
	return l.record(row, domain.ActionSell, fraction, lots, fee), nil
}

// Hold records a zero-fee HOLD for the row without touching state.
func (l *Ledger) Hold(row domain.PriceRow) domain.TradeRecord {
	return l.record(row, domain.ActionHold, 0, 0, 0)
}

// record appends the trade and recomputes equity from current state. Equity
// is always derived, never cached.
func (l *Ledger) record(row domain.PriceRow, action domain.Action, sizing, lots, fee float64) domain.TradeRecord {
	l.feesPaid += fee
	rec := domain.TradeRecord{
		Date:   row.Date,
		Action: action,
		Sizing: sizing,
		Filled: lots,
		Fees:   fee,
		Equity: l.shares*row.Close*LotSize + l.cash - fee,
	}
	l.records = append(l.records, rec)
	return rec
}

// Cash returns current uncommitted capital.
func (l *Ledger) Cash() float64 { return l.cash }

// Shares returns the lots currently held.
func (l *Ledger) Shares() float64 { return l.shares }

// FeesPaid returns cumulative recorded fees.
func (l *Ledger) FeesPaid() float64 { return l.feesPaid }

// Records returns the append-only trade log, one entry per processed row.
func (l *Ledger) Records() []domain.TradeRecord { return l.records }
