package processors

import (
	"fmt"

	"github.com/navrlluis/crypto-tax/src/models"
	"github.com/shopspring/decimal"
)

// LedgerState tracks per-asset FIFO inventories and running totals for one
// calculation. It is constructed fresh per request and never shared across
// requests. totalLosses accumulates signed (non-positive) realized gains;
// the summary reports its absolute value.
type LedgerState struct {
	lots          map[string][]*models.Lot
	totalGains    decimal.Decimal
	totalLosses   decimal.Decimal
	stakingIncome decimal.Decimal
	txCount       int
	errors        []string
}

func NewLedgerState() *LedgerState {
	return &LedgerState{
		lots:          make(map[string][]*models.Lot),
		totalGains:    decimal.Zero,
		totalLosses:   decimal.Zero,
		stakingIncome: decimal.Zero,
	}
}

// Apply folds one transaction into the state. Every transaction increments
// the count, whatever its kind or error outcome.
func (s *LedgerState) Apply(tx models.Transaction) {
	s.txCount++
	switch tx.Kind {
	case models.KindBuy:
		s.applyBuy(tx)
	case models.KindSell:
		s.applySell(tx)
	case models.KindStake:
		s.stakingIncome = s.stakingIncome.Add(tx.Quantity.Mul(tx.UnitPrice))
	case models.KindTransfer:
		// not taxable, no inventory effect
	}
}

func (s *LedgerState) applyBuy(tx models.Transaction) {
	totalCost := tx.Quantity.Mul(tx.UnitPrice).Add(tx.Fee)
	unitCost := decimal.Zero
	if tx.Quantity.IsPositive() {
		unitCost = totalCost.Div(tx.Quantity)
	}
	s.lots[tx.Asset] = append(s.lots[tx.Asset], &models.Lot{
		Quantity:   tx.Quantity,
		TotalCost:  totalCost,
		UnitCost:   unitCost,
		AcquiredAt: tx.Timestamp,
	})
}

// applySell consumes inventory oldest-first. Only the fraction of the sale
// covered by existing lots gets cost-basis treatment; an uncovered remainder
// is reported as a diagnostic instead of being assumed a full taxable gain.
func (s *LedgerState) applySell(tx models.Transaction) {
	inventory := s.lots[tx.Asset]
	if len(inventory) == 0 {
		s.errors = append(s.errors, fmt.Sprintf("sale without prior purchase for asset %s", tx.Asset))
		return
	}

	remaining := tx.Quantity
	costBasis := decimal.Zero
	for len(inventory) > 0 && remaining.IsPositive() {
		lot := inventory[0]
		if lot.Quantity.LessThanOrEqual(remaining) {
			costBasis = costBasis.Add(lot.TotalCost)
			remaining = remaining.Sub(lot.Quantity)
			inventory = inventory[1:]
		} else {
			portionCost := lot.UnitCost.Mul(remaining)
			costBasis = costBasis.Add(portionCost)
			lot.Quantity = lot.Quantity.Sub(remaining)
			lot.TotalCost = lot.TotalCost.Sub(portionCost)
			remaining = decimal.Zero
		}
	}
	s.lots[tx.Asset] = inventory

	if remaining.IsPositive() {
		s.errors = append(s.errors, fmt.Sprintf("sale without prior purchase for asset %s", tx.Asset))
	}

	matched := tx.Quantity.Sub(remaining)
	proceeds := matched.Mul(tx.UnitPrice)
	gain := proceeds.Sub(costBasis).Sub(tx.Fee)
	if gain.IsPositive() {
		s.totalGains = s.totalGains.Add(gain)
	} else {
		s.totalLosses = s.totalLosses.Add(gain)
	}
}

// Summary projects the state into the final rounded report. It does not
// mutate the state; calling it twice yields identical values.
func (s *LedgerState) Summary() models.Summary {
	net := s.totalGains.Add(s.totalLosses)
	errs := s.errors
	if errs == nil {
		errs = []string{}
	}
	return models.Summary{
		Gains:                 round2(s.totalGains),
		Losses:                round2(s.totalLosses.Abs()),
		NetPosition:           round2(net),
		StakingIncome:         round2(s.stakingIncome),
		TotalTransactions:     s.txCount,
		Errors:                errs,
		EstimatedTaxLiability: round2(EstimateTax(net)),
	}
}

// round2 rounds half to even, so exact half-cent values land on the even
// neighbor instead of always away from zero.
func round2(d decimal.Decimal) float64 {
	f, _ := d.RoundBank(2).Float64()
	return f
}

// LedgerProcessor folds a normalized transaction sequence into a Summary.
type LedgerProcessor struct{}

func NewLedgerProcessor() *LedgerProcessor {
	return &LedgerProcessor{}
}

// Process is deterministic and total over any sequence of valid transactions;
// an empty sequence yields a zero-valued summary with no errors.
func (p *LedgerProcessor) Process(transactions []models.Transaction) models.Summary {
	state := NewLedgerState()
	for _, tx := range transactions {
		state.Apply(tx)
	}
	return state.Summary()
}
