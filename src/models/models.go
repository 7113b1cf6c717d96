package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TxKind determines the tax treatment of a transaction downstream.
type TxKind string

const (
	KindBuy      TxKind = "buy"
	KindSell     TxKind = "sell"
	KindStake    TxKind = "staking"
	KindTransfer TxKind = "transfer"
)

// Transaction is the canonical, normalized form of one ledger event, produced
// by a parser from a raw exchange export row.
type Transaction struct {
	Timestamp time.Time       `json:"timestamp"`
	Asset     string          `json:"asset"`
	Kind      TxKind          `json:"kind"`
	Quantity  decimal.Decimal `json:"quantity"`   // always positive
	UnitPrice decimal.Decimal `json:"unit_price"` // fiat per unit, zero when the source has no price
	Fee       decimal.Decimal `json:"fee"`        // fiat, zero unless the source provides one
}

// SkippedRow records a data row the parser dropped, with the 1-based line
// number of the row in the source file.
type SkippedRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// ParseResult carries the normalized transactions of one export file together
// with the rows the parser dropped, so callers can decide whether to surface
// skip counts. Transactions keep the relative order of their source rows.
type ParseResult struct {
	Transactions []Transaction `json:"transactions"`
	Skipped      []SkippedRow  `json:"skipped"`
}

// Lot is a slice of acquired inventory for one asset, created by a buy and
// consumed oldest-first by later sells. TotalCost shrinks proportionally with
// Quantity; UnitCost is fixed at creation.
type Lot struct {
	Quantity   decimal.Decimal
	TotalCost  decimal.Decimal
	UnitCost   decimal.Decimal
	AcquiredAt time.Time
}

// Summary is the final read-only projection of a ledger run. Monetary fields
// are rounded to 2 decimal places; Losses is reported as an absolute value.
type Summary struct {
	Gains                 float64  `json:"gains"`
	Losses                float64  `json:"losses"`
	NetPosition           float64  `json:"net_position"`
	StakingIncome         float64  `json:"staking_income"`
	TotalTransactions     int      `json:"total_transactions"`
	Errors                []string `json:"errors"`
	EstimatedTaxLiability float64  `json:"estimated_tax_liability"`
}

// CalculationRecord is the persisted audit entry for one completed calculation.
type CalculationRecord struct {
	ID               int64   `json:"id"`
	RequestHash      string  `json:"request_hash"`
	Email            string  `json:"email"`
	TaxID            string  `json:"tax_id"`
	FilerName        string  `json:"filer_name"`
	Exchange         string  `json:"exchange"`
	TransactionCount int     `json:"transaction_count"`
	SkippedRowCount  int     `json:"skipped_row_count"`
	ErrorCount       int     `json:"error_count"`
	Gains            float64 `json:"gains"`
	Losses           float64 `json:"losses"`
	NetPosition      float64 `json:"net_position"`
	StakingIncome    float64 `json:"staking_income"`
	EstimatedTax     float64 `json:"estimated_tax"`
	CreatedAt        string  `json:"created_at"`
}
