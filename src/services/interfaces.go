package services

import (
	"errors"

	"github.com/navrlluis/crypto-tax/src/models"
)

var (
	ErrParsingFailed  = errors.New("parsing failed")
	ErrNoTransactions = errors.New("no transactions parsed")
)

// CalculationRequest is the payload the webhook receives for one filer.
type CalculationRequest struct {
	Email      string
	TaxID      string
	FilerName  string
	Exchange   string
	CSVContent string
}

// CalculationResult pairs the ledger summary with normalization metadata.
type CalculationResult struct {
	Summary     models.Summary `json:"summary"`
	SkippedRows int            `json:"skipped_rows"`
	FromCache   bool           `json:"from_cache"`
}

// CalculationService defines the interface for the core calculation logic.
type CalculationService interface {
	Calculate(req CalculationRequest) (*CalculationResult, error)
	RecentCalculations(limit int) ([]models.CalculationRecord, error)
}

// EmailService delivers the summary report to the filer.
type EmailService interface {
	SendSummaryReport(toEmail, filerName string, summary models.Summary) error
}
