package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/navrlluis/crypto-tax/src/database"
	"github.com/navrlluis/crypto-tax/src/logger"
	"github.com/navrlluis/crypto-tax/src/models"
	"github.com/navrlluis/crypto-tax/src/parsers"
	"github.com/navrlluis/crypto-tax/src/processors"
	"github.com/navrlluis/crypto-tax/src/utils"
	"github.com/patrickmn/go-cache"
)

// Result cache key; identical uploads within the TTL return the cached summary.
const ckCalculationResult = "res_calculation_%s"

type calculationServiceImpl struct {
	ledgerProcessor *processors.LedgerProcessor
	emailService    EmailService
	resultCache     *cache.Cache
	emailEnabled    bool
}

func NewCalculationService(
	ledgerProcessor *processors.LedgerProcessor,
	emailService EmailService,
	resultCache *cache.Cache,
	emailEnabled bool,
) CalculationService {
	return &calculationServiceImpl{
		ledgerProcessor: ledgerProcessor,
		emailService:    emailService,
		resultCache:     resultCache,
		emailEnabled:    emailEnabled,
	}
}

func (s *calculationServiceImpl) Calculate(req CalculationRequest) (*CalculationResult, error) {
	overallStartTime := time.Now()
	logger.L.Info("Calculate START", "email", req.Email, "exchange", req.Exchange)

	requestHash := utils.RequestHash(strings.ToLower(req.Exchange), req.CSVContent)
	cacheKey := fmt.Sprintf(ckCalculationResult, requestHash)
	if cached, found := s.resultCache.Get(cacheKey); found {
		logger.L.Info("Cache hit for calculation", "email", req.Email, "requestHash", requestHash)
		result := *(cached.(*CalculationResult))
		result.FromCache = true
		return &result, nil
	}

	parser := parsers.GetParser(req.Exchange)
	parsed, err := parser.Parse(strings.NewReader(req.CSVContent))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}
	if len(parsed.Skipped) > 0 {
		logger.L.Warn("Skipped unparseable rows during normalization",
			"email", req.Email, "skippedCount", len(parsed.Skipped))
	}
	if len(parsed.Transactions) == 0 {
		return nil, ErrNoTransactions
	}

	summary := s.ledgerProcessor.Process(parsed.Transactions)

	// Audit trail failure must not fail the calculation itself.
	if err := s.storeCalculation(requestHash, req, summary, len(parsed.Skipped)); err != nil {
		logger.L.Error("Failed to store calculation record", "email", req.Email, "error", err)
	}

	result := &CalculationResult{Summary: summary, SkippedRows: len(parsed.Skipped)}
	s.resultCache.Set(cacheKey, result, cache.DefaultExpiration)

	if s.emailEnabled {
		go func() {
			if err := s.emailService.SendSummaryReport(req.Email, req.FilerName, summary); err != nil {
				logger.L.Error("Failed to send summary report email", "email", req.Email, "error", err)
			}
		}()
	}

	logger.L.Info("Calculate END",
		"email", req.Email,
		"transactions", summary.TotalTransactions,
		"gains", summary.Gains,
		"losses", summary.Losses,
		"duration", time.Since(overallStartTime))
	return result, nil
}

func (s *calculationServiceImpl) storeCalculation(requestHash string, req CalculationRequest, summary models.Summary, skippedRows int) error {
	_, err := database.DB.Exec(`INSERT INTO calculations
		(request_hash, email, tax_id, filer_name, exchange, transaction_count, skipped_row_count, error_count, gains, losses, net_position, staking_income, estimated_tax, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		requestHash, req.Email, req.TaxID, req.FilerName, strings.ToLower(req.Exchange),
		summary.TotalTransactions, skippedRows, len(summary.Errors),
		summary.Gains, summary.Losses, summary.NetPosition, summary.StakingIncome,
		summary.EstimatedTaxLiability, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("error inserting calculation record: %w", err)
	}
	return nil
}

func (s *calculationServiceImpl) RecentCalculations(limit int) ([]models.CalculationRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := database.DB.Query(`SELECT id, request_hash, email, tax_id, filer_name, exchange, transaction_count, skipped_row_count, error_count, gains, losses, net_position, staking_income, estimated_tax, created_at
		FROM calculations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying calculation records: %w", err)
	}
	defer rows.Close()

	var records []models.CalculationRecord
	for rows.Next() {
		var rec models.CalculationRecord
		scanErr := rows.Scan(&rec.ID, &rec.RequestHash, &rec.Email, &rec.TaxID, &rec.FilerName, &rec.Exchange,
			&rec.TransactionCount, &rec.SkippedRowCount, &rec.ErrorCount,
			&rec.Gains, &rec.Losses, &rec.NetPosition, &rec.StakingIncome, &rec.EstimatedTax, &rec.CreatedAt)
		if scanErr != nil {
			return nil, fmt.Errorf("error scanning calculation record: %w", scanErr)
		}
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over calculation records: %w", err)
	}
	return records, nil
}
