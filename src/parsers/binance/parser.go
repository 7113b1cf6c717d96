package binance

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/navrlluis/crypto-tax/src/models"
	"github.com/shopspring/decimal"
)

// Binance exports use this layout; any fractional-second suffix is stripped
// before parsing.
const timeLayout = "2006-01-02 15:04:05"

// Accepted header names per canonical field, in priority order. Header
// matching is case-insensitive and the first matching non-empty column wins.
var (
	timestampAliases = []string{"date(utc)", "date", "utc_time"}
	assetAliases     = []string{"coin", "asset"}
	changeAliases    = []string{"change", "amount"}
	priceAliases     = []string{"price", "value"}
	operationAliases = []string{"operation", "type"}
)

type BinanceParser struct{}

func NewParser() *BinanceParser {
	return &BinanceParser{}
}

// Parse normalizes a Binance transaction export. A row that cannot be
// normalized is recorded as skipped and never aborts the batch; only a
// structural failure to read the input as CSV returns an error.
func (p *BinanceParser) Parse(file io.Reader) (*models.ParseResult, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	headerIdx := make(map[string]int, len(header))
	for i, h := range header {
		headerIdx[strings.ToLower(strings.TrimSpace(h))] = i
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read all CSV records: %w", err)
	}

	result := &models.ParseResult{}
	for i, record := range records {
		line := i + 2 // 1-based, header is line 1
		tx, reason := normalizeRow(headerIdx, record)
		if reason != "" {
			result.Skipped = append(result.Skipped, models.SkippedRow{Line: line, Reason: reason})
			continue
		}
		result.Transactions = append(result.Transactions, tx)
	}
	return result, nil
}

func normalizeRow(headerIdx map[string]int, record []string) (models.Transaction, string) {
	dateStr := resolveField(headerIdx, record, timestampAliases)
	asset := resolveField(headerIdx, record, assetAliases)
	changeStr := resolveField(headerIdx, record, changeAliases)
	if dateStr == "" || asset == "" || changeStr == "" {
		return models.Transaction{}, "missing timestamp, asset or amount"
	}

	if idx := strings.IndexByte(dateStr, '.'); idx >= 0 {
		dateStr = dateStr[:idx]
	}
	timestamp, err := time.Parse(timeLayout, dateStr)
	if err != nil {
		return models.Transaction{}, fmt.Sprintf("invalid timestamp %q", dateStr)
	}

	change, err := decimal.NewFromString(changeStr)
	if err != nil {
		return models.Transaction{}, fmt.Sprintf("invalid amount %q", changeStr)
	}
	if change.IsZero() {
		return models.Transaction{}, "zero amount"
	}

	price := decimal.Zero
	if priceStr := resolveField(headerIdx, record, priceAliases); priceStr != "" {
		if parsed, err := decimal.NewFromString(priceStr); err == nil {
			price = parsed
		}
	}

	return models.Transaction{
		Timestamp: timestamp,
		Asset:     asset,
		Kind:      classify(resolveField(headerIdx, record, operationAliases), change),
		Quantity:  change.Abs(),
		UnitPrice: price,
		Fee:       decimal.Zero,
	}, ""
}

// classify picks the transaction kind from the operation label, falling back
// to the sign of the quantity change when the label matches nothing.
func classify(operation string, change decimal.Decimal) models.TxKind {
	op := strings.ToLower(operation)
	switch {
	case strings.Contains(op, "buy"):
		return models.KindBuy
	case strings.Contains(op, "sell"):
		return models.KindSell
	case strings.Contains(op, "stake"), strings.Contains(op, "reward"):
		return models.KindStake
	case change.Sign() > 0:
		return models.KindBuy
	case change.Sign() < 0:
		return models.KindSell
	default:
		return models.KindTransfer
	}
}

func resolveField(headerIdx map[string]int, record []string, aliases []string) string {
	for _, name := range aliases {
		if idx, ok := headerIdx[name]; ok && idx < len(record) {
			if value := strings.TrimSpace(record[idx]); value != "" {
				return value
			}
		}
	}
	return ""
}
