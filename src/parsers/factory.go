package parsers

import (
	"strings"

	"github.com/navrlluis/crypto-tax/src/parsers/binance"
)

// GetParser returns the parser for the given exchange export format.
// Binance is the only supported profile and doubles as the fallback for
// unrecognized sources.
func GetParser(source string) Parser {
	switch strings.ToLower(source) {
	case "binance":
		return binance.NewParser()
	default:
		return binance.NewParser()
	}
}
