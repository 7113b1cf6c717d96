package parsers

import (
	"io"

	"github.com/navrlluis/crypto-tax/src/models"
)

type Parser interface {
	Parse(file io.Reader) (*models.ParseResult, error)
}
