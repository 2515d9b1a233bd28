package parsers

import (
	"io"

	"github.com/username/trackfolio/src/models"
)

// Parser converts one broker/exchange statement format into canonical
// transactions. Parsers own all source-specific classification.
type Parser interface {
	Parse(file io.Reader) ([]models.CanonicalTransaction, error)
}
