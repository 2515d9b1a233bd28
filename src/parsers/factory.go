package parsers

import (
	"fmt"

	"github.com/username/trackfolio/src/parsers/degiro"
	"github.com/username/trackfolio/src/parsers/ibkr"
	"github.com/username/trackfolio/src/parsers/krakencsv"
)

func GetParser(source string) (Parser, error) {
	switch source {
	case "degiro":
		return degiro.NewParser(), nil
	case "ibkr":
		return ibkr.NewParser(), nil
	case "kraken":
		return krakencsv.NewParser(), nil
	default:
		return nil, fmt.Errorf("no parser available for source: %s", source)
	}
}
