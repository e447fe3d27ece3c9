package models

import "github.com/shopspring/decimal"

func init() {
	// Amounts go over the wire as plain JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

var (
	MinTargetAmount     = decimal.NewFromInt(1000)
	MaxTargetAmount     = decimal.NewFromInt(100000000)
	MinInvestmentAmount = decimal.NewFromInt(100)
)
