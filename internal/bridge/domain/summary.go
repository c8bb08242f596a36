package domain

import "github.com/shopspring/decimal"

// PayoutSummary is the reconciliation result handed back to the caller after
// a payout copy. PayoutAmount is the payout's amount exactly as the source
// reported it; TotalFees is the sum over every transaction in the payout,
// including rows that did not produce an invoice.
type PayoutSummary struct {
	Date         string          `json:"date"`
	PayoutAmount string          `json:"payout_amount"`
	OrderNumbers []int           `json:"order_numbers"`
	TotalFees    decimal.Decimal `json:"total_fees"`
}
