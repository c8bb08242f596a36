package domain

import "github.com/shopspring/decimal"

// Payout is a Shopify Payments settlement batch. Amount is kept as the raw
// string the API reports; reconciliation summaries must echo it unmapped.
type Payout struct {
	ID       int64  `json:"id"`
	Status   string `json:"status"`
	Date     string `json:"date"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// Transaction is one balance movement inside a payout. Rows of type charge
// carry a SourceOrderID; payout/refund/adjustment rows do not, but their fees
// still count toward the payout's total fees.
type Transaction struct {
	ID            int64           `json:"id"`
	Type          string          `json:"type"`
	PayoutID      int64           `json:"payout_id"`
	SourceOrderID *int64          `json:"source_order_id"`
	Amount        decimal.Decimal `json:"amount"`
	Fee           decimal.Decimal `json:"fee"`
	Currency      string          `json:"currency"`
}
