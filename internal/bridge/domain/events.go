package domain

// Notification events published after successful writes to the ledger.
// Consumers must treat them as at-most-once hints, not a system of record.

type InvoiceCreated struct {
	OrderID       int64  `json:"order_id"`
	OrderNumber   int    `json:"order_number"`
	InvoiceNumber string `json:"invoice_number"`
	ContactName   string `json:"contact_name"`
}

type PayoutCopied struct {
	PayoutID int64         `json:"payout_id"`
	Summary  PayoutSummary `json:"summary"`
}
