package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Per-order outcomes of a copy run.
const (
	OutcomeCreated = "created"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// RunRecord is the audit trail of one payout copy run, recorded best-effort
// for manual reconciliation. It never feeds back into copy decisions.
type RunRecord struct {
	ID           uuid.UUID
	PayoutID     int64
	PayoutDate   string
	PayoutAmount string
	TotalFees    decimal.Decimal
	StartedAt    time.Time
	FinishedAt   time.Time
	Error        string
	Orders       []OrderResult
}

type OrderResult struct {
	OrderID       int64
	OrderNumber   int
	InvoiceNumber string
	Outcome       string
}
