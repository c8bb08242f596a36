package application

import (
	"context"

	"github.com/finbridge/payout-bridge/internal/bridge/domain"
	shopify "github.com/finbridge/payout-bridge/internal/shopify/domain"
	xero "github.com/finbridge/payout-bridge/internal/xero/domain"
)

// OrderSource is the order/payment side: payouts, their transactions and the
// orders they settle.
type OrderSource interface {
	GetPayout(ctx context.Context, id int64) (shopify.Payout, error)
	GetPayoutByDate(ctx context.Context, date string) (shopify.Payout, error)
	GetPayoutTransactions(ctx context.Context, payoutID int64) ([]shopify.Transaction, error)
	GetOrder(ctx context.Context, id int64) (shopify.Order, error)
	GetCustomer(ctx context.Context, id int64) (shopify.Customer, error)
	GetAllVariants(ctx context.Context) ([]shopify.Variant, error)
}

// Ledger is the accounting side: contacts and invoices.
type Ledger interface {
	FindContactsByName(ctx context.Context, name string) ([]xero.Contact, error)
	CreateContact(ctx context.Context, contact xero.Contact) (xero.Contact, error)
	UpdateContact(ctx context.Context, contactID string, contact xero.Contact) (xero.Contact, error)
	GetInvoiceByNumber(ctx context.Context, number string) (*xero.Invoice, error)
	CreateInvoice(ctx context.Context, invoice xero.Invoice) (xero.Invoice, error)
}

// Publisher emits copy notifications. Implementations must not block the
// pipeline on broker failure; the service logs and continues regardless.
type Publisher interface {
	PublishInvoiceCreated(ctx context.Context, event domain.InvoiceCreated) error
	PublishPayoutCopied(ctx context.Context, event domain.PayoutCopied) error
}

// RunRecorder persists the audit trail of a payout copy run.
type RunRecorder interface {
	RecordRun(ctx context.Context, rec domain.RunRecord) error
}

// Marker remembers invoices copied by earlier runs so the ledger lookup can
// be skipped. Seen is a pure read; Mark happens only once the invoice exists.
type Marker interface {
	Seen(ctx context.Context, invoiceNumber string) (bool, error)
	Mark(ctx context.Context, invoiceNumber string) error
}
