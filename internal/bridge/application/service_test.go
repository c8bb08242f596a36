package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbridge/payout-bridge/internal/bridge/domain"
	shopify "github.com/finbridge/payout-bridge/internal/shopify/domain"
	xero "github.com/finbridge/payout-bridge/internal/xero/domain"
	"github.com/finbridge/payout-bridge/pkg/logging"
)

// --- fakes ---

type fakeSource struct {
	payouts   []shopify.Payout
	txns      map[int64][]shopify.Transaction
	orders    map[int64]shopify.Order
	customers map[int64]shopify.Customer
	variants  []shopify.Variant
}

func (f *fakeSource) GetPayout(_ context.Context, id int64) (shopify.Payout, error) {
	for _, p := range f.payouts {
		if p.ID == id {
			return p, nil
		}
	}
	return shopify.Payout{}, fmt.Errorf("payout %d not found", id)
}

func (f *fakeSource) GetPayoutByDate(_ context.Context, date string) (shopify.Payout, error) {
	var matched []shopify.Payout
	for _, p := range f.payouts {
		if p.Date == date {
			matched = append(matched, p)
		}
	}
	if len(matched) != 1 {
		return shopify.Payout{}, fmt.Errorf("unexpected number of payouts on %s: %d", date, len(matched))
	}
	return matched[0], nil
}

func (f *fakeSource) GetPayoutTransactions(_ context.Context, payoutID int64) ([]shopify.Transaction, error) {
	return f.txns[payoutID], nil
}

func (f *fakeSource) GetOrder(_ context.Context, id int64) (shopify.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return shopify.Order{}, fmt.Errorf("order %d not found", id)
	}
	return o, nil
}

func (f *fakeSource) GetCustomer(_ context.Context, id int64) (shopify.Customer, error) {
	c, ok := f.customers[id]
	if !ok {
		return shopify.Customer{}, fmt.Errorf("customer %d not found", id)
	}
	return c, nil
}

func (f *fakeSource) GetAllVariants(_ context.Context) ([]shopify.Variant, error) {
	return f.variants, nil
}

type fakeLedger struct {
	contacts        []xero.Contact
	invoices        map[string]xero.Invoice
	contactsCreated int
	contactsUpdated int
	failInvoice     string // CreateInvoice fails for this invoice number
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{invoices: map[string]xero.Invoice{}}
}

func (f *fakeLedger) FindContactsByName(_ context.Context, name string) ([]xero.Contact, error) {
	var out []xero.Contact
	for _, c := range f.contacts {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeLedger) CreateContact(_ context.Context, contact xero.Contact) (xero.Contact, error) {
	f.contactsCreated++
	contact.ID = fmt.Sprintf("c-%d", f.contactsCreated)
	f.contacts = append(f.contacts, contact)
	return contact, nil
}

func (f *fakeLedger) UpdateContact(_ context.Context, contactID string, contact xero.Contact) (xero.Contact, error) {
	f.contactsUpdated++
	for i, c := range f.contacts {
		if c.ID == contactID {
			contact.ID = contactID
			f.contacts[i] = contact
			return contact, nil
		}
	}
	return xero.Contact{}, fmt.Errorf("contact %s not found", contactID)
}

func (f *fakeLedger) GetInvoiceByNumber(_ context.Context, number string) (*xero.Invoice, error) {
	inv, ok := f.invoices[number]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

func (f *fakeLedger) CreateInvoice(_ context.Context, invoice xero.Invoice) (xero.Invoice, error) {
	if invoice.InvoiceNumber == f.failInvoice {
		return xero.Invoice{}, errors.New("validation error: item code not valid")
	}
	invoice.ID = fmt.Sprintf("inv-%d", len(f.invoices)+1)
	f.invoices[invoice.InvoiceNumber] = invoice
	return invoice, nil
}

type fakePublisher struct {
	invoiceEvents []domain.InvoiceCreated
	payoutEvents  []domain.PayoutCopied
}

func (f *fakePublisher) PublishInvoiceCreated(_ context.Context, ev domain.InvoiceCreated) error {
	f.invoiceEvents = append(f.invoiceEvents, ev)
	return nil
}

func (f *fakePublisher) PublishPayoutCopied(_ context.Context, ev domain.PayoutCopied) error {
	f.payoutEvents = append(f.payoutEvents, ev)
	return nil
}

type fakeRecorder struct {
	runs []domain.RunRecord
}

func (f *fakeRecorder) RecordRun(_ context.Context, rec domain.RunRecord) error {
	f.runs = append(f.runs, rec)
	return nil
}

type fakeMarker struct {
	seen   map[string]bool
	marked []string
}

func (f *fakeMarker) Seen(_ context.Context, invoiceNumber string) (bool, error) {
	return f.seen[invoiceNumber], nil
}

func (f *fakeMarker) Mark(_ context.Context, invoiceNumber string) error {
	f.marked = append(f.marked, invoiceNumber)
	return nil
}

// --- fixtures ---

// payoutFixture mirrors a real settlement: payout 854 dated 2020-11-18 for
// 118.81, settling orders 1001-1004 with fees summing to 3.49.
func payoutFixture() *fakeSource {
	processedAt := time.Date(2020, 11, 16, 9, 4, 17, 0, time.UTC)

	ada := shopify.Customer{ID: 77, FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}
	grace := shopify.Customer{ID: 78, FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com"}

	order := func(id int64, number int, customer shopify.Customer) shopify.Order {
		return shopify.Order{
			ID:          id,
			OrderNumber: number,
			ProcessedAt: processedAt,
			Customer:    customer,
			LineItems: []shopify.LineItem{
				{VariantID: int64ptr(501), Name: "Widget", SKU: "WID-1", Quantity: 1, Price: dec("29.00")},
			},
			ShippingLines: []shopify.ShippingLine{{Title: "Standard", Price: dec("3.50")}},
		}
	}

	charge := func(id, orderID int64, fee string) shopify.Transaction {
		return shopify.Transaction{
			ID: id, Type: "charge", PayoutID: 854,
			SourceOrderID: int64ptr(orderID),
			Amount:        dec("32.50"), Fee: dec(fee), Currency: "GBP",
		}
	}

	return &fakeSource{
		payouts: []shopify.Payout{
			{ID: 854, Status: "paid", Date: "2020-11-18", Amount: "118.81", Currency: "GBP"},
		},
		txns: map[int64][]shopify.Transaction{
			854: {
				charge(1, 9001, "0.87"),
				charge(2, 9002, "0.87"),
				charge(3, 9003, "0.88"),
				charge(4, 9004, "0.87"),
				// the settlement row itself: no source order, no fee
				{ID: 5, Type: "payout", PayoutID: 854, Amount: dec("-118.81"), Fee: dec("0.00"), Currency: "GBP"},
			},
		},
		orders: map[int64]shopify.Order{
			9001: order(9001, 1001, ada),
			9002: order(9002, 1002, grace),
			9003: order(9003, 1003, ada),
			9004: order(9004, 1004, grace),
		},
		customers: map[int64]shopify.Customer{77: ada, 78: grace},
		variants:  []shopify.Variant{{ID: 501, SKU: "WID-1"}},
	}
}

// --- tests ---

func TestCopyAllOrdersForPayout(t *testing.T) {
	source := payoutFixture()
	ledger := newFakeLedger()
	svc := NewCopyService(logging.New(), source, ledger, Config{})

	summary, err := svc.CopyAllOrdersForPayout(context.Background(), PayoutRef{Date: "2020-11-18"})
	require.NoError(t, err)

	assert.Equal(t, "2020-11-18", summary.Date)
	assert.Equal(t, "118.81", summary.PayoutAmount)
	assert.Equal(t, []int{1001, 1002, 1003, 1004}, summary.OrderNumbers)
	assert.True(t, summary.TotalFees.Equal(dec("3.49")), "total fees: got %s", summary.TotalFees)

	require.Len(t, ledger.invoices, 4)
	for _, n := range summary.OrderNumbers {
		inv, ok := ledger.invoices[InvoiceNumber(n)]
		require.True(t, ok, "invoice for order %d missing", n)
		require.Len(t, inv.LineItems, 2)
		assert.Equal(t, "WID-1", inv.LineItems[0].ItemCode)
		assert.Equal(t, DefaultShippingAccountCode, inv.LineItems[1].AccountCode)
	}

	// two distinct customers across four orders: exactly two contacts
	assert.Equal(t, 2, ledger.contactsCreated)
}

func TestCopyAllOrdersForPayoutByID(t *testing.T) {
	source := payoutFixture()
	svc := NewCopyService(logging.New(), source, newFakeLedger(), Config{})

	summary, err := svc.CopyAllOrdersForPayout(context.Background(), PayoutRef{ID: 854})
	require.NoError(t, err)
	assert.Equal(t, []int{1001, 1002, 1003, 1004}, summary.OrderNumbers)
}

func TestCopyAllOrdersForPayoutRefValidation(t *testing.T) {
	svc := NewCopyService(logging.New(), payoutFixture(), newFakeLedger(), Config{})

	_, err := svc.CopyAllOrdersForPayout(context.Background(), PayoutRef{})
	assert.ErrorIs(t, err, ErrPayoutRef)

	_, err = svc.CopyAllOrdersForPayout(context.Background(), PayoutRef{ID: 854, Date: "2020-11-18"})
	assert.ErrorIs(t, err, ErrPayoutRef)
}

func TestCopyOrderSkipsExistingInvoice(t *testing.T) {
	source := payoutFixture()
	ledger := newFakeLedger()
	ledger.invoices["INV-SHOPIFY-1001"] = xero.Invoice{InvoiceNumber: "INV-SHOPIFY-1001"}
	svc := NewCopyService(logging.New(), source, ledger, Config{})

	require.NoError(t, svc.CopyOrder(context.Background(), 9001))

	// untouched: no contact was resolved, no invoice recreated
	assert.Equal(t, 0, ledger.contactsCreated)
	assert.Len(t, ledger.invoices, 1)
}

func TestCopyAllOrdersIdempotentRerun(t *testing.T) {
	source := payoutFixture()
	ledger := newFakeLedger()
	svc := NewCopyService(logging.New(), source, ledger, Config{})

	_, err := svc.CopyAllOrdersForPayout(context.Background(), PayoutRef{Date: "2020-11-18"})
	require.NoError(t, err)

	// a second run over the same payout skips every order and creates nothing new
	summary, err := svc.CopyAllOrdersForPayout(context.Background(), PayoutRef{Date: "2020-11-18"})
	require.NoError(t, err)
	assert.Equal(t, []int{1001, 1002, 1003, 1004}, summary.OrderNumbers)
	assert.Len(t, ledger.invoices, 4)
	assert.Equal(t, 2, ledger.contactsCreated)
}

func TestCopyAllOrdersHaltsAtFirstFailure(t *testing.T) {
	source := payoutFixture()
	ledger := newFakeLedger()
	ledger.failInvoice = "INV-SHOPIFY-1002"
	recorder := &fakeRecorder{}
	svc := NewCopyService(logging.New(), source, ledger, Config{Recorder: recorder})

	_, err := svc.CopyAllOrdersForPayout(context.Background(), PayoutRef{Date: "2020-11-18"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copy order 9002")

	// the first order's invoice stays created, later orders were never reached
	assert.Len(t, ledger.invoices, 1)
	_, ok := ledger.invoices["INV-SHOPIFY-1001"]
	assert.True(t, ok)

	require.Len(t, recorder.runs, 1)
	rec := recorder.runs[0]
	assert.NotEmpty(t, rec.Error)
	require.Len(t, rec.Orders, 2)
	assert.Equal(t, domain.OutcomeCreated, rec.Orders[0].Outcome)
	assert.Equal(t, domain.OutcomeFailed, rec.Orders[1].Outcome)
}

func TestCopyAllOrdersPublishesEvents(t *testing.T) {
	source := payoutFixture()
	pub := &fakePublisher{}
	recorder := &fakeRecorder{}
	svc := NewCopyService(logging.New(), source, newFakeLedger(), Config{Publisher: pub, Recorder: recorder})

	summary, err := svc.CopyAllOrdersForPayout(context.Background(), PayoutRef{Date: "2020-11-18"})
	require.NoError(t, err)

	require.Len(t, pub.invoiceEvents, 4)
	assert.Equal(t, "INV-SHOPIFY-1001", pub.invoiceEvents[0].InvoiceNumber)
	require.Len(t, pub.payoutEvents, 1)
	assert.Equal(t, int64(854), pub.payoutEvents[0].PayoutID)
	assert.Equal(t, summary, pub.payoutEvents[0].Summary)

	require.Len(t, recorder.runs, 1)
	rec := recorder.runs[0]
	assert.Equal(t, int64(854), rec.PayoutID)
	assert.Equal(t, "118.81", rec.PayoutAmount)
	assert.Empty(t, rec.Error)
	require.Len(t, rec.Orders, 4)
	for _, o := range rec.Orders {
		assert.Equal(t, domain.OutcomeCreated, o.Outcome)
	}
}

func TestCopyOrderMarkerShortCircuit(t *testing.T) {
	source := payoutFixture()
	ledger := newFakeLedger()
	marker := &fakeMarker{seen: map[string]bool{"INV-SHOPIFY-1001": true}}
	svc := NewCopyService(logging.New(), source, ledger, Config{Marker: marker})

	require.NoError(t, svc.CopyOrder(context.Background(), 9001))
	assert.Empty(t, ledger.invoices)

	require.NoError(t, svc.CopyOrder(context.Background(), 9002))
	assert.Len(t, ledger.invoices, 1)
	assert.Equal(t, []string{"INV-SHOPIFY-1002"}, marker.marked)
}

func TestCopyCustomerUpdate(t *testing.T) {
	source := payoutFixture()
	ledger := newFakeLedger()
	ledger.contacts = []xero.Contact{{ID: "c-0", Name: "Ada Lovelace", EmailAddress: "old@example.com"}}
	svc := NewCopyService(logging.New(), source, ledger, Config{})

	contact, err := svc.CopyCustomer(context.Background(), 77, true)
	require.NoError(t, err)
	assert.Equal(t, "c-0", contact.ID)
	assert.Equal(t, "ada@example.com", contact.EmailAddress)
	assert.Equal(t, 1, ledger.contactsUpdated)
	assert.Equal(t, 0, ledger.contactsCreated)
}

func TestCopyOrderDeletedProduct(t *testing.T) {
	source := payoutFixture()
	retired := source.orders[9001]
	retired.LineItems = []shopify.LineItem{{VariantID: nil, Name: "Retired Widget", Quantity: 1, Price: dec("5.00")}}
	source.orders[9001] = retired

	svc := NewCopyService(logging.New(), source, newFakeLedger(), Config{})
	err := svc.CopyOrder(context.Background(), 9001)
	require.ErrorIs(t, err, ErrProductDeleted)

	svc = NewCopyService(logging.New(), source, newFakeLedger(), Config{
		DeletedProducts: map[string]string{"Retired Widget": "WID-OLD"},
	})
	require.NoError(t, svc.CopyOrder(context.Background(), 9001))
}
