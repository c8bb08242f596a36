package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/finbridge/payout-bridge/internal/bridge/domain"
	shopify "github.com/finbridge/payout-bridge/internal/shopify/domain"
	xero "github.com/finbridge/payout-bridge/internal/xero/domain"
)

var ErrPayoutRef = errors.New("exactly one of payout id and payout date must be set")

// PayoutRef selects the payout to copy, by ID or by date. Exactly one field
// must be set.
type PayoutRef struct {
	ID   int64  `json:"payout_id,omitempty"`
	Date string `json:"payout_date,omitempty"`
}

// Config carries the per-deployment knobs and the optional collaborators.
// A nil Publisher, Recorder or Marker disables that concern.
type Config struct {
	ShippingAccountCode string
	// DeletedProducts maps product names to ledger item codes for products
	// removed from the shop after they were sold.
	DeletedProducts map[string]string
	Publisher       Publisher
	Recorder        RunRecorder
	Marker          Marker
}

// CopyService drives the payout copy pipeline: fetch payout, fetch orders,
// map each order to an invoice, resolve its contact and create the invoice,
// accumulating a PayoutSummary. Strictly sequential; the run halts at the
// first failing order and earlier writes stay in place.
type CopyService struct {
	log             *slog.Logger
	source          OrderSource
	ledger          Ledger
	mapper          *Mapper
	deletedProducts map[string]string
	publisher       Publisher
	recorder        RunRecorder
	marker          Marker
	tracer          trace.Tracer
}

func NewCopyService(log *slog.Logger, source OrderSource, ledger Ledger, cfg Config) *CopyService {
	return &CopyService{
		log:             log,
		source:          source,
		ledger:          ledger,
		mapper:          NewMapper(cfg.ShippingAccountCode),
		deletedProducts: cfg.DeletedProducts,
		publisher:       cfg.Publisher,
		recorder:        cfg.Recorder,
		marker:          cfg.Marker,
		tracer:          otel.Tracer("payout-copy"),
	}
}

// CopyAllOrdersForPayout copies every order settled by the payout and
// returns the reconciliation summary. TotalFees sums the fees of all payout
// transactions, including rows with no source order.
func (s *CopyService) CopyAllOrdersForPayout(ctx context.Context, ref PayoutRef) (domain.PayoutSummary, error) {
	ctx, span := s.tracer.Start(ctx, "CopyAllOrdersForPayout")
	defer span.End()

	if (ref.ID == 0) == (ref.Date == "") {
		return domain.PayoutSummary{}, ErrPayoutRef
	}

	var payout shopify.Payout
	var err error
	if ref.ID != 0 {
		payout, err = s.source.GetPayout(ctx, ref.ID)
	} else {
		payout, err = s.source.GetPayoutByDate(ctx, ref.Date)
	}
	if err != nil {
		return domain.PayoutSummary{}, err
	}

	txns, err := s.source.GetPayoutTransactions(ctx, payout.ID)
	if err != nil {
		return domain.PayoutSummary{}, err
	}

	totalFees := decimal.Zero
	seen := map[int64]bool{}
	var orderIDs []int64
	for _, t := range txns {
		totalFees = totalFees.Add(t.Fee)
		if t.SourceOrderID == nil || seen[*t.SourceOrderID] {
			continue
		}
		seen[*t.SourceOrderID] = true
		orderIDs = append(orderIDs, *t.SourceOrderID)
	}
	sort.Slice(orderIDs, func(i, j int) bool { return orderIDs[i] < orderIDs[j] })

	skuByVariant, err := s.variantSKUs(ctx)
	if err != nil {
		return domain.PayoutSummary{}, err
	}

	rec := domain.RunRecord{
		ID:           uuid.New(),
		PayoutID:     payout.ID,
		PayoutDate:   payout.Date,
		PayoutAmount: payout.Amount,
		TotalFees:    totalFees,
		StartedAt:    time.Now().UTC(),
	}

	var numbers []int
	var runErr error
	for _, orderID := range orderIDs {
		order, outcome, err := s.copyOrder(ctx, orderID, skuByVariant)
		rec.Orders = append(rec.Orders, domain.OrderResult{
			OrderID:       orderID,
			OrderNumber:   order.OrderNumber,
			InvoiceNumber: InvoiceNumber(order.OrderNumber),
			Outcome:       outcome,
		})
		if err != nil {
			runErr = fmt.Errorf("copy order %d: %w", orderID, err)
			break
		}
		numbers = append(numbers, order.OrderNumber)
	}
	rec.FinishedAt = time.Now().UTC()
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	s.record(ctx, rec)

	if runErr != nil {
		return domain.PayoutSummary{}, runErr
	}

	sort.Ints(numbers)
	summary := domain.PayoutSummary{
		Date:         payout.Date,
		PayoutAmount: payout.Amount,
		OrderNumbers: numbers,
		TotalFees:    totalFees,
	}

	if s.publisher != nil {
		if err := s.publisher.PublishPayoutCopied(ctx, domain.PayoutCopied{PayoutID: payout.ID, Summary: summary}); err != nil {
			s.log.Error("publish payout copied failed", "payout_id", payout.ID, "err", err)
		}
	}
	s.log.Info("payout copied",
		"payout_id", payout.ID,
		"date", summary.Date,
		"orders", len(summary.OrderNumbers),
		"total_fees", summary.TotalFees.String(),
	)
	return summary, nil
}

// CopyOrders copies the given orders sequentially, halting at the first
// failure.
func (s *CopyService) CopyOrders(ctx context.Context, orderIDs []int64) error {
	skuByVariant, err := s.variantSKUs(ctx)
	if err != nil {
		return err
	}
	for _, id := range orderIDs {
		if _, _, err := s.copyOrder(ctx, id, skuByVariant); err != nil {
			return fmt.Errorf("copy order %d: %w", id, err)
		}
	}
	return nil
}

// CopyOrder copies a single order into the ledger.
func (s *CopyService) CopyOrder(ctx context.Context, orderID int64) error {
	skuByVariant, err := s.variantSKUs(ctx)
	if err != nil {
		return err
	}
	_, _, err = s.copyOrder(ctx, orderID, skuByVariant)
	return err
}

// CopyCustomer mirrors one source customer into the ledger. With update set,
// an existing contact of the same name is overwritten instead of duplicated.
func (s *CopyService) CopyCustomer(ctx context.Context, customerID int64, update bool) (xero.Contact, error) {
	customer, err := s.source.GetCustomer(ctx, customerID)
	if err != nil {
		return xero.Contact{}, err
	}
	return s.copyCustomer(ctx, customer, update)
}

func (s *CopyService) copyOrder(ctx context.Context, orderID int64, skuByVariant map[int64]string) (shopify.Order, string, error) {
	ctx, span := s.tracer.Start(ctx, "CopyOrder")
	defer span.End()

	s.log.Debug("copying order", "order_id", orderID)
	order, err := s.source.GetOrder(ctx, orderID)
	if err != nil {
		return shopify.Order{}, domain.OutcomeFailed, err
	}
	invoiceNumber := InvoiceNumber(order.OrderNumber)

	if s.marker != nil {
		copied, err := s.marker.Seen(ctx, invoiceNumber)
		if err != nil {
			s.log.Error("copy marker check failed", "invoice_number", invoiceNumber, "err", err)
		} else if copied {
			s.log.Warn("invoice already copied", "invoice_number", invoiceNumber)
			return order, domain.OutcomeSkipped, nil
		}
	}

	existing, err := s.ledger.GetInvoiceByNumber(ctx, invoiceNumber)
	if err != nil {
		return order, domain.OutcomeFailed, err
	}
	if existing != nil {
		s.log.Warn("invoice already exists", "invoice_number", invoiceNumber)
		s.mark(ctx, invoiceNumber)
		return order, domain.OutcomeSkipped, nil
	}

	contact, err := s.resolveContact(ctx, order.Customer)
	if err != nil {
		return order, domain.OutcomeFailed, err
	}

	invoice, err := s.mapper.MapOrder(order, contact, skuByVariant, s.deletedProducts)
	if err != nil {
		return order, domain.OutcomeFailed, err
	}

	if _, err := s.ledger.CreateInvoice(ctx, invoice); err != nil {
		return order, domain.OutcomeFailed, err
	}
	s.mark(ctx, invoiceNumber)

	if s.publisher != nil {
		event := domain.InvoiceCreated{
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			InvoiceNumber: invoiceNumber,
			ContactName:   contact.Name,
		}
		if err := s.publisher.PublishInvoiceCreated(ctx, event); err != nil {
			s.log.Error("publish invoice created failed", "invoice_number", invoiceNumber, "err", err)
		}
	}

	s.log.Info("invoice created", "invoice_number", invoiceNumber, "order_number", order.OrderNumber)
	return order, domain.OutcomeCreated, nil
}

// resolveContact finds the ledger contact for the order's customer by name,
// creating it on first sight. Repeated resolution of the same customer
// always lands on the same contact.
func (s *CopyService) resolveContact(ctx context.Context, customer shopify.Customer) (xero.Contact, error) {
	name := contactName(customer)
	contacts, err := s.ledger.FindContactsByName(ctx, name)
	if err != nil {
		return xero.Contact{}, err
	}
	if len(contacts) > 0 {
		return contacts[0], nil
	}
	return s.copyCustomer(ctx, customer, false)
}

func (s *CopyService) copyCustomer(ctx context.Context, customer shopify.Customer, update bool) (xero.Contact, error) {
	name := contactName(customer)
	contact := xero.Contact{
		Name:          name,
		FirstName:     customer.FirstName,
		LastName:      customer.LastName,
		EmailAddress:  customer.Email,
		IsCustomer:    true,
		ContactNumber: strconv.FormatInt(customer.ID, 10),
	}

	if update {
		existing, err := s.ledger.FindContactsByName(ctx, name)
		if err != nil {
			return xero.Contact{}, err
		}
		if len(existing) > 0 {
			return s.ledger.UpdateContact(ctx, existing[0].ID, contact)
		}
	}

	s.log.Info("creating contact", "name", name)
	return s.ledger.CreateContact(ctx, contact)
}

func (s *CopyService) variantSKUs(ctx context.Context) (map[int64]string, error) {
	variants, err := s.source.GetAllVariants(ctx)
	if err != nil {
		return nil, err
	}
	skuByVariant := make(map[int64]string, len(variants))
	for _, v := range variants {
		skuByVariant[v.ID] = v.SKU
	}
	return skuByVariant, nil
}

func (s *CopyService) mark(ctx context.Context, invoiceNumber string) {
	if s.marker == nil {
		return
	}
	if err := s.marker.Mark(ctx, invoiceNumber); err != nil {
		s.log.Error("copy marker set failed", "invoice_number", invoiceNumber, "err", err)
	}
}

func (s *CopyService) record(ctx context.Context, rec domain.RunRecord) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordRun(ctx, rec); err != nil {
		s.log.Error("run record failed", "run_id", rec.ID, "err", err)
	}
}

func contactName(customer shopify.Customer) string {
	return strings.TrimSpace(customer.FirstName) + " " + strings.TrimSpace(customer.LastName)
}
