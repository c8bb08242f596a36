package application

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	shopify "github.com/finbridge/payout-bridge/internal/shopify/domain"
	xero "github.com/finbridge/payout-bridge/internal/xero/domain"
)

// DefaultShippingAccountCode is the ledger account shipping lines post to
// unless the operator configures another.
const DefaultShippingAccountCode = "425"

const invoiceNumberPrefix = "INV-SHOPIFY-"

var (
	// ErrProductDeleted: the order line's product no longer exists in the
	// shop and the operator supplied no item code for it.
	ErrProductDeleted = errors.New("product deleted and missing from deleted products map")
	// ErrSKUNotSet: the variant exists but has an empty SKU in the shop.
	ErrSKUNotSet = errors.New("sku not set in shop")
)

// InvoiceNumber derives the ledger invoice number for a source order. The
// scheme is what makes re-runs idempotent, so it must never change shape.
func InvoiceNumber(orderNumber int) string {
	return fmt.Sprintf("%s%d", invoiceNumberPrefix, orderNumber)
}

// Mapper turns one source order into a ledger invoice draft.
type Mapper struct {
	shippingAccountCode string
}

func NewMapper(shippingAccountCode string) *Mapper {
	if shippingAccountCode == "" {
		shippingAccountCode = DefaultShippingAccountCode
	}
	return &Mapper{shippingAccountCode: shippingAccountCode}
}

// MapOrder builds the invoice draft: one line per order line item matched to
// its catalog item code, plus one "Postage" line per shipping line posted to
// the shipping account. Discount allocations are summed per line as-is, with
// no apportionment across lines. Whether an item code actually exists in the
// ledger catalog is not checked here; the ledger rejects at create time.
func (m *Mapper) MapOrder(
	order shopify.Order,
	contact xero.Contact,
	skuByVariant map[int64]string,
	deletedProducts map[string]string,
) (xero.Invoice, error) {
	lines := make([]xero.InvoiceLine, 0, len(order.LineItems)+len(order.ShippingLines))

	for _, li := range order.LineItems {
		var itemCode string
		if li.VariantID == nil {
			code, ok := deletedProducts[li.Name]
			if !ok {
				return xero.Invoice{}, fmt.Errorf("%w: %q", ErrProductDeleted, li.Name)
			}
			itemCode = code
		} else {
			sku := skuByVariant[*li.VariantID]
			if sku == "" {
				return xero.Invoice{}, fmt.Errorf("%w: %q", ErrSKUNotSet, li.Name)
			}
			itemCode = sku
		}
		lines = append(lines, xero.InvoiceLine{
			ItemCode:       itemCode,
			Quantity:       decimal.NewFromInt(int64(li.Quantity)),
			UnitAmount:     li.Price,
			DiscountAmount: sumAllocations(li.DiscountAllocations),
		})
	}

	for _, sl := range order.ShippingLines {
		lines = append(lines, xero.InvoiceLine{
			Description:    "Postage",
			Quantity:       decimal.NewFromInt(1),
			UnitAmount:     sl.Price,
			AccountCode:    m.shippingAccountCode,
			DiscountAmount: sumAllocations(sl.DiscountAllocations),
		})
	}

	date := order.ProcessedAt.Format("2006-01-02")
	return xero.Invoice{
		Type:          xero.InvoiceTypeAccRec,
		Status:        xero.InvoiceStatusAuthorised,
		InvoiceNumber: InvoiceNumber(order.OrderNumber),
		Date:          date,
		DueDate:       date,
		Reference:     fmt.Sprintf("Shopify order #%d", order.OrderNumber),
		Contact:       contact,
		LineItems:     lines,
	}, nil
}

func sumAllocations(allocations []shopify.DiscountAllocation) decimal.Decimal {
	total := decimal.Zero
	for _, a := range allocations {
		total = total.Add(a.Amount)
	}
	return total
}
