package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID             int64           `json:"id"`
	OrderNumber    int             `json:"order_number"`
	ProcessedAt    time.Time       `json:"processed_at"`
	Customer       Customer        `json:"customer"`
	LineItems      []LineItem      `json:"line_items"`
	ShippingLines  []ShippingLine  `json:"shipping_lines"`
	TotalDiscounts decimal.Decimal `json:"total_discounts"`
	TotalTax       decimal.Decimal `json:"total_tax"`
}

// LineItem is one purchased product line. VariantID is nil when the product
// has since been deleted from the shop; SKU resolution then falls back to an
// explicit product-name map supplied by the operator.
type LineItem struct {
	VariantID           *int64               `json:"variant_id"`
	Name                string               `json:"name"`
	SKU                 string               `json:"sku"`
	Quantity            int                  `json:"quantity"`
	Price               decimal.Decimal      `json:"price"`
	DiscountAllocations []DiscountAllocation `json:"discount_allocations"`
}

type ShippingLine struct {
	Title               string               `json:"title"`
	Price               decimal.Decimal      `json:"price"`
	DiscountAllocations []DiscountAllocation `json:"discount_allocations"`
}

type DiscountAllocation struct {
	Amount decimal.Decimal `json:"amount"`
}

type Customer struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

type Variant struct {
	ID  int64  `json:"id"`
	SKU string `json:"sku"`
}

type Product struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}
