// Package domain holds the Xero accounting types the bridge writes to:
// contacts, invoices and catalog items. Field names and JSON casing follow
// the Xero Accounting API.
package domain

import "github.com/shopspring/decimal"

const (
	InvoiceTypeAccRec       = "ACCREC"
	InvoiceStatusAuthorised = "AUTHORISED"
)

type Contact struct {
	ID            string `json:"ContactID,omitempty"`
	Name          string `json:"Name"`
	FirstName     string `json:"FirstName,omitempty"`
	LastName      string `json:"LastName,omitempty"`
	EmailAddress  string `json:"EmailAddress,omitempty"`
	IsCustomer    bool   `json:"IsCustomer,omitempty"`
	ContactNumber string `json:"ContactNumber,omitempty"`
}

// InvoiceLine is one billable line. SKU-mapped lines carry an ItemCode and
// inherit the account from the catalog item; shipping lines carry an explicit
// AccountCode instead.
type InvoiceLine struct {
	ItemCode       string          `json:"ItemCode,omitempty"`
	Description    string          `json:"Description,omitempty"`
	Quantity       decimal.Decimal `json:"Quantity"`
	UnitAmount     decimal.Decimal `json:"UnitAmount"`
	DiscountAmount decimal.Decimal `json:"DiscountAmount"`
	AccountCode    string          `json:"AccountCode,omitempty"`
}

type Invoice struct {
	ID            string        `json:"InvoiceID,omitempty"`
	Type          string        `json:"Type"`
	InvoiceNumber string        `json:"InvoiceNumber,omitempty"`
	Status        string        `json:"Status,omitempty"`
	Date          string        `json:"Date,omitempty"`
	DueDate       string        `json:"DueDate,omitempty"`
	Reference     string        `json:"Reference,omitempty"`
	Contact       Contact       `json:"Contact"`
	LineItems     []InvoiceLine `json:"LineItems"`
}

type Item struct {
	ID   string `json:"ItemID,omitempty"`
	Code string `json:"Code"`
	Name string `json:"Name,omitempty"`
}
