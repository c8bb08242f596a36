// Package rest is a Xero Accounting API client scoped to contacts, invoices
// and items. Token refresh is the caller's concern: the client is handed a
// bearer token and a tenant id at construction.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/finbridge/payout-bridge/internal/xero/domain"
)

const DefaultBaseURL = "https://api.xero.com/api.xro/2.0"

type Config struct {
	AccessToken string
	TenantID    string
	// BaseURL defaults to DefaultBaseURL; tests point it at a local server.
	BaseURL string
}

type Client struct {
	log  *slog.Logger
	cfg  Config
	http *http.Client
}

func NewClient(log *slog.Logger, cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Client{
		log:  log,
		cfg:  cfg,
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// FindContactsByName runs a where-filtered contact lookup on the exact name.
func (c *Client) FindContactsByName(ctx context.Context, name string) ([]domain.Contact, error) {
	var resp struct {
		Contacts []domain.Contact `json:"Contacts"`
	}
	query := url.Values{"where": {fmt.Sprintf(`Name="%s"`, name)}}
	if err := c.do(ctx, http.MethodGet, "/Contacts?"+query.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Contacts, nil
}

func (c *Client) GetAllContacts(ctx context.Context) ([]domain.Contact, error) {
	var resp struct {
		Contacts []domain.Contact `json:"Contacts"`
	}
	if err := c.do(ctx, http.MethodGet, "/Contacts", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Contacts, nil
}

func (c *Client) CreateContact(ctx context.Context, contact domain.Contact) (domain.Contact, error) {
	body := struct {
		Contacts []domain.Contact `json:"Contacts"`
	}{Contacts: []domain.Contact{contact}}

	var resp struct {
		Contacts []domain.Contact `json:"Contacts"`
	}
	if err := c.do(ctx, http.MethodPut, "/Contacts", body, &resp); err != nil {
		return domain.Contact{}, err
	}
	if len(resp.Contacts) == 0 {
		return domain.Contact{}, fmt.Errorf("xero: create contact %q: empty response", contact.Name)
	}
	return resp.Contacts[0], nil
}

func (c *Client) UpdateContact(ctx context.Context, contactID string, contact domain.Contact) (domain.Contact, error) {
	body := struct {
		Contacts []domain.Contact `json:"Contacts"`
	}{Contacts: []domain.Contact{contact}}

	var resp struct {
		Contacts []domain.Contact `json:"Contacts"`
	}
	if err := c.do(ctx, http.MethodPost, "/Contacts/"+contactID, body, &resp); err != nil {
		return domain.Contact{}, err
	}
	if len(resp.Contacts) == 0 {
		return domain.Contact{}, fmt.Errorf("xero: update contact %s: empty response", contactID)
	}
	return resp.Contacts[0], nil
}

// GetInvoiceByNumber returns nil when no invoice carries the number.
func (c *Client) GetInvoiceByNumber(ctx context.Context, number string) (*domain.Invoice, error) {
	var resp struct {
		Invoices []domain.Invoice `json:"Invoices"`
	}
	query := url.Values{"InvoiceNumbers": {number}}
	if err := c.do(ctx, http.MethodGet, "/Invoices?"+query.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Invoices) == 0 {
		return nil, nil
	}
	return &resp.Invoices[0], nil
}

func (c *Client) CreateInvoice(ctx context.Context, invoice domain.Invoice) (domain.Invoice, error) {
	body := struct {
		Invoices []domain.Invoice `json:"Invoices"`
	}{Invoices: []domain.Invoice{invoice}}

	var resp struct {
		Invoices []domain.Invoice `json:"Invoices"`
	}
	if err := c.do(ctx, http.MethodPut, "/Invoices", body, &resp); err != nil {
		return domain.Invoice{}, err
	}
	if len(resp.Invoices) == 0 {
		return domain.Invoice{}, fmt.Errorf("xero: create invoice %s: empty response", invoice.InvoiceNumber)
	}
	return resp.Invoices[0], nil
}

// ListItems exposes the product catalog for the manual item-code
// precondition check; every SKU on an order must already exist here.
func (c *Client) ListItems(ctx context.Context) ([]domain.Item, error) {
	var resp struct {
		Items []domain.Item `json:"Items"`
	}
	if err := c.do(ctx, http.MethodGet, "/Items", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	req.Header.Set("Xero-Tenant-Id", c.cfg.TenantID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("xero: %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
