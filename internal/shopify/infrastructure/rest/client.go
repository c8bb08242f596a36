// Package rest is a minimal Shopify Admin API client covering the read
// surface the payout copy needs: payouts, payout transactions, orders,
// customers, products and variants.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/finbridge/payout-bridge/internal/shopify/domain"
)

const DefaultAPIVersion = "2021-10"

var ErrUnexpectedPayoutCount = errors.New("unexpected number of payouts for date")

type Config struct {
	// ShopURL is the myshopify domain, e.g. "example.myshopify.com".
	ShopURL     string
	AccessToken string
	// APIVersion defaults to DefaultAPIVersion when empty.
	APIVersion string
	// BaseURL overrides the https://<ShopURL> base, used by tests.
	BaseURL string
}

type Client struct {
	log  *slog.Logger
	cfg  Config
	http *http.Client
}

func NewClient(log *slog.Logger, cfg Config) *Client {
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://" + cfg.ShopURL
	}
	return &Client{
		log:  log,
		cfg:  cfg,
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) GetPayout(ctx context.Context, id int64) (domain.Payout, error) {
	var resp struct {
		Payout domain.Payout `json:"payout"`
	}
	u := c.url(fmt.Sprintf("/shopify_payments/payouts/%d.json", id), nil)
	if _, err := c.get(ctx, u, &resp); err != nil {
		return domain.Payout{}, err
	}
	return resp.Payout, nil
}

// GetPayoutByDate requires the date to match exactly one payout; anything
// else is an ErrUnexpectedPayoutCount.
func (c *Client) GetPayoutByDate(ctx context.Context, date string) (domain.Payout, error) {
	payouts, err := c.listPayouts(ctx, url.Values{"date": {date}})
	if err != nil {
		return domain.Payout{}, err
	}
	if len(payouts) != 1 {
		return domain.Payout{}, fmt.Errorf("%w: %s matched %d", ErrUnexpectedPayoutCount, date, len(payouts))
	}
	return payouts[0], nil
}

func (c *Client) GetAllPayouts(ctx context.Context) ([]domain.Payout, error) {
	return c.listPayouts(ctx, nil)
}

func (c *Client) listPayouts(ctx context.Context, query url.Values) ([]domain.Payout, error) {
	var out []domain.Payout
	u := c.url("/shopify_payments/payouts.json", query)
	for u != "" {
		var page struct {
			Payouts []domain.Payout `json:"payouts"`
		}
		next, err := c.get(ctx, u, &page)
		if err != nil {
			return nil, err
		}
		out = append(out, page.Payouts...)
		u = next
	}
	return out, nil
}

func (c *Client) GetPayoutTransactions(ctx context.Context, payoutID int64) ([]domain.Transaction, error) {
	var out []domain.Transaction
	u := c.url("/shopify_payments/balance/transactions.json", url.Values{
		"payout_id": {fmt.Sprint(payoutID)},
	})
	for u != "" {
		var page struct {
			Transactions []domain.Transaction `json:"transactions"`
		}
		next, err := c.get(ctx, u, &page)
		if err != nil {
			return nil, err
		}
		out = append(out, page.Transactions...)
		u = next
	}
	return out, nil
}

func (c *Client) GetOrder(ctx context.Context, id int64) (domain.Order, error) {
	var resp struct {
		Order domain.Order `json:"order"`
	}
	u := c.url(fmt.Sprintf("/orders/%d.json", id), nil)
	if _, err := c.get(ctx, u, &resp); err != nil {
		return domain.Order{}, err
	}
	return resp.Order, nil
}

func (c *Client) GetAllOrders(ctx context.Context) ([]domain.Order, error) {
	var out []domain.Order
	u := c.url("/orders.json", url.Values{"status": {"any"}, "limit": {"250"}})
	for u != "" {
		var page struct {
			Orders []domain.Order `json:"orders"`
		}
		next, err := c.get(ctx, u, &page)
		if err != nil {
			return nil, err
		}
		out = append(out, page.Orders...)
		u = next
	}
	return out, nil
}

func (c *Client) GetCustomer(ctx context.Context, id int64) (domain.Customer, error) {
	var resp struct {
		Customer domain.Customer `json:"customer"`
	}
	u := c.url(fmt.Sprintf("/customers/%d.json", id), nil)
	if _, err := c.get(ctx, u, &resp); err != nil {
		return domain.Customer{}, err
	}
	return resp.Customer, nil
}

func (c *Client) GetAllCustomers(ctx context.Context) ([]domain.Customer, error) {
	var out []domain.Customer
	u := c.url("/customers.json", url.Values{"limit": {"250"}})
	for u != "" {
		var page struct {
			Customers []domain.Customer `json:"customers"`
		}
		next, err := c.get(ctx, u, &page)
		if err != nil {
			return nil, err
		}
		out = append(out, page.Customers...)
		u = next
	}
	return out, nil
}

func (c *Client) GetAllProducts(ctx context.Context) ([]domain.Product, error) {
	var out []domain.Product
	u := c.url("/products.json", url.Values{"limit": {"250"}})
	for u != "" {
		var page struct {
			Products []domain.Product `json:"products"`
		}
		next, err := c.get(ctx, u, &page)
		if err != nil {
			return nil, err
		}
		out = append(out, page.Products...)
		u = next
	}
	return out, nil
}

func (c *Client) GetAllVariants(ctx context.Context) ([]domain.Variant, error) {
	var out []domain.Variant
	u := c.url("/variants.json", url.Values{"limit": {"250"}})
	for u != "" {
		var page struct {
			Variants []domain.Variant `json:"variants"`
		}
		next, err := c.get(ctx, u, &page)
		if err != nil {
			return nil, err
		}
		out = append(out, page.Variants...)
		u = next
	}
	return out, nil
}

func (c *Client) url(path string, query url.Values) string {
	u := fmt.Sprintf("%s/admin/api/%s%s", c.cfg.BaseURL, c.cfg.APIVersion, path)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// get performs one GET and returns the URL of the next page, if the response
// carries a Link header with rel="next".
func (c *Client) get(ctx context.Context, rawURL string, out any) (next string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("X-Shopify-Access-Token", c.cfg.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("shopify: GET %s: status %d: %s", rawURL, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return "", fmt.Errorf("shopify: decode %s: %w", rawURL, err)
	}
	return nextPageURL(resp.Header.Get("Link")), nil
}

// nextPageURL extracts the rel="next" target from a Shopify Link header.
func nextPageURL(link string) string {
	for _, part := range strings.Split(link, ",") {
		section := strings.Split(part, ";")
		if len(section) < 2 {
			continue
		}
		if strings.TrimSpace(section[1]) != `rel="next"` {
			continue
		}
		u := strings.TrimSpace(section[0])
		return strings.Trim(u, "<>")
	}
	return ""
}
