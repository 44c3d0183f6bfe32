// Package splitwise reads expenses from the Splitwise REST API and maps them
// onto ledger expenses.
package splitwise

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://secure.splitwise.com/api/v3.0"

var ErrUnauthorized = errors.New("splitwise: unauthorized")

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("splitwise: status %d: %s", e.StatusCode, e.Body)
}

type (
	User struct {
		ID        int64  `json:"id"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
	}

	Group struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	Category struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	// Share is one participant's part of an expense. Amounts are decimal strings.
	Share struct {
		UserID     int64  `json:"user_id"`
		PaidShare  string `json:"paid_share"`
		OwedShare  string `json:"owed_share"`
		NetBalance string `json:"net_balance"`
	}

	Expense struct {
		ID           int64     `json:"id"`
		GroupID      *int64    `json:"group_id"`
		Description  string    `json:"description"`
		Cost         string    `json:"cost"`
		CurrencyCode string    `json:"currency_code"`
		Date         string    `json:"date"`
		DeletedAt    *string   `json:"deleted_at"`
		Payment      bool      `json:"payment"`
		Category     *Category `json:"category"`
		Users        []Share   `json:"users"`
	}
)

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRateLimit bounds outgoing requests; Splitwise throttles aggressive clients.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
}

func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(2), 4),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) CurrentUser(ctx context.Context) (User, error) {
	var resp struct {
		User User `json:"user"`
	}
	if err := c.get(ctx, "/get_current_user", nil, &resp); err != nil {
		return User{}, fmt.Errorf("get current user: %w", err)
	}
	return resp.User, nil
}

// Expenses returns the most recent expenses, newest first.
func (c *Client) Expenses(ctx context.Context, limit int) ([]Expense, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var resp struct {
		Expenses []Expense `json:"expenses"`
	}
	if err := c.get(ctx, "/get_expenses", q, &resp); err != nil {
		return nil, fmt.Errorf("get expenses: %w", err)
	}
	return resp.Expenses, nil
}

func (c *Client) Groups(ctx context.Context) ([]Group, error) {
	var resp struct {
		Groups []Group `json:"groups"`
	}
	if err := c.get(ctx, "/get_groups", nil, &resp); err != nil {
		return nil, fmt.Errorf("get groups: %w", err)
	}
	return resp.Groups, nil
}

func (c *Client) Group(ctx context.Context, id int64) (Group, error) {
	var resp struct {
		Group Group `json:"group"`
	}
	if err := c.get(ctx, "/get_group/"+strconv.FormatInt(id, 10), nil, &resp); err != nil {
		return Group{}, fmt.Errorf("get group %d: %w", id, err)
	}
	return resp.Group, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
