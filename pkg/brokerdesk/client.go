// Package brokerdesk is a Go client for the brokerdesk-server HTTP API.
package brokerdesk

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"brokerdesk/internal/domain"
)

// Response types returned by the server.
type (
	AccountStatus = domain.AccountStatus
	Position      = domain.Position
	Order         = domain.Order
	OrderRequest  = domain.OrderRequest
	OrderQuery    = domain.OrderQuery
)

// APIError is a non-2xx response. Message is the server's "error" field.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("brokerdesk: %d: %s", e.StatusCode, e.Message)
}

// Client provides a Go SDK for interacting with the brokerdesk-server API.
type Client struct {
	baseURL string
	http    *resty.Client
}

// NewClient creates a new brokerdesk API client. Requests are never retried
// because order placement is not idempotent.
func NewClient(baseURL string) *Client {
	baseURL = strings.TrimSuffix(baseURL, "/")
	return &Client{
		baseURL: baseURL,
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(30*time.Second).
			SetHeader("Accept", "application/json"),
	}
}

// GetAccount retrieves account status.
func (c *Client) GetAccount(ctx context.Context) (AccountStatus, error) {
	var out AccountStatus
	err := c.do(ctx, http.MethodGet, "/api/account_info", nil, nil, &out)
	return out, err
}

// GetPositions retrieves current positions.
func (c *Client) GetPositions(ctx context.Context) ([]Position, error) {
	out := []Position{}
	err := c.do(ctx, http.MethodGet, "/api/positions", nil, nil, &out)
	return out, err
}

// GetOrders retrieves orders. Zero fields of q use the server defaults.
func (c *Client) GetOrders(ctx context.Context, q OrderQuery) ([]Order, error) {
	params := map[string]string{}
	if q.Status != "" {
		params["status"] = string(q.Status)
	}
	if q.Limit != 0 {
		params["limit"] = strconv.Itoa(q.Limit)
	}
	out := []Order{}
	err := c.do(ctx, http.MethodGet, "/api/positions/orders", params, nil, &out)
	return out, err
}

// PlaceOrder submits a new order.
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (Order, error) {
	var out Order
	err := c.do(ctx, http.MethodPost, "/api/orders", nil, req, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, params map[string]string, body, out any) error {
	var apiErr struct {
		Error string `json:"error"`
	}
	r := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(out).
		SetError(&apiErr)
	if body != nil {
		r.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := r.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		msg := apiErr.Error
		if msg == "" {
			msg = strings.TrimSpace(resp.String())
		}
		return &APIError{StatusCode: resp.StatusCode(), Message: msg}
	}
	return nil
}
