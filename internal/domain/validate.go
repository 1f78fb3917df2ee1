package domain

import (
	"fmt"
	"math"
	"strings"
)

// ValidationError rejects a request before it reaches the provider.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Normalize applies defaults and checks every field of the request. The
// returned copy has an upper-case symbol and explicit type and time in force.
func (r OrderRequest) Normalize() (OrderRequest, error) {
	r.Symbol = strings.ToUpper(strings.TrimSpace(r.Symbol))
	if r.Symbol == "" {
		return r, invalid("symbol", "required")
	}
	if r.Qty <= 0 {
		return r, invalid("qty", "must be a positive integer, got %d", r.Qty)
	}

	switch r.Side {
	case OrderSideBuy, OrderSideSell:
	case "":
		return r, invalid("side", "required")
	default:
		return r, invalid("side", "must be buy or sell, got %q", r.Side)
	}

	switch r.Type {
	case "":
		r.Type = OrderTypeMarket
	case OrderTypeMarket, OrderTypeLimit:
	default:
		return r, invalid("type", "must be market or limit, got %q", r.Type)
	}

	switch r.TimeInForce {
	case "":
		r.TimeInForce = TimeInForceGTC
	case TimeInForceDay, TimeInForceGTC, TimeInForceOPG:
	default:
		return r, invalid("time_in_force", "must be day, gtc or opg, got %q", r.TimeInForce)
	}

	if r.LimitPrice != nil {
		p := *r.LimitPrice
		if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
			return r, invalid("limit_price", "must be a positive number")
		}
	}

	return r, nil
}

// Normalize applies defaults for an empty status and checks the limit.
func (q OrderQuery) Normalize() (OrderQuery, error) {
	switch q.Status {
	case "":
		q.Status = OrderStatusOpen
	case OrderStatusOpen, OrderStatusClosed, OrderStatusAll:
	default:
		return q, invalid("status", "must be open, closed or all, got %q", q.Status)
	}

	if q.Limit <= 0 {
		return q, invalid("limit", "must be a positive integer, got %d", q.Limit)
	}
	if q.Limit > MaxOrderLimit {
		return q, invalid("limit", "must be at most %d, got %d", MaxOrderLimit, q.Limit)
	}

	return q, nil
}
