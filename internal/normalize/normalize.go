// Package normalize converts Alpaca SDK objects into the brokerdesk domain
// schema. Results never alias the provider objects they were built from.
package normalize

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"

	"brokerdesk/internal/domain"
)

// Error reports a provider response that does not fit the domain schema. It
// signals an incompatibility with the provider, not a failed request.
type Error struct {
	Entity string
	Field  string
	Err    error
}

func (e *Error) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("normalizing %s: %v", e.Entity, e.Err)
	}
	return fmt.Sprintf("normalizing %s.%s: %v", e.Entity, e.Field, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Decode wraps a failure to decode a provider response body.
func Decode(entity string, err error) *Error {
	return &Error{Entity: entity, Err: err}
}

var (
	errMissing  = errors.New("missing value")
	errNegative = errors.New("negative value")
)

// Account converts the provider account.
func Account(a *alpaca.Account) (domain.AccountStatus, error) {
	if a == nil {
		return domain.AccountStatus{}, &Error{Entity: "account", Err: errMissing}
	}

	out := domain.AccountStatus{
		ID:               a.ID,
		AccountNumber:    a.AccountNumber,
		Status:           string(a.Status),
		Currency:         a.Currency,
		PatternDayTrader: a.PatternDayTrader,
		DaytradeCount:    a.DaytradeCount,
		TradingBlocked:   a.TradingBlocked,
		AccountBlocked:   a.AccountBlocked,
	}

	money := []struct {
		field string
		src   decimal.Decimal
		dst   *float64
	}{
		{"portfolio_value", a.PortfolioValue, &out.PortfolioValue},
		{"buying_power", a.BuyingPower, &out.BuyingPower},
		{"cash", a.Cash, &out.Cash},
		{"equity", a.Equity, &out.Equity},
	}
	for _, m := range money {
		v, err := toFloat(m.src)
		if err == nil && v < 0 {
			err = errNegative
		}
		if err != nil {
			return domain.AccountStatus{}, &Error{Entity: "account", Field: m.field, Err: err}
		}
		*m.dst = v
	}

	return out, nil
}

// Positions converts every provider position, preserving order. An empty
// input yields an empty, non-nil slice.
func Positions(ps []alpaca.Position) ([]domain.Position, error) {
	out := make([]domain.Position, 0, len(ps))
	for i := range ps {
		p, err := position(&ps[i])
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func position(p *alpaca.Position) (domain.Position, error) {
	out := domain.Position{
		Symbol: p.Symbol,
		Side:   p.Side,
	}

	fields := []struct {
		field string
		src   *decimal.Decimal
		dst   *float64
	}{
		{"qty", &p.Qty, &out.Qty},
		{"avg_entry_price", &p.AvgEntryPrice, &out.AvgEntryPrice},
		{"market_value", p.MarketValue, &out.MarketValue},
		{"current_price", p.CurrentPrice, &out.CurrentPrice},
		{"unrealized_pl", p.UnrealizedPL, &out.UnrealizedPL},
		{"unrealized_plpc", p.UnrealizedPLPC, &out.UnrealizedPLPC},
	}
	for _, f := range fields {
		if f.src == nil {
			return domain.Position{}, &Error{Entity: "position " + p.Symbol, Field: f.field, Err: errMissing}
		}
		v, err := toFloat(*f.src)
		if err != nil {
			return domain.Position{}, &Error{Entity: "position " + p.Symbol, Field: f.field, Err: err}
		}
		*f.dst = v
	}

	return out, nil
}

// Orders converts a provider order listing. An empty input yields an empty,
// non-nil slice.
func Orders(orders []alpaca.Order) []domain.Order {
	out := make([]domain.Order, 0, len(orders))
	for i := range orders {
		out = append(out, Order(&orders[i]))
	}
	return out
}

// Order converts one provider order. Absent fields become domain.Placeholder.
func Order(o *alpaca.Order) domain.Order {
	if o == nil {
		return domain.Order{
			ID: domain.Placeholder, Symbol: domain.Placeholder, Qty: domain.Placeholder,
			Side: domain.Placeholder, Type: domain.Placeholder, TimeInForce: domain.Placeholder,
			LimitPrice: domain.Placeholder, Status: domain.Placeholder, CreatedAt: domain.Placeholder,
		}
	}
	return domain.Order{
		ID:          orNA(o.ID),
		Symbol:      orNA(o.Symbol),
		Qty:         decimalOrNA(o.Qty),
		Side:        orNA(string(o.Side)),
		Type:        orNA(string(o.Type)),
		TimeInForce: orNA(string(o.TimeInForce)),
		LimitPrice:  decimalOrNA(o.LimitPrice),
		Status:      orNA(o.Status),
		CreatedAt:   timeOrNA(o.CreatedAt),
	}
}

func toFloat(d decimal.Decimal) (float64, error) {
	f, _ := d.Float64()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("value %s is not a finite number", d.String())
	}
	return f, nil
}

func orNA(s string) string {
	if s == "" {
		return domain.Placeholder
	}
	return s
}

func decimalOrNA(d *decimal.Decimal) string {
	if d == nil {
		return domain.Placeholder
	}
	return d.String()
}

func timeOrNA(t time.Time) string {
	if t.IsZero() {
		return domain.Placeholder
	}
	return t.UTC().Format(time.RFC3339)
}
