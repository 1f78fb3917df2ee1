// Package domain defines the normalized account, position and order schema
// shared by every brokerdesk front-end. Nothing in this package depends on the
// provider's own types.
package domain

// Placeholder stands in for order fields the provider did not report.
const Placeholder = "N/A"

// AccountStatusActive is the provider status of an account in good standing.
const AccountStatusActive = "ACTIVE"

// AccountStatus is a normalized snapshot of the brokerage account. Monetary
// fields are copied verbatim from the provider.
type AccountStatus struct {
	ID               string  `json:"id"`
	AccountNumber    string  `json:"account_number"`
	Status           string  `json:"status"`
	Currency         string  `json:"currency"`
	PortfolioValue   float64 `json:"portfolio_value"`
	BuyingPower      float64 `json:"buying_power"`
	Cash             float64 `json:"cash"`
	Equity           float64 `json:"equity"`
	PatternDayTrader bool    `json:"pattern_day_trader"`
	DaytradeCount    int64   `json:"daytrade_count"`
	TradingBlocked   bool    `json:"trading_blocked"`
	AccountBlocked   bool    `json:"account_blocked"`
}

// Active reports whether the account status is ACTIVE. Every other status is
// presented as restricted.
func (a AccountStatus) Active() bool {
	return a.Status == AccountStatusActive
}

// DisplayStatus returns "ACTIVE" or "RESTRICTED".
func (a AccountStatus) DisplayStatus() string {
	if a.Active() {
		return AccountStatusActive
	}
	return "RESTRICTED"
}

// Position is one held symbol. Qty is negative for short positions and
// UnrealizedPLPC is a raw fraction (0.05 means five percent).
type Position struct {
	Symbol         string  `json:"symbol"`
	Qty            float64 `json:"qty"`
	Side           string  `json:"side"`
	MarketValue    float64 `json:"market_value"`
	AvgEntryPrice  float64 `json:"avg_entry_price"`
	CurrentPrice   float64 `json:"current_price"`
	UnrealizedPL   float64 `json:"unrealized_pl"`
	UnrealizedPLPC float64 `json:"unrealized_plpc"`
}

// Order is a normalized order as listed or confirmed by the provider. Every
// field is a string; absent values hold Placeholder.
type Order struct {
	ID          string `json:"id"`
	Symbol      string `json:"symbol"`
	Qty         string `json:"qty"`
	Side        string `json:"side"`
	Type        string `json:"type"`
	TimeInForce string `json:"time_in_force"`
	LimitPrice  string `json:"limit_price"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

// OrderSide is the direction of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderType is the pricing style of an order.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// TimeInForce controls how long an order remains working.
type TimeInForce string

const (
	TimeInForceDay TimeInForce = "day"
	TimeInForceGTC TimeInForce = "gtc"
	TimeInForceOPG TimeInForce = "opg"
)

// OrderStatusFilter selects which orders a listing returns.
type OrderStatusFilter string

const (
	OrderStatusOpen   OrderStatusFilter = "open"
	OrderStatusClosed OrderStatusFilter = "closed"
	OrderStatusAll    OrderStatusFilter = "all"
)

// Order listing bounds. MaxOrderLimit is the provider's page size ceiling.
const (
	DefaultOrderLimit = 50
	MaxOrderLimit     = 500
)

// OrderRequest describes an order to submit. Type and TimeInForce default to
// market and gtc when empty.
type OrderRequest struct {
	Symbol      string      `json:"symbol"`
	Qty         int64       `json:"qty"`
	Side        OrderSide   `json:"side"`
	Type        OrderType   `json:"type,omitempty"`
	TimeInForce TimeInForce `json:"time_in_force,omitempty"`
	LimitPrice  *float64    `json:"limit_price,omitempty"`
}

// OrderQuery filters an order listing.
type OrderQuery struct {
	Status OrderStatusFilter `json:"status"`
	Limit  int               `json:"limit"`
}
