package trading

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brokerdesk/internal/broker"
	"brokerdesk/internal/config"
	"brokerdesk/internal/domain"
	"brokerdesk/internal/normalize"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingProvider wraps the simulator and counts provider round trips.
type countingProvider struct {
	*broker.Simulator
	calls atomic.Int32
	err   error
}

func (p *countingProvider) GetAccount() (*alpaca.Account, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	return p.Simulator.GetAccount()
}

func (p *countingProvider) GetPositions() ([]alpaca.Position, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	return p.Simulator.GetPositions()
}

func (p *countingProvider) GetOrders(req alpaca.GetOrdersRequest) ([]alpaca.Order, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	return p.Simulator.GetOrders(req)
}

func (p *countingProvider) PlaceOrder(req alpaca.PlaceOrderRequest) (*alpaca.Order, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	return p.Simulator.PlaceOrder(req)
}

func newTestService(t *testing.T) (*Service, *countingProvider) {
	t.Helper()
	p := &countingProvider{Simulator: broker.NewSimulator()}
	return NewService(broker.NewSession("simulator", p), quietLogger()), p
}

func TestGetAccountStatus(t *testing.T) {
	svc, p := newTestService(t)

	res, err := svc.GetAccountStatus(context.Background())
	require.NoError(t, err)
	require.True(t, res.OK())

	acct, _ := res.Value()
	assert.Equal(t, "ACTIVE", acct.Status)
	assert.Equal(t, 100000.0, acct.Cash)
	assert.GreaterOrEqual(t, acct.PortfolioValue, 0.0)
	assert.GreaterOrEqual(t, acct.BuyingPower, 0.0)
	assert.GreaterOrEqual(t, acct.Equity, 0.0)
	assert.EqualValues(t, 1, p.calls.Load())
}

func TestGetAccountStatusProviderError(t *testing.T) {
	svc, p := newTestService(t)
	p.FailWith(http.StatusUnauthorized, "request is not authorized")

	res, err := svc.GetAccountStatus(context.Background())
	require.NoError(t, err)
	require.False(t, res.OK())

	ev, _ := res.Err()
	assert.Equal(t, "request is not authorized", ev.Message)
}

func TestListPositionsUnscaledPercent(t *testing.T) {
	svc, p := newTestService(t)
	mv := decimal.RequireFromString("1580")
	cp := decimal.RequireFromString("158")
	pl := decimal.RequireFromString("77.5")
	plpc := decimal.RequireFromString("0.0532")
	p.AddPosition(alpaca.Position{
		Symbol:         "AAPL",
		Qty:            decimal.NewFromInt(10),
		AvgEntryPrice:  decimal.RequireFromString("150.25"),
		MarketValue:    &mv,
		CurrentPrice:   &cp,
		UnrealizedPL:   &pl,
		UnrealizedPLPC: &plpc,
	})

	res, err := svc.ListPositions(context.Background())
	require.NoError(t, err)
	positions, ok := res.Value()
	require.True(t, ok)
	require.Len(t, positions, 1)
	assert.Equal(t, 0.0532, positions[0].UnrealizedPLPC)
}

func TestListPositionsEmpty(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := svc.ListPositions(context.Background())
	require.NoError(t, err)
	positions, ok := res.Value()
	require.True(t, ok)
	assert.NotNil(t, positions)
	assert.Empty(t, positions)
}

func TestListOrdersEmptyIsNotError(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := svc.ListOrders(context.Background(), domain.OrderQuery{Status: domain.OrderStatusOpen, Limit: 50})
	require.NoError(t, err)
	require.True(t, res.OK())

	orders, _ := res.Value()
	assert.NotNil(t, orders)
	assert.Empty(t, orders)
}

func TestListOrdersRejectsBadLimitBeforeCall(t *testing.T) {
	svc, p := newTestService(t)

	for _, limit := range []int{0, -5} {
		_, err := svc.ListOrders(context.Background(), domain.OrderQuery{Status: domain.OrderStatusAll, Limit: limit})
		var verr *domain.ValidationError
		require.True(t, errors.As(err, &verr), "limit %d: want *domain.ValidationError, got %v", limit, err)
		assert.Equal(t, "limit", verr.Field)
	}
	assert.EqualValues(t, 0, p.calls.Load(), "provider must not be called")
}

func TestPlaceOrderRoundTrip(t *testing.T) {
	svc, p := newTestService(t)

	res, err := svc.PlaceOrder(context.Background(), domain.OrderRequest{
		Symbol:      "AAPL",
		Qty:         10,
		Side:        domain.OrderSideBuy,
		Type:        domain.OrderTypeMarket,
		TimeInForce: domain.TimeInForceGTC,
	})
	require.NoError(t, err)
	order, ok := res.Value()
	require.True(t, ok)
	assert.Equal(t, "AAPL", order.Symbol)
	assert.Equal(t, "10", order.Qty)
	assert.Equal(t, "buy", order.Side)
	assert.Equal(t, "market", order.Type)
	assert.Equal(t, "gtc", order.TimeInForce)
	assert.NotEqual(t, domain.Placeholder, order.ID)

	listed, err := svc.ListOrders(context.Background(), domain.OrderQuery{Limit: 10})
	require.NoError(t, err)
	orders, _ := listed.Value()
	require.Len(t, orders, 1)
	assert.Equal(t, order.ID, orders[0].ID)
	assert.EqualValues(t, 2, p.calls.Load())
}

func TestPlaceOrderIsNotDeduplicated(t *testing.T) {
	svc, _ := newTestService(t)
	req := domain.OrderRequest{Symbol: "MSFT", Qty: 1, Side: domain.OrderSideSell}

	first, err := svc.PlaceOrder(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.PlaceOrder(context.Background(), req)
	require.NoError(t, err)

	a, _ := first.Value()
	b, _ := second.Value()
	assert.NotEqual(t, a.ID, b.ID)
}

func TestPlaceOrderInsufficientBuyingPower(t *testing.T) {
	svc, p := newTestService(t)
	p.FailWith(http.StatusForbidden, "insufficient buying power")

	res, err := svc.PlaceOrder(context.Background(), domain.OrderRequest{Symbol: "AAPL", Qty: 10, Side: domain.OrderSideBuy})
	require.NoError(t, err)
	require.False(t, res.OK())

	ev, _ := res.Err()
	assert.Equal(t, "insufficient buying power", ev.Message)
}

func TestPlaceOrderValidation(t *testing.T) {
	svc, p := newTestService(t)

	_, err := svc.PlaceOrder(context.Background(), domain.OrderRequest{Symbol: "AAPL", Qty: 0, Side: domain.OrderSideBuy})
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.EqualValues(t, 0, p.calls.Load())
}

func TestTransportFailureIsProviderError(t *testing.T) {
	svc, p := newTestService(t)
	p.err = &url.Error{
		Op:  "Get",
		URL: "http://127.0.0.1:1/v2/positions",
		Err: errors.New("dial tcp 127.0.0.1:1: connect: connection refused"),
	}

	res, err := svc.ListPositions(context.Background())
	require.NoError(t, err)
	ev, failed := res.Err()
	require.True(t, failed)
	assert.Contains(t, ev.Message, "connection refused")
}

func TestDecodeFailureIsNormalizationError(t *testing.T) {
	svc, p := newTestService(t)
	p.err = errors.New("parse error: syntax error near offset 3")

	_, err := svc.GetAccountStatus(context.Background())
	var nerr *normalize.Error
	require.True(t, errors.As(err, &nerr), "want *normalize.Error, got %v", err)
}

func TestCancelledContextSkipsProvider(t *testing.T) {
	svc, p := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := svc.GetAccountStatus(ctx)
	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.EqualValues(t, 0, p.calls.Load())
}

// The tests below run the facade against the real Alpaca SDK client talking
// to a stub REST server.

func alpacaStub(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	sess := broker.Open(config.Credentials{KeyID: "key", SecretKey: "secret", BaseURL: srv.URL})
	return NewService(sess, quietLogger())
}

func TestAlpacaAccount(t *testing.T) {
	svc := alpacaStub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/account", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "904837e3-3b76-47ec-b432-046db621571b",
			"account_number": "PA3717PJAYWN",
			"status": "ACTIVE",
			"currency": "USD",
			"cash": "100000",
			"portfolio_value": "100000",
			"buying_power": "400000",
			"equity": "100000",
			"pattern_day_trader": false,
			"daytrade_count": 0
		}`)
	})

	res, err := svc.GetAccountStatus(context.Background())
	require.NoError(t, err)
	acct, ok := res.Value()
	require.True(t, ok)
	assert.Equal(t, "PA3717PJAYWN", acct.AccountNumber)
	assert.Equal(t, 400000.0, acct.BuyingPower)
}

func TestAlpacaPlaceOrderEcho(t *testing.T) {
	svc := alpacaStub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/orders", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"symbol":"AAPL"`)
		assert.Contains(t, string(body), `"time_in_force":"gtc"`)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "61e69015-8549-4bfd-b9c3-01e75843f47d",
			"client_order_id": "eb9e2aaa-f71a-4f51-b5b4-52a6c565dad4",
			"created_at": "2024-03-01T14:30:00Z",
			"updated_at": "2024-03-01T14:30:00Z",
			"submitted_at": "2024-03-01T14:30:00Z",
			"symbol": "AAPL",
			"qty": "10",
			"filled_qty": "0",
			"side": "buy",
			"type": "market",
			"time_in_force": "gtc",
			"status": "accepted"
		}`)
	})

	res, err := svc.PlaceOrder(context.Background(), domain.OrderRequest{Symbol: "AAPL", Qty: 10, Side: domain.OrderSideBuy})
	require.NoError(t, err)
	order, ok := res.Value()
	require.True(t, ok)
	assert.Equal(t, "AAPL", order.Symbol)
	assert.Equal(t, "10", order.Qty)
	assert.Equal(t, "accepted", order.Status)
}

func TestAlpacaRejectionMessage(t *testing.T) {
	svc := alpacaStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"code":40310000,"message":"insufficient buying power"}`)
	})

	res, err := svc.PlaceOrder(context.Background(), domain.OrderRequest{Symbol: "AAPL", Qty: 10, Side: domain.OrderSideBuy})
	require.NoError(t, err)
	ev, failed := res.Err()
	require.True(t, failed)
	assert.Equal(t, "insufficient buying power", ev.Message)
}

func TestAlpacaPlainTextUnavailable(t *testing.T) {
	svc := alpacaStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, "upstream connect error")
	})

	res, err := svc.ListPositions(context.Background())
	require.NoError(t, err)
	ev, failed := res.Err()
	require.True(t, failed)
	assert.Equal(t, "upstream connect error", ev.Message)
	assert.False(t, res.OK())
}

func TestAlpacaEmptyOrders(t *testing.T) {
	svc := alpacaStub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "closed", r.URL.Query().Get("status"))
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[]`)
	})

	res, err := svc.ListOrders(context.Background(), domain.OrderQuery{Status: domain.OrderStatusClosed, Limit: 25})
	require.NoError(t, err)
	orders, ok := res.Value()
	require.True(t, ok)
	assert.NotNil(t, orders)
	assert.Empty(t, orders)
}

func TestAlpacaMalformedQuantity(t *testing.T) {
	svc := alpacaStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"symbol":"AAPL","qty":"ten","avg_entry_price":"1"}]`)
	})

	res, err := svc.ListPositions(context.Background())
	var nerr *normalize.Error
	require.True(t, errors.As(err, &nerr), "want *normalize.Error, got %v", err)
	assert.False(t, res.OK())
}
