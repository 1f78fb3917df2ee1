package broker

import (
	"net/http"
	"sync"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Compile-time interface check.
var _ Provider = (*Simulator)(nil)

// Simulator is an in-memory Provider for offline runs and tests. Placed
// orders are echoed back as accepted and kept for later listing; nothing is
// ever filled.
type Simulator struct {
	mu        sync.Mutex
	account   alpaca.Account
	positions []alpaca.Position
	orders    []alpaca.Order
	failure   *alpaca.APIError
	now       func() time.Time
}

// NewSimulator creates a Simulator holding an active paper account with
// 100,000 USD in cash and no positions.
func NewSimulator() *Simulator {
	cash := decimal.NewFromInt(100000)
	return &Simulator{
		account: alpaca.Account{
			ID:             uuid.NewString(),
			AccountNumber:  "PA0SIMULATOR",
			Status:         "ACTIVE",
			Currency:       "USD",
			Cash:           cash,
			BuyingPower:    cash.Mul(decimal.NewFromInt(2)),
			PortfolioValue: cash,
			Equity:         cash,
		},
		now: time.Now,
	}
}

// SetAccount replaces the simulated account.
func (s *Simulator) SetAccount(a alpaca.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.account = a
}

// AddPosition appends a simulated position.
func (s *Simulator) AddPosition(p alpaca.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions = append(s.positions, p)
}

// FailWith makes every subsequent call fail with a provider error carrying
// msg. An empty msg clears the failure.
func (s *Simulator) FailWith(statusCode int, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg == "" {
		s.failure = nil
		return
	}
	s.failure = &alpaca.APIError{StatusCode: statusCode, Message: msg}
}

func (s *Simulator) fail() error {
	if s.failure == nil {
		return nil
	}
	f := *s.failure
	return &f
}

// GetAccount returns a copy of the simulated account.
func (s *Simulator) GetAccount() (*alpaca.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return nil, err
	}
	a := s.account
	return &a, nil
}

// GetPositions returns a copy of all simulated positions.
func (s *Simulator) GetPositions() ([]alpaca.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return nil, err
	}
	positions := make([]alpaca.Position, len(s.positions))
	copy(positions, s.positions)
	return positions, nil
}

// GetOrders returns orders filtered by status, newest first, truncated to
// req.Limit when it is positive.
func (s *Simulator) GetOrders(req alpaca.GetOrdersRequest) ([]alpaca.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return nil, err
	}

	orders := make([]alpaca.Order, 0, len(s.orders))
	for i := len(s.orders) - 1; i >= 0; i-- {
		o := s.orders[i]
		if !matchesStatus(o.Status, req.Status) {
			continue
		}
		orders = append(orders, o)
		if req.Limit > 0 && len(orders) == req.Limit {
			break
		}
	}
	return orders, nil
}

// PlaceOrder echoes the request back as an accepted order.
func (s *Simulator) PlaceOrder(req alpaca.PlaceOrderRequest) (*alpaca.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return nil, err
	}
	if req.Symbol == "" || req.Qty == nil {
		return nil, &alpaca.APIError{StatusCode: http.StatusUnprocessableEntity, Message: "qty or notional is required"}
	}

	now := s.now().UTC()
	qty := *req.Qty
	order := alpaca.Order{
		ID:            uuid.NewString(),
		ClientOrderID: uuid.NewString(),
		CreatedAt:     now,
		UpdatedAt:     now,
		SubmittedAt:   now,
		Symbol:        req.Symbol,
		Qty:           &qty,
		Side:          req.Side,
		Type:          req.Type,
		TimeInForce:   req.TimeInForce,
		Status:        "accepted",
	}
	if req.LimitPrice != nil {
		lp := *req.LimitPrice
		order.LimitPrice = &lp
	}

	s.orders = append(s.orders, order)
	return &order, nil
}

func matchesStatus(orderStatus, filter string) bool {
	switch filter {
	case "", "all":
		return true
	case "open":
		return isOpenStatus(orderStatus)
	case "closed":
		return !isOpenStatus(orderStatus)
	default:
		return false
	}
}

func isOpenStatus(status string) bool {
	switch status {
	case "new", "accepted", "pending_new", "partially_filled", "accepted_for_bidding", "held":
		return true
	}
	return false
}
