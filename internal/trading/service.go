// Package trading is the operation facade shared by every front-end. Each
// operation makes exactly one provider call and returns a domain.Result.
//
// The error return of an operation is reserved for failures front-ends are
// not expected to recover from: *domain.ValidationError for requests rejected
// before the network call and *normalize.Error for provider responses that do
// not fit the schema. Provider failures are always inside the Result.
package trading

import (
	"context"
	"log/slog"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"

	"brokerdesk/internal/broker"
	"brokerdesk/internal/domain"
	"brokerdesk/internal/normalize"
)

// Service runs account, position and order operations against one Session.
type Service struct {
	session *broker.Session
	log     *slog.Logger
}

// NewService binds the facade to sess.
func NewService(sess *broker.Session, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		session: sess,
		log:     log.With("provider", sess.Name()),
	}
}

// GetAccountStatus returns the normalized account snapshot.
func (s *Service) GetAccountStatus(ctx context.Context) (domain.Result[domain.AccountStatus], error) {
	const op = "get account"

	var acct *alpaca.Account
	perr, err := s.call(ctx, op, "account", func() (err error) {
		acct, err = s.session.Provider().GetAccount()
		return err
	})
	if err != nil {
		return domain.Result[domain.AccountStatus]{}, err
	}
	if perr != nil {
		return domain.Failure[domain.AccountStatus](Translate(perr).Message), nil
	}

	status, err := normalize.Account(acct)
	if err != nil {
		return domain.Result[domain.AccountStatus]{}, err
	}
	return domain.Success(status), nil
}

// ListPositions returns every open position in provider order.
func (s *Service) ListPositions(ctx context.Context) (domain.Result[[]domain.Position], error) {
	const op = "list positions"

	var raw []alpaca.Position
	perr, err := s.call(ctx, op, "positions", func() (err error) {
		raw, err = s.session.Provider().GetPositions()
		return err
	})
	if err != nil {
		return domain.Result[[]domain.Position]{}, err
	}
	if perr != nil {
		return domain.Failure[[]domain.Position](Translate(perr).Message), nil
	}

	positions, err := normalize.Positions(raw)
	if err != nil {
		return domain.Result[[]domain.Position]{}, err
	}
	return domain.Success(positions), nil
}

// ListOrders returns orders matching q. The query is validated before any
// provider call; an empty status means open.
func (s *Service) ListOrders(ctx context.Context, q domain.OrderQuery) (domain.Result[[]domain.Order], error) {
	const op = "list orders"

	q, err := q.Normalize()
	if err != nil {
		return domain.Result[[]domain.Order]{}, err
	}

	var raw []alpaca.Order
	perr, err := s.call(ctx, op, "orders", func() (err error) {
		raw, err = s.session.Provider().GetOrders(alpaca.GetOrdersRequest{
			Status: string(q.Status),
			Limit:  q.Limit,
		})
		return err
	}, "status", q.Status, "limit", q.Limit)
	if err != nil {
		return domain.Result[[]domain.Order]{}, err
	}
	if perr != nil {
		return domain.Failure[[]domain.Order](Translate(perr).Message), nil
	}

	return domain.Success(normalize.Orders(raw)), nil
}

// PlaceOrder submits req. It is not idempotent: every call submits a new
// order and no client order id is generated.
func (s *Service) PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.Result[domain.Order], error) {
	const op = "place order"

	req, err := req.Normalize()
	if err != nil {
		return domain.Result[domain.Order]{}, err
	}

	qty := decimal.NewFromInt(req.Qty)
	preq := alpaca.PlaceOrderRequest{
		Symbol:      req.Symbol,
		Qty:         &qty,
		Side:        alpaca.Side(req.Side),
		Type:        alpaca.OrderType(req.Type),
		TimeInForce: alpaca.TimeInForce(req.TimeInForce),
	}
	if req.LimitPrice != nil {
		lp := decimal.NewFromFloat(*req.LimitPrice)
		preq.LimitPrice = &lp
	}

	var placed *alpaca.Order
	perr, err := s.call(ctx, op, "order", func() (err error) {
		placed, err = s.session.Provider().PlaceOrder(preq)
		return err
	}, "symbol", req.Symbol, "qty", req.Qty, "side", req.Side, "type", req.Type, "time_in_force", req.TimeInForce)
	if err != nil {
		return domain.Result[domain.Order]{}, err
	}
	if perr != nil {
		return domain.Failure[domain.Order](Translate(perr).Message), nil
	}

	order := normalize.Order(placed)
	s.log.Info("order submitted", "id", order.ID, "symbol", order.Symbol, "status", order.Status)
	return domain.Success(order), nil
}

// call runs fn once and classifies its failure. A nil error return together
// with a non-nil ProviderError means the provider rejected the call.
func (s *Service) call(ctx context.Context, op, entity string, fn func() error, attrs ...any) (*ProviderError, error) {
	if err := ctx.Err(); err != nil {
		return &ProviderError{Op: op, Message: err.Error(), Err: err}, nil
	}

	start := time.Now()
	err := fn()
	log := s.log.With(append([]any{"op", op, "elapsed", time.Since(start)}, attrs...)...)

	if err == nil {
		log.Debug("provider call")
		return nil, nil
	}

	perr, nerr := classify(op, entity, err)
	if nerr != nil {
		log.Error("provider response not understood", "error", nerr)
		return nil, nerr
	}
	log.Warn("provider call failed", "status", perr.StatusCode, "code", perr.Code, "error", perr.Message)
	return perr, nil
}
