package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"brokerdesk/internal/domain"
	"brokerdesk/internal/normalize"
)

// Trading is the operation set the gRPC front-end exposes.
type Trading interface {
	GetAccountStatus(ctx context.Context) (domain.Result[domain.AccountStatus], error)
	ListPositions(ctx context.Context) (domain.Result[[]domain.Position], error)
	ListOrders(ctx context.Context, q domain.OrderQuery) (domain.Result[[]domain.Order], error)
	PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.Result[domain.Order], error)
}

// Server implements TradingServer on top of the operation facade.
type Server struct {
	svc Trading
	log *slog.Logger
}

var _ TradingServer = (*Server)(nil)

// NewServer creates a gRPC server backed by svc.
func NewServer(svc Trading, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{svc: svc, log: log}
}

// RegisterGRPC registers the server on the given gRPC server instance.
func (s *Server) RegisterGRPC(gs *grpc.Server) {
	gs.RegisterService(&ServiceDesc, s)
}

func (s *Server) GetAccountStatus(ctx context.Context, _ *structpb.Struct) (*structpb.Value, error) {
	res, err := s.svc.GetAccountStatus(ctx)
	return reply(s, res, err)
}

func (s *Server) ListPositions(ctx context.Context, _ *structpb.Struct) (*structpb.Value, error) {
	res, err := s.svc.ListPositions(ctx)
	return reply(s, res, err)
}

// ListOrders reads optional "status" and "limit" fields.
func (s *Server) ListOrders(ctx context.Context, in *structpb.Struct) (*structpb.Value, error) {
	q := domain.OrderQuery{Limit: domain.DefaultOrderLimit}
	if err := decodeRequest(in, &q); err != nil {
		return nil, err
	}
	res, err := s.svc.ListOrders(ctx, q)
	return reply(s, res, err)
}

// PlaceOrder reads an order request with the same fields as the HTTP body.
func (s *Server) PlaceOrder(ctx context.Context, in *structpb.Struct) (*structpb.Value, error) {
	var req domain.OrderRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	res, err := s.svc.PlaceOrder(ctx, req)
	return reply(s, res, err)
}

// decodeRequest overlays the fields of in onto v.
func decodeRequest(in *structpb.Struct, v any) error {
	if in == nil {
		return nil
	}
	b, err := json.Marshal(in.AsMap())
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "encoding request: %v", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	return nil
}

// reply converts a facade result into a response value or a status error.
// A provider failure maps to FailedPrecondition with the translated message.
func reply[T any](s *Server, res domain.Result[T], err error) (*structpb.Value, error) {
	if err != nil {
		var verr *domain.ValidationError
		var nerr *normalize.Error
		switch {
		case errors.As(err, &verr):
			return nil, status.Error(codes.InvalidArgument, verr.Error())
		case errors.As(err, &nerr):
			s.log.Error("normalizing provider response", "error", err)
			return nil, status.Error(codes.Internal, nerr.Error())
		default:
			return nil, status.Error(codes.Unknown, err.Error())
		}
	}

	if e, failed := res.Err(); failed {
		return nil, status.Error(codes.FailedPrecondition, e.Message)
	}

	v, err := toValue(res)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding response: %v", err)
	}
	return v, nil
}

func toValue(v any) (*structpb.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return nil, err
	}
	return structpb.NewValue(generic)
}

// LoggingInterceptor logs every unary call with its status code and latency.
func LoggingInterceptor(log *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		attrs := []any{"method", info.FullMethod, "code", code.String(), "elapsed", time.Since(start)}
		if code == codes.OK || code == codes.FailedPrecondition || code == codes.InvalidArgument {
			log.Debug("grpc call", attrs...)
		} else {
			log.Warn("grpc call", append(attrs, "error", fmt.Sprint(err))...)
		}
		return resp, err
	}
}
