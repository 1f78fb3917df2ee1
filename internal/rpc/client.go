package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"brokerdesk/internal/domain"
)

// Client calls a brokerdesk.v1.Trading server. Provider failures surface as
// status errors with code FailedPrecondition.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an existing connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Dial opens a plaintext connection to addr.
func Dial(addr string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}
	return conn, nil
}

func (c *Client) GetAccountStatus(ctx context.Context) (domain.AccountStatus, error) {
	var out domain.AccountStatus
	err := c.invoke(ctx, MethodGetAccountStatus, nil, &out)
	return out, err
}

func (c *Client) ListPositions(ctx context.Context) ([]domain.Position, error) {
	out := []domain.Position{}
	err := c.invoke(ctx, MethodListPositions, nil, &out)
	return out, err
}

func (c *Client) ListOrders(ctx context.Context, q domain.OrderQuery) ([]domain.Order, error) {
	fields := map[string]any{}
	if q.Status != "" {
		fields["status"] = string(q.Status)
	}
	if q.Limit != 0 {
		fields["limit"] = q.Limit
	}
	out := []domain.Order{}
	err := c.invoke(ctx, MethodListOrders, fields, &out)
	return out, err
}

func (c *Client) PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.Order, error) {
	fields := map[string]any{
		"symbol": req.Symbol,
		"qty":    req.Qty,
		"side":   string(req.Side),
	}
	if req.Type != "" {
		fields["type"] = string(req.Type)
	}
	if req.TimeInForce != "" {
		fields["time_in_force"] = string(req.TimeInForce)
	}
	if req.LimitPrice != nil {
		fields["limit_price"] = *req.LimitPrice
	}
	var out domain.Order
	err := c.invoke(ctx, MethodPlaceOrder, fields, &out)
	return out, err
}

func (c *Client) invoke(ctx context.Context, method string, fields map[string]any, out any) error {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", method, err)
	}
	resp := new(structpb.Value)
	if err := c.cc.Invoke(ctx, fullMethod(method), in, resp); err != nil {
		return err
	}
	b, err := json.Marshal(resp.AsInterface())
	if err != nil {
		return fmt.Errorf("decoding %s response: %w", method, err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", method, err)
	}
	return nil
}
