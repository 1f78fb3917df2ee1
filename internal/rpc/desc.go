// Package rpc exposes the trading operations over gRPC. Requests are
// google.protobuf.Struct and responses google.protobuf.Value carrying the same
// JSON shapes the HTTP API returns.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "brokerdesk.v1.Trading"

// Method names.
const (
	MethodGetAccountStatus = "GetAccountStatus"
	MethodListPositions    = "ListPositions"
	MethodListOrders       = "ListOrders"
	MethodPlaceOrder       = "PlaceOrder"
)

// TradingServer is the server API for the brokerdesk.v1.Trading service.
type TradingServer interface {
	GetAccountStatus(context.Context, *structpb.Struct) (*structpb.Value, error)
	ListPositions(context.Context, *structpb.Struct) (*structpb.Value, error)
	ListOrders(context.Context, *structpb.Struct) (*structpb.Value, error)
	PlaceOrder(context.Context, *structpb.Struct) (*structpb.Value, error)
}

type unaryCall func(TradingServer, context.Context, *structpb.Struct) (*structpb.Value, error)

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func unary(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(TradingServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(TradingServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes brokerdesk.v1.Trading for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TradingServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodGetAccountStatus, TradingServer.GetAccountStatus),
		unary(MethodListPositions, TradingServer.ListPositions),
		unary(MethodListOrders, TradingServer.ListOrders),
		unary(MethodPlaceOrder, TradingServer.PlaceOrder),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "brokerdesk/v1/trading.proto",
}
