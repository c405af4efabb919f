package auctionpb

import (
	"context"

	"google.golang.org/grpc"
)

// Service descriptor maintained by hand; the wire format is the JSON
// codec in this package, negotiated via CallContentSubtype.

const ServiceName = "dfba.v1.AuctionService"

type AuctionServiceServer interface {
	SubmitOrder(context.Context, *SubmitOrderRequest) (*SubmitOrderResponse, error)
	CancelOrder(context.Context, *CancelOrderRequest) (*CancelOrderResponse, error)
	FinalizeBatch(context.Context, *FinalizeBatchRequest) (*FinalizeBatchResponse, error)
	GetClearing(context.Context, *GetClearingRequest) (*GetClearingResponse, error)
	OrderStatus(context.Context, *OrderStatusRequest) (*OrderStatusResponse, error)
	ClaimFill(context.Context, *ClaimFillRequest) (*ClaimFillResponse, error)
	TickLevel(context.Context, *TickLevelRequest) (*TickLevelResponse, error)
}

func RegisterAuctionServiceServer(s grpc.ServiceRegistrar, srv AuctionServiceServer) {
	s.RegisterService(&AuctionService_ServiceDesc, srv)
}

func unaryHandler[Req any, Resp any](
	method string,
	call func(AuctionServiceServer, context.Context, *Req) (*Resp, error),
) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AuctionServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(AuctionServiceServer), ctx, req.(*Req))
		})
	}
}

var AuctionService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuctionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SubmitOrder", Handler: unaryHandler("SubmitOrder", AuctionServiceServer.SubmitOrder)},
		{MethodName: "CancelOrder", Handler: unaryHandler("CancelOrder", AuctionServiceServer.CancelOrder)},
		{MethodName: "FinalizeBatch", Handler: unaryHandler("FinalizeBatch", AuctionServiceServer.FinalizeBatch)},
		{MethodName: "GetClearing", Handler: unaryHandler("GetClearing", AuctionServiceServer.GetClearing)},
		{MethodName: "OrderStatus", Handler: unaryHandler("OrderStatus", AuctionServiceServer.OrderStatus)},
		{MethodName: "ClaimFill", Handler: unaryHandler("ClaimFill", AuctionServiceServer.ClaimFill)},
		{MethodName: "TickLevel", Handler: unaryHandler("TickLevel", AuctionServiceServer.TickLevel)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "dfba/v1/auction",
}

type AuctionServiceClient interface {
	SubmitOrder(ctx context.Context, in *SubmitOrderRequest, opts ...grpc.CallOption) (*SubmitOrderResponse, error)
	CancelOrder(ctx context.Context, in *CancelOrderRequest, opts ...grpc.CallOption) (*CancelOrderResponse, error)
	FinalizeBatch(ctx context.Context, in *FinalizeBatchRequest, opts ...grpc.CallOption) (*FinalizeBatchResponse, error)
	GetClearing(ctx context.Context, in *GetClearingRequest, opts ...grpc.CallOption) (*GetClearingResponse, error)
	OrderStatus(ctx context.Context, in *OrderStatusRequest, opts ...grpc.CallOption) (*OrderStatusResponse, error)
	ClaimFill(ctx context.Context, in *ClaimFillRequest, opts ...grpc.CallOption) (*ClaimFillResponse, error)
	TickLevel(ctx context.Context, in *TickLevelRequest, opts ...grpc.CallOption) (*TickLevelResponse, error)
}

type auctionServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewAuctionServiceClient(cc grpc.ClientConnInterface) AuctionServiceClient {
	return &auctionServiceClient{cc: cc}
}

func invoke[Req any, Resp any](c *auctionServiceClient, ctx context.Context, method string, in *Req, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *auctionServiceClient) SubmitOrder(ctx context.Context, in *SubmitOrderRequest, opts ...grpc.CallOption) (*SubmitOrderResponse, error) {
	return invoke[SubmitOrderRequest, SubmitOrderResponse](c, ctx, "SubmitOrder", in, opts)
}

func (c *auctionServiceClient) CancelOrder(ctx context.Context, in *CancelOrderRequest, opts ...grpc.CallOption) (*CancelOrderResponse, error) {
	return invoke[CancelOrderRequest, CancelOrderResponse](c, ctx, "CancelOrder", in, opts)
}

func (c *auctionServiceClient) FinalizeBatch(ctx context.Context, in *FinalizeBatchRequest, opts ...grpc.CallOption) (*FinalizeBatchResponse, error) {
	return invoke[FinalizeBatchRequest, FinalizeBatchResponse](c, ctx, "FinalizeBatch", in, opts)
}

func (c *auctionServiceClient) GetClearing(ctx context.Context, in *GetClearingRequest, opts ...grpc.CallOption) (*GetClearingResponse, error) {
	return invoke[GetClearingRequest, GetClearingResponse](c, ctx, "GetClearing", in, opts)
}

func (c *auctionServiceClient) OrderStatus(ctx context.Context, in *OrderStatusRequest, opts ...grpc.CallOption) (*OrderStatusResponse, error) {
	return invoke[OrderStatusRequest, OrderStatusResponse](c, ctx, "OrderStatus", in, opts)
}

func (c *auctionServiceClient) ClaimFill(ctx context.Context, in *ClaimFillRequest, opts ...grpc.CallOption) (*ClaimFillResponse, error) {
	return invoke[ClaimFillRequest, ClaimFillResponse](c, ctx, "ClaimFill", in, opts)
}

func (c *auctionServiceClient) TickLevel(ctx context.Context, in *TickLevelRequest, opts ...grpc.CallOption) (*TickLevelResponse, error) {
	return invoke[TickLevelRequest, TickLevelResponse](c, ctx, "TickLevel", in, opts)
}
