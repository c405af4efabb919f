package grpcserver

import (
	"context"
	"encoding/hex"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/auralshin/dfba-sub000/api/auctionpb"
	"github.com/auralshin/dfba-sub000/domain/auction"
	"github.com/auralshin/dfba-sub000/pkg/price"
	"github.com/auralshin/dfba-sub000/service"
)

// Server adapts the auction service to the gRPC surface. Requests may
// quote either a raw tick or a decimal price; prices go through the
// converter before they reach the engine.
type Server struct {
	svc  *service.AuctionService
	conv *price.Converter
	log  *zap.SugaredLogger
}

func New(svc *service.AuctionService, conv *price.Converter, log *zap.SugaredLogger) *Server {
	return &Server{svc: svc, conv: conv, log: log}
}

var _ auctionpb.AuctionServiceServer = (*Server)(nil)

func (s *Server) SubmitOrder(ctx context.Context, req *auctionpb.SubmitOrderRequest) (*auctionpb.SubmitOrderResponse, error) {
	side, err := parseSide(req.Side)
	if err != nil {
		return nil, err
	}
	role, err := parseRole(req.Role)
	if err != nil {
		return nil, err
	}
	if req.Trader == "" {
		return nil, status.Error(codes.InvalidArgument, "trader is required")
	}

	tick := auction.Tick(req.Tick)
	if req.Price != "" {
		p, err := decimal.NewFromString(req.Price)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "malformed price %q", req.Price)
		}
		if tick, err = s.conv.ToTick(p); err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
	}

	id, batch, err := s.svc.SubmitOrder(ctx, req.Trader, auction.Order{
		Market: auction.MarketID(req.Market),
		Side:   side,
		Role:   role,
		Tick:   tick,
		Qty:    req.Qty,
		Nonce:  req.Nonce,
		Expiry: req.Expiry,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &auctionpb.SubmitOrderResponse{OrderID: id.String(), Batch: uint64(batch)}, nil
}

func (s *Server) CancelOrder(ctx context.Context, req *auctionpb.CancelOrderRequest) (*auctionpb.CancelOrderResponse, error) {
	id, err := parseOrderID(req.OrderID)
	if err != nil {
		return nil, err
	}
	if err := s.svc.CancelOrder(ctx, req.Trader, id); err != nil {
		return nil, toStatus(err)
	}
	return &auctionpb.CancelOrderResponse{}, nil
}

func (s *Server) FinalizeBatch(ctx context.Context, req *auctionpb.FinalizeBatchRequest) (*auctionpb.FinalizeBatchResponse, error) {
	if req.MaxSteps <= 0 {
		return nil, status.Error(codes.InvalidArgument, "max_steps must be positive")
	}
	phase, done, err := s.svc.FinalizeBatch(ctx, auction.MarketID(req.Market), auction.BatchID(req.Batch), req.MaxSteps)
	if err != nil {
		return nil, toStatus(err)
	}
	return &auctionpb.FinalizeBatchResponse{Phase: phase.String(), Done: done}, nil
}

func (s *Server) GetClearing(ctx context.Context, req *auctionpb.GetClearingRequest) (*auctionpb.GetClearingResponse, error) {
	res, done, err := s.svc.GetClearing(auction.MarketID(req.Market), auction.BatchID(req.Batch))
	if err != nil {
		return nil, toStatus(err)
	}
	return &auctionpb.GetClearingResponse{
		Market:      string(res.Market),
		Batch:       uint64(res.Batch),
		WindowStart: res.WindowStart,
		WindowEnd:   res.WindowEnd,
		BidTick:     int32(res.Bid.Tick),
		BidVolume:   res.Bid.Volume,
		AskTick:     int32(res.Ask.Tick),
		AskVolume:   res.Ask.Volume,
		Done:        done,
	}, nil
}

func (s *Server) OrderStatus(ctx context.Context, req *auctionpb.OrderStatusRequest) (*auctionpb.OrderStatusResponse, error) {
	id, err := parseOrderID(req.OrderID)
	if err != nil {
		return nil, err
	}
	filled, done, err := s.svc.OrderFilled(id)
	if err != nil {
		return nil, toStatus(err)
	}
	return &auctionpb.OrderStatusResponse{Filled: filled, Done: done}, nil
}

func (s *Server) ClaimFill(ctx context.Context, req *auctionpb.ClaimFillRequest) (*auctionpb.ClaimFillResponse, error) {
	id, err := parseOrderID(req.OrderID)
	if err != nil {
		return nil, err
	}
	amount, err := s.svc.ClaimFill(req.Trader, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return &auctionpb.ClaimFillResponse{Amount: amount}, nil
}

func (s *Server) TickLevel(ctx context.Context, req *auctionpb.TickLevelRequest) (*auctionpb.TickLevelResponse, error) {
	lvl, err := s.svc.TickLevel(auction.MarketID(req.Market), auction.BatchID(req.Batch), auction.Tick(req.Tick))
	if err != nil {
		return nil, toStatus(err)
	}
	return &auctionpb.TickLevelResponse{
		RestingBuy:         lvl.Qty[auction.RestingBuy],
		RestingSell:        lvl.Qty[auction.RestingSell],
		AggressiveBuy:      lvl.Qty[auction.AggressiveBuy],
		AggressiveSell:     lvl.Qty[auction.AggressiveSell],
		RestingBuyFill:     uint64(lvl.Fill[auction.RestingBuy]),
		RestingSellFill:    uint64(lvl.Fill[auction.RestingSell]),
		AggressiveBuyFill:  uint64(lvl.Fill[auction.AggressiveBuy]),
		AggressiveSellFill: uint64(lvl.Fill[auction.AggressiveSell]),
	}, nil
}

func parseSide(s string) (auction.Side, error) {
	switch s {
	case "buy":
		return auction.Buy, nil
	case "sell":
		return auction.Sell, nil
	default:
		return 0, status.Errorf(codes.InvalidArgument, "unknown side %q", s)
	}
}

func parseRole(s string) (auction.Role, error) {
	switch s {
	case "maker":
		return auction.Maker, nil
	case "taker":
		return auction.Taker, nil
	default:
		return 0, status.Errorf(codes.InvalidArgument, "unknown role %q", s)
	}
}

func parseOrderID(s string) (auction.OrderID, error) {
	var id auction.OrderID
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != len(id) {
		return id, status.Error(codes.InvalidArgument, "malformed order id")
	}
	copy(id[:], raw)
	return id, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, auction.ErrInvalidTick),
		errors.Is(err, auction.ErrZeroQuantity),
		errors.Is(err, auction.ErrExpired):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, auction.ErrOrderNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, auction.ErrDuplicateOrder):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, auction.ErrNotOwner):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, auction.ErrMarketInactive),
		errors.Is(err, auction.ErrBatchClosed),
		errors.Is(err, auction.ErrBatchStillOpen),
		errors.Is(err, auction.ErrTakerNotCancellable),
		errors.Is(err, auction.ErrAlreadyCancelled),
		errors.Is(err, auction.ErrAlreadyClaimed),
		errors.Is(err, auction.ErrAlreadyFinalized):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
