package grpcserver

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/auralshin/dfba-sub000/api/auctionpb"
	"github.com/auralshin/dfba-sub000/infra/results"
	"github.com/auralshin/dfba-sub000/infra/sequence"
	"github.com/auralshin/dfba-sub000/infra/wal/entry"
	"github.com/auralshin/dfba-sub000/pkg/price"
	"github.com/auralshin/dfba-sub000/service"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	w, err := entry.Open(entry.Config{Dir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	store, err := results.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = w.Close()
		_ = store.Close()
	})

	svc := service.New(service.Config{
		Window:  time.Hour,
		TickMin: -1000,
		TickMax: 1000,
	}, service.Deps{
		Log:   zap.NewNop().Sugar(),
		Clock: service.SystemClock{},
		Auth:  service.AllowAll{},
		WAL:   w,
		Seq:   sequence.New(0),
		Store: store,
	})
	if err := svc.CreateMarket("ETH-USD"); err != nil {
		t.Fatal(err)
	}
	conv, err := price.NewConverter("0.5")
	if err != nil {
		t.Fatal(err)
	}
	return New(svc, conv, zap.NewNop().Sugar())
}

func TestSubmitByPrice(t *testing.T) {
	srv := newTestServer(t)

	resp, err := srv.SubmitOrder(context.Background(), &auctionpb.SubmitOrderRequest{
		Trader: "alice", Market: "ETH-USD", Side: "buy", Role: "maker",
		Price: "50.5", Qty: 10,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if resp.OrderID == "" {
		t.Error("empty order id")
	}

	// 50.5 / 0.5 = tick 101
	lvl, err := srv.TickLevel(context.Background(), &auctionpb.TickLevelRequest{
		Market: "ETH-USD", Batch: resp.Batch, Tick: 101,
	})
	if err != nil {
		t.Fatalf("tick level: %v", err)
	}
	if lvl.RestingBuy != 10 {
		t.Errorf("resting buy = %d, want 10", lvl.RestingBuy)
	}
}

func TestSubmitRejectsBadInput(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  *auctionpb.SubmitOrderRequest
		code codes.Code
	}{
		{"bad side", &auctionpb.SubmitOrderRequest{Trader: "a", Market: "ETH-USD", Side: "hold", Role: "maker", Tick: 1, Qty: 1}, codes.InvalidArgument},
		{"bad role", &auctionpb.SubmitOrderRequest{Trader: "a", Market: "ETH-USD", Side: "buy", Role: "hodler", Tick: 1, Qty: 1}, codes.InvalidArgument},
		{"no trader", &auctionpb.SubmitOrderRequest{Market: "ETH-USD", Side: "buy", Role: "maker", Tick: 1, Qty: 1}, codes.InvalidArgument},
		{"off grid", &auctionpb.SubmitOrderRequest{Trader: "a", Market: "ETH-USD", Side: "buy", Role: "maker", Price: "50.3", Qty: 1}, codes.InvalidArgument},
		{"unknown market", &auctionpb.SubmitOrderRequest{Trader: "a", Market: "NOPE", Side: "buy", Role: "maker", Tick: 1, Qty: 1}, codes.FailedPrecondition},
		{"zero qty", &auctionpb.SubmitOrderRequest{Trader: "a", Market: "ETH-USD", Side: "buy", Role: "maker", Tick: 1}, codes.InvalidArgument},
	}
	for _, tc := range cases {
		_, err := srv.SubmitOrder(ctx, tc.req)
		if status.Code(err) != tc.code {
			t.Errorf("%s: code = %v, want %v", tc.name, status.Code(err), tc.code)
		}
	}
}

func TestCancelAndStatusCodes(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	resp, err := srv.SubmitOrder(ctx, &auctionpb.SubmitOrderRequest{
		Trader: "alice", Market: "ETH-USD", Side: "buy", Role: "maker", Tick: 5, Qty: 3,
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := srv.CancelOrder(ctx, &auctionpb.CancelOrderRequest{Trader: "bob", OrderID: resp.OrderID}); status.Code(err) != codes.PermissionDenied {
		t.Errorf("foreign cancel code = %v", status.Code(err))
	}
	if _, err := srv.CancelOrder(ctx, &auctionpb.CancelOrderRequest{Trader: "alice", OrderID: "zz"}); status.Code(err) != codes.InvalidArgument {
		t.Errorf("bad id code = %v", status.Code(err))
	}
	if _, err := srv.CancelOrder(ctx, &auctionpb.CancelOrderRequest{Trader: "alice", OrderID: resp.OrderID}); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	st, err := srv.OrderStatus(ctx, &auctionpb.OrderStatusRequest{OrderID: resp.OrderID})
	if status.Code(err) != codes.FailedPrecondition {
		t.Errorf("status of cancelled order: %v %v", st, err)
	}
}

func TestFinalizeBeforeWindowCloses(t *testing.T) {
	srv := newTestServer(t)

	_, err := srv.FinalizeBatch(context.Background(), &auctionpb.FinalizeBatchRequest{
		Market: "ETH-USD", Batch: 1 << 40, MaxSteps: 10,
	})
	if status.Code(err) != codes.FailedPrecondition {
		t.Errorf("code = %v, want FailedPrecondition", status.Code(err))
	}
}
