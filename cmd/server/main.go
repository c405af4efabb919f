package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/auralshin/dfba-sub000/api/auctionpb"
	"github.com/auralshin/dfba-sub000/api/grpcserver"
	"github.com/auralshin/dfba-sub000/api/ws"
	"github.com/auralshin/dfba-sub000/config"
	"github.com/auralshin/dfba-sub000/domain/auction"
	"github.com/auralshin/dfba-sub000/infra/kafka"
	"github.com/auralshin/dfba-sub000/infra/results"
	"github.com/auralshin/dfba-sub000/infra/sequence"
	"github.com/auralshin/dfba-sub000/infra/wal/entry"
	"github.com/auralshin/dfba-sub000/jobs/broadcaster"
	"github.com/auralshin/dfba-sub000/pkg/price"
	"github.com/auralshin/dfba-sub000/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	// ---------------- Entry WAL ----------------

	entryWAL, err := entry.Open(entry.Config{Dir: cfg.WALDir})
	if err != nil {
		log.Fatalf("entry WAL init failed: %v", err)
	}
	defer entryWAL.Close()

	// ---------------- Results store ----------------

	store, err := results.Open(cfg.ResultsDir)
	if err != nil {
		log.Fatalf("results store init failed: %v", err)
	}
	defer store.Close()

	// ---------------- Sequencer ----------------

	seqGen := sequence.New(0)

	// ---------------- Fill feed ----------------

	fills := kafka.NewProducer(cfg.KafkaBrokers, cfg.FillsTopic)
	defer fills.Close()

	// ---------------- Live feed ----------------

	feed := ws.NewFeed(sugar)

	// ---------------- Service ----------------

	svc := service.New(service.Config{
		Window:         cfg.Window,
		TickMin:        cfg.TickMin,
		TickMax:        cfg.TickMax,
		FinalizeBudget: cfg.FinalizeBudget,
		RetainBatches:  cfg.RetainBatches,
	}, service.Deps{
		Log:   sugar,
		Clock: service.SystemClock{},
		Auth:  service.AllowAll{},
		WAL:   entryWAL,
		Seq:   seqGen,
		Store: store,
		Fills: fills,
		Sink:  feed,
	})

	for _, m := range cfg.Markets {
		if err := svc.CreateMarket(auction.MarketID(m)); err != nil && !errors.Is(err, service.ErrMarketExists) {
			log.Fatalf("market %s init failed: %v", m, err)
		}
	}

	// ---------------- WAL replay ----------------

	if err := svc.Replay(cfg.WALDir); err != nil {
		log.Fatalf("WAL replay failed: %v", err)
	}

	// ---------------- Background jobs ----------------

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bc, err := broadcaster.New(store, cfg.KafkaBrokers, cfg.ResultsTopic, cfg.BroadcastInterval, sugar)
	if err != nil {
		log.Fatalf("broadcaster init failed: %v", err)
	}
	defer bc.Close()
	go bc.Run(ctx)

	// ---------------- Websocket feed ----------------

	wsSrv := &http.Server{Addr: cfg.WSAddr, Handler: feed}
	go func() {
		if err := wsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ws server exited: %v", err)
		}
	}()

	// ---------------- gRPC ----------------

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("listen failed: %v", err)
	}

	conv, err := price.NewConverter(cfg.TickSize)
	if err != nil {
		log.Fatalf("tick size invalid: %v", err)
	}

	grpcSrv := grpc.NewServer()
	auctionpb.RegisterAuctionServiceServer(grpcSrv, grpcserver.New(svc, conv, sugar))

	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		<-sigc
		sugar.Infow("shutting down")
		cancel()
		_ = wsSrv.Close()
		grpcSrv.GracefulStop()
	}()

	sugar.Infow("auction engine running", "grpc", cfg.GRPCAddr, "ws", cfg.WSAddr, "window", cfg.Window)
	if err := grpcSrv.Serve(lis); err != nil {
		log.Fatalf("gRPC server exited: %v", err)
	}
}
