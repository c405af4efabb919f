package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/auralshin/dfba-sub000/domain/auction"
)

// Config is the full server configuration, loaded from the
// environment. Every field has a development-friendly default.
type Config struct {
	GRPCAddr string
	WSAddr   string

	WALDir     string
	ResultsDir string

	KafkaBrokers      []string
	ResultsTopic      string
	FillsTopic        string
	BroadcastInterval time.Duration

	Markets  []string
	TickSize string

	Window         time.Duration
	TickMin        auction.Tick
	TickMax        auction.Tick
	FinalizeBudget int
	RetainBatches  int
}

func Load() (*Config, error) {
	cfg := &Config{
		GRPCAddr:     getEnv("DFBA_GRPC_ADDR", ":50051"),
		WSAddr:       getEnv("DFBA_WS_ADDR", ":8080"),
		WALDir:       getEnv("DFBA_WAL_DIR", "./wal_data"),
		ResultsDir:   getEnv("DFBA_RESULTS_DIR", "./results_data"),
		KafkaBrokers: strings.Split(getEnv("DFBA_KAFKA_BROKERS", "localhost:9092"), ","),
		ResultsTopic: getEnv("DFBA_RESULTS_TOPIC", "dfba.clearing"),
		FillsTopic:   getEnv("DFBA_FILLS_TOPIC", "dfba.fills"),
		Markets:      strings.Split(getEnv("DFBA_MARKETS", "ETH-USD"), ","),
		TickSize:     getEnv("DFBA_TICK_SIZE", "0.01"),
	}

	var err error
	if cfg.BroadcastInterval, err = getDuration("DFBA_BROADCAST_INTERVAL", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.Window, err = getDuration("DFBA_BATCH_WINDOW", 500*time.Millisecond); err != nil {
		return nil, err
	}

	tickMin, err := getInt("DFBA_TICK_MIN", -1_000_000)
	if err != nil {
		return nil, err
	}
	tickMax, err := getInt("DFBA_TICK_MAX", 1_000_000)
	if err != nil {
		return nil, err
	}
	if tickMin >= tickMax {
		return nil, fmt.Errorf("config: tick domain [%d, %d] is empty", tickMin, tickMax)
	}
	cfg.TickMin, cfg.TickMax = auction.Tick(tickMin), auction.Tick(tickMax)

	budget, err := getInt("DFBA_FINALIZE_BUDGET", 256)
	if err != nil {
		return nil, err
	}
	cfg.FinalizeBudget = int(budget)

	retain, err := getInt("DFBA_RETAIN_BATCHES", 256)
	if err != nil {
		return nil, err
	}
	cfg.RetainBatches = int(retain)

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}
