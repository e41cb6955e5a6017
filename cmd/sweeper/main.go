package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/exp/slog"

	"github.com/jamiihub/jamii-portal-backend/internal/config"
	mongorepo "github.com/jamiihub/jamii-portal-backend/internal/repositories/mongodb"
	"github.com/jamiihub/jamii-portal-backend/pkg/mongodb"
)

// The sweeper marks transactions that have been pending longer than the
// configured timeout as timed out. It is the authority on timeouts: clients
// only ever observe the status, they never decide it. A callback racing the
// sweep wins, because both sides only mutate rows still in pending.
func main() {
	loop := flag.Duration("loop", 0, "run continuously at this interval instead of once")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	mongoClient, err := mongodb.NewClient(cfg.MongoDB.URI)
	if err != nil {
		slog.Error("failed to connect to mongodb", "error", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(ctx)
	}()

	txnRepo := mongorepo.NewTransactionRepository(mongoClient.Database(cfg.MongoDB.Database))

	sweep := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		cutoff := time.Now().Add(-cfg.Payments.PendingTimeout)
		swept, err := txnRepo.SweepPending(ctx, cutoff)
		if err != nil {
			slog.Error("sweep failed", "error", err)
			return
		}
		slog.Info("sweep complete", "timedOut", swept, "cutoff", cutoff)
	}

	sweep()
	if *loop <= 0 {
		return
	}

	ticker := time.NewTicker(*loop)
	defer ticker.Stop()
	for range ticker.C {
		sweep()
	}
}
