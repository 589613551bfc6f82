package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-donation-fulfillment/internal/config"
	"github.com/ariefcatur/go-donation-fulfillment/internal/donations"
	kafkax "github.com/ariefcatur/go-donation-fulfillment/internal/kafka"
	"github.com/ariefcatur/go-donation-fulfillment/internal/logging"
	"github.com/ariefcatur/go-donation-fulfillment/internal/redisx"
	"github.com/ariefcatur/go-donation-fulfillment/internal/tracker"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logging.New(cfg.LogLevel, cfg.ServiceName+"-tracker")
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if cfg.RedisAddr == "" || len(cfg.KafkaBrokers) == 0 {
		log.Fatal("tracker needs REDIS_ADDR and KAFKA_BROKERS")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &tracker.Service{
		Store:       &tracker.RedisStore{Redis: rdb},
		Log:         log,
		ServiceName: cfg.TrackerGroup,
	}

	// Both topics are keyed by donation id; per-partition order keeps a
	// donation's events in sequence.
	g, gctx := errgroup.WithContext(ctx)
	for _, topic := range []string{donations.TopicDonationCreated, donations.TopicDonationStatusChanged} {
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.TrackerGroup, topic, cfg.TrackerWorkers, log)
		g.Go(func() error {
			log.Info("tracker consumer started",
				zap.String("group", cfg.TrackerGroup), zap.String("topic", topic), zap.Int("workers", cfg.TrackerWorkers))
			return cons.Start(gctx, svc.HandleDonationEvent)
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("consumer exit", zap.Error(err))
	}
	log.Info("tracker stopped")
}
