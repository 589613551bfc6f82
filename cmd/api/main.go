package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-donation-fulfillment/internal/actors"
	"github.com/ariefcatur/go-donation-fulfillment/internal/catalog"
	"github.com/ariefcatur/go-donation-fulfillment/internal/config"
	"github.com/ariefcatur/go-donation-fulfillment/internal/donations"
	"github.com/ariefcatur/go-donation-fulfillment/internal/httpx"
	kafkax "github.com/ariefcatur/go-donation-fulfillment/internal/kafka"
	"github.com/ariefcatur/go-donation-fulfillment/internal/logging"
	"github.com/ariefcatur/go-donation-fulfillment/internal/metrics"
	"github.com/ariefcatur/go-donation-fulfillment/internal/postgres"
	"github.com/ariefcatur/go-donation-fulfillment/internal/redisx"
	"github.com/ariefcatur/go-donation-fulfillment/internal/registry"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logging.New(cfg.LogLevel, cfg.ServiceName)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stores
	var (
		donationRepo  donations.Repository = donations.NewMemoryRepository()
		registryStore registry.Store       = registry.NewMemoryStore()
	)
	if cfg.StoreBackend == "postgres" {
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatal("db connect", zap.Error(err))
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Fatal("db migrate", zap.Error(err))
		}
		donationRepo = &donations.PostgresRepository{DB: db}
		registryStore = &registry.PostgresStore{DB: db}
	}

	// Reference data + actor directory, fronted by redis when configured
	cat := catalog.Default()
	suppliers := catalog.DefaultSuppliers()
	var directory actors.Directory = actors.Seed(suppliers)
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		directory = &actors.CachedDirectory{Next: directory, Redis: rdb, TTL: cfg.ActorCacheTTL, Log: log}
	}

	// Kafka bus, one producer per topic
	var bus *kafkax.Bus
	if len(cfg.KafkaBrokers) > 0 {
		bus = kafkax.NewBus(cfg.KafkaBrokers, 1024, log,
			donations.TopicDonationCreated,
			donations.TopicDonationStatusChanged,
			registry.TopicRequestFulfilled,
			registry.TopicOpportunityFilled,
		)
		bus.Start(ctx)
	}

	m := metrics.New()
	donationSvc := &donations.Service{
		Repo:        donationRepo,
		Prices:      cat,
		Suppliers:   suppliers,
		Metrics:     m,
		Log:         log.Named("donations"),
		ServiceName: cfg.ServiceName,
	}
	registrySvc := &registry.Service{
		Store:       registryStore,
		Catalog:     cat,
		Metrics:     m,
		Log:         log.Named("registry"),
		ServiceName: cfg.ServiceName,
	}
	if bus != nil {
		donationSvc.Publisher = bus
		registrySvc.Publisher = bus
	}

	router := httpx.NewRouter(nil)
	donationsHandler := &httpx.DonationsHandler{Service: donationSvc, Directory: directory, Redis: rdb, Log: log}
	if rdb != nil {
		donationsHandler.Idempotency = redisx.CreateKeys{RDB: rdb}
	}
	donationsHandler.Register(router)
	(&httpx.CatalogHandler{Catalog: cat, Suppliers: suppliers, Log: log}).Register(router)
	(&httpx.RegistryHandler{Service: registrySvc, Log: log}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info("http listening", zap.String("addr", cfg.HTTPAddr), zap.String("store", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	if bus != nil {
		bus.Close()
		bus.WaitClosed()
	}
	cancel()
}
