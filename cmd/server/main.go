package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/leadez/outreach/internal/api"
	"github.com/leadez/outreach/internal/config"
	"github.com/leadez/outreach/internal/domain"
	"github.com/leadez/outreach/internal/enrich"
	"github.com/leadez/outreach/internal/messagegen"
	"github.com/leadez/outreach/internal/pipeline"
	"github.com/leadez/outreach/internal/pkg/distlock"
	"github.com/leadez/outreach/internal/pkg/logger"
	"github.com/leadez/outreach/internal/repository/postgres"
	"github.com/leadez/outreach/internal/repository/sqlite"
	"github.com/leadez/outreach/internal/sender"
	"github.com/leadez/outreach/internal/service/outreach"
	"github.com/leadez/outreach/internal/worker"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx := context.Background()

	leadRepo, msgRepo, runRepo, msgStore, pgDB, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB,
		})
		defer rdb.Close()
	}

	composer, err := messagegen.New(time.Now().UnixNano())
	if err != nil {
		log.Fatalf("init composer: %v", err)
	}

	svc := outreach.NewService(leadRepo, msgRepo, runRepo,
		enrich.New(time.Now().UnixNano()), composer,
		outreach.Options{
			MinConfidenceScore: cfg.Pipeline.MinConfidenceScore,
			MaxRetries:         cfg.Pipeline.MaxRetries,
		})

	dispatch := newDispatchFunc(cfg, msgStore, rdb, pgDB)
	engine := pipeline.NewEngine(cfg.Pipeline.BatchSize, cfg.Pipeline.MaxRetries)
	engine.EnrichFirst = cfg.Pipeline.EnrichFirst

	server := api.NewServer(api.NewHandlers(svc, engine, dispatch))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		logger.Info("tools API listening", "addr", addr, "driver", cfg.Database.Driver)
		if err := server.ListenAndServe(addr); err != nil {
			logger.Error("server stopped", "error", err.Error())
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err.Error())
	}
}

// openStore wires the repositories for the configured backend. The
// returned *sql.DB is non-nil only for Postgres; it backs the advisory
// dispatch lock.
func openStore(ctx context.Context, cfg *config.Config) (outreach.LeadRepository, outreach.MessageRepository, outreach.RunRepository, worker.MessageStore, *sql.DB, error) {
	switch cfg.Database.Driver {
	case "postgres":
		db, err := postgres.Open(ctx, cfg.Database.URL)
		if err != nil {
			return nil, nil, nil, nil, nil, err
		}
		store := postgres.NewStore(db)
		return store.Leads, store.Messages, store.Runs, store.Messages, db, nil
	case "sqlite":
		store, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			return nil, nil, nil, nil, nil, err
		}
		return store.Leads(), store.Messages(), store.Runs(), store, nil, nil
	default:
		return nil, nil, nil, nil, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

// newDispatchFunc builds the send_messages implementation. Each call runs
// one guarded dispatch pass; dry runs always go to message storage, live
// runs use SMTP when configured.
func newDispatchFunc(cfg *config.Config, store worker.MessageStore, rdb *redis.Client, pgDB *sql.DB) api.DispatchFunc {
	return func(ctx context.Context, dryRun bool, channel domain.Channel) (worker.RunStats, error) {
		send, err := buildSender(cfg, dryRun)
		if err != nil {
			return worker.RunStats{}, err
		}

		queue := worker.NewDeliveryQueue(store, cfg.Pipeline.BatchSize)
		if channel != "" {
			queue.SetChannelFilter(channel)
		}
		d := worker.NewDispatcher(queue, store, send, worker.DispatcherConfig{
			MaxPerMinute:    cfg.Dispatch.MaxPerMinute,
			RefillThreshold: cfg.Dispatch.RefillThreshold,
		})

		run := func(ctx context.Context) (worker.RunStats, error) {
			return d.Process(ctx, dryRun)
		}

		// Only one dispatch loop may drain the backlog at a time. SQLite
		// mode is single-process, so it runs unguarded.
		var lock distlock.Lock
		if rdb != nil {
			lock = distlock.NewRedisLock(rdb, "dispatch", 10*time.Minute)
		} else if pgDB != nil {
			lock = distlock.NewAdvisoryLock(pgDB, "dispatch")
		}
		if lock == nil {
			return run(ctx)
		}

		var stats worker.RunStats
		err = distlock.Guard(ctx, lock, func(ctx context.Context) error {
			var perr error
			stats, perr = run(ctx)
			return perr
		})
		return stats, err
	}
}

func buildSender(cfg *config.Config, dryRun bool) (worker.Sender, error) {
	storage, err := sender.NewStorageSender(cfg.Storage.MessagesDir)
	if err != nil {
		return nil, err
	}

	var email sender.Sender = storage
	if !dryRun && cfg.SMTP.Host != "" {
		email = sender.NewSMTPSender(sender.SMTPConfig{
			Host: cfg.SMTP.Host, Port: cfg.SMTP.Port,
			Username: cfg.SMTP.Username, Password: cfg.SMTP.Password,
			From: cfg.SMTP.From,
		})
	}

	return sender.NewChannelSender(map[domain.Channel]sender.Sender{
		domain.ChannelEmail:    email,
		domain.ChannelLinkedIn: sender.NewLinkedInSender(storage),
	}), nil
}
