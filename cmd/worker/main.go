// Command worker runs one dispatch pass over the approved-message backlog
// and exits. Schedule it from cron or a job runner; the distributed lock
// keeps overlapping invocations from double-sending.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/leadez/outreach/internal/config"
	"github.com/leadez/outreach/internal/domain"
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
	dryRun := flag.Bool("dry-run", true, "simulate delivery without status writes")
	channel := flag.String("channel", "", "restrict the run to one channel (email, linkedin)")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// The flag wins when given explicitly; otherwise the config decides.
	flagSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "dry-run" {
			flagSet = true
		}
	})
	if !flagSet {
		*dryRun = cfg.Dispatch.DryRun
	}

	var chFilter domain.Channel
	if *channel != "" {
		if chFilter, err = domain.ParseChannel(*channel); err != nil {
			log.Fatalf("invalid channel: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		msgStore worker.MessageStore
		runs     outreach.RunRepository
		pgDB     *sql.DB
	)
	switch cfg.Database.Driver {
	case "postgres":
		db, err := postgres.Open(ctx, cfg.Database.URL)
		if err != nil {
			log.Fatalf("open database: %v", err)
		}
		defer db.Close()
		store := postgres.NewStore(db)
		msgStore, runs, pgDB = store.Messages, store.Runs, db
	case "sqlite":
		store, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			log.Fatalf("open database: %v", err)
		}
		defer store.Close()
		msgStore, runs = store, store.Runs()
	default:
		log.Fatalf("unknown database driver %q", cfg.Database.Driver)
	}

	send, err := buildSender(cfg, *dryRun)
	if err != nil {
		log.Fatalf("build sender: %v", err)
	}

	queue := worker.NewDeliveryQueue(msgStore, cfg.Pipeline.BatchSize)
	if chFilter != "" {
		queue.SetChannelFilter(chFilter)
	}
	d := worker.NewDispatcher(queue, msgStore, send, worker.DispatcherConfig{
		MaxPerMinute:    cfg.Dispatch.MaxPerMinute,
		RefillThreshold: cfg.Dispatch.RefillThreshold,
	})

	var stats worker.RunStats
	run := func(ctx context.Context) error {
		var perr error
		stats, perr = d.Process(ctx, *dryRun)
		return perr
	}

	started := time.Now()
	switch {
	case cfg.Redis.Addr != "":
		rdb := redis.NewClient(&redis.Options{
			Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB,
		})
		defer rdb.Close()
		err = distlock.Guard(ctx, distlock.NewRedisLock(rdb, "dispatch", 10*time.Minute), run)
	case pgDB != nil:
		err = distlock.Guard(ctx, distlock.NewAdvisoryLock(pgDB, "dispatch"), run)
	default:
		err = run(ctx)
	}
	if errors.Is(err, distlock.ErrNotAcquired) {
		logger.Info("another worker holds the dispatch lock, nothing to do")
		return
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("dispatch run: %v", err)
	}

	completed := time.Now()
	rec := &domain.PipelineRun{
		Status:         domain.RunCompleted,
		DryRun:         *dryRun,
		MessagesSent:   stats.Sent,
		MessagesFailed: stats.Failed,
		StartedAt:      started,
		CompletedAt:    &completed,
	}
	if rerr := runs.Record(context.WithoutCancel(ctx), rec); rerr != nil {
		logger.Error("record run failed", "error", rerr.Error())
	}
	logger.Info("worker done",
		"sent", stats.Sent, "failed", stats.Failed,
		"elapsed", stats.Elapsed.String(), "dry_run", *dryRun)
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
