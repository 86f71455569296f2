package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/leadez/outreach/internal/domain"
	"github.com/leadez/outreach/internal/pkg/logger"
)

// Sender attempts delivery of one queue entry. Implementations communicate
// failure through the result, never by panicking across the boundary; the
// dispatcher still converts a panic into a failed dispatch as a last line
// of defense.
type Sender interface {
	Send(ctx context.Context, e domain.QueueEntry) domain.SendResult
}

// DispatcherConfig holds dispatch loop configuration.
type DispatcherConfig struct {
	// MaxPerMinute bounds dispatch throughput. The loop waits a fixed
	// 60s/MaxPerMinute after every item regardless of send duration, so
	// true throughput never exceeds the configured rate.
	MaxPerMinute int
	// RefillThreshold triggers an auto-refill when the queue shrinks
	// below it.
	RefillThreshold int
	// Clock defaults to the wall clock when nil. Tests inject a virtual
	// clock.
	Clock Clock
}

// RunStats is the aggregate outcome of one Process call.
type RunStats struct {
	Sent         int           `json:"sent"`
	Failed       int           `json:"failed"`
	Elapsed      time.Duration `json:"elapsed"`
	AchievedRate float64       `json:"achieved_rate"` // sent per minute
}

// Dispatcher drains a delivery queue through a sender at a fixed cadence,
// writing per-item outcomes back to the store. A single dispatcher owns its
// queue; run one Process at a time.
type Dispatcher struct {
	queue  *DeliveryQueue
	store  MessageStore
	sender Sender
	clock  Clock

	maxPerMinute    int
	refillThreshold int
}

// NewDispatcher creates a dispatcher over the given queue, store and sender.
func NewDispatcher(queue *DeliveryQueue, store MessageStore, sender Sender, cfg DispatcherConfig) *Dispatcher {
	if cfg.MaxPerMinute <= 0 {
		cfg.MaxPerMinute = 10
	}
	if cfg.RefillThreshold <= 0 {
		cfg.RefillThreshold = 10
	}
	if cfg.Clock == nil {
		cfg.Clock = realClock{}
	}
	return &Dispatcher{
		queue:           queue,
		store:           store,
		sender:          sender,
		clock:           cfg.Clock,
		maxPerMinute:    cfg.MaxPerMinute,
		refillThreshold: cfg.RefillThreshold,
	}
}

// Process drains the queue until it is empty and a refill yields nothing,
// or until ctx is cancelled. In dry-run mode successful dispatches are
// counted but message and lead statuses are left untouched, since no real
// delivery occurred. Per-item failures never abort the loop.
func (d *Dispatcher) Process(ctx context.Context, dryRun bool) (RunStats, error) {
	delay := time.Duration(float64(time.Minute) / float64(d.maxPerMinute))
	start := d.clock.Now()

	logger.Info("dispatch run starting",
		"rate_per_minute", d.maxPerMinute, "delay", delay.String(), "dry_run", dryRun)

	d.queue.setBusy(true)
	defer d.queue.setBusy(false)

	var stats RunStats
	// Leads already advanced to SENT during this run; the transition fires
	// only on a lead's first successful dispatch.
	advanced := make(map[string]bool)

	for {
		if ctx.Err() != nil {
			d.finish(&stats, start, "cancelled")
			return stats, ctx.Err()
		}

		if _, err := d.queue.AutoRefill(ctx, d.refillThreshold); err != nil {
			// An unreachable store means nothing eligible this round, not
			// a fatal run error.
			logger.Error("queue refill failed", "error", err.Error())
		}

		entry, ok := d.queue.Next()
		if !ok {
			break
		}

		d.dispatchOne(ctx, entry, dryRun, advanced, &stats)
		d.clock.Sleep(ctx, delay)
	}

	d.finish(&stats, start, "complete")
	return stats, nil
}

func (d *Dispatcher) finish(stats *RunStats, start time.Time, outcome string) {
	stats.Elapsed = d.clock.Now().Sub(start)
	if secs := stats.Elapsed.Seconds(); secs > 0 {
		stats.AchievedRate = float64(stats.Sent) / secs * 60
	}
	logger.Info("dispatch run "+outcome,
		"sent", stats.Sent, "failed", stats.Failed,
		"elapsed", stats.Elapsed.String(), "achieved_rate", fmt.Sprintf("%.2f", stats.AchievedRate))
}

func (d *Dispatcher) dispatchOne(ctx context.Context, entry domain.QueueEntry, dryRun bool, advanced map[string]bool, stats *RunStats) {
	res := d.send(ctx, entry)

	if !res.Success {
		d.recordFailure(ctx, entry, res.Error, stats)
		return
	}

	if dryRun {
		// Simulation: count the dispatch but leave the message APPROVED.
		logger.Info("dry-run dispatch", "channel", string(entry.Channel), "lead", entry.LeadName)
		stats.Sent++
		d.queue.recordDispatch(true)
		return
	}

	at := res.SentAt
	if at.IsZero() {
		at = d.clock.Now()
	}
	if err := d.store.MarkMessageSent(ctx, entry.MessageID, at); err != nil {
		d.recordFailure(ctx, entry, fmt.Sprintf("record sent: %v", err), stats)
		return
	}
	if !advanced[entry.LeadID] {
		if err := d.store.UpdateLeadStatus(ctx, entry.LeadID, domain.LeadSent); err != nil {
			logger.Error("lead status update failed", "lead_id", entry.LeadID, "error", err.Error())
		}
		advanced[entry.LeadID] = true
	}
	stats.Sent++
	d.queue.recordDispatch(true)
}

func (d *Dispatcher) recordFailure(ctx context.Context, entry domain.QueueEntry, errMsg string, stats *RunStats) {
	logger.Warn("dispatch failed", "message_id", entry.MessageID, "error", errMsg)
	if err := d.store.MarkMessageFailed(ctx, entry.MessageID, errMsg); err != nil {
		logger.Error("failure status write failed", "message_id", entry.MessageID, "error", err.Error())
	}
	stats.Failed++
	d.queue.recordDispatch(false)
}

// send invokes the sender, converting a panic into a failed result so one
// bad entry cannot take down the loop.
func (d *Dispatcher) send(ctx context.Context, entry domain.QueueEntry) (res domain.SendResult) {
	defer func() {
		if r := recover(); r != nil {
			res = domain.SendResult{Success: false, Error: fmt.Sprintf("sender panic: %v", r)}
		}
	}()
	return d.sender.Send(ctx, entry)
}
