package worker

import (
	"context"
	"sync"
	"time"

	"github.com/leadez/outreach/internal/domain"
	"github.com/leadez/outreach/internal/pkg/logger"
)

// MessageStore is the persistence port the delivery side needs. The full
// repository implementations in repository/postgres and repository/sqlite
// satisfy it.
type MessageStore interface {
	// FetchEligible returns up to limit queue entries in the given message
	// status, joined with lead dispatch fields, ordered by message
	// creation time ascending. channel == "" means all channels.
	FetchEligible(ctx context.Context, status domain.MessageStatus, channel domain.Channel, limit int) ([]domain.QueueEntry, error)

	// MarkMessageSent records a successful dispatch and sets sent_at.
	MarkMessageSent(ctx context.Context, id string, at time.Time) error

	// MarkMessageFailed transitions a message to FAILED, increments its
	// retry count and records the error text.
	MarkMessageFailed(ctx context.Context, id string, errMsg string) error

	// UpdateLeadStatus transitions a lead's status.
	UpdateLeadStatus(ctx context.Context, leadID string, status domain.LeadStatus) error
}

// QueueStats is a snapshot of a queue's cumulative lifetime counters.
type QueueStats struct {
	TotalFetched int  `json:"total_fetched"`
	TotalSent    int  `json:"total_sent"`
	TotalFailed  int  `json:"total_failed"`
	BatchCount   int  `json:"batch_count"`
	CurrentSize  int  `json:"current_size"`
	Busy         bool `json:"busy"`
}

// DeliveryQueue is a FIFO working set of message entries pulled from the
// store in batches. Construct one per dispatch loop and pass it explicitly;
// there is no shared instance.
type DeliveryQueue struct {
	store     MessageStore
	batchSize int

	// defaults used by AutoRefill
	status  domain.MessageStatus
	channel domain.Channel

	mu      sync.Mutex
	entries []domain.QueueEntry
	seen    map[string]bool
	stats   QueueStats
}

// NewDeliveryQueue creates a queue that refills with APPROVED messages in
// batches of batchSize.
func NewDeliveryQueue(store MessageStore, batchSize int) *DeliveryQueue {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &DeliveryQueue{
		store:     store,
		batchSize: batchSize,
		status:    domain.MessageApproved,
		seen:      make(map[string]bool),
	}
}

// SetChannelFilter restricts refills to a single channel.
func (q *DeliveryQueue) SetChannelFilter(c domain.Channel) { q.channel = c }

// FetchBatch pulls up to batchSize entries matching the filter from the
// store and appends them to the tail of the queue. An entry enters a queue
// instance at most once: rows this instance has already pulled are skipped,
// so a dry run (which leaves statuses untouched) cannot re-dispatch the
// same message. Returns the number added; zero with a nil error means
// nothing new is eligible, which is a normal outcome.
func (q *DeliveryQueue) FetchBatch(ctx context.Context, status domain.MessageStatus, channel domain.Channel) (int, error) {
	rows, err := q.store.FetchEligible(ctx, status, channel, q.batchSize)
	if err != nil {
		return 0, err
	}

	q.mu.Lock()
	added := 0
	for _, e := range rows {
		if q.seen[e.MessageID] {
			continue
		}
		q.seen[e.MessageID] = true
		q.entries = append(q.entries, e)
		added++
	}
	q.stats.TotalFetched += added
	q.stats.BatchCount++
	size := len(q.entries)
	batch := q.stats.BatchCount
	q.mu.Unlock()

	logger.Info("fetched message batch", "batch", batch, "fetched", added, "queue_size", size)
	return added, nil
}

// Next pops the head of the queue. Non-blocking; the second return is false
// when the queue is empty.
func (q *DeliveryQueue) Next() (domain.QueueEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return domain.QueueEntry{}, false
	}
	e := q.entries[0]
	q.entries = q.entries[1:]
	return e, true
}

// Size returns the current number of queued entries.
func (q *DeliveryQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// AutoRefill performs exactly one FetchBatch with the default filters when
// the queue size is below minThreshold. It never fetches more than once per
// call, so an empty store cannot trigger a refill storm.
func (q *DeliveryQueue) AutoRefill(ctx context.Context, minThreshold int) (int, error) {
	if q.Size() >= minThreshold {
		return 0, nil
	}
	return q.FetchBatch(ctx, q.status, q.channel)
}

// Clear drops all queued entries without dispatching them and forgets which
// entries were fetched, so a cleared queue can pull them again.
func (q *DeliveryQueue) Clear() {
	q.mu.Lock()
	q.entries = nil
	q.seen = make(map[string]bool)
	q.mu.Unlock()
	logger.Warn("delivery queue cleared")
}

// Stats returns a snapshot of the queue's cumulative counters.
func (q *DeliveryQueue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	s := q.stats
	s.CurrentSize = len(q.entries)
	return s
}

func (q *DeliveryQueue) recordDispatch(success bool) {
	q.mu.Lock()
	if success {
		q.stats.TotalSent++
	} else {
		q.stats.TotalFailed++
	}
	q.mu.Unlock()
}

func (q *DeliveryQueue) setBusy(b bool) {
	q.mu.Lock()
	q.stats.Busy = b
	q.mu.Unlock()
}
