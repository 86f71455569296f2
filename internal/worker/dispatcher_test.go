package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadez/outreach/internal/domain"
	"github.com/leadez/outreach/internal/repository/sqlite"
)

// fakeClock advances instantly on Sleep so dispatch runs finish without
// real waits.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()
}

type funcSender func(ctx context.Context, e domain.QueueEntry) domain.SendResult

func (f funcSender) Send(ctx context.Context, e domain.QueueEntry) domain.SendResult {
	return f(ctx, e)
}

var okSender = funcSender(func(_ context.Context, _ domain.QueueEntry) domain.SendResult {
	return domain.SendResult{Success: true}
})

func TestProcessRateBound(t *testing.T) {
	store := newFakeStore(
		entry("m1", "l1"), entry("m2", "l2"), entry("m3", "l3"),
		entry("m4", "l4"), entry("m5", "l5"),
	)
	q := NewDeliveryQueue(store, 50)
	clock := newFakeClock()
	d := NewDispatcher(q, store, okSender, DispatcherConfig{MaxPerMinute: 10, Clock: clock})

	stats, err := d.Process(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 5, stats.Sent)
	assert.Zero(t, stats.Failed)

	// Fixed cadence: 60/10 = 6s after every item, so 5 items take at
	// least 4 inter-item delays.
	assert.GreaterOrEqual(t, stats.Elapsed, 4*6*time.Second)
	assert.LessOrEqual(t, stats.AchievedRate, 10.0)
	for _, s := range clock.sleeps {
		assert.Equal(t, 6*time.Second, s)
	}
}

func TestProcessLiveModeWritesStatuses(t *testing.T) {
	store := newFakeStore(entry("m1", "l1"))
	q := NewDeliveryQueue(store, 50)
	d := NewDispatcher(q, store, okSender, DispatcherConfig{MaxPerMinute: 60, Clock: newFakeClock()})

	_, err := d.Process(context.Background(), false)
	require.NoError(t, err)

	assert.Contains(t, store.sent, "m1")
	assert.Equal(t, domain.LeadSent, store.leadStatus["l1"])
}

func TestProcessDryRunLeavesStatusesUntouched(t *testing.T) {
	store := newFakeStore(entry("m1", "l1"), entry("m2", "l2"))
	q := NewDeliveryQueue(store, 50)
	d := NewDispatcher(q, store, okSender, DispatcherConfig{MaxPerMinute: 60, Clock: newFakeClock()})

	stats, err := d.Process(context.Background(), true)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Sent)
	assert.Empty(t, store.sent)
	assert.Empty(t, store.leadStatus)
}

func TestProcessDryRunAgainstSQLiteTerminates(t *testing.T) {
	// A dry run writes no statuses back, so the store keeps reporting the
	// same rows eligible. The run must still dispatch each message exactly
	// once and then complete.
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	lead := &domain.Lead{FullName: "Jane Doe", Email: "jane@acme.com", Status: domain.LeadMessaged}
	require.NoError(t, store.CreateLead(ctx, lead))
	msg := &domain.Message{
		LeadID: lead.ID, Channel: domain.ChannelEmail, Variant: "A",
		Content: "hello", Status: domain.MessageApproved,
	}
	require.NoError(t, store.CreateMessage(ctx, msg))

	q := NewDeliveryQueue(store, 50)
	d := NewDispatcher(q, store, okSender, DispatcherConfig{MaxPerMinute: 60, Clock: newFakeClock()})

	stats, err := d.Process(ctx, true)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Sent)
	assert.Equal(t, 1, q.Stats().TotalFetched)

	approved, err := store.ListMessagesByStatus(ctx, domain.MessageApproved, 0)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, msg.ID, approved[0].ID)

	got, err := store.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LeadMessaged, got.Status)
}

func TestProcessLeadAdvancesOnFirstSuccessOnly(t *testing.T) {
	// Three messages for the same lead.
	store := newFakeStore(entry("m1", "l1"), entry("m2", "l1"), entry("m3", "l1"))
	q := NewDeliveryQueue(store, 50)
	d := NewDispatcher(q, store, okSender, DispatcherConfig{MaxPerMinute: 60, Clock: newFakeClock()})

	_, err := d.Process(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, domain.LeadSent, store.leadStatus["l1"])
	assert.Equal(t, []string{"l1"}, store.leadUpdates)
}

func TestProcessFailureIncrementsRetryAndContinues(t *testing.T) {
	store := newFakeStore(entry("m1", "l1"), entry("m2", "l2"))
	q := NewDeliveryQueue(store, 50)

	failFirst := funcSender(func(_ context.Context, e domain.QueueEntry) domain.SendResult {
		if e.MessageID == "m1" {
			return domain.SendResult{Success: false, Error: "mailbox unavailable"}
		}
		return domain.SendResult{Success: true}
	})
	d := NewDispatcher(q, store, failFirst, DispatcherConfig{MaxPerMinute: 60, Clock: newFakeClock()})

	stats, err := d.Process(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Sent)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, store.failed["m1"])
	assert.Equal(t, "mailbox unavailable", store.lastError["m1"])
	assert.Contains(t, store.sent, "m2")
}

func TestProcessRepeatedFailuresAccumulateRetryCount(t *testing.T) {
	store := newFakeStore(entry("m1", "l1"))
	q := NewDeliveryQueue(store, 50)
	badSender := funcSender(func(_ context.Context, _ domain.QueueEntry) domain.SendResult {
		return domain.SendResult{Success: false, Error: "connection refused"}
	})
	d := NewDispatcher(q, store, badSender, DispatcherConfig{MaxPerMinute: 60, Clock: newFakeClock()})

	_, err := d.Process(context.Background(), false)
	require.NoError(t, err)

	// The retry path returns the message to APPROVED and a later dispatch
	// run, with its own queue, picks it up and fails again.
	store.mu.Lock()
	store.setStatus("m1", domain.MessageApproved)
	store.mu.Unlock()

	q2 := NewDeliveryQueue(store, 50)
	d2 := NewDispatcher(q2, store, badSender, DispatcherConfig{MaxPerMinute: 60, Clock: newFakeClock()})
	_, err = d2.Process(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 2, store.failed["m1"])
}

func TestProcessSenderPanicIsIsolated(t *testing.T) {
	store := newFakeStore(entry("m1", "l1"), entry("m2", "l2"))
	q := NewDeliveryQueue(store, 50)

	panicFirst := funcSender(func(_ context.Context, e domain.QueueEntry) domain.SendResult {
		if e.MessageID == "m1" {
			panic("template blew up")
		}
		return domain.SendResult{Success: true}
	})
	d := NewDispatcher(q, store, panicFirst, DispatcherConfig{MaxPerMinute: 60, Clock: newFakeClock()})

	stats, err := d.Process(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Sent)
	assert.Equal(t, 1, stats.Failed)
	assert.Contains(t, store.lastError["m1"], "template blew up")
}

func TestProcessHonorsCancellation(t *testing.T) {
	store := newFakeStore(entry("m1", "l1"), entry("m2", "l2"))
	q := NewDeliveryQueue(store, 50)

	ctx, cancel := context.WithCancel(context.Background())
	stopAfterFirst := funcSender(func(_ context.Context, _ domain.QueueEntry) domain.SendResult {
		cancel()
		return domain.SendResult{Success: true}
	})
	d := NewDispatcher(q, store, stopAfterFirst, DispatcherConfig{MaxPerMinute: 60, Clock: newFakeClock()})

	stats, err := d.Process(ctx, false)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, stats.Sent)
	// The second entry was never dispatched.
	assert.NotContains(t, store.sent, "m2")
}

func TestProcessEmptyQueueCompletesImmediately(t *testing.T) {
	store := newFakeStore()
	q := NewDeliveryQueue(store, 50)
	d := NewDispatcher(q, store, okSender, DispatcherConfig{MaxPerMinute: 10, Clock: newFakeClock()})

	stats, err := d.Process(context.Background(), false)
	require.NoError(t, err)
	assert.Zero(t, stats.Sent)
	assert.Zero(t, stats.Failed)
	assert.Zero(t, stats.AchievedRate)
}

func TestQueueBusyDuringProcess(t *testing.T) {
	store := newFakeStore(entry("m1", "l1"))
	q := NewDeliveryQueue(store, 50)

	var busyDuringSend bool
	probe := funcSender(func(_ context.Context, _ domain.QueueEntry) domain.SendResult {
		busyDuringSend = q.Stats().Busy
		return domain.SendResult{Success: true}
	})
	d := NewDispatcher(q, store, probe, DispatcherConfig{MaxPerMinute: 60, Clock: newFakeClock()})

	_, err := d.Process(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, busyDuringSend)
	assert.False(t, q.Stats().Busy)
}
