// Package worker contains the delivery side of the outreach pipeline: the
// batched in-memory delivery queue and the rate-limited dispatch loop that
// drains it through a sender.
//
// One dispatch loop owns one queue. Cross-process exclusivity is enforced
// by the dispatch lock in internal/pkg/distlock, acquired by cmd/worker
// before the loop starts.
package worker
