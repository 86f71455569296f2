// Package sender provides delivery backends for outreach messages: a
// storage sender for simulation runs, an SMTP sender for live email, and a
// simulated LinkedIn sender. All of them satisfy the dispatcher's Sender
// port and report failure through the result, never by panicking.
package sender

import (
	"context"
	"fmt"

	"github.com/leadez/outreach/internal/domain"
)

// Sender attempts delivery of one queue entry.
type Sender interface {
	Send(ctx context.Context, e domain.QueueEntry) domain.SendResult
}

// ChannelSender routes each entry to the sender registered for its channel.
type ChannelSender struct {
	routes map[domain.Channel]Sender
}

// NewChannelSender builds a router over per-channel senders.
func NewChannelSender(routes map[domain.Channel]Sender) *ChannelSender {
	return &ChannelSender{routes: routes}
}

// Send dispatches the entry via its channel's sender. An unregistered
// channel is a delivery failure, not a panic.
func (c *ChannelSender) Send(ctx context.Context, e domain.QueueEntry) domain.SendResult {
	s, ok := c.routes[e.Channel]
	if !ok {
		return domain.SendResult{Success: false, Error: fmt.Sprintf("no sender for channel %q", e.Channel)}
	}
	return s.Send(ctx, e)
}
