package sender

import (
	"context"

	"github.com/leadez/outreach/internal/domain"
	"github.com/leadez/outreach/internal/pkg/logger"
)

// LinkedInSender simulates LinkedIn delivery by storing the message with a
// manual-action note. There is no programmatic LinkedIn transport; the
// stored file is the handoff to whoever sends the DM by hand.
type LinkedInSender struct {
	storage *StorageSender
}

// NewLinkedInSender wraps a storage sender for the LinkedIn channel.
func NewLinkedInSender(storage *StorageSender) *LinkedInSender {
	return &LinkedInSender{storage: storage}
}

// Send stores the entry for manual delivery.
func (s *LinkedInSender) Send(_ context.Context, e domain.QueueEntry) domain.SendResult {
	res := s.storage.store(e, "manual sending required")
	if res.Success {
		logger.Info("linkedin message stored for manual delivery", "lead", e.LeadName)
	}
	return res
}
