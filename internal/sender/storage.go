package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/leadez/outreach/internal/domain"
	"github.com/leadez/outreach/internal/pkg/logger"
)

// StorageSender records messages as JSON files instead of delivering them.
// It backs dry runs and the simulated LinkedIn channel.
type StorageSender struct {
	dir string
}

// NewStorageSender creates the storage directory if needed.
func NewStorageSender(dir string) (*StorageSender, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &StorageSender{dir: dir}, nil
}

type storedMessage struct {
	MessageID string `json:"message_id"`
	LeadID    string `json:"lead_id"`
	Timestamp string `json:"timestamp"`
	Channel   string `json:"channel"`
	Variant   string `json:"variant"`
	Lead      struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Company string `json:"company"`
		Role    string `json:"role"`
	} `json:"lead"`
	Content string `json:"content"`
	Note    string `json:"note,omitempty"`
}

// Send writes the entry to a timestamped JSON file.
// File name: {timestamp}_{channel}_{variant}_{lead_name}.json
func (s *StorageSender) Send(_ context.Context, e domain.QueueEntry) domain.SendResult {
	return s.store(e, "")
}

func (s *StorageSender) store(e domain.QueueEntry, note string) domain.SendResult {
	now := time.Now()
	name := strings.NewReplacer(" ", "_", "/", "_").Replace(e.LeadName)
	filename := fmt.Sprintf("%s_%s_%s_%s.json", now.Format("20060102_150405"), e.Channel, e.Variant, name)

	var m storedMessage
	m.MessageID = e.MessageID
	m.LeadID = e.LeadID
	m.Timestamp = now.Format(time.RFC3339)
	m.Channel = string(e.Channel)
	m.Variant = e.Variant
	m.Lead.Name = e.LeadName
	m.Lead.Email = e.LeadEmail
	m.Lead.Company = e.Company
	m.Lead.Role = e.Role
	m.Content = e.Content
	m.Note = note

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return domain.SendResult{Success: false, Error: fmt.Sprintf("encode message: %v", err)}
	}
	if err := os.WriteFile(filepath.Join(s.dir, filename), data, 0o644); err != nil {
		return domain.SendResult{Success: false, Error: fmt.Sprintf("store message: %v", err)}
	}

	logger.Info("stored message", "file", filename, "channel", string(e.Channel))
	return domain.SendResult{Success: true, SentAt: now}
}

// Stored returns the number of message files currently on disk.
func (s *StorageSender) Stored() (int, error) {
	files, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return 0, err
	}
	return len(files), nil
}
