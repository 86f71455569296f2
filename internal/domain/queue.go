package domain

import "time"

// QueueEntry is the in-memory projection of a message pulled into the
// delivery queue, joined with the lead fields needed for dispatch and
// logging. Entries exist only between fetch and dispatch.
type QueueEntry struct {
	MessageID  string        `json:"message_id"`
	LeadID     string        `json:"lead_id"`
	Channel    Channel       `json:"channel"`
	Variant    string        `json:"variant"`
	Content    string        `json:"content"`
	Status     MessageStatus `json:"status"`
	RetryCount int           `json:"retry_count"`

	LeadName  string `json:"lead_name"`
	LeadEmail string `json:"lead_email"`
	Company   string `json:"company"`
	Role      string `json:"role"`
}

// SendResult is returned by a sender after attempting delivery of one
// entry. Senders communicate failure through Success=false and Error;
// they never panic across the port boundary.
type SendResult struct {
	Success bool      `json:"success"`
	SentAt  time.Time `json:"sent_at"`
	Error   string    `json:"error,omitempty"`
}
