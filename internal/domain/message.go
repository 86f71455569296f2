package domain

import (
	"fmt"
	"time"
)

// MessageStatus enumerates the lifecycle of a single outreach message.
type MessageStatus string

const (
	MessagePending  MessageStatus = "PENDING"
	MessageApproved MessageStatus = "APPROVED"
	MessageRejected MessageStatus = "REJECTED"
	MessageSent     MessageStatus = "SENT"
	MessageFailed   MessageStatus = "FAILED"
)

var messageStatuses = map[MessageStatus]bool{
	MessagePending: true, MessageApproved: true, MessageRejected: true,
	MessageSent: true, MessageFailed: true,
}

// ParseMessageStatus validates an externally supplied status string.
func ParseMessageStatus(s string) (MessageStatus, error) {
	st := MessageStatus(s)
	if !messageStatuses[st] {
		return "", fmt.Errorf("unknown message status %q", s)
	}
	return st, nil
}

// IsTerminal reports whether the message can never be dispatched again.
func (s MessageStatus) IsTerminal() bool {
	return s == MessageSent || s == MessageRejected
}

// Channel identifies the delivery channel of a message.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelLinkedIn Channel = "linkedin"
)

// ParseChannel validates an externally supplied channel string.
func ParseChannel(s string) (Channel, error) {
	c := Channel(s)
	if c != ChannelEmail && c != ChannelLinkedIn {
		return "", fmt.Errorf("unknown channel %q", s)
	}
	return c, nil
}

// Message is one channel/variant instance of outreach content tied to a lead.
// Content is produced upstream and treated as opaque here.
type Message struct {
	ID           string        `json:"id" db:"id"`
	LeadID       string        `json:"lead_id" db:"lead_id"`
	Channel      Channel       `json:"channel" db:"channel"`
	Variant      string        `json:"variant" db:"variant"`
	Content      string        `json:"content" db:"content"`
	Status       MessageStatus `json:"status" db:"status"`
	SentAt       *time.Time    `json:"sent_at,omitempty" db:"sent_at"`
	ErrorMessage string        `json:"error_message,omitempty" db:"error_message"`
	RetryCount   int           `json:"retry_count" db:"retry_count"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
}
