package domain

import (
	"fmt"
	"time"
)

// LeadStatus enumerates the pipeline states of a lead.
type LeadStatus string

const (
	LeadNew      LeadStatus = "NEW"
	LeadEnriched LeadStatus = "ENRICHED"
	LeadMessaged LeadStatus = "MESSAGED"
	LeadSent     LeadStatus = "SENT"
	LeadFailed   LeadStatus = "FAILED"

	// Hard-stop states. Leads in these states are never contacted.
	LeadInvalid      LeadStatus = "INVALID"
	LeadBlocked      LeadStatus = "BLOCKED"
	LeadUnsubscribed LeadStatus = "UNSUBSCRIBED"
)

var leadStatuses = map[LeadStatus]bool{
	LeadNew: true, LeadEnriched: true, LeadMessaged: true,
	LeadSent: true, LeadFailed: true,
	LeadInvalid: true, LeadBlocked: true, LeadUnsubscribed: true,
}

// ParseLeadStatus validates an externally supplied status string.
func ParseLeadStatus(s string) (LeadStatus, error) {
	st := LeadStatus(s)
	if !leadStatuses[st] {
		return "", fmt.Errorf("unknown lead status %q", s)
	}
	return st, nil
}

// IsHardStop reports whether a lead must never be contacted again.
func (s LeadStatus) IsHardStop() bool {
	return s == LeadInvalid || s == LeadBlocked || s == LeadUnsubscribed
}

// Lead is a prospective contact progressing through the pipeline.
type Lead struct {
	ID          string     `json:"id" db:"id"`
	FullName    string     `json:"full_name" db:"full_name"`
	CompanyName string     `json:"company_name" db:"company_name"`
	Role        string     `json:"role" db:"role"`
	Industry    string     `json:"industry" db:"industry"`
	Website     string     `json:"website" db:"website"`
	Email       string     `json:"email" db:"email"`
	LinkedInURL string     `json:"linkedin_url" db:"linkedin_url"`
	Country     string     `json:"country" db:"country"`
	Status      LeadStatus `json:"status" db:"status"`

	// Enrichment fields, empty until the lead reaches ENRICHED.
	CompanySize     string `json:"company_size,omitempty" db:"company_size"`
	PersonaTag      string `json:"persona_tag,omitempty" db:"persona_tag"`
	PainPoints      string `json:"pain_points,omitempty" db:"pain_points"`           // JSON array
	BuyingTriggers  string `json:"buying_triggers,omitempty" db:"buying_triggers"`   // JSON array
	ConfidenceScore int    `json:"confidence_score,omitempty" db:"confidence_score"` // 0-100

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
