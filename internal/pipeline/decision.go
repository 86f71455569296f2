package pipeline

import (
	"fmt"

	"github.com/leadez/outreach/internal/domain"
)

// Action names the next pipeline step for an entity.
type Action string

const (
	ActionGenerateLeads    Action = "generate_leads"
	ActionEnrichLeads      Action = "enrich_leads"
	ActionGenerateMessages Action = "generate_messages"
	ActionReviewMessages   Action = "review_messages"
	ActionSendMessages     Action = "send_messages"
	ActionRetryFailed      Action = "retry_failed"
	ActionTrackResponses   Action = "track_responses"
	ActionRetryOrEscalate  Action = "retry_or_escalate"
	ActionComplete         Action = "complete"
	ActionError            Action = "error"
)

// Params carries the per-action parameters of a decision. Fields are only
// meaningful for the action that sets them.
type Params struct {
	AutoApprove bool `json:"auto_approve,omitempty"`
	UseQueue    bool `json:"use_queue,omitempty"`
	BatchSize   int  `json:"batch_size,omitempty"`
	MaxRetries  int  `json:"max_retries,omitempty"`
}

// Decision is the result of one engine lookup.
type Decision struct {
	Action      Action `json:"action"`
	Operation   string `json:"operation,omitempty"` // tool name, empty for terminal/error
	Params      Params `json:"params"`
	Description string `json:"description"`
}

// Engine maps (lead status, message status) pairs to the next pipeline
// action. It is stateless apart from its configuration; construct one per
// orchestrator rather than sharing a global.
type Engine struct {
	// BatchSize is forwarded in send decisions.
	BatchSize int
	// MaxRetries is the single retry budget consulted both by retry
	// decisions and by ShouldProceed.
	MaxRetries int
	// EnrichFirst selects the pipeline variant for ENRICHED leads: when
	// set, enrichment runs again before message generation.
	EnrichFirst bool
}

// NewEngine returns an engine with the given batch size and retry budget.
func NewEngine(batchSize, maxRetries int) *Engine {
	if batchSize <= 0 {
		batchSize = 50
	}
	if maxRetries <= 0 {
		maxRetries = 2
	}
	return &Engine{BatchSize: batchSize, MaxRetries: maxRetries}
}

// Decide returns the next action for the given statuses. Message-level rules
// take priority whenever msgStatus is non-empty: a lead mid-messaging must
// finish that message cycle before advancing. The function is total; unknown
// statuses yield an error action, never a failure.
func (e *Engine) Decide(leadStatus domain.LeadStatus, msgStatus domain.MessageStatus) Decision {
	if msgStatus != "" {
		switch msgStatus {
		case domain.MessagePending:
			return Decision{
				Action:      ActionReviewMessages,
				Operation:   "review_messages",
				Params:      Params{AutoApprove: false},
				Description: "Review pending messages",
			}
		case domain.MessageApproved:
			return Decision{
				Action:      ActionSendMessages,
				Operation:   "send_messages",
				Params:      Params{UseQueue: true, BatchSize: e.BatchSize},
				Description: "Send approved messages via queue",
			}
		case domain.MessageFailed:
			return Decision{
				Action:      ActionRetryFailed,
				Operation:   "retry_failed",
				Params:      Params{MaxRetries: e.MaxRetries},
				Description: "Retry failed messages",
			}
		case domain.MessageSent:
			return Decision{
				Action:      ActionComplete,
				Description: "Message delivery complete",
			}
		default:
			return Decision{
				Action:      ActionError,
				Description: fmt.Sprintf("Unknown status: %s", msgStatus),
			}
		}
	}

	switch leadStatus {
	case domain.LeadNew:
		return Decision{
			Action:      ActionGenerateLeads,
			Operation:   "generate_leads",
			Description: "Generate new leads",
		}
	case domain.LeadEnriched:
		if e.EnrichFirst {
			return Decision{
				Action:      ActionEnrichLeads,
				Operation:   "enrich_leads",
				Description: "Enrich lead data with pain points and triggers",
			}
		}
		return Decision{
			Action:      ActionGenerateMessages,
			Operation:   "generate_messages",
			Description: "Generate message variants per lead",
		}
	case domain.LeadMessaged:
		return Decision{
			Action:      ActionReviewMessages,
			Operation:   "review_messages",
			Description: "Review messages for quality and compliance",
		}
	case domain.LeadSent:
		return Decision{
			Action:      ActionTrackResponses,
			Operation:   "track_responses",
			Description: "Monitor for replies and engagement",
		}
	case domain.LeadFailed:
		return Decision{
			Action:      ActionRetryOrEscalate,
			Operation:   "retry_failed",
			Description: "Retry failed messages or escalate",
		}
	}

	return Decision{
		Action:      ActionError,
		Description: fmt.Sprintf("Unknown status: %s", leadStatus),
	}
}

// BatchItem is one entity submitted to BatchDecide.
type BatchItem struct {
	LeadID        string               `json:"lead_id"`
	LeadStatus    domain.LeadStatus    `json:"lead_status"`
	MessageStatus domain.MessageStatus `json:"message_status,omitempty"`
}

// ActionGroup collects the items that resolved to the same action.
type ActionGroup struct {
	Action   Action      `json:"action"`
	Decision Decision    `json:"decision"`
	Items    []BatchItem `json:"items"`
}

// BatchDecide resolves an action for every item and groups items by action.
// Groups appear in insertion order of their first occurrence, so callers can
// process them deterministically.
func (e *Engine) BatchDecide(items []BatchItem) []ActionGroup {
	var groups []ActionGroup
	index := make(map[Action]int)

	for _, item := range items {
		d := e.Decide(item.LeadStatus, item.MessageStatus)
		i, ok := index[d.Action]
		if !ok {
			i = len(groups)
			index[d.Action] = i
			groups = append(groups, ActionGroup{Action: d.Action, Decision: d})
		}
		groups[i].Items = append(groups[i].Items, item)
	}
	return groups
}

// ShouldProceed reports whether the pipeline should keep driving an entity.
// It halts on full success (lead and message both SENT), on an exhausted
// retry budget, and on hard-stop lead statuses. The record itself is left
// untouched either way.
func (e *Engine) ShouldProceed(leadStatus domain.LeadStatus, msgStatus domain.MessageStatus, retryCount int) bool {
	if leadStatus == domain.LeadSent && msgStatus == domain.MessageSent {
		return false
	}
	if msgStatus == domain.MessageFailed && retryCount >= e.MaxRetries {
		return false
	}
	if leadStatus.IsHardStop() {
		return false
	}
	return true
}

// Stage base weights for Priority. Earlier stages rank higher; the
// approved-to-send stage outranks terminal stages.
var stageWeights = map[string]int{
	"NEW":      100,
	"ENRICHED": 80,
	"MESSAGED": 70,
	"APPROVED": 60,
	"FAILED":   50,
	"SENT":     10,
}

// Priority computes a deterministic ordering score for a lead: stage base
// weight plus confidenceScore/10, truncated. Used only for batch ordering.
func Priority(leadStatus domain.LeadStatus, confidenceScore int) int {
	return stageWeights[string(leadStatus)] + confidenceScore/10
}
