// Package messagegen renders the four outreach variants for an enriched
// lead: cold email A/B and LinkedIn DM A/B. Content comes from Liquid
// templates bound to the lead's enrichment data; emails are capped at 120
// words and DMs at 60.
package messagegen

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"

	"github.com/osteele/liquid"

	"github.com/leadez/outreach/internal/domain"
)

const (
	emailWordLimit    = 120
	linkedinWordLimit = 60
)

var ctas = []string{
	"book a quick 15-minute call",
	"schedule a brief 10-minute chat",
	"grab 30 minutes to discuss",
	"connect for a 15-minute conversation",
	"set aside 10 minutes for an initial call",
}

// Pain-first email.
const emailTemplateA = `Subject: {{ company }} - {{ pain_point_head }}

Hi {{ first_name }},

I noticed {{ company }} is dealing with {{ pain_point | downcase }}. Many {{ industry | downcase }} {{ role_type }} face this, especially with {{ trigger | downcase }}.

We've helped similar companies reduce these challenges by 40-60% through targeted automation and process optimization.

Given your role as {{ role }}, I'd love to share how we've solved this for other {{ persona }} leaders.

Would you be open to {{ cta }} this week?

Best regards`

// Trigger-first email.
const emailTemplateB = `Subject: Quick question about {{ company }}

{{ first_name }},

I see {{ company }} is experiencing {{ trigger | downcase }}. This typically creates opportunities to address {{ pain_point_alt | downcase }}.

We specialize in helping {{ industry | downcase }} organizations optimize operations during these transitions. Recent clients in similar situations saw 35-50% improvement in key metrics.

As {{ role }}, you might find value in how we approach {{ pain_point_alt_head | downcase }}.

Open to {{ cta }} to explore if there's a fit?

Regards`

const linkedinTemplateA = `Hi {{ first_name }}, saw you're leading {{ role }} at {{ company }}. We've helped {{ industry | downcase }} leaders tackle {{ pain_point_short | downcase }}. Worth {{ cta }}?`

const linkedinTemplateB = `Hi {{ first_name }}, noticed {{ trigger_head | downcase }} at {{ company }}. We help {{ persona }} leaders in {{ industry | downcase }} optimize during transitions. {{ cta | capitalize }}?`

// Composer renders message variants from parsed Liquid templates.
type Composer struct {
	emailA, emailB       *liquid.Template
	linkedinA, linkedinB *liquid.Template
	rng                  *rand.Rand
}

// New parses the built-in templates. Parse errors here mean a broken
// template constant, so they surface immediately.
func New(seed int64) (*Composer, error) {
	engine := liquid.NewEngine()
	c := &Composer{rng: rand.New(rand.NewSource(seed))}

	var err error
	if c.emailA, err = engine.ParseString(emailTemplateA); err != nil {
		return nil, fmt.Errorf("parse email template A: %w", err)
	}
	if c.emailB, err = engine.ParseString(emailTemplateB); err != nil {
		return nil, fmt.Errorf("parse email template B: %w", err)
	}
	if c.linkedinA, err = engine.ParseString(linkedinTemplateA); err != nil {
		return nil, fmt.Errorf("parse linkedin template A: %w", err)
	}
	if c.linkedinB, err = engine.ParseString(linkedinTemplateB); err != nil {
		return nil, fmt.Errorf("parse linkedin template B: %w", err)
	}
	return c, nil
}

// Compose renders all four variants for one lead. The returned messages
// carry channel, variant and content; IDs and status are assigned on save.
func (c *Composer) Compose(l domain.Lead) ([]domain.Message, error) {
	b := c.bindings(l)

	type spec struct {
		tmpl    *liquid.Template
		channel domain.Channel
		variant string
		limit   int
	}
	specs := []spec{
		{c.emailA, domain.ChannelEmail, "A", emailWordLimit},
		{c.emailB, domain.ChannelEmail, "B", emailWordLimit},
		{c.linkedinA, domain.ChannelLinkedIn, "A", linkedinWordLimit},
		{c.linkedinB, domain.ChannelLinkedIn, "B", linkedinWordLimit},
	}

	out := make([]domain.Message, 0, len(specs))
	for _, s := range specs {
		b["cta"] = ctas[c.rng.Intn(len(ctas))]
		rendered, err := s.tmpl.Render(b)
		if err != nil {
			return nil, fmt.Errorf("render %s variant %s: %w", s.channel, s.variant, err)
		}
		out = append(out, domain.Message{
			LeadID:  l.ID,
			Channel: s.channel,
			Variant: s.variant,
			Content: truncateWords(string(rendered), s.limit),
			Status:  domain.MessagePending,
		})
	}
	return out, nil
}

func (c *Composer) bindings(l domain.Lead) map[string]interface{} {
	points := parseJSONList(l.PainPoints)
	trigs := parseJSONList(l.BuyingTriggers)

	painPoint := "operational efficiency challenges"
	if len(points) > 0 {
		painPoint = points[0]
	}
	painPointAlt := painPoint
	if len(points) > 1 {
		painPointAlt = points[1]
	}
	trigger := "recent changes"
	if len(trigs) > 0 {
		trigger = trigs[0]
	}

	return map[string]interface{}{
		"first_name":          firstWord(l.FullName),
		"company":             l.CompanyName,
		"role":                l.Role,
		"role_type":           roleType(l.Role),
		"industry":            l.Industry,
		"persona":             l.PersonaTag,
		"pain_point":          painPoint,
		"pain_point_head":     headBefore(painPoint, " and "),
		"pain_point_short":    headBefore(painPoint, ","),
		"pain_point_alt":      painPointAlt,
		"pain_point_alt_head": firstWord(painPointAlt),
		"trigger":             trigger,
		"trigger_head":        headBefore(trigger, " or "),
	}
}

func parseJSONList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}

// roleType maps a title to the plural cohort used in copy.
func roleType(role string) string {
	r := strings.ToLower(role)
	switch {
	case strings.Contains(r, "vp") || strings.Contains(r, "vice president"):
		return "VPs"
	case strings.Contains(r, "director"):
		return "directors"
	case strings.Contains(r, "chief") || strings.Contains(r, "ceo") ||
		strings.Contains(r, "cfo") || strings.Contains(r, "cto"):
		return "executives"
	case strings.Contains(r, "manager"):
		return "managers"
	case strings.Contains(r, "head"):
		return "heads"
	default:
		return "leaders"
	}
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return s
	}
	return fields[0]
}

func headBefore(s, sep string) string {
	if i := strings.Index(s, sep); i >= 0 {
		return s[:i]
	}
	return s
}

// truncateWords caps text at maxWords, preferring to cut at a sentence
// boundary.
func truncateWords(text string, maxWords int) string {
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text
	}
	truncated := strings.Join(words[:maxWords], " ")
	if i := strings.LastIndex(truncated, "."); i >= 0 {
		return truncated[:i+1]
	}
	return truncated + "..."
}
