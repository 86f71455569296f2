// Package enrich derives firmographic enrichment for leads without calling
// external APIs. Everything is rule-based: company size from naming and
// geography heuristics, persona and seniority from role/industry tables,
// pain points and buying triggers sampled per industry, and a confidence
// score from size and seniority.
package enrich

import (
	"encoding/json"
	"math/rand"
	"strings"

	"github.com/leadez/outreach/internal/domain"
	"github.com/leadez/outreach/internal/service/outreach"
)

type personaRule struct {
	Persona   string
	Seniority string
}

var personas = map[string]map[string]personaRule{
	"Technology": {
		"CTO":            {"Technical Decision Maker", "C-level"},
		"VP Engineering": {"Engineering Leader", "VP"},
		"Head of IT":     {"IT Operations Leader", "Director"},
		"Data Leader":    {"Data & Analytics Leader", "Director"},
		"DevOps Manager": {"Platform Operations Manager", "Manager"},
	},
	"Healthcare": {
		"Chief Medical Officer":  {"Clinical Executive", "C-level"},
		"Hospital Administrator": {"Healthcare Operations Leader", "Director"},
		"Director of Operations": {"Care Operations Leader", "Director"},
		"VP Patient Care":        {"Patient Experience Leader", "VP"},
	},
	"Finance": {
		"CFO":                  {"Financial Executive", "C-level"},
		"VP Finance":           {"Finance Leader", "VP"},
		"Treasury Director":    {"Treasury Leader", "Director"},
		"Risk Management Head": {"Risk Leader", "Director"},
		"Compliance Officer":   {"Compliance Leader", "Manager"},
	},
	"Manufacturing": {
		"VP Operations":         {"Operations Executive", "VP"},
		"Supply Chain Director": {"Supply Chain Leader", "Director"},
		"Production Manager":    {"Production Leader", "Manager"},
		"Procurement Head":      {"Procurement Leader", "Director"},
	},
	"Retail": {
		"VP Merchandising":          {"Merchandising Leader", "VP"},
		"Store Operations Director": {"Retail Operations Leader", "Director"},
		"Head of E-commerce":        {"Digital Commerce Leader", "Director"},
		"Inventory Manager":         {"Inventory Leader", "Manager"},
	},
	"Education": {
		"Dean":                {"Academic Executive", "C-level"},
		"VP Academic Affairs": {"Academic Leader", "VP"},
		"Director of IT":      {"Education Technology Leader", "Director"},
		"Enrollment Director": {"Enrollment Leader", "Director"},
	},
	"Real Estate": {
		"VP Property Management": {"Property Operations Leader", "VP"},
		"Development Director":   {"Development Leader", "Director"},
		"Asset Manager":          {"Asset Leader", "Manager"},
		"Leasing Director":       {"Leasing Leader", "Director"},
	},
	"Logistics": {
		"VP Supply Chain":     {"Supply Chain Executive", "VP"},
		"Logistics Manager":   {"Logistics Leader", "Manager"},
		"Warehouse Director":  {"Warehouse Operations Leader", "Director"},
		"Transportation Head": {"Transportation Leader", "Director"},
	},
	"Marketing": {
		"CMO":                          {"Marketing Executive", "C-level"},
		"VP Marketing":                 {"Marketing Leader", "VP"},
		"Head of Digital":              {"Digital Marketing Leader", "Director"},
		"Brand Director":               {"Brand Leader", "Director"},
		"Marketing Operations Manager": {"Marketing Operations Leader", "Manager"},
	},
	"Construction": {
		"Project Manager":     {"Project Delivery Leader", "Manager"},
		"VP Construction":     {"Construction Executive", "VP"},
		"Site Director":       {"Site Operations Leader", "Director"},
		"Estimating Director": {"Estimating Leader", "Director"},
	},
}

var painPoints = map[string][]string{
	"Technology":    {"Scaling infrastructure while controlling cloud spend", "Security and compliance overhead slowing releases", "Hiring and retaining senior engineers", "Technical debt blocking feature velocity"},
	"Healthcare":    {"Staff shortages and burnout", "Patient data interoperability", "Regulatory compliance burden", "Rising operational costs per bed"},
	"Finance":       {"Manual reconciliation and close processes", "Regulatory reporting complexity", "Fraud and risk exposure", "Legacy core system constraints"},
	"Manufacturing": {"Supply chain disruption and lead time variance", "Unplanned equipment downtime", "Quality control consistency", "Energy cost volatility"},
	"Retail":        {"Inventory accuracy across channels", "Margin pressure from discounting", "Customer acquisition cost growth", "Fulfillment speed expectations"},
	"Education":     {"Enrollment decline and retention", "Aging campus technology", "Administrative process overhead", "Student engagement measurement"},
	"Real Estate":   {"Occupancy and tenant retention", "Maintenance cost unpredictability", "Portfolio data fragmentation", "Financing cost pressure"},
	"Logistics":     {"Fuel and carrier cost volatility", "Shipment visibility gaps", "Warehouse labor availability", "Last-mile delivery economics"},
	"Marketing":     {"Attribution across fragmented channels", "Rising paid acquisition costs", "Content production bottlenecks", "Marketing and sales alignment"},
	"Construction":  {"Project overruns and schedule slippage", "Skilled labor shortage", "Material cost escalation", "Subcontractor coordination"},
}

var defaultPainPoints = []string{
	"Operational efficiency and cost optimization",
	"Digital transformation and technology adoption",
	"Competitive market pressures",
}

var triggers = map[string][]string{
	"Technology":    {"Recent funding round", "New CTO or VP Engineering hire", "Cloud migration underway"},
	"Healthcare":    {"New facility opening", "EHR system replacement", "Regulatory deadline approaching"},
	"Finance":       {"Audit season approaching", "New compliance mandate", "Core banking modernization"},
	"Manufacturing": {"New production line investment", "Supplier consolidation", "Reshoring initiative"},
	"Retail":        {"E-commerce platform relaunch", "Store footprint expansion", "Peak season preparation"},
	"Education":     {"New academic year planning", "Campus technology refresh", "Accreditation review"},
	"Real Estate":   {"Portfolio acquisition", "Property management system change", "Lease renewal wave"},
	"Logistics":     {"Network expansion", "Fleet renewal", "New distribution center"},
	"Marketing":     {"Brand relaunch", "New CMO hire", "Budget planning cycle"},
	"Construction":  {"Major project award", "Equipment fleet expansion", "New market entry"},
}

var defaultTriggers = []string{
	"Budget planning cycle approaching",
	"Competitive pressure increasing",
}

// Enricher implements the service's enrichment port.
type Enricher struct {
	rng *rand.Rand
}

// New creates a seeded enricher. The seed only affects sampling variance,
// not the rule outcomes.
func New(seed int64) *Enricher {
	return &Enricher{rng: rand.New(rand.NewSource(seed))}
}

// Enrich computes enrichment fields for one lead. It never fails; sparse
// input just produces defaults and a middling score.
func (e *Enricher) Enrich(l domain.Lead) outreach.Enrichment {
	size := e.companySize(l.CompanyName, l.Country)
	persona, seniority := personaFor(l.Role, l.Industry)

	points, _ := json.Marshal(e.sample(painPointsFor(l.Industry), 2, 3))
	trigs, _ := json.Marshal(e.sample(triggersFor(l.Industry), 1, 2))

	return outreach.Enrichment{
		CompanySize:     size,
		PersonaTag:      persona,
		PainPoints:      string(points),
		BuyingTriggers:  string(trigs),
		ConfidenceScore: e.confidence(size, seniority),
	}
}

// companySize scores the company name and country, then buckets the score.
// Legal suffixes like "LLC" suggest smaller shops; "Corp"/"Group"/"Global"
// and large markets push toward enterprise.
func (e *Enricher) companySize(company, country string) string {
	name := strings.ToLower(company)
	score := 50

	for _, tok := range []string{"plc", "corp", "group", "global", "international"} {
		if strings.Contains(name, tok) {
			score += 30
			break
		}
	}
	for _, tok := range []string{"llc", "ltd", "inc"} {
		if strings.Contains(name, tok) {
			score -= 20
			break
		}
	}
	switch country {
	case "USA", "Germany", "UK":
		score += 15
	case "India", "Singapore":
		score -= 10
	}
	score += e.rng.Intn(31) - 15

	switch {
	case score < 40:
		return "small"
	case score < 70:
		return "medium"
	default:
		return "enterprise"
	}
}

func personaFor(role, industry string) (persona, seniority string) {
	if rule, ok := personas[industry][role]; ok {
		return rule.Persona, rule.Seniority
	}
	return role + " Professional", "Manager"
}

func painPointsFor(industry string) []string {
	if pts, ok := painPoints[industry]; ok {
		return pts
	}
	return defaultPainPoints
}

func triggersFor(industry string) []string {
	if ts, ok := triggers[industry]; ok {
		return ts
	}
	return defaultTriggers
}

// sample picks between min and max distinct items.
func (e *Enricher) sample(items []string, min, max int) []string {
	n := min + e.rng.Intn(max-min+1)
	if n > len(items) {
		n = len(items)
	}
	idx := e.rng.Perm(len(items))[:n]
	out := make([]string, 0, n)
	for _, i := range idx {
		out = append(out, items[i])
	}
	return out
}

// confidence combines company size and seniority bonuses onto a base of
// 50, with small random variance, clamped to 0-100.
func (e *Enricher) confidence(size, seniority string) int {
	score := 50

	switch size {
	case "enterprise":
		score += 25
	case "medium":
		score += 15
	default:
		score += 5
	}

	switch seniority {
	case "C-level":
		score += 20
	case "VP":
		score += 15
	case "Director":
		score += 10
	default:
		score += 5
	}

	score += e.rng.Intn(11) - 5

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}
