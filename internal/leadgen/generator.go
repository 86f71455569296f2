// Package leadgen produces synthetic but well-formed leads for seeding the
// pipeline. Roles are drawn from the lead's industry so the downstream
// persona rules always find a match, and contact fields are derived from
// the generated name and company so they validate.
package leadgen

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"

	"github.com/leadez/outreach/internal/domain"
)

var industryRoles = map[string][]string{
	"Technology":    {"CTO", "VP Engineering", "Head of IT", "Data Leader", "DevOps Manager"},
	"Healthcare":    {"Chief Medical Officer", "Hospital Administrator", "Director of Operations", "VP Patient Care"},
	"Finance":       {"CFO", "VP Finance", "Treasury Director", "Risk Management Head", "Compliance Officer"},
	"Manufacturing": {"VP Operations", "Supply Chain Director", "Production Manager", "Procurement Head"},
	"Retail":        {"VP Merchandising", "Store Operations Director", "Head of E-commerce", "Inventory Manager"},
	"Education":     {"Dean", "VP Academic Affairs", "Director of IT", "Enrollment Director"},
	"Real Estate":   {"VP Property Management", "Development Director", "Asset Manager", "Leasing Director"},
	"Logistics":     {"VP Supply Chain", "Logistics Manager", "Warehouse Director", "Transportation Head"},
	"Marketing":     {"CMO", "VP Marketing", "Head of Digital", "Brand Director", "Marketing Operations Manager"},
	"Construction":  {"Project Manager", "VP Construction", "Site Director", "Estimating Director"},
}

var industries = []string{
	"Technology", "Healthcare", "Finance", "Manufacturing", "Retail",
	"Education", "Real Estate", "Logistics", "Marketing", "Construction",
}

var countries = []string{
	"India", "USA", "UK", "Germany", "France", "Australia", "Netherlands", "Singapore",
}

var firstNames = []string{
	"James", "Maria", "Wei", "Priya", "Ahmed", "Sofia", "Lukas", "Emma",
	"Hiro", "Fatima", "Carlos", "Anna", "David", "Mei", "Tom", "Elena",
	"Ravi", "Julia", "Marco", "Nina",
}

var lastNames = []string{
	"Smith", "Garcia", "Chen", "Sharma", "Hassan", "Rossi", "Weber", "Brown",
	"Tanaka", "Ali", "Silva", "Novak", "Jones", "Lin", "Walker", "Petrov",
	"Patel", "Fischer", "Costa", "Berg",
}

var companyStems = []string{
	"Apex", "Nova", "Vertex", "Summit", "Pioneer", "Atlas", "Orion", "Zenith",
	"Cascade", "Meridian", "Quantum", "Stellar", "Fusion", "Horizon", "Vector",
}

var companySuffixes = []string{
	"Systems", "Group", "Industries", "Solutions", "Partners", "Labs",
	"Holdings Ltd", "Corp", "Global Inc", "Technologies LLC",
}

// Generator produces leads from a seeded source so repeated seed runs are
// reproducible.
type Generator struct {
	rng *rand.Rand
}

// New creates a generator with the given seed.
func New(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Lead generates one lead in NEW status.
func (g *Generator) Lead() domain.Lead {
	industry := industries[g.rng.Intn(len(industries))]
	roles := industryRoles[industry]
	role := roles[g.rng.Intn(len(roles))]

	name := firstNames[g.rng.Intn(len(firstNames))] + " " + lastNames[g.rng.Intn(len(lastNames))]
	company := companyStems[g.rng.Intn(len(companyStems))] + " " + companySuffixes[g.rng.Intn(len(companySuffixes))]

	return domain.Lead{
		ID:          uuid.New().String(),
		FullName:    name,
		CompanyName: company,
		Role:        role,
		Industry:    industry,
		Website:     website(company),
		Email:       email(name, company),
		LinkedInURL: linkedinURL(name, g.rng.Intn(900)+100),
		Country:     countries[g.rng.Intn(len(countries))],
		Status:      domain.LeadNew,
	}
}

// Leads generates count leads. Emails may collide across a batch; the
// import path skips duplicates.
func (g *Generator) Leads(count int) []domain.Lead {
	out := make([]domain.Lead, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, g.Lead())
	}
	return out
}

func email(name, company string) string {
	parts := strings.Fields(strings.ToLower(name))
	domainName := companyDomain(company, 15)
	return fmt.Sprintf("%s.%s@%s.com", parts[0], parts[len(parts)-1], domainName)
}

func linkedinURL(name string, n int) string {
	slug := strings.ReplaceAll(strings.ToLower(name), " ", "-")
	return fmt.Sprintf("https://www.linkedin.com/in/%s-%d", slug, n)
}

func website(company string) string {
	return fmt.Sprintf("https://www.%s.com", companyDomain(company, 20))
}

func companyDomain(company string, maxLen int) string {
	d := strings.ToLower(company)
	d = strings.ReplaceAll(d, " ", "")
	d = strings.ReplaceAll(d, ",", "")
	d = strings.ReplaceAll(d, ".", "")
	if len(d) > maxLen {
		d = d[:maxLen]
	}
	return d
}
