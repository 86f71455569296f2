package enrich

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadez/outreach/internal/domain"
)

func TestEnrichKnownPersona(t *testing.T) {
	e := New(42)
	got := e.Enrich(domain.Lead{
		CompanyName: "Apex Global Corp",
		Country:     "USA",
		Role:        "CTO",
		Industry:    "Technology",
	})

	assert.Equal(t, "Technical Decision Maker", got.PersonaTag)
	assert.Contains(t, []string{"small", "medium", "enterprise"}, got.CompanySize)

	var points []string
	require.NoError(t, json.Unmarshal([]byte(got.PainPoints), &points))
	assert.GreaterOrEqual(t, len(points), 2)
	assert.LessOrEqual(t, len(points), 3)
	for _, p := range points {
		assert.Contains(t, painPoints["Technology"], p)
	}

	var trigs []string
	require.NoError(t, json.Unmarshal([]byte(got.BuyingTriggers), &trigs))
	assert.GreaterOrEqual(t, len(trigs), 1)
	assert.LessOrEqual(t, len(trigs), 2)
}

func TestEnrichUnknownRoleGetsDefaults(t *testing.T) {
	e := New(42)
	got := e.Enrich(domain.Lead{
		CompanyName: "Mystery Ltd",
		Country:     "France",
		Role:        "Wizard",
		Industry:    "Alchemy",
	})

	assert.Equal(t, "Wizard Professional", got.PersonaTag)

	var points []string
	require.NoError(t, json.Unmarshal([]byte(got.PainPoints), &points))
	for _, p := range points {
		assert.Contains(t, defaultPainPoints, p)
	}
}

func TestCompanySizeHeuristics(t *testing.T) {
	// Deterministic rng draw bounds: variance is at most ±15, so a score
	// far from a bucket edge cannot cross it.
	e := New(1)

	// "Global Corp" +30 and USA +15 puts the base at 95: enterprise even
	// at minimum variance.
	assert.Equal(t, "enterprise", e.companySize("Apex Global Corp", "USA"))

	// "LLC" -20 and India -10 puts the base at 20: small even at maximum
	// variance.
	assert.Equal(t, "small", e.companySize("Tiny Shop LLC", "India"))
}

func TestConfidenceScoreBounds(t *testing.T) {
	e := New(3)
	for i := 0; i < 100; i++ {
		s := e.confidence("enterprise", "C-level")
		// Base 50 + 25 + 20 with ±5 variance.
		assert.GreaterOrEqual(t, s, 90)
		assert.LessOrEqual(t, s, 100)
	}
	for i := 0; i < 100; i++ {
		s := e.confidence("small", "Manager")
		assert.GreaterOrEqual(t, s, 55)
		assert.LessOrEqual(t, s, 65)
	}
}

func TestEnrichNeverPanicsOnEmptyLead(t *testing.T) {
	e := New(0)
	got := e.Enrich(domain.Lead{})
	assert.NotEmpty(t, got.PersonaTag)
	assert.NotEmpty(t, got.PainPoints)
	assert.Positive(t, got.ConfidenceScore)
}
