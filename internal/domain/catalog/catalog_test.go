package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	p, ok := Resolve("generador-sermones")
	require.True(t, ok)
	assert.Equal(t, "Generador de Sermones", p.Name)
	assert.Equal(t, int64(999), p.PriceMinor)
	assert.Equal(t, "usd", p.Currency)

	_, ok = Resolve("Generador de Sermones")
	assert.False(t, ok, "Resolve matches ids only")

	_, ok = Resolve("unknown")
	assert.False(t, ok)
}

func TestResolveTool(t *testing.T) {
	cases := []string{
		"generador-sermones",
		"GENERADOR-SERMONES",
		"Generador de Sermones",
		"  generador de sermones ",
	}
	for _, in := range cases {
		p, ok := ResolveTool(in)
		require.True(t, ok, in)
		assert.Equal(t, "generador-sermones", p.ID, in)
	}

	_, ok := ResolveTool("")
	assert.False(t, ok)
	_, ok = ResolveTool("sermones")
	assert.False(t, ok)
}

func TestAllIsACopy(t *testing.T) {
	all := All()
	require.NotEmpty(t, all)
	all[0].PriceMinor = 1

	p, ok := Resolve(all[0].ID)
	require.True(t, ok)
	assert.NotEqual(t, int64(1), p.PriceMinor)
}

func TestCatalogIntegrity(t *testing.T) {
	seen := map[string]bool{}
	for _, p := range All() {
		assert.False(t, seen[p.ID], "duplicate id %s", p.ID)
		seen[p.ID] = true
		assert.Positive(t, p.PriceMinor, p.ID)
		assert.Len(t, p.Currency, 3, p.ID)
		assert.NotEmpty(t, p.ToolURL, p.ID)
		assert.Equal(t, PlanOneTime, NormalizePlan(p.Plan), p.ID)
	}
}

func TestNormalizePlan(t *testing.T) {
	assert.Equal(t, PlanOneTime, NormalizePlan(" Lifetime "))
	assert.Equal(t, PlanRecurring, NormalizePlan("monthly"))
	assert.Equal(t, PlanNone, NormalizePlan(""))
	assert.Equal(t, PlanNone, NormalizePlan("gold"))
}
