package planner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rydeebs/findb2b/internal/models"
	"github.com/rydeebs/findb2b/internal/refdata"
)

func TestEmptyBrandIsUsageError(t *testing.T) {
	p := New(refdata.Default())
	_, err := p.Plan("", models.Hints{})
	require.ErrorIs(t, err, ErrEmptyBrand)
	_, err = p.Plan("   ", models.Hints{})
	require.ErrorIs(t, err, ErrEmptyBrand)
}

func TestFirstWaveAlwaysHasShoppingQuery(t *testing.T) {
	p := New(refdata.Default())
	plan, err := p.Plan("Acme Shoes", models.Hints{})
	require.NoError(t, err)

	wave := plan.NextWave()
	require.NotEmpty(t, wave)
	assert.Equal(t, models.StrategyShopping, wave[0].Strategy)
	assert.Contains(t, wave[0].TargetURL, "Acme+Shoes")
}

func TestLaterWavesBroaden(t *testing.T) {
	p := New(refdata.Default())
	plan, err := p.Plan("Acme Shoes", models.Hints{})
	require.NoError(t, err)

	plan.NextWave()
	second := plan.NextWave()
	require.Len(t, second, 1)
	assert.Equal(t, models.StrategyWhereToBuy, second[0].Strategy)
	assert.Equal(t, "Acme Shoes buy", second[0].QueryString)

	third := plan.NextWave()
	require.Len(t, third, 1)
	assert.Equal(t, "Acme Shoes where to buy", third[0].QueryString)

	assert.Nil(t, plan.NextWave())
}

func TestSpecificShoppingQueryComesFirst(t *testing.T) {
	p := New(refdata.Default())
	plan, err := p.Plan("Acme", models.Hints{Industry: "industrial lubricants", Filters: []string{"wholesale"}})
	require.NoError(t, err)

	wave := plan.NextWave()
	require.GreaterOrEqual(t, len(wave), 2)
	assert.Equal(t, "Acme industrial lubricants wholesale", wave[0].QueryString)
	assert.Equal(t, "Acme", wave[1].QueryString)
	assert.Greater(t, wave[0].Priority, wave[1].Priority)
}

func TestURLHintEmitsCrawlSeeds(t *testing.T) {
	p := New(refdata.Default())
	plan, err := p.Plan("Acme Shoes", models.Hints{URL: "acmeshoes.com"})
	require.NoError(t, err)

	var seeds []models.Query
	for _, q := range plan.NextWave() {
		if q.Strategy == models.StrategyCrawlSeed {
			seeds = append(seeds, q)
		}
	}
	require.NotEmpty(t, seeds)
	targets := make([]string, 0, len(seeds))
	for _, s := range seeds {
		assert.True(t, strings.HasPrefix(s.TargetURL, "https://acmeshoes.com/"), s.TargetURL)
		targets = append(targets, s.TargetURL)
	}
	assert.Contains(t, targets, "https://acmeshoes.com/")
	assert.Contains(t, targets, "https://acmeshoes.com/where-to-buy")
	assert.Contains(t, targets, "https://acmeshoes.com/stockists")
	assert.Contains(t, targets, "https://acmeshoes.com/store-locator")
}

func TestIndustryHintEmitsSiteRestrictedQueries(t *testing.T) {
	p := New(refdata.Default())
	plan, err := p.Plan("Acme Shoes", models.Hints{Industry: "footwear"})
	require.NoError(t, err)

	var restricted []models.Query
	for _, q := range plan.NextWave() {
		if q.Strategy == models.StrategySiteRestricted {
			restricted = append(restricted, q)
		}
	}
	require.NotEmpty(t, restricted)
	for _, q := range restricted {
		require.NotNil(t, q.Retailer)
		assert.Contains(t, q.QueryString, "site:"+q.Retailer.Domain)
		assert.Contains(t, q.TargetURL, "site%3A")
	}
}

func TestUnknownIndustryEmitsNoSiteRestricted(t *testing.T) {
	p := New(refdata.Default())
	plan, err := p.Plan("Acme", models.Hints{Industry: "quantum flux capacitors"})
	require.NoError(t, err)
	for _, q := range plan.NextWave() {
		assert.NotEqual(t, models.StrategySiteRestricted, q.Strategy)
	}
}

func TestQueryStringsAreURLEncoded(t *testing.T) {
	p := New(refdata.Default())
	plan, err := p.Plan("Ben & Jerry's", models.Hints{})
	require.NoError(t, err)
	wave := plan.NextWave()
	require.NotEmpty(t, wave)
	assert.NotContains(t, wave[0].TargetURL, " ")
	assert.Contains(t, wave[0].TargetURL, "%26") // the ampersand
}
