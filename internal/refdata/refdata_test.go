package refdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogLoads(t *testing.T) {
	s := Default()
	require.NotEmpty(t, s.Retailers())

	r, ok := s.Lookup("target.com")
	require.True(t, ok)
	assert.Equal(t, "Target", r.Name)

	// subdomain resolves to the parent catalog entry
	r, ok = s.Lookup("shop.target.com")
	require.True(t, ok)
	assert.Equal(t, "Target", r.Name)

	_, ok = s.Lookup("some-boutique.example")
	assert.False(t, ok)
}

func TestLookupName(t *testing.T) {
	s := Default()
	r, ok := s.LookupName("Our products are available at Nordstrom and select boutiques.")
	require.True(t, ok)
	assert.Equal(t, "Nordstrom", r.Name)

	_, ok = s.LookupName("no retailer mentioned here")
	assert.False(t, ok)
}

func TestForCategory(t *testing.T) {
	s := Default()

	beauty := s.ForCategory("Health & Beauty")
	require.NotEmpty(t, beauty)
	names := make([]string, 0, len(beauty))
	for _, r := range beauty {
		names = append(names, r.Name)
	}
	assert.Contains(t, names, "Sephora")

	// alias keywords map onto known categories
	assert.NotEmpty(t, s.ForCategory("running shoes"))
	assert.NotEmpty(t, s.ForCategory("Dog Treats"))

	assert.Nil(t, s.ForCategory("industrial lubricants"))
}

func TestDenied(t *testing.T) {
	s := Default()
	assert.True(t, s.Denied("facebook.com"))
	assert.True(t, s.Denied("m.facebook.com"))
	assert.True(t, s.Denied("en.wikipedia.org"))
	assert.True(t, s.Denied("google.com"))
	assert.False(t, s.Denied("shoes-r-us.com"))
}

func TestParseRejectsEmptyCatalog(t *testing.T) {
	_, err := Parse([]byte("retailers: []\ndenylist: []\n"))
	require.Error(t, err)

	_, err = Parse([]byte("not: [valid"))
	require.Error(t, err)
}
