// Package refdata supplies the static reference data the pipeline consumes:
// the major-retailers catalog and the deny list of non-retailer domains.
// Both are configuration, not computed: the defaults are embedded, and
// callers may load a replacement catalog from a YAML file.
package refdata

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rydeebs/findb2b/internal/models"
)

//go:embed retailers.yaml
var embedded []byte

// Set is one loaded catalog + deny list. Immutable after load.
type Set struct {
	retailers  []models.RetailerRef
	byDomain   map[string]models.RetailerRef
	denylist   []string
	categories map[string][]models.RetailerRef
}

type fileSchema struct {
	Retailers []models.RetailerRef `yaml:"retailers"`
	Denylist  []string             `yaml:"denylist"`
}

// Default returns the embedded catalog. Panics only on a broken embed,
// which is a build defect, not a runtime condition.
func Default() *Set {
	s, err := Parse(embedded)
	if err != nil {
		panic(fmt.Sprintf("refdata: embedded catalog invalid: %v", err))
	}
	return s
}

// Load reads a catalog from a YAML file with the same schema as the embedded one.
func Load(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Set, error) {
	var raw fileSchema
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse retailer catalog: %w", err)
	}
	if len(raw.Retailers) == 0 {
		return nil, fmt.Errorf("retailer catalog is empty")
	}
	s := &Set{
		retailers:  raw.Retailers,
		byDomain:   make(map[string]models.RetailerRef, len(raw.Retailers)),
		denylist:   raw.Denylist,
		categories: make(map[string][]models.RetailerRef),
	}
	for _, r := range raw.Retailers {
		s.byDomain[r.Domain] = r
		for _, c := range r.Categories {
			s.categories[c] = append(s.categories[c], r)
		}
	}
	return s, nil
}

// Retailers returns the full catalog in file order.
func (s *Set) Retailers() []models.RetailerRef { return s.retailers }

// Lookup finds the catalog entry whose domain equals or is a parent of the
// given normalized domain ("www" is already stripped by normalization).
func (s *Set) Lookup(domain string) (models.RetailerRef, bool) {
	if r, ok := s.byDomain[domain]; ok {
		return r, true
	}
	for d, r := range s.byDomain {
		if strings.HasSuffix(domain, "."+d) {
			return r, true
		}
	}
	return models.RetailerRef{}, false
}

// LookupName finds a catalog entry whose display name occurs in text,
// case-insensitively. Used for text-only mentions on retailer pages.
func (s *Set) LookupName(text string) (models.RetailerRef, bool) {
	lower := strings.ToLower(text)
	for _, r := range s.retailers {
		if strings.Contains(lower, strings.ToLower(r.Name)) {
			return r, true
		}
	}
	return models.RetailerRef{}, false
}

// ForCategory maps a free-text industry hint onto a catalog category by
// keyword containment ("health & beauty" matches "beauty") and returns that
// category's retailers. Nil when the hint matches nothing known.
func (s *Set) ForCategory(industry string) []models.RetailerRef {
	lower := strings.ToLower(industry)
	for cat, list := range s.categories {
		if cat == "general" {
			continue
		}
		if strings.Contains(lower, cat) {
			return list
		}
	}
	// common aliases the containment check misses
	aliases := map[string]string{
		"cosmetic": "beauty", "skincare": "beauty", "makeup": "beauty",
		"shoe": "footwear", "sneaker": "footwear",
		"clothing": "apparel", "fashion": "apparel",
		"grocery": "food", "beverage": "food", "snack": "food",
		"tech": "electronics", "gadget": "electronics",
		"camping": "outdoor", "hiking": "outdoor",
		"fitness": "sports", "athletic": "sports",
		"dog": "pet", "cat": "pet", "animal": "pet",
	}
	for kw, cat := range aliases {
		if strings.Contains(lower, kw) {
			return s.categories[cat]
		}
	}
	return nil
}

// Denied reports whether the domain matches any deny-list fragment. The list
// holds fragments like "facebook." on purpose, so country TLD variants match too.
func (s *Set) Denied(domain string) bool {
	lower := strings.ToLower(domain)
	for _, frag := range s.denylist {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}
