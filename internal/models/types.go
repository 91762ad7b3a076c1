package models

import "sort"

// EvidenceTag marks one corroborating signal behind a candidate.
type EvidenceTag string

const (
	EvidenceShoppingResult    EvidenceTag = "shopping-result-match"
	EvidenceTitleBrandMatch   EvidenceTag = "product-title-brand-match"
	EvidenceSiteRestrictedHit EvidenceTag = "site-restricted-search-hit"
	EvidenceWhereToBuyMention EvidenceTag = "where-to-buy-page-mention"
	EvidenceBrandSiteLink     EvidenceTag = "brand-website-direct-link"
	EvidenceKnownRetailer     EvidenceTag = "known-retailer-name-match"
	EvidenceGenericBuySignal  EvidenceTag = "generic-buy-signal"
)

// EvidenceSet is the accumulated evidence for one candidate. The set is
// unioned across merges and never shrinks within a run.
type EvidenceSet map[EvidenceTag]struct{}

func NewEvidence(tags ...EvidenceTag) EvidenceSet {
	s := make(EvidenceSet, len(tags))
	for _, t := range tags {
		s[t] = struct{}{}
	}
	return s
}

func (s EvidenceSet) Has(t EvidenceTag) bool {
	_, ok := s[t]
	return ok
}

func (s EvidenceSet) Add(t EvidenceTag) { s[t] = struct{}{} }

// Union returns a fresh set containing both inputs' tags.
func (s EvidenceSet) Union(other EvidenceSet) EvidenceSet {
	out := make(EvidenceSet, len(s)+len(other))
	for t := range s {
		out[t] = struct{}{}
	}
	for t := range other {
		out[t] = struct{}{}
	}
	return out
}

// Tags returns the tags in stable (sorted) order, for JSON output and tests.
func (s EvidenceSet) Tags() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, string(t))
	}
	sort.Strings(out)
	return out
}

// ConfidenceTier is derived from evidence by the scorer, never set directly.
type ConfidenceTier string

const (
	ConfidenceVeryHigh ConfidenceTier = "Very High"
	ConfidenceHigh     ConfidenceTier = "High"
	ConfidenceMedium   ConfidenceTier = "Medium"
	ConfidenceLow      ConfidenceTier = "Low"
)

// Rank orders tiers for sorting; higher is stronger.
func (c ConfidenceTier) Rank() int {
	switch c {
	case ConfidenceVeryHigh:
		return 3
	case ConfidenceHigh:
		return 2
	case ConfidenceMedium:
		return 1
	default:
		return 0
	}
}

// Candidate is one hypothesis that a retailer sells the brand's product.
// Domain is the dedup key and always comes out of domains.Normalize.
type Candidate struct {
	Brand        string         `json:"brand"`
	RetailerName string         `json:"retailer"`
	Domain       string         `json:"domain"`
	ProductTitle string         `json:"product"`
	Price        string         `json:"price"`
	SourceDesc   string         `json:"source"`
	SourceURL    string         `json:"link"`
	Evidence     EvidenceSet    `json:"-"`
	EvidenceTags []string       `json:"evidence,omitempty"`
	Confidence   ConfidenceTier `json:"confidence,omitempty"`
}

const (
	UnknownProduct = "unknown"
	NoPrice        = "not available"
)

// StrategyTag identifies which planner strategy produced a query.
type StrategyTag string

const (
	StrategyShopping       StrategyTag = "shopping-search"
	StrategyWhereToBuy     StrategyTag = "where-to-buy-search"
	StrategySiteRestricted StrategyTag = "site-restricted"
	StrategyCrawlSeed      StrategyTag = "brand-crawl-seed"
)

// Query is one planned fetch-and-extract unit. Consumed once, not retained.
type Query struct {
	QueryString string      `json:"query"`
	TargetURL   string      `json:"targetUrl"`
	Strategy    StrategyTag `json:"strategy"`
	Priority    int         `json:"priority,omitempty"`
	// Retailer is set on site-restricted queries only.
	Retailer *RetailerRef `json:"retailer,omitempty"`
}

// Hints are the optional inputs to a brand lookup.
type Hints struct {
	URL      string   `json:"url,omitempty"`
	Industry string   `json:"industry,omitempty"`
	Filters  []string `json:"filters,omitempty"`
}

// RetailerRef is one entry of the major-retailers catalog.
type RetailerRef struct {
	Name       string   `yaml:"name" json:"name"`
	Domain     string   `yaml:"domain" json:"domain"`
	Categories []string `yaml:"categories" json:"categories,omitempty"`
}

// Result is what a completed brand lookup hands to the export layer. A lookup
// that found nothing is a Result with an empty Candidates slice, not an error.
type Result struct {
	ID           string      `json:"id"`
	Brand        string      `json:"brand"`
	Candidates   []Candidate `json:"candidates"`
	QueriesRun   int         `json:"queriesRun"`
	PagesCrawled int         `json:"pagesCrawled"`
	ElapsedMs    int64       `json:"elapsedMs"`
}
