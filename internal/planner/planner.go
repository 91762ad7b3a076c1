// Package planner turns a brand plus optional hints into waves of search
// queries. The planner only decides WHAT to ask; whether a later wave runs is
// the caller's call, made by inspecting how many distinct domains the
// aggregator has collected so far.
package planner

import (
	"errors"
	"net/url"
	"strings"

	"github.com/rydeebs/findb2b/internal/models"
	"github.com/rydeebs/findb2b/internal/refdata"
)

// ErrEmptyBrand is the one usage error: a lookup without a brand name.
var ErrEmptyBrand = errors.New("brand name is required")

// crawlSeedPaths are the likely retailer-listing paths tried on the brand's
// own site before the crawl widens out.
var crawlSeedPaths = []string{
	"/",
	"/where-to-buy",
	"/pages/where-to-buy",
	"/stores",
	"/retailers",
	"/pages/retailers",
	"/stockists",
	"/pages/stockists",
	"/find-a-store",
	"/store-locator",
	"/partners",
	"/locations",
}

const (
	searchURL   = "https://www.google.com/search?q="
	shoppingURL = "https://www.google.com/search?tbm=shop&q="
)

type Planner struct {
	ref *refdata.Set
}

func New(ref *refdata.Set) *Planner { return &Planner{ref: ref} }

// Plan holds the ordered waves for one lookup. NextWave returns nil when
// exhausted; queries are consumed once and not retained.
type Plan struct {
	waves [][]models.Query
	next  int
}

func (p *Plan) NextWave() []models.Query {
	if p.next >= len(p.waves) {
		return nil
	}
	w := p.waves[p.next]
	p.next++
	return w
}

// Waves returns how many waves remain unconsumed.
func (p *Plan) Waves() int { return len(p.waves) - p.next }

// Plan builds the full wave sequence for a brand lookup.
//
// Wave 1: shopping searches ordered most-specific-first, plus crawl seeds when
// hints carry a URL, plus one site-restricted query per catalog retailer when
// the industry hint maps to a known category. Waves 2 and 3 are the broader
// `brand buy` / `brand where to buy` searches, emitted only when the caller
// asks for them.
func (pl *Planner) Plan(brand string, hints models.Hints) (*Plan, error) {
	brand = strings.TrimSpace(brand)
	if brand == "" {
		return nil, ErrEmptyBrand
	}

	var first []models.Query
	first = append(first, pl.shoppingQueries(brand, hints)...)
	if hints.URL != "" {
		first = append(first, crawlSeeds(hints.URL)...)
	}
	if hints.Industry != "" {
		for _, r := range pl.ref.ForCategory(hints.Industry) {
			r := r
			q := "site:" + r.Domain + " " + brand
			first = append(first, models.Query{
				QueryString: q,
				TargetURL:   searchURL + url.QueryEscape(q),
				Strategy:    models.StrategySiteRestricted,
				Retailer:    &r,
			})
		}
	}

	second := []models.Query{searchQuery(brand+" buy", models.StrategyWhereToBuy)}
	third := []models.Query{searchQuery(brand+" where to buy", models.StrategyWhereToBuy)}

	return &Plan{waves: [][]models.Query{first, second, third}}, nil
}

// shoppingQueries emits the specific query first and the bare brand query
// last, so the least noisy results arrive before the broad ones.
func (pl *Planner) shoppingQueries(brand string, hints models.Hints) []models.Query {
	var out []models.Query
	terms := []string{brand}
	if hints.Industry != "" {
		terms = append(terms, hints.Industry)
	}
	for _, f := range hints.Filters {
		if f = strings.TrimSpace(f); f != "" {
			terms = append(terms, f)
		}
	}
	if len(terms) > 1 {
		q := strings.Join(terms, " ")
		out = append(out, models.Query{
			QueryString: q,
			TargetURL:   shoppingURL + url.QueryEscape(q),
			Strategy:    models.StrategyShopping,
			Priority:    len(terms),
		})
	}
	out = append(out, models.Query{
		QueryString: brand,
		TargetURL:   shoppingURL + url.QueryEscape(brand),
		Strategy:    models.StrategyShopping,
		Priority:    1,
	})
	return out
}

func searchQuery(q string, strategy models.StrategyTag) models.Query {
	return models.Query{
		QueryString: q,
		TargetURL:   searchURL + url.QueryEscape(q),
		Strategy:    strategy,
	}
}

// crawlSeeds expands the brand URL into seed queries for the site crawler,
// one per likely retailer-listing path.
func crawlSeeds(brandURL string) []models.Query {
	base := strings.TrimSpace(brandURL)
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	base = strings.TrimRight(base, "/")
	out := make([]models.Query, 0, len(crawlSeedPaths))
	for _, p := range crawlSeedPaths {
		target := base + p
		if p == "/" {
			target = base + "/"
		}
		out = append(out, models.Query{
			QueryString: p,
			TargetURL:   target,
			Strategy:    models.StrategyCrawlSeed,
		})
	}
	return out
}
