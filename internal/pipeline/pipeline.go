// Package pipeline runs one brand lookup end to end: plan queries in waves,
// fan the fetch+extract work across a bounded pool, fold everything into the
// aggregator, then score and rank the merged candidates. The pipeline is
// stateless between calls; every lookup owns its aggregator.
package pipeline

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rydeebs/findb2b/internal/aggregator"
	"github.com/rydeebs/findb2b/internal/domains"
	"github.com/rydeebs/findb2b/internal/extractor"
	"github.com/rydeebs/findb2b/internal/fetcher"
	"github.com/rydeebs/findb2b/internal/models"
	"github.com/rydeebs/findb2b/internal/planner"
	"github.com/rydeebs/findb2b/internal/refdata"
	"github.com/rydeebs/findb2b/internal/scorer"
	"github.com/rydeebs/findb2b/internal/sitecrawl"
	"github.com/rydeebs/findb2b/pkg/logger"
)

// ErrEmptyBrand is the only error Discover surfaces as a hard failure.
var ErrEmptyBrand = planner.ErrEmptyBrand

type Config struct {
	// Workers bounds concurrent queries within a wave.
	Workers int
	// TargetCandidates is the distinct-domain count after which no further
	// waves are requested.
	TargetCandidates int
	Retry            fetcher.Policy
	Crawl            sitecrawl.Config
}

func DefaultConfig() Config {
	return Config{
		Workers:          5,
		TargetCandidates: 5,
		Retry:            fetcher.DefaultPolicy(),
		Crawl:            sitecrawl.DefaultConfig(),
	}
}

type Pipeline struct {
	fetch   fetcher.Doer
	ext     *extractor.Extractor
	planner *planner.Planner
	crawler *sitecrawl.Crawler
	log     *logger.Logger
	cfg     Config
}

func New(fetch fetcher.Doer, ref *refdata.Set, log *logger.Logger, cfg Config) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if cfg.TargetCandidates <= 0 {
		cfg.TargetCandidates = DefaultConfig().TargetCandidates
	}
	ext := extractor.New(ref)
	return &Pipeline{
		fetch:   fetch,
		ext:     ext,
		planner: planner.New(ref),
		crawler: sitecrawl.New(fetch, ext, log, cfg.Crawl),
		log:     log,
		cfg:     cfg,
	}
}

// Discover runs a full lookup for one brand. Zero candidates is a valid
// result, not an error; only an empty brand name fails.
func (p *Pipeline) Discover(ctx context.Context, brand string, hints models.Hints) (*models.Result, error) {
	start := time.Now()
	plan, err := p.planner.Plan(brand, hints)
	if err != nil {
		return nil, err
	}

	brandDomain := ""
	if hints.URL != "" {
		brandDomain = domains.Normalize(hints.URL)
	}

	agg := aggregator.New()
	queriesRun := 0
	pagesCrawled := 0

	for wave := plan.NextWave(); wave != nil; wave = plan.NextWave() {
		var searches []models.Query
		var seeds []models.Query
		for _, q := range wave {
			if q.Strategy == models.StrategyCrawlSeed {
				seeds = append(seeds, q)
			} else {
				searches = append(searches, q)
			}
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.cfg.Workers)

		for _, q := range searches {
			q := q
			queriesRun++
			g.Go(func() error {
				p.runQuery(gctx, q, brand, brandDomain, agg)
				return nil
			})
		}
		if len(seeds) > 0 {
			// One goroutine: the crawler's frontier is sequential on purpose.
			g.Go(func() error {
				pagesCrawled = p.crawler.Run(gctx, brand, seeds, agg.Merge)
				return nil
			})
		}
		_ = g.Wait()

		if agg.Len() >= p.cfg.TargetCandidates {
			break
		}
		p.log.Debugf("brand %q: %d domains after wave, trying next", brand, agg.Len())
	}

	result := &models.Result{
		ID:           uuid.NewString(),
		Brand:        brand,
		Candidates:   p.finalize(agg, brandDomain),
		QueriesRun:   queriesRun,
		PagesCrawled: pagesCrawled,
		ElapsedMs:    time.Since(start).Milliseconds(),
	}
	if len(result.Candidates) == 0 {
		p.log.Infof("brand %q: no retailers found", brand)
	}
	return result, nil
}

// runQuery fetches and extracts a single search query. Every failure mode
// degrades to "this query contributed nothing".
func (p *Pipeline) runQuery(ctx context.Context, q models.Query, brand, brandDomain string, agg *aggregator.Aggregator) {
	resp, err := fetcher.Do(ctx, p.fetch, q.TargetURL, p.cfg.Retry)
	if err != nil {
		p.log.Debugf("query %q: fetch failed: %v", q.QueryString, err)
		return
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.log.Debugf("query %q: status %d, skipping", q.QueryString, resp.StatusCode)
		return
	}
	doc, err := extractor.Parse(strings.NewReader(string(resp.Body)), "text/html")
	if err != nil {
		p.log.Debugf("query %q: parse failed: %v", q.QueryString, err)
		return
	}
	cands := p.ext.Extract(doc, extractor.Input{
		Brand:       brand,
		BrandDomain: brandDomain,
		Query:       q,
	})
	if len(cands) > 0 {
		agg.Merge(cands)
	}
}

// finalize scores and ranks the merged set: tier first, first-seen order
// within a tier. The brand's own domain is dropped here as a last guard even
// though the extractor already excludes it.
func (p *Pipeline) finalize(agg *aggregator.Aggregator, brandDomain string) []models.Candidate {
	merged := agg.Candidates()
	out := make([]models.Candidate, 0, len(merged))
	for _, c := range merged {
		if brandDomain != "" && domains.SameOrSubdomain(c.Domain, brandDomain) {
			continue
		}
		c.Confidence = scorer.Score(c.Evidence)
		c.EvidenceTags = c.Evidence.Tags()
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence.Rank() > out[j].Confidence.Rank()
	})
	return out
}
