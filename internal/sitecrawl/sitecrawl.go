// Package sitecrawl walks the brand's own website looking for retailer
// listings. The walk is a bounded breadth-first traversal with a two-tier
// frontier: links that look like retailer pages ("where to buy", "stockists",
// "store locator") jump the queue, everything else waits at the back.
package sitecrawl

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/rydeebs/findb2b/internal/domains"
	"github.com/rydeebs/findb2b/internal/extractor"
	"github.com/rydeebs/findb2b/internal/fetcher"
	"github.com/rydeebs/findb2b/internal/models"
	"github.com/rydeebs/findb2b/pkg/logger"
)

// retailerPagePatterns flag pages (and links) that likely list stockists.
var retailerPagePatterns = []string{
	"where to buy", "where-to-buy", "store locator", "store-locator",
	"find a store", "find-a-store", "retailers", "stockists",
	"dealer locator", "authorized sellers", "authorized retailers",
	"find a dealer", "store finder", "buy now", "shop now",
}

// Config bounds one crawl run. Defaults match the usual small site budget.
type Config struct {
	MaxDepth int
	MaxPages int
}

func DefaultConfig() Config { return Config{MaxDepth: 2, MaxPages: 20} }

type Crawler struct {
	fetch fetcher.Doer
	ext   *extractor.Extractor
	log   *logger.Logger
	cfg   Config
}

func New(fetch fetcher.Doer, ext *extractor.Extractor, log *logger.Logger, cfg Config) *Crawler {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultConfig().MaxDepth
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultConfig().MaxPages
	}
	return &Crawler{fetch: fetch, ext: ext, log: log, cfg: cfg}
}

type frontierEntry struct {
	url   string
	depth int
}

// Run crawls from the seed queries, feeding extracted candidates to sink as
// each page is processed. Frontier processing is strictly sequential so the
// visited-set stays race-free. Fetch failures are skipped, never retried
// here, and never abort the run. Returns the number of pages fetched.
func (c *Crawler) Run(ctx context.Context, brand string, seeds []models.Query, sink func([]models.Candidate)) int {
	if len(seeds) == 0 {
		return 0
	}
	baseDomain := domains.Normalize(seeds[0].TargetURL)

	visited := make(map[string]struct{})
	var frontier []frontierEntry
	for _, s := range seeds {
		frontier = append(frontier, frontierEntry{url: s.TargetURL, depth: 0})
	}

	pages := 0
	for len(frontier) > 0 && pages < c.cfg.MaxPages {
		if ctx.Err() != nil {
			break
		}
		cur := frontier[0]
		frontier = frontier[1:]
		if _, ok := visited[cur.url]; ok {
			continue
		}
		visited[cur.url] = struct{}{}
		pages++

		resp, err := fetcher.Do(ctx, c.fetch, cur.url, fetcher.Policy{MaxAttempts: 1})
		if err != nil || resp.StatusCode != 200 {
			c.log.Debugf("crawl skip %s: err=%v status=%v", cur.url, err, status(resp))
			continue
		}
		doc, err := extractor.Parse(strings.NewReader(string(resp.Body)), "text/html")
		if err != nil {
			c.log.Debugf("crawl parse skip %s: %v", cur.url, err)
			continue
		}

		retailerPage := isRetailerPage(doc)
		links := extractor.PageLinks(doc, cur.url)

		if cur.depth < c.cfg.MaxDepth {
			for _, l := range links {
				if !domains.SameOrSubdomain(domains.Normalize(l.URL), baseDomain) {
					continue
				}
				if _, ok := visited[l.URL]; ok {
					continue
				}
				entry := frontierEntry{url: l.URL, depth: cur.depth + 1}
				if matchesRetailerPattern(l.Text + " " + strings.ToLower(l.URL)) {
					frontier = append([]frontierEntry{entry}, frontier...)
				} else {
					frontier = append(frontier, entry)
				}
			}
		}

		cands := c.ext.FromCrawlPage(doc, extractor.CrawlInput{
			Brand:        brand,
			BrandDomain:  baseDomain,
			PageURL:      cur.url,
			RetailerPage: retailerPage,
		})
		if len(cands) > 0 {
			sink(cands)
		}
	}
	return pages
}

func isRetailerPage(doc *goquery.Document) bool {
	title := strings.ToLower(doc.Find("title").First().Text())
	if matchesRetailerPattern(title) {
		return true
	}
	return matchesRetailerPattern(strings.ToLower(doc.Text()))
}

func matchesRetailerPattern(lower string) bool {
	lower = strings.ToLower(lower)
	for _, p := range retailerPagePatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func status(r *fetcher.Response) int {
	if r == nil {
		return 0
	}
	return r.StatusCode
}
