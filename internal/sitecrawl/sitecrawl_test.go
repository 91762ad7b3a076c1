package sitecrawl

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rydeebs/findb2b/internal/extractor"
	"github.com/rydeebs/findb2b/internal/fetcher"
	"github.com/rydeebs/findb2b/internal/models"
	"github.com/rydeebs/findb2b/internal/refdata"
	"github.com/rydeebs/findb2b/pkg/logger"
)

// stubFetcher serves canned pages; unknown URLs 404, "boom" URLs error.
type stubFetcher struct {
	pages map[string]string
	calls []string
}

func (s *stubFetcher) Fetch(ctx context.Context, url string) (*fetcher.Response, error) {
	s.calls = append(s.calls, url)
	html, ok := s.pages[url]
	if !ok {
		return &fetcher.Response{StatusCode: 404, FinalURL: url}, nil
	}
	if html == "boom" {
		return nil, errors.New("connection reset")
	}
	return &fetcher.Response{StatusCode: 200, Body: []byte(html), FinalURL: url}, nil
}

func newCrawler(f fetcher.Doer, cfg Config) *Crawler {
	return New(f, extractor.New(refdata.Default()), logger.NewNop(), cfg)
}

func seed(url string) []models.Query {
	return []models.Query{{QueryString: "/", TargetURL: url, Strategy: models.StrategyCrawlSeed}}
}

func collectSink(dst *[]models.Candidate) func([]models.Candidate) {
	return func(c []models.Candidate) { *dst = append(*dst, c...) }
}

func TestCrawlRespectsMaxPages(t *testing.T) {
	pages := map[string]string{}
	var links string
	for i := 1; i <= 9; i++ {
		links += fmt.Sprintf(`<a href="/p%d">page %d</a>`, i, i)
	}
	pages["https://acmeshoes.com/"] = "<html><body>" + links + "</body></html>"
	for i := 1; i <= 9; i++ {
		pages[fmt.Sprintf("https://acmeshoes.com/p%d", i)] = "<html><body>nothing here</body></html>"
	}
	f := &stubFetcher{pages: pages}

	c := newCrawler(f, Config{MaxDepth: 2, MaxPages: 5})
	var got []models.Candidate
	fetched := c.Run(context.Background(), "Acme Shoes", seed("https://acmeshoes.com/"), collectSink(&got))

	assert.Equal(t, 5, fetched)
	assert.Len(t, f.calls, 5)
	seen := map[string]int{}
	for _, u := range f.calls {
		seen[u]++
	}
	for u, n := range seen {
		assert.Equal(t, 1, n, "url %s fetched more than once", u)
	}
}

func TestCrawlVisitsEachURLOnce(t *testing.T) {
	// a and b link back to each other and to the root
	f := &stubFetcher{pages: map[string]string{
		"https://acmeshoes.com/":  `<html><body><a href="/a">a</a><a href="/b">b</a></body></html>`,
		"https://acmeshoes.com/a": `<html><body><a href="/b">b</a><a href="/">home</a></body></html>`,
		"https://acmeshoes.com/b": `<html><body><a href="/a">a</a><a href="/">home</a></body></html>`,
	}}
	c := newCrawler(f, Config{MaxDepth: 3, MaxPages: 20})
	var got []models.Candidate
	fetched := c.Run(context.Background(), "Acme Shoes", seed("https://acmeshoes.com/"), collectSink(&got))

	assert.Equal(t, 3, fetched)
	assert.Len(t, f.calls, 3)
}

func TestCrawlPrioritizesRetailerLinks(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{
		"https://acmeshoes.com/": `<html><body>
			<a href="/about">About us</a>
			<a href="/where-to-buy">Where to buy</a>
		</body></html>`,
		"https://acmeshoes.com/about":        `<html><body>about</body></html>`,
		"https://acmeshoes.com/where-to-buy": `<html><body>stockists</body></html>`,
	}}
	c := newCrawler(f, Config{MaxDepth: 2, MaxPages: 10})
	var got []models.Candidate
	c.Run(context.Background(), "Acme Shoes", seed("https://acmeshoes.com/"), collectSink(&got))

	require.Len(t, f.calls, 3)
	assert.Equal(t, "https://acmeshoes.com/where-to-buy", f.calls[1], "retailer-looking link jumps the queue")
}

func TestCrawlRespectsMaxDepth(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{
		"https://acmeshoes.com/":  `<html><body><a href="/a">a</a></body></html>`,
		"https://acmeshoes.com/a": `<html><body><a href="/b">b</a></body></html>`,
		"https://acmeshoes.com/b": `<html><body>too deep</body></html>`,
	}}
	c := newCrawler(f, Config{MaxDepth: 1, MaxPages: 20})
	var got []models.Candidate
	c.Run(context.Background(), "Acme Shoes", seed("https://acmeshoes.com/"), collectSink(&got))

	assert.NotContains(t, f.calls, "https://acmeshoes.com/b")
}

func TestCrawlSurvivesFetchFailures(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{
		"https://acmeshoes.com/":  `<html><body><a href="/bad">bad</a><a href="/good">good</a></body></html>`,
		"https://acmeshoes.com/bad": "boom",
		"https://acmeshoes.com/good": `<html><head><title>Where to buy</title></head><body>
			<a href="https://www.target.com/b/acme-shoes">Shop at Target</a>
		</body></html>`,
	}}
	c := newCrawler(f, Config{MaxDepth: 2, MaxPages: 10})
	var got []models.Candidate
	fetched := c.Run(context.Background(), "Acme Shoes", seed("https://acmeshoes.com/"), collectSink(&got))

	assert.Equal(t, 3, fetched, "a failed fetch never aborts the crawl")
	require.NotEmpty(t, got)
	assert.Equal(t, "target.com", got[0].Domain)
	assert.True(t, got[0].Evidence.Has(models.EvidenceBrandSiteLink))
	assert.True(t, got[0].Evidence.Has(models.EvidenceWhereToBuyMention))
}

func TestCrawlStaysOnBrandDomain(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{
		"https://acmeshoes.com/": `<html><body>
			<a href="https://elsewhere.example.com/page">shop elsewhere</a>
			<a href="/local">local</a>
		</body></html>`,
		"https://acmeshoes.com/local": `<html><body>local</body></html>`,
	}}
	c := newCrawler(f, Config{MaxDepth: 2, MaxPages: 10})
	var got []models.Candidate
	c.Run(context.Background(), "Acme Shoes", seed("https://acmeshoes.com/"), collectSink(&got))

	assert.NotContains(t, f.calls, "https://elsewhere.example.com/page")
}
