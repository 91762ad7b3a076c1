// Package extractor turns fetched HTML into candidate records. Result markup
// is not a stable contract, so extraction runs an ordered chain of
// strategies (structured shopping cards, then generic result containers,
// then a raw link sweep) and stops at the first one that yields anything.
package extractor

import (
	"bytes"
	"io"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/rydeebs/findb2b/internal/domains"
	"github.com/rydeebs/findb2b/internal/models"
	"github.com/rydeebs/findb2b/internal/refdata"
)

var (
	priceRe = regexp.MustCompile(`\$\s?\d[\d,]*(?:\.\d{2})?`)
	// "from NAME", "sold by NAME", "at NAME" near a result link
	sellerRe = regexp.MustCompile(`\b(?:from|by|sold by|at)\s+([A-Z][\w&'’.-]*(?:\s+[A-Z][\w&'’.-]*){0,2})`)
)

// Strategy is one way of locating result containers in a document.
type Strategy struct {
	Name   string
	Select func(doc *goquery.Document) *goquery.Selection
}

// strategies are tried in order until one finds a non-empty selection.
var strategies = []Strategy{
	{
		Name: "structured-card",
		Select: func(doc *goquery.Document) *goquery.Selection {
			return doc.Find(`div[class*="sh-dgr"], div[class*="sh-dlr"], div[class*="pla-unit"], div[class*="product-card"], li[class*="product"]`)
		},
	},
	{
		Name: "generic-result-container",
		Select: func(doc *goquery.Document) *goquery.Selection {
			return doc.Find(`div.g, div[class*="result"], div[class*="search-item"]`)
		},
	},
	{
		Name: "raw-link-fallback",
		Select: func(doc *goquery.Document) *goquery.Selection {
			return doc.Find("a[href]")
		},
	},
}

// Extractor applies the strategy chain plus the exclusion and relevance
// filters. Stateless; one instance serves all lookups.
type Extractor struct {
	ref *refdata.Set
}

func New(ref *refdata.Set) *Extractor { return &Extractor{ref: ref} }

// Input carries the per-page context extraction needs.
type Input struct {
	Brand       string
	BrandDomain string // normalized; empty when no hints.url was given
	Query       models.Query
}

// Parse decodes a fetched body to UTF-8 and builds a document, dropping
// script/style subtrees so text scans see content only.
func Parse(r io.Reader, contentType string) (*goquery.Document, error) {
	buf := new(bytes.Buffer)
	_, _ = io.Copy(buf, r)
	data := buf.Bytes()

	enc, _, _ := charset.DetermineEncoding(data, contentType)
	utf8data, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		if !utf8.Valid(data) {
			return nil, err
		}
		utf8data = data
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(utf8data))
	if err != nil {
		return nil, err
	}
	doc.Find("script,noscript,style").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})
	return doc, nil
}

// Extract scans one search-result document and returns candidates in
// document order. Field lookups degrade to defaults; only the exclusion
// filter and the relevance gate drop a candidate outright.
func (e *Extractor) Extract(doc *goquery.Document, in Input) []models.Candidate {
	containers := firstNonEmpty(doc)
	if containers == nil {
		return nil
	}

	var out []models.Candidate
	seen := map[string]struct{}{} // one candidate per domain per page
	containers.Each(func(i int, container *goquery.Selection) {
		link := container
		if !container.Is("a") {
			link = container.Find("a[href]").First()
			if link.Length() == 0 {
				return
			}
		}
		href := unwrapRedirect(link.AttrOr("href", ""))
		if href == "" {
			return
		}
		domain := domains.Normalize(href)
		if _, dup := seen[domain]; dup {
			return
		}
		if e.excluded(domain, in.BrandDomain) {
			return
		}

		text := squash(container.Text())
		title := containerTitle(container, link)

		cand, ok := e.build(in, domain, href, title, text)
		if !ok {
			return
		}
		seen[domain] = struct{}{}
		out = append(out, cand)
	})
	return out
}

// build applies the relevance gate and evidence assignment for one surviving
// link.
func (e *Extractor) build(in Input, domain, href, title, text string) (models.Candidate, bool) {
	ev := models.NewEvidence()
	known, isKnown := e.ref.Lookup(domain)

	switch in.Query.Strategy {
	case models.StrategySiteRestricted:
		// Only results on the queried retailer's own domain count as a
		// site-restricted hit; brand-token presence is not required for
		// "listed on this known-retailer domain" evidence.
		if in.Query.Retailer == nil || !domains.SameOrSubdomain(domain, in.Query.Retailer.Domain) {
			return models.Candidate{}, false
		}
		ev.Add(models.EvidenceSiteRestrictedHit)
		ev.Add(models.EvidenceKnownRetailer)
		if domains.ContainsBrandToken(title, in.Brand) {
			ev.Add(models.EvidenceTitleBrandMatch)
		}
	case models.StrategyWhereToBuy:
		if !domains.ContainsBrandToken(text, in.Brand) {
			return models.Candidate{}, false
		}
		ev.Add(models.EvidenceGenericBuySignal)
		if domains.ContainsBrandToken(title, in.Brand) {
			ev.Add(models.EvidenceTitleBrandMatch)
		}
	default: // shopping-search
		if !domains.ContainsBrandToken(text, in.Brand) {
			return models.Candidate{}, false
		}
		ev.Add(models.EvidenceShoppingResult)
		if domains.ContainsBrandToken(title, in.Brand) {
			ev.Add(models.EvidenceTitleBrandMatch)
		}
	}
	if isKnown {
		ev.Add(models.EvidenceKnownRetailer)
	}

	// catalog display names are authoritative; otherwise prefer "from NAME"
	// text near the result, then fall back to the domain label
	name := known.Name
	if !isKnown {
		if name = sellerName(text); name == "" {
			name = domains.NameFromDomain(domain)
		}
	}
	return models.Candidate{
		Brand:        in.Brand,
		RetailerName: name,
		Domain:       domain,
		ProductTitle: title,
		Price:        price(text),
		SourceDesc:   sourceDesc(in.Query),
		SourceURL:    href,
		Evidence:     ev,
	}, true
}

// CrawlInput is the context for extracting candidates from a page of the
// brand's own site.
type CrawlInput struct {
	Brand       string
	BrandDomain string
	PageURL     string
	// RetailerPage is true when the hosting page's title/text matched the
	// retailer-page patterns ("where to buy", "stockists", ...).
	RetailerPage bool
}

// FromCrawlPage inspects a brand-site page: every external link that survives
// the filters becomes a direct-link candidate, and on retailer pages a
// text-only mention of a catalog retailer counts too (weaker evidence, no
// concrete product link).
func (e *Extractor) FromCrawlPage(doc *goquery.Document, in CrawlInput) []models.Candidate {
	var out []models.Candidate
	seen := map[string]struct{}{}

	doc.Find("a[href]").Each(func(i int, link *goquery.Selection) {
		href := link.AttrOr("href", "")
		if !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") {
			return
		}
		domain := domains.Normalize(href)
		if _, dup := seen[domain]; dup {
			return
		}
		if e.excluded(domain, in.BrandDomain) {
			return
		}
		linkText := squash(link.Text())
		known, isKnown := e.ref.Lookup(domain)

		// An unknown external link still needs some retail signal before we
		// call it a retailer.
		if !isKnown && !looksLikeRetailLink(linkText, href) {
			return
		}

		ev := models.NewEvidence(models.EvidenceBrandSiteLink)
		if in.RetailerPage {
			ev.Add(models.EvidenceWhereToBuyMention)
		}
		name := linkText
		if isKnown {
			ev.Add(models.EvidenceKnownRetailer)
			name = known.Name
		} else if name == "" || len(name) > 30 {
			name = domains.NameFromDomain(domain)
		}

		seen[domain] = struct{}{}
		out = append(out, models.Candidate{
			Brand:        in.Brand,
			RetailerName: name,
			Domain:       domain,
			ProductTitle: "Found on brand website",
			Price:        models.NoPrice,
			SourceDesc:   "brand-website-crawl:" + in.PageURL,
			SourceURL:    href,
			Evidence:     ev,
		})
	})

	if in.RetailerPage {
		pageText := squash(doc.Text())
		for _, r := range e.ref.Retailers() {
			if _, dup := seen[r.Domain]; dup {
				continue
			}
			if !strings.Contains(strings.ToLower(pageText), strings.ToLower(r.Name)) {
				continue
			}
			if e.excluded(r.Domain, in.BrandDomain) {
				continue
			}
			seen[r.Domain] = struct{}{}
			out = append(out, models.Candidate{
				Brand:        in.Brand,
				RetailerName: r.Name,
				Domain:       r.Domain,
				ProductTitle: "Mentioned on brand website",
				Price:        models.NoPrice,
				SourceDesc:   "brand-website-text:" + in.PageURL,
				SourceURL:    "https://" + r.Domain,
				Evidence: models.NewEvidence(
					models.EvidenceKnownRetailer,
					models.EvidenceWhereToBuyMention,
				),
			})
		}
	}
	return out
}

// Link is an anchor harvested for the crawler's frontier.
type Link struct {
	URL  string
	Text string
}

// PageLinks resolves every anchor against the page URL and returns the
// absolute http(s) ones, for the crawler to filter and enqueue.
func PageLinks(doc *goquery.Document, pageURL string) []Link {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	var out []Link
	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		ref, err := url.Parse(s.AttrOr("href", ""))
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		abs.Fragment = ""
		out = append(out, Link{URL: abs.String(), Text: squash(s.Text())})
	})
	return out
}

func (e *Extractor) excluded(domain, brandDomain string) bool {
	if domain == "" {
		return true
	}
	if brandDomain != "" &&
		(domains.SameOrSubdomain(domain, brandDomain) || strings.Contains(domain, brandDomain)) {
		return true // self-match, a defined outcome rather than an error
	}
	return e.ref.Denied(domain)
}

func firstNonEmpty(doc *goquery.Document) *goquery.Selection {
	for _, s := range strategies {
		if sel := s.Select(doc); sel.Length() > 0 {
			return sel
		}
	}
	return nil
}

// unwrapRedirect strips the search engine's /url?q= / url= / adurl= wrapper
// and returns a plain http(s) URL, or "" when nothing usable remains.
func unwrapRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	q := u.Query()
	for _, key := range []string{"adurl", "url", "q"} {
		if v := q.Get(key); strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
			return v
		}
	}
	if u.Scheme == "http" || u.Scheme == "https" {
		return href
	}
	return ""
}

func containerTitle(container, link *goquery.Selection) string {
	if h := squash(container.Find("h1,h2,h3,h4,[role=heading]").First().Text()); h != "" {
		return h
	}
	if t := squash(link.Text()); t != "" {
		return t
	}
	return models.UnknownProduct
}

func price(text string) string {
	if m := priceRe.FindString(text); m != "" {
		return m
	}
	return models.NoPrice
}

func sellerName(text string) string {
	m := sellerRe.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimRight(m[1], ".")
}

// looksLikeRetailLink mirrors the shop/buy/store signal check for external
// links that are not in the catalog.
func looksLikeRetailLink(text, href string) bool {
	lower := strings.ToLower(text + " " + href)
	for _, sig := range []string{"shop", "buy", "store", "retail", "purchase", "order"} {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return strings.Contains(href, "/p/") || strings.Contains(href, "/product")
}

func sourceDesc(q models.Query) string {
	if q.Strategy == models.StrategySiteRestricted && q.Retailer != nil {
		return string(models.StrategySiteRestricted) + ":" + q.Retailer.Domain
	}
	return string(q.Strategy) + ":" + q.QueryString
}

var whitespaceRe = regexp.MustCompile(`\s+`)

func squash(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
