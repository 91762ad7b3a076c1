// Package domains holds the pure string heuristics shared by the pipeline:
// domain normalization (the dedup key for candidates) and brand-token matching.
package domains

import (
	"net/url"
	"strings"
	"unicode"
)

// stopwords excluded from brand tokens so that "The North Face" does not match
// every page containing "the".
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "inc": {}, "llc": {}, "ltd": {},
	"co": {}, "com": {}, "shop": {}, "store": {}, "official": {}, "brand": {},
	"company": {}, "group": {}, "usa": {}, "new": {}, "buy": {},
}

const minTokenLen = 3

// Normalize returns the canonical registrable domain for a URL or bare domain:
// no scheme, no www., no path/query/port. Malformed input comes back trimmed
// but otherwise unchanged; callers treat that as "unverified", not an error.
// Idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(urlOrDomain string) string {
	raw := strings.TrimSpace(urlOrDomain)
	if raw == "" {
		return raw
	}
	withScheme := raw
	if !strings.Contains(withScheme, "://") {
		withScheme = "https://" + withScheme
	}
	u, err := url.Parse(withScheme)
	if err != nil || u.Hostname() == "" {
		return raw
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	return host
}

// BrandTokens splits a brand name into lowercase matchable tokens, dropping
// stopwords and tokens shorter than three characters.
func BrandTokens(brand string) []string {
	fields := strings.FieldsFunc(strings.ToLower(brand), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	var out []string
	for _, f := range fields {
		if len(f) < minTokenLen {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}

// ContainsBrandToken reports whether any brand token occurs in text,
// case-insensitively.
func ContainsBrandToken(text, brand string) bool {
	lower := strings.ToLower(text)
	for _, tok := range BrandTokens(brand) {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

// NameFromDomain derives a display name from a domain's first label,
// e.g. "shoes-r-us.com" -> "Shoes-r-us". Used when no better retailer name
// was found near the link.
func NameFromDomain(domain string) string {
	label, _, _ := strings.Cut(domain, ".")
	if label == "" {
		return domain
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

// SameOrSubdomain reports whether candidate belongs to base: equal, or a
// dot-separated subdomain of it. Used for brand self-exclusion and for the
// crawler's same-site check.
func SameOrSubdomain(candidate, base string) bool {
	if base == "" {
		return false
	}
	return candidate == base || strings.HasSuffix(candidate, "."+base)
}
