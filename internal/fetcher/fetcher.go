// Package fetcher is the single place HTTP happens. Client performs exactly
// one attempt per call, with no hidden retries, so the retry/backoff policy
// in Do stays visible to the pipeline that exercises it.
package fetcher

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"time"
)

// userAgents rotate per request; SERP pages answer differently to obvious bots.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/15.0 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/92.0.4515.107 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:90.0) Gecko/20100101 Firefox/90.0",
}

// Response is one fetched page. Non-2xx statuses are responses, not errors;
// only transport-level failures surface as error.
type Response struct {
	StatusCode int
	Body       []byte
	FinalURL   string
}

// Doer is the fetch contract the pipeline and crawler consume.
type Doer interface {
	Fetch(ctx context.Context, rawURL string) (*Response, error)
}

type Client struct {
	client  *http.Client
	sizeCap int64
	headers map[string]string
}

// NewClient builds a client with the usual transport tuning and a response
// body size cap.
func NewClient(timeout, dialTimeout time.Duration, sizeCap int64) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   dialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		sizeCap: sizeCap,
	}
}

// WithHeaders sets extra headers sent on every request (e.g. Referer for the
// site crawl). Returns the client for chaining at construction.
func (c *Client) WithHeaders(h map[string]string) *Client {
	c.headers = h
	return c
}

// Fetch performs a single GET. It never retries and never treats a bad status
// as an error: callers decide what a 429 or 503 means.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid url %q", rawURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		body = gz
	}
	data, err := io.ReadAll(io.LimitReader(body, c.sizeCap))
	if err != nil {
		return nil, err
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Body:       data,
		FinalURL:   resp.Request.URL.String(),
	}, nil
}

// Policy is the retry/backoff configuration exercised by Do.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Jitter      bool
}

func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond, Jitter: true}
}

// Do fetches with retries: transport errors and 429s back off exponentially
// (with jitter) and try again up to MaxAttempts; any other status returns
// immediately. When the budget runs out the last response or error is
// returned and the caller degrades to skip-and-continue.
func Do(ctx context.Context, d Doer, rawURL string, p Policy) (*Response, error) {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	var (
		resp *Response
		err  error
	)
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := p.BaseDelay << (attempt - 1)
			if p.Jitter {
				delay += time.Duration(rand.Int63n(int64(p.BaseDelay)))
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
		resp, err = d.Fetch(ctx, rawURL)
		if err != nil {
			continue
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			continue
		}
		return resp, nil
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}
