package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rydeebs/findb2b/internal/fetcher"
	"github.com/rydeebs/findb2b/internal/ioformats"
	"github.com/rydeebs/findb2b/internal/models"
	"github.com/rydeebs/findb2b/internal/pipeline"
	"github.com/rydeebs/findb2b/internal/refdata"
	"github.com/rydeebs/findb2b/internal/sitecrawl"
	"github.com/rydeebs/findb2b/pkg/logger"
)

func main() {
	brand := flag.String("brand", "", "brand name to look up")
	brandURL := flag.String("url", "", "brand website (enables the site crawl)")
	industry := flag.String("industry", "", "industry hint (enables site-restricted retailer checks)")
	filters := flag.String("filters", "", "comma-separated extra search terms")
	input := flag.String("input", "", "bulk input file (csv with 'brand' column, or ndjson)")
	output := flag.String("output", "", "output file (default stdout; required for xlsx)")
	format := flag.String("format", "csv", "output format: csv, ndjson or xlsx")
	workers := flag.Int("workers", 5, "concurrent queries per wave")
	maxPages := flag.Int("max-pages", 20, "site crawl page budget")
	maxDepth := flag.Int("max-depth", 2, "site crawl link depth")
	timeout := flag.Duration("timeout", 15*time.Second, "per-fetch timeout")
	catalog := flag.String("retailers", "", "optional retailer catalog YAML (replaces the built-in one)")
	flag.Parse()

	log := logger.New()
	defer log.Sync()

	if *brand == "" && *input == "" {
		fmt.Fprintln(os.Stderr, "one of --brand or --input is required")
		os.Exit(2)
	}

	ref := refdata.Default()
	if *catalog != "" {
		var err error
		if ref, err = refdata.Load(*catalog); err != nil {
			fmt.Fprintln(os.Stderr, "load retailer catalog:", err)
			os.Exit(1)
		}
	}

	client := fetcher.NewClient(*timeout, 5*time.Second, 5*1024*1024)
	cfg := pipeline.DefaultConfig()
	cfg.Workers = *workers
	cfg.Crawl = sitecrawl.Config{MaxDepth: *maxDepth, MaxPages: *maxPages}
	pipe := pipeline.New(client, ref, log, cfg)

	var lookups []ioformats.BrandInput
	if *input != "" {
		var err error
		lookups, err = ioformats.ReadBrands(*input)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read input:", err)
			os.Exit(1)
		}
	} else {
		lookups = []ioformats.BrandInput{{Brand: *brand, URL: *brandURL}}
	}

	hints := models.Hints{Industry: *industry}
	if *filters != "" {
		for _, f := range strings.Split(*filters, ",") {
			if f = strings.TrimSpace(f); f != "" {
				hints.Filters = append(hints.Filters, f)
			}
		}
	}

	// Brands run sequentially: the targets rate-limit, and parallelism across
	// brands buys nothing.
	var results []*models.Result
	for _, b := range lookups {
		h := hints
		h.URL = b.URL
		if *brandURL != "" && h.URL == "" {
			h.URL = *brandURL
		}
		res, err := pipe.Discover(context.Background(), b.Brand, h)
		if err != nil {
			fmt.Fprintf(os.Stderr, "lookup %q: %v\n", b.Brand, err)
			os.Exit(2)
		}
		log.Infof("brand %q: %d retailers (%d queries, %d pages crawled, %dms)",
			res.Brand, len(res.Candidates), res.QueriesRun, res.PagesCrawled, res.ElapsedMs)
		results = append(results, res)
	}

	if err := write(results, *format, *output); err != nil {
		fmt.Fprintln(os.Stderr, "write output:", err)
		os.Exit(1)
	}
}

func write(results []*models.Result, format, output string) error {
	if format == "xlsx" {
		if output == "" {
			return fmt.Errorf("--output is required for xlsx")
		}
		return ioformats.WriteXLSX(output, results)
	}

	w := os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	switch format {
	case "csv":
		return ioformats.WriteCSV(w, results)
	case "ndjson":
		return ioformats.WriteNDJSON(w, results)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
