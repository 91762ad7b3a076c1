// Package ioformats reads bulk brand lists and writes lookup results in the
// formats the export layer offers: CSV, NDJSON and XLSX.
package ioformats

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/rydeebs/findb2b/internal/models"
)

// BrandInput is one row of a bulk input file.
type BrandInput struct {
	Brand string `json:"brand"`
	URL   string `json:"url,omitempty"`
}

// ReadBrands reads brands from a CSV (header with "brand", optional
// "url"/"website" column) or NDJSON file. Unknown extensions try CSV first.
func ReadBrands(path string) ([]BrandInput, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".csv":
		return readCSV(path)
	case ".ndjson", ".jsonl":
		return readNDJSON(path)
	default:
		if brands, err := readCSV(path); err == nil && len(brands) > 0 {
			return brands, nil
		}
		return readNDJSON(path)
	}
}

func readCSV(path string) ([]BrandInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("empty csv")
	}
	brandCol, urlCol := -1, -1
	for i, h := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "brand", "brand_name", "name":
			if brandCol == -1 {
				brandCol = i
			}
		case "url", "website", "brand_url":
			if urlCol == -1 {
				urlCol = i
			}
		}
	}
	if brandCol == -1 {
		return nil, errors.New("csv must contain a 'brand' header column")
	}
	var out []BrandInput
	for _, row := range rows[1:] {
		if brandCol >= len(row) {
			continue
		}
		b := BrandInput{Brand: strings.TrimSpace(row[brandCol])}
		if b.Brand == "" {
			continue
		}
		if urlCol != -1 && urlCol < len(row) {
			b.URL = strings.TrimSpace(row[urlCol])
		}
		out = append(out, b)
	}
	return out, nil
}

func readNDJSON(path string) ([]BrandInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []BrandInput
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "{") {
			var b BrandInput
			if err := json.Unmarshal([]byte(line), &b); err == nil && b.Brand != "" {
				out = append(out, b)
				continue
			}
		}
		// bare brand name per line
		out = append(out, BrandInput{Brand: line})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errors.New("no brands found in input")
	}
	return out, nil
}

var csvHeader = []string{"Brand", "Retailer", "Domain", "Product", "Price", "Confidence", "Source", "Link"}

// WriteCSV writes ranked candidates from one or more results as a flat sheet.
func WriteCSV(w io.Writer, results []*models.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, res := range results {
		for _, c := range res.Candidates {
			rec := []string{c.Brand, c.RetailerName, c.Domain, c.ProductTitle, c.Price, string(c.Confidence), c.SourceDesc, c.SourceURL}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteNDJSON writes one result object per line.
func WriteNDJSON(w io.Writer, results []*models.Result) error {
	enc := json.NewEncoder(w)
	for _, res := range results {
		if err := enc.Encode(res); err != nil {
			return err
		}
	}
	return nil
}

// WriteXLSX writes candidates to an .xlsx workbook, one "Retailers" sheet.
func WriteXLSX(path string, results []*models.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Retailers"
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	for col, h := range csvHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	row := 2
	for _, res := range results {
		for _, c := range res.Candidates {
			values := []any{c.Brand, c.RetailerName, c.Domain, c.ProductTitle, c.Price, string(c.Confidence), c.SourceDesc, c.SourceURL}
			for col, v := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row)
				if err := f.SetCellValue(sheet, cell, v); err != nil {
					return err
				}
			}
			row++
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save xlsx: %w", err)
	}
	return nil
}
