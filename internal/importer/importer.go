package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"mmdr-storefront/internal/domain"

	"go.uber.org/zap"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

// CSVImporter reads a catalog spreadsheet export and inserts/updates products by name.
type CSVImporter struct {
	reader   *csv.Reader
	products ProductWriter
	logger   *zap.Logger
}

func NewCSVImporter(r io.Reader, repo ProductWriter, logger *zap.Logger) *CSVImporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	return &CSVImporter{
		reader:   csvr,
		products: repo,
		logger:   logger.Named("importer"),
	}
}

// RowError describes a row that was skipped.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

type Result struct {
	Imported int
	Skipped  []RowError
}

var requiredHeaders = []string{"name", "price", "category"}

// Run parses CSV rows and upserts one product per row. Invalid rows are skipped
// and reported; a write failure aborts the run.
func (i *CSVImporter) Run(ctx context.Context) (Result, error) {
	var res Result
	headers, err := i.reader.Read()
	if err != nil {
		return res, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	for _, h := range requiredHeaders {
		if _, ok := index[h]; !ok {
			return res, fmt.Errorf("missing column %q", h)
		}
	}

	line := 1
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return res, fmt.Errorf("read row %d: %w", line, err)
		}
		if blank(record) {
			continue
		}

		p, err := parseRow(record, index)
		if err != nil {
			i.logger.Warn("skipping row", zap.Int("line", line), zap.Error(err))
			res.Skipped = append(res.Skipped, RowError{Line: line, Err: err})
			continue
		}
		if _, err := i.products.Upsert(ctx, p); err != nil {
			return res, fmt.Errorf("upsert product %q: %w", p.Name, err)
		}
		res.Imported++
	}

	i.logger.Info("import finished", zap.Int("imported", res.Imported), zap.Int("skipped", len(res.Skipped)))
	return res, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func parseRow(record []string, index map[string]int) (domain.Product, error) {
	p := domain.Product{
		Name:        pick(record, index, "name"),
		Description: pick(record, index, "description"),
		Category:    strings.ToLower(pick(record, index, "category")),
		Image:       pick(record, index, "image"),
		IsActive:    true,
		Tags:        []string{},
	}
	if p.Name == "" {
		return p, errors.New("name is required")
	}
	if !domain.ValidCategory(p.Category) {
		return p, fmt.Errorf("unknown category %q", p.Category)
	}

	var err error
	if p.Price, err = parseAmount(pick(record, index, "price")); err != nil || p.Price < 0 {
		return p, fmt.Errorf("invalid price %q", pick(record, index, "price"))
	}
	if v := pick(record, index, "originalprice"); v != "" {
		op, err := parseAmount(v)
		if err != nil {
			return p, fmt.Errorf("invalid originalPrice %q", v)
		}
		p.OriginalPrice = &op
	}
	if v := pick(record, index, "stock"); v != "" {
		if p.Stock, err = strconv.Atoi(v); err != nil || p.Stock < 0 {
			return p, fmt.Errorf("invalid stock %q", v)
		}
	}
	if v := pick(record, index, "discount"); v != "" {
		if p.Discount, err = strconv.Atoi(v); err != nil || p.Discount < 0 || p.Discount > 100 {
			return p, fmt.Errorf("invalid discount %q", v)
		}
	}
	if v := pick(record, index, "featured"); v != "" {
		p.Featured, _ = strconv.ParseBool(v)
	}
	if v := pick(record, index, "active"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			p.IsActive = b
		}
	}
	for _, tag := range strings.Split(pick(record, index, "tags"), ";") {
		if tag = strings.ToLower(strings.TrimSpace(tag)); tag != "" {
			p.Tags = append(p.Tags, tag)
		}
	}
	return p, nil
}

// parseAmount accepts whole pesos, tolerating thousands separators ("25.000").
func parseAmount(v string) (int64, error) {
	v = strings.ReplaceAll(strings.TrimPrefix(v, "$"), ".", "")
	return strconv.ParseInt(v, 10, 64)
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
