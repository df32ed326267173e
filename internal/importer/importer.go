package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"storefront/internal/domain"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpsertVariant(ctx context.Context, variant domain.ProductVariant) (*domain.ProductVariant, error)
}

// CSVImporter reads a catalogue export and upserts products with their variants.
//
// A row with a sku starts a product. Following rows with an empty sku and a
// variant_name add variants to that product. Prices may be written as plain
// rupiah ("15000") or with decimals ("15000.00").
type CSVImporter struct {
	reader     *csv.Reader
	products   ProductWriter
	businessID string
	logger     *zap.Logger
}

func NewCSVImporter(r io.Reader, repo ProductWriter, businessID string, logger *zap.Logger) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVImporter{
		reader:     csvr,
		products:   repo,
		businessID: businessID,
		logger:     logger,
	}
}

type productRow struct {
	line     int
	product  domain.Product
	variants []domain.ProductVariant
}

// Run parses CSV rows and upserts products grouped by sku. It returns the
// number of products written.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	if _, ok := index["sku"]; !ok {
		return 0, errors.New("read headers: missing sku column")
	}

	var (
		current  *productRow
		imported int
		line     = 1
	)

	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}
		line++

		if sku := pick(record, index, "sku"); sku != "" {
			if current != nil {
				if err := i.save(ctx, current); err != nil {
					return imported, err
				}
				imported++
			}
			p, err := parseProduct(record, index)
			if err != nil {
				return imported, fmt.Errorf("line %d: %w", line, err)
			}
			p.BusinessID = i.businessID
			current = &productRow{line: line, product: p}
		}

		if pick(record, index, "variant_name") == "" {
			continue
		}
		if current == nil {
			return imported, fmt.Errorf("line %d: variant row before any product", line)
		}
		v, err := parseVariant(record, index)
		if err != nil {
			return imported, fmt.Errorf("line %d: %w", line, err)
		}
		current.variants = append(current.variants, v)
	}

	if current != nil {
		if err := i.save(ctx, current); err != nil {
			return imported, err
		}
		imported++
	}

	return imported, nil
}

func (i *CSVImporter) save(ctx context.Context, row *productRow) error {
	p := row.product
	if p.Name == "" || p.SellingPrice < 0 {
		return fmt.Errorf("invalid product row (missing required fields) for sku %q on line %d", p.SKU, row.line)
	}

	saved, err := i.products.Upsert(ctx, p)
	if err != nil {
		return fmt.Errorf("upsert product %q: %w", p.SKU, err)
	}
	for _, v := range row.variants {
		v.ProductID = saved.ID
		if _, err := i.products.UpsertVariant(ctx, v); err != nil {
			return fmt.Errorf("upsert variant %q of %q: %w", v.Name, p.SKU, err)
		}
	}
	i.logger.Debug("importer: product saved", zap.String("sku", p.SKU), zap.Int("variants", len(row.variants)))
	return nil
}

func parseProduct(record []string, index map[string]int) (domain.Product, error) {
	price, err := parseAmount(pick(record, index, "selling_price"))
	if err != nil {
		return domain.Product{}, fmt.Errorf("selling_price: %w", err)
	}
	weight, err := parseOptionalInt(pick(record, index, "weight_grams"))
	if err != nil {
		return domain.Product{}, fmt.Errorf("weight_grams: %w", err)
	}
	stock, err := parseOptionalInt(pick(record, index, "stock"))
	if err != nil {
		return domain.Product{}, fmt.Errorf("stock: %w", err)
	}
	sortOrder, err := parseOptionalInt(pick(record, index, "sort_order"))
	if err != nil {
		return domain.Product{}, fmt.Errorf("sort_order: %w", err)
	}

	p := domain.Product{
		SKU:                pick(record, index, "sku"),
		Name:               pick(record, index, "name"),
		Description:        pick(record, index, "description"),
		SellingPrice:       price,
		Stock:              stock,
		IsActive:           parseBool(pick(record, index, "is_active"), true),
		AvailabilityStatus: parseAvailability(pick(record, index, "availability_status")),
		IsPinned:           parseBool(pick(record, index, "is_pinned"), false),
		ImageURL:           pick(record, index, "image_url"),
	}
	if weight != nil {
		p.WeightGrams = *weight
	}
	if sortOrder != nil {
		p.SortOrder = *sortOrder
	}
	return p, nil
}

func parseVariant(record []string, index map[string]int) (domain.ProductVariant, error) {
	v := domain.ProductVariant{
		Name:               pick(record, index, "variant_name"),
		SKU:                pick(record, index, "variant_sku"),
		IsActive:           parseBool(pick(record, index, "variant_is_active"), true),
		AvailabilityStatus: parseAvailability(pick(record, index, "variant_availability_status")),
	}
	if raw := pick(record, index, "variant_price"); raw != "" {
		price, err := parseAmount(raw)
		if err != nil {
			return v, fmt.Errorf("variant_price: %w", err)
		}
		v.PriceOverride = &price
	}
	var err error
	if v.WeightGrams, err = parseOptionalInt(pick(record, index, "variant_weight_grams")); err != nil {
		return v, fmt.Errorf("variant_weight_grams: %w", err)
	}
	if v.Stock, err = parseOptionalInt(pick(record, index, "variant_stock")); err != nil {
		return v, fmt.Errorf("variant_stock: %w", err)
	}
	return v, nil
}

// parseAmount accepts whole rupiah with optional decimals and rounds half up.
func parseAmount(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(raw, "_", ""))
	if err != nil {
		return 0, err
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("negative amount %s", raw)
	}
	return d.Round(0).IntPart(), nil
}

func parseOptionalInt(raw string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("negative value %d", n)
	}
	return &n, nil
}

func parseBool(raw string, fallback bool) bool {
	if raw == "" {
		return fallback
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return b
}

func parseAvailability(raw string) domain.AvailabilityStatus {
	switch s := domain.AvailabilityStatus(strings.ToLower(raw)); s {
	case domain.AvailabilityOutOfStock, domain.AvailabilityPreorder:
		return s
	default:
		return domain.AvailabilityInStock
	}
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	return idx
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
