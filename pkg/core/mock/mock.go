// Package mock serves a fixed table of demo companies.
package mock

import (
	_ "embed"
	"fmt"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"

	"rental_valuation/pkg/core/geo"
	"rental_valuation/pkg/models"
)

//go:embed companies.yaml
var defaultTable []byte

// Lookup answers exact-name queries with copies of demo records.
type Lookup interface {
	Lookup(companyName string) (*models.FinancialRecord, bool)
}

type tableFile struct {
	Companies []companyEntry `yaml:"companies"`
}

type companyEntry struct {
	Name           string          `yaml:"name"`
	BookValue      *int64          `yaml:"book_value"`
	MarketValue    *int64          `yaml:"market_value"`
	UnrealizedGain *int64          `yaml:"unrealized_gain"`
	Properties     []propertyEntry `yaml:"properties"`
}

type propertyEntry struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Location    string  `yaml:"location"`
	BookValue   int64   `yaml:"book_value"`
	MarketValue int64   `yaml:"market_value"`
	Lat         float64 `yaml:"lat"`
	Lng         float64 `yaml:"lng"`
}

// Table is a read-only Lookup. It is safe for concurrent use.
type Table struct {
	records map[string]*models.FinancialRecord
	coords  map[string][]geo.Point
}

// Default returns the embedded demo table.
func Default() *Table {
	t, err := Parse(defaultTable)
	if err != nil {
		panic(fmt.Sprintf("mock: embedded table: %v", err))
	}
	return t
}

// Parse builds a table from YAML.
func Parse(data []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse mock table: %w", err)
	}

	t := &Table{
		records: make(map[string]*models.FinancialRecord, len(f.Companies)),
		coords:  make(map[string][]geo.Point, len(f.Companies)),
	}
	for _, c := range f.Companies {
		if c.Name == "" {
			return nil, fmt.Errorf("mock table: company without a name")
		}
		rec := &models.FinancialRecord{
			CompanyName:    c.Name,
			BookValue:      models.MillionsOrNull(c.BookValue),
			MarketValue:    models.MillionsOrNull(c.MarketValue),
			UnrealizedGain: models.MillionsOrNull(c.UnrealizedGain),
			Source:         models.SourceMock,
			Note:           models.StringPtr("デモ用データ"),
		}
		coords := make([]geo.Point, 0, len(c.Properties))
		for _, p := range c.Properties {
			rec.Properties = append(rec.Properties, models.PropertyRecord{
				ID:          p.ID,
				Name:        p.Name,
				Location:    p.Location,
				BookValue:   decimal.NewFromInt(p.BookValue),
				MarketValue: decimal.NewFromInt(p.MarketValue),
			})
			coords = append(coords, geo.Point{Lat: p.Lat, Lng: p.Lng})
		}
		models.AssignPropertyIDs(c.Name, rec.Properties)
		rec.Normalize()
		t.records[c.Name] = rec
		t.coords[c.Name] = coords
	}
	return t, nil
}

// Lookup matches the exact company name.
func (t *Table) Lookup(companyName string) (*models.FinancialRecord, bool) {
	rec, ok := t.records[companyName]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// Coordinates returns the known map positions of a demo company's
// properties, in property order.
func (t *Table) Coordinates(companyName string) ([]geo.Point, bool) {
	c, ok := t.coords[companyName]
	if !ok {
		return nil, false
	}
	return append([]geo.Point(nil), c...), true
}

// Names lists the demo companies.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.records))
	for n := range t.records {
		names = append(names, n)
	}
	return names
}
