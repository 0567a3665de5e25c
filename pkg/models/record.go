package models

import (
	"github.com/shopspring/decimal"
)

func init() {
	// The dashboard consumes plain JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Source is the provenance tag of a FinancialRecord.
type Source string

const (
	SourceMock     Source = "MOCK"
	SourceRegistry Source = "REGISTRY"
	SourceModel    Source = "MODEL"
)

// FinancialRecord is the canonical output of the resolution pipeline.
// All monetary figures are in millions of yen.
type FinancialRecord struct {
	CompanyName    string              `json:"companyName"`
	BookValue      decimal.NullDecimal `json:"bookValue"`
	MarketValue    decimal.NullDecimal `json:"marketValue"`
	UnrealizedGain decimal.NullDecimal `json:"unrealizedGain"`
	Properties     []PropertyRecord    `json:"properties"`
	Source         Source              `json:"source"`
	FiscalYear     *string             `json:"fiscalYear"`
	SourceDocument *string             `json:"sourceDocument"`
	Note           *string             `json:"note"`
	DocID          string              `json:"docId,omitempty"`
}

// PropertyRecord is a single rental property. Properties whose value is
// unknown are omitted by the producers instead of being zero-filled.
type PropertyRecord struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Location    string          `json:"location"`
	BookValue   decimal.Decimal `json:"bookValue"`
	MarketValue decimal.Decimal `json:"marketValue"`
}

// Normalize backfills UnrealizedGain as MarketValue - BookValue when both
// figures are known and the producer did not supply a gain. A nil Properties
// slice becomes empty so "aggregate-only" records serialise as [].
func (r *FinancialRecord) Normalize() {
	if !r.UnrealizedGain.Valid && r.BookValue.Valid && r.MarketValue.Valid {
		r.UnrealizedGain = decimal.NewNullDecimal(r.MarketValue.Decimal.Sub(r.BookValue.Decimal))
	}
	if r.Properties == nil {
		r.Properties = []PropertyRecord{}
	}
}

// HasFigures reports whether at least one aggregate figure is known.
func (r *FinancialRecord) HasFigures() bool {
	return r.BookValue.Valid || r.MarketValue.Valid || r.UnrealizedGain.Valid
}

// Clone returns a deep copy so read-only tables can hand out records safely.
func (r *FinancialRecord) Clone() *FinancialRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.Properties != nil {
		c.Properties = make([]PropertyRecord, len(r.Properties))
		copy(c.Properties, r.Properties)
	}
	c.FiscalYear = cloneString(r.FiscalYear)
	c.SourceDocument = cloneString(r.SourceDocument)
	c.Note = cloneString(r.Note)
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// StringPtr returns nil for an empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// MillionsOrNull converts a parsed value into a nullable decimal.
func MillionsOrNull(v *int64) decimal.NullDecimal {
	if v == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromInt(*v))
}
