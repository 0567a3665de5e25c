package models

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNormalize_BackfillsGain(t *testing.T) {
	r := FinancialRecord{
		BookValue:   decimal.NewNullDecimal(decimal.NewFromInt(5200)),
		MarketValue: decimal.NewNullDecimal(decimal.NewFromInt(4800)),
	}
	r.Normalize()
	if !r.UnrealizedGain.Valid || !r.UnrealizedGain.Decimal.Equal(decimal.NewFromInt(-400)) {
		t.Errorf("gain = %v, want -400", r.UnrealizedGain)
	}
	if r.Properties == nil {
		t.Error("properties should be an empty slice")
	}
}

func TestNormalize_KeepsSuppliedGain(t *testing.T) {
	r := FinancialRecord{
		BookValue:      decimal.NewNullDecimal(decimal.NewFromInt(100)),
		MarketValue:    decimal.NewNullDecimal(decimal.NewFromInt(150)),
		UnrealizedGain: decimal.NewNullDecimal(decimal.NewFromInt(49)),
	}
	r.Normalize()
	if !r.UnrealizedGain.Decimal.Equal(decimal.NewFromInt(49)) {
		t.Errorf("supplied gain overwritten: %v", r.UnrealizedGain)
	}
}

func TestNormalize_LeavesGainNullWithOneFigure(t *testing.T) {
	r := FinancialRecord{BookValue: decimal.NewNullDecimal(decimal.NewFromInt(100))}
	r.Normalize()
	if r.UnrealizedGain.Valid {
		t.Errorf("gain should stay null, got %v", r.UnrealizedGain)
	}
}

func TestFinancialRecord_JSONShape(t *testing.T) {
	r := FinancialRecord{
		CompanyName: "株式会社ナガオカ",
		BookValue:   decimal.NewNullDecimal(decimal.NewFromInt(2845)),
		Source:      SourceRegistry,
	}
	r.Normalize()
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	s := string(b)
	for _, want := range []string{`"bookValue":2845`, `"marketValue":null`, `"properties":[]`, `"source":"REGISTRY"`, `"note":null`} {
		if !strings.Contains(s, want) {
			t.Errorf("missing %s in %s", want, s)
		}
	}
	if strings.Contains(s, "docId") {
		t.Errorf("empty docId should be omitted: %s", s)
	}
}

func TestClone_IsDeep(t *testing.T) {
	orig := &FinancialRecord{
		Properties: []PropertyRecord{{ID: "1", Name: "a"}},
		Note:       StringPtr("n"),
	}
	c := orig.Clone()
	c.Properties[0].Name = "changed"
	*c.Note = "changed"
	if orig.Properties[0].Name != "a" || *orig.Note != "n" {
		t.Error("clone shares state with the original")
	}
}

func TestAssignPropertyIDs(t *testing.T) {
	props := []PropertyRecord{
		{Name: "梅田オフィスビル", Location: "大阪府大阪市北区"},
		{ID: "x", Name: "京都商業施設"},
		{ID: "x", Name: "神戸倉庫"},
	}
	AssignPropertyIDs("株式会社ナガオカ", props)

	if props[0].ID == "" || props[1].ID != "x" || props[2].ID == "x" {
		t.Fatalf("unexpected ids: %q %q %q", props[0].ID, props[1].ID, props[2].ID)
	}

	again := []PropertyRecord{{Name: "梅田オフィスビル", Location: "大阪府大阪市北区"}}
	AssignPropertyIDs("株式会社ナガオカ", again)
	if again[0].ID != props[0].ID {
		t.Error("ids must be stable across repeated runs")
	}
}
