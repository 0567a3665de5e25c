package aiextract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"rental_valuation/pkg/core/apperr"
	"rental_valuation/pkg/core/llm"
	"rental_valuation/pkg/models"
)

type fakeGenerator struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt, systemPrompt string) (llm.Result, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return llm.Result{}, f.err
	}
	return llm.Result{Text: f.reply, Model: "gemini-2.0-flash", Attempts: 1}, nil
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestAnalyze_FoundWithProperties(t *testing.T) {
	gen := &fakeGenerator{reply: "```json\n" + `{
  "companyName": "三井不動産株式会社",
  "found": true,
  "bookValue": 3200000,
  "marketValue": 5100000,
  "unrealizedGain": null,
  "properties": [
    {"name": "東京ミッドタウン", "location": "東京都港区", "bookValue": 300000, "marketValue": 520000},
    {"name": "", "location": "大阪府", "bookValue": 1, "marketValue": 2},
    {"name": "価格未開示ビル", "location": "東京都", "bookValue": 100, "marketValue": null}
  ],
  "fiscalYear": "2024年3月期",
  "sourceDocument": "第112期 有価証券報告書",
  "note": "賃貸等不動産関係の注記から抽出"
}` + "\n```"}
	c := NewClient(gen)

	a, err := c.Analyze(t.Context(), "三井不動産")
	if err != nil {
		t.Fatal(err)
	}
	if !a.Found || a.Record == nil {
		t.Fatalf("expected a record, got %+v", a)
	}
	rec := a.Record
	if rec.Source != models.SourceModel {
		t.Errorf("Source = %s", rec.Source)
	}
	if rec.CompanyName != "三井不動産株式会社" {
		t.Errorf("CompanyName = %s", rec.CompanyName)
	}
	if !rec.UnrealizedGain.Valid || !rec.UnrealizedGain.Decimal.Equal(dec(1900000)) {
		t.Errorf("gain not backfilled: %v", rec.UnrealizedGain)
	}
	if len(rec.Properties) != 1 {
		t.Fatalf("expected invalid properties to be dropped, got %d", len(rec.Properties))
	}
	if rec.Properties[0].ID == "" {
		t.Error("property id should be assigned")
	}
	if rec.FiscalYear == nil || *rec.FiscalYear != "2024年3月期" {
		t.Errorf("FiscalYear = %v", rec.FiscalYear)
	}
	if !strings.Contains(gen.prompts[0], "企業名: 三井不動産") {
		t.Error("prompt does not name the company")
	}
	if !strings.Contains(gen.prompts[0], "投資不動産") {
		t.Error("prompt should cover the IFRS note")
	}
}

func TestAnalyze_NotFoundCarriesModelNote(t *testing.T) {
	gen := &fakeGenerator{reply: `{"companyName": "日本製鉄株式会社", "found": false, "bookValue": null, "marketValue": null, "unrealizedGain": null, "properties": [], "note": "賃貸等不動産の注記は重要性が乏しいため省略されています"}`}
	a, err := NewClient(gen).Analyze(t.Context(), "日本製鉄")
	if err != nil {
		t.Fatal(err)
	}
	if a.Found || a.Record != nil {
		t.Fatalf("expected no record, got %+v", a)
	}
	if !strings.Contains(a.Note, "重要性") {
		t.Errorf("Note = %q", a.Note)
	}
}

func TestAnalyze_NotFoundWithoutNoteGetsDefault(t *testing.T) {
	a, err := NewClient(&fakeGenerator{reply: `{"found": false}`}).Analyze(t.Context(), "X")
	if err != nil {
		t.Fatal(err)
	}
	if a.Note == "" {
		t.Error("a not-found analysis must carry a note")
	}
}

func TestAnalyze_FoundWithoutFiguresIsNotFound(t *testing.T) {
	a, err := NewClient(&fakeGenerator{reply: `{"found": true, "bookValue": null, "marketValue": null}`}).Analyze(t.Context(), "X")
	if err != nil {
		t.Fatal(err)
	}
	if a.Found || a.Note == "" {
		t.Errorf("expected not found with note, got %+v", a)
	}
}

func TestAnalyze_FallsBackToQueriedName(t *testing.T) {
	a, err := NewClient(&fakeGenerator{reply: `{"found": true, "bookValue": 10}`}).Analyze(t.Context(), "  テスト株式会社 ")
	if err != nil {
		t.Fatal(err)
	}
	if a.Record.CompanyName != "テスト株式会社" {
		t.Errorf("CompanyName = %q", a.Record.CompanyName)
	}
	if a.Record.UnrealizedGain.Valid {
		t.Error("gain must stay null with one figure")
	}
}

func TestAnalyze_Unparseable(t *testing.T) {
	_, err := NewClient(&fakeGenerator{reply: "I cannot help with that."}).Analyze(t.Context(), "X")
	if !errors.Is(err, apperr.ErrUnparseable) {
		t.Fatalf("expected unparseable, got %v", err)
	}
	if apperr.DetailOf(err) != "I cannot help with that." {
		t.Errorf("raw text not kept: %q", apperr.DetailOf(err))
	}
}

func TestAnalyze_RepairedGarbageIsUnparseable(t *testing.T) {
	replies := []string{
		"{this is not json at all}",
		"申し訳ありません {データを特定できませんでした",
		`{"companyName": "X", "bookValue": 10}`,
	}
	for _, reply := range replies {
		t.Run(reply, func(t *testing.T) {
			a, err := NewClient(&fakeGenerator{reply: reply}).Analyze(t.Context(), "X")
			if !errors.Is(err, apperr.ErrUnparseable) {
				t.Fatalf("expected unparseable, got analysis %+v err %v", a, err)
			}
			if apperr.DetailOf(err) != reply {
				t.Errorf("raw text not kept: %q", apperr.DetailOf(err))
			}
		})
	}
}

func TestAnalyze_GeneratorErrorPropagates(t *testing.T) {
	cause := apperr.Transport("all models failed", errors.New("503"))
	_, err := NewClient(&fakeGenerator{err: cause}).Analyze(t.Context(), "X")
	if !errors.Is(err, apperr.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestAnalyze_EmptyName(t *testing.T) {
	gen := &fakeGenerator{}
	_, err := NewClient(gen).Analyze(t.Context(), "   ")
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(gen.prompts) != 0 {
		t.Error("model must not be called for an empty name")
	}
}
