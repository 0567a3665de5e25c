// Package aiextract asks a generative model for the rental-property figures
// of a company and normalises the reply into a FinancialRecord.
package aiextract

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"strings"
	"text/template"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"rental_valuation/pkg/core/apperr"
	"rental_valuation/pkg/core/llm"
	"rental_valuation/pkg/core/utils"
	"rental_valuation/pkg/models"
)

//go:embed prompt.tmpl
var promptText string

var promptTemplate = template.Must(template.New("extraction").Parse(promptText))

// Generator is the model capability the client needs. *llm.FallbackRunner
// satisfies it.
type Generator interface {
	Generate(ctx context.Context, prompt, systemPrompt string) (llm.Result, error)
}

// Analysis is the normalised model answer. Record is nil when the model
// reported that no figures are disclosed; Note then carries its reason.
type Analysis struct {
	Found  bool
	Record *models.FinancialRecord
	Note   string
	Model  string
}

// payload is the JSON shape the prompt asks for.
type payload struct {
	CompanyName    string              `json:"companyName"`
	Found          *bool               `json:"found"`
	BookValue      decimal.NullDecimal `json:"bookValue"`
	MarketValue    decimal.NullDecimal `json:"marketValue"`
	UnrealizedGain decimal.NullDecimal `json:"unrealizedGain"`
	Properties     []propertyPayload   `json:"properties"`
	FiscalYear     string              `json:"fiscalYear"`
	SourceDocument string              `json:"sourceDocument"`
	Note           string              `json:"note"`
}

type propertyPayload struct {
	Name        string              `json:"name" validate:"required"`
	Location    string              `json:"location"`
	BookValue   decimal.NullDecimal `json:"bookValue"`
	MarketValue decimal.NullDecimal `json:"marketValue"`
}

const (
	noteNotFound   = "有価証券報告書に賃貸等不動産の開示が見つかりませんでした"
	noteNoFigures  = "AIは開示ありと回答しましたが、数値を取得できませんでした"
	systemPrompt   = "You are a precise financial data extractor. Reply with a single JSON object."
	msgMissingName = "企業名が指定されていません"
)

var errMissingVerdict = errors.New("reply has no found field")

type Client struct {
	gen      Generator
	validate *validator.Validate
}

func NewClient(gen Generator) *Client {
	return &Client{gen: gen, validate: validator.New()}
}

// BuildPrompt renders the extraction prompt for a company.
func BuildPrompt(companyName string) (string, error) {
	var buf bytes.Buffer
	if err := promptTemplate.Execute(&buf, struct{ CompanyName string }{companyName}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Analyze runs the prompt and parses the reply. Model failures surface as
// Transport or Configuration errors; an unreadable reply is Unparseable.
func (c *Client) Analyze(ctx context.Context, companyName string) (*Analysis, error) {
	companyName = strings.TrimSpace(companyName)
	if companyName == "" {
		return nil, apperr.Validation(msgMissingName)
	}

	prompt, err := BuildPrompt(companyName)
	if err != nil {
		return nil, err
	}

	res, err := c.gen.Generate(ctx, prompt, systemPrompt)
	if err != nil {
		return nil, err
	}
	zap.L().Debug("aiextract: model reply",
		zap.String("company", companyName),
		zap.String("model", res.Model),
		zap.Int("attempts", res.Attempts))

	var p payload
	if err := utils.ParseModelJSON(res.Text, &p); err != nil {
		return nil, err
	}
	// Repair can turn prose into an empty object; without an explicit
	// verdict the reply says nothing about the disclosure.
	if p.Found == nil {
		return nil, apperr.Unparseable(utils.MsgUnparseable, res.Text, errMissingVerdict)
	}

	a := c.normalize(companyName, p)
	a.Model = res.Model
	return a, nil
}

func (c *Client) normalize(queried string, p payload) *Analysis {
	if !*p.Found {
		note := strings.TrimSpace(p.Note)
		if note == "" {
			note = noteNotFound
		}
		return &Analysis{Note: note}
	}

	name := strings.TrimSpace(p.CompanyName)
	if name == "" {
		name = queried
	}

	rec := &models.FinancialRecord{
		CompanyName:    name,
		BookValue:      p.BookValue,
		MarketValue:    p.MarketValue,
		UnrealizedGain: p.UnrealizedGain,
		Properties:     c.properties(name, p.Properties),
		Source:         models.SourceModel,
		FiscalYear:     models.StringPtr(strings.TrimSpace(p.FiscalYear)),
		SourceDocument: models.StringPtr(strings.TrimSpace(p.SourceDocument)),
		Note:           models.StringPtr(strings.TrimSpace(p.Note)),
	}
	rec.Normalize()

	if !rec.HasFigures() && len(rec.Properties) == 0 {
		note := noteNoFigures
		if rec.Note != nil {
			note = *rec.Note
		}
		return &Analysis{Note: note}
	}
	return &Analysis{Found: true, Record: rec, Note: strings.TrimSpace(p.Note)}
}

// properties keeps only entries with a name and both values.
func (c *Client) properties(company string, in []propertyPayload) []models.PropertyRecord {
	out := make([]models.PropertyRecord, 0, len(in))
	for _, pp := range in {
		pp.Name = strings.TrimSpace(pp.Name)
		if err := c.validate.Struct(pp); err != nil {
			zap.L().Debug("aiextract: dropping property", zap.String("company", company), zap.Error(err))
			continue
		}
		if !pp.BookValue.Valid || !pp.MarketValue.Valid {
			continue
		}
		out = append(out, models.PropertyRecord{
			Name:        pp.Name,
			Location:    strings.TrimSpace(pp.Location),
			BookValue:   pp.BookValue.Decimal,
			MarketValue: pp.MarketValue.Decimal,
		})
	}
	models.AssignPropertyIDs(company, out)
	return out
}
