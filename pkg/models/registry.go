package models

import "github.com/shopspring/decimal"

// RegistryDocumentRef identifies one EDINET filing.
type RegistryDocumentRef struct {
	DocID          string  `json:"docID"`
	EdinetCode     string  `json:"edinetCode"`
	SecCode        *string `json:"secCode"`
	FilerName      string  `json:"filerName"`
	OrdinanceCode  string  `json:"ordinanceCode"`
	FormCode       string  `json:"formCode"`
	DocTypeCode    string  `json:"docTypeCode"`
	PeriodEnd      *string `json:"periodEnd"`
	SubmitDateTime string  `json:"submitDateTime"`
	DocDescription string  `json:"docDescription"`
	CSVFlag        string  `json:"csvFlag"`
}

// Classification codes of an annual securities report (有価証券報告書).
const (
	OrdinanceCodeDisclosure = "010"
	FormCodeAnnualReport    = "030000"
)

// IsAnnualReport reports whether the ref is an annual securities report.
func (d RegistryDocumentRef) IsAnnualReport() bool {
	return d.OrdinanceCode == OrdinanceCodeDisclosure && d.FormCode == FormCodeAnnualReport
}

// Extraction is the result of scanning registry document text.
type Extraction struct {
	BookValue        decimal.NullDecimal `json:"bookValue"`
	MarketValue      decimal.NullDecimal `json:"marketValue"`
	UnrealizedGain   decimal.NullDecimal `json:"unrealizedGain"`
	Properties       []PropertyRecord    `json:"properties"`
	RawDataAvailable bool                `json:"rawDataAvailable"`
	Message          string              `json:"message"`
	CompanyName      string              `json:"companyName,omitempty"`

	// KeywordFound is set when a disclosure heading was seen but no
	// figure could be parsed from it.
	KeywordFound bool `json:"-"`
}
