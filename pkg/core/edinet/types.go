package edinet

import "rental_valuation/pkg/models"

// =============================================================================
// EDINET API V2 DATA TYPES
// =============================================================================

// Document is one entry of the documents.json listing (type=2).
type Document struct {
	DocID                string  `json:"docID"`
	EdinetCode           string  `json:"edinetCode"`
	SecCode              *string `json:"secCode"`
	JCN                  *string `json:"JCN"`
	FilerName            string  `json:"filerName"`
	FundCode             *string `json:"fundCode"`
	OrdinanceCode        string  `json:"ordinanceCode"`
	FormCode             string  `json:"formCode"`
	DocTypeCode          string  `json:"docTypeCode"`
	PeriodStart          *string `json:"periodStart"`
	PeriodEnd            *string `json:"periodEnd"`
	SubmitDateTime       string  `json:"submitDateTime"`
	DocDescription       string  `json:"docDescription"`
	ParentDocID          *string `json:"parentDocID"`
	WithdrawalStatus     string  `json:"withdrawalStatus"`
	DocInfoEditStatus    string  `json:"docInfoEditStatus"`
	DisclosureStatus     string  `json:"disclosureStatus"`
	XBRLFlag             string  `json:"xbrlFlag"`
	PDFFlag              string  `json:"pdfFlag"`
	AttachDocFlag        string  `json:"attachDocFlag"`
	EnglishDocFlag       string  `json:"englishDocFlag"`
	CSVFlag              string  `json:"csvFlag"`
	LegalStatus          string  `json:"legalStatus"`
	IssuerEdinetCode     *string `json:"issuerEdinetCode"`
	SubjectEdinetCode    *string `json:"subjectEdinetCode"`
	SubsidiaryEdinetCode *string `json:"subsidiaryEdinetCode"`
}

// Metadata is present on every EDINET JSON response, including errors that
// are delivered with HTTP 200.
type Metadata struct {
	Title     string `json:"title"`
	Parameter struct {
		Date string `json:"date"`
		Type string `json:"type"`
	} `json:"parameter"`
	ResultSet struct {
		Count int `json:"count"`
	} `json:"resultset"`
	ProcessDateTime string `json:"processDateTime"`
	Status          string `json:"status"`
	Message         string `json:"message"`
}

// ListResponse is the documents.json payload.
type ListResponse struct {
	Metadata Metadata   `json:"metadata"`
	Results  []Document `json:"results"`
}

// Ref converts the listing entry into the pipeline's document reference.
func (d Document) Ref() models.RegistryDocumentRef {
	return models.RegistryDocumentRef{
		DocID:          d.DocID,
		EdinetCode:     d.EdinetCode,
		SecCode:        d.SecCode,
		FilerName:      d.FilerName,
		OrdinanceCode:  d.OrdinanceCode,
		FormCode:       d.FormCode,
		DocTypeCode:    d.DocTypeCode,
		PeriodEnd:      d.PeriodEnd,
		SubmitDateTime: d.SubmitDateTime,
		DocDescription: d.DocDescription,
		CSVFlag:        d.CSVFlag,
	}
}

// DocumentContent is the outcome of a content fetch. Available is false when
// only the unimplemented binary (ZIP/XBRL) representation could be reached.
type DocumentContent struct {
	DocID     string
	Available bool
	Format    string
	Text      string
	Reason    string
}
