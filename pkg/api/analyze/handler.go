// Package analyze serves POST /analyze, the model-only extraction path.
package analyze

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"rental_valuation/pkg/api/response"
	"rental_valuation/pkg/core/aiextract"
	"rental_valuation/pkg/models"
)

const msgMissingName = "企業名が指定されていません"

type Request struct {
	CompanyName string `json:"companyName" validate:"required"`
}

// Response is the record shape plus the model's found flag.
type Response struct {
	Found bool `json:"found"`
	models.FinancialRecord
}

type Analyzer interface {
	Analyze(ctx context.Context, companyName string) (*aiextract.Analysis, error)
}

type Handler struct {
	Analyzer Analyzer
}

func NewHandler(a Analyzer) *Handler {
	return &Handler{Analyzer: a}
}

func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	if response.Preflight(w, r, "POST") || !response.Allow(w, r, http.MethodPost) {
		return
	}

	var req Request
	if err := response.Decode(r, &req); err != nil {
		response.Error(w, err, "")
		return
	}
	req.CompanyName = strings.TrimSpace(req.CompanyName)
	if err := response.Validate(req, msgMissingName); err != nil {
		response.Error(w, err, "")
		return
	}

	a, err := h.Analyzer.Analyze(r.Context(), req.CompanyName)
	if err != nil {
		zap.L().Warn("analyze: failed", zap.String("company", req.CompanyName), zap.Error(err))
		response.Error(w, err, "")
		return
	}

	if !a.Found {
		rec := models.FinancialRecord{
			CompanyName: req.CompanyName,
			Source:      models.SourceModel,
			Note:        models.StringPtr(a.Note),
		}
		rec.Normalize()
		response.JSON(w, http.StatusOK, Response{Found: false, FinancialRecord: rec})
		return
	}
	response.JSON(w, http.StatusOK, Response{Found: true, FinancialRecord: *a.Record})
}
