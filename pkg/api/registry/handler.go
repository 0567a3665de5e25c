// Package registry exposes the EDINET client over HTTP.
package registry

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"rental_valuation/pkg/api/response"
	"rental_valuation/pkg/core/apperr"
	"rental_valuation/pkg/core/edinet"
	"rental_valuation/pkg/models"
)

const (
	msgMissingName  = "企業名が指定されていません"
	msgMissingDocID = "書類IDが指定されていません"
	msgBadDate      = "日付はYYYY-MM-DD形式で指定してください"
	msgNotFound     = "該当する有価証券報告書が見つかりません"
	hintExactName   = "企業名を正確に入力してください（例：トヨタ自動車株式会社）"
	msgSearchFailed = "EDINETからのデータ取得に失敗しました"
	msgFetchFailed  = "書類の取得に失敗しました"
)

type Client interface {
	SearchDocuments(ctx context.Context, companyName string, date time.Time) ([]models.RegistryDocumentRef, error)
	SearchExtendedPeriod(ctx context.Context, companyName string) ([]models.RegistryDocumentRef, error)
	FetchDocumentContent(ctx context.Context, docID string) (edinet.DocumentContent, error)
}

type Extractor interface {
	Extract(text string) models.Extraction
}

type SearchResponse struct {
	Documents []models.RegistryDocumentRef `json:"documents"`
}

type Handler struct {
	Client    Client
	Extractor Extractor
	Now       func() time.Time
}

func NewHandler(c Client, e Extractor) *Handler {
	return &Handler{Client: c, Extractor: e, Now: time.Now}
}

// HandleSearch handles GET /registry/search?companyName=&date=. The given
// date (default: the most recent business day) is tried first, then the
// extended weekly scan.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	if response.Preflight(w, r, "GET") || !response.Allow(w, r, http.MethodGet) {
		return
	}

	q := r.URL.Query()
	name := strings.TrimSpace(q.Get("companyName"))
	if name == "" {
		response.Error(w, apperr.Validation(msgMissingName), "")
		return
	}

	date := edinet.RecentBusinessDay(h.Now())
	if raw := q.Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(w, apperr.Validation(msgBadDate), "")
			return
		}
		date = parsed
	}

	log := zap.L().With(zap.String("company", name))
	docs, err := h.Client.SearchDocuments(r.Context(), name, date)
	if err != nil {
		log.Warn("registry: search failed", zap.Error(err))
		response.Error(w, err, msgSearchFailed)
		return
	}

	if len(docs) == 0 {
		docs, err = h.Client.SearchExtendedPeriod(r.Context(), name)
		if err != nil {
			log.Warn("registry: extended search failed", zap.Error(err))
			response.Error(w, err, msgSearchFailed)
			return
		}
		if len(docs) == 0 {
			response.Error(w, apperr.NotFound(msgNotFound, hintExactName), "")
			return
		}
	}

	response.JSON(w, http.StatusOK, SearchResponse{Documents: docs})
}

// HandleDocument handles GET /registry/document?docId= and returns the
// extraction shape. A document without a CSV rendition is reported with
// rawDataAvailable=false rather than as an error.
func (h *Handler) HandleDocument(w http.ResponseWriter, r *http.Request) {
	if response.Preflight(w, r, "GET") || !response.Allow(w, r, http.MethodGet) {
		return
	}

	docID := strings.TrimSpace(r.URL.Query().Get("docId"))
	if docID == "" {
		response.Error(w, apperr.Validation(msgMissingDocID), "")
		return
	}

	content, err := h.Client.FetchDocumentContent(r.Context(), docID)
	if err != nil {
		zap.L().Warn("registry: document fetch failed", zap.String("doc_id", docID), zap.Error(err))
		response.Error(w, err, msgFetchFailed)
		return
	}

	if !content.Available {
		response.JSON(w, http.StatusOK, models.Extraction{
			Properties: []models.PropertyRecord{},
			Message:    content.Reason,
		})
		return
	}

	ex := h.Extractor.Extract(content.Text)
	if ex.Properties == nil {
		ex.Properties = []models.PropertyRecord{}
	}
	response.JSON(w, http.StatusOK, ex)
}
