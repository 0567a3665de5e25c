// Package resolve serves POST /resolve, the full multi-source pipeline.
package resolve

import (
	"errors"
	"net/http"
	"strings"

	"rental_valuation/pkg/api/response"
	"rental_valuation/pkg/core/apperr"
	"rental_valuation/pkg/core/geo"
	"rental_valuation/pkg/core/pipeline"
	"rental_valuation/pkg/models"
)

const msgSuperseded = "新しい検索が開始されたため、この検索結果は破棄されました"

// SessionHeader identifies the client tab when the body has no sessionId.
const SessionHeader = "X-Session-ID"

// Request carries an optional sessionId; only queries sharing it supersede
// one another.
type Request struct {
	CompanyName string `json:"companyName" validate:"required"`
	SessionID   string `json:"sessionId,omitempty"`
}

type Response struct {
	QueryID      string                  `json:"queryId"`
	State        pipeline.State          `json:"state"`
	Message      string                  `json:"message"`
	Hint         string                  `json:"hint,omitempty"`
	Record       *models.FinancialRecord `json:"record,omitempty"`
	MapLocations []geo.MapLocation       `json:"mapLocations,omitempty"`
}

type ErrorResponse struct {
	QueryID string         `json:"queryId,omitempty"`
	State   pipeline.State `json:"state"`
	Error   string         `json:"error"`
	Detail  string         `json:"detail,omitempty"`
}

type Handler struct {
	Sessions *pipeline.Sessions
	Locator  *geo.Locator
}

func NewHandler(s *pipeline.Sessions, l *geo.Locator) *Handler {
	return &Handler{Sessions: s, Locator: l}
}

func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	if response.Preflight(w, r, "POST") || !response.Allow(w, r, http.MethodPost) {
		return
	}

	var req Request
	if err := response.Decode(r, &req); err != nil {
		h.writeError(w, "", err, apperr.MessageOf(err), "")
		return
	}
	req.CompanyName = strings.TrimSpace(req.CompanyName)
	if err := response.Validate(req, pipeline.MsgMissingName); err != nil {
		h.writeError(w, "", err, pipeline.MsgMissingName, "")
		return
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = strings.TrimSpace(r.Header.Get(SessionHeader))
	}

	res, err := h.Sessions.Submit(r.Context(), sessionID, req.CompanyName)
	if errors.Is(err, pipeline.ErrSuperseded) {
		response.JSON(w, http.StatusConflict, ErrorResponse{State: pipeline.StateError, Error: msgSuperseded})
		return
	}

	if res.State == pipeline.StateError {
		h.writeError(w, res.QueryID, res.Err, res.Message, res.Detail)
		return
	}

	out := Response{
		QueryID: res.QueryID,
		State:   res.State,
		Message: res.Message,
		Hint:    res.Hint,
		Record:  res.Record,
	}
	if res.Record != nil && h.Locator != nil {
		out.MapLocations = h.Locator.Locate(res.Record)
	}
	response.JSON(w, http.StatusOK, out)
}

func (h *Handler) writeError(w http.ResponseWriter, queryID string, err error, msg, detail string) {
	response.JSON(w, apperr.HTTPStatus(err), ErrorResponse{
		QueryID: queryID,
		State:   pipeline.StateError,
		Error:   msg,
		Detail:  detail,
	})
}
