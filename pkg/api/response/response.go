// Package response holds the JSON and CORS plumbing shared by the handlers.
package response

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"rental_valuation/pkg/core/apperr"
)

// ErrorBody is the JSON shape of every failed request.
type ErrorBody struct {
	Error   string `json:"error"`
	Hint    string `json:"hint,omitempty"`
	RawText string `json:"rawText,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// Preflight sets the CORS headers for local dev and answers OPTIONS. It
// returns true when the request has been fully handled.
func Preflight(w http.ResponseWriter, r *http.Request, methods string) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", methods+", OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return true
	}
	return false
}

// Allow rejects methods other than method with 405.
func Allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		JSON(w, http.StatusMethodNotAllowed, ErrorBody{Error: "Method not allowed"})
		return false
	}
	return true
}

func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("response: encode failed", zap.Error(err))
	}
}

// Error writes err using the taxonomy status. message overrides the error's
// own message when not empty.
func Error(w http.ResponseWriter, err error, message string) {
	if message == "" {
		message = apperr.MessageOf(err)
	}
	body := ErrorBody{Error: message}
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		body.Hint = apperr.DetailOf(err)
	case apperr.KindUnparseable:
		body.RawText = apperr.DetailOf(err)
	}
	JSON(w, apperr.HTTPStatus(err), body)
}
