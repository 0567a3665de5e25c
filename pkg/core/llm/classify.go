package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"rental_valuation/pkg/core/apperr"
)

// Decision is what the fallback runner does after a failed attempt.
type Decision int

const (
	// RetrySameModel: transient overload, back off and try the model again.
	RetrySameModel Decision = iota + 1
	// NextModel: quota exhausted or unknown failure, move down the list.
	NextModel
	// Fatal: retrying cannot help (missing credential, cancelled request).
	Fatal
)

func (d Decision) String() string {
	switch d {
	case RetrySameModel:
		return "retry_same_model"
	case NextModel:
		return "next_model"
	case Fatal:
		return "fatal"
	}
	return "unknown"
}

// Classify maps a generation error to a Decision. Quota wins over overload
// when both markers are present.
func Classify(err error) Decision {
	if err == nil {
		return NextModel
	}
	if errors.Is(err, apperr.ErrConfiguration) || errors.Is(err, context.Canceled) {
		return Fatal
	}

	code, status := apiStatus(err)
	msg := strings.ToLower(err.Error())

	if code == http.StatusTooManyRequests || status == "RESOURCE_EXHAUSTED" ||
		strings.Contains(msg, "quota") || strings.Contains(msg, "limit") || strings.Contains(msg, "429") {
		return NextModel
	}
	if code == http.StatusServiceUnavailable || status == "UNAVAILABLE" ||
		strings.Contains(msg, "503") || strings.Contains(msg, "overloaded") ||
		errors.Is(err, context.DeadlineExceeded) {
		return RetrySameModel
	}
	return NextModel
}

func apiStatus(err error) (int, string) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, apiErr.Status
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, apiErrPtr.Status
	}
	return 0, ""
}
