package response

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"rental_valuation/pkg/core/apperr"
)

var validate = validator.New()

// Decode reads a JSON body into v.
func Decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Validation("Invalid request body")
	}
	return nil
}

// Validate checks v's struct tags and reports failure as a Validation error
// with msg.
func Validate(v interface{}, msg string) error {
	if err := validate.Struct(v); err != nil {
		return apperr.Validation(msg)
	}
	return nil
}
