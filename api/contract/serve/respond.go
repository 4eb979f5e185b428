package serve

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"

	"github.com/celsowm/adorn-api/api/contract"
	"github.com/celsowm/adorn-api/httperror"
)

// BindError is a request binding failure: the wire value could not be
// placed into its handler argument.
type BindError struct {
	Source string // "path", "query", "header", "cookie", "body"
	Field  string
	Err    error
}

func (e *BindError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s %s: %s", e.Source, e.Field, e.Err.Error())
	}
	return fmt.Sprintf("%s: %s", e.Source, e.Err.Error())
}

func (e *BindError) Unwrap() error { return e.Err }

// ValidationError carries the structured failures of a body validation.
type ValidationError struct {
	Fields []contract.FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 1 {
		return fmt.Sprintf("request body is invalid: %s: %s", e.Fields[0].Path, e.Fields[0].Message)
	}
	return fmt.Sprintf("request body is invalid (%d problems)", len(e.Fields))
}

// ErrorResponse is the error envelope every non-2xx response uses.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail is the error code, message, and per-field breakdown.
type ErrorDetail struct {
	Code    string                `json:"code"`
	Message string                `json:"message"`
	Fields  []contract.FieldError `json:"fields,omitempty"`
}

// RespondJSON writes a JSON response. Nil slices render as [] so list
// endpoints never emit null.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		rv := reflect.ValueOf(data)
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			_, _ = w.Write([]byte("[]\n"))
			return
		}
	}
	_ = json.NewEncoder(w).Encode(data)
}

// RespondNoContent writes a 204 with no body.
func RespondNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// RespondError maps an error onto the error envelope. Handler errors
// carrying a status code keep it; binding and validation failures are
// 400; everything else is a 500 with the detail withheld.
func RespondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	detail := ErrorDetail{Code: "internal_error", Message: "internal server error"}

	var (
		httpErr *httperror.Error
		bindErr *BindError
		valErr  *ValidationError
	)
	switch {
	case errors.As(err, &valErr):
		status = http.StatusBadRequest
		detail = ErrorDetail{Code: "validation_failed", Message: err.Error(), Fields: valErr.Fields}
	case errors.As(err, &bindErr):
		status = http.StatusBadRequest
		detail = ErrorDetail{Code: "bad_request", Message: err.Error()}
	case errors.As(err, &httpErr):
		status = httpErr.Code()
		detail = ErrorDetail{Code: codeForStatus(status), Message: httpErr.Message()}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: detail})
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "unprocessable"
	default:
		return "error"
	}
}
