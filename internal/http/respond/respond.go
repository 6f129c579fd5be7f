// Package respond writes JSON responses and maps domain errors to status
// codes for every handler.
package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/MrJamesThe3rd/conciliacao/internal/category"
	"github.com/MrJamesThe3rd/conciliacao/internal/reconciliation"
	"github.com/MrJamesThe3rd/conciliacao/internal/statement"
	"github.com/MrJamesThe3rd/conciliacao/internal/transaction"
)

// ErrBadRequest marks malformed input detected by a handler.
var ErrBadRequest = errors.New("bad request")

const (
	CodeBadRequest = "requisicao_invalida"
	CodeNotFound   = "nao_encontrado"
	CodeConflict   = "conflito"
	CodeInternal   = "erro_interno"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func Problem(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// Error picks the status for err from the domain sentinels it wraps.
// Unknown errors are logged and reported as 500 without detail.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, statement.ErrValidation),
		errors.Is(err, transaction.ErrValidation),
		errors.Is(err, reconciliation.ErrValidation),
		errors.Is(err, category.ErrValidation):
		Problem(w, http.StatusBadRequest, CodeBadRequest, err.Error())
	case errors.Is(err, statement.ErrNotFound),
		errors.Is(err, transaction.ErrNotFound):
		Problem(w, http.StatusNotFound, CodeNotFound, err.Error())
	case errors.Is(err, reconciliation.ErrConflict):
		Problem(w, http.StatusConflict, CodeConflict, err.Error())
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		Problem(w, http.StatusInternalServerError, CodeInternal, "internal error")
	}
}

func BadRequest(w http.ResponseWriter, message string) {
	Problem(w, http.StatusBadRequest, CodeBadRequest, message)
}

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}

		return name
	})

	return v
}

// Validate runs the struct's `validate` tags.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}

	return fmt.Errorf("%w: %s", ErrBadRequest, strings.Join(msgs, "; "))
}

// DecodeJSON reads the request body into dst and validates it.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", ErrBadRequest, err)
	}

	return Validate(dst)
}

