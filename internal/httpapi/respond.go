package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/kamideathless/books-shop/internal/auth"
	"github.com/kamideathless/books-shop/internal/catalog"
	"github.com/kamideathless/books-shop/internal/pagination"
	"github.com/kamideathless/books-shop/internal/purchase"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"detail": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// handleDomainError maps typed domain failures onto HTTP statuses. Unknown
// errors are never leaked to the caller.
func handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var invalidPageSize *pagination.InvalidPageSizeError
	switch {
	case errors.Is(err, auth.ErrBadCredentials),
		errors.Is(err, auth.ErrNotAuthenticated),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenExpired),
		errors.Is(err, auth.ErrWrongTokenType):
		writeError(w, r, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, purchase.ErrNotFound),
		errors.Is(err, pagination.ErrPageNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, catalog.ErrAlreadyExists),
		errors.Is(err, purchase.ErrDuplicatePending):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.As(err, &invalidPageSize):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

// validationError reports a request field failure, distinguished from
// not-found and auth failures.
func validationError(w http.ResponseWriter, r *http.Request, msg string) {
	writeError(w, r, http.StatusUnprocessableEntity, msg)
}
