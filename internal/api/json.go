package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"PressWatch/internal/domain"
)

const maxRequestBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// bind decodes a JSON body into dst and validates it in one step.
// Both failures come back as *domain.ValidationError.
func bind(r *http.Request, dst validation.Validatable) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &domain.ValidationError{Fields: validation.Errors{"body": errors.New("must be a valid JSON object")}}
	}
	return validate(dst)
}

func validate(v validation.Validatable) error {
	if err := v.Validate(); err != nil {
		return &domain.ValidationError{Fields: err}
	}
	return nil
}

// statusFor maps error kinds to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidationFailed):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSourceUnavailable):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnsupportedRule):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrFetchFailed):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrMisconfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		body := errorBody("validation failed")
		var fields validation.Errors
		if errors.As(vErr.Fields, &fields) {
			body.Fields = make(map[string]string, len(fields))
			for name, fe := range fields {
				body.Fields[name] = fe.Error()
			}
		} else if vErr.Fields != nil {
			body.Fields = map[string]string{"body": vErr.Fields.Error()}
		}
		writeJSON(w, status, body)
		return
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
		if status == http.StatusInternalServerError {
			writeJSON(w, status, errorBody("internal error"))
			return
		}
	}
	writeJSON(w, status, errorBody(err.Error()))
}
