package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/liitos/liitos/errs"
)

// errorInfo is the wire shape of a failed request
type errorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps the engine error taxonomy onto HTTP statuses:
// validation 400, not-found 404, conflict 409, cooldown 429. Error
// metadata (remaining seconds, conflicting job id) is flattened next
// to the error object.
func writeError(w http.ResponseWriter, err error) {
	var e *errs.Error
	if !errors.As(err, &e) {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": errorInfo{Code: "INTERNAL", Message: err.Error()},
		})
		return
	}

	status := http.StatusBadRequest
	switch e.Kind {
	case errs.KindNotFound:
		status = http.StatusNotFound
	case errs.KindConflict:
		status = http.StatusConflict
	case errs.KindCooldown:
		status = http.StatusTooManyRequests
	}

	body := map[string]any{"error": errorInfo{Code: e.Code, Message: e.Message}}
	for k, v := range e.Meta {
		body[k] = v
	}
	writeJSON(w, status, body)
}

// decodeJSON parses and validates a request body
func (s *Server) decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errs.Validation("invalid request body: %v", err)
	}
	if err := s.validate.Struct(v); err != nil {
		var verr validator.ValidationErrors
		if errors.As(err, &verr) && len(verr) > 0 {
			return errs.Validation("invalid field %s", verr[0].Field())
		}
		return errs.Validation("invalid request body")
	}
	return nil
}

// pagination reads limit/offset query parameters with sane bounds
func pagination(r *http.Request) (limit, offset int) {
	limit = queryInt(r, "limit", 20)
	if limit < 1 {
		limit = 1
	}
	if limit > 100 {
		limit = 100
	}
	offset = queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

// actor identifies who performed the action, for the audit trail
func actor(r *http.Request) string {
	if a := r.Header.Get("X-Actor"); a != "" {
		return a
	}
	return "console"
}
