package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/aretw0/weave/pkg/domain"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

// writeError maps err onto its HTTP status. Internal causes are only exposed
// as details outside production.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	typed := domain.Classify(err, domain.KindInitialization)
	status := typed.StatusCode()

	body := errorBody{Error: typed.Message}
	if typed.Err != nil && (status < 500 || !s.production) {
		body.Details = typed.Err.Error()
	}
	if status >= 500 {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "kind", typed.Kind, "error", err)
		if s.production {
			body.Error = "internal server error"
		}
	} else {
		s.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "kind", typed.Kind, "error", err)
	}
	writeJSON(w, status, body)
}

// decodeBody decodes a JSON request body into v. An empty body leaves v
// untouched when optional is set.
func decodeBody(r *http.Request, v any, optional bool) error {
	err := json.NewDecoder(r.Body).Decode(v)
	switch {
	case err == nil:
		return nil
	case optional && errors.Is(err, io.EOF):
		return nil
	default:
		return domain.NewError(domain.KindValidation, "invalid request body", err)
	}
}
