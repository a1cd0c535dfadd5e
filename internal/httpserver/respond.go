package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/judgecore/judgecore/internal/apperr"
)

// ErrorResponse is the JSON envelope returned for any failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Respond writes data as a JSON body with the given status code.
func Respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

// RespondError maps err onto an HTTP status and JSON error envelope,
// logging server-side (5xx) failures.
func RespondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := apperr.StatusFor(err)
	kind := "internal"
	msg := err.Error()
	if ae, ok := apperr.As(err); ok {
		kind = string(ae.Kind)
		msg = ae.Message
	}

	if status >= 500 && logger != nil {
		logger.Error("request failed", "kind", kind, "error", err)
	}

	Respond(w, status, ErrorResponse{Error: kind, Message: msg})
}
