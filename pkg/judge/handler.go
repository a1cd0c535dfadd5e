package judge

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/judgecore/judgecore/internal/apperr"
	"github.com/judgecore/judgecore/internal/httpserver"
)

// Handler exposes the code execution dispatch endpoint.
type Handler struct {
	dispatcher *Dispatcher
	registry   *Registry
	logger     *slog.Logger
}

// NewHandler builds the judge Handler.
func NewHandler(dispatcher *Dispatcher, registry *Registry, logger *slog.Logger) *Handler {
	return &Handler{dispatcher: dispatcher, registry: registry, logger: logger}
}

// defaultMaxCPUTime and defaultMaxMemoryMB are the server-applied
// resource limits for every execution run; the client does not choose
// its own.
const (
	defaultMaxCPUTime  = 5000
	defaultMaxMemoryMB = 512
)

type runRequestBody struct {
	Language string `json:"language"`
	Code     string `json:"code"`
	Input    string `json:"input"`
}

// Run handles POST /api/execution/run.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	var body runRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpserver.RespondError(w, h.logger, apperr.New(apperr.KindBadRequest, "bad request"))
		return
	}

	result, err := h.dispatcher.Run(r.Context(), RunRequest{
		Language:    body.Language,
		Src:         body.Code,
		Stdin:       body.Input,
		MaxCPUTime:  defaultMaxCPUTime,
		MaxMemoryMB: defaultMaxMemoryMB,
	})
	if err != nil {
		httpserver.RespondError(w, h.logger, err)
		return
	}

	httpserver.Respond(w, http.StatusOK, result)
}

// Fleet handles GET /api/execution/workers, a Judge-Fleet Registry
// snapshot.
func (h *Handler) Fleet(w http.ResponseWriter, r *http.Request) {
	workers, err := h.registry.List(r.Context())
	if err != nil {
		httpserver.RespondError(w, h.logger, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, workers)
}
