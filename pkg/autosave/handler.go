package autosave

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/judgecore/judgecore/internal/apperr"
	"github.com/judgecore/judgecore/internal/auth"
	"github.com/judgecore/judgecore/internal/httpserver"
	"github.com/judgecore/judgecore/internal/store"
)

// Handler exposes the code-autosave HTTP endpoints.
type Handler struct {
	buffer    *Buffer
	codeStore *store.CodeStore
	logger    *slog.Logger
}

// NewHandler builds the autosave Handler.
func NewHandler(buffer *Buffer, codeStore *store.CodeStore, logger *slog.Logger) *Handler {
	return &Handler{buffer: buffer, codeStore: codeStore, logger: logger}
}

type saveRequestBody struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

func problemIDFromRequest(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "problem_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperr.New(apperr.KindBadRequest, "bad request")
	}
	return id, nil
}

// Save handles POST /api/code/{problem_id}.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpserver.RespondError(w, h.logger, apperr.New(apperr.KindUnauthorized, "not authenticated"))
		return
	}

	problemID, err := problemIDFromRequest(r)
	if err != nil {
		httpserver.RespondError(w, h.logger, err)
		return
	}

	var body saveRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Language == "" {
		httpserver.RespondError(w, h.logger, apperr.New(apperr.KindBadRequest, "bad request"))
		return
	}

	if err := h.buffer.Save(r.Context(), principal.UserID, problemID, body.Language, body.Code); err != nil {
		httpserver.RespondError(w, h.logger, err)
		return
	}

	httpserver.Respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Load handles GET /api/code/{problem_id}?language=...
func (h *Handler) Load(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpserver.RespondError(w, h.logger, apperr.New(apperr.KindUnauthorized, "not authenticated"))
		return
	}

	problemID, err := problemIDFromRequest(r)
	if err != nil {
		httpserver.RespondError(w, h.logger, err)
		return
	}

	language := r.URL.Query().Get("language")
	if language == "" {
		httpserver.RespondError(w, h.logger, apperr.New(apperr.KindBadRequest, "bad request"))
		return
	}

	code, err := h.buffer.Get(r.Context(), h.codeStore, principal.UserID, problemID, language)
	if err != nil {
		httpserver.RespondError(w, h.logger, err)
		return
	}

	httpserver.Respond(w, http.StatusOK, map[string]string{"code": code})
}
