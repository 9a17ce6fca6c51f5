package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/serene-mind/companion-api/internal/export"
	"github.com/serene-mind/companion-api/internal/middleware"
	"github.com/serene-mind/companion-api/internal/model"
	"github.com/serene-mind/companion-api/internal/orchestrator"
	"github.com/serene-mind/companion-api/internal/session"
	"github.com/serene-mind/companion-api/pkg/logger"
	"github.com/serene-mind/companion-api/pkg/metrics"
)

// ChatOrchestrator runs the response pipeline for one user message.
type ChatOrchestrator interface {
	ChatRequest(ctx context.Context, sessionID, userMessage string, history []model.Message, mood string) orchestrator.Reply
}

// SessionHandler handles session, message and export endpoints.
type SessionHandler struct {
	store        *session.Store
	orchestrator ChatOrchestrator
	exporter     *export.Exporter
	logger       *logger.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(store *session.Store, orch ChatOrchestrator, exporter *export.Exporter, log *logger.Logger) *SessionHandler {
	return &SessionHandler{
		store:        store,
		orchestrator: orch,
		exporter:     exporter,
		logger:       log,
	}
}

// Create handles POST /api/v1/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	sess, welcome := h.store.Create(r.Context())

	writeJSON(w, http.StatusCreated, &model.CreateSessionResponse{
		Session: *sess,
		Welcome: *welcome,
	})
}

// List handles GET /api/v1/sessions/{id}/messages
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	messages, err := h.store.Transcript(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	writeJSON(w, http.StatusOK, &model.ListMessagesResponse{Messages: messages})
}

// Send handles POST /api/v1/sessions/{id}/messages
func (h *SessionHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "id")

	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateMood(req.Mood); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The history window covers prior turns only, so snapshot the transcript
	// before appending the new user message.
	history, err := h.store.Transcript(ctx, sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	userMsg, err := h.store.Append(ctx, sessionID, model.SenderUser, req.Content, false)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	reply := h.orchestrator.ChatRequest(ctx, sessionID, req.Content, history, req.Mood)

	botMsg, err := h.store.Append(ctx, sessionID, model.SenderBot, reply.Response, reply.Error)
	if err != nil {
		h.logger.Error("failed to append reply", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to store reply")
		return
	}

	writeJSON(w, http.StatusCreated, &model.SendMessageResponse{
		Message:        userMsg,
		Reply:          botMsg,
		UsedLocalModel: reply.UsedLocalModel,
	})
}

// Export handles GET /api/v1/sessions/{id}/export?format=markdown|txt
func (h *SessionHandler) Export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "id")

	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	messages, err := h.store.Transcript(ctx, sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	doc, err := h.exporter.Export(messages, format)
	if err != nil {
		if errors.Is(err, export.ErrUnknownFormat) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to export conversation")
		return
	}

	metrics.ExportsTotal.WithLabelValues(string(format)).Inc()

	w.Header().Set("Content-Type", export.ContentType(format))
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(format, doc.ExportedAt)+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(doc.Content))
}
