package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/serene-mind/companion-api/internal/export"
	"github.com/serene-mind/companion-api/internal/model"
	"github.com/serene-mind/companion-api/internal/orchestrator"
	"github.com/serene-mind/companion-api/internal/session"
	"github.com/serene-mind/companion-api/pkg/logger"
)

type fakeOrchestrator struct {
	reply       orchestrator.Reply
	lastMessage string
	lastMood    string
	lastHistory []model.Message
}

func (f *fakeOrchestrator) ChatRequest(_ context.Context, _, userMessage string, history []model.Message, mood string) orchestrator.Reply {
	f.lastMessage = userMessage
	f.lastMood = mood
	f.lastHistory = history
	if f.reply.Timestamp.IsZero() {
		f.reply.Timestamp = time.Now()
	}
	return f.reply
}

func newTestRouter(t *testing.T, orch ChatOrchestrator) (*chi.Mux, *session.Store) {
	t.Helper()

	store := session.NewStore()
	h := NewSessionHandler(store, orch, export.NewExporter(), logger.NewNop())

	r := chi.NewRouter()
	r.Route("/api/v1/sessions", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/messages", h.List)
			r.Post("/messages", h.Send)
			r.Get("/export", h.Export)
		})
	})
	return r, store
}

func createSession(t *testing.T, r http.Handler) model.Session {
	t.Helper()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil))

	if rec.Code != http.StatusCreated {
		t.Fatalf("create session: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp model.CreateSessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	return resp.Session
}

func TestCreateSessionReturnsWelcome(t *testing.T) {
	r, _ := newTestRouter(t, &fakeOrchestrator{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp model.CreateSessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Session.ID == "" {
		t.Fatal("expected a session ID")
	}
	if resp.Welcome.Text != session.WelcomeMessage {
		t.Fatalf("unexpected welcome text: %q", resp.Welcome.Text)
	}
}

func TestSendMessageFlow(t *testing.T) {
	orch := &fakeOrchestrator{reply: orchestrator.Reply{
		Response:       "I hear you. That sounds difficult.",
		UsedLocalModel: true,
	}}
	r, store := newTestRouter(t, orch)
	sess := createSession(t, r)

	body, _ := json.Marshal(model.SendMessageRequest{Content: "I feel overwhelmed", Mood: "anxious"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+sess.ID+"/messages", bytes.NewReader(body)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp model.SendMessageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Message.Text != "I feel overwhelmed" || resp.Message.Sender != model.SenderUser {
		t.Fatalf("unexpected user message: %+v", resp.Message)
	}
	if resp.Reply.Text != orch.reply.Response || resp.Reply.Sender != model.SenderBot {
		t.Fatalf("unexpected reply: %+v", resp.Reply)
	}
	if !resp.UsedLocalModel {
		t.Fatal("expected UsedLocalModel to propagate")
	}

	if orch.lastMessage != "I feel overwhelmed" {
		t.Fatalf("orchestrator received %q", orch.lastMessage)
	}
	if orch.lastMood != "anxious" {
		t.Fatalf("orchestrator received mood %q", orch.lastMood)
	}
	// History passed to the pipeline excludes the message being sent.
	if len(orch.lastHistory) != 1 || orch.lastHistory[0].Text != session.WelcomeMessage {
		t.Fatalf("unexpected history snapshot: %+v", orch.lastHistory)
	}

	msgs, err := store.Transcript(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("transcript: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected welcome + user + bot, got %d messages", len(msgs))
	}
}

func TestSendMessageStoresErrorFlag(t *testing.T) {
	orch := &fakeOrchestrator{reply: orchestrator.Reply{
		Response: "I'm having trouble processing right now. Could you try phrasing that differently?",
		Error:    true,
	}}
	r, store := newTestRouter(t, orch)
	sess := createSession(t, r)

	body, _ := json.Marshal(model.SendMessageRequest{Content: "hello"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+sess.ID+"/messages", bytes.NewReader(body)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	msgs, _ := store.Transcript(context.Background(), sess.ID)
	last := msgs[len(msgs)-1]
	if !last.IsError {
		t.Fatal("error replies must be persisted with the error flag set")
	}
}

func TestSendMessageValidation(t *testing.T) {
	r, _ := newTestRouter(t, &fakeOrchestrator{})
	sess := createSession(t, r)

	tests := []struct {
		name string
		path string
		body string
	}{
		{"empty content", "/api/v1/sessions/" + sess.ID + "/messages", `{"content":""}`},
		{"invalid body", "/api/v1/sessions/" + sess.ID + "/messages", `{not json`},
		{"invalid session id", "/api/v1/sessions/not-a-uuid/messages", `{"content":"hi"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body)))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestSendMessageUnknownSession(t *testing.T) {
	r, _ := newTestRouter(t, &fakeOrchestrator{})

	body, _ := json.Marshal(model.SendMessageRequest{Content: "hi"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sessions/018f3b9a-0000-7000-8000-000000000000/messages", bytes.NewReader(body)))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestListMessages(t *testing.T) {
	r, store := newTestRouter(t, &fakeOrchestrator{})
	sess := createSession(t, r)

	if _, err := store.Append(context.Background(), sess.ID, model.SenderUser, "hello", false); err != nil {
		t.Fatalf("append: %v", err)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+sess.ID+"/messages", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp model.ListMessagesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(resp.Messages))
	}
}

func TestExportMarkdown(t *testing.T) {
	r, _ := newTestRouter(t, &fakeOrchestrator{})
	sess := createSession(t, r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+sess.ID+"/export?format=markdown", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "text/markdown;charset=utf-8" {
		t.Fatalf("unexpected content type: %q", got)
	}
	disposition := rec.Header().Get("Content-Disposition")
	if !strings.HasPrefix(disposition, `attachment; filename="serene-mind-chat-`) || !strings.HasSuffix(disposition, `.md"`) {
		t.Fatalf("unexpected disposition: %q", disposition)
	}
	if !strings.HasPrefix(rec.Body.String(), "# Serene Mind Chat") {
		t.Fatalf("unexpected body: %q", rec.Body.String()[:40])
	}
}

func TestExportTxt(t *testing.T) {
	r, _ := newTestRouter(t, &fakeOrchestrator{})
	sess := createSession(t, r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+sess.ID+"/export?format=txt", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/plain;charset=utf-8" {
		t.Fatalf("unexpected content type: %q", got)
	}
	if !strings.HasPrefix(rec.Body.String(), "SERENE MIND CHAT") {
		t.Fatal("expected plain-text header")
	}
}

func TestExportUnknownFormat(t *testing.T) {
	r, _ := newTestRouter(t, &fakeOrchestrator{})
	sess := createSession(t, r)

	for _, format := range []string{"pdf", ""} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+sess.ID+"/export?format="+format, nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("format %q: expected 400, got %d", format, rec.Code)
		}
	}
}

func TestExportUnknownSession(t *testing.T) {
	r, _ := newTestRouter(t, &fakeOrchestrator{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/018f3b9a-0000-7000-8000-000000000000/export?format=markdown", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
