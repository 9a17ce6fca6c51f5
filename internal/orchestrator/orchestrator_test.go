package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/serene-mind/companion-api/internal/config"
	"github.com/serene-mind/companion-api/internal/events"
	"github.com/serene-mind/companion-api/internal/model"
	"github.com/serene-mind/companion-api/internal/provider"
	"github.com/serene-mind/companion-api/internal/safety"
	"github.com/serene-mind/companion-api/pkg/logger"
)

type fakeOpenModel struct {
	configured bool
	result     provider.Result
	calls      int
}

func (f *fakeOpenModel) Configured() bool { return f.configured }
func (f *fakeOpenModel) Name() string     { return "open_model" }
func (f *fakeOpenModel) Attempt(_ context.Context, _ provider.Request) provider.Result {
	f.calls++
	return f.result
}

type fakeGeneral struct {
	enhanceResult provider.Result
	directResult  provider.Result
	enhanceCalls  int
	directCalls   int
	lastDraft     string
	lastRequest   provider.Request
}

func (f *fakeGeneral) Name() string { return "gemini" }
func (f *fakeGeneral) Enhance(_ context.Context, draft string, req provider.Request) provider.Result {
	f.enhanceCalls++
	f.lastDraft = draft
	f.lastRequest = req
	return f.enhanceResult
}
func (f *fakeGeneral) GenerateDirect(_ context.Context, req provider.Request) provider.Result {
	f.directCalls++
	f.lastRequest = req
	return f.directResult
}

type fakeProber struct {
	status model.BackendStatus
	calls  int
}

func (f *fakeProber) Probe(_ context.Context) model.BackendStatus {
	f.calls++
	return f.status
}

type panickyProber struct{}

func (panickyProber) Probe(_ context.Context) model.BackendStatus {
	panic("probe exploded")
}

type captureSink struct {
	events []model.SessionEvent
}

func (c *captureSink) Publish(_ context.Context, event model.SessionEvent) {
	c.events = append(c.events, event)
}

func (c *captureSink) has(eventType model.EventType) bool {
	for _, e := range c.events {
		if e.Type == eventType {
			return true
		}
	}
	return false
}

func newTestOrchestrator(om *fakeOpenModel, gp *fakeGeneral, sink events.Sink) *Orchestrator {
	return New(om, gp, &fakeProber{}, sink, config.SafetyPolicyBlock, logger.NewNop())
}

func TestChatRequestNoCredentials(t *testing.T) {
	om := &fakeOpenModel{configured: false}
	gp := &fakeGeneral{directResult: provider.Unavailable()}
	orch := newTestOrchestrator(om, gp, nil)

	reply := orch.ChatRequest(context.Background(), "s1", "hello", nil, "")

	want := safety.AddDisclaimer(directFallback, false)
	if reply.Response != want {
		t.Fatalf("unexpected response:\ngot  %q\nwant %q", reply.Response, want)
	}
	if reply.UsedLocalModel {
		t.Fatal("UsedLocalModel must be false with no open-model credential")
	}
	if reply.Error {
		t.Fatal("degraded pipeline is not an error")
	}
	if om.calls != 0 {
		t.Fatal("unconfigured open model must not be attempted")
	}
	if gp.directCalls != 1 {
		t.Fatalf("expected one direct generation, got %d", gp.directCalls)
	}
}

func TestChatRequestEnhancedPath(t *testing.T) {
	om := &fakeOpenModel{configured: true, result: provider.Success("draft insight")}
	gp := &fakeGeneral{enhanceResult: provider.Success("enhanced insight with warmth")}
	orch := newTestOrchestrator(om, gp, nil)

	reply := orch.ChatRequest(context.Background(), "s1", "I feel stressed about work", nil, "Anxious")

	if !reply.UsedLocalModel {
		t.Fatal("UsedLocalModel must be true when the open model produced the draft")
	}
	if !strings.Contains(reply.Response, "enhanced insight with warmth") {
		t.Fatal("response must contain the enhanced text")
	}
	if strings.Contains(reply.Response, safety.CrisisResources()) {
		t.Fatal("non-crisis input must not produce the crisis block")
	}
	if got := strings.Count(reply.Response, safety.GeneralDisclaimer()); got != 1 {
		t.Fatalf("disclaimer must be applied exactly once, found %d", got)
	}
	if gp.lastDraft != "draft insight" {
		t.Fatalf("enhance must receive the open-model draft, got %q", gp.lastDraft)
	}
	if gp.lastRequest.MoodContext != "[User's current mood: Anxious]" {
		t.Fatalf("unexpected mood context: %q", gp.lastRequest.MoodContext)
	}
}

func TestChatRequestEnhanceFailureKeepsDraft(t *testing.T) {
	om := &fakeOpenModel{configured: true, result: provider.Success("draft insight")}
	gp := &fakeGeneral{enhanceResult: provider.Failed(errors.New("boom"))}
	orch := newTestOrchestrator(om, gp, nil)

	reply := orch.ChatRequest(context.Background(), "s1", "I feel tired", nil, "")

	if !strings.Contains(reply.Response, "draft insight") {
		t.Fatal("failed enhancement must keep the original draft")
	}
	if !reply.UsedLocalModel {
		t.Fatal("UsedLocalModel must remain true when enhancement fails")
	}
}

func TestChatRequestOpenModelFailureFallsBack(t *testing.T) {
	om := &fakeOpenModel{configured: true, result: provider.Failed(errors.New("timeout"))}
	gp := &fakeGeneral{directResult: provider.Success("a direct supportive reply")}
	sink := &captureSink{}
	orch := newTestOrchestrator(om, gp, sink)

	reply := orch.ChatRequest(context.Background(), "s1", "hello", nil, "")

	if reply.UsedLocalModel {
		t.Fatal("UsedLocalModel must be false on open-model failure")
	}
	if !strings.Contains(reply.Response, "a direct supportive reply") {
		t.Fatal("response must contain the directly generated text")
	}
	if gp.enhanceCalls != 0 {
		t.Fatal("enhance must not run when the open model failed")
	}
	if !sink.has(model.EventTypeProviderFallback) {
		t.Fatal("provider fallback event must be published")
	}
}

func TestChatRequestCrisisPath(t *testing.T) {
	om := &fakeOpenModel{configured: false}
	gp := &fakeGeneral{directResult: provider.Success("you are not alone, help is available")}
	sink := &captureSink{}
	orch := newTestOrchestrator(om, gp, sink)

	reply := orch.ChatRequest(context.Background(), "s1", "I want to kill myself", nil, "")

	if !strings.Contains(reply.Response, safety.CrisisResources()) {
		t.Fatal("crisis input must produce the crisis resources block")
	}
	if !strings.Contains(reply.Response, safety.GeneralDisclaimer()) {
		t.Fatal("crisis response must also carry the general disclaimer")
	}
	crisisIdx := strings.Index(reply.Response, safety.CrisisResources())
	generalIdx := strings.Index(reply.Response, safety.GeneralDisclaimer())
	if crisisIdx > generalIdx {
		t.Fatal("crisis block must precede the general disclaimer")
	}
	if !gp.lastRequest.Crisis {
		t.Fatal("provider request must carry the crisis flag")
	}
	if !sink.has(model.EventTypeCrisisDetected) {
		t.Fatal("crisis event must be published")
	}
}

func TestChatRequestSafetyFilterBlocks(t *testing.T) {
	om := &fakeOpenModel{configured: false}
	gp := &fakeGeneral{directResult: provider.Success("honestly, killing yourself is discussed in this text")}
	sink := &captureSink{}
	orch := newTestOrchestrator(om, gp, sink)

	reply := orch.ChatRequest(context.Background(), "s1", "hello", nil, "")

	if strings.Contains(reply.Response, "killing yourself") {
		t.Fatal("flagged text must not be surfaced under the block policy")
	}
	want := safety.AddDisclaimer(directFallback, false)
	if reply.Response != want {
		t.Fatalf("expected safe fallback response, got %q", reply.Response)
	}
	if !sink.has(model.EventTypeSafetyBlocked) {
		t.Fatal("safety blocked event must be published")
	}
}

func TestChatRequestSafetyFilterLogPolicy(t *testing.T) {
	om := &fakeOpenModel{configured: false}
	gp := &fakeGeneral{directResult: provider.Success("this mentions dangerous behavior in passing")}
	orch := New(om, gp, &fakeProber{}, nil, config.SafetyPolicyLog, logger.NewNop())

	reply := orch.ChatRequest(context.Background(), "s1", "hello", nil, "")

	if !strings.Contains(reply.Response, "dangerous behavior") {
		t.Fatal("log policy must pass flagged text through")
	}
}

func TestChatRequestPanicRecovery(t *testing.T) {
	om := &fakeOpenModel{configured: false}
	gp := &fakeGeneral{directResult: provider.Success("fine")}
	orch := New(om, gp, panickyProber{}, nil, config.SafetyPolicyBlock, logger.NewNop())

	reply := orch.ChatRequest(context.Background(), "s1", "hello", nil, "")

	if !reply.Error {
		t.Fatal("panic must surface as an error reply")
	}
	if reply.Response != apologyFallback {
		t.Fatalf("expected apology fallback, got %q", reply.Response)
	}
	if reply.Timestamp.IsZero() {
		t.Fatal("error reply must carry a timestamp")
	}
}

func TestHistoryContextWindow(t *testing.T) {
	var history []model.Message
	for i := 0; i < 7; i++ {
		sender := model.SenderUser
		if i%2 == 1 {
			sender = model.SenderBot
		}
		history = append(history, model.Message{
			Sender:    sender,
			Text:      "message " + string(rune('0'+i)),
			Timestamp: time.Now(),
		})
	}

	got := HistoryContext(history)
	lines := strings.Split(got, "\n")
	if len(lines) != 5 {
		t.Fatalf("expected a 5-line window, got %d lines:\n%s", len(lines), got)
	}
	if lines[0] != "User: message 2" {
		t.Fatalf("window must keep the most recent entries oldest-first, got %q", lines[0])
	}
	if lines[4] != "User: message 6" {
		t.Fatalf("unexpected last line: %q", lines[4])
	}
	if !strings.Contains(got, "Assistant: message 3") {
		t.Fatal("bot messages must carry the Assistant label")
	}
}

func TestHistoryContextEmpty(t *testing.T) {
	if got := HistoryContext(nil); got != "" {
		t.Fatalf("empty history must yield an empty context, got %q", got)
	}
}
