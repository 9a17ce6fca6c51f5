// Package orchestrator sequences the response pipeline for one user message:
// crisis detection, provider fallback chain, content safety filtering and
// disclaimer composition.
package orchestrator

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/serene-mind/companion-api/internal/config"
	"github.com/serene-mind/companion-api/internal/events"
	"github.com/serene-mind/companion-api/internal/model"
	"github.com/serene-mind/companion-api/internal/provider"
	"github.com/serene-mind/companion-api/internal/safety"
	"github.com/serene-mind/companion-api/pkg/logger"
	"github.com/serene-mind/companion-api/pkg/metrics"
)

// historyWindow is the number of trailing messages included as prompt context.
const historyWindow = 5

const (
	// directFallback is returned when direct generation produces nothing.
	directFallback = "I'm here to listen and support you. Could you tell me a bit more about what you're experiencing right now?"

	// apologyFallback absorbs anything unexpected; the caller always gets a
	// supportive sentence, never an error.
	apologyFallback = "I'm having trouble processing right now. Could you try phrasing that differently?"
)

// OpenModelProvider is the first generation provider in the chain.
type OpenModelProvider interface {
	Configured() bool
	Name() string
	Attempt(ctx context.Context, req provider.Request) provider.Result
}

// GeneralProvider enhances a draft or generates a response directly.
type GeneralProvider interface {
	Name() string
	Enhance(ctx context.Context, draft string, req provider.Request) provider.Result
	GenerateDirect(ctx context.Context, req provider.Request) provider.Result
}

// BackendProber checks local backend availability.
type BackendProber interface {
	Probe(ctx context.Context) model.BackendStatus
}

// Reply is the final result of one chat request.
type Reply struct {
	Response       string    `json:"response"`
	Timestamp      time.Time `json:"timestamp"`
	UsedLocalModel bool      `json:"used_local_model"`
	Error          bool      `json:"error,omitempty"`
}

// Orchestrator runs the pipeline. Constructed once per process; immutable
// thereafter.
type Orchestrator struct {
	openModel OpenModelProvider
	general   GeneralProvider
	prober    BackendProber
	events    events.Sink
	policy    config.SafetyPolicy
	logger    *logger.Logger
}

// New creates an orchestrator with explicit dependencies.
func New(
	openModel OpenModelProvider,
	general GeneralProvider,
	prober BackendProber,
	sink events.Sink,
	policy config.SafetyPolicy,
	log *logger.Logger,
) *Orchestrator {
	if sink == nil {
		sink = events.Noop{}
	}
	return &Orchestrator{
		openModel: openModel,
		general:   general,
		prober:    prober,
		events:    sink,
		policy:    policy,
		logger:    log,
	}
}

// ChatRequest produces one response for a user message. Steps run strictly
// sequentially; each provider's outcome determines the next step. ChatRequest
// never panics past this boundary and never returns an error: any unexpected
// failure becomes the fixed apology reply with the Error flag set.
func (o *Orchestrator) ChatRequest(ctx context.Context, sessionID, userMessage string, history []model.Message, mood string) (reply Reply) {
	start := time.Now()
	log := o.logger.WithSession(sessionID)

	defer func() {
		if r := recover(); r != nil {
			log.Error("chat pipeline panic", zap.Any("panic", r))
			o.publish(ctx, sessionID, model.EventTypeRequestError, fmt.Sprint(r), nil)
			metrics.ChatRequestDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
			reply = Reply{
				Response:  apologyFallback,
				Timestamp: time.Now(),
				Error:     true,
			}
		}
	}()

	// Availability probe is telemetry only; it never selects the provider.
	status := o.prober.Probe(ctx)
	metrics.BackendProbesTotal.WithLabelValues(strconv.FormatBool(status.IsAvailable)).Inc()
	log.Debug("backend probe",
		zap.Bool("available", status.IsAvailable),
		zap.Bool("model_loaded", status.ModelLoaded),
		zap.String("status", status.Status),
	)
	o.publish(ctx, sessionID, model.EventTypeBackendProbe, "", map[string]any{
		"available":    status.IsAvailable,
		"model_loaded": status.ModelLoaded,
	})

	req := provider.Request{
		UserMessage:    userMessage,
		HistoryContext: HistoryContext(history),
		MoodContext:    provider.MoodAnnotation(mood),
		Crisis:         safety.DetectCrisis(userMessage),
	}

	if req.Crisis {
		metrics.CrisisDetectionsTotal.Inc()
		log.Warn("crisis keywords detected in user message")
		o.publish(ctx, sessionID, model.EventTypeCrisisDetected, "", nil)
	}

	var text string
	usedLocalModel := false

	if o.openModel.Configured() {
		res := o.openModel.Attempt(ctx, req)
		metrics.RecordProviderAttempt(o.openModel.Name(), string(res.Outcome))

		if res.Outcome == provider.OutcomeSuccess {
			usedLocalModel = true
			text = o.enhance(ctx, log, res.Text, req)
		} else {
			if res.Err != nil {
				log.Warn("open-model attempt failed, generating directly", zap.Error(res.Err))
			}
			o.publish(ctx, sessionID, model.EventTypeProviderFallback, outcomeReason(res), map[string]any{
				"from": o.openModel.Name(),
				"to":   o.general.Name(),
			})
			text = o.generateDirect(ctx, log, req)
		}
	} else {
		text = o.generateDirect(ctx, log, req)
	}

	text = o.applySafetyFilter(ctx, log, sessionID, text)

	reply = Reply{
		Response:       safety.AddDisclaimer(text, req.Crisis),
		Timestamp:      time.Now(),
		UsedLocalModel: usedLocalModel,
	}

	metrics.ChatRequestDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	return reply
}

// enhance runs the second-pass rewrite. Enhancement is best-effort: any
// failure keeps the original draft.
func (o *Orchestrator) enhance(ctx context.Context, log *logger.Logger, draft string, req provider.Request) string {
	res := o.general.Enhance(ctx, draft, req)
	metrics.RecordProviderAttempt(o.general.Name()+"_enhance", string(res.Outcome))

	if res.Outcome != provider.OutcomeSuccess {
		if res.Err != nil {
			log.Warn("enhancement failed, keeping draft", zap.Error(res.Err))
		}
		return draft
	}
	return res.Text
}

// generateDirect produces a response from scratch, substituting the fixed
// empathetic fallback when the provider cannot.
func (o *Orchestrator) generateDirect(ctx context.Context, log *logger.Logger, req provider.Request) string {
	res := o.general.GenerateDirect(ctx, req)
	metrics.RecordProviderAttempt(o.general.Name(), string(res.Outcome))

	if res.Outcome != provider.OutcomeSuccess {
		if res.Err != nil {
			log.Warn("direct generation failed, using fallback", zap.Error(res.Err))
		}
		return directFallback
	}
	return res.Text
}

// applySafetyFilter runs the content filter stage. Under the block policy a
// flagged response is replaced with the safe fallback; under the log policy it
// passes through counted.
func (o *Orchestrator) applySafetyFilter(ctx context.Context, log *logger.Logger, sessionID, text string) string {
	if !safety.FilterHarmfulContent(text) {
		return text
	}

	if o.policy == config.SafetyPolicyLog {
		metrics.SafetyFilterHitsTotal.WithLabelValues("logged").Inc()
		log.Warn("content filter flagged response, passing through per policy")
		return text
	}

	metrics.SafetyFilterHitsTotal.WithLabelValues("blocked").Inc()
	log.Warn("content filter flagged response, substituting fallback")
	o.publish(ctx, sessionID, model.EventTypeSafetyBlocked, "", nil)
	return directFallback
}

func (o *Orchestrator) publish(ctx context.Context, sessionID string, eventType model.EventType, reason string, metadata map[string]any) {
	o.events.Publish(ctx, model.SessionEvent{
		ID:        uuidString(),
		SessionID: sessionID,
		Type:      eventType,
		Reason:    reason,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	})
}

func uuidString() string {
	return uuid.Must(uuid.NewV7()).String()
}

func outcomeReason(res provider.Result) string {
	if res.Err != nil {
		return res.Err.Error()
	}
	return string(res.Outcome)
}

// HistoryContext formats the trailing window of the transcript as prompt
// context, oldest first. Empty history yields the empty string; the providers
// substitute their own placeholder.
func HistoryContext(history []model.Message) string {
	if len(history) == 0 {
		return ""
	}

	recent := history
	if len(recent) > historyWindow {
		recent = recent[len(recent)-historyWindow:]
	}

	out := ""
	for i, msg := range recent {
		label := "Assistant"
		if msg.Sender == model.SenderUser {
			label = "User"
		}
		if i > 0 {
			out += "\n"
		}
		out += label + ": " + msg.Text
	}
	return out
}
