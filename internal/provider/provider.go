// Package provider implements the adapters for the external text-generation
// services the orchestration pipeline falls back across.
package provider

// Request carries the composed context for one generation attempt. The same
// request is reused across every provider in the chain.
type Request struct {
	UserMessage    string
	HistoryContext string
	MoodContext    string
	Crisis         bool
}

// Outcome tags the result of a provider attempt so fallback decisions are
// exhaustive rather than driven by sentinel values.
type Outcome string

const (
	// OutcomeSuccess means the provider produced usable text.
	OutcomeSuccess Outcome = "success"
	// OutcomeUnavailable means the provider is not configured. This is an
	// expected branch condition, not an error.
	OutcomeUnavailable Outcome = "unavailable"
	// OutcomeFailed means the provider was attempted and failed.
	OutcomeFailed Outcome = "failed"
)

// Result is the outcome of one provider attempt. Errors never cross a
// provider boundary except as the Err field of a failed result.
type Result struct {
	Outcome Outcome
	Text    string
	Err     error
}

// Success returns a successful result carrying generated text.
func Success(text string) Result {
	return Result{Outcome: OutcomeSuccess, Text: text}
}

// Unavailable returns a result for a provider that is not configured.
func Unavailable() Result {
	return Result{Outcome: OutcomeUnavailable}
}

// Failed returns a result for an attempted provider that failed.
func Failed(err error) Result {
	return Result{Outcome: OutcomeFailed, Err: err}
}
