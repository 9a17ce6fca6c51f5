package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Gemini is the adapter for the hosted general LLM. The request body and the
// query-parameter credential are part of the observable wire contract, so the
// call is issued directly over HTTP rather than through a vendor SDK.
type Gemini struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewGemini creates the general LLM adapter.
func NewGemini(apiKey, model, baseURL string) *Gemini {
	return &Gemini{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{},
	}
}

// Configured reports whether a credential was provided.
func (g *Gemini) Configured() bool {
	return g.apiKey != ""
}

// Name returns the provider name.
func (g *Gemini) Name() string {
	return "gemini"
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
	TopP            float64 `json:"topP"`
	TopK            int     `json:"topK"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type generateContentRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
	SafetySettings   []safetySetting  `json:"safetySettings"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

var safetySettings = []safetySetting{
	{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
}

// Enhance rewrites a draft response from the open-model provider. On any
// failure the orchestrator keeps the original draft, so enhancement is
// best-effort and never fatal.
func (g *Gemini) Enhance(ctx context.Context, draft string, req Request) Result {
	return g.generate(ctx, enhancePrompt(draft, req))
}

// GenerateDirect produces a response from scratch when the open-model
// provider returned nothing usable.
func (g *Gemini) GenerateDirect(ctx context.Context, req Request) Result {
	return g.generate(ctx, directPrompt(req))
}

func (g *Gemini) generate(ctx context.Context, prompt string) Result {
	if !g.Configured() {
		return Unavailable()
	}

	body, err := json.Marshal(generateContentRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: prompt}}},
		},
		GenerationConfig: generationConfig{
			Temperature:     0.7,
			MaxOutputTokens: 800,
			TopP:            0.95,
			TopK:            40,
		},
		SafetySettings: safetySettings,
	})
	if err != nil {
		return Failed(fmt.Errorf("failed to marshal request: %w", err))
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Failed(fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return Failed(fmt.Errorf("failed to call generate endpoint: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return Failed(fmt.Errorf("generate endpoint returned %d: %s", resp.StatusCode, string(respBody)))
	}

	var parsed generateContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Failed(fmt.Errorf("failed to decode response: %w", err))
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return Failed(errors.New("no candidates in response"))
	}

	return Success(strings.TrimSpace(parsed.Candidates[0].Content.Parts[0].Text))
}
