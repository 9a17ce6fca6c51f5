package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/serene-mind/companion-api/internal/model"
)

// HealthProbe checks whether the self-hosted model backend is reachable.
// The result is telemetry only; it does not select which provider runs.
type HealthProbe struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
}

// NewHealthProbe creates a probe for the configured health endpoint.
func NewHealthProbe(endpoint string, timeout time.Duration) *HealthProbe {
	return &HealthProbe{
		endpoint: endpoint,
		timeout:  timeout,
		client:   &http.Client{},
	}
}

type healthResponse struct {
	ModelLoaded bool   `json:"model_loaded"`
	Status      string `json:"status"`
}

// Probe issues a bounded-time health check. Any failure, timeout or non-200
// status yields an unavailable status; Probe never returns an error.
func (p *HealthProbe) Probe(ctx context.Context) model.BackendStatus {
	if p.endpoint == "" {
		return model.BackendStatus{IsAvailable: false}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint, nil)
	if err != nil {
		return model.BackendStatus{IsAvailable: false}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return model.BackendStatus{IsAvailable: false}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.BackendStatus{IsAvailable: false}
	}

	var parsed healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return model.BackendStatus{IsAvailable: false}
	}

	return model.BackendStatus{
		IsAvailable: true,
		ModelLoaded: parsed.ModelLoaded,
		Status:      parsed.Status,
	}
}
