package openclaw

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openclaw/clawboard/database"
	"github.com/openclaw/clawboard/services"
)

const (
	requestTimeout = 10 * time.Second
	probeTimeout   = 5 * time.Second // UI-facing health probe
	maxRetries     = 2
)

// Client is the uniform facade over the mock and real backends.
type Client interface {
	Health(ctx context.Context, workspaceID string) (*HealthResponse, error)
	CreateJob(ctx context.Context, workspaceID string, payload JobPayload) (*Job, error)
	GetJob(ctx context.Context, workspaceID, jobID string) (*Job, error)
	CancelJob(ctx context.Context, workspaceID, jobID string) (bool, error)
	SendCommand(ctx context.Context, workspaceID string, payload CommandPayload) (*CommandResponse, error)
	Status(ctx context.Context, workspaceID string) (*Status, error)
}

// Service routes each call to the mock or the real backend based on the
// workspace's stored configuration.
type Service struct {
	store  *database.Store
	cipher *services.TokenCipher
	mock   *MockClient
	http   *http.Client
}

func NewService(store *database.Store, cipher *services.TokenCipher) *Service {
	return &Service{
		store:  store,
		cipher: cipher,
		mock:   NewMockClient(),
		http:   &http.Client{Timeout: requestTimeout},
	}
}

func (s *Service) config(ctx context.Context, workspaceID string) (*database.OpenClawConfig, error) {
	cfg, err := s.store.GetOpenClawConfig(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("%w: no config for workspace", ErrNotConfigured)
	}
	return cfg, nil
}

func (s *Service) token(cfg *database.OpenClawConfig) (string, error) {
	if cfg.TokenEncrypted == "" {
		return "", fmt.Errorf("%w: token not set", ErrNotConfigured)
	}
	token, err := s.cipher.Decrypt(cfg.TokenEncrypted)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt token: %w", err)
	}
	return token, nil
}

// retryBackoff matches the documented policy: up to 2 retries, waiting 1s
// then 2s. BackOff values are stateful, so every call builds a fresh one.
func retryBackoff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	return backoff.WithContext(backoff.WithMaxRetries(bo, maxRetries), ctx)
}

// doJSON performs one HTTP round trip and decodes the response into out.
// Retry is opt-in and reserved for idempotent calls: retrying a job-creation
// POST could create duplicate jobs upstream.
func (s *Service) doJSON(ctx context.Context, method, url, token string, body, out any, retry bool) error {
	attempt := func() error {
		var reader io.Reader
		if body != nil {
			encoded, err := json.Marshal(body)
			if err != nil {
				return backoff.Permanent(fmt.Errorf("failed to encode request: %w", err))
			}
			reader = bytes.NewReader(encoded)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to build request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)

		res, err := s.http.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		}
		defer res.Body.Close()

		if res.StatusCode < 200 || res.StatusCode > 299 {
			return fmt.Errorf("%w: HTTP %d", ErrUpstreamUnavailable, res.StatusCode)
		}

		if out != nil {
			if err := json.NewDecoder(res.Body).Decode(out); err != nil {
				return backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
			}
		}
		return nil
	}

	if !retry {
		return attempt()
	}
	return backoff.Retry(attempt, retryBackoff(ctx))
}

func (s *Service) Health(ctx context.Context, workspaceID string) (*HealthResponse, error) {
	cfg, err := s.config(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if cfg.Mode == ModeMock {
		return s.mock.Health(ctx)
	}

	token, err := s.token(cfg)
	if err != nil {
		return nil, err
	}

	health := &HealthResponse{}
	err = s.doJSON(ctx, http.MethodGet, cfg.BaseURL+cfg.HealthPath, token, nil, health, true)
	if err != nil {
		return nil, err
	}
	return health, nil
}

func (s *Service) CreateJob(ctx context.Context, workspaceID string, payload JobPayload) (*Job, error) {
	cfg, err := s.config(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if cfg.Mode == ModeMock {
		return s.mock.CreateJob(ctx, payload)
	}

	token, err := s.token(cfg)
	if err != nil {
		return nil, err
	}

	job := &Job{}
	err = s.doJSON(ctx, http.MethodPost, cfg.BaseURL+"/api/jobs", token, payload, job, false)
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (s *Service) GetJob(ctx context.Context, workspaceID, jobID string) (*Job, error) {
	cfg, err := s.config(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if cfg.Mode == ModeMock {
		return s.mock.GetJob(ctx, jobID)
	}

	token, err := s.token(cfg)
	if err != nil {
		return nil, err
	}

	job := &Job{}
	err = s.doJSON(ctx, http.MethodGet, cfg.BaseURL+"/api/jobs/"+jobID, token, nil, job, true)
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (s *Service) CancelJob(ctx context.Context, workspaceID, jobID string) (bool, error) {
	cfg, err := s.config(ctx, workspaceID)
	if err != nil {
		return false, err
	}
	if cfg.Mode == ModeMock {
		return s.mock.CancelJob(ctx, jobID)
	}

	token, err := s.token(cfg)
	if err != nil {
		return false, err
	}

	var res struct {
		Success bool `json:"success"`
	}
	err = s.doJSON(ctx, http.MethodPost, cfg.BaseURL+"/api/jobs/"+jobID+"/cancel", token, nil, &res, false)
	if err != nil {
		return false, err
	}
	return res.Success, nil
}

func (s *Service) SendCommand(ctx context.Context, workspaceID string, payload CommandPayload) (*CommandResponse, error) {
	cfg, err := s.config(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if cfg.Mode == ModeMock {
		return s.mock.SendCommand(ctx, payload)
	}

	token, err := s.token(cfg)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var data any
	err = s.doJSON(ctx, http.MethodPost, cfg.BaseURL+"/api/command", token, payload, &data, false)
	durationMs := time.Since(start).Milliseconds()
	if err != nil {
		return &CommandResponse{Success: false, Error: err.Error(), DurationMs: durationMs}, nil
	}
	return &CommandResponse{Success: true, Data: data, DurationMs: durationMs}, nil
}

// Status probes connectivity for the UI badge and records the outcome on the
// workspace config. Unlike Health it never retries; the badge should reflect
// the backend's state right now.
func (s *Service) Status(ctx context.Context, workspaceID string) (*Status, error) {
	cfg, err := s.store.GetOpenClawConfig(ctx, workspaceID)
	if err != nil {
		return &Status{Status: StatusMisconfigured, Mode: ModeMock, Error: "OpenClaw not configured"}, nil
	}

	if cfg.Mode == ModeMock {
		health, _ := s.mock.Health(ctx)
		return &Status{Status: StatusConnected, Mode: ModeMock, Version: health.Version, LatencyMs: 1}, nil
	}

	if cfg.BaseURL == "" || cfg.TokenEncrypted == "" {
		return &Status{Status: StatusMisconfigured, Mode: ModeReal, Error: "Base URL or token not set"}, nil
	}

	token, err := s.token(cfg)
	if err != nil {
		return &Status{Status: StatusMisconfigured, Mode: ModeReal, Error: err.Error()}, nil
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	start := time.Now()
	health := &HealthResponse{}
	err = s.doJSON(probeCtx, http.MethodGet, cfg.BaseURL+cfg.HealthPath, token, nil, health, false)
	latency := time.Since(start).Milliseconds()

	latencyInt := int(latency)
	if err != nil {
		if updateErr := s.store.UpdateOpenClawStatus(ctx, workspaceID, StatusDisconnected, &latencyInt); updateErr != nil {
			return nil, updateErr
		}
		return &Status{Status: StatusDisconnected, Mode: ModeReal, LatencyMs: latency, Error: err.Error()}, nil
	}

	if err := s.store.UpdateOpenClawStatus(ctx, workspaceID, StatusConnected, &latencyInt); err != nil {
		return nil, err
	}
	return &Status{Status: StatusConnected, Mode: ModeReal, LatencyMs: latency, Version: health.Version}, nil
}
