package openclaw

import (
	"context"
	"fmt"
	"time"
)

// MockClient returns deterministic canned responses with a fixed simulated
// latency, so the Command Center can be exercised without a real backend.
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func delay(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (m *MockClient) Health(ctx context.Context) (*HealthResponse, error) {
	if err := delay(ctx, 150*time.Millisecond); err != nil {
		return nil, err
	}
	return &HealthResponse{
		Status:    "ok",
		Version:   "0.1.0-mock",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func (m *MockClient) CreateJob(ctx context.Context, payload JobPayload) (*Job, error) {
	if err := delay(ctx, 200*time.Millisecond); err != nil {
		return nil, err
	}
	return &Job{
		JobID:  fmt.Sprintf("mock-job-%d", time.Now().UnixMilli()),
		Status: "completed",
		Result: map[string]any{
			"message": fmt.Sprintf("Mock job completed for type: %s", payload.Type),
			"params":  payload.Params,
		},
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func (m *MockClient) GetJob(ctx context.Context, jobID string) (*Job, error) {
	if err := delay(ctx, 100*time.Millisecond); err != nil {
		return nil, err
	}
	return &Job{
		JobID:     jobID,
		Status:    "completed",
		Result:    map[string]any{"message": "Mock job result"},
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func (m *MockClient) CancelJob(ctx context.Context, jobID string) (bool, error) {
	if err := delay(ctx, 100*time.Millisecond); err != nil {
		return false, err
	}
	return true, nil
}

func (m *MockClient) SendCommand(ctx context.Context, payload CommandPayload) (*CommandResponse, error) {
	if err := delay(ctx, 300*time.Millisecond); err != nil {
		return nil, err
	}

	data, ok := mockResponses[payload.Command]
	if !ok {
		data = map[string]any{"message": fmt.Sprintf("Mock response for %s", payload.Command)}
	}
	return &CommandResponse{Success: true, Data: data, DurationMs: 300}, nil
}

var mockResponses = map[string]any{
	"repo.scan": map[string]any{
		"files":     42,
		"languages": []string{"Go", "CSS", "JSON"},
		"summary":   "Web application with sqlite storage, 42 files scanned.",
		"issues":    []string{},
		"recommendations": []string{
			"Add unit tests for API routes",
			"Consider adding rate limiting",
		},
	},
	"md.index": map[string]any{
		"documents": 5,
		"index": []map[string]any{
			{"path": "README.md", "title": "OpenClaw Command Center", "sections": 8},
			{"path": "docs/DEPLOYMENT_ONPREM.md", "title": "On-Prem Deployment", "sections": 5},
			{"path": "docs/OPENCLAW_WIRING_GUIDE.md", "title": "Wiring Guide", "sections": 6},
			{"path": "docs/CONTRACTS.md", "title": "API Contracts", "sections": 4},
			{"path": "docs/TROUBLESHOOTING.md", "title": "Troubleshooting", "sections": 3},
		},
	},
	"routes.validate": map[string]any{
		"total":   15,
		"valid":   15,
		"invalid": 0,
		"routes": []map[string]any{
			{"path": "/api/boards", "methods": []string{"GET", "POST"}, "status": "valid"},
			{"path": "/api/tasks/{taskId}", "methods": []string{"GET", "PUT", "DELETE"}, "status": "valid"},
			{"path": "/api/openclaw/contract", "methods": []string{"GET"}, "status": "valid"},
			{"path": "/api/openclaw/webhook/job-status", "methods": []string{"POST"}, "status": "valid"},
		},
	},
	"tests.run": map[string]any{
		"total":    8,
		"passed":   8,
		"failed":   0,
		"duration": "3.2s",
		"results": []map[string]any{
			{"name": "auth flow", "status": "passed"},
			{"name": "board CRUD", "status": "passed"},
			{"name": "task drag-drop", "status": "passed"},
			{"name": "command execution", "status": "passed"},
			{"name": "openclaw health", "status": "passed"},
			{"name": "wiring pack export", "status": "passed"},
			{"name": "webhook verification", "status": "passed"},
			{"name": "contract schema", "status": "passed"},
		},
	},
}
