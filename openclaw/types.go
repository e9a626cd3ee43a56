// Package openclaw talks to the OpenClaw automation backend. The same
// interface fronts a deterministic in-process mock and the real HTTP service;
// which one handles a call is decided per workspace by its stored config.
package openclaw

import "errors"

// ErrUpstreamUnavailable is returned when the real backend timed out or kept
// returning non-2xx responses after the retry budget was spent.
var ErrUpstreamUnavailable = errors.New("openclaw upstream unavailable")

// ErrNotConfigured is returned when a workspace has no usable OpenClaw
// configuration for the requested call.
var ErrNotConfigured = errors.New("openclaw not configured")

// Connection statuses reported by Status.
const (
	StatusConnected     = "connected"
	StatusDisconnected  = "disconnected"
	StatusMisconfigured = "misconfigured"
)

// Operating modes.
const (
	ModeMock = "mock"
	ModeReal = "real"
)

type HealthResponse struct {
	Status    string `json:"status"` // "ok" or "error"
	Version   string `json:"version"`
	Timestamp string `json:"timestamp,omitempty"`
}

type JobPayload struct {
	Type   string         `json:"type"`
	TaskID string         `json:"taskId,omitempty"`
	Params map[string]any `json:"params"`
}

type Job struct {
	JobID     string `json:"jobId"`
	Status    string `json:"status"`
	Result    any    `json:"result,omitempty"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"createdAt"`
}

type CommandPayload struct {
	Command string         `json:"command"`
	Params  map[string]any `json:"params"`
}

type CommandResponse struct {
	Success    bool   `json:"success"`
	Data       any    `json:"data,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"durationMs"`
}

// Status summarizes connectivity for the UI badge.
type Status struct {
	Status    string `json:"status"`
	Mode      string `json:"mode"`
	LatencyMs int64  `json:"latencyMs,omitempty"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}
