package openclaw

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/openclaw/clawboard/database"
)

// Command Center command names.
const (
	CmdHealth         = "openclaw.health"
	CmdRepoScan       = "repo.scan"
	CmdMarkdownIndex  = "md.index"
	CmdRoutesValidate = "routes.validate"
	CmdTestsRun       = "tests.run"
	CmdWiringExport   = "wiring.export"
	CmdTaskSync       = "task.sync"
)

// ParseCommand validates a command name against the registry.
func ParseCommand(name string) (string, error) {
	for _, def := range Registry {
		if def.Name == name {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: unknown command %q", database.ErrValidation, name)
}

// Schema is a JSON-schema fragment describing a command's request or
// response shape. Schemas are advisory documentation for operators wiring
// the bot; the dispatcher does not enforce them.
type Schema map[string]any

// CommandDefinition describes one Command Center command for the published
// tools contract.
type CommandDefinition struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	Endpoint       string `json:"endpoint"`
	Method         string `json:"method"`
	RequestSchema  Schema `json:"requestSchema"`
	ResponseSchema Schema `json:"responseSchema"`
}

func executeRequestSchema(name string, params Schema) Schema {
	props := Schema{
		"command": Schema{"type": "string", "const": name},
	}
	required := []string{"command"}
	if params != nil {
		props["params"] = params
		required = append(required, "params")
	} else {
		props["params"] = Schema{
			"type":        "object",
			"properties":  Schema{},
			"description": "No parameters required",
		}
	}
	return Schema{
		"type":       "object",
		"required":   required,
		"properties": props,
	}
}

// Registry lists every command the Command Center accepts. It is the single
// source of truth for the tools contract endpoint and the wiring pack.
var Registry = []CommandDefinition{
	{
		Name:          CmdHealth,
		Description:   "Check connectivity and system status of the OpenClaw integration",
		Endpoint:      "/api/openclaw/health",
		Method:        "GET",
		RequestSchema: Schema{},
		ResponseSchema: Schema{
			"type":     "object",
			"required": []string{"status", "mode"},
			"properties": Schema{
				"status": Schema{
					"type":        "string",
					"enum":        []string{"connected", "disconnected", "misconfigured"},
					"description": "Current connection status",
				},
				"mode": Schema{
					"type":        "string",
					"enum":        []string{"mock", "real"},
					"description": "Operating mode",
				},
				"latencyMs": Schema{"type": "number", "description": "Round-trip latency in milliseconds"},
				"version":   Schema{"type": "string", "description": "OpenClaw server version string"},
				"error":     Schema{"type": "string", "description": "Error message if status is not connected"},
			},
		},
	},
	{
		Name:        CmdRepoScan,
		Description: "Scan a repository and return a summary of its structure, languages, issues, and recommendations",
		Endpoint:    "/api/command-center/execute",
		Method:      "POST",
		RequestSchema: executeRequestSchema(CmdRepoScan, Schema{
			"type":     "object",
			"required": []string{"repoPath", "focus"},
			"properties": Schema{
				"repoPath": Schema{
					"type":        "string",
					"description": "Absolute or relative path to the repository root",
				},
				"focus": Schema{
					"type":        "string",
					"enum":        []string{"structure", "security", "performance", "all"},
					"description": "Area of analysis to focus on",
				},
			},
		}),
		ResponseSchema: Schema{
			"type":     "object",
			"required": []string{"files", "languages", "summary", "issues", "recommendations"},
			"properties": Schema{
				"files":     Schema{"type": "number", "description": "Total number of files scanned"},
				"languages": Schema{"type": "array", "items": Schema{"type": "string"}, "description": "Detected programming languages"},
				"summary":   Schema{"type": "string", "description": "Human-readable summary of the repository"},
				"issues":    Schema{"type": "array", "items": Schema{"type": "string"}, "description": "Identified issues or warnings"},
				"recommendations": Schema{
					"type": "array", "items": Schema{"type": "string"},
					"description": "Actionable improvement suggestions",
				},
			},
		},
	},
	{
		Name:        CmdMarkdownIndex,
		Description: "Index all markdown documentation files under a given root directory",
		Endpoint:    "/api/command-center/execute",
		Method:      "POST",
		RequestSchema: executeRequestSchema(CmdMarkdownIndex, Schema{
			"type":     "object",
			"required": []string{"mdRoot", "includePatterns"},
			"properties": Schema{
				"mdRoot": Schema{
					"type":        "string",
					"description": "Root directory to search for markdown files",
				},
				"includePatterns": Schema{
					"type":        "array",
					"items":       Schema{"type": "string"},
					"description": "Glob patterns to include, e.g. ['**/*.md', '**/*.mdx']",
				},
			},
		}),
		ResponseSchema: Schema{
			"type":     "object",
			"required": []string{"documents", "index"},
			"properties": Schema{
				"documents": Schema{"type": "number", "description": "Total number of markdown documents found"},
				"index": Schema{
					"type": "array",
					"items": Schema{
						"type":     "object",
						"required": []string{"path", "title", "sections"},
						"properties": Schema{
							"path":     Schema{"type": "string", "description": "Relative path to the document"},
							"title":    Schema{"type": "string", "description": "Extracted document title from first H1 or filename"},
							"sections": Schema{"type": "number", "description": "Number of heading sections in the document"},
						},
					},
				},
			},
		},
	},
	{
		Name:        CmdRoutesValidate,
		Description: "Validate a set of API routes by checking availability and expected behavior",
		Endpoint:    "/api/command-center/execute",
		Method:      "POST",
		RequestSchema: executeRequestSchema(CmdRoutesValidate, Schema{
			"type":     "object",
			"required": []string{"baseUrl", "routesList"},
			"properties": Schema{
				"baseUrl": Schema{
					"type":        "string",
					"description": "Base URL of the application, e.g. 'http://localhost:3000'",
				},
				"routesList": Schema{
					"type":        "array",
					"items":       Schema{"type": "string"},
					"description": "List of route paths to validate",
				},
			},
		}),
		ResponseSchema: Schema{
			"type":     "object",
			"required": []string{"total", "valid", "invalid", "routes"},
			"properties": Schema{
				"total":   Schema{"type": "number", "description": "Total number of routes checked"},
				"valid":   Schema{"type": "number", "description": "Number of valid/reachable routes"},
				"invalid": Schema{"type": "number", "description": "Number of invalid/unreachable routes"},
				"routes": Schema{
					"type": "array",
					"items": Schema{
						"type":     "object",
						"required": []string{"path", "methods", "status"},
						"properties": Schema{
							"path":    Schema{"type": "string", "description": "The route path"},
							"methods": Schema{"type": "array", "items": Schema{"type": "string"}, "description": "Supported HTTP methods"},
							"status": Schema{
								"type":        "string",
								"enum":        []string{"valid", "invalid", "timeout", "error"},
								"description": "Validation result",
							},
						},
					},
				},
			},
		},
	},
	{
		Name:        CmdTestsRun,
		Description: "Execute a set of test commands and return aggregated pass/fail results",
		Endpoint:    "/api/command-center/execute",
		Method:      "POST",
		RequestSchema: executeRequestSchema(CmdTestsRun, Schema{
			"type":     "object",
			"required": []string{"commands"},
			"properties": Schema{
				"commands": Schema{
					"type":        "array",
					"items":       Schema{"type": "string"},
					"description": "Shell commands to execute for testing, e.g. ['npx playwright test']",
				},
			},
		}),
		ResponseSchema: Schema{
			"type":     "object",
			"required": []string{"total", "passed", "failed", "duration", "results"},
			"properties": Schema{
				"total":    Schema{"type": "number", "description": "Total number of test cases"},
				"passed":   Schema{"type": "number", "description": "Number of passing tests"},
				"failed":   Schema{"type": "number", "description": "Number of failing tests"},
				"duration": Schema{"type": "string", "description": "Total test execution time, e.g. '3.2s'"},
				"results": Schema{
					"type": "array",
					"items": Schema{
						"type":     "object",
						"required": []string{"name", "status"},
						"properties": Schema{
							"name": Schema{"type": "string", "description": "Test case name"},
							"status": Schema{
								"type":        "string",
								"enum":        []string{"passed", "failed", "skipped"},
								"description": "Individual test result",
							},
						},
					},
				},
			},
		},
	},
	{
		Name:          CmdWiringExport,
		Description:   "Export the wiring pack ZIP containing system prompts, tool contracts, and configuration files",
		Endpoint:      "/api/command-center/execute",
		Method:        "POST",
		RequestSchema: executeRequestSchema(CmdWiringExport, nil),
		ResponseSchema: Schema{
			"type":     "object",
			"required": []string{"redirect"},
			"properties": Schema{
				"redirect": Schema{
					"type":        "string",
					"description": "URL path to download the wiring pack ZIP file",
				},
			},
		},
	},
	{
		Name:          CmdTaskSync,
		Description:   "Synchronize Kanban tasks assigned to openclaw_bot with their corresponding OpenClaw jobs",
		Endpoint:      "/api/command-center/execute",
		Method:        "POST",
		RequestSchema: executeRequestSchema(CmdTaskSync, nil),
		ResponseSchema: Schema{
			"type":     "object",
			"required": []string{"synced", "tasks"},
			"properties": Schema{
				"synced": Schema{"type": "number", "description": "Number of tasks synchronized"},
				"tasks": Schema{
					"type": "array",
					"items": Schema{
						"type":     "object",
						"required": []string{"taskId", "jobId", "status"},
						"properties": Schema{
							"taskId": Schema{"type": "string", "description": "The Kanban task ID"},
							"jobId":  Schema{"type": "string", "description": "The corresponding OpenClaw job ID"},
							"status": Schema{
								"type":        "string",
								"enum":        []string{"synced", "conflict", "orphaned"},
								"description": "Sync result status",
							},
						},
					},
				},
			},
		},
	},
}

// Definition returns the registry entry for a command name.
func Definition(name string) (CommandDefinition, bool) {
	for _, def := range Registry {
		if def.Name == name {
			return def, true
		}
	}
	return CommandDefinition{}, false
}

// ExecuteResult is the outcome of one dispatched command.
type ExecuteResult struct {
	Success    bool   `json:"success"`
	Data       any    `json:"data,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"durationMs"`
}

// Dispatcher routes Command Center commands to their handlers and records
// every dispatch in the command log, successes and failures alike.
type Dispatcher struct {
	store      *database.Store
	client     Client
	reconciler *Reconciler
}

func NewDispatcher(store *database.Store, client Client, reconciler *Reconciler) *Dispatcher {
	return &Dispatcher{store: store, client: client, reconciler: reconciler}
}

// Execute runs one command for a workspace. A failed command is a logged
// result, not an error; Execute itself errors only on unknown command names.
func (d *Dispatcher) Execute(ctx context.Context, workspaceID, command string, params map[string]any) (*ExecuteResult, error) {
	if _, err := ParseCommand(command); err != nil {
		return nil, err
	}

	start := time.Now()

	var data any
	var cmdErr string
	success := true

	switch command {
	case CmdHealth:
		status, err := d.client.Status(ctx, workspaceID)
		if err != nil {
			success = false
			cmdErr = err.Error()
		} else {
			data = status
		}
	case CmdWiringExport:
		data = map[string]string{"redirect": "/api/openclaw/wiring-pack"}
	case CmdTaskSync:
		report, err := d.reconciler.Reconcile(ctx, workspaceID)
		if err != nil {
			success = false
			cmdErr = err.Error()
		} else {
			data = report
		}
	default:
		resp, err := d.client.SendCommand(ctx, workspaceID, CommandPayload{
			Command: command,
			Params:  params,
		})
		if err != nil {
			success = false
			cmdErr = err.Error()
		} else {
			data = resp.Data
			success = resp.Success
			if !resp.Success {
				cmdErr = resp.Error
			}
		}
	}

	durationMs := time.Since(start).Milliseconds()
	d.logCommand(ctx, workspaceID, command, params, data, cmdErr, success, durationMs)

	return &ExecuteResult{
		Success:    success,
		Data:       data,
		Error:      cmdErr,
		DurationMs: durationMs,
	}, nil
}

func (d *Dispatcher) logCommand(ctx context.Context, workspaceID, command string, params map[string]any, data any, cmdErr string, success bool, durationMs int64) {
	var input *string
	if len(params) > 0 {
		if encoded, err := json.Marshal(params); err == nil {
			s := string(encoded)
			input = &s
		}
	}

	var output *string
	if data != nil {
		if encoded, err := json.Marshal(data); err == nil {
			s := string(encoded)
			output = &s
		}
	} else if cmdErr != "" {
		output = &cmdErr
	}

	status := "success"
	if !success {
		status = "error"
	}

	entry := database.CommandLog{
		WorkspaceID: workspaceID,
		Command:     command,
		Input:       input,
		Output:      output,
		Status:      status,
		DurationMs:  int(durationMs),
	}
	if err := d.store.AppendCommandLog(ctx, entry); err != nil {
		// Logging must not fail the command itself.
		log.Printf("Failed to record command log for %s: %v", command, err)
	}
}
