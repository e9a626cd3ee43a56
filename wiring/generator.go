// Package wiring builds the downloadable wiring pack: the set of markdown
// documents an operator hands to an OpenClaw agent to connect it to the
// Command Center.
package wiring

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openclaw/clawboard/openclaw"
)

//go:embed templates/*.md
var templates embed.FS

// File is one document in the wiring pack.
type File struct {
	Filename string
	Content  string
}

// Generate returns every wiring pack document. The tools contract is
// rendered from the live command registry so it can never drift from what
// the dispatcher actually accepts.
func Generate() ([]File, error) {
	static := []struct {
		filename string
		template string
	}{
		{"SYSTEM_PROMPT_OPENCLAW_COMMAND_CENTER.md", "templates/system_prompt.md"},
		{"JOBS_AND_TASKS_MAPPING.md", "templates/jobs_and_tasks_mapping.md"},
		{"WEBHOOKS.md", "templates/webhooks.md"},
		{"PROMPTS_LIBRARY.md", "templates/prompts_library.md"},
	}

	files := make([]File, 0, len(static)+1)
	for _, doc := range static {
		content, err := templates.ReadFile(doc.template)
		if err != nil {
			return nil, fmt.Errorf("failed to read wiring template %s: %w", doc.template, err)
		}
		files = append(files, File{Filename: doc.filename, Content: string(content)})
	}

	contract, err := renderToolsContract()
	if err != nil {
		return nil, err
	}
	// Keep the contract right after the system prompt.
	files = append(files[:1], append([]File{{Filename: "TOOLS_CONTRACT.md", Content: contract}}, files[1:]...)...)

	return files, nil
}

func renderToolsContract() (string, error) {
	var b strings.Builder

	b.WriteString("# OpenClaw Command Center — Tools Contract\n\n")
	b.WriteString("This document defines the complete API contract for every tool available in the OpenClaw Command Center. ")
	b.WriteString("Each tool includes its name, endpoint, HTTP method, request schema, and response schema.\n")

	for i, def := range openclaw.Registry {
		b.WriteString("\n---\n\n")
		fmt.Fprintf(&b, "## %d. %s\n\n", i+1, def.Name)
		fmt.Fprintf(&b, "**Description**: %s\n\n", def.Description)
		b.WriteString("| Field    | Value |\n")
		b.WriteString("|----------|-------|\n")
		fmt.Fprintf(&b, "| Name     | `%s` |\n", def.Name)
		fmt.Fprintf(&b, "| Endpoint | `%s %s` |\n", def.Method, def.Endpoint)
		fmt.Fprintf(&b, "| Method   | %s |\n\n", def.Method)

		b.WriteString("### Request Schema\n")
		if err := writeSchema(&b, def.RequestSchema); err != nil {
			return "", err
		}
		if len(def.RequestSchema) == 0 {
			b.WriteString("No request body required. This is a simple GET request.\n")
		}

		b.WriteString("\n### Response Schema\n")
		if err := writeSchema(&b, def.ResponseSchema); err != nil {
			return "", err
		}
	}

	b.WriteString("\n---\n\n")
	b.WriteString("## Execute Envelope\n\n")
	b.WriteString("Every `POST /api/command-center/execute` response wraps the tool's data in a common envelope:\n\n")
	b.WriteString("```json\n{\n  \"success\": true,\n  \"data\": { },\n  \"error\": \"present when success is false\",\n  \"durationMs\": 320\n}\n```\n")

	return b.String(), nil
}

func writeSchema(b *strings.Builder, schema openclaw.Schema) error {
	encoded, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render tools contract schema: %w", err)
	}
	b.WriteString("```json\n")
	b.Write(encoded)
	b.WriteString("\n```\n")
	return nil
}
