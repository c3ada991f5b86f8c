// Package prompts embeds the model prompt templates used by the research
// agents so the binary ships them without external files.
package prompts

import (
	"embed"
	"fmt"
	"strings"
	"text/template"
)

// FS holds the prompt files. Plain .md files are static system prompts and
// .tmpl files are text/template user prompts.
//
//go:embed templates/*
var FS embed.FS

// Prompt names.
const (
	PlannerSystem     = "planner_system.md"
	PlannerUser       = "planner_user.tmpl"
	SynthesizerSystem = "synthesizer_system.md"
	SynthesizerUser   = "synthesizer_user.tmpl"
	ReportSystem      = "report_system.md"
	ReportUser        = "report_user.tmpl"
)

var templates = template.Must(template.ParseFS(FS, "templates/*.tmpl"))

// System returns a static prompt by name.
func System(name string) string {
	data, err := FS.ReadFile("templates/" + name)
	if err != nil {
		panic(fmt.Sprintf("prompts: missing embedded prompt %s", name))
	}
	return strings.TrimSpace(string(data))
}

// Render executes the named template with data.
func Render(name string, data any) (string, error) {
	var sb strings.Builder
	if err := templates.ExecuteTemplate(&sb, name, data); err != nil {
		return "", fmt.Errorf("prompts: render %s: %w", name, err)
	}
	return strings.TrimSpace(sb.String()), nil
}
