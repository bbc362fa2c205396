package usecase

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"strings"
	"text/template"

	"github.com/compozy/changelog/internal/domain"
)

// PreparePRBodyUseCase renders the body of the release pull request.
type PreparePRBodyUseCase struct{}

var prBodyTmpl = template.Must(template.New("pr-body").Option("missingkey=error").Parse(prBodyTemplate))

// markdownUnescapes restores characters html.EscapeString encodes that are
// harmless in headings and list items. Angle brackets stay escaped.
var markdownUnescapes = strings.NewReplacer("&#34;", `"`, "&#39;", "'", "&amp;", "&")

// sanitizeNotes escapes release notes so they cannot carry HTML, keeping the
// Markdown structure readable.
func sanitizeNotes(notes string) string {
	if notes == "" {
		return ""
	}
	lines := strings.Split(html.EscapeString(notes), "\n")
	for i, line := range lines {
		if quoted, ok := strings.CutPrefix(line, "&gt; "); ok {
			lines[i] = "> " + quoted
			continue
		}
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") {
			lines[i] = markdownUnescapes.Replace(line)
		}
	}
	return strings.Join(lines, "\n")
}

// Execute runs the use case.
func (uc *PreparePRBodyUseCase) Execute(_ context.Context, plan *domain.ReleasePlan) (string, error) {
	if plan == nil {
		return "", fmt.Errorf("release plan cannot be nil")
	}
	if plan.Version == nil {
		return "", fmt.Errorf("release version cannot be nil")
	}
	label := plan.Label
	if label == "" {
		label = plan.Version.String()
	}
	data := struct {
		Version string
		Date    string
		Tag     string
		Notes   string
	}{
		Version: html.EscapeString(label),
		Date:    html.EscapeString(plan.Date),
		Tag:     html.EscapeString(plan.TagName),
		Notes:   sanitizeNotes(plan.Notes),
	}
	var buf bytes.Buffer
	if err := prBodyTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute PR body template: %w", err)
	}
	return buf.String(), nil
}

const prBodyTemplate = `## Release {{.Version}}

This PR promotes the unreleased changes to {{.Version}}{{if .Date}} ({{.Date}}){{end}}.
{{- if .Tag}} Merging it is followed by the {{.Tag}} tag.{{end}}

### Release notes

{{if .Notes}}{{.Notes}}{{else}}_No entries._{{end}}
`
