package domain

import (
	"fmt"
	"sort"
)

// Severity classifies lint issues.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a single lint finding.
type Issue struct {
	Rule     string   `json:"rule" yaml:"rule"`
	Severity Severity `json:"severity" yaml:"severity"`
	Line     int      `json:"line" yaml:"line"`
	Message  string   `json:"message" yaml:"message"`
}

func (i Issue) String() string {
	if i.Line > 0 {
		return fmt.Sprintf("%d: %s: %s (%s)", i.Line, i.Severity, i.Message, i.Rule)
	}
	return fmt.Sprintf("%s: %s (%s)", i.Severity, i.Message, i.Rule)
}

// Report collects the issues found in one changelog file.
type Report struct {
	File   string  `json:"file" yaml:"file"`
	Issues []Issue `json:"issues" yaml:"issues"`
}

// Add appends an issue.
func (r *Report) Add(rule string, severity Severity, line int, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{
		Rule:     rule,
		Severity: severity,
		Line:     line,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Sort orders issues by line, then rule.
func (r *Report) Sort() {
	sort.SliceStable(r.Issues, func(i, j int) bool {
		if r.Issues[i].Line != r.Issues[j].Line {
			return r.Issues[i].Line < r.Issues[j].Line
		}
		return r.Issues[i].Rule < r.Issues[j].Rule
	})
}

// Count returns the number of issues with the given severity.
func (r *Report) Count(severity Severity) int {
	n := 0
	for _, i := range r.Issues {
		if i.Severity == severity {
			n++
		}
	}
	return n
}

// HasErrors reports whether any error-level issue was found.
func (r *Report) HasErrors() bool {
	return r.Count(SeverityError) > 0
}

// Failed reports whether the report should fail a run. In strict mode
// warnings fail too.
func (r *Report) Failed(strict bool) bool {
	if strict {
		return len(r.Issues) > 0
	}
	return r.HasErrors()
}
