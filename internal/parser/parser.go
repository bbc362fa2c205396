// Package parser reads and writes changelogs in the Keep a Changelog layout.
package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/compozy/changelog/internal/domain"
)

var (
	// ## [1.2.3] - 2024-01-01 [YANKED]
	releaseHeaderRegex = regexp.MustCompile(
		`^\[?([^\]\s]+)\]?(?:\s+[-–—]\s+(\S+))?(\s+\[YANKED\])?\s*$`,
	)
	linkDefinitionRegex = regexp.MustCompile(`^\[([^\]]+)\]:\s*(\S+)\s*$`)
	bulletRegex         = regexp.MustCompile(`^[-*+](?:\s+(.*))?$`)
)

// Options tune how headers are classified.
type Options struct {
	// UnreleasedLabels are release labels treated as the placeholder for
	// upcoming changes. Defaults to domain.DefaultUnreleasedLabels.
	UnreleasedLabels []string
}

type state struct {
	opts    Options
	cl      *domain.Changelog
	release *domain.Release
	section *domain.Section
	// entry is the entry continuation lines attach to.
	entry *domain.Entry
	// pendingBlank holds blank lines seen inside notes or preamble, flushed
	// only when more text follows.
	pendingBlank int
}

// Parse reads a changelog. It only fails on read errors: malformed content is
// kept in the model for the linter to report.
func Parse(r io.Reader, opts Options) (*domain.Changelog, error) {
	if len(opts.UnreleasedLabels) == 0 {
		opts.UnreleasedLabels = domain.DefaultUnreleasedLabels
	}
	st := &state{opts: opts, cl: &domain.Changelog{}}
	br := bufio.NewReader(r)
	lineNo := 0
	for {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to read changelog: %w", err)
		}
		if line != "" {
			lineNo++
			st.consume(strings.TrimRight(line, " \t\r\n"), lineNo)
		}
		if err != nil {
			break
		}
	}
	if st.cl.Title == "" {
		st.cl.Title = domain.DefaultTitle
	}
	return st.cl, nil
}

// ParseString is a convenience wrapper around Parse.
func ParseString(s string, opts Options) (*domain.Changelog, error) {
	return Parse(strings.NewReader(s), opts)
}

func (st *state) consume(line string, lineNo int) {
	switch {
	case strings.HasPrefix(line, "### "):
		st.startSection(strings.TrimSpace(line[4:]), lineNo)
	case strings.HasPrefix(line, "## "):
		st.startRelease(strings.TrimSpace(line[3:]), lineNo)
	case strings.HasPrefix(line, "# ") && st.cl.Title == "" && st.release == nil:
		st.cl.Title = strings.TrimSpace(line[2:])
	case linkDefinitionRegex.MatchString(line):
		m := linkDefinitionRegex.FindStringSubmatch(line)
		st.cl.Links = append(st.cl.Links, domain.Link{Label: m[1], URL: m[2]})
		st.entry = nil
	case strings.TrimSpace(line) == "":
		st.pendingBlank++
	case st.entry != nil && isContinuation(line):
		st.entry.Text += "\n" + strings.TrimSpace(line)
		st.pendingBlank = 0
	case bulletRegex.MatchString(line):
		text := strings.TrimSpace(bulletRegex.FindStringSubmatch(line)[1])
		st.addEntry(domain.Entry{Text: text, Line: lineNo})
	default:
		st.addText(line)
	}
}

func isContinuation(line string) bool {
	return strings.HasPrefix(line, "  ") || strings.HasPrefix(line, "\t")
}

func (st *state) startRelease(header string, lineNo int) {
	release := &domain.Release{Line: lineNo}
	m := releaseHeaderRegex.FindStringSubmatch(header)
	if m == nil {
		release.Label = header
	} else {
		release.Label = m[1]
		release.Date = m[2]
		release.Yanked = m[3] != ""
		release.Bracketed = strings.HasPrefix(header, "[")
	}
	if domain.IsUnreleasedLabel(release.Label, st.opts.UnreleasedLabels) {
		release.Unreleased = true
	} else if v, err := domain.NewStrictVersion(release.Label); err == nil {
		release.Version = v
	}
	st.cl.Releases = append(st.cl.Releases, release)
	st.release = release
	st.section = nil
	st.entry = nil
	st.pendingBlank = 0
}

func (st *state) startSection(name string, lineNo int) {
	st.entry = nil
	st.pendingBlank = 0
	category, _ := domain.ParseCategory(name)
	if st.release == nil {
		// A category before any release: remember it so lint can report it.
		st.cl.Stray = append(st.cl.Stray, domain.Entry{Text: "### " + name, Line: lineNo})
		return
	}
	section := &domain.Section{Category: category, Line: lineNo}
	st.release.Sections = append(st.release.Sections, section)
	st.section = section
}

func (st *state) addEntry(entry domain.Entry) {
	st.pendingBlank = 0
	switch {
	case st.release == nil:
		st.cl.Stray = append(st.cl.Stray, entry)
		st.entry = &st.cl.Stray[len(st.cl.Stray)-1]
	case st.section == nil:
		st.release.Loose = append(st.release.Loose, entry)
		st.entry = &st.release.Loose[len(st.release.Loose)-1]
	default:
		st.section.Entries = append(st.section.Entries, entry)
		st.entry = &st.section.Entries[len(st.section.Entries)-1]
	}
}

func (st *state) addText(line string) {
	st.entry = nil
	target := &st.cl.Preamble
	switch {
	case st.section != nil:
		target = &st.section.Trailer
	case st.release != nil:
		target = &st.release.Notes
	}
	if len(*target) > 0 {
		for ; st.pendingBlank > 0; st.pendingBlank-- {
			*target = append(*target, "")
		}
	}
	st.pendingBlank = 0
	*target = append(*target, line)
}
