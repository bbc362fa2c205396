package parser

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/compozy/changelog/internal/domain"
)

// Render writes cl in canonical form.
func Render(w io.Writer, cl *domain.Changelog) error {
	bw := bufio.NewWriter(w)
	title := cl.Title
	if title == "" {
		title = domain.DefaultTitle
	}
	bw.WriteString("# " + title + "\n")
	if len(cl.Preamble) > 0 {
		bw.WriteString("\n")
		writeLines(bw, cl.Preamble)
	}
	if len(cl.Stray) > 0 {
		bw.WriteString("\n")
		for _, e := range cl.Stray {
			if strings.HasPrefix(e.Text, "### ") {
				bw.WriteString(e.Text + "\n")
				continue
			}
			writeEntry(bw, e)
		}
	}
	for _, r := range cl.Releases {
		bw.WriteString("\n")
		WriteRelease(bw, r, true)
	}
	if len(cl.Links) > 0 {
		bw.WriteString("\n")
		for _, l := range cl.Links {
			bw.WriteString("[" + l.Label + "]: " + l.URL + "\n")
		}
	}
	return bw.Flush()
}

// RenderString renders cl to a string.
func RenderString(cl *domain.Changelog) string {
	var buf bytes.Buffer
	// Writes to a bytes.Buffer cannot fail.
	_ = Render(&buf, cl)
	return buf.String()
}

// WriteRelease writes one release. The "## " header is omitted when
// withHeader is false, which is how release notes are produced.
func WriteRelease(w io.StringWriter, r *domain.Release, withHeader bool) {
	blank := false
	if withHeader {
		w.WriteString("## " + r.Heading() + "\n")
		blank = true
	}
	sep := func() {
		if blank {
			w.WriteString("\n")
		}
		blank = true
	}
	if len(r.Notes) > 0 {
		sep()
		writeLines(w, r.Notes)
	}
	if len(r.Loose) > 0 {
		sep()
		for _, e := range r.Loose {
			writeEntry(w, e)
		}
	}
	for _, s := range r.Sections {
		sep()
		w.WriteString("### " + string(s.Category) + "\n")
		if len(s.Entries) > 0 {
			w.WriteString("\n")
			for _, e := range s.Entries {
				writeEntry(w, e)
			}
		}
		if len(s.Trailer) > 0 {
			w.WriteString("\n")
			writeLines(w, s.Trailer)
		}
	}
}

// ReleaseNotes renders the body of r without its header.
func ReleaseNotes(r *domain.Release) string {
	var b strings.Builder
	WriteRelease(&b, r, false)
	return strings.TrimRight(b.String(), "\n")
}

func writeLines(w io.StringWriter, lines []string) {
	for _, l := range lines {
		w.WriteString(l + "\n")
	}
}

func writeEntry(w io.StringWriter, e domain.Entry) {
	lines := strings.Split(e.Text, "\n")
	if lines[0] == "" {
		w.WriteString("-\n")
	} else {
		w.WriteString("- " + lines[0] + "\n")
	}
	for _, l := range lines[1:] {
		w.WriteString("  " + l + "\n")
	}
}
