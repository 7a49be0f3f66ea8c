// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"roletodo/internal/service"
)

const (
	// Separator is the rule printed around dashboard headers.
	Separator = "------------"

	// DescriptionPreview is how many runes of a description the list shows.
	DescriptionPreview = 50
)

// Printer writes dashboard output. Colour is only emitted when w is a
// terminal.
type Printer struct {
	w       io.Writer
	done    lipgloss.Style
	pending lipgloss.Style
	header  lipgloss.Style
}

// NewPrinter creates a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:       w,
		done:    r.NewStyle().Foreground(lipgloss.Color("2")),
		pending: r.NewStyle().Foreground(lipgloss.Color("3")),
		header:  r.NewStyle().Bold(true),
	}
}

// Header prints a section title between separators.
func (p *Printer) Header(title string) {
	fmt.Fprintln(p.w, Separator)
	fmt.Fprintln(p.w, p.header.Render(title))
	fmt.Fprintln(p.w, Separator)
}

// Task prints one list row.
// Format: "{SERIAL:>4}  [x] {TITLE}  {DESCRIPTION PREVIEW}"
func (p *Printer) Task(task service.Task) {
	line := fmt.Sprintf("%4d  %s %s", task.Serial, p.mark(task.Completed), title(task.Title))
	if desc := normalize(task.Description); desc != "" {
		line += "  " + Truncate(desc, DescriptionPreview)
	}
	fmt.Fprintln(p.w, line)
}

// TaskDetail prints every field of a task, including the full description.
func (p *Printer) TaskDetail(task service.Task) {
	fmt.Fprintf(p.w, "Task #%d\n", task.Serial)
	fmt.Fprintf(p.w, "  id:          %s\n", task.ID)
	fmt.Fprintf(p.w, "  title:       %s\n", title(task.Title))
	fmt.Fprintf(p.w, "  status:      %s\n", p.status(task.Completed))
	fmt.Fprintln(p.w, "  description:")
	for _, l := range strings.Split(task.Description, "\n") {
		fmt.Fprintf(p.w, "    %s\n", l)
	}
}

// Summary prints the completion counter.
func (p *Printer) Summary(completed, total int) {
	fmt.Fprintf(p.w, "%d of %d tasks completed\n", completed, total)
}

// Empty prints the placeholder for an empty list.
func (p *Printer) Empty() {
	fmt.Fprintln(p.w, "No tasks yet. Add one with: roletodo add --desc <description> <title>")
}

func (p *Printer) mark(completed bool) string {
	if completed {
		return p.done.Render("[x]")
	}
	return p.pending.Render("[ ]")
}

func (p *Printer) status(completed bool) string {
	if completed {
		return p.done.Render("completed")
	}
	return p.pending.Render("pending")
}

// Truncate shortens s to n runes, appending "..." when anything was cut.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

func title(s string) string {
	if s = normalize(s); s == "" {
		return "(untitled)"
	}
	return s
}

// normalize replaces newlines with spaces and trims.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
