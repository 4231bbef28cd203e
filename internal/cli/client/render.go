package client

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
)

const defaultWrap = 100

// Renderer prints answers and reference lists to a terminal. Plain mode skips
// markdown styling.
type Renderer struct {
	out   io.Writer
	plain bool
	width int
}

func NewRenderer(out io.Writer, plain bool) *Renderer {
	return &Renderer{out: out, plain: plain, width: defaultWrap}
}

// JSON writes v indented.
func (r *Renderer) JSON(v interface{}) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Markdown renders text through glamour.
func (r *Renderer) Markdown(text string) error {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(r.width)}
	if r.plain {
		opts = append(opts, glamour.WithStandardStyle("notty"))
	} else {
		opts = append(opts, glamour.WithAutoStyle())
	}

	tr, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}
	out, err := tr.Render(text)
	if err != nil {
		return fmt.Errorf("failed to render answer: %w", err)
	}
	_, err = io.WriteString(r.out, out)
	return err
}

// Turn prints an answer followed by its references.
func (r *Renderer) Turn(t *Turn) error {
	if err := r.Markdown(t.Text); err != nil {
		return err
	}
	if t.Kind != "" && t.Kind != "answer" {
		color.New(color.FgYellow).Fprintf(r.out, "(%s)\n", t.Kind)
	}
	if len(t.Unmapped) > 0 {
		color.New(color.FgRed).Fprintf(r.out, "unresolved citations: %s\n", joinInts(t.Unmapped))
	}
	r.References(t.References)
	return nil
}

// References prints one line per reference.
func (r *Renderer) References(refs []Reference) {
	if len(refs) == 0 {
		return
	}
	num := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.Faint)

	fmt.Fprintln(r.out)
	for _, ref := range refs {
		num.Fprintf(r.out, "[%d] ", ref.Number)
		fmt.Fprintf(r.out, "%s ", ref.Prompt)
		dim.Fprintf(r.out, "(%s, %.2f)", ref.Provenance, ref.Score)
		if ref.Link != "" {
			dim.Fprintf(r.out, " %s", ref.Link)
		}
		fmt.Fprintln(r.out)
	}
}

// Specialties prints the catalog, marking the selected code.
func (r *Renderer) Specialties(list []Specialty, selected string) {
	mark := color.New(color.FgGreen, color.Bold)
	for _, sp := range list {
		if sp.Code == selected {
			mark.Fprintf(r.out, "* %-14s %s\n", sp.Code, sp.Label)
			continue
		}
		fmt.Fprintf(r.out, "  %-14s %s\n", sp.Code, sp.Label)
	}
}

func joinInts(in []int) string {
	parts := make([]string, len(in))
	for i, n := range in {
		parts[i] = fmt.Sprintf("[%d]", n)
	}
	return strings.Join(parts, " ")
}
