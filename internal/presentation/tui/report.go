package tui

import (
	"fmt"
	"io"

	"github.com/aretw0/nodegraph/internal/runtime"
	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/aretw0/nodegraph/pkg/schema"
	"github.com/muesli/termenv"
)

// Printer writes evaluation results with terminal colors when the output supports them.
type Printer struct {
	out *termenv.Output
}

// NewPrinter creates a printer for w. Colors are detected from w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{out: termenv.NewOutput(w)}
}

// NewPlainPrinter creates a printer that never emits escape codes.
func NewPlainPrinter(w io.Writer) *Printer {
	return &Printer{out: termenv.NewOutput(w, termenv.WithProfile(termenv.Ascii))}
}

func (p *Printer) color(s, hex string) termenv.Style {
	return p.out.String(s).Foreground(p.out.Color(hex))
}

// Report prints the calculated nodes with their outputs, then the stuck nodes with reasons.
func (p *Printer) Report(g *domain.Graph, r *runtime.Report) {
	header := fmt.Sprintf("%s: %d calculated, %d stuck, %d pass(es)", r.Scope, len(r.Calculated), len(r.Stuck), r.Passes)
	if r.Origin != "" {
		header = fmt.Sprintf("%s from %q: %d calculated, %d stuck, %d pass(es)", r.Scope, r.Origin, len(r.Calculated), len(r.Stuck), r.Passes)
	}
	fmt.Fprintln(p.out, p.color(header, "#94a3b8").Bold())

	for _, id := range r.Calculated {
		fmt.Fprintf(p.out, "  %s %s%s\n", p.color("✓", "#22c55e"), g.Name(id), p.outputs(g, id))
	}
	for _, s := range r.Stuck {
		fmt.Fprintf(p.out, "  %s %s %s\n",
			p.color("✗", "#ef4444"),
			s.Name,
			p.color("("+s.Reason+")", "#f97316").Italic(),
		)
	}
}

func (p *Printer) outputs(g *domain.Graph, id domain.NodeID) string {
	s := ""
	for _, pid := range g.Outputs(id) {
		port, _ := g.Port(pid)
		v, ok := port.Value()
		if !ok || port.Type == schema.Transition {
			continue
		}
		s += fmt.Sprintf(" %s=%v", port.Name, v)
	}
	return s
}

// Errorf prints a red error line.
func (p *Printer) Errorf(format string, args ...any) {
	fmt.Fprintln(p.out, p.color(fmt.Sprintf(format, args...), "#ef4444"))
}

// Infof prints a dimmed informational line.
func (p *Printer) Infof(format string, args ...any) {
	fmt.Fprintln(p.out, p.color(fmt.Sprintf(format, args...), "#94a3b8"))
}
