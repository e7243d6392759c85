package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the nodegraph ASCII banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct{ text, color string }{
		{"                  _                               _     ", "#34d399"},
		{"  _ __   ___   __| | ___  __ _ _ __ __ _ _ __ | |__  ", "#2dd4bf"},
		{" | '_ \\ / _ \\ / _` |/ _ \\/ _` | '__/ _` | '_ \\| '_ \\ ", "#22d3ee"},
		{" | | | | (_) | (_| |  __/ (_| | | | (_| | |_) | | | |", "#38bdf8"},
		{" |_| |_|\\___/ \\__,_|\\___|\\__, |_|  \\__,_| .__/|_| |_|", "#60a5fa"},
		{"                         |___/          |_|          ", "#818cf8"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
