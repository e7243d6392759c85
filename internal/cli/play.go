package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/nodegraph"
	"github.com/aretw0/nodegraph/internal/presentation/tui"
	"github.com/aretw0/nodegraph/pkg/dialog"
	"github.com/aretw0/nodegraph/pkg/session"
	"golang.org/x/term"
)

// PlayOptions configures an interactive conversation.
type PlayOptions struct {
	DialogID int
	Reset    bool

	// SessionID plays a persisted session through Manager instead of the engine's own.
	SessionID string
	Manager   *session.Manager

	// Headless drops the banner, the input prompt and markdown rendering.
	Headless bool
	// JSON exchanges views and symbols as JSON lines.
	JSON bool

	Input  io.Reader
	Output io.Writer
}

// Play runs a conversation over the terminal until it finishes or the input ends.
// Rich rendering is used only when both ends are terminals.
func Play(ctx context.Context, engine *nodegraph.Engine, opts PlayOptions) error {
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	headless := opts.Headless || opts.JSON || !isTerminal(opts.Input) || !isTerminal(opts.Output)
	if !headless {
		tui.PrintBanner(opts.Output)
	}

	var player nodegraph.Player = engine
	if opts.SessionID != "" {
		if opts.Manager == nil {
			return fmt.Errorf("session %q needs a session store", opts.SessionID)
		}
		player = engine.Stored(opts.Manager, opts.SessionID)
		if !headless {
			PrintSystemMessage(opts.Output, "Session '%s' active.", opts.SessionID)
		}
	}

	r := nodegraph.NewRunner(opts.Input, opts.Output)
	r.Headless = headless
	r.JSON = opts.JSON
	if !headless {
		r.Renderer = markdownRenderer()
	}

	err := r.Run(ctx, player, opts.DialogID, opts.Reset)
	if err != nil && IsInterrupted(err) {
		return nil
	}
	return err
}

func markdownRenderer() nodegraph.ContentRenderer {
	render := tui.NewRenderer()
	return func(p dialog.Prompt) (string, error) {
		md, err := tui.PromptMarkdown(p)
		if err != nil {
			return "", err
		}
		return render(md)
	}
}

func isTerminal(v any) bool {
	f, ok := v.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}
