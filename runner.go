package nodegraph

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/nodegraph/internal/presentation/tui"
	"github.com/aretw0/nodegraph/pkg/dialog"
	"github.com/aretw0/nodegraph/pkg/session"
)

// Runner plays one conversation of an Engine over line-based IO.
// This allows for easy testing and integration with different frontends (CLI, TUI, etc).
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Headless bool

	// JSON writes every view as a JSON line and accepts JSON string lines as input.
	JSON bool

	Renderer ContentRenderer
}

// ContentRenderer transforms a prompt before it is written.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(dialog.Prompt) (string, error)

// NewRunner creates a Runner over the given IO.
func NewRunner(in io.Reader, out io.Writer) *Runner {
	return &Runner{Input: in, Output: out}
}

// Player advances conversations. *Engine plays its own session; Engine.Stored
// plays a persisted one.
type Player interface {
	Activate(ctx context.Context, dialogID int, reset bool) (dialog.View, error)
	Input(ctx context.Context, dialogID, symbol int) (dialog.View, error)
}

// Run activates dialogID and feeds it one symbol per input line until the
// conversation finishes or the input ends. Typing "exit" also stops.
// Lines are read with dialog.ParseSymbol; an empty line means Next.
func (r *Runner) Run(ctx context.Context, player Player, dialogID int, reset bool) error {
	if r.Input == nil {
		return fmt.Errorf("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return fmt.Errorf("output writer must be set (use os.Stdout)")
	}
	lines := bufio.NewReader(r.Input)
	enc := json.NewEncoder(r.Output)

	view, err := player.Activate(ctx, dialogID, reset)
	if err != nil {
		return err
	}
	lastShown := ""

	for !view.Finished {
		if r.JSON {
			if err := enc.Encode(view); err != nil {
				return err
			}
		} else if view.Node != lastShown {
			r.show(view)
			lastShown = view.Node
		}

		if !r.Headless && !r.JSON {
			fmt.Fprint(r.Output, "> ")
		}
		text, err := lines.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || text == "") {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("input error: %w", err)
		}
		if r.JSON {
			text = unquoteJSON(text)
		}
		text, err = SanitizeInput(strings.TrimSpace(text))
		if err != nil {
			r.reject(enc, err)
			continue
		}
		if text == "exit" || text == "quit" {
			if !r.JSON {
				fmt.Fprintln(r.Output, "Bye!")
			}
			return nil
		}

		symbol, err := dialog.ParseSymbol(text)
		if err != nil {
			r.reject(enc, err)
			continue
		}
		view, err = player.Input(ctx, dialogID, symbol)
		if err != nil {
			return fmt.Errorf("dialog input failed: %w", err)
		}
	}
	if r.JSON {
		return enc.Encode(view)
	}
	return nil
}

func (r *Runner) reject(enc *json.Encoder, err error) {
	if r.JSON {
		enc.Encode(map[string]string{"error": err.Error()})
		return
	}
	fmt.Fprintln(r.Output, err)
}

// unquoteJSON accepts a JSON string or number line and falls back to the raw text.
func unquoteJSON(line string) string {
	line = strings.TrimSpace(line)
	var s string
	if err := json.Unmarshal([]byte(line), &s); err == nil {
		return s
	}
	return line
}

func (r *Runner) show(view dialog.View) {
	if view.Prompt == nil {
		return
	}
	output := plainPrompt(*view.Prompt)
	if r.Renderer != nil {
		if rendered, err := r.Renderer(*view.Prompt); err == nil {
			output = rendered
		}
	}
	if output = strings.TrimSpace(output); output != "" {
		fmt.Fprintln(r.Output, output)
	}
}

// plainPrompt shows HTML text as markdown so that headless output carries no tags.
func plainPrompt(p dialog.Prompt) string {
	text := p.Text
	if md, err := tui.ToMarkdown(p.Text, p.Format); err == nil {
		text = strings.TrimSpace(md)
	}
	var b strings.Builder
	b.WriteString(text)
	for i, opt := range p.Options {
		fmt.Fprintf(&b, "\n  [%d] %s", i, opt)
	}
	return b.String()
}

// Stored returns a Player bound to the persisted session sessionID.
// Every step loads the session, applies the step and saves it back.
func (e *Engine) Stored(mgr *session.Manager, sessionID string) Player {
	return &storedPlayer{engine: e, mgr: mgr, sessionID: sessionID}
}

type storedPlayer struct {
	engine    *Engine
	mgr       *session.Manager
	sessionID string
}

func (p *storedPlayer) Activate(ctx context.Context, dialogID int, reset bool) (dialog.View, error) {
	return p.step(ctx, dialogID, func(ctx context.Context, s *dialog.Session) error {
		_, err := s.Activate(ctx, dialogID, reset)
		return err
	})
}

func (p *storedPlayer) Input(ctx context.Context, dialogID, symbol int) (dialog.View, error) {
	return p.step(ctx, dialogID, func(ctx context.Context, s *dialog.Session) error {
		_, err := s.Input(ctx, dialogID, symbol)
		return err
	})
}

func (p *storedPlayer) step(ctx context.Context, dialogID int, fn func(context.Context, *dialog.Session) error) (dialog.View, error) {
	var view dialog.View
	err := p.engine.Conversation(ctx, p.mgr, p.sessionID, func(ctx context.Context, s *dialog.Session) error {
		if err := fn(ctx, s); err != nil {
			return err
		}
		view = s.View(dialogID)
		return nil
	})
	return view, err
}
