package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aretw0/nodegraph/pkg/ports"
)

// ListSessions prints one stored session id per line.
func ListSessions(ctx context.Context, store ports.SessionStore, w io.Writer) error {
	ids, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(ids) == 0 {
		fmt.Fprintln(w, "No active sessions found.")
		return nil
	}
	for _, id := range ids {
		fmt.Fprintln(w, id)
	}
	return nil
}

// InspectSession prints the stored state of a session as indented JSON.
func InspectSession(ctx context.Context, store ports.SessionStore, sessionID string, w io.Writer) error {
	state, err := store.Load(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load session %q: %w", sessionID, err)
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// RemoveSession deletes a stored session.
func RemoveSession(ctx context.Context, store ports.SessionStore, sessionID string, w io.Writer) error {
	if err := store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session %q: %w", sessionID, err)
	}
	fmt.Fprintf(w, "Session '%s' deleted.\n", sessionID)
	return nil
}
