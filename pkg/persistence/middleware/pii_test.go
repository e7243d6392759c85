package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/aretw0/nodegraph/pkg/persistence/middleware"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	underlyingStore := NewMockStore()
	mw := middleware.NewPIIMiddleware([]string{"password", "ssn"})
	secureStore := mw(underlyingStore)

	ctx := context.Background()
	sessionID := "pii-session"
	state := domain.NewSessionState(sessionID)
	state.Active[1] = "ask"
	state.Blackboards[1] = map[string]any{
		"username":      "jdoe",
		"user_password": "secret123",
		"details": map[string]any{
			"address":    "123 St",
			"ssn_number": "999-99-9999",
		},
	}

	if err := secureStore.Save(ctx, sessionID, state); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if state.Blackboards[1]["user_password"] != "secret123" {
		t.Error("Middleware modified original state in memory!")
	}
	if details := state.Blackboards[1]["details"].(map[string]any); details["ssn_number"] != "999-99-9999" {
		t.Error("Middleware modified nested original state in memory!")
	}

	storedState, err := underlyingStore.Load(ctx, sessionID)
	if err != nil {
		t.Fatalf("Underlying load failed: %v", err)
	}

	vars := storedState.Blackboards[1]
	if vars["username"] != "jdoe" {
		t.Error("Username shouldn't be masked")
	}
	if vars["user_password"] != "***" {
		t.Errorf("Password should be masked, got: %v", vars["user_password"])
	}
	details := vars["details"].(map[string]any)
	if details["ssn_number"] != "***" {
		t.Errorf("Nested SSN should be masked, got: %v", details["ssn_number"])
	}
	if storedState.Active[1] != "ask" {
		t.Error("Dialog positions are stored unchanged")
	}
}

func TestChain_EncryptsMaskedState(t *testing.T) {
	underlyingStore := NewMockStore()
	store := middleware.Chain(underlyingStore,
		middleware.NewPIIMiddleware([]string{"password"}),
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)}),
	)

	ctx := context.Background()
	state := domain.NewSessionState("s")
	state.Blackboards[0] = map[string]any{"password": "hunter2"}
	if err := store.Save(ctx, "s", state); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load(ctx, "s")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Blackboards[0]["password"] != "***" {
		t.Errorf("Expected masked password after decrypting, got %v", loaded.Blackboards[0]["password"])
	}
}

func TestValidatePatterns(t *testing.T) {
	if err := middleware.ValidatePatterns([]string{"ok", "(unclosed"}); err == nil {
		t.Error("Expected an invalid pattern to be reported")
	}
	if err := middleware.ValidatePatterns([]string{"password", "^ssn"}); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}
