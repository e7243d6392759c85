package nodegraph_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/aretw0/nodegraph"
)

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Plain choice", "1", "1"},
		{"Safe controls", "back\t\r", "back\t\r"},
		{"ANSI code", "\x1b[2Knext", "[2Knext"},
		{"Null byte", "1\x00", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := nodegraph.SanitizeInput(tt.input)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}

	if _, err := nodegraph.SanitizeInput("\xbd\xb2"); !errors.Is(err, nodegraph.ErrInvalidUTF8) {
		t.Errorf("Expected ErrInvalidUTF8, got %v", err)
	}
	if _, err := nodegraph.SanitizeInput(strings.Repeat("a", nodegraph.DefaultMaxInputSize+1)); !errors.Is(err, nodegraph.ErrInputTooLarge) {
		t.Errorf("Expected ErrInputTooLarge, got %v", err)
	}
}

func TestSanitizeInput_EnvOverride(t *testing.T) {
	t.Setenv(nodegraph.EnvMaxInputSize, "3")
	if _, err := nodegraph.SanitizeInput("next"); err == nil {
		t.Error("Expected an error for input over the configured limit")
	}
	if _, err := nodegraph.SanitizeInput("1"); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}
