package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/aretw0/nodegraph/pkg/ports"
)

// Masked replaces blackboard values whose keys look sensitive.
const Masked = "***"

type piiMiddleware struct {
	next     ports.SessionStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware masks blackboard variables, nested maps included, whose keys match
// one of the patterns. Masking happens on save only, so loaded sessions see Masked.
// It panics on an invalid pattern; check untrusted patterns with ValidatePatterns.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Save(ctx context.Context, sessionID string, state *domain.SessionState) error {
	stored := state.Clone()
	for dialogID, vars := range stored.Blackboards {
		stored.Blackboards[dialogID] = m.mask(vars)
	}
	return m.next.Save(ctx, sessionID, stored)
}

func (m *piiMiddleware) Load(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *piiMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// mask returns a masked copy of vars. The input is left untouched.
func (m *piiMiddleware) mask(vars map[string]any) map[string]any {
	out := make(map[string]any, len(vars))
	for k, v := range vars {
		switch nested, isMap := v.(map[string]any); {
		case m.sensitive(k):
			out[k] = Masked
		case isMap:
			out[k] = m.mask(nested)
		default:
			out[k] = v
		}
	}
	return out
}

func (m *piiMiddleware) sensitive(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}

// ValidatePatterns reports the first pattern that does not compile.
func ValidatePatterns(patterns []string) error {
	for _, p := range patterns {
		if _, err := regexp.Compile(p); err != nil {
			return err
		}
	}
	return nil
}
