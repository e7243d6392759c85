package domain

import (
	"fmt"
	"regexp"
)

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z_][\w.]*)\s*\}\}`)

// Interpolate replaces {{ name }} placeholders using lookup.
// Unknown names are left untouched.
func Interpolate(text string, lookup func(name string) (any, bool)) string {
	return placeholder.ReplaceAllStringFunc(text, func(m string) string {
		name := placeholder.FindStringSubmatch(m)[1]
		v, ok := lookup(name)
		if !ok {
			return m
		}
		return fmt.Sprint(v)
	})
}

// Interpolate replaces {{ key }} placeholders with blackboard values.
func (b *Blackboard) Interpolate(text string) string {
	return Interpolate(text, b.Get)
}
