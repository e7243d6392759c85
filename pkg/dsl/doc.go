/*
Package dsl provides a fluent Go API for constructing graph documents.

It is useful for tests, for generating graphs programmatically, and for embedding
small dialogs without shipping YAML files.

Example usage:

	b := dsl.New("greeting")

	b.Start("hello", 1, "Hi {{ name }}!").Go("ask")
	b.Ask("ask", "Shall we?", "yes", "no").
		Option(0, "ok").
		Option(1, "no")
	b.Say("ok", "Great.").Go("bye")
	b.End("no", "Maybe later.")
	b.End("bye", "Goodbye!")

	g, err := b.Build(reg, nil)
*/
package dsl
