// Package dialog implements branching conversations on top of the node graph.
//
// Dialog nodes are ordinary graph nodes linked by Transition ports. A Session
// keeps one active node per dialog id and advances it with input symbols:
// numbered choices 0..n-1, Next and Back.
//
// Sessions are not safe for concurrent use. Callers that share one serialize access.
package dialog
