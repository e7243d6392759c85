package dialog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/nodegraph/pkg/domain"
)

// Reserved input symbols. Numbered choices use 0..n-1.
const (
	Next = -1
	Back = -2
)

// Transition port names shared by the dialog nodes.
const (
	PortPrev = "prev"
	PortNext = "next"
)

// Node is a graph node that takes part in conversations.
//
// Input consumes a symbol while the node is active and returns the node to activate next.
// PassAhead runs when the node has just been entered and may forward to another node.
// Returning the node's own handle means "stay here"; returning false ends the conversation.
type Node interface {
	domain.Node
	Input(s *Step, symbol int) (domain.NodeID, bool)
	PassAhead(s *Step, symbol int) (domain.NodeID, bool)
}

// Prompter is implemented by nodes that show something to the player.
type Prompter interface {
	Prompt(s *Step) Prompt
}

// Prompt is what a dialog node presents while active.
type Prompt struct {
	Text    string   `json:"text,omitempty"`
	Format  string   `json:"format,omitempty"`
	Options []string `json:"options,omitempty"`
}

// passthrough marks nodes that never stay active.
type passthrough interface {
	passthrough()
}

// Step is the view a dialog node gets while handling a symbol.
type Step struct {
	Graph      *domain.Graph
	Self       domain.NodeID
	DialogID   int
	Blackboard *domain.Blackboard
}

// At returns a copy of the step positioned on another node.
func (s *Step) At(id domain.NodeID) *Step {
	c := *s
	c.Self = id
	return &c
}

// Stay keeps the current node active.
func (s *Step) Stay() (domain.NodeID, bool) {
	return s.Self, true
}

// Follow returns the node connected to the named Transition output.
func (s *Step) Follow(port string) (domain.NodeID, bool) {
	pid, err := s.Graph.OutputPort(s.Self, port)
	if err != nil {
		return domain.NoNode, false
	}
	targets := s.Graph.Targets(pid)
	if len(targets) == 0 {
		return domain.NoNode, false
	}
	p, _ := s.Graph.Port(targets[0])
	return p.Node, true
}

// Previous walks the "prev" connection back to the last node that can stay active.
// With no predecessor the current node stays.
func (s *Step) Previous() (domain.NodeID, bool) {
	cur := s.Self
	for hops := 0; hops <= s.Graph.Len(); hops++ {
		pid, err := s.Graph.InputPort(cur, PortPrev)
		if err != nil {
			break
		}
		src, ok := s.Graph.Source(pid)
		if !ok {
			break
		}
		p, _ := s.Graph.Port(src)
		node, _ := s.Graph.Node(p.Node)
		if _, skip := node.(passthrough); !skip {
			return p.Node, true
		}
		cur = p.Node
	}
	return s.Stay()
}

// ParseSymbol reads "next", "back" or a choice number.
func ParseSymbol(in string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(in)) {
	case "", "next", "n":
		return Next, nil
	case "back", "b":
		return Back, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(in))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid dialog symbol %q: want next, back or a choice number", in)
	}
	return n, nil
}

// SymbolName renders a symbol for logs and events.
func SymbolName(symbol int) string {
	switch symbol {
	case Next:
		return "next"
	case Back:
		return "back"
	}
	return strconv.Itoa(symbol)
}
