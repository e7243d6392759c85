package dialog

import (
	"fmt"
	"strconv"

	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/aretw0/nodegraph/pkg/registry"
	"github.com/aretw0/nodegraph/pkg/schema"
)

// Type identifiers of the dialog nodes.
const (
	TypeStart   = "dialog.start"
	TypeMessage = "dialog.message"
	TypeChoice  = "dialog.choice"
	TypeBranch  = "dialog.branch"
	TypeSet     = "dialog.set"
	TypeEnd     = "dialog.end"
)

// Register adds every dialog node type to reg.
func Register(reg *registry.Registry) {
	reg.Register(TypeStart, NewStart)
	reg.Register(TypeMessage, NewMessage)
	reg.Register(TypeChoice, NewChoice)
	reg.Register(TypeBranch, NewBranch)
	reg.Register(TypeSet, NewSet)
	reg.Register(TypeEnd, NewEnd)
}

func prevPort() domain.PortSpec {
	return domain.PortSpec{Name: PortPrev, Type: schema.Transition, Direction: domain.In}
}

func transitionOut(name string) domain.PortSpec {
	return domain.PortSpec{Name: name, Type: schema.Transition, Direction: domain.Out}
}

// transitions is embedded by every dialog node: the evaluator treats
// them as always-calculable nodes that publish a pulse on their outputs.
type transitions struct{}

func (transitions) IsInput() bool             { return false }
func (transitions) AllowRecursion() bool      { return false }
func (transitions) ContinueCalculation() bool { return true }

func pulse(c *domain.Calc, outputs ...string) bool {
	for _, name := range outputs {
		if !c.SetOutput(name, struct{}{}) {
			return false
		}
	}
	return true
}

func textParams(text, format string) map[string]any {
	p := map[string]any{}
	if text != "" {
		p["text"] = text
	}
	if format != "" && format != FormatMarkdown {
		p["format"] = format
	}
	return p
}

// Text formats understood by presenters.
const (
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
)

func checkFormat(format string) error {
	switch format {
	case "", FormatMarkdown, FormatHTML:
		return nil
	}
	return fmt.Errorf("unknown text format %q", format)
}

// Start is the entry point of the dialog identified by DialogID.
type Start struct {
	transitions
	DialogID int    `mapstructure:"dialog_id"`
	Text     string `mapstructure:"text"`
	Format   string `mapstructure:"format"`
}

// NewStart builds a dialog.start node.
func NewStart(params map[string]any) (domain.Node, error) {
	n := &Start{}
	if err := registry.Decode(params, n); err != nil {
		return nil, err
	}
	return n, checkFormat(n.Format)
}

func (n *Start) Type() string                  { return TypeStart }
func (n *Start) Ports() []domain.PortSpec      { return []domain.PortSpec{transitionOut(PortNext)} }
func (n *Start) Calculate(c *domain.Calc) bool { return pulse(c, PortNext) }

// Start nodes ignore Back.
func (n *Start) Input(s *Step, symbol int) (domain.NodeID, bool) {
	if symbol == Back {
		return s.Stay()
	}
	return s.Follow(PortNext)
}

func (n *Start) PassAhead(s *Step, _ int) (domain.NodeID, bool) { return s.Stay() }

func (n *Start) Prompt(s *Step) Prompt {
	return Prompt{Text: s.Blackboard.Interpolate(n.Text), Format: n.Format}
}

func (n *Start) Params() map[string]any {
	p := textParams(n.Text, n.Format)
	p["dialog_id"] = n.DialogID
	return p
}

// Message shows text and waits for Next.
type Message struct {
	transitions
	Text    string `mapstructure:"text"`
	Format  string `mapstructure:"format"`
	Speaker string `mapstructure:"speaker"`
}

// NewMessage builds a dialog.message node.
func NewMessage(params map[string]any) (domain.Node, error) {
	n := &Message{}
	if err := registry.Decode(params, n); err != nil {
		return nil, err
	}
	return n, checkFormat(n.Format)
}

func (n *Message) Type() string { return TypeMessage }
func (n *Message) Ports() []domain.PortSpec {
	return []domain.PortSpec{prevPort(), transitionOut(PortNext)}
}
func (n *Message) Calculate(c *domain.Calc) bool { return pulse(c, PortNext) }

func (n *Message) Input(s *Step, symbol int) (domain.NodeID, bool) {
	switch symbol {
	case Back:
		return s.Previous()
	case Next:
		return s.Follow(PortNext)
	}
	return s.Stay()
}

func (n *Message) PassAhead(s *Step, _ int) (domain.NodeID, bool) { return s.Stay() }

func (n *Message) Prompt(s *Step) Prompt {
	text := s.Blackboard.Interpolate(n.Text)
	if n.Speaker != "" {
		text = n.Speaker + ": " + text
	}
	return Prompt{Text: text, Format: n.Format}
}

func (n *Message) Params() map[string]any {
	p := textParams(n.Text, n.Format)
	if n.Speaker != "" {
		p["speaker"] = n.Speaker
	}
	return p
}

// Choice offers numbered options, each leading out of its own "optionN" port.
type Choice struct {
	transitions
	Text    string   `mapstructure:"text"`
	Format  string   `mapstructure:"format"`
	Options []string `mapstructure:"options"`
}

// NewChoice builds a dialog.choice node with at least one option.
func NewChoice(params map[string]any) (domain.Node, error) {
	n := &Choice{}
	if err := registry.Decode(params, n); err != nil {
		return nil, err
	}
	if len(n.Options) == 0 {
		return nil, fmt.Errorf("choice needs at least one option")
	}
	return n, checkFormat(n.Format)
}

// OptionPort names the output port of option i.
func OptionPort(i int) string { return "option" + strconv.Itoa(i) }

func (n *Choice) Type() string { return TypeChoice }

func (n *Choice) Ports() []domain.PortSpec {
	specs := []domain.PortSpec{prevPort()}
	for i := range n.Options {
		specs = append(specs, transitionOut(OptionPort(i)))
	}
	return specs
}

func (n *Choice) Calculate(c *domain.Calc) bool {
	names := make([]string, len(n.Options))
	for i := range n.Options {
		names[i] = OptionPort(i)
	}
	return pulse(c, names...)
}

// Invalid symbols keep the choice active.
func (n *Choice) Input(s *Step, symbol int) (domain.NodeID, bool) {
	switch {
	case symbol == Back:
		return s.Previous()
	case symbol >= 0 && symbol < len(n.Options):
		return s.Follow(OptionPort(symbol))
	}
	return s.Stay()
}

func (n *Choice) PassAhead(s *Step, _ int) (domain.NodeID, bool) { return s.Stay() }

func (n *Choice) Prompt(s *Step) Prompt {
	opts := make([]string, len(n.Options))
	for i, o := range n.Options {
		opts[i] = s.Blackboard.Interpolate(o)
	}
	return Prompt{Text: s.Blackboard.Interpolate(n.Text), Format: n.Format, Options: opts}
}

func (n *Choice) Params() map[string]any {
	p := textParams(n.Text, n.Format)
	p["options"] = append([]string(nil), n.Options...)
	return p
}

// Branch forwards to "true" or "false" depending on a blackboard condition.
//
// Op is one of truthy (default), exists, ==, !=, <, <=, >, >=.
type Branch struct {
	transitions
	Key   string `mapstructure:"key"`
	Op    string `mapstructure:"op"`
	Value any    `mapstructure:"value"`
}

// NewBranch builds a dialog.branch node.
func NewBranch(params map[string]any) (domain.Node, error) {
	n := &Branch{Op: OpTruthy}
	if err := registry.Decode(params, n); err != nil {
		return nil, err
	}
	if n.Key == "" {
		return nil, fmt.Errorf("branch needs a key")
	}
	if !validOp(n.Op) {
		return nil, fmt.Errorf("unknown branch operator %q", n.Op)
	}
	return n, nil
}

func (n *Branch) passthrough() {}

func (n *Branch) Type() string { return TypeBranch }
func (n *Branch) Ports() []domain.PortSpec {
	return []domain.PortSpec{prevPort(), transitionOut("true"), transitionOut("false")}
}
func (n *Branch) Calculate(c *domain.Calc) bool { return pulse(c, "true", "false") }

func (n *Branch) Input(s *Step, symbol int) (domain.NodeID, bool) {
	if symbol == Back {
		return s.Previous()
	}
	return n.PassAhead(s, symbol)
}

func (n *Branch) PassAhead(s *Step, _ int) (domain.NodeID, bool) {
	v, ok := s.Blackboard.Get(n.Key)
	if evaluate(n.Op, v, ok, n.Value) {
		return s.Follow("true")
	}
	return s.Follow("false")
}

func (n *Branch) Params() map[string]any {
	p := map[string]any{"key": n.Key, "op": n.Op}
	if n.Value != nil {
		p["value"] = n.Value
	}
	return p
}

// Set writes a blackboard variable on entry and forwards to "next".
type Set struct {
	transitions
	Key   string `mapstructure:"key"`
	Value any    `mapstructure:"value"`
}

// NewSet builds a dialog.set node.
func NewSet(params map[string]any) (domain.Node, error) {
	n := &Set{}
	if err := registry.Decode(params, n); err != nil {
		return nil, err
	}
	if n.Key == "" {
		return nil, fmt.Errorf("set needs a key")
	}
	return n, nil
}

func (n *Set) passthrough() {}

func (n *Set) Type() string { return TypeSet }
func (n *Set) Ports() []domain.PortSpec {
	return []domain.PortSpec{prevPort(), transitionOut(PortNext)}
}
func (n *Set) Calculate(c *domain.Calc) bool { return pulse(c, PortNext) }

func (n *Set) Input(s *Step, symbol int) (domain.NodeID, bool) {
	if symbol == Back {
		return s.Previous()
	}
	return n.PassAhead(s, symbol)
}

func (n *Set) PassAhead(s *Step, _ int) (domain.NodeID, bool) {
	s.Blackboard.Set(n.Key, n.Value)
	return s.Follow(PortNext)
}

func (n *Set) Params() map[string]any {
	return map[string]any{"key": n.Key, "value": n.Value}
}

// End shows its text and finishes the conversation on the next input.
type End struct {
	transitions
	Text   string `mapstructure:"text"`
	Format string `mapstructure:"format"`
}

// NewEnd builds a dialog.end node.
func NewEnd(params map[string]any) (domain.Node, error) {
	n := &End{}
	if err := registry.Decode(params, n); err != nil {
		return nil, err
	}
	return n, checkFormat(n.Format)
}

func (n *End) Type() string                  { return TypeEnd }
func (n *End) Ports() []domain.PortSpec      { return []domain.PortSpec{prevPort()} }
func (n *End) Calculate(c *domain.Calc) bool { return true }

func (n *End) Input(s *Step, symbol int) (domain.NodeID, bool) {
	if symbol == Back {
		return s.Previous()
	}
	return domain.NoNode, false
}

func (n *End) PassAhead(s *Step, _ int) (domain.NodeID, bool) { return s.Stay() }

func (n *End) Prompt(s *Step) Prompt {
	return Prompt{Text: s.Blackboard.Interpolate(n.Text), Format: n.Format}
}

func (n *End) Params() map[string]any {
	return textParams(n.Text, n.Format)
}
