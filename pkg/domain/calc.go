package domain

// Calc is the view a node gets of its own ports during Calculate.
// Output writes are staged and only become visible when the evaluator commits them,
// so a failed calculation never leaves half-written outputs behind.
type Calc struct {
	g      *Graph
	id     NodeID
	bb     *Blackboard
	staged map[PortID]any
	order  []PortID
}

// NewCalc prepares a calculation context for node id.
func NewCalc(g *Graph, id NodeID, bb *Blackboard) *Calc {
	return &Calc{g: g, id: id, bb: bb, staged: make(map[PortID]any)}
}

// Node returns the handle of the node being calculated.
func (c *Calc) Node() NodeID { return c.id }

// Graph returns the graph being evaluated. Nodes must only read from it.
func (c *Calc) Graph() *Graph { return c.g }

// Blackboard returns the caller-owned variable store. It may be nil.
func (c *Calc) Blackboard() *Blackboard { return c.bb }

// Input returns the effective value of the named input, coerced to the port type.
// A missing value or one that does not fit the port type reports not ready.
func (c *Calc) Input(name string) (any, bool) {
	pid, err := c.g.InputPort(c.id, name)
	if err != nil {
		return nil, false
	}
	raw, ok := c.g.Value(pid)
	if !ok {
		return nil, false
	}
	p, _ := c.g.Port(pid)
	v, err := c.g.types.Box(p.Type, raw)
	if err != nil {
		return nil, false
	}
	return v, true
}

// Float reads a Float input.
func (c *Calc) Float(name string) (float64, bool) {
	v, ok := c.Input(name)
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

// Int reads an Int input.
func (c *Calc) Int(name string) (int64, bool) {
	v, ok := c.Input(name)
	if !ok {
		return 0, false
	}
	i, ok := v.(int64)
	return i, ok
}

// Bool reads a Bool input.
func (c *Calc) Bool(name string) (bool, bool) {
	v, ok := c.Input(name)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// String reads a String input.
func (c *Calc) String(name string) (string, bool) {
	v, ok := c.Input(name)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Ready reports whether every required input currently has a value.
func (c *Calc) Ready() bool {
	for _, pid := range c.g.Inputs(c.id) {
		p, _ := c.g.Port(pid)
		if !p.Required {
			continue
		}
		if _, ok := c.Input(p.Name); !ok {
			return false
		}
	}
	return true
}

// SetOutput stages a value for the named output.
// It returns false if the port does not exist or the value does not fit its type.
func (c *Calc) SetOutput(name string, value any) bool {
	pid, err := c.g.OutputPort(c.id, name)
	if err != nil {
		return false
	}
	p, _ := c.g.Port(pid)
	boxed, err := c.g.types.Box(p.Type, value)
	if err != nil {
		return false
	}
	if _, exists := c.staged[pid]; !exists {
		c.order = append(c.order, pid)
	}
	c.staged[pid] = boxed
	return true
}

// Commit publishes staged outputs and pushes them along outgoing connections.
func (c *Calc) Commit() {
	for _, pid := range c.order {
		c.g.setOutput(pid, c.staged[pid])
	}
	c.staged = make(map[PortID]any)
	c.order = nil
}
