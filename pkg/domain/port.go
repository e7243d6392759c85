package domain

// NodeID is an opaque handle to a node in a Graph arena.
type NodeID int

// PortID is an opaque handle to a port in a Graph arena.
type PortID int

// ConnectionID is an opaque handle to a connection in a Graph arena.
type ConnectionID int

// Sentinel handles.
const (
	NoNode       NodeID       = -1
	NoPort       PortID       = -1
	NoConnection ConnectionID = -1
)

// Direction tells whether a port consumes or produces values.
type Direction int

const (
	In Direction = iota
	Out
)

func (d Direction) String() string {
	if d == Out {
		return "out"
	}
	return "in"
}

// PortSpec declares a port on a node type.
type PortSpec struct {
	Name      string
	Type      string // value type identifier, see package schema
	Direction Direction

	// Required marks an input the node cannot calculate without.
	Required bool

	// Default is used by an unconnected input that has no stored value.
	Default any
}

// Port is a typed endpoint owned by exactly one node.
type Port struct {
	PortSpec
	ID   PortID
	Node NodeID

	value    any
	hasValue bool
	conns    []ConnectionID
}

// Value returns the value held by the port itself.
// For outputs this is the last calculated value; for inputs it is the locally stored value.
func (p *Port) Value() (any, bool) {
	return p.value, p.hasValue
}

// Connected reports whether the port takes part in at least one connection.
func (p *Port) Connected() bool {
	return len(p.conns) > 0
}

// Connections returns the connections attached to the port.
func (p *Port) Connections() []ConnectionID {
	out := make([]ConnectionID, len(p.conns))
	copy(out, p.conns)
	return out
}

// Connection links one output port to one input port.
type Connection struct {
	ID   ConnectionID
	From PortID
	To   PortID

	value    any
	hasValue bool
}

// Value returns the last value pushed from the output to the input.
func (c *Connection) Value() (any, bool) {
	return c.value, c.hasValue
}
