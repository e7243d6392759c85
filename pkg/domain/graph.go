package domain

import (
	"fmt"

	"github.com/aretw0/nodegraph/pkg/schema"
)

type nodeEntry struct {
	node       Node
	name       string
	inputs     []PortID
	outputs    []PortID
	calculated bool
}

// Graph is the arena holding nodes, their ports and the connections between them.
// Removed entries leave a hole so that handles stay stable for the graph's lifetime.
type Graph struct {
	types  *schema.Registry
	nodes  []*nodeEntry
	ports  []*Port
	conns  []*Connection
	byName map[string]NodeID
}

// NewGraph creates an empty graph. A nil registry selects schema.Default().
func NewGraph(types *schema.Registry) *Graph {
	if types == nil {
		types = schema.Default()
	}
	return &Graph{
		types:  types,
		byName: make(map[string]NodeID),
	}
}

// Types returns the value-type registry deciding port compatibility.
func (g *Graph) Types() *schema.Registry {
	return g.types
}

// --- Nodes ---

// AddNode places n in the graph under a unique name and creates its ports.
func (g *Graph) AddNode(name string, n Node) (NodeID, error) {
	if name == "" {
		return NoNode, fmt.Errorf("node name cannot be empty")
	}
	if _, exists := g.byName[name]; exists {
		return NoNode, fmt.Errorf("%w: %s", ErrDuplicateNode, name)
	}

	specs := n.Ports()
	seen := make(map[string]bool, len(specs))
	for _, spec := range specs {
		key := spec.Direction.String() + ":" + spec.Name
		if seen[key] {
			return NoNode, fmt.Errorf("node %s declares %s port %q twice", name, spec.Direction, spec.Name)
		}
		seen[key] = true
		if !g.types.Known(spec.Type) {
			return NoNode, fmt.Errorf("%w: port %s.%s has value type %q", ErrUnknownType, name, spec.Name, spec.Type)
		}
	}

	id := NodeID(len(g.nodes))
	entry := &nodeEntry{node: n, name: name}
	for _, spec := range specs {
		pid := PortID(len(g.ports))
		g.ports = append(g.ports, &Port{PortSpec: spec, ID: pid, Node: id})
		if spec.Direction == In {
			entry.inputs = append(entry.inputs, pid)
		} else {
			entry.outputs = append(entry.outputs, pid)
		}
	}
	g.nodes = append(g.nodes, entry)
	g.byName[name] = id
	return id, nil
}

// RemoveNode disconnects and removes a node with all its ports.
func (g *Graph) RemoveNode(id NodeID) error {
	entry, err := g.entry(id)
	if err != nil {
		return err
	}
	for _, pid := range append(append([]PortID{}, entry.inputs...), entry.outputs...) {
		g.DisconnectPort(pid)
		g.ports[pid] = nil
	}
	delete(g.byName, entry.name)
	g.nodes[id] = nil
	return nil
}

func (g *Graph) entry(id NodeID) (*nodeEntry, error) {
	if id < 0 || int(id) >= len(g.nodes) || g.nodes[id] == nil {
		return nil, fmt.Errorf("%w: #%d", ErrNodeNotFound, id)
	}
	return g.nodes[id], nil
}

// Node returns the node behind a handle.
func (g *Graph) Node(id NodeID) (Node, bool) {
	entry, err := g.entry(id)
	if err != nil {
		return nil, false
	}
	return entry.node, true
}

// Lookup resolves a node name to its handle.
func (g *Graph) Lookup(name string) (NodeID, bool) {
	id, ok := g.byName[name]
	return id, ok
}

// Name returns the node's name, or "" for unknown handles.
func (g *Graph) Name(id NodeID) string {
	entry, err := g.entry(id)
	if err != nil {
		return ""
	}
	return entry.name
}

// Nodes lists live node handles in ascending order.
func (g *Graph) Nodes() []NodeID {
	ids := make([]NodeID, 0, len(g.byName))
	for i, entry := range g.nodes {
		if entry != nil {
			ids = append(ids, NodeID(i))
		}
	}
	return ids
}

// Len returns the number of live nodes.
func (g *Graph) Len() int {
	return len(g.byName)
}

// --- Ports ---

// Port returns the port behind a handle.
func (g *Graph) Port(id PortID) (*Port, bool) {
	if id < 0 || int(id) >= len(g.ports) || g.ports[id] == nil {
		return nil, false
	}
	return g.ports[id], true
}

// Inputs returns the node's input ports in declaration order.
func (g *Graph) Inputs(id NodeID) []PortID {
	entry, err := g.entry(id)
	if err != nil {
		return nil
	}
	return append([]PortID{}, entry.inputs...)
}

// Outputs returns the node's output ports in declaration order.
func (g *Graph) Outputs(id NodeID) []PortID {
	entry, err := g.entry(id)
	if err != nil {
		return nil
	}
	return append([]PortID{}, entry.outputs...)
}

// InputPort finds an input port by name.
func (g *Graph) InputPort(id NodeID, name string) (PortID, error) {
	return g.findPort(id, name, In)
}

// OutputPort finds an output port by name.
func (g *Graph) OutputPort(id NodeID, name string) (PortID, error) {
	return g.findPort(id, name, Out)
}

func (g *Graph) findPort(id NodeID, name string, dir Direction) (PortID, error) {
	entry, err := g.entry(id)
	if err != nil {
		return NoPort, err
	}
	list := entry.inputs
	if dir == Out {
		list = entry.outputs
	}
	for _, pid := range list {
		if g.ports[pid].Name == name {
			return pid, nil
		}
	}
	return NoPort, fmt.Errorf("%w: %s port %s.%s", ErrPortNotFound, dir, entry.name, name)
}

// --- Connections ---

// Connect joins an output port to an input port of the same declared type.
func (g *Graph) Connect(from, to PortID) (ConnectionID, error) {
	src, ok := g.Port(from)
	if !ok {
		return NoConnection, fmt.Errorf("%w: #%d", ErrPortNotFound, from)
	}
	dst, ok := g.Port(to)
	if !ok {
		return NoConnection, fmt.Errorf("%w: #%d", ErrPortNotFound, to)
	}
	if src.Direction != Out || dst.Direction != In {
		return NoConnection, fmt.Errorf("%w: connections run from an output to an input", ErrPortDirection)
	}
	if !g.types.Compatible(src.Type, dst.Type) {
		return NoConnection, fmt.Errorf("%w: %s.%s (%s) -> %s.%s (%s)", ErrTypeMismatch,
			g.Name(src.Node), src.Name, src.Type, g.Name(dst.Node), dst.Name, dst.Type)
	}
	if dst.Connected() {
		return NoConnection, fmt.Errorf("%w: %s.%s", ErrPortOccupied, g.Name(dst.Node), dst.Name)
	}

	cid := ConnectionID(len(g.conns))
	conn := &Connection{ID: cid, From: from, To: to}
	// A new edge immediately carries whatever the output already holds.
	conn.value, conn.hasValue = src.value, src.hasValue
	g.conns = append(g.conns, conn)
	src.conns = append(src.conns, cid)
	dst.conns = append(dst.conns, cid)
	return cid, nil
}

// ConnectByName is a convenience over Connect using node and port names.
func (g *Graph) ConnectByName(fromNode, fromPort, toNode, toPort string) (ConnectionID, error) {
	src, ok := g.Lookup(fromNode)
	if !ok {
		return NoConnection, fmt.Errorf("%w: %s", ErrNodeNotFound, fromNode)
	}
	dst, ok := g.Lookup(toNode)
	if !ok {
		return NoConnection, fmt.Errorf("%w: %s", ErrNodeNotFound, toNode)
	}
	out, err := g.OutputPort(src, fromPort)
	if err != nil {
		return NoConnection, err
	}
	in, err := g.InputPort(dst, toPort)
	if err != nil {
		return NoConnection, err
	}
	return g.Connect(out, in)
}

// Connection returns the connection behind a handle.
func (g *Graph) Connection(id ConnectionID) (*Connection, bool) {
	if id < 0 || int(id) >= len(g.conns) || g.conns[id] == nil {
		return nil, false
	}
	return g.conns[id], true
}

// Connections lists live connection handles in creation order.
func (g *Graph) Connections() []ConnectionID {
	ids := make([]ConnectionID, 0, len(g.conns))
	for i, c := range g.conns {
		if c != nil {
			ids = append(ids, ConnectionID(i))
		}
	}
	return ids
}

// Disconnect removes a connection.
func (g *Graph) Disconnect(id ConnectionID) error {
	conn, ok := g.Connection(id)
	if !ok {
		return fmt.Errorf("%w: #%d", ErrConnectionNotFound, id)
	}
	for _, pid := range []PortID{conn.From, conn.To} {
		if p, ok := g.Port(pid); ok {
			p.conns = removeConn(p.conns, id)
		}
	}
	g.conns[id] = nil
	return nil
}

// DisconnectPort removes every connection attached to a port.
func (g *Graph) DisconnectPort(id PortID) {
	p, ok := g.Port(id)
	if !ok {
		return
	}
	for _, cid := range p.Connections() {
		_ = g.Disconnect(cid)
	}
}

func removeConn(list []ConnectionID, id ConnectionID) []ConnectionID {
	out := list[:0]
	for _, c := range list {
		if c != id {
			out = append(out, c)
		}
	}
	return out
}

// Source returns the output port feeding an input port, if connected.
func (g *Graph) Source(in PortID) (PortID, bool) {
	p, ok := g.Port(in)
	if !ok || p.Direction != In || len(p.conns) == 0 {
		return NoPort, false
	}
	return g.conns[p.conns[0]].From, true
}

// Targets returns the input ports fed by an output port, in connection order.
func (g *Graph) Targets(out PortID) []PortID {
	p, ok := g.Port(out)
	if !ok || p.Direction != Out {
		return nil
	}
	targets := make([]PortID, 0, len(p.conns))
	for _, cid := range p.conns {
		targets = append(targets, g.conns[cid].To)
	}
	return targets
}

// --- Values ---

// SetInput stores a local value on an input port, as an edit from outside the graph.
// The value is coerced to the port's declared type.
func (g *Graph) SetInput(id PortID, value any) error {
	p, ok := g.Port(id)
	if !ok {
		return fmt.Errorf("%w: #%d", ErrPortNotFound, id)
	}
	if p.Direction != In {
		return fmt.Errorf("%w: only inputs store local values", ErrPortDirection)
	}
	boxed, err := g.types.Box(p.Type, value)
	if err != nil {
		return fmt.Errorf("%w: %s.%s: %v", ErrTypeMismatch, g.Name(p.Node), p.Name, err)
	}
	p.value, p.hasValue = boxed, true
	return nil
}

// ClearInput removes the locally stored value of an input port.
func (g *Graph) ClearInput(id PortID) {
	if p, ok := g.Port(id); ok && p.Direction == In {
		p.value, p.hasValue = nil, false
	}
}

// Value returns the effective value of a port.
// Outputs report their last calculated value. Inputs report the connection value when
// connected, otherwise the stored value, otherwise the declared default.
func (g *Graph) Value(id PortID) (any, bool) {
	p, ok := g.Port(id)
	if !ok {
		return nil, false
	}
	if p.Direction == Out {
		return p.value, p.hasValue
	}
	if len(p.conns) > 0 {
		return g.conns[p.conns[0]].Value()
	}
	if p.hasValue {
		return p.value, true
	}
	if p.Default != nil {
		return p.Default, true
	}
	return nil, false
}

// setOutput writes an output value and pushes it along every outgoing connection.
func (g *Graph) setOutput(id PortID, value any) {
	p := g.ports[id]
	p.value, p.hasValue = value, true
	for _, cid := range p.conns {
		g.conns[cid].value, g.conns[cid].hasValue = value, true
	}
}

// --- Calculation state ---

// Calculated reports the node's calculated flag.
func (g *Graph) Calculated(id NodeID) bool {
	entry, err := g.entry(id)
	return err == nil && entry.calculated
}

// MarkCalculated sets the node's calculated flag.
func (g *Graph) MarkCalculated(id NodeID, calculated bool) {
	if entry, err := g.entry(id); err == nil {
		entry.calculated = calculated
	}
}

// ClearCalculation clears the calculated flag on id and every node downstream of it.
// It returns the cleared nodes, starting with id.
func (g *Graph) ClearCalculation(id NodeID) []NodeID {
	var cleared []NodeID
	visited := make(map[NodeID]bool)
	var visit func(NodeID)
	visit = func(n NodeID) {
		if visited[n] {
			return
		}
		visited[n] = true
		entry, err := g.entry(n)
		if err != nil {
			return
		}
		entry.calculated = false
		cleared = append(cleared, n)
		for _, child := range g.Downstream(n) {
			visit(child)
		}
	}
	visit(id)
	return cleared
}

// Upstream returns the distinct nodes feeding the node's connected inputs.
func (g *Graph) Upstream(id NodeID) []NodeID {
	var out []NodeID
	seen := make(map[NodeID]bool)
	for _, pid := range g.Inputs(id) {
		src, ok := g.Source(pid)
		if !ok {
			continue
		}
		n := g.ports[src].Node
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

// Downstream returns the distinct nodes fed by the node's outputs, in port and connection order.
func (g *Graph) Downstream(id NodeID) []NodeID {
	var out []NodeID
	seen := make(map[NodeID]bool)
	for _, pid := range g.Outputs(id) {
		for _, target := range g.Targets(pid) {
			n := g.ports[target].Node
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}

// IsInputNode reports whether the node seeds a whole-graph traversal:
// it is flagged as a source, or none of its inputs has an incoming connection.
func (g *Graph) IsInputNode(id NodeID) bool {
	entry, err := g.entry(id)
	if err != nil {
		return false
	}
	if entry.node.IsInput() {
		return true
	}
	for _, pid := range entry.inputs {
		if g.ports[pid].Connected() {
			return false
		}
	}
	return true
}

// DependenciesReady reports whether every connected input's upstream node is calculated.
func (g *Graph) DependenciesReady(id NodeID) bool {
	for _, up := range g.Upstream(id) {
		if !g.Calculated(up) {
			return false
		}
	}
	return true
}
