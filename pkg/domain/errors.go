package domain

import "errors"

var (
	// ErrNodeNotFound is returned when a node handle or name does not exist in the graph.
	ErrNodeNotFound = errors.New("node not found")

	// ErrDuplicateNode is returned when a node name is already used in the graph.
	ErrDuplicateNode = errors.New("duplicate node name")

	// ErrPortNotFound is returned when a port handle or name does not exist.
	ErrPortNotFound = errors.New("port not found")

	// ErrPortDirection is returned when an input is used where an output is expected, or vice versa.
	ErrPortDirection = errors.New("wrong port direction")

	// ErrTypeMismatch is returned when connecting ports whose declared types differ.
	ErrTypeMismatch = errors.New("port type mismatch")

	// ErrPortOccupied is returned when an input port already has an incoming connection.
	ErrPortOccupied = errors.New("input port already connected")

	// ErrConnectionNotFound is returned when a connection handle does not exist.
	ErrConnectionNotFound = errors.New("connection not found")

	// ErrUnknownType is returned for unregistered node or value type identifiers.
	ErrUnknownType = errors.New("unknown type")

	// ErrUnknownDialog is returned when a dialog id has no registered start node.
	ErrUnknownDialog = errors.New("unknown dialog")

	// ErrDuplicateDialog is returned when two start nodes claim the same dialog id.
	ErrDuplicateDialog = errors.New("duplicate dialog id")

	// ErrNoActiveSession is returned when input is sent to a dialog that was never activated.
	ErrNoActiveSession = errors.New("no active session")

	// ErrSessionNotFound is returned when a session ID cannot be found in the store.
	ErrSessionNotFound = errors.New("session not found")
)
