/*
Package domain contains the core entities of the node graph runtime.

It defines nodes, typed ports and the connections between them, stored in a Graph arena
where every reference (port to node, connection to port) is a plain integer handle.
The package is kept pure and free of I/O and persistence, following the same hexagonal
layout as the rest of the module.

# Key Entities

  - Node: a unit of computation declaring its ports and a Calculate step.
  - Port: a typed input or output endpoint owned by exactly one node.
  - Connection: an edge from one output port to one input port of the same type.
  - Graph: the arena holding nodes, ports and connections, plus the editing API.
  - Calc: the view a node gets of its ports while calculating.
  - Blackboard: the explicit, caller-owned variable store passed into calculations and dialogs.

Nothing in this package locks. A Graph must only be touched from one logical thread of
control at a time; callers that share it serialize their calls.
*/
package domain
