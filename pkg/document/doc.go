// Package document defines the serializable form of a graph.
//
// A Document lists nodes by name with their type and parameters, the values stored on
// unconnected inputs, and connections written as "node.port" endpoints. Build turns a
// document into a live graph through a node registry; FromGraph goes the other way.
package document
