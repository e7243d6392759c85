// Package nodes provides the built-in calculation nodes.
//
// Every node type is created through a registry.Factory and exposes its
// configuration again through Params, so graphs round-trip through documents.
// Call Register to make the types available to a registry.
package nodes
