// Package registry holds the node type factories used to rebuild graphs from documents.
package registry
