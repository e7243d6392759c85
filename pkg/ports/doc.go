/*
Package ports defines the driven ports (interfaces) of the nodegraph engine.

These interfaces decouple the core from external implementations, allowing
graphs to come from different sources and dialog sessions to live in
different storage backends.

# Key Interfaces

  - GraphLoader: Loads a graph document (e.g., from a file, HCL, Loam or memory).
  - SessionStore: Persists and loads dialog session state.
  - DistributedLocker: Provides distributed locking for concurrent session access.
  - Watchable: Optional change notifications from a graph source.
*/
package ports
