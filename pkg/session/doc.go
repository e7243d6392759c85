/*
Package session implements dialog session persistence and concurrency control.

A Manager loads and saves domain.SessionState values through a ports.SessionStore,
serializing access per session ID with in-process locks and, optionally, a
ports.DistributedLocker shared between replicas. Resume combines both with a
dialog.Session so that one call restores, advances and persists a conversation set.
*/
package session
