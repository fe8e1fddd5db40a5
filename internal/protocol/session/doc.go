// Package session drives one duplex protocol stream between the
// nexsock controller and daemon.
//
// Ownership boundary:
// - correlation table and request/response matching
// - session state machine (connecting/open/draining/closed)
// - single-writer frame discipline
// - retry/backoff primitives for request callers
package session
