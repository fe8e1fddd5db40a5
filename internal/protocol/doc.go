// Package protocol owns the nexsock wire contract: the message model
// exchanged between controller and daemon and the binary codec that
// carries it.
//
// Ownership boundary:
// - message envelope (kind, correlation, operation, flags, body)
// - operation payload shapes
// - versioned encode/decode primitives
package protocol
