// Package codec provides the shared CBOR encoding configuration for the
// nexsock wire protocol.
//
// Ownership boundary:
// - deterministic encode mode (RFC 8949 4.2)
// - decode mode shared by every protocol consumer
package codec
