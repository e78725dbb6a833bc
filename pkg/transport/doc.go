// Package transport carries node traffic over a byte stream.
//
// A stream transport exchanges CBOR frames, each holding either a message
// envelope or a control envelope, with the peers of a node. Inbound frames
// are handed to a device.Router; the router's outbound messages are written
// to every connected peer.
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│   Frame {1: message,           │
//	│          2: control}  (CBOR)   │
//	├────────────────────────────────┤
//	│   Length-Prefix Framing (4B)   │
//	├────────────────────────────────┤
//	│           TCP                  │
//	└────────────────────────────────┘
//
// # Roles
//
// A Stream either dials a gateway, reconnecting with exponential backoff
// when the connection drops, or listens and accepts any number of peers.
//
// # Message Framing
//
// Each frame is a 4-byte big-endian length followed by the payload.
// Zero-length frames are invalid.
package transport
