// Package wire implements the binary wire format shared by every mesh model.
//
// A mesh access message is an opcode followed by model specific parameter
// bytes. This package provides the opcode encoding, a fixed-capacity buffer
// used to emit parameters, the Message and Parser contracts implemented by
// the model packages, and the RawMessage envelope used at the JSON boundary.
//
// # Opcodes
//
// Opcodes are 1, 2 or 3 octets long. The two most significant bits of the
// first octet select the size:
//   - 0xxxxxxx: 1-octet opcode (0x7F is reserved)
//   - 10xxxxxx: 2-octet opcode
//   - 11xxxxxx: 3-octet vendor opcode, followed by a little-endian company ID
//
// # Capacity
//
// Encoded opcodes never exceed MaxOpcodeSize bytes and parameters never
// exceed MaxParametersSize bytes. Buffers do not grow: emitting past the
// capacity fails with a *CapacityError. On a node this is a contract
// violation rather than a runtime condition, so MustEncode panics with it.
//
// # Decoding
//
// A Registry holds the parsers of the models compiled into a program and
// tries them in registration order. The first parser that recognizes the
// opcode consumes the parameters. An opcode nobody recognizes is not an
// error: mixed-model traffic on a shared bus is the normal case.
//
// # Envelope
//
// RawMessage is the canonical boundary format:
//
//	{"address": 2, "location": 256, "opcode": [130, 2], "parameters": [1, 0]}
//
// Byte sequences are JSON arrays of integers. The same structure is encoded
// with CBOR integer keys for binary transports.
package wire
