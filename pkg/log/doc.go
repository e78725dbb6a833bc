// Package log provides structured protocol logging for meshnode.
//
// This package defines the Logger interface and Event types for capturing
// protocol-level events at multiple layers (transport, wire, model).
// It is separate from operational logging (slog): protocol capture provides
// a complete machine-readable trace of everything a node received, published
// and changed.
//
// # Basic Usage
//
//	// Development: protocol events on the console
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// Production: binary file
//	cfg.ProtocolLogger, _ = log.NewFileLogger("/var/log/meshnode/node.mlog")
//
//	// Both
//	cfg.ProtocolLogger = log.NewMultiLogger(adapter, fileLogger)
//
// # Event Types
//
//   - Transport: raw frame bytes (FrameEvent)
//   - Wire: access messages with opcode and parameters (MessageEvent)
//   - Model: control events (ControlEvent) and state changes
//     (StateChangeEvent), e.g. display active or cadence phase
//
// Errors at any layer use ErrorEventData.
//
// # File Format
//
// Log files are a sequence of CBOR-encoded events with the .mlog extension.
// The meshlog tool views, summarizes and exports them.
package log
