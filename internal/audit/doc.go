// Package audit implements async event dispatching for token lifecycle events.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, zerolog, Kafka, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full or block-if-full semantics.
//   - [Event]: structured audit record with timestamp, type, account, IP and reason.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which
// events to emit; the Engine does.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import authcore or any sibling internal package.
//   - Carry token values in events.
package audit
