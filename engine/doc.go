// Package engine implements the tool execution and recovery state
// machine.
//
// One Execute call runs: validate input → dispatch via the protocol
// adapter → validate output → succeed, with failures from any stage
// classified into the fixed error taxonomy and handed to the
// descriptor's declared recovery policy (retry, backoff, wait,
// fallback tool, fail, prompt user). Retries are serial per invocation;
// attempt N+1 never starts before attempt N's outcome is classified.
// Timeouts bound each attempt individually, and cancellation is honored
// both during dispatch and during declared backoff waits.
//
// The engine keeps no state between invocations: every attempt (success
// or failure) is recorded on the returned Result so callers can build
// monitoring on top, and nothing is persisted. Concurrent Execute calls
// share only the read-only adapter registry and whatever descriptor
// snapshot the caller resolves fallbacks from.
package engine
