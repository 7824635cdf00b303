// Package descriptor defines the immutable, validated in-memory
// representation of a tool definition.
//
// A Descriptor carries a tool's manifest, its parameter and return
// schemas, usage guidance consumed by the selector, a per-error-type
// recovery policy consumed by the engine, advisory performance hints,
// and a dependency list. Descriptors are pure data: once loaded and
// validated they are read-only for the lifetime of the process, and the
// engine trusts their structural validity while still re-validating
// every parameter and return value at call time.
//
// Recovery policies are a closed tagged union: each of the five
// strategies is its own type with its own required fields, so a missing
// field (e.g. a backoff schedule) is a load-time error rather than a
// runtime surprise.
package descriptor
