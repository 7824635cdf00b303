// Package adapter defines the protocol dispatch contract between the
// execution engine and concrete invocation mechanisms.
//
// An Adapter performs the actual call for one protocol given a
// descriptor's endpoint data and validated parameters. The set of
// protocols is open: new ones register an adapter under a protocol name
// without modifying the engine. The registry follows an explicit
// construct → freeze → serve lifecycle; the package-level default
// registry is frozen at init with the built-in function_call, http, and
// cli adapters.
//
// Adapters report failures either as an *adapter.Error carrying an
// explicit category (timeout, transport_error, unknown) or as a raw
// error from the tool itself, which the engine's classifier inspects.
package adapter
