// Package queue provides the Redis-backed work queue used for remote
// tool invocation.
//
// Producers push Invocation documents onto a list queue; workers block
// on Pop, execute the tool through the engine, and publish an Outcome
// to the invocation's reply channel over pub/sub. The queue carries
// requests and results only - execution history is not persisted here
// or anywhere else.
package queue
