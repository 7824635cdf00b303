// Package registry holds the immutable descriptor snapshots read by the
// engine and the selector.
//
// A Snapshot is a consistent id → descriptor mapping with unique ids.
// Reload is always build-new-snapshot-then-swap: a Store publishes one
// snapshot at a time through an atomic pointer, so concurrent
// invocations never observe a partially updated tool set.
//
// The optional Source keeps a Store in sync with descriptor documents
// held in etcd, rebuilding and swapping a fresh snapshot on every watch
// event. Registries populated from local files use descriptor.LoadDir
// with NewSnapshot directly.
package registry
