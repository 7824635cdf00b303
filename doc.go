// Package aitool provides a runtime for declarative tool descriptors.
//
// An AITool is an invocable unit of work described by a declarative
// descriptor: a manifest, parameter and return schemas, usage guidance
// for tool selection, and a per-error-type recovery policy. This module
// loads such descriptors, validates untrusted input and output against
// their schemas, dispatches execution across pluggable invocation
// protocols, classifies runtime failures into a fixed taxonomy, and
// applies bounded, observable recovery.
//
// # Core Concepts
//
// The module is organized around several key concepts:
//
//   - Descriptors: immutable, validated tool definitions (package descriptor)
//   - Schemas: the validation subset applied to parameters and results (package schema)
//   - Adapters: pluggable protocol implementations behind one contract (package adapter)
//   - Engine: the execution and recovery state machine (package engine)
//   - Selector: relevance scoring for choosing among candidate tools (package selector)
//   - Registry: immutable descriptor snapshots, swapped never mutated (package registry)
//
// # Architecture
//
// Descriptors feed both the engine and the selector. For each invocation
// the engine validates input, resolves exactly one adapter per attempt,
// validates output, and on failure consults the descriptor's recovery
// policy for the classified error type. Every attempt is recorded on the
// returned result so callers can build monitoring on top without the
// engine persisting anything.
//
// Remote execution is optional: package queue provides a Redis-backed
// work queue and package worker a loop that drains it through the same
// engine, mirroring local semantics.
package aitool
