// Package core holds the small set of abstractions shared by every other
// package: the context-aware FileSystem, its gated and in-memory variants,
// the error taxonomy and the diagnostics collector.
package core
