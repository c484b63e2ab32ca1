// package tasks implements the cross-service conversion engine.
//
// The core abstraction is Engine, which orchestrates single-entity link
// resolution and playlist conversion between the two catalogs.
// Long-running operations emit progress updates via channels for
// non-blocking status reporting to the CLI/TUI layers.
//
// Single-entity resolution propagates the first terminal error; a
// playlist conversion isolates per-track failures and only escalates
// when the destination playlist itself cannot be created.
package tasks
