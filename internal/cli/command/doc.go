// Package command provides CLI command definitions for clubmesh.
//
// Command groups:
//
//   - token: generate, validate, revoke, revoke-all, sweep
//   - follow / unfollow / following / followers: follow graph
//   - clubhouse: resource inspection
//   - stats: aggregate statistics
//   - export / import: portable archives, optionally sealed
//
// All commands open the SQLite store in-process; there is no daemon
// to connect to. Concurrent CLI invocations are safe: SQLite WAL mode
// serializes writers.
package command
