// Package sqlite provides the durable store for ClubMesh.
//
// Tokens and follow relationships live in a single SQLite database
// file. The schema is fixed: existing database files written by older
// deployments open unchanged, and files written here open under them.
//
// Every mutation is durable before the in-memory cache sees it. The
// package never reads through to SQLite on the hot path; reads happen
// at startup (cache rebuild) and for statistics totals that include
// inactive and historical rows.
package sqlite
