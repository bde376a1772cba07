// Package service implements the ClubMesh manager.
//
// The Manager is the façade over the durable store, the in-memory
// cache, and the notification bus. It owns the write-through ordering
// (durable write, then cache update, then notification) and serializes
// mutations per token id and per ordered principal pair with striped
// locks.
//
// The package defines the Store interface it needs from durable
// storage; internal/storage/sqlite provides it.
package service
