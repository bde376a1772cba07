// Package memory provides the in-memory cache for ClubMesh.
//
// The cache mirrors the durable store: non-expired tokens and active
// follow edges. It is rebuilt exclusively from the durable store at
// startup and updated write-through, always after the durable write
// has succeeded.
//
// Features:
//
//   - Sharded Storage: tokens distributed across shards for parallelism
//   - Secondary Indexes: fast lookup by principal and by clubhouse
//   - Edge Graph: forward adjacency with reverse lookup
//
// Thread Safety:
//
// All operations are thread-safe through fine-grained locking.
// Read operations use RLock, write operations use Lock.
package memory
