// Package sqlite provides the durable store for ClubMesh.
package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/yndnr/clubmesh-go/internal/core/domain"
	"github.com/yndnr/clubmesh-go/internal/telemetry/logger"
)

// schema is the fixed on-disk contract. Database files written by
// older deployments carry exactly these tables and indexes; do not
// add, rename, or retype columns.
const schema = `
CREATE TABLE IF NOT EXISTS clubhouse_tokens (
    token TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    clubhouse_id TEXT NOT NULL,
    expires_at TEXT NOT NULL,
    metadata TEXT,
    created_at TEXT NOT NULL,
    last_used TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS follow_relationships (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    follower_id TEXT NOT NULL,
    following_id TEXT NOT NULL,
    followed_via_token TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'active',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    UNIQUE(follower_id, following_id)
);

CREATE INDEX IF NOT EXISTS idx_tokens_user_id ON clubhouse_tokens(user_id);
CREATE INDEX IF NOT EXISTS idx_tokens_clubhouse_id ON clubhouse_tokens(clubhouse_id);
CREATE INDEX IF NOT EXISTS idx_relationships_follower ON follow_relationships(follower_id);
CREATE INDEX IF NOT EXISTS idx_relationships_following ON follow_relationships(following_id);
`

// Store is the durable SQLite-backed store for tokens and follow
// relationships.
type Store struct {
	pool *pool
	log  logger.Logger
}

// Config holds the parameters for opening a store.
type Config struct {
	// Path is the filesystem path to the SQLite database file. The
	// parent directory must exist. The file is created if it does not
	// exist.
	Path string

	// PoolSize is the number of connections in the pool. Defaults to
	// 4 if zero or negative.
	PoolSize int

	// Logger receives operational messages. Defaults to the package
	// default logger.
	Logger logger.Logger
}

// Open opens (and if necessary creates) the database at cfg.Path and
// ensures the schema exists.
func Open(cfg Config) (*Store, error) {
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}

	p, err := openPool(cfg.Path, cfg.PoolSize, func(conn *sqlite.Conn) error {
		return sqlitex.ExecuteScript(conn, schema, nil)
	})
	if err != nil {
		return nil, err
	}

	log.Info("durable store opened", "path", cfg.Path)

	return &Store{pool: p, log: log}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// ============================================================================
// Token Operations
// ============================================================================

// PutToken inserts a token row. Returns ErrTokenCollision if the ID
// already exists.
func (s *Store) PutToken(ctx context.Context, token *domain.Token) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return domain.ErrStorage.WithCause(err)
	}
	defer s.pool.Put(conn)

	var metadata any
	if len(token.Metadata) > 0 {
		data, err := json.Marshal(token.Metadata)
		if err != nil {
			return domain.ErrInvalidArgument.WithDetails("metadata is not serializable").WithCause(err)
		}
		metadata = string(data)
	}

	err = sqlitex.Execute(conn, `INSERT INTO clubhouse_tokens
		(token, user_id, clubhouse_id, expires_at, metadata, created_at, last_used)
		VALUES (?, ?, ?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
		Args: []any{
			token.ID,
			token.PrincipalID,
			token.ResourceID,
			formatTime(token.ExpiresAt),
			metadata,
			formatTime(token.IssuedAt),
			formatTime(token.LastUsedAt),
		},
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrTokenCollision
		}
		return domain.ErrStorage.WithCause(err)
	}

	return nil
}

// TouchToken updates a token's last_used timestamp.
func (s *Store) TouchToken(ctx context.Context, id string, lastUsed time.Time) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return domain.ErrStorage.WithCause(err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `UPDATE clubhouse_tokens SET last_used = ? WHERE token = ?`,
		&sqlitex.ExecOptions{Args: []any{formatTime(lastUsed), id}})
	if err != nil {
		return domain.ErrStorage.WithCause(err)
	}
	return nil
}

// DeleteToken removes a token row. Returns true if a row was deleted.
func (s *Store) DeleteToken(ctx context.Context, id string) (bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return false, domain.ErrStorage.WithCause(err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `DELETE FROM clubhouse_tokens WHERE token = ?`,
		&sqlitex.ExecOptions{Args: []any{id}})
	if err != nil {
		return false, domain.ErrStorage.WithCause(err)
	}
	return conn.Changes() > 0, nil
}

// DeleteTokensByPrincipal removes every token issued to a principal.
// Returns the number of rows deleted.
func (s *Store) DeleteTokensByPrincipal(ctx context.Context, principal string) (int, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, domain.ErrStorage.WithCause(err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `DELETE FROM clubhouse_tokens WHERE user_id = ?`,
		&sqlitex.ExecOptions{Args: []any{principal}})
	if err != nil {
		return 0, domain.ErrStorage.WithCause(err)
	}
	return conn.Changes(), nil
}

// DeleteExpiredTokens removes every token expired at now. Returns the
// number of rows deleted. ISO 8601 text in UTC orders lexicographically,
// so the comparison runs in SQL.
func (s *Store) DeleteExpiredTokens(ctx context.Context, now time.Time) (int, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, domain.ErrStorage.WithCause(err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`DELETE FROM clubhouse_tokens WHERE expires_at != '' AND expires_at <= ?`,
		&sqlitex.ExecOptions{Args: []any{formatTime(now)}})
	if err != nil {
		return 0, domain.ErrStorage.WithCause(err)
	}
	return conn.Changes(), nil
}

// LoadTokens reads every token row that has not expired at now.
// Used once at startup to rebuild the cache.
func (s *Store) LoadTokens(ctx context.Context, now time.Time) ([]*domain.Token, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, domain.ErrStorage.WithCause(err)
	}
	defer s.pool.Put(conn)

	var tokens []*domain.Token
	err = sqlitex.Execute(conn, `SELECT token, user_id, clubhouse_id, expires_at,
		metadata, created_at, last_used FROM clubhouse_tokens`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			token, err := scanToken(stmt)
			if err != nil {
				return err
			}
			if token.Expired(now) {
				return nil
			}
			tokens = append(tokens, token)
			return nil
		},
	})
	if err != nil {
		return nil, domain.ErrStorage.WithCause(err)
	}
	return tokens, nil
}

// CountTokens returns the total number of token rows, expired included.
func (s *Store) CountTokens(ctx context.Context) (int, error) {
	return s.countRows(ctx, `SELECT COUNT(*) FROM clubhouse_tokens`)
}

func scanToken(stmt *sqlite.Stmt) (*domain.Token, error) {
	token := &domain.Token{
		ID:          stmt.ColumnText(0),
		PrincipalID: stmt.ColumnText(1),
		ResourceID:  stmt.ColumnText(2),
	}

	var err error
	if token.ExpiresAt, err = parseTime(stmt.ColumnText(3)); err != nil {
		return nil, err
	}

	if raw := stmt.ColumnText(4); raw != "" {
		if err := json.Unmarshal([]byte(raw), &token.Metadata); err != nil {
			return nil, fmt.Errorf("token %s: metadata: %w", domain.MaskToken(token.ID), err)
		}
	}

	if token.IssuedAt, err = parseTime(stmt.ColumnText(5)); err != nil {
		return nil, err
	}
	if token.LastUsedAt, err = parseTime(stmt.ColumnText(6)); err != nil {
		return nil, err
	}

	return token, nil
}

// ============================================================================
// Relationship Operations
// ============================================================================

// PutRelationship inserts a follow edge, or reactivates the pair's
// existing inactive row when the incoming edge is active. An inactive
// incoming edge leaves an existing row untouched. Returns
// ErrRelationshipExists when the pair is already active. At most one
// row exists per ordered pair; the unique constraint backstops races.
func (s *Store) PutRelationship(ctx context.Context, edge *domain.Relationship) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return domain.ErrStorage.WithCause(err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return domain.ErrStorage.WithCause(err)
	}
	defer endTransaction(&err)

	var existingStatus string
	found := false
	err = sqlitex.Execute(conn,
		`SELECT status FROM follow_relationships WHERE follower_id = ? AND following_id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{edge.FollowerID, edge.FollowingID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				existingStatus = stmt.ColumnText(0)
				found = true
				return nil
			},
		})
	if err != nil {
		return domain.ErrStorage.WithCause(err)
	}

	if found {
		// An inactive edge records history only; it never resurrects
		// or demotes whatever row the pair already has.
		if edge.Status != domain.StatusActive {
			return nil
		}
		if existingStatus == domain.StatusActive {
			return domain.ErrRelationshipExists
		}
		// Reactivate the soft-deleted row in place.
		err = sqlitex.Execute(conn, `UPDATE follow_relationships
			SET status = ?, followed_via_token = ?, updated_at = ?
			WHERE follower_id = ? AND following_id = ?`, &sqlitex.ExecOptions{
			Args: []any{
				domain.StatusActive,
				edge.ViaToken,
				formatTime(edge.UpdatedAt),
				edge.FollowerID,
				edge.FollowingID,
			},
		})
		if err != nil {
			return domain.ErrStorage.WithCause(err)
		}
		return nil
	}

	err = sqlitex.Execute(conn, `INSERT INTO follow_relationships
		(follower_id, following_id, followed_via_token, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
		Args: []any{
			edge.FollowerID,
			edge.FollowingID,
			edge.ViaToken,
			edge.Status,
			formatTime(edge.CreatedAt),
			formatTime(edge.UpdatedAt),
		},
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrRelationshipExists
		}
		return domain.ErrStorage.WithCause(err)
	}
	return nil
}

// SetRelationshipStatus updates the status of an edge. Returns true if
// a row changed.
func (s *Store) SetRelationshipStatus(ctx context.Context, follower, following, status string, now time.Time) (bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return false, domain.ErrStorage.WithCause(err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `UPDATE follow_relationships
		SET status = ?, updated_at = ?
		WHERE follower_id = ? AND following_id = ? AND status != ?`, &sqlitex.ExecOptions{
		Args: []any{status, formatTime(now), follower, following, status},
	})
	if err != nil {
		return false, domain.ErrStorage.WithCause(err)
	}
	return conn.Changes() > 0, nil
}

// LoadRelationships reads every relationship row, inactive included.
// Used at startup (the cache keeps only active edges) and by Export.
func (s *Store) LoadRelationships(ctx context.Context) ([]*domain.Relationship, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, domain.ErrStorage.WithCause(err)
	}
	defer s.pool.Put(conn)

	var edges []*domain.Relationship
	err = sqlitex.Execute(conn, `SELECT follower_id, following_id, followed_via_token,
		status, created_at, updated_at FROM follow_relationships ORDER BY id`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			edge := &domain.Relationship{
				FollowerID:  stmt.ColumnText(0),
				FollowingID: stmt.ColumnText(1),
				ViaToken:    stmt.ColumnText(2),
				Status:      stmt.ColumnText(3),
				// The durable layer stores follow edges only; the
				// type column is a domain-level concept.
				Type: domain.RelationshipTypeFollow,
			}
			var err error
			if edge.CreatedAt, err = parseTime(stmt.ColumnText(4)); err != nil {
				return err
			}
			if edge.UpdatedAt, err = parseTime(stmt.ColumnText(5)); err != nil {
				return err
			}
			edges = append(edges, edge)
			return nil
		},
	})
	if err != nil {
		return nil, domain.ErrStorage.WithCause(err)
	}
	return edges, nil
}

// CountRelationships returns the total number of relationship rows,
// inactive included.
func (s *Store) CountRelationships(ctx context.Context) (int, error) {
	return s.countRows(ctx, `SELECT COUNT(*) FROM follow_relationships`)
}

// ============================================================================
// Helpers
// ============================================================================

func (s *Store) countRows(ctx context.Context, query string) (int, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, domain.ErrStorage.WithCause(err)
	}
	defer s.pool.Put(conn)

	count := 0
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			count = stmt.ColumnInt(0)
			return nil
		},
	})
	if err != nil {
		return 0, domain.ErrStorage.WithCause(err)
	}
	return count, nil
}

func isUniqueViolation(err error) bool {
	code := sqlite.ErrCode(err)
	return code == sqlite.ResultConstraintUnique || code == sqlite.ResultConstraintPrimaryKey
}
