// Package roster looks up tutor roles in the study platform's database.
package roster

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const roleQuery = `SELECT is_tutor FROM session_participants WHERE session_id = $1 AND user_id = $2`

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresResolver answers role lookups from session_participants. A user
// without a row is a student, whatever the client claims.
type PostgresResolver struct {
	db    querier
	close func()
}

func NewPostgresResolver(ctx context.Context, url string) (*PostgresResolver, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresResolver{db: pool, close: pool.Close}, nil
}

func (r *PostgresResolver) ResolveRole(ctx context.Context, sessionID, userID string, _ bool) (bool, error) {
	var isTutor bool
	err := r.db.QueryRow(ctx, roleQuery, sessionID, userID).Scan(&isTutor)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup role of %s in %s: %w", userID, sessionID, err)
	}
	return isTutor, nil
}

func (r *PostgresResolver) Close() {
	if r.close != nil {
		r.close()
	}
}
