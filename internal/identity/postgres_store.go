package identity

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type rowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
}

// PostgresStore reads phone mappings from the application database.
type PostgresStore struct {
	pool rowQuerier
}

// NewPostgresStore initializes a store backed by pgxpool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("identity: pgx pool required")
	}
	return &PostgresStore{pool: pool}
}

func newPostgresStoreWithQuerier(q rowQuerier) *PostgresStore {
	if q == nil {
		panic("identity: querier required")
	}
	return &PostgresStore{pool: q}
}

const lookupPhoneQuery = `
	SELECT u.id, u.email, u.full_name, u.is_active, p.phone_number, p.is_primary, p.is_verified
	FROM user_phone_numbers p
	JOIN users u ON u.id = p.user_id
	WHERE p.phone_number = $1
	ORDER BY p.is_primary DESC, p.created_at ASC
`

// LookupPhone implements Store.
func (s *PostgresStore) LookupPhone(ctx context.Context, phone string) ([]PhoneMatch, error) {
	rows, err := s.pool.Query(ctx, lookupPhoneQuery, phone)
	if err != nil {
		return nil, fmt.Errorf("identity: lookup phone: %w", err)
	}
	defer rows.Close()

	var matches []PhoneMatch
	for rows.Next() {
		var m PhoneMatch
		if err := rows.Scan(&m.UserID, &m.Email, &m.FullName, &m.IsActive, &m.Phone, &m.IsPrimary, &m.IsVerified); err != nil {
			return nil, fmt.Errorf("identity: scan phone match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("identity: iterate phone matches: %w", err)
	}
	return matches, nil
}

// Ping implements Store.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("identity: ping database: %w", err)
	}
	return nil
}
