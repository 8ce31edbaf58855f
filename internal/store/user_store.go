package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jjenkins/billpulse/internal/model"
)

// UserStore handles database operations for users
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a new UserStore
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// Create inserts a user and sets its ID and CreatedAt.
func (s *UserStore) Create(ctx context.Context, u *model.User) error {
	query := `
		INSERT INTO users (name, email, zip_code, congressional_district,
		                   zip_code_verified_at, guidelines_accepted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		u.Name,
		u.Email,
		u.ZipCode,
		u.CongressionalDistrict,
		u.ZipCodeVerifiedAt,
		u.GuidelinesAcceptedAt,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user %s: %w", u.Email, err)
	}

	return nil
}

// GetUser retrieves a user by id. It returns nil when the user does not exist.
func (s *UserStore) GetUser(ctx context.Context, id int) (*model.User, error) {
	query := `
		SELECT id, name, email, zip_code, congressional_district,
		       zip_code_verified_at, guidelines_accepted_at, created_at
		FROM users
		WHERE id = $1
	`

	var u model.User
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.ZipCode,
		&u.CongressionalDistrict,
		&u.ZipCodeVerifiedAt,
		&u.GuidelinesAcceptedAt,
		&u.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}

	return &u, nil
}

// UpdateLocation stores a verified ZIP code and the district it resolved to.
func (s *UserStore) UpdateLocation(ctx context.Context, id int, zip, district string, verifiedAt time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET zip_code = $2, congressional_district = $3, zip_code_verified_at = $4
		WHERE id = $1
	`, id, zip, district, verifiedAt)
	if err != nil {
		return fmt.Errorf("failed to update location for user %d: %w", id, err)
	}
	return expectOneRow(result, "user", id)
}

// AcceptGuidelines stamps the user's acceptance of the participation
// guidelines. An earlier acceptance is kept.
func (s *UserStore) AcceptGuidelines(ctx context.Context, id int, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET guidelines_accepted_at = COALESCE(guidelines_accepted_at, $2)
		WHERE id = $1
	`, id, at)
	if err != nil {
		return fmt.Errorf("failed to accept guidelines for user %d: %w", id, err)
	}
	return expectOneRow(result, "user", id)
}

func expectOneRow(result sql.Result, entity string, id int) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d not found", entity, id)
	}
	return nil
}
