package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/jjenkins/billpulse/internal/model"
)

// ErrStanceConflict is returned when a concurrent submission claimed the
// active stance slot for the same user and bill first.
var ErrStanceConflict = errors.New("concurrent stance submission")

const uniqueViolation = "23505"

const stanceColumns = `
	s.id, s.user_id, s.bill_id, s.stance, s.reason, s.zip_code,
	s.congressional_district, s.revision, s.previous_stance_id, s.bill_version_id,
	s.created_at, s.updated_at, s.deleted_at`

// StanceStore is the append-only stance ledger. At most one row per user and
// bill has a NULL deleted_at; the partial unique index enforces it.
type StanceStore struct {
	db *sql.DB
}

// NewStanceStore creates a new StanceStore
func NewStanceStore(db *sql.DB) *StanceStore {
	return &StanceStore{db: db}
}

func scanStance(row rowScanner, st *model.UserStance, extra ...interface{}) error {
	var stance string
	dest := []interface{}{
		&st.ID,
		&st.UserID,
		&st.BillID,
		&stance,
		&st.Reason,
		&st.ZipCode,
		&st.CongressionalDistrict,
		&st.Revision,
		&st.PreviousStanceID,
		&st.BillVersionID,
		&st.CreatedAt,
		&st.UpdatedAt,
		&st.DeletedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return err
	}
	st.Stance = model.StanceType(stance)
	return nil
}

// Current returns the active stance, or nil if the user has none on the bill.
func (s *StanceStore) Current(ctx context.Context, userID, billID int) (*model.UserStance, error) {
	query := `
		SELECT ` + stanceColumns + `
		FROM user_stances s
		WHERE s.user_id = $1 AND s.bill_id = $2 AND s.deleted_at IS NULL
	`

	var st model.UserStance
	err := scanStance(s.db.QueryRowContext(ctx, query, userID, billID), &st)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get current stance: %w", err)
	}
	return &st, nil
}

// Submit records st as the user's active stance on the bill. Any existing
// active row is soft-deleted and the new row continues its revision chain.
// The location is copied from the user's profile and the bill version is
// the latest published one, both as of the submission. Stance, Reason,
// UserID and BillID must be set; every other field is filled in.
func (s *StanceStore) Submit(ctx context.Context, st *model.UserStance) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var previousID, previousRevision int
	err = tx.QueryRowContext(ctx, `
		SELECT id, revision FROM user_stances
		WHERE user_id = $1 AND bill_id = $2 AND deleted_at IS NULL
		FOR UPDATE
	`, st.UserID, st.BillID).Scan(&previousID, &previousRevision)

	switch {
	case err == sql.ErrNoRows:
		st.Revision = 1
		st.PreviousStanceID = sql.NullInt64{}
	case err != nil:
		return fmt.Errorf("failed to lock current stance: %w", err)
	default:
		if _, err := tx.ExecContext(ctx, `
			UPDATE user_stances SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1
		`, previousID); err != nil {
			return fmt.Errorf("failed to supersede stance %d: %w", previousID, err)
		}
		st.Revision = previousRevision + 1
		st.PreviousStanceID = sql.NullInt64{Int64: int64(previousID), Valid: true}
	}

	versionID, err := latestVersionID(ctx, tx, st.BillID)
	if err != nil {
		return err
	}
	st.BillVersionID = versionID

	err = tx.QueryRowContext(ctx, `
		INSERT INTO user_stances (user_id, bill_id, stance, reason, zip_code,
		                          congressional_district, revision, previous_stance_id,
		                          bill_version_id)
		SELECT u.id, $2::integer, $3::text, $4::text, u.zip_code, u.congressional_district,
		       $5::integer, $6::integer, $7::integer
		FROM users u
		WHERE u.id = $1
		RETURNING id, zip_code, congressional_district, created_at, updated_at
	`,
		st.UserID,
		st.BillID,
		string(st.Stance),
		st.Reason,
		st.Revision,
		st.PreviousStanceID,
		st.BillVersionID,
	).Scan(&st.ID, &st.ZipCode, &st.CongressionalDistrict, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrStanceConflict
		}
		if err == sql.ErrNoRows {
			return fmt.Errorf("user %d does not exist", st.UserID)
		}
		return fmt.Errorf("failed to insert stance: %w", err)
	}
	st.DeletedAt = sql.NullTime{}

	if err := tx.Commit(); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrStanceConflict
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Remove retracts the user's active stance. It reports false when there was
// nothing to retract.
func (s *StanceStore) Remove(ctx context.Context, userID, billID int) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE user_stances SET deleted_at = NOW(), updated_at = NOW()
		WHERE user_id = $1 AND bill_id = $2 AND deleted_at IS NULL
	`, userID, billID)
	if err != nil {
		return false, fmt.Errorf("failed to remove stance: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// History walks the revision chain back from the active stance, or from the
// latest retracted one when none is active, newest revision first.
func (s *StanceStore) History(ctx context.Context, userID, billID int) ([]model.UserStance, error) {
	query := `
		WITH RECURSIVE chain AS (
			(SELECT * FROM user_stances
			 WHERE user_id = $1 AND bill_id = $2
			 ORDER BY (deleted_at IS NULL) DESC, id DESC
			 LIMIT 1)
			UNION ALL
			SELECT p.* FROM user_stances p
			JOIN chain c ON p.id = c.previous_stance_id
		)
		SELECT ` + stanceColumns + `
		FROM chain s
		ORDER BY s.revision DESC
	`

	rows, err := s.db.QueryContext(ctx, query, userID, billID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stance history: %w", err)
	}
	defer rows.Close()

	var history []model.UserStance
	for rows.Next() {
		var st model.UserStance
		if err := scanStance(rows, &st); err != nil {
			return nil, fmt.Errorf("failed to scan stance: %w", err)
		}
		history = append(history, st)
	}

	return history, rows.Err()
}

// ListActiveForBill returns every active stance on a bill with the author's
// current district in UserDistrict.
func (s *StanceStore) ListActiveForBill(ctx context.Context, billID int) ([]model.UserStance, error) {
	query := `
		SELECT ` + stanceColumns + `, u.congressional_district
		FROM user_stances s
		JOIN users u ON u.id = s.user_id
		WHERE s.bill_id = $1 AND s.deleted_at IS NULL
		ORDER BY s.created_at
	`

	rows, err := s.db.QueryContext(ctx, query, billID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stances: %w", err)
	}
	defer rows.Close()

	var stances []model.UserStance
	for rows.Next() {
		var st model.UserStance
		if err := scanStance(rows, &st, &st.UserDistrict); err != nil {
			return nil, fmt.Errorf("failed to scan stance: %w", err)
		}
		stances = append(stances, st)
	}

	return stances, rows.Err()
}
