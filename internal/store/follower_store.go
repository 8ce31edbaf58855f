package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jjenkins/billpulse/internal/model"
)

const followerColumns = `
	id, user_id, bill_id, notify_on_amendment, notify_on_vote,
	notify_on_status_change, notify_on_new_discussion, followed_at, last_notified_at`

// FollowerStore handles bill follow subscriptions.
type FollowerStore struct {
	db *sql.DB
}

// NewFollowerStore creates a new FollowerStore
func NewFollowerStore(db *sql.DB) *FollowerStore {
	return &FollowerStore{db: db}
}

func scanFollower(row rowScanner) (*model.BillFollower, error) {
	var f model.BillFollower
	err := row.Scan(
		&f.ID,
		&f.UserID,
		&f.BillID,
		&f.Preferences.OnAmendment,
		&f.Preferences.OnVote,
		&f.Preferences.OnStatusChange,
		&f.Preferences.OnNewDiscussion,
		&f.FollowedAt,
		&f.LastNotifiedAt,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Follow subscribes the user to the bill, replacing the preferences of an
// existing subscription.
func (s *FollowerStore) Follow(ctx context.Context, userID, billID int, prefs model.NotificationPreferences) (*model.BillFollower, error) {
	query := `
		INSERT INTO bill_followers (user_id, bill_id, notify_on_amendment, notify_on_vote,
		                            notify_on_status_change, notify_on_new_discussion)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, bill_id) DO UPDATE SET
			notify_on_amendment = EXCLUDED.notify_on_amendment,
			notify_on_vote = EXCLUDED.notify_on_vote,
			notify_on_status_change = EXCLUDED.notify_on_status_change,
			notify_on_new_discussion = EXCLUDED.notify_on_new_discussion
		RETURNING ` + followerColumns

	f, err := scanFollower(s.db.QueryRowContext(ctx, query, userID, billID,
		prefs.OnAmendment, prefs.OnVote, prefs.OnStatusChange, prefs.OnNewDiscussion))
	if err != nil {
		return nil, fmt.Errorf("failed to follow bill %d: %w", billID, err)
	}
	return f, nil
}

// UpdatePreferences changes an existing subscription. It returns nil when
// the user does not follow the bill.
func (s *FollowerStore) UpdatePreferences(ctx context.Context, userID, billID int, prefs model.NotificationPreferences) (*model.BillFollower, error) {
	query := `
		UPDATE bill_followers SET
			notify_on_amendment = $3,
			notify_on_vote = $4,
			notify_on_status_change = $5,
			notify_on_new_discussion = $6
		WHERE user_id = $1 AND bill_id = $2
		RETURNING ` + followerColumns

	f, err := scanFollower(s.db.QueryRowContext(ctx, query, userID, billID,
		prefs.OnAmendment, prefs.OnVote, prefs.OnStatusChange, prefs.OnNewDiscussion))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update follow preferences: %w", err)
	}
	return f, nil
}

// Unfollow removes the subscription and reports whether one existed.
func (s *FollowerStore) Unfollow(ctx context.Context, userID, billID int) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM bill_followers WHERE user_id = $1 AND bill_id = $2`, userID, billID)
	if err != nil {
		return false, fmt.Errorf("failed to unfollow bill %d: %w", billID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// ListForBill returns every follower of a bill.
func (s *FollowerStore) ListForBill(ctx context.Context, billID int) ([]model.BillFollower, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+followerColumns+` FROM bill_followers WHERE bill_id = $1 ORDER BY id`, billID)
	if err != nil {
		return nil, fmt.Errorf("failed to query followers: %w", err)
	}
	defer rows.Close()

	var followers []model.BillFollower
	for rows.Next() {
		f, err := scanFollower(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan follower: %w", err)
		}
		followers = append(followers, *f)
	}

	return followers, rows.Err()
}

// MarkNotified records that a notice went out to the follower at at.
func (s *FollowerStore) MarkNotified(ctx context.Context, followerID int, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE bill_followers SET last_notified_at = $2 WHERE id = $1`, followerID, at)
	if err != nil {
		return fmt.Errorf("failed to mark follower %d notified: %w", followerID, err)
	}
	return nil
}
