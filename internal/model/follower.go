package model

import (
	"database/sql"
	"time"
)

// NotificationInterval is the minimum gap between two notices to one follower.
const NotificationInterval = time.Hour

// NotificationPreferences selects which bill changes a follower hears about.
type NotificationPreferences struct {
	OnAmendment     bool
	OnVote          bool
	OnStatusChange  bool
	OnNewDiscussion bool
}

// DefaultNotificationPreferences matches what a new follower gets when no
// preferences are supplied.
func DefaultNotificationPreferences() NotificationPreferences {
	return NotificationPreferences{
		OnAmendment:    true,
		OnVote:         true,
		OnStatusChange: true,
	}
}

// BillFollower subscribes a user to changes on a bill.
type BillFollower struct {
	ID             int
	UserID         int
	BillID         int
	Preferences    NotificationPreferences
	FollowedAt     time.Time
	LastNotifiedAt sql.NullTime
}

// CanSendNotification reports whether the follower is outside the
// notification throttle window at now.
func (f *BillFollower) CanSendNotification(now time.Time) bool {
	if !f.LastNotifiedAt.Valid {
		return true
	}
	return now.Sub(f.LastNotifiedAt.Time) >= NotificationInterval
}
