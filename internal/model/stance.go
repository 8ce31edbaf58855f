package model

import (
	"database/sql"
	"time"
)

// StanceType is a user's position on a bill.
type StanceType string

const (
	StanceSupport       StanceType = "support"
	StanceOppose        StanceType = "oppose"
	StanceMixed         StanceType = "mixed"
	StanceUndecided     StanceType = "undecided"
	StanceNeedsMoreInfo StanceType = "needs_more_info"
)

// StanceTypes lists every stance in display order. Aggregations iterate this
// slice so ties always resolve the same way.
var StanceTypes = []StanceType{
	StanceSupport,
	StanceOppose,
	StanceMixed,
	StanceUndecided,
	StanceNeedsMoreInfo,
}

// Valid reports whether s is a known stance.
func (s StanceType) Valid() bool {
	for _, t := range StanceTypes {
		if s == t {
			return true
		}
	}
	return false
}

func (s StanceType) Label() string {
	switch s {
	case StanceSupport:
		return "Support"
	case StanceOppose:
		return "Oppose"
	case StanceMixed:
		return "Mixed Feelings"
	case StanceUndecided:
		return "Undecided"
	case StanceNeedsMoreInfo:
		return "Need More Info"
	}
	return string(s)
}

// UserStance is one revision of a user's position on a bill. Rows are never
// updated in place: an edit soft-deletes the active row and appends a new one
// pointing back at it through PreviousStanceID.
type UserStance struct {
	ID                    int
	UserID                int
	BillID                int
	Stance                StanceType
	Reason                string
	ZipCode               sql.NullString
	CongressionalDistrict sql.NullString
	Revision              int
	PreviousStanceID      sql.NullInt64
	BillVersionID         sql.NullInt64
	CreatedAt             time.Time
	UpdatedAt             time.Time
	DeletedAt             sql.NullTime

	// UserDistrict is the author's current district, set only by reads that
	// join the users table.
	UserDistrict sql.NullString
}

// IsActive reports whether the revision is the user's current stance.
func (s *UserStance) IsActive() bool {
	return !s.DeletedAt.Valid
}

// IsBillOutdated reports whether the bill text has been revised since the
// stance was recorded.
func (s *UserStance) IsBillOutdated(latestVersionID sql.NullInt64) bool {
	if !s.BillVersionID.Valid || !latestVersionID.Valid {
		return false
	}
	return latestVersionID.Int64 != s.BillVersionID.Int64
}
