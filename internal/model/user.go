package model

import (
	"database/sql"
	"strings"
	"time"
)

// AtLarge is the district code for states with a single representative.
const AtLarge = "AL"

// User is a registered constituent.
type User struct {
	ID                    int
	Name                  string
	Email                 string
	ZipCode               sql.NullString
	CongressionalDistrict sql.NullString
	ZipCodeVerifiedAt     sql.NullTime
	GuidelinesAcceptedAt  sql.NullTime
	CreatedAt             time.Time
}

func (u *User) HasAcceptedGuidelines() bool {
	return u.GuidelinesAcceptedAt.Valid
}

func (u *User) HasCompletedProfile() bool {
	return u.ZipCode.Valid && u.ZipCode.String != ""
}

// Location splits the user's district into state and district parts.
// ok is false when no district is on file.
func (u *User) Location() (state, district string, ok bool) {
	if !u.CongressionalDistrict.Valid || u.CongressionalDistrict.String == "" {
		return "", "", false
	}
	state, district = ParseDistrict(u.CongressionalDistrict.String)
	return state, district, state != ""
}

// ParseDistrict splits "CA-12" into ("CA", "12") and "WY-AL" into ("WY", "AL").
// A value without a dash is treated as a bare state code.
func ParseDistrict(value string) (state, district string) {
	value = strings.TrimSpace(value)
	parts := strings.SplitN(value, "-", 2)
	state = strings.ToUpper(parts[0])
	if len(parts) == 2 {
		district = strings.ToUpper(parts[1])
	}
	return state, district
}
