package model

import (
	"database/sql"
	"time"
)

// EventType tags a legislative action.
type EventType string

const (
	EventIntroduced          EventType = "introduced"
	EventReferredToCommittee EventType = "referred_to_committee"
	EventReportedByCommittee EventType = "reported_by_committee"
	EventCommitteeAction     EventType = "committee_action"
	EventFloorAction         EventType = "floor_action"
	EventVote                EventType = "vote"
	EventPassedChamber       EventType = "passed_chamber"
	EventFailedVote          EventType = "failed_vote"
	EventAmended             EventType = "amended"
	EventSentToOtherChamber  EventType = "sent_to_other_chamber"
	EventConferenceCommittee EventType = "conference_committee"
	EventSentToPresident     EventType = "sent_to_president"
	EventSignedByPresident   EventType = "signed_by_president"
	EventVetoed              EventType = "vetoed"
	EventBecameLaw           EventType = "became_law"
	EventOther               EventType = "other"
)

// BillEvent is one dated action on a bill, unique per
// (BillID, EventType, OccurredAt).
type BillEvent struct {
	ID          int
	BillID      int
	EventType   EventType
	Chamber     sql.NullString
	Description string
	OccurredAt  time.Time
	Source      string
	DetectedAt  time.Time
	CreatedAt   time.Time
}

// IsSignificant reports whether the event changes what the bill is or where it stands.
func (e *BillEvent) IsSignificant() bool {
	switch e.EventType {
	case EventIntroduced, EventPassedChamber, EventAmended, EventSentToPresident,
		EventSignedByPresident, EventVetoed, EventBecameLaw:
		return true
	}
	return false
}
