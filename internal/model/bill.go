package model

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// BillStatus is the lifecycle stage of a bill.
type BillStatus string

const (
	StatusIntroduced          BillStatus = "introduced"
	StatusReferredToCommittee BillStatus = "referred_to_committee"
	StatusReportedByCommittee BillStatus = "reported_by_committee"
	StatusPassedHouse         BillStatus = "passed_house"
	StatusPassedSenate        BillStatus = "passed_senate"
	StatusPassedBoth          BillStatus = "passed_both"
	StatusFailed              BillStatus = "failed"
	StatusVetoed              BillStatus = "vetoed"
	StatusBecameLaw           BillStatus = "became_law"
)

// Display returns the human-readable status label.
func (s BillStatus) Display() string {
	switch s {
	case StatusIntroduced:
		return "Introduced"
	case StatusReferredToCommittee:
		return "Referred to Committee"
	case StatusReportedByCommittee:
		return "Reported by Committee"
	case StatusPassedHouse:
		return "Passed House"
	case StatusPassedSenate:
		return "Passed Senate"
	case StatusPassedBoth:
		return "Passed Both Chambers"
	case StatusFailed:
		return "Failed"
	case StatusVetoed:
		return "Vetoed"
	case StatusBecameLaw:
		return "Became Law"
	}
	label := strings.ReplaceAll(string(s), "_", " ")
	if label == "" {
		return ""
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

// Chamber is the originating chamber of a bill.
type Chamber string

const (
	ChamberHouse  Chamber = "house"
	ChamberSenate Chamber = "senate"
	ChamberJoint  Chamber = "joint"
)

// ChamberForType derives the originating chamber from a bill type code
// such as "hr" or "sjres".
func ChamberForType(billType string) Chamber {
	if strings.HasPrefix(strings.ToLower(billType), "h") {
		return ChamberHouse
	}
	return ChamberSenate
}

// CurrentCongress returns the number of the Congress in session at t.
func CurrentCongress(t time.Time) int {
	return (t.Year()-1789)/2 + 1
}

// Committee is a committee a bill has been referred to.
type Committee struct {
	Name    string `json:"name"`
	Chamber string `json:"chamber,omitempty"`
	Type    string `json:"type,omitempty"`
}

// Bill is a piece of federal legislation, keyed by
// (CongressNumber, Chamber, BillType, BillNumber).
type Bill struct {
	ID                               int
	CongressNumber                   int
	Chamber                          Chamber
	BillType                         string
	BillNumber                       int
	Title                            string
	ShortTitle                       sql.NullString
	Summary                          sql.NullString
	ConstitutionalAuthorityStatement sql.NullString
	Committees                       []Committee
	Subjects                         []string
	PolicyArea                       sql.NullString
	Status                           BillStatus
	IntroducedDate                   sql.NullTime
	LastActionAt                     sql.NullTime
	LastActionText                   sql.NullString
	AffectedStates                   []string
	AffectedDistricts                []string
	IsNational                       bool
	CongressGovURL                   sql.NullString
	LastSyncedAt                     sql.NullTime
	SyncSource                       string
	ConfidenceScore                  int
	CreatedAt                        time.Time
	UpdatedAt                        time.Time
}

var billTypePrefixes = map[string]string{
	"hr":      "H.R.",
	"s":       "S.",
	"hjres":   "H.J.Res.",
	"sjres":   "S.J.Res.",
	"hconres": "H.Con.Res.",
	"sconres": "S.Con.Res.",
	"hres":    "H.Res.",
	"sres":    "S.Res.",
}

var billTypeSlugs = map[string]string{
	"hr":      "house-bill",
	"s":       "senate-bill",
	"hjres":   "house-joint-resolution",
	"sjres":   "senate-joint-resolution",
	"hconres": "house-concurrent-resolution",
	"sconres": "senate-concurrent-resolution",
	"hres":    "house-resolution",
	"sres":    "senate-resolution",
}

// Identifier formats the citation used on congress.gov, e.g. "H.R. 1234".
func (b *Bill) Identifier() string {
	prefix, ok := billTypePrefixes[strings.ToLower(b.BillType)]
	if !ok {
		prefix = strings.ToUpper(b.BillType)
	}
	return fmt.Sprintf("%s %d", prefix, b.BillNumber)
}

// PublicURL converts the stored API URL into the public congress.gov page.
func (b *Bill) PublicURL() string {
	if !b.CongressGovURL.Valid || b.CongressGovURL.String == "" {
		return ""
	}
	if strings.Contains(b.CongressGovURL.String, "www.congress.gov") {
		return b.CongressGovURL.String
	}

	slug, ok := billTypeSlugs[strings.ToLower(b.BillType)]
	if !ok {
		switch b.Chamber {
		case ChamberHouse:
			slug = "house-bill"
		case ChamberSenate:
			slug = "senate-bill"
		default:
			slug = "bill"
		}
	}

	return fmt.Sprintf("https://www.congress.gov/bill/%dth-congress/%s/%d", b.CongressNumber, slug, b.BillNumber)
}

// IsStale reports whether the bill has not been synced within threshold.
func (b *Bill) IsStale(threshold time.Duration, now time.Time) bool {
	if !b.LastSyncedAt.Valid {
		return true
	}
	return now.Sub(b.LastSyncedAt.Time) > threshold
}

// IsActive reports whether the bill can still move through Congress.
func (b *Bill) IsActive() bool {
	switch b.Status {
	case StatusBecameLaw, StatusFailed, StatusVetoed:
		return false
	}
	return true
}

// AffectsLocation reports whether the bill names the state or the
// "STATE-DISTRICT" pair in its geographic impact lists. National bills
// never match.
func (b *Bill) AffectsLocation(state, district string) bool {
	if b.IsNational {
		return false
	}

	for _, s := range b.AffectedStates {
		if s == state {
			return true
		}
	}

	if district == "" {
		return false
	}

	full := state + "-" + district
	for _, d := range b.AffectedDistricts {
		if d == full {
			return true
		}
	}

	return false
}

// ActorType classifies a BillActor.
type ActorType string

const (
	ActorSponsor   ActorType = "sponsor"
	ActorCosponsor ActorType = "cosponsor"
	ActorCommittee ActorType = "committee"
	ActorAgency    ActorType = "agency"
)

// BillActor is a person or body attached to a bill, unique per
// (BillID, ActorType, BioguideID).
type BillActor struct {
	ID         int
	BillID     int
	ActorType  ActorType
	BioguideID string
	Name       string
	Party      sql.NullString
	State      sql.NullString
	District   sql.NullString
	IsPrimary  bool
	JoinedAt   sql.NullTime
}

// BillVersion is one published text revision of a bill.
type BillVersion struct {
	ID          int
	BillID      int
	VersionCode string
	VersionName string
	TextURL     sql.NullString
	PublishedAt sql.NullTime
	CreatedAt   time.Time
}

// BillGraph is a bill with the sub-entities written alongside it in one sync.
type BillGraph struct {
	Bill     *Bill
	Sponsor  *BillActor
	Actors   []BillActor
	Events   []BillEvent
	Versions []BillVersion
}

// SponsoredBill pairs a bill with its primary sponsor, if known.
type SponsoredBill struct {
	Bill    Bill
	Sponsor *BillActor
}
