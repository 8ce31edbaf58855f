package handlers

import (
	"database/sql"
	"time"

	"github.com/jjenkins/billpulse/internal/model"
	"github.com/jjenkins/billpulse/internal/stance"
)

// BillData is the API view of a bill.
type BillData struct {
	ID                int               `json:"id"`
	Identifier        string            `json:"identifier"`
	CongressNumber    int               `json:"congress_number"`
	Chamber           model.Chamber     `json:"chamber"`
	BillType          string            `json:"bill_type"`
	BillNumber        int               `json:"bill_number"`
	Title             string            `json:"title"`
	ShortTitle        string            `json:"short_title,omitempty"`
	Summary           string            `json:"summary,omitempty"`
	PolicyArea        string            `json:"policy_area,omitempty"`
	Subjects          []string          `json:"subjects"`
	Committees        []model.Committee `json:"committees"`
	Status            model.BillStatus  `json:"status"`
	StatusLabel       string            `json:"status_label"`
	IntroducedDate    *time.Time        `json:"introduced_date,omitempty"`
	LastActionAt      *time.Time        `json:"last_action_at,omitempty"`
	LastActionText    string            `json:"last_action_text,omitempty"`
	IsNational        bool              `json:"is_national"`
	AffectedStates    []string          `json:"affected_states"`
	AffectedDistricts []string          `json:"affected_districts"`
	URL               string            `json:"url,omitempty"`
	LastSyncedAt      *time.Time        `json:"last_synced_at,omitempty"`
}

// ActorData is a sponsor or cosponsor.
type ActorData struct {
	BioguideID string     `json:"bioguide_id"`
	Name       string     `json:"name"`
	Type       string     `json:"type"`
	Party      string     `json:"party,omitempty"`
	State      string     `json:"state,omitempty"`
	District   string     `json:"district,omitempty"`
	IsPrimary  bool       `json:"is_primary"`
	JoinedAt   *time.Time `json:"joined_at,omitempty"`
}

type EventData struct {
	Type        model.EventType `json:"type"`
	Chamber     string          `json:"chamber,omitempty"`
	Description string          `json:"description"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Significant bool            `json:"significant"`
}

type VersionData struct {
	ID          int        `json:"id"`
	Code        string     `json:"code"`
	Name        string     `json:"name"`
	TextURL     string     `json:"text_url,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// BillDetailResponse is a bill with its sponsor, timeline and text versions.
type BillDetailResponse struct {
	Bill     BillData      `json:"bill"`
	Sponsor  *ActorData    `json:"sponsor"`
	Events   []EventData   `json:"events"`
	Versions []VersionData `json:"versions"`
}

type BillListResponse struct {
	Bills []BillData `json:"bills"`
	Count int        `json:"count"`
}

// StanceData is one stance revision.
type StanceData struct {
	ID               int              `json:"id"`
	BillID           int              `json:"bill_id"`
	Stance           model.StanceType `json:"stance"`
	StanceLabel      string           `json:"stance_label"`
	Reason           string           `json:"reason"`
	ZipCode          string           `json:"zip_code,omitempty"`
	District         string           `json:"congressional_district,omitempty"`
	Revision         int              `json:"revision"`
	PreviousStanceID *int64           `json:"previous_stance_id"`
	Active           bool             `json:"active"`
	BillOutdated     bool             `json:"bill_outdated"`
	CreatedAt        time.Time        `json:"created_at"`
}

type StanceHistoryResponse struct {
	Revisions []StanceData `json:"revisions"`
	Count     int          `json:"count"`
}

// FollowData is a follow subscription and its notification preferences.
type FollowData struct {
	BillID          int        `json:"bill_id"`
	OnAmendment     bool       `json:"notify_on_amendment"`
	OnVote          bool       `json:"notify_on_vote"`
	OnStatusChange  bool       `json:"notify_on_status_change"`
	OnNewDiscussion bool       `json:"notify_on_new_discussion"`
	FollowedAt      time.Time  `json:"followed_at"`
	LastNotifiedAt  *time.Time `json:"last_notified_at,omitempty"`
}

type LocalBill struct {
	BillData
	Sponsor *ActorData `json:"sponsor"`
}

type LocalBillsResponse struct {
	District string      `json:"congressional_district"`
	Bills    []LocalBill `json:"bills"`
	Count    int         `json:"count"`
}

type LocationResponse struct {
	UserID   int    `json:"user_id"`
	ZipCode  string `json:"zip_code"`
	District string `json:"congressional_district"`
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func mapBill(b *model.Bill) BillData {
	committees := b.Committees
	if committees == nil {
		committees = []model.Committee{}
	}

	return BillData{
		ID:                b.ID,
		Identifier:        b.Identifier(),
		CongressNumber:    b.CongressNumber,
		Chamber:           b.Chamber,
		BillType:          b.BillType,
		BillNumber:        b.BillNumber,
		Title:             b.Title,
		ShortTitle:        b.ShortTitle.String,
		Summary:           b.Summary.String,
		PolicyArea:        b.PolicyArea.String,
		Subjects:          nonNil(b.Subjects),
		Committees:        committees,
		Status:            b.Status,
		StatusLabel:       b.Status.Display(),
		IntroducedDate:    nullTime(b.IntroducedDate),
		LastActionAt:      nullTime(b.LastActionAt),
		LastActionText:    b.LastActionText.String,
		IsNational:        b.IsNational,
		AffectedStates:    nonNil(b.AffectedStates),
		AffectedDistricts: nonNil(b.AffectedDistricts),
		URL:               b.PublicURL(),
		LastSyncedAt:      nullTime(b.LastSyncedAt),
	}
}

func mapActor(a *model.BillActor) *ActorData {
	if a == nil {
		return nil
	}
	return &ActorData{
		BioguideID: a.BioguideID,
		Name:       a.Name,
		Type:       string(a.ActorType),
		Party:      a.Party.String,
		State:      a.State.String,
		District:   a.District.String,
		IsPrimary:  a.IsPrimary,
		JoinedAt:   nullTime(a.JoinedAt),
	}
}

func mapEvents(events []model.BillEvent) []EventData {
	out := make([]EventData, len(events))
	for i := range events {
		e := &events[i]
		out[i] = EventData{
			Type:        e.EventType,
			Chamber:     e.Chamber.String,
			Description: e.Description,
			OccurredAt:  e.OccurredAt,
			Significant: e.IsSignificant(),
		}
	}
	return out
}

func mapVersions(versions []model.BillVersion) []VersionData {
	out := make([]VersionData, len(versions))
	for i, v := range versions {
		out[i] = VersionData{
			ID:          v.ID,
			Code:        v.VersionCode,
			Name:        v.VersionName,
			TextURL:     v.TextURL.String,
			PublishedAt: nullTime(v.PublishedAt),
		}
	}
	return out
}

func mapStance(st *model.UserStance, outdated bool) StanceData {
	data := StanceData{
		ID:           st.ID,
		BillID:       st.BillID,
		Stance:       st.Stance,
		StanceLabel:  st.Stance.Label(),
		Reason:       st.Reason,
		ZipCode:      st.ZipCode.String,
		District:     st.CongressionalDistrict.String,
		Revision:     st.Revision,
		Active:       st.IsActive(),
		BillOutdated: outdated,
		CreatedAt:    st.CreatedAt,
	}
	if st.PreviousStanceID.Valid {
		id := st.PreviousStanceID.Int64
		data.PreviousStanceID = &id
	}
	return data
}

func mapEntries(entries []stance.Entry) []StanceData {
	out := make([]StanceData, len(entries))
	for i := range entries {
		out[i] = mapStance(&entries[i].UserStance, entries[i].BillOutdated)
	}
	return out
}

func mapFollow(f *model.BillFollower) FollowData {
	return FollowData{
		BillID:          f.BillID,
		OnAmendment:     f.Preferences.OnAmendment,
		OnVote:          f.Preferences.OnVote,
		OnStatusChange:  f.Preferences.OnStatusChange,
		OnNewDiscussion: f.Preferences.OnNewDiscussion,
		FollowedAt:      f.FollowedAt,
		LastNotifiedAt:  nullTime(f.LastNotifiedAt),
	}
}
