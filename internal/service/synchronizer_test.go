package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jjenkins/billpulse/internal/congress"
	"github.com/jjenkins/billpulse/internal/logger"
	"github.com/jjenkins/billpulse/internal/model"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestSynchronizer(source *MockBillSource, bills *MockBillRepository, followers FollowerRepository) *Synchronizer {
	s := NewSynchronizer(source, bills, followers, logger.Nop())
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestSyncBatch_BuildsBillGraph(t *testing.T) {
	// Arrange
	source := new(MockBillSource)
	bills := new(MockBillRepository)
	ctx := context.Background()

	source.On("ListBills", ctx, 119, "hr", 0, 20).Return(&congress.BillList{
		Bills: []congress.BillListItem{
			{Congress: 119, Type: "HR", Number: "12", Title: "Lower Costs Act", IntroducedDate: "2025-01-03", URL: "https://api.congress.gov/v3/bill/119/hr/12"},
		},
		Count: 1,
	}, nil)
	source.On("GetBill", ctx, 119, "hr", 12).Return(&congress.BillDetail{
		Title: "Lower Costs Act",
		Titles: []congress.Title{
			{TitleType: "Display Title", Title: "Lower Costs Act"},
			{TitleType: "Short Title(s) as Introduced", Title: "Lower Costs"},
		},
		LatestAction: &congress.LatestAction{ActionDate: "2025-02-10", Text: "Referred to the Committee on Energy and Commerce."},
		Sponsors:     []congress.Member{{BioguideID: "S000001", FullName: "Rep. Smith, Ann [D-CA-11]", Party: "D", State: "CA", District: "11"}},
	}, nil)
	source.On("GetSummaries", mock.Anything, 119, "hr", 12).Return([]congress.Summary{{Text: "<p>Caps costs.</p>"}}, nil)
	source.On("GetCommittees", mock.Anything, 119, "hr", 12).Return([]congress.Committee{{Name: "Energy and Commerce Committee", Chamber: "House", Type: "Standing"}}, nil)
	source.On("GetSubjects", mock.Anything, 119, "hr", 12).Return(nil, nil)
	source.On("GetActions", mock.Anything, 119, "hr", 12).Return([]congress.Action{
		{ActionDate: "2025-01-03", Text: "Introduced in House"},
		{ActionDate: "", Text: "Undated action"},
		{ActionDate: "2025-02-10", Text: ""},
	}, nil)
	source.On("GetCosponsors", mock.Anything, 119, "hr", 12).Return([]congress.Member{
		{BioguideID: "C000002", FirstName: "Cal", LastName: "Jones", State: "NY", SponsorshipDate: "2025-01-20"},
	}, nil)
	source.On("GetTextVersions", mock.Anything, 119, "hr", 12).Return([]congress.TextVersion{
		{Type: "IH", Date: "2025-01-03T05:00:00Z"},
	}, nil)

	var saved *model.BillGraph
	bills.On("SaveBillGraph", ctx, mock.AnythingOfType("*model.BillGraph")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*model.BillGraph) }).
		Return(true, nil)

	s := newTestSynchronizer(source, bills, nil)

	// Act
	stats, err := s.SyncBatch(ctx, 119, "hr", 20, 0)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Created)
	assert.Equal(t, 0, stats.Failed)

	require.NotNil(t, saved)
	bill := saved.Bill
	assert.Equal(t, "hr", bill.BillType)
	assert.Equal(t, model.ChamberHouse, bill.Chamber)
	assert.Equal(t, "Lower Costs", bill.ShortTitle.String)
	assert.Equal(t, "<p>Caps costs.</p>", bill.Summary.String)
	assert.Equal(t, model.StatusReferredToCommittee, bill.Status)
	assert.True(t, bill.IsNational)
	assert.Equal(t, "api", bill.SyncSource)
	assert.Equal(t, 100, bill.ConfidenceScore)
	assert.Equal(t, fixedNow, bill.LastSyncedAt.Time)
	assert.Equal(t, "2025-01-03", bill.IntroducedDate.Time.Format("2006-01-02"))
	assert.Equal(t, "https://api.congress.gov/v3/bill/119/hr/12", bill.CongressGovURL.String)
	assert.False(t, bill.PolicyArea.Valid)
	require.Len(t, bill.Committees, 1)

	require.NotNil(t, saved.Sponsor)
	assert.True(t, saved.Sponsor.IsPrimary)
	assert.Equal(t, "11", saved.Sponsor.District.String)
	require.Len(t, saved.Actors, 2)
	assert.Equal(t, model.ActorCosponsor, saved.Actors[1].ActorType)
	assert.Equal(t, "Cal Jones", saved.Actors[1].Name)
	assert.True(t, saved.Actors[1].JoinedAt.Valid)

	require.Len(t, saved.Events, 2)
	assert.Equal(t, model.EventIntroduced, saved.Events[0].EventType)
	assert.Equal(t, "No description", saved.Events[1].Description)
	assert.Equal(t, model.EventOther, saved.Events[1].EventType)

	require.Len(t, saved.Versions, 1)
	assert.Equal(t, "IH", saved.Versions[0].VersionName)
	assert.False(t, saved.Versions[0].TextURL.Valid)

	source.AssertExpectations(t)
	bills.AssertExpectations(t)
}

func TestSyncBatch_EmptySubjectListIsNotSent(t *testing.T) {
	// Arrange
	source := new(MockBillSource)
	bills := new(MockBillRepository)
	ctx := context.Background()

	var subjects congress.Subjects
	require.NoError(t, json.Unmarshal([]byte(`{"policyArea":{"name":"Health"},"legislativeSubjects":[]}`), &subjects))

	source.On("ListBills", ctx, 119, "hr", 0, 1).Return(&congress.BillList{
		Bills: []congress.BillListItem{{Congress: 119, Type: "HR", Number: "40", Title: "New Bill"}},
	}, nil)
	source.On("GetBill", ctx, 119, "hr", 40).Return(&congress.BillDetail{Title: "New Bill"}, nil)
	source.On("GetSubjects", mock.Anything, 119, "hr", 40).Return(&subjects, nil)
	source.stubSubResources(119, "hr", 40)

	var saved *model.BillGraph
	bills.On("SaveBillGraph", ctx, mock.AnythingOfType("*model.BillGraph")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*model.BillGraph) }).
		Return(false, nil)

	s := newTestSynchronizer(source, bills, nil)

	// Act
	_, err := s.SyncBatch(ctx, 119, "hr", 1, 0)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "Health", saved.Bill.PolicyArea.String)
	assert.Nil(t, saved.Bill.Subjects)
	assert.Empty(t, saved.Bill.Status)
}

func TestShortTitle(t *testing.T) {
	tests := []struct {
		name   string
		titles []congress.Title
		want   string
		first  string
	}{
		{
			name: "introduced wins over an earlier short title",
			titles: []congress.Title{
				{TitleType: "Short Title(s)", Title: "Later Short"},
				{TitleType: "Short Title(s) as Introduced", Title: "Introduced Short"},
			},
			want:  "Introduced Short",
			first: "Later Short",
		},
		{
			name: "last plain short title without an introduced one",
			titles: []congress.Title{
				{TitleType: "Display Title", Title: "Display"},
				{TitleType: "Short Title(s)", Title: "One"},
				{TitleType: "Short Title(s)", Title: "Two"},
			},
			want:  "Two",
			first: "One",
		},
		{
			name:   "no short titles",
			titles: []congress.Title{{TitleType: "Official Title as Introduced", Title: "To do things."}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shortTitle(tt.titles))
			assert.Equal(t, tt.first, firstShortTitle(tt.titles))
		})
	}
}

func TestApplyResync_KeepsStatusWithoutLatestAction(t *testing.T) {
	// Arrange
	bill := &model.Bill{Status: model.StatusPassedHouse}

	// Act
	changed := applyResync(bill, &congress.BillDetail{Title: "Bill"}, nil)

	// Assert
	assert.False(t, changed)
	assert.Equal(t, model.StatusPassedHouse, bill.Status)
}

func TestSyncBatch_SkipsReservedAndMissingDetail(t *testing.T) {
	// Arrange
	source := new(MockBillSource)
	bills := new(MockBillRepository)
	ctx := context.Background()

	source.On("ListBills", ctx, 119, "", 0, 10).Return(&congress.BillList{
		Bills: []congress.BillListItem{
			{Congress: 119, Type: "HR", Number: "1", Title: "Reserved for the Speaker."},
			{Congress: 119, Type: "S", Number: "7", Title: "A real bill"},
		},
	}, nil)
	source.On("GetBill", ctx, 119, "s", 7).Return(nil, nil)

	s := newTestSynchronizer(source, bills, nil)

	// Act
	stats, err := s.SyncBatch(ctx, 119, "", 10, 0)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.Skipped)
	source.AssertNotCalled(t, "GetBill", mock.Anything, 119, "hr", 1)
	bills.AssertNotCalled(t, "SaveBillGraph", mock.Anything, mock.Anything)
}

func TestSyncBatch_PerBillFailureDoesNotAbort(t *testing.T) {
	// Arrange
	source := new(MockBillSource)
	bills := new(MockBillRepository)
	ctx := context.Background()

	source.On("ListBills", ctx, 119, "", 0, 10).Return(&congress.BillList{
		Bills: []congress.BillListItem{
			{Congress: 119, Type: "HR", Number: "1", Title: "First"},
			{Congress: 119, Type: "HR", Number: "2", Title: "Second"},
			{Congress: 119, Type: "HR", Number: "not-a-number", Title: "Broken"},
		},
	}, nil)
	source.On("GetSummaries", mock.Anything, 119, "hr", 1).Return(nil, errors.New("timeout"))
	for _, n := range []int{1, 2} {
		source.On("GetBill", ctx, 119, "hr", n).Return(&congress.BillDetail{Title: "Bill"}, nil)
		source.stubSubResources(119, "hr", n)
	}

	bills.On("SaveBillGraph", ctx, mock.MatchedBy(func(g *model.BillGraph) bool { return g.Bill.BillNumber == 1 })).Return(false, nil)
	bills.On("SaveBillGraph", ctx, mock.MatchedBy(func(g *model.BillGraph) bool { return g.Bill.BillNumber == 2 })).Return(false, errors.New("deadlock"))

	s := newTestSynchronizer(source, bills, nil)

	// Act
	stats, err := s.SyncBatch(ctx, 119, "", 10, 0)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Updated)
	assert.Equal(t, 2, stats.Failed)
}

func TestSyncBatch_ListFailureIsReturned(t *testing.T) {
	source := new(MockBillSource)
	bills := new(MockBillRepository)
	ctx := context.Background()
	source.On("ListBills", ctx, 119, "", 0, 10).Return(nil, errors.New("parse error"))

	s := newTestSynchronizer(source, bills, nil)
	stats, err := s.SyncBatch(ctx, 119, "", 10, 0)

	assert.Error(t, err)
	assert.Nil(t, stats)
}

func TestSyncBatch_NoListIsEmptyBatch(t *testing.T) {
	source := new(MockBillSource)
	bills := new(MockBillRepository)
	ctx := context.Background()
	source.On("ListBills", ctx, 119, "", 0, 10).Return(nil, nil)

	s := newTestSynchronizer(source, bills, nil)
	stats, err := s.SyncBatch(ctx, 119, "", 10, 0)

	require.NoError(t, err)
	assert.Zero(t, stats.Total)
}

func TestResyncStale(t *testing.T) {
	// Arrange
	source := new(MockBillSource)
	bills := new(MockBillRepository)
	ctx := context.Background()
	cutoff := fixedNow.Add(-72 * time.Hour)

	lastAction := sql.NullTime{Time: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), Valid: true}
	stale := []model.Bill{
		{ID: 1, CongressNumber: 119, BillType: "hr", BillNumber: 10, Status: model.StatusIntroduced},
		{ID: 2, CongressNumber: 119, BillType: "s", BillNumber: 20, Status: model.StatusPassedSenate,
			Summary:        sql.NullString{String: "Same summary", Valid: true},
			LastActionAt:   lastAction,
			LastActionText: sql.NullString{String: "Passed Senate without amendment.", Valid: true}},
		{ID: 3, CongressNumber: 119, BillType: "hr", BillNumber: 30, Status: model.StatusIntroduced},
	}
	bills.On("ListStale", ctx, 25, cutoff).Return(stale, nil)

	source.On("GetBill", ctx, 119, "hr", 10).Return(&congress.BillDetail{
		LatestAction: &congress.LatestAction{ActionDate: "2025-05-01", Text: "Passed House by voice vote."},
	}, nil)
	source.On("GetSummaries", ctx, 119, "hr", 10).Return([]congress.Summary{{Text: "New summary"}}, nil)

	source.On("GetBill", ctx, 119, "s", 20).Return(&congress.BillDetail{
		LatestAction: &congress.LatestAction{ActionDate: "2025-03-01", Text: "Passed Senate without amendment."},
	}, nil)
	source.On("GetSummaries", ctx, 119, "s", 20).Return([]congress.Summary{{Text: "Same summary"}}, nil)

	source.On("GetBill", ctx, 119, "hr", 30).Return(nil, nil)

	var updated []*model.Bill
	bills.On("UpdateResynced", ctx, mock.AnythingOfType("*model.Bill")).
		Run(func(args mock.Arguments) { updated = append(updated, args.Get(1).(*model.Bill)) }).
		Return(nil)

	s := newTestSynchronizer(source, bills, nil)

	// Act
	stats, err := s.ResyncStale(ctx, 25, 72)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Updated)
	assert.Equal(t, 1, stats.Unchanged)
	assert.Equal(t, 1, stats.Skipped)

	require.Len(t, updated, 2)
	assert.Equal(t, model.StatusPassedHouse, updated[0].Status)
	assert.Equal(t, "New summary", updated[0].Summary.String)
	assert.Equal(t, fixedNow, updated[0].LastSyncedAt.Time)
	assert.Equal(t, model.StatusPassedSenate, updated[1].Status)
	assert.Equal(t, fixedNow, updated[1].LastSyncedAt.Time)

	source.AssertNotCalled(t, "GetActions", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	bills.AssertExpectations(t)
}

func TestResyncStale_UpdateErrorContinues(t *testing.T) {
	source := new(MockBillSource)
	bills := new(MockBillRepository)
	ctx := context.Background()

	bills.On("ListStale", ctx, 10, mock.Anything).Return([]model.Bill{
		{ID: 1, CongressNumber: 119, BillType: "hr", BillNumber: 1},
		{ID: 2, CongressNumber: 119, BillType: "hr", BillNumber: 2},
	}, nil)
	for _, n := range []int{1, 2} {
		source.On("GetBill", ctx, 119, "hr", n).Return(&congress.BillDetail{}, nil)
		source.On("GetSummaries", ctx, 119, "hr", n).Return(nil, nil)
	}
	bills.On("UpdateResynced", ctx, mock.MatchedBy(func(b *model.Bill) bool { return b.ID == 1 })).Return(errors.New("conn reset"))
	bills.On("UpdateResynced", ctx, mock.MatchedBy(func(b *model.Bill) bool { return b.ID == 2 })).Return(nil)

	s := newTestSynchronizer(source, bills, nil)
	stats, err := s.ResyncStale(ctx, 10, 24)

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Synced())
}

func TestSyncAll_WalksEveryOffset(t *testing.T) {
	// Arrange
	source := new(MockBillSource)
	bills := new(MockBillRepository)
	ctx := context.Background()

	source.On("ListBills", ctx, 118, "", 0, 1).Return(&congress.BillList{Count: 5}, nil)
	for _, offset := range []int{0, 2, 4} {
		source.On("ListBills", ctx, 118, "", offset, 2).Return(&congress.BillList{
			Bills: []congress.BillListItem{{Congress: 118, Type: "HR", Number: "1", Title: "Reserved for leadership"}},
		}, nil).Once()
	}

	s := newTestSynchronizer(source, bills, nil)

	// Act
	stats, err := s.SyncAll(ctx, 118, 2, 0)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 3, stats.Skipped)
	source.AssertExpectations(t)
}

func TestSyncAll_RejectsBadBatchSize(t *testing.T) {
	s := newTestSynchronizer(new(MockBillSource), new(MockBillRepository), nil)

	_, err := s.SyncAll(context.Background(), 119, 0, 0)

	assert.Error(t, err)
}

func TestDetectChanges_NotifiesStatusFollowers(t *testing.T) {
	// Arrange
	source := new(MockBillSource)
	bills := new(MockBillRepository)
	followers := new(MockFollowerRepository)
	ctx := context.Background()

	bills.On("ListActiveUnsynced", ctx, 50, fixedNow.Add(-24*time.Hour)).Return([]model.Bill{
		{ID: 7, CongressNumber: 119, BillType: "hr", BillNumber: 7, Status: model.StatusIntroduced},
		{ID: 8, CongressNumber: 119, BillType: "hr", BillNumber: 8, Status: model.StatusIntroduced},
	}, nil)

	source.On("GetBill", ctx, 119, "hr", 7).Return(&congress.BillDetail{
		Title:        "Moving bill",
		LatestAction: &congress.LatestAction{ActionDate: "2025-05-30", Text: "Passed House."},
	}, nil)
	source.stubSubResources(119, "hr", 7)
	source.On("GetBill", ctx, 119, "hr", 8).Return(&congress.BillDetail{Title: "Quiet bill"}, nil)
	source.stubSubResources(119, "hr", 8)

	bills.On("SaveBillGraph", ctx, mock.AnythingOfType("*model.BillGraph")).
		Run(func(args mock.Arguments) {
			g := args.Get(1).(*model.BillGraph)
			g.Bill.ID = g.Bill.BillNumber
		}).
		Return(false, nil)

	recent := sql.NullTime{Time: fixedNow.Add(-10 * time.Minute), Valid: true}
	followers.On("ListForBill", ctx, 7).Return([]model.BillFollower{
		{ID: 1, Preferences: model.DefaultNotificationPreferences()},
		{ID: 2, Preferences: model.NotificationPreferences{OnVote: true}},
		{ID: 3, Preferences: model.DefaultNotificationPreferences(), LastNotifiedAt: recent},
	}, nil)
	followers.On("MarkNotified", ctx, 1, fixedNow).Return(nil)

	s := newTestSynchronizer(source, bills, followers)

	// Act
	stats, err := s.DetectChanges(ctx, 50, 24)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.StatusChanged)
	assert.Equal(t, 1, stats.Unchanged)
	assert.Equal(t, 1, stats.Notified)
	followers.AssertExpectations(t)
	followers.AssertNotCalled(t, "ListForBill", ctx, 8)
	followers.AssertNotCalled(t, "MarkNotified", ctx, 2, mock.Anything)
	followers.AssertNotCalled(t, "MarkNotified", ctx, 3, mock.Anything)
}

func TestSyncStats_Merge(t *testing.T) {
	total := &SyncStats{Total: 2, Created: 1, Skipped: 1}

	total.Merge(&SyncStats{Total: 3, Updated: 2, Failed: 1})
	total.Merge(nil)

	assert.Equal(t, 5, total.Total)
	assert.Equal(t, 3, total.Synced())
	assert.Equal(t, 1, total.Failed)
}

func TestParseDate(t *testing.T) {
	assert.False(t, parseDate("").Valid)
	assert.False(t, parseDate("soon").Valid)
	assert.Equal(t, 2025, parseDate("2025-01-03").Time.Year())
	assert.Equal(t, 5, parseDate("2025-01-03T05:00:00Z").Time.Hour())
}
