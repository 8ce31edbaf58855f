package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/jjenkins/billpulse/internal/congress"
	"github.com/jjenkins/billpulse/internal/model"
)

type MockBillSource struct {
	mock.Mock
}

func (m *MockBillSource) ListBills(ctx context.Context, congressNumber int, billType string, offset, limit int) (*congress.BillList, error) {
	args := m.Called(ctx, congressNumber, billType, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*congress.BillList), args.Error(1)
}

func (m *MockBillSource) GetBill(ctx context.Context, congressNumber int, billType string, number int) (*congress.BillDetail, error) {
	args := m.Called(ctx, congressNumber, billType, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*congress.BillDetail), args.Error(1)
}

func (m *MockBillSource) GetSummaries(ctx context.Context, congressNumber int, billType string, number int) ([]congress.Summary, error) {
	args := m.Called(ctx, congressNumber, billType, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]congress.Summary), args.Error(1)
}

func (m *MockBillSource) GetActions(ctx context.Context, congressNumber int, billType string, number int) ([]congress.Action, error) {
	args := m.Called(ctx, congressNumber, billType, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]congress.Action), args.Error(1)
}

func (m *MockBillSource) GetCosponsors(ctx context.Context, congressNumber int, billType string, number int) ([]congress.Member, error) {
	args := m.Called(ctx, congressNumber, billType, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]congress.Member), args.Error(1)
}

func (m *MockBillSource) GetTextVersions(ctx context.Context, congressNumber int, billType string, number int) ([]congress.TextVersion, error) {
	args := m.Called(ctx, congressNumber, billType, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]congress.TextVersion), args.Error(1)
}

func (m *MockBillSource) GetCommittees(ctx context.Context, congressNumber int, billType string, number int) ([]congress.Committee, error) {
	args := m.Called(ctx, congressNumber, billType, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]congress.Committee), args.Error(1)
}

func (m *MockBillSource) GetSubjects(ctx context.Context, congressNumber int, billType string, number int) (*congress.Subjects, error) {
	args := m.Called(ctx, congressNumber, billType, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*congress.Subjects), args.Error(1)
}

func (m *MockBillSource) Delay() time.Duration {
	return 0
}

// stubSubResources makes every sub-resource of one bill return nothing.
func (m *MockBillSource) stubSubResources(congressNumber int, billType string, number int) {
	anything := mock.Anything
	m.On("GetSummaries", anything, congressNumber, billType, number).Return(nil, nil).Maybe()
	m.On("GetCommittees", anything, congressNumber, billType, number).Return(nil, nil).Maybe()
	m.On("GetSubjects", anything, congressNumber, billType, number).Return(nil, nil).Maybe()
	m.On("GetActions", anything, congressNumber, billType, number).Return(nil, nil).Maybe()
	m.On("GetCosponsors", anything, congressNumber, billType, number).Return(nil, nil).Maybe()
	m.On("GetTextVersions", anything, congressNumber, billType, number).Return(nil, nil).Maybe()
}

type MockBillRepository struct {
	mock.Mock
}

func (m *MockBillRepository) SaveBillGraph(ctx context.Context, graph *model.BillGraph) (bool, error) {
	args := m.Called(ctx, graph)
	return args.Bool(0), args.Error(1)
}

func (m *MockBillRepository) ListStale(ctx context.Context, limit int, syncedBefore time.Time) ([]model.Bill, error) {
	args := m.Called(ctx, limit, syncedBefore)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Bill), args.Error(1)
}

func (m *MockBillRepository) ListActiveUnsynced(ctx context.Context, limit int, syncedBefore time.Time) ([]model.Bill, error) {
	args := m.Called(ctx, limit, syncedBefore)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Bill), args.Error(1)
}

func (m *MockBillRepository) UpdateResynced(ctx context.Context, bill *model.Bill) error {
	args := m.Called(ctx, bill)
	return args.Error(0)
}

type MockFollowerRepository struct {
	mock.Mock
}

func (m *MockFollowerRepository) ListForBill(ctx context.Context, billID int) ([]model.BillFollower, error) {
	args := m.Called(ctx, billID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.BillFollower), args.Error(1)
}

func (m *MockFollowerRepository) MarkNotified(ctx context.Context, followerID int, at time.Time) error {
	args := m.Called(ctx, followerID, at)
	return args.Error(0)
}
