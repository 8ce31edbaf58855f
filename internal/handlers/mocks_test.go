package handlers

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/jjenkins/billpulse/internal/consensus"
	"github.com/jjenkins/billpulse/internal/model"
	"github.com/jjenkins/billpulse/internal/stance"
	"github.com/jjenkins/billpulse/internal/store"
)

type MockPinger struct {
	mock.Mock
}

func (m *MockPinger) PingContext(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockBillReader struct {
	mock.Mock
}

func (m *MockBillReader) GetByID(ctx context.Context, id int) (*model.Bill, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Bill), args.Error(1)
}

func (m *MockBillReader) List(ctx context.Context, filter store.BillFilter) ([]model.Bill, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Bill), args.Error(1)
}

func (m *MockBillReader) GetSponsor(ctx context.Context, billID int) (*model.BillActor, error) {
	args := m.Called(ctx, billID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BillActor), args.Error(1)
}

func (m *MockBillReader) ListEvents(ctx context.Context, billID int) ([]model.BillEvent, error) {
	args := m.Called(ctx, billID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.BillEvent), args.Error(1)
}

func (m *MockBillReader) ListVersions(ctx context.Context, billID int) ([]model.BillVersion, error) {
	args := m.Called(ctx, billID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.BillVersion), args.Error(1)
}

type MockConsensusReader struct {
	mock.Mock
}

func (m *MockConsensusReader) BillSummary(ctx context.Context, billID int) (*consensus.Summary, error) {
	args := m.Called(ctx, billID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*consensus.Summary), args.Error(1)
}

func (m *MockConsensusReader) BillGeography(ctx context.Context, billID int) (*consensus.Geography, error) {
	args := m.Called(ctx, billID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*consensus.Geography), args.Error(1)
}

type MockStanceService struct {
	mock.Mock
}

func (m *MockStanceService) Submit(ctx context.Context, userID, billID int, req stance.SubmitRequest) (*model.UserStance, error) {
	args := m.Called(ctx, userID, billID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserStance), args.Error(1)
}

func (m *MockStanceService) Remove(ctx context.Context, userID, billID int) error {
	return m.Called(ctx, userID, billID).Error(0)
}

func (m *MockStanceService) Current(ctx context.Context, userID, billID int) (*stance.Entry, error) {
	args := m.Called(ctx, userID, billID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stance.Entry), args.Error(1)
}

func (m *MockStanceService) History(ctx context.Context, userID, billID int) ([]stance.Entry, error) {
	args := m.Called(ctx, userID, billID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]stance.Entry), args.Error(1)
}

type MockFollowerStore struct {
	mock.Mock
}

func (m *MockFollowerStore) Follow(ctx context.Context, userID, billID int, prefs model.NotificationPreferences) (*model.BillFollower, error) {
	args := m.Called(ctx, userID, billID, prefs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BillFollower), args.Error(1)
}

func (m *MockFollowerStore) UpdatePreferences(ctx context.Context, userID, billID int, prefs model.NotificationPreferences) (*model.BillFollower, error) {
	args := m.Called(ctx, userID, billID, prefs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BillFollower), args.Error(1)
}

func (m *MockFollowerStore) Unfollow(ctx context.Context, userID, billID int) (bool, error) {
	args := m.Called(ctx, userID, billID)
	return args.Bool(0), args.Error(1)
}

type MockLocalBills struct {
	mock.Mock
}

func (m *MockLocalBills) LocalBills(ctx context.Context, userID, limit int) (*model.User, []model.SponsoredBill, error) {
	args := m.Called(ctx, userID, limit)
	var user *model.User
	if args.Get(0) != nil {
		user = args.Get(0).(*model.User)
	}
	var bills []model.SponsoredBill
	if args.Get(1) != nil {
		bills = args.Get(1).([]model.SponsoredBill)
	}
	return user, bills, args.Error(2)
}

type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetUser(ctx context.Context, id int) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserStore) UpdateLocation(ctx context.Context, id int, zip, district string, verifiedAt time.Time) error {
	return m.Called(ctx, id, zip, district, verifiedAt).Error(0)
}

type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) LookupDistrict(ctx context.Context, zip string) (string, error) {
	args := m.Called(ctx, zip)
	return args.String(0), args.Error(1)
}
