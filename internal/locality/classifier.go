// Package locality decides whether a bill matters to a user's part of the country.
package locality

import (
	"context"
	"fmt"
	"strings"

	"github.com/jjenkins/billpulse/internal/model"
)

// IsLocallyRelevant reports whether bill concerns the user's state or district,
// either through the bill's stated geographic impact or because the user's own
// representative is the primary sponsor. Users without a district on file
// never match.
func IsLocallyRelevant(bill *model.Bill, sponsor *model.BillActor, user *model.User) bool {
	state, district, ok := user.Location()
	if !ok {
		return false
	}

	if bill.AffectsLocation(state, district) {
		return true
	}

	return sponsoredByRepresentative(sponsor, state, district)
}

// sponsoredByRepresentative matches the sponsor's state, and the district too
// unless the user is at-large.
func sponsoredByRepresentative(sponsor *model.BillActor, state, district string) bool {
	if sponsor == nil || !sponsor.State.Valid || !strings.EqualFold(sponsor.State.String, state) {
		return false
	}
	if district == "" || district == model.AtLarge {
		return true
	}
	return sponsor.District.Valid && normalizeDistrict(sponsor.District.String) == normalizeDistrict(district)
}

// normalizeDistrict drops leading zeros so "07" and "7" compare equal.
func normalizeDistrict(d string) string {
	trimmed := strings.TrimLeft(strings.TrimSpace(d), "0")
	if trimmed == "" && d != "" {
		return "0"
	}
	return strings.ToUpper(trimmed)
}

// Filter keeps the candidates relevant to user, preserving order.
func Filter(candidates []model.SponsoredBill, user *model.User) []model.SponsoredBill {
	relevant := make([]model.SponsoredBill, 0, len(candidates))
	for i := range candidates {
		if IsLocallyRelevant(&candidates[i].Bill, candidates[i].Sponsor, user) {
			relevant = append(relevant, candidates[i])
		}
	}
	return relevant
}

type UserReader interface {
	GetUser(ctx context.Context, id int) (*model.User, error)
}

// CandidateStore lists bills that could be local to a state and district.
type CandidateStore interface {
	ListLocalCandidates(ctx context.Context, state, district string, limit int) ([]model.SponsoredBill, error)
}

// Service finds the bills local to a user.
type Service struct {
	users UserReader
	bills CandidateStore
}

func NewService(users UserReader, bills CandidateStore) *Service {
	return &Service{users: users, bills: bills}
}

// LocalBills returns up to limit bills relevant to the user, most recent
// action first. A nil user means the user does not exist.
func (s *Service) LocalBills(ctx context.Context, userID, limit int) (*model.User, []model.SponsoredBill, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	if user == nil {
		return nil, nil, nil
	}

	state, district, ok := user.Location()
	if !ok {
		return user, []model.SponsoredBill{}, nil
	}

	candidates, err := s.bills.ListLocalCandidates(ctx, state, district, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list local bills: %w", err)
	}

	relevant := Filter(candidates, user)
	if len(relevant) > limit {
		relevant = relevant[:limit]
	}
	return user, relevant, nil
}
