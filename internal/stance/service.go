// Package stance records users' positions on bills.
package stance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"html"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"github.com/jjenkins/billpulse/internal/geo"
	"github.com/jjenkins/billpulse/internal/logger"
	"github.com/jjenkins/billpulse/internal/model"
)

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrBillNotFound          = errors.New("bill not found")
	ErrNoZipCode             = errors.New("a verified 5-digit ZIP code is required before taking a stance")
	ErrGuidelinesNotAccepted = errors.New("community guidelines must be accepted before the first stance")
	ErrNoActiveStance        = errors.New("no active stance on this bill")
)

// Store is the stance ledger.
type Store interface {
	Submit(ctx context.Context, st *model.UserStance) error
	Remove(ctx context.Context, userID, billID int) (bool, error)
	Current(ctx context.Context, userID, billID int) (*model.UserStance, error)
	History(ctx context.Context, userID, billID int) ([]model.UserStance, error)
}

type UserStore interface {
	GetUser(ctx context.Context, id int) (*model.User, error)
	AcceptGuidelines(ctx context.Context, id int, at time.Time) error
}

type BillStore interface {
	GetByID(ctx context.Context, id int) (*model.Bill, error)
	LatestVersionID(ctx context.Context, billID int) (sql.NullInt64, error)
}

// SubmitRequest is a new or revised stance.
type SubmitRequest struct {
	Stance           string `json:"stance" validate:"required,oneof=support oppose mixed undecided needs_more_info"`
	Reason           string `json:"reason" validate:"required,min=50,max=5000"`
	AcceptGuidelines bool   `json:"accept_guidelines"`
}

// Entry is one revision in a stance history.
type Entry struct {
	model.UserStance
	BillOutdated bool
}

// Service validates and records stances.
type Service struct {
	stances   Store
	users     UserStore
	bills     BillStore
	validate  *validator.Validate
	sanitizer *bluemonday.Policy
	log       *logger.Logger
	now       func() time.Time
}

// NewService creates a stance Service.
func NewService(stances Store, users UserStore, bills BillStore, log *logger.Logger) *Service {
	return &Service{
		stances:   stances,
		users:     users,
		bills:     bills,
		validate:  NewValidator(),
		sanitizer: bluemonday.StrictPolicy(),
		log:       log,
		now:       time.Now,
	}
}

// NewValidator returns a validator that reports fields by their JSON name.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// SanitizeReason strips markup from a reason and trims it, leaving plain text.
func (s *Service) SanitizeReason(reason string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(reason)))
}

// Submit records the user's stance on a bill, superseding any active one.
// Invalid input is reported as validator.ValidationErrors.
func (s *Service) Submit(ctx context.Context, userID, billID int, req SubmitRequest) (*model.UserStance, error) {
	req.Reason = s.SanitizeReason(req.Reason)
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if !user.HasCompletedProfile() {
		return nil, ErrNoZipCode
	}
	if _, ok := geo.NormalizeZip(user.ZipCode.String); !ok {
		return nil, ErrNoZipCode
	}

	bill, err := s.bills.GetByID(ctx, billID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bill: %w", err)
	}
	if bill == nil {
		return nil, ErrBillNotFound
	}

	accepting := !user.HasAcceptedGuidelines()
	if accepting && !req.AcceptGuidelines {
		return nil, ErrGuidelinesNotAccepted
	}

	st := &model.UserStance{
		UserID: userID,
		BillID: billID,
		Stance: model.StanceType(req.Stance),
		Reason: req.Reason,
	}
	if err := s.stances.Submit(ctx, st); err != nil {
		return nil, fmt.Errorf("failed to record stance: %w", err)
	}

	// Acceptance is stamped only once the stance is stored.
	if accepting {
		if err := s.users.AcceptGuidelines(ctx, userID, s.now()); err != nil {
			return nil, fmt.Errorf("failed to record guideline acceptance: %w", err)
		}
	}

	s.log.Info("Stance recorded", map[string]interface{}{
		"user_id":  userID,
		"bill":     bill.Identifier(),
		"stance":   st.Stance,
		"revision": st.Revision,
	})

	return st, nil
}

// Remove retracts the user's active stance on a bill.
func (s *Service) Remove(ctx context.Context, userID, billID int) error {
	removed, err := s.stances.Remove(ctx, userID, billID)
	if err != nil {
		return fmt.Errorf("failed to remove stance: %w", err)
	}
	if !removed {
		return ErrNoActiveStance
	}

	s.log.Info("Stance removed", map[string]interface{}{
		"user_id": userID,
		"bill_id": billID,
	})
	return nil
}

// Current returns the user's active stance and whether the bill text has
// changed since it was recorded. It returns ErrNoActiveStance when there is
// none.
func (s *Service) Current(ctx context.Context, userID, billID int) (*Entry, error) {
	st, err := s.stances.Current(ctx, userID, billID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stance: %w", err)
	}
	if st == nil {
		return nil, ErrNoActiveStance
	}

	latest, err := s.bills.LatestVersionID(ctx, billID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bill version: %w", err)
	}

	return &Entry{UserStance: *st, BillOutdated: st.IsBillOutdated(latest)}, nil
}

// History returns every revision in the user's stance chain on a bill,
// newest first.
func (s *Service) History(ctx context.Context, userID, billID int) ([]Entry, error) {
	bill, err := s.bills.GetByID(ctx, billID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bill: %w", err)
	}
	if bill == nil {
		return nil, ErrBillNotFound
	}

	revisions, err := s.stances.History(ctx, userID, billID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stance history: %w", err)
	}

	latest, err := s.bills.LatestVersionID(ctx, billID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bill version: %w", err)
	}

	entries := make([]Entry, len(revisions))
	for i := range revisions {
		entries[i] = Entry{
			UserStance:   revisions[i],
			BillOutdated: revisions[i].IsBillOutdated(latest),
		}
	}
	return entries, nil
}
