package consensus

import (
	"context"
	"fmt"
	"time"

	"github.com/jjenkins/billpulse/internal/geo"
	"github.com/jjenkins/billpulse/internal/model"
)

// StanceReader loads the active stances on a bill. Implementations populate
// UserStance.UserDistrict from the author's current profile.
type StanceReader interface {
	ListActiveForBill(ctx context.Context, billID int) ([]model.UserStance, error)
}

// Geography is the regional view of a bill's stances.
type Geography struct {
	States    []RegionConsensus `json:"states"`
	Districts []RegionConsensus `json:"districts"`
	ZipCodes  ZipCodeSummary    `json:"zip_codes"`
}

// Engine computes consensus statistics on demand. It never writes.
type Engine struct {
	stances StanceReader
	lookup  geo.StateLookup
	now     func() time.Time
}

// NewEngine creates an Engine reading stances from r and resolving states with lookup.
func NewEngine(r StanceReader, lookup geo.StateLookup) *Engine {
	return &Engine{
		stances: r,
		lookup:  lookup,
		now:     time.Now,
	}
}

// BillSummary returns raw and engaged metrics, trends, geographic summary
// and freshness for a bill.
func (e *Engine) BillSummary(ctx context.Context, billID int) (*Summary, error) {
	stances, err := e.stances.ListActiveForBill(ctx, billID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stances for bill %d: %w", billID, err)
	}

	summary := Calculate(stances, e.now())
	return &summary, nil
}

// BillGeography returns the state and district rollups for a bill.
func (e *Engine) BillGeography(ctx context.Context, billID int) (*Geography, error) {
	stances, err := e.stances.ListActiveForBill(ctx, billID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stances for bill %d: %w", billID, err)
	}

	return &Geography{
		States:    ByState(stances, e.lookup),
		Districts: ByDistrict(stances),
		ZipCodes:  SummarizeZipCodes(stances, e.lookup),
	}, nil
}
