// Package consensus turns the active stances on a bill into summary statistics.
package consensus

import (
	"math"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/jjenkins/billpulse/internal/model"
)

const (
	// EngagedReasonLength is the minimum reason length for a stance to count
	// towards engaged metrics.
	EngagedReasonLength = 100

	// StaleAfter is how long a bill can go without a new stance before its
	// consensus is flagged stale.
	StaleAfter = 48 * time.Hour

	// TotalZipCodes approximates the number of ZIP codes in the US.
	TotalZipCodes = 41000
)

// Metrics is the stance breakdown for a set of stances.
type Metrics struct {
	Total          int                          `json:"total"`
	Breakdown      map[model.StanceType]int     `json:"breakdown"`
	Percentages    map[model.StanceType]float64 `json:"percentages"`
	ConsensusScore float64                      `json:"consensus_score"`
}

// TrendPoint is the cumulative breakdown at the end of one calendar day.
type TrendPoint struct {
	Date        string                       `json:"date"`
	Total       int                          `json:"total"`
	Percentages map[model.StanceType]float64 `json:"percentages"`
}

// FreshnessInfo describes how recently anyone took a stance.
type FreshnessInfo struct {
	LastStanceAt   *time.Time `json:"last_stance_at"`
	HoursSinceLast *int       `json:"hours_since_last"`
	IsStale        bool       `json:"is_stale"`
}

// GeographicSummary is a coarse diversity signal over submitted ZIP codes.
type GeographicSummary struct {
	UniqueZipCodes int     `json:"unique_zip_codes"`
	Coverage       float64 `json:"coverage"`
}

// Summary bundles every bill-level statistic.
type Summary struct {
	Raw        Metrics           `json:"raw"`
	Engaged    Metrics           `json:"engaged"`
	Trends     []TrendPoint      `json:"trends"`
	Geographic GeographicSummary `json:"geographic"`
	Freshness  FreshnessInfo     `json:"freshness"`
}

// Calculate computes the full summary for stances as of now.
func Calculate(stances []model.UserStance, now time.Time) Summary {
	return Summary{
		Raw:        RawMetrics(stances),
		Engaged:    EngagedMetrics(stances),
		Trends:     Trends(stances),
		Geographic: Geographic(stances),
		Freshness:  Freshness(stances, now),
	}
}

// RawMetrics counts every stance.
func RawMetrics(stances []model.UserStance) Metrics {
	breakdown := countStances(stances)
	total := sumCounts(breakdown)
	pct := percentages(breakdown, total)

	return Metrics{
		Total:          total,
		Breakdown:      breakdown,
		Percentages:    pct,
		ConsensusScore: Score(pct),
	}
}

// EngagedMetrics counts only stances with a reason of at least
// EngagedReasonLength characters.
func EngagedMetrics(stances []model.UserStance) Metrics {
	engaged := make([]model.UserStance, 0, len(stances))
	for _, s := range stances {
		if utf8.RuneCountInString(s.Reason) >= EngagedReasonLength {
			engaged = append(engaged, s)
		}
	}
	return RawMetrics(engaged)
}

// Score blends majority strength, polarization and an uncertainty penalty
// into a 0-100 value.
func Score(pct map[model.StanceType]float64) float64 {
	support := pct[model.StanceSupport]
	oppose := pct[model.StanceOppose]

	dominant := math.Max(support, oppose)
	polarization := math.Abs(support - oppose)
	uncertainty := pct[model.StanceMixed] + pct[model.StanceUndecided] + pct[model.StanceNeedsMoreInfo]

	score := dominant + polarization*0.5 - uncertainty*0.3
	return round(math.Min(100, math.Max(0, score)), 1)
}

// Trends groups stances by UTC calendar day and emits the running totals at
// the end of each day, oldest first.
func Trends(stances []model.UserStance) []TrendPoint {
	ordered := make([]model.UserStance, len(stances))
	copy(ordered, stances)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	running := emptyCounts()
	timeline := []TrendPoint{}

	for i, s := range ordered {
		if s.Stance.Valid() {
			running[s.Stance]++
		}

		day := s.CreatedAt.UTC().Format("2006-01-02")
		if i+1 < len(ordered) && ordered[i+1].CreatedAt.UTC().Format("2006-01-02") == day {
			continue
		}

		total := sumCounts(running)
		timeline = append(timeline, TrendPoint{
			Date:        day,
			Total:       total,
			Percentages: percentages(running, total),
		})
	}

	return timeline
}

// Freshness reports the most recent stance and whether it is older than StaleAfter.
func Freshness(stances []model.UserStance, now time.Time) FreshnessInfo {
	if len(stances) == 0 {
		return FreshnessInfo{IsStale: true}
	}

	last := stances[0].CreatedAt
	for _, s := range stances[1:] {
		if s.CreatedAt.After(last) {
			last = s.CreatedAt
		}
	}

	since := now.Sub(last)
	hours := int(since.Hours())

	return FreshnessInfo{
		LastStanceAt:   &last,
		HoursSinceLast: &hours,
		IsStale:        since > StaleAfter,
	}
}

// Geographic counts the distinct ZIP codes stances were submitted from.
func Geographic(stances []model.UserStance) GeographicSummary {
	zips := make(map[string]struct{})
	for _, s := range stances {
		if s.ZipCode.Valid && s.ZipCode.String != "" {
			zips[s.ZipCode.String] = struct{}{}
		}
	}

	return GeographicSummary{
		UniqueZipCodes: len(zips),
		Coverage:       round(float64(len(zips))/TotalZipCodes*100, 2),
	}
}

func emptyCounts() map[model.StanceType]int {
	counts := make(map[model.StanceType]int, len(model.StanceTypes))
	for _, t := range model.StanceTypes {
		counts[t] = 0
	}
	return counts
}

func countStances(stances []model.UserStance) map[model.StanceType]int {
	counts := emptyCounts()
	for _, s := range stances {
		if s.Stance.Valid() {
			counts[s.Stance]++
		}
	}
	return counts
}

func sumCounts(counts map[model.StanceType]int) int {
	total := 0
	for _, c := range counts {
		total += c
	}
	return total
}

func percentages(counts map[model.StanceType]int, total int) map[model.StanceType]float64 {
	pct := make(map[model.StanceType]float64, len(model.StanceTypes))
	for _, t := range model.StanceTypes {
		pct[t] = percent(counts[t], total)
	}
	return pct
}

func percent(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return round(float64(count)/float64(total)*100, 1)
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
