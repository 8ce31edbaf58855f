package consensus

import (
	"math"
	"sort"

	"github.com/jjenkins/billpulse/internal/geo"
	"github.com/jjenkins/billpulse/internal/model"
)

// MinSampleSize is the fewest stances a region needs before it is reported.
const MinSampleSize = 5

// sampleCap is the response count at which a region's sample weight saturates.
const sampleCap = 100

const defaultColor = "#64748b"

var stanceColors = map[model.StanceType]string{
	model.StanceSupport:       "#10b981",
	model.StanceOppose:        "#ef4444",
	model.StanceMixed:         "#f59e0b",
	model.StanceUndecided:     "#78716c",
	model.StanceNeedsMoreInfo: "#6366f1",
}

// RegionConsensus is the aggregate for one state or district.
type RegionConsensus struct {
	Region             string                   `json:"region"`
	Total              int                      `json:"total"`
	Breakdown          map[model.StanceType]int `json:"breakdown"`
	DominantStance     model.StanceType         `json:"dominant_stance"`
	DominantPercentage float64                  `json:"dominant_percentage"`
	SupportPercentage  float64                  `json:"support_percentage"`
	OpposePercentage   float64                  `json:"oppose_percentage"`
	ColorIntensity     float64                  `json:"color_intensity"`
	Color              string                   `json:"color"`
}

// ZipCodeSummary describes how widely a bill's stances are spread.
type ZipCodeSummary struct {
	UniqueZipCodes    int `json:"unique_zip_codes"`
	TotalResponses    int `json:"total_responses"`
	StatesRepresented int `json:"states_represented"`
}

// ByState groups stances by the state of their snapshotted ZIP code.
// Stances whose ZIP does not resolve are left out, as are states with fewer
// than MinSampleSize stances.
func ByState(stances []model.UserStance, lookup geo.StateLookup) []RegionConsensus {
	return aggregate(stances, func(s model.UserStance) (string, bool) {
		if !s.ZipCode.Valid || s.ZipCode.String == "" {
			return "", false
		}
		return lookup.StateForZip(s.ZipCode.String)
	})
}

// ByDistrict groups stances by the author's current congressional district.
func ByDistrict(stances []model.UserStance) []RegionConsensus {
	return aggregate(stances, func(s model.UserStance) (string, bool) {
		if !s.UserDistrict.Valid || s.UserDistrict.String == "" {
			return "", false
		}
		return s.UserDistrict.String, true
	})
}

// SummarizeZipCodes counts ZIP codes, responses and states among stances
// that carry a ZIP code.
func SummarizeZipCodes(stances []model.UserStance, lookup geo.StateLookup) ZipCodeSummary {
	zips := make(map[string]struct{})
	states := make(map[string]struct{})
	total := 0

	for _, s := range stances {
		if !s.ZipCode.Valid || s.ZipCode.String == "" {
			continue
		}
		total++
		zips[s.ZipCode.String] = struct{}{}
		if state, ok := lookup.StateForZip(s.ZipCode.String); ok {
			states[state] = struct{}{}
		}
	}

	return ZipCodeSummary{
		UniqueZipCodes:    len(zips),
		TotalResponses:    total,
		StatesRepresented: len(states),
	}
}

// Dominant returns the stance with the highest count. Ties go to whichever
// stance comes first in model.StanceTypes.
func Dominant(breakdown map[model.StanceType]int) model.StanceType {
	best := model.StanceTypes[0]
	for _, t := range model.StanceTypes[1:] {
		if breakdown[t] > breakdown[best] {
			best = t
		}
	}
	return best
}

// ColorIntensity averages a sample-size weight (capped at 100 responses)
// with the dominant share, rounded to two places.
func ColorIntensity(total int, dominantPercentage float64) float64 {
	sampleWeight := math.Min(float64(total)/sampleCap, 1.0)
	dominanceWeight := dominantPercentage / 100
	return round((sampleWeight+dominanceWeight)/2, 2)
}

// StanceColor returns the map color for a stance.
func StanceColor(s model.StanceType) string {
	if c, ok := stanceColors[s]; ok {
		return c
	}
	return defaultColor
}

func aggregate(stances []model.UserStance, regionOf func(model.UserStance) (string, bool)) []RegionConsensus {
	groups := make(map[string][]model.UserStance)
	for _, s := range stances {
		region, ok := regionOf(s)
		if !ok {
			continue
		}
		groups[region] = append(groups[region], s)
	}

	regions := make([]RegionConsensus, 0, len(groups))
	for region, members := range groups {
		summary := summarizeRegion(region, members)
		if summary.Total < MinSampleSize {
			continue
		}
		regions = append(regions, summary)
	}

	sort.Slice(regions, func(i, j int) bool {
		return regions[i].Region < regions[j].Region
	})

	return regions
}

func summarizeRegion(region string, stances []model.UserStance) RegionConsensus {
	breakdown := countStances(stances)
	total := sumCounts(breakdown)
	dominant := Dominant(breakdown)
	dominantPct := percent(breakdown[dominant], total)

	return RegionConsensus{
		Region:             region,
		Total:              total,
		Breakdown:          breakdown,
		DominantStance:     dominant,
		DominantPercentage: dominantPct,
		SupportPercentage:  percent(breakdown[model.StanceSupport], total),
		OpposePercentage:   percent(breakdown[model.StanceOppose], total),
		ColorIntensity:     ColorIntensity(total, dominantPct),
		Color:              StanceColor(dominant),
	}
}
