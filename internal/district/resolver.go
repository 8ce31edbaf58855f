// Package district resolves ZIP codes to congressional districts.
package district

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jjenkins/billpulse/internal/geo"
	"github.com/jjenkins/billpulse/internal/logger"
)

// ErrInvalidZip is returned for input that does not hold exactly five digits.
var ErrInvalidZip = errors.New("ZIP code must contain exactly 5 digits")

// Source records where a resolution came from.
type Source string

const (
	SourceCensus   Source = "census"
	SourceFallback Source = "fallback"
)

// Geocoder looks a ZIP code up in an authoritative dataset.
type Geocoder interface {
	Lookup(ctx context.Context, zip string) (district string, ok bool, err error)
}

// knownDistricts covers common ZIP codes when the geocoder is unreachable.
var knownDistricts = map[string]string{
	"94102": "CA-11",
	"90001": "CA-44",
	"95110": "CA-18",
	"10001": "NY-12",
	"11201": "NY-10",
	"60601": "IL-07",
	"60614": "IL-05",
	"64055": "MO-6",
	"63101": "MO-1",
	"64101": "MO-5",
	"75201": "TX-30",
	"77001": "TX-18",
	"33101": "FL-27",
	"32801": "FL-10",
	"20001": "DC-AL",
	"02101": "MA-08",
	"98101": "WA-07",
	"80201": "CO-01",
	"30301": "GA-05",
}

// Resolver maps ZIP codes to districts: cache, then geocoder, then the
// built-in fallback.
type Resolver struct {
	geocoder Geocoder
	cache    Cache
	ttl      time.Duration
	states   geo.StateLookup
	log      *logger.Logger
	now      func() time.Time
}

// NewResolver creates a Resolver. cache may be nil to disable caching.
func NewResolver(geocoder Geocoder, cache Cache, ttl time.Duration, states geo.StateLookup, log *logger.Logger) *Resolver {
	return &Resolver{
		geocoder: geocoder,
		cache:    cache,
		ttl:      ttl,
		states:   states,
		log:      log,
		now:      time.Now,
	}
}

// LookupDistrict returns the congressional district for zip, such as "CA-11"
// or "WY-AL". It always produces a district for a well-formed ZIP code.
func (r *Resolver) LookupDistrict(ctx context.Context, zip string) (string, error) {
	digits, ok := geo.NormalizeZip(zip)
	if !ok {
		return "", ErrInvalidZip
	}

	if r.cache != nil {
		entry, err := r.cache.Get(ctx, digits)
		if err != nil {
			r.log.Warn("District cache read failed", map[string]interface{}{
				"zip_code": digits,
				"error":    err.Error(),
			})
		} else if entry != nil {
			r.log.Debug("Using cached congressional district", map[string]interface{}{
				"zip_code": digits,
				"district": entry.District,
			})
			return entry.District, nil
		}
	}

	district, source := r.resolve(ctx, digits)
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	if r.cache != nil {
		entry := Entry{ZipCode: digits, District: district, Source: source, ResolvedAt: r.now()}
		if err := r.cache.Set(ctx, entry, r.ttl); err != nil {
			r.log.Warn("District cache write failed", map[string]interface{}{
				"zip_code": digits,
				"error":    err.Error(),
			})
		}
	}

	return district, nil
}

func (r *Resolver) resolve(ctx context.Context, zip string) (string, Source) {
	if r.geocoder != nil {
		district, ok, err := r.geocoder.Lookup(ctx, zip)
		switch {
		case err != nil:
			r.log.Warn("Census lookup failed, using fallback", map[string]interface{}{
				"zip_code": zip,
				"error":    err.Error(),
			})
		case ok:
			return district, SourceCensus
		default:
			r.log.Warn("Census returned no district, using fallback", map[string]interface{}{
				"zip_code": zip,
			})
		}
	}

	return FallbackDistrict(zip, r.states), SourceFallback
}

// FallbackDistrict approximates a district from the built-in table or, for
// unknown codes, from the ZIP prefix's state and its fourth and fifth digits.
// The approximation is only meant to keep development data plausible.
func FallbackDistrict(zip string, states geo.StateLookup) string {
	if district, ok := knownDistricts[zip]; ok {
		return district
	}

	state, ok := states.StateForZip(zip)
	if !ok {
		state = "XX"
	}

	number := 0
	if len(zip) == 5 {
		number, _ = strconv.Atoi(zip[3:5])
	}

	return fmt.Sprintf("%s-%d", state, number%18+1)
}
