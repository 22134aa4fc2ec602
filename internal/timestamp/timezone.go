package timestamp

import (
	"math"
	"strings"
	"sync"
	"time"

	"github.com/ringsaturn/tzf"
)

var (
	tzFinderOnce sync.Once
	tzFinder     tzf.F
	tzFinderErr  error
)

func gpsTimezoneFinder() (tzf.F, error) {
	tzFinderOnce.Do(func() {
		tzFinder, tzFinderErr = tzf.NewDefaultFinder()
	})
	return tzFinder, tzFinderErr
}

func gpsOK(lat, lon *float64) bool {
	if lat == nil || lon == nil {
		return false
	}
	if !isFinite(*lat) || !isFinite(*lon) {
		return false
	}
	return *lat != 0.0 || *lon != 0.0
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// resolveTZ maps a source_tz / report_tz description to a location. Returns
// false when the timezone cannot be determined, which makes the rule not
// applicable.
func resolveTZ(description string, lat, lon *float64, userDefaultTZ string) (*time.Location, bool) {
	switch {
	case strings.EqualFold(description, TZUTC):
		return time.UTC, true
	case description == TZGPSFinder:
		if !gpsOK(lat, lon) {
			return nil, false
		}
		finder, err := gpsTimezoneFinder()
		if err != nil {
			return nil, false
		}
		name := finder.GetTimezoneName(*lon, *lat)
		if name == "" {
			return nil, false
		}
		loc, err := time.LoadLocation(name)
		if err != nil {
			return nil, false
		}
		return loc, true
	case description == TZUserDefault:
		loc, err := time.LoadLocation(userDefaultTZ)
		if err != nil {
			return nil, false
		}
		return loc, true
	case strings.HasPrefix(description, TZNamePrefix):
		loc, err := time.LoadLocation(strings.TrimPrefix(description, TZNamePrefix))
		if err != nil {
			return nil, false
		}
		return loc, true
	default:
		return nil, false
	}
}

// transformTZ reinterprets the naive datetime dt as being in sourceTZ and
// renders its wall clock in reportTZ.
func transformTZ(dt time.Time, sourceTZ, reportTZ *time.Location) time.Time {
	y, m, d := dt.Date()
	h, min, s := dt.Clock()
	instant := time.Date(y, m, d, h, min, s, dt.Nanosecond(), sourceTZ)
	return instant.In(reportTZ)
}
