package domain

import "time"

// Clock provides the current instant. Injected everywhere "now" is used so
// temporal rules stay deterministic in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall-clock implementation of Clock
type SystemClock struct{}

// Now returns the current wall-clock time
func (SystemClock) Now() time.Time {
	return time.Now()
}

// reportingLocation is the fixed timezone for day-granularity business
// rules. Resignation resumption is a calendar-date concept while training
// timing stays instant-granularity.
var reportingLocation = mustLoadLocation("Europe/Warsaw")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SetReportingLocation overrides the reporting timezone, normally from
// configuration at startup.
func SetReportingLocation(loc *time.Location) {
	if loc != nil {
		reportingLocation = loc
	}
}

// DateOf truncates an instant to its calendar date in the reporting timezone
func DateOf(t time.Time) time.Time {
	y, m, d := t.In(reportingLocation).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, reportingLocation)
}
