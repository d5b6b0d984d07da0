package domain

import (
	"strconv"
	"strings"
	"time"
)

// RecurrenceKind describes the normalized kind of a job frequency spec.
type RecurrenceKind int

const (
	// Disabled jobs are never dispatched.
	Disabled RecurrenceKind = iota
	// RunOnce jobs dispatch on the next pass and are then disabled.
	RunOnce
	// Hourly jobs dispatch every N hours.
	Hourly
	// Minutely jobs dispatch every N minutes.
	Minutely
)

// Recurrence is the parsed, structured form of a job's frequency spec.
type Recurrence struct {
	Kind  RecurrenceKind
	Every int // interval count for Hourly/Minutely, zero otherwise
}

// FrequencyDisabled and FrequencyRunOnce are the two non-interval specs.
const (
	FrequencyDisabled = "0"
	FrequencyRunOnce  = "1"
)

// ParseFrequency parses a frequency spec string.
//
// Supported forms:
//   - "0"  — disabled
//   - "1"  — run once
//   - "Nh" — every N hours (N positive integer)
//   - "Nm" — every N minutes (N positive integer)
//
// Anything else parses to Disabled. Frequency strings come from stored
// jobs, not user input, so an unrecognized value must disable the job
// rather than fail the whole scan pass.
func ParseFrequency(spec string) Recurrence {
	switch spec {
	case FrequencyDisabled:
		return Recurrence{Kind: Disabled}
	case FrequencyRunOnce:
		return Recurrence{Kind: RunOnce}
	}

	if n, ok := intervalCount(spec, "h"); ok {
		return Recurrence{Kind: Hourly, Every: n}
	}
	if n, ok := intervalCount(spec, "m"); ok {
		return Recurrence{Kind: Minutely, Every: n}
	}

	return Recurrence{Kind: Disabled}
}

func intervalCount(spec, suffix string) (int, bool) {
	if !strings.HasSuffix(spec, suffix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(spec, suffix))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// Interval returns the recurrence interval as a duration, or zero for
// Disabled and RunOnce.
func (r Recurrence) Interval() time.Duration {
	switch r.Kind {
	case Hourly:
		return time.Duration(r.Every) * time.Hour
	case Minutely:
		return time.Duration(r.Every) * time.Minute
	default:
		return 0
	}
}

// IsDue reports whether a job with this recurrence should be dispatched at
// now, given when it last ran. A recurring job that has never run is due
// immediately. RunOnce is always due; the dispatch engine is responsible
// for disabling the job afterwards.
func (r Recurrence) IsDue(lastRunAt *time.Time, now time.Time) bool {
	switch r.Kind {
	case Disabled:
		return false
	case RunOnce:
		return true
	case Hourly, Minutely:
		if lastRunAt == nil {
			return true
		}
		return now.Sub(*lastRunAt) >= r.Interval()
	default:
		return false
	}
}

// IsRecurring reports whether the spec encodes an hourly or minute
// recurrence. Used to rewrite a COMPLETED status to RECURRING.
func IsRecurring(spec string) bool {
	kind := ParseFrequency(spec).Kind
	return kind == Hourly || kind == Minutely
}
