package interval

import "time"

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// New returns the interval [start, start+d).
func New(start time.Time, d time.Duration) Interval {
	return Interval{Start: start, End: start.Add(d)}
}

// Overlaps reports whether a and b share at least one instant.
// Touching intervals (a.End == b.Start) do not overlap. Empty intervals are
// not special-cased: one lying strictly inside b overlaps it, so callers must
// reject empty ranges before storing them.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

func (i Interval) Overlaps(o Interval) bool {
	return Overlaps(i, o)
}

// Contains reports whether t lies in [Start, End).
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Empty reports whether the interval contains no instant.
func (i Interval) Empty() bool {
	return !i.End.After(i.Start)
}

// OverlapsAny reports whether i overlaps any of the given intervals.
func (i Interval) OverlapsAny(others []Interval) bool {
	for _, o := range others {
		if Overlaps(i, o) {
			return true
		}
	}
	return false
}
