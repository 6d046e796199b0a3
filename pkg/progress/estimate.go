package progress

import "time"

// DaysInWindow counts calendar days in [since, until], both inclusive.
// It returns at least 1.
func DaysInWindow(since, until time.Time) int {
	s := time.Date(since.Year(), since.Month(), since.Day(), 0, 0, 0, 0, time.UTC)
	u := time.Date(until.Year(), until.Month(), until.Day(), 0, 0, 0, 0, time.UTC)
	days := int(u.Sub(s).Hours()/24) + 1
	if days < 1 {
		return 1
	}
	return days
}

// PostEstimate is the posts denominator when the date window is ignored:
// the limit capped by the profile's media count, the media count when there
// is no limit, and DefaultEstimate when neither is known.
func PostEstimate(limit, mediaCount int) int {
	switch {
	case limit > 0 && mediaCount > 0:
		return min(limit, mediaCount)
	case limit > 0:
		return limit
	case mediaCount > 0:
		return mediaCount
	default:
		return DefaultEstimate
	}
}

// GrowEstimate returns the revised estimate once found exceeds current.
func GrowEstimate(current, found int) int {
	if found <= current {
		return current
	}
	return int(float64(found) * 1.2)
}

// DayCounter fires once per distinct UTC calendar day
type DayCounter struct {
	seen map[string]struct{}
}

// NewDayCounter creates an empty counter
func NewDayCounter() *DayCounter {
	return &DayCounter{seen: make(map[string]struct{})}
}

// Observe records ts and reports whether its day is new
func (d *DayCounter) Observe(ts time.Time) bool {
	key := ts.UTC().Format("2006-01-02")
	if _, ok := d.seen[key]; ok {
		return false
	}
	d.seen[key] = struct{}{}
	return true
}

// Days returns the number of distinct days observed
func (d *DayCounter) Days() int {
	return len(d.seen)
}
