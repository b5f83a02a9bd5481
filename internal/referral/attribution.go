package referral

import "time"

// AttributionWindow is how long a captured referral code keeps crediting its partner.
const AttributionWindow = 90 * 24 * time.Hour

// Source names the carrier a referral code was read from.
type Source string

// Carriers in precedence order: an explicit ?ref= on the current request wins,
// then the edge cookie, then the client-local backup.
const (
	SourceQuery  Source = "query"
	SourceCookie Source = "cookie"
	SourceLocal  Source = "local"
)

var sourceRank = map[Source]int{
	SourceQuery:  0,
	SourceCookie: 1,
	SourceLocal:  2,
}

// Capture is a referral code as seen by one carrier.
// A zero CapturedAt means the carrier enforces its own expiry (a cookie's Max-Age).
type Capture struct {
	Code       string
	CapturedAt time.Time
	Source     Source
}

// ActiveAt reports whether the capture still attributes at now: strictly less
// than AttributionWindow has elapsed since capture. Expired captures are left in
// place by their owners; they are simply no longer active.
func (c Capture) ActiveAt(now time.Time) bool {
	if c.Code == "" {
		return false
	}
	if c.CapturedAt.IsZero() {
		return true
	}
	return now.Sub(c.CapturedAt) < AttributionWindow
}

// Resolve returns the active capture with the highest-precedence source. When two
// candidates share a source the earlier argument wins.
func Resolve(now time.Time, candidates ...Capture) (Capture, bool) {
	var (
		best  Capture
		found bool
	)
	for _, c := range candidates {
		if !c.ActiveAt(now) {
			continue
		}
		rank, known := sourceRank[c.Source]
		if !known {
			continue
		}
		if !found || rank < sourceRank[best.Source] {
			best, found = c, true
		}
	}
	return best, found
}
