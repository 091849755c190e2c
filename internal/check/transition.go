package check

import "github.com/myatko/domainwatch/internal/domain"

// ShouldNotify reports whether a fresh result warrants an alert: only the
// UP→DOWN edge does. DOWN→DOWN stays silent (no repeat spam), DOWN→UP
// recovery is deliberately not alerted, and a never-checked domain's
// first result never notifies even when DOWN.
//
// previous must be read from storage before the run's bulk write lands,
// otherwise a result gets compared against itself.
func ShouldNotify(previous domain.Status, current domain.ProbeResult) bool {
	return previous == domain.StatusUp && current.Status == domain.StatusDown
}
