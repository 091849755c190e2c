// Package tzutil renders timestamps in the bot's fixed display zone,
// UTC+6:30 (Myanmar). Storage keeps real instants; only rendering is
// offset.
package tzutil

import "time"

// Zone is the fixed UTC+6:30 display offset.
var Zone = time.FixedZone("UTC+06:30", 6*3600+30*60)

// Now returns the current time in the display zone.
func Now() time.Time {
	return time.Now().In(Zone)
}

// To converts t to the display zone. Times without a meaningful location
// are treated as UTC instants, which is what the stores hand back.
func To(t time.Time) time.Time {
	return t.In(Zone)
}

// Format renders t as "2006-01-02 15:04:05" in the display zone.
// The zero time renders as "Never" (a domain that was never checked).
func Format(t time.Time) string {
	if t.IsZero() {
		return "Never"
	}
	return t.In(Zone).Format("2006-01-02 15:04:05")
}

// FormatShort renders only the clock time.
func FormatShort(t time.Time) string {
	if t.IsZero() {
		return "Never"
	}
	return t.In(Zone).Format("15:04:05")
}
