package check

import (
	"testing"

	"github.com/myatko/domainwatch/internal/domain"
)

func TestShouldNotify(t *testing.T) {
	cases := []struct {
		name     string
		previous domain.Status
		current  domain.Status
		want     bool
	}{
		{"up to down alerts", domain.StatusUp, domain.StatusDown, true},
		{"down to down stays silent", domain.StatusDown, domain.StatusDown, false},
		{"first check never alerts", "", domain.StatusDown, false},
		{"up to up stays silent", domain.StatusUp, domain.StatusUp, false},
		{"recovery is not alerted", domain.StatusDown, domain.StatusUp, false},
		{"first up stays silent", "", domain.StatusUp, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := ShouldNotify(c.previous, domain.ProbeResult{Domain: "x.example", Status: c.current})
			if got != c.want {
				t.Fatalf("prev=%q cur=%q: got %v, want %v", c.previous, c.current, got, c.want)
			}
		})
	}
}
