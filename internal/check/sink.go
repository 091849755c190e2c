package check

import "github.com/myatko/domainwatch/internal/domain"

// ToBulkUpdate collapses probe results into the bulk-write payload the
// domain store consumes: one op per result, same order, no filtering or
// dedup. If a domain somehow appears twice the store's last-write-wins
// semantics settle it.
func ToBulkUpdate(results []domain.ProbeResult) []domain.UpdateOp {
	ops := make([]domain.UpdateOp, 0, len(results))
	for _, r := range results {
		ops = append(ops, domain.UpdateOp{
			Domain:       r.Domain,
			Status:       r.Status,
			Checked:      r.Timestamp,
			ResponseTime: r.ResponseTime,
			StatusCode:   r.StatusCode,
			Error:        r.Error,
		})
	}
	return ops
}

// Summary tallies a result list for reports and logs.
type Summary struct {
	Total int
	Up    int
	Down  int
}

// Summarize counts UP/DOWN results.
func Summarize(results []domain.ProbeResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r.Status == domain.StatusUp {
			s.Up++
		} else {
			s.Down++
		}
	}
	return s
}
