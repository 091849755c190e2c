package domain

import "time"

// Status is a domain's UP/DOWN classification. The zero value means the
// domain has never been checked.
type Status string

const (
	StatusUp   Status = "up"
	StatusDown Status = "down"
)

// ProbeResult is the outcome of a single liveness probe. Exactly one of
// StatusCode and Error explains a DOWN result: transport-level failures
// carry a message and no code, completed exchanges carry the code (and
// "HTTP <code>" for non-200). UP results always have code 200 and no error.
type ProbeResult struct {
	Domain       string    `json:"domain"`
	Status       Status    `json:"status"`
	StatusCode   *int      `json:"status_code"`
	ResponseTime *float64  `json:"response_time"` // seconds
	Timestamp    time.Time `json:"timestamp"`
	Error        string    `json:"error,omitempty"`
}

// DomainRecord is the persisted view of a monitored domain. The Last*
// fields mirror the most recent ProbeResult.
type DomainRecord struct {
	Domain           string     `json:"domain"`
	Group            string     `json:"group_name"`
	AddedAt          time.Time  `json:"added_at"`
	LastStatus       Status     `json:"last_status,omitempty"`
	LastChecked      *time.Time `json:"last_checked"`
	LastResponseTime *float64   `json:"last_response_time"`
	LastStatusCode   *int       `json:"last_status_code"`
	LastError        string     `json:"last_error,omitempty"`
}

// UpdateOp is one row of a bulk status write, keyed by domain name.
type UpdateOp struct {
	Domain       string    `json:"domain"`
	Status       Status    `json:"status"`
	Checked      time.Time `json:"checked"`
	ResponseTime *float64  `json:"response_time"`
	StatusCode   *int      `json:"status_code"`
	Error        string    `json:"error,omitempty"`
}

// GroupSummary aggregates last-known statuses for one group.
type GroupSummary struct {
	Total   int `json:"total"`
	Up      int `json:"up"`
	Down    int `json:"down"`
	Unknown int `json:"unknown"`
}

// DefaultGroup is where domains land when no group is given.
const DefaultGroup = "Default"
