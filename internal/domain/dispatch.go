package domain

import "fmt"

// RemoteResult is what the dispenser gateway answers to a single request.
type RemoteResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// ProbeResult is the answer to a connectivity probe.
type ProbeResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	URL     string `json:"url,omitempty"`
}

// DispatchOutcome is the per-item result of a dispatch.
type DispatchOutcome struct {
	Item    DispatchItem   `json:"item"`
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ReportStatus tells how a dispatch session ended.
type ReportStatus string

const (
	ReportDenied    ReportStatus = "denied"
	ReportEmpty     ReportStatus = "empty"
	ReportCompleted ReportStatus = "completed"
)

// SessionReport aggregates one dispatch. It is reported and then discarded.
type SessionReport struct {
	Status       ReportStatus      `json:"status"`
	SuccessCount int               `json:"success_count"`
	TotalCount   int               `json:"total_count"`
	Message      string            `json:"message"`
	Probe        *ProbeResult      `json:"probe,omitempty"`
	Outcomes     []DispatchOutcome `json:"outcomes,omitempty"`
}

// AllSucceeded reports whether every attempted item went through.
func (r SessionReport) AllSucceeded() bool {
	return r.Status == ReportCompleted && r.TotalCount > 0 && r.SuccessCount == r.TotalCount
}

// PartialFailure reports whether some, but not all, items failed.
func (r SessionReport) PartialFailure() bool {
	return r.Status == ReportCompleted && r.SuccessCount > 0 && r.SuccessCount < r.TotalCount
}

// Ratio renders "succeeded/attempted".
func (r SessionReport) Ratio() string {
	return fmt.Sprintf("%d/%d", r.SuccessCount, r.TotalCount)
}

// CancelOutcome is the observed result of a credit cancellation.
type CancelOutcome struct {
	Skipped bool   `json:"skipped,omitempty"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Err     error  `json:"-"`
}

// DispatchEntry is one send-to-dispenser run kept for the shift history.
type DispatchEntry struct {
	Timestamp string        `json:"timestamp"`
	OrderID   string        `json:"order_id"`
	SessionID string        `json:"session_id,omitempty"`
	Operator  string        `json:"operator,omitempty"`
	Report    SessionReport `json:"report"`
}

// DispatchHistory persists dispatch runs under a workspace directory.
type DispatchHistory interface {
	Save(dir string, entry DispatchEntry) error
	Load(dir string) ([]DispatchEntry, error)
}
