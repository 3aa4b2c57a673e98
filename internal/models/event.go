package models

import "time"

// Event types emitted by the dashboard.
const (
	EventRecordsRefreshed = "records:refreshed"
	EventOverrideSet      = "chart:override:set"
	EventOverrideCleared  = "chart:override:cleared"
)

// Event notifies subscribers about a change of shared dashboard state.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// RefreshInfo is the payload of EventRecordsRefreshed.
type RefreshInfo struct {
	Records   int    `json:"records"`
	Degraded  bool   `json:"degraded"`
	FromCache bool   `json:"fromCache"`
	Error     string `json:"error,omitempty"`
}
