package session

import "github.com/sells-group/sportcar/internal/model"

// EventKind names what happened in a session.
type EventKind string

const (
	EventSelectionChanged EventKind = "selection_changed"
	EventViewStateChanged EventKind = "view_state_changed"
	EventComparisonReady  EventKind = "comparison_ready"
	EventQuotaExceeded    EventKind = "quota_exceeded"
	EventAuthRequired     EventKind = "auth_required"
	EventError            EventKind = "error"
)

// Event is emitted to listeners after each state change.
type Event struct {
	Kind      EventKind       `json:"kind"`
	State     model.ViewState `json:"state,omitempty"`
	Selection []model.Vehicle `json:"selection,omitempty"`
	Result    *model.Result   `json:"result,omitempty"`
	Usage     *model.Usage    `json:"usage,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Listener receives session events in emission order. A listener must not
// call back into the Controller synchronously.
type Listener func(Event)
