package broker

import (
	"context"
	"time"

	"github.com/Baaaki/wastetrack/internal/models"
)

// EventType names a change to a waste report.
type EventType string

const (
	EventReportCreated EventType = "report.created"
	EventReportUpdated EventType = "report.updated"
	EventReportDeleted EventType = "report.deleted"
)

// Event is what dashboards receive over the live feed.
type Event struct {
	Type       EventType           `json:"type"`
	ReportID   int                 `json:"reportId"`
	Report     *models.WasteReport `json:"report,omitempty"`
	OccurredAt time.Time           `json:"occurredAt"`
}

// NewReportEvent snapshots report for publishing.
func NewReportEvent(t EventType, report *models.WasteReport) Event {
	return Event{
		Type:       t,
		ReportID:   report.ID,
		Report:     report,
		OccurredAt: time.Now(),
	}
}

// EventBroker fans report events out across server instances.
type EventBroker interface {
	Publish(ctx context.Context, event Event) error
	// Subscribe delivers events until ctx is done or the broker is closed.
	Subscribe(ctx context.Context) (<-chan Event, error)
	Close() error
}
