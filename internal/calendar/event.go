package calendar

import (
	"fmt"
	"time"

	"contentflow/internal/models"
)

// EventDuration is the length of every content event.
const EventDuration = time.Hour

// ColorForStatus maps a status to a Google Calendar colour id.
func ColorForStatus(status models.ContentStatus) string {
	switch status {
	case models.StatusPublished:
		return "10"
	case models.StatusScheduled:
		return "9"
	case models.StatusReview:
		return "5"
	default:
		return "8"
	}
}

// BuildEvent renders item as a one-hour UTC event. Items without a
// scheduled time cannot be placed on a calendar.
func BuildEvent(item models.ContentItem) (Event, error) {
	if item.ScheduledAt == nil {
		return Event{}, models.NewFieldError("scheduledAt", "Content item must have a scheduled date")
	}

	brief := ""
	if item.Brief != nil {
		brief = *item.Brief
	}
	start := item.ScheduledAt.UTC()

	return Event{
		Summary:     "📝 " + item.Title,
		Description: fmt.Sprintf("Platform: %s\n\n%s\n\nStatus: %s", item.Platform, brief, item.Status),
		ColorID:     ColorForStatus(item.Status),
		Start:       start,
		End:         start.Add(EventDuration),
		TimeZone:    "UTC",
	}, nil
}
