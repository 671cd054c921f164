package google

import (
	"time"

	calendar "google.golang.org/api/calendar/v3"

	"github.com/sboros/pimsync/internal/syncer"
)

const allDayFormat = "2006-01-02"

// toEvent converts a Google Calendar event to the provider-neutral form.
// Only managed events reach this point, so the key property is expected to
// be present; an event without it gets an empty key and is treated as
// orphaned by reconciliation.
func toEvent(item *calendar.Event) syncer.Event {
	ev := syncer.Event{
		ID:       item.Id,
		Title:    item.Summary,
		Location: item.Location,
		Body:     item.Description,
		Etag:     item.Etag,
	}
	if item.ExtendedProperties != nil {
		ev.Key = item.ExtendedProperties.Private[keyProperty]
	}
	ev.Start, ev.AllDay = parseEventTime(item.Start)
	ev.End, _ = parseEventTime(item.End)
	return ev
}

func parseEventTime(edt *calendar.EventDateTime) (time.Time, bool) {
	if edt == nil {
		return time.Time{}, false
	}
	if edt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, edt.DateTime)
		if err != nil {
			return time.Time{}, false
		}
		return t, false
	}
	if edt.Date != "" {
		t, err := time.Parse(allDayFormat, edt.Date)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}

// buildEvent converts a source event into the Google representation,
// stamping the managed marker and correlation key so the copy can be
// re-identified on later runs.
func buildEvent(ev syncer.Event) *calendar.Event {
	item := &calendar.Event{
		Summary:     ev.Title,
		Location:    ev.Location,
		Description: ev.Body,
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{
				markerProperty: markerValue,
				keyProperty:    ev.Key,
			},
		},
	}
	if ev.AllDay {
		item.Start = &calendar.EventDateTime{Date: ev.Start.Format(allDayFormat)}
		item.End = &calendar.EventDateTime{Date: ev.End.Format(allDayFormat)}
	} else {
		item.Start = &calendar.EventDateTime{DateTime: ev.Start.Format(time.RFC3339)}
		item.End = &calendar.EventDateTime{DateTime: ev.End.Format(time.RFC3339)}
	}
	return item
}
