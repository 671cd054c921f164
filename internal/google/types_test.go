package google

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	calendar "google.golang.org/api/calendar/v3"

	"github.com/sboros/pimsync/internal/syncer"
)

func TestToEvent(t *testing.T) {
	item := &calendar.Event{
		Id:          "gid-1",
		Etag:        `"12345"`,
		Summary:     "Standup",
		Location:    "Room 1",
		Description: "Daily sync",
		Start:       &calendar.EventDateTime{DateTime: "2023-03-06T09:00:00+01:00"},
		End:         &calendar.EventDateTime{DateTime: "2023-03-06T09:30:00+01:00"},
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{
				markerProperty: markerValue,
				keyProperty:    "uid-abc",
			},
		},
	}

	ev := toEvent(item)
	assert.Equal(t, "gid-1", ev.ID)
	assert.Equal(t, "uid-abc", ev.Key)
	assert.Equal(t, "Standup", ev.Title)
	assert.Equal(t, "Room 1", ev.Location)
	assert.Equal(t, "Daily sync", ev.Body)
	assert.Equal(t, `"12345"`, ev.Etag)
	assert.False(t, ev.AllDay)

	want := time.Date(2023, 3, 6, 8, 0, 0, 0, time.UTC)
	assert.True(t, ev.Start.Equal(want), "start should be 08:00 UTC, got %s", ev.Start)
	assert.Equal(t, 30*time.Minute, ev.End.Sub(ev.Start))
}

func TestToEventAllDay(t *testing.T) {
	item := &calendar.Event{
		Id:    "gid-2",
		Start: &calendar.EventDateTime{Date: "2023-03-06"},
		End:   &calendar.EventDateTime{Date: "2023-03-07"},
	}

	ev := toEvent(item)
	assert.True(t, ev.AllDay)
	assert.Equal(t, time.Date(2023, 3, 6, 0, 0, 0, 0, time.UTC), ev.Start)
	assert.Empty(t, ev.Key, "event without the key property has no correlation key")
}

func TestBuildEventStampsMarker(t *testing.T) {
	ev := syncer.Event{
		Key:      "uid-abc",
		Title:    "Standup",
		Start:    time.Date(2023, 3, 6, 9, 0, 0, 0, time.UTC),
		End:      time.Date(2023, 3, 6, 9, 30, 0, 0, time.UTC),
		Location: "Room 1",
		Body:     "Daily sync",
	}

	item := buildEvent(ev)
	require.NotNil(t, item.ExtendedProperties)
	assert.Equal(t, markerValue, item.ExtendedProperties.Private[markerProperty])
	assert.Equal(t, "uid-abc", item.ExtendedProperties.Private[keyProperty])
	assert.Equal(t, "2023-03-06T09:00:00Z", item.Start.DateTime)
	assert.Empty(t, item.Start.Date)
}

func TestBuildEventAllDay(t *testing.T) {
	ev := syncer.Event{
		Key:    "uid-def",
		Title:  "Holiday",
		AllDay: true,
		Start:  time.Date(2023, 3, 6, 0, 0, 0, 0, time.UTC),
		End:    time.Date(2023, 3, 7, 0, 0, 0, 0, time.UTC),
	}

	item := buildEvent(ev)
	assert.Equal(t, "2023-03-06", item.Start.Date)
	assert.Equal(t, "2023-03-07", item.End.Date)
	assert.Empty(t, item.Start.DateTime)
}

func TestRoundTripPreservesComparedFields(t *testing.T) {
	ev := syncer.Event{
		Key:      "uid-xyz",
		Title:    "Planning",
		Start:    time.Date(2023, 3, 6, 11, 0, 0, 0, time.UTC),
		End:      time.Date(2023, 3, 6, 12, 0, 0, 0, time.UTC),
		Location: "Room 2",
		Body:     "Sprint planning",
	}

	back := toEvent(buildEvent(ev))
	plan, err := syncer.Reconcile([]syncer.Event{ev}, []syncer.Event{back}, nil)
	require.NoError(t, err)
	assert.True(t, plan.Empty(), "a freshly created copy must not trigger an update")
}
