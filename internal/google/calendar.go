package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/sboros/pimsync/internal/retry"
	"github.com/sboros/pimsync/internal/syncer"
)

// Extended-property names scoped to this tool. The marker identifies
// managed events; the key property carries the correlation key.
const (
	markerProperty = "pimsyncManaged"
	markerValue    = "1"
	keyProperty    = "pimsyncKey"
)

// CalendarClient is the sync target: it reads and writes tool-managed
// events in one Google calendar. It implements syncer.Target.
type CalendarClient struct {
	svc        *calendar.Service
	calendarID string
	logger     *slog.Logger
	retry      retry.Policy
}

// NewCalendarClient creates a client for the named calendar. The name is
// matched against the calendar list the way the account sees it (summary
// or override); "primary" selects the primary calendar.
func NewCalendarClient(ctx context.Context, configPath, calendarName string, logger *slog.Logger, policy retry.Policy) (*CalendarClient, error) {
	httpClient, err := HTTPClient(ctx, configPath)
	if err != nil {
		return nil, err
	}

	svc, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	c := &CalendarClient{
		svc:    svc,
		logger: logger,
		retry:  policy,
	}
	c.calendarID, err = c.findCalendar(ctx, calendarName)
	if err != nil {
		return nil, err
	}
	logger.Debug("logged in to Google", slog.String("calendar", calendarName))
	return c, nil
}

// findCalendar resolves a calendar name to its ID, paging through the
// account's calendar list.
func (c *CalendarClient) findCalendar(ctx context.Context, name string) (string, error) {
	pageToken := ""
	for {
		call := c.svc.CalendarList.List().Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		var list *calendar.CalendarList
		err := c.retry.Do(ctx, "list calendars", func() error {
			var err error
			list, err = call.Do()
			return err
		})
		if err != nil {
			return "", err
		}

		for _, entry := range list.Items {
			if entry.Summary == name || entry.SummaryOverride == name ||
				(name == "primary" && entry.Primary) {
				return entry.Id, nil
			}
		}
		if list.NextPageToken == "" {
			return "", &syncer.DataError{Detail: fmt.Sprintf("no such Google calendar: %s", name)}
		}
		pageToken = list.NextPageToken
	}
}

// List returns the tool-managed events starting within the window. The
// marker filter is applied server-side; user-created events never show up.
func (c *CalendarClient) List(ctx context.Context, window syncer.Window) ([]syncer.Event, error) {
	var events []syncer.Event
	pageToken := ""
	for {
		call := c.svc.Events.List(c.calendarID).
			Context(ctx).
			TimeMin(window.Start.Format(time.RFC3339)).
			TimeMax(window.End.Format(time.RFC3339)).
			SingleEvents(true).
			PrivateExtendedProperty(markerProperty + "=" + markerValue)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		var page *calendar.Events
		err := c.retry.Do(ctx, "list events", func() error {
			var err error
			page, err = call.Do()
			return err
		})
		if err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			ev := toEvent(item)
			// The API bounds by event end time; the sync window is
			// keyed on start and half-open on both sides.
			if !window.Contains(ev.Start) {
				continue
			}
			events = append(events, ev)
		}
		if page.NextPageToken == "" {
			return events, nil
		}
		pageToken = page.NextPageToken
	}
}

// Create inserts a managed copy of a source event.
func (c *CalendarClient) Create(ctx context.Context, ev syncer.Event) (syncer.Event, error) {
	body := buildEvent(ev)

	var created *calendar.Event
	err := c.retry.Do(ctx, "create event", func() error {
		var err error
		created, err = c.svc.Events.Insert(c.calendarID, body).Context(ctx).Do()
		return err
	})
	if err != nil {
		return syncer.Event{}, err
	}

	ev.ID = created.Id
	ev.Etag = created.Etag
	return ev, nil
}

// Update replaces a managed event in place. When the target's entity tag
// from listing no longer matches, the write fails with a ConflictError
// instead of silently overwriting someone else's change.
func (c *CalendarClient) Update(ctx context.Context, target syncer.Event, ev syncer.Event) error {
	body := buildEvent(ev)

	err := c.retry.Do(ctx, "update event", func() error {
		call := c.svc.Events.Update(c.calendarID, target.ID, body).Context(ctx)
		if target.Etag != "" {
			call.Header().Set("If-Match", target.Etag)
		}
		_, err := call.Do()
		return err
	})
	if isConflict(err) {
		return &syncer.ConflictError{EventID: target.ID, Err: err}
	}
	return err
}

// Delete removes a managed event. A 404 or 410 means the event is already
// gone, which is success for our purposes.
func (c *CalendarClient) Delete(ctx context.Context, id string) error {
	err := c.retry.Do(ctx, "delete event", func() error {
		return c.svc.Events.Delete(c.calendarID, id).Context(ctx).Do()
	})
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone) {
			return nil
		}
	}
	return err
}

func isConflict(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusConflict || apiErr.Code == http.StatusPreconditionFailed
	}
	return false
}
