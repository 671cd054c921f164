package syncer

import (
	"strings"
	"time"
)

// Event is the provider-neutral representation of a calendar event.
// Source and target providers convert their native schemas into this type.
type Event struct {
	// Key is the correlation key linking a source event to its mirrored
	// target copy across runs. It is derived from the source system's
	// unique identifier and is immutable once the target copy exists.
	Key string

	// ID is the provider-side identifier of a target event. Empty for
	// source events and for events that have not been created yet.
	ID string

	Title    string
	Start    time.Time
	End      time.Time
	AllDay   bool
	Location string
	Body     string

	// Etag carries the target provider's entity tag when available, so
	// updates can detect concurrent modification.
	Etag string
}

// Window bounds the query range on both calendars. It is half-open:
// Start is inclusive, End is exclusive.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether an event starting at t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Field identifies an event field compared during update detection.
type Field string

const (
	FieldTitle    Field = "title"
	FieldStart    Field = "start"
	FieldEnd      Field = "end"
	FieldAllDay   Field = "allDay"
	FieldLocation Field = "location"
	FieldBody     Field = "body"
)

// FieldSet is the set of fields compared when deciding whether a target
// event needs an update.
type FieldSet map[Field]bool

// DefaultFields returns the default comparison set: all mapped fields.
func DefaultFields() FieldSet {
	return FieldSet{
		FieldTitle:    true,
		FieldStart:    true,
		FieldEnd:      true,
		FieldAllDay:   true,
		FieldLocation: true,
		FieldBody:     true,
	}
}

// ParseFields parses a comma-separated field list such as "title,start,end".
// An empty string yields the default set.
func ParseFields(s string) (FieldSet, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultFields(), nil
	}
	fields := FieldSet{}
	for _, part := range strings.Split(s, ",") {
		f := Field(strings.TrimSpace(part))
		switch f {
		case FieldTitle, FieldStart, FieldEnd, FieldAllDay, FieldLocation, FieldBody:
			fields[f] = true
		default:
			return nil, &DataError{Detail: "unknown comparison field: " + string(f)}
		}
	}
	return fields, nil
}

// equalTime compares two timestamps as points in time, ignoring time zone
// representation and sub-second precision.
func equalTime(a, b time.Time) bool {
	return a.Truncate(time.Second).Equal(b.Truncate(time.Second))
}

// diffs reports whether source and target differ in any compared field.
func diffs(source, target Event, fields FieldSet) bool {
	if fields[FieldTitle] && source.Title != target.Title {
		return true
	}
	if fields[FieldStart] && !equalTime(source.Start, target.Start) {
		return true
	}
	if fields[FieldEnd] && !equalTime(source.End, target.End) {
		return true
	}
	if fields[FieldAllDay] && source.AllDay != target.AllDay {
		return true
	}
	if fields[FieldLocation] && source.Location != target.Location {
		return true
	}
	if fields[FieldBody] && source.Body != target.Body {
		return true
	}
	return false
}
