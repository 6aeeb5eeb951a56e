package calendar

import (
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

// EventTime represents a single event boundary. The timezone is an
// optional IANA identifier; when omitted, the timestamp's own offset
// is sent to the backend untouched.
type EventTime struct {
	Value    time.Time
	TimeZone string
}

func (t EventTime) toGoogle() *calendar.EventDateTime {
	return &calendar.EventDateTime{
		DateTime: t.Value.Format(time.RFC3339),
		TimeZone: t.TimeZone,
	}
}

// Attendee is an invitee on a create or update request.
type Attendee struct {
	Email    string `json:"email"`
	Optional bool   `json:"optional,omitempty"`
}

// EventInput carries the fields for creating a calendar event.
type EventInput struct {
	Summary     string
	Description string
	Location    string
	Start       EventTime
	End         EventTime
	Attendees   []Attendee

	// Conference requests a Google Meet link for the event.
	Conference bool
}

// EventPatch carries a partial update. Nil fields are left untouched
// on the backend; a patch with no fields set is rejected.
type EventPatch struct {
	Summary     *string
	Description *string
	Location    *string
	Start       *EventTime
	End         *EventTime

	// Attendees replaces the whole attendee list. Nil leaves it
	// untouched; a non-nil empty slice clears it.
	Attendees []Attendee
}

func (p EventPatch) isEmpty() bool {
	return p.Summary == nil && p.Description == nil && p.Location == nil &&
		p.Start == nil && p.End == nil && p.Attendees == nil
}

// CalendarInfo describes one entry from the user's calendar list.
type CalendarInfo struct {
	ID          string `json:"id"`
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	TimeZone    string `json:"time_zone,omitempty"`
	Primary     bool   `json:"primary,omitempty"`
	AccessRole  string `json:"access_role,omitempty"`
}

// AttendeeInfo describes an attendee on a returned event.
type AttendeeInfo struct {
	Email          string `json:"email"`
	DisplayName    string `json:"display_name,omitempty"`
	ResponseStatus string `json:"response_status,omitempty"`
	Optional       bool   `json:"optional,omitempty"`
	Organizer      bool   `json:"organizer,omitempty"`
}

// Organizer identifies the event organizer.
type Organizer struct {
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// EventSummary is the flattened event shape returned to callers.
// Start and end carry the backend's dateTime when present, falling
// back to the all-day date; timezone semantics pass through untouched.
type EventSummary struct {
	ID          string         `json:"id"`
	Summary     string         `json:"summary,omitempty"`
	Description string         `json:"description,omitempty"`
	Location    string         `json:"location,omitempty"`
	Start       string         `json:"start,omitempty"`
	End         string         `json:"end,omitempty"`
	Status      string         `json:"status,omitempty"`
	HTMLLink    string         `json:"html_link,omitempty"`
	HangoutLink string         `json:"hangout_link,omitempty"`
	Updated     string         `json:"updated,omitempty"`
	Organizer   *Organizer     `json:"organizer,omitempty"`
	Attendees   []AttendeeInfo `json:"attendees,omitempty"`
}

// DeleteResult reports the outcome of a delete request.
type DeleteResult struct {
	Deleted    bool   `json:"deleted"`
	EventID    string `json:"event_id"`
	CalendarID string `json:"calendar_id"`
}

func flattenEventTime(t *calendar.EventDateTime) string {
	if t == nil {
		return ""
	}
	if t.DateTime != "" {
		return t.DateTime
	}
	return t.Date
}

func toEventSummary(event *calendar.Event) EventSummary {
	summary := EventSummary{
		ID:          event.Id,
		Summary:     event.Summary,
		Description: event.Description,
		Location:    event.Location,
		Start:       flattenEventTime(event.Start),
		End:         flattenEventTime(event.End),
		Status:      event.Status,
		HTMLLink:    event.HtmlLink,
		HangoutLink: event.HangoutLink,
		Updated:     event.Updated,
	}

	if event.Organizer != nil {
		summary.Organizer = &Organizer{
			Email:       event.Organizer.Email,
			DisplayName: event.Organizer.DisplayName,
		}
	}

	// Prefer the dedicated hangout link; fall back to conference data.
	if summary.HangoutLink == "" && event.ConferenceData != nil {
		for _, ep := range event.ConferenceData.EntryPoints {
			if ep.EntryPointType == "video" {
				summary.HangoutLink = ep.Uri
				break
			}
		}
	}

	for _, att := range event.Attendees {
		summary.Attendees = append(summary.Attendees, AttendeeInfo{
			Email:          att.Email,
			DisplayName:    att.DisplayName,
			ResponseStatus: att.ResponseStatus,
			Optional:       att.Optional,
			Organizer:      att.Organizer,
		})
	}

	return summary
}

func toCalendarInfo(entry *calendar.CalendarListEntry) CalendarInfo {
	return CalendarInfo{
		ID:          entry.Id,
		Summary:     entry.Summary,
		Description: entry.Description,
		TimeZone:    entry.TimeZone,
		Primary:     entry.Primary,
		AccessRole:  entry.AccessRole,
	}
}

func toGoogleAttendees(attendees []Attendee) []*calendar.EventAttendee {
	out := make([]*calendar.EventAttendee, len(attendees))
	for i, att := range attendees {
		out[i] = &calendar.EventAttendee{
			Email:    att.Email,
			Optional: att.Optional,
		}
	}
	return out
}
