package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/semaphore"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/calendar-mcp/internal/faults"
	"github.com/teemow/calendar-mcp/internal/logging"
)

const (
	defaultCallTimeout = 30 * time.Second
	defaultMaxInFlight = 10

	defaultMaxResults = 10
	maxResultsCeiling = 2500
)

// CallMetrics receives one record per completed backend call.
type CallMetrics interface {
	RecordCalendarCall(ctx context.Context, operation, status string, elapsed time.Duration)
}

// Client is the gateway to the Google Calendar backend.
type Client struct {
	svc     *calendar.Service
	timeout time.Duration
	sem     *semaphore.Weighted
	logger  *slog.Logger
	metrics CallMetrics
}

type clientSettings struct {
	endpoint    string
	httpClient  *http.Client
	tokenSource oauth2.TokenSource
	timeout     time.Duration
	maxInFlight int64
	logger      *slog.Logger
	metrics     CallMetrics
}

// ClientOption configures a Client.
type ClientOption func(*clientSettings)

// WithEndpoint overrides the backend base URL, used by tests to point
// the client at a local server.
func WithEndpoint(endpoint string) ClientOption {
	return func(s *clientSettings) { s.endpoint = endpoint }
}

// WithHTTPClient supplies a fully prepared HTTP client. It takes
// precedence over WithTokenSource.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(s *clientSettings) { s.httpClient = client }
}

// WithTokenSource authenticates backend calls with the given source.
func WithTokenSource(source oauth2.TokenSource) ClientOption {
	return func(s *clientSettings) { s.tokenSource = source }
}

// WithCallTimeout bounds each backend call.
func WithCallTimeout(d time.Duration) ClientOption {
	return func(s *clientSettings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithMaxInFlight caps concurrent backend calls. Excess callers queue.
func WithMaxInFlight(n int) ClientOption {
	return func(s *clientSettings) {
		if n > 0 {
			s.maxInFlight = int64(n)
		}
	}
}

// WithClientLogger sets the logger for backend call diagnostics.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(s *clientSettings) { s.logger = logger }
}

// WithCallMetrics wires per-call metrics recording.
func WithCallMetrics(metrics CallMetrics) ClientOption {
	return func(s *clientSettings) { s.metrics = metrics }
}

// NewClient creates a calendar gateway.
func NewClient(ctx context.Context, opts ...ClientOption) (*Client, error) {
	settings := clientSettings{
		timeout:     defaultCallTimeout,
		maxInFlight: defaultMaxInFlight,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(&settings)
	}

	var svcOpts []option.ClientOption
	switch {
	case settings.httpClient != nil:
		svcOpts = append(svcOpts, option.WithHTTPClient(settings.httpClient))
	case settings.tokenSource != nil:
		svcOpts = append(svcOpts, option.WithTokenSource(settings.tokenSource))
	default:
		return nil, fmt.Errorf("either an HTTP client or a token source is required")
	}
	if settings.endpoint != "" {
		svcOpts = append(svcOpts, option.WithEndpoint(settings.endpoint))
	}

	svc, err := calendar.NewService(ctx, svcOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	return &Client{
		svc:     svc,
		timeout: settings.timeout,
		sem:     semaphore.NewWeighted(settings.maxInFlight),
		logger:  settings.logger,
		metrics: settings.metrics,
	}, nil
}

// call runs one backend operation under the concurrency cap and the
// per-call timeout, records its outcome, and normalizes the error.
func (c *Client) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return faults.Wrap(faults.BackendUnavailable,
			fmt.Sprintf("%s cancelled while queued", op), err)
	}
	defer c.sem.Release(1)

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := normalizeError(op, fn(callCtx))
	elapsed := time.Since(start)

	status := logging.StatusSuccess
	if err != nil {
		status = logging.StatusError
		c.logger.Warn("calendar backend call failed",
			logging.Operation(op), logging.Err(err), slog.Duration(logging.KeyDuration, elapsed))
	} else {
		c.logger.Debug("calendar backend call completed",
			logging.Operation(op), slog.Duration(logging.KeyDuration, elapsed))
	}
	if c.metrics != nil {
		c.metrics.RecordCalendarCall(ctx, op, status, elapsed)
	}
	return err
}

// ListCalendars lists all calendars visible to the stored credential.
func (c *Client) ListCalendars(ctx context.Context) ([]CalendarInfo, error) {
	var infos []CalendarInfo
	err := c.call(ctx, "list_calendars", func(ctx context.Context) error {
		list, err := c.svc.CalendarList.List().ShowDeleted(false).Context(ctx).Do()
		if err != nil {
			return err
		}
		for _, entry := range list.Items {
			infos = append(infos, toCalendarInfo(entry))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return infos, nil
}

// ListEvents lists events in a calendar within [timeMin, timeMax].
// maxResults defaults to 10 and is clamped to the backend's bound of
// 2500; query applies optional full-text filtering.
func (c *Client) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time, maxResults int64, query string) ([]EventSummary, error) {
	if calendarID == "" {
		return nil, faults.New(faults.InvalidArgument, "calendar_id must not be empty")
	}
	if timeMin.IsZero() {
		return nil, faults.New(faults.InvalidArgument, "time_min is required")
	}
	if timeMax.IsZero() {
		return nil, faults.New(faults.InvalidArgument, "time_max is required")
	}
	if timeMin.After(timeMax) {
		return nil, faults.New(faults.InvalidArgument, "time_min must not be after time_max")
	}
	switch {
	case maxResults <= 0:
		maxResults = defaultMaxResults
	case maxResults > maxResultsCeiling:
		maxResults = maxResultsCeiling
	}

	var summaries []EventSummary
	err := c.call(ctx, "list_events", func(ctx context.Context) error {
		call := c.svc.Events.List(calendarID).
			TimeMin(timeMin.Format(time.RFC3339)).
			TimeMax(timeMax.Format(time.RFC3339)).
			MaxResults(maxResults).
			SingleEvents(true).
			OrderBy("startTime").
			Context(ctx)
		if query != "" {
			call = call.Q(query)
		}

		events, err := call.Do()
		if err != nil {
			return err
		}
		for _, event := range events.Items {
			summaries = append(summaries, toEventSummary(event))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

// GetEvent retrieves a single event by ID.
func (c *Client) GetEvent(ctx context.Context, calendarID, eventID string) (*EventSummary, error) {
	if calendarID == "" {
		return nil, faults.New(faults.InvalidArgument, "calendar_id must not be empty")
	}
	if eventID == "" {
		return nil, faults.New(faults.InvalidArgument, "event_id is required")
	}

	var summary EventSummary
	err := c.call(ctx, "get_event", func(ctx context.Context) error {
		event, err := c.svc.Events.Get(calendarID, eventID).Context(ctx).Do()
		if err != nil {
			return err
		}
		summary = toEventSummary(event)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// CreateEvent creates a new calendar event. When input.Conference is
// set, a Google Meet create request rides along with the insert.
func (c *Client) CreateEvent(ctx context.Context, calendarID string, input EventInput) (*EventSummary, error) {
	if calendarID == "" {
		return nil, faults.New(faults.InvalidArgument, "calendar_id must not be empty")
	}
	if input.Summary == "" {
		return nil, faults.New(faults.InvalidArgument, "summary is required")
	}
	if input.Start.Value.IsZero() {
		return nil, faults.New(faults.InvalidArgument, "start is required")
	}
	if input.End.Value.IsZero() {
		return nil, faults.New(faults.InvalidArgument, "end is required")
	}
	if input.Start.Value.After(input.End.Value) {
		return nil, faults.New(faults.InvalidArgument, "start must not be after end")
	}

	event := &calendar.Event{
		Summary:     input.Summary,
		Description: input.Description,
		Location:    input.Location,
		Start:       input.Start.toGoogle(),
		End:         input.End.toGoogle(),
	}
	if len(input.Attendees) > 0 {
		event.Attendees = toGoogleAttendees(input.Attendees)
	}

	var summary EventSummary
	err := c.call(ctx, "create_event", func(ctx context.Context) error {
		call := c.svc.Events.Insert(calendarID, event).Context(ctx)
		if input.Conference {
			event.ConferenceData = &calendar.ConferenceData{
				CreateRequest: &calendar.CreateConferenceRequest{
					RequestId: fmt.Sprintf("mcp-%d", time.Now().UnixNano()),
					ConferenceSolutionKey: &calendar.ConferenceSolutionKey{
						Type: "hangoutsMeet",
					},
				},
			}
			call = call.ConferenceDataVersion(1)
		}

		created, err := call.Do()
		if err != nil {
			return err
		}
		summary = toEventSummary(created)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// UpdateEvent applies a partial update to an existing event. Only the
// fields set on the patch are sent to the backend.
func (c *Client) UpdateEvent(ctx context.Context, calendarID, eventID string, patch EventPatch) (*EventSummary, error) {
	if calendarID == "" {
		return nil, faults.New(faults.InvalidArgument, "calendar_id must not be empty")
	}
	if eventID == "" {
		return nil, faults.New(faults.InvalidArgument, "event_id is required")
	}
	if patch.isEmpty() {
		return nil, faults.New(faults.InvalidArgument, "update requires at least one field to change")
	}
	if patch.Start != nil && patch.End != nil && patch.Start.Value.After(patch.End.Value) {
		return nil, faults.New(faults.InvalidArgument, "start must not be after end")
	}

	event := &calendar.Event{}
	if patch.Summary != nil {
		event.Summary = *patch.Summary
	}
	if patch.Description != nil {
		event.Description = *patch.Description
	}
	if patch.Location != nil {
		event.Location = *patch.Location
	}
	if patch.Start != nil {
		event.Start = patch.Start.toGoogle()
	}
	if patch.End != nil {
		event.End = patch.End.toGoogle()
	}
	if patch.Attendees != nil {
		event.Attendees = toGoogleAttendees(patch.Attendees)
		if len(event.Attendees) == 0 {
			// An explicitly empty list clears the attendees; the API
			// client would otherwise omit the zero-valued field.
			event.Attendees = []*calendar.EventAttendee{}
			event.ForceSendFields = append(event.ForceSendFields, "Attendees")
		}
	}

	var summary EventSummary
	err := c.call(ctx, "update_event", func(ctx context.Context) error {
		updated, err := c.svc.Events.Patch(calendarID, eventID, event).Context(ctx).Do()
		if err != nil {
			return err
		}
		summary = toEventSummary(updated)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// DeleteEvent removes an event. Deleting an event the backend no
// longer knows about still reports success, so retries are safe.
func (c *Client) DeleteEvent(ctx context.Context, calendarID, eventID string) (*DeleteResult, error) {
	if calendarID == "" {
		return nil, faults.New(faults.InvalidArgument, "calendar_id must not be empty")
	}
	if eventID == "" {
		return nil, faults.New(faults.InvalidArgument, "event_id is required")
	}

	err := c.call(ctx, "delete_event", func(ctx context.Context) error {
		return c.svc.Events.Delete(calendarID, eventID).Context(ctx).Do()
	})
	if err != nil {
		if faults.KindOf(err) == faults.NotFound {
			c.logger.Debug("delete target already gone",
				logging.Calendar(calendarID), logging.KeyEvent, eventID)
		} else {
			return nil, err
		}
	}
	return &DeleteResult{Deleted: true, EventID: eventID, CalendarID: calendarID}, nil
}
