package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"

	"github.com/teemow/calendar-mcp/internal/faults"
)

// normalizeError maps backend failures onto the shared fault taxonomy.
// The original status code and message are preserved in the fault text
// so callers can see what the backend actually said.
func normalizeError(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return faults.Wrap(faults.BackendUnavailable,
			fmt.Sprintf("%s timed out", op), err)
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return faults.Wrap(faults.BackendUnavailable,
			fmt.Sprintf("%s failed to reach the calendar backend", op), err)
	}

	msg := gerr.Message
	if msg == "" {
		msg = http.StatusText(gerr.Code)
	}

	switch {
	case gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden:
		return faults.Wrap(faults.Unauthorized,
			fmt.Sprintf("%s rejected by backend (%d): %s", op, gerr.Code, msg), err)
	case gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone:
		return faults.Wrap(faults.NotFound,
			fmt.Sprintf("%s: resource not found", op), err)
	case gerr.Code == http.StatusTooManyRequests || gerr.Code >= 500:
		return faults.Wrap(faults.BackendUnavailable,
			fmt.Sprintf("%s throttled or failing upstream (%d): %s", op, gerr.Code, msg), err)
	default:
		return faults.Wrap(faults.BackendError,
			fmt.Sprintf("%s failed (%d): %s", op, gerr.Code, msg), err)
	}
}
