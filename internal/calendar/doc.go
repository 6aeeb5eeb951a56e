// Package calendar wraps the Google Calendar v3 API behind a small
// gateway client. It validates arguments before any network call,
// bounds in-flight requests, applies a per-call timeout, and
// normalizes backend failures into the shared fault taxonomy.
package calendar
