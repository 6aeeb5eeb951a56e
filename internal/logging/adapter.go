package logging

import (
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/util"
)

// SlogAdapter exposes an slog.Logger through the printf-style
// util.Logger interface that mcp-go uses for protocol-level error
// reporting (server.WithErrorLogger).
type SlogAdapter struct {
	logger *slog.Logger
}

var _ util.Logger = (*SlogAdapter)(nil)

// NewSlogAdapter creates a new SlogAdapter wrapping the given
// slog.Logger. If logger is nil, slog.Default() is used.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAdapter{logger: logger}
}

// Infof logs a formatted message at info level.
func (a *SlogAdapter) Infof(format string, v ...any) {
	a.logger.Info(fmt.Sprintf(format, v...))
}

// Errorf logs a formatted message at error level.
func (a *SlogAdapter) Errorf(format string, v ...any) {
	a.logger.Error(fmt.Sprintf(format, v...))
}

// Logger returns the underlying slog.Logger for direct access.
func (a *SlogAdapter) Logger() *slog.Logger {
	return a.logger
}
