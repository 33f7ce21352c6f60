package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/route-crm/internal/logging"
	"github.com/example/route-crm/internal/recurrence"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = base
	}
	if logger == nil {
		logger = slog.Default()
	}

	pairs := []any{"service", serviceName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, recurrence.ErrInvalidWindow):
		return "invalid_window"
	case errors.Is(err, recurrence.ErrInvalidStep),
		errors.Is(err, recurrence.ErrInvalidOccurrences),
		errors.Is(err, recurrence.ErrInvalidVacation),
		errors.Is(err, recurrence.ErrUnknownList):
		return "invalid_recurrence"
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}

	return "unexpected"
}
