package logging

import (
	"log/slog"
)

// Standard attribute keys.
const (
	FieldComponent     = "component"
	FieldGenerationUID = "generation_uid"
	FieldRunID         = "run_id"
	FieldImage         = "image"
	FieldOutput        = "output"
)

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// NewComponentLogger creates a logger with a standardized component attribute.
// If logger is nil, a no-op logger is used as the base.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(slog.String(FieldComponent, component))
}
