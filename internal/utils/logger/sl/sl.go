package sl

import (
	"errors"
	"log/slog"

	"CaseLifecycle/internal/models/domain"
)

// Err wraps an error as a log attribute.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{Key: "error", Value: slog.StringValue("")}
	}
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// Kind adds the domain error kind when err is a domain rejection.
func Kind(err error) slog.Attr {
	var de *domain.Error
	if errors.As(err, &de) {
		return slog.String("kind", string(de.Kind))
	}
	return slog.String("kind", "internal")
}
