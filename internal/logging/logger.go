package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures the global slog logger.
// In production (ENVIRONMENT=production) it uses JSON output for log aggregation.
// Otherwise it uses the human-readable text handler.
func Init() {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}

	slog.SetDefault(slog.New(handler))
}

// WithTask returns a logger with task transition context fields attached.
// Use this for all logging within a task lifecycle operation.
func WithTask(requestID, taskID, sellerID string) *slog.Logger {
	return slog.With(
		"request_id", requestID,
		"task_id", taskID,
		"seller_id", sellerID,
	)
}

// WithSeller returns a logger scoped to profile operations for one seller.
func WithSeller(requestID, sellerID string) *slog.Logger {
	return slog.With(
		"request_id", requestID,
		"seller_id", sellerID,
	)
}
