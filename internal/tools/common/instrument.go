package common

import (
	"context"
	"time"

	"github.com/sandeepkv93/identity-service/internal/observability"
)

// Instrument wraps a tool action so each run is counted and timed.
func Instrument(tool, command string, fn func(context.Context) ([]string, error)) func(context.Context) ([]string, error) {
	return func(ctx context.Context) ([]string, error) {
		start := time.Now()
		details, err := fn(ctx)
		status := "success"
		if err != nil {
			status = "error"
		}
		observability.RecordToolCommandRun(ctx, tool, command, status)
		observability.RecordToolCommandDuration(ctx, tool, command, status, time.Since(start))
		return details, err
	}
}
