// Package utils holds small helpers shared by several packages.
package utils

import (
	"time"

	"github.com/rs/zerolog"
)

// Slow-call thresholds. Agent requests fan out to external APIs with 10-20s
// client timeouts, so anything past SlowOperation is worth a warning.
const (
	SlowOperation = 10 * time.Second
	SlowQuery     = 2 * time.Second
)

// Timer measures a single operation
type Timer struct {
	start time.Time
	name  string
	log   zerolog.Logger
}

// NewTimer starts a timer with the given operation name
func NewTimer(name string, log zerolog.Logger) *Timer {
	return &Timer{start: time.Now(), name: name, log: log}
}

// Stop logs the duration and returns it
func (t *Timer) Stop() time.Duration {
	duration := time.Since(t.start)

	t.log.Debug().
		Str("operation", t.name).
		Dur("duration_ms", duration).
		Msg("Operation completed")

	if duration > SlowOperation {
		t.log.Warn().
			Str("operation", t.name).
			Dur("duration", duration).
			Msg("Slow operation detected")
	}
	return duration
}

// OperationTimer provides a defer-friendly way to measure operation duration
//
// Usage:
//
//	defer utils.OperationTimer("ask_agent", log)()
func OperationTimer(operation string, log zerolog.Logger) func() {
	t := NewTimer(operation, log)
	return func() { t.Stop() }
}

// MeasureDBQuery measures a database write
func MeasureDBQuery(queryName string, log zerolog.Logger) func(rowsAffected int64) {
	start := time.Now()

	return func(rowsAffected int64) {
		duration := time.Since(start)

		log.Debug().
			Str("query", queryName).
			Dur("duration_ms", duration).
			Int64("rows_affected", rowsAffected).
			Msg("Database query completed")

		if duration > SlowQuery {
			log.Warn().
				Str("query", queryName).
				Dur("duration", duration).
				Int64("rows_affected", rowsAffected).
				Msg("Slow database query detected")
		}
	}
}
