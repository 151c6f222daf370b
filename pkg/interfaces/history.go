package interfaces

import (
	"context"

	"askrelay/pkg/types"
)

// ResolutionLog persists terminal session outcomes for audit and UI history.
// Pending sessions are intentionally not persisted: a process restart loses
// every pending session by design.
type ResolutionLog interface {
	// RecordResolution appends one terminal outcome to the log
	RecordResolution(ctx context.Context, record *types.ResolutionRecord) error

	// ListResolutions returns logged outcomes, most recent first, up to limit
	ListResolutions(ctx context.Context, limit int) ([]*types.ResolutionRecord, error)

	// HealthCheck verifies log storage connectivity
	HealthCheck(ctx context.Context) error

	// Close flushes pending writes and releases storage resources
	Close() error
}
