package backend

import (
	"context"

	"occupancy/internal/services"
	"occupancy/internal/sheets"
)

// Backend represents a unified backend interface that provides all necessary operations
type Backend interface {
	sheets.SheetWriter
	sheets.SheetReader
	sheets.SheetLister
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	// Publisher is nil when the backend does not announce imports.
	Publisher services.Publisher
	Cleanup   CleanupFunc
}

// Close runs Cleanup when set.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}
