package health

import (
	"context"

	"github.com/stardex-io/stardex/internal/spatial"
)

// CatalogPinger checks catalog database availability.
type CatalogPinger interface {
	Ping(ctx context.Context) error
}

// SnapshotProvider reports whether a spatial snapshot is published.
type SnapshotProvider interface {
	Current() (*spatial.Index, error)
}
