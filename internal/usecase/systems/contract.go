package systems

import (
	"context"

	"github.com/stardex-io/stardex/internal/domain"
	"github.com/stardex-io/stardex/internal/spatial"
)

// SnapshotProvider hands out the current spatial snapshot.
type SnapshotProvider interface {
	Current() (*spatial.Index, error)
}

// ConnectionStore reads gate connections from the catalog.
type ConnectionStore interface {
	Connections(ctx context.Context, systemIDs []uint32) ([]domain.GateConnection, error)
}
