package spatial

import (
	"context"

	"github.com/stardex-io/stardex/internal/domain"
)

// Source supplies catalog records for snapshot builds and the export
// files snapshots are fingerprinted against. Implemented by
// catalog.Adapter.
type Source interface {
	// Refresh brings the backing catalog up to date with the exports
	// before a build reads it.
	Refresh(ctx context.Context) error

	ListSystems(ctx context.Context) ([]domain.SolarSystem, error)
	ListConstellations(ctx context.Context) ([]domain.Constellation, error)
	ListRegions(ctx context.Context) ([]domain.Region, error)

	// SourcePaths returns the export files in fingerprint order.
	SourcePaths() []string
}
