package catalog

import (
	"context"
	"time"

	"github.com/stardex-io/stardex/internal/domain"
)

// Adapter binds a Store to the export directory it is seeded from. The
// spatial snapshot builds through it without knowing about either the
// database or the export layout.
type Adapter struct {
	store   *Store
	dataDir string
}

func NewAdapter(store *Store, dataDir string) *Adapter {
	return &Adapter{store: store, dataDir: dataDir}
}

// Refresh reseeds the catalog when the exports are newer than the last
// recorded seed.
func (a *Adapter) Refresh(ctx context.Context) error {
	needs, err := a.store.NeedsSeed(ctx, a.dataDir)
	if err != nil {
		return err
	}
	if !needs {
		return nil
	}
	return a.store.Seed(ctx, a.dataDir)
}

func (a *Adapter) ListSystems(ctx context.Context) ([]domain.SolarSystem, error) {
	return a.store.ListSystems(ctx)
}

func (a *Adapter) ListConstellations(ctx context.Context) ([]domain.Constellation, error) {
	return a.store.ListConstellations(ctx)
}

func (a *Adapter) ListRegions(ctx context.Context) ([]domain.Region, error) {
	return a.store.ListRegions(ctx)
}

// SourcePaths returns the export files in fingerprint order.
func (a *Adapter) SourcePaths() []string {
	return SnapshotSourcePaths(a.dataDir)
}

// SourceLastModified reports the newest export modification time.
func (a *Adapter) SourceLastModified() (time.Time, error) {
	return SourceLastModified(a.dataDir)
}
