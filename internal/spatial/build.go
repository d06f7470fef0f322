package spatial

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/stardex-io/stardex/internal/domain"
	"github.com/stardex-io/stardex/internal/spatial/kdtree"
)

// Build constructs a fresh snapshot from the catalog source. The source
// is refreshed first so the build always reads the current exports, and
// the fingerprint is taken before the reads so a concurrent export
// update can only make the resulting artifact look stale, never fresh.
func Build(ctx context.Context, src Source, logger *zap.Logger) (*Index, error) {
	start := time.Now()

	if err := src.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("refresh catalog: %w", err)
	}

	fingerprint, err := Fingerprint(src.SourcePaths())
	if err != nil {
		return nil, fmt.Errorf("fingerprint sources: %w", err)
	}

	var (
		systems        []domain.SolarSystem
		constellations []domain.Constellation
		regions        []domain.Region
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		systems, err = src.ListSystems(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		constellations, err = src.ListConstellations(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		regions, err = src.ListRegions(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	points := make([][3]float64, len(systems))
	slotIDs := make([]uint32, len(systems))
	for i := range systems {
		points[i] = systems[i].Center.MetersArray()
		slotIDs[i] = systems[i].ID
	}

	idx := newIndex(snapshotState{
		Tree:           kdtree.New(points),
		SlotIDs:        slotIDs,
		Systems:        systems,
		Constellations: constellations,
		Regions:        regions,
		BuiltAt:        time.Now().UTC(),
	}, fingerprint)

	logger.Info("snapshot built",
		zap.Int("systems", len(systems)),
		zap.Int("constellations", len(constellations)),
		zap.Int("regions", len(regions)),
		zap.Duration("took", time.Since(start)),
	)
	return idx, nil
}
