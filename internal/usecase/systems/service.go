package systems

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/stardex-io/stardex/internal/domain"
	"github.com/stardex-io/stardex/internal/domain/geo"
	"github.com/stardex-io/stardex/internal/metrics"
	"github.com/stardex-io/stardex/internal/spatial"
)

// MaxBulkIDs caps the id list accepted by Bulk and ConnectionsFor.
const MaxBulkIDs = 100

// Limits holds per-query size settings.
type Limits struct {
	AutocompleteDefault int
	AutocompleteMax     int
}

// Hit pairs a system record with its distance from the query system.
type Hit struct {
	System   *domain.SolarSystem
	Distance geo.Distance
}

// Suggestion is one autocomplete match with its hierarchy names.
type Suggestion struct {
	ID                uint32
	Name              string
	ConstellationName string
	RegionName        string
}

// Detail is a system record with its hierarchy names resolved.
type Detail struct {
	System            *domain.SolarSystem
	ConstellationName string
	RegionName        string
}

// Hierarchy is the system → constellation → region chain.
type Hierarchy struct {
	SystemID          uint32
	SystemName        string
	ConstellationID   *uint32
	ConstellationName string
	RegionID          *uint32
	RegionName        string
}

// MemberSystem is one system inside a region tree.
type MemberSystem struct {
	ID   uint32
	Name string
}

// ConstellationBranch is one constellation with its member systems.
type ConstellationBranch struct {
	ID      uint32
	Name    string
	Systems []MemberSystem
}

// RegionTree is a region expanded down to its systems.
type RegionTree struct {
	ID             uint32
	Name           string
	Constellations []ConstellationBranch
}

// Service answers spatial and hierarchy queries over the published
// snapshot, and gate lookups over the catalog.
type Service struct {
	snapshots SnapshotProvider
	conns     ConnectionStore
	limits    Limits
}

// New creates a systems service.
func New(snapshots SnapshotProvider, conns ConnectionStore, limits Limits) *Service {
	return &Service{snapshots: snapshots, conns: conns, limits: limits}
}

// Near returns the systems within radiusLY light-years of the named
// system, closest first. The named system itself is not part of the
// result.
func (s *Service) Near(_ context.Context, name string, radiusLY float64) ([]Hit, error) {
	defer observe("radius", time.Now())

	if radiusLY <= 0 || math.IsNaN(radiusLY) || math.IsInf(radiusLY, 0) {
		return nil, fmt.Errorf("%w: radius must be a positive finite number of light-years", domain.ErrInvalidQuery)
	}

	idx, err := s.snapshots.Current()
	if err != nil {
		return nil, err
	}
	id, ok := idx.SystemByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrSystemNotFound, name)
	}
	sys, _ := idx.System(id)

	hits := idx.WithinRadius(sys.Center, geo.LightYears(radiusLY))
	out := make([]Hit, 0, len(hits))
	for _, h := range hits {
		if h.ID == id {
			continue
		}
		rec, ok := idx.System(h.ID)
		if !ok {
			continue
		}
		out = append(out, Hit{System: rec, Distance: h.Distance})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Distance.Less(out[j].Distance) })
	return out, nil
}

// Nearest returns the k systems closest to the named system, ascending
// by distance. The index is queried for k+1 hits because the query
// system itself always comes back at distance zero.
func (s *Service) Nearest(_ context.Context, name string, k int) ([]Hit, error) {
	defer observe("nearest", time.Now())

	if k < 0 {
		return nil, fmt.Errorf("%w: k must be non-negative", domain.ErrInvalidQuery)
	}

	idx, err := s.snapshots.Current()
	if err != nil {
		return nil, err
	}
	id, ok := idx.SystemByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrSystemNotFound, name)
	}
	if k == 0 {
		return []Hit{}, nil
	}
	sys, _ := idx.System(id)

	hits := idx.Nearest(sys.Center, k+1)
	out := make([]Hit, 0, k)
	for _, h := range hits {
		if h.ID == id {
			continue
		}
		rec, ok := idx.System(h.ID)
		if !ok {
			continue
		}
		out = append(out, Hit{System: rec, Distance: h.Distance})
		if len(out) == k {
			break
		}
	}
	return out, nil
}

// Autocomplete returns name suggestions with their hierarchy names. A
// non-positive limit takes the configured default; larger limits are
// clamped to the configured maximum.
func (s *Service) Autocomplete(_ context.Context, query string, limit int) ([]Suggestion, error) {
	defer observe("autocomplete", time.Now())

	if limit <= 0 {
		limit = s.limits.AutocompleteDefault
	}
	if limit > s.limits.AutocompleteMax {
		limit = s.limits.AutocompleteMax
	}

	idx, err := s.snapshots.Current()
	if err != nil {
		return nil, err
	}

	matches := idx.Autocomplete(query, limit)
	out := make([]Suggestion, len(matches))
	for i, m := range matches {
		sug := Suggestion{ID: m.ID, Name: m.Name}
		if sys, ok := idx.System(m.ID); ok {
			if sys.ConstellationID != nil {
				sug.ConstellationName, _ = idx.Label(*sys.ConstellationID)
			}
			if sys.RegionID != nil {
				sug.RegionName, _ = idx.Label(*sys.RegionID)
			}
		}
		out[i] = sug
	}
	return out, nil
}

// Lookup resolves an exact display name, case-sensitive.
func (s *Service) Lookup(_ context.Context, name string) (Detail, error) {
	defer observe("lookup", time.Now())

	idx, err := s.snapshots.Current()
	if err != nil {
		return Detail{}, err
	}
	id, ok := idx.SystemByName(name)
	if !ok {
		return Detail{}, fmt.Errorf("%w: %q", domain.ErrSystemNotFound, name)
	}
	sys, _ := idx.System(id)
	return detail(idx, sys), nil
}

// Bulk resolves up to MaxBulkIDs systems by id. Unknown ids are skipped.
func (s *Service) Bulk(_ context.Context, ids []uint32) ([]Detail, error) {
	if len(ids) > MaxBulkIDs {
		return nil, fmt.Errorf("%w: at most %d ids per request, got %d", domain.ErrInvalidQuery, MaxBulkIDs, len(ids))
	}

	idx, err := s.snapshots.Current()
	if err != nil {
		return nil, err
	}

	out := make([]Detail, 0, len(ids))
	for _, id := range ids {
		sys, ok := idx.System(id)
		if !ok {
			continue
		}
		out = append(out, detail(idx, sys))
	}
	return out, nil
}

// Hierarchy returns the constellation and region the system belongs to.
func (s *Service) Hierarchy(_ context.Context, id uint32) (Hierarchy, error) {
	idx, err := s.snapshots.Current()
	if err != nil {
		return Hierarchy{}, err
	}
	sys, ok := idx.System(id)
	if !ok {
		return Hierarchy{}, fmt.Errorf("%w: %d", domain.ErrSystemNotFound, id)
	}

	h := Hierarchy{
		SystemID:        sys.ID,
		SystemName:      sys.Name,
		ConstellationID: sys.ConstellationID,
		RegionID:        sys.RegionID,
	}
	if sys.ConstellationID != nil {
		h.ConstellationName, _ = idx.Label(*sys.ConstellationID)
	}
	if sys.RegionID != nil {
		h.RegionName, _ = idx.Label(*sys.RegionID)
	}
	return h, nil
}

// RegionHierarchy expands a region down to its member systems.
func (s *Service) RegionHierarchy(_ context.Context, id uint32) (RegionTree, error) {
	idx, err := s.snapshots.Current()
	if err != nil {
		return RegionTree{}, err
	}
	reg, ok := idx.Region(id)
	if !ok {
		return RegionTree{}, fmt.Errorf("%w: %d", domain.ErrRegionNotFound, id)
	}

	tree := RegionTree{ID: reg.ID, Name: reg.Name}
	cons := idx.Constellations()
	for i := range cons {
		con := &cons[i]
		if con.RegionID == nil || *con.RegionID != id {
			continue
		}
		branch := ConstellationBranch{ID: con.ID, Name: con.Name}
		for _, sysID := range con.SystemIDs {
			name, _ := idx.Label(sysID)
			branch.Systems = append(branch.Systems, MemberSystem{ID: sysID, Name: name})
		}
		tree.Constellations = append(tree.Constellations, branch)
	}
	return tree, nil
}

// ConnectionsFor returns the stored gate links touching the given
// systems.
func (s *Service) ConnectionsFor(ctx context.Context, ids []uint32) ([]domain.GateConnection, error) {
	if len(ids) > MaxBulkIDs {
		return nil, fmt.Errorf("%w: at most %d ids per request, got %d", domain.ErrInvalidQuery, MaxBulkIDs, len(ids))
	}

	conns, err := s.conns.Connections(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load connections: %w", err)
	}
	return conns, nil
}

func detail(idx *spatial.Index, sys *domain.SolarSystem) Detail {
	d := Detail{System: sys}
	if sys.ConstellationID != nil {
		d.ConstellationName, _ = idx.Label(*sys.ConstellationID)
	}
	if sys.RegionID != nil {
		d.RegionName, _ = idx.Label(*sys.RegionID)
	}
	return d
}

func observe(kind string, start time.Time) {
	metrics.SpatialQueryDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}
