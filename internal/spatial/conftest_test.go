package spatial

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/stardex-io/stardex/internal/domain"
	"github.com/stardex-io/stardex/internal/domain/geo"
)

// --- Mocks ---

type mockSource struct {
	systems        []domain.SolarSystem
	constellations []domain.Constellation
	regions        []domain.Region
	paths          []string

	refreshErr   error
	listErr      error
	refreshCalls int
}

func (m *mockSource) Refresh(_ context.Context) error {
	m.refreshCalls++
	return m.refreshErr
}

func (m *mockSource) ListSystems(_ context.Context) ([]domain.SolarSystem, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.systems, nil
}

func (m *mockSource) ListConstellations(_ context.Context) ([]domain.Constellation, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.constellations, nil
}

func (m *mockSource) ListRegions(_ context.Context) ([]domain.Region, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.regions, nil
}

func (m *mockSource) SourcePaths() []string { return m.paths }

// --- Fixtures ---

func u32(v uint32) *uint32 { return &v }

// triangleSource is three systems forming a 3-4-5 right triangle at
// catalog scale, two constellations and one region.
func triangleSource() *mockSource {
	return &mockSource{
		systems: []domain.SolarSystem{
			{ID: 1001, Name: "Jita", Center: geo.CoordinateFromMeters(0, 0, 0), ConstellationID: u32(201), RegionID: u32(101)},
			{ID: 1002, Name: "Perimeter", Center: geo.CoordinateFromMeters(3e16, 4e16, 0), ConstellationID: u32(201), RegionID: u32(101)},
			{ID: 1003, Name: "Maurasi", Center: geo.CoordinateFromMeters(3e16, 4e16, 1e16), ConstellationID: u32(202), RegionID: u32(101)},
		},
		constellations: []domain.Constellation{
			{ID: 201, Name: "Kimotoro", RegionID: u32(101), SystemIDs: []uint32{1001, 1002}},
			{ID: 202, Name: "Okomon", RegionID: u32(101), SystemIDs: []uint32{1003}},
		},
		regions: []domain.Region{
			{ID: 101, Name: "The Forge"},
		},
	}
}

// namesSource exercises autocomplete ordering and case handling.
func namesSource() *mockSource {
	return &mockSource{
		systems: []domain.SolarSystem{
			{ID: 1, Name: "Alpha", Center: geo.CoordinateFromMeters(1, 0, 0)},
			{ID: 2, Name: "Abel", Center: geo.CoordinateFromMeters(2, 0, 0)},
			{ID: 3, Name: "Cab", Center: geo.CoordinateFromMeters(3, 0, 0)},
			{ID: 4, Name: "Zeta", Center: geo.CoordinateFromMeters(4, 0, 0)},
		},
	}
}

func buildIndex(t *testing.T, src *mockSource) *Index {
	t.Helper()
	idx, err := Build(context.Background(), src, zap.NewNop())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return idx
}

// writeExports writes two export files and returns their paths in
// fingerprint order.
func writeExports(t *testing.T, dir, cartography, labels string) []string {
	t.Helper()
	paths := []string{
		filepath.Join(dir, "stellar_cartography.json"),
		filepath.Join(dir, "stellar_labels.json"),
	}
	if err := os.WriteFile(paths[0], []byte(cartography), 0o644); err != nil {
		t.Fatalf("write cartography: %v", err)
	}
	if err := os.WriteFile(paths[1], []byte(labels), 0o644); err != nil {
		t.Fatalf("write labels: %v", err)
	}
	return paths
}

func hitDistances(hits []Hit) map[uint32]float64 {
	out := make(map[uint32]float64, len(hits))
	for _, h := range hits {
		out[h.ID] = h.Distance.Meters()
	}
	return out
}
