package systems

import (
	"context"
	"math"
	"testing"

	"go.uber.org/zap"

	"github.com/stardex-io/stardex/internal/domain"
	"github.com/stardex-io/stardex/internal/domain/geo"
	"github.com/stardex-io/stardex/internal/spatial"
)

// --- Mocks ---

type stubSource struct {
	systems        []domain.SolarSystem
	constellations []domain.Constellation
	regions        []domain.Region
}

func (s *stubSource) Refresh(context.Context) error { return nil }

func (s *stubSource) ListSystems(context.Context) ([]domain.SolarSystem, error) {
	return s.systems, nil
}

func (s *stubSource) ListConstellations(context.Context) ([]domain.Constellation, error) {
	return s.constellations, nil
}

func (s *stubSource) ListRegions(context.Context) ([]domain.Region, error) {
	return s.regions, nil
}

func (s *stubSource) SourcePaths() []string { return nil }

type mockSnapshots struct {
	idx *spatial.Index
	err error
}

func (m *mockSnapshots) Current() (*spatial.Index, error) { return m.idx, m.err }

type mockConnections struct {
	conns  []domain.GateConnection
	err    error
	gotIDs []uint32
	calls  int
}

func (m *mockConnections) Connections(_ context.Context, ids []uint32) ([]domain.GateConnection, error) {
	m.calls++
	m.gotIDs = ids
	if m.err != nil {
		return nil, m.err
	}
	return m.conns, nil
}

// --- Fixtures ---

func u32(v uint32) *uint32 { return &v }

// fixtureIndex is a 3-4-5 triangle in The Forge plus one distant system
// in Essence.
func fixtureIndex(t *testing.T) *spatial.Index {
	t.Helper()
	src := &stubSource{
		systems: []domain.SolarSystem{
			{ID: 1001, Name: "Jita", Center: geo.CoordinateFromMeters(0, 0, 0), ConstellationID: u32(201), RegionID: u32(101)},
			{ID: 1002, Name: "Perimeter", Center: geo.CoordinateFromMeters(3e16, 4e16, 0), ConstellationID: u32(201), RegionID: u32(101)},
			{ID: 1003, Name: "Maurasi", Center: geo.CoordinateFromMeters(3e16, 4e16, 1e16), ConstellationID: u32(202), RegionID: u32(101)},
			{ID: 1004, Name: "Abune", Center: geo.CoordinateFromMeters(1e17, 1e17, 1e17), ConstellationID: u32(203), RegionID: u32(102)},
		},
		constellations: []domain.Constellation{
			{ID: 201, Name: "Kimotoro", RegionID: u32(101), SystemIDs: []uint32{1001, 1002}},
			{ID: 202, Name: "Okomon", RegionID: u32(101), SystemIDs: []uint32{1003}},
			{ID: 203, Name: "Vieres", RegionID: u32(102), SystemIDs: []uint32{1004}},
		},
		regions: []domain.Region{
			{ID: 101, Name: "The Forge"},
			{ID: 102, Name: "Essence"},
		},
	}
	idx, err := spatial.Build(context.Background(), src, zap.NewNop())
	if err != nil {
		t.Fatalf("build fixture index: %v", err)
	}
	return idx
}

func newService(t *testing.T) (*Service, *mockConnections) {
	t.Helper()
	conns := &mockConnections{}
	svc := New(
		&mockSnapshots{idx: fixtureIndex(t)},
		conns,
		Limits{AutocompleteDefault: 10, AutocompleteMax: 50},
	)
	return svc, conns
}

func almost(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
