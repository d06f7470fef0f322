package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/stardex-io/stardex/internal/domain"
	"github.com/stardex-io/stardex/internal/domain/geo"
	"github.com/stardex-io/stardex/internal/spatial"
	healthuc "github.com/stardex-io/stardex/internal/usecase/health"
	systemsuc "github.com/stardex-io/stardex/internal/usecase/systems"
	typenamesuc "github.com/stardex-io/stardex/internal/usecase/typenames"
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

func (m *mockSnapshots) Current() (*spatial.Index, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.idx, nil
}

type mockConnections struct {
	conns []domain.GateConnection
	err   error
}

func (m *mockConnections) Connections(context.Context, []uint32) ([]domain.GateConnection, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.conns, nil
}

type mockTypeStore struct {
	names     []domain.TypeName
	searchErr error
	typeName  domain.TypeName
	typeErr   error
}

func (m *mockTypeStore) SearchTypeNames(context.Context, string, int) ([]domain.TypeName, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.names, nil
}

func (m *mockTypeStore) TypeName(context.Context, uint32) (domain.TypeName, error) {
	if m.typeErr != nil {
		return domain.TypeName{}, m.typeErr
	}
	return m.typeName, nil
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(context.Context) error { return m.err }

// --- Fixtures ---

func u32(v uint32) *uint32 { return &v }

func fixtureIndex(t *testing.T) *spatial.Index {
	t.Helper()
	src := &stubSource{
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
	idx, err := spatial.Build(context.Background(), src, zap.NewNop())
	if err != nil {
		t.Fatalf("build fixture index: %v", err)
	}
	return idx
}

type testEnv struct {
	snaps   *mockSnapshots
	conns   *mockConnections
	types   *mockTypeStore
	catalog *mockPinger
	server  *Server
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		snaps:   &mockSnapshots{idx: fixtureIndex(t)},
		conns:   &mockConnections{},
		types:   &mockTypeStore{},
		catalog: &mockPinger{},
	}
	env.server = NewServer(
		systemsuc.New(env.snaps, env.conns, systemsuc.Limits{AutocompleteDefault: 10, AutocompleteMax: 50}),
		typenamesuc.New(env.types, typenamesuc.Limits{Default: 50, Max: 100}),
		healthuc.New(env.catalog, env.snaps),
		zap.NewNop(),
	)
	return env
}

func (e *testEnv) get(t *testing.T, cfg RouterConfig, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	rec := httptest.NewRecorder()
	e.server.Handler(cfg).ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func errorCodeOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env errorEnvelopeJSON
	decodeJSON(t, rec, &env)
	return string(env.Error.Code)
}
