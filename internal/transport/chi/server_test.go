package chi

import (
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stardex-io/stardex/internal/domain"
	"github.com/stardex-io/stardex/internal/ratelimit"
)

// --- Tests ---

func TestNearSystems_OK(t *testing.T) {
	env := newEnv(t)

	rec := env.get(t, RouterConfig{}, "/systems/near?name=Jita&radius=6")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected application/json, got %q", ct)
	}

	var resp hitListJSON
	decodeJSON(t, rec, &resp)
	if resp.Count != 2 || len(resp.Items) != 2 {
		t.Fatalf("expected 2 hits, got %+v", resp)
	}
	if resp.Items[0].System.ID != 1002 || resp.Items[1].System.ID != 1003 {
		t.Fatalf("expected [1002, 1003], got [%d, %d]", resp.Items[0].System.ID, resp.Items[1].System.ID)
	}
	if math.Abs(resp.Items[0].DistanceLY-5.2850) > 1e-3 {
		t.Fatalf("expected ~5.285 ly, got %v", resp.Items[0].DistanceLY)
	}
	if resp.Items[0].System.Position.X != 3e16 {
		t.Fatalf("expected meter position, got %v", resp.Items[0].System.Position)
	}
}

func TestNearSystems_MissingName(t *testing.T) {
	env := newEnv(t)

	rec := env.get(t, RouterConfig{}, "/systems/near?radius=6")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if code := errorCodeOf(t, rec); code != "bad_request" {
		t.Fatalf("expected bad_request, got %q", code)
	}
}

func TestNearSystems_MalformedRadius(t *testing.T) {
	env := newEnv(t)

	rec := env.get(t, RouterConfig{}, "/systems/near?name=Jita&radius=abc")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestNearSystems_NonPositiveRadius(t *testing.T) {
	env := newEnv(t)

	rec := env.get(t, RouterConfig{}, "/systems/near?name=Jita&radius=-1")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if code := errorCodeOf(t, rec); code != "invalid_query" {
		t.Fatalf("expected invalid_query, got %q", code)
	}
}

func TestNearSystems_UnknownSystem(t *testing.T) {
	env := newEnv(t)

	rec := env.get(t, RouterConfig{}, "/systems/near?name=Atlantis&radius=6")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if code := errorCodeOf(t, rec); code != "system_not_found" {
		t.Fatalf("expected system_not_found, got %q", code)
	}
}

func TestNearSystems_SnapshotUnavailable(t *testing.T) {
	env := newEnv(t)
	env.snaps.err = domain.ErrSnapshotUnavailable

	rec := env.get(t, RouterConfig{}, "/systems/near?name=Jita&radius=6")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if code := errorCodeOf(t, rec); code != "snapshot_unavailable" {
		t.Fatalf("expected snapshot_unavailable, got %q", code)
	}
}

func TestNearestSystems_DefaultK(t *testing.T) {
	env := newEnv(t)

	rec := env.get(t, RouterConfig{}, "/systems/nearest?name=Jita")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp hitListJSON
	decodeJSON(t, rec, &resp)
	if resp.Count != 2 {
		t.Fatalf("expected the 2 other systems under the default k, got %d", resp.Count)
	}
	if resp.Items[0].System.ID != 1002 {
		t.Fatalf("expected Perimeter first, got %d", resp.Items[0].System.ID)
	}
}

func TestNearestSystems_MalformedK(t *testing.T) {
	env := newEnv(t)

	rec := env.get(t, RouterConfig{}, "/systems/nearest?name=Jita&k=two")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestNearestSystems_NegativeK(t *testing.T) {
	env := newEnv(t)

	rec := env.get(t, RouterConfig{}, "/systems/nearest?name=Jita&k=-2")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if code := errorCodeOf(t, rec); code != "invalid_query" {
		t.Fatalf("expected invalid_query, got %q", code)
	}
}

func TestAutocompleteSystems_OK(t *testing.T) {
	env := newEnv(t)

	rec := env.get(t, RouterConfig{}, "/systems/autocomplete?q=ji")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp suggestionListJSON
	decodeJSON(t, rec, &resp)
	if resp.Count != 1 {
		t.Fatalf("expected 1 suggestion, got %d", resp.Count)
	}
	want := suggestionJSON{ID: 1001, Name: "Jita", ConstellationName: "Kimotoro", RegionName: "The Forge"}
	if resp.Items[0] != want {
		t.Fatalf("expected %+v, got %+v", want, resp.Items[0])
	}
}

func TestAutocompleteSystems_MalformedLimit(t *testing.T) {
	env := newEnv(t)

	rec := env.get(t, RouterConfig{}, "/systems/autocomplete?q=ji&limit=lots")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestLookupSystem_OK(t *testing.T) {
	env := newEnv(t)

	rec := env.get(t, RouterConfig{}, "/systems/lookup?name=Perimeter")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp detailJSON
	decodeJSON(t, rec, &resp)
	if resp.System.ID != 1002 || resp.ConstellationName != "Kimotoro" || resp.RegionName != "The Forge" {
		t.Fatalf("unexpected detail: %+v", resp)
	}
}

func TestLookupSystem_CaseSensitive(t *testing.T) {
	env := newEnv(t)

	rec := env.get(t, RouterConfig{}, "/systems/lookup?name=perimeter")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestBulkSystems_SkipsUnknown(t *testing.T) {
	env := newEnv(t)

	rec := env.get(t, RouterConfig{}, "/systems/bulk?ids=1003,9999")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp detailListJSON
	decodeJSON(t, rec, &resp)
	if resp.Count != 1 || resp.Items[0].System.ID != 1003 {
		t.Fatalf("expected only 1003, got %+v", resp)
	}
}

func TestBulkSystems_MalformedID(t *testing.T) {
	env := newEnv(t)

	rec := env.get(t, RouterConfig{}, "/systems/bulk?ids=1001,abc")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestBulkSystems_MissingIDs(t *testing.T) {
	env := newEnv(t)

	rec := env.get(t, RouterConfig{}, "/systems/bulk")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSystemHierarchy_OK(t *testing.T) {
	env := newEnv(t)

	rec := env.get(t, RouterConfig{}, "/systems/1002/hierarchy")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp hierarchyJSON
	decodeJSON(t, rec, &resp)
	if resp.SystemName != "Perimeter" || resp.ConstellationName != "Kimotoro" || resp.RegionName != "The Forge" {
		t.Fatalf("unexpected hierarchy: %+v", resp)
	}
}

func TestSystemHierarchy_MalformedID(t *testing.T) {
	env := newEnv(t)

	rec := env.get(t, RouterConfig{}, "/systems/abc/hierarchy")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRegionHierarchy_OK(t *testing.T) {
	env := newEnv(t)

	rec := env.get(t, RouterConfig{}, "/regions/101/hierarchy")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp regionTreeJSON
	decodeJSON(t, rec, &resp)
	if resp.Name != "The Forge" || len(resp.Constellations) != 2 {
		t.Fatalf("unexpected tree: %+v", resp)
	}
	if resp.Constellations[0].Name != "Kimotoro" || len(resp.Constellations[0].Systems) != 2 {
		t.Fatalf("unexpected first branch: %+v", resp.Constellations[0])
	}
}

func TestRegionHierarchy_Unknown(t *testing.T) {
	env := newEnv(t)

	rec := env.get(t, RouterConfig{}, "/regions/9999/hierarchy")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if code := errorCodeOf(t, rec); code != "region_not_found" {
		t.Fatalf("expected region_not_found, got %q", code)
	}
}

func TestSystemConnections_OK(t *testing.T) {
	env := newEnv(t)
	env.conns.conns = []domain.GateConnection{
		{FromSystemID: 1001, ToSystemID: 1002, Type: "stargate"},
	}

	rec := env.get(t, RouterConfig{}, "/systems/connections?ids=1001,1002")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp connectionListJSON
	decodeJSON(t, rec, &resp)
	if resp.Count != 1 || resp.Items[0].FromSystemID != 1001 || resp.Items[0].ToSystemID != 1002 {
		t.Fatalf("unexpected connections: %+v", resp)
	}
}

func TestSystemConnections_StoreError(t *testing.T) {
	env := newEnv(t)
	env.conns.err = errors.New("database is locked")

	rec := env.get(t, RouterConfig{}, "/systems/connections?ids=1001")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var envResp errorEnvelopeJSON
	decodeJSON(t, rec, &envResp)
	if envResp.Error.Message != "internal error" {
		t.Fatalf("store error must not leak, got %q", envResp.Error.Message)
	}
}

func TestSearchTypeNames_OK(t *testing.T) {
	env := newEnv(t)
	env.types.names = []domain.TypeName{{TypeID: 34, Name: "Tritanium"}}

	rec := env.get(t, RouterConfig{}, "/type-names/search?q=trit")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp typeNameListJSON
	decodeJSON(t, rec, &resp)
	if resp.Count != 1 || resp.Items[0].TypeID != 34 {
		t.Fatalf("unexpected type names: %+v", resp)
	}
}

func TestSearchTypeNames_MissingQuery(t *testing.T) {
	env := newEnv(t)

	rec := env.get(t, RouterConfig{}, "/type-names/search")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if code := errorCodeOf(t, rec); code != "invalid_query" {
		t.Fatalf("expected invalid_query, got %q", code)
	}
}

func TestTypeNameByID_OK(t *testing.T) {
	env := newEnv(t)
	env.types.typeName = domain.TypeName{TypeID: 587, Name: "Rifter"}

	rec := env.get(t, RouterConfig{}, "/type-names/587")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp typeNameJSON
	decodeJSON(t, rec, &resp)
	if resp.TypeID != 587 || resp.Name != "Rifter" {
		t.Fatalf("unexpected type name: %+v", resp)
	}
}

func TestTypeNameByID_NotFound(t *testing.T) {
	env := newEnv(t)
	env.types.typeErr = domain.ErrTypeNameNotFound

	rec := env.get(t, RouterConfig{}, "/type-names/9999")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if code := errorCodeOf(t, rec); code != "type_name_not_found" {
		t.Fatalf("expected type_name_not_found, got %q", code)
	}
}

func TestHealth_Healthy(t *testing.T) {
	env := newEnv(t)

	rec := env.get(t, RouterConfig{}, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp healthJSON
	decodeJSON(t, rec, &resp)
	if resp.Status != "ok" || resp.Checks["catalog"] != "ok" || resp.Checks["snapshot"] != "ok" {
		t.Fatalf("unexpected health: %+v", resp)
	}
}

func TestHealth_DegradedStays200(t *testing.T) {
	env := newEnv(t)
	env.catalog.err = errors.New("conn refused")

	rec := env.get(t, RouterConfig{}, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 while degraded, got %d", rec.Code)
	}

	var resp healthJSON
	decodeJSON(t, rec, &resp)
	if resp.Status != "degraded" {
		t.Fatalf("expected degraded, got %q", resp.Status)
	}
}

func TestHealth_Unhealthy503(t *testing.T) {
	env := newEnv(t)
	env.catalog.err = errors.New("conn refused")
	env.snaps.err = domain.ErrSnapshotUnavailable

	rec := env.get(t, RouterConfig{}, "/health")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestNotFoundIsJSON(t *testing.T) {
	env := newEnv(t)

	rec := env.get(t, RouterConfig{}, "/nope")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if code := errorCodeOf(t, rec); code != "not_found" {
		t.Fatalf("expected not_found, got %q", code)
	}
}

func TestMethodNotAllowedIsJSON(t *testing.T) {
	env := newEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/systems/lookup?name=Jita", http.NoBody)
	rec := httptest.NewRecorder()
	env.server.Handler(RouterConfig{}).ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	if code := errorCodeOf(t, rec); code != "method_not_allowed" {
		t.Fatalf("expected method_not_allowed, got %q", code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	env := newEnv(t)

	rec := env.get(t, RouterConfig{}, "/health")
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("expected nosniff, got %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("expected DENY, got %q", got)
	}
	if got := rec.Header().Get("Referrer-Policy"); got != "no-referrer" {
		t.Errorf("expected no-referrer, got %q", got)
	}
}

func TestPathPrefix(t *testing.T) {
	env := newEnv(t)
	cfg := RouterConfig{PathPrefix: "/api/v1"}

	rec := env.get(t, cfg, "/api/v1/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 under prefix, got %d", rec.Code)
	}

	rec = env.get(t, cfg, "/health")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 outside prefix, got %d", rec.Code)
	}
}

func TestRateLimit_SearchTier(t *testing.T) {
	env := newEnv(t)
	limiter := ratelimit.NewMemory(1, 1)
	defer limiter.Close()
	cfg := RouterConfig{Search: limiter}

	first := env.get(t, cfg, "/systems/autocomplete?q=ji")
	if first.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", first.Code)
	}

	second := env.get(t, cfg, "/systems/autocomplete?q=ji")
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}

	// The general tier is separate; non-search routes keep working.
	lookup := env.get(t, cfg, "/systems/lookup?name=Jita")
	if lookup.Code != http.StatusOK {
		t.Fatalf("expected lookup unaffected, got %d", lookup.Code)
	}
}

func TestCORSHeaders(t *testing.T) {
	env := newEnv(t)
	cfg := RouterConfig{AllowedOrigins: []string{"https://map.example.com"}}

	req := httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
	req.Header.Set("Origin", "https://map.example.com")
	rec := httptest.NewRecorder()
	env.server.Handler(cfg).ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://map.example.com" {
		t.Fatalf("expected allowed origin echoed, got %q", got)
	}
}
