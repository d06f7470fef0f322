package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/stardex-io/stardex/internal/domain"
	healthuc "github.com/stardex-io/stardex/internal/usecase/health"
	systemsuc "github.com/stardex-io/stardex/internal/usecase/systems"
	typenamesuc "github.com/stardex-io/stardex/internal/usecase/typenames"
)

// errorCode is the machine-readable code in the error envelope.
type errorCode string

const (
	codeBadRequest          errorCode = "bad_request"
	codeInvalidQuery        errorCode = "invalid_query"
	codeSystemNotFound      errorCode = "system_not_found"
	codeRegionNotFound      errorCode = "region_not_found"
	codeTypeNameNotFound    errorCode = "type_name_not_found"
	codeSnapshotUnavailable errorCode = "snapshot_unavailable"
	codeRateLimited         errorCode = "rate_limited"
	codeNotFound            errorCode = "not_found"
	codeMethodNotAllowed    errorCode = "method_not_allowed"
	codeInternalError       errorCode = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers for the spatial API.
type Server struct {
	systems       *systemsuc.Service
	typeNames     *typenamesuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	systems *systemsuc.Service,
	typeNames *typenamesuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		systems:   systems,
		typeNames: typeNames,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, codeInvalidQuery),
		sentinelHandler(domain.ErrSystemNotFound, http.StatusNotFound, codeSystemNotFound),
		sentinelHandler(domain.ErrRegionNotFound, http.StatusNotFound, codeRegionNotFound),
		sentinelHandler(domain.ErrTypeNameNotFound, http.StatusNotFound, codeTypeNameNotFound),
		sentinelHandler(domain.ErrSnapshotUnavailable, http.StatusServiceUnavailable, codeSnapshotUnavailable),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, codeRateLimited),
	}
	return s
}

// --- Response shapes ---

type positionJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type systemJSON struct {
	ID              uint32         `json:"id"`
	Name            string         `json:"name"`
	Position        positionJSON   `json:"position"`
	ConstellationID *uint32        `json:"constellation_id,omitempty"`
	RegionID        *uint32        `json:"region_id,omitempty"`
	FactionID       *uint32        `json:"faction_id,omitempty"`
	SecurityClass   string         `json:"security_class,omitempty"`
	SecurityStatus  float64        `json:"security_status"`
	StarID          *uint32        `json:"star_id,omitempty"`
	PlanetIDs       []uint32       `json:"planet_ids,omitempty"`
	PlanetCounts    map[string]int `json:"planet_counts_by_type,omitempty"`
	Neighbours      []uint32       `json:"neighbours,omitempty"`
	Stargates       []uint32       `json:"stargates,omitempty"`
	Sovereignty     string         `json:"sovereignty,omitempty"`
}

type hitJSON struct {
	System     systemJSON `json:"system"`
	DistanceLY float64    `json:"distance_ly"`
}

type hitListJSON struct {
	Items []hitJSON `json:"items"`
	Count int       `json:"count"`
}

type suggestionJSON struct {
	ID                uint32 `json:"id"`
	Name              string `json:"name"`
	ConstellationName string `json:"constellation_name,omitempty"`
	RegionName        string `json:"region_name,omitempty"`
}

type suggestionListJSON struct {
	Items []suggestionJSON `json:"items"`
	Count int              `json:"count"`
}

type detailJSON struct {
	System            systemJSON `json:"system"`
	ConstellationName string     `json:"constellation_name,omitempty"`
	RegionName        string     `json:"region_name,omitempty"`
}

type detailListJSON struct {
	Items []detailJSON `json:"items"`
	Count int          `json:"count"`
}

type hierarchyJSON struct {
	SystemID          uint32  `json:"system_id"`
	SystemName        string  `json:"system_name"`
	ConstellationID   *uint32 `json:"constellation_id,omitempty"`
	ConstellationName string  `json:"constellation_name,omitempty"`
	RegionID          *uint32 `json:"region_id,omitempty"`
	RegionName        string  `json:"region_name,omitempty"`
}

type memberSystemJSON struct {
	ID   uint32 `json:"id"`
	Name string `json:"name"`
}

type constellationBranchJSON struct {
	ID      uint32             `json:"id"`
	Name    string             `json:"name"`
	Systems []memberSystemJSON `json:"systems"`
}

type regionTreeJSON struct {
	ID             uint32                    `json:"id"`
	Name           string                    `json:"name"`
	Constellations []constellationBranchJSON `json:"constellations"`
}

type connectionJSON struct {
	FromSystemID uint32 `json:"from_system_id"`
	ToSystemID   uint32 `json:"to_system_id"`
	Type         string `json:"type,omitempty"`
}

type connectionListJSON struct {
	Items []connectionJSON `json:"items"`
	Count int              `json:"count"`
}

type typeNameJSON struct {
	TypeID uint32 `json:"type_id"`
	Name   string `json:"name"`
}

type typeNameListJSON struct {
	Items []typeNameJSON `json:"items"`
	Count int            `json:"count"`
}

type healthJSON struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// --- Handlers ---

// NearSystems handles GET /systems/near.
func (s *Server) NearSystems(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "System name is required")
		return
	}
	radiusStr := r.URL.Query().Get("radius")
	if radiusStr == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Radius is required")
		return
	}
	radius, err := strconv.ParseFloat(radiusStr, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Radius must be a number of light-years")
		return
	}

	hits, err := s.systems.Near(r.Context(), name, radius)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hitsToJSON(hits))
}

// NearestSystems handles GET /systems/nearest.
func (s *Server) NearestSystems(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "System name is required")
		return
	}
	k := 10
	if kStr := r.URL.Query().Get("k"); kStr != "" {
		v, err := strconv.Atoi(kStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, "K must be an integer")
			return
		}
		k = v
	}

	hits, err := s.systems.Nearest(r.Context(), name, k)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hitsToJSON(hits))
}

// AutocompleteSystems handles GET /systems/autocomplete.
func (s *Server) AutocompleteSystems(w http.ResponseWriter, r *http.Request) {
	limit, ok := optionalIntQuery(w, r, "limit")
	if !ok {
		return
	}

	sugs, err := s.systems.Autocomplete(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]suggestionJSON, len(sugs))
	for i, sug := range sugs {
		items[i] = suggestionJSON{
			ID:                sug.ID,
			Name:              sug.Name,
			ConstellationName: sug.ConstellationName,
			RegionName:        sug.RegionName,
		}
	}
	writeJSON(w, http.StatusOK, suggestionListJSON{Items: items, Count: len(items)})
}

// LookupSystem handles GET /systems/lookup.
func (s *Server) LookupSystem(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "System name is required")
		return
	}

	d, err := s.systems.Lookup(r.Context(), name)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detailToJSON(d))
}

// BulkSystems handles GET /systems/bulk.
func (s *Server) BulkSystems(w http.ResponseWriter, r *http.Request) {
	ids, ok := idListQuery(w, r)
	if !ok {
		return
	}

	details, err := s.systems.Bulk(r.Context(), ids)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]detailJSON, len(details))
	for i, d := range details {
		items[i] = detailToJSON(d)
	}
	writeJSON(w, http.StatusOK, detailListJSON{Items: items, Count: len(items)})
}

// SystemHierarchy handles GET /systems/{id}/hierarchy.
func (s *Server) SystemHierarchy(w http.ResponseWriter, r *http.Request) {
	id, ok := uint32PathParam(w, r, "id")
	if !ok {
		return
	}

	h, err := s.systems.Hierarchy(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hierarchyJSON{
		SystemID:          h.SystemID,
		SystemName:        h.SystemName,
		ConstellationID:   h.ConstellationID,
		ConstellationName: h.ConstellationName,
		RegionID:          h.RegionID,
		RegionName:        h.RegionName,
	})
}

// RegionHierarchy handles GET /regions/{id}/hierarchy.
func (s *Server) RegionHierarchy(w http.ResponseWriter, r *http.Request) {
	id, ok := uint32PathParam(w, r, "id")
	if !ok {
		return
	}

	tree, err := s.systems.RegionHierarchy(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	out := regionTreeJSON{ID: tree.ID, Name: tree.Name, Constellations: []constellationBranchJSON{}}
	for _, con := range tree.Constellations {
		branch := constellationBranchJSON{ID: con.ID, Name: con.Name, Systems: []memberSystemJSON{}}
		for _, sys := range con.Systems {
			branch.Systems = append(branch.Systems, memberSystemJSON{ID: sys.ID, Name: sys.Name})
		}
		out.Constellations = append(out.Constellations, branch)
	}
	writeJSON(w, http.StatusOK, out)
}

// SystemConnections handles GET /systems/connections.
func (s *Server) SystemConnections(w http.ResponseWriter, r *http.Request) {
	ids, ok := idListQuery(w, r)
	if !ok {
		return
	}

	conns, err := s.systems.ConnectionsFor(r.Context(), ids)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]connectionJSON, len(conns))
	for i, c := range conns {
		items[i] = connectionJSON{
			FromSystemID: c.FromSystemID,
			ToSystemID:   c.ToSystemID,
			Type:         c.Type,
		}
	}
	writeJSON(w, http.StatusOK, connectionListJSON{Items: items, Count: len(items)})
}

// SearchTypeNames handles GET /type-names/search.
func (s *Server) SearchTypeNames(w http.ResponseWriter, r *http.Request) {
	limit, ok := optionalIntQuery(w, r, "limit")
	if !ok {
		return
	}

	names, err := s.typeNames.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]typeNameJSON, len(names))
	for i, tn := range names {
		items[i] = typeNameJSON{TypeID: tn.TypeID, Name: tn.Name}
	}
	writeJSON(w, http.StatusOK, typeNameListJSON{Items: items, Count: len(items)})
}

// TypeNameByID handles GET /type-names/{id}.
func (s *Server) TypeNameByID(w http.ResponseWriter, r *http.Request) {
	id, ok := uint32PathParam(w, r, "id")
	if !ok {
		return
	}

	tn, err := s.typeNames.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, typeNameJSON{TypeID: tn.TypeID, Name: tn.Name})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, healthJSON{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// --- Converters ---

func systemToJSON(sys *domain.SolarSystem) systemJSON {
	pos := sys.Center.MetersArray()
	return systemJSON{
		ID:              sys.ID,
		Name:            sys.Name,
		Position:        positionJSON{X: pos[0], Y: pos[1], Z: pos[2]},
		ConstellationID: sys.ConstellationID,
		RegionID:        sys.RegionID,
		FactionID:       sys.FactionID,
		SecurityClass:   sys.Security.Class,
		SecurityStatus:  sys.Security.Status,
		StarID:          sys.Celestials.StarID,
		PlanetIDs:       sys.Celestials.PlanetIDs,
		PlanetCounts:    sys.Celestials.PlanetCountByType,
		Neighbours:      sys.Navigation.Neighbours,
		Stargates:       sys.Navigation.Stargates,
		Sovereignty:     sys.Sovereignty,
	}
}

// hitsToJSON converts hits to the wire shape. Distances leave the server
// in light-years; everything internal stays in meters.
func hitsToJSON(hits []systemsuc.Hit) hitListJSON {
	items := make([]hitJSON, len(hits))
	for i, h := range hits {
		items[i] = hitJSON{
			System:     systemToJSON(h.System),
			DistanceLY: h.Distance.LightYears(),
		}
	}
	return hitListJSON{Items: items, Count: len(items)}
}

func detailToJSON(d systemsuc.Detail) detailJSON {
	return detailJSON{
		System:            systemToJSON(d.System),
		ConstellationName: d.ConstellationName,
		RegionName:        d.RegionName,
	}
}

// --- Request parsing ---

func optionalIntQuery(w http.ResponseWriter, r *http.Request, param string) (int, bool) {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Limit must be an integer")
		return 0, false
	}
	return v, true
}

func idListQuery(w http.ResponseWriter, r *http.Request) ([]uint32, bool) {
	raw := r.URL.Query().Get("ids")
	if raw == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Ids parameter is required")
		return nil, false
	}

	parts := strings.Split(raw, ",")
	ids := make([]uint32, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid id: "+p)
			return nil, false
		}
		ids = append(ids, uint32(v))
	}
	if len(ids) == 0 {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Ids parameter is required")
		return nil, false
	}
	return ids, true
}

func uint32PathParam(w http.ResponseWriter, r *http.Request, param string) (uint32, bool) {
	raw := chi.URLParam(r, param)
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid id: "+raw)
		return 0, false
	}
	return uint32(v), true
}

// --- Error plumbing ---

type errorBodyJSON struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

type errorEnvelopeJSON struct {
	Error errorBodyJSON `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorEnvelopeJSON{Error: errorBodyJSON{
		Code:    code,
		Message: message,
	}})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidQuery,
		domain.ErrSystemNotFound,
		domain.ErrConstellationNotFound,
		domain.ErrRegionNotFound,
		domain.ErrTypeNameNotFound,
		domain.ErrSnapshotUnavailable,
		domain.ErrRateLimited,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return err.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
