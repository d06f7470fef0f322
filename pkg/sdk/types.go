package stardex

// Position is a catalog position in meters.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// System is a solar system record as served by the API.
type System struct {
	ID              uint32         `json:"id"`
	Name            string         `json:"name"`
	Position        Position       `json:"position"`
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

// Hit is a proximity search result with its distance in light-years.
type Hit struct {
	System     System  `json:"system"`
	DistanceLY float64 `json:"distance_ly"`
}

// Suggestion is an autocomplete result.
type Suggestion struct {
	ID                uint32 `json:"id"`
	Name              string `json:"name"`
	ConstellationName string `json:"constellation_name,omitempty"`
	RegionName        string `json:"region_name,omitempty"`
}

// SystemDetail is a system enriched with its hierarchy names.
type SystemDetail struct {
	System            System `json:"system"`
	ConstellationName string `json:"constellation_name,omitempty"`
	RegionName        string `json:"region_name,omitempty"`
}

// Hierarchy names the constellation and region a system belongs to.
type Hierarchy struct {
	SystemID          uint32  `json:"system_id"`
	SystemName        string  `json:"system_name"`
	ConstellationID   *uint32 `json:"constellation_id,omitempty"`
	ConstellationName string  `json:"constellation_name,omitempty"`
	RegionID          *uint32 `json:"region_id,omitempty"`
	RegionName        string  `json:"region_name,omitempty"`
}

// MemberSystem is a system entry inside a region tree.
type MemberSystem struct {
	ID   uint32 `json:"id"`
	Name string `json:"name"`
}

// ConstellationBranch is a constellation with its member systems.
type ConstellationBranch struct {
	ID      uint32         `json:"id"`
	Name    string         `json:"name"`
	Systems []MemberSystem `json:"systems"`
}

// RegionTree is a region expanded into constellations and systems.
type RegionTree struct {
	ID             uint32                `json:"id"`
	Name           string                `json:"name"`
	Constellations []ConstellationBranch `json:"constellations"`
}

// Connection is a stargate link between two systems.
type Connection struct {
	FromSystemID uint32 `json:"from_system_id"`
	ToSystemID   uint32 `json:"to_system_id"`
	Type         string `json:"type,omitempty"`
}

// TypeName maps a type ID to its display name.
type TypeName struct {
	TypeID uint32 `json:"type_id"`
	Name   string `json:"name"`
}

// HealthReport is the service health summary. Status is "ok",
// "degraded" or "error"; Checks holds the per-dependency outcomes.
type HealthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// List envelopes used by the API.
type hitList struct {
	Items []Hit `json:"items"`
	Count int   `json:"count"`
}

type suggestionList struct {
	Items []Suggestion `json:"items"`
	Count int          `json:"count"`
}

type detailList struct {
	Items []SystemDetail `json:"items"`
	Count int            `json:"count"`
}

type connectionList struct {
	Items []Connection `json:"items"`
	Count int          `json:"count"`
}

type typeNameList struct {
	Items []TypeName `json:"items"`
	Count int        `json:"count"`
}
