package domain

import "github.com/stardex-io/stardex/internal/domain/geo"

// SolarSystem is one star system record from the catalog. The index
// interprets id, name and position; the remaining attributes ride along
// for clients untouched.
type SolarSystem struct {
	ID              uint32
	Name            string
	Center          geo.Coordinate
	ConstellationID *uint32
	RegionID        *uint32
	FactionID       *uint32
	Security        Security
	Celestials      Celestials
	Navigation      Navigation
	Sovereignty     string
}

// Security holds the system's security classification.
type Security struct {
	Class  string
	Status float64
}

// Celestials lists the bodies belonging to a system.
type Celestials struct {
	StarID            *uint32
	PlanetIDs         []uint32
	PlanetCountByType map[string]int
}

// Navigation holds the system's gate topology. Neighbours are the systems
// reachable by stargate; Stargates are the gate object ids themselves.
type Navigation struct {
	Neighbours []uint32
	Stargates  []uint32
}

// Constellation groups solar systems. RegionID points to the owning
// region and is nil for constellations outside any region.
type Constellation struct {
	ID          uint32
	Name        string
	RegionID    *uint32
	SystemIDs   []uint32
	FactionID   *uint32
	Sovereignty string
}

// Region is the top grouping level of the catalog.
type Region struct {
	ID   uint32
	Name string
}

// TypeName maps a catalog type id to its display name.
type TypeName struct {
	TypeID uint32
	Name   string
}

// GateConnection is one directed stargate link between two systems.
type GateConnection struct {
	FromSystemID uint32
	ToSystemID   uint32
	Type         string
}
