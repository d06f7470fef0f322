// Package spatial maintains the in-memory snapshot of the star catalog:
// a k-d tree over system positions plus name and hierarchy lookup
// tables. A snapshot is built once and never mutated; Manager publishes
// it for lock-free concurrent readers and swaps it wholesale when the
// source exports change.
package spatial

import (
	"sort"
	"strings"
	"time"

	"github.com/stardex-io/stardex/internal/domain"
	"github.com/stardex-io/stardex/internal/domain/geo"
	"github.com/stardex-io/stardex/internal/spatial/kdtree"
)

// Hit is one spatial query result.
type Hit struct {
	ID       uint32
	Distance geo.Distance
}

// Suggestion is one autocomplete result.
type Suggestion struct {
	Name string
	ID   uint32
}

// nameEntry pairs a system's display name with its pre-lowered form.
// The lowered form is computed once at build time so autocomplete never
// re-normalizes the corpus per query.
type nameEntry struct {
	Lower string
	Name  string
	ID    uint32
}

// snapshotState is the serializable core of an Index. The lookup maps
// are derived from it in newIndex, after a build and after a cache load
// alike, so both paths produce identical indexes.
type snapshotState struct {
	Tree           *kdtree.Tree
	SlotIDs        []uint32
	Systems        []domain.SolarSystem
	Constellations []domain.Constellation
	Regions        []domain.Region
	BuiltAt        time.Time
}

// Index is an immutable spatial snapshot. All methods are pure reads
// and safe for arbitrarily many concurrent callers.
type Index struct {
	state       snapshotState
	fingerprint string

	systems        map[uint32]*domain.SolarSystem
	constellations map[uint32]*domain.Constellation
	regions        map[uint32]*domain.Region
	nameToID       map[string]uint32
	labels         map[uint32]string
	names          []nameEntry
}

func newIndex(st snapshotState, fingerprint string) *Index {
	idx := &Index{
		state:          st,
		fingerprint:    fingerprint,
		systems:        make(map[uint32]*domain.SolarSystem, len(st.Systems)),
		constellations: make(map[uint32]*domain.Constellation, len(st.Constellations)),
		regions:        make(map[uint32]*domain.Region, len(st.Regions)),
		nameToID:       make(map[string]uint32, len(st.Systems)),
		labels:         make(map[uint32]string, len(st.Systems)+len(st.Constellations)+len(st.Regions)),
		names:          make([]nameEntry, 0, len(st.Systems)),
	}

	for i := range st.Systems {
		sys := &st.Systems[i]
		idx.systems[sys.ID] = sys
		idx.nameToID[sys.Name] = sys.ID
		idx.labels[sys.ID] = sys.Name
		idx.names = append(idx.names, nameEntry{Lower: strings.ToLower(sys.Name), Name: sys.Name, ID: sys.ID})
	}
	for i := range st.Constellations {
		con := &st.Constellations[i]
		idx.constellations[con.ID] = con
		idx.labels[con.ID] = con.Name
	}
	for i := range st.Regions {
		reg := &st.Regions[i]
		idx.regions[reg.ID] = reg
		idx.labels[reg.ID] = reg.Name
	}

	sort.Slice(idx.names, func(i, j int) bool {
		a, b := idx.names[i], idx.names[j]
		if a.Lower != b.Lower {
			return a.Lower < b.Lower
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})

	return idx
}

// WithinRadius returns every system within radius of center, the center
// system itself included, in no particular order. The exact distance is
// computed once per hit. Radius must be non-negative; a negative radius
// is a caller contract violation and returns nothing.
func (idx *Index) WithinRadius(center geo.Coordinate, radius geo.Distance) []Hit {
	hits := idx.state.Tree.Within(center.MetersArray(), radius.Meters())
	out := make([]Hit, len(hits))
	for i, h := range hits {
		out[i] = Hit{ID: idx.state.SlotIDs[h.Slot], Distance: geo.Meters(h.Distance)}
	}
	return out
}

// Nearest returns the min(k, Len()) systems closest to center in
// ascending distance order. The center system itself is eligible;
// callers wanting k other systems request k+1 and drop it. Equal
// distances keep traversal order, which is not guaranteed stable.
func (idx *Index) Nearest(center geo.Coordinate, k int) []Hit {
	hits := idx.state.Tree.Nearest(center.MetersArray(), k)
	out := make([]Hit, len(hits))
	for i, h := range hits {
		out[i] = Hit{ID: idx.state.SlotIDs[h.Slot], Distance: geo.Meters(h.Distance)}
	}
	return out
}

// Autocomplete returns the first limit systems whose name contains
// query, case-insensitive, in case-normalized name order. An empty
// query matches every system.
func (idx *Index) Autocomplete(query string, limit int) []Suggestion {
	if limit <= 0 {
		return nil
	}

	q := strings.ToLower(query)
	var out []Suggestion
	for _, e := range idx.names {
		if !strings.Contains(e.Lower, q) {
			continue
		}
		out = append(out, Suggestion{Name: e.Name, ID: e.ID})
		if len(out) == limit {
			break
		}
	}
	return out
}

// SystemByName resolves an exact display name, case-sensitive.
func (idx *Index) SystemByName(name string) (uint32, bool) {
	id, ok := idx.nameToID[name]
	return id, ok
}

// System returns the record for id. The record is shared with the
// snapshot and must not be modified.
func (idx *Index) System(id uint32) (*domain.SolarSystem, bool) {
	sys, ok := idx.systems[id]
	return sys, ok
}

// Constellation returns the constellation record for id.
func (idx *Index) Constellation(id uint32) (*domain.Constellation, bool) {
	con, ok := idx.constellations[id]
	return con, ok
}

// Region returns the region record for id.
func (idx *Index) Region(id uint32) (*domain.Region, bool) {
	reg, ok := idx.regions[id]
	return reg, ok
}

// Constellations returns every constellation record in catalog id order.
// The slice is shared with the snapshot and must not be modified.
func (idx *Index) Constellations() []domain.Constellation {
	return idx.state.Constellations
}

// Label returns the display name for a system, constellation or region id.
func (idx *Index) Label(id uint32) (string, bool) {
	name, ok := idx.labels[id]
	return name, ok
}

// AllIDs returns every system id in slot order.
func (idx *Index) AllIDs() []uint32 {
	out := make([]uint32, len(idx.state.SlotIDs))
	copy(out, idx.state.SlotIDs)
	return out
}

// Len returns the number of systems in the snapshot.
func (idx *Index) Len() int { return len(idx.state.Systems) }

// Fingerprint returns the source fingerprint the snapshot was built
// against.
func (idx *Index) Fingerprint() string { return idx.fingerprint }

// BuiltAt returns when the snapshot was assembled.
func (idx *Index) BuiltAt() time.Time { return idx.state.BuiltAt }
