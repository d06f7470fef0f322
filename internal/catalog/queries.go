package catalog

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/stardex-io/stardex/internal/domain"
	"github.com/stardex-io/stardex/internal/domain/geo"
)

// ListSystems returns every system row in id order. JSON attribute
// columns that fail to decode degrade to empty defaults so one bad row
// cannot block a snapshot build.
func (s *Store) ListSystems(ctx context.Context) ([]domain.SolarSystem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, center_x, center_y, center_z,
		        region_id, constellation_id, faction_id,
		        security_class, security_status, star_id,
		        planet_ids, planet_count_by_type, neighbours, stargates, sovereignty
		 FROM systems ORDER BY id`)
	if err != nil {
		return nil, &Error{Op: "list systems", Err: err}
	}
	defer rows.Close()

	var out []domain.SolarSystem
	for rows.Next() {
		var (
			sys                       domain.SolarSystem
			x, y, z                   float64
			regionID, constellationID sql.NullInt64
			factionID, starID         sql.NullInt64
			planetIDs, planetCounts   []byte
			neighbours, stargates     []byte
		)
		if err := rows.Scan(&sys.ID, &sys.Name, &x, &y, &z,
			&regionID, &constellationID, &factionID,
			&sys.Security.Class, &sys.Security.Status, &starID,
			&planetIDs, &planetCounts, &neighbours, &stargates, &sys.Sovereignty,
		); err != nil {
			return nil, &Error{Op: "scan system", Err: err}
		}

		sys.Center = geo.CoordinateFromMeters(x, y, z)
		sys.RegionID = nullableID(regionID)
		sys.ConstellationID = nullableID(constellationID)
		sys.FactionID = nullableID(factionID)
		sys.Celestials.StarID = nullableID(starID)
		decodeAux(planetIDs, &sys.Celestials.PlanetIDs)
		decodeAux(planetCounts, &sys.Celestials.PlanetCountByType)
		decodeAux(neighbours, &sys.Navigation.Neighbours)
		decodeAux(stargates, &sys.Navigation.Stargates)

		out = append(out, sys)
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Op: "list systems", Err: err}
	}
	return out, nil
}

// ListConstellations returns every constellation row in id order.
func (s *Store) ListConstellations(ctx context.Context) ([]domain.Constellation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, region_id, system_ids, faction_id, sovereignty
		 FROM constellations ORDER BY id`)
	if err != nil {
		return nil, &Error{Op: "list constellations", Err: err}
	}
	defer rows.Close()

	var out []domain.Constellation
	for rows.Next() {
		var (
			con                 domain.Constellation
			regionID, factionID sql.NullInt64
			systemIDs           []byte
		)
		if err := rows.Scan(&con.ID, &con.Name, &regionID, &systemIDs, &factionID, &con.Sovereignty); err != nil {
			return nil, &Error{Op: "scan constellation", Err: err}
		}

		con.RegionID = nullableID(regionID)
		con.FactionID = nullableID(factionID)
		decodeAux(systemIDs, &con.SystemIDs)

		out = append(out, con)
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Op: "list constellations", Err: err}
	}
	return out, nil
}

// ListRegions returns every region row in id order.
func (s *Store) ListRegions(ctx context.Context) ([]domain.Region, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM regions ORDER BY id`)
	if err != nil {
		return nil, &Error{Op: "list regions", Err: err}
	}
	defer rows.Close()

	var out []domain.Region
	for rows.Next() {
		var r domain.Region
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, &Error{Op: "scan region", Err: err}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Op: "list regions", Err: err}
	}
	return out, nil
}

// SearchTypeNames returns type names containing query, case-insensitive,
// ordered by name. Limit is clamped to [1, 100].
func (s *Store) SearchTypeNames(ctx context.Context, query string, limit int) ([]domain.TypeName, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > 100 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT type_id, name FROM type_names
		 WHERE LOWER(name) LIKE LOWER(?)
		 ORDER BY name ASC
		 LIMIT ?`),
		"%"+query+"%", limit)
	if err != nil {
		return nil, &Error{Op: "search type names", Err: err}
	}
	defer rows.Close()

	var out []domain.TypeName
	for rows.Next() {
		var tn domain.TypeName
		if err := rows.Scan(&tn.TypeID, &tn.Name); err != nil {
			return nil, &Error{Op: "scan type name", Err: err}
		}
		out = append(out, tn)
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Op: "search type names", Err: err}
	}
	return out, nil
}

// TypeName resolves a single type id. Returns domain.ErrTypeNameNotFound
// for unknown ids.
func (s *Store) TypeName(ctx context.Context, typeID uint32) (domain.TypeName, error) {
	var tn domain.TypeName
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT type_id, name FROM type_names WHERE type_id = ?`), typeID,
	).Scan(&tn.TypeID, &tn.Name)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.TypeName{}, domain.ErrTypeNameNotFound
	case err != nil:
		return domain.TypeName{}, &Error{Op: "get type name", Err: err}
	}
	return tn, nil
}

// Connections returns the stargate links touching any of the given
// systems, ordered by endpoint ids.
func (s *Store) Connections(ctx context.Context, ids []uint32) ([]domain.GateConnection, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	ph := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)*2)
	for _, id := range ids {
		args = append(args, id)
	}
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT from_system_id, to_system_id, connection_type FROM gate_connections
		 WHERE from_system_id IN (`+ph+`) OR to_system_id IN (`+ph+`)
		 ORDER BY from_system_id, to_system_id`), args...)
	if err != nil {
		return nil, &Error{Op: "list connections", Err: err}
	}
	defer rows.Close()

	var out []domain.GateConnection
	for rows.Next() {
		var gc domain.GateConnection
		if err := rows.Scan(&gc.FromSystemID, &gc.ToSystemID, &gc.Type); err != nil {
			return nil, &Error{Op: "scan connection", Err: err}
		}
		out = append(out, gc)
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Op: "list connections", Err: err}
	}
	return out, nil
}

func nullableID(v sql.NullInt64) *uint32 {
	if !v.Valid {
		return nil
	}
	id := uint32(v.Int64)
	return &id
}
