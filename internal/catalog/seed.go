package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const metaLastUpdate = "last_update"

// Export DTOs for the client data dump. Field names follow the dump's
// camelCase keys. Aux sections stay raw so a malformed section degrades
// to defaults instead of dropping the whole record.

type cartographyExport struct {
	Regions        map[string]json.RawMessage `json:"regions"`
	Constellations map[string]json.RawMessage `json:"constellations"`
	Systems        map[string]json.RawMessage `json:"systems"`
}

type systemExport struct {
	Name            string          `json:"name"`
	Center          [3]float64      `json:"center"`
	RegionID        *uint32         `json:"regionID"`
	ConstellationID *uint32         `json:"constellationID"`
	Security        json.RawMessage `json:"security"`
	Celestials      json.RawMessage `json:"celestials"`
	Navigation      json.RawMessage `json:"navigation"`
	Metadata        json.RawMessage `json:"metadata"`
}

type securityExport struct {
	Class  string  `json:"class"`
	Status float64 `json:"status"`
}

type celestialsExport struct {
	StarID            *uint32        `json:"starID"`
	PlanetIDs         []uint32       `json:"planetIDs"`
	PlanetCountByType map[string]int `json:"planetCountByType"`
}

type navigationExport struct {
	Neighbours []uint32 `json:"neighbours"`
	Stargates  []uint32 `json:"stargates"`
}

type ownerExport struct {
	FactionID   *uint32 `json:"factionID"`
	Sovereignty string  `json:"sovereignty"`
}

type constellationExport struct {
	Name           string          `json:"name"`
	RegionID       *uint32         `json:"regionID"`
	SolarSystemIDs []uint32        `json:"solarSystemIDs"`
	Metadata       json.RawMessage `json:"metadata"`
}

type labelsExport struct {
	Systems        map[string]string `json:"systems"`
	Regions        map[string]string `json:"regions"`
	Constellations map[string]string `json:"constellations"`
}

// Seed rebuilds every catalog table from the JSON exports in dataDir.
// The previous contents are replaced inside one transaction, so readers
// never observe a half-seeded catalog. Entries that fail to parse are
// skipped with a warning rather than aborting the seed.
func (s *Store) Seed(ctx context.Context, dataDir string) error {
	start := time.Now()

	raw, err := os.ReadFile(filepath.Join(dataDir, CartographyFile))
	if err != nil {
		return &Error{Op: "read " + CartographyFile, Err: err}
	}
	var carto cartographyExport
	if err := json.Unmarshal(raw, &carto); err != nil {
		return &Error{Op: "parse " + CartographyFile, Err: err}
	}

	raw, err = os.ReadFile(filepath.Join(dataDir, LabelsFile))
	if err != nil {
		return &Error{Op: "read " + LabelsFile, Err: err}
	}
	var labels labelsExport
	if err := json.Unmarshal(raw, &labels); err != nil {
		return &Error{Op: "parse " + LabelsFile, Err: err}
	}

	typeNames, err := s.readTypeNames(filepath.Join(dataDir, TypeNamesFile))
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &Error{Op: "begin seed", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"gate_connections", "systems", "constellations", "regions", "type_names"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return &Error{Op: "clear " + table, Err: err}
		}
	}

	nRegions, err := s.seedRegions(ctx, tx, carto.Regions, labels.Regions)
	if err != nil {
		return err
	}
	nConstellations, err := s.seedConstellations(ctx, tx, carto.Constellations, labels.Constellations)
	if err != nil {
		return err
	}
	nSystems, pairs, err := s.seedSystems(ctx, tx, carto.Systems, labels.Systems)
	if err != nil {
		return err
	}
	nConnections, err := s.seedConnections(ctx, tx, pairs)
	if err != nil {
		return err
	}
	nTypeNames, err := s.seedTypeNames(ctx, tx, typeNames)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, s.rebind(
		`INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`),
		metaLastUpdate, strconv.FormatInt(time.Now().Unix(), 10),
	); err != nil {
		return &Error{Op: "record last_update", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &Error{Op: "commit seed", Err: err}
	}

	s.logger.Info("catalog seeded",
		zap.Int("systems", nSystems),
		zap.Int("regions", nRegions),
		zap.Int("constellations", nConstellations),
		zap.Int("connections", nConnections),
		zap.Int("type_names", nTypeNames),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

func (s *Store) seedRegions(ctx context.Context, tx *sql.Tx, data map[string]json.RawMessage, names map[string]string) (int, error) {
	stmt, err := tx.PrepareContext(ctx, s.rebind(`INSERT INTO regions (id, name) VALUES (?, ?)`))
	if err != nil {
		return 0, &Error{Op: "prepare regions", Err: err}
	}
	defer stmt.Close()

	n := 0
	for _, id := range sortedIDs(data) {
		name := names[idKey(id)]
		if name == "" {
			name = fmt.Sprintf("Region_%d", id)
		}
		if _, err := stmt.ExecContext(ctx, id, name); err != nil {
			return 0, &Error{Op: "insert region " + idKey(id), Err: err}
		}
		n++
	}
	return n, nil
}

func (s *Store) seedConstellations(ctx context.Context, tx *sql.Tx, data map[string]json.RawMessage, names map[string]string) (int, error) {
	stmt, err := tx.PrepareContext(ctx, s.rebind(
		`INSERT INTO constellations (id, name, region_id, system_ids, faction_id, sovereignty)
		 VALUES (?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return 0, &Error{Op: "prepare constellations", Err: err}
	}
	defer stmt.Close()

	n := 0
	for _, id := range sortedIDs(data) {
		var con constellationExport
		if err := json.Unmarshal(data[idKey(id)], &con); err != nil {
			s.logger.Warn("skipping malformed constellation", zap.Uint32("id", id), zap.Error(err))
			continue
		}
		var owner ownerExport
		decodeAux(con.Metadata, &owner)

		name := names[idKey(id)]
		if name == "" {
			name = con.Name
		}
		if _, err := stmt.ExecContext(ctx, id, name, con.RegionID,
			jsonColumn(con.SolarSystemIDs, "[]"), owner.FactionID, owner.Sovereignty,
		); err != nil {
			return 0, &Error{Op: "insert constellation " + idKey(id), Err: err}
		}
		n++
	}
	return n, nil
}

func (s *Store) seedSystems(ctx context.Context, tx *sql.Tx, data map[string]json.RawMessage, names map[string]string) (int, [][2]uint32, error) {
	stmt, err := tx.PrepareContext(ctx, s.rebind(
		`INSERT INTO systems (id, name, center_x, center_y, center_z, region_id, constellation_id, faction_id,
		                      security_class, security_status, star_id, planet_ids, planet_count_by_type,
		                      neighbours, stargates, sovereignty)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return 0, nil, &Error{Op: "prepare systems", Err: err}
	}
	defer stmt.Close()

	n := 0
	var pairs [][2]uint32
	for _, id := range sortedIDs(data) {
		var sys systemExport
		if err := json.Unmarshal(data[idKey(id)], &sys); err != nil {
			s.logger.Warn("skipping malformed system", zap.Uint32("id", id), zap.Error(err))
			continue
		}

		var (
			sec   securityExport
			cel   celestialsExport
			nav   navigationExport
			owner ownerExport
		)
		decodeAux(sys.Security, &sec)
		decodeAux(sys.Celestials, &cel)
		decodeAux(sys.Navigation, &nav)
		decodeAux(sys.Metadata, &owner)

		name := names[idKey(id)]
		if name == "" {
			name = sys.Name
		}

		if _, err := stmt.ExecContext(ctx, id, name,
			sys.Center[0], sys.Center[1], sys.Center[2],
			sys.RegionID, sys.ConstellationID, owner.FactionID,
			sec.Class, sec.Status, cel.StarID,
			jsonColumn(cel.PlanetIDs, "[]"), jsonColumn(cel.PlanetCountByType, "{}"),
			jsonColumn(nav.Neighbours, "[]"), jsonColumn(nav.Stargates, "[]"),
			owner.Sovereignty,
		); err != nil {
			return 0, nil, &Error{Op: "insert system " + idKey(id), Err: err}
		}
		n++

		// Neighbour links are bidirectional in the dump; keeping only the
		// low-to-high direction stores each gate once.
		for _, to := range nav.Neighbours {
			if id <= to {
				pairs = append(pairs, [2]uint32{id, to})
			}
		}
	}
	return n, pairs, nil
}

func (s *Store) seedConnections(ctx context.Context, tx *sql.Tx, pairs [][2]uint32) (int, error) {
	stmt, err := tx.PrepareContext(ctx, s.rebind(
		`INSERT INTO gate_connections (from_system_id, to_system_id, connection_type)
		 VALUES (?, ?, 'stargate') ON CONFLICT DO NOTHING`))
	if err != nil {
		return 0, &Error{Op: "prepare connections", Err: err}
	}
	defer stmt.Close()

	for _, p := range pairs {
		if _, err := stmt.ExecContext(ctx, p[0], p[1]); err != nil {
			return 0, &Error{Op: "insert connection", Err: err}
		}
	}
	return len(pairs), nil
}

func (s *Store) seedTypeNames(ctx context.Context, tx *sql.Tx, names map[uint32]string) (int, error) {
	if len(names) == 0 {
		return 0, nil
	}

	stmt, err := tx.PrepareContext(ctx, s.rebind(`INSERT INTO type_names (type_id, name) VALUES (?, ?)`))
	if err != nil {
		return 0, &Error{Op: "prepare type_names", Err: err}
	}
	defer stmt.Close()

	ids := make([]uint32, 0, len(names))
	for id := range names {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id, names[id]); err != nil {
			return 0, &Error{Op: "insert type name " + idKey(id), Err: err}
		}
	}
	return len(ids), nil
}

// readTypeNames loads the optional type name dump. Entries with
// non-numeric ids or non-string names are dropped.
func (s *Store) readTypeNames(path string) (map[uint32]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Warn("type names file missing, skipping", zap.String("path", path))
			return nil, nil
		}
		return nil, &Error{Op: "read " + TypeNamesFile, Err: err}
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, &Error{Op: "parse " + TypeNamesFile, Err: err}
	}

	out := make(map[uint32]string, len(entries))
	for k, v := range entries {
		id, ok := parseID(k)
		if !ok {
			continue
		}
		var name string
		if err := json.Unmarshal(v, &name); err != nil {
			continue
		}
		out[id] = name
	}
	return out, nil
}

// NeedsSeed reports whether the source exports are newer than the last
// seed recorded in metadata. Missing exports never trigger a reseed; a
// catalog with no seed record always does.
func (s *Store) NeedsSeed(ctx context.Context, dataDir string) (bool, error) {
	latest, err := SourceLastModified(dataDir)
	if err != nil {
		s.logger.Warn("source exports unavailable, keeping current catalog", zap.Error(err))
		return false, nil
	}

	var value string
	err = s.db.QueryRowContext(ctx, s.rebind(`SELECT value FROM metadata WHERE key = ?`), metaLastUpdate).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return true, nil
	case err != nil:
		return false, &Error{Op: "read last_update", Err: err}
	}

	seeded, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return true, nil
	}
	return latest.After(time.Unix(seeded, 0)), nil
}

// SourceLastModified returns the most recent modification time across
// the snapshot source exports.
func SourceLastModified(dataDir string) (time.Time, error) {
	var latest time.Time
	for _, path := range SnapshotSourcePaths(dataDir) {
		info, err := os.Stat(path)
		if err != nil {
			return time.Time{}, err
		}
		if info.ModTime().After(latest) {
			latest = info.ModTime()
		}
	}
	return latest, nil
}

// decodeAux fills dst from an aux section, leaving defaults when the
// section is absent or malformed. A bad aux section must not drop the
// record it belongs to.
func decodeAux(raw json.RawMessage, dst any) {
	if len(raw) == 0 {
		return
	}
	_ = json.Unmarshal(raw, dst)
}

// jsonColumn marshals v for a TEXT column, substituting empty for nil
// or unmarshalable values.
func jsonColumn(v any, empty string) string {
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return empty
	}
	return string(b)
}

func sortedIDs(m map[string]json.RawMessage) []uint32 {
	ids := make([]uint32, 0, len(m))
	for k := range m {
		if id, ok := parseID(k); ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func idKey(id uint32) string {
	return strconv.FormatUint(uint64(id), 10)
}

func parseID(s string) (uint32, bool) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}
