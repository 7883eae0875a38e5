// Package store provides SQLite-backed storage for generated worlds. The
// generation packages never import it; only cmd wiring reads and writes
// stored worlds.
package store

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/hexforge/internal/hexgrid"
	"github.com/talgya/hexforge/internal/world"
)

// Store wraps a SQLite connection for world storage.
type Store struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*Store, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS worlds (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		pack_id TEXT NOT NULL,
		theme TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_tiles (
		world_id TEXT NOT NULL,
		q INTEGER NOT NULL,
		r INTEGER NOT NULL,
		tile_type TEXT NOT NULL,
		elevation INTEGER NOT NULL,
		PRIMARY KEY (world_id, q, r)
	);

	CREATE TABLE IF NOT EXISTS world_addons (
		world_id TEXT NOT NULL,
		q INTEGER NOT NULL,
		r INTEGER NOT NULL,
		addon_type TEXT NOT NULL,
		tx REAL NOT NULL, ty REAL NOT NULL, tz REAL NOT NULL,
		rotation REAL NOT NULL,
		scale REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tiles_world ON world_tiles(world_id);
	CREATE INDEX IF NOT EXISTS idx_addons_world ON world_addons(world_id);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// Record summarizes one stored world.
type Record struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	PackID    string    `db:"pack_id"`
	Theme     string    `db:"theme"`
	CreatedAt time.Time `db:"-"`
	Tiles     int       `db:"tiles"`
}

// SaveWorld writes a world under the given name and theme, returning its
// stored id. A world that already has an id is replaced in place.
func (s *Store) SaveWorld(w *world.World, name, theme string) (string, error) {
	id := w.ID
	if id == "" {
		id = uuid.NewString()
	}

	tx, err := s.conn.Beginx()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM world_tiles WHERE world_id = ?", id); err != nil {
		return "", err
	}
	if _, err := tx.Exec("DELETE FROM world_addons WHERE world_id = ?", id); err != nil {
		return "", err
	}
	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO worlds (id, name, pack_id, theme, created_at) VALUES (?, ?, ?, ?, ?)",
		id, name, w.PackID, theme, time.Now().Unix(),
	); err != nil {
		return "", err
	}

	stmt, err := tx.Preparex(
		"INSERT INTO world_tiles (world_id, q, r, tile_type, elevation) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return "", err
	}
	defer stmt.Close()

	for _, t := range w.Tiles() {
		if _, err := stmt.Exec(id, t.Pos.Q, t.Pos.R, t.TileType, t.Elevation); err != nil {
			return "", fmt.Errorf("insert tile at %s: %w", t.Pos, err)
		}
	}

	for _, a := range w.AddOns() {
		if _, err := tx.Exec(
			`INSERT INTO world_addons (world_id, q, r, addon_type, tx, ty, tz, rotation, scale)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, a.Pos.Q, a.Pos.R, a.AddOnType,
			a.Transform.X, a.Transform.Y, a.Transform.Z, a.Transform.Rotation, a.Transform.Scale,
		); err != nil {
			return "", fmt.Errorf("insert add-on at %s: %w", a.Pos, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}

	slog.Info("world saved", "id", id, "name", name, "tiles", w.TileCount())
	return id, nil
}

// LoadWorld reads a stored world back. The result is not frozen; callers
// that only inspect it should leave it alone.
func (s *Store) LoadWorld(id string) (*world.World, error) {
	var meta struct {
		ID     string `db:"id"`
		PackID string `db:"pack_id"`
	}
	if err := s.conn.Get(&meta, "SELECT id, pack_id FROM worlds WHERE id = ?", id); err != nil {
		return nil, fmt.Errorf("load world %s: %w", id, err)
	}

	w := world.New(meta.PackID)
	w.ID = meta.ID

	var tiles []struct {
		Q         int    `db:"q"`
		R         int    `db:"r"`
		TileType  string `db:"tile_type"`
		Elevation int    `db:"elevation"`
	}
	if err := s.conn.Select(&tiles,
		"SELECT q, r, tile_type, elevation FROM world_tiles WHERE world_id = ? ORDER BY rowid", id); err != nil {
		return nil, fmt.Errorf("load tiles for %s: %w", id, err)
	}
	for _, t := range tiles {
		if err := w.AddTile(world.Tile{
			TileType:  t.TileType,
			Pos:       hexgrid.Axial{Q: t.Q, R: t.R},
			Elevation: t.Elevation,
		}); err != nil {
			return nil, fmt.Errorf("restore tile: %w", err)
		}
	}

	var addOns []struct {
		Q         int     `db:"q"`
		R         int     `db:"r"`
		AddOnType string  `db:"addon_type"`
		TX        float64 `db:"tx"`
		TY        float64 `db:"ty"`
		TZ        float64 `db:"tz"`
		Rotation  float64 `db:"rotation"`
		Scale     float64 `db:"scale"`
	}
	if err := s.conn.Select(&addOns,
		"SELECT q, r, addon_type, tx, ty, tz, rotation, scale FROM world_addons WHERE world_id = ? ORDER BY rowid", id); err != nil {
		return nil, fmt.Errorf("load add-ons for %s: %w", id, err)
	}
	for _, a := range addOns {
		if err := w.AddAddOn(world.AddOn{
			AddOnType: a.AddOnType,
			Pos:       hexgrid.Axial{Q: a.Q, R: a.R},
			Transform: world.Transform{X: a.TX, Y: a.TY, Z: a.TZ, Rotation: a.Rotation, Scale: a.Scale},
		}); err != nil {
			return nil, fmt.Errorf("restore add-on: %w", err)
		}
	}

	return w, nil
}

// ListWorlds returns stored worlds, newest first.
func (s *Store) ListWorlds() ([]Record, error) {
	var rows []struct {
		ID        string `db:"id"`
		Name      string `db:"name"`
		PackID    string `db:"pack_id"`
		Theme     string `db:"theme"`
		CreatedAt int64  `db:"created_at"`
		Tiles     int    `db:"tiles"`
	}
	err := s.conn.Select(&rows, `
		SELECT w.id, w.name, w.pack_id, w.theme, w.created_at,
		       (SELECT COUNT(*) FROM world_tiles t WHERE t.world_id = w.id) AS tiles
		FROM worlds w
		ORDER BY w.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list worlds: %w", err)
	}

	records := make([]Record, 0, len(rows))
	for _, r := range rows {
		records = append(records, Record{
			ID:        r.ID,
			Name:      r.Name,
			PackID:    r.PackID,
			Theme:     r.Theme,
			CreatedAt: time.Unix(r.CreatedAt, 0),
			Tiles:     r.Tiles,
		})
	}
	return records, nil
}
