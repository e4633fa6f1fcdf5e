package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/earthlord-game/server/internal/building"
	"github.com/earthlord-game/server/internal/geo"
)

// timeLayout matches the strftime('%Y-%m-%dT%H:%M:%fZ') defaults in the
// migrations, so Go-written and SQL-written timestamps compare correctly as
// strings.
const timeLayout = "2006-01-02T15:04:05.000Z"

func fmtTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func newToken() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// --- Players ---

func (s *SQLiteStore) CreatePlayer(ctx context.Context, name string) (Player, error) {
	p := Player{
		ID:        uuid.NewString(),
		Name:      name,
		Token:     newToken(),
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO players (id, name, session_token, created_at)
		VALUES (?, ?, ?, ?)
	`, p.ID, p.Name, p.Token, fmtTime(p.CreatedAt))
	return p, err
}

func (s *SQLiteStore) PlayerFromToken(ctx context.Context, token string) (Player, error) {
	var p Player
	var created string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, session_token, created_at FROM players WHERE session_token = ?
	`, token).Scan(&p.ID, &p.Name, &p.Token, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	p.CreatedAt = parseTime(created)
	return p, err
}

// --- Tracking sessions ---

func (s *SQLiteStore) StartTrack(ctx context.Context, playerID string) (TrackSession, error) {
	sess := TrackSession{
		ID:        uuid.NewString(),
		PlayerID:  playerID,
		Status:    "recording",
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO track_sessions (id, player_id, status, started_at)
		VALUES (?, ?, 'recording', ?)
	`, sess.ID, sess.PlayerID, fmtTime(sess.StartedAt))
	if err != nil && isUniqueViolation(err) {
		return TrackSession{}, ErrTrackActive
	}
	return sess, err
}

func (s *SQLiteStore) ActiveTrack(ctx context.Context, playerID string) (TrackSession, []geo.Point, error) {
	var sess TrackSession
	var started string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, player_id, status, started_at
		FROM track_sessions
		WHERE player_id = ? AND status = 'recording'
	`, playerID).Scan(&sess.ID, &sess.PlayerID, &sess.Status, &started)
	if errors.Is(err, sql.ErrNoRows) {
		return sess, nil, ErrNotFound
	}
	if err != nil {
		return sess, nil, err
	}
	sess.StartedAt = parseTime(started)

	path, err := s.trackPoints(ctx, s.db, sess.ID)
	return sess, path, err
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *SQLiteStore) trackPoints(ctx context.Context, q querier, sessionID string) ([]geo.Point, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT lat, lon FROM track_points WHERE session_id = ? ORDER BY seq
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var path []geo.Point
	for rows.Next() {
		var p geo.Point
		if err := rows.Scan(&p.Lat, &p.Lon); err != nil {
			return nil, err
		}
		path = append(path, p)
	}
	return path, rows.Err()
}

func (s *SQLiteStore) AppendTrackPoint(ctx context.Context, sessionID string, p geo.Point) ([]geo.Point, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO track_points (session_id, seq, lat, lon, recorded_at)
		SELECT id, (SELECT COALESCE(MAX(seq)+1, 0) FROM track_points WHERE session_id = ?), ?, ?, ?
		FROM track_sessions WHERE id = ? AND status = 'recording'
	`, sessionID, p.Lat, p.Lon, fmtTime(time.Now()), sessionID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}

	path, err := s.trackPoints(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}
	return path, tx.Commit()
}

func (s *SQLiteStore) AbandonTrack(ctx context.Context, playerID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE track_sessions SET status = 'abandoned', ended_at = ?
		WHERE player_id = ? AND status = 'recording'
	`, fmtTime(time.Now()), playerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) CloseTrackIntoTerritory(ctx context.Context, sessionID string, t Territory) (Territory, error) {
	ewkt, err := geo.EWKTPolygon(t.Boundary)
	if err != nil {
		return Territory{}, err
	}
	pathJSON, err := geo.MarshalPath(t.Boundary)
	if err != nil {
		return Territory{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Territory{}, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE track_sessions SET status = 'closed', ended_at = ?
		WHERE id = ? AND status = 'recording'
	`, fmtTime(t.CompletedAt), sessionID)
	if err != nil {
		return Territory{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Territory{}, ErrNotFound
	}

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.IsActive = true
	_, err = tx.ExecContext(ctx, `
		INSERT INTO territories
			(id, owner_id, name, boundary, path_json, area_m2,
			 min_lat, max_lat, min_lon, max_lon, point_count,
			 started_at, completed_at, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
	`, t.ID, t.OwnerID, t.Name, ewkt, pathJSON, t.AreaM2,
		t.BBox.MinLat, t.BBox.MaxLat, t.BBox.MinLon, t.BBox.MaxLon, t.PointCount,
		fmtTime(t.StartedAt), fmtTime(t.CompletedAt))
	if err != nil {
		return Territory{}, err
	}
	return t, tx.Commit()
}

// --- Territories ---

const territoryCols = `id, owner_id, COALESCE(name, ''), boundary, area_m2,
	min_lat, max_lat, min_lon, max_lon, point_count, started_at, completed_at, is_active`

func scanTerritory(row interface{ Scan(...any) error }) (Territory, error) {
	var t Territory
	var ewkt, started, completed string
	err := row.Scan(&t.ID, &t.OwnerID, &t.Name, &ewkt, &t.AreaM2,
		&t.BBox.MinLat, &t.BBox.MaxLat, &t.BBox.MinLon, &t.BBox.MaxLon,
		&t.PointCount, &started, &completed, &t.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	t.Boundary, err = geo.ParseWKTPolygon(ewkt)
	if err != nil {
		return t, fmt.Errorf("territory %s has corrupt boundary: %w", t.ID, err)
	}
	t.StartedAt = parseTime(started)
	t.CompletedAt = parseTime(completed)
	return t, nil
}

func (s *SQLiteStore) ListTerritories(ctx context.Context, ownerID string) ([]Territory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+territoryCols+` FROM territories
		WHERE owner_id = ? ORDER BY completed_at DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Territory
	for rows.Next() {
		t, err := scanTerritory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetTerritory(ctx context.Context, id string) (Territory, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+territoryCols+` FROM territories WHERE id = ?
	`, id)
	return scanTerritory(row)
}

func (s *SQLiteStore) RenameTerritory(ctx context.Context, id, ownerID, name string) error {
	return s.ownerUpdate(ctx, `
		UPDATE territories SET name = ? WHERE id = ? AND owner_id = ?
	`, name, id, ownerID)
}

func (s *SQLiteStore) DeactivateTerritory(ctx context.Context, id, ownerID string) error {
	return s.ownerUpdate(ctx, `
		UPDATE territories SET is_active = 0 WHERE id = ? AND owner_id = ?
	`, id, ownerID)
}

func (s *SQLiteStore) DeleteTerritory(ctx context.Context, id, ownerID string) error {
	return s.ownerUpdate(ctx, `
		DELETE FROM territories WHERE id = ? AND owner_id = ?
	`, id, ownerID)
}

func (s *SQLiteStore) ownerUpdate(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Buildings ---

const buildingCols = `id, owner_id, territory_id, template_id, name, status, level,
	lat, lon, build_started_at, build_completed_at, created_at, updated_at, version`

func scanBuilding(row interface{ Scan(...any) error }) (building.Building, error) {
	var b building.Building
	var status, started, created, updated string
	var completed sql.NullString
	err := row.Scan(&b.ID, &b.OwnerID, &b.TerritoryID, &b.TemplateID, &b.Name,
		&status, &b.Level, &b.Location.Lat, &b.Location.Lon,
		&started, &completed, &created, &updated, &b.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return b, ErrNotFound
	}
	if err != nil {
		return b, err
	}
	b.Status = building.Status(status)
	b.BuildStartedAt = parseTime(started)
	if completed.Valid {
		t := parseTime(completed.String)
		b.BuildCompletedAt = &t
	}
	b.CreatedAt = parseTime(created)
	b.UpdatedAt = parseTime(updated)
	return b, nil
}

func (s *SQLiteStore) StartConstruction(ctx context.Context, p ConstructionParams) (building.Building, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return building.Building{}, err
	}
	defer tx.Rollback()

	var ownerID, ewkt string
	var active bool
	err = tx.QueryRowContext(ctx, `
		SELECT owner_id, boundary, is_active FROM territories WHERE id = ?
	`, p.TerritoryID).Scan(&ownerID, &ewkt, &active)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && ownerID != p.OwnerID) {
		return building.Building{}, ErrNotFound
	}
	if err != nil {
		return building.Building{}, err
	}
	if !active {
		return building.Building{}, ErrNotFound
	}

	boundary, err := geo.ParseWKTPolygon(ewkt)
	if err != nil {
		return building.Building{}, fmt.Errorf("territory %s has corrupt boundary: %w", p.TerritoryID, err)
	}
	if !geo.PointInPolygon(p.Location, boundary) {
		return building.Building{}, building.ErrPointOutsideTerritory
	}

	var count int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM buildings WHERE territory_id = ? AND template_id = ?
	`, p.TerritoryID, p.Template.ID).Scan(&count)
	if err != nil {
		return building.Building{}, err
	}
	if count >= p.Template.MaxPerTerritory {
		return building.Building{}, &building.TemplateLimitError{
			TemplateID: p.Template.ID,
			Limit:      p.Template.MaxPerTerritory,
		}
	}

	if err := debit(ctx, tx, p.OwnerID, p.Template.RequiredResources); err != nil {
		return building.Building{}, err
	}

	completed := p.Now.Add(time.Duration(p.Template.BuildTimeSeconds) * time.Second)
	b := building.Building{
		ID:               uuid.NewString(),
		OwnerID:          p.OwnerID,
		TerritoryID:      p.TerritoryID,
		TemplateID:       p.Template.ID,
		Name:             p.Name,
		Status:           building.StatusConstructing,
		Level:            1,
		Location:         p.Location,
		BuildStartedAt:   p.Now,
		BuildCompletedAt: &completed,
		CreatedAt:        p.Now,
		UpdatedAt:        p.Now,
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO buildings
			(id, owner_id, territory_id, template_id, name, status, level,
			 lat, lon, build_started_at, build_completed_at, created_at, updated_at, version)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?, ?, ?, ?, ?, 0)
	`, b.ID, b.OwnerID, b.TerritoryID, b.TemplateID, b.Name, string(b.Status),
		b.Location.Lat, b.Location.Lon, fmtTime(b.BuildStartedAt), fmtTime(completed),
		fmtTime(b.CreatedAt), fmtTime(b.UpdatedAt))
	if err != nil {
		return building.Building{}, err
	}
	return b, tx.Commit()
}

// settleTerritory materializes elapsed constructing/upgrading timers for a
// territory's buildings. Both statements are conditional on the deadline
// having passed, so repeated calls are no-ops.
func (s *SQLiteStore) settleTerritory(ctx context.Context, territoryID string, now time.Time) error {
	nowStr := fmtTime(now)
	_, err := s.db.ExecContext(ctx, `
		UPDATE buildings
		SET status = 'active', updated_at = ?, version = version + 1
		WHERE territory_id = ? AND status = 'constructing' AND build_completed_at <= ?
	`, nowStr, territoryID, nowStr)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE buildings
		SET status = 'active', level = level + 1, updated_at = ?, version = version + 1
		WHERE territory_id = ? AND status = 'upgrading' AND build_completed_at <= ?
	`, nowStr, territoryID, nowStr)
	return err
}

func (s *SQLiteStore) ListBuildings(ctx context.Context, territoryID string, now time.Time) ([]building.Building, error) {
	if err := s.settleTerritory(ctx, territoryID, now); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+buildingCols+` FROM buildings
		WHERE territory_id = ? ORDER BY created_at
	`, territoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []building.Building
	for rows.Next() {
		b, err := scanBuilding(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetBuilding(ctx context.Context, id string, now time.Time) (building.Building, error) {
	b, err := scanBuilding(s.db.QueryRowContext(ctx, `
		SELECT `+buildingCols+` FROM buildings WHERE id = ?
	`, id))
	if err != nil {
		return b, err
	}

	// Settle an elapsed timer before returning; a lost race just means
	// someone else settled it first.
	if st, _ := building.EffectiveStatus(b, now); st != b.Status {
		if err := s.settleTerritory(ctx, b.TerritoryID, now); err != nil {
			return b, err
		}
		return scanBuilding(s.db.QueryRowContext(ctx, `
			SELECT `+buildingCols+` FROM buildings WHERE id = ?
		`, id))
	}
	return b, nil
}

func (s *SQLiteStore) UpgradeBuilding(ctx context.Context, p UpgradeParams) (building.Building, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return building.Building{}, err
	}
	defer tx.Rollback()

	b, err := scanBuilding(tx.QueryRowContext(ctx, `
		SELECT `+buildingCols+` FROM buildings WHERE id = ?
	`, p.BuildingID))
	if err != nil {
		return building.Building{}, err
	}
	if b.OwnerID != p.OwnerID {
		return building.Building{}, ErrNotFound
	}

	// Apply an elapsed timer inside the transaction so "finished
	// constructing a second ago" can be upgraded immediately.
	if st, lvl := building.EffectiveStatus(b, p.Now); st != b.Status || lvl != b.Level {
		res, err := tx.ExecContext(ctx, `
			UPDATE buildings SET status = ?, level = ?, updated_at = ?, version = version + 1
			WHERE id = ? AND version = ?
		`, string(st), lvl, fmtTime(p.Now), b.ID, b.Version)
		if err != nil {
			return building.Building{}, err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return building.Building{}, building.ErrConcurrentModification
		}
		b.Status, b.Level, b.Version = st, lvl, b.Version+1
	}

	if b.Status != building.StatusActive {
		return building.Building{}, building.ErrInvalidStatus
	}
	if b.Level >= p.Template.MaxLevel {
		return building.Building{}, building.ErrMaxLevelReached
	}

	if err := debit(ctx, tx, p.OwnerID, p.Cost); err != nil {
		return building.Building{}, err
	}

	completed := p.Now.Add(p.Duration)
	res, err := tx.ExecContext(ctx, `
		UPDATE buildings
		SET status = 'upgrading', build_started_at = ?, build_completed_at = ?,
		    updated_at = ?, version = version + 1
		WHERE id = ? AND status = 'active' AND version = ?
	`, fmtTime(p.Now), fmtTime(completed), fmtTime(p.Now), b.ID, b.Version)
	if err != nil {
		return building.Building{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return building.Building{}, building.ErrConcurrentModification
	}

	b.Status = building.StatusUpgrading
	b.BuildStartedAt = p.Now
	b.BuildCompletedAt = &completed
	b.UpdatedAt = p.Now
	b.Version++
	return b, tx.Commit()
}

func (s *SQLiteStore) DemolishBuilding(ctx context.Context, id, ownerID string) error {
	// No resource refund on demolish.
	return s.ownerUpdate(ctx, `
		DELETE FROM buildings WHERE id = ? AND owner_id = ?
	`, id, ownerID)
}

// debit subtracts required quantities from the player's ledger inside tx.
// Each update is guarded by quantity >= needed; on any shortfall the whole
// transaction is rolled back by the caller and the exact shortfalls are
// reported.
func debit(ctx context.Context, tx *sql.Tx, playerID string, required map[string]int) error {
	names := make([]string, 0, len(required))
	for name := range required {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		need := required[name]
		if need == 0 {
			continue
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE inventories SET quantity = quantity - ?
			WHERE player_id = ? AND resource = ? AND quantity >= ?
		`, need, playerID, name, need)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			available, err := inventoryTx(ctx, tx, playerID)
			if err != nil {
				return err
			}
			check := building.CheckMaterials(required, available)
			return &building.InsufficientResourcesError{Missing: check.Missing}
		}
	}
	return nil
}

// --- Resource ledger ---

func inventoryTx(ctx context.Context, q querier, playerID string) (map[string]int, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT resource, quantity FROM inventories WHERE player_id = ?
	`, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	inv := map[string]int{}
	for rows.Next() {
		var name string
		var qty int
		if err := rows.Scan(&name, &qty); err != nil {
			return nil, err
		}
		inv[name] = qty
	}
	return inv, rows.Err()
}

func (s *SQLiteStore) Inventory(ctx context.Context, playerID string) (map[string]int, error) {
	return inventoryTx(ctx, s.db, playerID)
}

func (s *SQLiteStore) GrantResource(ctx context.Context, playerID, resource string, qty int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inventories (player_id, resource, quantity)
		VALUES (?, ?, ?)
		ON CONFLICT (player_id, resource) DO UPDATE SET quantity = quantity + excluded.quantity
	`, playerID, resource, qty)
	return err
}

// --- Admin ---

func (s *SQLiteStore) AdminByEmail(ctx context.Context, email string) (string, string, error) {
	var adminID, passwordHash string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, password_hash FROM admins WHERE email = ?
	`, email).Scan(&adminID, &passwordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", ErrNotFound
	}
	return adminID, passwordHash, err
}

func (s *SQLiteStore) CreateAdminSession(ctx context.Context, adminID string) (string, error) {
	var sessionID string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO admin_sessions (admin_id)
		VALUES (?)
		RETURNING id
	`, adminID).Scan(&sessionID)
	return sessionID, err
}

func (s *SQLiteStore) DeleteAdminSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM admin_sessions WHERE id = ?`, sessionID)
	return err
}

func (s *SQLiteStore) AdminFromSession(ctx context.Context, sessionID string) (adminSession, error) {
	var sess adminSession
	err := s.db.QueryRowContext(ctx, `
		SELECT a.id, a.email
		FROM admin_sessions s
		JOIN admins a ON a.id = s.admin_id
		WHERE s.id = ?
	`, sessionID).Scan(&sess.AdminID, &sess.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return adminSession{}, errNoAdminSession
	}
	return sess, err
}

func (s *SQLiteStore) ListPlayers(ctx context.Context) ([]Player, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, created_at FROM players ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Player
	for rows.Next() {
		var p Player
		var created string
		if err := rows.Scan(&p.ID, &p.Name, &created); err != nil {
			return nil, err
		}
		p.CreatedAt = parseTime(created)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListAllTerritories(ctx context.Context) ([]Territory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+territoryCols+` FROM territories ORDER BY completed_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Territory
	for rows.Next() {
		t, err := scanTerritory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
