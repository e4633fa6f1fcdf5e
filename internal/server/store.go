package server

import (
	"context"
	"errors"
	"time"

	"github.com/earthlord-game/server/internal/building"
	"github.com/earthlord-game/server/internal/catalog"
	"github.com/earthlord-game/server/internal/geo"
)

var ErrNotFound = errors.New("not found")

// ErrTrackActive is returned when a player starts a recording session while
// one is already live.
var ErrTrackActive = errors.New("a tracking session is already active")

// Player is a registered account, identified by a bearer session token.
type Player struct {
	ID        string
	Name      string
	Token     string
	CreatedAt time.Time
}

// TrackSession is a live or finished path recording.
type TrackSession struct {
	ID        string
	PlayerID  string
	Status    string // recording | closed | abandoned
	StartedAt time.Time
	EndedAt   *time.Time
}

// Territory is a closed polygon claimed by one player.
type Territory struct {
	ID          string
	OwnerID     string
	Name        string
	Boundary    []geo.Point
	AreaM2      float64
	BBox        geo.BBox
	PointCount  int
	StartedAt   time.Time
	CompletedAt time.Time
	IsActive    bool
}

// ConstructionParams carries everything StartConstruction needs to gate and
// create a building atomically.
type ConstructionParams struct {
	OwnerID     string
	TerritoryID string
	Template    catalog.Template
	Name        string
	Location    geo.Point
	Now         time.Time
}

// UpgradeParams carries the cost schedule resolved by the caller; the store
// re-validates status, level, and the ledger inside the transaction.
type UpgradeParams struct {
	OwnerID    string
	BuildingID string
	Template   catalog.Template
	Cost       map[string]int
	Duration   time.Duration
	Now        time.Time
}

type Store interface {
	// Players.
	CreatePlayer(ctx context.Context, name string) (Player, error)
	PlayerFromToken(ctx context.Context, token string) (Player, error)

	// Tracking sessions. Points are checkpointed per fix so a session
	// survives a process restart.
	StartTrack(ctx context.Context, playerID string) (TrackSession, error)
	ActiveTrack(ctx context.Context, playerID string) (TrackSession, []geo.Point, error)
	AppendTrackPoint(ctx context.Context, sessionID string, p geo.Point) ([]geo.Point, error)
	AbandonTrack(ctx context.Context, playerID string) error
	// CloseTrackIntoTerritory marks the session closed and creates the
	// territory in one transaction.
	CloseTrackIntoTerritory(ctx context.Context, sessionID string, t Territory) (Territory, error)

	// Territories.
	ListTerritories(ctx context.Context, ownerID string) ([]Territory, error)
	GetTerritory(ctx context.Context, id string) (Territory, error)
	RenameTerritory(ctx context.Context, id, ownerID, name string) error
	DeactivateTerritory(ctx context.Context, id, ownerID string) error
	DeleteTerritory(ctx context.Context, id, ownerID string) error

	// Buildings. Reads settle elapsed timers opportunistically; writes are
	// atomic check-debit-transition transactions.
	StartConstruction(ctx context.Context, p ConstructionParams) (building.Building, error)
	ListBuildings(ctx context.Context, territoryID string, now time.Time) ([]building.Building, error)
	GetBuilding(ctx context.Context, id string, now time.Time) (building.Building, error)
	UpgradeBuilding(ctx context.Context, p UpgradeParams) (building.Building, error)
	DemolishBuilding(ctx context.Context, id, ownerID string) error

	// Resource ledger.
	Inventory(ctx context.Context, playerID string) (map[string]int, error)
	GrantResource(ctx context.Context, playerID, resource string, qty int) error

	// Admin accounts.
	AdminByEmail(ctx context.Context, email string) (adminID, passwordHash string, err error)
	CreateAdminSession(ctx context.Context, adminID string) (string, error)
	DeleteAdminSession(ctx context.Context, sessionID string) error
	AdminFromSession(ctx context.Context, sessionID string) (adminSession, error)
	ListPlayers(ctx context.Context) ([]Player, error)
	ListAllTerritories(ctx context.Context) ([]Territory, error)
}
