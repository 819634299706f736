// Package store persists finished games for later inspection and export.
package store

import (
	"context"
	"time"

	"github.com/MJE43/oligopoly-sim-go/internal/game"
)

// DB is the database interface.
type DB interface {
	Close() error
	Migrate() error
	SaveGame(ctx context.Context, st *game.State) error
	GetGame(ctx context.Context, id string) (*game.State, error)
	ListGames(ctx context.Context, q GamesQuery) (*GamesList, error)
	DeleteGame(ctx context.Context, id string) error
}

// GamesQuery holds query parameters for listing games.
type GamesQuery struct {
	Status  string `json:"status,omitempty"`
	Page    int    `json:"page"`
	PerPage int    `json:"perPage"`
}

// GameSummary is the listing row: enough to identify a game without
// loading its full round history.
type GameSummary struct {
	ID           string      `json:"id"`
	Status       game.Status `json:"status"`
	Mode         string      `json:"mode"`
	Firms        int         `json:"firms"`
	Rounds       int         `json:"rounds"`
	Replications int         `json:"replications"`
	LastError    string      `json:"lastError,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
	CompletedAt  *time.Time  `json:"completedAt,omitempty"`
}

// GamesList is the paginated listing response.
type GamesList struct {
	Games      []GameSummary `json:"games"`
	TotalCount int           `json:"totalCount"`
	Page       int           `json:"page"`
	PerPage    int           `json:"perPage"`
	TotalPages int           `json:"totalPages"`
}
