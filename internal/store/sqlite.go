package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/MJE43/oligopoly-sim-go/internal/game"
	"github.com/MJE43/oligopoly-sim-go/internal/market"
)

// SQLiteDB implements the DB interface using SQLite.
type SQLiteDB struct {
	db *sql.DB
}

var _ DB = (*SQLiteDB)(nil)
var _ game.Store = (*SQLiteDB)(nil)

// NewSQLiteDB opens (or creates) the database at path.
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// Migrate runs database migrations. Safe to call on every start.
func (s *SQLiteDB) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS games (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			mode TEXT NOT NULL,
			firms INTEGER NOT NULL,
			rounds INTEGER NOT NULL,
			replications INTEGER NOT NULL,
			config_json TEXT NOT NULL,
			benchmarks_json TEXT NOT NULL,
			game_params_json TEXT,
			summary_json TEXT,
			last_error TEXT,
			created_at DATETIME NOT NULL,
			started_at DATETIME,
			completed_at DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS replications (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			game_id TEXT NOT NULL,
			replication INTEGER NOT NULL,
			summary_json TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			ended_at DATETIME NOT NULL,
			FOREIGN KEY (game_id) REFERENCES games(id)
		)`,
		`CREATE TABLE IF NOT EXISTS rounds (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			game_id TEXT NOT NULL,
			replication INTEGER NOT NULL,
			round INTEGER NOT NULL,
			result_json TEXT NOT NULL,
			FOREIGN KEY (game_id) REFERENCES games(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_games_created_at ON games(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_games_status ON games(status)`,
		`CREATE INDEX IF NOT EXISTS idx_replications_game ON replications(game_id, replication)`,
		`CREATE INDEX IF NOT EXISTS idx_rounds_game ON rounds(game_id, replication, round)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// SaveGame writes the whole game snapshot in one transaction. Re-saving the
// same game replaces its previous rows, so the store always reflects the
// latest snapshot.
func (s *SQLiteDB) SaveGame(ctx context.Context, st *game.State) error {
	configJSON, err := json.Marshal(st.Config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	benchJSON, err := json.Marshal(st.Benchmarks)
	if err != nil {
		return fmt.Errorf("marshal benchmarks: %w", err)
	}
	var gameParamsJSON []byte
	if st.GameParams != nil {
		if gameParamsJSON, err = json.Marshal(st.GameParams); err != nil {
			return fmt.Errorf("marshal game params: %w", err)
		}
	}
	var summaryJSON []byte
	if st.Summary != nil {
		if summaryJSON, err = json.Marshal(st.Summary); err != nil {
			return fmt.Errorf("marshal summary: %w", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM rounds WHERE game_id = ?`,
		`DELETE FROM replications WHERE game_id = ?`,
		`DELETE FROM games WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, st.ID); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO games (
		id, status, mode, firms, rounds, replications,
		config_json, benchmarks_json, game_params_json, summary_json,
		last_error, created_at, started_at, completed_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.ID, string(st.Status), string(st.Config.Mode), st.Config.Firms,
		st.Config.Rounds, st.Config.Replications,
		string(configJSON), string(benchJSON), nullable(gameParamsJSON), nullable(summaryJSON),
		st.LastError, st.CreatedAt, nullTime(st.StartedAt), nullTime(st.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("insert game: %w", err)
	}

	repStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO replications (game_id, replication, summary_json, started_at, ended_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer repStmt.Close()

	roundStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO rounds (game_id, replication, round, result_json) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer roundStmt.Close()

	for _, rep := range st.Replications {
		repSummaryJSON, err := json.Marshal(rep.Summary)
		if err != nil {
			return fmt.Errorf("marshal replication summary: %w", err)
		}
		if _, err := repStmt.ExecContext(ctx, st.ID, rep.Replication, string(repSummaryJSON), rep.StartedAt, rep.EndedAt); err != nil {
			return err
		}
		for _, r := range rep.Rounds {
			resultJSON, err := json.Marshal(r)
			if err != nil {
				return fmt.Errorf("marshal round result: %w", err)
			}
			if _, err := roundStmt.ExecContext(ctx, st.ID, rep.Replication, r.Round, string(resultJSON)); err != nil {
				return err
			}
		}
	}

	// An in-progress replication is persisted too, so an interrupted game
	// keeps what it played.
	for _, r := range st.Rounds {
		resultJSON, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal round result: %w", err)
		}
		if _, err := roundStmt.ExecContext(ctx, st.ID, st.CurrentReplication, r.Round, string(resultJSON)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetGame reconstructs a saved game snapshot.
func (s *SQLiteDB) GetGame(ctx context.Context, id string) (*game.State, error) {
	var (
		st             game.State
		status, mode   string
		firms, rounds  int
		replications   int
		configJSON     string
		benchJSON      string
		gameParamsJSON sql.NullString
		summaryJSON    sql.NullString
		lastError      sql.NullString
		startedAt      sql.NullTime
		completedAt    sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `SELECT
		id, status, mode, firms, rounds, replications,
		config_json, benchmarks_json, game_params_json, summary_json,
		last_error, created_at, started_at, completed_at
		FROM games WHERE id = ?`, id).Scan(
		&st.ID, &status, &mode, &firms, &rounds, &replications,
		&configJSON, &benchJSON, &gameParamsJSON, &summaryJSON,
		&lastError, &st.CreatedAt, &startedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	st.Status = game.Status(status)
	if err := json.Unmarshal([]byte(configJSON), &st.Config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := json.Unmarshal([]byte(benchJSON), &st.Benchmarks); err != nil {
		return nil, fmt.Errorf("unmarshal benchmarks: %w", err)
	}
	if gameParamsJSON.Valid && gameParamsJSON.String != "" {
		if err := json.Unmarshal([]byte(gameParamsJSON.String), &st.GameParams); err != nil {
			return nil, fmt.Errorf("unmarshal game params: %w", err)
		}
	}
	if summaryJSON.Valid && summaryJSON.String != "" {
		if err := json.Unmarshal([]byte(summaryJSON.String), &st.Summary); err != nil {
			return nil, fmt.Errorf("unmarshal summary: %w", err)
		}
	}
	if lastError.Valid {
		st.LastError = lastError.String
	}
	if startedAt.Valid {
		t := startedAt.Time
		st.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		st.CompletedAt = &t
	}

	roundsByRep, err := s.loadRounds(ctx, id)
	if err != nil {
		return nil, err
	}

	repRows, err := s.db.QueryContext(ctx,
		`SELECT replication, summary_json, started_at, ended_at FROM replications WHERE game_id = ? ORDER BY replication`, id)
	if err != nil {
		return nil, err
	}
	defer repRows.Close()

	for repRows.Next() {
		var rep game.ReplicationResult
		var repSummaryJSON string
		if err := repRows.Scan(&rep.Replication, &repSummaryJSON, &rep.StartedAt, &rep.EndedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(repSummaryJSON), &rep.Summary); err != nil {
			return nil, fmt.Errorf("unmarshal replication summary: %w", err)
		}
		rep.Rounds = roundsByRep[rep.Replication]
		delete(roundsByRep, rep.Replication)
		st.Replications = append(st.Replications, rep)
	}
	if err := repRows.Err(); err != nil {
		return nil, err
	}

	// Rounds left over belong to a replication that never finished.
	for rep, rs := range roundsByRep {
		st.CurrentReplication = rep
		st.Rounds = rs
	}

	return &st, nil
}

func (s *SQLiteDB) loadRounds(ctx context.Context, gameID string) (map[int][]market.RoundResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT replication, result_json FROM rounds WHERE game_id = ? ORDER BY replication, round`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int][]market.RoundResult{}
	for rows.Next() {
		var rep int
		var resultJSON string
		if err := rows.Scan(&rep, &resultJSON); err != nil {
			return nil, err
		}
		var r market.RoundResult
		if err := json.Unmarshal([]byte(resultJSON), &r); err != nil {
			return nil, fmt.Errorf("unmarshal round result: %w", err)
		}
		out[rep] = append(out[rep], r)
	}
	return out, rows.Err()
}

// ListGames returns game summaries, newest first.
func (s *SQLiteDB) ListGames(ctx context.Context, q GamesQuery) (*GamesList, error) {
	whereClause := ""
	args := []interface{}{}
	if q.Status != "" {
		whereClause = "WHERE status = ?"
		args = append(args, q.Status)
	}

	var totalCount int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM games "+whereClause, args...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("failed to get total count: %w", err)
	}

	if q.PerPage <= 0 {
		q.PerPage = 50
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	totalPages := (totalCount + q.PerPage - 1) / q.PerPage
	offset := (q.Page - 1) * q.PerPage

	query := `SELECT id, status, mode, firms, rounds, replications, last_error, created_at, completed_at
		FROM games ` + whereClause + ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, q.PerPage, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query games: %w", err)
	}
	defer rows.Close()

	var games []GameSummary
	for rows.Next() {
		var g GameSummary
		var status string
		var lastError sql.NullString
		var completedAt sql.NullTime
		if err := rows.Scan(&g.ID, &status, &g.Mode, &g.Firms, &g.Rounds, &g.Replications, &lastError, &g.CreatedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		g.Status = game.Status(status)
		if lastError.Valid {
			g.LastError = lastError.String
		}
		if completedAt.Valid {
			t := completedAt.Time
			g.CompletedAt = &t
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating games: %w", err)
	}

	return &GamesList{
		Games:      games,
		TotalCount: totalCount,
		Page:       q.Page,
		PerPage:    q.PerPage,
		TotalPages: totalPages,
	}, nil
}

// DeleteGame removes a game and its rounds.
func (s *SQLiteDB) DeleteGame(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM rounds WHERE game_id = ?`,
		`DELETE FROM replications WHERE game_id = ?`,
		`DELETE FROM games WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func nullable(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
