// internal/results/store.go
//
// Finished-duel results backed by SQLite.
// Responsibilities:
//   - Insert one row per finished game (idempotent on game id).
//   - Daily leaderboard: wins per player, ties broken by coups fourrés and
//     the fastest win.
//   - Most recent results for the lobby.

package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// Result is one finished duel.
type Result struct {
	GameID         string        `json:"gameId"`
	Date           string        `json:"date"`
	Winner         string        `json:"winner"`
	Loser          string        `json:"loser"`
	WinnerDistance int           `json:"winnerDistance"`
	LoserDistance  int           `json:"loserDistance"`
	CoupsFourres   int           `json:"coupsFourres"`
	Duration       time.Duration `json:"-"`
}

// MarshalJSON reports the duration in whole milliseconds.
func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	return json.Marshal(struct {
		plain
		DurationMs int64 `json:"durationMs"`
	}{plain(r), r.Duration.Milliseconds()})
}

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Store reads and writes the results table.
type Store struct{ db *sql.DB }

// NewStore wraps a migrated database.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Insert records a result. A second insert for the same game is ignored.
func (s *Store) Insert(ctx context.Context, r Result) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO results
			(game_id, date, winner, loser, winner_distance, loser_distance, coups_fourres, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.GameID, r.Date, r.Winner, r.Loser, r.WinnerDistance, r.LoserDistance,
		r.CoupsFourres, r.Duration.Milliseconds(),
	)
	return err
}

// LBRow is one leaderboard line. BestMs is the player's fastest win.
type LBRow struct {
	Name         string `json:"name"`
	Wins         int    `json:"wins"`
	CoupsFourres int    `json:"coupsFourres"`
	BestMs       int64  `json:"bestMs"`
}

// Leaderboard ranks winners for a date: most wins, then most coups
// fourrés, then the fastest win.
func (s *Store) Leaderboard(ctx context.Context, date string, limit int) ([]LBRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT winner, COUNT(1) AS wins, SUM(coups_fourres), MIN(duration_ms)
		FROM results
		WHERE date=?
		GROUP BY winner
		ORDER BY wins DESC, SUM(coups_fourres) DESC, MIN(duration_ms) ASC, winner ASC
		LIMIT ?`, date, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]LBRow, 0, limit)
	for rows.Next() {
		var r LBRow
		if err := rows.Scan(&r.Name, &r.Wins, &r.CoupsFourres, &r.BestMs); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Recent returns the latest results, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT game_id, date, winner, loser, winner_distance, loser_distance, coups_fourres, duration_ms
		FROM results
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var r Result
		var ms int64
		if err := rows.Scan(&r.GameID, &r.Date, &r.Winner, &r.Loser,
			&r.WinnerDistance, &r.LoserDistance, &r.CoupsFourres, &ms); err != nil {
			return nil, err
		}
		r.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, r)
	}
	return out, rows.Err()
}
