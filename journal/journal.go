// Package journal keeps a local record of the moves this client submitted
// and how its games ended, in a SQLite file.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/domino14/kingme/board"
	"github.com/domino14/kingme/game"
	"github.com/domino14/kingme/move"
)

const schema = `
CREATE TABLE IF NOT EXISTS moves (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	game_id    INTEGER NOT NULL,
	color      TEXT NOT NULL,
	seq        TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS moves_game ON moves (game_id, id);
CREATE TABLE IF NOT EXISTS outcomes (
	game_id    INTEGER PRIMARY KEY,
	status     TEXT NOT NULL,
	winner     TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
`

type Journal struct {
	db *sql.DB
}

// Entry is one recorded move.
type Entry struct {
	GameID int
	Color  board.Color
	Seq    move.Sequence
	At     time.Time
}

// Open opens or creates the journal at path. ":memory:" gives a journal
// that lives as long as the process.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection: sqlite serializes writers anyway, and an in-memory
	// database exists per connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating journal schema: %w", err)
	}
	log.Debug().Str("path", path).Msg("journal-opened")
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) RecordMove(ctx context.Context, gameID int, color board.Color, seq move.Sequence) error {
	data, err := json.Marshal([]int(seq))
	if err != nil {
		return err
	}
	_, err = j.db.ExecContext(ctx,
		`INSERT INTO moves (game_id, color, seq, created_at) VALUES (?, ?, ?, ?)`,
		gameID, color.String(), string(data), time.Now().UnixMilli())
	return err
}

// RecordOutcome stores how a game ended. A later outcome for the same game
// replaces the earlier one.
func (j *Journal) RecordOutcome(ctx context.Context, gameID int, status game.Status, winner board.Color) error {
	w := ""
	if winner != board.NoColor {
		w = winner.String()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO outcomes (game_id, status, winner, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (game_id) DO UPDATE SET status = excluded.status,
		 winner = excluded.winner, created_at = excluded.created_at`,
		gameID, status.String(), w, time.Now().UnixMilli())
	return err
}

// Moves returns the moves recorded for gameID in the order they were sent.
func (j *Journal) Moves(ctx context.Context, gameID int) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT color, seq, created_at FROM moves WHERE game_id = ? ORDER BY id`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var color, seq string
		var at int64
		if err := rows.Scan(&color, &seq, &at); err != nil {
			return nil, err
		}
		c, err := board.ColorFromString(color)
		if err != nil {
			return nil, err
		}
		var ids []int
		if err := json.Unmarshal([]byte(seq), &ids); err != nil {
			return nil, fmt.Errorf("move %q: %w", seq, err)
		}
		entries = append(entries, Entry{
			GameID: gameID,
			Color:  c,
			Seq:    move.Sequence(ids),
			At:     time.UnixMilli(at),
		})
	}
	return entries, rows.Err()
}

// Outcome returns the recorded end of gameID; ok is false if none was
// recorded.
func (j *Journal) Outcome(ctx context.Context, gameID int) (status game.Status, winner board.Color, ok bool, err error) {
	var s, w string
	err = j.db.QueryRowContext(ctx,
		`SELECT status, winner FROM outcomes WHERE game_id = ?`, gameID).Scan(&s, &w)
	if err == sql.ErrNoRows {
		return game.StatusUnknown, board.NoColor, false, nil
	}
	if err != nil {
		return game.StatusUnknown, board.NoColor, false, err
	}
	if status, err = game.StatusFromString(s); err != nil {
		return game.StatusUnknown, board.NoColor, false, err
	}
	if winner, err = board.ColorFromString(w); err != nil {
		return game.StatusUnknown, board.NoColor, false, err
	}
	return status, winner, true, nil
}
