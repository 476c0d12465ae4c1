package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Storage struct {
	db *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*Storage, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	return &Storage{db: pool}, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Storage) Close() {
	s.db.Close()
}

// InitSchema creates the guess game tables when they do not exist yet.
func (s *Storage) InitSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users(
			id BIGINT PRIMARY KEY,
			username TEXT,
			first_name TEXT
		);
		CREATE TABLE IF NOT EXISTS guess_games(
			id SERIAL PRIMARY KEY,
			started_at TIMESTAMPTZ UNIQUE NOT NULL
		);
		CREATE TABLE IF NOT EXISTS guess_game_scores(
			user_id BIGINT NOT NULL,
			game_id INTEGER NOT NULL REFERENCES guess_games(id),
			score INTEGER NOT NULL,
			PRIMARY KEY (user_id, game_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}
	return nil
}

// UpsertUser records or refreshes a player's identity.
func (s *Storage) UpsertUser(ctx context.Context, id int64, username, firstName string) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO users (id, username, first_name) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username, first_name = EXCLUDED.first_name`,
		id, username, firstName)
	return err
}

// InsertGameScores writes one game row keyed by its start time plus one
// score row per user, all in a single transaction. Rows are never updated
// afterwards.
func (s *Storage) InsertGameScores(ctx context.Context, startedAt time.Time, rows []ScoreRow) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var gameID int
	err = tx.QueryRow(ctx,
		"INSERT INTO guess_games (started_at) VALUES ($1) RETURNING id",
		startedAt,
	).Scan(&gameID)
	if err != nil {
		return fmt.Errorf("failed to insert game: %w", err)
	}

	for _, r := range rows {
		_, err := tx.Exec(ctx,
			`INSERT INTO guess_game_scores (user_id, game_id, score) VALUES ($1, $2, $3)`,
			r.UserID, gameID, r.Score,
		)
		if err != nil {
			return fmt.Errorf("failed to insert score for user %d: %w", r.UserID, err)
		}
	}

	return tx.Commit(ctx)
}

// Rankings aggregates scores per user across all games, descending, ties
// broken by user id.
func (s *Storage) Rankings(ctx context.Context, limit int) ([]RankedUser, error) {
	rows, err := s.db.Query(ctx,
		`SELECT g.user_id, COALESCE(u.username, ''), COALESCE(u.first_name, ''), SUM(g.score) AS total
		 FROM guess_game_scores g
		 LEFT JOIN users u ON u.id = g.user_id
		 GROUP BY g.user_id, u.username, u.first_name
		 ORDER BY total DESC, g.user_id ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ranked []RankedUser
	for rows.Next() {
		var r RankedUser
		if err := rows.Scan(&r.UserID, &r.Username, &r.FirstName, &r.Score); err != nil {
			return nil, err
		}
		ranked = append(ranked, r)
	}
	return ranked, rows.Err()
}
