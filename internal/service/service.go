package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/rt2013G/hexa-bot/internal/storage"
)

// Store is the durable side of the score ledger.
type Store interface {
	InsertGameScores(ctx context.Context, startedAt time.Time, rows []storage.ScoreRow) error
	Rankings(ctx context.Context, limit int) ([]storage.RankedUser, error)
	UpsertUser(ctx context.Context, id int64, username, firstName string) error
}

// Cache is the invalidatable rankings view.
type Cache interface {
	Get(ctx context.Context, limit int) ([]storage.RankedUser, bool)
	Set(ctx context.Context, limit int, ranked []storage.RankedUser)
	Invalidate(ctx context.Context)
}

// GameService is the score ledger: it turns a finished round's in-memory
// score map into durable rows and serves the aggregate rankings view.
type GameService struct {
	store Store
	cache Cache
	log   zerolog.Logger
}

func New(store Store, cache Cache, logger zerolog.Logger) *GameService {
	return &GameService{store: store, cache: cache, log: logger}
}

// Commit appends one row per user with a strictly positive score, keyed by
// the round's start time, then invalidates the cached rankings. A round in
// which nobody scored writes nothing.
func (g *GameService) Commit(ctx context.Context, startedAt time.Time, scores map[int64]int) error {
	rows := make([]storage.ScoreRow, 0, len(scores))
	for userID, score := range scores {
		if score <= 0 {
			continue
		}
		rows = append(rows, storage.ScoreRow{UserID: userID, Score: score})
	}
	if len(rows) == 0 {
		return nil
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].UserID < rows[j].UserID })

	if err := g.store.InsertGameScores(ctx, startedAt, rows); err != nil {
		return fmt.Errorf("failed to commit game scores: %w", err)
	}
	g.cache.Invalidate(ctx)
	g.log.Info().Time("started_at", startedAt).Int("rows", len(rows)).Msg("round scores committed")
	return nil
}

// Rankings returns the top users by summed score, reading through the cache.
func (g *GameService) Rankings(ctx context.Context, limit int) ([]storage.RankedUser, error) {
	if ranked, ok := g.cache.Get(ctx, limit); ok {
		return ranked, nil
	}
	ranked, err := g.store.Rankings(ctx, limit)
	if err != nil {
		return nil, err
	}
	g.cache.Set(ctx, limit, ranked)
	return ranked, nil
}

// RegisterPlayer keeps the users table fresh so rankings can show names.
func (g *GameService) RegisterPlayer(ctx context.Context, id int64, username, firstName string) error {
	return g.store.UpsertUser(ctx, id, username, firstName)
}
