package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rackline/matchplay/internal/domain/game"
)

type GameRepository struct {
	mu    sync.RWMutex
	items map[string]game.Record
}

func NewGameRepository() *GameRepository {
	return &GameRepository{items: make(map[string]game.Record)}
}

// CreateAll mimics the store's unique constraint on
// (match_id, game_number, is_tiebreaker): a single conflicting record
// rejects the whole batch.
func (r *GameRepository) CreateAll(_ context.Context, records []game.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range records {
		if _, ok := r.items[gameKey(rec.MatchID, rec.GameNumber, rec.IsTiebreaker)]; ok {
			return game.ErrDuplicateLedger
		}
	}
	for _, rec := range records {
		r.items[gameKey(rec.MatchID, rec.GameNumber, rec.IsTiebreaker)] = rec
	}

	return nil
}

func (r *GameRepository) ListByMatch(_ context.Context, matchID string) ([]game.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]game.Record, 0, 28)
	for _, rec := range r.items {
		if rec.MatchID == matchID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsTiebreaker != out[j].IsTiebreaker {
			return !out[i].IsTiebreaker
		}
		return out[i].GameNumber < out[j].GameNumber
	})

	return out, nil
}

func (r *GameRepository) GetByNumber(_ context.Context, matchID string, gameNumber int, tiebreaker bool) (game.Record, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.items[gameKey(matchID, gameNumber, tiebreaker)]
	if !ok {
		return game.Record{}, false, nil
	}

	return rec, true, nil
}

func (r *GameRepository) Update(_ context.Context, rec game.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := gameKey(rec.MatchID, rec.GameNumber, rec.IsTiebreaker)
	if _, ok := r.items[key]; !ok {
		return fmt.Errorf("game %d (tiebreaker=%t) does not exist for match %s", rec.GameNumber, rec.IsTiebreaker, rec.MatchID)
	}
	r.items[key] = rec

	return nil
}

func gameKey(matchID string, gameNumber int, tiebreaker bool) string {
	return fmt.Sprintf("%s|%d|%t", matchID, gameNumber, tiebreaker)
}
