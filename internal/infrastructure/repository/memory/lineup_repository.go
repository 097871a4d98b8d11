package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/rackline/matchplay/internal/domain/lineup"
)

type LineupRepository struct {
	mu    sync.RWMutex
	items map[string]lineup.Lineup
}

func NewLineupRepository(lineups []lineup.Lineup) *LineupRepository {
	items := make(map[string]lineup.Lineup, len(lineups))
	for _, l := range lineups {
		items[lineupKey(l.MatchID, l.TeamID)] = l
	}

	return &LineupRepository{items: items}
}

func (r *LineupRepository) GetByMatchAndTeam(_ context.Context, matchID, teamID string) (lineup.Lineup, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.items[lineupKey(matchID, teamID)]
	if !ok {
		return lineup.Lineup{}, false, nil
	}

	return l, true, nil
}

func (r *LineupRepository) ListByMatch(_ context.Context, matchID string) ([]lineup.Lineup, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]lineup.Lineup, 0, 2)
	for _, l := range r.items {
		if l.MatchID == matchID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TeamID < out[j].TeamID })

	return out, nil
}

func (r *LineupRepository) Upsert(_ context.Context, l lineup.Lineup) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[lineupKey(l.MatchID, l.TeamID)] = l

	return nil
}

func lineupKey(matchID, teamID string) string {
	return matchID + "|" + teamID
}
