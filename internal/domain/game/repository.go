package game

import (
	"context"
	"errors"
)

// ErrDuplicateLedger is returned by CreateAll when records for the same
// match and tiebreaker flag already exist. Callers treat it as "another
// client won the initialization race" and read the existing rows instead.
var ErrDuplicateLedger = errors.New("game ledger already populated")

// Repository exposes game record persistence operations.
type Repository interface {
	// CreateAll inserts a full ledger atomically. The store enforces a
	// unique constraint on (match_id, game_number, is_tiebreaker);
	// a conflicting insert fails wholesale with ErrDuplicateLedger.
	CreateAll(ctx context.Context, records []Record) error
	ListByMatch(ctx context.Context, matchID string) ([]Record, error)
	GetByNumber(ctx context.Context, matchID string, gameNumber int, tiebreaker bool) (Record, bool, error)
	Update(ctx context.Context, record Record) error
}
