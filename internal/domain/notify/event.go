package notify

import "context"

// Table is the closed set of record kinds that emit change events. New
// kinds require a new constant; there is no dynamic table-name dispatch.
type Table string

const (
	TableMatches Table = "matches"
	TableLineups Table = "match_lineups"
	TableGames   Table = "match_games"
)

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Event announces that rows of one table changed for one match.
// Subscribers refetch the affected table wholesale; events carry no deltas.
type Event struct {
	Table   Table
	Op      Op
	MatchID string
	// ActorTeamID is the team whose client performed the write, when known.
	// Used only to suppress self-notification.
	ActorTeamID string
}

// Broker fans change events out to the per-match subscribers.
type Broker interface {
	Publish(ctx context.Context, event Event)
	// Subscribe returns a receive channel for one match plus a cancel
	// function. Slow subscribers may miss events; a missed event is safe
	// because consumers refetch full state on every event.
	Subscribe(matchID string) (<-chan Event, func())
}
