package match

import "context"

// Repository exposes match persistence operations. Creation belongs to the
// external scheduling system; this engine only reads and updates.
type Repository interface {
	GetByID(ctx context.Context, id string) (Match, bool, error)
	Update(ctx context.Context, item Match) error
}
