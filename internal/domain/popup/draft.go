package popup

import (
	"context"
	"errors"
	"time"
)

var ErrDraftNotFound = errors.New("popup: draft not found or expired")

type DraftID string

// Draft is one open popup kept between HTTP calls.
type Draft struct {
	ID        DraftID   `json:"id"`
	Listing   Listing   `json:"listing"`
	State     State     `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Selection rebuilds the engine over the stored state.
func (d *Draft) Selection() (*Selection, error) {
	return Restore(d.Listing, d.State)
}

func (d *Draft) Expired(at time.Time) bool {
	return !d.ExpiresAt.After(at)
}

// DraftStore keeps drafts until they expire. Implementations must return ErrDraftNotFound
// for missing or expired drafts.
type DraftStore interface {
	Save(ctx context.Context, draft *Draft) error
	Get(ctx context.Context, id DraftID) (*Draft, error)
	// Take removes and returns the draft in one atomic step. At most one of any
	// concurrent callers receives it; the rest get ErrDraftNotFound.
	Take(ctx context.Context, id DraftID) (*Draft, error)
	Delete(ctx context.Context, id DraftID) error
}
