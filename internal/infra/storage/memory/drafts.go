package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"hlopg/internal/domain/popup"
)

// DraftStore keeps popup drafts in process memory. Expired drafts are hidden from Get
// and removed by Purge, which the scheduler runs periodically.
type DraftStore struct {
	mu    sync.Mutex
	items map[popup.DraftID]popup.Draft
	clock func() time.Time
}

func NewDraftStore(clock func() time.Time) *DraftStore {
	if clock == nil {
		clock = time.Now
	}
	return &DraftStore{items: make(map[popup.DraftID]popup.Draft), clock: clock}
}

func (s *DraftStore) Save(ctx context.Context, draft *popup.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[draft.ID] = cloneDraft(*draft)
	return nil
}

func (s *DraftStore) Get(ctx context.Context, id popup.DraftID) (*popup.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.items[id]
	if !ok || d.Expired(s.clock()) {
		return nil, popup.ErrDraftNotFound
	}
	out := cloneDraft(d)
	return &out, nil
}

func (s *DraftStore) Take(ctx context.Context, id popup.DraftID) (*popup.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.items[id]
	if !ok {
		return nil, popup.ErrDraftNotFound
	}
	delete(s.items, id)
	if d.Expired(s.clock()) {
		return nil, popup.ErrDraftNotFound
	}
	return &d, nil
}

func (s *DraftStore) Delete(ctx context.Context, id popup.DraftID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

func (s *DraftStore) Purge(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, d := range s.items {
		if d.Expired(now) {
			delete(s.items, id)
			removed++
		}
	}
	return removed
}

func (s *DraftStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// cloneDraft copies every reference field so callers cannot mutate stored drafts.
func cloneDraft(d popup.Draft) popup.Draft {
	d.Listing.Sharing = maps.Clone(d.Listing.Sharing)
	d.Listing.Amenities = maps.Clone(d.Listing.Amenities)
	d.Listing.Images = slices.Clone(d.Listing.Images)
	d.Listing.Rules = slices.Clone(d.Listing.Rules)
	if d.State.Tier != nil {
		tier := *d.State.Tier
		d.State.Tier = &tier
	}
	if d.State.MoveIn != nil {
		moveIn := *d.State.MoveIn
		d.State.MoveIn = &moveIn
	}
	return d
}

var _ popup.DraftStore = (*DraftStore)(nil)
