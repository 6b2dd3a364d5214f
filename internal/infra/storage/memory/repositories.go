package memory

import (
	"context"
	"sort"
	"sync"

	domainbooking "hlopg/internal/domain/booking"
	domainfoodmenu "hlopg/internal/domain/foodmenu"
	domainhostels "hlopg/internal/domain/hostels"
	domainreviews "hlopg/internal/domain/reviews"
)

// HostelRepository keeps hostels in insertion order so city pages list them stably.
type HostelRepository struct {
	mu    sync.RWMutex
	items map[domainhostels.HostelID]*domainhostels.Hostel
	order []domainhostels.HostelID
}

func NewHostelRepository() *HostelRepository {
	return &HostelRepository{items: make(map[domainhostels.HostelID]*domainhostels.Hostel)}
}

func (r *HostelRepository) ByID(ctx context.Context, id domainhostels.HostelID) (*domainhostels.Hostel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.items[id]
	if !ok {
		return nil, domainhostels.ErrNotFound
	}
	return cloneHostel(h), nil
}

func (r *HostelRepository) Save(ctx context.Context, hostel *domainhostels.Hostel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[hostel.ID]; !ok {
		r.order = append(r.order, hostel.ID)
	}
	hostel.Version++
	r.items[hostel.ID] = cloneHostel(hostel)
	return nil
}

func (r *HostelRepository) Search(ctx context.Context, params domainhostels.SearchParams) ([]*domainhostels.Hostel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domainhostels.Hostel, 0, len(r.order))
	for _, id := range r.order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h := r.items[id]
		if params.Matches(h) {
			out = append(out, cloneHostel(h))
		}
	}
	return out, nil
}

func cloneHostel(h *domainhostels.Hostel) *domainhostels.Hostel {
	c := *h
	c.Sharing = make(map[string]int64, len(h.Sharing))
	for k, v := range h.Sharing {
		c.Sharing[k] = v
	}
	c.Amenities = make(map[string]bool, len(h.Amenities))
	for k, v := range h.Amenities {
		c.Amenities[k] = v
	}
	c.Rules = append([]string(nil), h.Rules...)
	c.Images = append([]string(nil), h.Images...)
	return &c
}

// BookingRepository is an in-memory implementation for demo purposes.
type BookingRepository struct {
	mu    sync.RWMutex
	items map[domainbooking.BookingID]*domainbooking.Booking
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{items: make(map[domainbooking.BookingID]*domainbooking.Booking)}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.items[id]
	if !ok {
		return nil, domainbooking.ErrBookingNotFound
	}
	return cloneBooking(b), nil
}

func (r *BookingRepository) Save(ctx context.Context, booking *domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	booking.Version++
	r.items[booking.ID] = cloneBooking(booking)
	return nil
}

// ListByStudent returns the newest bookings first.
func (r *BookingRepository) ListByStudent(ctx context.Context, studentID string) ([]*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domainbooking.Booking, 0)
	for _, b := range r.items {
		if b.StudentID == studentID {
			out = append(out, cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// cloneBooking drops pending events; they belong to the caller's copy.
func cloneBooking(b *domainbooking.Booking) *domainbooking.Booking {
	c := *b
	c.DiscardEvents()
	return &c
}

type ReviewRepository struct {
	mu    sync.RWMutex
	items map[domainhostels.HostelID][]*domainreviews.Review
}

func NewReviewRepository() *ReviewRepository {
	return &ReviewRepository{items: make(map[domainhostels.HostelID][]*domainreviews.Review)}
}

// ListByHostel returns the newest reviews first.
func (r *ReviewRepository) ListByHostel(ctx context.Context, hostelID domainhostels.HostelID, limit, offset int) ([]*domainreviews.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := r.items[hostelID]
	sorted := make([]*domainreviews.Review, len(all))
	copy(sorted, all)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.After(sorted[j].CreatedAt) })
	if offset >= len(sorted) {
		return []*domainreviews.Review{}, nil
	}
	end := len(sorted)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]*domainreviews.Review, 0, end-offset)
	for _, rv := range sorted[offset:end] {
		c := *rv
		c.DiscardEvents()
		out = append(out, &c)
	}
	return out, nil
}

func (r *ReviewRepository) Save(ctx context.Context, review *domainreviews.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *review
	c.DiscardEvents()
	list := r.items[review.HostelID]
	for i, existing := range list {
		if existing.ID == review.ID {
			list[i] = &c
			return nil
		}
	}
	r.items[review.HostelID] = append(list, &c)
	return nil
}

type FoodMenuRepository struct {
	mu    sync.RWMutex
	items map[domainhostels.HostelID]*domainfoodmenu.Menu
}

func NewFoodMenuRepository() *FoodMenuRepository {
	return &FoodMenuRepository{items: make(map[domainhostels.HostelID]*domainfoodmenu.Menu)}
}

func (r *FoodMenuRepository) ByHostel(ctx context.Context, hostelID domainhostels.HostelID) (*domainfoodmenu.Menu, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.items[hostelID]
	if !ok {
		return nil, domainfoodmenu.ErrNotFound
	}
	c := *m
	return &c, nil
}

func (r *FoodMenuRepository) Save(ctx context.Context, menu *domainfoodmenu.Menu) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *menu
	r.items[menu.HostelID] = &c
	return nil
}

var (
	_ domainhostels.Repository  = (*HostelRepository)(nil)
	_ domainbooking.Repository  = (*BookingRepository)(nil)
	_ domainreviews.Repository  = (*ReviewRepository)(nil)
	_ domainfoodmenu.Repository = (*FoodMenuRepository)(nil)
)
