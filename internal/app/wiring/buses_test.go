package wiring

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hlopg/internal/app/commands"
	"hlopg/internal/app/dto"
	bookingapp "hlopg/internal/app/handlers/booking"
	hostelsapp "hlopg/internal/app/handlers/hostels"
	popupapp "hlopg/internal/app/handlers/popup"
	"hlopg/internal/app/middleware"
	"hlopg/internal/app/queries"
	domainhostels "hlopg/internal/domain/hostels"
	domainpopup "hlopg/internal/domain/popup"
	"hlopg/internal/domain/user"
	"hlopg/internal/infra/storage/memory"
	"hlopg/internal/infra/validation"
)

var ist = time.FixedZone("IST", 5*3600+1800)

type commandCounter struct {
	mu   sync.Mutex
	keys []string
}

func (c *commandCounter) ObserveCommand(key string, _ time.Duration, _ error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = append(c.keys, key)
}

type fixture struct {
	buses    Buses
	outbox   *memory.Outbox
	drafts   *memory.DraftStore
	observed *commandCounter
}

// slowDrafts widens the gap between reading a draft and claiming it.
type slowDrafts struct {
	*memory.DraftStore
}

func (s slowDrafts) Get(ctx context.Context, id domainpopup.DraftID) (*domainpopup.Draft, error) {
	time.Sleep(5 * time.Millisecond)
	return s.DraftStore.Get(ctx, id)
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	return newFixtureWith(t, func(d *memory.DraftStore) domainpopup.DraftStore { return d })
}

func newFixtureWith(t *testing.T, wrap func(*memory.DraftStore) domainpopup.DraftStore) fixture {
	t.Helper()
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, ist)
	clock := func() time.Time { return now }

	hostelsRepo := memory.NewHostelRepository()
	h, err := domainhostels.NewHostel(domainhostels.CreateParams{
		ID:      "h-1",
		Name:    "Green Nest",
		Address: "Madhapur",
		City:    "Hyderabad",
		Area:    "Madhapur",
		PGType:  "women",
		Sharing: map[string]int64{"Single": 9000, "Double": 6000},
		Deposit: 5000,
		Now:     now,
	})
	require.NoError(t, err)
	require.NoError(t, hostelsRepo.Save(context.Background(), h))

	drafts := memory.NewDraftStore(clock)
	box := memory.NewOutbox(nil)
	observed := &commandCounter{}
	buses := NewBuses(Params{
		UoWFactory: memory.Factory{
			HostelsRepo:   hostelsRepo,
			BookingsRepo:  memory.NewBookingRepository(),
			ReviewsRepo:   memory.NewReviewRepository(),
			FoodMenusRepo: memory.NewFoodMenuRepository(),
		},
		Drafts:      wrap(drafts),
		DraftTTL:    30 * time.Minute,
		Location:    ist,
		Clock:       clock,
		Outbox:      box,
		Idempotency: memory.NewIdempotencyStore(time.Hour, clock),
		Validator:   validation.New(),
		Commands:    observed,
	})
	return fixture{buses: buses, outbox: box, drafts: drafts, observed: observed}
}

func (f fixture) update(t *testing.T, cmd popupapp.UpdateDraftCommand) *dto.DraftView {
	t.Helper()
	view, err := commands.Dispatch[popupapp.UpdateDraftCommand, *dto.DraftView](context.Background(), f.buses.Commands, cmd)
	require.NoError(t, err)
	return view
}

func TestBuses_PopupToBookingFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := commands.Dispatch[popupapp.OpenDraftCommand, *dto.DraftView](ctx, f.buses.Commands, popupapp.OpenDraftCommand{HostelID: "h-1"})
	require.NoError(t, err)
	assert.Equal(t, "2026-03-10", view.Window.Min)
	assert.Equal(t, "2026-05-10", view.Window.Max)
	assert.False(t, view.CanProceed)

	id := view.DraftID
	f.update(t, popupapp.UpdateDraftCommand{DraftID: id, Op: popupapp.OpSelectTier, Label: "Double"})
	f.update(t, popupapp.UpdateDraftCommand{DraftID: id, Op: popupapp.OpMoveIn, Date: "2026-04-01"})
	view = f.update(t, popupapp.UpdateDraftCommand{DraftID: id, Op: popupapp.OpAcceptTerms, Accepted: true})
	require.True(t, view.CanProceed)
	assert.Equal(t, int64(11000), view.Totals.Total)

	cmd := popupapp.ContinueDraftCommand{DraftID: id, StudentID: "stu-1", Actor: user.RoleStudent, IdempotencyKeyV: "k-1"}
	res, err := commands.Dispatch[popupapp.ContinueDraftCommand, *popupapp.ContinueDraftResult](ctx, f.buses.Commands, cmd)
	require.NoError(t, err)
	assert.Equal(t, "AWAITING_PAYMENT", res.Status)
	assert.Equal(t, int64(11000), res.Total.Total)

	// The draft is gone, so only the idempotency record can answer a retry.
	replay, err := commands.Dispatch[popupapp.ContinueDraftCommand, *popupapp.ContinueDraftResult](ctx, f.buses.Commands, cmd)
	require.NoError(t, err)
	assert.Equal(t, res.BookingID, replay.BookingID)

	published := f.outbox.Published()
	require.Len(t, published, 1)
	assert.Equal(t, "booking.requested", published[0].Name)

	list, err := queries.Ask[bookingapp.ListStudentBookingsQuery, dto.BookingCollection](ctx, f.buses.Queries, bookingapp.ListStudentBookingsQuery{StudentID: "stu-1"})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Green Nest", list.Items[0].Hostel.Name)
	assert.Equal(t, "2026-04-01", list.Items[0].MoveIn)

	cancelled, err := commands.Dispatch[bookingapp.CancelBookingCommand, *dto.BookingSummary](ctx, f.buses.Commands, bookingapp.CancelBookingCommand{
		BookingID: res.BookingID,
		StudentID: "stu-1",
		Reason:    "plans changed",
		Actor:     user.RoleStudent,
	})
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", cancelled.Status)
	assert.Len(t, f.outbox.Published(), 2)
	assert.Contains(t, f.observed.keys, "popup.drafts.continue")
}

func (f fixture) readyDraft(t *testing.T) string {
	t.Helper()
	view, err := commands.Dispatch[popupapp.OpenDraftCommand, *dto.DraftView](context.Background(), f.buses.Commands, popupapp.OpenDraftCommand{HostelID: "h-1"})
	require.NoError(t, err)
	f.update(t, popupapp.UpdateDraftCommand{DraftID: view.DraftID, Op: popupapp.OpSelectTier, Label: "Single"})
	f.update(t, popupapp.UpdateDraftCommand{DraftID: view.DraftID, Op: popupapp.OpMoveIn, Date: "2026-04-01"})
	view = f.update(t, popupapp.UpdateDraftCommand{DraftID: view.DraftID, Op: popupapp.OpAcceptTerms, Accepted: true})
	require.True(t, view.CanProceed)
	return view.DraftID
}

// continueConcurrently fires one continue per key at once and returns the booking ids.
func (f fixture) continueConcurrently(t *testing.T, draftID string, keys []string) []string {
	t.Helper()
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids []string
	)
	start := make(chan struct{})
	for _, key := range keys {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			<-start
			res, err := commands.Dispatch[popupapp.ContinueDraftCommand, *popupapp.ContinueDraftResult](context.Background(), f.buses.Commands, popupapp.ContinueDraftCommand{
				DraftID:         draftID,
				StudentID:       "stu-1",
				Actor:           user.RoleStudent,
				IdempotencyKeyV: key,
			})
			if err != nil {
				assert.True(t, errors.Is(err, middleware.ErrRequestInFlight) || errors.Is(err, domainpopup.ErrDraftNotFound), "unexpected error: %v", err)
				return
			}
			mu.Lock()
			ids = append(ids, res.BookingID)
			mu.Unlock()
		}(key)
	}
	close(start)
	wg.Wait()
	return ids
}

func (f fixture) studentBookings(t *testing.T) []dto.BookingSummary {
	t.Helper()
	list, err := queries.Ask[bookingapp.ListStudentBookingsQuery, dto.BookingCollection](context.Background(), f.buses.Queries, bookingapp.ListStudentBookingsQuery{StudentID: "stu-1"})
	require.NoError(t, err)
	return list.Items
}

func TestBuses_ConcurrentContinueSameKeyBooksOnce(t *testing.T) {
	f := newFixtureWith(t, func(d *memory.DraftStore) domainpopup.DraftStore { return slowDrafts{d} })
	id := f.readyDraft(t)

	keys := make([]string, 8)
	for i := range keys {
		keys[i] = "same-key"
	}
	ids := f.continueConcurrently(t, id, keys)

	require.NotEmpty(t, ids)
	for _, got := range ids {
		assert.Equal(t, ids[0], got)
	}
	assert.Len(t, f.studentBookings(t), 1)
	assert.Len(t, f.outbox.Published(), 1)
	assert.Equal(t, 0, f.drafts.Len())
}

func TestBuses_ConcurrentContinueDistinctKeysBooksOnce(t *testing.T) {
	f := newFixtureWith(t, func(d *memory.DraftStore) domainpopup.DraftStore { return slowDrafts{d} })
	id := f.readyDraft(t)

	ids := f.continueConcurrently(t, id, []string{"k-1", "k-2", "k-3", "k-4", "k-5", "k-6", "k-7", "k-8"})

	assert.Len(t, ids, 1)
	assert.Len(t, f.studentBookings(t), 1)
	assert.Len(t, f.outbox.Published(), 1)
}

func TestBuses_ContinueNotReadyKeepsDraft(t *testing.T) {
	f := newFixture(t)
	view, err := commands.Dispatch[popupapp.OpenDraftCommand, *dto.DraftView](context.Background(), f.buses.Commands, popupapp.OpenDraftCommand{HostelID: "h-1"})
	require.NoError(t, err)

	_, err = commands.Dispatch[popupapp.ContinueDraftCommand, *popupapp.ContinueDraftResult](context.Background(), f.buses.Commands, popupapp.ContinueDraftCommand{
		DraftID:   view.DraftID,
		StudentID: "stu-1",
		Actor:     user.RoleStudent,
	})
	assert.ErrorIs(t, err, domainpopup.ErrNotReady)
	assert.Equal(t, 1, f.drafts.Len())
}

func TestBuses_ContinueRejectsOwnerRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := commands.Dispatch[popupapp.OpenDraftCommand, *dto.DraftView](ctx, f.buses.Commands, popupapp.OpenDraftCommand{HostelID: "h-1"})
	require.NoError(t, err)

	_, err = commands.Dispatch[popupapp.ContinueDraftCommand, *popupapp.ContinueDraftResult](ctx, f.buses.Commands, popupapp.ContinueDraftCommand{
		DraftID:   view.DraftID,
		StudentID: "owner-1",
		Actor:     user.RoleOwner,
	})
	assert.ErrorIs(t, err, middleware.ErrForbidden)
}

func TestBuses_ValidationRunsBeforeHandlers(t *testing.T) {
	f := newFixture(t)

	_, err := commands.Dispatch[popupapp.OpenDraftCommand, *dto.DraftView](context.Background(), f.buses.Commands, popupapp.OpenDraftCommand{})
	assert.ErrorIs(t, err, validation.ErrInvalid)
	assert.Equal(t, 0, f.drafts.Len())

	_, err = queries.Ask[hostelsapp.CityHostelsQuery, dto.CityHostels](context.Background(), f.buses.Queries, hostelsapp.CityHostelsQuery{})
	assert.ErrorIs(t, err, validation.ErrInvalid)
}

func TestBuses_UnknownHostel(t *testing.T) {
	f := newFixture(t)

	_, err := commands.Dispatch[popupapp.OpenDraftCommand, *dto.DraftView](context.Background(), f.buses.Commands, popupapp.OpenDraftCommand{HostelID: "nope"})
	assert.True(t, errors.Is(err, domainhostels.ErrNotFound))
}

func TestBuses_CityQueryFiltersByArea(t *testing.T) {
	f := newFixture(t)

	out, err := queries.Ask[hostelsapp.CityHostelsQuery, dto.CityHostels](context.Background(), f.buses.Queries, hostelsapp.CityHostelsQuery{City: "hyderabad", Area: "Kondapur"})
	require.NoError(t, err)
	assert.Empty(t, out.Items)
	assert.Contains(t, out.Filters.Areas, "Madhapur")
}
