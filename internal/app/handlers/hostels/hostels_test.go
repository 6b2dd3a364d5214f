package hostels

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hlopg/internal/app/outbox"
	"hlopg/internal/app/uow"
	domainfoodmenu "hlopg/internal/domain/foodmenu"
	domainhostels "hlopg/internal/domain/hostels"
	domainreviews "hlopg/internal/domain/reviews"
	"hlopg/internal/domain/user"
	"hlopg/internal/infra/storage/memory"
)

var testNow = time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

type countingCache struct {
	items  map[string][]*domainhostels.Hostel
	gets   int
	getErr error
}

func (c *countingCache) Get(_ context.Context, city string) ([]*domainhostels.Hostel, bool, error) {
	c.gets++
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	items, ok := c.items[city]
	return items, ok, nil
}

func (c *countingCache) Set(_ context.Context, city string, items []*domainhostels.Hostel) error {
	c.items[city] = items
	return nil
}

func seed(t *testing.T) (memory.Factory, *memory.FoodMenuRepository) {
	t.Helper()
	hostels := memory.NewHostelRepository()
	for i, fx := range []struct{ area, pgType string }{
		{"Madhapur", "men"},
		{"Kondapur", "women"},
		{"Madhapur", "co-living"},
	} {
		h, err := domainhostels.NewHostel(domainhostels.CreateParams{
			ID:      domainhostels.HostelID(fmt.Sprintf("h-%d", i+1)),
			Name:    fmt.Sprintf("PG %d", i+1),
			City:    "hyderabad",
			Area:    fx.area,
			PGType:  fx.pgType,
			Sharing: map[string]int64{"Single": int64(8000 + i*500)},
			Now:     testNow,
		})
		require.NoError(t, err)
		require.NoError(t, hostels.Save(context.Background(), h))
	}
	menus := memory.NewFoodMenuRepository()
	return memory.Factory{
		HostelsRepo:   hostels,
		BookingsRepo:  memory.NewBookingRepository(),
		ReviewsRepo:   memory.NewReviewRepository(),
		FoodMenusRepo: menus,
	}, menus
}

func TestCityHostels_FiltersAndCaches(t *testing.T) {
	factory, _ := seed(t)
	cache := &countingCache{items: map[string][]*domainhostels.Hostel{}}
	h := &CityHostelsHandler{UoWFactory: factory, Cache: cache}

	out, err := h.Handle(context.Background(), CityHostelsQuery{City: " Hyderabad ", Area: "madhapur"})
	require.NoError(t, err)
	assert.Equal(t, "hyderabad", out.City)
	require.Len(t, out.Items, 2)
	assert.Equal(t, "h-1", out.Items[0].ID)
	assert.Equal(t, []string{"All", "Madhapur", "Kondapur"}, out.Filters.Areas)
	assert.Len(t, cache.items["hyderabad"], 3)

	out, err = h.Handle(context.Background(), CityHostelsQuery{City: "hyderabad", Gender: "Women's PG"})
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "h-2", out.Items[0].ID)
	assert.Equal(t, 2, cache.gets)
}

func TestCityHostels_CacheErrorFallsBackToRepository(t *testing.T) {
	factory, _ := seed(t)
	cache := &countingCache{items: map[string][]*domainhostels.Hostel{}, getErr: errors.New("redis down")}
	h := &CityHostelsHandler{UoWFactory: factory, Cache: cache}

	out, err := h.Handle(context.Background(), CityHostelsQuery{City: "hyderabad"})
	require.NoError(t, err)
	assert.Len(t, out.Items, 3)
}

func TestCityHostels_UnknownCity(t *testing.T) {
	factory, _ := seed(t)
	_, err := (&CityHostelsHandler{UoWFactory: factory}).Handle(context.Background(), CityHostelsQuery{City: "pune"})
	assert.ErrorIs(t, err, domainhostels.ErrUnknownCity)
}

func TestHostelDetail(t *testing.T) {
	factory, _ := seed(t)
	h := &HostelDetailHandler{UoWFactory: factory}

	out, err := h.Handle(context.Background(), HostelDetailQuery{HostelID: "h-2"})
	require.NoError(t, err)
	assert.Equal(t, "Women's PG", out.PGType)
	assert.Equal(t, int64(8500), out.Price)

	_, err = h.Handle(context.Background(), HostelDetailQuery{HostelID: "h-9"})
	assert.ErrorIs(t, err, domainhostels.ErrNotFound)
}

func TestFoodMenu_EmptyWeekWhenUnpublished(t *testing.T) {
	factory, menus := seed(t)
	h := &FoodMenuHandler{UoWFactory: factory}

	out, err := h.Handle(context.Background(), FoodMenuQuery{HostelID: "h-1"})
	require.NoError(t, err)
	assert.Empty(t, out.Days)

	require.NoError(t, menus.Save(context.Background(), &domainfoodmenu.Menu{
		HostelID:  "h-1",
		Breakfast: map[string]string{"monday": "Idli"},
		Dinner:    map[string]string{"Friday": "Biryani"},
	}))
	out, err = h.Handle(context.Background(), FoodMenuQuery{HostelID: "h-1"})
	require.NoError(t, err)
	require.Len(t, out.Days, 2)
	assert.Equal(t, "Monday", out.Days[0].Day)
	assert.Equal(t, domainfoodmenu.Missing, out.Days[0].Lunch)
	assert.Equal(t, "Biryani", out.Days[1].Dinner)
}

func TestReviews_SubmitAndList(t *testing.T) {
	factory, _ := seed(t)
	box := memory.NewOutbox(nil)
	tick := testNow
	submit := &SubmitReviewHandler{Outbox: box, Encoder: outbox.JSONEventEncoder{}, Clock: func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}}

	unit, err := factory.Begin(context.Background(), uow.TxOptions{})
	require.NoError(t, err)
	ctx := uow.Attach(context.Background(), unit)

	for i, text := range []string{"clean rooms", "good food", "noisy street"} {
		_, err := submit.Handle(ctx, SubmitReviewCommand{HostelID: "h-1", Author: "Asha", Rating: 3 + i%3, Text: text, Actor: user.RoleStudent})
		require.NoError(t, err)
	}
	_, err = submit.Handle(ctx, SubmitReviewCommand{HostelID: "h-1", Author: "Asha", Rating: 0, Actor: user.RoleStudent})
	assert.ErrorIs(t, err, domainreviews.ErrInvalidRating)
	_, err = submit.Handle(ctx, SubmitReviewCommand{HostelID: "h-7", Author: "Asha", Rating: 4, Actor: user.RoleStudent})
	assert.ErrorIs(t, err, domainhostels.ErrNotFound)
	_, err = submit.Handle(context.Background(), SubmitReviewCommand{HostelID: "h-1", Author: "Asha", Rating: 4})
	assert.ErrorIs(t, err, uow.ErrNoUnit)

	require.NoError(t, box.Flush(context.Background()))
	assert.Len(t, box.Published(), 3)

	list := &ListReviewsHandler{UoWFactory: factory}
	out, err := list.Handle(context.Background(), ListReviewsQuery{HostelID: "h-1", Limit: 2})
	require.NoError(t, err)
	require.Len(t, out.Items, 2)
	assert.Equal(t, "noisy street", out.Items[0].Text)

	out, err = list.Handle(context.Background(), ListReviewsQuery{HostelID: "h-1", Offset: 2})
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "clean rooms", out.Items[0].Text)
}
