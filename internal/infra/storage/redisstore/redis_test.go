package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainhostels "hlopg/internal/domain/hostels"
	"hlopg/internal/domain/popup"
)

type fakeKV struct {
	values map[string][]byte
	ttls   map[string]time.Duration
}

func newFakeKV() *fakeKV {
	return &fakeKV{values: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (f *fakeKV) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(v), nil)
}

func (f *fakeKV) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.values[key] = value.([]byte)
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeKV) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.values[k]; ok {
			n++
		}
		delete(f.values, k)
		delete(f.ttls, k)
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeKV) GetDel(ctx context.Context, key string) *redis.StringCmd {
	cmd := f.Get(ctx, key)
	delete(f.values, key)
	delete(f.ttls, key)
	return cmd
}

func TestDraftStore_KeyTTLFollowsExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	kv := newFakeKV()
	store := NewDraftStore(kv, func() time.Time { return now })

	listing, err := popup.NewListing(popup.ListingParams{HostelID: "h1", Name: "Sunrise", Sharing: map[string]int64{"Single": 9000}})
	require.NoError(t, err)
	sel := popup.Open(listing, now)
	require.NoError(t, sel.SelectTier("Single"))
	sel.SetDuration("3")
	draft := &popup.Draft{ID: "d1", Listing: listing, State: sel.State(), CreatedAt: now, ExpiresAt: now.Add(30 * time.Minute)}

	require.NoError(t, store.Save(ctx, draft))
	assert.Equal(t, 30*time.Minute, kv.ttls[draftKeyPrefix+"d1"])

	got, err := store.Get(ctx, "d1")
	require.NoError(t, err)
	tier, ok := mustRestore(t, got).SelectedTier()
	require.True(t, ok)
	assert.Equal(t, int64(9000), tier.MonthlyPrice)
	assert.Equal(t, 3, got.State.Duration)

	require.NoError(t, store.Delete(ctx, "d1"))
	_, err = store.Get(ctx, "d1")
	assert.ErrorIs(t, err, popup.ErrDraftNotFound)
}

func TestDraftStore_TakeRemovesKey(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	kv := newFakeKV()
	store := NewDraftStore(kv, func() time.Time { return now })
	listing, err := popup.NewListing(popup.ListingParams{HostelID: "h1", Name: "Sunrise", Sharing: map[string]int64{"Single": 9000}})
	require.NoError(t, err)
	draft := &popup.Draft{ID: "d1", Listing: listing, State: popup.Open(listing, now).State(), CreatedAt: now, ExpiresAt: now.Add(30 * time.Minute)}
	require.NoError(t, store.Save(ctx, draft))

	got, err := store.Take(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, popup.DraftID("d1"), got.ID)
	assert.NotContains(t, kv.values, draftKeyPrefix+"d1")

	_, err = store.Take(ctx, "d1")
	assert.ErrorIs(t, err, popup.ErrDraftNotFound)
}

func TestDraftStore_SaveExpiredDeletes(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	kv := newFakeKV()
	kv.values[draftKeyPrefix+"d1"] = []byte(`{}`)
	store := NewDraftStore(kv, func() time.Time { return now })

	require.NoError(t, store.Save(ctx, &popup.Draft{ID: "d1", ExpiresAt: now}))
	assert.NotContains(t, kv.values, draftKeyPrefix+"d1")
}

func TestCityCache_MissThenHit(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	cache := NewCityCache(kv, time.Hour)

	_, ok, err := cache.Get(ctx, "hyderabad")
	require.NoError(t, err)
	assert.False(t, ok)

	items := []*domainhostels.Hostel{{ID: "h1", Name: "Sunrise", City: "hyderabad", Sharing: map[string]int64{"Single": 9000}}}
	require.NoError(t, cache.Set(ctx, "hyderabad", items))
	assert.Equal(t, time.Hour, kv.ttls[cityKeyPrefix+"hyderabad"])

	got, ok, err := cache.Get(ctx, "hyderabad")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, int64(9000), got[0].Sharing["Single"])

	require.NoError(t, cache.Invalidate(ctx, "hyderabad"))
	_, ok, _ = cache.Get(ctx, "hyderabad")
	assert.False(t, ok)
}

func mustRestore(t *testing.T, d *popup.Draft) *popup.Selection {
	t.Helper()
	sel, err := d.Selection()
	require.NoError(t, err)
	return sel
}
