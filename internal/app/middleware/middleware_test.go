package middleware

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hlopg/internal/app/commands"
	"hlopg/internal/app/uow"
	domainbooking "hlopg/internal/domain/booking"
	domainfoodmenu "hlopg/internal/domain/foodmenu"
	domainhostels "hlopg/internal/domain/hostels"
	domainreviews "hlopg/internal/domain/reviews"
	"hlopg/internal/domain/user"
)

type result struct {
	ID string `json:"id"`
}

type payCommand struct {
	key   string
	role  user.Role
	draft bool
}

func (payCommand) Key() string              { return "test.pay" }
func (c payCommand) IdempotencyKey() string { return c.key }
func (payCommand) ResultPrototype() any     { return &result{} }
func (payCommand) RequiredRole() user.Role  { return user.RoleStudent }
func (c payCommand) ActorRole() user.Role   { return c.role }
func (c payCommand) Transactional() bool    { return !c.draft }

type memIdem struct {
	mu      sync.Mutex
	records map[string]IdempotencyRecord
}

func (m *memIdem) Reserve(_ context.Context, key string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.records[key]; taken {
		return false, nil
	}
	m.records[key] = IdempotencyRecord{Key: key, OccurredAt: at, Pending: true}
	return true, nil
}

func (m *memIdem) Get(_ context.Context, key string) (IdempotencyRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key]
	return rec, ok, nil
}

func (m *memIdem) Save(_ context.Context, rec IdempotencyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.Key] = rec
	return nil
}

func (m *memIdem) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.records[key].Pending {
		delete(m.records, key)
	}
	return nil
}

type countingBus struct {
	calls int
	err   error
	seen  context.Context
}

func (b *countingBus) Dispatch(ctx context.Context, _ commands.Command) (any, error) {
	b.calls++
	b.seen = ctx
	if b.err != nil {
		return nil, b.err
	}
	return &result{ID: "b-1"}, nil
}

func TestIdempotency_ReplaysSuccess(t *testing.T) {
	store := &memIdem{records: map[string]IdempotencyRecord{}}
	base := &countingBus{}
	bus := ChainCommands(base, Idempotency(store, nil, nil))

	first, err := bus.Dispatch(context.Background(), payCommand{key: "k1"})
	require.NoError(t, err)
	second, err := bus.Dispatch(context.Background(), payCommand{key: "k1"})
	require.NoError(t, err)

	assert.Equal(t, 1, base.calls)
	assert.Equal(t, first, second)
	_, stored := store.records["test.pay:k1"]
	assert.True(t, stored)

	_, err = bus.Dispatch(context.Background(), payCommand{})
	require.NoError(t, err)
	assert.Equal(t, 2, base.calls)
}

func TestIdempotency_FailureNotStored(t *testing.T) {
	store := &memIdem{records: map[string]IdempotencyRecord{}}
	boom := errors.New("boom")
	base := &countingBus{err: boom}
	bus := ChainCommands(base, Idempotency(store, nil, nil))

	_, err := bus.Dispatch(context.Background(), payCommand{key: "k1"})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, store.records)

	base.err = nil
	_, err = bus.Dispatch(context.Background(), payCommand{key: "k1"})
	require.NoError(t, err)
	assert.Equal(t, 2, base.calls)
}

// gatedBus blocks every dispatch until release is closed.
type gatedBus struct {
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (b *gatedBus) Dispatch(context.Context, commands.Command) (any, error) {
	b.calls.Add(1)
	b.entered <- struct{}{}
	<-b.release
	return &result{ID: "b-1"}, nil
}

func TestIdempotency_ConcurrentSameKeyRunsOnce(t *testing.T) {
	store := &memIdem{records: map[string]IdempotencyRecord{}}
	base := &gatedBus{entered: make(chan struct{}, 8), release: make(chan struct{})}
	bus := ChainCommands(base, Idempotency(store, nil, nil))

	first := make(chan error, 1)
	go func() {
		_, err := bus.Dispatch(context.Background(), payCommand{key: "k1"})
		first <- err
	}()
	<-base.entered

	const dupes = 7
	var wg sync.WaitGroup
	errs := make(chan error, dupes)
	for i := 0; i < dupes; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := bus.Dispatch(context.Background(), payCommand{key: "k1"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.ErrorIs(t, err, ErrRequestInFlight)
	}

	close(base.release)
	require.NoError(t, <-first)
	assert.Equal(t, int32(1), base.calls.Load())

	replayed, err := bus.Dispatch(context.Background(), payCommand{key: "k1"})
	require.NoError(t, err)
	assert.Equal(t, &result{ID: "b-1"}, replayed)
	assert.Equal(t, int32(1), base.calls.Load())
}

func TestAuthorization(t *testing.T) {
	base := &countingBus{}
	bus := ChainCommands(base, Authorization(RoleAuthorizer{}))

	_, err := bus.Dispatch(context.Background(), payCommand{role: user.RoleOwner})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = bus.Dispatch(context.Background(), payCommand{role: user.RoleStudent})
	assert.NoError(t, err)
	assert.Equal(t, 1, base.calls)
}

type fakeUnit struct {
	committed  bool
	rolledBack bool
}

func (u *fakeUnit) Hostels() domainhostels.Repository    { return nil }
func (u *fakeUnit) Bookings() domainbooking.Repository   { return nil }
func (u *fakeUnit) Reviews() domainreviews.Repository    { return nil }
func (u *fakeUnit) FoodMenus() domainfoodmenu.Repository { return nil }

func (u *fakeUnit) Commit(context.Context) error {
	u.committed = true
	return nil
}

func (u *fakeUnit) Rollback(context.Context) error {
	u.rolledBack = true
	return nil
}

type fakeFactory struct {
	units []*fakeUnit
}

func (f *fakeFactory) Begin(context.Context, uow.TxOptions) (uow.UnitOfWork, error) {
	u := &fakeUnit{}
	f.units = append(f.units, u)
	return u, nil
}

func TestTransaction(t *testing.T) {
	factory := &fakeFactory{}
	base := &countingBus{}
	bus := ChainCommands(base, Transaction(factory))

	_, err := bus.Dispatch(context.Background(), payCommand{})
	require.NoError(t, err)
	require.Len(t, factory.units, 1)
	assert.True(t, factory.units[0].committed)
	_, inCtx := uow.FromContext(base.seen)
	assert.True(t, inCtx)

	base.err = errors.New("fail")
	_, err = bus.Dispatch(context.Background(), payCommand{})
	require.Error(t, err)
	require.Len(t, factory.units, 2)
	assert.True(t, factory.units[1].rolledBack)
	assert.False(t, factory.units[1].committed)

	base.err = nil
	_, err = bus.Dispatch(context.Background(), payCommand{draft: true})
	require.NoError(t, err)
	assert.Len(t, factory.units, 2)
}

type recordingObserver struct {
	keys []string
	errs []error
}

func (o *recordingObserver) ObserveCommand(key string, _ time.Duration, err error) {
	o.keys = append(o.keys, key)
	o.errs = append(o.errs, err)
}

type rejectAll struct{}

func (rejectAll) Validate(context.Context, any) error { return errors.New("invalid") }

func TestValidationAndMetrics(t *testing.T) {
	obs := &recordingObserver{}
	base := &countingBus{}
	bus := ChainCommands(base, Metrics(obs), Validation(rejectAll{}))

	_, err := bus.Dispatch(context.Background(), payCommand{})
	require.Error(t, err)
	assert.Zero(t, base.calls)
	assert.Equal(t, []string{"test.pay"}, obs.keys)
	assert.Error(t, obs.errs[0])
}
