package sequence_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/andresuchdata/retailbill/backend-go/internal/domain"
	"github.com/andresuchdata/retailbill/backend-go/internal/repository/memory"
	"github.com/andresuchdata/retailbill/backend-go/internal/sequence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func maxOf(values ...int64) sequence.SeedFunc {
	return func(context.Context) (int64, error) {
		var max int64
		for _, v := range values {
			if v > max {
				max = v
			}
		}
		return max, nil
	}
}

func TestAllocator_ReserveNext_SeedsFromExistingNumbers(t *testing.T) {
	a := sequence.NewAllocator(memory.New())
	a.Register(domain.SequenceBillNumber, maxOf(3, 7, 1))

	got, err := a.ReserveNext(context.Background(), domain.SequenceBillNumber)

	require.NoError(t, err)
	assert.Equal(t, int64(8), got)
}

func TestAllocator_ReserveNext_Increments(t *testing.T) {
	a := sequence.NewAllocator(memory.New())
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := a.ReserveNext(ctx, domain.SequenceGRNNumber)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestAllocator_PeekNext_DoesNotConsume(t *testing.T) {
	store := memory.New()
	a := sequence.NewAllocator(store)
	a.Register(domain.SequenceBillNumber, maxOf(41))
	ctx := context.Background()

	peek, err := a.PeekNext(ctx, domain.SequenceBillNumber)
	require.NoError(t, err)
	assert.Equal(t, int64(42), peek)

	// the seed is persisted by the peek
	c, err := store.GetCounter(ctx, domain.SequenceBillNumber)
	require.NoError(t, err)
	assert.Equal(t, int64(41), c.Value)

	peek, err = a.PeekNext(ctx, domain.SequenceBillNumber)
	require.NoError(t, err)
	assert.Equal(t, int64(42), peek)

	reserved, err := a.ReserveNext(ctx, domain.SequenceBillNumber)
	require.NoError(t, err)
	assert.Equal(t, int64(42), reserved)

	peek, err = a.PeekNext(ctx, domain.SequenceBillNumber)
	require.NoError(t, err)
	assert.Equal(t, int64(43), peek)
}

func TestAllocator_ReserveNext_ConcurrentCallersGetContiguousRun(t *testing.T) {
	store := memory.New()
	a := sequence.NewAllocator(store)
	ctx := context.Background()
	require.NoError(t, store.SetCounter(ctx, domain.SequenceBillNumber, 100))

	const n = 64
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		got []int64
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := a.ReserveNext(ctx, domain.SequenceBillNumber)
			assert.NoError(t, err)
			mu.Lock()
			got = append(got, v)
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, got, n)
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	for i, v := range got {
		assert.Equal(t, int64(101+i), v)
	}
}

func TestAllocator_SequencesAreIndependent(t *testing.T) {
	a := sequence.NewAllocator(memory.New())
	a.Register(domain.SequenceBillNumber, maxOf(10))
	ctx := context.Background()

	bill, err := a.ReserveNext(ctx, domain.SequenceBillNumber)
	require.NoError(t, err)
	grn, err := a.ReserveNext(ctx, domain.SequenceGRNNumber)
	require.NoError(t, err)

	assert.Equal(t, int64(11), bill)
	assert.Equal(t, int64(1), grn)
}

func TestAllocator_PeekSeedDoesNotRollBackReservation(t *testing.T) {
	store := memory.New()
	a := sequence.NewAllocator(store)
	ctx := context.Background()

	// the first seed call blocks until released; later ones return at once
	var calls int
	var callsMu sync.Mutex
	entered := make(chan struct{})
	release := make(chan struct{})
	a.Register(domain.SequenceBillNumber, func(context.Context) (int64, error) {
		callsMu.Lock()
		calls++
		first := calls == 1
		callsMu.Unlock()
		if first {
			close(entered)
			<-release
		}
		return 0, nil
	})

	peeked := make(chan int64, 1)
	go func() {
		v, err := a.PeekNext(ctx, domain.SequenceBillNumber)
		assert.NoError(t, err)
		peeked <- v
	}()
	<-entered

	first, err := a.ReserveNext(ctx, domain.SequenceBillNumber)
	require.NoError(t, err)
	close(release)
	assert.Equal(t, int64(2), <-peeked)

	second, err := a.ReserveNext(ctx, domain.SequenceBillNumber)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)
}

type unavailableStore struct{ *memory.Store }

func (unavailableStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx sequence.Tx) error) error {
	return domain.ErrStoreUnavailable
}

func (unavailableStore) GetCounter(ctx context.Context, name string) (*domain.Counter, error) {
	return nil, domain.ErrStoreUnavailable
}

func TestAllocator_StoreFailurePropagates(t *testing.T) {
	a := sequence.NewAllocator(unavailableStore{memory.New()})
	ctx := context.Background()

	_, err := a.ReserveNext(ctx, domain.SequenceBillNumber)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	_, err = a.PeekNext(ctx, domain.SequenceBillNumber)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestAllocator_SeedFailureAbortsReservation(t *testing.T) {
	store := memory.New()
	a := sequence.NewAllocator(store)
	seedErr := errors.New("bills table unreachable")
	a.Register(domain.SequenceBillNumber, func(context.Context) (int64, error) { return 0, seedErr })

	_, err := a.ReserveNext(context.Background(), domain.SequenceBillNumber)
	assert.ErrorIs(t, err, seedErr)

	_, err = store.GetCounter(context.Background(), domain.SequenceBillNumber)
	assert.ErrorIs(t, err, domain.ErrCounterNotFound)
}
