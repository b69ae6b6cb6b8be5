package pricing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeSource struct {
	mu    sync.Mutex
	calls int
	rates []Rate
	err   error
	gate  chan struct{}
}

func (f *fakeSource) ActiveRates(ctx context.Context) ([]Rate, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]Rate, len(f.rates))
	copy(out, f.rates)
	return out, nil
}

func (f *fakeSource) set(rates []Rate, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rates = rates
	f.err = err
}

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingObserver struct {
	mu        sync.Mutex
	fetchErrs int
	fetchOK   int
	sources   []Source
}

func (o *recordingObserver) RateFetch(err error, _ int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		o.fetchErrs++
		return
	}
	o.fetchOK++
}

func (o *recordingObserver) RateResolved(_ CustomerType, source Source) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sources = append(o.sources, source)
}

func liveRates() []Rate {
	return []Rate{
		{ID: "r1", CustomerType: CustomerIndividual, DistanceMinKm: 0, DistanceMaxKm: intPtr(50), RatePerKm: dec("3.00"), IsActive: true},
		{ID: "r2", CustomerType: CustomerIndividual, DistanceMinKm: 51, RatePerKm: dec("2.00"), IsActive: true},
	}
}

func TestCache_FetchesOnceWithinTTL(t *testing.T) {
	src := &fakeSource{rates: liveRates()}
	clock := newFakeClock()
	c := NewCache(src, WithClock(clock.Now))
	ctx := context.Background()

	if got := c.Rates(ctx); len(got) != 2 {
		t.Fatalf("expected 2 rates, got %d", len(got))
	}
	clock.Advance(4*time.Minute + 59*time.Second)
	c.Rates(ctx)
	if src.Calls() != 1 {
		t.Fatalf("expected 1 fetch within ttl, got %d", src.Calls())
	}

	clock.Advance(time.Second)
	c.Rates(ctx)
	c.Rates(ctx)
	if src.Calls() != 2 {
		t.Fatalf("expected exactly one refetch after ttl, got %d fetches", src.Calls())
	}
}

func TestCache_EmptySuccessIsCached(t *testing.T) {
	src := &fakeSource{rates: []Rate{}}
	clock := newFakeClock()
	c := NewCache(src, WithClock(clock.Now))
	ctx := context.Background()

	if got := c.Rates(ctx); len(got) != 0 {
		t.Fatalf("expected no rates, got %d", len(got))
	}
	c.Rates(ctx)
	if src.Calls() != 1 {
		t.Fatalf("expected empty result to be cached, got %d fetches", src.Calls())
	}
	if _, loaded := c.FetchedAt(); !loaded {
		t.Fatal("expected cache to be marked loaded")
	}
}

func TestCache_FailureKeepsPreviousRatesAndTimestamp(t *testing.T) {
	src := &fakeSource{rates: liveRates()}
	clock := newFakeClock()
	obs := &recordingObserver{}
	c := NewCache(src, WithClock(clock.Now), WithObserver(obs))
	ctx := context.Background()

	c.Rates(ctx)
	first, _ := c.FetchedAt()

	src.set(nil, errors.New("connection refused"))
	clock.Advance(6 * time.Minute)
	got := c.Rates(ctx)
	if len(got) != 2 {
		t.Fatalf("expected previous 2 rates on failure, got %d", len(got))
	}
	if at, _ := c.FetchedAt(); !at.Equal(first) {
		t.Fatalf("expected fetched_at unchanged on failure, got %s want %s", at, first)
	}

	// Stale cache keeps retrying until a fetch succeeds.
	c.Rates(ctx)
	if src.Calls() != 3 {
		t.Fatalf("expected retry on each call while stale, got %d fetches", src.Calls())
	}
	if obs.fetchErrs != 2 || obs.fetchOK != 1 {
		t.Fatalf("expected 1 ok and 2 failed fetches observed, got ok=%d err=%d", obs.fetchOK, obs.fetchErrs)
	}
}

func TestCache_FailureBeforeFirstLoadReturnsEmpty(t *testing.T) {
	src := &fakeSource{err: errors.New("timeout")}
	c := NewCache(src, WithClock(newFakeClock().Now))

	if got := c.Rates(context.Background()); len(got) != 0 {
		t.Fatalf("expected empty rates, got %d", len(got))
	}
	if _, loaded := c.FetchedAt(); loaded {
		t.Fatal("expected cache to stay unloaded after failure")
	}
}

func TestCache_SnapshotNeverFetches(t *testing.T) {
	src := &fakeSource{rates: liveRates()}
	c := NewCache(src, WithClock(newFakeClock().Now))

	if got := c.Snapshot(); len(got) != 0 {
		t.Fatalf("expected empty snapshot before load, got %d", len(got))
	}
	if src.Calls() != 0 {
		t.Fatalf("snapshot must not fetch, got %d calls", src.Calls())
	}
	c.Rates(context.Background())
	if got := c.Snapshot(); len(got) != 2 {
		t.Fatalf("expected 2 rates in snapshot, got %d", len(got))
	}
}

func TestCache_ReturnedSliceIsACopy(t *testing.T) {
	src := &fakeSource{rates: liveRates()}
	c := NewCache(src, WithClock(newFakeClock().Now))
	ctx := context.Background()

	got := c.Rates(ctx)
	got[0].RatePerKm = dec("99")
	if again := c.Rates(ctx); !again[0].RatePerKm.Equal(dec("3.00")) {
		t.Fatalf("cache mutated through returned slice: %s", again[0].RatePerKm)
	}
}

func TestCache_ConcurrentStaleReadersShareOneFetch(t *testing.T) {
	src := &fakeSource{rates: liveRates(), gate: make(chan struct{})}
	c := NewCache(src, WithClock(newFakeClock().Now))
	ctx := context.Background()

	const readers = 8
	var started, done sync.WaitGroup
	started.Add(readers)
	done.Add(readers)
	for i := 0; i < readers; i++ {
		go func() {
			defer done.Done()
			started.Done()
			if got := c.Rates(ctx); len(got) != 2 {
				t.Errorf("expected 2 rates, got %d", len(got))
			}
		}()
	}
	started.Wait()
	time.Sleep(20 * time.Millisecond)
	close(src.gate)
	done.Wait()

	if src.Calls() != 1 {
		t.Fatalf("expected concurrent readers to share one fetch, got %d", src.Calls())
	}
}

func TestCache_CustomTTL(t *testing.T) {
	src := &fakeSource{rates: liveRates()}
	clock := newFakeClock()
	c := NewCache(src, WithClock(clock.Now), WithTTL(time.Minute))
	ctx := context.Background()

	c.Rates(ctx)
	clock.Advance(time.Minute)
	c.Rates(ctx)
	if src.Calls() != 2 {
		t.Fatalf("expected refetch at 1m ttl, got %d fetches", src.Calls())
	}
}
