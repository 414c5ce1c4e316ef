package session

import (
	"context"
	"sync"
	"time"

	"github.com/MrEthical07/goSession/internal/clock"
	"github.com/cespare/xxhash/v2"
	"github.com/go-logr/logr"
)

// DefaultSweepInterval is how often MemoryStore evicts expired entries when
// MemoryOptions.SweepInterval is zero.
const DefaultSweepInterval = 10 * time.Minute

const memoryShardCount = 32

// MemoryOptions configures a MemoryStore.
type MemoryOptions struct {
	// Clock defaults to the wall clock.
	Clock clock.Clock
	// Logger receives one line per sweep that evicts something.
	Logger logr.Logger
	// SweepInterval of zero selects DefaultSweepInterval. A negative value
	// disables the background sweep; expired entries are still invisible.
	SweepInterval time.Duration
	// OnSweep, when set, is called with the number of entries each sweep
	// removed.
	OnSweep func(evicted int)
}

type memoryEntry struct {
	data      Data
	expiresAt time.Time
}

type memoryShard struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// MemoryStore is the process-local Store backend. Entries are spread over
// fixed shards by xxhash of the id so concurrent requests rarely contend.
type MemoryStore struct {
	shards [memoryShardCount]memoryShard

	clock   clock.Clock
	log     logr.Logger
	onSweep func(int)

	stopCh    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewMemoryStore creates a MemoryStore and starts its sweep worker.
func NewMemoryStore(opts MemoryOptions) *MemoryStore {
	s := &MemoryStore{
		clock:   opts.Clock,
		log:     opts.Logger,
		onSweep: opts.OnSweep,
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	for i := range s.shards {
		s.shards[i].entries = make(map[string]memoryEntry)
	}

	interval := opts.SweepInterval
	if interval == 0 {
		interval = DefaultSweepInterval
	}
	if interval < 0 {
		close(s.done)
		return s
	}

	go s.sweepWorker(s.clock.NewTicker(interval))
	return s
}

func (s *MemoryStore) shard(id string) *memoryShard {
	return &s.shards[xxhash.Sum64String(id)%memoryShardCount]
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (Record, bool, error) {
	sh := s.shard(id)
	now := s.clock.Now()

	sh.mu.RLock()
	e, ok := sh.entries[id]
	sh.mu.RUnlock()

	if !ok || !e.expiresAt.After(now) {
		return Record{}, false, nil
	}
	return Record{ID: id, Data: e.data, ExpiresAt: e.expiresAt}, true, nil
}

// Set implements Store. A non-positive maxAge selects DefaultMaxAge.
func (s *MemoryStore) Set(_ context.Context, id string, data Data, maxAge time.Duration) error {
	sh := s.shard(id)
	expiresAt := s.clock.Now().Add(normalizeMaxAge(maxAge))

	sh.mu.Lock()
	sh.entries[id] = memoryEntry{data: data, expiresAt: expiresAt}
	sh.mu.Unlock()
	return nil
}

// Touch implements Store. Expired entries are treated as absent.
func (s *MemoryStore) Touch(_ context.Context, id string, maxAge time.Duration) error {
	sh := s.shard(id)
	now := s.clock.Now()

	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.entries[id]
	if !ok || !e.expiresAt.After(now) {
		return nil
	}
	e.expiresAt = now.Add(normalizeMaxAge(maxAge))
	sh.entries[id] = e
	return nil
}

// Destroy implements Store.
func (s *MemoryStore) Destroy(_ context.Context, id string) error {
	sh := s.shard(id)

	sh.mu.Lock()
	delete(sh.entries, id)
	sh.mu.Unlock()
	return nil
}

// Count implements Store. Entries past expiry but not yet swept are excluded.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	now := s.clock.Now()
	total := 0

	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		for _, e := range sh.entries {
			if e.expiresAt.After(now) {
				total++
			}
		}
		sh.mu.RUnlock()
	}
	return total, nil
}

// Clear implements Store.
func (s *MemoryStore) Clear(_ context.Context) error {
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		sh.entries = make(map[string]memoryEntry)
		sh.mu.Unlock()
	}
	return nil
}

// Sweep removes every entry whose expiry is at or before now and returns how
// many were removed. It stops early when ctx is cancelled.
func (s *MemoryStore) Sweep(ctx context.Context) (int, error) {
	now := s.clock.Now()
	evicted := 0

	for i := range s.shards {
		if err := ctx.Err(); err != nil {
			return evicted, err
		}
		sh := &s.shards[i]
		sh.mu.Lock()
		for id, e := range sh.entries {
			if !e.expiresAt.After(now) {
				delete(sh.entries, id)
				evicted++
			}
		}
		sh.mu.Unlock()
	}
	return evicted, nil
}

// Close stops the sweep worker and waits for it to exit.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopCh)
	})
	<-s.done
	return nil
}

func (s *MemoryStore) sweepWorker(ticker *clock.Ticker) {
	defer close(s.done)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			evicted, _ := s.Sweep(context.Background())
			if evicted > 0 {
				s.log.V(1).Info("swept expired sessions", "evicted", evicted)
			}
			if s.onSweep != nil {
				s.onSweep(evicted)
			}
		case <-s.stopCh:
			return
		}
	}
}
