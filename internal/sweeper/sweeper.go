package sweeper

import (
	"context"
	"log"
	"sync"
	"time"

	"askrelay/internal/session"
)

// DefaultInterval is how often the sweeper scans for stale sessions,
// independent of any single session's timeout
const DefaultInterval = 5 * time.Second

// Sweeper periodically force-resolves sessions past expiry plus the
// retention window. It is the only component that enforces timeouts;
// connection handlers block without any deadline of their own.
type Sweeper struct {
	store    *session.Store
	interval time.Duration

	shutdownChannel chan struct{}
	running         bool
	mu              sync.RWMutex
}

// NewSweeper creates a sweeper over the given store
func NewSweeper(store *session.Store, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Sweeper{
		store:           store,
		interval:        interval,
		shutdownChannel: make(chan struct{}),
	}
}

// Start begins background sweeping. Each start gets a fresh shutdown
// channel so a stopped sweeper can be restarted.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrSweeperAlreadyRunning
	}
	s.running = true
	s.shutdownChannel = make(chan struct{})
	shutdown := s.shutdownChannel
	s.mu.Unlock()

	log.Printf("Starting ask session sweeper (interval %s)", s.interval)
	go s.run(ctx, shutdown)

	return nil
}

// Stop shuts the sweeper down
func (s *Sweeper) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrSweeperNotRunning
	}
	s.running = false
	close(s.shutdownChannel)

	return nil
}

// run is the sweep loop
func (s *Sweeper) run(ctx context.Context, shutdown <-chan struct{}) {
	defer log.Println("Ask session sweeper stopped")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.store.SweepExpired()

		case <-shutdown:
			return

		case <-ctx.Done():
			return
		}
	}
}
