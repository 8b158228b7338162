package portfolio

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/olympe-app/portfolio-service/internal/config"
	"github.com/olympe-app/portfolio-service/internal/debounce"
)

// Scheduler drives the periodic refresh and snapshot loops and funnels
// on-demand refresh requests through a debouncer so a burst of manual
// triggers collapses into one cycle.
type Scheduler struct {
	svc              *Service
	refreshInterval  time.Duration
	snapshotInterval time.Duration
	debouncer        *debounce.Debouncer

	mu      sync.Mutex
	waiters []chan refreshResult

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

type refreshResult struct {
	updated int
	err     error
}

func NewScheduler(svc *Service, cfg config.SchedulerConfig) *Scheduler {
	return &Scheduler{
		svc:              svc,
		refreshInterval:  cfg.RefreshInterval,
		snapshotInterval: cfg.SnapshotInterval,
		debouncer:        debounce.New(cfg.RefreshDebounce),
		stop:             make(chan struct{}),
	}
}

// Start launches the background loops. Call Stop to shut them down.
func (s *Scheduler) Start() {
	s.wg.Add(2)
	go s.loop(s.refreshInterval, "price refresh", func(ctx context.Context) error {
		_, err := s.svc.RefreshPrices(ctx)
		return err
	})
	go s.loop(s.snapshotInterval, "portfolio snapshot", s.svc.SnapshotDaily)
	log.Printf("scheduler started: refresh every %s, snapshot every %s", s.refreshInterval, s.snapshotInterval)
}

func (s *Scheduler) loop(interval time.Duration, name string, run func(ctx context.Context) error) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := run(context.Background()); err != nil {
				log.Printf("%s cycle failed: %v", name, err)
			}
		case <-s.stop:
			return
		}
	}
}

// TriggerRefresh requests an out-of-band refresh and blocks until the
// cycle runs, returning the number of holdings it updated. Rapid
// repeated calls coalesce: only the last one within the debounce window
// runs, and every caller waiting on that window shares its result. A
// newer trigger cancels an in-flight cycle's context, in which case the
// superseded callers see the cancellation error.
func (s *Scheduler) TriggerRefresh(ctx context.Context) (int, error) {
	ch := make(chan refreshResult, 1)
	s.mu.Lock()
	s.waiters = append(s.waiters, ch)
	s.mu.Unlock()

	s.debouncer.Trigger(func(runCtx context.Context) {
		s.mu.Lock()
		waiters := s.waiters
		s.waiters = nil
		s.mu.Unlock()

		updated, err := s.svc.RefreshPrices(runCtx)
		if err != nil {
			log.Printf("triggered refresh failed: %v", err)
		}
		for _, w := range waiters {
			w <- refreshResult{updated: updated, err: err}
		}
	})

	select {
	case res := <-ch:
		return res.updated, res.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Stop halts the loops and any pending debounced trigger, then waits for
// in-flight cycles to finish.
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		close(s.stop)
		s.debouncer.Stop()
		s.wg.Wait()
	})
}
