package market

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"ticksim/internal/domain"
	"ticksim/internal/refdata"
)

const (
	// skipProbability models sparse real-world tick arrival: each tick,
	// each instrument is skipped with this probability.
	skipProbability = 0.5
	// driftProbability is the per-tick chance of a regime drift on one
	// instrument's directional bias.
	driftProbability = 0.0001
)

// Subscriber receives market-depth snapshots. OnSnapshot is invoked
// at most once per emitted snapshot, always on the subscriber's own
// worker goroutine.
type Subscriber interface {
	OnSnapshot(*domain.MarketDepthSnapshot)
}

// OverflowPolicy selects what the scheduler does when a subscriber's
// queue is full.
type OverflowPolicy string

const (
	// OverflowDropOldest discards the oldest queued snapshot to make room.
	OverflowDropOldest OverflowPolicy = "drop_oldest"
	// OverflowDropNewest discards the snapshot being enqueued.
	OverflowDropNewest OverflowPolicy = "drop_newest"
	// OverflowBlock waits for queue space, stalling the timer.
	OverflowBlock OverflowPolicy = "block"
)

// Options configures a Scheduler.
type Options struct {
	Interval  time.Duration
	QueueSize int
	Policy    OverflowPolicy
	Seed      int64 // 0 means seed from the clock
}

// Scheduler drives the market clock. It owns the registered price
// processes and the subscriber delivery channels; the timer goroutine is
// the sole writer of price-process state, and each subscriber gets a
// dedicated worker so a slow handler never stalls the clock or its peers.
type Scheduler struct {
	log      *zap.Logger
	ref      *refdata.Store
	interval time.Duration
	qsize    int
	policy   OverflowPolicy
	rng      *rand.Rand // timer goroutine only

	mu        sync.RWMutex
	processes map[string]*PriceProcess
	workers   map[Subscriber]*subWorker
	stopped   bool

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewScheduler creates a Scheduler. Interval must be positive; an unknown
// overflow policy is rejected so the bound and overflow behavior stay an
// explicit configuration choice.
func NewScheduler(log *zap.Logger, ref *refdata.Store, opts Options) (*Scheduler, error) {
	if opts.Interval <= 0 {
		return nil, fmt.Errorf("scheduler interval must be > 0, got %s", opts.Interval)
	}
	if opts.QueueSize <= 0 {
		return nil, fmt.Errorf("scheduler queue size must be > 0, got %d", opts.QueueSize)
	}
	switch opts.Policy {
	case OverflowDropOldest, OverflowDropNewest, OverflowBlock:
	default:
		return nil, fmt.Errorf("unknown overflow policy %q", opts.Policy)
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Scheduler{
		log:       log.Named("scheduler"),
		ref:       ref,
		interval:  opts.Interval,
		qsize:     opts.QueueSize,
		policy:    opts.Policy,
		rng:       rand.New(rand.NewSource(seed)),
		processes: make(map[string]*PriceProcess),
		workers:   make(map[Subscriber]*subWorker),
		stop:      make(chan struct{}),
	}, nil
}

// Initialize creates and registers a price process for the instrument,
// seeded from the given snapshot. The instrument must exist in the
// reference-data store, and may be registered only once.
func (s *Scheduler) Initialize(instrumentID string, seed *domain.MarketDepthSnapshot) error {
	ref, err := s.ref.Lookup(instrumentID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.processes[instrumentID]; ok {
		return fmt.Errorf("%s: %w", instrumentID, domain.ErrDuplicateInstrument)
	}
	s.processes[instrumentID] = NewPriceProcess(ref, seed, s.rng)
	s.log.Info("instrument registered", zap.String("instrument", instrumentID))
	return nil
}

// Subscribe registers a subscriber, giving it a dedicated delivery channel
// and worker goroutine. A subscriber may be registered only once, and not
// after the scheduler has stopped: the stopped scheduler would never halt
// the worker.
func (s *Scheduler) Subscribe(sub Subscriber) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return domain.ErrSchedulerStopped
	}
	if _, ok := s.workers[sub]; ok {
		return domain.ErrDuplicateSubscriber
	}
	w := newSubWorker(s.log, sub, s.qsize)
	s.workers[sub] = w
	go w.run()
	return nil
}

// Unsubscribe stops the subscriber's worker and discards any queued,
// undelivered snapshots. It waits for the worker to exit, so once it
// returns no further OnSnapshot invocation will occur. No-op when the
// subscriber isn't registered.
func (s *Scheduler) Unsubscribe(sub Subscriber) {
	s.mu.Lock()
	w, ok := s.workers[sub]
	if ok {
		delete(s.workers, sub)
	}
	s.mu.Unlock()
	if ok {
		w.halt()
	}
}

// Start launches the timer loop. The first tick is phase-aligned to the
// next wall-clock interval boundary so the cadence doesn't accumulate
// drift. The loop stops when ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop terminates the timer loop and every subscriber worker.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()

	s.mu.Lock()
	s.stopped = true
	workers := make([]*subWorker, 0, len(s.workers))
	for _, w := range s.workers {
		workers = append(workers, w)
	}
	s.workers = make(map[Subscriber]*subWorker)
	s.mu.Unlock()
	for _, w := range workers {
		w.halt()
	}
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	// Align the first tick with the next interval boundary.
	delay := s.interval - time.Duration(time.Now().UnixNano())%s.interval
	first := time.NewTimer(delay)
	select {
	case <-ctx.Done():
		first.Stop()
		return
	case <-s.stop:
		first.Stop()
		return
	case <-first.C:
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.tick()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick advances every registered instrument and fans fresh snapshots out
// to all subscribers. Runs on the timer goroutine only.
func (s *Scheduler) tick() {
	s.mu.RLock()
	procs := make([]*PriceProcess, 0, len(s.processes))
	for _, p := range s.processes {
		procs = append(procs, p)
	}
	workers := make([]*subWorker, 0, len(s.workers))
	for _, w := range s.workers {
		workers = append(workers, w)
	}
	s.mu.RUnlock()

	for _, p := range procs {
		// There is a chance the instrument doesn't tick this cycle.
		if s.rng.Float64() <= skipProbability {
			continue
		}
		// There is a very small chance the market changes regime.
		if s.rng.Float64() < driftProbability {
			p.SetBuyChance(s.driftChance(p.BuyChance()))
		}
		snap := p.Refresh()
		for _, w := range workers {
			w.enqueue(snap.Clone(), s.policy)
		}
	}
}

// driftChance applies the regime-drift policy: persistent regimes with
// rare, gradual reversion toward the neutral 0.5 rather than abrupt flips.
func (s *Scheduler) driftChance(old float64) float64 {
	f := s.rng.Float64() / 20
	switch {
	case old > 0.5:
		return 0.5 - f
	case old < 0.5:
		return 0.5 + f
	default:
		return 0.5 + f*float64(s.rng.Intn(3)-1)
	}
}

// subWorker owns one subscriber's delivery channel and goroutine.
type subWorker struct {
	log  *zap.Logger
	sub  Subscriber
	ch   chan *domain.MarketDepthSnapshot
	stop chan struct{}
	done chan struct{}
}

func newSubWorker(log *zap.Logger, sub Subscriber, qsize int) *subWorker {
	return &subWorker{
		log:  log,
		sub:  sub,
		ch:   make(chan *domain.MarketDepthSnapshot, qsize),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// enqueue pushes a snapshot onto the worker's queue following the
// configured overflow policy. Called from the timer goroutine.
func (w *subWorker) enqueue(snap *domain.MarketDepthSnapshot, policy OverflowPolicy) {
	switch policy {
	case OverflowBlock:
		select {
		case w.ch <- snap:
		case <-w.stop:
		}
	case OverflowDropNewest:
		select {
		case w.ch <- snap:
		default:
			w.log.Debug("queue full, snapshot dropped",
				zap.String("instrument", snap.InstrumentID))
		}
	default: // OverflowDropOldest
		for {
			select {
			case w.ch <- snap:
				return
			default:
			}
			select {
			case <-w.ch:
			default:
			}
		}
	}
}

// run dequeues snapshots and invokes the handler synchronously until the
// worker is stopped. A stop signal observed after dequeue discards the
// item; a callback already in flight finishes uncancelled.
func (w *subWorker) run() {
	defer close(w.done)
	for {
		select {
		case <-w.stop:
			return
		case snap := <-w.ch:
			select {
			case <-w.stop:
				return
			default:
			}
			w.deliver(snap)
		}
	}
}

// deliver invokes the handler, swallowing panics so a faulty subscriber
// never takes down the feed.
func (w *subWorker) deliver(snap *domain.MarketDepthSnapshot) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("subscriber handler panicked",
				zap.String("instrument", snap.InstrumentID),
				zap.Any("panic", r))
		}
	}()
	w.sub.OnSnapshot(snap)
}

// halt signals the worker to stop and waits for it to exit.
func (w *subWorker) halt() {
	close(w.stop)
	<-w.done
}
