package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/BrandonDHaskell/Portunus/locker/internal/locker/bus"
	"github.com/BrandonDHaskell/Portunus/locker/internal/locker/types"
)

// DefaultTickInterval matches the 100ms poll period of the lock tasks.
const DefaultTickInterval = 100 * time.Millisecond

// Publisher posts messages onto the bus.
type Publisher interface {
	Publish(msg types.Message) error
}

// Task is one cooperative component driven by the Scheduler. Handle and
// Step always run on the scheduler goroutine and must not block.
type Task interface {
	Name() string
	Topics() []types.Topic
	Start(now Millis)
	Handle(msg types.Message, now Millis)
	Step(now Millis)
}

// TickObserver runs after every tick, on the scheduler goroutine.
type TickObserver func(tick uint64, now Millis)

type SchedulerConfig struct {
	// Interval between ticks.  Defaults to DefaultTickInterval.
	Interval time.Duration
}

// Scheduler runs registered tasks in registration order, once per tick.
// Within a tick each task first receives its queued messages, then steps.
// A message posted during a tick reaches tasks registered after the
// poster in that same tick, and tasks registered before it on the next.
type Scheduler struct {
	bus      *bus.Bus
	clock    Clock
	interval time.Duration
	logger   *log.Logger

	mu        sync.Mutex // serialises ticks
	tasks     []scheduled
	observers []TickObserver
	started   bool
	tick      uint64

	runMu   sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

type scheduled struct {
	task Task
	sub  *bus.Subscription
}

func NewScheduler(b *bus.Bus, clock Clock, cfg SchedulerConfig, logger *log.Logger) *Scheduler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Scheduler{
		bus:      b,
		clock:    clock,
		interval: interval,
		logger:   orDiscard(logger),
	}
}

// Register subscribes each task to its topics. Registration order is tick
// order.
func (s *Scheduler) Register(tasks ...Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tasks {
		s.tasks = append(s.tasks, scheduled{
			task: t,
			sub:  s.bus.Subscribe(t.Name(), t.Topics()...),
		})
	}
}

func (s *Scheduler) Observe(fn TickObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Init calls Start on every task once. Tick and Start call it implicitly.
func (s *Scheduler) Init() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initLocked()
}

func (s *Scheduler) initLocked() {
	if s.started {
		return
	}
	s.started = true
	now := s.clock.Now()
	for _, st := range s.tasks {
		s.guard(st.task, func() { st.task.Start(now) })
	}
}

// Tick runs one scheduling pass synchronously.
func (s *Scheduler) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initLocked()

	now := s.clock.Now()
	for _, st := range s.tasks {
		for _, msg := range st.sub.Drain() {
			s.guard(st.task, func() { st.task.Handle(msg, now) })
		}
		s.guard(st.task, func() { st.task.Step(now) })
	}
	s.tick++
	for _, fn := range s.observers {
		fn(s.tick, now)
	}
}

func (s *Scheduler) Ticks() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// guard keeps one misbehaving task from stopping the others.
func (s *Scheduler) guard(t Task, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Printf("task %s panicked: %v", t.Name(), r)
		}
	}()
	fn()
}

// Start begins ticking in the background until ctx is cancelled or Stop is
// called.
func (s *Scheduler) Start(ctx context.Context) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.running {
		return
	}
	s.Init()

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.running = true
	go s.loop(ctx, s.done)

	s.logger.Printf("scheduler started (interval=%s tasks=%d)", s.interval, len(s.tasks))
}

// Stop signals the loop to exit and waits for it. Safe to call repeatedly
// and before Start.
func (s *Scheduler) Stop() {
	s.runMu.Lock()
	cancel, done := s.cancel, s.done
	s.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the background loop is alive.
func (s *Scheduler) Running() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.running
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer func() {
		s.runMu.Lock()
		s.running = false
		s.runMu.Unlock()
		close(done)
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Printf("scheduler stopped after %d ticks", s.Ticks())
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// emit posts msgs in order, logging any refused delivery.
func emit(pub Publisher, logger *log.Logger, msgs ...types.Message) {
	for _, m := range msgs {
		if err := pub.Publish(m); err != nil {
			logger.Printf("publish: %v", err)
		}
	}
}
