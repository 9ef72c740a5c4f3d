package seeding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State is the lifecycle phase of a seeding session.
type State string

const (
	StateNotStarted     State = "not_started"
	StateCheckingStatus State = "checking_status"
	StateSkipped        State = "skipped"
	StateSeeding        State = "seeding"
	StateCompleted      State = "completed"
	StateFailed         State = "failed"
)

// Terminal reports whether the session has finished, successfully or not.
func (s State) Terminal() bool {
	return s == StateSkipped || s == StateCompleted || s == StateFailed
}

// Snapshot is a point-in-time view of a seeding session.
type Snapshot struct {
	State      State           `json:"state"`
	Percent    int             `json:"percent"`
	Datasets   []DatasetStatus `json:"datasets"`
	Error      string          `json:"error,omitempty"`
	StartedAt  *time.Time      `json:"started_at,omitempty"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}

// FinishFunc is called once the session reaches a terminal state.
type FinishFunc func(ctx context.Context, snap Snapshot)

// PrepareFunc runs before any status check, for example to fetch the
// source files. An error fails the session.
type PrepareFunc func(ctx context.Context) error

// Orchestrator runs every seeder of a session in order and exposes the
// combined progress to concurrent readers.
type Orchestrator struct {
	seeders   []Seeder
	logger    *zap.Logger
	aggregate *AggregateStatus
	progress  Progress

	mu         sync.RWMutex
	started    bool
	state      State
	err        error
	startedAt  time.Time
	finishedAt time.Time
	prepare    []PrepareFunc
	hooks      []FinishFunc
	done       chan struct{}
}

func NewOrchestrator(logger *zap.Logger, seeders ...Seeder) *Orchestrator {
	return &Orchestrator{
		seeders:   seeders,
		logger:    logger,
		aggregate: NewAggregateStatus(),
		state:     StateNotStarted,
		done:      make(chan struct{}),
	}
}

// BeforeRun registers a preparation step. Steps run in registration order.
func (o *Orchestrator) BeforeRun(fn PrepareFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.prepare = append(o.prepare, fn)
}

// OnFinish registers a hook. Hooks registered after the session started are
// not guaranteed to run.
func (o *Orchestrator) OnFinish(fn FinishFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.hooks = append(o.hooks, fn)
}

// Start runs the session in a background goroutine.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return ErrAlreadyStarted
	}
	o.started = true
	o.mu.Unlock()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				o.logger.Error("Seeding panicked", zap.Any("panic", r))
				_ = o.finish(ctx, fmt.Errorf("seeding panicked: %v", r))
			}
		}()
		_ = o.run(ctx)
	}()
	return nil
}

// Run executes the session on the calling goroutine. It can only be called
// once per orchestrator.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return ErrAlreadyStarted
	}
	o.started = true
	o.mu.Unlock()
	return o.run(ctx)
}

func (o *Orchestrator) run(ctx context.Context) error {
	o.setState(StateCheckingStatus)
	o.mu.Lock()
	o.startedAt = time.Now()
	prepare := append([]PrepareFunc(nil), o.prepare...)
	o.mu.Unlock()

	for _, fn := range prepare {
		if err := fn(ctx); err != nil {
			return o.finish(ctx, fmt.Errorf("prepare seeding: %w", err))
		}
	}

	pending := make([]Seeder, 0, len(o.seeders))
	for _, s := range o.seeders {
		st, err := s.Status(ctx)
		if err != nil {
			return o.finish(ctx, fmt.Errorf("check %s status: %w", s.Name(), err))
		}
		o.aggregate.Add(s.Name(), st)
		if st.NeedsSeeding {
			pending = append(pending, s)
		}
	}

	if len(pending) == 0 {
		o.progress.Set(100)
		o.logger.Info("Database already seeded, nothing to do")
		return o.finish(ctx, nil)
	}

	o.setState(StateSeeding)
	o.progress.Set(o.aggregate.Status().PercentComplete())
	o.logger.Info("Seeding database", zap.Int("datasets", len(pending)), zap.Int("total_records", o.aggregate.Status().TotalRecords))

	for _, s := range pending {
		name := s.Name()
		start := time.Now()
		err := s.Seed(ctx, func(loaded int) {
			o.progress.Set(o.aggregate.Report(name, loaded).PercentComplete())
		})
		if err != nil {
			return o.finish(ctx, fmt.Errorf("seed %s: %w", name, err))
		}
		o.progress.Set(o.aggregate.Complete(name).PercentComplete())
		o.logger.Info("Dataset seeded", zap.String("dataset", name), zap.Duration("elapsed", time.Since(start)))
	}

	o.progress.Set(100)
	return o.finish(ctx, nil)
}

func (o *Orchestrator) finish(ctx context.Context, err error) error {
	o.mu.Lock()
	if o.state.Terminal() {
		o.mu.Unlock()
		return err
	}
	o.finishedAt = time.Now()
	o.err = err
	switch {
	case err != nil:
		o.state = StateFailed
	case o.state == StateCheckingStatus:
		o.state = StateSkipped
	default:
		o.state = StateCompleted
	}
	hooks := append([]FinishFunc(nil), o.hooks...)
	elapsed := o.finishedAt.Sub(o.startedAt)
	state := o.state
	o.mu.Unlock()

	if err != nil {
		o.logger.Error("Seeding failed", zap.Error(err), zap.Duration("elapsed", elapsed))
	} else {
		o.logger.Info("Seeding finished", zap.String("state", string(state)), zap.Duration("elapsed", elapsed))
	}

	snap := o.Snapshot()
	hookCtx := context.WithoutCancel(ctx)
	for _, h := range hooks {
		o.runHook(hookCtx, h, snap)
	}
	close(o.done)
	return err
}

func (o *Orchestrator) runHook(ctx context.Context, h FinishFunc, snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Seeding finish hook panicked", zap.Any("panic", r))
		}
	}()
	h(ctx, snap)
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// Done is closed when the session reaches a terminal state and all hooks ran.
func (o *Orchestrator) Done() <-chan struct{} { return o.done }

// Progress returns the overall percentage. It never decreases.
func (o *Orchestrator) Progress() int { return o.progress.Value() }

func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Err returns the error that failed the session, if any.
func (o *Orchestrator) Err() error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.err
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.RLock()
	snap := Snapshot{
		State:    o.state,
		Percent:  o.progress.Value(),
		Datasets: o.aggregate.Datasets(),
	}
	if o.err != nil {
		snap.Error = o.err.Error()
	}
	if !o.startedAt.IsZero() {
		t := o.startedAt
		snap.StartedAt = &t
	}
	if !o.finishedAt.IsZero() {
		t := o.finishedAt
		snap.FinishedAt = &t
	}
	o.mu.RUnlock()
	return snap
}
