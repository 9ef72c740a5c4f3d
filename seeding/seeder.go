package seeding

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Store is the connection a seeder writes through. Each seeder gets its own
// and never shares it with request handling.
type Store interface {
	HasRows(ctx context.Context, table string) (bool, error)
	Exec(ctx context.Context, sql string, args ...any) error
}

// ProgressFunc receives the cumulative number of records loaded so far.
type ProgressFunc func(loaded int)

// Seeder loads one logical dataset exactly once.
type Seeder interface {
	Name() string
	// Status reports whether seeding is needed. The first call probes the
	// store and parses the source files; later calls return the cached value.
	Status(ctx context.Context) (Status, error)
	// Seed loads the dataset, reporting progress after every batch. It is a
	// no-op when Status says nothing needs loading.
	Seed(ctx context.Context, progress ProgressFunc) error
}

// datasetState caches the status of a seeder for the lifetime of a session.
type datasetState struct {
	name   string
	table  string
	store  Store
	logger *zap.Logger

	mu     sync.Mutex
	status *Status
}

// resolve returns the cached status or computes it. load parses the source
// files and returns the number of records to load; it is only called when
// the target table is empty.
func (d *datasetState) resolve(ctx context.Context, load func(ctx context.Context) (int, error)) (Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.status != nil {
		return *d.status, nil
	}

	hasRows, err := d.store.HasRows(ctx, d.table)
	if err != nil {
		d.logger.Error("Seeding status check failed", zap.String("dataset", d.name), zap.String("table", d.table), zap.Error(err))
		return Status{}, &StatusCheckError{Dataset: d.name, Table: d.table, Err: err}
	}
	if hasRows {
		st := AlreadySeeded()
		d.status = &st
		d.logger.Info("Dataset already present, skipping seeding", zap.String("dataset", d.name))
		return st, nil
	}

	total, err := load(ctx)
	if err != nil {
		d.logger.Error("Failed to read seed data", zap.String("dataset", d.name), zap.Error(err))
		return Status{}, err
	}
	st := PendingStatus(total)
	d.status = &st
	d.logger.Info("Dataset needs seeding", zap.String("dataset", d.name), zap.Int("total_records", total))
	return st, nil
}

func (d *datasetState) complete() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.status != nil {
		st := d.status.Completed()
		d.status = &st
	}
}

// runPhase executes every batch from b in order. A failed batch is logged with
// its full statement and ends the phase; nothing after it is executed.
func runPhase[T any](ctx context.Context, store Store, logger *zap.Logger, dataset string, b Batcher[T], render func([]T) (Statement, error), progress ProgressFunc) error {
	for {
		batch, err := b.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		stmt, err := render(batch.Items)
		if err != nil {
			return &ExecutionError{Dataset: dataset, Position: batch.Position, Err: err}
		}

		start := time.Now()
		if err := store.Exec(ctx, stmt.SQL, stmt.Args...); err != nil {
			logger.Error("Exception executing seed statement",
				zap.String("dataset", dataset),
				zap.Int("position", batch.Position),
				zap.Int("rows", batch.Len()),
				zap.String("statement", stmt.SQL),
				zap.Error(err),
			)
			return &ExecutionError{Dataset: dataset, Statement: stmt.SQL, Position: batch.Position, Err: err}
		}
		logger.Debug("Executed seed batch",
			zap.String("dataset", dataset),
			zap.Int("rows", batch.Len()),
			zap.Int("position", batch.Position),
			zap.Duration("elapsed", time.Since(start)),
		)

		if progress != nil {
			progress(batch.Position)
		}
	}
}

// phaseAggregator sums the progress of sequential phases into one counter.
type phaseAggregator struct {
	positions []int
	report    ProgressFunc
}

func newPhaseAggregator(phases int, report ProgressFunc) *phaseAggregator {
	return &phaseAggregator{positions: make([]int, phases), report: report}
}

func (a *phaseAggregator) phase(i int) ProgressFunc {
	return func(loaded int) {
		if loaded <= a.positions[i] {
			return
		}
		a.positions[i] = loaded
		if a.report == nil {
			return
		}
		sum := 0
		for _, p := range a.positions {
			sum += p
		}
		a.report(sum)
	}
}
