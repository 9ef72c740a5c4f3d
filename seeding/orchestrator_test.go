package seeding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSeeder struct {
	name      string
	status    Status
	statusErr error
	steps     []int
	failAfter int // number of steps reported before seedErr, used when seedErr is set
	seedErr   error
	gate      chan struct{}
	observe   func(loaded int)
	seeds     int
}

func (f *fakeSeeder) Name() string { return f.name }

func (f *fakeSeeder) Status(ctx context.Context) (Status, error) {
	return f.status, f.statusErr
}

func (f *fakeSeeder) Seed(ctx context.Context, progress ProgressFunc) error {
	f.seeds++
	if f.gate != nil {
		<-f.gate
	}
	for i, step := range f.steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if f.seedErr != nil && i == f.failAfter {
			return f.seedErr
		}
		progress(step)
		if f.observe != nil {
			f.observe(step)
		}
	}
	if f.seedErr != nil {
		return f.seedErr
	}
	f.status = f.status.Completed()
	return nil
}

func TestOrchestratorSkipsSeededDatabase(t *testing.T) {
	a := &fakeSeeder{name: "catalog", status: AlreadySeeded()}
	b := &fakeSeeder{name: "ordering", status: AlreadySeeded()}
	o := NewOrchestrator(zap.NewNop(), a, b)

	var finished []Snapshot
	o.OnFinish(func(ctx context.Context, snap Snapshot) { finished = append(finished, snap) })

	require.NoError(t, o.Run(context.Background()))

	assert.Equal(t, StateSkipped, o.State())
	assert.Equal(t, 100, o.Progress())
	assert.Zero(t, a.seeds+b.seeds)
	require.Len(t, finished, 1)
	assert.Equal(t, StateSkipped, finished[0].State)
	assert.NotNil(t, finished[0].FinishedAt)
}

func TestOrchestratorSeedsPendingDatasets(t *testing.T) {
	a := &fakeSeeder{name: "catalog", status: PendingStatus(10), steps: []int{4, 10}}
	b := &fakeSeeder{name: "ordering", status: PendingStatus(100), steps: []int{25, 50, 100}}
	o := NewOrchestrator(zap.NewNop(), a, b)

	var seen []int
	b.observe = func(loaded int) {
		seen = append(seen, o.Progress())
	}

	require.NoError(t, o.Run(context.Background()))

	// 10 of 10 catalog plus 25, 50, 100 of 100 ordering
	assert.Equal(t, []int{31, 54, 100}, seen)
	assert.Equal(t, StateCompleted, o.State())
	assert.Equal(t, 100, o.Progress())
	assert.NoError(t, o.Err())

	snap := o.Snapshot()
	require.Len(t, snap.Datasets, 2)
	for _, d := range snap.Datasets {
		assert.False(t, d.NeedsSeeding, d.Name)
		assert.Equal(t, 100, d.Percent, d.Name)
	}
}

func TestOrchestratorSeedsOnlyWhatIsMissing(t *testing.T) {
	a := &fakeSeeder{name: "catalog", status: AlreadySeeded()}
	b := &fakeSeeder{name: "ordering", status: PendingStatus(4), steps: []int{2, 4}}
	o := NewOrchestrator(zap.NewNop(), a, b)

	require.NoError(t, o.Run(context.Background()))
	assert.Equal(t, 0, a.seeds)
	assert.Equal(t, 1, b.seeds)
	assert.Equal(t, StateCompleted, o.State())
}

func TestOrchestratorFailureKeepsEarlierDatasets(t *testing.T) {
	boom := errors.New("duplicate key value")
	a := &fakeSeeder{name: "catalog", status: PendingStatus(10), steps: []int{10}}
	b := &fakeSeeder{name: "ordering", status: PendingStatus(100), steps: []int{50, 100}, failAfter: 1, seedErr: boom}
	c := &fakeSeeder{name: "extra", status: PendingStatus(5), steps: []int{5}}
	o := NewOrchestrator(zap.NewNop(), a, b, c)

	var finished Snapshot
	o.OnFinish(func(ctx context.Context, snap Snapshot) { finished = snap })

	err := o.Run(context.Background())
	require.ErrorIs(t, err, boom)

	assert.Equal(t, StateFailed, o.State())
	assert.ErrorIs(t, o.Err(), boom)
	assert.Equal(t, 0, c.seeds)
	assert.Equal(t, 52, o.Progress(), "progress keeps the last reported value")

	assert.Equal(t, StateFailed, finished.State)
	assert.Contains(t, finished.Error, "seed ordering")
	require.Len(t, finished.Datasets, 3)
	assert.False(t, finished.Datasets[0].NeedsSeeding)
	assert.Equal(t, 50, finished.Datasets[1].RecordsLoaded)
	assert.True(t, finished.Datasets[1].NeedsSeeding)
}

func TestOrchestratorStatusCheckFailure(t *testing.T) {
	checkErr := &StatusCheckError{Dataset: "catalog", Table: "catalog_items", Err: errors.New("connection refused")}
	a := &fakeSeeder{name: "catalog", statusErr: checkErr}
	b := &fakeSeeder{name: "ordering", status: PendingStatus(1), steps: []int{1}}
	o := NewOrchestrator(zap.NewNop(), a, b)

	err := o.Run(context.Background())

	var target *StatusCheckError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, StateFailed, o.State())
	assert.Equal(t, 0, b.seeds)
}

func TestOrchestratorRunsOnce(t *testing.T) {
	o := NewOrchestrator(zap.NewNop(), &fakeSeeder{name: "catalog", status: AlreadySeeded()})
	require.NoError(t, o.Run(context.Background()))
	assert.ErrorIs(t, o.Run(context.Background()), ErrAlreadyStarted)
	assert.ErrorIs(t, o.Start(context.Background()), ErrAlreadyStarted)
}

func TestOrchestratorStartInBackground(t *testing.T) {
	gate := make(chan struct{})
	a := &fakeSeeder{name: "ordering", status: PendingStatus(10), steps: []int{5, 10}, gate: gate}
	o := NewOrchestrator(zap.NewNop(), a)

	require.NoError(t, o.Start(context.Background()))
	assert.Eventually(t, func() bool { return o.State() == StateSeeding }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, o.Progress())

	close(gate)
	select {
	case <-o.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("seeding did not finish")
	}
	assert.Equal(t, StateCompleted, o.State())
	assert.Equal(t, 100, o.Progress())
}

func TestOrchestratorCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a := &fakeSeeder{name: "ordering", status: PendingStatus(10), steps: []int{5, 10}}
	a.observe = func(loaded int) { cancel() }
	o := NewOrchestrator(zap.NewNop(), a)

	err := o.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateFailed, o.State())
	assert.Equal(t, 50, o.Progress())
}

func TestOrchestratorPrepareStep(t *testing.T) {
	t.Run("runs before status checks", func(t *testing.T) {
		var order []string
		a := &fakeSeeder{name: "catalog", status: AlreadySeeded()}
		o := NewOrchestrator(zap.NewNop(), a)
		o.BeforeRun(func(ctx context.Context) error {
			order = append(order, "prepare")
			return nil
		})

		require.NoError(t, o.Run(context.Background()))
		assert.Equal(t, []string{"prepare"}, order)
		assert.Equal(t, StateSkipped, o.State())
	})

	t.Run("failure fails the session", func(t *testing.T) {
		fetchErr := errors.New("NoSuchKey")
		a := &fakeSeeder{name: "catalog", status: PendingStatus(1), steps: []int{1}}
		o := NewOrchestrator(zap.NewNop(), a)
		o.BeforeRun(func(ctx context.Context) error { return fetchErr })

		err := o.Run(context.Background())
		assert.ErrorIs(t, err, fetchErr)
		assert.Equal(t, StateFailed, o.State())
		assert.Equal(t, 0, a.seeds)
		assert.Contains(t, o.Snapshot().Error, "prepare seeding")
	})
}

func TestOrchestratorWithoutSeeders(t *testing.T) {
	o := NewOrchestrator(zap.NewNop())
	require.NoError(t, o.Run(context.Background()))
	assert.Equal(t, StateSkipped, o.State())
	assert.Equal(t, 100, o.Progress())
}

func TestOrchestratorHookPanicStillFinishes(t *testing.T) {
	o := NewOrchestrator(zap.NewNop())
	called := false
	o.OnFinish(func(ctx context.Context, snap Snapshot) { panic("boom") })
	o.OnFinish(func(ctx context.Context, snap Snapshot) { called = true })

	require.NoError(t, o.Run(context.Background()))
	assert.True(t, called)
	select {
	case <-o.Done():
	default:
		t.Fatal("Done not closed")
	}
}
