package seeding

import "sync"

// Status describes how much of one dataset remains to be loaded.
type Status struct {
	NeedsSeeding  bool `json:"needs_seeding"`
	TotalRecords  int  `json:"total_records"`
	RecordsLoaded int  `json:"records_loaded"`
}

// AlreadySeeded is the status of a dataset whose table already holds rows.
func AlreadySeeded() Status {
	return Status{}
}

// PendingStatus is the status of an empty table about to receive total records.
func PendingStatus(total int) Status {
	if total < 0 {
		total = 0
	}
	return Status{NeedsSeeding: true, TotalRecords: total}
}

// PercentComplete returns floor(100*loaded/total), clamped to 100.
// An empty total counts as complete.
func (s Status) PercentComplete() int {
	if s.TotalRecords <= 0 {
		return 100
	}
	p := s.RecordsLoaded * 100 / s.TotalRecords
	if p > 100 {
		return 100
	}
	return p
}

// WithLoaded returns a copy with RecordsLoaded raised to loaded. The count
// never moves backwards and never exceeds TotalRecords.
func (s Status) WithLoaded(loaded int) Status {
	if loaded > s.TotalRecords {
		loaded = s.TotalRecords
	}
	if loaded > s.RecordsLoaded {
		s.RecordsLoaded = loaded
	}
	return s
}

// Completed returns a copy marking every record as loaded.
func (s Status) Completed() Status {
	s.RecordsLoaded = s.TotalRecords
	s.NeedsSeeding = false
	return s
}

// DatasetStatus is the named status of a single seeder inside an aggregate.
type DatasetStatus struct {
	Name    string `json:"name"`
	Percent int    `json:"percent"`
	Status
}

// AggregateStatus sums the statuses of several datasets. It is written by
// the seeding session and read concurrently by status readers.
type AggregateStatus struct {
	mu       sync.RWMutex
	order    []string
	children map[string]Status
}

func NewAggregateStatus() *AggregateStatus {
	return &AggregateStatus{children: make(map[string]Status)}
}

// Add registers a dataset. Adding a known name replaces its status.
func (a *AggregateStatus) Add(name string, s Status) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.children[name]; !ok {
		a.order = append(a.order, name)
	}
	a.children[name] = s
}

// Report records loaded records for a dataset and returns the new aggregate.
func (a *AggregateStatus) Report(name string, loaded int) Status {
	a.mu.Lock()
	if s, ok := a.children[name]; ok {
		a.children[name] = s.WithLoaded(loaded)
	}
	a.mu.Unlock()
	return a.Status()
}

// Complete marks a dataset as fully loaded.
func (a *AggregateStatus) Complete(name string) Status {
	a.mu.Lock()
	if s, ok := a.children[name]; ok {
		a.children[name] = s.Completed()
	}
	a.mu.Unlock()
	return a.Status()
}

// Status returns the sum of all registered datasets.
func (a *AggregateStatus) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var total Status
	for _, s := range a.children {
		total.TotalRecords += s.TotalRecords
		total.RecordsLoaded += s.RecordsLoaded
		total.NeedsSeeding = total.NeedsSeeding || s.NeedsSeeding
	}
	return total
}

// Datasets returns the per-dataset statuses in registration order.
func (a *AggregateStatus) Datasets() []DatasetStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]DatasetStatus, 0, len(a.order))
	for _, name := range a.order {
		s := a.children[name]
		out = append(out, DatasetStatus{Name: name, Percent: s.PercentComplete(), Status: s})
	}
	return out
}
