package seeding

import "sync/atomic"

// Progress is the overall completion percentage of a seeding session.
// One writer raises it, any number of readers poll it.
type Progress struct {
	percent atomic.Int32
}

// Set raises the percentage to p (clamped to 0..100). Lower values are
// ignored so readers never observe progress going backwards. It reports
// whether the stored value changed.
func (p *Progress) Set(percent int) bool {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	next := int32(percent)
	for {
		cur := p.percent.Load()
		if next <= cur {
			return false
		}
		if p.percent.CompareAndSwap(cur, next) {
			return true
		}
	}
}

// Value returns the current percentage.
func (p *Progress) Value() int {
	return int(p.percent.Load())
}
