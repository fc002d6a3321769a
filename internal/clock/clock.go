// Package clock supplies the monotonic epoch counter interest accrues over.
package clock

import (
	"sync"
	"time"

	"github.com/ayo6706/custodial-ledger/internal/domain"
)

// Clock returns the current epoch. Successive readings never decrease.
type Clock interface {
	Now() domain.Epoch
}

// Wall derives epochs from elapsed wall-clock time since genesis.
type Wall struct {
	genesis time.Time
	length  time.Duration
	now     func() time.Time

	mu   sync.Mutex
	last domain.Epoch
}

// NewWall returns a clock whose epoch advances every length since genesis.
func NewWall(genesis time.Time, length time.Duration) *Wall {
	if length <= 0 {
		length = time.Hour
	}
	return &Wall{genesis: genesis, length: length, now: time.Now}
}

func (w *Wall) Now() domain.Epoch {
	w.mu.Lock()
	defer w.mu.Unlock()

	elapsed := w.now().Sub(w.genesis)
	var epoch domain.Epoch
	if elapsed > 0 {
		epoch = domain.Epoch(elapsed / w.length)
	}
	if epoch < w.last {
		return w.last
	}
	w.last = epoch
	return epoch
}

// Manual is a settable clock for tests and tooling.
type Manual struct {
	mu  sync.Mutex
	now domain.Epoch
}

func NewManual(start domain.Epoch) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() domain.Epoch {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by n epochs.
func (m *Manual) Advance(n uint64) domain.Epoch {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now += domain.Epoch(n)
	return m.now
}

// Set moves the clock to epoch; earlier values are ignored.
func (m *Manual) Set(epoch domain.Epoch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if epoch > m.now {
		m.now = epoch
	}
}
