// Package stats tracks the usage of a cached configuration instance.
//
// Every caller that borrows an instance brackets its use with BeginUse and
// EndUse. The last-used time only moves forward and the in-flight count never
// goes negative, so an eviction sweep can read both without taking any lock.
package stats

import (
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("dynconf/stats")

// Stats holds the usage statistics of one instance. The zero value is not
// usable; create with New.
type Stats struct {
	clock    clock.Clock
	lastUsed atomic.Int64
	inFlight atomic.Int64
}

// New creates a Stats that reads time from clk. The last-used time starts at
// the time of creation. If clk is nil the system clock is used.
func New(clk clock.Clock) *Stats {
	if clk == nil {
		clk = clock.New()
	}
	s := &Stats{
		clock: clk,
	}
	s.lastUsed.Store(clk.Now().UnixMilli())
	return s
}

// BeginUse marks the start of a borrow. It advances the last-used time and
// increments the in-flight operation count.
func (s *Stats) BeginUse() {
	s.inFlight.Add(1)
	s.touch()
}

// EndUse marks the end of a borrow started with BeginUse.
func (s *Stats) EndUse() {
	for {
		n := s.inFlight.Load()
		if n <= 0 {
			log.Warn("EndUse called without matching BeginUse")
			return
		}
		if s.inFlight.CompareAndSwap(n, n-1) {
			return
		}
	}
}

// touch sets lastUsed to now, unless a later time is already recorded.
func (s *Stats) touch() {
	now := s.clock.Now().UnixMilli()
	for {
		last := s.lastUsed.Load()
		if now <= last {
			return
		}
		if s.lastUsed.CompareAndSwap(last, now) {
			return
		}
	}
}

// LastUsed returns the time of the most recent BeginUse, or the creation
// time if the instance was never used.
func (s *Stats) LastUsed() time.Time {
	return time.UnixMilli(s.lastUsed.Load())
}

// LastUsedMillis returns LastUsed as milliseconds since the unix epoch.
func (s *Stats) LastUsedMillis() int64 {
	return s.lastUsed.Load()
}

// InFlight returns the number of borrows that have not ended.
func (s *Stats) InFlight() int64 {
	return s.inFlight.Load()
}
