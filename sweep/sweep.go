// Package sweep periodically evicts expired instances from configuration
// providers.
//
// Providers never decide on their own when to evict idle instances. A
// Sweeper owns a goroutine that calls SweepExpired on each of its targets at a
// fixed interval, one sweep at a time.
package sweep

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("dynconf/sweep")

// ErrClosed is returned by SweepNow after the Sweeper is closed.
var ErrClosed = errors.New("sweeper closed")

// Target is anything with expired instances to sweep, such as a
// *provider.Dynamic.
type Target interface {
	SweepExpired(context.Context) (int, error)
}

// Sweeper runs SweepExpired on its targets at a fixed interval.
type Sweeper struct {
	targets []Target
	timer   *clock.Timer

	cancel    context.CancelFunc
	closing   chan struct{}
	closeOnce sync.Once
	done      chan struct{}
	trigger   chan chan int
}

// New creates a Sweeper and starts its goroutine. The first sweep happens one
// interval after New returns.
func New(options ...Option) (*Sweeper, error) {
	opts, err := getOpts(options)
	if err != nil {
		return nil, err
	}
	if len(opts.targets) == 0 {
		return nil, errors.New("no sweep targets")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Sweeper{
		targets: opts.targets,
		timer:   opts.clock.Timer(opts.interval),
		cancel:  cancel,
		closing: make(chan struct{}),
		done:    make(chan struct{}),
		trigger: make(chan chan int),
	}
	go s.run(ctx, opts.interval)
	return s, nil
}

// SweepNow runs a sweep immediately and returns the number of instances
// evicted from all targets. It waits for any sweep in progress to finish
// first.
func (s *Sweeper) SweepNow(ctx context.Context) (int, error) {
	result := make(chan int, 1)
	select {
	case s.trigger <- result:
	case <-s.closing:
		return 0, ErrClosed
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	select {
	case n := <-result:
		return n, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Close stops the Sweeper and waits for a sweep in progress to finish.
func (s *Sweeper) Close() {
	s.closeOnce.Do(func() {
		close(s.closing)
		s.cancel()
		<-s.done
	})
}

func (s *Sweeper) run(ctx context.Context, interval time.Duration) {
	defer close(s.done)

	for {
		select {
		case <-s.timer.C:
			// Interval is measured from the start of each sweep.
			s.timer.Reset(interval)
			s.sweep(ctx)
		case result := <-s.trigger:
			result <- s.sweep(ctx)
		case <-s.closing:
			s.timer.Stop()
			return
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) int {
	var total int
	for _, t := range s.targets {
		n, err := t.SweepExpired(ctx)
		total += n
		if err != nil {
			log.Errorw("Errors sweeping expired instances", "err", err, "evicted", n)
			if ctx.Err() != nil {
				break
			}
		}
	}
	if total != 0 {
		log.Debugw("Sweep finished", "evicted", total)
	}
	return total
}
