package server

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Gordon-from-Blumberg/evo-cell/world"
)

var (
	errWorkerStopped = errors.New("world worker stopped")
	errWorldPanic    = errors.New("world operation panicked")
)

// job is one operation queued for the world goroutine.
type job struct {
	fn   func(*world.World) error
	done chan error
}

// WorldWorker owns a world and runs every operation on it from a single
// goroutine. Neither the world nor its interpreter may be used from two
// goroutines at once.
type WorldWorker struct {
	world *world.World
	jobs  chan job
	quit  chan struct{}
	once  sync.Once
}

// NewWorldWorker takes ownership of w and starts the world goroutine.
func NewWorldWorker(w *world.World) *WorldWorker {
	ww := &WorldWorker{
		world: w,
		jobs:  make(chan job, 64),
		quit:  make(chan struct{}),
	}
	go ww.loop()
	return ww
}

func (ww *WorldWorker) loop() {
	for {
		select {
		case j := <-ww.jobs:
			j.done <- ww.execute(j.fn)
		case <-ww.quit:
			return
		}
	}
}

// execute runs fn on the world. A panic is logged and returned as an
// error wrapping errWorldPanic; the interpreter releases itself on the
// way out, so later jobs still run.
func (ww *WorldWorker) execute(fn func(*world.World) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("world operation panicked at turn %d: %v", ww.world.Turn(), r)
			err = fmt.Errorf("%w: %v", errWorldPanic, r)
		}
	}()
	return fn(ww.world)
}

// Do runs fn on the world goroutine and waits for it.
func (ww *WorldWorker) Do(fn func(*world.World) error) error {
	j := job{fn: fn, done: make(chan error, 1)}
	select {
	case ww.jobs <- j:
	case <-ww.quit:
		return errWorkerStopped
	}
	select {
	case err := <-j.done:
		return err
	case <-ww.quit:
		return errWorkerStopped
	}
}

// Describe renders the program of a living bot.
func (ww *WorldWorker) Describe(id int64) (string, error) {
	var text string
	err := ww.Do(func(w *world.World) error {
		var err error
		text, err = w.Describe(id)
		return err
	})
	return text, err
}

// Statistic returns the statistic of the last completed turn.
func (ww *WorldWorker) Statistic() (world.Statistic, error) {
	var st world.Statistic
	err := ww.Do(func(w *world.World) error {
		st = w.Statistic()
		return nil
	})
	return st, err
}

// Advance runs up to n turns in one job and returns the statistic of the
// last turn run. each, when set, sees every turn's statistic with the
// world's seed; an error from it stops the run. ctx is checked before
// every turn.
func (ww *WorldWorker) Advance(ctx context.Context, n int, each func(seed int64, st world.Statistic) error) (world.Statistic, error) {
	var last world.Statistic
	err := ww.Do(func(w *world.World) error {
		last = w.Statistic()
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			last = w.Step()
			if each != nil {
				if err := each(w.Seed(), last); err != nil {
					return fmt.Errorf("turn %d: %w", last.Turn, err)
				}
			}
		}
		return nil
	})
	return last, err
}

// Stop ends the world goroutine. Jobs submitted afterwards fail with
// errWorkerStopped. Stop may be called more than once.
func (ww *WorldWorker) Stop() {
	ww.once.Do(func() { close(ww.quit) })
}
