package worker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/moodtune/internal/adapters/worker"
	"github.com/smartystreets/goconvey/convey"
)

func TestPoolDo(t *testing.T) {
	convey.Convey("Given a started pool", t, func() {
		ctx := context.Background()
		pool := worker.NewPool(worker.WithWorkers(3), worker.WithQueueSize(2))
		pool.Start(ctx)
		defer func() { _ = pool.Shutdown(ctx) }()

		convey.Convey("When running more jobs than the queue holds", func() {
			var ran atomic.Int32
			boom := errors.New("boom")
			jobs := make([]worker.Job, 10)
			for i := range jobs {
				i := i
				jobs[i] = func(context.Context) error {
					ran.Add(1)
					if i == 4 {
						return boom
					}
					return nil
				}
			}
			errs := pool.Do(ctx, jobs)

			convey.Convey("Then every job should run and errors keep their index", func() {
				convey.So(ran.Load(), convey.ShouldEqual, 10)
				convey.So(errs, convey.ShouldHaveLength, 10)
				for i, err := range errs {
					if i == 4 {
						convey.So(err, convey.ShouldEqual, boom)
					} else {
						convey.So(err, convey.ShouldBeNil)
					}
				}
			})
		})

		convey.Convey("When a job panics", func() {
			errs := pool.Do(ctx, []worker.Job{func(context.Context) error { panic("bad") }})

			convey.Convey("Then the panic should surface as that job's error", func() {
				convey.So(errs[0], convey.ShouldNotBeNil)
				convey.So(errs[0].Error(), convey.ShouldContainSubstring, "panicked")
			})
		})

		convey.Convey("When the caller's context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			errs := pool.Do(cctx, []worker.Job{func(context.Context) error { return nil }})

			convey.Convey("Then the job should report the cancellation", func() {
				convey.So(errors.Is(errs[0], context.Canceled), convey.ShouldBeTrue)
			})
		})
	})
}

func TestPoolSubmit(t *testing.T) {
	convey.Convey("Given a pool whose only worker is busy", t, func() {
		ctx := context.Background()
		pool := worker.NewPool(worker.WithWorkers(1), worker.WithQueueSize(1))
		pool.Start(ctx)

		release := make(chan struct{})
		started := make(chan struct{})
		first, err := pool.Submit(ctx, func(context.Context) error {
			close(started)
			<-release
			return nil
		})
		convey.So(err, convey.ShouldBeNil)
		<-started

		_, err = pool.Submit(ctx, func(context.Context) error { return nil })
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When the queue is full", func() {
			_, err := pool.Submit(ctx, func(context.Context) error { return nil })

			convey.Convey("Then submission should be refused", func() {
				convey.So(errors.Is(err, worker.ErrQueueFull), convey.ShouldBeTrue)
				convey.So(pool.Len(), convey.ShouldEqual, 1)
			})
		})

		close(release)
		select {
		case err := <-first:
			convey.So(err, convey.ShouldBeNil)
		case <-time.After(2 * time.Second):
			t.Fatal("job never finished")
		}

		convey.Convey("When the pool has shut down", func() {
			convey.So(pool.Shutdown(ctx), convey.ShouldBeNil)
			_, err := pool.Submit(ctx, func(context.Context) error { return nil })
			errs := pool.Do(ctx, []worker.Job{func(context.Context) error { return nil }})

			convey.Convey("Then new work should be rejected", func() {
				convey.So(errors.Is(err, worker.ErrStopped), convey.ShouldBeTrue)
				convey.So(errors.Is(errs[0], worker.ErrStopped), convey.ShouldBeTrue)
			})
		})

		_ = pool.Shutdown(ctx)
	})
}
