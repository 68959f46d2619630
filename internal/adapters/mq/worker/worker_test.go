package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/valuator/internal/adapters/mq/queue"
	"github.com/okian/valuator/internal/adapters/mq/worker"
	"github.com/okian/valuator/internal/domain/model"
	"github.com/okian/valuator/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func filledQueue(n int) *queue.InMemoryQueue {
	q := queue.NewInMemoryQueue(queue.WithCapacity(n + 1))
	for i := 0; i < n; i++ {
		_ = q.Submit(context.Background(), queue.Job{
			Index: i,
			Key:   model.PlayerKey{PlayerID: fmt.Sprintf("p%03d", i), Domain: model.Batting},
		})
	}
	_ = q.Close()
	return q
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool of four workers", t, func() {
		pool := worker.NewPool(4, worker.WithName("test"), worker.WithJobTimeout(50*time.Millisecond))
		convey.So(pool.Workers(), convey.ShouldEqual, 4)

		convey.Convey("When every job succeeds", func() {
			results := make([]int, 100)
			stats, err := pool.Run(context.Background(), filledQueue(100), func(_ context.Context, j queue.Job) error {
				results[j.Index] = j.Index + 1
				return nil
			})

			convey.Convey("Then every slot is written once", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(stats.Processed, convey.ShouldEqual, 100)
				for i, v := range results {
					convey.So(v, convey.ShouldEqual, i+1)
				}
			})
		})

		convey.Convey("When some jobs fail or run past their deadline", func() {
			stats, err := pool.Run(context.Background(), filledQueue(10), func(ctx context.Context, j queue.Job) error {
				switch j.Index {
				case 3:
					return errors.New("bad input")
				case 7:
					<-ctx.Done()
					return ctx.Err()
				}
				return nil
			})

			convey.Convey("Then the run still completes", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(stats.Processed, convey.ShouldEqual, 10)
				convey.So(stats.Failed, convey.ShouldEqual, 1)
				convey.So(stats.TimedOut, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the run context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			var once sync.Once
			_, err := pool.Run(ctx, filledQueue(200), func(_ context.Context, j queue.Job) error {
				if j.Index == 5 {
					once.Do(cancel)
				}
				return nil
			})

			convey.Convey("Then the cancellation is returned", func() {
				convey.So(errors.Is(err, context.Canceled), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given a pool with no explicit size", t, func() {
		convey.So(worker.NewPool(0).Workers(), convey.ShouldBeGreaterThan, 0)
	})
}
