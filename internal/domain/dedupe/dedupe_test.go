package dedupe_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	dedupe "github.com/okian/moodtune/internal/domain/dedupe"
	"github.com/redis/go-redis/v9"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new InMemoryDeduper", t, func() {
		d := dedupe.NewInMemoryDeduper()
		So(d.Size(), ShouldEqual, 0)

		Convey("When a key is new", func() {
			seen, err := d.SeenAndRecord(ctx, dedupe.Key("s1", "k1"))

			Convey("Then it should be recorded", func() {
				So(err, ShouldBeNil)
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When a key is reused", func() {
			_, _ = d.SeenAndRecord(ctx, dedupe.Key("s1", "k1"))
			seen, _ := d.SeenAndRecord(ctx, dedupe.Key("s1", "k1"))
			other, _ := d.SeenAndRecord(ctx, dedupe.Key("s2", "k1"))

			Convey("Then it should be reported as seen only for the same subject", func() {
				So(seen, ShouldBeTrue)
				So(other, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 2)
			})
		})

		Convey("When subject and key split the same text differently", func() {
			left := dedupe.Key("a:b", "c")
			right := dedupe.Key("a", "b:c")
			first, _ := d.SeenAndRecord(ctx, left)
			second, _ := d.SeenAndRecord(ctx, right)

			Convey("Then they should be tracked as different keys", func() {
				So(left, ShouldNotEqual, right)
				So(first, ShouldBeFalse)
				So(second, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 2)
			})
		})

		Convey("When a key is unrecorded", func() {
			_, _ = d.SeenAndRecord(ctx, "k1")
			So(d.Unrecord(ctx, "k1"), ShouldBeNil)
			So(d.Unrecord(ctx, "missing"), ShouldBeNil)
			seen, _ := d.SeenAndRecord(ctx, "k1")

			Convey("Then it can be recorded again", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})
		})
	})

	Convey("Given a bounded deduper at capacity", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(2))
		_, _ = d.SeenAndRecord(ctx, "a")
		_, _ = d.SeenAndRecord(ctx, "b")
		_, _ = d.SeenAndRecord(ctx, "c")

		Convey("Then the oldest key should be evicted", func() {
			So(d.Size(), ShouldEqual, 2)
			seenA, _ := d.SeenAndRecord(ctx, "a")
			So(seenA, ShouldBeFalse)
			seenC, _ := d.SeenAndRecord(ctx, "c")
			So(seenC, ShouldBeTrue)
		})
	})

	Convey("Given a deduper with a TTL", t, func() {
		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		d := dedupe.NewInMemoryDeduper(
			dedupe.WithTTL(time.Minute),
			dedupe.WithMaxSize(0),
			dedupe.WithClock(func() time.Time { return now }),
		)
		_, _ = d.SeenAndRecord(ctx, "k")

		Convey("When the TTL has not passed", func() {
			now = now.Add(59 * time.Second)
			seen, _ := d.SeenAndRecord(ctx, "k")

			Convey("Then the key is still remembered", func() {
				So(seen, ShouldBeTrue)
			})
		})

		Convey("When the TTL has passed", func() {
			now = now.Add(time.Minute)
			seen, _ := d.SeenAndRecord(ctx, "k")

			Convey("Then the key is forgotten", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})
		})
	})

	Convey("Given concurrent callers sharing one key", t, func() {
		d := dedupe.NewInMemoryDeduper()
		var (
			wg    sync.WaitGroup
			mu    sync.Mutex
			fresh int
		)
		for i := 0; i < 50; i++ {
			i := i
			wg.Add(1)
			go func() {
				defer wg.Done()
				if seen, _ := d.SeenAndRecord(ctx, "shared"); !seen {
					mu.Lock()
					fresh++
					mu.Unlock()
				}
				_, _ = d.SeenAndRecord(ctx, fmt.Sprintf("own-%d", i))
			}()
		}
		wg.Wait()

		Convey("Then exactly one caller should record it", func() {
			So(fresh, ShouldEqual, 1)
			So(d.Size(), ShouldEqual, 51)
		})
	})
}

type fakeRedis struct {
	keys map[string]time.Duration
	err  error
}

func (f *fakeRedis) SetNX(_ context.Context, key string, _ any, exp time.Duration) *redis.BoolCmd {
	if f.err != nil {
		return redis.NewBoolResult(false, f.err)
	}
	if _, ok := f.keys[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.keys[key] = exp
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.keys[k]; ok {
			delete(f.keys, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRedisDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a redis deduper", t, func() {
		client := &fakeRedis{keys: map[string]time.Duration{}}
		d := dedupe.NewRedisDeduper(client, 10*time.Minute)

		Convey("When recording a key twice", func() {
			first, err1 := d.SeenAndRecord(ctx, "s1:k1")
			second, err2 := d.SeenAndRecord(ctx, "s1:k1")

			Convey("Then only the second call should see it, with the TTL applied", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(first, ShouldBeFalse)
				So(second, ShouldBeTrue)
				So(client.keys[dedupe.RedisKeyPrefix+"s1:k1"], ShouldEqual, 10*time.Minute)
			})
		})

		Convey("When unrecording a key", func() {
			_, _ = d.SeenAndRecord(ctx, "k")
			So(d.Unrecord(ctx, "k"), ShouldBeNil)

			Convey("Then it should be gone from redis", func() {
				So(client.keys, ShouldBeEmpty)
			})
		})

		Convey("When redis fails", func() {
			client.err = errors.New("connection refused")
			_, err := d.SeenAndRecord(ctx, "k")

			Convey("Then the error should be returned", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, client.err), ShouldBeTrue)
				So(d.Unrecord(ctx, "k"), ShouldNotBeNil)
			})
		})
	})

	Convey("Given a redis URL", t, func() {
		Convey("Then a client should be parsed from valid URLs only", func() {
			c, err := dedupe.NewRedisClient("redis://localhost:6379/0")
			So(err, ShouldBeNil)
			So(c, ShouldNotBeNil)
			So(c.Close(), ShouldBeNil)

			_, err = dedupe.NewRedisClient("://bad")
			So(err, ShouldNotBeNil)
		})
	})
}
