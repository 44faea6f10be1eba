package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/okian/nexus-ssn/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given an in-memory deduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper()

		Convey("A new id is recorded", func() {
			So(d.SeenAndRecord(ctx, "a-1"), ShouldBeFalse)
			So(d.Size(), ShouldEqual, 1)
		})

		Convey("A pending id is reported as seen", func() {
			d.SeenAndRecord(ctx, "a-1")
			So(d.SeenAndRecord(ctx, "a-1"), ShouldBeTrue)
			So(d.Size(), ShouldEqual, 1)
		})

		Convey("A released id can be recorded again", func() {
			d.SeenAndRecord(ctx, "a-1")
			d.Unrecord(ctx, "a-1")
			So(d.Size(), ShouldEqual, 0)
			So(d.SeenAndRecord(ctx, "a-1"), ShouldBeFalse)
		})

		Convey("Releasing an unknown id is a no-op", func() {
			d.Unrecord(ctx, "ghost")
			So(d.Size(), ShouldEqual, 0)
		})
	})

	Convey("Given a bounded deduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))

		Convey("The oldest id is evicted when full", func() {
			for i := 1; i <= 4; i++ {
				d.SeenAndRecord(ctx, fmt.Sprintf("a-%d", i))
			}
			So(d.Size(), ShouldEqual, 3)
			So(d.SeenAndRecord(ctx, "a-4"), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, "a-1"), ShouldBeFalse)
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
		for i := 0; i < 1000; i++ {
			d.SeenAndRecord(ctx, fmt.Sprintf("a-%d", i))
		}
		So(d.Size(), ShouldEqual, 1000)
	})
}

func TestConcurrentSeenAndRecord(t *testing.T) {
	Convey("Exactly one caller wins a contended id", t, func() {
		d := dedupe.NewInMemoryDeduper()
		var winners atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 64; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if !d.SeenAndRecord(context.Background(), "hot") {
					winners.Add(1)
				}
			}()
		}
		wg.Wait()
		So(winners.Load(), ShouldEqual, 1)
	})
}
