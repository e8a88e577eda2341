package app

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	. "github.com/smartystreets/goconvey/convey"
)

type countingApp struct {
	name     string
	trace    *[]string
	updates  int
	monitors int
}

func (a *countingApp) Update() {
	a.updates++
	if a.trace != nil {
		*a.trace = append(*a.trace, a.name)
	}
}

func (a *countingApp) OnMonitor() {
	a.monitors++
}

func TestManager(t *testing.T) {
	Convey("Registered components are driven in order", t, func() {
		var trace []string
		m := NewManager()
		a := &countingApp{name: "a", trace: &trace}
		b := &countingApp{name: "b", trace: &trace}
		m.Register(a)
		m.Register(b)
		So(m.Len(), ShouldEqual, 2)

		m.UpdateAll()
		m.UpdateAll()
		So(trace, ShouldResemble, []string{"a", "b", "a", "b"})
		So(m.Cycles(), ShouldEqual, 2)

		m.MonitorAll()
		So(a.monitors, ShouldEqual, 1)
		So(b.monitors, ShouldEqual, 1)

		Convey("exclusive work never overlaps a cycle", func() {
			done := make(chan struct{})
			m.Exclusive(func() {
				go func() {
					m.UpdateAll()
					close(done)
				}()
				time.Sleep(10 * time.Millisecond)
				So(a.updates, ShouldEqual, 2)
			})
			<-done
			So(a.updates, ShouldEqual, 3)
		})
	})
}

func TestManagerRun(t *testing.T) {
	Convey("Run ticks updates and monitors from the clock", t, func() {
		mock := clock.NewMock()
		m := NewManager(WithClock(mock), WithPeriods(10*time.Millisecond, 50*time.Millisecond))
		a := &countingApp{}
		m.Register(a)

		ctx, cancel := context.WithCancel(context.Background())
		errc := make(chan error, 1)
		go func() { errc <- m.Run(ctx) }()

		// let Run create its tickers before moving time
		time.Sleep(20 * time.Millisecond)
		for i := 0; i < 10; i++ {
			mock.Add(10 * time.Millisecond)
		}
		time.Sleep(20 * time.Millisecond)

		cancel()
		So(<-errc, ShouldEqual, context.Canceled)

		m.Exclusive(func() {
			So(a.updates, ShouldBeGreaterThanOrEqualTo, 5)
			So(a.monitors, ShouldBeBetweenOrEqual, 1, 2)
		})
	})
}
