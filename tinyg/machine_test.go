package tinyg

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/synthetos/tinyg-motion/arcgen"
	"github.com/synthetos/tinyg-motion/config"
	"github.com/synthetos/tinyg-motion/cycle"
	"github.com/synthetos/tinyg-motion/motorport"
)

func newTestRegistry() *config.Registry {
	r := config.Default()
	for i := range r.Axes {
		r.Axes[i].FeedrateMax = 1200
		r.Axes[i].VelocityMax = 3000
		r.Axes[i].JerkMax = 5e7
		r.Axes[i].JunctionDeviation = 0.05
	}
	return r
}

type fakeSink struct{ pulses int }

func (f *fakeSink) Pulse(motor int, dir uint8) { f.pulses++ }

func TestMachineSubmitAndRunToCompletion(t *testing.T) {
	c := qt.New(t)
	reg := newTestRegistry()
	sink := &fakeSink{}
	var motors [config.NumMotors]motorport.Port
	m := New(reg, sink, motors)

	_, err := m.SubmitLine([config.NumAxes]float64{10, 0, 0, 0, 0, 0}, 10.0/1200, false, 1)
	c.Assert(err, qt.IsNil)

	m.RequestCycleStart()
	m.Foreground()
	c.Assert(m.Status().QueueDepth, qt.Equals, 1)

	for i := 0; i < 2_000_000 && !m.CycleDone(); i++ {
		m.HITick()
		if i%100 == 0 {
			m.MEDTick()
			m.Foreground()
		}
	}
	c.Assert(m.CycleDone(), qt.IsTrue)
	c.Assert(sink.pulses > 0, qt.IsTrue)
}

func TestMachineArcSubmitAndDrain(t *testing.T) {
	c := qt.New(t)
	reg := newTestRegistry()
	reg.System.ArcSegmentLen = 5.0
	reg.System.MinSegmentTimeUS = 0 // segment count driven by length alone, to fit the planner's test capacity
	sink := &fakeSink{}
	var motors [config.NumMotors]motorport.Port
	m := New(reg, sink, motors)

	err := m.SubmitArc(arcgen.Request{
		Start:       [config.NumAxes]float64{0, 0, 0, 0, 0, 0},
		Target:      [config.NumAxes]float64{10, 10, 0, 0, 0, 0},
		IJK:         [2]float64{10, 0},
		PlaneAxes:   [2]int{0, 1},
		LinearAxis:  2,
		DurationMin: 15.7 / 1200,
		LineNumber:  1,
	})
	c.Assert(err, qt.IsNil)

	for i := 0; i < 100 && m.Arc.Active(); i++ {
		m.Foreground()
	}
	c.Assert(m.Arc.Active(), qt.IsFalse)
	c.Assert(m.Status().QueueDepth > 1, qt.IsTrue)
}

func TestStatusReflectsAlarmAfterLimitTrip(t *testing.T) {
	c := qt.New(t)
	reg := newTestRegistry()
	sink := &fakeSink{}
	var motors [config.NumMotors]motorport.Port
	m := New(reg, sink, motors)

	m.Switch.Trip(0, false, reg.System.SwitchLockoutTicks)
	m.Foreground()
	c.Assert(m.Status().Machine, qt.Equals, cycle.Alarm)

	m.RequestReset()
	m.Foreground()
	c.Assert(m.CycleDone(), qt.IsTrue)
}
