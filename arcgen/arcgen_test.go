package arcgen

import (
	"math"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/synthetos/tinyg-motion/config"
	"github.com/synthetos/tinyg-motion/planner"
	"github.com/synthetos/tinyg-motion/tinygerr"
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

func drainAll(g *Generator) int {
	n := 0
	for g.Active() {
		st := g.Step()
		if st == WouldBlock {
			return n
		}
		n++
		if st == Done {
			break
		}
	}
	return n
}

// An arc of radius 10mm centered at (10,0), from (0,0) to (10,10), CCW:
// it runs from 180 degrees through 270 to 90, so arc_length =
// 3*pi/2*10 ~= 47.1mm. With 5mm chords and no time-based minimum that is
// 10 chords, which fit the planner queue, so each Step submits one chord
// and the final chord lands exactly on the requested target.
func TestSubmitArcQuarterCircleLandsOnTarget(t *testing.T) {
	c := qt.New(t)
	reg := newTestRegistry()
	reg.System.ArcSegmentLen = 5.0
	reg.System.MinSegmentTimeUS = 0
	q := planner.NewQueue()
	var g Generator

	req := Request{
		Start:       [config.NumAxes]float64{0, 0, 0, 0, 0, 0},
		Target:      [config.NumAxes]float64{10, 10, 0, 0, 0, 0},
		IJK:         [2]float64{10, 0},
		Clockwise:   false,
		PlaneAxes:   [2]int{0, 1},
		LinearAxis:  2,
		DurationMin: 15.7 / 1200,
		LineNumber:  1,
	}
	err := g.Begin(reg, q, req)
	c.Assert(err, qt.IsNil)
	c.Assert(g.segCount > 1, qt.IsTrue)

	n := drainAll(&g)
	c.Assert(n, qt.Equals, g.segCount)
	c.Assert(g.Active(), qt.IsFalse)
	c.Assert(q.Depth(), qt.Equals, g.segCount)
}

// Same geometry, but verifies the final submitted buffer's Target is
// the exact requested endpoint rather than a trig-accumulated
// approximation: pop every chord up to the last and check it.
func TestSubmitArcFinalChordExactTarget(t *testing.T) {
	c := qt.New(t)
	reg := newTestRegistry()
	reg.System.ArcSegmentLen = 5.0
	reg.System.MinSegmentTimeUS = 0
	q := planner.NewQueue()
	var g Generator

	req := Request{
		Start:       [config.NumAxes]float64{0, 0, 0, 0, 0, 0},
		Target:      [config.NumAxes]float64{10, 10, 0, 0, 0, 0},
		IJK:         [2]float64{10, 0},
		Clockwise:   false,
		PlaneAxes:   [2]int{0, 1},
		LinearAxis:  2,
		DurationMin: 15.7 / 1200,
		LineNumber:  1,
	}
	c.Assert(g.Begin(reg, q, req), qt.IsNil)
	c.Assert(drainAll(&g), qt.Equals, g.segCount)

	q.Activate()
	var last *planner.BF
	for b := q.Peek(); b != nil; b = q.PopRunning() {
		cp := *b // PopRunning resets the slot b points to
		last = &cp
	}
	c.Assert(last, qt.Not(qt.IsNil))
	c.Assert(last.Target, qt.DeepEquals, req.Target)
}

func TestSubmitArcTooShortRejected(t *testing.T) {
	c := qt.New(t)
	reg := newTestRegistry()
	reg.System.MinSegmentLen = 5.0
	q := planner.NewQueue()
	var g Generator

	req := Request{
		Start:      [config.NumAxes]float64{0, 0, 0, 0, 0, 0},
		Target:     [config.NumAxes]float64{0.5, 0, 0, 0, 0, 0},
		IJK:        [2]float64{0.25, 0},
		Clockwise:  true,
		PlaneAxes:  [2]int{0, 1},
		LinearAxis: 2,
		LineNumber: 1,
	}
	err := g.Begin(reg, q, req)
	c.Assert(tinygerr.Is(err, tinygerr.KindInput), qt.IsTrue)
	c.Assert(err, qt.Equals, tinygerr.ErrArcSpecification)
}

func TestSubmitArcFullCircle(t *testing.T) {
	c := qt.New(t)
	reg := newTestRegistry()
	q := planner.NewQueue()
	var g Generator

	req := Request{
		Start:      [config.NumAxes]float64{10, 0, 0, 0, 0, 0},
		Target:     [config.NumAxes]float64{10, 0, 0, 0, 0, 0},
		IJK:        [2]float64{-10, 0},
		Clockwise:  false,
		PlaneAxes:  [2]int{0, 1},
		LinearAxis: 2,
		LineNumber: 1,
	}
	err := g.Begin(reg, q, req)
	c.Assert(err, qt.IsNil)
	approxEqual(c, math.Abs(g.thetaStep*float64(g.segCount)), 2*math.Pi, 1e-6)
	c.Assert(g.segCount > 1, qt.IsTrue)
}

func TestBeginWhileActiveIsInternalError(t *testing.T) {
	c := qt.New(t)
	reg := newTestRegistry()
	q := planner.NewQueue()
	var g Generator

	req := Request{
		Start:      [config.NumAxes]float64{0, 0, 0, 0, 0, 0},
		Target:     [config.NumAxes]float64{10, 10, 0, 0, 0, 0},
		IJK:        [2]float64{10, 0},
		PlaneAxes:  [2]int{0, 1},
		LinearAxis: 2,
		LineNumber: 1,
	}
	c.Assert(g.Begin(reg, q, req), qt.IsNil)
	err := g.Begin(reg, q, req)
	c.Assert(err, qt.Equals, tinygerr.ErrInternal)
}

func TestRadiusToOffsetMatchesIJKConvention(t *testing.T) {
	c := qt.New(t)
	off, err := radiusToOffset(0, 0, 10, 10, 10*math.Sqrt2/2, false)
	c.Assert(err, qt.IsNil)
	approxEqual(c, off[0]*off[0]+off[1]*off[1], (10*math.Sqrt2/2)*(10*math.Sqrt2/2), 1e-6)
}

func TestRadiusToOffsetDiameterTooShort(t *testing.T) {
	c := qt.New(t)
	_, err := radiusToOffset(0, 0, 10, 0, 1, false)
	c.Assert(err, qt.Equals, tinygerr.ErrArcSpecification)
}

func approxEqual(c *qt.C, got, want, tol float64) {
	c.Assert(math.Abs(got-want) <= tol, qt.IsTrue, qt.Commentf("got %v want %v (tol %v)", got, want, tol))
}
