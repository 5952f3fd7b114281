package executor

import (
	"math"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/google/go-cmp/cmp"

	"github.com/synthetos/tinyg-motion/config"
	"github.com/synthetos/tinyg-motion/planner"
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

// Summing every segment's X-motor step count across a whole single-axis
// move must reproduce the commanded distance to within one step, the
// invariant-3 "no lost or duplicated steps" property from spec.md §8.
func TestStepSumMatchesCommandedDistance(t *testing.T) {
	c := qt.New(t)
	reg := newTestRegistry()
	q := planner.NewQueue()

	_, err := q.SubmitLine(reg, [config.NumAxes]float64{10, 0, 0, 0, 0, 0}, 10.0/1200, false, 1)
	c.Assert(err, qt.IsNil)

	snap := reg.Snapshot()
	ex := New(q)

	var totalSteps int32
	for i := 0; i < 100000; i++ {
		seg := ex.Next(snap)
		if seg.Idle {
			break
		}
		totalSteps += seg.Steps[0]
		if seg.Final && q.Depth() == 0 {
			break
		}
	}

	wantSteps := int32(10 * reg.Motors[0].StepsPerUnit())
	diff := totalSteps - wantSteps
	if diff < 0 {
		diff = -diff
	}
	c.Assert(diff <= 1, qt.IsTrue, qt.Commentf("got %d want ~%d", totalSteps, wantSteps))
}

// Two independently-built executors fed the identical move must emit
// structurally identical prep segments, a whole-struct table test
// rather than field-by-field assertions.
func TestNextStructurallyDeterministic(t *testing.T) {
	c := qt.New(t)
	reg := newTestRegistry()
	snap := reg.Snapshot()

	run := func() []Segment {
		q := planner.NewQueue()
		_, err := q.SubmitLine(reg, [config.NumAxes]float64{10, 0, 0, 0, 0, 0}, 10.0/1200, false, 1)
		c.Assert(err, qt.IsNil)
		ex := New(q)

		var segs []Segment
		for i := 0; i < 100000; i++ {
			seg := ex.Next(snap)
			if seg.Idle {
				break
			}
			segs = append(segs, seg)
			if seg.Final && q.Depth() == 0 {
				break
			}
		}
		return segs
	}

	got, want := run(), run()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("identical setups produced different prep segment sequences (-want +got):\n%s", diff)
	}
}

func TestIdleWhenQueueEmpty(t *testing.T) {
	c := qt.New(t)
	reg := newTestRegistry()
	q := planner.NewQueue()
	ex := New(q)
	seg := ex.Next(reg.Snapshot())
	c.Assert(seg.Idle, qt.IsTrue)
}

func TestDwellSegmentsSumToDuration(t *testing.T) {
	c := qt.New(t)
	reg := newTestRegistry()
	q := planner.NewQueue()
	_, err := q.SubmitDwell(0.05, 1) // 50ms dwell
	c.Assert(err, qt.IsNil)

	snap := reg.Snapshot()
	ex := New(q)

	var totalMin float64
	for i := 0; i < 1000; i++ {
		seg := ex.Next(snap)
		if seg.Idle {
			break
		}
		totalMin += seg.DurationMin
		if seg.Final {
			break
		}
	}
	c.Assert(math.Abs(totalMin-0.05/60) < 1e-6, qt.IsTrue)
}

func TestOnFinalFiresWithZeroExitVelocityAfterFeedhold(t *testing.T) {
	c := qt.New(t)
	reg := newTestRegistry()
	q := planner.NewQueue()
	target := [config.NumAxes]float64{100, 0, 0, 0, 0, 0}
	_, err := q.SubmitLine(reg, target, 100.0/3000, true, 1)
	c.Assert(err, qt.IsNil)
	q.Activate()
	c.Assert(q.BeginFeedhold(500), qt.IsNil)

	snap := reg.Snapshot()
	ex := New(q)
	var finalExitV float64
	var gotFinal bool
	ex.OnFinal = func(b *planner.BF) {
		gotFinal = true
		finalExitV = b.ExitV
	}

	for i := 0; i < 200000; i++ {
		seg := ex.Next(snap)
		if seg.Idle || seg.Final {
			break
		}
	}
	c.Assert(gotFinal, qt.IsTrue)
	c.Assert(finalExitV, qt.Equals, 0.0)
}

// phaseVelocity must follow the constant-jerk S-curve's quadratic
// v(t), not a straight-line ramp: sampled a quarter of the way into a
// phase (the true midpoint is identical under both models, so it
// can't distinguish them), the quadratic and linear predictions
// diverge noticeably.
func TestPhaseVelocityMatchesQuadraticSCurve(t *testing.T) {
	c := qt.New(t)
	v1, v2, T := 0.0, 1200.0, 0.02
	quarter := T / 4

	half := T / 2
	j := (v2 - v1) / (half * half)
	wantQuad := v1 + j/2*quarter*quarter
	wantLinear := v1 + (v2-v1)*(quarter/T)

	got := phaseVelocity(v1, v2, T, quarter)
	c.Assert(math.Abs(got-wantQuad) < 1e-9, qt.IsTrue, qt.Commentf("got %v want quadratic %v", got, wantQuad))
	c.Assert(math.Abs(got-wantLinear) > 1.0, qt.IsTrue, qt.Commentf("quarter-phase velocity %v must differ from the old linear-ramp value %v", got, wantLinear))
}

// Same check wired through the real executor head-phase path (velocityAt
// over a buffer built by the planner), rather than the bare helper.
func TestVelocityAtQuarterHeadMatchesQuadraticForm(t *testing.T) {
	c := qt.New(t)
	reg := newTestRegistry()
	q := planner.NewQueue()
	bf, err := q.SubmitLine(reg, [config.NumAxes]float64{10, 0, 0, 0, 0, 0}, 10.0/1200, false, 1)
	c.Assert(err, qt.IsNil)
	q.Activate()

	thead, tbody, ttail := phaseTimes(bf)
	c.Assert(thead > 0, qt.IsTrue)

	quarter := thead / 4
	half := thead / 2
	j := (bf.CruiseV - bf.EntryV) / (half * half)
	wantQuad := bf.EntryV + j/2*quarter*quarter
	wantLinear := bf.EntryV + (bf.CruiseV-bf.EntryV)*(quarter/thead)

	got := velocityAt(bf, quarter, thead, tbody, ttail)
	c.Assert(math.Abs(got-wantQuad) < 1e-6, qt.IsTrue, qt.Commentf("got %v want %v", got, wantQuad))
	c.Assert(math.Abs(got-wantLinear) > 1.0, qt.IsTrue)
}

func TestPhaseTimesMatchForwardPlannedDistances(t *testing.T) {
	c := qt.New(t)
	reg := newTestRegistry()
	q := planner.NewQueue()
	bf, err := q.SubmitLine(reg, [config.NumAxes]float64{10, 0, 0, 0, 0, 0}, 10.0/1200, false, 1)
	c.Assert(err, qt.IsNil)
	q.Activate()

	thead, tbody, ttail := phaseTimes(bf)
	d := distanceAt(bf, thead+tbody+ttail, thead, tbody, ttail)
	c.Assert(math.Abs(d-bf.Length) < 1e-6, qt.IsTrue)
}
