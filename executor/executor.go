// Package executor implements the MED-priority segment executor: it
// consumes the Running planner buffer and produces fixed-duration Prep
// Segments (SP), each carrying the whole-step count every motor must
// emit over the segment, per spec.md §4.3. Velocity within a segment is
// derived from the buffer's head/body/tail profile, interpolating the
// head and tail phases with the same constant-jerk, two-parabola
// S-curve the planner's closed forms already assume (spec.md §4.1),
// not a constant-accel straight line; fractional steps are carried
// forward through a per-motor fixed-point accumulator so no distance is
// lost or double-counted across segment or buffer boundaries, down to
// one substep (1/2^SubstepShift of a step): each segment's displacement
// is truncated to whole substeps before it enters the accumulator.
package executor

import (
	"github.com/synthetos/tinyg-motion/config"
	"github.com/synthetos/tinyg-motion/planner"
)

// Segment is one Prep Segment: a fixed-duration slice of motion handed
// to the step generator. Idle reports that the planner queue is empty
// (nothing to execute this tick).
type Segment struct {
	MoveType    planner.MoveType
	LineNumber  uint32
	DurationMin float64 // actual duration, minutes (may be short on the final segment of a move)
	Steps       [config.NumMotors]int32
	Final       bool // true once this segment completes its buffer
	Idle        bool
}

// Executor tracks execution progress through the currently running
// buffer. It is owned exclusively by the MED priority level: the
// foreground only ever writes through planner.Queue.SubmitX, and HI
// only ever reads the Segment this level hands down, per spec.md §5's
// single-owner-per-cursor discipline.
type Executor struct {
	q        *planner.Queue
	accum    [config.NumMotors]int64
	elapsed  float64 // minutes elapsed within the running buffer
	velocity float64 // last computed instantaneous velocity, mm/min

	// OnFinal, if set, is invoked with the buffer just completed,
	// immediately before it is popped from the queue. Lets a caller
	// (the tinyg façade) observe a buffer's terminal ExitV — e.g. to
	// detect a feedhold's decel-to-zero completing — without racing
	// the pop.
	OnFinal func(*planner.BF)
}

// New returns a segment executor reading from q.
func New(q *planner.Queue) *Executor {
	return &Executor{q: q}
}

// Velocity returns the last computed instantaneous velocity, mm/min.
func (e *Executor) Velocity() float64 { return e.velocity }

// Next produces the next Prep Segment. Call once per fixed
// snap.System.SegmentTimeMS tick.
func (e *Executor) Next(snap config.Snapshot) Segment {
	b := e.q.Peek()
	if b == nil {
		return Segment{Idle: true}
	}
	if b.State != planner.Running {
		e.q.Activate()
		e.elapsed = 0
		for i := range e.accum {
			e.accum[i] = 0
		}
	}

	switch b.MoveType {
	case planner.MoveDwell:
		return e.stepDwell(b, snap)
	case planner.MoveMCode, planner.MoveNull:
		seg := Segment{MoveType: b.MoveType, LineNumber: b.LineNumber, Final: true}
		e.advance()
		return seg
	default:
		return e.stepMotion(b, snap)
	}
}

func (e *Executor) stepDwell(b *planner.BF, snap config.Snapshot) Segment {
	dt := snap.System.SegmentTimeMS / 1000 / 60
	totalMin := b.DwellSeconds / 60
	remaining := totalMin - e.elapsed
	if dt > remaining {
		dt = remaining
	}
	if dt < 0 {
		dt = 0
	}
	e.elapsed += dt
	final := e.elapsed >= totalMin-1e-9
	e.velocity = 0
	seg := Segment{MoveType: planner.MoveDwell, LineNumber: b.LineNumber, DurationMin: dt, Final: final}
	if final {
		if e.OnFinal != nil {
			e.OnFinal(b)
		}
		e.advance()
	}
	return seg
}

func (e *Executor) stepMotion(b *planner.BF, snap config.Snapshot) Segment {
	thead, tbody, ttail := phaseTimes(b)
	total := thead + tbody + ttail

	dtNominal := snap.System.SegmentTimeMS / 1000 / 60
	t0 := e.elapsed
	t1 := t0 + dtNominal
	if t1 > total {
		t1 = total
	}

	d0 := distanceAt(b, t0, thead, tbody, ttail)
	d1 := distanceAt(b, t1, thead, tbody, ttail)
	dseg := d1 - d0
	if dseg < 0 {
		dseg = 0
	}

	e.elapsed = t1
	final := t1 >= total-1e-9
	e.velocity = velocityAt(b, t1, thead, tbody, ttail)

	var steps [config.NumMotors]int32
	scale := int64(1) << snap.System.SubstepShift
	for m := range snap.Motors {
		axis := snap.Motors[m].AxisIndex
		disp := b.Unit[axis] * dseg * snap.Motors[m].StepsPerUnit()
		e.accum[m] += int64(disp * float64(scale))
		whole := e.accum[m] >> snap.System.SubstepShift
		e.accum[m] -= whole << snap.System.SubstepShift
		steps[m] = int32(whole)
	}

	seg := Segment{
		MoveType:    b.MoveType,
		LineNumber:  b.LineNumber,
		DurationMin: t1 - t0,
		Steps:       steps,
		Final:       final,
	}
	if final {
		if e.OnFinal != nil {
			e.OnFinal(b)
		}
		e.advance()
	}
	return seg
}

// advance retires the finished buffer and primes the next one. The
// accumulators are kept, so a sub-step remainder left at the end of one
// buffer carries into the first segment of the next.
func (e *Executor) advance() {
	e.q.PopRunning()
	e.q.Activate()
	e.elapsed = 0
}

// phaseTimes derives the head/body/tail durations implied by a
// buffer's already-forward-planned distances and velocities, using the
// average-velocity identity distance = (v1+v2)/2 * time that holds
// exactly for the constant-jerk S-curve (consistent with
// planner.sCurveDistance).
func phaseTimes(b *planner.BF) (thead, tbody, ttail float64) {
	if sum := b.EntryV + b.CruiseV; sum > 0 {
		thead = 2 * b.Head / sum
	}
	if b.CruiseV > 0 {
		tbody = b.Body / b.CruiseV
	}
	if sum := b.CruiseV + b.ExitV; sum > 0 {
		ttail = 2 * b.Tail / sum
	}
	return thead, tbody, ttail
}

// distanceAt returns cumulative distance traveled t minutes into the
// buffer, clamped to the buffer's total length.
func distanceAt(b *planner.BF, t, thead, tbody, ttail float64) float64 {
	switch {
	case t <= thead:
		return phaseDistance(b.EntryV, b.CruiseV, thead, t)
	case t <= thead+tbody:
		return b.Head + b.CruiseV*(t-thead)
	default:
		tt := t - thead - tbody
		if tt > ttail {
			tt = ttail
		}
		d := b.Head + b.Body + phaseDistance(b.CruiseV, b.ExitV, ttail, tt)
		if d > b.Length {
			d = b.Length
		}
		return d
	}
}

// velocityAt returns instantaneous velocity t minutes into the buffer.
func velocityAt(b *planner.BF, t, thead, tbody, ttail float64) float64 {
	switch {
	case t <= thead:
		return phaseVelocity(b.EntryV, b.CruiseV, thead, t)
	case t <= thead+tbody:
		return b.CruiseV
	default:
		tt := t - thead - tbody
		if tt > ttail {
			tt = ttail
		}
		return phaseVelocity(b.CruiseV, b.ExitV, ttail, tt)
	}
}

// phaseVelocity returns the instantaneous velocity t minutes into a
// head/tail phase of duration T that ramps from v1 to v2, per spec.md
// §4.1's constant-jerk S-curve: two concatenated parabolic-velocity
// half-segments, not a straight line. The jerk is derived locally from
// T and the velocity delta so the two halves meet continuously at the
// midpoint velocity (v1+v2)/2 and integrate to exactly (v1+v2)*T/2,
// matching planner.sCurveDistance.
func phaseVelocity(v1, v2, T, t float64) float64 {
	if T <= 0 {
		return v2
	}
	if t < 0 {
		t = 0
	} else if t > T {
		t = T
	}
	half := T / 2
	j := (v2 - v1) / (half * half)
	if t <= half {
		return v1 + j/2*t*t
	}
	tt := T - t
	return v2 - j/2*tt*tt
}

// phaseDistance returns the distance covered t minutes into the same
// phaseVelocity profile, the closed-form integral of its two parabolic
// halves.
func phaseDistance(v1, v2, T, t float64) float64 {
	if T <= 0 {
		return 0
	}
	if t < 0 {
		t = 0
	} else if t > T {
		t = T
	}
	half := T / 2
	j := (v2 - v1) / (half * half)
	if t <= half {
		return v1*t + j/6*t*t*t
	}
	dHalf := v1*half + j/6*half*half*half
	tt := t - half
	d2 := v2*tt - j/2*(half*half*half-(half-tt)*(half-tt)*(half-tt))/3
	return dHalf + d2
}
