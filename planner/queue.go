package planner

import (
	"github.com/orsinium-labs/tinymath"

	"github.com/synthetos/tinyg-motion/config"
	"github.com/synthetos/tinyg-motion/tinygerr"
)

// Capacity is the fixed planner ring size, within spec.md §3's typical
// 28-48 range. A static array, no dynamic allocation.
const Capacity = 32

// Queue is the bounded ring of planning buffers, owned entirely by the
// foreground for writes and by the segment executor (MED) for reading
// the run cursor forward. Each cursor is owned by exactly one priority
// level, per spec.md §5, so no locks are used here — this type is not
// safe for concurrent foreground+MED mutation of the *same* cursor,
// only for the documented split (foreground writes, MED advances run).
type Queue struct {
	buffers [Capacity]BF

	writeIdx int // next empty slot a submit will use
	runIdx   int // the buffer currently Running or about to run
	count    int // number of non-Empty buffers

	lastTarget [config.NumAxes]float64
	haveLast   bool
	lastUnit   [config.NumAxes]float64
}

// NewQueue returns an empty planner queue.
func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) idxAfter(i int) int {
	return (i + 1) % Capacity
}

// Depth returns the number of buffers currently queued/pending/running.
func (q *Queue) Depth() int {
	return q.count
}

// Available returns how many empty buffers remain.
func (q *Queue) Available() int {
	return Capacity - q.count
}

// newest returns a pointer to the most recently submitted buffer, or
// nil if the queue is empty.
func (q *Queue) newest() *BF {
	if q.count == 0 {
		return nil
	}
	idx := (q.writeIdx - 1 + Capacity) % Capacity
	return &q.buffers[idx]
}

// SubmitLine enqueues a straight-line move to target (absolute,
// canonical units) expected to take moveTimeMin minutes, per spec.md
// §4.1. isRapid selects traverse (G0) vs feed (G1) velocity limits.
func (q *Queue) SubmitLine(reg *config.Registry, target [config.NumAxes]float64, moveTimeMin float64, isRapid bool, lineNumber uint32) (*BF, error) {
	return q.submitMotion(reg, target, moveTimeMin, isRapid, lineNumber, MoveLine)
}

// SubmitArcChord is identical to SubmitLine but tags the buffer as an
// arc chord (MoveArcChord) rather than a commanded line, so status
// reporting and any downstream consumer can distinguish the two. Used
// exclusively by package arcgen's continuation.
func (q *Queue) SubmitArcChord(reg *config.Registry, target [config.NumAxes]float64, moveTimeMin float64, lineNumber uint32) (*BF, error) {
	return q.submitMotion(reg, target, moveTimeMin, false, lineNumber, MoveArcChord)
}

func (q *Queue) submitMotion(reg *config.Registry, target [config.NumAxes]float64, moveTimeMin float64, isRapid bool, lineNumber uint32, moveType MoveType) (*BF, error) {
	if q.Available() == 0 {
		return nil, tinygerr.ErrQueueFull
	}

	prev := q.lastTarget
	if !q.haveLast {
		prev = [config.NumAxes]float64{}
	}

	var delta [config.NumAxes]float64
	for i := 0; i < config.NumAxes; i++ {
		d := target[i] - prev[i]
		if reg.Axes[i].Mode == config.AxisRadius {
			d = d * (math_Pi / 180) * reg.Axes[i].Radius * reg.Axes[i].RadiusSign
		}
		delta[i] = d
	}

	length := vectorLength(delta[:])
	if length < epsilonLength(reg) {
		return nil, tinygerr.ErrZeroLengthMove
	}

	unit := make([]float64, config.NumAxes)
	for i := range unit {
		unit[i] = delta[i] / length
	}

	cruiseVmax := axisLimitedVelocity(reg, unit, isRapid)
	requested := 0.0
	if moveTimeMin > 0 {
		requested = length / moveTimeMin
	}
	if requested > 0 && requested < cruiseVmax {
		cruiseVmax = requested
	}

	jerkNorm := minAxisJerk(reg, unit)
	junctionDev := minAxisJunctionDeviation(reg, unit)

	var entryVmax float64
	prevCruiseVmax := cruiseVmax
	if n := q.newest(); n != nil {
		prevCruiseVmax = n.CruiseVmax
		entryVmax = junctionVelocity(q.lastUnit[:], unit, jerkNorm, junctionDev, prevCruiseVmax, cruiseVmax)
	} else {
		entryVmax = 0
	}

	bf := &q.buffers[q.writeIdx]
	*bf = BF{
		State:      Queued,
		MoveType:   moveType,
		Length:     length,
		EntryVmax:  entryVmax,
		CruiseVmax: cruiseVmax,
		ExitVmax:   cruiseVmax,
		ExitV:      0,
		Jerk:       jerkNorm,
		LineNumber: lineNumber,
	}
	copy(bf.Unit[:], unit)
	bf.Target = target

	q.writeIdx = q.idxAfter(q.writeIdx)
	q.count++
	q.lastTarget = target
	copy(q.lastUnit[:], unit)
	q.haveLast = true

	q.backPlan()
	return bf, nil
}

// SubmitDwell enqueues a dwell of the given duration.
func (q *Queue) SubmitDwell(seconds float64, lineNumber uint32) (*BF, error) {
	if q.Available() == 0 {
		return nil, tinygerr.ErrQueueFull
	}
	bf := &q.buffers[q.writeIdx]
	*bf = BF{State: Queued, MoveType: MoveDwell, DwellSeconds: seconds, LineNumber: lineNumber}
	q.writeIdx = q.idxAfter(q.writeIdx)
	q.count++
	return bf, nil
}

// SubmitMCode enqueues an M-code of the given kind (spindle/coolant/etc).
func (q *Queue) SubmitMCode(kind int, lineNumber uint32) (*BF, error) {
	if q.Available() == 0 {
		return nil, tinygerr.ErrQueueFull
	}
	bf := &q.buffers[q.writeIdx]
	*bf = BF{State: Queued, MoveType: MoveMCode, MCode: kind, LineNumber: lineNumber}
	q.writeIdx = q.idxAfter(q.writeIdx)
	q.count++
	return bf, nil
}

// SubmitNull enqueues a null move (no-op placeholder consumed by the
// executor to keep the pipeline primed).
func (q *Queue) SubmitNull() (*BF, error) {
	if q.Available() == 0 {
		return nil, tinygerr.ErrQueueFull
	}
	bf := &q.buffers[q.writeIdx]
	*bf = BF{State: Queued, MoveType: MoveNull}
	q.writeIdx = q.idxAfter(q.writeIdx)
	q.count++
	return bf, nil
}

// PopRunning retires the currently running buffer (its last segment
// has been loaded) and advances the run cursor to the next queued
// buffer, promoting it to Running with its head/body/tail forward-planned,
// and returns it. Returns nil if the queue is empty.
func (q *Queue) PopRunning() *BF {
	if q.count == 0 {
		return nil
	}
	q.buffers[q.runIdx].Reset()
	q.runIdx = q.idxAfter(q.runIdx)
	q.count--
	if q.count == 0 {
		return nil
	}
	next := &q.buffers[q.runIdx]
	next.State = Running
	next.ForwardPlan()
	return next
}

// Peek returns the currently running (or next-to-run) buffer without
// popping it, or nil if the queue is empty.
func (q *Queue) Peek() *BF {
	if q.count == 0 {
		return nil
	}
	return &q.buffers[q.runIdx]
}

// PeekPending returns the buffer immediately after the running one
// (its State becomes Pending once a successor exists), or nil.
func (q *Queue) PeekPending() *BF {
	if q.count < 2 {
		return nil
	}
	idx := q.idxAfter(q.runIdx)
	return &q.buffers[idx]
}

// Drain empties every buffer in the ring without executing it and
// resets the write/run cursors, per spec.md §4.5's "motion aborted,
// planner drained without emitting further motion" alarm behavior. The
// last commanded target/unit vector are left intact so a subsequent
// submission after reset still computes its delta from the actual last
// commanded position.
func (q *Queue) Drain() {
	for i := range q.buffers {
		q.buffers[i].Reset()
	}
	q.writeIdx = 0
	q.runIdx = 0
	q.count = 0
}

const math_Pi = 3.14159265358979323846

func epsilonLength(reg *config.Registry) float64 {
	e := reg.System.MinSegmentLen / 10
	if e <= 0 {
		e = 1e-6
	}
	return e
}

func vectorLength(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}
	return float64(tinymath.Sqrt(float32(s)))
}

func axisLimitedVelocity(reg *config.Registry, unit []float64, isRapid bool) float64 {
	limit := -1.0
	for i, u := range unit {
		if u == 0 {
			continue
		}
		au := u
		if au < 0 {
			au = -au
		}
		var axisLimit float64
		if isRapid {
			axisLimit = reg.Axes[i].VelocityMax
		} else {
			axisLimit = reg.Axes[i].FeedrateMax
		}
		v := axisLimit / au
		if limit < 0 || v < limit {
			limit = v
		}
	}
	if limit < 0 {
		limit = 0
	}
	return limit
}

func minAxisJerk(reg *config.Registry, unit []float64) float64 {
	j := -1.0
	for i, u := range unit {
		if u == 0 {
			continue
		}
		if j < 0 || reg.Axes[i].JerkMax < j {
			j = reg.Axes[i].JerkMax
		}
	}
	if j < 0 {
		j = 0
	}
	return j
}

func minAxisJunctionDeviation(reg *config.Registry, unit []float64) float64 {
	d := -1.0
	for i, u := range unit {
		if u == 0 {
			continue
		}
		if d < 0 || reg.Axes[i].JunctionDeviation < d {
			d = reg.Axes[i].JunctionDeviation
		}
	}
	if d < 0 {
		d = 0
	}
	return d
}
