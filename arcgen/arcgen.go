// Package arcgen decomposes an arc request into short chord lines fed
// into the planner one at a time, per spec.md §4.2. It is a small
// continuation object (spec.md §9 "Continuation-style arc generator"):
// Step either enqueues the next chord and reports Pending, or reports
// Done, pausing cooperatively when the planner queue is full instead
// of blocking the foreground loop.
package arcgen

import (
	"math"

	"github.com/orsinium-labs/tinymath"

	"github.com/synthetos/tinyg-motion/config"
	"github.com/synthetos/tinyg-motion/planner"
	"github.com/synthetos/tinyg-motion/tinygerr"
)

// Status reports the outcome of one Step call.
type Status uint8

const (
	Done Status = iota
	Pending
	WouldBlock
)

// Request describes one arc command from the canonical-machine façade.
type Request struct {
	Start         [config.NumAxes]float64 // absolute position before the arc
	Target        [config.NumAxes]float64 // absolute position after the arc
	IJK           [2]float64               // center offsets in the motion plane, relative to Start
	Radius        float64                  // used instead of IJK when UseRadius is set
	UseRadius     bool
	Clockwise     bool
	PlaneAxes     [2]int // indices into config axes for the two in-plane axes (e.g. X,Y for G17)
	LinearAxis    int    // index of the axis advancing linearly through the arc (e.g. Z for G17)
	DurationMin   float64
	LineNumber    uint32
}

// Generator is the continuation state machine for one in-flight arc.
// Zero value is "idle, no arc in progress".
type Generator struct {
	active bool

	reg   *config.Registry
	queue *planner.Queue

	center     [2]float64
	planeAxes  [2]int
	linearAxis int
	radius     float64
	thetaStart float64
	thetaStep  float64
	linStart   float64
	linStep    float64
	segCount   int
	segDone    int
	target     [config.NumAxes]float64
	otherAxes  [config.NumAxes]float64 // non-plane, non-linear axes held constant across chords
	lineNumber uint32
}

// Begin starts a new arc, computing its geometry and segment count. It
// fails with ArcSpecificationError if the arc is shorter than the
// configured minimum segment length, or InternalError if called while
// a prior arc still holds the write slot (spec.md §4.1's "InternalError
// if called while a prior arc request is mid-generation").
func (g *Generator) Begin(reg *config.Registry, q *planner.Queue, req Request) error {
	if g.active {
		return tinygerr.ErrInternal
	}

	a, b := req.PlaneAxes[0], req.PlaneAxes[1]
	startA, startB := req.Start[a], req.Start[b]
	targetA, targetB := req.Target[a], req.Target[b]

	ijk := req.IJK
	if req.UseRadius {
		var err error
		ijk, err = radiusToOffset(startA, startB, targetA, targetB, req.Radius, req.Clockwise)
		if err != nil {
			return err
		}
	}

	centerA := startA + ijk[0]
	centerB := startB + ijk[1]
	radius := math.Hypot(ijk[0], ijk[1])

	p1a, p1b := -ijk[0], -ijk[1] // vector center->start
	p2a, p2b := targetA-centerA, targetB-centerB

	cross := p1a*p2b - p1b*p2a
	dotp := p1a*p2a + p1b*p2b
	angularTravel := math.Atan2(cross, dotp)

	const fullCircleEpsilon = 1e-9
	if math.Abs(angularTravel) < fullCircleEpsilon && math.Abs(targetA-startA) < fullCircleEpsilon && math.Abs(targetB-startB) < fullCircleEpsilon {
		if req.Clockwise {
			angularTravel = -2 * math.Pi
		} else {
			angularTravel = 2 * math.Pi
		}
	} else {
		if req.Clockwise && angularTravel > 0 {
			angularTravel -= 2 * math.Pi
		} else if !req.Clockwise && angularTravel < 0 {
			angularTravel += 2 * math.Pi
		}
	}

	linearTravel := req.Target[req.LinearAxis] - req.Start[req.LinearAxis]
	arcLength := math.Hypot(math.Abs(angularTravel)*radius, linearTravel)
	if arcLength < reg.System.MinSegmentLen {
		return tinygerr.ErrArcSpecification
	}

	n := 1
	if reg.System.MinSegmentTimeUS > 0 && req.DurationMin > 0 {
		minSegTimeMin := reg.System.MinSegmentTimeUS / 1e6 / 60
		if byTime := int(math.Ceil(req.DurationMin / minSegTimeMin)); byTime > n {
			n = byTime
		}
	}
	if reg.System.ArcSegmentLen > 0 {
		if byLen := int(math.Ceil(arcLength / reg.System.ArcSegmentLen)); byLen > n {
			n = byLen
		}
	}

	thetaStart := math.Atan2(p1b, p1a)

	g.active = true
	g.reg = reg
	g.queue = q
	g.center = [2]float64{centerA, centerB}
	g.planeAxes = req.PlaneAxes
	g.linearAxis = req.LinearAxis
	g.radius = radius
	g.thetaStart = thetaStart
	g.thetaStep = angularTravel / float64(n)
	g.linStart = req.Start[req.LinearAxis]
	g.linStep = linearTravel / float64(n)
	g.segCount = n
	g.segDone = 0
	g.target = req.Target
	g.otherAxes = req.Start
	g.lineNumber = req.LineNumber
	return nil
}

// Step submits the next chord line, returning Pending if more chords
// remain, WouldBlock (with no chord submitted) if the queue is full and
// the caller must retry, or Done once the arc is fully submitted (with
// the final chord's endpoint snapped exactly to the originally
// requested target, per spec.md §4.2's tie-breaking rule).
func (g *Generator) Step() Status {
	if !g.active {
		return Done
	}
	for g.segDone < g.segCount {
		if g.queue.Available() == 0 {
			return WouldBlock
		}

		g.segDone++
		var pos [config.NumAxes]float64 = g.otherAxes

		if g.segDone == g.segCount {
			pos = g.target
		} else {
			theta := g.thetaStart + g.thetaStep*float64(g.segDone)
			cosT := tinymath.Cos(float32(theta))
			sinT := tinymath.Sin(float32(theta))
			pos[g.planeAxes[0]] = g.center[0] + g.radius*float64(cosT)
			pos[g.planeAxes[1]] = g.center[1] + g.radius*float64(sinT)
			pos[g.linearAxis] = g.linStart + g.linStep*float64(g.segDone)
		}

		moveTime := 0.0 // let the planner's own axis-limit/feed logic govern chord speed
		_, err := g.queue.SubmitArcChord(g.reg, pos, moveTime, g.lineNumber)
		if err != nil {
			// QueueFull raced with the Available() check above (e.g. a
			// concurrent foreground submission) — undo the segment
			// advance and ask the caller to retry.
			g.segDone--
			return WouldBlock
		}
		if g.segDone < g.segCount {
			return Pending
		}
	}
	g.active = false
	return Done
}

// Active reports whether an arc continuation is in progress.
func (g *Generator) Active() bool { return g.active }

// radiusToOffset derives IJK-style center offsets from an R-format arc
// specification, the standard perpendicular-bisector construction used
// by grbl/TinyG-class controllers: the two candidate circle centers
// through start and target are resolved by the clockwise/radius-sign
// convention: a positive radius selects the arc of at most 180 degrees,
// a negative radius the longer arc.
func radiusToOffset(x1, y1, x2, y2, radius float64, clockwise bool) ([2]float64, error) {
	x, y := x2-x1, y2-y1
	distSq := x*x + y*y
	if distSq == 0 {
		return [2]float64{}, tinygerr.ErrArcSpecification
	}
	h2 := 4*radius*radius - distSq
	if h2 < 0 {
		return [2]float64{}, tinygerr.ErrArcSpecification
	}
	h := -math.Sqrt(h2) / math.Sqrt(distSq)
	if !clockwise != (radius < 0) {
		h = -h
	}
	if radius < 0 {
		radius = -radius
	}
	return [2]float64{0.5 * (x - y*h), 0.5 * (y + x*h)}, nil
}
