// Package stepgen implements the HI-priority step pulse generator: a
// per-motor Bresenham/DDA that distributes each segment's step count
// uniformly over the HI-rate ticks of that segment, per spec.md §4.4.
// Engine.Tick's per-tick DDA update is integer arithmetic, per spec.md
// §9's "timing-critical ISR code must use integers only" mandate. At a
// segment boundary Tick calls the Loader synchronously, and that call
// runs the executor's floating-point segment computation.
package stepgen

import (
	"github.com/synthetos/tinyg-motion/config"
	"github.com/synthetos/tinyg-motion/executor"
	"github.com/synthetos/tinyg-motion/motorport"
	"github.com/synthetos/tinyg-motion/tinygerr"
)

// DefaultDwellTickHz is the fixed tick rate used to size the downcount
// for segments that move no motor (dwell, null, M-code): spec.md §4.4
// calls for "typically a fixed high rate" and the REDESIGN FLAGS note
// says the non-overclock major-axis rate drives the DDA frequency
// directly when steps are present, so this constant only matters when
// there is no major axis to derive a rate from.
const DefaultDwellTickHz = 10000

// Config holds stepgen-wide options resolved at Engine construction.
type Config struct {
	// Overclock would run the DDA at a multiple of the major axis's
	// step rate instead of driving it directly, the source's deprecated
	// branch "retained in case re-enabled". Always false here: spec.md
	// §9 settles on the major-axis-drives-frequency convention, so
	// SetConfig rejects true rather than silently ignoring it.
	Overclock bool
}

// RunSegment (ST) is the live pulse-generation state, written by the
// Loader and consumed exclusively by Engine.Tick — owned by HI, per
// spec.md §5's single-owner-per-cursor discipline.
type RunSegment struct {
	stepCount       [config.NumMotors]uint32
	dir             [config.NumMotors]uint8
	counter         [config.NumMotors]int32
	ticksPerSegment uint32
	tickCount       uint32
}

// loadFrom converts a Prep Segment into live run state: the Bresenham
// accumulator for each motor starts at 0, and ticksPerSegment is the
// major (largest-step-count) axis's step count so that axis fires
// once per tick and the rest fire proportionally less often.
func (st *RunSegment) loadFrom(seg executor.Segment, polarity [config.NumMotors]uint8) {
	var major uint32
	for m, s := range seg.Steps {
		n := uint32(s)
		dir := polarity[m]
		if s < 0 {
			n = uint32(-s)
			dir ^= 1
		}
		st.stepCount[m] = n
		st.dir[m] = dir
		st.counter[m] = 0
		if n > major {
			major = n
		}
	}
	if major > 0 {
		st.ticksPerSegment = major
	} else {
		st.ticksPerSegment = dwellTicks(seg)
	}
	st.tickCount = st.ticksPerSegment
}

func dwellTicks(seg executor.Segment) uint32 {
	ticks := uint32(seg.DurationMin * 60 * DefaultDwellTickHz)
	if ticks == 0 {
		ticks = 1
	}
	return ticks
}

// SegmentSource is satisfied by *executor.Executor; the indirection
// lets stepgen be tested against a fake producer without constructing
// a planner queue.
type SegmentSource interface {
	Next(snap config.Snapshot) executor.Segment
}

// Loader is the MED-priority segment loader: it owns the single
// "request next segment" call into the executor. Kept separate from
// Engine so the MED/HI ownership split in spec.md §5 stays visible in
// the type structure, even though both run synchronously here.
type Loader struct {
	src SegmentSource
}

// NewLoader returns a loader pulling prep segments from src.
func NewLoader(src SegmentSource) *Loader {
	return &Loader{src: src}
}

// LoadNext requests the next Prep Segment and loads it into out.
// Returns false if the executor reported idle (queue empty).
func (l *Loader) LoadNext(snap config.Snapshot, polarity [config.NumMotors]uint8, out *RunSegment) bool {
	seg := l.src.Next(snap)
	if seg.Idle {
		out.loadFrom(executor.Segment{DurationMin: 1.0 / 60 / DefaultDwellTickHz}, polarity)
		return false
	}
	out.loadFrom(seg, polarity)
	return true
}

// PulseSink emits one STEP pulse for motor with the given direction bit.
// The pulse-width requirement (spec.md §4.4) is the sink's concern —
// whatever guarantees SET/CLEAR separation on the target platform.
type PulseSink interface {
	Pulse(motor int, dir uint8)
}

// Engine is the HI-priority step ISR stand-in: Tick advances every
// motor's DDA accumulator by one tick, emits due pulses, and on
// segment completion invokes the per-motor idle-power policy before
// requesting the next segment from the loader.
type Engine struct {
	live     RunSegment
	sink     PulseSink
	loader   *Loader
	snap     config.Snapshot
	polarity [config.NumMotors]uint8
	idle     [config.NumMotors]*motorport.IdleTimer
	port     [config.NumMotors]motorport.Port
	cfg      Config
	halted   bool
}

// NewEngine returns an Engine primed with the first segment from loader.
func NewEngine(loader *Loader, sink PulseSink, snap config.Snapshot, polarity [config.NumMotors]uint8) *Engine {
	e := &Engine{loader: loader, sink: sink, snap: snap, polarity: polarity}
	e.loadNext()
	return e
}

// SetIdleTimer wires an idle-power policy for motor m. A nil timer
// (the default) means the motor never auto-idles.
func (e *Engine) SetIdleTimer(m int, t *motorport.IdleTimer) {
	e.idle[m] = t
}

// SetPort wires the motor driver chip for m. When both a Port and an
// IdleTimer are set for the same motor, Tick drives the chip's enable
// line directly from the idle-power countdown: re-energized on the
// first step of new motion, de-energized once the hold window expires.
func (e *Engine) SetPort(m int, p motorport.Port) {
	e.port[m] = p
}

// SetConfig applies stepgen-wide options. Returns an error and leaves
// the engine unchanged if cfg asks for the unsupported overclock mode.
func (e *Engine) SetConfig(cfg Config) error {
	if cfg.Overclock {
		return tinygerr.ErrNotSupported
	}
	e.cfg = cfg
	return nil
}

func (e *Engine) loadNext() {
	e.loader.LoadNext(e.snap, e.polarity, &e.live)
}

// Halt suppresses further segment loads at the next segment boundary,
// per spec.md §4.5's alarm handling: "motion aborted ... without
// emitting further motion". The segment already in flight still runs
// to completion — spec.md §5 "Cancellation" forbids cutting the active
// HI-ISR segment mid-flight, to preserve pulse-train integrity — only
// the load that would otherwise follow it is skipped.
func (e *Engine) Halt() { e.halted = true }

// Resume clears a prior Halt, letting Tick load segments again from the
// loader on the next boundary. Called once the cycle controller leaves
// Alarm/Shutdown via reset.
func (e *Engine) Resume() { e.halted = false }

// Halted reports whether the engine is currently suppressing loads.
func (e *Engine) Halted() bool { return e.halted }

// SetSnapshot replaces the cached config snapshot the engine hands to
// the executor on each load. tinyg.Machine does not call it, so a
// Machine's engine keeps the snapshot it was constructed with.
func (e *Engine) SetSnapshot(snap config.Snapshot) {
	e.snap = snap
}

// Tick runs one HI-rate timer tick. Dwell segments run the same path
// with every stepCount zero, so no pulse is ever emitted but the
// downcount still completes (spec.md §4.4's "identical ISR but no step
// emission").
func (e *Engine) Tick() {
	if e.live.tickCount == 0 {
		return
	}
	for m := 0; m < config.NumMotors; m++ {
		n := int32(e.live.stepCount[m])
		if n == 0 {
			continue
		}
		e.live.counter[m] -= n
		if e.live.counter[m] < 0 {
			if e.sink != nil {
				e.sink.Pulse(m, e.live.dir[m])
			}
			e.live.counter[m] += int32(e.live.ticksPerSegment)
			if e.idle[m] != nil {
				wasIdle := e.idle[m].Idle()
				e.idle[m].Touch()
				if wasIdle && e.port[m] != nil {
					e.port[m].SetEnabled(true)
				}
			}
		}
	}
	e.live.tickCount--
	if e.live.tickCount == 0 {
		for m := 0; m < config.NumMotors; m++ {
			if e.live.stepCount[m] == 0 && e.idle[m] != nil {
				if e.idle[m].Tick() && e.port[m] != nil {
					e.port[m].SetEnabled(false)
				}
			}
		}
		if !e.halted {
			e.loadNext()
		}
	}
}

// Idle reports whether the live segment is the synthetic idle filler
// loaded when the executor has nothing queued.
func (e *Engine) Idle() bool {
	for _, n := range e.live.stepCount {
		if n != 0 {
			return false
		}
	}
	return e.live.ticksPerSegment <= 1
}
