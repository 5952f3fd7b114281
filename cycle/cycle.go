// Package cycle implements the cycle controller: the hierarchical
// state machine coordinating idle/cycle-running/feedhold/alarm, the
// entry point for homing/probing, and the target of limit-switch
// notifications, per spec.md §4.5. Its RunDispatch method is the fixed
// dispatch list of spec.md §7: reset, bootloader, alarm-idler, limit,
// system assertions, feedhold, cycle-start, planner sync, command —
// an earlier stage reporting handled short-circuits the rest of that
// iteration, which is how alarm latches out motion.
package cycle

import (
	"github.com/synthetos/tinyg-motion/config"
	"github.com/synthetos/tinyg-motion/planner"
	"github.com/synthetos/tinyg-motion/tinygerr"
)

// MachineState is the top-level machine mode.
type MachineState uint8

const (
	Ready MachineState = iota
	Cycle
	ProgramStop
	ProgramEnd
	Alarm
	Shutdown
)

// CycleState is the active cycle kind.
type CycleState uint8

const (
	CycleOff CycleState = iota
	CycleStarted
	CycleHoming
	CycleProbe
	CycleJog
)

// MotionState reports whether motion is actively running.
type MotionState uint8

const (
	MotionStop MotionState = iota
	MotionRun
	MotionHold
)

// HoldState is the feedhold sub-state machine.
type HoldState uint8

const (
	HoldOff HoldState = iota
	HoldSync
	HoldPlan
	HoldDecel
	HoldHeld
	HoldEnd
)

// Controller is the cycle controller FSM. Zero value is not usable;
// construct with New.
type Controller struct {
	Machine MachineState
	Cycle   CycleState
	Motion  MotionState
	Hold    HoldState

	q        *planner.Queue
	reg      *config.Registry
	switches *Switches

	currentVelocity float64

	resetPending      bool
	cycleStartPending bool
	feedholdPending   bool
	resumePending     bool
	resumeTargetV     float64
	resumeJerk        float64

	homingEventPending bool
	lastHomingAxis     int
	lastHomingMax      bool

	// OnCommand is invoked by the final "command dispatch" stage of
	// RunDispatch when no earlier stage short-circuited the iteration.
	// The façade wires its own per-tick submission/reporting work here;
	// the cycle controller itself owns no command queue.
	OnCommand func()
}

// New returns a controller in the Ready/off/stop/off state.
func New(reg *config.Registry, q *planner.Queue, sw *Switches) *Controller {
	return &Controller{reg: reg, q: q, switches: sw, Machine: Ready}
}

// SetVelocity records the current commanded velocity, fed by the
// segment executor's status each tick; used to size the feedhold decel
// distance.
func (c *Controller) SetVelocity(v float64) { c.currentVelocity = v }

// RequestReset queues a reset for the next dispatch pass. Reset is the
// only way out of Alarm/Shutdown, per spec.md §8 invariant 6.
func (c *Controller) RequestReset() { c.resetPending = true }

// RequestCycleStart queues a cycle-start for the next dispatch pass.
func (c *Controller) RequestCycleStart() { c.cycleStartPending = true }

// RequestFeedhold queues a feedhold for the next dispatch pass.
func (c *Controller) RequestFeedhold() { c.feedholdPending = true }

// RequestResume queues a resume to targetV at the given jerk.
func (c *Controller) RequestResume(targetV, jerk float64) {
	c.resumePending = true
	c.resumeTargetV = targetV
	c.resumeJerk = jerk
}

// NotifyHoldReached is called once the executor reports the held
// buffer's velocity has reached 0, advancing Hold from Decel to Held.
func (c *Controller) NotifyHoldReached() {
	if c.Hold == HoldDecel {
		c.Hold = HoldHeld
	}
}

// HomingEvent reports and clears a switch trip consumed as a
// homing/probe event (rather than an alarm) while Cycle is Homing or
// Probe. ok is false if no such event is pending.
func (c *Controller) HomingEvent() (axis int, isMax bool, ok bool) {
	if !c.homingEventPending {
		return 0, false, false
	}
	c.homingEventPending = false
	return c.lastHomingAxis, c.lastHomingMax, true
}

// RunDispatch runs one foreground iteration of the fixed dispatch list.
func (c *Controller) RunDispatch() {
	if c.dispatchReset() {
		return
	}
	if c.dispatchBootloader() {
		return
	}
	if c.dispatchAlarmIdler() {
		return
	}
	if c.dispatchLimit() {
		return
	}
	if c.dispatchSystemAssertions() {
		return
	}
	if c.dispatchFeedhold() {
		return
	}
	if c.dispatchCycleStart() {
		return
	}
	if c.dispatchPlannerSync() {
		return
	}
	c.dispatchCommand()
}

func (c *Controller) dispatchReset() bool {
	if !c.resetPending {
		return false
	}
	c.resetPending = false
	c.Machine = Ready
	c.Cycle = CycleOff
	c.Motion = MotionStop
	c.Hold = HoldOff
	return true
}

// dispatchBootloader and dispatchSystemAssertions are board-level
// external collaborators (§1 scopes peripheral/board init out of the
// core); they are no-ops here, kept only so RunDispatch's stage order
// matches spec.md §7's fixed list exactly.
func (c *Controller) dispatchBootloader() bool       { return false }
func (c *Controller) dispatchSystemAssertions() bool { return false }

func (c *Controller) dispatchAlarmIdler() bool {
	return c.Machine == Alarm || c.Machine == Shutdown
}

func (c *Controller) dispatchLimit() bool {
	axis, isMax, ok := c.switches.ConsumeAny()
	if !ok {
		return false
	}
	if c.Cycle == CycleHoming || c.Cycle == CycleProbe {
		c.lastHomingAxis, c.lastHomingMax, c.homingEventPending = axis, isMax, true
		return true
	}
	c.Machine = Alarm
	c.Motion = MotionStop
	c.Cycle = CycleOff
	c.Hold = HoldOff
	return true
}

func (c *Controller) dispatchFeedhold() bool {
	if !c.feedholdPending {
		return false
	}
	c.feedholdPending = false
	if c.Motion != MotionRun {
		return true
	}
	c.Hold = HoldSync
	if err := c.q.BeginFeedhold(c.currentVelocity); err != nil {
		if tinygerr.Is(err, tinygerr.KindInternal) {
			c.Machine = Alarm
		}
		return true
	}
	c.Hold = HoldPlan
	c.Hold = HoldDecel
	c.Motion = MotionHold
	return true
}

func (c *Controller) dispatchCycleStart() bool {
	if c.resumePending {
		c.resumePending = false
		if c.Hold == HoldHeld {
			if err := c.q.Resume(c.resumeTargetV, c.resumeJerk); err != nil {
				c.Machine = Alarm
				return true
			}
			c.Hold = HoldEnd
			c.Motion = MotionRun
			c.Hold = HoldOff
			return true
		}
	}
	if c.cycleStartPending {
		c.cycleStartPending = false
		if c.Machine == Ready {
			c.Machine = Cycle
			c.Cycle = CycleStarted
			c.Motion = MotionRun
			c.q.Activate()
			return true
		}
	}
	return false
}

func (c *Controller) dispatchPlannerSync() bool {
	if c.Motion == MotionRun && c.q.Depth() == 0 {
		c.Motion = MotionStop
		c.Machine = ProgramStop
		c.Cycle = CycleOff
		return true
	}
	return false
}

func (c *Controller) dispatchCommand() bool {
	if c.OnCommand != nil {
		c.OnCommand()
	}
	return true
}
