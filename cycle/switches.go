package cycle

import (
	"sync/atomic"

	"github.com/synthetos/tinyg-motion/config"
)

// Switches is the limit/homing switch state shared between the switch
// ISR (writer) and the foreground cycle controller (reader), per
// spec.md §3's "Switch state" entry. Every field is touched only via
// atomic ops so no lock is needed across the ISR/foreground boundary.
type Switches struct {
	minThrown [config.NumAxes]int32
	maxThrown [config.NumAxes]int32
	lockout   [config.NumAxes]uint32
}

// NewSwitches returns an all-clear switch state.
func NewSwitches() *Switches {
	return &Switches{}
}

// Trip records an edge on axis's min or max switch, called from
// switch-ISR context. Edges observed during the axis's lockout window
// are ignored — a switch must be stable for the window before it can
// re-arm, per spec.md §5's ordering guarantee.
func (s *Switches) Trip(axis int, isMax bool, lockoutTicks uint32) {
	if axis < 0 || axis >= config.NumAxes {
		return
	}
	if atomic.LoadUint32(&s.lockout[axis]) > 0 {
		return
	}
	if isMax {
		atomic.StoreInt32(&s.maxThrown[axis], 1)
	} else {
		atomic.StoreInt32(&s.minThrown[axis], 1)
	}
	atomic.StoreUint32(&s.lockout[axis], lockoutTicks)
}

// Tick decrements every axis's lockout counter by one tick. Called
// once per periodic tick from MED.
func (s *Switches) Tick() {
	for i := range s.lockout {
		for {
			old := atomic.LoadUint32(&s.lockout[i])
			if old == 0 {
				break
			}
			if atomic.CompareAndSwapUint32(&s.lockout[i], old, old-1) {
				break
			}
		}
	}
}

// ConsumeAny atomically reads and clears the first thrown switch it
// finds, scanning axes in ascending order, min before max. Used by the
// cycle controller's fixed dispatch list to test-and-clear once per
// foreground iteration.
func (s *Switches) ConsumeAny() (axis int, isMax bool, ok bool) {
	for i := 0; i < config.NumAxes; i++ {
		if atomic.CompareAndSwapInt32(&s.minThrown[i], 1, 0) {
			return i, false, true
		}
		if atomic.CompareAndSwapInt32(&s.maxThrown[i], 1, 0) {
			return i, true, true
		}
	}
	return 0, false, false
}
