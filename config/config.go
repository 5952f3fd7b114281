// Package config owns the single configuration Registry shared across
// the motion core. Parameters are mutated only from foreground and
// only while the cycle controller reports MotionState == Stop; the
// HI/MED priority levels only ever see a Snapshot (a value copy), never
// a pointer into the mutable Registry, per the "Global cfg struct"
// design note.
package config

import "golang.org/x/exp/constraints"

// AxisMode selects how an axis participates in motion.
type AxisMode uint8

const (
	AxisDisabled AxisMode = iota
	AxisStandard
	AxisInhibited
	AxisRadius
	AxisSlaveX
	AxisSlaveY
	AxisSlaveZ
	AxisSlaveXY
	AxisSlaveXZ
	AxisSlaveYZ
	AxisSlaveXYZ
)

// SwitchMode selects limit/homing switch wiring per axis edge.
type SwitchMode uint8

const (
	SwitchDisabled SwitchMode = iota
	SwitchHomingNO
	SwitchEnabledNO
	SwitchHomingNC
	SwitchEnabledNC
)

// IdlePowerMode selects motor de-energize behavior between moves.
type IdlePowerMode uint8

const (
	IdlePowerAlwaysOn IdlePowerMode = iota
	IdlePowerTimeout
	IdlePowerAlwaysOff
)

// NumAxes is the fixed axis count: X Y Z A B C.
const NumAxes = 6

// NumMotors is the fixed motor count this registry supports.
const NumMotors = 6

// AxisConfig is the static kinematic configuration of one axis.
type AxisConfig struct {
	Mode AxisMode

	FeedrateMax       float64 // mm/min or deg/min
	VelocityMax       float64 // traverse (rapid) rate
	TravelMax         float64 // soft travel limit, advisory only at this layer
	JerkMax           float64 // mm/min^3
	JunctionDeviation float64 // mm
	Radius            float64 // rotary-axis effective radius, mm

	// RadiusSign resolves the Open Question on radius-mode rotary axes:
	// it is independent of the driving motor's Polarity (see motorport).
	RadiusSign float64

	SwitchModeMin SwitchMode
	SwitchModeMax SwitchMode

	HomingSearchVelocity float64
	HomingLatchVelocity  float64
	HomingLatchBackoff   float64
	HomingZeroBackoff    float64
}

// MotorConfig maps one stepper motor onto an axis.
type MotorConfig struct {
	AxisIndex     int
	Microsteps    uint8 // 1, 2, 4, 8 ... matches motorport chip capability
	Polarity      uint8 // 0 or 1, XORed with computed direction
	IdlePowerMode IdlePowerMode

	// IdleTimeoutTicks is the hold window, in segment-completion ticks,
	// a motor configured with IdlePowerTimeout stays energized after its
	// last commanded step before the engine de-energizes it. Unused for
	// IdlePowerAlwaysOn/IdlePowerAlwaysOff.
	IdleTimeoutTicks uint32

	// RunCurrent and HoldCurrent are driver-chip current scale values
	// (0-31, chip-specific), pushed down through motorport.Port.Configure
	// when tinyg.New builds the machine.
	RunCurrent  uint8
	HoldCurrent uint8

	StepAngleDeg float64
	TravelPerRev float64
}

// StepsPerUnit returns steps-per-mm (or steps-per-degree for a rotary
// axis) implied by this motor's mechanical configuration.
func (m MotorConfig) StepsPerUnit() float64 {
	stepsPerRev := 360.0 / m.StepAngleDeg * float64(m.Microsteps)
	if m.TravelPerRev == 0 {
		return 0
	}
	return stepsPerRev / m.TravelPerRev
}

// SystemConfig holds the parameters that are not per-axis or per-motor.
type SystemConfig struct {
	MinSegmentLen        float64 // mm
	ArcSegmentLen        float64 // mm, chord length target for arcgen
	MinSegmentTimeUS     float64 // microseconds
	SegmentTimeMS        float64 // fixed executor segment duration, ~5ms
	JunctionAcceleration float64
	EnableAcceleration   bool

	// SubstepShift is the power-of-two fixed-point scale applied to the
	// DDA accumulator (see stepgen). 8 means 256 sub-steps per step.
	SubstepShift uint8

	// SwitchLockoutTicks is the debounce window (in periodic switch-tick
	// units) a limit/homing switch stays latched before it can re-arm.
	SwitchLockoutTicks uint32
}

// GCodeDefaults mirrors the modal state the canonical-machine façade
// resolves before handing targets to the core; the core only reads
// these as defaults for a fresh cycle.
type GCodeDefaults struct {
	CoordSystem  uint8 // 54..59 (G54-G59)
	Plane        uint8 // 17, 18, 19
	UnitsMM      bool  // true = G21 mm, false = G20 inch
	PathControl  uint8 // 0=G61 exact stop, 1=G61.1 exact path, 2=G64 continuous
	DistanceMode uint8 // 0=G90 absolute, 1=G91 incremental
}

// Registry is the single owned configuration object. It is safe to
// share a *Registry across the foreground only; ISR contexts must call
// Snapshot and keep the returned value, never the pointer.
type Registry struct {
	Axes   [NumAxes]AxisConfig
	Motors [NumMotors]MotorConfig
	System SystemConfig
	GCode  GCodeDefaults
}

// Snapshot is a value copy of the Registry, safe to read from any
// priority level without synchronization because Go assigns it as one
// copy at a known sequence point (the foreground's call to Snapshot).
type Snapshot struct {
	Axes   [NumAxes]AxisConfig
	Motors [NumMotors]MotorConfig
	System SystemConfig
	GCode  GCodeDefaults
}

// Snapshot copies the current registry state for ISR/MED consumption.
func (r *Registry) Snapshot() Snapshot {
	return Snapshot{
		Axes:   r.Axes,
		Motors: r.Motors,
		System: r.System,
		GCode:  r.GCode,
	}
}

// Default returns a Registry populated with the literal values used
// throughout spec.md's worked examples (x/y jerk 5e7 mm/min^3,
// junction_dev 0.05mm, feed 1200mm/min, 100 steps/mm).
func Default() *Registry {
	r := &Registry{}
	for i := range r.Axes {
		r.Axes[i] = AxisConfig{
			Mode:              AxisStandard,
			FeedrateMax:       1200,
			VelocityMax:       3000,
			TravelMax:         500,
			JerkMax:           5e7,
			JunctionDeviation: 0.05,
			RadiusSign:        1,
			SwitchModeMin:     SwitchDisabled,
			SwitchModeMax:     SwitchDisabled,
		}
	}
	for i := range r.Motors {
		r.Motors[i] = MotorConfig{
			AxisIndex:        i,
			Microsteps:       16,
			IdlePowerMode:    IdlePowerTimeout,
			IdleTimeoutTicks: 200,
			RunCurrent:       20,
			HoldCurrent:      10,
			StepAngleDeg:     1.8,
			TravelPerRev:     360.0 / 1.8 * 1.8 / 100, // placeholder, overwritten below
		}
	}
	// 100 steps/mm at 1.8deg, 16 microsteps: stepsPerRev = 200*16 = 3200,
	// travelPerRev = 3200/100 = 32mm.
	for i := range r.Motors {
		r.Motors[i].TravelPerRev = 32
	}
	r.System = SystemConfig{
		MinSegmentLen:      0.01,
		ArcSegmentLen:      0.1,
		MinSegmentTimeUS:   2500,
		SegmentTimeMS:      5,
		SubstepShift:       8,
		SwitchLockoutTicks: 50,
	}
	r.GCode = GCodeDefaults{CoordSystem: 54, Plane: 17, UnitsMM: true}
	return r
}

// clamp constrains value to [lo, hi], following the teacher's own
// generic constrain[T] helper.
func clamp[T constraints.Ordered](value, lo, hi T) T {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// SetAxisJerkMax clamps and stores JerkMax for axis i. Returns false if
// the axis index is out of range.
func (r *Registry) SetAxisJerkMax(axis int, jerkMax float64) bool {
	if axis < 0 || axis >= NumAxes {
		return false
	}
	r.Axes[axis].JerkMax = clamp(jerkMax, 0, 1e12)
	return true
}

// SetMicrosteps snaps microsteps to the largest value in
// {1,2,4,8,16,32,64,128} that does not exceed the requested value (1 for
// a request of 0) and stores it for motor m. 256 is not in the set
// because Microsteps is a uint8.
func (r *Registry) SetMicrosteps(motor int, want uint8) bool {
	if motor < 0 || motor >= NumMotors {
		return false
	}
	valid := [...]uint8{1, 2, 4, 8, 16, 32, 64, 128}
	best := valid[0]
	for _, v := range valid {
		if v <= want {
			best = v
		}
	}
	r.Motors[motor].Microsteps = best
	return true
}
