package motorport

import (
	"github.com/orsinium-labs/tinymath"
	"golang.org/x/exp/constraints"
)

// maxVMAX bounds the register-level target-velocity value, kept from
// the teacher's tmc5160/stepper.go constant of the same name.
const maxVMAX = 8388096

// Common stepper motor angles and microstepping options, kept from the
// teacher's tmc5160/stepper.go.
const (
	StepAngle_1_8  = 1.8
	StepAngle_0_9  = 0.9
	StepAngle_0_72 = 0.72
	StepAngle_1_2  = 1.2
	StepAngle_0_48 = 0.48
)

// Stepper holds the mechanical parameters of one physical motor,
// shared by every Port adapter for velocity<->register conversions.
type Stepper struct {
	AngleDeg    float32
	GearRatio   float32
	VSupply     float32
	RCoil       float32
	LCoil       float32
	IPeak       float32
	RSense      float32
	MSteps      uint8
	FclkMHz     uint8
}

// NewDefaultStepper returns a Stepper with the teacher's own test
// defaults (1.8deg, 1:1 gearing, 12V, 16 microsteps, 12MHz clock).
func NewDefaultStepper() Stepper {
	return Stepper{
		AngleDeg:  StepAngle_1_8,
		GearRatio: 1.0,
		VSupply:   12.0,
		RCoil:     1.2,
		LCoil:     0.005,
		IPeak:     2.0,
		RSense:    0.1,
		MSteps:    16,
		FclkMHz:   12,
	}
}

// DesiredVelocityToVMAX converts a velocity in microsteps/sec into the
// ramp generator's VMAX register units (1/tREF), clamped to maxVMAX.
func (s Stepper) DesiredVelocityToVMAX(v float32) uint32 {
	tref := 16777216 / (float32(s.FclkMHz) * 1000000)
	r := tinymath.Round(v * s.GearRatio * tref)
	return clamp(uint32(r), 0, maxVMAX)
}

// DesiredSpeedToTSTEP converts a threshold speed (Hz) into the
// chip's internal TSTEP units, used for stealthChop/coolStep
// threshold configuration.
func (s Stepper) DesiredSpeedToTSTEP(thrsSpeed uint32) uint32 {
	vmax := s.DesiredVelocityToVMAX(float32(thrsSpeed))
	if vmax == 0 {
		return clamp(uint32(0), 0, 1048575)
	}
	a := float32(16777216 / vmax)
	b := float32(s.MSteps) / float32(256)
	return clamp(uint32(a*b), 0, 1048575)
}

// clamp constrains value to [lo, hi], following the teacher's own
// generic constrain[T] helper in tmc5160/helpers.go.
func clamp[T constraints.Ordered](value, lo, hi T) T {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
