// Package planner implements the motion planner: a bounded ring of
// planning buffers (BF) back-planned into a jerk-limited velocity
// profile honoring continuity at block junctions, per spec.md §3/§4.1.
package planner

import "github.com/synthetos/tinyg-motion/config"

// BFState is the lifecycle state of one planner buffer.
type BFState uint8

const (
	Empty BFState = iota
	Queued
	Pending
	Running
)

// MoveType distinguishes what kind of motion a buffer represents.
type MoveType uint8

const (
	MoveNull MoveType = iota
	MoveLine
	MoveArcChord
	MoveDwell
	MoveMCode
)

// BF is one planned move: a Buffer-Full block in TinyG terminology.
type BF struct {
	State    BFState
	MoveType MoveType

	Unit   [config.NumAxes]float64 // unit vector over the geometric axes
	Target [config.NumAxes]float64 // absolute target position, canonical units
	Length float64                 // geometric length (mm-equivalent)

	EntryVmax, CruiseVmax, ExitVmax float64
	EntryV, CruiseV, ExitV          float64

	Head, Body, Tail float64 // lengths of each phase, Head+Body+Tail == Length
	Jerk             float64

	LineNumber uint32

	DwellSeconds float64
	MCode        int

	dirty bool // not set by any code path; backPlan repeats whole sweeps instead
}

// Reset clears a buffer back to Empty, ready for reuse. Called once the
// buffer's last segment has been loaded by the executor.
func (b *BF) Reset() {
	*b = BF{}
}

// IsMotion reports whether this buffer produces step pulses (as
// opposed to a dwell, M-code, or null move).
func (b *BF) IsMotion() bool {
	return b.MoveType == MoveLine || b.MoveType == MoveArcChord
}
