package planner

import "github.com/orsinium-labs/tinymath"

// sCurveDuration returns the time to transition from v1 to v2 under a
// constant-jerk S-curve (two concatenated parabolic-velocity
// half-segments), the closed form from spec.md §4.1: T = 2*sqrt(|v2-v1|/J).
func sCurveDuration(v1, v2, jerk float64) float64 {
	if jerk <= 0 {
		return 0
	}
	delta := v2 - v1
	if delta < 0 {
		delta = -delta
	}
	return 2 * float64(tinymath.Sqrt(float32(delta/jerk)))
}

// sCurveDistance returns the distance covered transitioning from v1 to
// v2 under the same S-curve: D = (v1+v2)*T/2.
func sCurveDistance(v1, v2, jerk float64) float64 {
	t := sCurveDuration(v1, v2, jerk)
	return (v1 + v2) * t / 2
}

// solveProfile computes the achievable (entryV, cruiseV) pair for a
// buffer of length L given a capped entry velocity, a fixed exit
// velocity, the move's own cruise cap, and jerk. It returns a
// trapezoidal profile when accel+decel fit within L, otherwise a
// triangular profile whose peak is found by bisection (the closed
// form is transcendental in the jerk-S-curve model), and lowers the
// entry velocity if even the minimal entry->exit transition overruns L.
func solveProfile(entryCap, exitV, cruiseVmax, length, jerk float64) (entryV, cruiseV float64) {
	if entryCap < 0 {
		entryCap = 0
	}
	if exitV < 0 {
		exitV = 0
	}
	if exitV > cruiseVmax {
		exitV = cruiseVmax
	}
	entryV = entryCap
	if entryV > cruiseVmax {
		entryV = cruiseVmax
	}

	// Does a trapezoid (accel to cruiseVmax, then decel to exitV) fit?
	accel := sCurveDistance(entryV, cruiseVmax, jerk)
	decel := sCurveDistance(cruiseVmax, exitV, jerk)
	if accel+decel <= length {
		return entryV, cruiseVmax
	}

	// Triangular: does even the minimal entry->exit transition fit?
	minDist := sCurveDistance(entryV, exitV, jerk)
	if minDist > length {
		// Reduce entryV toward exitV until the direct transition fits.
		lo, hi := exitV, entryV
		for i := 0; i < 40; i++ {
			mid := (lo + hi) / 2
			if sCurveDistance(mid, exitV, jerk) > length {
				hi = mid
			} else {
				lo = mid
			}
		}
		entryV = lo
		return entryV, maxf(entryV, exitV)
	}

	// Bisect for the peak velocity that makes accel(entry->peak) +
	// decel(peak->exit) exactly L. f is monotonically increasing in peak.
	lo, hi := maxf(entryV, exitV), cruiseVmax
	for i := 0; i < 60; i++ {
		mid := (lo + hi) / 2
		d := sCurveDistance(entryV, mid, jerk) + sCurveDistance(mid, exitV, jerk)
		if d > length {
			hi = mid
		} else {
			lo = mid
		}
	}
	return entryV, lo
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
