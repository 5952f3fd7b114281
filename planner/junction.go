package planner

import (
	"math"

	"github.com/orsinium-labs/tinymath"
)

// junctionVelocity computes the maximum velocity that can be carried
// through the corner between uPrev and uNext without exceeding the
// jerk-limited centripetal constraint, per spec.md §4.1:
//
//	v_junction = sqrt(jerkNorm * d * sin(theta/2) / (1 - sin(theta/2)))
//
// Collinear moves (theta == 0) return min(prevCruiseVmax, cruiseVmax).
// Reversals (theta == pi) return 0.
func junctionVelocity(uPrev, uNext []float64, jerkNorm, junctionDeviation, prevCruiseVmax, cruiseVmax float64) float64 {
	cosTheta := dot(uPrev, uNext)
	if cosTheta > 1 {
		cosTheta = 1
	}
	if cosTheta < -1 {
		cosTheta = -1
	}

	const epsilon = 1e-9
	if cosTheta >= 1-epsilon {
		// Collinear, same direction.
		return minf(prevCruiseVmax, cruiseVmax)
	}
	if cosTheta <= -1+epsilon {
		// Exact reversal.
		return 0
	}

	// Half-angle identity avoids a separate Acos call: sin(theta/2) =
	// sqrt((1-cosTheta)/2), valid for theta in [0, pi].
	sinHalf := float64(tinymath.Sqrt(float32((1 - cosTheta) / 2)))
	if sinHalf >= 1-epsilon {
		return 0
	}
	v2 := jerkNorm * junctionDeviation * sinHalf / (1 - sinHalf)
	if v2 <= 0 || math.IsNaN(v2) || math.IsInf(v2, 0) {
		return 0
	}
	return float64(tinymath.Sqrt(float32(v2)))
}

func dot(a, b []float64) float64 {
	var s float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		s += a[i] * b[i]
	}
	return s
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
