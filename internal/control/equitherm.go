// Package control implements the heating control math: the equitherm
// weather-compensation curve, a PID controller and a relay-feedback PID
// auto-tuner. Controller bundles them behind regulator.Capability.
package control

import "math"

// Equitherm is a weather-compensation curve.
//
// The curve passes through (outdoor=target, flow=target) and reaches the
// upper bound when the outdoor temperature is (max-target)/N below target.
// K bends the curve (1 = straight line), T adds a proportional correction
// for the indoor error.
type Equitherm struct {
	N float64
	K float64
	T float64
}

// Result returns the flow temperature for the given conditions, clamped to
// [min, max].
func (e Equitherm) Result(indoor, outdoor, target, min, max float64) float64 {
	correction := e.T * (target - indoor)
	if e.N <= 0 || e.K <= 0 || max <= target {
		return clamp(target+correction, min, max)
	}

	span := (max - target) / e.N
	exp := 1 / e.K
	scale := (max - target) / math.Pow(span, exp)

	delta := target - outdoor
	curve := scale * math.Pow(math.Abs(delta), exp)
	if delta < 0 {
		curve = -curve
	}

	return clamp(target+curve+correction, min, max)
}

func clamp(v, min, max float64) float64 {
	return math.Max(min, math.Min(max, v))
}
