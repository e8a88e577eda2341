// Package calcs holds the unit conversions between raw motor feedback and
// physical quantities.
package calcs

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// RadPerRPM converts revolutions per minute to radians per second.
const RadPerRPM = 2 * math.Pi / 60

// TicksToRad maps an absolute encoder reading in [0, ticksPerRev) to radians.
func TicksToRad(ticks uint16, ticksPerRev uint16) float32 {
	deg := float32(ticks) * 360 / float32(ticksPerRev)
	return mgl32.DegToRad(deg)
}

// RawToAmps scales a signed raw current reading to amps.
func RawToAmps(raw int16, maxRaw int16, maxAmps float32) float32 {
	return float32(raw) * maxAmps / float32(maxRaw)
}

// NormalizedToRaw turns a command in [-1, 1] into a raw setpoint, clamping
// anything outside that range. NaN maps to 0.
func NormalizedToRaw(out float32, maxRaw int16) int16 {
	if math.IsNaN(float64(out)) {
		return 0
	}
	out = mgl32.Clamp(out, -1, 1)
	return int16(out * float32(maxRaw))
}

// RPMToOmega divides a speed by a gear specific divisor.
func RPMToOmega(rpm float32, divisor float32) float32 {
	return rpm / divisor
}

// MirrorAngle reflects an angle in [0, 2pi) so the direction of travel flips.
func MirrorAngle(rad float32) float32 {
	if rad == 0 {
		return 0
	}
	return 2*math.Pi - rad
}
