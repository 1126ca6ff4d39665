// Package orientation estimates the tracker's orientation from gyroscope and
// accelerometer samples and turns the estimates into telemetry lines.
//
// Angles are in degrees, angular rates in degrees per second and time steps
// in seconds. The sensor frame is y-up: a board lying flat reads gravity on +y.
package orientation

import (
	"math"

	"vr-hmd-renderer/internal/mathutil"
)

const minRate = 1e-8

// AccPitch is the pitch implied by the gravity vector alone.
func AccPitch(acc mathutil.Vec3) float64 {
	sign := 0.0
	switch {
	case acc[1] > 0:
		sign = 1
	case acc[1] < 0:
		sign = -1
	}
	return -mathutil.Rad2Deg(math.Atan2(acc[2], sign*math.Hypot(acc[0], acc[1])))
}

// AccRoll is the roll implied by the gravity vector alone.
func AccRoll(acc mathutil.Vec3) float64 {
	return -mathutil.Rad2Deg(math.Atan2(-acc[0], acc[1]))
}

// FlatlandRollGyro integrates the z rate onto the previous roll.
func FlatlandRollGyro(prev float64, gyr mathutil.Vec3, dt float64) float64 {
	return prev + dt*gyr[2]
}

// FlatlandRollAcc is the in-plane roll measured from gravity.
func FlatlandRollAcc(acc mathutil.Vec3) float64 {
	return mathutil.Rad2Deg(math.Atan2(acc[0], acc[1]))
}

// FlatlandRollComp blends the integrated gyro roll with the accelerometer
// roll. alpha weights the gyro.
func FlatlandRollComp(prev float64, gyr mathutil.Vec3, rollAcc, dt, alpha float64) float64 {
	return alpha*FlatlandRollGyro(prev, gyr, dt) + (1-alpha)*rollAcc
}

// IntegrateGyro rotates q by the body rate gyr over dt. Rates below 1e-8 deg/s
// leave q unchanged.
func IntegrateGyro(q mathutil.Quat, gyr mathutil.Vec3, dt float64) mathutil.Quat {
	rate := gyr.Len()
	if rate < minRate || math.IsNaN(rate) {
		return q
	}
	d := mathutil.QuatFromAxisAngle(gyr.Scale(1/rate), mathutil.Deg2Rad(dt*rate))
	out, ok := q.Mul(d).Normalize()
	if !ok {
		return q
	}
	return out
}

// Complementary advances q with the gyro and then pulls it a fraction
// (1-alpha) of the way towards the tilt that makes measured gravity point up.
func Complementary(q mathutil.Quat, gyr, acc mathutil.Vec3, dt, alpha float64) mathutil.Quat {
	q = IntegrateGyro(q, gyr, dt)

	up, ok := q.Rotate(acc).TryNormalize()
	if !ok {
		return q
	}
	phi := math.Acos(math.Max(-1, math.Min(1, up[1])))
	axis := mathutil.Vec3{-up[2], 0, up[0]}
	n := axis.Len()
	if n < minRate {
		return q
	}
	tilt := mathutil.QuatFromAxisAngle(axis.Scale(1/n), (1-alpha)*phi)
	out, ok := tilt.Mul(q).Normalize()
	if !ok {
		return q
	}
	return out
}
