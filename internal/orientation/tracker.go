package orientation

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"vr-hmd-renderer/internal/logging"
	"vr-hmd-renderer/internal/mathutil"
	"vr-hmd-renderer/internal/telemetry"
)

// SimulatedDT is the sample period of recorded IMU feeds.
const SimulatedDT = 0.002

// DefaultAlpha weights the gyro in both complementary filters.
const DefaultAlpha = 0.9

var (
	ErrNoSamples = errors.New("orientation: no samples")
	ErrBadSample = errors.New("orientation: malformed imu sample")
)

// Sample is one IMU reading.
type Sample struct {
	Gyro mathutil.Vec3 // deg/s
	Acc  mathutil.Vec3 // m/s²
	DT   float64       // seconds since the previous sample
}

// ParseSample reads "gx gy gz ax ay az" with the given time step.
func ParseSample(line string, dt float64) (Sample, error) {
	f := strings.Fields(line)
	if len(f) != 6 {
		return Sample{}, fmt.Errorf("%w: want 6 fields, got %d", ErrBadSample, len(f))
	}
	var v [6]float64
	for i, s := range f {
		x, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(x) || math.IsInf(x, 0) {
			return Sample{}, fmt.Errorf("%w: field %d %q", ErrBadSample, i, s)
		}
		v[i] = x
	}
	return Sample{
		Gyro: mathutil.Vec3{v[0], v[1], v[2]},
		Acc:  mathutil.Vec3{v[3], v[4], v[5]},
		DT:   dt,
	}, nil
}

// Calibration holds per-axis sensor bias and variance measured at rest.
type Calibration struct {
	GyroBias     mathutil.Vec3
	GyroVariance mathutil.Vec3
	AccBias      mathutil.Vec3
	AccVariance  mathutil.Vec3
}

// Calibrate computes mean and population variance of samples taken while the
// board is still.
func Calibrate(samples []Sample) (Calibration, error) {
	if len(samples) == 0 {
		return Calibration{}, ErrNoSamples
	}
	var gSum, gSq, aSum, aSq mathutil.Vec3
	for _, s := range samples {
		gSum = gSum.Add(s.Gyro)
		gSq = gSq.Add(s.Gyro.Mul(s.Gyro))
		aSum = aSum.Add(s.Acc)
		aSq = aSq.Add(s.Acc.Mul(s.Acc))
	}
	n := 1 / float64(len(samples))
	var c Calibration
	c.GyroBias = gSum.Scale(n)
	c.AccBias = aSum.Scale(n)
	c.GyroVariance = gSq.Scale(n).Sub(c.GyroBias.Mul(c.GyroBias))
	c.AccVariance = aSq.Scale(n).Sub(c.AccBias.Mul(c.AccBias))
	return c, nil
}

// Tracker runs every estimator side by side on a stream of samples.
type Tracker struct {
	Alpha    float64
	GyroBias mathutil.Vec3

	FlatlandGyro float64
	FlatlandAcc  float64
	FlatlandComp float64
	QuatGyro     mathutil.Quat
	QuatComp     mathutil.Quat
	// EulerAcc is pitch and roll from the accelerometer.
	EulerAcc mathutil.Vec2
}

func NewTracker(alpha float64) *Tracker {
	t := &Tracker{Alpha: alpha}
	t.Reset()
	return t
}

// Reset zeroes every estimate but keeps the bias.
func (t *Tracker) Reset() {
	t.FlatlandGyro, t.FlatlandAcc, t.FlatlandComp = 0, 0, 0
	t.QuatGyro = mathutil.QuatIdentity()
	t.QuatComp = mathutil.QuatIdentity()
	t.EulerAcc = mathutil.Vec2{}
}

func (t *Tracker) Update(s Sample) {
	gyr := s.Gyro.Sub(t.GyroBias)
	acc := s.Acc

	t.FlatlandGyro = FlatlandRollGyro(t.FlatlandGyro, gyr, s.DT)
	t.FlatlandAcc = FlatlandRollAcc(acc)
	t.FlatlandComp = FlatlandRollComp(t.FlatlandComp, gyr, t.FlatlandAcc, s.DT, t.Alpha)
	t.QuatGyro = IntegrateGyro(t.QuatGyro, gyr, s.DT)
	t.EulerAcc = mathutil.Vec2{AccPitch(acc), AccRoll(acc)}
	t.QuatComp = Complementary(t.QuatComp, gyr, acc, s.DT, t.Alpha)
}

// DefaultOutputs drives the head pose from the filtered quaternion only. An
// EA line would overwrite it with the accelerometer estimate.
var DefaultOutputs = []telemetry.Kind{telemetry.Quaternion, telemetry.Flatland}

// Line renders one estimate as a telemetry line: QC is the complementary
// quaternion, EA the accelerometer pitch and roll, FLAT the three flatland
// rolls.
func (t *Tracker) Line(k telemetry.Kind) (string, bool) {
	switch k {
	case telemetry.Quaternion:
		q := t.QuatComp
		return telemetry.Format(k, q.Real, q.Imag, q.Jmag, q.Kmag), true
	case telemetry.Euler:
		return telemetry.Format(k, 0, t.EulerAcc[0], t.EulerAcc[1]), true
	case telemetry.Flatland:
		return telemetry.Format(k, t.FlatlandGyro, t.FlatlandAcc, t.FlatlandComp), true
	}
	return "", false
}

// Lines renders kinds in order, or DefaultOutputs when none are given.
func (t *Tracker) Lines(kinds ...telemetry.Kind) []string {
	if len(kinds) == 0 {
		kinds = DefaultOutputs
	}
	out := make([]string, 0, len(kinds))
	for _, k := range kinds {
		if l, ok := t.Line(k); ok {
			out = append(out, l)
		}
	}
	return out
}

// Replay is a telemetry.Source that runs a Tracker over a recorded IMU feed
// and yields the tracker's lines after every sample.
type Replay struct {
	tracker *Tracker
	sc      *bufio.Scanner
	c       io.Closer
	dt      float64
	pending []string

	// Outputs selects the emitted lines; nil means DefaultOutputs.
	Outputs []telemetry.Kind
}

// NewReplay reads one sample per line from r. Blank lines and lines starting
// with '#' are skipped.
func NewReplay(r io.Reader, t *Tracker, dt float64) *Replay {
	c, _ := r.(io.Closer)
	return &Replay{tracker: t, sc: bufio.NewScanner(r), c: c, dt: dt}
}

func (r *Replay) Next() (string, error) {
	for len(r.pending) == 0 {
		if !r.sc.Scan() {
			if err := r.sc.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}
		line := strings.TrimSpace(r.sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		s, err := ParseSample(line, r.dt)
		if err != nil {
			logging.Logger().Debug("orientation: skip sample", "err", err)
			continue
		}
		r.tracker.Update(s)
		r.pending = r.tracker.Lines(r.Outputs...)
	}
	line := r.pending[0]
	r.pending = r.pending[1:]
	return line, nil
}

func (r *Replay) Close() error {
	if r.c == nil {
		return nil
	}
	return r.c.Close()
}

// DialReplay opens path as a Replay with a fresh tracker on every dial.
func DialReplay(path string, alpha float64) telemetry.DialFunc {
	return func(context.Context) (telemetry.Source, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("orientation: open %s: %w", path, err)
		}
		return NewReplay(f, NewTracker(alpha), SimulatedDT), nil
	}
}
