package orientation

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vr-hmd-renderer/internal/mathutil"
	"vr-hmd-renderer/internal/telemetry"
)

const g = 9.81

func TestAccAngles(t *testing.T) {
	tests := []struct {
		name        string
		acc         mathutil.Vec3
		pitch, roll float64
	}{
		{"flat", mathutil.Vec3{0, g, 0}, 0, 0},
		{"nose down", mathutil.Vec3{0, 1, 1}, -45, 0},
		{"nose up", mathutil.Vec3{0, 1, -1}, 45, 0},
		{"rolled", mathutil.Vec3{1, 1, 0}, 0, 45},
		{"upside down", mathutil.Vec3{0, -1, 1}, -135, 180},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.pitch, AccPitch(tt.acc), 1e-9)
			assert.InDelta(t, tt.roll, math.Abs(AccRoll(tt.acc)), 1e-9)
		})
	}
}

func TestFlatlandRoll(t *testing.T) {
	gyr := mathutil.Vec3{0, 0, 10}
	assert.InDelta(t, 5.5, FlatlandRollGyro(5, gyr, 0.05), 1e-12)
	assert.InDelta(t, 45, FlatlandRollAcc(mathutil.Vec3{1, 1, 0}), 1e-12)
	assert.InDelta(t, -90, FlatlandRollAcc(mathutil.Vec3{-1, 0, 0}), 1e-12)

	acc := FlatlandRollAcc(mathutil.Vec3{1, 1, 0})
	assert.InDelta(t, 5.5, FlatlandRollComp(5, gyr, acc, 0.05, 1), 1e-12)
	assert.InDelta(t, 45, FlatlandRollComp(5, gyr, acc, 0.05, 0), 1e-12)
	assert.InDelta(t, 0.5*5.5+0.5*45, FlatlandRollComp(5, gyr, acc, 0.05, 0.5), 1e-12)
}

func TestIntegrateGyro(t *testing.T) {
	q := IntegrateGyro(mathutil.QuatIdentity(), mathutil.Vec3{0, 0, 90}, 1)
	v := q.Rotate(mathutil.Vec3{1, 0, 0})
	assert.InDeltaSlice(t, []float64{0, 1, 0}, v[:], 1e-12)

	q = mathutil.QuatIdentity()
	for i := 0; i < 100; i++ {
		q = IntegrateGyro(q, mathutil.Vec3{0, 90, 0}, 0.01)
	}
	v = q.Rotate(mathutil.Vec3{1, 0, 0})
	assert.InDeltaSlice(t, []float64{0, 0, -1}, v[:], 1e-9)
	assert.InDelta(t, 1, q.Len(), 1e-12)

	start := mathutil.QuatFromEulerDeg(10, 20, 30)
	assert.Equal(t, start, IntegrateGyro(start, mathutil.Vec3{1e-10, 0, 0}, 1))
}

func angleFromUp(q mathutil.Quat, acc mathutil.Vec3) float64 {
	up := q.Rotate(acc).Normalize()
	return mathutil.Rad2Deg(math.Acos(up[1]))
}

func TestComplementaryCorrectsTilt(t *testing.T) {
	tilted := mathutil.Vec3{math.Sin(mathutil.Deg2Rad(30)), math.Cos(mathutil.Deg2Rad(30)), 0}.Scale(g)

	full := Complementary(mathutil.QuatIdentity(), mathutil.Vec3{}, tilted, SimulatedDT, 0)
	assert.InDelta(t, 0, angleFromUp(full, tilted), 1e-9)

	half := Complementary(mathutil.QuatIdentity(), mathutil.Vec3{}, tilted, SimulatedDT, 0.5)
	assert.InDelta(t, 15, angleFromUp(half, tilted), 1e-9)

	none := Complementary(mathutil.QuatIdentity(), mathutil.Vec3{}, tilted, SimulatedDT, 1)
	assert.True(t, none.ApproxEqual(mathutil.QuatIdentity(), 1e-12))

	level := Complementary(mathutil.QuatIdentity(), mathutil.Vec3{}, mathutil.Vec3{0, g, 0}, SimulatedDT, 0)
	assert.Equal(t, mathutil.QuatIdentity(), level)

	free := Complementary(mathutil.QuatIdentity(), mathutil.Vec3{}, mathutil.Vec3{}, SimulatedDT, 0)
	assert.Equal(t, mathutil.QuatIdentity(), free)
}

func TestComplementaryConvergesToGravity(t *testing.T) {
	tilted := mathutil.Vec3{0, math.Cos(mathutil.Deg2Rad(20)), math.Sin(mathutil.Deg2Rad(20))}.Scale(g)
	q := mathutil.QuatIdentity()
	for i := 0; i < 2000; i++ {
		q = Complementary(q, mathutil.Vec3{}, tilted, SimulatedDT, 0.99)
	}
	assert.InDelta(t, 0, angleFromUp(q, tilted), 1e-3)
}

func TestCalibrate(t *testing.T) {
	samples := []Sample{
		{Gyro: mathutil.Vec3{1, 0, -2}, Acc: mathutil.Vec3{0, 9, 0}},
		{Gyro: mathutil.Vec3{3, 0, -2}, Acc: mathutil.Vec3{0, 11, 0}},
	}
	c, err := Calibrate(samples)
	require.NoError(t, err)
	assert.Equal(t, mathutil.Vec3{2, 0, -2}, c.GyroBias)
	assert.Equal(t, mathutil.Vec3{1, 0, 0}, c.GyroVariance)
	assert.Equal(t, mathutil.Vec3{0, 10, 0}, c.AccBias)
	assert.Equal(t, mathutil.Vec3{0, 1, 0}, c.AccVariance)

	_, err = Calibrate(nil)
	assert.ErrorIs(t, err, ErrNoSamples)
}

func TestParseSample(t *testing.T) {
	s, err := ParseSample(" 1 2 3  4 5 6 ", 0.01)
	require.NoError(t, err)
	assert.Equal(t, Sample{Gyro: mathutil.Vec3{1, 2, 3}, Acc: mathutil.Vec3{4, 5, 6}, DT: 0.01}, s)

	for _, line := range []string{"1 2 3 4 5", "1 2 3 4 5 x", "1 2 3 4 5 NaN"} {
		_, err := ParseSample(line, 0.01)
		assert.ErrorIs(t, err, ErrBadSample, line)
	}
}

func TestTrackerSubtractsBias(t *testing.T) {
	tr := NewTracker(1)
	tr.GyroBias = mathutil.Vec3{0, 0, 5}
	for i := 0; i < 10; i++ {
		tr.Update(Sample{Gyro: mathutil.Vec3{0, 0, 5}, Acc: mathutil.Vec3{0, g, 0}, DT: 0.1})
	}
	assert.InDelta(t, 0, tr.FlatlandGyro, 1e-12)
	assert.True(t, tr.QuatGyro.ApproxEqual(mathutil.QuatIdentity(), 1e-12))

	tr.GyroBias = mathutil.Vec3{}
	tr.Update(Sample{Gyro: mathutil.Vec3{0, 0, 5}, Acc: mathutil.Vec3{0, g, 0}, DT: 0.1})
	assert.InDelta(t, 0.5, tr.FlatlandGyro, 1e-12)

	tr.Reset()
	assert.Zero(t, tr.FlatlandGyro)
	assert.Equal(t, mathutil.QuatIdentity(), tr.QuatComp)
	assert.Equal(t, mathutil.Vec3{}, tr.GyroBias)
}

func TestTrackerLines(t *testing.T) {
	tr := NewTracker(DefaultAlpha)
	tr.Update(Sample{Acc: mathutil.Vec3{0, 1, 1}, DT: SimulatedDT})

	lines := tr.Lines()
	require.Len(t, lines, 2)
	qc, err := telemetry.Parse(lines[0])
	require.NoError(t, err)
	assert.Equal(t, telemetry.Quaternion, qc.Kind)
	q := mathutil.NewQuat(qc.Values[0], qc.Values[1], qc.Values[2], qc.Values[3])
	assert.True(t, q.ApproxEqual(tr.QuatComp, 1e-12))

	flat, err := telemetry.Parse(lines[1])
	require.NoError(t, err)
	assert.Equal(t, telemetry.Flatland, flat.Kind)

	all := tr.Lines(telemetry.Euler, telemetry.Position, telemetry.Quaternion)
	require.Len(t, all, 2)
	ea, err := telemetry.Parse(all[0])
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, -45, 0}, ea.Values, 1e-9)
}

type recordSink struct {
	mu  sync.Mutex
	got []telemetry.Message
}

func (s *recordSink) Apply(m telemetry.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, m)
	return nil
}

func TestReplayFeedsTelemetry(t *testing.T) {
	feed := strings.Join([]string{
		"# gx gy gz ax ay az",
		"0 0 0 0 9.81 0",
		"",
		"broken line",
		"0 90 0 0 9.81 0",
	}, "\n")
	r := NewReplay(strings.NewReader(feed), NewTracker(1), 0.5)

	sink := &recordSink{}
	st, err := telemetry.Drain(context.Background(), r, sink)
	require.NoError(t, err)
	assert.Equal(t, int64(4), st.Applied)

	var tags []string
	for _, m := range sink.got {
		tags = append(tags, m.Tag)
	}
	assert.Equal(t, []string{"QC", "FLAT", "QC", "FLAT"}, tags)

	last := sink.got[2].Values
	want := mathutil.QuatFromAxisAngle(mathutil.Vec3{0, 1, 0}, mathutil.Deg2Rad(45))
	assert.True(t, mathutil.NewQuat(last[0], last[1], last[2], last[3]).ApproxEqual(want, 1e-9))
}

func TestDialReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "imu.txt")
	var b strings.Builder
	for i := 0; i < 5; i++ {
		fmt.Fprintf(&b, "0 0 10 0 %g 0\n", g)
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))

	src, err := DialReplay(path, DefaultAlpha)(context.Background())
	require.NoError(t, err)
	sink := &recordSink{}
	st, err := telemetry.Drain(context.Background(), src, sink)
	require.NoError(t, err)
	assert.Equal(t, int64(10), st.Applied)

	_, err = DialReplay(filepath.Join(t.TempDir(), "missing"), DefaultAlpha)(context.Background())
	assert.Error(t, err)
}
