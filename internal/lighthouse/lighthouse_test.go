package lighthouse

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

// project places the reference diodes at pose and returns their normalized
// projections.
func project(p Pose) [8]float64 {
	var out [8]float64
	for i := 0; i < 8; i += 2 {
		local := mathutil.Vec3{ReferencePositions[i], ReferencePositions[i+1], 0}
		w := p.Rotation.MulVec(local).Add(p.Position)
		out[i] = w[0] / -w[2]
		out[i+1] = w[1] / -w[2]
	}
	return out
}

func toTicks(pos2D [8]float64, clockHz float64) Ticks {
	var t Ticks
	for i := 0; i < 8; i += 2 {
		h := (90 - mathutil.Rad2Deg(math.Atan(pos2D[i]))) / sweepDegPerSecond
		v := (mathutil.Rad2Deg(math.Atan(pos2D[i+1])) + 90) / sweepDegPerSecond
		t[i] = uint32(math.Round(h * clockHz))
		t[i+1] = uint32(math.Round(v * clockHz))
	}
	return t
}

var truth = Pose{
	Rotation: mathutil.EulerXYZDeg(10, -25, 5),
	Position: mathutil.Vec3{30, -20, -500},
}

func TestTicksTo2D(t *testing.T) {
	// A quarter turn after sync points straight ahead.
	q := uint32(DefaultClockHz / 240)
	pos := TicksTo2D(Ticks{q, q, q, q, q, q, q, q}, DefaultClockHz)
	for _, v := range pos {
		assert.InDelta(t, 0, v, 1e-12)
	}

	want := project(truth)
	got := TicksTo2D(toTicks(want, DefaultClockHz), DefaultClockHz)
	assert.InDeltaSlice(t, want[:], got[:], 1e-4)
}

func TestHomographyRecoversPose(t *testing.T) {
	h, err := Homography(project(truth), ReferencePositions)
	require.NoError(t, err)
	p := FromHomography(h)

	assert.InDeltaSlice(t, truth.Position[:], p.Position[:], 1e-6)
	for i := range truth.Rotation {
		assert.InDelta(t, truth.Rotation[i], p.Rotation[i], 1e-9)
	}
	assert.InDelta(t, 1, p.Rotation.Det(), 1e-9)
	assert.True(t, p.Quat().ApproxEqual(mathutil.QuatFromMat3(truth.Rotation), 1e-9))
}

func TestSolveFromTicks(t *testing.T) {
	p, err := Solve(toTicks(project(truth), DefaultClockHz), DefaultClockHz)
	require.NoError(t, err)
	assert.InDeltaSlice(t, truth.Position[:], p.Position[:], 1.0)
	assert.True(t, p.Quat().ApproxEqual(mathutil.QuatFromMat3(truth.Rotation), 1e-2))
}

func TestHomographySingular(t *testing.T) {
	_, err := Homography(project(truth), [8]float64{})
	assert.ErrorIs(t, err, ErrSingular)
}

func TestPoseLines(t *testing.T) {
	lines := truth.Lines()
	require.Len(t, lines, 2)
	ps, err := telemetry.Parse(lines[0])
	require.NoError(t, err)
	assert.Equal(t, telemetry.Position, ps.Kind)
	assert.Equal(t, []float64{30, -20, -500}, ps.Values)

	qc, err := telemetry.Parse(lines[1])
	require.NoError(t, err)
	assert.Equal(t, telemetry.Quaternion, qc.Kind)
}

func TestParseTicks(t *testing.T) {
	ticks, err := ParseTicks("1 2 3 4 5 6 7 4294967295")
	require.NoError(t, err)
	assert.Equal(t, Ticks{1, 2, 3, 4, 5, 6, 7, math.MaxUint32}, ticks)

	for _, line := range []string{"1 2 3", "1 2 3 4 5 6 7 -8", "1 2 3 4 5 6 7 4294967296"} {
		_, err := ParseTicks(line)
		assert.Error(t, err, line)
	}
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

func captureLine(ticks Ticks) string {
	f := make([]string, len(ticks))
	for i, v := range ticks {
		f[i] = fmt.Sprint(v)
	}
	return strings.Join(f, " ")
}

func TestReplay(t *testing.T) {
	feed := strings.Join([]string{
		"# h0 v0 h1 v1 h2 v2 h3 v3",
		"BS 4.5 -1",
		captureLine(toTicks(project(truth), DefaultClockHz)),
		"not a capture",
		"1 2 3",
	}, "\n")

	sink := &recordSink{}
	st, err := telemetry.Drain(context.Background(), NewReplay(strings.NewReader(feed), 0), sink)
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.Applied)
	require.Len(t, sink.got, 3)

	assert.Equal(t, telemetry.BaseStation, sink.got[0].Kind)
	assert.Equal(t, []float64{4.5, -1}, sink.got[0].Values)
	assert.Equal(t, telemetry.Position, sink.got[1].Kind)
	assert.InDeltaSlice(t, truth.Position[:], sink.got[1].Values, 1.0)
	assert.Equal(t, telemetry.Quaternion, sink.got[2].Kind)
}

func TestDialReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.txt")
	require.NoError(t, os.WriteFile(path, []byte(captureLine(toTicks(project(truth), DefaultClockHz))+"\n"), 0644))

	src, err := DialReplay(path, DefaultClockHz)(context.Background())
	require.NoError(t, err)
	sink := &recordSink{}
	_, err = telemetry.Drain(context.Background(), src, sink)
	require.NoError(t, err)
	assert.Len(t, sink.got, 2)

	_, err = DialReplay(filepath.Join(t.TempDir(), "missing"), 0)(context.Background())
	assert.Error(t, err)
}
