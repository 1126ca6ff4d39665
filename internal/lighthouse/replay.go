package lighthouse

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"vr-hmd-renderer/internal/logging"
	"vr-hmd-renderer/internal/telemetry"
)

// ParseTicks reads eight whitespace separated tick counts.
func ParseTicks(line string) (Ticks, error) {
	var t Ticks
	f := strings.Fields(line)
	if len(f) != len(t) {
		return t, fmt.Errorf("lighthouse: want %d tick counts, got %d", len(t), len(f))
	}
	for i, s := range f {
		v, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return Ticks{}, fmt.Errorf("lighthouse: tick %d: %w", i, err)
		}
		t[i] = uint32(v)
	}
	return t, nil
}

// Replay is a telemetry.Source over a recorded timing capture. Each line of
// eight tick counts becomes a PS and a QC message; BS lines carrying the base
// station tilt are passed through unchanged.
type Replay struct {
	sc      *bufio.Scanner
	c       io.Closer
	clock   float64
	pending []string
}

func NewReplay(r io.Reader, clockHz float64) *Replay {
	if clockHz <= 0 {
		clockHz = DefaultClockHz
	}
	c, _ := r.(io.Closer)
	return &Replay{sc: bufio.NewScanner(r), c: c, clock: clockHz}
}

func (r *Replay) Next() (string, error) {
	log := logging.Logger()
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
		if strings.HasPrefix(line, telemetry.BaseStation.String()+" ") {
			return line, nil
		}
		ticks, err := ParseTicks(line)
		if err != nil {
			log.Debug("lighthouse: skip capture", "err", err)
			continue
		}
		p, err := Solve(ticks, r.clock)
		if err != nil {
			log.Debug("lighthouse: no pose", "err", err)
			continue
		}
		r.pending = p.Lines()
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

// DialReplay opens a recorded capture on every dial.
func DialReplay(path string, clockHz float64) telemetry.DialFunc {
	return func(context.Context) (telemetry.Source, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("lighthouse: open %s: %w", path, err)
		}
		return NewReplay(f, clockHz), nil
	}
}
