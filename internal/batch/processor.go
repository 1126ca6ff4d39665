// Package batch renders frames to image files: every mode of one pose
// through a worker pool, or a running session frame by frame.
package batch

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
	"golang.org/x/sync/errgroup"

	"vr-hmd-renderer/internal/display"
	"vr-hmd-renderer/internal/logging"
	"vr-hmd-renderer/internal/postprocess"
	"vr-hmd-renderer/internal/raster"
	"vr-hmd-renderer/internal/session"
	"vr-hmd-renderer/internal/transform"
)

// Format is the output image encoding.
type Format string

const (
	WebP Format = "webp"
	TGA  Format = "tga"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case WebP, TGA:
		return f, nil
	case "":
		return WebP, nil
	}
	return "", fmt.Errorf("batch: unknown format %q", s)
}

// Encode writes img in format f.
func Encode(w io.Writer, img image.Image, f Format) error {
	switch f {
	case WebP:
		return nativewebp.Encode(w, img, nil)
	case TGA:
		return tga.Encode(w, img)
	}
	return fmt.Errorf("batch: unknown format %q", f)
}

// Config holds all shared resources for a batch run.
type Config struct {
	OutputDir   string
	Format      Format
	Width       int
	Height      int
	Supersample int
	Workers     int
	Renderer    *raster.Renderer
	Params      *display.Params
}

// Result holds the outcome of rendering one frame.
type Result struct {
	Name    string
	Mode    transform.Mode
	Frame   uint64
	Stale   bool
	Image   string // relative to OutputDir
	Success bool
	Error   string
}

// Compose renders in at Width×Height times Supersample, applies the mode's
// post effect and reduces the result to Width×Height.
func Compose(cfg Config, in session.FrameInput) (*image.NRGBA, error) {
	ss := max(cfg.Supersample, 1)
	f := cfg.Renderer.Render(in, cfg.Width*ss, cfg.Height*ss)
	img, err := postprocess.Apply(f, cfg.Params)
	if err != nil {
		return nil, err
	}
	if ss > 1 {
		img = postprocess.Downsample(img, cfg.Width, cfg.Height)
	}
	return img, nil
}

// ModeJobs builds one frame input per mode from the same pose.
func ModeJobs(state session.StateSource, p *display.Params, modes []transform.Mode) ([]session.FrameInput, error) {
	jobs := make([]session.FrameInput, 0, len(modes))
	for _, m := range modes {
		loop := &session.Loop{State: state, Modes: session.FixedMode(m), Params: p}
		in, ok := loop.Step()
		if !ok {
			return nil, fmt.Errorf("batch: no valid transforms for mode %s", m)
		}
		jobs = append(jobs, in)
	}
	return jobs, nil
}

// Run renders every job with a worker pool and writes <mode>.<format>.
// Per-frame failures are reported in the results; cancelling ctx skips the
// jobs not yet started.
func Run(ctx context.Context, cfg Config, jobs []session.FrameInput) []Result {
	total := len(jobs)
	results := make([]Result, total)
	var processed atomic.Int64
	log := logging.Logger()

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if n := processed.Load(); n > 0 {
					rate := float64(n) / time.Since(start).Seconds()
					log.Info("batch: progress", "done", n, "total", total, "per_sec", rate)
				}
			}
		}
	}()

	workers := max(cfg.Workers, 1)
	jobChan := make(chan int, workers*2)
	g, gctx := errgroup.WithContext(ctx)

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for idx := range jobChan {
				in := jobs[idx]
				results[idx] = Process(cfg, in, in.Mode.String())
				processed.Add(1)
			}
			return nil
		})
	}

	for i := range jobs {
		if err := gctx.Err(); err != nil {
			for j := i; j < total; j++ {
				results[j] = Result{Name: jobs[j].Mode.String(), Mode: jobs[j].Mode, Error: err.Error()}
			}
			break
		}
		jobChan <- i
	}
	close(jobChan)

	_ = g.Wait()
	close(done)

	log.Info("batch: finished", "frames", total, "elapsed", time.Since(start))
	return results
}

// Process composes one frame and writes it as <name>.<format>.
func Process(cfg Config, in session.FrameInput, name string) Result {
	res := Result{Name: name, Mode: in.Mode, Frame: in.Index, Stale: in.Stale}

	img, err := Compose(cfg, in)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	rel := name + "." + string(cfg.Format)
	outPath := filepath.Join(cfg.OutputDir, rel)
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		res.Error = err.Error()
		return res
	}

	f, err := os.Create(outPath)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer f.Close()

	if err := Encode(f, img, cfg.Format); err != nil {
		res.Error = fmt.Sprintf("%s encode: %v", cfg.Format, err)
		return res
	}

	res.Image = filepath.ToSlash(rel)
	res.Success = true
	logging.Logger().Debug("batch: wrote frame", "mode", in.Mode, "frame", in.Index, "path", outPath)
	return res
}
