package main

import (
	"context"
	"flag"
	"fmt"
	"image/color"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"vr-hmd-renderer/internal/batch"
	"vr-hmd-renderer/internal/config"
	"vr-hmd-renderer/internal/display"
	"vr-hmd-renderer/internal/lighthouse"
	"vr-hmd-renderer/internal/logging"
	"vr-hmd-renderer/internal/mesh"
	"vr-hmd-renderer/internal/orientation"
	"vr-hmd-renderer/internal/pose"
	"vr-hmd-renderer/internal/raster"
	"vr-hmd-renderer/internal/session"
	"vr-hmd-renderer/internal/telemetry"
	"vr-hmd-renderer/internal/transform"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to config.json file")
	preset := flag.String("preset", "", "Display preset: hmd or monitor (default: hmd)")
	outputDir := flag.String("output", "", "Output directory (default: renders)")
	width := flag.Int("width", 0, "Canvas width in pixels (default: 960)")
	height := flag.Int("height", 0, "Canvas height in pixels (default: 540)")
	format := flag.String("format", "", "Image format: webp or tga (default: webp)")
	workers := flag.Int("workers", 0, "Number of worker goroutines (default: NumCPU)")
	modes := flag.String("modes", "", "Comma separated modes (default: all)")
	frames := flag.Int("frames", 0, "Run a session of N frames instead of one image per mode")
	switchEvery := flag.Int("switch-every", 0, "In a session, move to the next mode every N frames (default: stay in the first)")
	source := flag.String("source", "", "Telemetry source: file, websocket, imu or lighthouse")
	feed := flag.String("feed", "", "Telemetry path or websocket URL")
	verbose := flag.Bool("v", false, "Debug logging")

	flag.Parse()
	logging.SetLogger(logging.NewText(os.Stderr, *verbose))

	// Load config
	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// CLI flags override config file
	cfg.Resolve(config.Flags{
		Preset:    *preset,
		OutputDir: *outputDir,
		Width:     *width,
		Height:    *height,
		Format:    *format,
		Workers:   *workers,
		Modes:     *modes,
		Frames:      *frames,
		SwitchEvery: *switchEvery,
		Source:      *source,
		Feed:        *feed,
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if cfg.Telemetry.Source == config.SourceWebSocket && cfg.Frames == 0 {
		fmt.Fprintln(os.Stderr, "Error: websocket telemetry needs -frames")
		os.Exit(1)
	}

	constants, err := cfg.Constants()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	params, err := display.New(constants, cfg.Width, cfg.Height)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	renderModes, _ := cfg.ParsedModes()
	imgFormat, _ := batch.ParseFormat(cfg.Format)

	renderer, err := raster.NewRenderer(mesh.DefaultScene(), color.NRGBA{A: 255})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	ctrl := pose.NewController(pose.Default(params), params)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	batchCfg := batch.Config{
		OutputDir:   cfg.OutputDir,
		Format:      imgFormat,
		Width:       cfg.Width,
		Height:      cfg.Height,
		Supersample: cfg.Supersample,
		Workers:     cfg.Workers,
		Renderer:    renderer,
		Params:      params,
	}

	fmt.Printf("VR HMD renderer → %s\n", imgFormat)
	fmt.Printf("Canvas: %dx%d, Supersample: %d, Workers: %d\n", cfg.Width, cfg.Height, cfg.Supersample, cfg.Workers)
	fmt.Printf("Output: %s\n", cfg.OutputDir)
	fmt.Println("------------------------------------------------------------")

	start := time.Now()
	dial := dialer(cfg.Telemetry)

	var results []batch.Result
	if cfg.Frames > 0 {
		results, err = runSession(ctx, cfg, batchCfg, ctrl, renderModes, dial)
	} else {
		results, err = runModes(ctx, batchCfg, ctrl, renderModes, dial)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Done in %.1fs\n", time.Since(start).Seconds())

	// Count results
	success, failed := 0, 0
	for _, r := range results {
		if r.Success {
			success++
		} else {
			failed++
			fmt.Printf("  %s: %s\n", r.Name, r.Error)
		}
	}
	fmt.Printf("Rendered: %d/%d\n", success, len(results))

	// Write manifest
	manifestPath := filepath.Join(cfg.OutputDir, "manifest.json")
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	if err := batch.WriteManifest(manifestPath, batchCfg, results); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: manifest write failed: %v\n", err)
	} else {
		fmt.Printf("Manifest: %s\n", manifestPath)
	}

	if failed > 0 {
		os.Exit(1)
	}
}

// dialer maps the configured source to a telemetry dial function, or nil
// when the pose stays at its defaults.
func dialer(t config.Telemetry) telemetry.DialFunc {
	switch t.Source {
	case config.SourceFile:
		return telemetry.DialFile(t.Path)
	case config.SourceWebSocket:
		return telemetry.DialWebSocket(t.URL)
	case config.SourceIMU:
		alpha := t.Alpha
		if alpha == 0 {
			alpha = orientation.DefaultAlpha
		}
		return orientation.DialReplay(t.Path, alpha)
	case config.SourceLighthouse:
		return lighthouse.DialReplay(t.Path, t.ClockHz)
	}
	return nil
}

// runModes replays the whole feed into the pose first, then renders one
// image per mode.
func runModes(ctx context.Context, cfg batch.Config, ctrl *pose.Controller, modes []transform.Mode, dial telemetry.DialFunc) ([]batch.Result, error) {
	if dial != nil {
		src, err := dial(ctx)
		if err != nil {
			return nil, err
		}
		st, err := telemetry.Drain(ctx, src, ctrl)
		_ = src.Close()
		if err != nil {
			return nil, err
		}
		fmt.Printf("Telemetry: %d applied, %d dropped\n", st.Applied, st.Dropped)
	}

	jobs, err := batch.ModeJobs(ctrl, cfg.Params, modes)
	if err != nil {
		return nil, err
	}
	fmt.Printf("Modes: %d\n", len(jobs))
	return batch.Run(ctx, cfg, jobs), nil
}

// runSession drives the frame loop with live telemetry and writes every
// FrameEvery-th frame. With SwitchEvery set the modes are cycled in order.
func runSession(ctx context.Context, cfg config.Config, bcfg batch.Config, ctrl *pose.Controller, modes []transform.Mode, dial telemetry.DialFunc) ([]batch.Result, error) {
	pipeline := batch.NewPipeline(bcfg, uint64(cfg.FrameEvery))
	selector := transform.NewSelector(modes[0], func(from, to transform.Mode) {
		logging.Logger().Info("render: mode changed", "from", from, "to", to)
	})
	loop := &session.Loop{
		State:     ctrl,
		Modes:     selector,
		Params:    bcfg.Params,
		Backend:   pipeline,
		MaxFrames: uint64(cfg.Frames),
	}
	if cfg.SwitchEvery > 0 {
		loop.Backend = &session.Cycle{
			Selector: selector,
			Modes:    modes,
			Every:    uint64(cfg.SwitchEvery),
			Backend:  pipeline,
		}
	}

	var tasks []session.Runner
	var pump *telemetry.Reconnecting
	if dial != nil {
		pump = &telemetry.Reconnecting{
			Dial: dial,
			Sink: ctrl,
			OnConnect: func(connected bool) {
				ctrl.SetTracked(connected)
			},
		}
		tasks = append(tasks, pump)
	}

	fmt.Printf("Session: %d frames starting in mode %s\n", cfg.Frames, modes[0])
	err := session.Run(ctx, loop, tasks...)
	if pump != nil {
		st := pump.Stats()
		fmt.Printf("Telemetry: %d applied, %d dropped, %d reconnects\n", st.Applied, st.Dropped, st.Reconnects)
	}
	return pipeline.Results(), err
}
