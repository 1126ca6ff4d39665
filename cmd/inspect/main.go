package main

import (
	"flag"
	"fmt"
	"os"

	"vr-hmd-renderer/internal/config"
	"vr-hmd-renderer/internal/display"
	"vr-hmd-renderer/internal/effects"
	"vr-hmd-renderer/internal/mathutil"
	"vr-hmd-renderer/internal/pose"
	"vr-hmd-renderer/internal/transform"
)

func main() {
	configFile := flag.String("config", "", "Path to config.json file")
	preset := flag.String("preset", "", "Display preset: hmd or monitor")
	width := flag.Int("width", 0, "Canvas width in pixels")
	height := flag.Int("height", 0, "Canvas height in pixels")
	modes := flag.String("modes", "", "Comma separated modes (default: all)")
	flag.Parse()

	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	cfg.Resolve(config.Flags{Preset: *preset, Width: *width, Height: *height, Modes: *modes})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	c, _ := cfg.Constants()
	p, err := display.New(c, cfg.Width, cfg.Height)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Canvas: %dx%d px\n", p.CanvasWidth, p.CanvasHeight)
	fmt.Printf("Pixel pitch: %.5f mm\n", p.PixelPitch)
	fmt.Printf("Screen-viewer distance: %.2f mm\n", p.DistanceScreenViewer)
	if p.HasLens {
		fmt.Printf("Lens: magnification %.3f, lens-screen %.1f mm\n", p.LensMagnification, p.DistLensScreen)
	}
	fmt.Printf("IPD: %.1f mm, head %.0f mm, neck %.0f mm, pupil %.1f mm\n", p.IPD, p.HeadLength, p.NeckLength, p.PupilDiameter)

	th := effects.FoveationThresholds(p, effects.DefaultMiddleFactor, effects.DefaultOuterFactor)
	fmt.Printf("Foveation: %.5f deg/px, e1 %.3f deg, e2 %.3f deg\n", th.PixelVA, th.E1, th.E2)
	l, r := effects.LensCenters(p)
	fmt.Printf("Lens centers: L(%.3f, %.3f) R(%.3f, %.3f)\n", l[0], l[1], r[0], r[1])

	state := pose.Default(p)
	list, _ := cfg.ParsedModes()
	for _, m := range list {
		set, err := transform.Compute(m, state.Geometry(), p)
		fmt.Println("------------------------------------------------------------")
		if err != nil {
			fmt.Printf("%s: %v\n", m, err)
			continue
		}
		fmt.Printf("%s (clip %.0f..%.0f)\n", m, set.ClipNear, set.ClipFar)
		if !set.Stereo {
			printMat("view", set.View)
			printMat("projection", set.Projection)
			continue
		}
		f := set.Frustum
		fmt.Printf("  frustum L: l=%.3f r=%.3f t=%.3f b=%.3f\n", f.L.Left, f.L.Right, f.L.Top, f.L.Bottom)
		fmt.Printf("  frustum R: l=%.3f r=%.3f t=%.3f b=%.3f\n", f.R.Left, f.R.Right, f.R.Top, f.R.Bottom)
		printMat("view L", set.ViewL)
		printMat("view R", set.ViewR)
		printMat("projection L", set.ProjectionL)
		printMat("projection R", set.ProjectionR)
	}
}

func printMat(name string, m mathutil.Mat4) {
	fmt.Printf("  %s:\n", name)
	for i := 0; i < 4; i++ {
		row := m.Row(i)
		fmt.Printf("    [%10.4f %10.4f %10.4f %10.4f]\n", row[0], row[1], row[2], row[3])
	}
}
