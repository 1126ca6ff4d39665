// Package config loads the renderer's JSON configuration and merges CLI
// flags over it.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"go.uber.org/multierr"

	"vr-hmd-renderer/internal/display"
	"vr-hmd-renderer/internal/transform"
)

var ErrInvalid = errors.New("config: invalid")

// Telemetry source kinds.
const (
	SourceNone       = ""
	SourceFile       = "file"
	SourceWebSocket  = "websocket"
	SourceIMU        = "imu"
	SourceLighthouse = "lighthouse"
)

// Telemetry selects where pose updates come from.
type Telemetry struct {
	Source string `json:"source"`
	// Path is a recorded feed for file, imu and lighthouse; URL is used by
	// websocket.
	Path    string  `json:"path"`
	URL     string  `json:"url"`
	Alpha   float64 `json:"alpha"`    // imu complementary filter
	ClockHz float64 `json:"clock_hz"` // lighthouse timing clock
}

// Config holds the display description and render settings.
type Config struct {
	// Preset is "hmd" or "monitor"; Display, when set, replaces it.
	Preset  string             `json:"preset"`
	Display *display.Constants `json:"display,omitempty"`

	OutputDir   string   `json:"output_dir"`
	Width       int      `json:"width"`
	Height      int      `json:"height"`
	Supersample int      `json:"supersample"`
	Format      string   `json:"format"`
	Workers     int      `json:"workers"`
	Modes       []string `json:"modes"`

	// Frames > 0 runs a session of that many frames instead of one image
	// per mode; FrameEvery thins the written frames and SwitchEvery, when
	// set, moves to the next of Modes after that many frames.
	Frames      int `json:"frames"`
	FrameEvery  int `json:"frame_every"`
	SwitchEvery int `json:"switch_every"`

	Telemetry Telemetry `json:"telemetry"`
}

// Load reads a JSON config file and returns Config.
// Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	Preset    string
	OutputDir string
	Width     int
	Height    int
	Format    string
	Workers   int
	Modes     string // comma separated
	Frames      int
	SwitchEvery int
	Source      string
	Feed      string // path or URL, depending on Source
}

// Resolve merges flags over the file settings and fills defaults.
// CLI flags take priority when non-zero/non-empty.
func (c *Config) Resolve(flags Flags) {
	if flags.Preset != "" {
		c.Preset = flags.Preset
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.Width > 0 {
		c.Width = flags.Width
	}
	if flags.Height > 0 {
		c.Height = flags.Height
	}
	if flags.Format != "" {
		c.Format = flags.Format
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.Modes != "" {
		c.Modes = strings.Split(flags.Modes, ",")
	}
	if flags.Frames > 0 {
		c.Frames = flags.Frames
	}
	if flags.SwitchEvery > 0 {
		c.SwitchEvery = flags.SwitchEvery
	}
	if flags.Source != "" {
		c.Telemetry.Source = flags.Source
	}
	if flags.Feed != "" {
		if c.Telemetry.Source == SourceWebSocket {
			c.Telemetry.URL = flags.Feed
		} else {
			c.Telemetry.Path = flags.Feed
		}
	}

	if c.Preset == "" {
		c.Preset = "hmd"
	}
	if c.OutputDir == "" {
		c.OutputDir = "renders"
	}
	if c.Width <= 0 {
		c.Width = 960
	}
	if c.Height <= 0 {
		c.Height = 540
	}
	if c.Supersample <= 0 {
		c.Supersample = 2
	}
	if c.Format == "" {
		c.Format = "webp"
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if len(c.Modes) == 0 {
		for _, m := range transform.Modes {
			c.Modes = append(c.Modes, m.String())
		}
	}
	if c.FrameEvery <= 0 {
		c.FrameEvery = 1
	}
}

// Constants returns the display description: Display when given, else the
// preset.
func (c *Config) Constants() (display.Constants, error) {
	if c.Display != nil {
		return *c.Display, nil
	}
	switch strings.ToLower(c.Preset) {
	case "", "hmd":
		return display.HMDConstants(), nil
	case "monitor":
		return display.MonitorConstants(), nil
	}
	return display.Constants{}, fmt.Errorf("%w: unknown preset %q", ErrInvalid, c.Preset)
}

// ParsedModes converts Modes to transform modes.
func (c *Config) ParsedModes() ([]transform.Mode, error) {
	var err error
	modes := make([]transform.Mode, 0, len(c.Modes))
	for _, s := range c.Modes {
		m, perr := transform.ParseMode(s)
		if perr != nil {
			err = multierr.Append(err, perr)
			continue
		}
		modes = append(modes, m)
	}
	return modes, err
}

// Validate reports every problem of a resolved config at once.
func (c *Config) Validate() error {
	var err error
	if _, cerr := c.Constants(); cerr != nil {
		err = multierr.Append(err, cerr)
	} else if c.Display != nil {
		err = multierr.Append(err, c.Display.Validate())
	}
	if c.Width <= 0 || c.Height <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: size %dx%d", ErrInvalid, c.Width, c.Height))
	}
	if c.SwitchEvery < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: switch_every %d", ErrInvalid, c.SwitchEvery))
	}
	if c.Supersample > 4 {
		err = multierr.Append(err, fmt.Errorf("%w: supersample %d exceeds 4", ErrInvalid, c.Supersample))
	}
	switch strings.ToLower(c.Format) {
	case "webp", "tga":
	default:
		err = multierr.Append(err, fmt.Errorf("%w: format %q", ErrInvalid, c.Format))
	}
	if _, merr := c.ParsedModes(); merr != nil {
		err = multierr.Append(err, merr)
	}

	t := c.Telemetry
	switch t.Source {
	case SourceNone:
	case SourceFile, SourceIMU, SourceLighthouse:
		if t.Path == "" {
			err = multierr.Append(err, fmt.Errorf("%w: telemetry source %s needs a path", ErrInvalid, t.Source))
		}
	case SourceWebSocket:
		if t.URL == "" {
			err = multierr.Append(err, fmt.Errorf("%w: websocket telemetry needs a url", ErrInvalid))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("%w: telemetry source %q", ErrInvalid, t.Source))
	}
	if t.Alpha < 0 || t.Alpha > 1 {
		err = multierr.Append(err, fmt.Errorf("%w: telemetry alpha %v outside [0,1]", ErrInvalid, t.Alpha))
	}
	return err
}
