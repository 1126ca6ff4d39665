package batch

import (
	"encoding/json"
	"os"
)

// ManifestEntry represents one written frame in the output manifest.
type ManifestEntry struct {
	Mode  string `json:"mode"`
	Frame uint64 `json:"frame"`
	Stale bool   `json:"stale,omitempty"`
	Image string `json:"image"`
}

// Manifest lists the written frames and the size they were written at.
type Manifest struct {
	Width  int             `json:"width"`
	Height int             `json:"height"`
	Format Format          `json:"format"`
	Frames []ManifestEntry `json:"frames"`
}

// WriteManifest writes the successful results to path as JSON.
func WriteManifest(path string, cfg Config, results []Result) error {
	m := Manifest{Width: cfg.Width, Height: cfg.Height, Format: cfg.Format, Frames: []ManifestEntry{}}
	for _, r := range results {
		if !r.Success {
			continue
		}
		m.Frames = append(m.Frames, ManifestEntry{
			Mode:  r.Mode.String(),
			Frame: r.Frame,
			Stale: r.Stale,
			Image: r.Image,
		})
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
