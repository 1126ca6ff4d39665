package display

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/multierr"
)

// ErrInvalidConstants wraps every configuration error reported by New.
var ErrInvalidConstants = errors.New("display: invalid constants")

const inchToMM = 25.4

// Lens describes the magnifier of an HMD. All lengths in mm.
type Lens struct {
	FocalLength    float64 `json:"focal_length"`
	EyeRelief      float64 `json:"eye_relief"`
	DistLensScreen float64 `json:"dist_lens_screen"`
	Diameter       float64 `json:"diameter"`
}

// Constants are the fixed physical properties of the display and viewer.
// Either ScreenWidthMM or ScreenDiagonalInch sizes the panel. Without a Lens
// the viewer looks at the panel directly from ViewingDistanceMM.
type Constants struct {
	ScreenWidthMM      float64 `json:"screen_width_mm"`
	ScreenHeightMM     float64 `json:"screen_height_mm"`
	ScreenDiagonalInch float64 `json:"screen_diagonal_inch"`
	ScreenResX         int     `json:"screen_res_x"`
	ScreenResY         int     `json:"screen_res_y"`
	ViewingDistanceMM  float64 `json:"viewing_distance_mm"`
	Lens               *Lens   `json:"lens,omitempty"`
	IPD                float64 `json:"ipd"`
	HeadLength         float64 `json:"head_length"`
	NeckLength         float64 `json:"neck_length"`
	PupilDiameter      float64 `json:"pupil_diameter"`
}

// HMDConstants returns the head-mounted display used by the lens homeworks:
// a 132.5mm × 74.5mm 1920×1080 panel behind f=40mm magnifiers.
func HMDConstants() Constants {
	return Constants{
		ScreenWidthMM:  132.5,
		ScreenHeightMM: 74.5,
		ScreenResX:     1920,
		ScreenResY:     1080,
		Lens: &Lens{
			FocalLength:    40,
			EyeRelief:      18,
			DistLensScreen: 39,
			Diameter:       34,
		},
		IPD:           64,
		HeadLength:    200,
		NeckLength:    200,
		PupilDiameter: 3,
	}
}

// MonitorConstants returns a 27" desktop monitor viewed from 800mm.
func MonitorConstants() Constants {
	return Constants{
		ScreenDiagonalInch: 27,
		ScreenResX:         2560,
		ScreenResY:         1440,
		ViewingDistanceMM:  800,
		IPD:                64,
		PupilDiameter:      3,
	}
}

// Params holds the derived optics consumed by the transform engine.
// Only CanvasWidth and CanvasHeight change after construction (see Resize).
type Params struct {
	CanvasWidth  int
	CanvasHeight int

	PixelPitch           float64 // mm per pixel
	DistanceScreenViewer float64 // mm, to the (virtual) screen
	IPD                  float64
	DistLensScreen       float64 // 0 without a lens
	LensMagnification    float64 // 1 without a lens
	HeadLength           float64
	NeckLength           float64
	PupilDiameter        float64
	HasLens              bool
}

// New validates the constants and derives the display parameters.
// Every invalid constant is reported in the returned error.
func New(c Constants, canvasWidth, canvasHeight int) (*Params, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if canvasWidth <= 0 || canvasHeight <= 0 {
		return nil, fmt.Errorf("%w: canvas %dx%d", ErrInvalidConstants, canvasWidth, canvasHeight)
	}

	p := &Params{
		CanvasWidth:       canvasWidth,
		CanvasHeight:      canvasHeight,
		PixelPitch:        c.pixelPitch(),
		IPD:               c.IPD,
		HeadLength:        c.HeadLength,
		NeckLength:        c.NeckLength,
		PupilDiameter:     c.PupilDiameter,
		LensMagnification: 1,
	}

	if c.Lens == nil {
		p.DistanceScreenViewer = c.ViewingDistanceMM
		return p, nil
	}

	mag, err := LensMagnification(c.Lens.FocalLength, c.Lens.DistLensScreen)
	if err != nil {
		return nil, err
	}
	dist, err := DistanceScreenViewer(c.Lens.FocalLength, c.Lens.DistLensScreen, c.Lens.EyeRelief)
	if err != nil {
		return nil, err
	}
	p.HasLens = true
	p.DistLensScreen = c.Lens.DistLensScreen
	p.LensMagnification = mag
	p.DistanceScreenViewer = dist
	return p, nil
}

// Validate reports all non-physical constants at once.
func (c Constants) Validate() error {
	var err error
	if c.ScreenResX <= 0 || c.ScreenResY <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: resolution %dx%d", ErrInvalidConstants, c.ScreenResX, c.ScreenResY))
	}
	if c.ScreenWidthMM <= 0 && c.ScreenDiagonalInch <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: need screen width or diagonal", ErrInvalidConstants))
	}
	if c.IPD <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: ipd %v", ErrInvalidConstants, c.IPD))
	}
	if c.HeadLength < 0 || c.NeckLength < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: head %v neck %v", ErrInvalidConstants, c.HeadLength, c.NeckLength))
	}
	if c.Lens == nil {
		if c.ViewingDistanceMM <= 0 {
			err = multierr.Append(err, fmt.Errorf("%w: viewing distance %v", ErrInvalidConstants, c.ViewingDistanceMM))
		}
		return err
	}
	l := c.Lens
	if l.FocalLength <= 0 || l.DistLensScreen <= 0 || l.EyeRelief < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: lens f=%v d=%v relief=%v",
			ErrInvalidConstants, l.FocalLength, l.DistLensScreen, l.EyeRelief))
	} else if l.DistLensScreen >= l.FocalLength {
		err = multierr.Append(err, fmt.Errorf("%w: screen at %vmm is not inside focal length %vmm",
			ErrInvalidConstants, l.DistLensScreen, l.FocalLength))
	}
	return err
}

func (c Constants) pixelPitch() float64 {
	if c.ScreenWidthMM > 0 {
		return c.ScreenWidthMM / float64(c.ScreenResX)
	}
	// Physical width from the diagonal and the pixel aspect ratio.
	aspect := float64(c.ScreenResX) / float64(c.ScreenResY)
	w := c.ScreenDiagonalInch * inchToMM / math.Sqrt(1+1/(aspect*aspect))
	return w / float64(c.ScreenResX)
}

// LensMagnification returns f/(f-d) for a screen at distance d inside the
// focal length f of a magnifier.
func LensMagnification(focalLength, distLensScreen float64) (float64, error) {
	if focalLength <= 0 || distLensScreen <= 0 || distLensScreen >= focalLength {
		return 0, fmt.Errorf("%w: magnification undefined for f=%v d=%v",
			ErrInvalidConstants, focalLength, distLensScreen)
	}
	return focalLength / (focalLength - distLensScreen), nil
}

// DistanceScreenViewer returns eyeRelief + 1/|1/d - 1/f|, the distance from
// the eye to the virtual image of the screen.
func DistanceScreenViewer(focalLength, distLensScreen, eyeRelief float64) (float64, error) {
	den := math.Abs(1/distLensScreen - 1/focalLength)
	if focalLength <= 0 || distLensScreen <= 0 || den == 0 || math.IsNaN(den) {
		return 0, fmt.Errorf("%w: virtual image undefined for f=%v d=%v",
			ErrInvalidConstants, focalLength, distLensScreen)
	}
	return eyeRelief + 1/den, nil
}

// Resize records a new canvas size. Optics are left untouched. Params are
// read without locking, so only the goroutine running the frame loop may
// call Resize; input handlers resize through pose.Controller.Resize.
func (p *Params) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	p.CanvasWidth = width
	p.CanvasHeight = height
}

// CanvasSizeMM is the physical size of the whole canvas.
func (p *Params) CanvasSizeMM() (w, h float64) {
	return float64(p.CanvasWidth) * p.PixelPitch, float64(p.CanvasHeight) * p.PixelPitch
}

// EyeViewportMM is the physical size of one eye's half of a split-screen canvas.
func (p *Params) EyeViewportMM() (w, h float64) {
	cw, ch := p.CanvasSizeMM()
	return cw / 2, ch
}
