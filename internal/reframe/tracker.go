// Package reframe makes the per-clip render decisions: which layout to
// compose and where to place the crop window as the subject moves.
// Everything here is pure; detector output goes in, crop geometry
// comes out, and identical inputs always produce identical results.
package reframe

// Box is a face bounding box in source pixel coordinates.
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Center returns the box midpoint.
func (b Box) Center() (float64, float64) {
	return b.X + b.W/2, b.Y + b.H/2
}

// Area returns the box area, used to pick the dominant face.
func (b Box) Area() float64 { return b.W * b.H }

// DefaultAlpha is the exponential smoothing factor for the running
// crop center.
const DefaultAlpha = 0.15

// Tracker maintains a smoothed crop center across a clip. The center
// starts at the geometric center of the source frame; each observed
// face nudges it by alpha. If no face is ever observed the crop
// degrades to a plain centered crop.
type Tracker struct {
	srcW, srcH   float64
	cropW, cropH float64
	alpha        float64
	cx, cy       float64
}

// NewTracker sizes the crop window to the target aspect ratio
// (width/height) inside the source frame and initializes the running
// center at the frame center. Alpha outside (0,1) falls back to
// DefaultAlpha.
func NewTracker(srcW, srcH int, aspect, alpha float64) *Tracker {
	if alpha <= 0 || alpha >= 1 {
		alpha = DefaultAlpha
	}
	if aspect <= 0 {
		aspect = 9.0 / 16.0
	}
	w := float64(srcW)
	h := float64(srcH)
	cropW := h * aspect
	cropH := h
	if cropW > w {
		cropW = w
		cropH = w / aspect
	}
	return &Tracker{
		srcW:  w,
		srcH:  h,
		cropW: cropW,
		cropH: cropH,
		alpha: alpha,
		cx:    w / 2,
		cy:    h / 2,
	}
}

// Observe blends the largest detected face center into the running
// center. An empty detection is a valid outcome and leaves the center
// untouched.
func (t *Tracker) Observe(faces []Box) {
	if len(faces) == 0 {
		return
	}
	largest := faces[0]
	for _, f := range faces[1:] {
		if f.Area() > largest.Area() {
			largest = f
		}
	}
	fx, fy := largest.Center()
	t.cx = t.cx*(1-t.alpha) + fx*t.alpha
	t.cy = t.cy*(1-t.alpha) + fy*t.alpha
}

// Center returns the current smoothed crop center.
func (t *Tracker) Center() (float64, float64) { return t.cx, t.cy }

// Crop returns the crop window around the running center, clamped so
// it never exceeds the source bounds.
func (t *Tracker) Crop() Box {
	x := clamp(t.cx-t.cropW/2, 0, t.srcW-t.cropW)
	y := clamp(t.cy-t.cropH/2, 0, t.srcH-t.cropH)
	return Box{X: x, Y: y, W: t.cropW, H: t.cropH}
}

// CenteredCrop returns the crop a tracker would produce with no
// observations at all.
func CenteredCrop(srcW, srcH int, aspect float64) Box {
	return NewTracker(srcW, srcH, aspect, DefaultAlpha).Crop()
}

// CropAround returns an aspect-fitted crop centered as close to
// (cx, cy) as the source bounds allow.
func CropAround(srcW, srcH int, aspect, cx, cy float64) Box {
	t := NewTracker(srcW, srcH, aspect, DefaultAlpha)
	t.cx = clamp(cx, 0, t.srcW)
	t.cy = clamp(cy, 0, t.srcH)
	return t.Crop()
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
