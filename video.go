// video.go - shared video-adapter types: apertures, raster framebuffer
//
// Scaler and presentation math live on the display-backend side; this
// module only defines the aperture selection and the raw raster field
// each adapter exposes.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

// Aperture selects how much of an adapter's raw raster field a caller
// wants back from Frame(); resampling and color conversion are the
// display backend's job, not this module's.
type Aperture int

const (
	ApertureCropped Aperture = iota
	ApertureAccurate
	ApertureFull
	ApertureDebug
)

// RasterField is the raw scan-out buffer an adapter produces: one byte
// per pixel (a palette index), sized to the adapter's total raster
// (including blanking) so any Aperture can be sliced from it without
// re-rendering. Width/Height is the raw raster extent, blanking and
// sync included; Overscan is the smaller "all overscan, no blanking"
// extent the Full aperture selects, distinct from Debug which goes all
// the way out to Width/Height.
type RasterField struct {
	Width, Height int    // total raster, including hblank/vblank (Debug aperture)
	Overscan      [2]int // active display + all overscan, excluding blanking (Full aperture)
	Displayed     [2]int // displayed width/height, i.e. Cropped aperture extent
	Pixels        []byte
}

func newRasterField(totalW, totalH, overscanW, overscanH, dispW, dispH int) *RasterField {
	return &RasterField{
		Width: totalW, Height: totalH,
		Overscan:  [2]int{overscanW, overscanH},
		Displayed: [2]int{dispW, dispH},
		Pixels:    make([]byte, totalW*totalH),
	}
}

// Crop returns the sub-rectangle of Pixels selected by ap, without
// resampling or color conversion. Full and Debug are distinct extents:
// Full stops at the overscan border, Debug goes all the way to the raw
// raster edge (hblank/vblank included).
func (r *RasterField) Crop(ap Aperture) (pixels []byte, w, h int) {
	switch ap {
	case ApertureCropped:
		w, h = r.Displayed[0], r.Displayed[1]
	case ApertureAccurate:
		w, h = r.Displayed[0]+16, r.Displayed[1]+8
	case ApertureFull:
		w, h = r.Overscan[0], r.Overscan[1]
	case ApertureDebug:
		w, h = r.Width, r.Height
	}
	if w > r.Width {
		w = r.Width
	}
	if h > r.Height {
		h = r.Height
	}
	out := make([]byte, w*h)
	for y := 0; y < h; y++ {
		copy(out[y*w:(y+1)*w], r.Pixels[y*r.Width:y*r.Width+w])
	}
	return out, w, h
}

// VideoAdapter is the common surface Machine drives: one Tick per CPU
// clock, plus a Frame snapshot for the display backend.
type VideoAdapter interface {
	Tick()
	Frame() *RasterField
	Reset()
}
