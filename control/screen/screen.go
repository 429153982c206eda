// Package screen drives the seven-segment display board, and retains a rendering of what it shows
// for debugging the rest of the program without the board attached.
package screen

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log"
	"net/http"
	"sync"

	"github.com/jrockway/console-clock/control/segment"
	"github.com/jrockway/console-clock/control/shiftreg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	digitWidth   = 40
	digitHeight  = 80
	stroke       = 8  // Thickness of a segment.
	digitSpacing = 24 // Gap between digits, wide enough for the decimal point.
	margin       = 16
	ledSize      = 12
	ledSpacing   = 6
	labelHeight  = 20

	previewWidth  = 2*margin + 3*digitWidth + 3*digitSpacing
	previewHeight = 2*margin + digitHeight + margin + ledSize + labelHeight
)

var (
	background = color.NRGBA{R: 0x10, G: 0x10, B: 0x10, A: 0xff}
	unlit      = color.NRGBA{R: 0x30, G: 0x08, B: 0x08, A: 0xff}
	lit        = color.NRGBA{R: 0xff, G: 0x20, B: 0x10, A: 0xff}
	barLit     = color.NRGBA{R: 0x20, G: 0xff, B: 0x40, A: 0xff}
	labelColor = color.NRGBA{R: 0xa0, G: 0xa0, B: 0xa0, A: 0xff}
)

// Screen is the display board: three digits and an eight-LED bar behind a 32-bit shift register
// chain.  Every Show replaces the whole word.
type Screen struct {
	driver shiftreg.Driver

	imageMu sync.Mutex
	word    segment.Word // must hold imageMu to read or write.
	image   *image.NRGBA // must hold imageMu to read or write.
}

// NewScreen returns an initialized Screen.  If driver is nil, only the preview is updated.
func NewScreen(driver shiftreg.Driver) *Screen {
	s := &Screen{
		driver: driver,
		image:  image.NewNRGBA(image.Rect(0, 0, previewWidth, previewHeight)),
	}
	s.updateCurrentImage(0)
	return s
}

// Show displays value (modulo 1000) on the digits and lights the first level LEDs of the bar.
func (s *Screen) Show(value uint16, level uint8) error {
	return s.Write(segment.Encode(value, level))
}

// Blank turns every segment and LED off.
func (s *Screen) Blank() error {
	if err := s.Write(0); err != nil {
		return fmt.Errorf("blank display: %w", err)
	}
	return nil
}

// Write shifts a raw word out to the board.
func (s *Screen) Write(w segment.Word) error {
	s.updateCurrentImage(w)
	if s.driver == nil {
		return nil
	}
	if err := s.driver.ShiftOut(uint32(w)); err != nil {
		return fmt.Errorf("shift out 0x%08x: %w", uint32(w), err)
	}
	return nil
}

// Word returns the word most recently written.
func (s *Screen) Word() segment.Word {
	s.imageMu.Lock()
	defer s.imageMu.Unlock()
	return s.word
}

// ServeHTTP serves the current image as a PNG.
func (s *Screen) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	w.Header().Add("content-type", "image/png")
	w.WriteHeader(http.StatusOK)
	s.imageMu.Lock()
	defer s.imageMu.Unlock()
	if err := png.Encode(w, s.image); err != nil {
		log.Printf("encoding image: %v", err)
	}
}

// updateCurrentImage redraws the preview from the word, so that the preview shows exactly what the
// wiring would light, including any garbage.
func (s *Screen) updateCurrentImage(w segment.Word) {
	s.imageMu.Lock()
	defer s.imageMu.Unlock()
	s.word = w
	draw.Draw(s.image, s.image.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	for p := segment.Hundreds; p <= segment.Units; p++ {
		x := margin + int(p)*(digitWidth+digitSpacing)
		ss := w.Segments(p)
		for seg, r := range segmentRects(x, margin) {
			c := unlit
			if ss.Has(segment.Segment(seg)) {
				c = lit
			}
			fill(s.image, r, c)
		}
	}

	y := 2*margin + digitHeight
	for n := 1; n <= segment.MaxLevel; n++ {
		x := margin + (n-1)*(ledSize+ledSpacing)
		c := unlit
		if w.LED(n) {
			c = barLit
		}
		fill(s.image, image.Rect(x, y, x+ledSize, y+ledSize), c)
	}

	d := &font.Drawer{
		Dst:  s.image,
		Src:  image.NewUniform(labelColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(margin, previewHeight-margin/2),
	}
	d.DrawString(fmt.Sprintf("0x%08x", uint32(w)))
}

// segmentRects returns the rectangle of each segment (A-G, then DP) of a digit whose top-left corner
// is at (x, y).
func segmentRects(x, y int) [8]image.Rectangle {
	w, h, t := digitWidth, digitHeight, stroke
	return [8]image.Rectangle{
		segment.A:  image.Rect(x+t, y, x+w-t, y+t),
		segment.B:  image.Rect(x+w-t, y+t, x+w, y+h/2),
		segment.C:  image.Rect(x+w-t, y+h/2, x+w, y+h-t),
		segment.D:  image.Rect(x+t, y+h-t, x+w-t, y+h),
		segment.E:  image.Rect(x, y+h/2, x+t, y+h-t),
		segment.F:  image.Rect(x, y+t, x+t, y+h/2),
		segment.G:  image.Rect(x+t, y+h/2-t/2, x+w-t, y+h/2+t/2),
		segment.DP: image.Rect(x+w+t/2, y+h-t, x+w+t/2+t, y+h),
	}
}

func fill(img draw.Image, r image.Rectangle, c color.Color) {
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
}
