package screen

import (
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jrockway/console-clock/control/segment"
)

type recorder struct {
	words []uint32
	err   error
}

func (r *recorder) ShiftOut(w uint32) error {
	r.words = append(r.words, w)
	return r.err
}

func TestShow(t *testing.T) {
	r := new(recorder)
	s := NewScreen(r)
	if err := s.Show(123, 4); err != nil {
		t.Fatal(err)
	}
	if err := s.Blank(); err != nil {
		t.Fatal(err)
	}
	want := []uint32{uint32(segment.Encode(123, 4)), 0}
	if diff := cmp.Diff(want, r.words); diff != "" {
		t.Errorf("words:\n%s", diff)
	}
	if got := s.Word(); got != 0 {
		t.Errorf("word after blank:\n  got: %#x\n want: 0", got)
	}
}

func TestShowError(t *testing.T) {
	r := &recorder{err: errors.New("spi bus on fire")}
	s := NewScreen(r)
	if err := s.Show(1, 1); !errors.Is(err, r.err) {
		t.Errorf("error:\n  got: %v\n want: %v", err, r.err)
	}
	// The preview still reflects the attempt.
	if got, want := s.Word(), segment.Encode(1, 1); got != want {
		t.Errorf("word:\n  got: %#x\n want: %#x", got, want)
	}
}

func TestNoDriver(t *testing.T) {
	s := NewScreen(nil)
	if err := s.Show(999, 8); err != nil {
		t.Fatal(err)
	}
	if got, want := s.Word(), segment.Encode(999, 8); got != want {
		t.Errorf("word:\n  got: %#x\n want: %#x", got, want)
	}
}

func TestPreview(t *testing.T) {
	s := NewScreen(nil)
	if err := s.Show(180, 2); err != nil {
		t.Fatal(err)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest("GET", "/display.png", nil))
	if got, want := rec.Code, http.StatusOK; got != want {
		t.Fatalf("status:\n  got: %v\n want: %v", got, want)
	}
	if got, want := rec.Header().Get("content-type"), "image/png"; got != want {
		t.Errorf("content-type:\n  got: %v\n want: %v", got, want)
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if got, want := img.Bounds(), image.Rect(0, 0, previewWidth, previewHeight); got != want {
		t.Errorf("bounds:\n  got: %v\n want: %v", got, want)
	}

	center := func(r image.Rectangle) (int, int) { return (r.Min.X + r.Max.X) / 2, (r.Min.Y + r.Max.Y) / 2 }
	isLit := func(x, y int) bool {
		r, g, b, _ := img.At(x, y).RGBA()
		lr, lg, lb, _ := lit.RGBA()
		br, bg, bb, _ := barLit.RGBA()
		return (r == lr && g == lg && b == lb) || (r == br && g == bg && b == bb)
	}

	// Encode always sets the middle digit's decimal point.
	testData := []struct {
		digit int
		lit   string
	}{
		{0, "BC"},
		{1, "ABCDEFG."},
		{2, "ABCDEF"},
	}
	names := "ABCDEFG."
	for _, test := range testData {
		rects := segmentRects(margin+test.digit*(digitWidth+digitSpacing), margin)
		for seg, r := range rects {
			want := false
			for _, c := range test.lit {
				if byte(c) == names[seg] {
					want = true
				}
			}
			if got := isLit(center(r)); got != want {
				t.Errorf("digit %d segment %c:\n  got: %v\n want: %v", test.digit, names[seg], got, want)
			}
		}
	}

	for n := 1; n <= segment.MaxLevel; n++ {
		x := margin + (n-1)*(ledSize+ledSpacing) + ledSize/2
		y := 2*margin + digitHeight + ledSize/2
		if got, want := isLit(x, y), n <= 2; got != want {
			t.Errorf("bar led %d:\n  got: %v\n want: %v", n, got, want)
		}
	}
}
