package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

// encode renders a solid w×h image as JPEG or PNG.
func encode(t *testing.T, format string, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	fill := color.RGBA{R: 200, G: 120, B: 40, A: 255}
	for y := range h {
		for x := range w {
			img.Set(x, y, fill)
		}
	}

	var buf bytes.Buffer
	var err error
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	case "png":
		err = png.Encode(&buf, img)
	default:
		t.Fatalf("unknown test format %q", format)
	}
	if err != nil {
		t.Fatalf("encoding %s fixture: %v", format, err)
	}
	return buf.Bytes()
}

func TestProcessResizesToJPEG(t *testing.T) {
	tests := []struct {
		name         string
		format       string
		w, h         int
		maxDimension int
		wantW, wantH int
	}{
		{"small jpeg kept", "jpeg", 50, 50, 0, 50, 50},
		{"small png converted", "png", 100, 100, 0, 100, 100},
		{"wide photo capped", "jpeg", 2048, 1024, 0, DefaultMaxDimension, DefaultMaxDimension / 2},
		{"tall label capped", "png", 100, 200, 64, 32, 64},
		{"exact bound untouched", "png", 64, 10, 64, 64, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Processor{MaxDimension: tt.maxDimension}
			photo, err := p.Process(bytes.NewReader(encode(t, tt.format, tt.w, tt.h)))
			if err != nil {
				t.Fatalf("Process: %v", err)
			}
			if photo.MIME != "image/jpeg" {
				t.Errorf("MIME = %q, want image/jpeg", photo.MIME)
			}

			img, format, err := image.Decode(bytes.NewReader(photo.Data))
			if err != nil {
				t.Fatalf("decoding output: %v", err)
			}
			if format != "jpeg" {
				t.Errorf("output format = %q, want jpeg", format)
			}
			if w, h := img.Bounds().Dx(), img.Bounds().Dy(); w != tt.wantW || h != tt.wantH {
				t.Errorf("size = %dx%d, want %dx%d", w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestProcessRejects(t *testing.T) {
	pngData := encode(t, "png", 64, 64)

	tests := []struct {
		name  string
		p     Processor
		input []byte
		want  error
	}{
		{"plain text", Processor{}, []byte("not an image"), ErrUnsupportedFormat},
		{"gif header", Processor{}, []byte("GIF89a\x01\x00\x01\x00"), ErrUnsupportedFormat},
		{"empty upload", Processor{}, nil, ErrUnsupportedFormat},
		{"over byte limit", Processor{MaxBytes: int64(len(pngData) - 1)}, pngData, ErrTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.p.Process(bytes.NewReader(tt.input))
			if !errors.Is(err, tt.want) {
				t.Errorf("Process error = %v, want %v", err, tt.want)
			}
		})
	}
}
