package imaging

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encoding test png: %v", err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil); err != nil {
		t.Fatalf("encoding test jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestProcessKeepsFormat(t *testing.T) {
	res, err := Process(bytes.NewReader(encodePNG(t, 100, 100)))
	if err != nil {
		t.Fatalf("Process png: %v", err)
	}
	if res.MIME != "image/png" {
		t.Errorf("expected image/png, got %s", res.MIME)
	}

	res, err = Process(bytes.NewReader(encodeJPEG(t, 100, 100)))
	if err != nil {
		t.Fatalf("Process jpeg: %v", err)
	}
	if res.MIME != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %s", res.MIME)
	}
}

func TestProcessDownscales(t *testing.T) {
	res, err := Process(bytes.NewReader(encodePNG(t, MaxDimension*2, MaxDimension)))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	img, _, err := image.Decode(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("decoding result: %v", err)
	}

	b := img.Bounds()
	if b.Dx() != MaxDimension || b.Dy() != MaxDimension/2 {
		t.Errorf("expected %dx%d, got %dx%d", MaxDimension, MaxDimension/2, b.Dx(), b.Dy())
	}
}

func TestProcessSmallImageUnscaled(t *testing.T) {
	res, err := Process(bytes.NewReader(encodePNG(t, 64, 48)))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	img, _, err := image.Decode(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 48 {
		t.Errorf("expected 64x48, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestProcessRejectsGarbage(t *testing.T) {
	if _, err := Process(bytes.NewReader([]byte("not an image at all"))); err == nil {
		t.Error("expected error for non-image data")
	}
}
