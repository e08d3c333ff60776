package service

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/daysofyou/internal/db"
)

func pngDataURL(t *testing.T) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func daysWithPhoto(t *testing.T, photoData string) db.DayList {
	t.Helper()

	cal := db.Calendar{Days: db.DefaultDays(time.Now())}
	patched, err := db.ApplyDayPatch(cal, 1, db.DayPatch{"photoData": photoData}, time.Now())
	if err != nil {
		t.Fatalf("apply patch: %v", err)
	}
	return patched.Days
}

func TestValidateDayImagesAcceptsDecodablePayload(t *testing.T) {
	if err := validateDayImages(daysWithPhoto(t, pngDataURL(t))); err != nil {
		t.Fatalf("valid png rejected: %v", err)
	}
}

func TestValidateDayImagesIgnoresPresetPathsAndURLs(t *testing.T) {
	if err := validateDayImages(daysWithPhoto(t, "/bg1.jpg")); err != nil {
		t.Fatalf("preset path rejected: %v", err)
	}
	if err := validateDayImages(daysWithPhoto(t, "https://example.com/cover.png")); err != nil {
		t.Fatalf("plain url rejected: %v", err)
	}
	if err := validateDayImages(daysWithPhoto(t, "")); err != nil {
		t.Fatalf("empty payload rejected: %v", err)
	}
}

func TestValidateDayImagesRejectsGarbage(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "not base64", payload: "data:image/png;base64,@@@@"},
		{name: "no comma", payload: "data:image/png;base64"},
		{name: "not an image", payload: "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("hello"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateDayImages(daysWithPhoto(t, tt.payload))
			if !errors.Is(err, ErrInvalidImage) {
				t.Fatalf("expected ErrInvalidImage, got %v", err)
			}
		})
	}
}
