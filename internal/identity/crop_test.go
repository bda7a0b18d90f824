package identity

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dooh-labs/attentiond/internal/detect"
)

// testFrame encodes a 200x200 JPEG with a simple gradient.
func testFrame(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode test frame: %v", err)
	}
	return buf.Bytes()
}

func TestCropFace(t *testing.T) {
	frame := testFrame(t)

	crop, err := CropFace(frame, detect.Box{X1: 50, Y1: 50, X2: 150, Y2: 150})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(crop))
	if err != nil {
		t.Fatalf("crop is not a valid JPEG: %v", err)
	}

	b := img.Bounds()
	if b.Dx() != cropSize || b.Dy() != cropSize {
		t.Errorf("expected %dx%d crop, got %dx%d", cropSize, cropSize, b.Dx(), b.Dy())
	}
}

func TestCropFace_ClampsToFrame(t *testing.T) {
	frame := testFrame(t)

	// Box partially outside the frame still produces a crop
	if _, err := CropFace(frame, detect.Box{X1: -20, Y1: -20, X2: 60, Y2: 60}); err != nil {
		t.Errorf("expected partial box to be clamped, got error: %v", err)
	}
}

func TestCropFace_OffscreenBox(t *testing.T) {
	frame := testFrame(t)

	_, err := CropFace(frame, detect.Box{X1: 300, Y1: 300, X2: 400, Y2: 400})
	if !errors.Is(err, ErrEmptyCrop) {
		t.Errorf("expected ErrEmptyCrop for off-screen box, got %v", err)
	}
}

func TestCropFace_InvalidFrame(t *testing.T) {
	_, err := CropFace([]byte("not a jpeg"), detect.Box{X1: 0, Y1: 0, X2: 10, Y2: 10})
	if err == nil {
		t.Error("expected error for undecodable frame")
	}
}

func TestClient_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed/face" {
			t.Errorf("expected path /embed/face, got %s", r.URL.Path)
		}
		// Deliberately unnormalized; the client must fix it up
		_, _ = w.Write([]byte(`{"dim": 2, "embedding": [3, 4], "model": "arcface"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	emb, err := client.Embed(context.Background(), []byte("fake-crop"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var norm float64
	for _, x := range emb {
		norm += float64(x) * float64(x)
	}
	if math.Abs(math.Sqrt(norm)-1) > 1e-6 {
		t.Errorf("expected unit-norm embedding, got norm %v", math.Sqrt(norm))
	}
}

func TestClient_Embed_EmptyEmbedding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"dim": 0, "embedding": []}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	_, err := client.Embed(context.Background(), []byte("fake-crop"))
	if !errors.Is(err, ErrEmbed) {
		t.Errorf("expected ErrEmbed for empty embedding, got %v", err)
	}
}

func TestClient_Embed_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL)

	_, err := client.Embed(context.Background(), []byte("fake-crop"))
	if !errors.Is(err, ErrEmbed) {
		t.Errorf("expected ErrEmbed, got %v", err)
	}
}
