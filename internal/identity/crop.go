package identity

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"

	"github.com/dooh-labs/attentiond/internal/detect"
)

// cropSize is the square resolution the embedding model expects.
const cropSize = 112

// ErrEmptyCrop is returned when the detection box has no area inside the
// frame, for example when the box sits entirely off-screen.
var ErrEmptyCrop = errors.New("empty face crop")

// CropFace extracts the detection box from a JPEG frame, scales it to the
// embedding input resolution and re-encodes it as JPEG.
func CropFace(frame []byte, box detect.Box) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}

	bounds := img.Bounds()
	rect := image.Rect(box.X1, box.Y1, box.X2, box.Y2).Intersect(bounds)
	if rect.Empty() {
		return nil, ErrEmptyCrop
	}

	dst := image.NewRGBA(image.Rect(0, 0, cropSize, cropSize))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, rect, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, nil); err != nil {
		return nil, fmt.Errorf("failed to encode crop: %w", err)
	}

	return buf.Bytes(), nil
}
