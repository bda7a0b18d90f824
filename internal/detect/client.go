package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

const defaultDetectorURL = "http://localhost:8100"

// ErrInference marks a detector collaborator fault. It is distinct from a
// valid zero-detection frame, which is not an error at all.
var ErrInference = errors.New("detector inference fault")

// Detector produces raw per-stride network outputs for one frame.
type Detector interface {
	Detect(ctx context.Context, frame []byte) (RawOutput, error)
}

// Client talks to an inference server over HTTP. The server owns the
// neural network; this side only ships frames and receives tensors.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a detector client for the given inference server.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultDetectorURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{},
	}
}

// detectResponse mirrors the inference server's JSON payload.
type detectResponse struct {
	Scale   float64 `json:"scale"`
	PadLeft float64 `json:"pad_left"`
	PadTop  float64 `json:"pad_top"`
	Strides []struct {
		Stride    int       `json:"stride"`
		Scores    []float32 `json:"scores"`
		Boxes     []float32 `json:"boxes"`
		Keypoints []float32 `json:"keypoints"`
	} `json:"strides"`
}

// Detect posts the frame and returns the raw tensors. Any transport or
// server failure wraps ErrInference so callers can tell a fault apart
// from an empty frame.
func (c *Client) Detect(ctx context.Context, frame []byte) (RawOutput, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return RawOutput{}, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(frame); err != nil {
		return RawOutput{}, fmt.Errorf("failed to write frame data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return RawOutput{}, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/detect", &buf)
	if err != nil {
		return RawOutput{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return RawOutput{}, fmt.Errorf("%w: %v", ErrInference, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return RawOutput{}, fmt.Errorf("%w: reading response: %v", ErrInference, err)
	}

	if resp.StatusCode != http.StatusOK {
		return RawOutput{}, fmt.Errorf("%w: status %d: %s", ErrInference, resp.StatusCode, string(body))
	}

	var dr detectResponse
	if err := json.Unmarshal(body, &dr); err != nil {
		return RawOutput{}, fmt.Errorf("%w: parsing response: %v", ErrInference, err)
	}

	if dr.Scale <= 0 {
		return RawOutput{}, fmt.Errorf("%w: non-positive scale %f", ErrInference, dr.Scale)
	}

	raw := RawOutput{
		Scale:   dr.Scale,
		PadLeft: dr.PadLeft,
		PadTop:  dr.PadTop,
		Strides: make([]StrideOutput, 0, len(dr.Strides)),
	}
	for _, s := range dr.Strides {
		raw.Strides = append(raw.Strides, StrideOutput{
			Stride:    s.Stride,
			Scores:    s.Scores,
			Boxes:     s.Boxes,
			Keypoints: s.Keypoints,
		})
	}

	return raw, nil
}
