package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"strings"
)

const defaultEmbedderURL = "http://localhost:8000"

// ErrEmbed marks an embedder collaborator fault.
var ErrEmbed = errors.New("embedder inference fault")

// Embedder computes a fixed-length, L2-normalized feature vector for a
// cropped face image.
type Embedder interface {
	Embed(ctx context.Context, faceCrop []byte) ([]float32, error)
}

// Client computes face embeddings using an embedding server.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a new embedder client.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultEmbedderURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{},
	}
}

// embedResponse represents the response from the embedding server.
type embedResponse struct {
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	Model     string    `json:"model"`
}

// Embed posts the face crop and returns its unit-norm embedding. Any
// transport or server failure wraps ErrEmbed.
func (c *Client) Embed(ctx context.Context, faceCrop []byte) ([]float32, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "face.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(faceCrop); err != nil {
		return nil, fmt.Errorf("failed to write crop data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embed/face", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrEmbed, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrEmbed, resp.StatusCode, string(body))
	}

	var er embedResponse
	if err := json.Unmarshal(body, &er); err != nil {
		return nil, fmt.Errorf("%w: parsing response: %v", ErrEmbed, err)
	}

	if len(er.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding returned", ErrEmbed)
	}

	// The server should already emit unit vectors; renormalize if it drifted.
	var norm float64
	for _, x := range er.Embedding {
		norm += float64(x) * float64(x)
	}
	if math.Abs(math.Sqrt(norm)-1) > 1e-3 {
		Normalize(er.Embedding)
	}

	return er.Embedding, nil
}
