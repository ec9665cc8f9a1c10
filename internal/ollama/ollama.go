package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/captioner/internal/captioning"
	"github.com/lehigh-university-libraries/captioner/internal/images"
)

// Ollama captions images with a vision model served by Ollama
type Ollama struct {
	baseURL string
	model   string
	maxEdge int
	client  *http.Client
}

// New returns a new Ollama provider
func New(baseURL, model string, maxEdge int, timeout time.Duration) *Ollama {
	return &Ollama{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		maxEdge: maxEdge,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name identifies the provider in logs and metrics
func (o *Ollama) Name() string {
	return "ollama"
}

// Infer generates a caption for img using /api/generate
func (o *Ollama) Infer(ctx context.Context, img *images.Decoded, req captioning.Request) (string, error) {
	imageData, err := img.Encode(o.maxEdge)
	if err != nil {
		return "", err
	}

	if req.NumBeams > 1 {
		slog.Debug("Ollama does not support beam search, decoding greedily", "beams", req.NumBeams)
	}

	// Greedy decoding unless sampling was asked for
	temperature := 0.0
	if req.Sample {
		temperature = req.Temperature
	}

	requestBody, err := json.Marshal(map[string]interface{}{
		"model":  o.model,
		"prompt": req.Prompt,
		"images": []string{base64.StdEncoding.EncodeToString(imageData)},
		"stream": false,
		"options": map[string]interface{}{
			"temperature":    temperature,
			"num_predict":    req.MaxNewTokens,
			"repeat_penalty": req.RepetitionPenalty,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(body))
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}

	return response.Response, nil
}
