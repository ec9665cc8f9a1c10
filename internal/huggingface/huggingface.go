// Package huggingface captions images with an image-to-text model hosted on
// the Hugging Face Inference API, such as BLIP.
package huggingface

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/captioner/internal/captioning"
	"github.com/lehigh-university-libraries/captioner/internal/images"
)

// HuggingFace is a provider for the Hugging Face Inference API
type HuggingFace struct {
	baseURL string
	model   string
	token   string
	maxEdge int
	client  *http.Client
}

// New returns a new Hugging Face provider
func New(baseURL, model, token string, maxEdge int, timeout time.Duration) *HuggingFace {
	return &HuggingFace{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		token:   token,
		maxEdge: maxEdge,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name identifies the provider in logs and metrics
func (h *HuggingFace) Name() string {
	return "huggingface"
}

type parameters struct {
	MaxNewTokens      int     `json:"max_new_tokens"`
	NumBeams          int     `json:"num_beams"`
	Temperature       float64 `json:"temperature"`
	RepetitionPenalty float64 `json:"repetition_penalty"`
	DoSample          bool    `json:"do_sample"`
}

type inferenceRequest struct {
	Inputs     string     `json:"inputs"`
	Parameters parameters `json:"parameters"`
}

// Infer captions img. Image-to-text models are not prompt-conditioned here;
// mode and length reach the model through the decoding parameters only.
func (h *HuggingFace) Infer(ctx context.Context, img *images.Decoded, req captioning.Request) (string, error) {
	imageData, err := img.Encode(h.maxEdge)
	if err != nil {
		return "", err
	}

	requestBody, err := json.Marshal(inferenceRequest{
		Inputs: base64.StdEncoding.EncodeToString(imageData),
		Parameters: parameters{
			MaxNewTokens:      req.MaxNewTokens,
			NumBeams:          req.NumBeams,
			Temperature:       req.Temperature,
			RepetitionPenalty: req.RepetitionPenalty,
			DoSample:          req.Sample,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	url := h.baseURL + "/models/" + h.model
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if h.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(body))
	}

	var response []struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}

	if len(response) == 0 {
		return "", errors.New("no generations returned from Hugging Face")
	}

	return response[0].GeneratedText, nil
}
