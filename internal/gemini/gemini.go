package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/lehigh-university-libraries/captioner/internal/captioning"
	"github.com/lehigh-university-libraries/captioner/internal/images"
	"google.golang.org/api/option"
)

// Gemini is a provider for Google Gemini
type Gemini struct {
	client  *genai.Client
	model   string
	maxEdge int
}

// New returns a new Gemini provider. The client is reused until Close.
func New(ctx context.Context, apiKey, model string, maxEdge int) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create new gemini client: %w", err)
	}

	return &Gemini{
		client:  client,
		model:   model,
		maxEdge: maxEdge,
	}, nil
}

// Name identifies the provider in logs and metrics
func (g *Gemini) Name() string {
	return "gemini"
}

// Infer generates a caption for img
func (g *Gemini) Infer(ctx context.Context, img *images.Decoded, req captioning.Request) (string, error) {
	imageData, err := img.Encode(g.maxEdge)
	if err != nil {
		return "", err
	}

	model := g.client.GenerativeModel(g.model)
	model.SetMaxOutputTokens(int32(req.MaxNewTokens))
	model.SetCandidateCount(1)
	if req.Sample {
		model.SetTemperature(float32(req.Temperature))
	} else {
		model.SetTemperature(0)
	}

	resp, err := model.GenerateContent(ctx, genai.ImageData("jpeg", imageData), genai.Text(req.Prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return "", errors.New("no candidates returned from Gemini")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", errors.New("empty content returned from Gemini")
	}

	if txt, ok := candidate.Content.Parts[0].(genai.Text); ok {
		return string(txt), nil
	}

	return "", errors.New("unexpected response format from Gemini")
}

// Close releases the underlying client
func (g *Gemini) Close() error {
	return g.client.Close()
}
