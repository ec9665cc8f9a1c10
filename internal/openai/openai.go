package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lehigh-university-libraries/captioner/internal/captioning"
	"github.com/lehigh-university-libraries/captioner/internal/images"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

// OpenAI captions images through an OpenAI-compatible chat completions API
type OpenAI struct {
	client  openai.Client
	model   string
	maxEdge int
}

// New returns a new OpenAI provider
func New(apiKey, baseURL, model string, maxEdge int, timeout time.Duration) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithRequestTimeout(timeout),
		option.WithMaxRetries(0),
	)

	return &OpenAI{
		client:  client,
		model:   model,
		maxEdge: maxEdge,
	}, nil
}

// Name identifies the provider in logs and metrics
func (o *OpenAI) Name() string {
	return "openai"
}

// Infer generates a caption for img with a single user message
func (o *OpenAI) Infer(ctx context.Context, img *images.Decoded, req captioning.Request) (string, error) {
	imageData, err := img.Encode(o.maxEdge)
	if err != nil {
		return "", err
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", images.TransportMIMEType, base64.StdEncoding.EncodeToString(imageData))

	if req.NumBeams > 1 {
		slog.Debug("OpenAI does not support beam search, decoding greedily", "beams", req.NumBeams)
	}

	temperature := 0.0
	if req.Sample {
		temperature = req.Temperature
	}

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(req.Prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: dataURL,
				}),
			}),
		},
		MaxCompletionTokens: openai.Int(int64(req.MaxNewTokens)),
		Temperature:         openai.Float(temperature),
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("OpenAI client error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no choices returned from OpenAI")
	}

	return resp.Choices[0].Message.Content, nil
}
