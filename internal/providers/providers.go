package providers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/captioner/internal/captioning"
	"github.com/lehigh-university-libraries/captioner/internal/config"
	"github.com/lehigh-university-libraries/captioner/internal/gemini"
	"github.com/lehigh-university-libraries/captioner/internal/huggingface"
	"github.com/lehigh-university-libraries/captioner/internal/images"
	"github.com/lehigh-university-libraries/captioner/internal/metrics"
	"github.com/lehigh-university-libraries/captioner/internal/ollama"
	"github.com/lehigh-university-libraries/captioner/internal/openai"
)

// Provider is a named caption model
type Provider interface {
	captioning.Model
	Name() string
}

// Names lists the supported providers
var Names = []string{"ollama", "openai", "gemini", "huggingface"}

// New builds the provider selected by name. An empty model uses the
// provider's configured default.
func New(ctx context.Context, cfg *config.Config, name, model string) (Provider, error) {
	if name == "" {
		name = cfg.Provider
	}

	switch name {
	case "ollama":
		return ollama.New(cfg.Ollama.BaseURL(), orDefault(model, cfg.Ollama.Model), cfg.MaxImageEdge, cfg.RequestTimeout), nil
	case "openai":
		return openai.New(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, orDefault(model, cfg.OpenAI.Model), cfg.MaxImageEdge, cfg.RequestTimeout)
	case "gemini":
		return gemini.New(ctx, cfg.Gemini.APIKey, orDefault(model, cfg.Gemini.Model), cfg.MaxImageEdge)
	case "huggingface", "hf":
		return huggingface.New(cfg.HuggingFace.BaseURL, orDefault(model, cfg.HuggingFace.Model), cfg.HuggingFace.Token, cfg.MaxImageEdge, cfg.RequestTimeout), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// Factory creates the model behind a Handle
type Factory func(ctx context.Context) (Provider, error)

// Handle owns the process-wide caption model. The model is created on first
// use and reused for every later batch; a failed creation is retried on the
// next call.
type Handle struct {
	factory Factory

	mu       sync.Mutex
	provider Provider
}

// NewHandle returns a handle that builds its model with factory
func NewHandle(factory Factory) *Handle {
	return &Handle{factory: factory}
}

// Get returns the model, creating it on first use
func (h *Handle) Get(ctx context.Context) (captioning.Model, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.provider != nil {
		return instrumented{h.provider}, nil
	}

	provider, err := h.factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize caption model: %w", err)
	}
	slog.Info("Caption model initialized", "provider", provider.Name())
	h.provider = provider
	return instrumented{provider}, nil
}

// Close releases the model if it was created and holds resources
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.provider == nil {
		return nil
	}
	provider := h.provider
	h.provider = nil
	if closer, ok := provider.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// instrumented records every inference in the metrics registry
type instrumented struct {
	Provider
}

func (m instrumented) Infer(ctx context.Context, img *images.Decoded, req captioning.Request) (string, error) {
	start := time.Now()
	caption, err := m.Provider.Infer(ctx, img, req)
	metrics.ObserveInference(m.Name(), err, time.Since(start))
	return caption, err
}
