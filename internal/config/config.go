package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Provider       string        `env:"CAPTION_PROVIDER" envDefault:"ollama"`
	MaxImageEdge   int           `env:"CAPTION_MAX_IMAGE_EDGE" envDefault:"1024"`
	RequestTimeout time.Duration `env:"CAPTION_REQUEST_TIMEOUT" envDefault:"2m"`

	Ollama      OllamaConfig
	OpenAI      OpenAIConfig
	Gemini      GeminiConfig
	HuggingFace HuggingFaceConfig
	Server      ServerConfig
}

type OllamaConfig struct {
	URL   string `env:"OLLAMA_URL"`
	Host  string `env:"OLLAMA_HOST"`
	Model string `env:"OLLAMA_MODEL" envDefault:"llava:13b"`
}

// BaseURL prefers OLLAMA_URL, then OLLAMA_HOST, then the local default
func (c OllamaConfig) BaseURL() string {
	if c.URL != "" {
		return c.URL
	}
	if c.Host != "" {
		return c.Host
	}
	return "http://localhost:11434"
}

type OpenAIConfig struct {
	APIKey  string `env:"OPENAI_API_KEY"`
	BaseURL string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	Model   string `env:"OPENAI_MODEL" envDefault:"gpt-4o"`
}

type GeminiConfig struct {
	APIKey string `env:"GEMINI_API_KEY"`
	Model  string `env:"GEMINI_MODEL" envDefault:"gemini-1.5-flash"`
}

type HuggingFaceConfig struct {
	Token   string `env:"HF_TOKEN"`
	BaseURL string `env:"HF_INFERENCE_URL" envDefault:"https://api-inference.huggingface.co"`
	Model   string `env:"HF_MODEL" envDefault:"Salesforce/blip-image-captioning-large"`
}

type ServerConfig struct {
	Port            string        `env:"SERVER_PORT" envDefault:"8888"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"5s"`
	MaxRuns         int           `env:"SERVER_MAX_RUNS" envDefault:"32"`
	RunTTL          time.Duration `env:"SERVER_RUN_TTL" envDefault:"1h"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
