package openai

import (
	"log/slog"
	"net/http"
	"time"
)

// Config for an OpenAI-compatible chat/completions endpoint.
type Config struct {
	BaseURL          string        // default https://api.sambanova.ai/v1
	Model            string        // default Meta-Llama-3.1-8B-Instruct
	Temperature      float64       // 0..2
	TopP             float64       // 0..1
	MaxTokens        int           // default 1500
	PresencePenalty  float64
	FrequencyPenalty float64
	Timeout          time.Duration // per request, default 30s
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.sambanova.ai/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "Meta-Llama-3.1-8B-Instruct"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1500
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Model reports the configured model name.
func (c *Client) Model() string { return c.cfg.Model }
