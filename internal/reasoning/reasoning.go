// Package reasoning generates natural-language explanations for anomalies
// via the Anthropic API, backed by a persistent cache so the same location
// and date never hit the model twice. The analysis core never depends on
// this service; a failure here affects only the explanation text.
package reasoning

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/skyfield-labs/co2scan/internal/cache"
	"github.com/skyfield-labs/co2scan/internal/model"
	"github.com/skyfield-labs/co2scan/pkg/anthropic"
)

// Placeholder is returned when no API key is configured. Generation is an
// optional collaborator; a missing key is not an error.
const Placeholder = "Reasoning is unavailable: no API key is configured."

// Options configures the reasoning service.
type Options struct {
	Model     string
	MaxTokens int64
}

// Explanation is the result of one reasoning request.
type Explanation struct {
	Reasoning string `json:"reasoning"`
	Cached    bool   `json:"cached"`
	CacheKey  string `json:"cache_key"`
}

// Service generates and caches anomaly explanations.
type Service struct {
	client anthropic.Client // nil when no API key is configured
	store  cache.Store
	opts   Options
}

// NewService creates a reasoning service. client may be nil, in which case
// every uncached request returns the placeholder text.
func NewService(client anthropic.Client, store cache.Store, opts Options) *Service {
	return &Service{client: client, store: store, opts: opts}
}

// Explain returns the explanation for an anomaly, from cache when possible.
// A cache read error is treated as a miss; a cache write error is logged and
// the freshly generated text is still returned.
func (s *Service) Explain(ctx context.Context, a model.Anomaly) (*Explanation, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}

	key := cache.Key(a.Lat, a.Lon, a.Date)

	if entry, err := s.store.Get(ctx, key); err != nil {
		zap.L().Warn("reasoning: cache read failed, regenerating",
			zap.String("cache_key", key),
			zap.Error(err),
		)
	} else if entry != nil {
		return &Explanation{Reasoning: entry.Reasoning, Cached: true, CacheKey: key}, nil
	}

	text, err := s.generate(ctx, a)
	if err != nil {
		return nil, err
	}

	metadata, _ := json.Marshal(a)
	if err := s.store.Set(ctx, key, text, string(metadata)); err != nil {
		zap.L().Warn("reasoning: cache write failed",
			zap.String("cache_key", key),
			zap.Error(err),
		)
	}

	return &Explanation{Reasoning: text, Cached: false, CacheKey: key}, nil
}

func (s *Service) generate(ctx context.Context, a model.Anomaly) (string, error) {
	if s.client == nil {
		return Placeholder, nil
	}

	resp, err := s.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     s.opts.Model,
		MaxTokens: s.opts.MaxTokens,
		System:    anthropic.BuildCachedSystemBlocks(systemPrompt),
		Messages: []anthropic.Message{
			{Role: "user", Content: BuildPrompt(a)},
		},
	})
	if err != nil {
		return "", eris.Wrap(err, "reasoning: generate explanation")
	}

	text := resp.Text()
	if text == "" {
		return "", eris.New("reasoning: empty response from model")
	}

	resp.Usage.LogCost(s.opts.Model, "reasoning")
	return text, nil
}
