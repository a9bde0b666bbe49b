// Package llm provides the optional adjudicator that picks among close
// above-threshold candidates during cross-platform link resolution.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"vibesync/internal/core"
)

// Choice is a parsed adjudication verdict. Index -1 means none of the
// candidates matches the source track.
type Choice struct {
	Index      int     `json:"choice"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// Client is one backing model API.
type Client interface {
	PickTrack(ctx context.Context, title, artist string, candidates []core.Track) (*Choice, error)
}

// Provider wraps a Client with the confidence gate and candidate cap.
// It satisfies the resolver's Adjudicator interface.
type Provider struct {
	config *core.LLMConfig
	logger *zap.Logger
	client Client
}

func NewProvider(config *core.LLMConfig, logger *zap.Logger) (*Provider, error) {
	var client Client
	var err error

	switch config.Provider {
	case "openai":
		client, err = NewOpenAIClient(config, logger)
	case "anthropic":
		client, err = NewAnthropicClient(config, logger)
	case "ollama":
		client, err = NewOllamaClient(config, logger)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", config.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", config.Provider, err)
	}

	return &Provider{
		config: config,
		logger: logger,
		client: client,
	}, nil
}

// PickTrack asks the model which candidate matches the source metadata.
// A verdict below the configured confidence, or choice -1, is an
// abstention: the caller falls back to rank order.
func (p *Provider) PickTrack(ctx context.Context, title, artist string, candidates []core.Track) (int, bool, error) {
	if len(candidates) == 0 {
		return 0, false, nil
	}
	if len(candidates) > p.config.MaxCandidates {
		candidates = candidates[:p.config.MaxCandidates]
	}

	choice, err := p.client.PickTrack(ctx, title, artist, candidates)
	if err != nil {
		return 0, false, err
	}

	if choice.Index < 0 || choice.Index >= len(candidates) {
		p.logger.Debug("adjudicator declined all candidates",
			zap.String("reasoning", choice.Reasoning))
		return 0, false, nil
	}
	if choice.Confidence < p.config.Threshold {
		p.logger.Debug("adjudicator verdict below threshold",
			zap.Int("choice", choice.Index),
			zap.Float64("confidence", choice.Confidence),
			zap.Float64("threshold", p.config.Threshold))
		return 0, false, nil
	}

	return choice.Index, true, nil
}

// buildPickPrompt writes the shared adjudication prompt. Every backing
// model gets the same contract: strict JSON, -1 to decline.
func buildPickPrompt(title, artist string, candidates []core.Track) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are matching a track across music services.

Source track:
  title: %q
  artist: %q

Candidates:
`, title, artist)

	for i, c := range candidates {
		fmt.Fprintf(&b, "  %d. %q by %q", i, c.Title, c.Artist)
		if c.Album != "" {
			fmt.Fprintf(&b, " (album: %q)", c.Album)
		}
		b.WriteString("\n")
	}

	b.WriteString(`
Pick the candidate that is the same recording as the source track.

Respond with a JSON object in this exact format:
{"choice": 0, "confidence": 0.9, "reasoning": "brief explanation"}

Rules:
- "choice" is the candidate number, or -1 if none is the same recording
- "confidence" is between 0.0 and 1.0
- Covers, remixes, karaoke and tribute versions are NOT the same recording
- Be conservative: when unsure, use -1 or a low confidence`)

	return b.String()
}

// parseChoice decodes a model reply, tolerating surrounding prose by
// extracting the first JSON object.
func parseChoice(content string) (*Choice, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON object in response: %q", content)
	}

	var choice Choice
	if err := json.Unmarshal([]byte(content[start:end+1]), &choice); err != nil {
		return nil, fmt.Errorf("failed to parse adjudication response: %w", err)
	}

	return &choice, nil
}
