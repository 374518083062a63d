package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/refutehq/refute/internal/logging"
)

// AnthropicConfig configures the Anthropic-backed provider.
type AnthropicConfig struct {
	Model     string
	MaxTokens int
}

// DefaultAnthropicConfig returns the default model configuration.
func DefaultAnthropicConfig() AnthropicConfig {
	return AnthropicConfig{
		Model:     string(anthropic.ModelClaudeSonnet4_0),
		MaxTokens: 2048,
	}
}

// AnthropicProvider implements Provider using the Anthropic API.
type AnthropicProvider struct {
	client anthropic.Client
	config AnthropicConfig
	logger *logging.Logger
}

// NewAnthropicProvider creates a provider reading the API key from the
// ANTHROPIC_API_KEY environment variable.
func NewAnthropicProvider(cfg AnthropicConfig) *AnthropicProvider {
	if cfg.Model == "" {
		cfg.Model = DefaultAnthropicConfig().Model
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultAnthropicConfig().MaxTokens
	}
	return &AnthropicProvider{
		client: anthropic.NewClient(),
		config: cfg,
		logger: logging.GetLogger("reasoning"),
	}
}

// NewAnthropicProviderWithKey creates a provider with an explicit API key.
func NewAnthropicProviderWithKey(apiKey string, cfg AnthropicConfig) *AnthropicProvider {
	p := NewAnthropicProvider(cfg)
	p.client = anthropic.NewClient(option.WithAPIKey(apiKey))
	return p
}

const systemPrompt = `You are an incident investigation assistant. Given incident
observations, propose ONE falsifiable root-cause hypothesis.

Respond with a single JSON object and nothing else:
{
  "statement": "clear, falsifiable root-cause claim naming a specific event and mechanism",
  "confidence": 0.0-0.85,
  "affected_systems": ["..."],
  "metadata": {
    "claimed_cause_time": "RFC3339 time of the claimed causal event, if known",
    "symptom_onset_time": "RFC3339 time symptoms began, if known",
    "causal_metric": "metric selector expected to show the anomaly",
    "claimed_scope": "ALL, MOST, SOME, or a comma-separated entity list",
    "claimed_metric": "metric selector for a threshold claim",
    "claimed_operator": "one of > < >= <= ==",
    "claimed_threshold": "numeric threshold as a string"
  }
}

Omit metadata keys you cannot justify from the observations. Never exceed
confidence 0.85: the hypothesis has not been tested yet.`

// ProposeHypothesis implements Provider.
func (p *AnthropicProvider) ProposeHypothesis(ctx context.Context, obs Observations) (*Proposal, error) {
	userPrompt, err := json.Marshal(obs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode observations: %w", err)
	}

	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.config.Model),
		MaxTokens: int64(p.config.MaxTokens),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(string(userPrompt))),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic API call failed: %w", err)
	}

	var textParts []string
	for i := range resp.Content {
		if resp.Content[i].Type == "text" {
			textParts = append(textParts, resp.Content[i].Text)
		}
	}
	text := strings.TrimSpace(strings.Join(textParts, ""))

	proposal, err := parseProposal(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}

	p.logger.InfoWithFields("hypothesis proposed",
		logging.Field("model", p.config.Model),
		logging.Field("confidence", proposal.Confidence),
		logging.Field("input_tokens", resp.Usage.InputTokens),
		logging.Field("output_tokens", resp.Usage.OutputTokens),
	)
	return proposal, nil
}

// Name implements Provider.
func (p *AnthropicProvider) Name() string {
	return "anthropic:" + p.config.Model
}

// parseProposal extracts the JSON proposal from the model response,
// tolerating surrounding prose or markdown fences.
func parseProposal(text string) (*Proposal, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var proposal Proposal
	if err := json.Unmarshal([]byte(text[start:end+1]), &proposal); err != nil {
		return nil, fmt.Errorf("invalid proposal JSON: %w", err)
	}
	if err := proposal.Validate(); err != nil {
		return nil, err
	}
	return &proposal, nil
}
