package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/pkg/models"
)

const claudeDefaultModel = "claude-sonnet-4-20250514"

// maxAnalysisTokens bounds the oracle's reply. The analysis payload is a few
// hundred tokens at most.
const maxAnalysisTokens = 1024

// ClaudeOracle analyzes query intent with the Anthropic API.
type ClaudeOracle struct {
	client anthropic.Client
	model  string
	logger arbor.ILogger
}

// NewClaudeOracle builds an oracle over the Anthropic API. The key comes
// from the config or the ANTHROPIC_API_KEY environment variable.
func NewClaudeOracle(cfg common.OracleConfig, logger arbor.ILogger) (*ClaudeOracle, error) {
	apiKey := cfg.ResolveAPIKey()
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required (set oracle.api_key or ANTHROPIC_API_KEY)")
	}

	model := cfg.Model
	if model == "" {
		model = claudeDefaultModel
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	logger.Info().
		Str("model", model).
		Msg("Claude intent oracle initialized")

	return &ClaudeOracle{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

// Analyze sends one classification request. Temperature is pinned to zero so
// identical queries classify identically.
func (o *ClaudeOracle) Analyze(ctx context.Context, text string, hint string) (models.IntentResult, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(o.model),
		MaxTokens:   maxAnalysisTokens,
		Temperature: anthropic.Float(0),
		System: []anthropic.TextBlockParam{
			{Text: systemInstruction},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(text, hint))),
		},
	}

	resp, err := o.client.Messages.New(ctx, params)
	if err != nil {
		return models.NewIntentResult(), fmt.Errorf("Claude API call failed: %w", err)
	}

	var reply strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			reply.WriteString(block.Text)
		}
	}
	if reply.Len() == 0 {
		return models.NewIntentResult(), fmt.Errorf("empty response from Claude API")
	}

	o.logger.Debug().
		Str("model", o.model).
		Int("response_length", reply.Len()).
		Msg("Claude intent analysis returned")

	return parseAnalysis(reply.String())
}
