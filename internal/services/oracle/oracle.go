// Package oracle provides the LLM-backed IntentOracle implementations. The
// engine never requires one: rule-based classification always runs, and an
// oracle's analysis is merged on top when a host opts in.
package oracle

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/pkg/interfaces"
)

// New builds the oracle named by the config provider. An empty provider
// yields a nil oracle, which the classifier treats as rule-based only.
func New(ctx context.Context, cfg common.OracleConfig, logger arbor.ILogger) (interfaces.IntentOracle, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case common.OracleProviderClaude:
		return NewClaudeOracle(cfg, logger)
	case common.OracleProviderGemini:
		return NewGeminiOracle(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown oracle provider: %s", cfg.Provider)
	}
}
