package interfaces

import (
	"context"

	"github.com/ternarybob/indago/pkg/models"
)

// IntentOracle is the optional LLM-backed collaborator for intent analysis.
// The engine runs fine without one: rule-based classification is always
// performed, and an oracle's answer is merged on top of it.
//
// Implementations should return quickly; the classifier wraps calls in a
// short timeout (2s by default) and falls back to rule-based results on any
// error or timeout. The hint carries the query's country or language hint
// when present, empty otherwise.
type IntentOracle interface {
	Analyze(ctx context.Context, text string, hint string) (models.IntentResult, error)
}
