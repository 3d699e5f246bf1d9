package intent

import (
	"context"
	"strings"
	"time"

	"github.com/ternarybob/indago/pkg/interfaces"
	"github.com/ternarybob/indago/pkg/models"
)

// DefaultOracleTimeout bounds a single oracle call. Classification must not
// stall a run when the oracle hangs.
const DefaultOracleTimeout = 2 * time.Second

// ClassifyWithOracle runs rule-based classification and, when an oracle is
// supplied, merges its analysis in. Oracle errors and timeouts degrade to
// the rule-based result.
func (s *Service) ClassifyWithOracle(ctx context.Context, query *models.Query, oracle interfaces.IntentOracle, timeout time.Duration) models.IntentResult {
	outcome := s.classify(query)
	if oracle == nil {
		return outcome.result
	}
	if timeout <= 0 {
		timeout = DefaultOracleTimeout
	}

	octx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	oracleResult, err := oracle.Analyze(octx, query.Text, oracleHint(query))
	if err != nil {
		s.logger.Warn().
			Err(err).
			Msg("Intent oracle unavailable, using rule-based result")
		return outcome.result
	}

	return s.merge(outcome, oracleResult)
}

// oracleHint packs the query's structured hints into a compact string the
// oracle prompt can carry verbatim.
func oracleHint(query *models.Query) string {
	var parts []string
	if query.CountryHint != nil && *query.CountryHint != "" {
		parts = append(parts, "country:"+*query.CountryHint)
	}
	if query.LanguageHint != nil && *query.LanguageHint != "" {
		parts = append(parts, "language:"+*query.LanguageHint)
	}
	if query.Location != nil && *query.Location != "" {
		parts = append(parts, "location:"+*query.Location)
	}
	return strings.Join(parts, " ")
}

// merge combines the rule outcome with the oracle result: union of extracted
// entities, maximum of each confidence, and the higher-confidence region and
// industry labels.
func (s *Service) merge(rule ruleOutcome, oracle models.IntentResult) models.IntentResult {
	merged := rule.result

	if oracle.Region != models.RegionUnknown && oracle.RegionConfidence > merged.RegionConfidence {
		merged.Region = oracle.Region
	}
	if oracle.RegionConfidence > merged.RegionConfidence {
		merged.RegionConfidence = oracle.RegionConfidence
	}

	if oracle.Industry != models.IndustryUnknown && oracle.IndustryConfidence > merged.IndustryConfidence {
		merged.Industry = oracle.Industry
	}
	if oracle.IndustryConfidence > merged.IndustryConfidence {
		merged.IndustryConfidence = oracle.IndustryConfidence
	}

	merged.ExtractedJobTitles = unionStrings(merged.ExtractedJobTitles, oracle.ExtractedJobTitles)
	merged.ExtractedSkills = unionStrings(merged.ExtractedSkills, oracle.ExtractedSkills)

	if merged.Seniority == models.SeniorityUnknown {
		merged.Seniority = oracle.Seniority
	}
	if merged.IsRemote == nil {
		merged.IsRemote = oracle.IsRemote
	}
	if merged.ExtractedLocation == nil {
		merged.ExtractedLocation = oracle.ExtractedLocation
	}
	if oracle.OverallConfidence > merged.OverallConfidence {
		merged.OverallConfidence = oracle.OverallConfidence
	}

	ruleEntities := len(rule.result.ExtractedJobTitles) + len(rule.result.ExtractedSkills)

	switch oracle.IsJobRelated {
	case models.TernaryTrue:
		merged.IsJobRelated = models.TernaryTrue
	case models.TernaryFalse:
		// LLM oracles reject borderline job queries too eagerly. A rejection
		// is overturned when rule scoring found concrete job entities and a
		// relevance score of at least 0.3; without this, queries like
		// "Data Scientist roles in Kaohsiung" get dropped whenever the
		// oracle fails to recognize the place name.
		if rule.relevance >= nonJobRelevanceFloor && ruleEntities > 0 {
			merged.IsJobRelated = models.TernaryTrue
			s.logger.Info().
				Float64("rule_relevance", rule.relevance).
				Int("rule_entities", ruleEntities).
				Msg("Overriding oracle non-job verdict: rule scoring found job entities")
		} else {
			merged.IsJobRelated = models.TernaryFalse
		}
	}

	return merged
}

// unionStrings appends entries from extra that are not already present,
// comparing case-insensitively and preserving order.
func unionStrings(base, extra []string) []string {
	if len(extra) == 0 {
		return base
	}
	seen := make(map[string]bool, len(base))
	for _, v := range base {
		seen[strings.ToLower(v)] = true
	}
	out := base
	for _, v := range extra {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, strings.TrimSpace(v))
	}
	return out
}
