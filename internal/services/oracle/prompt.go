package oracle

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ternarybob/indago/pkg/models"
)

// systemInstruction pins the oracle to the closed vocabularies the rest of
// the engine understands. Values outside these sets degrade to unknown at
// parse time rather than failing the call.
const systemInstruction = `You are a job-search query analyst. Given one search query, decide whether it is a job search and extract its intent.

Rules:
- region must be one of: north_america, europe, oceania, east_asia, southeast_asia, south_asia, middle_east, africa, latin_america, global, unknown
- industry must be one of: technology, finance, healthcare, construction, education, retail, manufacturing, government, other, unknown
- seniority must be one of: intern, junior, mid, senior, lead, unknown
- Confidence values are between 0.0 and 1.0
- Set is_job_related to false only when the query is clearly not about finding employment
- Omit is_remote unless the query states a remote or on-site preference

Output Format (JSON only, no markdown fences):
{
  "is_job_related": true,
  "region": "europe",
  "region_confidence": 0.9,
  "industry": "technology",
  "industry_confidence": 0.85,
  "location": "Berlin",
  "job_titles": ["backend engineer"],
  "skills": ["go"],
  "seniority": "senior",
  "is_remote": true,
  "confidence": 0.9
}`

// buildPrompt packs the query and the caller's structured hints into the
// user turn.
func buildPrompt(text, hint string) string {
	prompt := fmt.Sprintf("Query: %s", text)
	if hint != "" {
		prompt += fmt.Sprintf("\nCaller hints: %s", hint)
	}
	return prompt
}

// analysisPayload is the wire shape both providers are asked to produce.
// Pointer booleans distinguish an absent field from an explicit false.
type analysisPayload struct {
	IsJobRelated       *bool    `json:"is_job_related"`
	Region             string   `json:"region"`
	RegionConfidence   float64  `json:"region_confidence"`
	Industry           string   `json:"industry"`
	IndustryConfidence float64  `json:"industry_confidence"`
	Location           string   `json:"location"`
	JobTitles          []string `json:"job_titles"`
	Skills             []string `json:"skills"`
	Seniority          string   `json:"seniority"`
	IsRemote           *bool    `json:"is_remote"`
	Confidence         float64  `json:"confidence"`
}

var fencePattern = regexp.MustCompile(`(?s)^\s*` + "```" + `(?:json|JSON)?\s*\n?(.*?)\n?\s*` + "```" + `\s*$`)

// stripJSONFences removes the markdown code fences models wrap JSON in
// despite instructions not to.
func stripJSONFences(s string) string {
	s = strings.TrimSpace(s)
	if matches := fencePattern.FindStringSubmatch(s); len(matches) > 1 {
		s = matches[1]
	}
	return strings.TrimSpace(s)
}

// parseAnalysis maps a provider's JSON reply onto an IntentResult. Labels
// outside the closed vocabularies parse to unknown; confidences are clamped
// to [0,1]. Only malformed JSON is an error.
func parseAnalysis(response string) (models.IntentResult, error) {
	result := models.NewIntentResult()

	cleaned := stripJSONFences(response)
	if cleaned == "" {
		return result, fmt.Errorf("empty oracle response")
	}

	var payload analysisPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return result, fmt.Errorf("failed to parse oracle response: %w", err)
	}

	result.Region = models.ParseRegion(payload.Region)
	result.RegionConfidence = clamp01(payload.RegionConfidence)
	result.Industry = models.ParseIndustry(payload.Industry)
	result.IndustryConfidence = clamp01(payload.IndustryConfidence)
	result.Seniority = parseSeniority(payload.Seniority)
	result.IsRemote = payload.IsRemote
	result.OverallConfidence = clamp01(payload.Confidence)

	if loc := strings.TrimSpace(payload.Location); loc != "" {
		result.ExtractedLocation = &loc
	}
	result.ExtractedJobTitles = cleanList(payload.JobTitles)
	result.ExtractedSkills = cleanList(payload.Skills)

	if payload.IsJobRelated != nil {
		if *payload.IsJobRelated {
			result.IsJobRelated = models.TernaryTrue
		} else {
			result.IsJobRelated = models.TernaryFalse
		}
	}

	return result, nil
}

func parseSeniority(s string) models.Seniority {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "intern", "internship":
		return models.SeniorityIntern
	case "junior", "entry", "entry_level", "entry-level", "graduate":
		return models.SeniorityJunior
	case "mid", "mid_level", "mid-level", "intermediate":
		return models.SeniorityMid
	case "senior":
		return models.SenioritySenior
	case "lead", "principal", "staff":
		return models.SeniorityLead
	}
	return models.SeniorityUnknown
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func cleanList(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
