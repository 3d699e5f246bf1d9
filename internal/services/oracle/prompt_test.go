package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/indago/pkg/models"
)

func TestParseAnalysis_FullPayload(t *testing.T) {
	response := `{
		"is_job_related": true,
		"region": "europe",
		"region_confidence": 0.9,
		"industry": "technology",
		"industry_confidence": 0.85,
		"location": "Berlin",
		"job_titles": ["AI Engineer", "ML Engineer"],
		"skills": ["python", "pytorch"],
		"seniority": "senior",
		"is_remote": true,
		"confidence": 0.92
	}`

	result, err := parseAnalysis(response)
	require.NoError(t, err)

	assert.Equal(t, models.TernaryTrue, result.IsJobRelated)
	assert.Equal(t, models.RegionEurope, result.Region)
	assert.Equal(t, 0.9, result.RegionConfidence)
	assert.Equal(t, models.IndustryTechnology, result.Industry)
	assert.Equal(t, 0.85, result.IndustryConfidence)
	require.NotNil(t, result.ExtractedLocation)
	assert.Equal(t, "Berlin", *result.ExtractedLocation)
	assert.Equal(t, []string{"AI Engineer", "ML Engineer"}, result.ExtractedJobTitles)
	assert.Equal(t, []string{"python", "pytorch"}, result.ExtractedSkills)
	assert.Equal(t, models.SenioritySenior, result.Seniority)
	require.NotNil(t, result.IsRemote)
	assert.True(t, *result.IsRemote)
	assert.Equal(t, 0.92, result.OverallConfidence)
}

func TestParseAnalysis_StripsMarkdownFences(t *testing.T) {
	response := "```json\n{\"is_job_related\": true, \"region\": \"north_america\", \"confidence\": 0.8}\n```"

	result, err := parseAnalysis(response)
	require.NoError(t, err)

	assert.Equal(t, models.TernaryTrue, result.IsJobRelated)
	assert.Equal(t, models.RegionNorthAmerica, result.Region)
	assert.Equal(t, 0.8, result.OverallConfidence)
}

func TestParseAnalysis_NonJobVerdict(t *testing.T) {
	result, err := parseAnalysis(`{"is_job_related": false, "confidence": 0.95}`)
	require.NoError(t, err)

	assert.Equal(t, models.TernaryFalse, result.IsJobRelated)
}

func TestParseAnalysis_MissingVerdictStaysUnknown(t *testing.T) {
	result, err := parseAnalysis(`{"region": "europe", "region_confidence": 0.7}`)
	require.NoError(t, err)

	assert.Equal(t, models.TernaryUnknown, result.IsJobRelated)
	assert.Nil(t, result.IsRemote)
}

func TestParseAnalysis_UnknownLabelsDegradeGracefully(t *testing.T) {
	response := `{
		"is_job_related": true,
		"region": "atlantis",
		"industry": "underwater basket weaving",
		"seniority": "wizard",
		"confidence": 0.5
	}`

	result, err := parseAnalysis(response)
	require.NoError(t, err)

	assert.Equal(t, models.RegionUnknown, result.Region)
	assert.Equal(t, models.IndustryUnknown, result.Industry)
	assert.Equal(t, models.SeniorityUnknown, result.Seniority)
}

func TestParseAnalysis_ClampsConfidences(t *testing.T) {
	response := `{
		"is_job_related": true,
		"region": "europe",
		"region_confidence": 1.7,
		"industry": "finance",
		"industry_confidence": -0.3,
		"confidence": 2.0
	}`

	result, err := parseAnalysis(response)
	require.NoError(t, err)

	assert.Equal(t, 1.0, result.RegionConfidence)
	assert.Equal(t, 0.0, result.IndustryConfidence)
	assert.Equal(t, 1.0, result.OverallConfidence)
}

func TestParseAnalysis_DropsBlankListEntries(t *testing.T) {
	response := `{
		"is_job_related": true,
		"job_titles": ["  data scientist  ", "", "  "],
		"skills": ["sql"]
	}`

	result, err := parseAnalysis(response)
	require.NoError(t, err)

	assert.Equal(t, []string{"data scientist"}, result.ExtractedJobTitles)
	assert.Equal(t, []string{"sql"}, result.ExtractedSkills)
}

func TestParseAnalysis_RejectsMalformedJSON(t *testing.T) {
	_, err := parseAnalysis(`{"is_job_related": tru`)
	assert.Error(t, err)

	_, err = parseAnalysis("")
	assert.Error(t, err)

	_, err = parseAnalysis("I cannot classify this query.")
	assert.Error(t, err)
}

func TestParseSeniority_Synonyms(t *testing.T) {
	tests := []struct {
		in   string
		want models.Seniority
	}{
		{"senior", models.SenioritySenior},
		{"Entry-Level", models.SeniorityJunior},
		{"graduate", models.SeniorityJunior},
		{"intermediate", models.SeniorityMid},
		{"principal", models.SeniorityLead},
		{"staff", models.SeniorityLead},
		{"internship", models.SeniorityIntern},
		{"", models.SeniorityUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseSeniority(tt.in), "input %q", tt.in)
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := buildPrompt("AI engineer jobs in Berlin", "country:DE language:de")
	assert.Contains(t, prompt, "AI engineer jobs in Berlin")
	assert.Contains(t, prompt, "country:DE")

	bare := buildPrompt("plumber vacancies", "")
	assert.NotContains(t, bare, "Caller hints")
}

func TestStripJSONFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripJSONFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripJSONFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripJSONFences(`  {"a":1}  `))
}
