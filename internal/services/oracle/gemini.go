package oracle

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/pkg/models"
)

const geminiDefaultModel = "gemini-2.0-flash"

// analysisSchema constrains Gemini to the canonical payload shape. With a
// response schema set the API returns bare JSON, so no fence stripping is
// needed on this path.
var analysisSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"is_job_related":      {Type: genai.TypeBoolean},
		"region":              {Type: genai.TypeString, Enum: regionEnum()},
		"region_confidence":   {Type: genai.TypeNumber},
		"industry":            {Type: genai.TypeString, Enum: industryEnum()},
		"industry_confidence": {Type: genai.TypeNumber},
		"location":            {Type: genai.TypeString},
		"job_titles":          {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"skills":              {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"seniority":           {Type: genai.TypeString},
		"is_remote":           {Type: genai.TypeBoolean},
		"confidence":          {Type: genai.TypeNumber},
	},
	Required: []string{"is_job_related", "region", "industry", "confidence"},
}

func regionEnum() []string {
	regions := models.AllRegions()
	values := make([]string, 0, len(regions))
	for _, r := range regions {
		values = append(values, string(r))
	}
	return values
}

func industryEnum() []string {
	industries := models.AllIndustries()
	values := make([]string, 0, len(industries))
	for _, i := range industries {
		values = append(values, string(i))
	}
	return values
}

// GeminiOracle analyzes query intent with the Gemini API.
type GeminiOracle struct {
	client *genai.Client
	model  string
	logger arbor.ILogger
}

// NewGeminiOracle builds an oracle over the Gemini API. The key comes from
// the config or the GEMINI_API_KEY / GOOGLE_API_KEY environment variables.
func NewGeminiOracle(ctx context.Context, cfg common.OracleConfig, logger arbor.ILogger) (*GeminiOracle, error) {
	apiKey := cfg.ResolveAPIKey()
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required (set oracle.api_key or GEMINI_API_KEY)")
	}

	model := cfg.Model
	if model == "" {
		model = geminiDefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	logger.Info().
		Str("model", model).
		Msg("Gemini intent oracle initialized")

	return &GeminiOracle{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

// Analyze sends one classification request with structured JSON output
// enforced by the response schema.
func (o *GeminiOracle) Analyze(ctx context.Context, text string, hint string) (models.IntentResult, error) {
	config := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(float32(0)),
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    analysisSchema,
	}

	contents := []*genai.Content{
		genai.NewContentFromText(buildPrompt(text, hint), genai.RoleUser),
	}

	resp, err := o.client.Models.GenerateContent(ctx, o.model, contents, config)
	if err != nil {
		return models.NewIntentResult(), fmt.Errorf("Gemini API call failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return models.NewIntentResult(), fmt.Errorf("empty response from Gemini API")
	}

	responseText := resp.Text()
	if responseText == "" {
		return models.NewIntentResult(), fmt.Errorf("empty text in Gemini response")
	}

	o.logger.Debug().
		Str("model", o.model).
		Int("response_length", len(responseText)).
		Msg("Gemini intent analysis returned")

	return parseAnalysis(responseText)
}
