package intent

import (
	"reflect"
	"testing"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indago/pkg/models"
)

func newTestClassifier(t *testing.T) *Service {
	t.Helper()
	lex, err := LoadLexicon("")
	if err != nil {
		t.Fatalf("LoadLexicon() error = %v", err)
	}
	return NewService(lex, arbor.NewLogger())
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestClassify_RegionDetection(t *testing.T) {
	classifier := newTestClassifier(t)

	tests := []struct {
		name           string
		text           string
		expectedRegion models.Region
		minConfidence  float64
	}{
		{
			name:           "explicit region keyword",
			text:           "I want to find AI Engineer jobs in Europe",
			expectedRegion: models.RegionEurope,
			minConfidence:  0.9,
		},
		{
			name:           "city resolves to region",
			text:           "backend developer positions in Berlin",
			expectedRegion: models.RegionEurope,
			minConfidence:  0.8,
		},
		{
			name:           "taiwanese city resolves to east asia",
			text:           "data scientist openings in Kaohsiung",
			expectedRegion: models.RegionEastAsia,
			minConfidence:  0.8,
		},
		{
			name:           "worldwide keyword maps to global",
			text:           "software engineer jobs worldwide",
			expectedRegion: models.RegionGlobal,
			minConfidence:  0.9,
		},
		{
			name:           "australian city",
			text:           "nurse vacancies in Sydney",
			expectedRegion: models.RegionOceania,
			minConfidence:  0.8,
		},
		{
			name:           "gulf city",
			text:           "civil engineer jobs in Dubai",
			expectedRegion: models.RegionMiddleEast,
			minConfidence:  0.8,
		},
		{
			name:           "indian tech hub",
			text:           "python developer jobs in Bangalore",
			expectedRegion: models.RegionSouthAsia,
			minConfidence:  0.8,
		},
		{
			name:           "no location signal",
			text:           "software engineer jobs",
			expectedRegion: models.RegionUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := classifier.Classify(models.NewQuery(tt.text))

			if result.Region != tt.expectedRegion {
				t.Errorf("region = %q, want %q", result.Region, tt.expectedRegion)
			}
			if result.RegionConfidence < tt.minConfidence {
				t.Errorf("region confidence = %.2f, want >= %.2f", result.RegionConfidence, tt.minConfidence)
			}
			if tt.expectedRegion == models.RegionUnknown && result.RegionConfidence != 0 {
				t.Errorf("unknown region should carry zero confidence, got %.2f", result.RegionConfidence)
			}
		})
	}
}

func TestClassify_Hints(t *testing.T) {
	classifier := newTestClassifier(t)

	t.Run("country hint resolves region", func(t *testing.T) {
		query := models.NewQuery("senior golang developer jobs")
		query.CountryHint = strPtr("de")

		result := classifier.Classify(query)
		if result.Region != models.RegionEurope {
			t.Errorf("region = %q, want %q", result.Region, models.RegionEurope)
		}
	})

	t.Run("language hint resolves region", func(t *testing.T) {
		query := models.NewQuery("accountant jobs")
		query.LanguageHint = strPtr("japanese")

		result := classifier.Classify(query)
		if result.Region != models.RegionEastAsia {
			t.Errorf("region = %q, want %q", result.Region, models.RegionEastAsia)
		}
	})

	t.Run("place name in text beats country hint", func(t *testing.T) {
		query := models.NewQuery("software engineer jobs in London")
		query.CountryHint = strPtr("in")

		result := classifier.Classify(query)
		if result.Region != models.RegionEurope {
			t.Errorf("region = %q, want %q", result.Region, models.RegionEurope)
		}
	})

	t.Run("country hint beats language hint", func(t *testing.T) {
		query := models.NewQuery("devops engineer jobs")
		query.CountryHint = strPtr("br")
		query.LanguageHint = strPtr("german")

		result := classifier.Classify(query)
		if result.Region != models.RegionLatinAmerica {
			t.Errorf("region = %q, want %q", result.Region, models.RegionLatinAmerica)
		}
	})

	t.Run("explicit location field participates", func(t *testing.T) {
		query := models.NewQuery("product manager roles")
		query.Location = strPtr("Melbourne")

		result := classifier.Classify(query)
		if result.Region != models.RegionOceania {
			t.Errorf("region = %q, want %q", result.Region, models.RegionOceania)
		}
		if result.ExtractedLocation == nil || *result.ExtractedLocation != "Melbourne" {
			t.Errorf("extracted location = %v, want Melbourne", result.ExtractedLocation)
		}
	})
}

func TestClassify_IndustryDetection(t *testing.T) {
	classifier := newTestClassifier(t)

	tests := []struct {
		name             string
		text             string
		expectedIndustry models.Industry
	}{
		{"software query", "senior software developer jobs in Berlin", models.IndustryTechnology},
		{"finance query", "investment banking analyst positions", models.IndustryFinance},
		{"healthcare query", "registered nurse vacancies in hospital", models.IndustryHealthcare},
		{"construction query", "civil engineer site manager jobs", models.IndustryConstruction},
		{"education query", "primary school teacher openings", models.IndustryEducation},
		{"no industry signal", "jobs in London", models.IndustryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := classifier.Classify(models.NewQuery(tt.text))
			if result.Industry != tt.expectedIndustry {
				t.Errorf("industry = %q, want %q", result.Industry, tt.expectedIndustry)
			}
		})
	}
}

func TestClassify_JobRelevance(t *testing.T) {
	classifier := newTestClassifier(t)

	result := classifier.Classify(models.NewQuery("I want to find AI Engineer jobs in Europe"))

	if result.IsJobRelated != models.TernaryTrue {
		t.Errorf("is_job_related = %q, want %q", result.IsJobRelated, models.TernaryTrue)
	}
	if result.Region != models.RegionEurope {
		t.Errorf("region = %q, want %q", result.Region, models.RegionEurope)
	}
	if result.RegionConfidence < 0.9 {
		t.Errorf("region confidence = %.2f, want >= 0.9", result.RegionConfidence)
	}
	if result.Industry != models.IndustryTechnology {
		t.Errorf("industry = %q, want %q", result.Industry, models.IndustryTechnology)
	}
	if result.OverallConfidence < 0.6 {
		t.Errorf("overall confidence = %.2f, want >= 0.6", result.OverallConfidence)
	}

	foundTitle := false
	for _, title := range result.ExtractedJobTitles {
		if title == "ai engineer" {
			foundTitle = true
		}
	}
	if !foundTitle {
		t.Errorf("extracted titles = %v, want to contain %q", result.ExtractedJobTitles, "ai engineer")
	}
}

func TestClassify_NonJobQueries(t *testing.T) {
	classifier := newTestClassifier(t)

	tests := []struct {
		name     string
		text     string
		expected models.Ternary
	}{
		{"movie recommendation", "recommend me a movie", models.TernaryFalse},
		{"streaming query", "watch online free streaming movies", models.TernaryFalse},
		{"apartment hunt", "apartment for rent in berlin", models.TernaryFalse},
		{"job title wins over non-job word", "movie production manager jobs", models.TernaryTrue},
		{"skill wins over non-job word", "netflix python developer openings", models.TernaryTrue},
		{"gibberish stays unknown", "qwerty asdfgh zxcvbn", models.TernaryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := classifier.Classify(models.NewQuery(tt.text))
			if result.IsJobRelated != tt.expected {
				t.Errorf("is_job_related = %q, want %q", result.IsJobRelated, tt.expected)
			}
		})
	}
}

func TestClassify_Seniority(t *testing.T) {
	classifier := newTestClassifier(t)

	tests := []struct {
		name     string
		text     string
		expected models.Seniority
	}{
		{"senior prefix", "senior backend engineer jobs", models.SenioritySenior},
		{"junior prefix", "junior developer positions", models.SeniorityJunior},
		{"graduate maps to junior", "graduate software engineer roles", models.SeniorityJunior},
		{"internship", "software engineering internship", models.SeniorityIntern},
		{"principal maps to lead", "principal engineer openings", models.SeniorityLead},
		{"staff level maps to lead", "staff engineer jobs in london", models.SeniorityLead},
		{"no marker", "software engineer jobs", models.SeniorityUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := classifier.Classify(models.NewQuery(tt.text))
			if result.Seniority != tt.expected {
				t.Errorf("seniority = %q, want %q", result.Seniority, tt.expected)
			}
		})
	}
}

func TestClassify_RemoteDetection(t *testing.T) {
	classifier := newTestClassifier(t)

	t.Run("remote keyword", func(t *testing.T) {
		result := classifier.Classify(models.NewQuery("remote golang developer jobs"))
		if result.IsRemote == nil || !*result.IsRemote {
			t.Errorf("is_remote = %v, want true", result.IsRemote)
		}
	})

	t.Run("onsite keyword", func(t *testing.T) {
		result := classifier.Classify(models.NewQuery("on-site electrician jobs in Sydney"))
		if result.IsRemote == nil || *result.IsRemote {
			t.Errorf("is_remote = %v, want false", result.IsRemote)
		}
	})

	t.Run("no keyword leaves unset", func(t *testing.T) {
		result := classifier.Classify(models.NewQuery("golang developer jobs"))
		if result.IsRemote != nil {
			t.Errorf("is_remote = %v, want nil", result.IsRemote)
		}
	})

	t.Run("explicit query flag wins", func(t *testing.T) {
		query := models.NewQuery("on-site electrician jobs")
		query.IsRemote = boolPtr(true)

		result := classifier.Classify(query)
		if result.IsRemote == nil || !*result.IsRemote {
			t.Errorf("is_remote = %v, want true from explicit flag", result.IsRemote)
		}
	})
}

func TestClassify_EntityExtraction(t *testing.T) {
	classifier := newTestClassifier(t)

	result := classifier.Classify(models.NewQuery("senior machine learning engineer with python and kubernetes experience in Tokyo"))

	wantTitles := []string{"machine learning engineer"}
	if !reflect.DeepEqual(result.ExtractedJobTitles, wantTitles) {
		t.Errorf("titles = %v, want %v (shorter overlapping titles must be dropped)", result.ExtractedJobTitles, wantTitles)
	}

	wantSkills := map[string]bool{"python": true, "kubernetes": true}
	if len(result.ExtractedSkills) != len(wantSkills) {
		t.Fatalf("skills = %v, want python and kubernetes", result.ExtractedSkills)
	}
	for _, skill := range result.ExtractedSkills {
		if !wantSkills[skill] {
			t.Errorf("unexpected skill %q", skill)
		}
	}

	if result.ExtractedLocation == nil || *result.ExtractedLocation != "tokyo" {
		t.Errorf("extracted location = %v, want tokyo", result.ExtractedLocation)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	classifier := newTestClassifier(t)
	query := models.NewQuery("senior AI engineer jobs with python in Berlin or Munich")

	first := classifier.Classify(query)
	for i := 0; i < 10; i++ {
		next := classifier.Classify(query)
		if !reflect.DeepEqual(first, next) {
			t.Fatalf("classification differs between runs:\nfirst = %+v\nnext  = %+v", first, next)
		}
	}
}
