// Package intent classifies query text into region, industry, seniority and
// job-relevance signals using embedded keyword lexicons, optionally refined
// by an LLM oracle.
//
// Lexicons are loaded with resolution order:
// 1. User override: <lexiconDir>/intent.yaml
// 2. Embedded default: internal/services/intent/lexicon.yaml
package intent

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ternarybob/indago/pkg/models"
)

//go:embed lexicon.yaml
var lexiconFS embed.FS

// SeniorityEntry is one level of the ranked seniority list. Earlier entries
// win when multiple levels match.
type SeniorityEntry struct {
	Level    string   `yaml:"level"`
	Keywords []string `yaml:"keywords"`
}

type regionEntry struct {
	Keywords []string `yaml:"keywords"`
}

// Lexicon holds the keyword tables driving rule-based classification.
type Lexicon struct {
	Regions        map[string]regionEntry `yaml:"regions"`
	Locations      map[string]string      `yaml:"locations"`
	Countries      map[string]string      `yaml:"countries"`
	Languages      map[string]string      `yaml:"languages"`
	Industries     map[string][]string    `yaml:"industries"`
	JobTitles      []string               `yaml:"job_titles"`
	Skills         []string               `yaml:"skills"`
	JobVerbs       []string               `yaml:"job_verbs"`
	Seniority      []SeniorityEntry       `yaml:"seniority"`
	RemotePositive []string               `yaml:"remote_positive"`
	RemoteNegative []string               `yaml:"remote_negative"`
	NonJob         []string               `yaml:"non_job"`
}

// LoadLexicon loads the lexicon with user-override resolution. An empty
// lexiconDir skips the override step and returns the embedded default.
func LoadLexicon(lexiconDir string) (*Lexicon, error) {
	if lexiconDir != "" {
		userPath := filepath.Join(lexiconDir, "intent.yaml")
		if data, err := os.ReadFile(userPath); err == nil {
			lex, err := parseLexicon(data)
			if err != nil {
				return nil, fmt.Errorf("lexicon override %s: %w", userPath, err)
			}
			return lex, nil
		}
	}

	data, err := lexiconFS.ReadFile("lexicon.yaml")
	if err != nil {
		return nil, fmt.Errorf("embedded lexicon: %w", err)
	}
	return parseLexicon(data)
}

func parseLexicon(data []byte) (*Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, fmt.Errorf("failed to parse lexicon: %w", err)
	}
	if err := lex.validate(); err != nil {
		return nil, err
	}
	lex.normalize()
	return &lex, nil
}

func (l *Lexicon) validate() error {
	for name := range l.Regions {
		if r := models.Region(name); !r.IsValid() || r == models.RegionUnknown {
			return fmt.Errorf("lexicon regions: unknown region %q", name)
		}
	}
	for phrase, name := range l.Locations {
		if r := models.Region(name); !r.IsValid() || r == models.RegionUnknown {
			return fmt.Errorf("lexicon locations: %q maps to unknown region %q", phrase, name)
		}
	}
	for hint, name := range l.Countries {
		if r := models.Region(name); !r.IsValid() || r == models.RegionUnknown {
			return fmt.Errorf("lexicon countries: %q maps to unknown region %q", hint, name)
		}
	}
	for hint, name := range l.Languages {
		if r := models.Region(name); !r.IsValid() || r == models.RegionUnknown {
			return fmt.Errorf("lexicon languages: %q maps to unknown region %q", hint, name)
		}
	}
	for name := range l.Industries {
		if ind := models.Industry(name); !ind.IsValid() || ind == models.IndustryUnknown {
			return fmt.Errorf("lexicon industries: unknown industry %q", name)
		}
	}
	for _, entry := range l.Seniority {
		if s := models.Seniority(entry.Level); !s.IsValid() || s == models.SeniorityUnknown {
			return fmt.Errorf("lexicon seniority: unknown level %q", entry.Level)
		}
	}
	return nil
}

// normalize folds every phrase the same way query text is folded, so
// matching never depends on how the lexicon file was typed.
func (l *Lexicon) normalize() {
	fold := func(in []string) {
		for i, s := range in {
			in[i] = foldPhrase(s)
		}
	}
	for name, entry := range l.Regions {
		fold(entry.Keywords)
		l.Regions[name] = entry
	}
	l.Locations = foldKeys(l.Locations)
	l.Countries = foldKeys(l.Countries)
	l.Languages = foldKeys(l.Languages)
	for name, kws := range l.Industries {
		fold(kws)
		l.Industries[name] = kws
	}
	fold(l.JobTitles)
	fold(l.Skills)
	fold(l.JobVerbs)
	for i := range l.Seniority {
		fold(l.Seniority[i].Keywords)
	}
	fold(l.RemotePositive)
	fold(l.RemoteNegative)
	fold(l.NonJob)
}

func foldKeys(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[foldPhrase(k)] = v
	}
	return out
}

// RegionForCountry resolves a country hint (ISO code or name) to a region.
func (l *Lexicon) RegionForCountry(hint string) (models.Region, bool) {
	name, ok := l.Countries[foldPhrase(hint)]
	if !ok {
		// Full country names also live in the locations table.
		name, ok = l.Locations[foldPhrase(hint)]
		if !ok {
			return models.RegionUnknown, false
		}
	}
	return models.Region(name), true
}

// RegionForLanguage resolves a language hint to a region.
func (l *Lexicon) RegionForLanguage(hint string) (models.Region, bool) {
	name, ok := l.Languages[foldPhrase(hint)]
	if !ok {
		return models.RegionUnknown, false
	}
	return models.Region(name), true
}
