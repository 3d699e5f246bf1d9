package intent

import (
	"sort"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/pkg/models"
)

// Relevance weights. A title match is the strongest single signal; skills
// accumulate but cannot dominate on their own.
const (
	titleWeight     = 0.4
	skillWeight     = 0.1
	maxSkillsWeight = 0.3
	verbWeight      = 0.2
	locationWeight  = 0.1

	// categoryThreshold is the minimum category score for region and
	// industry classification; below it the field stays unknown.
	categoryThreshold = 0.25

	// nonJobRelevanceFloor guards the rejection rule: a non-job lexicon hit
	// only rejects when relevance sits under this floor.
	nonJobRelevanceFloor = 0.3
)

// Region signal weights, strongest to weakest. A named place in the query
// text always outranks a country hint, which outranks a language hint.
const (
	regionKeywordWeight = 1.0
	locationMatchWeight = 0.9
	countryHintWeight   = 0.75
	languageHintWeight  = 0.5
)

// Service is the rule-based intent classifier.
type Service struct {
	lex             *Lexicon
	logger          arbor.ILogger
	locationPhrases []string
	industryNames   []string
	regionNames     []string
}

// NewService builds a classifier over the given lexicon. Phrase tables are
// pre-sorted so classification order never depends on map iteration.
func NewService(lex *Lexicon, logger arbor.ILogger) *Service {
	if logger == nil {
		logger = common.GetLogger()
	}

	locations := make([]string, 0, len(lex.Locations))
	for phrase := range lex.Locations {
		locations = append(locations, phrase)
	}
	sort.Strings(locations)

	industries := make([]string, 0, len(lex.Industries))
	for name := range lex.Industries {
		industries = append(industries, name)
	}
	sort.Strings(industries)

	regions := make([]string, 0, len(lex.Regions))
	for name := range lex.Regions {
		regions = append(regions, name)
	}
	sort.Strings(regions)

	return &Service{
		lex:             lex,
		logger:          logger,
		locationPhrases: locations,
		industryNames:   industries,
		regionNames:     regions,
	}
}

// ruleOutcome carries the public result plus the internal scores the oracle
// merge needs.
type ruleOutcome struct {
	result    models.IntentResult
	relevance float64
	nonJobHit bool
}

// Classify runs rule-based classification only.
func (s *Service) Classify(query *models.Query) models.IntentResult {
	return s.classify(query).result
}

func (s *Service) classify(query *models.Query) ruleOutcome {
	result := models.NewIntentResult()

	text := padText(query.Text)
	locationText := ""
	if query.Location != nil {
		locationText = padText(*query.Location)
	}

	titles := dropSubsumed(matchPhrases(text, s.lex.JobTitles))
	skills := matchPhrases(text, s.lex.Skills)
	verbHit := len(matchPhrases(text, s.lex.JobVerbs)) > 0
	nonJobHit := len(matchPhrases(text, s.lex.NonJob)) > 0

	result.ExtractedJobTitles = phraseList(titles)
	result.ExtractedSkills = phraseList(skills)

	region, regionConf, locationHit := s.classifyRegion(query, text, locationText)
	result.Region = region
	result.RegionConfidence = regionConf

	industry, industryConf := s.classifyIndustry(text)
	result.Industry = industry
	result.IndustryConfidence = industryConf

	result.Seniority = s.classifySeniority(text)
	result.ExtractedLocation = s.extractLocation(query, text)
	result.IsRemote = s.classifyRemote(query, text)

	relevance := 0.0
	if len(titles) > 0 {
		relevance += titleWeight
	}
	skillScore := skillWeight * float64(len(skills))
	if skillScore > maxSkillsWeight {
		skillScore = maxSkillsWeight
	}
	relevance += skillScore
	if verbHit {
		relevance += verbWeight
	}
	if locationHit {
		relevance += locationWeight
	}
	if relevance > 1.0 {
		relevance = 1.0
	}

	switch {
	case nonJobHit && relevance < nonJobRelevanceFloor && len(titles) == 0 && len(skills) == 0:
		result.IsJobRelated = models.TernaryFalse
	case relevance >= categoryThreshold || len(titles) > 0 || len(skills) > 0:
		result.IsJobRelated = models.TernaryTrue
	default:
		result.IsJobRelated = models.TernaryUnknown
	}

	result.OverallConfidence = clamp01(0.45*relevance + 0.35*regionConf + 0.20*industryConf)

	s.logger.Debug().
		Str("region", string(result.Region)).
		Str("industry", string(result.Industry)).
		Float64("relevance", relevance).
		Float64("overall_confidence", result.OverallConfidence).
		Str("job_related", string(result.IsJobRelated)).
		Msg("Rule-based intent classified")

	return ruleOutcome{result: result, relevance: relevance, nonJobHit: nonJobHit}
}

// regionSignals tracks the evidence collected for one candidate region.
type regionSignals struct {
	score       float64
	hits        int
	hasKeyword  bool
	hasLocation bool
	hasCountry  bool
	hasLanguage bool
}

func (s *Service) classifyRegion(query *models.Query, text, locationText string) (models.Region, float64, bool) {
	signals := make(map[models.Region]*regionSignals)
	get := func(r models.Region) *regionSignals {
		if sig, ok := signals[r]; ok {
			return sig
		}
		sig := &regionSignals{}
		signals[r] = sig
		return sig
	}

	locationHit := false

	for _, name := range s.regionNames {
		region := models.Region(name)
		for _, kw := range s.lex.Regions[name].Keywords {
			if containsPhrase(text, kw) || (locationText != "" && containsPhrase(locationText, kw)) {
				sig := get(region)
				sig.score += regionKeywordWeight
				sig.hits++
				sig.hasKeyword = true
				locationHit = true
			}
		}
	}

	for _, phrase := range s.locationPhrases {
		if containsPhrase(text, phrase) || (locationText != "" && containsPhrase(locationText, phrase)) {
			region := models.Region(s.lex.Locations[phrase])
			sig := get(region)
			sig.score += locationMatchWeight
			sig.hits++
			sig.hasLocation = true
			locationHit = true
		}
	}

	if query.CountryHint != nil {
		if region, ok := s.lex.RegionForCountry(*query.CountryHint); ok {
			sig := get(region)
			sig.score += countryHintWeight
			sig.hits++
			sig.hasCountry = true
		}
	}

	if query.LanguageHint != nil {
		if region, ok := s.lex.RegionForLanguage(*query.LanguageHint); ok {
			sig := get(region)
			sig.score += languageHintWeight
			sig.hits++
			sig.hasLanguage = true
		}
	}

	if len(signals) == 0 {
		return models.RegionUnknown, 0, locationHit
	}

	candidates := make([]models.Region, 0, len(signals))
	for region := range signals {
		candidates = append(candidates, region)
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := signals[candidates[i]], signals[candidates[j]]
		if a.score != b.score {
			return a.score > b.score
		}
		if ra, rb := signalRank(a), signalRank(b); ra != rb {
			return ra < rb
		}
		return candidates[i] < candidates[j]
	})

	winner := candidates[0]
	sig := signals[winner]
	if sig.score < categoryThreshold {
		return models.RegionUnknown, 0, locationHit
	}

	conf := signalBaseConfidence(sig) + 0.03*float64(sig.hits-1)
	return winner, clampConfidence(conf), locationHit
}

// signalRank orders tie-broken regions: direct keyword beats country hint
// beats language hint.
func signalRank(sig *regionSignals) int {
	switch {
	case sig.hasKeyword:
		return 0
	case sig.hasLocation:
		return 1
	case sig.hasCountry:
		return 2
	default:
		return 3
	}
}

func signalBaseConfidence(sig *regionSignals) float64 {
	switch {
	case sig.hasKeyword:
		return 0.92
	case sig.hasLocation:
		return 0.85
	case sig.hasCountry:
		return 0.75
	default:
		return 0.55
	}
}

func (s *Service) classifyIndustry(text string) (models.Industry, float64) {
	bestName := ""
	bestHits := 0
	for _, name := range s.industryNames {
		hits := len(matchPhrases(text, s.lex.Industries[name]))
		if hits > bestHits {
			bestName, bestHits = name, hits
		}
	}
	if bestHits == 0 {
		return models.IndustryUnknown, 0
	}
	conf := 0.45 + 0.2*float64(bestHits)
	if conf > 0.95 {
		conf = 0.95
	}
	return models.Industry(bestName), conf
}

func (s *Service) classifySeniority(text string) models.Seniority {
	for _, entry := range s.lex.Seniority {
		for _, kw := range entry.Keywords {
			if containsPhrase(text, kw) {
				return models.Seniority(entry.Level)
			}
		}
	}
	return models.SeniorityUnknown
}

func (s *Service) classifyRemote(query *models.Query, text string) *bool {
	if query.IsRemote != nil {
		v := *query.IsRemote
		return &v
	}
	for _, kw := range s.lex.RemoteNegative {
		if containsPhrase(text, kw) {
			v := false
			return &v
		}
	}
	for _, kw := range s.lex.RemotePositive {
		if containsPhrase(text, kw) {
			v := true
			return &v
		}
	}
	return nil
}

// extractLocation prefers the explicit query location; otherwise the longest
// place name found in the text.
func (s *Service) extractLocation(query *models.Query, text string) *string {
	if query.Location != nil && strings.TrimSpace(*query.Location) != "" {
		v := strings.TrimSpace(*query.Location)
		return &v
	}

	best := phraseMatch{index: -1}
	for _, phrase := range s.locationPhrases {
		idx := phraseIndex(text, phrase)
		if idx < 0 {
			continue
		}
		if best.index < 0 ||
			len(phrase) > len(best.phrase) ||
			(len(phrase) == len(best.phrase) && idx < best.index) {
			best = phraseMatch{phrase: phrase, index: idx}
		}
	}
	if best.index < 0 {
		return nil
	}
	v := best.phrase
	return &v
}

type phraseMatch struct {
	phrase string
	index  int
}

// padText lowercases the input, folds punctuation to single spaces and pads
// the ends so every phrase lookup can use word-boundary matching. Characters
// meaningful in skill names (+, #) are preserved.
func padText(text string) string {
	var b strings.Builder
	b.Grow(len(text) + 2)
	b.WriteByte(' ')
	lastSpace := true
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '+', r == '#', r > 127:
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	if !lastSpace {
		b.WriteByte(' ')
	}
	return b.String()
}

// foldPhrase applies the same folding to a lexicon phrase, so "on-site" in
// the lexicon matches "on site" in query text.
func foldPhrase(phrase string) string {
	return strings.TrimSpace(padText(phrase))
}

func containsPhrase(padded, phrase string) bool {
	return phraseIndex(padded, phrase) >= 0
}

func phraseIndex(padded, phrase string) int {
	if phrase == "" {
		return -1
	}
	return strings.Index(padded, " "+phrase+" ")
}

// matchPhrases returns all phrases present in the padded text, ordered by
// first occurrence, longest first on ties.
func matchPhrases(padded string, phrases []string) []phraseMatch {
	var matches []phraseMatch
	seen := make(map[string]bool)
	for _, phrase := range phrases {
		if seen[phrase] {
			continue
		}
		if idx := phraseIndex(padded, phrase); idx >= 0 {
			seen[phrase] = true
			matches = append(matches, phraseMatch{phrase: phrase, index: idx})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].index != matches[j].index {
			return matches[i].index < matches[j].index
		}
		if len(matches[i].phrase) != len(matches[j].phrase) {
			return len(matches[i].phrase) > len(matches[j].phrase)
		}
		return matches[i].phrase < matches[j].phrase
	})
	return matches
}

// dropSubsumed removes matches fully contained in a longer match, so a hit
// on "ai engineer" does not also report the bare "engineer".
func dropSubsumed(matches []phraseMatch) []phraseMatch {
	var out []phraseMatch
	for i, m := range matches {
		subsumed := false
		for j, other := range matches {
			if i == j || len(other.phrase) <= len(m.phrase) {
				continue
			}
			if strings.Contains(" "+other.phrase+" ", " "+m.phrase+" ") {
				subsumed = true
				break
			}
		}
		if !subsumed {
			out = append(out, m)
		}
	}
	return out
}

func phraseList(matches []phraseMatch) []string {
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.phrase
	}
	return out
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

func clampConfidence(v float64) float64 {
	if v > 0.98 {
		return 0.98
	}
	return clamp01(v)
}
