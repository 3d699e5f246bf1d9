package merge

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/pkg/models"
)

// countryNames maps lowercase aliases to the canonical country name used in
// Location.Country. Covers the markets the built-in agents serve plus the
// usual suspects.
var countryNames = map[string]string{
	"united states": "United States", "usa": "United States", "us": "United States",
	"u.s.": "United States", "u.s.a.": "United States", "united states of america": "United States",
	"united kingdom": "United Kingdom", "uk": "United Kingdom", "great britain": "United Kingdom",
	"england": "United Kingdom", "scotland": "United Kingdom", "wales": "United Kingdom",
	"germany": "Germany", "deutschland": "Germany",
	"france": "France", "netherlands": "Netherlands", "the netherlands": "Netherlands",
	"spain": "Spain", "españa": "Spain", "italy": "Italy", "italia": "Italy",
	"poland": "Poland", "polska": "Poland", "sweden": "Sweden", "norway": "Norway",
	"denmark": "Denmark", "finland": "Finland", "switzerland": "Switzerland",
	"austria": "Austria", "ireland": "Ireland", "belgium": "Belgium",
	"portugal": "Portugal", "czech republic": "Czech Republic", "czechia": "Czech Republic",
	"romania": "Romania", "greece": "Greece", "hungary": "Hungary",
	"canada": "Canada", "mexico": "Mexico", "méxico": "Mexico",
	"brazil": "Brazil", "brasil": "Brazil", "argentina": "Argentina",
	"chile": "Chile", "colombia": "Colombia", "peru": "Peru",
	"india": "India", "bangladesh": "Bangladesh", "pakistan": "Pakistan",
	"sri lanka": "Sri Lanka", "nepal": "Nepal",
	"china": "China", "japan": "Japan", "south korea": "South Korea", "korea": "South Korea",
	"taiwan": "Taiwan", "hong kong": "Hong Kong",
	"singapore": "Singapore", "malaysia": "Malaysia", "indonesia": "Indonesia",
	"philippines": "Philippines", "thailand": "Thailand", "vietnam": "Vietnam",
	"australia": "Australia", "new zealand": "New Zealand",
	"united arab emirates": "United Arab Emirates", "uae": "United Arab Emirates",
	"saudi arabia": "Saudi Arabia", "qatar": "Qatar", "kuwait": "Kuwait",
	"bahrain": "Bahrain", "oman": "Oman", "jordan": "Jordan", "lebanon": "Lebanon",
	"egypt": "Egypt", "israel": "Israel", "turkey": "Turkey", "türkiye": "Turkey",
	"nigeria": "Nigeria", "south africa": "South Africa", "kenya": "Kenya",
}

// stateNames maps lowercase aliases to canonical state or province codes.
// Two-letter US codes map to themselves uppercased; codes that collide with
// country aliases are intentionally absent from countryNames so the country
// lookup stays unambiguous.
var stateNames = map[string]string{
	"al": "AL", "ak": "AK", "az": "AZ", "ar": "AR", "ca": "CA", "co": "CO",
	"ct": "CT", "de": "DE", "fl": "FL", "ga": "GA", "hi": "HI", "id": "ID",
	"il": "IL", "in": "IN", "ia": "IA", "ks": "KS", "ky": "KY", "la": "LA",
	"me": "ME", "md": "MD", "ma": "MA", "mi": "MI", "mn": "MN", "ms": "MS",
	"mo": "MO", "mt": "MT", "ne": "NE", "nv": "NV", "nh": "NH", "nj": "NJ",
	"nm": "NM", "ny": "NY", "nc": "NC", "nd": "ND", "oh": "OH", "ok": "OK",
	"or": "OR", "pa": "PA", "ri": "RI", "sc": "SC", "sd": "SD", "tn": "TN",
	"tx": "TX", "ut": "UT", "vt": "VT", "va": "VA", "wa": "WA", "wv": "WV",
	"wi": "WI", "wy": "WY", "dc": "DC",
	"california": "CA", "texas": "TX", "new york": "NY", "florida": "FL",
	"washington": "WA", "illinois": "IL", "massachusetts": "MA", "georgia": "GA",
	"colorado": "CO", "oregon": "OR", "virginia": "VA", "north carolina": "NC",
	"ohio": "OH", "pennsylvania": "PA", "arizona": "AZ", "michigan": "MI",
	"minnesota": "MN", "new jersey": "NJ", "utah": "UT",
	"nsw": "NSW", "new south wales": "NSW", "vic": "VIC", "victoria": "VIC",
	"qld": "QLD", "queensland": "QLD", "tas": "TAS", "tasmania": "TAS",
	"act": "ACT", "on": "ON", "ontario": "ON", "bc": "BC", "british columbia": "BC",
	"ab": "AB", "alberta": "AB", "qc": "QC", "quebec": "QC",
}

// remoteKeywords mark a location string as remote work, including the
// translations the built-in boards commonly surface.
var remoteKeywords = []string{
	"remote", "work from home", "wfh", "anywhere", "home office", "homeoffice",
	"telecommute", "fully remote", "100% remote", "teletrabajo", "télétravail",
	"remoto", "remote first", "remote-first",
}

// currencyCodes maps salary currency symbols and names to ISO-4217 codes.
var currencyCodes = map[string]string{
	"$": "USD", "us$": "USD", "usd": "USD", "dollar": "USD", "dollars": "USD",
	"€": "EUR", "eur": "EUR", "euro": "EUR", "euros": "EUR",
	"£": "GBP", "gbp": "GBP", "pound": "GBP", "pounds": "GBP",
	"a$": "AUD", "au$": "AUD", "aud": "AUD",
	"c$": "CAD", "ca$": "CAD", "cad": "CAD",
	"nz$": "NZD", "nzd": "NZD",
	"₹": "INR", "rs": "INR", "rs.": "INR", "inr": "INR", "rupees": "INR",
	"¥": "JPY", "jpy": "JPY", "yen": "JPY",
	"cny": "CNY", "rmb": "CNY", "元": "CNY",
	"৳": "BDT", "bdt": "BDT", "tk": "BDT", "taka": "BDT",
	"aed": "AED", "د.إ": "AED", "dirham": "AED", "dirhams": "AED",
	"sar": "SAR", "riyal": "SAR", "qar": "QAR", "kwd": "KWD", "bhd": "BHD", "omr": "OMR",
	"sgd": "SGD", "s$": "SGD", "hkd": "HKD", "hk$": "HKD",
	"chf": "CHF", "sek": "SEK", "nok": "NOK", "dkk": "DKK", "pln": "PLN", "zł": "PLN",
	"brl": "BRL", "r$": "BRL", "mxn": "MXN",
	"php": "PHP", "₱": "PHP", "myr": "MYR", "rm": "MYR", "idr": "IDR", "rp": "IDR",
	"thb": "THB", "฿": "THB", "vnd": "VND", "₫": "VND",
	"krw": "KRW", "₩": "KRW", "twd": "TWD", "nt$": "TWD",
	"try": "TRY", "₺": "TRY", "ils": "ILS", "₪": "ILS",
	"zar": "ZAR", "ngn": "NGN", "₦": "NGN", "kes": "KES", "egp": "EGP",
	"lkr": "LKR", "pkr": "PKR", "npr": "NPR",
}

// compensationIntervals canonicalizes the pay period strings boards use.
var compensationIntervals = map[string]models.CompensationInterval{
	"hour": models.IntervalHour, "hourly": models.IntervalHour, "hr": models.IntervalHour,
	"per hour": models.IntervalHour, "ph": models.IntervalHour,
	"day": models.IntervalDay, "daily": models.IntervalDay, "per day": models.IntervalDay,
	"week": models.IntervalWeek, "weekly": models.IntervalWeek, "wk": models.IntervalWeek,
	"per week": models.IntervalWeek,
	"month": models.IntervalMonth, "monthly": models.IntervalMonth, "mo": models.IntervalMonth,
	"per month": models.IntervalMonth,
	"year": models.IntervalYear, "yearly": models.IntervalYear, "annual": models.IntervalYear,
	"annually": models.IntervalYear, "per year": models.IntervalYear, "yr": models.IntervalYear,
	"pa": models.IntervalYear, "p.a.": models.IntervalYear,
}

var relativeAgePattern = regexp.MustCompile(`^(\d+)\+?\s*(minute|min|hour|hr|day|week|month|year)s?\s*ago$`)
var relativeOnePattern = regexp.MustCompile(`^an?\s+(minute|min|hour|hr|day|week|month|year)\s+ago$`)

// normalizer applies the canonicalization rules to every record entering the
// merger. Normalization only fills absent fields and canonicalizes encodings;
// applying it twice yields the same record.
type normalizer struct {
	convertHTML bool
	converter   *md.Converter
	logger      arbor.ILogger
}

func newNormalizer(cfg common.MergerConfig, logger arbor.ILogger) *normalizer {
	n := &normalizer{logger: logger}
	if cfg.DescriptionConversion == common.DescriptionHTMLToMarkdown {
		n.convertHTML = true
		n.converter = md.NewConverter("", true, nil)
	}
	return n
}

// normalize canonicalizes one record in place, computes its dedup key, and
// returns the length of the extracted description text for quality scoring.
func (n *normalizer) normalize(rec *models.JobRecord) int {
	rec.Title = strings.TrimSpace(rec.Title)
	rec.Company = strings.TrimSpace(rec.Company)

	parseLocation(&rec.Location)

	// A posted date after the scrape is board clock skew; clamp it.
	if rec.PostedAt != nil && !rec.ScrapedAt.IsZero() && rec.PostedAt.After(rec.ScrapedAt) {
		clamped := rec.ScrapedAt
		rec.PostedAt = &clamped
	}

	if rec.Compensation != nil {
		normalizeCompensation(rec.Compensation)
	}

	rec.Skills = normalizeSkills(rec.Skills)

	if n.convertHTML && rec.Description != nil && rec.DescriptionFormat == models.FormatHTML {
		if converted, err := n.converter.ConvertString(*rec.Description); err == nil {
			rec.Description = &converted
			rec.DescriptionFormat = models.FormatMarkdown
		} else {
			n.logger.Warn().
				Str("record", rec.ID).
				Err(err).
				Msg("HTML to markdown conversion failed, keeping original")
		}
	}

	descText := ""
	if rec.Description != nil {
		descText = descriptionText(*rec.Description, rec.DescriptionFormat)
	}

	rec.DedupKey = fingerprint(rec, descText)
	return len(descText)
}

// parseLocation fills the structured location fields from the raw string.
// Fields an agent already populated are left alone.
func parseLocation(loc *models.Location) {
	raw := strings.TrimSpace(loc.Raw)
	if raw == "" {
		return
	}

	lower := strings.ToLower(raw)
	if !loc.IsRemote {
		for _, kw := range remoteKeywords {
			if strings.Contains(lower, kw) {
				loc.IsRemote = true
				break
			}
		}
	}

	var parts []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" || isRemoteToken(part) {
			continue
		}
		parts = append(parts, part)
	}

	switch len(parts) {
	case 0:
		return
	case 1:
		if country, ok := countryNames[strings.ToLower(parts[0])]; ok {
			fillString(&loc.Country, country)
		} else {
			fillString(&loc.City, parts[0])
		}
	case 2:
		fillString(&loc.City, parts[0])
		if country, ok := countryNames[strings.ToLower(parts[1])]; ok {
			fillString(&loc.Country, country)
		} else if state, ok := stateNames[strings.ToLower(parts[1])]; ok {
			fillString(&loc.State, state)
		} else {
			fillString(&loc.State, parts[1])
		}
	default:
		fillString(&loc.City, parts[0])
		if state, ok := stateNames[strings.ToLower(parts[1])]; ok {
			fillString(&loc.State, state)
		} else {
			fillString(&loc.State, parts[1])
		}
		if country, ok := countryNames[strings.ToLower(parts[len(parts)-1])]; ok {
			fillString(&loc.Country, country)
		}
	}
}

func isRemoteToken(part string) bool {
	folded := strings.ToLower(strings.TrimSpace(part))
	for _, kw := range remoteKeywords {
		if folded == kw {
			return true
		}
	}
	return false
}

func fillString(dst **string, value string) {
	if *dst == nil && value != "" {
		v := value
		*dst = &v
	}
}

func normalizeCompensation(c *models.Compensation) {
	if code, ok := currencyCodes[strings.ToLower(strings.TrimSpace(c.Currency))]; ok {
		c.Currency = code
	} else if len(c.Currency) == 3 {
		c.Currency = strings.ToUpper(c.Currency)
	}

	if interval, ok := compensationIntervals[strings.ToLower(strings.TrimSpace(string(c.Interval)))]; ok {
		c.Interval = interval
	}

	if c.Min != nil && c.Max != nil && *c.Min > *c.Max {
		c.Min, c.Max = c.Max, c.Min
	}
}

func normalizeSkills(skills []string) []string {
	if len(skills) == 0 {
		return skills
	}
	seen := make(map[string]bool, len(skills))
	out := skills[:0]
	for _, skill := range skills {
		folded := strings.ToLower(strings.TrimSpace(skill))
		if folded == "" || seen[folded] {
			continue
		}
		seen[folded] = true
		out = append(out, folded)
	}
	return out
}

// ResolvePostedAt converts the relative age strings job boards serve ("just
// posted", "yesterday", "3 days ago", "30+ days ago") into an absolute date
// anchored at the scrape time. Agents call this while parsing listings; the
// second return is false when the string is not a recognized relative form.
func ResolvePostedAt(raw string, scrapedAt time.Time) (time.Time, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "posted")
	s = strings.TrimPrefix(s, "active")
	s = strings.TrimSpace(s)

	ref := scrapedAt.UTC()
	switch s {
	case "just posted", "just now", "now", "today":
		return dayOf(ref), true
	case "yesterday":
		return dayOf(ref.AddDate(0, 0, -1)), true
	}

	unit := ""
	n := 0
	if m := relativeAgePattern.FindStringSubmatch(s); m != nil {
		n, _ = strconv.Atoi(m[1])
		unit = m[2]
	} else if m := relativeOnePattern.FindStringSubmatch(s); m != nil {
		n = 1
		unit = m[1]
	} else {
		return time.Time{}, false
	}

	switch unit {
	case "minute", "min":
		return dayOf(ref.Add(-time.Duration(n) * time.Minute)), true
	case "hour", "hr":
		return dayOf(ref.Add(-time.Duration(n) * time.Hour)), true
	case "day":
		return dayOf(ref.AddDate(0, 0, -n)), true
	case "week":
		return dayOf(ref.AddDate(0, 0, -7*n)), true
	case "month":
		return dayOf(ref.AddDate(0, -n, 0)), true
	case "year":
		return dayOf(ref.AddDate(-n, 0, 0)), true
	}
	return time.Time{}, false
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
