package merge

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/ternarybob/indago/pkg/models"
)

// fingerprintDescChars is how much normalized description text feeds the
// fingerprint. Enough to separate distinct roles at the same company without
// letting boilerplate footers differ across boards.
const fingerprintDescChars = 120

// fingerprint computes the cross-source dedup key: a hash over the
// normalized title, company, city, and leading description text. Two
// listings for the same role scraped from different boards land on the same
// key even when URLs and native ids differ.
func fingerprint(rec *models.JobRecord, descText string) string {
	city := ""
	if rec.Location.City != nil {
		city = *rec.Location.City
	}

	desc := foldKey(descText)
	if len(desc) > fingerprintDescChars {
		desc = desc[:fingerprintDescChars]
	}

	payload := strings.Join([]string{
		foldKey(rec.Title),
		foldKey(rec.Company),
		foldKey(city),
		desc,
	}, "|")

	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])[:16]
}

// foldKey lowercases and collapses every non-alphanumeric run to a single
// space, so "Sr. Engineer  (Remote)" and "sr engineer remote" fold together.
func foldKey(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := true
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			space = false
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
			space = false
		case r > 127:
			b.WriteRune(r)
			space = false
		default:
			if !space {
				b.WriteByte(' ')
				space = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// optionalFieldCount counts how many of the informative optional fields a
// record carries. Used both for completeness scoring and for picking the
// richer record among same-agent near-duplicates.
func optionalFieldCount(rec *models.JobRecord) int {
	n := 0
	for _, present := range []bool{
		rec.DirectApplyURL != nil,
		rec.CompanyURL != nil,
		rec.CompanyLogo != nil,
		rec.CompanySize != nil,
		rec.CompanyIndustry != nil,
		rec.Location.City != nil,
		rec.Location.State != nil,
		rec.Location.Country != nil,
		rec.PostedAt != nil,
		rec.Description != nil,
		rec.JobType != nil,
		rec.Seniority != nil,
		rec.Compensation != nil,
		len(rec.Skills) > 0,
		len(rec.Benefits) > 0,
		rec.ListingKind != nil,
	} {
		if present {
			n++
		}
	}
	return n
}

// optionalFieldTotal is the denominator for completeness scoring.
const optionalFieldTotal = 16

// backfill copies every optional field the base record is missing from the
// donor. The base's own values always win; only gaps are filled.
func backfill(base, donor *models.JobRecord) {
	if base.DirectApplyURL == nil {
		base.DirectApplyURL = donor.DirectApplyURL
	}
	if base.CompanyURL == nil {
		base.CompanyURL = donor.CompanyURL
	}
	if base.CompanyLogo == nil {
		base.CompanyLogo = donor.CompanyLogo
	}
	if base.CompanySize == nil {
		base.CompanySize = donor.CompanySize
	}
	if base.CompanyIndustry == nil {
		base.CompanyIndustry = donor.CompanyIndustry
	}
	if base.Location.City == nil {
		base.Location.City = donor.Location.City
	}
	if base.Location.State == nil {
		base.Location.State = donor.Location.State
	}
	if base.Location.Country == nil {
		base.Location.Country = donor.Location.Country
	}
	if donor.Location.IsRemote {
		base.Location.IsRemote = true
	}
	if base.PostedAt == nil {
		base.PostedAt = donor.PostedAt
	}
	if base.Description == nil && donor.Description != nil {
		base.Description = donor.Description
		base.DescriptionFormat = donor.DescriptionFormat
	}
	if base.JobType == nil {
		base.JobType = donor.JobType
	}
	if base.Seniority == nil {
		base.Seniority = donor.Seniority
	}
	if base.Compensation == nil {
		base.Compensation = donor.Compensation
	}
	if len(base.Skills) == 0 {
		base.Skills = donor.Skills
	}
	if len(base.Benefits) == 0 {
		base.Benefits = donor.Benefits
	}
	if base.ListingKind == nil {
		base.ListingKind = donor.ListingKind
	}
}
