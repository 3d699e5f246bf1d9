package merge

import "github.com/ternarybob/indago/pkg/models"

const (
	completenessWeight = 0.4
	reliabilityWeight  = 0.3
	salaryWeight       = 0.2
	descriptionWeight  = 0.1

	// minDescriptionChars is the extracted-text length at which a
	// description counts as substantive.
	minDescriptionChars = 200
)

// qualityScore rates one merged record in [0,1] from its field completeness,
// the producing agent's reliability, and the two signals users filter on
// hardest: a posted salary and a real description.
func qualityScore(rec *models.JobRecord, reliability float64, descLen int) float64 {
	completeness := float64(optionalFieldCount(rec)) / optionalFieldTotal

	hasSalary := 0.0
	if rec.HasSalary() {
		hasSalary = 1.0
	}

	hasDescription := 0.0
	if descLen >= minDescriptionChars {
		hasDescription = 1.0
	}

	score := completenessWeight*completeness +
		reliabilityWeight*reliability +
		salaryWeight*hasSalary +
		descriptionWeight*hasDescription

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
