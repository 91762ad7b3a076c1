// Package scorer maps a candidate's accumulated evidence onto a confidence
// tier. The mapping is a declared rule table evaluated top-down, first match
// wins; adding a tag or tier is a one-place change. Scoring feeds directly
// into the ranking users see, so this is deliberately the most rigid code in
// the pipeline.
package scorer

import "github.com/rydeebs/findb2b/internal/models"

// rule fires when ALL tags of ANY of its groups are present.
type rule struct {
	tier  models.ConfidenceTier
	anyOf [][]models.EvidenceTag
}

var rules = []rule{
	{
		tier: models.ConfidenceVeryHigh,
		anyOf: [][]models.EvidenceTag{
			{models.EvidenceSiteRestrictedHit},
			{models.EvidenceBrandSiteLink, models.EvidenceWhereToBuyMention},
			{models.EvidenceShoppingResult, models.EvidenceTitleBrandMatch},
			{models.EvidenceShoppingResult, models.EvidenceWhereToBuyMention},
		},
	},
	{
		tier: models.ConfidenceHigh,
		anyOf: [][]models.EvidenceTag{
			{models.EvidenceWhereToBuyMention},
			{models.EvidenceBrandSiteLink},
			{models.EvidenceShoppingResult},
		},
	},
	{
		tier: models.ConfidenceMedium,
		anyOf: [][]models.EvidenceTag{
			{models.EvidenceGenericBuySignal},
			{models.EvidenceKnownRetailer},
		},
	},
}

// Score returns the confidence tier for an evidence set. Pure function:
// same set, same tier. Candidates whose evidence matches no rule earned only
// the extractor's relevance gate and score Low.
func Score(evidence models.EvidenceSet) models.ConfidenceTier {
	for _, r := range rules {
		for _, group := range r.anyOf {
			if hasAll(evidence, group) {
				return r.tier
			}
		}
	}
	return models.ConfidenceLow
}

func hasAll(evidence models.EvidenceSet, tags []models.EvidenceTag) bool {
	for _, t := range tags {
		if !evidence.Has(t) {
			return false
		}
	}
	return true
}
