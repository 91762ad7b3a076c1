package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rydeebs/findb2b/internal/models"
)

func TestScoreRuleTable(t *testing.T) {
	cases := []struct {
		name string
		tags []models.EvidenceTag
		want models.ConfidenceTier
	}{
		{"site-restricted hit alone", []models.EvidenceTag{models.EvidenceSiteRestrictedHit}, models.ConfidenceVeryHigh},
		{"direct link on where-to-buy page", []models.EvidenceTag{models.EvidenceBrandSiteLink, models.EvidenceWhereToBuyMention}, models.ConfidenceVeryHigh},
		{"shopping result with title match", []models.EvidenceTag{models.EvidenceShoppingResult, models.EvidenceTitleBrandMatch}, models.ConfidenceVeryHigh},
		{"where-to-buy mention alone", []models.EvidenceTag{models.EvidenceWhereToBuyMention}, models.ConfidenceHigh},
		{"brand site link alone", []models.EvidenceTag{models.EvidenceBrandSiteLink}, models.ConfidenceHigh},
		{"shopping result alone", []models.EvidenceTag{models.EvidenceShoppingResult}, models.ConfidenceHigh},
		{"generic buy signal", []models.EvidenceTag{models.EvidenceGenericBuySignal}, models.ConfidenceMedium},
		{"known retailer name alone", []models.EvidenceTag{models.EvidenceKnownRetailer}, models.ConfidenceMedium},
		{"no evidence", nil, models.ConfidenceLow},
		{"title match alone", []models.EvidenceTag{models.EvidenceTitleBrandMatch}, models.ConfidenceLow},
		// union from two independent sources corroborates to the top tier
		{"shopping plus page mention", []models.EvidenceTag{models.EvidenceShoppingResult, models.EvidenceWhereToBuyMention}, models.ConfidenceVeryHigh},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Score(models.NewEvidence(tc.tags...)))
		})
	}
}

func TestScoreIsPure(t *testing.T) {
	ev := models.NewEvidence(models.EvidenceShoppingResult, models.EvidenceTitleBrandMatch)
	assert.Equal(t, Score(ev), Score(ev))
}

// Adding a site-restricted hit can only raise or hold the tier, never lower it.
func TestSiteRestrictedHitIsMonotone(t *testing.T) {
	bases := [][]models.EvidenceTag{
		nil,
		{models.EvidenceKnownRetailer},
		{models.EvidenceGenericBuySignal},
		{models.EvidenceShoppingResult},
		{models.EvidenceWhereToBuyMention, models.EvidenceBrandSiteLink},
		{models.EvidenceShoppingResult, models.EvidenceTitleBrandMatch},
	}
	for _, base := range bases {
		before := Score(models.NewEvidence(base...))
		withHit := append([]models.EvidenceTag{models.EvidenceSiteRestrictedHit}, base...)
		after := Score(models.NewEvidence(withHit...))
		assert.GreaterOrEqual(t, after.Rank(), before.Rank(), "base %v", base)
	}
}
