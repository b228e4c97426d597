package agent

import (
	"testing"

	"recruit-agent-go/internal/types"

	"github.com/stretchr/testify/assert"
)

func TestDecideOutcomeHighRiskRejects(t *testing.T) {
	match := &types.MatchResult{MatchScore: 95, RecommendProceed: true}
	integrity := &types.IntegrityReport{IntegrityScore: 20, RiskLevel: types.RiskLevelHigh, Recommendation: types.RecommendationBlock}
	bias := &types.BiasReport{BiasScore: 0.0}

	outcome, rationale := DecideOutcome(match, integrity, bias)
	assert.Equal(t, types.OutcomeReject, outcome, "高风险诚信报告优先于高匹配分")
	assert.NotEmpty(t, rationale)
}

func TestDecideOutcomeBiasReviewWins(t *testing.T) {
	match := &types.MatchResult{MatchScore: 90, RecommendProceed: true}
	integrity := &types.IntegrityReport{IntegrityScore: 95, RiskLevel: types.RiskLevelLow, Recommendation: types.RecommendationProceed}
	bias := &types.BiasReport{BiasScore: 0.7, RequiresHumanReview: true}

	outcome, _ := DecideOutcome(match, integrity, bias)
	assert.Equal(t, types.OutcomeReview, outcome, "偏见审查要求复核时不得自动通过")
}

func TestDecideOutcomeLowMatchRejects(t *testing.T) {
	match := &types.MatchResult{MatchScore: 49}
	integrity := &types.IntegrityReport{IntegrityScore: 90, RiskLevel: types.RiskLevelLow, Recommendation: types.RecommendationProceed}
	bias := &types.BiasReport{BiasScore: 0.1}

	outcome, _ := DecideOutcome(match, integrity, bias)
	assert.Equal(t, types.OutcomeReject, outcome)
}

func TestDecideOutcomeApprove(t *testing.T) {
	match := &types.MatchResult{MatchScore: 70, RecommendProceed: true}
	integrity := &types.IntegrityReport{IntegrityScore: 85, RiskLevel: types.RiskLevelLow, Recommendation: types.RecommendationProceed}
	bias := &types.BiasReport{BiasScore: 0.05}

	outcome, _ := DecideOutcome(match, integrity, bias)
	assert.Equal(t, types.OutcomeApprove, outcome, "70分是通过的下界")
}

func TestDecideOutcomeGrayZoneGoesToReview(t *testing.T) {
	tests := []struct {
		name      string
		match     *types.MatchResult
		integrity *types.IntegrityReport
	}{
		{
			"匹配分在50-69之间",
			&types.MatchResult{MatchScore: 60},
			&types.IntegrityReport{RiskLevel: types.RiskLevelLow, Recommendation: types.RecommendationProceed},
		},
		{
			"高匹配分但诚信建议复核",
			&types.MatchResult{MatchScore: 85},
			&types.IntegrityReport{RiskLevel: types.RiskLevelMedium, Recommendation: types.RecommendationReview},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, _ := DecideOutcome(tt.match, tt.integrity, &types.BiasReport{})
			assert.Equal(t, types.OutcomeReview, outcome)
		})
	}
}

func TestDecideOutcomeNilReports(t *testing.T) {
	// 报告缺失时不应panic，落到人工判断
	outcome, _ := DecideOutcome(nil, nil, nil)
	assert.Equal(t, types.OutcomeReview, outcome)
}
