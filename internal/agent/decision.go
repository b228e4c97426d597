package agent

import (
	"fmt"
	"strings"

	"recruit-agent-go/internal/types"
)

// DecideOutcome 根据三份报告计算推荐结论。
// 规则按顺序评估，先命中者生效：
//  1. 诚信风险为 high 或偏见审查要求人工复核 → review（风险高时直接 reject）
//  2. 匹配分 < 50 → reject
//  3. 匹配分 >= 70 且诚信可接受（建议为 proceed）→ approve
//  4. 其余情况 → review，交由人工判断
func DecideOutcome(match *types.MatchResult, integrity *types.IntegrityReport, bias *types.BiasReport) (types.Outcome, string) {
	var reasons []string

	if integrity != nil && integrity.RiskLevel == types.RiskLevelHigh {
		reasons = append(reasons, fmt.Sprintf("诚信检查为高风险（分数 %d）", integrity.IntegrityScore))
		return types.OutcomeReject, strings.Join(reasons, "；")
	}
	if bias != nil && bias.RequiresHumanReview {
		reasons = append(reasons, fmt.Sprintf("偏见审查要求人工复核（偏见分数 %.2f）", bias.BiasScore))
		return types.OutcomeReview, strings.Join(reasons, "；")
	}

	if match != nil && match.MatchScore < 50 {
		reasons = append(reasons, fmt.Sprintf("匹配分数 %d 低于 50", match.MatchScore))
		return types.OutcomeReject, strings.Join(reasons, "；")
	}

	if match != nil && match.MatchScore >= 70 &&
		(integrity == nil || integrity.Recommendation == types.RecommendationProceed) {
		reasons = append(reasons, fmt.Sprintf("匹配分数 %d 达标且诚信检查通过", match.MatchScore))
		return types.OutcomeApprove, strings.Join(reasons, "；")
	}

	reasons = append(reasons, "评估结果处于灰色地带，需要人工判断")
	return types.OutcomeReview, strings.Join(reasons, "；")
}
