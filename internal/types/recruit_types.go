package types

// RiskLevel 诚信风险等级
type RiskLevel string

const (
	// RiskLevelLow 低风险
	RiskLevelLow RiskLevel = "low"
	// RiskLevelMedium 中风险
	RiskLevelMedium RiskLevel = "medium"
	// RiskLevelHigh 高风险
	RiskLevelHigh RiskLevel = "high"
)

// Recommendation 诚信检查建议
type Recommendation string

const (
	// RecommendationProceed 建议继续流程
	RecommendationProceed Recommendation = "proceed"
	// RecommendationReview 建议人工复核
	RecommendationReview Recommendation = "review"
	// RecommendationBlock 建议阻止
	RecommendationBlock Recommendation = "block"
)

// Outcome 最终决策结果
type Outcome string

const (
	// OutcomeApprove 通过
	OutcomeApprove Outcome = "approve"
	// OutcomeReject 拒绝
	OutcomeReject Outcome = "reject"
	// OutcomeReview 留给人工判断
	OutcomeReview Outcome = "review"
)

// JobDescription 岗位描述，由JD创建代理产出
// 已存在时不会重复创建，仅在用户明确要求时更新
type JobDescription struct {
	Title            string   `json:"title"`
	Responsibilities []string `json:"responsibilities"`
	Requirements     []string `json:"requirements"`
	Qualifications   []string `json:"qualifications"`
	SalaryRange      string   `json:"salary_range"`
}

// StructuredResume 结构化简历，每次筛选流程产出一次，产出后不可变
// 缺失字段约定：字符串/切片为null，数字为0
type StructuredResume struct {
	Name              string   `json:"name"`
	Phone             string   `json:"phone"`
	Email             string   `json:"email"`
	Location          string   `json:"location"`
	YearsOfExperience float64  `json:"years_of_experience"`
	Education         []string `json:"education"`
	WorkExperience    []string `json:"work_experience"`
	Skills            []string `json:"skills"`
	Summary           string   `json:"summary"`
}

// MatchResult 候选人与岗位的匹配评估结果
type MatchResult struct {
	// 匹配分数 (0-100)
	MatchScore int `json:"match_score"`

	// 评分理由
	Reason string `json:"reason"`

	// 是否建议进入下一环节
	RecommendProceed bool `json:"recommend_proceed"`
}

// IntegrityReport 简历诚信检查报告
type IntegrityReport struct {
	// 诚信分数 (0-100, 越高越可信)
	IntegrityScore int `json:"integrity_score"`

	// 风险等级
	RiskLevel RiskLevel `json:"risk_level"`

	// 发现的具体疑点
	Flags []string `json:"flags"`

	// 处理建议
	Recommendation Recommendation `json:"recommendation"`
}

// BiasReport 评估流程的偏见审查报告
type BiasReport struct {
	// 偏见分数 (0.0-1.0, 越高偏见越重)
	BiasScore float64 `json:"bias_score"`

	// 检测到的具体偏见
	DetectedBiases []string `json:"detected_biases"`

	// 是否需要人工复核
	RequiresHumanReview bool `json:"requires_human_review"`
}

// FinalDecision 聚合三份报告后的最终决策
type FinalDecision struct {
	Outcome   Outcome          `json:"outcome"`
	Rationale string           `json:"rationale"`
	Match     *MatchResult     `json:"match,omitempty"`
	Integrity *IntegrityReport `json:"integrity,omitempty"`
	Bias      *BiasReport      `json:"bias,omitempty"`
}

// ApprovalRecord 人工审批门的固定返回结构
type ApprovalRecord struct {
	Status  string `json:"status"` // approved 或 rejected
	Message string `json:"message"`
}
