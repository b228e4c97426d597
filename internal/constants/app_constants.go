package constants

import "time"

const (
	// AppName 会话/记忆服务使用的应用维度键
	AppName = "recruitment_agents"

	// DefaultUserID 请求未携带user_id时使用的默认用户
	DefaultUserID = "default_user"

	// DefaultMaxInputLength 输入护栏的默认长度阈值（字符数）
	DefaultMaxInputLength = 5000

	// ChatMemoryTTL 会话聊天记录在Redis中的保留时间
	ChatMemoryTTL = 24 * time.Hour

	// LongTermMemoryMaxRecords 每个用户长期记忆保留的最大条数
	LongTermMemoryMaxRecords = 200
)

// 代理输出键。会话状态中同一键下最新值生效。
const (
	OutputKeyJobDetails       = "job_details"
	OutputKeyStructuredResume = "structured_resume"
	OutputKeyMatchingResult   = "matching_result"
	OutputKeyIntegrityReport  = "integrity_report"
	OutputKeyBiasReport       = "bias_report"
	OutputKeyFinalDecision    = "final_decision"
	OutputKeySummary          = "user_friendly_summary"
	OutputKeyRoutingDecision  = "routing_decision"
)
