package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"recruit-agent-go/internal/constants"
	"recruit-agent-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRunner 构建全内存依赖的运行器
func newTestRunner(t *testing.T, mock *MockChatClient) (*Runner, SessionService) {
	t.Helper()
	sessions := NewInMemorySessionService()
	runner, err := NewRunner(mock, sessions, NewInMemoryMemoryService(), NewInMemoryChatMemory())
	require.NoError(t, err)
	return runner, sessions
}

const testUserID = "default_user"

func screeningMockResponses() []MockResponse {
	return []MockResponse{
		{Content: `{"route": "screen_resume", "reason": "resume text detected"}`},
		{Content: `{"name": "Jane Smith", "phone": "555-123-4567", "email": "jane.smith@example.com", "location": "Austin", "years_of_experience": 5, "education": ["BS Computer Science"], "work_experience": ["Software Engineer at Acme Corp"], "skills": ["Go", "Python"], "summary": "Experienced backend engineer"}`},
		{Content: `{"match_score": 85, "reason": "strong skills overlap", "recommend_proceed": true}`},
		{Content: `{"integrity_score": 90, "risk_level": "low", "flags": [], "recommendation": "proceed"}`},
		{Content: `{"bias_score": 0.0, "detected_biases": [], "requires_human_review": false}`},
		{Content: "Jane Smith scores 85 with a clean integrity report. Recommend moving forward."},
	}
}

func TestRunnerScreeningPipeline(t *testing.T) {
	mock := NewMockChatClientSequential(screeningMockResponses())
	runner, sessions := newTestRunner(t, mock)

	events, err := runner.Run(context.Background(), testUserID, "sess-screen", sampleResume)
	require.NoError(t, err)
	require.NotEmpty(t, events)

	// 流水线应按序调用：路由 + 四个阶段 + 终裁叙述
	assert.Equal(t, 6, mock.CallCount)

	// 最终文本是终裁叙述 + 审批提示
	finalText := LastText(events)
	assert.Contains(t, finalText, "Jane Smith scores 85")
	assert.Contains(t, finalText, "approve")

	// 会话状态应包含全部阶段产出并挂起审批
	session, err := sessions.GetSession(context.Background(), constants.AppName, testUserID, "sess-screen")
	require.NoError(t, err)
	for _, key := range []string{
		constants.OutputKeyStructuredResume,
		constants.OutputKeyMatchingResult,
		constants.OutputKeyIntegrityReport,
		constants.OutputKeyBiasReport,
		constants.OutputKeyFinalDecision,
	} {
		assert.True(t, session.HasState(key), "缺少状态键 %s", key)
	}
	require.NotNil(t, session.PendingApproval)
	assert.Equal(t, ApprovalGateCandidate, session.PendingApproval.Gate)

	var decision types.FinalDecision
	ok, err := session.GetState(constants.OutputKeyFinalDecision, &decision)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, types.OutcomeApprove, decision.Outcome, "85分+低风险应推荐通过")
}

func TestRunnerCandidateApprovalFlow(t *testing.T) {
	responses := append(screeningMockResponses(),
		MockResponse{Content: "Summary: Jane Smith is approved for interview. Next step: schedule a call."},
	)
	mock := NewMockChatClientSequential(responses)
	runner, sessions := newTestRunner(t, mock)

	_, err := runner.Run(context.Background(), testUserID, "sess-approve", sampleResume)
	require.NoError(t, err)

	// 审批人确认后：总结智能体生成最终呈现
	events, err := runner.Run(context.Background(), testUserID, "sess-approve", "approve")
	require.NoError(t, err)
	finalText := LastText(events)
	assert.Contains(t, finalText, "Summary: Jane Smith")

	session, err := sessions.GetSession(context.Background(), constants.AppName, testUserID, "sess-approve")
	require.NoError(t, err)
	assert.Nil(t, session.PendingApproval, "审批落定后不应再挂起")
	assert.True(t, session.HasState(constants.OutputKeySummary))

	var decision types.FinalDecision
	_, err = session.GetState(constants.OutputKeyFinalDecision, &decision)
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeApprove, decision.Outcome)
}

func TestRunnerCandidateRejectionOverridesRecommendation(t *testing.T) {
	responses := append(screeningMockResponses(),
		MockResponse{Content: "Summary: the candidate was rejected by the reviewer."},
	)
	mock := NewMockChatClientSequential(responses)
	runner, sessions := newTestRunner(t, mock)

	_, err := runner.Run(context.Background(), testUserID, "sess-reject", sampleResume)
	require.NoError(t, err)

	// 推荐是approve，但人工驳回后结论必须是reject
	_, err = runner.Run(context.Background(), testUserID, "sess-reject", "reject")
	require.NoError(t, err)

	session, err := sessions.GetSession(context.Background(), constants.AppName, testUserID, "sess-reject")
	require.NoError(t, err)

	var decision types.FinalDecision
	_, err = session.GetState(constants.OutputKeyFinalDecision, &decision)
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeReject, decision.Outcome, "人工决定覆盖推荐结论")
}

func TestRunnerJDCreationFlow(t *testing.T) {
	mock := NewMockChatClientSequential([]MockResponse{
		{Content: `{"route": "create_jd", "reason": "hiring intent"}`},
		{Content: "# Senior Go Engineer\nResponsibilities: build services.\nSalary: competitive."},
	})
	runner, sessions := newTestRunner(t, mock)

	events, err := runner.Run(context.Background(), testUserID, "sess-jd", "I want to hire a senior Go engineer")
	require.NoError(t, err)

	finalText := LastText(events)
	assert.Contains(t, finalText, "Senior Go Engineer")
	assert.Contains(t, finalText, "approve")

	session, err := sessions.GetSession(context.Background(), constants.AppName, testUserID, "sess-jd")
	require.NoError(t, err)
	require.NotNil(t, session.PendingApproval)
	assert.Equal(t, ApprovalGateJobDescription, session.PendingApproval.Gate)
	assert.True(t, session.HasState(constants.OutputKeyJobDetails))
}

func TestRunnerJDRejectionDiscardsDraft(t *testing.T) {
	mock := NewMockChatClientSequential([]MockResponse{
		{Content: `{"route": "create_jd", "reason": "hiring intent"}`},
		{Content: "# Draft JD"},
	})
	runner, sessions := newTestRunner(t, mock)

	_, err := runner.Run(context.Background(), testUserID, "sess-jd-reject", "I want to hire a designer")
	require.NoError(t, err)

	events, err := runner.Run(context.Background(), testUserID, "sess-jd-reject", "reject")
	require.NoError(t, err)
	assert.Contains(t, LastText(events), "feedback")

	session, err := sessions.GetSession(context.Background(), constants.AppName, testUserID, "sess-jd-reject")
	require.NoError(t, err)
	assert.Nil(t, session.PendingApproval)
	assert.False(t, session.HasState(constants.OutputKeyJobDetails), "被驳回的草稿应移除")
}

func TestRunnerUnclearApprovalKeepsPending(t *testing.T) {
	mock := NewMockChatClientSequential([]MockResponse{
		{Content: `{"route": "create_jd", "reason": "hiring intent"}`},
		{Content: "# Draft JD"},
	})
	runner, sessions := newTestRunner(t, mock)

	_, err := runner.Run(context.Background(), testUserID, "sess-pending", "I want to hire a designer")
	require.NoError(t, err)
	callsAfterFirstTurn := mock.CallCount

	events, err := runner.Run(context.Background(), testUserID, "sess-pending", "tell me more about it")
	require.NoError(t, err)

	assert.Equal(t, callsAfterFirstTurn, mock.CallCount, "未决回复不应触发模型调用")
	assert.Contains(t, strings.ToLower(LastText(events)), "approve")

	session, err := sessions.GetSession(context.Background(), constants.AppName, testUserID, "sess-pending")
	require.NoError(t, err)
	assert.NotNil(t, session.PendingApproval, "未决回复后会话应保持挂起")
}

func TestRunnerRouterFallbackToHeuristic(t *testing.T) {
	mock := NewMockChatClientSequential([]MockResponse{
		{Error: errors.New("model unavailable")},
		{Content: "Hello! I can help with job descriptions and resume screening."},
	})
	runner, _ := newTestRunner(t, mock)

	// 路由模型失败时降级到启发式：问候走闲聊
	events, err := runner.Run(context.Background(), testUserID, "sess-fallback", "Hello, what can you do?")
	require.NoError(t, err)
	assert.Contains(t, LastText(events), "Hello!")
}

func TestRunnerRouterReplyShortCircuitsConverse(t *testing.T) {
	mock := NewMockChatClientSequential([]MockResponse{
		{Content: `{"route": "converse", "reason": "greeting", "reply": "Hi! Ask me to create a JD or screen a resume."}`},
	})
	runner, _ := newTestRunner(t, mock)

	events, err := runner.Run(context.Background(), testUserID, "sess-converse", "hi")
	require.NoError(t, err)
	assert.Equal(t, 1, mock.CallCount, "路由已给出回复时不应再调用模型")
	assert.Contains(t, LastText(events), "Hi!")
}

func TestRunnerSummarizeWithoutEvaluation(t *testing.T) {
	mock := NewMockChatClientSequential([]MockResponse{
		{Content: `{"route": "summarize", "reason": "summary request"}`},
	})
	runner, _ := newTestRunner(t, mock)

	events, err := runner.Run(context.Background(), testUserID, "sess-nosummary", "summarize the results")
	require.NoError(t, err)
	assert.Contains(t, LastText(events), "no completed candidate evaluation")
}

func TestRunnerScreeningFailureKeepsPartialState(t *testing.T) {
	// 抽取成功、匹配失败：已完成阶段的产出应保留在会话中
	mock := NewMockChatClientSequential([]MockResponse{
		{Content: `{"route": "screen_resume", "reason": "resume"}`},
		{Content: `{"name": "Jane Smith", "years_of_experience": 5, "skills": ["Go"]}`},
		{Error: errors.New("model unavailable")},
	})
	runner, sessions := newTestRunner(t, mock)

	_, err := runner.Run(context.Background(), testUserID, "sess-partial", sampleResume)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "人岗匹配评估失败")

	session, err := sessions.GetSession(context.Background(), constants.AppName, testUserID, "sess-partial")
	require.NoError(t, err)
	assert.True(t, session.HasState(constants.OutputKeyStructuredResume))
	assert.False(t, session.HasState(constants.OutputKeyMatchingResult))
}

func TestRunnerScreeningStageFailure(t *testing.T) {
	mock := NewMockChatClientSequential([]MockResponse{
		{Content: `{"route": "screen_resume", "reason": "resume"}`},
		{Content: "this is not json at all"},
	})
	runner, _ := newTestRunner(t, mock)

	_, err := runner.Run(context.Background(), testUserID, "sess-fail", sampleResume)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "简历结构化抽取失败")
}

func TestParseApprovalDecision(t *testing.T) {
	tests := []struct {
		message     string
		wantDecided bool
		wantApprove bool
	}{
		{"approve", true, true},
		{"Approved!", true, true},
		{"yes", true, true},
		{"同意", true, true},
		{"通过", true, true},
		{"reject", true, false},
		{"no", true, false},
		{"拒绝", true, false},
		{"不同意", true, false},
		{"不通过", true, false},
		{"not approve", true, false},
		{"I don't want to approve", true, false},
		{"do not approve this candidate", true, false},
		{"we cannot approve", true, false},
		{"tell me more", false, false},
		{"", false, false},
	}
	for _, tt := range tests {
		decided, approve := parseApprovalDecision(tt.message)
		assert.Equal(t, tt.wantDecided, decided, "message=%q", tt.message)
		if decided {
			assert.Equal(t, tt.wantApprove, approve, "message=%q", tt.message)
		}
	}
}
