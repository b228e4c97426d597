package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"recruit-agent-go/internal/config"
	"recruit-agent-go/internal/constants"
	"recruit-agent-go/internal/logger"
	"recruit-agent-go/internal/storage"
	"recruit-agent-go/internal/storage/models"
	"recruit-agent-go/internal/tracing"
	"recruit-agent-go/internal/types"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// EventType 事件类型
type EventType string

const (
	// EventTypeText 面向用户的文本输出
	EventTypeText EventType = "text"
	// EventTypeState 状态更新（某个输出键被写入）
	EventTypeState EventType = "state"
	// EventTypePendingApproval 会话被挂起等待人工审批
	EventTypePendingApproval EventType = "pending_approval"
)

// Event 是一次运行过程中产生的单个事件。
// 对外回复取最后一个携带文本的事件。
type Event struct {
	Agent     string    `json:"agent"`
	Type      EventType `json:"type"`
	Text      string    `json:"text,omitempty"`
	OutputKey string    `json:"output_key,omitempty"`
}

// MemorySaveEvent 是记忆持久化事件的消息体，经 outbox 投递到消息队列。
type MemorySaveEvent struct {
	AppName string       `json:"app_name"`
	UserID  string       `json:"user_id"`
	Record  MemoryRecord `json:"record"`
}

// EventTypeMemorySave outbox 中记忆持久化事件的类型标识
const EventTypeMemorySave = "memory.save.requested"

// Runner 驱动一轮对话：路由、分派专业智能体、处理审批挂起、落库。
type Runner struct {
	model      model.ToolCallingChatModel
	sessions   SessionService
	memory     MemoryService
	chatMemory ChatMemory

	// 可选依赖，为nil时相关能力降级
	mysql     *storage.MySQL
	minio     *storage.MinIO
	rabbitCfg *config.RabbitMQConfig

	approveTool   *ApprovalTool
	approveJDTool *ApprovalTool
	tracer        trace.Tracer
}

// RunnerOption 配置 Runner 的可选依赖
type RunnerOption func(*Runner)

// WithMySQL 启用评估审计与outbox写入
func WithMySQL(mysql *storage.MySQL) RunnerOption {
	return func(r *Runner) { r.mysql = mysql }
}

// WithMinIO 启用会话产物归档
func WithMinIO(minio *storage.MinIO) RunnerOption {
	return func(r *Runner) { r.minio = minio }
}

// WithRabbitMQConfig 启用经outbox的记忆持久化事件投递
func WithRabbitMQConfig(cfg *config.RabbitMQConfig) RunnerOption {
	return func(r *Runner) { r.rabbitCfg = cfg }
}

// NewRunner 创建运行器。model、sessions、memory、chatMemory 为必需依赖。
func NewRunner(chatModel model.ToolCallingChatModel, sessions SessionService, memory MemoryService, chatMemory ChatMemory, opts ...RunnerOption) (*Runner, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("聊天模型不能为空")
	}
	if sessions == nil {
		return nil, fmt.Errorf("会话服务不能为空")
	}
	if memory == nil {
		return nil, fmt.Errorf("记忆服务不能为空")
	}
	if chatMemory == nil {
		return nil, fmt.Errorf("聊天记忆不能为空")
	}

	r := &Runner{
		model:         chatModel,
		sessions:      sessions,
		memory:        memory,
		chatMemory:    chatMemory,
		approveTool:   NewHumanApproveTool(),
		approveJDTool: NewHumanApproveJDTool(),
		tracer:        otel.Tracer("agent-runner"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run 处理一条用户消息，返回本轮产生的全部事件。
func (r *Runner) Run(ctx context.Context, userID, sessionID, message string) ([]Event, error) {
	ctx, span := r.tracer.Start(ctx, "runner.Run",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("user.id", tracing.MaskValue(userID)),
			attribute.String("message.preview", tracing.SafeMessageContent(message)),
		),
	)
	defer span.End()

	session, err := r.ensureSession(ctx, userID, sessionID)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return nil, err
	}

	if err := r.chatMemory.AddMessage(sessionID, schema.UserMessage(message)); err != nil {
		// 聊天记录写入失败不中断本轮，后续轮次历史会缺一条
		logger.Warn().Err(err).Str("session_id", sessionID).Msg("写入用户消息到聊天记忆失败")
	}

	var events []Event
	if session.PendingApproval != nil {
		events, err = r.resolveApproval(ctx, session, message)
	} else {
		events, err = r.dispatch(ctx, session, message)
	}
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeModel)
		// 失败前已完成阶段的产出仍写回会话，便于排查与续跑
		if saveErr := r.sessions.SaveSession(ctx, session); saveErr != nil {
			logger.Warn().Err(saveErr).Str("session_id", sessionID).Msg("失败轮次的会话保存失败")
		}
		return nil, err
	}

	finalText := LastText(events)
	if finalText != "" {
		if err := r.chatMemory.AddMessage(sessionID, schema.AssistantMessage(finalText, nil)); err != nil {
			logger.Warn().Err(err).Str("session_id", sessionID).Msg("写入助手消息到聊天记忆失败")
		}
	}

	if err := r.sessions.SaveSession(ctx, session); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return nil, fmt.Errorf("保存会话失败: %w", err)
	}

	// 记忆持久化在请求路径之外完成，失败不影响本轮回复
	r.queueMemorySave(ctx, session, finalText)

	return events, nil
}

// ensureSession 获取会话，不存在则创建
func (r *Runner) ensureSession(ctx context.Context, userID, sessionID string) (*Session, error) {
	session, err := r.sessions.GetSession(ctx, constants.AppName, userID, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return r.sessions.CreateSession(ctx, constants.AppName, userID, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("获取会话失败: %w", err)
	}
	return session, nil
}

// LastText 返回事件序列中最后一个非空文本，作为对外回复
func LastText(events []Event) string {
	for i := len(events) - 1; i >= 0; i-- {
		if strings.TrimSpace(events[i].Text) != "" {
			return events[i].Text
		}
	}
	return ""
}

// --- 路由与分派 ---

// dispatch 决定本轮走哪个专业流程
func (r *Runner) dispatch(ctx context.Context, session *Session, message string) ([]Event, error) {
	decision := r.route(ctx, session, message)

	events := []Event{{
		Agent:     AgentNameRouter,
		Type:      EventTypeState,
		OutputKey: constants.OutputKeyRoutingDecision,
	}}
	if err := session.SetState(constants.OutputKeyRoutingDecision, decision); err != nil {
		return nil, err
	}

	var (
		subEvents []Event
		err       error
	)
	switch decision.Route {
	case RouteCreateJD:
		subEvents, err = r.runJDCreation(ctx, session, message)
	case RouteScreenResume:
		subEvents, err = r.runScreening(ctx, session, message)
	case RouteSummarize:
		subEvents, err = r.runSummarize(ctx, session)
	default:
		subEvents, err = r.runConverse(ctx, session, message, decision.Reply)
	}
	if err != nil {
		return nil, err
	}
	return append(events, subEvents...), nil
}

// route 请求模型给出路由决定，失败时降级到启发式规则
func (r *Runner) route(ctx context.Context, session *Session, message string) RoutingDecision {
	ctx, span := r.tracer.Start(ctx, "runner.Route")
	defer span.End()

	messages := []*schema.Message{
		schema.SystemMessage(RouterDefinition.Instruction),
	}
	if memCtx := r.loadMemoryContext(ctx, session, message); memCtx != "" {
		messages = append(messages, schema.SystemMessage("Relevant memory from previous sessions:\n"+memCtx))
	}
	if stateCtx := sessionStateDigest(session); stateCtx != "" {
		messages = append(messages, schema.SystemMessage("Current session state:\n"+stateCtx))
	}
	messages = append(messages, schema.UserMessage(message))

	resp, err := r.model.Generate(ctx, messages)
	if err != nil {
		logger.Warn().Err(err).Msg("路由模型调用失败，降级到启发式路由")
		span.SetAttributes(attribute.Bool("routing.fallback", true))
		return RoutingDecision{Route: HeuristicRoute(message), Reason: "heuristic fallback"}
	}

	var decision RoutingDecision
	if err := ParseModelJSON(resp.Content, &decision); err != nil || !isValidRoute(decision.Route) {
		logger.Warn().Err(err).Str("content", tracing.TruncateString(resp.Content, 200)).
			Msg("路由决定无法解析，降级到启发式路由")
		span.SetAttributes(attribute.Bool("routing.fallback", true))
		return RoutingDecision{Route: HeuristicRoute(message), Reason: "heuristic fallback"}
	}

	span.SetAttributes(attribute.String("routing.route", decision.Route))
	return decision
}

func isValidRoute(route string) bool {
	switch route {
	case RouteCreateJD, RouteScreenResume, RouteSummarize, RouteConverse:
		return true
	}
	return false
}

// loadMemoryContext 召回相关长期记忆，拼成上下文文本
func (r *Runner) loadMemoryContext(ctx context.Context, session *Session, query string) string {
	records, err := r.memory.LoadRelevantMemory(ctx, session.AppName, session.UserID, query, 5)
	if err != nil {
		logger.Warn().Err(err).Msg("召回长期记忆失败")
		return ""
	}
	if len(records) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, rec := range records {
		sb.WriteString("- ")
		sb.WriteString(rec.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}

// sessionStateDigest 生成会话状态摘要，告知路由当前进展
func sessionStateDigest(session *Session) string {
	var parts []string
	for _, key := range []string{
		constants.OutputKeyJobDetails,
		constants.OutputKeyStructuredResume,
		constants.OutputKeyFinalDecision,
		constants.OutputKeySummary,
	} {
		if session.HasState(key) {
			parts = append(parts, key+": present")
		}
	}
	return strings.Join(parts, "\n")
}

// --- JD 创建 ---

// runJDCreation 起草职位描述并挂起等待人工审批
func (r *Runner) runJDCreation(ctx context.Context, session *Session, message string) ([]Event, error) {
	ctx, span := r.tracer.Start(ctx, "runner.JDCreation")
	defer span.End()

	messages := []*schema.Message{
		schema.SystemMessage(JDCreatorDefinition.Instruction),
	}
	var existingJD string
	if ok, _ := session.GetState(constants.OutputKeyJobDetails, &existingJD); ok && existingJD != "" {
		messages = append(messages, schema.SystemMessage("An approved job description already exists:\n"+existingJD))
	}
	messages = append(messages, r.historyFor(session.ID)...)
	messages = append(messages, schema.UserMessage(message))

	resp, err := r.model.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("职位描述创建失败: %w", err)
	}

	if err := session.SetState(constants.OutputKeyJobDetails, resp.Content); err != nil {
		return nil, err
	}

	session.PendingApproval = &PendingApproval{
		Gate:      ApprovalGateJobDescription,
		Agent:     JDCreatorDefinition.Name,
		Proposal:  resp.Content,
		CreatedAt: time.Now(),
	}

	return []Event{
		{Agent: JDCreatorDefinition.Name, Type: EventTypeState, OutputKey: constants.OutputKeyJobDetails},
		{
			Agent: JDCreatorDefinition.Name,
			Type:  EventTypePendingApproval,
			Text: resp.Content +
				"\n\nPlease reply \"approve\" to publish this job description, or \"reject\" to request changes.",
		},
	}, nil
}

// --- 简历筛选流水线 ---

// runScreening 按顺序执行 抽取→匹配→诚信→偏见→终裁，随后挂起等待人工审批。
// 任一阶段失败则整轮失败，已写入的中间结果保留在会话状态中。
func (r *Runner) runScreening(ctx context.Context, session *Session, resumeText string) ([]Event, error) {
	ctx, span := r.tracer.Start(ctx, "runner.Screening")
	defer span.End()

	var events []Event

	// 阶段1：结构化抽取
	var resume types.StructuredResume
	if err := r.generateInto(ctx, ScreenerDefinition, []*schema.Message{
		schema.SystemMessage(ScreenerDefinition.Instruction),
		schema.UserMessage(resumeText),
	}, &resume); err != nil {
		return nil, fmt.Errorf("简历结构化抽取失败: %w", err)
	}
	if err := session.SetState(constants.OutputKeyStructuredResume, &resume); err != nil {
		return nil, err
	}
	events = append(events, Event{Agent: ScreenerDefinition.Name, Type: EventTypeState, OutputKey: constants.OutputKeyStructuredResume})

	r.archiveArtifact(ctx, session.ID, storage.ArtifactKindResumeText, resumeText)

	resumeJSON, _ := json.Marshal(&resume)

	// 阶段2：人岗匹配
	var jobDetails string
	session.GetState(constants.OutputKeyJobDetails, &jobDetails)
	matchContext := "Job details:\n" + jobDetails + "\n\nStructured resume:\n" + string(resumeJSON)
	if strings.TrimSpace(jobDetails) == "" {
		matchContext = "Job details: (none on file)\n\nStructured resume:\n" + string(resumeJSON)
	}

	var match types.MatchResult
	if err := r.generateInto(ctx, MatcherDefinition, []*schema.Message{
		schema.SystemMessage(MatcherDefinition.Instruction),
		schema.UserMessage(matchContext),
	}, &match); err != nil {
		return nil, fmt.Errorf("人岗匹配评估失败: %w", err)
	}
	if err := session.SetState(constants.OutputKeyMatchingResult, &match); err != nil {
		return nil, err
	}
	events = append(events, Event{Agent: MatcherDefinition.Name, Type: EventTypeState, OutputKey: constants.OutputKeyMatchingResult})

	// 阶段3：诚信核查
	var integrity types.IntegrityReport
	if err := r.generateInto(ctx, IntegrityCheckerDefinition, []*schema.Message{
		schema.SystemMessage(IntegrityCheckerDefinition.Instruction),
		schema.UserMessage("Structured resume:\n" + string(resumeJSON)),
	}, &integrity); err != nil {
		return nil, fmt.Errorf("诚信核查失败: %w", err)
	}
	if err := session.SetState(constants.OutputKeyIntegrityReport, &integrity); err != nil {
		return nil, err
	}
	events = append(events, Event{Agent: IntegrityCheckerDefinition.Name, Type: EventTypeState, OutputKey: constants.OutputKeyIntegrityReport})

	// 阶段4：偏见审查
	matchJSON, _ := json.Marshal(&match)
	integrityJSON, _ := json.Marshal(&integrity)
	var bias types.BiasReport
	if err := r.generateInto(ctx, BiasCheckerDefinition, []*schema.Message{
		schema.SystemMessage(BiasCheckerDefinition.Instruction),
		schema.UserMessage("Structured resume:\n" + string(resumeJSON) +
			"\n\nMatching result:\n" + string(matchJSON) +
			"\n\nIntegrity report:\n" + string(integrityJSON)),
	}, &bias); err != nil {
		return nil, fmt.Errorf("偏见审查失败: %w", err)
	}
	if err := session.SetState(constants.OutputKeyBiasReport, &bias); err != nil {
		return nil, err
	}
	events = append(events, Event{Agent: BiasCheckerDefinition.Name, Type: EventTypeState, OutputKey: constants.OutputKeyBiasReport})

	// 阶段5：终裁汇总。结论由决策表计算，模型只负责解释性叙述。
	outcome, rationale := DecideOutcome(&match, &integrity, &bias)
	biasJSON, _ := json.Marshal(&bias)

	schedulerMessages := []*schema.Message{
		schema.SystemMessage(SchedulerDefinition.Instruction),
		schema.UserMessage("matching_result:\n" + string(matchJSON) +
			"\n\nintegrity_report:\n" + string(integrityJSON) +
			"\n\nbias_report:\n" + string(biasJSON) +
			"\n\nComputed recommendation: " + string(outcome) + " (" + rationale + ")"),
	}
	resp, err := r.model.Generate(ctx, schedulerMessages)
	narrative := rationale
	if err != nil {
		// 叙述生成失败不阻断终裁，决策表结论仍然有效
		logger.Warn().Err(err).Msg("终裁叙述生成失败，使用决策表理由")
	} else {
		narrative = resp.Content
	}

	decision := types.FinalDecision{
		Outcome:   outcome,
		Rationale: narrative,
		Match:     &match,
		Integrity: &integrity,
		Bias:      &bias,
	}
	if err := session.SetState(constants.OutputKeyFinalDecision, &decision); err != nil {
		return nil, err
	}
	events = append(events, Event{Agent: SchedulerDefinition.Name, Type: EventTypeState, OutputKey: constants.OutputKeyFinalDecision})

	session.PendingApproval = &PendingApproval{
		Gate:      ApprovalGateCandidate,
		Agent:     SchedulerDefinition.Name,
		Proposal:  narrative,
		CreatedAt: time.Now(),
	}
	events = append(events, Event{
		Agent: SchedulerDefinition.Name,
		Type:  EventTypePendingApproval,
		Text: narrative +
			"\n\nRecommendation: " + strings.ToUpper(string(outcome)) +
			"\nPlease reply \"approve\" or \"reject\" to make the final decision.",
	})

	return events, nil
}

// generateInto 调用模型并把JSON产出解析到目标结构
func (r *Runner) generateInto(ctx context.Context, def Definition, messages []*schema.Message, out any) error {
	ctx, span := r.tracer.Start(ctx, "agent."+def.Name)
	defer span.End()

	resp, err := r.model.Generate(ctx, messages)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeModel)
		return err
	}
	if err := ParseModelJSON(resp.Content, out); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeModel)
		return fmt.Errorf("智能体 %s 的产出无法解析: %w", def.Name, err)
	}
	return nil
}

// --- 总结与闲聊 ---

// runSummarize 基于已有评估结果生成面向用户的总结
func (r *Runner) runSummarize(ctx context.Context, session *Session) ([]Event, error) {
	ctx, span := r.tracer.Start(ctx, "runner.Summarize")
	defer span.End()

	var decision types.FinalDecision
	hasDecision, _ := session.GetState(constants.OutputKeyFinalDecision, &decision)
	if !hasDecision {
		return []Event{{
			Agent: SummarizerDefinition.Name,
			Type:  EventTypeText,
			Text:  "There is no completed candidate evaluation to summarize yet. Please screen a resume first.",
		}}, nil
	}

	decisionJSON, _ := json.Marshal(&decision)
	resp, err := r.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(SummarizerDefinition.Instruction),
		schema.UserMessage("Candidate evaluation results:\n" + string(decisionJSON)),
	})
	if err != nil {
		return nil, fmt.Errorf("总结生成失败: %w", err)
	}

	if err := session.SetState(constants.OutputKeySummary, resp.Content); err != nil {
		return nil, err
	}
	return []Event{
		{Agent: SummarizerDefinition.Name, Type: EventTypeState, OutputKey: constants.OutputKeySummary},
		{Agent: SummarizerDefinition.Name, Type: EventTypeText, Text: resp.Content},
	}, nil
}

// runConverse 普通对话。路由已给出直接回复时不再调用模型。
func (r *Runner) runConverse(ctx context.Context, session *Session, message, routerReply string) ([]Event, error) {
	if strings.TrimSpace(routerReply) != "" {
		return []Event{{Agent: AgentNameRouter, Type: EventTypeText, Text: routerReply}}, nil
	}

	ctx, span := r.tracer.Start(ctx, "runner.Converse")
	defer span.End()

	messages := []*schema.Message{
		schema.SystemMessage("You are a helpful recruitment assistant. Answer the user's question conversationally. " +
			"You can create job descriptions, screen resumes, and summarize candidate evaluations."),
	}
	messages = append(messages, r.historyFor(session.ID)...)
	messages = append(messages, schema.UserMessage(message))

	resp, err := r.model.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("对话生成失败: %w", err)
	}
	return []Event{{Agent: AgentNameRouter, Type: EventTypeText, Text: resp.Content}}, nil
}

// historyFor 读取会话聊天历史，失败时返回空历史
func (r *Runner) historyFor(sessionID string) []*schema.Message {
	history, err := r.chatMemory.GetHistory(sessionID)
	if err != nil {
		logger.Warn().Err(err).Str("session_id", sessionID).Msg("读取聊天历史失败")
		return nil
	}
	return history
}

// --- 人工审批 ---

// approvalNegationPattern 匹配否定式批准，如 "I don't want to approve"
var approvalNegationPattern = regexp.MustCompile(`\b(?:not|never|don'?t|do not|won'?t|can'?t|cannot|refuse to)\b[\s\S]{0,60}?\bapprov`)

// parseApprovalDecision 从审批人的消息中解析决定。
// 驳回与否定式批准先于肯定匹配判断（"不同意"包含"同意"）。
// 无法识别时 decided 为 false，会话保持挂起。
func parseApprovalDecision(message string) (decided, approve bool) {
	normalized := strings.ToLower(strings.TrimSpace(message))
	if normalized == "" {
		return false, false
	}

	switch {
	case strings.Contains(normalized, "reject"), strings.Contains(normalized, "deny"), strings.Contains(normalized, "denied"),
		normalized == "no", normalized == "n",
		strings.Contains(normalized, "拒绝"), strings.Contains(normalized, "不同意"),
		strings.Contains(normalized, "不批准"), strings.Contains(normalized, "不通过"):
		return true, false
	case approvalNegationPattern.MatchString(normalized):
		return true, false
	}

	switch {
	case strings.Contains(normalized, "approve"),
		normalized == "yes", normalized == "ok", normalized == "y",
		strings.Contains(normalized, "同意"), strings.Contains(normalized, "批准"), strings.Contains(normalized, "通过"):
		return true, true
	}
	return false, false
}

// resolveApproval 处理挂起会话的审批回复
func (r *Runner) resolveApproval(ctx context.Context, session *Session, message string) ([]Event, error) {
	ctx, span := r.tracer.Start(ctx, "runner.ResolveApproval",
		trace.WithAttributes(attribute.String("approval.gate", session.PendingApproval.Gate)),
	)
	defer span.End()

	decided, approve := parseApprovalDecision(message)
	if !decided {
		return []Event{{
			Agent: session.PendingApproval.Agent,
			Type:  EventTypePendingApproval,
			Text:  "A decision is pending. Please reply \"approve\" or \"reject\".",
		}}, nil
	}

	pending := session.PendingApproval
	session.PendingApproval = nil

	// 审批结果经工具执行生成固定记录
	approvalTool := r.approveTool
	if pending.Gate == ApprovalGateJobDescription {
		approvalTool = r.approveJDTool
	}
	args, _ := json.Marshal(map[string]bool{"approve": approve})
	result, err := approvalTool.InvokableRun(ctx, string(args))
	if err != nil {
		return nil, fmt.Errorf("执行审批工具失败: %w", err)
	}
	var record types.ApprovalRecord
	if err := json.Unmarshal([]byte(result), &record); err != nil {
		return nil, fmt.Errorf("解析审批记录失败: %w", err)
	}

	switch pending.Gate {
	case ApprovalGateJobDescription:
		return r.finishJDApproval(session, approve, record)
	case ApprovalGateCandidate:
		return r.finishCandidateApproval(ctx, session, approve, record)
	default:
		return nil, fmt.Errorf("未知审批关卡: %s", pending.Gate)
	}
}

// finishJDApproval 落定职位描述审批
func (r *Runner) finishJDApproval(session *Session, approve bool, record types.ApprovalRecord) ([]Event, error) {
	if approve {
		return []Event{{
			Agent: JDCreatorDefinition.Name,
			Type:  EventTypeText,
			Text:  record.Message + " The job description has been saved. You can now provide resumes for screening.",
		}}, nil
	}

	// 驳回时移除草稿，请求具体修改意见
	delete(session.State, constants.OutputKeyJobDetails)
	return []Event{{
		Agent: JDCreatorDefinition.Name,
		Type:  EventTypeText,
		Text:  record.Message + " Please share specific feedback so I can revise the job description.",
	}}, nil
}

// finishCandidateApproval 落定候选人终裁：更新决策、写审计记录、生成总结
func (r *Runner) finishCandidateApproval(ctx context.Context, session *Session, approve bool, record types.ApprovalRecord) ([]Event, error) {
	var decision types.FinalDecision
	if ok, err := session.GetState(constants.OutputKeyFinalDecision, &decision); err != nil || !ok {
		return nil, fmt.Errorf("候选人审批缺少终裁决策上下文")
	}

	// 人工决定覆盖推荐结论
	if approve {
		decision.Outcome = types.OutcomeApprove
	} else {
		decision.Outcome = types.OutcomeReject
	}
	decision.Rationale = record.Message + " " + decision.Rationale
	if err := session.SetState(constants.OutputKeyFinalDecision, &decision); err != nil {
		return nil, err
	}

	r.writeEvaluationRecord(ctx, session, &decision)

	events := []Event{{Agent: SchedulerDefinition.Name, Type: EventTypeState, OutputKey: constants.OutputKeyFinalDecision}}

	// 呈现最终结果前必须经过总结智能体
	summaryEvents, err := r.runSummarize(ctx, session)
	if err != nil {
		logger.Warn().Err(err).Msg("审批后的总结生成失败，回退到审批文案")
		events = append(events, Event{Agent: SchedulerDefinition.Name, Type: EventTypeText, Text: record.Message})
		return events, nil
	}
	return append(events, summaryEvents...), nil
}

// writeEvaluationRecord 写入评估审计记录（尽力而为）
func (r *Runner) writeEvaluationRecord(ctx context.Context, session *Session, decision *types.FinalDecision) {
	if r.mysql == nil {
		return
	}

	candidateName := ""
	var resume types.StructuredResume
	if ok, _ := session.GetState(constants.OutputKeyStructuredResume, &resume); ok {
		candidateName = resume.Name
	}

	matchJSON, _ := models.ValueToJSON(decision.Match)
	integrityJSON, _ := models.ValueToJSON(decision.Integrity)
	biasJSON, _ := models.ValueToJSON(decision.Bias)

	record := &models.EvaluationRecord{
		SessionID:       session.ID,
		UserID:          session.UserID,
		CandidateName:   candidateName,
		MatchReport:     matchJSON,
		IntegrityReport: integrityJSON,
		BiasReport:      biasJSON,
		Outcome:         string(decision.Outcome),
		Rationale:       decision.Rationale,
	}
	if err := r.mysql.CreateEvaluationRecord(ctx, record); err != nil {
		logger.Warn().Err(err).
			Str("session_id", session.ID).
			Str("candidate_name", tracing.SafeAttributeValue("candidate_name", candidateName, tracing.DefaultMaxLength)).
			Msg("写入评估审计记录失败")
	}
}

// --- 记忆持久化与产物归档 ---

// queueMemorySave 发起记忆持久化。
// 优先走outbox（事务性、经消息队列异步消费），
// MySQL或RabbitMQ未配置时降级为后台协程直接写入。
func (r *Runner) queueMemorySave(ctx context.Context, session *Session, summary string) {
	if strings.TrimSpace(summary) == "" {
		return
	}

	event := MemorySaveEvent{
		AppName: session.AppName,
		UserID:  session.UserID,
		Record: MemoryRecord{
			SessionID: session.ID,
			Content:   summary,
			CreatedAt: time.Now(),
		},
	}

	if r.mysql != nil && r.rabbitCfg != nil {
		payload, err := json.Marshal(&event)
		if err != nil {
			logger.Warn().Err(err).Msg("序列化记忆持久化事件失败")
			return
		}
		msg := &models.OutboxMessage{
			AggregateID:      session.ID,
			EventType:        EventTypeMemorySave,
			Payload:          string(payload),
			TargetExchange:   r.rabbitCfg.MemoryEventsExchange,
			TargetRoutingKey: r.rabbitCfg.MemorySaveRoutingKey,
		}
		if err := r.mysql.CreateOutboxMessage(ctx, msg); err != nil {
			logger.Warn().Err(err).Msg("写入outbox失败，降级为直接写入记忆")
		} else {
			return
		}
	}

	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := r.memory.AddSessionToMemory(bgCtx, event.AppName, event.UserID, &event.Record); err != nil {
			logger.Warn().Err(err).Str("session_id", session.ID).Msg("写入长期记忆失败")
		}
	}()
}

// archiveArtifact 归档会话产物到对象存储（尽力而为）
func (r *Runner) archiveArtifact(ctx context.Context, sessionID, kind, text string) {
	if r.minio == nil || strings.TrimSpace(text) == "" {
		return
	}
	if _, err := r.minio.UploadArtifact(ctx, sessionID, kind, text); err != nil {
		logger.Warn().Err(err).Str("session_id", sessionID).Str("kind", kind).Msg("归档会话产物失败")
	}
}
