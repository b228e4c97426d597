package handler

import (
	"context"

	"recruit-agent-go/internal/agent"
	"recruit-agent-go/internal/config"
	"recruit-agent-go/internal/constants"
	"recruit-agent-go/internal/guardrails"
	"recruit-agent-go/internal/logger"
	"recruit-agent-go/internal/storage"
	"recruit-agent-go/internal/tracing"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/gofrs/uuid/v5"
)

// ChatHandler 聊天入口处理器：护栏前置检查、驱动智能体、出口脱敏。
type ChatHandler struct {
	cfg     *config.Config
	guard   *guardrails.Engine
	app     *agent.App
	storage *storage.Storage // 可选，用于归档脱敏后的回复
}

// NewChatHandler 创建聊天处理器
func NewChatHandler(cfg *config.Config, guard *guardrails.Engine, agentApp *agent.App, store *storage.Storage) *ChatHandler {
	return &ChatHandler{
		cfg:     cfg,
		guard:   guard,
		app:     agentApp,
		storage: store,
	}
}

// ChatRequest 聊天请求体
type ChatRequest struct {
	Message   string `json:"message"`
	UserID    string `json:"user_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponse 聊天响应体
type ChatResponse struct {
	Response    string `json:"response"`
	SessionID   string `json:"session_id"`
	Blocked     bool   `json:"blocked"`
	BlockReason string `json:"block_reason,omitempty"`
	Masked      bool   `json:"masked"`
}

// HealthResponse 健康检查响应体
type HealthResponse struct {
	Status            string `json:"status"`
	GuardrailsEnabled bool   `json:"guardrails_enabled"`
	Version           string `json:"version"`
}

// HandleChat 处理 POST /chat
func (h *ChatHandler) HandleChat(c context.Context, ctx *app.RequestContext) {
	var req ChatRequest
	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体无法解析"})
		return
	}
	if req.Message == "" {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "message 字段不能为空"})
		return
	}

	userID := req.UserID
	if userID == "" {
		userID = constants.DefaultUserID
	}

	sessionID := req.SessionID
	if sessionID == "" {
		uuidV7, err := uuid.NewV7()
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "生成会话ID失败"})
			return
		}
		sessionID = uuidV7.String()
	}

	// 输入护栏：命中即拒绝，不触达智能体流水线
	if h.guard != nil {
		if result := h.guard.CheckInput(c, req.Message); result.Blocked {
			logger.Info().
				Str("session_id", sessionID).
				Str("rule", result.Rule).
				Msg("输入被护栏拦截")
			ctx.JSON(consts.StatusOK, ChatResponse{
				Response:    result.Reason,
				SessionID:   sessionID,
				Blocked:     true,
				BlockReason: result.Rule,
			})
			return
		}
	}

	events, err := h.app.Runner.Run(c, userID, sessionID, req.Message)
	if err != nil {
		logger.Error().
			Err(err).
			Str("session_id", sessionID).
			Msg("智能体运行失败")
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
		return
	}

	responseText := agent.LastText(events)
	if responseText == "" {
		responseText = "I could not produce a response for this request. Please try rephrasing."
	}

	// 出口脱敏：所有回复统一经过PII掩码
	maskedText := guardrails.MaskPII(responseText)
	masked := maskedText != responseText

	h.archiveResponse(c, sessionID, maskedText)

	ctx.JSON(consts.StatusOK, ChatResponse{
		Response:  maskedText,
		SessionID: sessionID,
		Blocked:   false,
		Masked:    masked,
	})
}

// archiveResponse 归档脱敏后的回复到对象存储（尽力而为）
func (h *ChatHandler) archiveResponse(ctx context.Context, sessionID, text string) {
	if h.storage == nil || h.storage.MinIO == nil {
		return
	}
	if _, err := h.storage.MinIO.UploadArtifact(ctx, sessionID, storage.ArtifactKindResponse, text); err != nil {
		logger.Warn().
			Err(err).
			Str("session_id", sessionID).
			Str("error_type", string(tracing.ErrorTypeExternal)).
			Msg("归档回复产物失败")
	}
}

// HandleHealth 处理 GET /health
func (h *ChatHandler) HandleHealth(c context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, HealthResponse{
		Status:            "healthy",
		GuardrailsEnabled: h.guard != nil,
		Version:           h.cfg.Server.APIVersion,
	})
}

// HandleRoot 处理 GET /，返回服务发现信息
func (h *ChatHandler) HandleRoot(c context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, utils.H{
		"message": h.cfg.Server.APITitle,
		"version": h.cfg.Server.APIVersion,
		"health":  "/health",
		"chat":    "/chat",
	})
}
