package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"recruit-agent-go/internal/config"
	"recruit-agent-go/internal/logger"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const (
	// DashScope 的 OpenAI 兼容端点
	openAICompatibleQwenAPIURL = "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"
	defaultQwenModelName       = "qwen-plus"
)

// --- OpenAI 兼容结构 ---

type OpenAIToolFunctionParamsProperty struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

type OpenAIToolFunctionParams struct {
	Type       string                                      `json:"type"` // 通常为 "object"
	Properties map[string]OpenAIToolFunctionParamsProperty `json:"properties"`
	Required   []string                                    `json:"required,omitempty"`
}

type OpenAIFunction struct {
	Name        string                   `json:"name"`
	Description string                   `json:"description"`
	Parameters  OpenAIToolFunctionParams `json:"parameters"`
}

type OpenAITool struct {
	Type     string         `json:"type"` // 必须为 "function"
	Function OpenAIFunction `json:"function"`
}

type OpenAIChatCompletionRequest struct {
	Model    string            `json:"model"`
	Messages []*schema.Message `json:"messages"` // Eino 的 schema.Message 与 role/content 字段兼容
	Tools    []OpenAITool      `json:"tools,omitempty"`
}

type OpenAIMessage struct {
	Role      string               `json:"role"`
	Content   *string              `json:"content"` // 存在 tool_calls 时可以为 null
	ToolCalls []OpenAIToolCallData `json:"tool_calls,omitempty"`
}

type OpenAIToolCallData struct {
	Id       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"` // 参数的JSON字符串
	} `json:"function"`
}

type OpenAIChatChoice struct {
	Index        int           `json:"index"`
	Message      OpenAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type OpenAICompletionResponse struct {
	Id      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []OpenAIChatChoice `json:"choices"`
}

// retryableStatusError 标记一次可重试的 API 失败（限流或服务端瞬时错误）
type retryableStatusError struct {
	statusCode int
	body       string
}

func (e *retryableStatusError) Error() string {
	return fmt.Sprintf("API 请求失败，状态码 %d: %s", e.statusCode, e.body)
}

// AliyunQwenChatModel 实现了 model.ToolCallingChatModel 接口，
// 用于与阿里云通义千问模型交互。
// 重试/退避策略内置于客户端本身，调用方无需自行重试。
type AliyunQwenChatModel struct {
	apiKey           string
	modelName        string
	apiURL           string
	httpClient       *http.Client
	boundOpenAITools []OpenAITool

	// 重试策略
	maxAttempts      int
	initialDelay     time.Duration
	backoffBase      float64
	retryableStatus  map[int]bool
}

// NewAliyunQwenChatModel 根据配置创建一个新的 AliyunQwenChatModel 实例。
func NewAliyunQwenChatModel(cfg *config.AliyunConfig) (*AliyunQwenChatModel, error) {
	if cfg == nil || strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("API 密钥不能为空")
	}

	mn := cfg.Model
	if strings.TrimSpace(mn) == "" {
		mn = defaultQwenModelName
	}

	url := cfg.APIURL
	if strings.TrimSpace(url) == "" {
		url = openAICompatibleQwenAPIURL
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	initialDelay := time.Duration(cfg.InitialDelayMS) * time.Millisecond
	if initialDelay <= 0 {
		initialDelay = time.Second
	}
	backoffBase := float64(cfg.BackoffBase)
	if backoffBase <= 1 {
		backoffBase = 7
	}

	retryable := make(map[int]bool)
	for _, code := range cfg.RetryableStatusList {
		retryable[code] = true
	}
	if len(retryable) == 0 {
		for _, code := range []int{429, 500, 503, 504} {
			retryable[code] = true
		}
	}

	logger.Info().
		Str("api_url", url).
		Str("model", mn).
		Int("max_attempts", maxAttempts).
		Msg("使用阿里云通义千问 LLM 客户端")

	return &AliyunQwenChatModel{
		apiKey:           cfg.APIKey,
		modelName:        mn,
		apiURL:           url,
		httpClient:       &http.Client{},
		boundOpenAITools: make([]OpenAITool, 0),
		maxAttempts:      maxAttempts,
		initialDelay:     initialDelay,
		backoffBase:      backoffBase,
		retryableStatus:  retryable,
	}, nil
}

// Generate 实现 model.ChatModel 接口，带指数退避重试。
func (aq *AliyunQwenChatModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	for _, opt := range options {
		// 工具绑定通过 WithTools/BindTools 完成，这里不处理泛型选项
		_ = opt
	}

	reqPayload := OpenAIChatCompletionRequest{
		Model:    aq.modelName,
		Messages: messages,
	}
	if len(aq.boundOpenAITools) > 0 {
		reqPayload.Tools = aq.boundOpenAITools
	}

	jsonData, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("序列化请求体失败: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < aq.maxAttempts; attempt++ {
		if attempt > 0 {
			// 延迟 = initialDelay * backoffBase^(attempt-1)
			delay := time.Duration(float64(aq.initialDelay) * math.Pow(aq.backoffBase, float64(attempt-1)))
			logger.Warn().
				Int("attempt", attempt+1).
				Dur("delay", delay).
				Err(lastErr).
				Msg("模型调用失败，退避后重试")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		msg, err := aq.doRequest(ctx, jsonData)
		if err == nil {
			return msg, nil
		}
		lastErr = err

		var rse *retryableStatusError
		if !asRetryable(err, &rse) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("模型调用在 %d 次尝试后仍然失败: %w", aq.maxAttempts, lastErr)
}

// asRetryable 判断错误是否为可重试的状态错误
func asRetryable(err error, target **retryableStatusError) bool {
	if rse, ok := err.(*retryableStatusError); ok {
		*target = rse
		return true
	}
	return false
}

// doRequest 发送一次 API 请求并解析响应
func (aq *AliyunQwenChatModel) doRequest(ctx context.Context, jsonData []byte) (*schema.Message, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, aq.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+aq.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := aq.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("发送 HTTP 请求失败: %w", err)
	}
	defer httpResp.Body.Close()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		if aq.retryableStatus[httpResp.StatusCode] {
			return nil, &retryableStatusError{statusCode: httpResp.StatusCode, body: string(bodyBytes)}
		}
		return nil, fmt.Errorf("API 请求失败，状态 %s: %s", httpResp.Status, string(bodyBytes))
	}

	var openAIResp OpenAICompletionResponse
	if err := json.Unmarshal(bodyBytes, &openAIResp); err != nil {
		return nil, fmt.Errorf("反序列化 API 响应失败: %w。响应体: %s", err, string(bodyBytes))
	}

	if len(openAIResp.Choices) == 0 {
		return nil, fmt.Errorf("从 API 收到空选项: %s", string(bodyBytes))
	}

	apiMessage := openAIResp.Choices[0].Message
	responseContent := ""
	if apiMessage.Content != nil {
		responseContent = *apiMessage.Content
	}

	resultMessage := &schema.Message{
		Role:    schema.RoleType(apiMessage.Role),
		Content: responseContent,
	}

	if len(apiMessage.ToolCalls) > 0 {
		resultMessage.ToolCalls = make([]schema.ToolCall, len(apiMessage.ToolCalls))
		for i, tc := range apiMessage.ToolCalls {
			resultMessage.ToolCalls[i] = schema.ToolCall{
				ID: tc.Id,
				Function: schema.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			}
		}
	}

	if resultMessage.Role == "" {
		resultMessage.Role = schema.RoleType("assistant")
	}

	return resultMessage, nil
}

// Stream 实现 model.ChatModel 接口 (占位)
func (aq *AliyunQwenChatModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("AliyunQwenChatModel (OpenAI 兼容) 的 Stream 方法未实现")
}

// BindTools 实现 model.ChatModel 接口。
// 由于无法可靠地从 schema.ParamsOneOf 外部导出参数细节，
// 已知工具的参数 schema 在这里显式构造。
func (aq *AliyunQwenChatModel) BindTools(tools []*schema.ToolInfo) error {
	aq.boundOpenAITools = make([]OpenAITool, 0, len(tools))
	for _, toolInfo := range tools {
		if toolInfo == nil {
			continue
		}

		var params OpenAIToolFunctionParams
		switch toolInfo.Name {
		case ToolNameHumanApprove, ToolNameHumanApproveJD:
			params = OpenAIToolFunctionParams{
				Type: "object",
				Properties: map[string]OpenAIToolFunctionParamsProperty{
					"approve": {Type: "boolean", Description: "人工审批结果：true 表示批准，false 表示拒绝"},
				},
				Required: []string{"approve"},
			}
		default:
			logger.Warn().Str("tool", toolInfo.Name).Msg("工具的参数 schema 未在 BindTools 中显式定义，将使用空对象")
			params = OpenAIToolFunctionParams{Type: "object", Properties: map[string]OpenAIToolFunctionParamsProperty{}}
		}

		aq.boundOpenAITools = append(aq.boundOpenAITools, OpenAITool{
			Type: "function",
			Function: OpenAIFunction{
				Name:        toolInfo.Name,
				Description: toolInfo.Desc,
				Parameters:  params,
			},
		})
	}
	return nil
}

// WithTools 满足 model.ToolCallingChatModel 接口。
// 工具绑定在模型内部处理（复用 BindTools），不产生额外调用选项。
func (aq *AliyunQwenChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	if err := aq.BindTools(tools); err != nil {
		return nil, err
	}
	return aq, nil
}

var _ model.ChatModel = (*AliyunQwenChatModel)(nil)
var _ model.ToolCallingChatModel = (*AliyunQwenChatModel)(nil)
