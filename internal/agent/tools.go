package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"recruit-agent-go/internal/types"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

// 人工审批工具名称
const (
	ToolNameHumanApprove   = "human_approve"    // 候选人终裁审批
	ToolNameHumanApproveJD = "human_approve_jd" // 职位描述发布审批
)

// HumanApprove 根据人工决定生成候选人审批记录。
// 返回值是固定文案，不依赖模型输出。
func HumanApprove(approve bool) types.ApprovalRecord {
	if approve {
		return types.ApprovalRecord{
			Status:  "approved",
			Message: "Candidate approved for interview.",
		}
	}
	return types.ApprovalRecord{
		Status:  "rejected",
		Message: "Candidate rejected.",
	}
}

// HumanApproveJD 根据人工决定生成职位描述审批记录。
func HumanApproveJD(approve bool) types.ApprovalRecord {
	if approve {
		return types.ApprovalRecord{
			Status:  "approved",
			Message: "Job details approved.",
		}
	}
	return types.ApprovalRecord{
		Status:  "rejected",
		Message: "Job details rejected.",
	}
}

// ApprovalTool 将人工审批封装为 eino 工具。
// 该工具需要人工确认：调度器在调用前挂起会话，
// 待审批人的下一条消息给出决定后才真正执行。
type ApprovalTool struct {
	name    string
	desc    string
	execute func(approve bool) types.ApprovalRecord
}

// NewHumanApproveTool 创建候选人终裁审批工具
func NewHumanApproveTool() *ApprovalTool {
	return &ApprovalTool{
		name:    ToolNameHumanApprove,
		desc:    "将候选人的最终录用建议提交人工审批。审批通过后候选人进入面试环节。",
		execute: HumanApprove,
	}
}

// NewHumanApproveJDTool 创建职位描述发布审批工具
func NewHumanApproveJDTool() *ApprovalTool {
	return &ApprovalTool{
		name:    ToolNameHumanApproveJD,
		desc:    "将起草好的职位描述提交人工审批。审批通过后职位描述方可发布。",
		execute: HumanApproveJD,
	}
}

// Info 返回工具的元信息，符合 tool.BaseTool 接口。
func (t *ApprovalTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: t.name,
		Desc: t.desc,
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"approve": {
				Type:     "boolean",
				Desc:     "人工审批结果：true 表示批准，false 表示拒绝",
				Required: true,
			},
		}),
	}, nil
}

// InvokableRun 执行工具的逻辑，符合 tool.InvokableTool 接口。
func (t *ApprovalTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...tool.Option) (string, error) {
	var args struct {
		Approve bool `json:"approve"`
	}
	if err := json.Unmarshal([]byte(argumentsInJSON), &args); err != nil {
		return "", fmt.Errorf("工具 '%s' 的输入JSON解析失败: %w", t.name, err)
	}

	record := t.execute(args.Approve)
	result, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("序列化工具 '%s' 的结果失败: %w", t.name, err)
	}
	return string(result), nil
}

var _ tool.BaseTool = (*ApprovalTool)(nil)
var _ tool.InvokableTool = (*ApprovalTool)(nil)
