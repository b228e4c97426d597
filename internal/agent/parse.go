package agent

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var codeFencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// ExtractJSON 从模型输出中提取JSON对象。
// 容忍代码围栏和JSON前后的解释性文字。
func ExtractJSON(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", fmt.Errorf("模型输出为空")
	}

	// 优先取代码围栏内的内容
	if m := codeFencePattern.FindStringSubmatch(trimmed); len(m) == 2 {
		trimmed = strings.TrimSpace(m[1])
	}

	// 定位最外层的大括号对
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("模型输出中未找到JSON对象")
	}
	candidate := trimmed[start : end+1]

	if !json.Valid([]byte(candidate)) {
		return "", fmt.Errorf("模型输出中的JSON无法解析")
	}
	return candidate, nil
}

// ParseModelJSON 提取并反序列化模型输出中的JSON对象
func ParseModelJSON(content string, out any) error {
	jsonStr, err := ExtractJSON(content)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(jsonStr), out); err != nil {
		return fmt.Errorf("反序列化模型JSON输出失败: %w", err)
	}
	return nil
}

// 路由目标
const (
	RouteCreateJD     = "create_jd"
	RouteScreenResume = "screen_resume"
	RouteSummarize    = "summarize"
	RouteConverse     = "converse"
)

// RoutingDecision 路由智能体的结构化产出
type RoutingDecision struct {
	Route  string `json:"route"`
	Reason string `json:"reason"`
	Reply  string `json:"reply,omitempty"`
}

var hiringIntentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bwant to hire\b`),
	regexp.MustCompile(`(?i)\bneed (a|an|to hire)\b`),
	regexp.MustCompile(`(?i)\blooking for (a|an)\b.*\b(engineer|developer|designer|manager|analyst|candidate)\b`),
	regexp.MustCompile(`(?i)\b(create|write|draft|update).{0,20}\b(jd|job description|job posting)\b`),
	regexp.MustCompile(`我(想|要|们要?)招`),
}

var resumeSectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?im)^\s*(name|姓名)\s*[:：]`),
	regexp.MustCompile(`(?im)^\s*(email|邮箱)\s*[:：]`),
	regexp.MustCompile(`(?im)^\s*(experience|work experience|工作经历)\s*[:：]?`),
	regexp.MustCompile(`(?im)^\s*(education|教育经历|学历)\s*[:：]?`),
	regexp.MustCompile(`(?im)^\s*(skills|技能)\s*[:：]?`),
}

var summaryRequestPattern = regexp.MustCompile(`(?i)\b(summary|summarize|recap)\b|总结|摘要`)

// LooksLikeResume 判断文本是否形似简历（至少命中两个简历段落标记）
func LooksLikeResume(text string) bool {
	hits := 0
	for _, p := range resumeSectionPatterns {
		if p.MatchString(text) {
			hits++
		}
	}
	return hits >= 2
}

// HeuristicRoute 是模型路由不可用或产出无法解析时的降级规则。
// 规则与路由指令保持一致：无简历文本的招聘意图走JD创建。
func HeuristicRoute(message string) string {
	if LooksLikeResume(message) {
		return RouteScreenResume
	}
	for _, p := range hiringIntentPatterns {
		if p.MatchString(message) {
			return RouteCreateJD
		}
	}
	if summaryRequestPattern.MatchString(message) {
		return RouteSummarize
	}
	return RouteConverse
}
