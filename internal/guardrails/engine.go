package guardrails

import (
	"context"
	"fmt"
	"os"

	"recruit-agent-go/internal/logger"

	"gopkg.in/yaml.v3"
)

// 规则可引用的检查名
const (
	CheckNameBlockedWords    = "blocked_words"
	CheckNameInputLength     = "input_length"
	CheckNamePromptInjection = "prompt_injection"
)

// Rule 单条输入护栏规则定义
type Rule struct {
	Name      string `yaml:"name"`                 // 规则名，用于日志
	Check     string `yaml:"check"`                // 引用的检查：blocked_words / input_length / prompt_injection
	MaxLength int    `yaml:"max_length,omitempty"` // 仅input_length使用，0表示取引擎默认值
	Refusal   string `yaml:"refusal"`              // 规则命中时返回给用户的拒绝话术
}

// RuleSet 规则定义文件的顶层结构
type RuleSet struct {
	Rules []Rule `yaml:"rules"`
}

// CheckResult 一次输入检查的结果
type CheckResult struct {
	Blocked bool   // 是否有规则命中
	Reason  string // 命中规则的拒绝话术
	Rule    string // 命中的规则名
}

// Engine 输入护栏引擎。按声明顺序评估规则，首个命中即返回拒绝。
// 规则评估出错时按"未命中"处理（fail-open），只记录警告——
// 该策略复刻自上游配置，是有意为之的取舍。
type Engine struct {
	rules            []Rule
	defaultMaxLength int
}

// NewEngine 从YAML规则定义文件创建护栏引擎。
func NewEngine(rulesPath string, defaultMaxLength int) (*Engine, error) {
	data, err := os.ReadFile(rulesPath)
	if err != nil {
		return nil, fmt.Errorf("读取护栏规则文件失败: %w", err)
	}

	var ruleSet RuleSet
	if err := yaml.Unmarshal(data, &ruleSet); err != nil {
		return nil, fmt.Errorf("解析护栏规则文件失败: %w", err)
	}
	if len(ruleSet.Rules) == 0 {
		return nil, fmt.Errorf("护栏规则文件 %s 中未定义任何规则", rulesPath)
	}

	if defaultMaxLength <= 0 {
		defaultMaxLength = 5000
	}

	return &Engine{
		rules:            ruleSet.Rules,
		defaultMaxLength: defaultMaxLength,
	}, nil
}

// NewEngineFromRules 直接从规则列表创建引擎，主要用于测试。
func NewEngineFromRules(rules []Rule, defaultMaxLength int) *Engine {
	if defaultMaxLength <= 0 {
		defaultMaxLength = 5000
	}
	return &Engine{rules: rules, defaultMaxLength: defaultMaxLength}
}

// CheckInput 按顺序评估所有输入规则。
func (e *Engine) CheckInput(ctx context.Context, text string) CheckResult {
	for _, rule := range e.rules {
		hit, err := e.evaluate(rule, text)
		if err != nil {
			// fail-open：评估异常视为未命中，见类型注释
			logger.Warn().
				Err(err).
				Str("rule", rule.Name).
				Msg("护栏规则评估失败，按未命中处理")
			continue
		}
		if hit {
			logger.Info().
				Str("rule", rule.Name).
				Str("check", rule.Check).
				Msg("输入护栏规则命中，拒绝请求")
			return CheckResult{Blocked: true, Reason: rule.Refusal, Rule: rule.Name}
		}
	}
	return CheckResult{}
}

// evaluate 执行单条规则引用的检查
func (e *Engine) evaluate(rule Rule, text string) (bool, error) {
	switch rule.Check {
	case CheckNameBlockedWords:
		return CheckBlockedWords(text), nil
	case CheckNameInputLength:
		maxLength := rule.MaxLength
		if maxLength <= 0 {
			maxLength = e.defaultMaxLength
		}
		return CheckInputLength(text, maxLength), nil
	case CheckNamePromptInjection:
		return CheckPromptInjection(text), nil
	default:
		return false, fmt.Errorf("未知的检查类型: %q", rule.Check)
	}
}
