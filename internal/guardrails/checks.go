package guardrails

import (
	"regexp"
	"strings"
)

// 屏蔽词列表 - 可扩展
var BlockedWords = []string{
	// 安全相关
	"hack", "exploit", "bypass", "jailbreak",
	"password stealing", "credit card theft",
	// 不当内容
	"illegal", "violence", "weapon",
	// 招聘歧视
	"only hire male", "only hire female",
	"no disabled", "age limit",
}

// 提示注入模式
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?previous\s+instructions?`),
	regexp.MustCompile(`(?i)disregard\s+(all\s+)?previous`),
	regexp.MustCompile(`(?i)forget\s+(all\s+)?previous`),
	regexp.MustCompile(`(?i)you\s+are\s+now\s+in\s+developer\s+mode`),
	regexp.MustCompile(`(?i)pretend\s+you\s+are`),
	regexp.MustCompile(`(?i)act\s+as\s+if\s+you\s+have\s+no\s+restrictions`),
	regexp.MustCompile(`(?i)override\s+your\s+instructions`),
	regexp.MustCompile(`(?i)new\s+instructions?:`),
}

// CheckBlockedWords 对固定屏蔽词表做大小写不敏感的子串匹配。
// 空输入返回false。
func CheckBlockedWords(text string) bool {
	if text == "" {
		return false
	}
	textLower := strings.ToLower(text)
	for _, word := range BlockedWords {
		if strings.Contains(textLower, strings.ToLower(word)) {
			return true
		}
	}
	return false
}

// CheckInputLength 当字符长度超过maxLength时返回true。
// 恰好等于阈值时返回false；空输入返回false。
func CheckInputLength(text string, maxLength int) bool {
	if text == "" {
		return false
	}
	return len([]rune(text)) > maxLength
}

// CheckPromptInjection 对固定的指令覆盖模式做大小写不敏感的正则匹配。
// 空输入返回false。
func CheckPromptInjection(text string) bool {
	if text == "" {
		return false
	}
	for _, pattern := range injectionPatterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}
