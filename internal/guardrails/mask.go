package guardrails

import "regexp"

// PII脱敏正则。五条替换互相独立，顺序无关。
// 启发式匹配，不保证覆盖所有PII格式；宁可过度脱敏（误杀电话样式的ID）
// 也不放过真实PII。
var (
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phonePattern = regexp.MustCompile(`\b(\+?1[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`)
	ssnPattern   = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	cardPattern  = regexp.MustCompile(`\b(?:\d{4}[-\s]?){3}\d{4}\b`)
	ipPattern    = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)
)

const (
	emailRedacted = "[EMAIL REDACTED]"
	phoneRedacted = "[PHONE REDACTED]"
	ssnRedacted   = "[SSN REDACTED]"
	cardRedacted  = "[CARD REDACTED]"
	ipRedacted    = "[IP REDACTED]"
)

// MaskPII 对文本做PII脱敏：邮箱、北美电话、SSN、16位卡号、IPv4地址。
// 幂等：脱敏标签本身不会被任何模式再次命中。空输入原样返回。
func MaskPII(text string) string {
	if text == "" {
		return text
	}

	text = emailPattern.ReplaceAllString(text, emailRedacted)
	text = ssnPattern.ReplaceAllString(text, ssnRedacted)
	text = cardPattern.ReplaceAllString(text, cardRedacted)
	text = phonePattern.ReplaceAllString(text, phoneRedacted)
	text = ipPattern.ReplaceAllString(text, ipRedacted)

	return text
}
