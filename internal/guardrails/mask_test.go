package guardrails

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskPII(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"空输入原样返回", "", ""},
		{"无PII不变", "The candidate looks like a strong fit.", "The candidate looks like a strong fit."},
		{
			"邮箱",
			"Contact me at john.doe@example.com please",
			"Contact me at [EMAIL REDACTED] please",
		},
		{
			"电话",
			"Call 555-123-4567 tomorrow",
			"Call [PHONE REDACTED] tomorrow",
		},
		{
			// 词边界无法匹配到前导"+"，加号保留在掩码之外
			"带国家码和括号的电话",
			"Reach him at +1 (555) 123-4567",
			"Reach him at +[PHONE REDACTED]",
		},
		{
			"SSN",
			"SSN is 123-45-6789",
			"SSN is [SSN REDACTED]",
		},
		{
			"卡号",
			"Card 4111-1111-1111-1111 on file",
			"Card [CARD REDACTED] on file",
		},
		{
			"IPv4地址",
			"Login from 192.168.1.100 detected",
			"Login from [IP REDACTED] detected",
		},
		{
			"多类PII混合",
			"Email jane@corp.io or call 555-987-6543",
			"Email [EMAIL REDACTED] or call [PHONE REDACTED]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskPII(tt.in))
		})
	}
}

func TestMaskPIIIdempotent(t *testing.T) {
	in := "Email jane@corp.io, call 555-987-6543, SSN 123-45-6789, card 4111 1111 1111 1111, ip 10.0.0.1"
	once := MaskPII(in)
	twice := MaskPII(once)
	assert.Equal(t, once, twice, "二次脱敏不应改变结果")
	assert.NotContains(t, once, "jane@corp.io")
	assert.NotContains(t, once, "6543")
	assert.NotContains(t, once, "6789")
	assert.NotContains(t, once, "4111")
	assert.NotContains(t, once, "10.0.0.1")
}

func TestMaskPIICardBeforePhone(t *testing.T) {
	// 16位卡号不应被电话模式部分吞掉
	got := MaskPII("number: 4111 1111 1111 1111")
	assert.Contains(t, got, "[CARD REDACTED]")
	assert.False(t, strings.Contains(got, "[PHONE REDACTED]"))
}
