package tracing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskValue(t *testing.T) {
	assert.Equal(t, "", MaskValue(""))
	assert.Equal(t, "*", MaskValue("a"))
	assert.Equal(t, "a*", MaskValue("ab"))
	assert.Equal(t, "a**d", MaskValue("abcd"))
	assert.Equal(t, "jo*************om", MaskValue("john.doe@corp.com"))
}

func TestSafeAttributeValueMasksSensitiveNames(t *testing.T) {
	masked := SafeAttributeValue("user.email", "john.doe@corp.com", DefaultMaxLength)
	assert.NotContains(t, masked, "john.doe")
	assert.True(t, strings.Contains(masked, "*"))

	// 非敏感属性只截断不掩码
	plain := SafeAttributeValue("session.id", "abc123", DefaultMaxLength)
	assert.Equal(t, "abc123", plain)
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10))

	long := strings.Repeat("x", 300)
	truncated := TruncateString(long, DefaultMaxLength)
	assert.LessOrEqual(t, len([]rune(truncated)), DefaultMaxLength)
	assert.Contains(t, truncated, "...")

	// 阈值过小时直接硬截断
	assert.Equal(t, "xxx", TruncateString(long, 3))
}

func TestSafeMessageContent(t *testing.T) {
	long := strings.Repeat("中", 200)
	safe := SafeMessageContent(long)
	assert.LessOrEqual(t, len([]rune(safe)), MaxMessageLength)
}
