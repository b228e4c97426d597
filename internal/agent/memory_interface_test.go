package agent

import (
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryChatMemoryBasics(t *testing.T) {
	mem := NewInMemoryChatMemory()

	history, err := mem.GetHistory("s1")
	require.NoError(t, err)
	assert.Empty(t, history, "未知会话返回空历史")

	require.NoError(t, mem.AddMessage("s1", schema.UserMessage("hello")))
	require.NoError(t, mem.AddMessage("s1", schema.AssistantMessage("hi there", nil)))

	history, err = mem.GetHistory("s1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "hello", history[0].Content)
	assert.Equal(t, "hi there", history[1].Content)
}

func TestInMemoryChatMemoryRejectsNil(t *testing.T) {
	mem := NewInMemoryChatMemory()
	assert.Error(t, mem.AddMessage("s1", nil))
	assert.Error(t, mem.AddMessages("s1", []*schema.Message{schema.UserMessage("a"), nil}))

	// 批量失败不应写入部分消息
	history, err := mem.GetHistory("s1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestInMemoryChatMemoryClear(t *testing.T) {
	mem := NewInMemoryChatMemory()
	require.NoError(t, mem.AddMessage("s1", schema.UserMessage("hello")))
	require.NoError(t, mem.ClearHistory("s1"))

	history, err := mem.GetHistory("s1")
	require.NoError(t, err)
	assert.Empty(t, history)

	// 清除不存在的会话静默成功
	assert.NoError(t, mem.ClearHistory("missing"))
}

func TestInMemoryChatMemoryIsolation(t *testing.T) {
	mem := NewInMemoryChatMemory()
	require.NoError(t, mem.AddMessage("s1", schema.UserMessage("hello")))

	history, err := mem.GetHistory("s1")
	require.NoError(t, err)
	history[0] = schema.UserMessage("tampered")

	fresh, err := mem.GetHistory("s1")
	require.NoError(t, err)
	assert.Equal(t, "hello", fresh[0].Content, "返回的切片是拷贝")
}
