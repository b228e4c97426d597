package agent

import (
	"context"
	"testing"
	"time"

	"recruit-agent-go/internal/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryMemoryServiceAddAndLoad(t *testing.T) {
	svc := NewInMemoryMemoryService()
	ctx := context.Background()

	require.NoError(t, svc.AddSessionToMemory(ctx, constants.AppName, "user1", &MemoryRecord{
		SessionID: "s1",
		Content:   "Created a job description for a senior Go engineer",
	}))
	require.NoError(t, svc.AddSessionToMemory(ctx, constants.AppName, "user1", &MemoryRecord{
		SessionID: "s2",
		Content:   "Screened candidate Jane Smith, outcome approve",
	}))

	records, err := svc.LoadRelevantMemory(ctx, constants.AppName, "user1", "Go engineer job", 5)
	require.NoError(t, err)
	require.NotEmpty(t, records)
	assert.Contains(t, records[0].Content, "Go engineer", "关键词重合度最高的记录应排在首位")
}

func TestInMemoryMemoryServiceEmptyContentRejected(t *testing.T) {
	svc := NewInMemoryMemoryService()
	err := svc.AddSessionToMemory(context.Background(), constants.AppName, "user1", &MemoryRecord{Content: "   "})
	assert.Error(t, err)
	assert.Error(t, svc.AddSessionToMemory(context.Background(), constants.AppName, "user1", nil))
}

func TestInMemoryMemoryServiceIsolatedByUser(t *testing.T) {
	svc := NewInMemoryMemoryService()
	ctx := context.Background()

	require.NoError(t, svc.AddSessionToMemory(ctx, constants.AppName, "user1", &MemoryRecord{
		SessionID: "s1", Content: "candidate evaluation for backend role",
	}))

	records, err := svc.LoadRelevantMemory(ctx, constants.AppName, "user2", "candidate evaluation", 5)
	require.NoError(t, err)
	assert.Empty(t, records, "不同用户的记忆互不可见")
}

func TestRankRecordsLimitAndRecency(t *testing.T) {
	now := time.Now()
	records := []*MemoryRecord{
		{SessionID: "old", Content: "screened a candidate", CreatedAt: now.Add(-2 * time.Hour)},
		{SessionID: "new", Content: "screened a candidate", CreatedAt: now},
		{SessionID: "other", Content: "unrelated chit chat", CreatedAt: now},
	}

	ranked := rankRecords(records, "screened candidate", 1)
	require.Len(t, ranked, 1)
	assert.Equal(t, "new", ranked[0].SessionID, "同分时取更近的记录")
}

func TestRankRecordsDropsNoHit(t *testing.T) {
	records := []*MemoryRecord{
		{SessionID: "s1", Content: "totally unrelated"},
	}
	ranked := rankRecords(records, "golang engineer", 5)
	assert.Empty(t, ranked, "全无命中的记忆不参与召回")
}
