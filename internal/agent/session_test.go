package agent

import (
	"context"
	"testing"

	"recruit-agent-go/internal/constants"
	"recruit-agent-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStateRoundTrip(t *testing.T) {
	session := NewSession(constants.AppName, "user1", "sess1")

	match := types.MatchResult{MatchScore: 77, Reason: "good fit", RecommendProceed: true}
	require.NoError(t, session.SetState(constants.OutputKeyMatchingResult, &match))
	assert.True(t, session.HasState(constants.OutputKeyMatchingResult))

	var got types.MatchResult
	ok, err := session.GetState(constants.OutputKeyMatchingResult, &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, match, got)
}

func TestSessionGetStateMissingKey(t *testing.T) {
	session := NewSession(constants.AppName, "user1", "sess1")

	var got types.MatchResult
	ok, err := session.GetState("no_such_key", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInMemorySessionServiceLifecycle(t *testing.T) {
	svc := NewInMemorySessionService()
	ctx := context.Background()

	_, err := svc.GetSession(ctx, constants.AppName, "user1", "sess1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	created, err := svc.CreateSession(ctx, constants.AppName, "user1", "sess1")
	require.NoError(t, err)
	assert.Equal(t, "sess1", created.ID)

	fetched, err := svc.GetSession(ctx, constants.AppName, "user1", "sess1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, fetched.ID)
	assert.Empty(t, fetched.State)
}

// 同一键的保存是覆盖语义：最后写入者胜出
func TestInMemorySessionServiceLastWriterWins(t *testing.T) {
	svc := NewInMemorySessionService()
	ctx := context.Background()

	s1, err := svc.CreateSession(ctx, constants.AppName, "user1", "sess1")
	require.NoError(t, err)

	require.NoError(t, s1.SetState(constants.OutputKeyJobDetails, "first draft"))
	require.NoError(t, svc.SaveSession(ctx, s1))

	s2, err := svc.GetSession(ctx, constants.AppName, "user1", "sess1")
	require.NoError(t, err)
	require.NoError(t, s2.SetState(constants.OutputKeyJobDetails, "second draft"))
	require.NoError(t, svc.SaveSession(ctx, s2))

	final, err := svc.GetSession(ctx, constants.AppName, "user1", "sess1")
	require.NoError(t, err)
	var jd string
	ok, err := final.GetState(constants.OutputKeyJobDetails, &jd)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second draft", jd)
}

// 服务返回的会话是快照，修改它不应影响存储中的副本
func TestInMemorySessionServiceIsolation(t *testing.T) {
	svc := NewInMemorySessionService()
	ctx := context.Background()

	created, err := svc.CreateSession(ctx, constants.AppName, "user1", "sess1")
	require.NoError(t, err)
	require.NoError(t, created.SetState(constants.OutputKeyJobDetails, "leaked?"))

	stored, err := svc.GetSession(ctx, constants.AppName, "user1", "sess1")
	require.NoError(t, err)
	assert.False(t, stored.HasState(constants.OutputKeyJobDetails), "未保存的修改不应出现在存储中")
}

func TestSessionPendingApprovalPersists(t *testing.T) {
	svc := NewInMemorySessionService()
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, constants.AppName, "user1", "sess1")
	require.NoError(t, err)

	session.PendingApproval = &PendingApproval{
		Gate:     ApprovalGateCandidate,
		Agent:    AgentNameFinalScheduler,
		Proposal: "recommend approve",
	}
	require.NoError(t, svc.SaveSession(ctx, session))

	fetched, err := svc.GetSession(ctx, constants.AppName, "user1", "sess1")
	require.NoError(t, err)
	require.NotNil(t, fetched.PendingApproval)
	assert.Equal(t, ApprovalGateCandidate, fetched.PendingApproval.Gate)
}
