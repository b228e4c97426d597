package agent

import (
	"context"
	"encoding/json"
	"testing"

	"recruit-agent-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHumanApproveFixedRecords(t *testing.T) {
	approved := HumanApprove(true)
	assert.Equal(t, "approved", approved.Status)
	assert.Equal(t, "Candidate approved for interview.", approved.Message)

	rejected := HumanApprove(false)
	assert.Equal(t, "rejected", rejected.Status)
	assert.Equal(t, "Candidate rejected.", rejected.Message)
}

func TestHumanApproveJDFixedRecords(t *testing.T) {
	approved := HumanApproveJD(true)
	assert.Equal(t, "approved", approved.Status)
	assert.Equal(t, "Job details approved.", approved.Message)

	rejected := HumanApproveJD(false)
	assert.Equal(t, "rejected", rejected.Status)
	assert.Equal(t, "Job details rejected.", rejected.Message)
}

func TestApprovalToolInfo(t *testing.T) {
	info, err := NewHumanApproveTool().Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ToolNameHumanApprove, info.Name)
	assert.NotEmpty(t, info.Desc)

	jdInfo, err := NewHumanApproveJDTool().Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ToolNameHumanApproveJD, jdInfo.Name)
}

func TestApprovalToolInvokableRun(t *testing.T) {
	tool := NewHumanApproveJDTool()

	result, err := tool.InvokableRun(context.Background(), `{"approve": true}`)
	require.NoError(t, err)

	var record types.ApprovalRecord
	require.NoError(t, json.Unmarshal([]byte(result), &record))
	assert.Equal(t, "approved", record.Status)
	assert.Equal(t, "Job details approved.", record.Message)

	result, err = tool.InvokableRun(context.Background(), `{"approve": false}`)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(result), &record))
	assert.Equal(t, "rejected", record.Status)
}

func TestApprovalToolInvalidArguments(t *testing.T) {
	_, err := NewHumanApproveTool().InvokableRun(context.Background(), "not json")
	assert.Error(t, err)
}
