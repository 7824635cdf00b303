package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvocationIsValid(t *testing.T) {
	valid := Invocation{
		ID:           "inv-1",
		ToolID:       "web_search",
		ReplyChannel: "results:inv-1",
		SubmittedAt:  time.Now().UnixMilli(),
	}

	t.Run("valid invocation", func(t *testing.T) {
		require.NoError(t, valid.IsValid())
	})

	t.Run("missing id", func(t *testing.T) {
		inv := valid
		inv.ID = ""
		err := inv.IsValid()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "id is required")
	})

	t.Run("missing tool_id", func(t *testing.T) {
		inv := valid
		inv.ToolID = ""
		err := inv.IsValid()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tool_id is required")
	})

	t.Run("missing reply_channel", func(t *testing.T) {
		inv := valid
		inv.ReplyChannel = ""
		require.Error(t, inv.IsValid())
	})

	t.Run("zero submitted_at", func(t *testing.T) {
		inv := valid
		inv.SubmittedAt = 0
		require.Error(t, inv.IsValid())
	})
}

func TestInvocationAge(t *testing.T) {
	t.Run("recent invocation has small age", func(t *testing.T) {
		inv := Invocation{SubmittedAt: time.Now().UnixMilli()}
		assert.Less(t, inv.Age(), time.Second)
	})

	t.Run("old invocation has large age", func(t *testing.T) {
		inv := Invocation{SubmittedAt: time.Now().Add(-time.Minute).UnixMilli()}
		assert.GreaterOrEqual(t, inv.Age(), 59*time.Second)
	})

	t.Run("unset submitted_at yields zero", func(t *testing.T) {
		var inv Invocation
		assert.Equal(t, time.Duration(0), inv.Age())
	})
}

func TestOutcomeDuration(t *testing.T) {
	t.Run("normal duration", func(t *testing.T) {
		o := Outcome{StartedAt: 1000, CompletedAt: 1500}
		assert.Equal(t, 500*time.Millisecond, o.Duration())
	})

	t.Run("unset timestamps yield zero", func(t *testing.T) {
		var o Outcome
		assert.Equal(t, time.Duration(0), o.Duration())
	})
}

func TestOutcomeIsValid(t *testing.T) {
	valid := Outcome{
		ID:          "inv-1",
		ToolID:      "web_search",
		WorkerID:    "worker-1",
		StartedAt:   1000,
		CompletedAt: 1500,
	}

	t.Run("valid outcome", func(t *testing.T) {
		require.NoError(t, valid.IsValid())
	})

	t.Run("missing worker_id", func(t *testing.T) {
		o := valid
		o.WorkerID = ""
		require.Error(t, o.IsValid())
	})

	t.Run("completed before started", func(t *testing.T) {
		o := valid
		o.CompletedAt = 500
		require.Error(t, o.IsValid())
	})
}
