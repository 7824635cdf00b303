package queue

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestClient creates a miniredis instance and returns a connected RedisClient.
func setupTestClient(t *testing.T) (*RedisClient, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := NewRedisClient(RedisOptions{
		URL:            fmt.Sprintf("redis://%s", mr.Addr()),
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})

	return client, mr
}

func testInvocation(id string) Invocation {
	return Invocation{
		ID:           id,
		ToolID:       "web_search",
		Params:       map[string]any{"query": "golang"},
		ReplyChannel: "results:" + id,
		SubmittedAt:  time.Now().UnixMilli(),
	}
}

func TestNewRedisClient(t *testing.T) {
	t.Run("successful connection", func(t *testing.T) {
		mr := miniredis.RunT(t)
		defer mr.Close()

		client, err := NewRedisClient(RedisOptions{
			URL: fmt.Sprintf("redis://%s", mr.Addr()),
		})
		require.NoError(t, err)
		require.NotNil(t, client)
		defer client.Close()
	})

	t.Run("connection failure", func(t *testing.T) {
		_, err := NewRedisClient(RedisOptions{
			URL:            "redis://localhost:99999",
			ConnectTimeout: 100 * time.Millisecond,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to connect to Redis")
	})

	t.Run("invalid URL", func(t *testing.T) {
		_, err := NewRedisClient(RedisOptions{
			URL: "invalid://url",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse Redis URL")
	})
}

func TestPushPop(t *testing.T) {
	t.Run("successful push and pop", func(t *testing.T) {
		client, _ := setupTestClient(t)
		ctx := context.Background()

		inv := testInvocation("inv-123")
		inv.TimeoutMS = 5000
		inv.DisableRecovery = true

		err := client.Push(ctx, "test-queue", inv)
		require.NoError(t, err)

		popped, err := client.Pop(ctx, "test-queue")
		require.NoError(t, err)
		require.NotNil(t, popped)

		assert.Equal(t, inv.ID, popped.ID)
		assert.Equal(t, inv.ToolID, popped.ToolID)
		assert.Equal(t, inv.Params, popped.Params)
		assert.Equal(t, inv.TimeoutMS, popped.TimeoutMS)
		assert.Equal(t, inv.DisableRecovery, popped.DisableRecovery)
		assert.Equal(t, inv.ReplyChannel, popped.ReplyChannel)
		assert.Equal(t, inv.SubmittedAt, popped.SubmittedAt)
	})

	t.Run("push rejects invalid invocation", func(t *testing.T) {
		client, _ := setupTestClient(t)
		ctx := context.Background()

		inv := testInvocation("inv-123")
		inv.ToolID = ""

		err := client.Push(ctx, "test-queue", inv)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid invocation")
	})

	t.Run("multiple items FIFO order", func(t *testing.T) {
		client, _ := setupTestClient(t)
		ctx := context.Background()

		for i := 0; i < 5; i++ {
			inv := testInvocation(fmt.Sprintf("inv-%d", i))
			err := client.Push(ctx, "test-queue", inv)
			require.NoError(t, err)
		}

		for i := 0; i < 5; i++ {
			popped, err := client.Pop(ctx, "test-queue")
			require.NoError(t, err)
			require.NotNil(t, popped)
			assert.Equal(t, fmt.Sprintf("inv-%d", i), popped.ID)
		}
	})

	t.Run("pop from empty queue blocks until push", func(t *testing.T) {
		client, _ := setupTestClient(t)
		ctx := context.Background()

		resultChan := make(chan *Invocation, 1)
		errChan := make(chan error, 1)

		go func() {
			inv, err := client.Pop(ctx, "delayed-queue")
			if err != nil {
				errChan <- err
				return
			}
			resultChan <- inv
		}()

		// Give it a moment to start blocking
		time.Sleep(100 * time.Millisecond)

		err := client.Push(ctx, "delayed-queue", testInvocation("delayed-inv"))
		require.NoError(t, err)

		select {
		case inv := <-resultChan:
			require.NotNil(t, inv)
			assert.Equal(t, "delayed-inv", inv.ID)
		case err := <-errChan:
			t.Fatalf("unexpected error: %v", err)
		case <-time.After(2 * time.Second):
			t.Fatal("Pop did not return after invocation was pushed")
		}
	})
}

func TestPublishSubscribe(t *testing.T) {
	t.Run("successful publish and subscribe", func(t *testing.T) {
		client, _ := setupTestClient(t)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		channel := "results:inv-123"

		outcomeChan, err := client.Subscribe(ctx, channel)
		require.NoError(t, err)

		outcome := Outcome{
			ID:          "inv-123",
			ToolID:      "web_search",
			Success:     true,
			Output:      map[string]any{"results": []any{"a", "b"}},
			Attempts:    1,
			WorkerID:    "worker-1",
			StartedAt:   time.Now().UnixMilli(),
			CompletedAt: time.Now().UnixMilli() + 100,
		}

		err = client.Publish(ctx, channel, outcome)
		require.NoError(t, err)

		select {
		case received := <-outcomeChan:
			assert.Equal(t, outcome.ID, received.ID)
			assert.Equal(t, outcome.ToolID, received.ToolID)
			assert.True(t, received.Success)
			assert.Equal(t, outcome.Attempts, received.Attempts)
			assert.Equal(t, outcome.WorkerID, received.WorkerID)
			assert.Equal(t, outcome.StartedAt, received.StartedAt)
			assert.Equal(t, outcome.CompletedAt, received.CompletedAt)
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for outcome")
		}
	})

	t.Run("failed outcome round-trips error fields", func(t *testing.T) {
		client, _ := setupTestClient(t)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		channel := "results:inv-err"

		outcomeChan, err := client.Subscribe(ctx, channel)
		require.NoError(t, err)

		outcome := Outcome{
			ID:           "inv-err",
			ToolID:       "web_search",
			ErrorKind:    "recovery_exhausted",
			ErrorType:    "rate_limit",
			ErrorMessage: "quota exceeded",
			Attempts:     3,
			WorkerID:     "worker-1",
			StartedAt:    time.Now().UnixMilli(),
			CompletedAt:  time.Now().UnixMilli() + 100,
		}

		err = client.Publish(ctx, channel, outcome)
		require.NoError(t, err)

		select {
		case received := <-outcomeChan:
			assert.False(t, received.Success)
			assert.Equal(t, "recovery_exhausted", received.ErrorKind)
			assert.Equal(t, "rate_limit", received.ErrorType)
			assert.Equal(t, "quota exceeded", received.ErrorMessage)
			assert.Equal(t, 3, received.Attempts)
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for outcome")
		}
	})

	t.Run("multiple subscribers", func(t *testing.T) {
		client, _ := setupTestClient(t)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		channel := "results:inv-multi"

		sub1, err := client.Subscribe(ctx, channel)
		require.NoError(t, err)

		sub2, err := client.Subscribe(ctx, channel)
		require.NoError(t, err)

		outcome := Outcome{
			ID:          "inv-multi",
			ToolID:      "web_search",
			Success:     true,
			WorkerID:    "worker-1",
			StartedAt:   time.Now().UnixMilli(),
			CompletedAt: time.Now().UnixMilli(),
		}

		err = client.Publish(ctx, channel, outcome)
		require.NoError(t, err)

		for i, sub := range []<-chan Outcome{sub1, sub2} {
			select {
			case received := <-sub:
				assert.Equal(t, outcome.ID, received.ID, "subscriber %d", i)
			case <-time.After(2 * time.Second):
				t.Fatalf("subscriber %d: timeout waiting for outcome", i)
			}
		}
	})

	t.Run("subscribe with context cancellation", func(t *testing.T) {
		client, _ := setupTestClient(t)
		ctx, cancel := context.WithCancel(context.Background())

		outcomeChan, err := client.Subscribe(ctx, "results:inv-cancel")
		require.NoError(t, err)

		cancel()

		select {
		case _, ok := <-outcomeChan:
			assert.False(t, ok, "channel should be closed")
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for channel to close")
		}
	})
}

func TestHeartbeat(t *testing.T) {
	t.Run("successful heartbeat", func(t *testing.T) {
		client, mr := setupTestClient(t)
		ctx := context.Background()

		err := client.Heartbeat(ctx, "worker-1")
		require.NoError(t, err)

		healthKey := "aitool:worker:worker-1:health"
		assert.True(t, mr.Exists(healthKey))

		ttl := mr.TTL(healthKey)
		assert.Greater(t, ttl, time.Duration(0))
		assert.LessOrEqual(t, ttl, 30*time.Second)
	})

	t.Run("heartbeat TTL expiry", func(t *testing.T) {
		client, mr := setupTestClient(t)
		ctx := context.Background()

		err := client.Heartbeat(ctx, "worker-1")
		require.NoError(t, err)

		mr.FastForward(31 * time.Second)

		assert.False(t, mr.Exists("aitool:worker:worker-1:health"))
	})

	t.Run("repeat heartbeats refresh TTL", func(t *testing.T) {
		client, mr := setupTestClient(t)
		ctx := context.Background()

		healthKey := "aitool:worker:worker-1:health"

		err := client.Heartbeat(ctx, "worker-1")
		require.NoError(t, err)

		mr.FastForward(15 * time.Second)
		assert.True(t, mr.Exists(healthKey))

		err = client.Heartbeat(ctx, "worker-1")
		require.NoError(t, err)

		mr.FastForward(20 * time.Second)
		assert.True(t, mr.Exists(healthKey))

		mr.FastForward(15 * time.Second)
		assert.False(t, mr.Exists(healthKey))
	})
}

func TestWorkerCount(t *testing.T) {
	t.Run("count when none set", func(t *testing.T) {
		client, _ := setupTestClient(t)
		ctx := context.Background()

		count, err := client.WorkerCount(ctx, DefaultQueue)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("increment and decrement", func(t *testing.T) {
		client, _ := setupTestClient(t)
		ctx := context.Background()

		for i := 1; i <= 3; i++ {
			err := client.IncrementWorkerCount(ctx, DefaultQueue)
			require.NoError(t, err)

			count, err := client.WorkerCount(ctx, DefaultQueue)
			require.NoError(t, err)
			assert.Equal(t, i, count)
		}

		for i := 2; i >= 0; i-- {
			err := client.DecrementWorkerCount(ctx, DefaultQueue)
			require.NoError(t, err)

			count, err := client.WorkerCount(ctx, DefaultQueue)
			require.NoError(t, err)
			assert.Equal(t, i, count)
		}
	})
}

func TestErrorScenarios(t *testing.T) {
	t.Run("push to closed client", func(t *testing.T) {
		client, _ := setupTestClient(t)
		ctx := context.Background()

		err := client.Close()
		require.NoError(t, err)

		err = client.Push(ctx, "test-queue", testInvocation("inv-1"))
		require.Error(t, err)
	})

	t.Run("pop with expired context", func(t *testing.T) {
		client, _ := setupTestClient(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := client.Pop(ctx, "test-queue")
		require.Error(t, err)
	})

	t.Run("subscribe with expired context", func(t *testing.T) {
		client, _ := setupTestClient(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := client.Subscribe(ctx, "test-channel")
		require.Error(t, err)
	})
}

func TestRoundTripWorkflow(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	// Worker starting up
	err := client.IncrementWorkerCount(ctx, DefaultQueue)
	require.NoError(t, err)

	// Caller subscribes for the outcome before submitting
	inv := testInvocation("inv-flow")
	outcomeChan, err := client.Subscribe(ctx, inv.ReplyChannel)
	require.NoError(t, err)

	err = client.Push(ctx, DefaultQueue, inv)
	require.NoError(t, err)

	// Worker side: pop, execute, publish
	popped, err := client.Pop(ctx, DefaultQueue)
	require.NoError(t, err)
	require.NotNil(t, popped)
	assert.Equal(t, inv.ID, popped.ID)

	outcome := Outcome{
		ID:          popped.ID,
		ToolID:      popped.ToolID,
		Success:     true,
		Output:      map[string]any{"results": []any{"hit"}},
		Attempts:    1,
		WorkerID:    "worker-1",
		StartedAt:   time.Now().UnixMilli(),
		CompletedAt: time.Now().UnixMilli() + 10,
	}
	err = client.Publish(ctx, popped.ReplyChannel, outcome)
	require.NoError(t, err)

	select {
	case received := <-outcomeChan:
		assert.Equal(t, inv.ID, received.ID)
		assert.True(t, received.Success)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for outcome")
	}

	// Worker shutting down
	err = client.DecrementWorkerCount(ctx, DefaultQueue)
	require.NoError(t, err)

	count, err := client.WorkerCount(ctx, DefaultQueue)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
