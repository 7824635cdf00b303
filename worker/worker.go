// Package worker runs queue-draining execution workers. A worker pops
// Invocation documents from Redis, resolves the tool descriptor from the
// registry store, executes it through the engine, and publishes an
// Outcome to the invocation's reply channel.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/zero-day-ai/aitool/component"
	"github.com/zero-day-ai/aitool/engine"
	"github.com/zero-day-ai/aitool/queue"
	"github.com/zero-day-ai/aitool/registry"
)

// Options configures the worker behavior.
type Options struct {
	// RedisURL is the Redis connection string (e.g., "redis://localhost:6379")
	RedisURL string

	// Queue is the list key to drain. If empty, uses value from
	// aitool.yaml or queue.DefaultQueue.
	Queue string

	// Concurrency is the number of worker goroutines to start.
	// If 0, uses value from aitool.yaml or default (4).
	Concurrency int

	// ShutdownTimeout is the time to wait for graceful shutdown.
	// If 0, uses value from aitool.yaml or default (30s).
	ShutdownTimeout time.Duration

	// HeartbeatInterval is the interval between health heartbeats.
	// If 0, uses value from aitool.yaml or default (10s).
	HeartbeatInterval time.Duration

	// Logger is the structured logger for worker operations.
	// If nil, a default JSON logger writing to stdout is created.
	Logger *slog.Logger

	// ComponentConfig is the parsed aitool.yaml configuration.
	// If nil, the worker will attempt to load it from the current directory.
	// Set to an empty config to skip aitool.yaml loading.
	ComponentConfig *component.Config

	// ConfigPath is the path to aitool.yaml.
	// If empty and ComponentConfig is nil, searches from current directory.
	ConfigPath string

	// Client overrides the Redis client, mainly for tests. When nil a
	// client is dialed from RedisURL.
	Client queue.Client
}

// Run starts the worker loop serving tools from the given store through
// the given engine. It connects to Redis, starts N worker goroutines
// based on Concurrency, maintains a heartbeat, and handles graceful
// shutdown on SIGTERM/SIGINT or context cancellation.
//
// Configuration priority (highest to lowest):
//  1. Explicit Options values (if non-zero)
//  2. aitool.yaml worker section
//  3. Default values
//
// Each worker goroutine:
//  1. Pops an invocation from the queue
//  2. Resolves the descriptor from the store and executes it
//  3. Publishes the outcome to the invocation's reply channel
//
// The function blocks until a shutdown signal is received, the context
// is cancelled, or an error occurs. On shutdown it waits for all
// workers to finish their current invocations before returning.
//
// Returns an error if Redis connection fails.
func Run(ctx context.Context, store *registry.Store, eng *engine.Engine, opts Options) error {
	if store == nil {
		return fmt.Errorf("store cannot be nil")
	}
	if eng == nil {
		return fmt.Errorf("engine cannot be nil")
	}

	// Load aitool.yaml if not provided
	componentCfg := opts.ComponentConfig
	if componentCfg == nil {
		var err error
		if opts.ConfigPath != "" {
			componentCfg, err = component.Load(opts.ConfigPath)
		} else {
			componentCfg, err = component.LoadFromCurrentDir()
		}
		if err != nil {
			// aitool.yaml is optional - just use defaults
			componentCfg = nil
		}
	}

	// Apply configuration with priority: explicit opts > aitool.yaml > defaults
	opts = applyComponentConfig(opts, componentCfg)

	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	// Generate unique worker ID (hostname + PID + UUID)
	workerID := generateWorkerID()

	logger := opts.Logger.With("worker_id", workerID, "queue", opts.Queue)

	logger.Info("worker starting",
		"concurrency", opts.Concurrency,
		"redis_url", opts.RedisURL,
		"tools", store.Current().Len(),
	)

	client := opts.Client
	if client == nil {
		redisClient, err := queue.NewRedisClient(queue.RedisOptions{
			URL: opts.RedisURL,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		client = redisClient
	}
	defer client.Close()

	// Context governing worker goroutine lifecycle
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := client.IncrementWorkerCount(ctx, opts.Queue); err != nil {
		logger.Error("failed to increment worker count", "error", err)
	}

	// Ensure worker count is decremented on exit (even on crash)
	defer func() {
		// Use background context for cleanup since ctx may be cancelled
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cleanupCancel()
		if err := client.DecrementWorkerCount(cleanupCtx, opts.Queue); err != nil {
			logger.Error("failed to decrement worker count", "error", err)
		}
	}()

	// Start heartbeat goroutine
	heartbeatCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go runHeartbeat(heartbeatCtx, client, workerID, opts.HeartbeatInterval, logger)

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	// Start worker goroutines
	var wg sync.WaitGroup
	for i := 0; i < opts.Concurrency; i++ {
		wg.Add(1)
		go func(workerNum int) {
			defer wg.Done()
			workerLoop(ctx, workerNum, store, eng, client, opts.Queue, workerID, logger)
		}(i)
	}

	logger.Info("worker started", "workers", opts.Concurrency)

	// Wait for shutdown signal or caller cancellation
	select {
	case sig := <-sigChan:
		logger.Info("received signal, initiating graceful shutdown", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("context cancelled, initiating graceful shutdown")
	}

	// Cancel context to stop workers and heartbeat
	cancel()

	// Wait for workers to finish with timeout
	doneChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneChan)
	}()

	select {
	case <-doneChan:
		logger.Info("worker shutdown complete")
	case <-time.After(opts.ShutdownTimeout):
		logger.Warn("worker shutdown timeout exceeded", "timeout", opts.ShutdownTimeout)
	}

	return nil
}

// runHeartbeat sends periodic heartbeats to maintain worker health status.
// It runs in a goroutine and stops when the context is cancelled.
func runHeartbeat(ctx context.Context, client queue.Client, workerID string, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Debug("heartbeat goroutine started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug("heartbeat goroutine stopped")
			return
		case <-ticker.C:
			if err := client.Heartbeat(ctx, workerID); err != nil {
				// Heartbeat failures are transient; keep the noise down
				logger.Debug("heartbeat failed", "error", err)
			}
		}
	}
}

// workerLoop is the main loop for a single worker goroutine.
// It continuously pops invocations from the queue, executes them,
// and publishes outcomes until the context is cancelled.
func workerLoop(ctx context.Context, workerNum int, store *registry.Store, eng *engine.Engine, client queue.Client, queueName, workerID string, logger *slog.Logger) {
	logger = logger.With("worker_num", workerNum)
	logger.Debug("worker loop started")

	for {
		// Check if context is cancelled before popping
		select {
		case <-ctx.Done():
			logger.Debug("worker loop stopped", "reason", "context_cancelled")
			return
		default:
		}

		// Pop invocation from queue (blocking with context)
		inv, err := client.Pop(ctx, queueName)
		if err != nil {
			// Check if context was cancelled during Pop
			if ctx.Err() != nil {
				logger.Debug("worker loop stopped", "reason", "context_error")
				return
			}
			// Log error and continue
			logger.Error("failed to pop invocation", "error", err)
			continue
		}

		if inv == nil {
			continue
		}

		logger.Info("received invocation",
			"invocation_id", inv.ID,
			"tool_id", inv.ToolID,
			"queue_wait_ms", inv.Age().Milliseconds(),
		)

		outcome := processInvocation(ctx, store, eng, *inv, workerID, logger)

		if inv.ReplyChannel == "" {
			continue
		}
		if err := client.Publish(ctx, inv.ReplyChannel, outcome); err != nil {
			logger.Error("failed to publish outcome", "error", err, "invocation_id", inv.ID)
		}
	}
}

// processInvocation executes a single invocation and returns an outcome.
// It handles all errors at each step and always returns an outcome.
func processInvocation(ctx context.Context, store *registry.Store, eng *engine.Engine, inv queue.Invocation, workerID string, logger *slog.Logger) queue.Outcome {
	startedAt := time.Now().UnixMilli()

	outcome := queue.Outcome{
		ID:        inv.ID,
		ToolID:    inv.ToolID,
		WorkerID:  workerID,
		StartedAt: startedAt,
	}

	snapshot := store.Current()
	d, ok := snapshot.Lookup(inv.ToolID)
	if !ok {
		outcome.ErrorKind = "tool_not_found"
		outcome.ErrorMessage = fmt.Sprintf("unknown tool id: %s", inv.ToolID)
		outcome.CompletedAt = time.Now().UnixMilli()
		logger.Error("unknown tool id", "tool_id", inv.ToolID, "invocation_id", inv.ID)
		return outcome
	}

	opts := engine.Options{
		DisableRecovery: inv.DisableRecovery,
		// Fallback resolution sees the same snapshot this invocation
		// resolved against.
		Lookup: snapshot.Lookup,
	}
	if inv.TimeoutMS > 0 {
		opts.TimeoutOverride = time.Duration(inv.TimeoutMS) * time.Millisecond
	}

	result := eng.Execute(ctx, d, inv.Params, opts)

	outcome.ToolID = result.ToolID
	outcome.Success = result.Success
	outcome.Output = result.Output
	outcome.NeedsInput = result.NeedsInput
	outcome.Message = result.Message
	outcome.Attempts = len(result.Attempts)
	if result.Err != nil {
		outcome.ErrorKind = string(result.Err.Kind)
		outcome.ErrorType = string(result.Err.Type)
		outcome.ErrorMessage = result.Err.Message
	}
	outcome.CompletedAt = time.Now().UnixMilli()

	if result.Success {
		logger.Info("invocation completed",
			"invocation_id", inv.ID,
			"tool_id", result.ToolID,
			"attempts", outcome.Attempts,
			"duration_ms", outcome.CompletedAt-outcome.StartedAt,
		)
	} else {
		logger.Warn("invocation failed",
			"invocation_id", inv.ID,
			"tool_id", inv.ToolID,
			"error_kind", outcome.ErrorKind,
			"error_type", outcome.ErrorType,
			"attempts", outcome.Attempts,
		)
	}

	return outcome
}

// generateWorkerID creates a unique identifier for this worker instance.
// Uses hostname + PID + UUID for uniqueness.
func generateWorkerID() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	pid := os.Getpid()

	// Add UUID suffix for additional uniqueness
	id := uuid.New().String()[:8]

	return fmt.Sprintf("%s-%d-%s", hostname, pid, id)
}

// applyComponentConfig applies aitool.yaml settings to Options.
// Explicit Options values take priority over aitool.yaml values.
func applyComponentConfig(opts Options, cfg *component.Config) Options {
	var w *component.WorkerConfig
	if cfg != nil {
		w = cfg.Worker
	}

	if opts.Concurrency <= 0 {
		opts.Concurrency = w.GetConcurrency()
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = w.GetShutdownTimeout()
	}
	if opts.HeartbeatInterval == 0 {
		opts.HeartbeatInterval = w.GetHeartbeatInterval()
	}
	if opts.Queue == "" {
		opts.Queue = w.GetQueue()
	}
	if opts.RedisURL == "" {
		opts.RedisURL = w.GetRedisURL()
	}

	return opts
}
