package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CLIAdapter invokes tools exposed as local command-line programs.
// Parameters are written to the process as a JSON document on stdin and
// the result is read as JSON from stdout.
//
// Endpoint keys: "command" (required) and "args" (optional list of
// string arguments).
type CLIAdapter struct{}

// NewCLIAdapter creates a CLI adapter.
func NewCLIAdapter() *CLIAdapter {
	return &CLIAdapter{}
}

// Invoke runs the endpoint's command once. A deadline hit kills the
// process and reports CategoryTimeout; a start failure reports
// CategoryTransport; a non-zero exit reports CategoryUnknown with the
// process's stderr as the message.
func (a *CLIAdapter) Invoke(ctx context.Context, endpoint map[string]any, params map[string]any, timeout time.Duration) (any, error) {
	command, _ := endpoint["command"].(string)
	if command == "" {
		return nil, &Error{Category: CategoryUnknown, Message: "endpoint.command is required"}
	}

	args, err := endpointArgs(endpoint)
	if err != nil {
		return nil, &Error{Category: CategoryUnknown, Message: err.Error()}
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	input, err := json.Marshal(params)
	if err != nil {
		return nil, &Error{Category: CategoryUnknown, Message: "failed to encode parameters", Cause: err}
	}

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stdin = bytes.NewReader(input)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		return nil, &Error{Category: CategoryTimeout,
			Message: fmt.Sprintf("command %q exceeded timeout %v", command, timeout),
			Cause:   ctx.Err()}
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			msg := strings.TrimSpace(stderr.String())
			if msg == "" {
				msg = runErr.Error()
			}
			return nil, &Error{Category: CategoryUnknown,
				Message:    msg,
				StatusCode: exitErr.ExitCode(),
				Cause:      runErr}
		}
		// The process never started: missing binary, permissions, etc.
		return nil, &Error{Category: CategoryTransport,
			Message: fmt.Sprintf("failed to run command %q", command),
			Cause:   runErr}
	}

	out := bytes.TrimSpace(stdout.Bytes())
	if len(out) == 0 {
		return nil, nil
	}

	var result any
	if err := json.Unmarshal(out, &result); err != nil {
		return nil, &Error{Category: CategoryUnknown, Message: "failed to decode command output", Cause: err}
	}
	return result, nil
}

func endpointArgs(endpoint map[string]any) ([]string, error) {
	raw, ok := endpoint["args"]
	if !ok {
		return nil, nil
	}

	switch list := raw.(type) {
	case []string:
		return list, nil
	case []any:
		args := make([]string, 0, len(list))
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("endpoint.args[%d] must be a string", i)
			}
			args = append(args, s)
		}
		return args, nil
	default:
		return nil, fmt.Errorf("endpoint.args must be a list of strings")
	}
}
