package descriptor

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zero-day-ai/aitool"
	"github.com/zero-day-ai/aitool/schema"
)

// document is the on-disk shape of an .aitool.json / .aitool.yaml file.
type document struct {
	Manifest struct {
		ID          string   `json:"id" yaml:"id"`
		Name        string   `json:"name" yaml:"name"`
		Version     string   `json:"version" yaml:"version"`
		DisplayName string   `json:"display_name,omitempty" yaml:"display_name,omitempty"`
		Description string   `json:"description,omitempty" yaml:"description,omitempty"`
		Category    string   `json:"category" yaml:"category"`
		Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	} `json:"manifest" yaml:"manifest"`

	Execution struct {
		Endpoint   map[string]any `json:"endpoint" yaml:"endpoint"`
		Parameters schema.JSON    `json:"parameters" yaml:"parameters"`
		Returns    struct {
			SuccessSchema schema.JSON `json:"success_schema" yaml:"success_schema"`
		} `json:"returns" yaml:"returns"`
		TimeoutMS int64 `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
	} `json:"execution" yaml:"execution"`

	UsageGuidance Guidance `json:"usage_guidance" yaml:"usage_guidance"`

	ErrorHandling []errorHandlerDoc `json:"error_handling,omitempty" yaml:"error_handling,omitempty"`

	Performance *PerformanceHints `json:"performance,omitempty" yaml:"performance,omitempty"`

	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
}

type errorHandlerDoc struct {
	ErrorType string      `json:"error_type" yaml:"error_type"`
	Recovery  recoveryDoc `json:"recovery" yaml:"recovery"`
}

type recoveryDoc struct {
	Strategy      string  `json:"strategy" yaml:"strategy"`
	MaxAttempts   *int    `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	MaxRetries    *int    `json:"max_retries,omitempty" yaml:"max_retries,omitempty"`
	BackoffMS     []int64 `json:"backoff_ms,omitempty" yaml:"backoff_ms,omitempty"`
	WaitMS        *int64  `json:"wait_ms,omitempty" yaml:"wait_ms,omitempty"`
	FallbackTool  string  `json:"fallback_tool,omitempty" yaml:"fallback_tool,omitempty"`
	MessageToUser string  `json:"message_to_user,omitempty" yaml:"message_to_user,omitempty"`
}

// Load parses a descriptor document from raw bytes. The format is JSON
// unless yamlFormat is set. The returned descriptor has passed Validate.
func Load(data []byte, yamlFormat bool) (*Descriptor, error) {
	const op = "descriptor.Load"

	var doc document
	var err error
	if yamlFormat {
		err = yaml.Unmarshal(data, &doc)
	} else {
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, &aitool.Error{Op: op, Kind: aitool.KindValidation,
			Err: fmt.Errorf("%w: %v", aitool.ErrInvalidDescriptor, err)}
	}

	return doc.toDescriptor()
}

// LoadFile loads a single descriptor from an .aitool.json or
// .aitool.yaml file.
func LoadFile(path string) (*Descriptor, error) {
	const op = "descriptor.LoadFile"

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &aitool.Error{Op: op, Kind: aitool.KindNotFound, Err: err,
			Context: map[string]any{"path": path}}
	}

	yamlFormat := strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml")
	d, err := Load(data, yamlFormat)
	if err != nil {
		return nil, &aitool.Error{Op: op, Kind: aitool.KindValidation, Err: err,
			Context: map[string]any{"path": path}}
	}
	return d, nil
}

// LoadDir walks a directory tree and loads every *.aitool.json,
// *.aitool.yaml, and *.aitool.yml file found. Loading is strict: the
// first malformed descriptor aborts the walk, since a partially loaded
// tool set is worse than a loud failure at startup.
func LoadDir(dir string) ([]*Descriptor, error) {
	const op = "descriptor.LoadDir"

	var out []*Descriptor
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !isDescriptorFile(path) {
			return nil
		}
		d, err := LoadFile(path)
		if err != nil {
			return err
		}
		out = append(out, d)
		return nil
	})
	if err != nil {
		if _, ok := err.(*aitool.Error); ok {
			return nil, err
		}
		return nil, &aitool.Error{Op: op, Kind: aitool.KindConfiguration, Err: err,
			Context: map[string]any{"dir": dir}}
	}

	return out, nil
}

func isDescriptorFile(path string) bool {
	return strings.HasSuffix(path, ".aitool.json") ||
		strings.HasSuffix(path, ".aitool.yaml") ||
		strings.HasSuffix(path, ".aitool.yml")
}

// toDescriptor converts a parsed document into a validated Descriptor.
func (doc *document) toDescriptor() (*Descriptor, error) {
	const op = "descriptor.Load"

	protocol, err := endpointProtocol(doc.Execution.Endpoint)
	if err != nil {
		return nil, &aitool.Error{Op: op, Kind: aitool.KindValidation,
			Err: fmt.Errorf("%w: %v", aitool.ErrInvalidDescriptor, err)}
	}

	policies := make(map[ErrorType]RecoveryPolicy, len(doc.ErrorHandling))
	for _, handler := range doc.ErrorHandling {
		errType := ErrorType(handler.ErrorType)
		if !errType.Valid() {
			return nil, &aitool.Error{Op: op, Kind: aitool.KindValidation,
				Err: fmt.Errorf("%w: unknown error_type %q in error_handling",
					aitool.ErrInvalidDescriptor, handler.ErrorType)}
		}
		policy, err := handler.Recovery.toPolicy()
		if err != nil {
			return nil, &aitool.Error{Op: op, Kind: aitool.KindValidation,
				Err: fmt.Errorf("%w: error_handling for %q: %v",
					aitool.ErrInvalidDescriptor, handler.ErrorType, err)}
		}
		policies[errType] = policy
	}

	d := &Descriptor{
		ID:              doc.Manifest.ID,
		Name:            doc.Manifest.Name,
		Version:         doc.Manifest.Version,
		DisplayName:     doc.Manifest.DisplayName,
		Description:     doc.Manifest.Description,
		Category:        Category(doc.Manifest.Category),
		Tags:            doc.Manifest.Tags,
		Protocol:        protocol,
		Endpoint:        doc.Execution.Endpoint,
		ParameterSchema: doc.Execution.Parameters,
		ReturnSchema:    doc.Execution.Returns.SuccessSchema,
		Guidance:        doc.UsageGuidance,
		ErrorPolicies:   policies,
		Hints:           doc.Performance,
		Dependencies:    doc.Dependencies,
		Timeout:         time.Duration(doc.Execution.TimeoutMS) * time.Millisecond,
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}

	return d, nil
}

// endpointProtocol extracts the protocol tag from endpoint data.
// "protocol" is the canonical key; "type" is accepted for documents
// authored against the original manifest layout.
func endpointProtocol(endpoint map[string]any) (Protocol, error) {
	for _, key := range []string{"protocol", "type"} {
		if raw, ok := endpoint[key]; ok {
			s, ok := raw.(string)
			if !ok || s == "" {
				return "", fmt.Errorf("endpoint.%s must be a non-empty string", key)
			}
			return Protocol(s), nil
		}
	}
	return "", fmt.Errorf("endpoint.protocol is required")
}

// toPolicy converts a recovery document into its tagged-union variant,
// enforcing per-variant required fields.
func (r recoveryDoc) toPolicy() (RecoveryPolicy, error) {
	var policy RecoveryPolicy

	switch PolicyKind(r.Strategy) {
	case PolicyRetry:
		attempts, ok := r.attempts()
		if !ok {
			return nil, fmt.Errorf("retry: max_attempts is required")
		}
		policy = Retry{MaxAttempts: attempts}

	case PolicyRetryWithBackoff:
		attempts, ok := r.attempts()
		if !ok {
			return nil, fmt.Errorf("retry_with_backoff: max_attempts is required")
		}
		policy = RetryWithBackoff{MaxAttempts: attempts, BackoffScheduleMS: r.BackoffMS}

	case PolicyWaitAndRetry:
		if r.WaitMS == nil {
			return nil, fmt.Errorf("wait_and_retry: wait_ms is required")
		}
		policy = WaitAndRetry{WaitMS: *r.WaitMS}

	case PolicyAlternateTool:
		policy = AlternateTool{FallbackToolID: r.FallbackTool}

	case PolicyFail:
		policy = Fail{}

	case PolicyPromptUser:
		policy = PromptUser{Message: r.MessageToUser}

	default:
		return nil, fmt.Errorf("unknown recovery strategy %q", r.Strategy)
	}

	if err := policy.Validate(); err != nil {
		return nil, err
	}

	return policy, nil
}

// attempts returns the declared attempt budget, honoring both the
// canonical max_attempts key and the legacy max_retries spelling.
func (r recoveryDoc) attempts() (int, bool) {
	if r.MaxAttempts != nil {
		return *r.MaxAttempts, true
	}
	if r.MaxRetries != nil {
		return *r.MaxRetries, true
	}
	return 0, false
}
