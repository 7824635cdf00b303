package descriptor

// Category classifies a tool's broad purpose. The set is fixed; loaders
// reject descriptors declaring a category outside it.
type Category string

const (
	CategoryDataRetrieval    Category = "data_retrieval"
	CategoryDataManipulation Category = "data_manipulation"
	CategoryCommunication    Category = "communication"
	CategoryComputation      Category = "computation"
	CategoryFileOperations   Category = "file_operations"
	CategoryAPIIntegration   Category = "api_integration"
	CategoryAutomation       Category = "automation"
	CategoryMonitoring       Category = "monitoring"
	CategorySecurity         Category = "security"
	CategoryOther            Category = "other"
)

var knownCategories = map[Category]bool{
	CategoryDataRetrieval:    true,
	CategoryDataManipulation: true,
	CategoryCommunication:    true,
	CategoryComputation:      true,
	CategoryFileOperations:   true,
	CategoryAPIIntegration:   true,
	CategoryAutomation:       true,
	CategoryMonitoring:       true,
	CategorySecurity:         true,
	CategoryOther:            true,
}

// Valid reports whether the category is one of the fixed enumeration values.
func (c Category) Valid() bool {
	return knownCategories[c]
}

// Protocol names the invocation mechanism for a tool. The adapter
// registry is an open set, so values beyond the built-in constants are
// legal as long as an adapter is registered for them.
type Protocol string

const (
	// ProtocolFunctionCall invokes an in-process registered function.
	ProtocolFunctionCall Protocol = "function_call"

	// ProtocolHTTP invokes a remote HTTP endpoint.
	ProtocolHTTP Protocol = "http"

	// ProtocolCLI invokes a local command-line program.
	ProtocolCLI Protocol = "cli"
)

// ErrorType is the closed failure taxonomy shared by the classifier and
// the policy lookup. Every runtime failure maps to exactly one of these.
type ErrorType string

const (
	ErrorTimeout       ErrorType = "timeout"
	ErrorRateLimit     ErrorType = "rate_limit"
	ErrorInvalidInput  ErrorType = "invalid_input"
	ErrorInvalidOutput ErrorType = "invalid_output"
	ErrorTransport     ErrorType = "transport_error"
	ErrorUnknown       ErrorType = "unknown"
)

var knownErrorTypes = map[ErrorType]bool{
	ErrorTimeout:       true,
	ErrorRateLimit:     true,
	ErrorInvalidInput:  true,
	ErrorInvalidOutput: true,
	ErrorTransport:     true,
	ErrorUnknown:       true,
}

// Valid reports whether the error type is one of the fixed taxonomy values.
func (e ErrorType) Valid() bool {
	return knownErrorTypes[e]
}

// ErrorTypes returns the taxonomy in a stable order.
func ErrorTypes() []ErrorType {
	return []ErrorType{
		ErrorTimeout,
		ErrorRateLimit,
		ErrorInvalidInput,
		ErrorInvalidOutput,
		ErrorTransport,
		ErrorUnknown,
	}
}

// Confidence grades how strongly a trigger indicates this tool.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Weight returns the selector multiplier for this confidence grade.
// Unrecognized grades weigh like low-confidence triggers.
func (c Confidence) Weight() float64 {
	switch c {
	case ConfidenceHigh:
		return 1.0
	case ConfidenceMedium:
		return 0.7
	default:
		return 0.4
	}
}

// Trigger describes a situation in which this tool should be used.
type Trigger struct {
	// Trigger is the keyword phrase matched against user queries.
	Trigger string `json:"trigger" yaml:"trigger"`

	// Confidence grades how strongly a match indicates this tool.
	Confidence Confidence `json:"confidence" yaml:"confidence"`

	// Examples are literal query fragments that indicate this trigger.
	Examples []string `json:"examples,omitempty" yaml:"examples,omitempty"`
}

// AntiPattern describes a situation in which this tool should NOT be used.
type AntiPattern struct {
	// Scenario is the situation to avoid, matched against user queries.
	Scenario string `json:"scenario" yaml:"scenario"`

	// Reason explains why the tool is a poor fit for the scenario.
	Reason string `json:"reason" yaml:"reason"`
}

// Guidance is the ordered usage guidance consumed by the selector.
type Guidance struct {
	Triggers     []Trigger     `json:"when_to_use,omitempty" yaml:"when_to_use,omitempty"`
	AntiPatterns []AntiPattern `json:"anti_patterns,omitempty" yaml:"anti_patterns,omitempty"`
}

// PerformanceHints is read-only advisory metadata consumed by the
// selector. The engine never enforces any of it.
type PerformanceHints struct {
	// P50LatencyMS is the advisory median latency in milliseconds.
	P50LatencyMS int64 `json:"p50_latency_ms,omitempty" yaml:"p50_latency_ms,omitempty"`

	// P95LatencyMS is the advisory 95th-percentile latency in milliseconds.
	P95LatencyMS int64 `json:"p95_latency_ms,omitempty" yaml:"p95_latency_ms,omitempty"`

	// CostPerCall is the advisory cost of one invocation, in arbitrary units.
	CostPerCall float64 `json:"cost_per_call,omitempty" yaml:"cost_per_call,omitempty"`

	// RateLimitPerMin is the advisory upstream rate limit.
	RateLimitPerMin int `json:"rate_limit_per_min,omitempty" yaml:"rate_limit_per_min,omitempty"`
}
