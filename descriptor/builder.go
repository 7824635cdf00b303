package descriptor

import (
	"time"

	"github.com/zero-day-ai/aitool/schema"
)

// Config holds the configuration for building a Descriptor in code.
// Loading from .aitool.json/.aitool.yaml files is the primary path;
// the builder exists for embedded tools and tests.
type Config struct {
	id              string
	name            string
	version         string
	description     string
	category        Category
	tags            []string
	protocol        Protocol
	endpoint        map[string]any
	parameterSchema schema.JSON
	returnSchema    schema.JSON
	guidance        Guidance
	policies        map[ErrorType]RecoveryPolicy
	hints           *PerformanceHints
	dependencies    []string
	timeout         time.Duration
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		version:         "1.0.0",
		category:        CategoryOther,
		protocol:        ProtocolFunctionCall,
		parameterSchema: schema.Object(map[string]schema.JSON{}),
		returnSchema:    schema.Any(),
		policies:        make(map[ErrorType]RecoveryPolicy),
	}
}

// SetID sets the globally unique tool id.
func (c *Config) SetID(id string) *Config {
	c.id = id
	return c
}

// SetName sets the tool name.
func (c *Config) SetName(name string) *Config {
	c.name = name
	return c
}

// SetVersion sets the tool version.
func (c *Config) SetVersion(version string) *Config {
	c.version = version
	return c
}

// SetDescription sets the tool description.
func (c *Config) SetDescription(desc string) *Config {
	c.description = desc
	return c
}

// SetCategory sets the tool category.
func (c *Config) SetCategory(cat Category) *Config {
	c.category = cat
	return c
}

// SetTags sets the tool tags.
func (c *Config) SetTags(tags []string) *Config {
	c.tags = tags
	return c
}

// SetProtocol sets the invocation protocol.
func (c *Config) SetProtocol(p Protocol) *Config {
	c.protocol = p
	return c
}

// SetEndpoint sets the protocol-specific endpoint data.
func (c *Config) SetEndpoint(endpoint map[string]any) *Config {
	c.endpoint = endpoint
	return c
}

// SetParameterSchema sets the input schema.
func (c *Config) SetParameterSchema(s schema.JSON) *Config {
	c.parameterSchema = s
	return c
}

// SetReturnSchema sets the output schema.
func (c *Config) SetReturnSchema(s schema.JSON) *Config {
	c.returnSchema = s
	return c
}

// AddTrigger appends a usage trigger.
func (c *Config) AddTrigger(text string, confidence Confidence, examples ...string) *Config {
	c.guidance.Triggers = append(c.guidance.Triggers, Trigger{
		Trigger:    text,
		Confidence: confidence,
		Examples:   examples,
	})
	return c
}

// AddAntiPattern appends an anti-pattern scenario.
func (c *Config) AddAntiPattern(scenario, reason string) *Config {
	c.guidance.AntiPatterns = append(c.guidance.AntiPatterns, AntiPattern{
		Scenario: scenario,
		Reason:   reason,
	})
	return c
}

// SetPolicy maps an error type to a recovery policy.
func (c *Config) SetPolicy(errType ErrorType, policy RecoveryPolicy) *Config {
	c.policies[errType] = policy
	return c
}

// SetHints sets the advisory performance hints.
func (c *Config) SetHints(hints PerformanceHints) *Config {
	c.hints = &hints
	return c
}

// SetDependencies sets the ids of tools this tool depends on.
func (c *Config) SetDependencies(ids ...string) *Config {
	c.dependencies = ids
	return c
}

// SetTimeout sets the declared per-attempt timeout.
func (c *Config) SetTimeout(d time.Duration) *Config {
	c.timeout = d
	return c
}

// Build constructs and validates the Descriptor.
func (c *Config) Build() (*Descriptor, error) {
	d := &Descriptor{
		ID:              c.id,
		Name:            c.name,
		Version:         c.version,
		Description:     c.description,
		Category:        c.category,
		Tags:            c.tags,
		Protocol:        c.protocol,
		Endpoint:        c.endpoint,
		ParameterSchema: c.parameterSchema,
		ReturnSchema:    c.returnSchema,
		Guidance:        c.guidance,
		ErrorPolicies:   c.policies,
		Hints:           c.hints,
		Dependencies:    c.dependencies,
		Timeout:         c.timeout,
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}

	return d, nil
}
