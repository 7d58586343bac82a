package modflow

import (
	"fmt"
	"time"
)

// Config is a serialisable representation of the service configuration. It
// can be populated from JSON or YAML. The zero-value is useful, nested
// fields inherit their package defaults.
type Config struct {
	Module    ModuleConfig    `json:"module" yaml:"module"`
	Engine    EngineConfig    `json:"engine" yaml:"engine"`
	Audit     AuditConfig     `json:"audit" yaml:"audit"`
	Documents DocumentsConfig `json:"documents" yaml:"documents"`
}

// ModuleConfig holds module manager settings.
type ModuleConfig struct {
	ExecuteTimeoutMs int `json:"executeTimeoutMs" yaml:"executeTimeoutMs"`
}

// EngineConfig holds workflow engine settings.
type EngineConfig struct {
	PollFrequencyMs int `json:"pollFrequencyMs" yaml:"pollFrequencyMs"`
	StepTimeoutMs   int `json:"stepTimeoutMs" yaml:"stepTimeoutMs"`
}

// AuditConfig selects the audit sink. When BaseURL is set events are
// persisted with the file-system sink, otherwise the in-memory sink is used.
type AuditConfig struct {
	BaseURL string `json:"baseURL" yaml:"baseURL"`
}

// DocumentsConfig locates the document store exposed to modules. When
// BaseURL is empty no document store is published.
type DocumentsConfig struct {
	BaseURL string `json:"baseURL" yaml:"baseURL"`
}

// DefaultConfig returns a Config populated with the same defaults the
// constructors apply on their own.
func DefaultConfig() *Config {
	return &Config{
		Module: ModuleConfig{ExecuteTimeoutMs: 30000},
		Engine: EngineConfig{PollFrequencyMs: 20},
	}
}

// Validate returns an error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Module.ExecuteTimeoutMs < 0 {
		return fmt.Errorf("module.executeTimeoutMs must be >= 0")
	}
	if c.Engine.PollFrequencyMs < 0 {
		return fmt.Errorf("engine.pollFrequencyMs must be >= 0")
	}
	if c.Engine.StepTimeoutMs < 0 {
		return fmt.Errorf("engine.stepTimeoutMs must be >= 0")
	}
	return nil
}

func (c *ModuleConfig) executeTimeout() time.Duration {
	return time.Duration(c.ExecuteTimeoutMs) * time.Millisecond
}

func (c *EngineConfig) pollFrequency() time.Duration {
	return time.Duration(c.PollFrequencyMs) * time.Millisecond
}

func (c *EngineConfig) stepTimeout() time.Duration {
	return time.Duration(c.StepTimeoutMs) * time.Millisecond
}
