package types

import (
	"context"
	"time"
)

// Capability classifies what a module contributes to a study pipeline.
type Capability string

const (
	CapabilityParsing      Capability = "parsing"
	CapabilityExtraction   Capability = "extraction"
	CapabilityExport       Capability = "export"
	CapabilityCompliance   Capability = "compliance"
	CapabilityNotification Capability = "notification"
	CapabilityIntegration  Capability = "integration"
)

// ModuleStatus tracks a module through its lifecycle.
type ModuleStatus string

const (
	StatusRegistered  ModuleStatus = "registered"
	StatusInitialized ModuleStatus = "initialized"
	StatusActive      ModuleStatus = "active"
	StatusDisabled    ModuleStatus = "disabled"
	StatusError       ModuleStatus = "error"
)

// Config carries per-module configuration supplied at registration.
type Config struct {
	Enabled   bool           `yaml:"enabled" json:"enabled"`
	Priority  int            `yaml:"priority" json:"priority"`
	Critical  bool           `yaml:"critical,omitempty" json:"critical,omitempty"`
	Settings  map[string]any `yaml:"settings,omitempty" json:"settings,omitempty"`
	DependsOn []string       `yaml:"dependsOn,omitempty" json:"dependsOn,omitempty"`
}

// Descriptor identifies a module and its runtime state.
type Descriptor struct {
	ID         string       `yaml:"id" json:"id"`
	Name       string       `yaml:"name" json:"name"`
	Version    string       `yaml:"version" json:"version"`
	Capability Capability   `yaml:"capability" json:"capability"`
	Config     *Config      `yaml:"config,omitempty" json:"config,omitempty"`
	Status     ModuleStatus `yaml:"status,omitempty" json:"status,omitempty"`
}

// Handler is the contract every module implements.
type Handler interface {
	Init(ctx context.Context) error
	Execute(ctx context.Context, invocation *Invocation) (*Result, error)
	Destroy(ctx context.Context) error
}

// Invocation carries the resolved inputs for a single module execution.
type Invocation struct {
	ModuleID    string         `json:"moduleId"`
	Inputs      map[string]any `json:"inputs,omitempty"`
	StudyID     string         `json:"studyId,omitempty"`
	Initiator   string         `json:"initiator,omitempty"`
	Environment string         `json:"environment,omitempty"`
	StartedAt   time.Time      `json:"startedAt"`
}

// Input returns a named input value.
func (i *Invocation) Input(name string) (any, bool) {
	if i.Inputs == nil {
		return nil, false
	}
	value, ok := i.Inputs[name]
	return value, ok
}

// ResultStatus indicates the overall outcome of a module execution.
type ResultStatus string

const (
	ResultSuccess ResultStatus = "success"
	ResultWarning ResultStatus = "warning"
	ResultError   ResultStatus = "error"
)

// Metrics holds execution measurements reported by a module.
type Metrics struct {
	ExecutionTimeMs int64            `json:"executionTimeMs"`
	Counters        map[string]int64 `json:"counters,omitempty"`
}

// Result is the structured outcome of a module execution.
type Result struct {
	ModuleID        string         `json:"moduleId"`
	Status          ResultStatus   `json:"status"`
	Payload         map[string]any `json:"payload,omitempty"`
	Messages        []string       `json:"messages,omitempty"`
	Warnings        []string       `json:"warnings,omitempty"`
	Errors          []string       `json:"errors,omitempty"`
	Metrics         *Metrics       `json:"metrics,omitempty"`
	Recommendations []string       `json:"recommendations,omitempty"`
}

// NewResult returns a success result for the supplied module.
func NewResult(moduleID string) *Result {
	return &Result{ModuleID: moduleID, Status: ResultSuccess, Payload: map[string]any{}}
}

// NewErrorResult returns an error result carrying the supplied message.
func NewErrorResult(moduleID string, message string) *Result {
	return &Result{ModuleID: moduleID, Status: ResultError, Errors: []string{message}}
}

// IsError returns true when the result reports an error status.
func (r *Result) IsError() bool { return r != nil && r.Status == ResultError }

// AddWarning appends a warning and downgrades a success status to warning.
func (r *Result) AddWarning(message string) {
	r.Warnings = append(r.Warnings, message)
	if r.Status == ResultSuccess {
		r.Status = ResultWarning
	}
}
