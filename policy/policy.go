// Package policy provides an optional per-module invocation gate attached
// to an execution via context. Engines that do not embed a Policy in their
// context keep the default "auto" behaviour.
package policy

import (
	"context"
	"strings"
)

// Invocation modes recognised by the module manager.
const (
	ModeAsk  = "ask"  // ask before every module invocation
	ModeAuto = "auto" // execute automatically (default)
	ModeDeny = "deny" // block execution
)

// AskFunc is invoked when Mode==ask. Returning true approves the
// invocation. Implementations may mutate the policy, for example switching
// to ModeAuto after the first approval.
type AskFunc func(
	ctx context.Context,
	moduleID string,
	inputs map[string]interface{},
	p *Policy,
) bool

// Policy holds the invocation gating settings for a workflow run.
// A nil *Policy means "execute everything automatically".
type Policy struct {
	Mode      string   // ask / auto / deny (default = auto)
	AllowList []string // whitelist of module ids (empty => all)
	BlockList []string // blacklist of module ids
	Ask       AskFunc  // used only when Mode==ask
}

// Config is the declarative, serialisable part of a Policy.
type Config struct {
	Mode      string   `json:"mode,omitempty" yaml:"mode,omitempty"`
	AllowList []string `json:"allow,omitempty" yaml:"allow,omitempty"`
	BlockList []string `json:"block,omitempty" yaml:"block,omitempty"`
}

// ToConfig converts a runtime Policy into a persistable Config.
func ToConfig(p *Policy) *Config {
	if p == nil {
		return nil
	}
	return &Config{
		Mode:      p.Mode,
		AllowList: append([]string(nil), p.AllowList...),
		BlockList: append([]string(nil), p.BlockList...),
	}
}

// FromConfig converts a stored Config back to a runtime Policy without the
// AskFunc.
func FromConfig(c *Config) *Policy {
	if c == nil {
		return nil
	}
	return &Policy{
		Mode:      c.Mode,
		AllowList: append([]string(nil), c.AllowList...),
		BlockList: append([]string(nil), c.BlockList...),
	}
}

// IsAllowed evaluates AllowList and BlockList against a module id using
// case-insensitive exact comparison. BlockList takes priority.
func (p *Policy) IsAllowed(moduleID string) bool {
	if p == nil {
		return true
	}
	normalized := strings.ToLower(moduleID)
	for _, b := range p.BlockList {
		if normalized == strings.ToLower(b) {
			return false
		}
	}
	if len(p.AllowList) == 0 {
		return true
	}
	for _, a := range p.AllowList {
		if normalized == strings.ToLower(a) {
			return true
		}
	}
	return false
}

type ctxKeyT struct{}

var ctxKey ctxKeyT

// WithPolicy embeds policy in ctx.
func WithPolicy(ctx context.Context, p *Policy) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey, p)
}

// FromContext extracts the policy, nil when absent.
func FromContext(ctx context.Context) *Policy {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxKey).(*Policy); ok {
		return v
	}
	return nil
}
