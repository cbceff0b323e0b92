package registry

import (
	"context"
	"time"

	"github.com/depscout/depscout/pkg/aggregate"
	"github.com/depscout/depscout/pkg/manifest"
)

// Verdict is the registry's answer for one canonical package. Exactly one
// verdict exists per canonical key per run.
type Verdict struct {
	Key         aggregate.Key `json:"key"`
	Exists      bool          `json:"exists"`
	Owner       string        `json:"owner,omitempty"`
	LastPublish *time.Time    `json:"last_publish,omitempty"`

	// Err records why the lookup could not be completed (retries
	// exhausted, no checker for the ecosystem, circuit open). A verdict
	// with Err set says nothing about existence and is excluded from
	// existence-based risk rules.
	Err string `json:"error,omitempty"`

	CheckedAt time.Time `json:"checked_at"`
}

// Errored reports whether the lookup failed rather than answered.
func (v Verdict) Errored() bool { return v.Err != "" }

// Checker answers existence queries against one registry.
//
// Check returns a nil error with Exists=false for a definitive not-found
// response; errors are reserved for lookups that did not produce an
// answer. Retry, rate limiting, and caching live in the Reconciler, not
// in checkers.
type Checker interface {
	Ecosystem() manifest.Ecosystem
	Check(ctx context.Context, name string) (Verdict, error)
}
