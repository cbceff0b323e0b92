// Package risk scores the reconciled package set: which names are
// claimable, which look like typosquats or dependency-confusion bait, and
// which carry suspicious naming or publish patterns.
package risk

import (
	"github.com/depscout/depscout/pkg/aggregate"
	"github.com/depscout/depscout/pkg/manifest"
)

// Kind names one rule family. A package can carry findings of several
// kinds at once.
type Kind string

const (
	// KindUnclaimed flags names with no registry entry at all; anyone can
	// register them.
	KindUnclaimed Kind = "unclaimed"

	// KindTyposquat flags names within a small edit distance of a popular
	// package in the same ecosystem.
	KindTyposquat Kind = "typosquat-candidate"

	// KindDependencyConfusion flags internal-looking names that do not
	// exist publicly; the organization likely expects a private feed to
	// serve them.
	KindDependencyConfusion Kind = "dependency-confusion-candidate"

	// KindSuspiciousPattern flags heuristic red flags in the name or the
	// registry metadata.
	KindSuspiciousPattern Kind = "suspicious-pattern"
)

// Severity orders findings for aggregation and display.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// rank maps severities onto a monotonic scale.
func (s Severity) rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Finding is one rule hit for one canonical package. Derived data, never
// mutated after creation.
type Finding struct {
	Package   aggregate.Key        `json:"package"`
	Kind      Kind                 `json:"kind"`
	Severity  Severity             `json:"severity"`
	Rationale string               `json:"rationale"`
	Refs      []manifest.Reference `json:"refs"`
}

// Level is the whole-run aggregate risk level.
type Level string

const (
	LevelLow    Level = "LOW"
	LevelMedium Level = "MEDIUM"
	LevelHigh   Level = "HIGH"
)

// AggregateLevel folds a finding set into one run-level risk level. The
// result is monotonic in both the highest severity present and the number
// of findings: adding a finding can never lower the level.
func AggregateLevel(findings []Finding) Level {
	max := 0
	for _, f := range findings {
		if r := f.Severity.rank(); r > max {
			max = r
		}
	}

	switch {
	case max >= SeverityHigh.rank() || len(findings) >= 10:
		return LevelHigh
	case max >= SeverityMedium.rank() || len(findings) >= 3:
		return LevelMedium
	default:
		return LevelLow
	}
}
