package risk

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/depscout/depscout/pkg/aggregate"
	"github.com/depscout/depscout/pkg/manifest"
	"github.com/depscout/depscout/pkg/registry"
)

// Options tune the classification rules.
type Options struct {
	// InternalPrefixes mark names the organization considers private, e.g.
	// "acme-" or "@acme/". Matched case-insensitively against the
	// canonical name.
	InternalPrefixes []string

	// EditDistanceThreshold is the maximum Levenshtein distance to a
	// popular name that still counts as a typosquat candidate.
	EditDistanceThreshold int

	// Popular overrides the built-in popularity lists when non-nil.
	Popular map[manifest.Ecosystem][]string

	// RecentPublishWindow flags packages first seen on the registry this
	// recently while already referenced across several repositories.
	RecentPublishWindow time.Duration

	// Now is the classification instant; zero means time.Now.
	Now time.Time
}

func (o *Options) defaults() {
	if o.EditDistanceThreshold <= 0 {
		o.EditDistanceThreshold = 2
	}
	if o.Popular == nil {
		o.Popular = builtinPopular()
	}
	if o.RecentPublishWindow <= 0 {
		o.RecentPublishWindow = 30 * 24 * time.Hour
	}
	if o.Now.IsZero() {
		o.Now = time.Now().UTC()
	}
}

// Classify applies every rule to every package and returns the findings in
// package order. It is a pure function of its inputs: no I/O, no clock
// reads beyond the injected instant, so identical inputs yield identical
// findings.
//
// Errored verdicts say nothing about existence, so rules that depend on a
// package being absent from (or present on) the registry skip them.
func Classify(pkgs []aggregate.CanonicalPackage, verdicts []registry.Verdict, opts Options) []Finding {
	opts.defaults()

	byKey := make(map[aggregate.Key]registry.Verdict, len(verdicts))
	for _, v := range verdicts {
		byKey[v.Key] = v
	}

	var findings []Finding
	for _, pkg := range pkgs {
		v, checked := byKey[pkg.Key]
		known := checked && !v.Errored()

		unclaimed := known && !v.Exists
		if unclaimed {
			findings = append(findings, Finding{
				Package:   pkg.Key,
				Kind:      KindUnclaimed,
				Severity:  unclaimedSeverity(pkg),
				Rationale: fmt.Sprintf("no %s registry entry; the name is open for anyone to claim", pkg.Key.Ecosystem),
				Refs:      pkg.Refs,
			})
		}

		if near, dist, ok := nearestPopular(pkg.Key, opts); ok {
			sev := SeverityMedium
			if unclaimed {
				sev = SeverityHigh
			}
			findings = append(findings, Finding{
				Package:   pkg.Key,
				Kind:      KindTyposquat,
				Severity:  sev,
				Rationale: fmt.Sprintf("edit distance %d from popular package %q", dist, near),
				Refs:      pkg.Refs,
			})
		}

		if prefix, ok := internalPrefix(pkg.Key.Name, opts.InternalPrefixes); ok && unclaimed {
			findings = append(findings, Finding{
				Package:   pkg.Key,
				Kind:      KindDependencyConfusion,
				Severity:  SeverityHigh,
				Rationale: fmt.Sprintf("internal-looking name (prefix %q) with no public registry entry; a public upload would shadow the private feed", prefix),
				Refs:      pkg.Refs,
			})
		}

		findings = append(findings, suspiciousPatterns(pkg, v, known, opts)...)
	}
	return findings
}

// unclaimedSeverity scales with fan-out: the more repositories reference
// the name, the worse a hostile claim would be.
func unclaimedSeverity(pkg aggregate.CanonicalPackage) Severity {
	switch repos := pkg.RepoCount(); {
	case repos >= 3:
		return SeverityHigh
	case repos == 2 || len(pkg.Refs) >= 5:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// nearestPopular returns the closest popular name within the threshold.
// Exact matches are the popular package itself, not a squat.
func nearestPopular(key aggregate.Key, opts Options) (string, int, bool) {
	best := ""
	bestDist := opts.EditDistanceThreshold + 1
	for _, candidate := range opts.Popular[key.Ecosystem] {
		d := editDistance(key.Name, candidate)
		if d == 0 {
			return "", 0, false
		}
		if d < bestDist {
			best, bestDist = candidate, d
		}
	}
	return best, bestDist, best != ""
}

func internalPrefix(name string, prefixes []string) (string, bool) {
	lower := strings.ToLower(name)
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(lower, strings.ToLower(p)) {
			return p, true
		}
	}
	return "", false
}

func suspiciousPatterns(pkg aggregate.CanonicalPackage, v registry.Verdict, known bool, opts Options) []Finding {
	var findings []Finding

	if hasNonASCII(pkg.Key.Name) {
		findings = append(findings, Finding{
			Package:   pkg.Key,
			Kind:      KindSuspiciousPattern,
			Severity:  SeverityMedium,
			Rationale: "name contains non-ASCII characters, a common homoglyph trick",
			Refs:      pkg.Refs,
		})
	}

	if run := punctuationRun(pkg.Key.Name); run != "" {
		findings = append(findings, Finding{
			Package:   pkg.Key,
			Kind:      KindSuspiciousPattern,
			Severity:  SeverityLow,
			Rationale: fmt.Sprintf("name contains the punctuation run %q", run),
			Refs:      pkg.Refs,
		})
	}

	if known && v.Exists && v.LastPublish != nil && pkg.RepoCount() >= 2 {
		if age := opts.Now.Sub(*v.LastPublish); age >= 0 && age <= opts.RecentPublishWindow {
			findings = append(findings, Finding{
				Package:   pkg.Key,
				Kind:      KindSuspiciousPattern,
				Severity:  SeverityMedium,
				Rationale: fmt.Sprintf("published %s ago yet already referenced by %d repositories", age.Round(time.Hour), pkg.RepoCount()),
				Refs:      pkg.Refs,
			})
		}
	}

	return findings
}

func hasNonASCII(name string) bool {
	for _, r := range name {
		if r > unicode.MaxASCII {
			return true
		}
	}
	return false
}

// punctuationRun returns the first run of two or more separator characters,
// or "" when the name has none.
func punctuationRun(name string) string {
	isSep := func(b byte) bool { return b == '-' || b == '_' || b == '.' }
	for i := 0; i < len(name); i++ {
		if !isSep(name[i]) {
			continue
		}
		j := i
		for j < len(name) && isSep(name[j]) {
			j++
		}
		if j-i >= 2 {
			return name[i:j]
		}
		i = j
	}
	return ""
}
