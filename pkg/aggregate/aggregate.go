// Package aggregate collapses raw package references into canonical
// package identities with full provenance.
package aggregate

import (
	"sort"
	"sync"

	"github.com/depscout/depscout/pkg/manifest"
)

// Key is the deduplication identity: ecosystem plus normalized name.
type Key struct {
	Ecosystem manifest.Ecosystem `json:"ecosystem"`
	Name      string             `json:"name"`
}

// CanonicalPackage is one deduplicated package identity together with
// every place it was observed.
type CanonicalPackage struct {
	Key  Key                  `json:"key"`
	Refs []manifest.Reference `json:"refs"`
}

// RepoCount returns how many distinct repositories reference the package.
func (p *CanonicalPackage) RepoCount() int {
	repos := make(map[string]bool)
	for _, r := range p.Refs {
		repos[r.Repo] = true
	}
	return len(repos)
}

// Table accumulates references into canonical packages. Safe for
// concurrent use: repository workers feed it as they finish, aggregation
// is commutative and idempotent by key. A Table starts empty and lives
// for one run.
type Table struct {
	mu   sync.Mutex
	pkgs map[Key]*CanonicalPackage
	seen map[manifest.Reference]bool
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		pkgs: make(map[Key]*CanonicalPackage),
		seen: make(map[manifest.Reference]bool),
	}
}

// Add merges references into the table. Exact-duplicate references (same
// provenance, same declaration) collapse; references with equal canonical
// keys but different provenance accumulate under one package.
func (t *Table) Add(refs ...manifest.Reference) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, ref := range refs {
		name := Normalize(ref.Ecosystem, ref.Name)
		if name == "" {
			continue
		}
		if t.seen[ref] {
			continue
		}
		t.seen[ref] = true

		key := Key{Ecosystem: ref.Ecosystem, Name: name}
		pkg, ok := t.pkgs[key]
		if !ok {
			pkg = &CanonicalPackage{Key: key}
			t.pkgs[key] = pkg
		}
		pkg.Refs = append(pkg.Refs, ref)
	}
}

// Len returns the number of canonical packages.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pkgs)
}

// Packages returns a deterministic snapshot: packages sorted by key,
// provenance within each package sorted by (repo, commit, path, line).
// The snapshot is identical regardless of the order references arrived.
func (t *Table) Packages() []CanonicalPackage {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]CanonicalPackage, 0, len(t.pkgs))
	for _, pkg := range t.pkgs {
		refs := make([]manifest.Reference, len(pkg.Refs))
		copy(refs, pkg.Refs)
		sort.Slice(refs, func(i, j int) bool {
			a, b := refs[i], refs[j]
			if a.Repo != b.Repo {
				return a.Repo < b.Repo
			}
			if a.Commit != b.Commit {
				return a.Commit < b.Commit
			}
			if a.Path != b.Path {
				return a.Path < b.Path
			}
			if a.Line != b.Line {
				return a.Line < b.Line
			}
			return a.Version < b.Version
		})
		out = append(out, CanonicalPackage{Key: pkg.Key, Refs: refs})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Key.Ecosystem != out[j].Key.Ecosystem {
			return out[i].Key.Ecosystem < out[j].Key.Ecosystem
		}
		return out[i].Key.Name < out[j].Key.Name
	})
	return out
}
