// Package rust parses cargo manifests.
package rust

import (
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/depscout/depscout/pkg/manifest"
)

// CargoToml parses Cargo.toml dependency tables, including dev and build
// dependencies and target-specific tables. Renamed dependencies use the
// package key as the crate name when present.
type CargoToml struct{}

func (c *CargoToml) Type() string                  { return "Cargo.toml" }
func (c *CargoToml) Ecosystem() manifest.Ecosystem { return manifest.EcosystemCargo }
func (c *CargoToml) Supports(name string) bool     { return strings.EqualFold(name, "cargo.toml") }

func (c *CargoToml) Parse(path string, data []byte) ([]manifest.Reference, error) {
	var cargo cargoFile
	if err := toml.Unmarshal(data, &cargo); err != nil {
		return nil, err
	}

	var refs []manifest.Reference
	seen := make(map[string]bool)
	add := func(key string, spec any) {
		name, version, registry := crateSpec(key, spec)
		if !registry || seen[name] {
			return
		}
		seen[name] = true
		refs = append(refs, manifest.Reference{
			Ecosystem: manifest.EcosystemCargo,
			Name:      name,
			Version:   version,
			Path:      path,
		})
	}

	for _, table := range []map[string]any{
		cargo.Dependencies, cargo.DevDependencies, cargo.BuildDependencies,
	} {
		for key, spec := range table {
			add(key, spec)
		}
	}
	for _, target := range cargo.Target {
		for _, table := range []map[string]any{
			target.Dependencies, target.DevDependencies, target.BuildDependencies,
		} {
			for key, spec := range table {
				add(key, spec)
			}
		}
	}
	return refs, nil
}

// crateSpec resolves a dependency entry into (crate name, version) and
// reports whether it resolves against a registry at all. Path and git
// dependencies never touch crates.io, so they carry no claim risk there.
func crateSpec(key string, spec any) (name, version string, registry bool) {
	name = key
	switch v := spec.(type) {
	case string:
		return name, v, true
	case map[string]any:
		if p, ok := v["package"].(string); ok && p != "" {
			name = p
		}
		if _, ok := v["path"]; ok {
			return name, "", false
		}
		if _, ok := v["git"]; ok {
			return name, "", false
		}
		if s, ok := v["version"].(string); ok {
			version = s
		}
		return name, version, true
	default:
		return name, "", true
	}
}

type cargoFile struct {
	Package struct {
		Name    string `toml:"name"`
		Version string `toml:"version"`
	} `toml:"package"`
	Dependencies      map[string]any `toml:"dependencies"`
	DevDependencies   map[string]any `toml:"dev-dependencies"`
	BuildDependencies map[string]any `toml:"build-dependencies"`
	Target            map[string]struct {
		Dependencies      map[string]any `toml:"dependencies"`
		DevDependencies   map[string]any `toml:"dev-dependencies"`
		BuildDependencies map[string]any `toml:"build-dependencies"`
	} `toml:"target"`
}

var _ manifest.Parser = (*CargoToml)(nil)
