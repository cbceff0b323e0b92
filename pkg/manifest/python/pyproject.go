package python

import (
	"regexp"

	"github.com/BurntSushi/toml"

	"github.com/depscout/depscout/pkg/manifest"
)

// pep508NameRE extracts the distribution name from a PEP 508 requirement
// string like "requests[security]>=2.28 ; python_version >= '3.8'".
var pep508NameRE = regexp.MustCompile(`^\s*([a-zA-Z0-9][-a-zA-Z0-9._]*)\s*(\[[^\]]*\])?\s*(.*)$`)

// PyProject parses pyproject.toml. It reads PEP 621 [project] dependencies
// and optional-dependencies, plus the [tool.poetry] dependency tables for
// pre-PEP-621 projects.
type PyProject struct{}

func (p *PyProject) Type() string                  { return "pyproject.toml" }
func (p *PyProject) Ecosystem() manifest.Ecosystem { return manifest.EcosystemPip }
func (p *PyProject) Supports(name string) bool     { return name == "pyproject.toml" }

func (p *PyProject) Parse(path string, data []byte) ([]manifest.Reference, error) {
	var file pyprojectFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	var refs []manifest.Reference
	add := func(name, version string) {
		if name == "" || name == "python" {
			return
		}
		refs = append(refs, manifest.Reference{
			Ecosystem: manifest.EcosystemPip,
			Name:      name,
			Version:   version,
			Path:      path,
		})
	}

	for _, req := range file.Project.Dependencies {
		if m := pep508NameRE.FindStringSubmatch(req); m != nil {
			add(m[1], m[3])
		}
	}
	for _, group := range file.Project.OptionalDependencies {
		for _, req := range group {
			if m := pep508NameRE.FindStringSubmatch(req); m != nil {
				add(m[1], m[3])
			}
		}
	}

	for _, table := range []map[string]any{
		file.Tool.Poetry.Dependencies,
		file.Tool.Poetry.DevDependencies,
	} {
		for name, spec := range table {
			add(name, poetrySpecVersion(spec))
		}
	}
	for _, group := range file.Tool.Poetry.Group {
		for name, spec := range group.Dependencies {
			add(name, poetrySpecVersion(spec))
		}
	}

	return refs, nil
}

// poetrySpecVersion extracts the version constraint from a poetry dependency
// value, which is either a bare string or a table with a version key.
func poetrySpecVersion(spec any) string {
	switch v := spec.(type) {
	case string:
		return v
	case map[string]any:
		if s, ok := v["version"].(string); ok {
			return s
		}
	}
	return ""
}

type pyprojectFile struct {
	Project struct {
		Name                 string              `toml:"name"`
		Dependencies         []string            `toml:"dependencies"`
		OptionalDependencies map[string][]string `toml:"optional-dependencies"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Name            string         `toml:"name"`
			Dependencies    map[string]any `toml:"dependencies"`
			DevDependencies map[string]any `toml:"dev-dependencies"`
			Group           map[string]struct {
				Dependencies map[string]any `toml:"dependencies"`
			} `toml:"group"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

var _ manifest.Parser = (*PyProject)(nil)
