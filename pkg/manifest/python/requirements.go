// Package python parses pip manifests: requirements files, pyproject.toml,
// and setup.py.
package python

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"

	"github.com/depscout/depscout/pkg/manifest"
)

// requirementRE splits a requirement line into name and the trailing
// specifier (extras, version constraints, markers).
var requirementRE = regexp.MustCompile(`^([a-zA-Z0-9][-a-zA-Z0-9._]*)\s*(\[[^\]]*\])?\s*(.*)$`)

// Requirements parses pip requirements files line by line. Continuation
// lines, options, VCS and URL requirements are skipped; names are kept
// verbatim (normalization happens at aggregation).
type Requirements struct{}

func (r *Requirements) Type() string                  { return "requirements.txt" }
func (r *Requirements) Ecosystem() manifest.Ecosystem { return manifest.EcosystemPip }

func (r *Requirements) Supports(name string) bool {
	return name == "requirements.txt" ||
		(strings.HasPrefix(name, "requirements") && strings.HasSuffix(name, ".txt"))
}

func (r *Requirements) Parse(path string, data []byte) ([]manifest.Reference, error) {
	var refs []manifest.Reference

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' || line[0] == '-' {
			continue
		}
		if strings.Contains(line, "://") || strings.HasPrefix(line, "git+") {
			continue
		}
		if i := strings.Index(line, "#"); i > 0 {
			line = strings.TrimSpace(line[:i])
		}

		m := requirementRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		version := strings.TrimSpace(m[3])
		if i := strings.Index(version, ";"); i >= 0 {
			version = strings.TrimSpace(version[:i])
		}
		refs = append(refs, manifest.Reference{
			Ecosystem: manifest.EcosystemPip,
			Name:      m[1],
			Version:   version,
			Path:      path,
			Line:      lineno,
		})
	}
	return refs, scanner.Err()
}

var _ manifest.Parser = (*Requirements)(nil)
