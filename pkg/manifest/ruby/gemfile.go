// Package ruby parses bundler Gemfiles.
package ruby

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"

	"github.com/depscout/depscout/pkg/manifest"
)

// gemRE matches a gem declaration with an optional version requirement:
// gem 'rails', '~> 7.0'.
var gemRE = regexp.MustCompile(`^gem\s+['"]([A-Za-z0-9_.-]+)['"]\s*(?:,\s*['"]([^'"]+)['"])?`)

// Gemfile parses gem declarations line by line. Gems sourced from git or a
// local path are skipped; they never resolve against rubygems. gemspec
// directives are ignored, the gemspec itself is not a supported manifest.
type Gemfile struct{}

func (g *Gemfile) Type() string                  { return "Gemfile" }
func (g *Gemfile) Ecosystem() manifest.Ecosystem { return manifest.EcosystemGem }

func (g *Gemfile) Supports(name string) bool {
	return name == "Gemfile" || name == "gems.rb"
}

func (g *Gemfile) Parse(path string, data []byte) ([]manifest.Reference, error) {
	var refs []manifest.Reference
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		m := gemRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if strings.Contains(line, "git:") || strings.Contains(line, "github:") ||
			strings.Contains(line, "path:") {
			continue
		}
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		refs = append(refs, manifest.Reference{
			Ecosystem: manifest.EcosystemGem,
			Name:      m[1],
			Version:   m[2],
			Path:      path,
			Line:      lineno,
		})
	}
	return refs, scanner.Err()
}

var _ manifest.Parser = (*Gemfile)(nil)
