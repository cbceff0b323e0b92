// Package golang parses go.mod files.
package golang

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/depscout/depscout/pkg/manifest"
)

// GoMod parses go.mod require directives, both single-line and block form.
// Indirect requirements are included: a confused indirect dependency is
// pulled just the same. Modules covered by a replace directive pointing at
// a local path are dropped, since they never resolve through a proxy.
type GoMod struct{}

func (g *GoMod) Type() string                  { return "go.mod" }
func (g *GoMod) Ecosystem() manifest.Ecosystem { return manifest.EcosystemGo }
func (g *GoMod) Supports(name string) bool     { return name == "go.mod" }

func (g *GoMod) Parse(path string, data []byte) ([]manifest.Reference, error) {
	type entry struct {
		version string
		line    int
	}
	required := make(map[string]entry)
	var order []string
	localReplaced := make(map[string]bool)

	inRequire := false
	inReplace := false

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		if i := strings.Index(line, "//"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}

		switch {
		case strings.HasPrefix(line, "require ("):
			inRequire = true
			continue
		case strings.HasPrefix(line, "replace ("):
			inReplace = true
			continue
		case line == ")":
			inRequire, inReplace = false, false
			continue
		case strings.HasPrefix(line, "require "):
			line = strings.TrimPrefix(line, "require ")
			if mod, ver := splitRequire(line); mod != "" {
				if _, ok := required[mod]; !ok {
					required[mod] = entry{version: ver, line: lineno}
					order = append(order, mod)
				}
			}
			continue
		case strings.HasPrefix(line, "replace "):
			if mod := localReplaceTarget(strings.TrimPrefix(line, "replace ")); mod != "" {
				localReplaced[mod] = true
			}
			continue
		}

		if inRequire {
			if mod, ver := splitRequire(line); mod != "" {
				if _, ok := required[mod]; !ok {
					required[mod] = entry{version: ver, line: lineno}
					order = append(order, mod)
				}
			}
		}
		if inReplace {
			if mod := localReplaceTarget(line); mod != "" {
				localReplaced[mod] = true
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	var refs []manifest.Reference
	for _, mod := range order {
		if localReplaced[mod] {
			continue
		}
		e := required[mod]
		refs = append(refs, manifest.Reference{
			Ecosystem: manifest.EcosystemGo,
			Name:      mod,
			Version:   e.version,
			Path:      path,
			Line:      e.line,
		})
	}
	return refs, nil
}

func splitRequire(line string) (mod, version string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", ""
	}
	mod = fields[0]
	if len(fields) > 1 {
		version = fields[1]
	}
	return mod, version
}

// localReplaceTarget returns the replaced module path when the replacement
// is a filesystem path, empty otherwise.
func localReplaceTarget(line string) string {
	parts := strings.SplitN(line, "=>", 2)
	if len(parts) != 2 {
		return ""
	}
	target := strings.Fields(strings.TrimSpace(parts[1]))
	if len(target) == 0 {
		return ""
	}
	if strings.HasPrefix(target[0], ".") || strings.HasPrefix(target[0], "/") {
		left := strings.Fields(strings.TrimSpace(parts[0]))
		if len(left) > 0 {
			return left[0]
		}
	}
	return ""
}

var _ manifest.Parser = (*GoMod)(nil)
