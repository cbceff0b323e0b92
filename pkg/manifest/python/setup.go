package python

import (
	"regexp"

	"github.com/depscout/depscout/pkg/manifest"
)

// installRequiresRE captures the install_requires / setup_requires list
// bodies out of a setup.py without executing it.
var installRequiresRE = regexp.MustCompile(`(?s)(?:install_requires|setup_requires|tests_require)\s*=\s*\[(.*?)\]`)

// quotedReqRE captures each quoted requirement string inside a list body.
var quotedReqRE = regexp.MustCompile(`['"]([^'"]+)['"]`)

// SetupPy extracts requirements from setup.py by pattern matching the
// install_requires lists. setup.py is arbitrary code, so this is best
// effort: dynamically computed requirement lists are invisible to it.
type SetupPy struct{}

func (s *SetupPy) Type() string                  { return "setup.py" }
func (s *SetupPy) Ecosystem() manifest.Ecosystem { return manifest.EcosystemPip }
func (s *SetupPy) Supports(name string) bool     { return name == "setup.py" }

func (s *SetupPy) Parse(path string, data []byte) ([]manifest.Reference, error) {
	var refs []manifest.Reference
	seen := make(map[string]bool)

	for _, list := range installRequiresRE.FindAllSubmatch(data, -1) {
		for _, q := range quotedReqRE.FindAllSubmatch(list[1], -1) {
			m := pep508NameRE.FindStringSubmatch(string(q[1]))
			if m == nil {
				continue
			}
			key := m[1] + "|" + m[3]
			if seen[key] {
				continue
			}
			seen[key] = true
			refs = append(refs, manifest.Reference{
				Ecosystem: manifest.EcosystemPip,
				Name:      m[1],
				Version:   m[3],
				Path:      path,
			})
		}
	}
	return refs, nil
}

var _ manifest.Parser = (*SetupPy)(nil)
