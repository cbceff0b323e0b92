// Package javascript parses npm manifests.
package javascript

import (
	"encoding/json"
	"strings"

	"github.com/depscout/depscout/pkg/manifest"
)

// PackageJSON parses package.json files. It extracts dependencies,
// devDependencies, peerDependencies, and optionalDependencies; the name
// is kept verbatim including any @scope/ prefix.
type PackageJSON struct{}

func (p *PackageJSON) Type() string                  { return "package.json" }
func (p *PackageJSON) Ecosystem() manifest.Ecosystem { return manifest.EcosystemNPM }
func (p *PackageJSON) Supports(name string) bool     { return strings.EqualFold(name, "package.json") }

func (p *PackageJSON) Parse(path string, data []byte) ([]manifest.Reference, error) {
	var pkg packageFile
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, err
	}

	var refs []manifest.Reference
	for _, section := range []map[string]string{
		pkg.Dependencies, pkg.DevDependencies, pkg.PeerDependencies, pkg.OptionalDependencies,
	} {
		for name, version := range section {
			if name == "" {
				continue
			}
			refs = append(refs, manifest.Reference{
				Ecosystem: manifest.EcosystemNPM,
				Name:      name,
				Version:   version,
				Path:      path,
			})
		}
	}
	return refs, nil
}

type packageFile struct {
	Name                 string            `json:"name"`
	Version              string            `json:"version"`
	Dependencies         map[string]string `json:"dependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
	PeerDependencies     map[string]string `json:"peerDependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
}

var _ manifest.Parser = (*PackageJSON)(nil)
