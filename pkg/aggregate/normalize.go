package aggregate

import (
	"regexp"
	"strings"

	"github.com/depscout/depscout/pkg/manifest"
)

// pep503SeparatorRE collapses runs of pip name separators.
var pep503SeparatorRE = regexp.MustCompile(`[-_.]+`)

// Normalize applies the ecosystem's registry identity rules to a declared
// name. Version specifiers are never part of the name and must already be
// separate when this is called.
//
// Rules per registry:
//   - pip: PEP 503, lowercase with [-_.] runs collapsed to "-"
//   - npm, composer, gem, nuget: lowercase (case-insensitive registries)
//   - cargo: lowercase with "_" folded to "-" (crates.io equivalence)
//   - maven, go: case preserved (coordinates are case-sensitive)
func Normalize(eco manifest.Ecosystem, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	switch eco {
	case manifest.EcosystemPip:
		return pep503SeparatorRE.ReplaceAllString(strings.ToLower(name), "-")
	case manifest.EcosystemNPM, manifest.EcosystemComposer,
		manifest.EcosystemGem, manifest.EcosystemNuGet:
		return strings.ToLower(name)
	case manifest.EcosystemCargo:
		return strings.ReplaceAll(strings.ToLower(name), "_", "-")
	default:
		return name
	}
}
