// Package all assembles the full parser set so callers don't import every
// ecosystem package themselves.
package all

import (
	"github.com/depscout/depscout/pkg/manifest"
	"github.com/depscout/depscout/pkg/manifest/dotnet"
	"github.com/depscout/depscout/pkg/manifest/golang"
	"github.com/depscout/depscout/pkg/manifest/java"
	"github.com/depscout/depscout/pkg/manifest/javascript"
	"github.com/depscout/depscout/pkg/manifest/php"
	"github.com/depscout/depscout/pkg/manifest/python"
	"github.com/depscout/depscout/pkg/manifest/ruby"
	"github.com/depscout/depscout/pkg/manifest/rust"
)

// Parsers returns every known parser. ecosystems filters the set when
// non-empty; unknown names are ignored.
func Parsers(ecosystems ...manifest.Ecosystem) []manifest.Parser {
	parsers := []manifest.Parser{
		&javascript.PackageJSON{},
		&python.Requirements{},
		&python.PyProject{},
		&python.SetupPy{},
		&java.POM{},
		&java.Gradle{},
		&php.ComposerJSON{},
		&rust.CargoToml{},
		&golang.GoMod{},
		&ruby.Gemfile{},
		&dotnet.PackagesConfig{},
		&dotnet.ProjectFile{},
		&dotnet.Nuspec{},
	}
	if len(ecosystems) == 0 {
		return parsers
	}

	allowed := make(map[manifest.Ecosystem]bool, len(ecosystems))
	for _, e := range ecosystems {
		allowed[e] = true
	}
	var filtered []manifest.Parser
	for _, p := range parsers {
		if allowed[p.Ecosystem()] {
			filtered = append(filtered, p)
		}
	}
	return filtered
}
