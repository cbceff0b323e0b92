// Package dotnet parses nuget manifests: packages.config, SDK-style
// project files, and nuspec package definitions.
package dotnet

import (
	"encoding/xml"
	"strings"

	"github.com/depscout/depscout/pkg/manifest"
)

// PackagesConfig parses the legacy packages.config format.
type PackagesConfig struct{}

func (p *PackagesConfig) Type() string                  { return "packages.config" }
func (p *PackagesConfig) Ecosystem() manifest.Ecosystem { return manifest.EcosystemNuGet }
func (p *PackagesConfig) Supports(name string) bool {
	return strings.EqualFold(name, "packages.config")
}

func (p *PackagesConfig) Parse(path string, data []byte) ([]manifest.Reference, error) {
	var file packagesFile
	if err := xml.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	var refs []manifest.Reference
	for _, pkg := range file.Packages {
		if pkg.ID == "" {
			continue
		}
		refs = append(refs, manifest.Reference{
			Ecosystem: manifest.EcosystemNuGet,
			Name:      pkg.ID,
			Version:   pkg.Version,
			Path:      path,
		})
	}
	return refs, nil
}

type packagesFile struct {
	XMLName  xml.Name `xml:"packages"`
	Packages []struct {
		ID      string `xml:"id,attr"`
		Version string `xml:"version,attr"`
	} `xml:"package"`
}

// ProjectFile parses PackageReference items out of SDK-style .csproj,
// .vbproj, and .fsproj files.
type ProjectFile struct{}

func (p *ProjectFile) Type() string                  { return "csproj" }
func (p *ProjectFile) Ecosystem() manifest.Ecosystem { return manifest.EcosystemNuGet }

func (p *ProjectFile) Supports(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".csproj") ||
		strings.HasSuffix(lower, ".vbproj") ||
		strings.HasSuffix(lower, ".fsproj")
}

func (p *ProjectFile) Parse(path string, data []byte) ([]manifest.Reference, error) {
	var proj projectFile
	if err := xml.Unmarshal(data, &proj); err != nil {
		return nil, err
	}

	var refs []manifest.Reference
	seen := make(map[string]bool)
	for _, group := range proj.ItemGroups {
		for _, ref := range group.PackageReferences {
			if ref.Include == "" || strings.Contains(ref.Include, "$(") {
				continue
			}
			if seen[ref.Include] {
				continue
			}
			seen[ref.Include] = true
			version := ref.VersionAttr
			if version == "" {
				version = ref.VersionElem
			}
			refs = append(refs, manifest.Reference{
				Ecosystem: manifest.EcosystemNuGet,
				Name:      ref.Include,
				Version:   version,
				Path:      path,
			})
		}
	}
	return refs, nil
}

type projectFile struct {
	XMLName    xml.Name `xml:"Project"`
	ItemGroups []struct {
		PackageReferences []struct {
			Include     string `xml:"Include,attr"`
			VersionAttr string `xml:"Version,attr"`
			VersionElem string `xml:"Version"`
		} `xml:"PackageReference"`
	} `xml:"ItemGroup"`
}

// Nuspec parses dependency declarations out of .nuspec package
// definitions, both flat and per-framework group form.
type Nuspec struct{}

func (n *Nuspec) Type() string                  { return "nuspec" }
func (n *Nuspec) Ecosystem() manifest.Ecosystem { return manifest.EcosystemNuGet }

func (n *Nuspec) Supports(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".nuspec")
}

func (n *Nuspec) Parse(path string, data []byte) ([]manifest.Reference, error) {
	var spec nuspecFile
	if err := xml.Unmarshal(data, &spec); err != nil {
		return nil, err
	}

	var refs []manifest.Reference
	seen := make(map[string]bool)
	add := func(id, version string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		refs = append(refs, manifest.Reference{
			Ecosystem: manifest.EcosystemNuGet,
			Name:      id,
			Version:   version,
			Path:      path,
		})
	}

	for _, dep := range spec.Metadata.Dependencies.Dependencies {
		add(dep.ID, dep.Version)
	}
	for _, group := range spec.Metadata.Dependencies.Groups {
		for _, dep := range group.Dependencies {
			add(dep.ID, dep.Version)
		}
	}
	return refs, nil
}

type nuspecDependency struct {
	ID      string `xml:"id,attr"`
	Version string `xml:"version,attr"`
}

type nuspecFile struct {
	XMLName  xml.Name `xml:"package"`
	Metadata struct {
		ID           string `xml:"id"`
		Dependencies struct {
			Dependencies []nuspecDependency `xml:"dependency"`
			Groups       []struct {
				TargetFramework string             `xml:"targetFramework,attr"`
				Dependencies    []nuspecDependency `xml:"dependency"`
			} `xml:"group"`
		} `xml:"dependencies"`
	} `xml:"metadata"`
}

var (
	_ manifest.Parser = (*PackagesConfig)(nil)
	_ manifest.Parser = (*ProjectFile)(nil)
	_ manifest.Parser = (*Nuspec)(nil)
)
