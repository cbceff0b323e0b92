// Package java parses maven coordinates out of pom.xml and Gradle build
// scripts. Both feed the maven ecosystem; names are group:artifact pairs.
package java

import (
	"encoding/xml"
	"strings"

	"github.com/depscout/depscout/pkg/manifest"
)

// POM parses pom.xml dependency declarations. Coordinates with unresolved
// Maven properties in the group or artifact are skipped; a ${...} version
// is kept verbatim since name and version are independent fields.
type POM struct{}

func (p *POM) Type() string                  { return "pom.xml" }
func (p *POM) Ecosystem() manifest.Ecosystem { return manifest.EcosystemMaven }
func (p *POM) Supports(name string) bool     { return name == "pom.xml" }

func (p *POM) Parse(path string, data []byte) ([]manifest.Reference, error) {
	var pom pomProject
	if err := xml.Unmarshal(data, &pom); err != nil {
		return nil, err
	}

	var refs []manifest.Reference
	seen := make(map[string]bool)
	for _, dep := range pom.Dependencies {
		if strings.HasPrefix(dep.GroupID, "${") || strings.HasPrefix(dep.ArtifactID, "${") {
			continue
		}
		if dep.GroupID == "" || dep.ArtifactID == "" {
			continue
		}
		coord := dep.GroupID + ":" + dep.ArtifactID
		if seen[coord] {
			continue
		}
		seen[coord] = true
		refs = append(refs, manifest.Reference{
			Ecosystem: manifest.EcosystemMaven,
			Name:      coord,
			Version:   dep.Version,
			Path:      path,
		})
	}
	return refs, nil
}

type pomProject struct {
	GroupID      string          `xml:"groupId"`
	ArtifactID   string          `xml:"artifactId"`
	Version      string          `xml:"version"`
	Dependencies []pomDependency `xml:"dependencies>dependency"`
}

type pomDependency struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
	Scope      string `xml:"scope"`
	Optional   string `xml:"optional"`
}

var _ manifest.Parser = (*POM)(nil)
