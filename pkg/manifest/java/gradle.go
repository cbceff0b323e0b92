package java

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"

	"github.com/depscout/depscout/pkg/manifest"
)

// gradleStringRE matches string-notation dependencies in both the Groovy
// and Kotlin DSLs: implementation 'group:artifact:version' and
// implementation("group:artifact:version").
var gradleStringRE = regexp.MustCompile(`(?:implementation|api|compile|compileOnly|runtimeOnly|testImplementation|testCompile|annotationProcessor|classpath)\s*\(?\s*['"]([^:'"]+):([^:'"]+)(?::([^'"]+))?['"]`)

// gradleMapRE matches map-notation dependencies:
// implementation group: 'x', name: 'y', version: 'z'.
var gradleMapRE = regexp.MustCompile(`group:\s*['"]([^'"]+)['"]\s*,\s*name:\s*['"]([^'"]+)['"](?:\s*,\s*version:\s*['"]([^'"]+)['"])?`)

// Gradle extracts maven coordinates from build.gradle and build.gradle.kts
// by pattern matching dependency declarations. Build scripts are programs,
// so declarations built from variables or helper functions are invisible.
type Gradle struct{}

func (g *Gradle) Type() string                  { return "build.gradle" }
func (g *Gradle) Ecosystem() manifest.Ecosystem { return manifest.EcosystemMaven }

func (g *Gradle) Supports(name string) bool {
	return name == "build.gradle" || name == "build.gradle.kts" ||
		name == "settings.gradle" || name == "settings.gradle.kts"
}

func (g *Gradle) Parse(path string, data []byte) ([]manifest.Reference, error) {
	var refs []manifest.Reference
	seen := make(map[string]bool)

	add := func(group, artifact, version string, line int) {
		if strings.Contains(group, "$") || strings.Contains(artifact, "$") {
			return
		}
		coord := group + ":" + artifact
		if seen[coord] {
			return
		}
		seen[coord] = true
		refs = append(refs, manifest.Reference{
			Ecosystem: manifest.EcosystemMaven,
			Name:      coord,
			Version:   version,
			Path:      path,
			Line:      line,
		})
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		if m := gradleStringRE.FindStringSubmatch(line); m != nil {
			add(m[1], m[2], m[3], lineno)
			continue
		}
		if m := gradleMapRE.FindStringSubmatch(line); m != nil {
			add(m[1], m[2], m[3], lineno)
		}
	}
	return refs, scanner.Err()
}

var _ manifest.Parser = (*Gradle)(nil)
