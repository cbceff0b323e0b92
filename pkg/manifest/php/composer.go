// Package php parses composer manifests.
package php

import (
	"encoding/json"
	"strings"

	"github.com/depscout/depscout/pkg/manifest"
)

// ComposerJSON parses composer.json require and require-dev sections.
// Platform requirements (php itself, ext-*, lib-*) are not packages and
// are skipped.
type ComposerJSON struct{}

func (c *ComposerJSON) Type() string                  { return "composer.json" }
func (c *ComposerJSON) Ecosystem() manifest.Ecosystem { return manifest.EcosystemComposer }
func (c *ComposerJSON) Supports(name string) bool     { return name == "composer.json" }

func (c *ComposerJSON) Parse(path string, data []byte) ([]manifest.Reference, error) {
	var file composerFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	var refs []manifest.Reference
	for _, section := range []map[string]string{file.Require, file.RequireDev} {
		for name, version := range section {
			if isPlatformRequirement(name) {
				continue
			}
			refs = append(refs, manifest.Reference{
				Ecosystem: manifest.EcosystemComposer,
				Name:      name,
				Version:   version,
				Path:      path,
			})
		}
	}
	return refs, nil
}

// isPlatformRequirement reports whether a composer require key names the
// runtime environment rather than a registry package. Real packages are
// always vendor/name pairs.
func isPlatformRequirement(name string) bool {
	return !strings.Contains(name, "/")
}

type composerFile struct {
	Name       string            `json:"name"`
	Require    map[string]string `json:"require"`
	RequireDev map[string]string `json:"require-dev"`
}

var _ manifest.Parser = (*ComposerJSON)(nil)
