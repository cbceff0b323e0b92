// Package manifest defines the package-reference model and the parser
// contract shared by all ecosystem parsers.
//
// Each parser turns a manifest file's bytes into zero or more References.
// Parsers are pure over their input: the same bytes always yield the same
// references, and nothing is read from disk, so the same parser serves both
// working-tree files and historical blobs from commit mining. A parse
// failure is an error for the one file only; callers record it and move on.
package manifest

import "path/filepath"

// Ecosystem identifies a package registry namespace.
type Ecosystem string

const (
	EcosystemNPM      Ecosystem = "npm"
	EcosystemPip      Ecosystem = "pip"
	EcosystemMaven    Ecosystem = "maven"
	EcosystemComposer Ecosystem = "composer"
	EcosystemCargo    Ecosystem = "cargo"
	EcosystemGo       Ecosystem = "go"
	EcosystemGem      Ecosystem = "gem"
	EcosystemNuGet    Ecosystem = "nuget"
)

// Reference is one observed package declaration. Immutable after creation.
// Parsers fill Ecosystem, Name, Version, Path, and Line; the caller stamps
// Repo and Commit when it knows where the bytes came from.
type Reference struct {
	Ecosystem Ecosystem `json:"ecosystem"`
	Name      string    `json:"name"`
	Version   string    `json:"version,omitempty"` // declared version or range, verbatim
	Repo      string    `json:"repo,omitempty"`    // org/name
	Commit    string    `json:"commit,omitempty"`  // empty means working tree
	Path      string    `json:"path"`
	Line      int       `json:"line,omitempty"` // 1-based, 0 when the format has no line info
}

// Parser extracts package references from one manifest format.
type Parser interface {
	// Parse extracts references from the manifest bytes. path is recorded
	// on each reference and may inform parsing (e.g. requirements-dev.txt).
	Parse(path string, data []byte) ([]Reference, error)
	// Supports reports whether this parser handles the given filename.
	Supports(filename string) bool
	// Ecosystem returns the registry namespace this parser's output lives in.
	Ecosystem() Ecosystem
	// Type returns the manifest type identifier (e.g. "package.json").
	Type() string
}

// Detect finds the first parser that supports the given file path.
// Unknown files are not an error; scans skip them silently.
func Detect(path string, parsers ...Parser) (Parser, bool) {
	name := filepath.Base(path)
	for _, p := range parsers {
		if p.Supports(name) {
			return p, true
		}
	}
	return nil, false
}

// Supported reports whether any parser handles the given file path.
func Supported(path string, parsers ...Parser) bool {
	_, ok := Detect(path, parsers...)
	return ok
}
