package manifest

import "testing"

type fakeParser struct {
	typ  string
	name string
}

func (p *fakeParser) Parse(path string, data []byte) ([]Reference, error) { return nil, nil }
func (p *fakeParser) Supports(filename string) bool                       { return filename == p.name }
func (p *fakeParser) Ecosystem() Ecosystem                                { return EcosystemNPM }
func (p *fakeParser) Type() string                                        { return p.typ }

func TestDetect(t *testing.T) {
	npm := &fakeParser{typ: "package.json", name: "package.json"}
	pip := &fakeParser{typ: "requirements.txt", name: "requirements.txt"}

	p, ok := Detect("web/frontend/package.json", npm, pip)
	if !ok {
		t.Fatal("expected a match")
	}
	if p.Type() != "package.json" {
		t.Errorf("Type = %q", p.Type())
	}

	if _, ok := Detect("README.md", npm, pip); ok {
		t.Error("README.md should not match any parser")
	}
}

func TestDetectFirstWins(t *testing.T) {
	a := &fakeParser{typ: "a", name: "dual.txt"}
	b := &fakeParser{typ: "b", name: "dual.txt"}
	p, ok := Detect("dual.txt", a, b)
	if !ok || p.Type() != "a" {
		t.Errorf("first matching parser should win, got %v", p)
	}
}

func TestSupported(t *testing.T) {
	npm := &fakeParser{typ: "package.json", name: "package.json"}
	if !Supported("a/b/package.json", npm) {
		t.Error("package.json should be supported")
	}
	if Supported("package-lock.json", npm) {
		t.Error("package-lock.json should not be supported")
	}
}
