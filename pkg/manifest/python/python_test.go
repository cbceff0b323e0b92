package python

import (
	"testing"

	"github.com/depscout/depscout/pkg/manifest"
)

func findRef(refs []manifest.Reference, name string) *manifest.Reference {
	for i := range refs {
		if refs[i].Name == name {
			return &refs[i]
		}
	}
	return nil
}

func TestRequirementsSupports(t *testing.T) {
	r := &Requirements{}
	tests := []struct {
		name string
		want bool
	}{
		{"requirements.txt", true},
		{"requirements-dev.txt", true},
		{"requirements_test.txt", true},
		{"requirements.in", false},
		{"setup.py", false},
	}
	for _, tt := range tests {
		if got := r.Supports(tt.name); got != tt.want {
			t.Errorf("Supports(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestRequirementsParse(t *testing.T) {
	data := []byte(`# pinned deps
requests==2.28.1
acme-internal-utils==2.1
Django>=4.0,<5.0  # web framework
flask[async]>=2.0 ; python_version >= "3.8"

-r other.txt
--index-url https://pypi.internal/simple
git+https://github.com/acme/private.git#egg=private
https://files.example.com/pkg.tar.gz
`)

	refs, err := (&Requirements{}).Parse("requirements.txt", data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(refs) != 4 {
		t.Fatalf("got %d references, want 4: %+v", len(refs), refs)
	}

	if r := findRef(refs, "acme-internal-utils"); r == nil {
		t.Fatal("missing acme-internal-utils")
	} else {
		if r.Version != "==2.1" {
			t.Errorf("version = %q", r.Version)
		}
		if r.Line != 3 {
			t.Errorf("line = %d, want 3", r.Line)
		}
	}

	if r := findRef(refs, "flask"); r == nil {
		t.Fatal("missing flask")
	} else if r.Version != ">=2.0" {
		t.Errorf("flask version = %q, marker should be stripped", r.Version)
	}

	// Case preserved; normalization is the aggregator's job.
	if findRef(refs, "Django") == nil {
		t.Error("Django should keep its declared case")
	}
}

func TestRequirementsEmpty(t *testing.T) {
	refs, err := (&Requirements{}).Parse("requirements.txt", []byte("# nothing here\n\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(refs) != 0 {
		t.Errorf("got %d references, want 0", len(refs))
	}
}

func TestPyProjectParsePEP621(t *testing.T) {
	data := []byte(`
[project]
name = "acme-tool"
dependencies = [
    "requests>=2.28",
    "click",
    "pydantic[email]>=2.0",
]

[project.optional-dependencies]
dev = ["pytest>=7.0"]
`)

	refs, err := (&PyProject{}).Parse("pyproject.toml", data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(refs) != 4 {
		t.Fatalf("got %d references, want 4: %+v", len(refs), refs)
	}
	if r := findRef(refs, "pydantic"); r == nil {
		t.Error("extras should be stripped from the name")
	} else if r.Version != ">=2.0" {
		t.Errorf("pydantic version = %q", r.Version)
	}
	if findRef(refs, "pytest") == nil {
		t.Error("optional-dependencies should be included")
	}
}

func TestPyProjectParsePoetry(t *testing.T) {
	data := []byte(`
[tool.poetry]
name = "acme-tool"

[tool.poetry.dependencies]
python = "^3.11"
httpx = "^0.27"
rich = { version = "^13.0", optional = true }

[tool.poetry.group.dev.dependencies]
pytest = "^8.0"
`)

	refs, err := (&PyProject{}).Parse("pyproject.toml", data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if findRef(refs, "python") != nil {
		t.Error("the python interpreter constraint is not a package")
	}
	if r := findRef(refs, "httpx"); r == nil || r.Version != "^0.27" {
		t.Errorf("httpx = %+v", r)
	}
	if r := findRef(refs, "rich"); r == nil || r.Version != "^13.0" {
		t.Errorf("rich table spec should yield its version, got %+v", r)
	}
	if findRef(refs, "pytest") == nil {
		t.Error("poetry group dependencies should be included")
	}
}

func TestPyProjectMalformed(t *testing.T) {
	if _, err := (&PyProject{}).Parse("pyproject.toml", []byte("[project\nbroken")); err == nil {
		t.Error("expected error on malformed TOML")
	}
}

func TestSetupPyParse(t *testing.T) {
	data := []byte(`
from setuptools import setup

setup(
    name="acme-tool",
    install_requires=[
        "requests>=2.28",
        'acme-internal-core==1.0',
    ],
    tests_require=["pytest"],
)
`)

	refs, err := (&SetupPy{}).Parse("setup.py", data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(refs) != 3 {
		t.Fatalf("got %d references, want 3: %+v", len(refs), refs)
	}
	if r := findRef(refs, "acme-internal-core"); r == nil || r.Version != "==1.0" {
		t.Errorf("acme-internal-core = %+v", r)
	}
}

func TestSetupPyNoLists(t *testing.T) {
	refs, err := (&SetupPy{}).Parse("setup.py", []byte(`setup(name="x", install_requires=reqs)`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(refs) != 0 {
		t.Errorf("dynamic requirement lists should yield nothing, got %+v", refs)
	}
}
