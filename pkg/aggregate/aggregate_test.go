package aggregate

import (
	"math/rand"
	"reflect"
	"sync"
	"testing"

	"github.com/depscout/depscout/pkg/manifest"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		eco  manifest.Ecosystem
		name string
		want string
	}{
		{manifest.EcosystemPip, "Django", "django"},
		{manifest.EcosystemPip, "zope.interface", "zope-interface"},
		{manifest.EcosystemPip, "acme__internal--utils", "acme-internal-utils"},
		{manifest.EcosystemNPM, "Left-Pad", "left-pad"},
		{manifest.EcosystemNPM, "@Acme/UI", "@acme/ui"},
		{manifest.EcosystemCargo, "serde_json", "serde-json"},
		{manifest.EcosystemNuGet, "Newtonsoft.Json", "newtonsoft.json"},
		{manifest.EcosystemMaven, "com.Acme:Artifact", "com.Acme:Artifact"},
		{manifest.EcosystemGo, "github.com/BurntSushi/toml", "github.com/BurntSushi/toml"},
		{manifest.EcosystemPip, "  requests ", "requests"},
		{manifest.EcosystemPip, "", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.eco, tt.name); got != tt.want {
			t.Errorf("Normalize(%s, %q) = %q, want %q", tt.eco, tt.name, got, tt.want)
		}
	}
}

func TestTableCollapsesByCanonicalKey(t *testing.T) {
	tbl := NewTable()
	tbl.Add(
		manifest.Reference{Ecosystem: manifest.EcosystemPip, Name: "Zope.Interface", Version: "==5.0", Repo: "acme/a", Path: "requirements.txt", Line: 1},
		manifest.Reference{Ecosystem: manifest.EcosystemPip, Name: "zope-interface", Version: ">=4.0", Repo: "acme/b", Path: "setup.py"},
	)

	pkgs := tbl.Packages()
	if len(pkgs) != 1 {
		t.Fatalf("got %d packages, want 1: %+v", len(pkgs), pkgs)
	}
	pkg := pkgs[0]
	if pkg.Key.Name != "zope-interface" {
		t.Errorf("key = %+v", pkg.Key)
	}
	if len(pkg.Refs) != 2 {
		t.Fatalf("both provenance entries must be kept, got %d", len(pkg.Refs))
	}
	// Different version ranges still collapse; the declared versions survive
	// on the provenance entries.
	if pkg.Refs[0].Version == pkg.Refs[1].Version {
		t.Error("distinct declared versions should both be present")
	}
	if pkg.RepoCount() != 2 {
		t.Errorf("RepoCount = %d, want 2", pkg.RepoCount())
	}
}

func TestTableSameNameDifferentEcosystem(t *testing.T) {
	tbl := NewTable()
	tbl.Add(
		manifest.Reference{Ecosystem: manifest.EcosystemNPM, Name: "left-pad", Repo: "acme/a", Path: "package.json"},
		manifest.Reference{Ecosystem: manifest.EcosystemPip, Name: "left-pad", Repo: "acme/a", Path: "requirements.txt"},
	)
	if tbl.Len() != 2 {
		t.Errorf("same name in different ecosystems must stay distinct, got %d", tbl.Len())
	}
}

func TestTableExactDuplicatesCollapse(t *testing.T) {
	ref := manifest.Reference{Ecosystem: manifest.EcosystemNPM, Name: "react", Version: "^18", Repo: "acme/a", Commit: "c1", Path: "package.json"}
	tbl := NewTable()
	tbl.Add(ref)
	tbl.Add(ref)

	pkgs := tbl.Packages()
	if len(pkgs) != 1 || len(pkgs[0].Refs) != 1 {
		t.Errorf("identical references must collapse, got %+v", pkgs)
	}
}

func TestTableOrderIndependent(t *testing.T) {
	refs := []manifest.Reference{
		{Ecosystem: manifest.EcosystemNPM, Name: "left-pad-internal", Version: "^1.0.0", Repo: "acme/site", Commit: "head", Path: "package.json"},
		{Ecosystem: manifest.EcosystemPip, Name: "acme-internal-utils", Version: "==2.1", Repo: "acme/site", Commit: "c7", Path: "requirements.txt", Line: 1},
		{Ecosystem: manifest.EcosystemNPM, Name: "Left-Pad-Internal", Repo: "acme/web", Path: "package.json"},
		{Ecosystem: manifest.EcosystemPip, Name: "acme_internal_utils", Repo: "acme/tools", Path: "requirements.txt", Line: 4},
		{Ecosystem: manifest.EcosystemGem, Name: "rails", Version: "~> 7.0", Repo: "acme/site", Path: "Gemfile", Line: 3},
	}

	base := NewTable()
	base.Add(refs...)
	want := base.Packages()

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		shuffled := make([]manifest.Reference, len(refs))
		copy(shuffled, refs)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		tbl := NewTable()
		for _, r := range shuffled {
			tbl.Add(r)
		}
		if got := tbl.Packages(); !reflect.DeepEqual(got, want) {
			t.Fatalf("permutation %d produced a different table:\ngot  %+v\nwant %+v", i, got, want)
		}
	}
}

func TestTableConcurrentAdd(t *testing.T) {
	tbl := NewTable()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				tbl.Add(manifest.Reference{
					Ecosystem: manifest.EcosystemNPM,
					Name:      "shared-pkg",
					Repo:      "acme/repo",
					Commit:    string(rune('a' + w)),
					Path:      "package.json",
					Line:      i,
				})
			}
		}(w)
	}
	wg.Wait()

	pkgs := tbl.Packages()
	if len(pkgs) != 1 {
		t.Fatalf("got %d packages, want 1", len(pkgs))
	}
	if len(pkgs[0].Refs) != 800 {
		t.Errorf("got %d refs, want 800", len(pkgs[0].Refs))
	}
}
