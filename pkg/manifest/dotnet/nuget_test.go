package dotnet

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

func TestPackagesConfigParse(t *testing.T) {
	data := []byte(`<?xml version="1.0" encoding="utf-8"?>
<packages>
  <package id="Newtonsoft.Json" version="13.0.1" targetFramework="net48" />
  <package id="Acme.Internal.Core" version="2.1.0" targetFramework="net48" />
</packages>`)

	refs, err := (&PackagesConfig{}).Parse("packages.config", data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("got %d references, want 2", len(refs))
	}
	if r := findRef(refs, "Newtonsoft.Json"); r == nil || r.Version != "13.0.1" {
		t.Errorf("Newtonsoft.Json = %+v", r)
	}
	if r := refs[0]; r.Ecosystem != manifest.EcosystemNuGet {
		t.Errorf("ecosystem = %s", r.Ecosystem)
	}
}

func TestProjectFileParse(t *testing.T) {
	data := []byte(`<Project Sdk="Microsoft.NET.Sdk">
  <PropertyGroup>
    <TargetFramework>net8.0</TargetFramework>
  </PropertyGroup>
  <ItemGroup>
    <PackageReference Include="Serilog" Version="3.1.1" />
    <PackageReference Include="Acme.Billing">
      <Version>4.0.0</Version>
    </PackageReference>
    <PackageReference Include="$(DynamicPackage)" Version="1.0" />
    <ProjectReference Include="..\Lib\Lib.csproj" />
  </ItemGroup>
</Project>`)

	refs, err := (&ProjectFile{}).Parse("App.csproj", data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("got %d references, want 2: %+v", len(refs), refs)
	}
	if r := findRef(refs, "Serilog"); r == nil || r.Version != "3.1.1" {
		t.Errorf("Serilog = %+v", r)
	}
	if r := findRef(refs, "Acme.Billing"); r == nil || r.Version != "4.0.0" {
		t.Errorf("element-form version should be read, got %+v", r)
	}
}

func TestProjectFileSupports(t *testing.T) {
	p := &ProjectFile{}
	for name, want := range map[string]bool{
		"App.csproj":  true,
		"App.VBPROJ":  true,
		"App.fsproj":  true,
		"App.sln":     false,
		"project.json": false,
	} {
		if got := p.Supports(name); got != want {
			t.Errorf("Supports(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestNuspecParse(t *testing.T) {
	data := []byte(`<?xml version="1.0"?>
<package>
  <metadata>
    <id>Acme.Tools</id>
    <dependencies>
      <dependency id="NLog" version="5.0.0" />
      <group targetFramework="net8.0">
        <dependency id="System.Text.Json" version="8.0.0" />
        <dependency id="NLog" version="5.0.0" />
      </group>
    </dependencies>
  </metadata>
</package>`)

	refs, err := (&Nuspec{}).Parse("Acme.Tools.nuspec", data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("duplicate ids across groups should collapse, got %+v", refs)
	}
	if findRef(refs, "System.Text.Json") == nil {
		t.Error("grouped dependencies should be included")
	}
}

func TestPackagesConfigMalformed(t *testing.T) {
	if _, err := (&PackagesConfig{}).Parse("packages.config", []byte("<packages><package")); err == nil {
		t.Error("expected error on truncated XML")
	}
}
