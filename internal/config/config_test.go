// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/earpack/earpack/internal/testutil"
)

const sampleProject = `
module: {
	groupId:    "org.eclipse.persistence"
	artifactId: "org.eclipse.persistence.jpa.member-test"
	version:    "5.0.0"
}
packager: {
	mode:            "jar"
	outputTimestamp: "2024-01-01T00:00:00Z"
	libs: ["junit"]
}
properties: {
	"persistence-unit.name": "default"
	"server.platform":       "weblogic"
	"maven.test.skip":       false
	"db.port":               1527
}
dependencies: [{
	groupId:    "org.eclipse.persistence"
	artifactId: "org.eclipse.persistence.jpa.test.framework"
	version:    "5.0.0"
}, {
	groupId:    "org.eclipse.persistence"
	artifactId: "org.eclipse.persistence.jpa.model"
	version:    "5.0.0"
	type:       "test-jar"
}]
repositories: [{id: "local", url: "repo"}, {id: "central", url: "https://repo.maven.apache.org/maven2"}]
localRepository: "/tmp/m2"
`

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	testutil.MustSetenv(t, LocalRepositoryEnv, "")

	p, err := Load(context.Background(), LoadOptions{Dir: dir})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p.File != "" {
		t.Errorf("File = %q, want empty", p.File)
	}
	if p.Packager.Mode != ModeEAR || !p.Packager.Descriptors || p.Packager.Skip {
		t.Errorf("Packager = %+v", p.Packager)
	}
	if p.Packager.FwkExclusionFilter != DefaultFwkExclusionFilter {
		t.Errorf("FwkExclusionFilter = %q", p.Packager.FwkExclusionFilter)
	}
	if !slices.Equal(p.Packager.Libs, DefaultLibs) {
		t.Errorf("Libs = %v", p.Packager.Libs)
	}
	if p.Module.BuildDir != filepath.Join(dir, "target") {
		t.Errorf("BuildDir = %q", p.Module.BuildDir)
	}
	if p.Packager.EJBConf != filepath.Join(dir, "src", "main", "resources-ejb") {
		t.Errorf("EJBConf = %q", p.Packager.EJBConf)
	}
	if p.Module.Packaging != "jar" {
		t.Errorf("Packaging = %q", p.Module.Packaging)
	}
}

func TestLoadProjectFile(t *testing.T) {
	dir := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(dir, FileName), sampleProject)
	testutil.MustSetenv(t, LocalRepositoryEnv, "")

	p, err := Load(context.Background(), LoadOptions{Dir: dir})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p.File != filepath.Join(dir, FileName) {
		t.Errorf("File = %q", p.File)
	}
	if p.Packager.Mode != ModeJAR {
		t.Errorf("Mode = %q, want JAR", p.Packager.Mode)
	}
	if p.Module.FinalName != "org.eclipse.persistence.jpa.member-test-5.0.0" {
		t.Errorf("FinalName = %q", p.Module.FinalName)
	}
	if !slices.Equal(p.Packager.Libs, []string{"junit"}) {
		t.Errorf("Libs = %v", p.Packager.Libs)
	}
	if got, _ := p.Properties.Value("persistence-unit.name"); got != "default" {
		t.Errorf("property persistence-unit.name = %q", got)
	}
	if got, _ := p.Properties.Value("db.port"); got != "1527" {
		t.Errorf("property db.port = %q, want 1527", got)
	}
	if len(p.Dependencies) != 2 || p.Dependencies[1].Type != "test-jar" || p.Dependencies[0].ArtifactID != DefaultServerFramework {
		t.Errorf("Dependencies = %+v", p.Dependencies)
	}
	if len(p.Repositories) != 2 || p.Repositories[0].URL != filepath.Join(dir, "repo") ||
		p.Repositories[1].URL != "https://repo.maven.apache.org/maven2" {
		t.Errorf("Repositories = %+v", p.Repositories)
	}
	if p.LocalRepository != "/tmp/m2" {
		t.Errorf("LocalRepository = %q", p.LocalRepository)
	}
	if p.CreatedBy() != "earpack (org.eclipse.persistence:org.eclipse.persistence.jpa.member-test)" {
		t.Errorf("CreatedBy() = %q", p.CreatedBy())
	}
	if p.SkipReason() != "" {
		t.Errorf("SkipReason() = %q", p.SkipReason())
	}
}

func TestLoadEnvironmentAndOverrides(t *testing.T) {
	dir := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(dir, FileName), sampleProject)
	testutil.MustSetenv(t, LocalRepositoryEnv, filepath.Join(dir, "m2"))
	testutil.MustSetenv(t, "EARPACK_PACKAGER_SKIP", "true")

	p, err := Load(context.Background(), LoadOptions{
		Dir:       dir,
		Overrides: map[string]any{"packager.mode": "ear", "packager.descriptors": false},
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p.LocalRepository != filepath.Join(dir, "m2") {
		t.Errorf("LocalRepository = %q", p.LocalRepository)
	}
	if !p.Packager.Skip || p.SkipReason() == "" {
		t.Errorf("Skip = %v, SkipReason() = %q", p.Packager.Skip, p.SkipReason())
	}
	if p.Packager.Mode != ModeEAR || p.Packager.Descriptors {
		t.Errorf("Packager = %+v", p.Packager)
	}
}

func TestLoadRejectsSchemaViolations(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad mode", `packager: mode: "war"`, "packager.mode"},
		{"dependency without version", `dependencies: [{groupId: "g", artifactId: "a"}]`, "dependencies"},
		{"unknown field", `bogus: 1`, "bogus"},
		{"syntax", `module: {`, FileName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			testutil.MustWriteFile(t, filepath.Join(dir, FileName), tt.content)

			_, err := Load(context.Background(), LoadOptions{Dir: dir})
			if err == nil {
				t.Fatal("Load() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(context.Background(), LoadOptions{Dir: t.TempDir(), ConfigFile: filepath.Join(t.TempDir(), "none.cue")})
	if err == nil || !strings.Contains(err.Error(), "config file not found") {
		t.Fatalf("Load() error = %v", err)
	}
}

func TestLoadCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Load(ctx, LoadOptions{Dir: t.TempDir()}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Load() error = %v, want context.Canceled", err)
	}
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Mode{"EAR": ModeEAR, "ear": ModeEAR, " Jar ": ModeJAR} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseMode("war"); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("ParseMode(war) error = %v, want ErrInvalidMode", err)
	}
}

func TestSkipReason(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		p    Project
		skip bool
	}{
		{"none", Project{Module: Module{Packaging: "jar"}}, false},
		{"pom", Project{Module: Module{Packaging: "pom"}}, true},
		{"flag", Project{Packager: Packager{Skip: true}}, true},
		{"test skip", Project{Properties: map[string]string{TestSkipProperty: "TRUE"}}, true},
		{"test skip false", Project{Properties: map[string]string{TestSkipProperty: "false"}}, false},
	}
	for _, tt := range tests {
		if got := tt.p.SkipReason() != ""; got != tt.skip {
			t.Errorf("%s: SkipReason() = %q, want skip=%v", tt.name, tt.p.SkipReason(), tt.skip)
		}
	}
}
