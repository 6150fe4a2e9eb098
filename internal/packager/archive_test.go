// SPDX-License-Identifier: MPL-2.0

package packager

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/earpack/earpack/internal/issue"
	"github.com/earpack/earpack/internal/logging"
	"github.com/earpack/earpack/internal/props"
	"github.com/earpack/earpack/internal/testutil"
)

var fixedTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestBuildSkipsMissingFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	present := testutil.MustWriteFile(t, filepath.Join(dir, "present.txt"), "here")

	var logs bytes.Buffer
	out := filepath.Join(dir, "out", "module.jar")
	a := New(out, WithLogger(logging.New(&logs, true)))
	if err := a.AddFile(present, ""); err != nil {
		t.Fatalf("AddFile(present) error = %v", err)
	}
	if err := a.AddFile(filepath.Join(dir, "absent.txt"), ""); err != nil {
		t.Fatalf("AddFile(absent) error = %v", err)
	}
	if err := a.Build(nil); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if got := testutil.ZipFileNames(t, out); !slices.Equal(got, []string{"present.txt"}) {
		t.Errorf("entries = %v, want [present.txt]", got)
	}
	if !strings.Contains(logs.String(), "skipping file") || !strings.Contains(logs.String(), "absent.txt") {
		t.Errorf("no skip diagnostic for absent.txt in:\n%s", logs.String())
	}
}

func TestMissingSourcesAreNotErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out := filepath.Join(dir, "module.jar")
	a := New(out)

	if err := a.AddFile(filepath.Join(dir, "nope.jar"), "lib/"); err != nil {
		t.Errorf("AddFile() error = %v", err)
	}
	if err := a.AddExpanded(filepath.Join(dir, "nope.jar"), "%regex[.*META-INF/.*]"); err != nil {
		t.Errorf("AddExpanded() error = %v", err)
	}
	if err := a.AddDirectoryTree(filepath.Join(dir, "classes"), "*.jar"); err != nil {
		t.Errorf("AddDirectoryTree() error = %v", err)
	}
	if err := a.AddTemplateFile(filepath.Join(dir, "conf"), "META-INF/persistence.xml"); err != nil {
		t.Errorf("AddTemplateFile() error = %v", err)
	}
	if err := a.AddGeneratedResourceDir(filepath.Join(dir, "generated")); err != nil {
		t.Errorf("AddGeneratedResourceDir() error = %v", err)
	}
	if got := len(a.Items()); got != 0 {
		t.Errorf("Items() has %d entries, want 0", got)
	}

	if err := a.Build(props.Properties{}); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got := testutil.ZipFileNames(t, out); len(got) != 0 {
		t.Errorf("entries = %v, want none", got)
	}
	if got := testutil.ZipEntryNames(t, out); !slices.Equal(got, []string{"META-INF/", "META-INF/MANIFEST.MF"}) {
		t.Errorf("all entries = %v", got)
	}
}

func TestManifestFirst(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := testutil.MustWriteFile(t, filepath.Join(dir, "a.txt"), "a")
	out := filepath.Join(dir, "m.jar")
	a := New(out, WithCreatedBy("earpack (org.example:mod)"))
	if err := a.AddFile(src, ""); err != nil {
		t.Fatal(err)
	}
	if err := a.Build(nil); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	names := testutil.ZipEntryNames(t, out)
	if len(names) < 2 || names[0] != "META-INF/" || names[1] != "META-INF/MANIFEST.MF" {
		t.Fatalf("entries = %v, want manifest first", names)
	}
	want := "Manifest-Version: 1.0\r\nCreated-By: earpack (org.example:mod)\r\n\r\n"
	if got := testutil.ZipEntryContent(t, out, "META-INF/MANIFEST.MF"); got != want {
		t.Errorf("manifest = %q, want %q", got, want)
	}
}

func TestExclusions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	classes := filepath.Join(dir, "classes")
	testutil.MustWriteFile(t, filepath.Join(classes, "META-INF", "persistence.xml"), "pu")
	testutil.MustWriteFile(t, filepath.Join(classes, "META-INF", "orm.xml"), "orm")
	testutil.MustWriteFile(t, filepath.Join(classes, "bundled.jar"), "jar")
	testutil.MustWriteFile(t, filepath.Join(classes, "model", "Employee.class"), "class")

	nested := testutil.MustWriteZip(t, filepath.Join(dir, "model-tests.jar"),
		testutil.ZipEntry{Name: "META-INF/MANIFEST.MF", Content: "Manifest-Version: 1.0\r\n"},
		testutil.ZipEntry{Name: "META-INF/persistence.xml", Content: "nested"},
		testutil.ZipEntry{Name: "tests/ModelTest.class", Content: "t"},
	)

	out := filepath.Join(dir, "out.jar")
	a := New(out)
	if err := a.AddDirectoryTree(classes, "META-INF/persistence.xml", "META-INF/sessions.xml", "*.jar"); err != nil {
		t.Fatal(err)
	}
	if err := a.AddExpanded(nested, "%regex[.*META-INF/.*]"); err != nil {
		t.Fatal(err)
	}
	if err := a.Build(nil); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	want := []string{"META-INF/orm.xml", "model/Employee.class", "tests/ModelTest.class"}
	if got := testutil.ZipFileNames(t, out); !slices.Equal(got, want) {
		t.Errorf("entries = %v, want %v", got, want)
	}
}

func TestAddExpandedRejectsBadRegex(t *testing.T) {
	t.Parallel()

	a := New(filepath.Join(t.TempDir(), "x.jar"))
	err := a.AddExpanded(filepath.Join(t.TempDir(), "x.jar"), "%regex[(]")
	if !errors.Is(err, issue.ErrUnsupportedFilter) {
		t.Errorf("AddExpanded() error = %v, want ErrUnsupportedFilter", err)
	}
}

func TestLastWriteWinsKeepsFirstPosition(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first := filepath.Join(dir, "first")
	testutil.MustWriteFile(t, filepath.Join(first, "a.txt"), "old")
	testutil.MustWriteFile(t, filepath.Join(first, "b.txt"), "b")
	second := filepath.Join(dir, "second")
	testutil.MustWriteFile(t, filepath.Join(second, "a.txt"), "new")

	out := filepath.Join(dir, "out.jar")
	a := New(out)
	if err := a.AddDirectoryTree(first); err != nil {
		t.Fatal(err)
	}
	if err := a.AddDirectoryTree(second); err != nil {
		t.Fatal(err)
	}
	if err := a.Build(nil); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if got := testutil.ZipFileNames(t, out); !slices.Equal(got, []string{"a.txt", "b.txt"}) {
		t.Errorf("entries = %v, want [a.txt b.txt]", got)
	}
	if got := testutil.ZipEntryContent(t, out, "a.txt"); got != "new" {
		t.Errorf("a.txt = %q, want %q", got, "new")
	}
}

func TestBuildOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	conf := filepath.Join(dir, "resources-ejb")
	testutil.MustWriteFile(t, filepath.Join(conf, "META-INF", "sessions.xml"), "<unit>@default@</unit>")
	generated := filepath.Join(dir, "generated")
	testutil.MustWriteFile(t, filepath.Join(generated, "META-INF", "persistence.xml"), "@default@")
	classes := filepath.Join(dir, "classes")
	testutil.MustWriteFile(t, filepath.Join(classes, "com", "x", "A.class"), "A")
	lib := testutil.MustWriteFile(t, filepath.Join(dir, "repo", "model-1.0-member_ejb.jar"), "jar")

	scratch := filepath.Join(dir, "build", "earpack")
	out := filepath.Join(dir, "build", "module_ejb.jar")
	a := New(out, WithConfDir(conf), WithScratchRoot(scratch))
	if err := a.AddFile(lib, "lib/"); err != nil {
		t.Fatal(err)
	}
	if err := a.AddDirectoryTree(classes); err != nil {
		t.Fatal(err)
	}
	if err := a.AddGeneratedResourceDir(generated); err != nil {
		t.Fatal(err)
	}

	values := props.NewAliasResolver(props.Properties{"persistence-unit.name": "unit1"})
	if err := a.Build(values); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	want := []string{
		"META-INF/",
		"META-INF/MANIFEST.MF",
		"META-INF/sessions.xml",
		"META-INF/persistence.xml",
		"lib/",
		"lib/model_member_ejb.jar",
		"com/",
		"com/x/",
		"com/x/A.class",
	}
	if got := testutil.ZipEntryNames(t, out); !slices.Equal(got, want) {
		t.Errorf("entries = %v, want %v", got, want)
	}
	if got := testutil.ZipEntryContent(t, out, "META-INF/sessions.xml"); got != "<unit>unit1</unit>" {
		t.Errorf("filtered sessions.xml = %q", got)
	}
	if got := testutil.ZipEntryContent(t, out, "META-INF/persistence.xml"); got != "@default@" {
		t.Errorf("generated persistence.xml = %q, want verbatim", got)
	}
	if _, err := os.Stat(filepath.Join(scratch, "resources-ejb", "META-INF", "sessions.xml")); err != nil {
		t.Errorf("scratch copy missing: %v", err)
	}
}

func TestTemplateFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	conf := filepath.Join(dir, "conf")
	testutil.MustWriteFile(t, filepath.Join(conf, "META-INF", "persistence.xml"), "override")

	out := filepath.Join(dir, "out.jar")
	a := New(out)
	if err := a.AddTemplateFile(conf, "META-INF/persistence.xml"); err != nil {
		t.Fatal(err)
	}
	if err := a.Build(nil); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got := testutil.ZipEntryContent(t, out, "META-INF/templates/persistence.xml"); got != "override" {
		t.Errorf("template = %q", got)
	}
}

func TestReproducibleBuild(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	classes := filepath.Join(dir, "classes")
	testutil.MustWriteFile(t, filepath.Join(classes, "a", "A.class"), "A")
	testutil.MustWriteFile(t, filepath.Join(classes, "b", "B.class"), "B")
	nested := testutil.MustWriteZip(t, filepath.Join(dir, "dep.jar"),
		testutil.ZipEntry{Name: "dep/D.class", Content: "D"})

	build := func(out string) []byte {
		t.Helper()
		a := New(out, WithTimestamp(fixedTime))
		if err := a.AddDirectoryTree(classes); err != nil {
			t.Fatal(err)
		}
		if err := a.AddExpanded(nested, ""); err != nil {
			t.Fatal(err)
		}
		if err := a.Build(nil); err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		data, err := os.ReadFile(out)
		if err != nil {
			t.Fatal(err)
		}
		return data
	}

	first := build(filepath.Join(dir, "one", "out.jar"))
	// Touch a source so that only the fixed timestamp keeps output stable.
	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(filepath.Join(classes, "a", "A.class"), later, later); err != nil {
		t.Fatal(err)
	}
	second := build(filepath.Join(dir, "two", "out.jar"))
	if !bytes.Equal(first, second) {
		t.Error("builds with the same timestamp differ")
	}
}

func TestChain(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	classes := filepath.Join(dir, "classes")
	testutil.MustWriteFile(t, filepath.Join(classes, "A.class"), "A")
	junit := testutil.MustWriteFile(t, filepath.Join(dir, "repo", "junit-4.13.jar"), "junit")

	inner := New(filepath.Join(dir, "target", "mod_ejb.jar"))
	if err := inner.AddDirectoryTree(classes); err != nil {
		t.Fatal(err)
	}
	if _, err := Chain(inner, filepath.Join(dir, "target", "mod.ear")); !errors.Is(err, ErrNotBuilt) {
		t.Fatalf("Chain(unbuilt) error = %v, want ErrNotBuilt", err)
	}
	if err := inner.Build(nil); err != nil {
		t.Fatalf("inner Build() error = %v", err)
	}

	outer, err := Chain(inner, filepath.Join(dir, "target", "mod.ear"))
	if err != nil {
		t.Fatalf("Chain() error = %v", err)
	}
	if err := outer.AddFile(junit, "lib/"); err != nil {
		t.Fatal(err)
	}
	if err := outer.Build(nil); err != nil {
		t.Fatalf("outer Build() error = %v", err)
	}

	if got := testutil.ZipFileNames(t, outer.Output()); !slices.Equal(got, []string{"mod_ejb.jar", "lib/junit-4.13.jar"}) {
		t.Errorf("outer entries = %v", got)
	}
}

func TestSealed(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := testutil.MustWriteFile(t, filepath.Join(dir, "a.txt"), "a")
	a := New(filepath.Join(dir, "out.jar"))
	if err := a.Build(nil); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if err := a.AddFile(src, ""); !errors.Is(err, ErrSealed) {
		t.Errorf("AddFile() after Build error = %v, want ErrSealed", err)
	}
	if err := a.AddFile(filepath.Join(dir, "missing"), ""); !errors.Is(err, ErrSealed) {
		t.Errorf("AddFile(missing) after Build error = %v, want ErrSealed", err)
	}
	if err := a.AddGeneratedResourceDir(dir); !errors.Is(err, ErrSealed) {
		t.Errorf("AddGeneratedResourceDir() after Build error = %v, want ErrSealed", err)
	}
	if err := a.Build(nil); !errors.Is(err, ErrSealed) {
		t.Errorf("second Build() error = %v, want ErrSealed", err)
	}
}

func TestBuildFailsWhenDestinationCannotBeCreated(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	blocker := testutil.MustWriteFile(t, filepath.Join(dir, "target"), "not a directory")
	a := New(filepath.Join(blocker, "out.jar"))

	err := a.Build(nil)
	if !errors.Is(err, issue.ErrAssembly) {
		t.Fatalf("Build() error = %v, want ErrAssembly", err)
	}
	var ae *AssemblyError
	if !errors.As(err, &ae) || ae.Output != filepath.Join(blocker, "out.jar") {
		t.Errorf("AssemblyError = %+v", ae)
	}
}

func TestBuildFailureLeavesNoOutput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := testutil.MustWriteFile(t, filepath.Join(dir, "vanishing.txt"), "x")
	out := filepath.Join(dir, "target", "out.jar")
	a := New(out)
	if err := a.AddFile(src, ""); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(src); err != nil {
		t.Fatal(err)
	}

	err := a.Build(nil)
	if !errors.Is(err, issue.ErrAssembly) || !errors.Is(err, issue.ErrIO) {
		t.Fatalf("Build() error = %v, want assembly error wrapping an I/O error", err)
	}
	entries, readErr := os.ReadDir(filepath.Dir(out))
	if readErr != nil {
		t.Fatal(readErr)
	}
	if len(entries) != 0 {
		t.Errorf("target dir not empty after failed build: %v", entries)
	}
}

// failingFilterer fails every FilterTree call with err.
type failingFilterer struct{ err error }

func (f failingFilterer) FilterTree(_, _ string, _ props.Source) error { return f.err }

func TestBuildFilterFailureIsAssemblyError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	conf := filepath.Join(dir, "resources-ejb")
	testutil.MustWriteFile(t, filepath.Join(conf, "META-INF", "sessions.xml"), "@default@")
	out := filepath.Join(dir, "target", "out.jar")
	cause := issue.NewIOError("read", filepath.Join(conf, "META-INF", "sessions.xml"), os.ErrPermission)

	a := New(out,
		WithConfDir(conf),
		WithScratchRoot(filepath.Join(dir, "scratch")),
		WithFilterer(failingFilterer{err: cause}))
	err := a.Build(props.Properties{"persistence-unit.name": "default"})
	if !errors.Is(err, issue.ErrAssembly) || !errors.Is(err, issue.ErrIO) {
		t.Fatalf("Build() error = %v, want assembly error wrapping an I/O error", err)
	}
	if _, statErr := os.Stat(out); !errors.Is(statErr, os.ErrNotExist) {
		t.Errorf("output exists after failed filtering (stat err = %v)", statErr)
	}
}
