// SPDX-License-Identifier: MPL-2.0

package descriptor

import (
	"bufio"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"text/template"

	"github.com/charmbracelet/log"

	"github.com/earpack/earpack/internal/issue"
	"github.com/earpack/earpack/internal/logging"
)

// Descriptor paths relative to the generation root.
const (
	UnitDescriptor       = "META-INF/persistence.xml"
	DeploymentDescriptor = "META-INF/ejb-jar.xml"
)

const (
	unitTemplate       = "persistence.xml.tmpl"
	deploymentTemplate = "ejb-jar.xml.tmpl"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// ErrTemplateMissing is wrapped when a compiled template set lacks one of the
// descriptor templates.
var ErrTemplateMissing = errors.New("descriptor template missing")

type (
	// TransformError reports a failure compiling or applying a descriptor
	// template.
	TransformError struct {
		Target string
		Cause  error
	}

	// Generator renders descriptors from one source persistence.xml. The
	// zero value is not usable; create one with NewGenerator.
	Generator struct {
		source     string
		unit       bool
		deployment bool
		logger     *log.Logger
		templates  func() (*template.Template, error)
	}
)

// compiledTemplates is shared by every generator in the process.
var compiledTemplates = sync.OnceValues(func() (*template.Template, error) {
	return compileTemplates(templateFS)
})

func (e *TransformError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("descriptor templates: %v", e.Cause)
	}
	return fmt.Sprintf("generate %s: %v", e.Target, e.Cause)
}

func (e *TransformError) Unwrap() error { return e.Cause }

// Is makes errors.Is(err, issue.ErrTransform) hold.
func (e *TransformError) Is(target error) bool { return target == issue.ErrTransform }

// NewGenerator returns a generator reading source with both descriptors
// enabled.
func NewGenerator(source string, logger *log.Logger) *Generator {
	return &Generator{
		source:     source,
		unit:       true,
		deployment: true,
		logger:     logging.Ensure(logger),
		templates:  compiledTemplates,
	}
}

// UnitDescriptor switches generation of META-INF/persistence.xml.
func (g *Generator) UnitDescriptor(enabled bool) { g.unit = enabled }

// DeploymentDescriptor switches generation of META-INF/ejb-jar.xml.
func (g *Generator) DeploymentDescriptor(enabled bool) { g.deployment = enabled }

// Enabled reports whether Generate would write anything.
func (g *Generator) Enabled() bool { return g.unit || g.deployment }

// Source returns the path of the source persistence.xml.
func (g *Generator) Source() string { return g.source }

// Generate writes every enabled descriptor under destDir. With both targets
// disabled the file system is left untouched.
func (g *Generator) Generate(destDir string, params *Parameters) error {
	if !g.Enabled() {
		g.logger.Info("Not generating server-side descriptors")
		return nil
	}
	if params == nil {
		params = NewParameters()
	}

	tmpl, err := g.templates()
	if err != nil {
		return err
	}

	targets := []struct {
		enabled  bool
		rel      string
		template string
	}{
		{g.unit, UnitDescriptor, unitTemplate},
		{g.deployment, DeploymentDescriptor, deploymentTemplate},
	}
	for _, t := range targets {
		if !t.enabled {
			g.logger.Info("Not generating descriptor", "name", filepath.Base(t.rel))
			continue
		}
		dest := filepath.Join(destDir, filepath.FromSlash(t.rel))
		g.logger.Info("Generating descriptor", "name", filepath.Base(t.rel), "dest", dest)
		if err := g.write(dest, tmpl.Lookup(t.template), params); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) write(dest string, tmpl *template.Template, params *Parameters) (err error) {
	if tmpl == nil {
		return &TransformError{Target: dest, Cause: ErrTemplateMissing}
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return issue.NewIOError("create directory", filepath.Dir(dest), err)
	}
	if err := os.Remove(dest); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return issue.NewIOError("remove", dest, err)
	}

	src, err := os.Open(g.source)
	if err != nil {
		return issue.NewIOError("open", g.source, err)
	}
	defer func() { _ = src.Close() }()

	doc, err := decodePersistence(bufio.NewReader(src))
	if err != nil {
		return &TransformError{Target: dest, Cause: fmt.Errorf("parse %s: %w", g.source, err)}
	}

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return issue.NewIOError("create", dest, err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = issue.NewIOError("close", dest, closeErr)
		}
		if err != nil {
			_ = os.Remove(dest)
		}
	}()

	w := bufio.NewWriter(out)
	if err := tmpl.Execute(w, newRenderData(doc, params)); err != nil {
		return &TransformError{Target: dest, Cause: err}
	}
	if err := w.Flush(); err != nil {
		return issue.NewIOError("write", dest, err)
	}
	return nil
}

// compileTemplates parses every descriptor template found in fsys.
func compileTemplates(fsys fs.FS) (*template.Template, error) {
	tmpl, err := template.New("descriptors").
		Option("missingkey=zero").
		Funcs(template.FuncMap{"xml": escapeXML}).
		ParseFS(fsys, "templates/*.tmpl")
	if err != nil {
		return nil, &TransformError{Cause: err}
	}
	for _, name := range []string{unitTemplate, deploymentTemplate} {
		if tmpl.Lookup(name) == nil {
			return nil, &TransformError{Cause: fmt.Errorf("%w: %s", ErrTemplateMissing, name)}
		}
	}
	return tmpl, nil
}
