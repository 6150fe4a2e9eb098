// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/earpack/earpack/internal/config"
	"github.com/earpack/earpack/internal/coords"
	"github.com/earpack/earpack/internal/descriptor"
	"github.com/earpack/earpack/internal/issue"
	"github.com/earpack/earpack/internal/logging"
	"github.com/earpack/earpack/internal/packager"
	"github.com/earpack/earpack/internal/props"
	"github.com/earpack/earpack/internal/resolve"
	"github.com/earpack/earpack/internal/runners"
)

const (
	// ClassifierEJB tags the inner module archive.
	ClassifierEJB = "ejb"
	// ClassifierEAR tags the outer package archive.
	ClassifierEAR = "ear"

	testArtifactExclusion = "%regex[.*META-INF/.*]"
	libPrefix             = "lib/"
)

var (
	// ErrUndeclared is wrapped when a required dependency is not declared
	// by the module.
	ErrUndeclared = errors.New("dependency not declared")

	classesExclusions = []string{"META-INF/persistence.xml", "META-INF/sessions.xml", "*.jar"}
	templateFiles     = []string{"META-INF/persistence.xml", "META-INF/sessions.xml"}
)

type (
	// Artifact is one archive produced by a run.
	Artifact struct {
		Classifier string
		Path       string
	}

	// Result describes a finished run.
	Result struct {
		// Skipped is the reason nothing was packaged, or "".
		Skipped   string
		Artifacts []Artifact
		// Record is the resolution record written, or "".
		Record string
	}

	// Driver runs the packaging pipeline of one module.
	Driver struct {
		project  *config.Project
		resolver resolve.Resolver
		record   *resolve.Record
		runners  func(archive, exclusionFilter string) (string, error)
		logger   *log.Logger
	}

	// Option configures a Driver.
	Option func(*Driver)
)

// WithResolver replaces the Maven resolver built from the project.
func WithResolver(r resolve.Resolver) Option {
	return func(d *Driver) { d.resolver = r }
}

// WithRunnerCache scans runners through c instead of the process-wide
// cache.
func WithRunnerCache(c *runners.Cache) Option {
	return func(d *Driver) { d.runners = c.Names }
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(d *Driver) { d.logger = logging.Ensure(logger) }
}

// New returns a driver for p.
func New(p *config.Project, opts ...Option) *Driver {
	d := &Driver{
		project: p,
		record:  resolve.NewRecord(),
		runners: runners.Names,
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.resolver == nil {
		d.resolver = resolve.NewMavenResolver(p.LocalRepository,
			resolve.WithRecord(d.record),
			resolve.WithLogger(d.logger))
	}
	return d
}

// Run packages the module.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	p := d.project
	if reason := p.SkipReason(); reason != "" {
		d.logger.Info("Skipping packaging", "reason", reason)
		return &Result{Skipped: reason}, nil
	}

	ts, err := packager.ParseOutputTimestamp(p.Packager.OutputTimestamp)
	if err != nil {
		return nil, err
	}
	values := props.NewAliasResolver(p.Properties)
	res := &Result{}

	inner, err := d.assembleInner(ctx, ts, values)
	if err != nil {
		return nil, err
	}
	res.Artifacts = append(res.Artifacts, Artifact{Classifier: ClassifierEJB, Path: inner.Output()})

	if p.Packager.Mode == config.ModeEAR {
		outer, err := d.assembleOuter(ctx, inner, ts, values)
		if err != nil {
			return nil, err
		}
		res.Artifacts = append(res.Artifacts, Artifact{Classifier: ClassifierEAR, Path: outer.Output()})
	}

	if len(d.record.Entries()) > 0 {
		if err := d.record.Write(p.RecordPath()); err != nil {
			return nil, err
		}
		res.Record = p.RecordPath()
	}
	return res, nil
}

func (d *Driver) archiveOptions(ts time.Time, confDir string) []packager.Option {
	return []packager.Option{
		packager.WithTimestamp(ts),
		packager.WithConfDir(confDir),
		packager.WithScratchRoot(d.project.WorkDir()),
		packager.WithCreatedBy(d.project.CreatedBy()),
		packager.WithLogger(d.logger),
	}
}

func (d *Driver) assembleInner(ctx context.Context, ts time.Time, values *props.AliasResolver) (*packager.Archive, error) {
	p := d.project
	out := filepath.Join(p.Module.BuildDir, p.Module.FinalName+"_ejb.jar")
	a := packager.New(out, d.archiveOptions(ts, p.Packager.EJBConf)...)

	fwk, err := d.resolveDeclared(ctx, p.Packager.ServerFramework)
	if err != nil {
		return nil, err
	}
	if err := a.AddExpanded(fwk, p.Packager.FwkExclusionFilter); err != nil {
		return nil, err
	}

	if p.Packager.Descriptors {
		if err := d.generateDescriptors(a, fwk, values); err != nil {
			return nil, err
		}
	}

	deps := p.Dependencies
	if member, ok := deps.Member(); ok {
		path, err := d.resolve(ctx, member)
		if err != nil {
			return nil, err
		}
		if err := a.AddExpanded(path, ""); err != nil {
			return nil, err
		}
	}
	for _, c := range deps.TestArtifacts() {
		path, err := d.resolve(ctx, c)
		if err != nil {
			return nil, err
		}
		if err := a.AddExpanded(path, testArtifactExclusion); err != nil {
			return nil, err
		}
	}

	if err := a.AddDirectoryTree(p.Module.ClassesDir, classesExclusions...); err != nil {
		return nil, err
	}
	if err := a.AddDirectoryTree(p.Module.TestClassesDir); err != nil {
		return nil, err
	}
	for _, name := range templateFiles {
		if err := a.AddTemplateFile(p.Packager.EJBConf, name); err != nil {
			return nil, err
		}
	}

	if err := a.Build(values); err != nil {
		return nil, err
	}
	return a, nil
}

func (d *Driver) assembleOuter(ctx context.Context, inner *packager.Archive, ts time.Time, values *props.AliasResolver) (*packager.Archive, error) {
	p := d.project
	out := filepath.Join(p.Module.BuildDir, p.Module.FinalName+".ear")
	a, err := packager.Chain(inner, out, d.archiveOptions(ts, p.Packager.EARConf)...)
	if err != nil {
		return nil, err
	}

	for _, lib := range p.Packager.Libs {
		path, err := d.resolveDeclared(ctx, lib)
		if err != nil {
			return nil, err
		}
		if err := a.AddFile(path, libPrefix); err != nil {
			return nil, err
		}
	}
	for _, c := range p.Dependencies.MemberModules() {
		path, err := d.resolve(ctx, c)
		if err != nil {
			return nil, err
		}
		if err := a.AddFile(path, ""); err != nil {
			return nil, err
		}
	}

	if err := a.Build(values); err != nil {
		return nil, err
	}
	return a, nil
}

// generateDescriptors renders the server-side descriptors into the
// generated directory and registers it with a. Descriptors the module
// overrides in its EJB configuration directory are not generated.
func (d *Driver) generateDescriptors(a *packager.Archive, fwk string, values *props.AliasResolver) error {
	p := d.project
	src := filepath.Join(p.Module.ResourcesDir, filepath.FromSlash(descriptor.UnitDescriptor))
	if !exists(src) {
		d.logger.Warn("Cannot find persistence.xml to generate server-side descriptors from", "path", src)
		return nil
	}

	gen := descriptor.NewGenerator(src, d.logger)
	gen.UnitDescriptor(!exists(filepath.Join(p.Packager.EJBConf, filepath.FromSlash(descriptor.UnitDescriptor))))
	gen.DeploymentDescriptor(!exists(filepath.Join(p.Packager.EJBConf, filepath.FromSlash(descriptor.DeploymentDescriptor))))

	params := descriptor.NewParameters().Set(descriptor.ParamGeneratorID, p.GeneratorID())
	for _, alias := range []struct{ param, name string }{
		{descriptor.ParamDataSourceType, "datasource-type"},
		{descriptor.ParamDataSourceName, "data-source-name"},
		{descriptor.ParamDBPlatform, "database-platform"},
		{descriptor.ParamServerPlatform, "server-platform"},
		{descriptor.ParamServerPlatformClass, "server-platform-class"},
		{descriptor.ParamServerWeaving, "server-weaving"},
		{descriptor.ParamLoggingLevel, "eclipselink.logging.level"},
		{descriptor.ParamUnitName, "default"},
	} {
		if v, ok := values.Resolve(alias.name); ok {
			params.Set(alias.param, v)
		}
	}

	names, err := d.runners(fwk, p.Packager.FwkExclusionFilter)
	switch {
	case errors.Is(err, issue.ErrUnsupportedFilter):
		gen.DeploymentDescriptor(false)
		d.logger.Warn("ejb-jar.xml will not be generated", "err", err)
	case err != nil:
		return err
	default:
		params.Set(descriptor.ParamTestRunners, names)
	}

	if !gen.Enabled() {
		d.logger.Info("Not generating server-side descriptors")
		return nil
	}
	dest := p.GeneratedDir()
	if err := os.RemoveAll(dest); err != nil {
		return issue.NewIOError("remove", dest, err)
	}
	if err := gen.Generate(dest, params); err != nil {
		return err
	}
	return a.AddGeneratedResourceDir(dest)
}

// resolveDeclared resolves the dependency declared with artifactID.
func (d *Driver) resolveDeclared(ctx context.Context, artifactID string) (string, error) {
	c, ok := d.project.Dependencies.ByArtifactID(artifactID)
	if !ok {
		return "", &resolve.ResolutionError{
			Coordinate: coords.Coordinate{ArtifactID: artifactID},
			Cause:      fmt.Errorf("%w: %s", ErrUndeclared, artifactID),
		}
	}
	return d.resolve(ctx, c)
}

func (d *Driver) resolve(ctx context.Context, c coords.Coordinate) (string, error) {
	return d.resolver.Resolve(ctx, c, d.project.Repositories)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
