// SPDX-License-Identifier: MPL-2.0

package config

import (
	"cmp"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/earpack/earpack/internal/issue"
	"github.com/earpack/earpack/internal/props"
)

const (
	// FileName is the configuration file looked up in a module directory.
	FileName = "earpack.cue"
	// EnvPrefix prefixes environment overrides, e.g. EARPACK_PACKAGER_MODE.
	EnvPrefix = "EARPACK"
	// LocalRepositoryEnv overrides the local artifact repository.
	LocalRepositoryEnv = "EARPACK_LOCAL_REPOSITORY"

	// DefaultFwkExclusionFilter drops the numbered runner beans.
	DefaultFwkExclusionFilter = "%regex[.*TestRunner[0-9].*]"
	// DefaultServerFramework is the artifactId of the server test framework.
	DefaultServerFramework = "org.eclipse.persistence.jpa.test.framework"

	maxFileSize = 1 << 20
)

//go:embed earpack_schema.cue
var projectSchema string

// DefaultLibs are the artifactIds packaged under lib/ in EAR mode.
var DefaultLibs = []string{"org.eclipse.persistence.core.test.framework", "junit"}

// LoadOptions defines explicit configuration loading inputs.
type LoadOptions struct {
	// Dir is the module directory; defaults to the working directory.
	Dir string
	// ConfigFile forces a specific configuration file.
	ConfigFile string
	// Overrides are applied last, keyed by dotted configuration path
	// (e.g. "packager.mode").
	Overrides map[string]any
}

// Load reads the project configuration of opts.Dir. A module without a
// configuration file gets defaults only.
func Load(ctx context.Context, opts LoadOptions) (*Project, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	dir, err := filepath.Abs(cmp.Or(opts.Dir, "."))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve module directory: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("localRepository", LocalRepositoryEnv); err != nil {
		return nil, fmt.Errorf("failed to bind %s: %w", LocalRepositoryEnv, err)
	}

	file := opts.ConfigFile
	if file == "" {
		file = filepath.Join(dir, FileName)
	} else if !fileExists(file) {
		return nil, issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(file).
			WithSuggestion("Verify the file path is correct").
			WithSuggestion("Use 'earpack config show' to see the effective configuration").
			Wrap(fmt.Errorf("config file not found: %s", file)).
			BuildError()
	}

	var properties map[string]any
	if fileExists(file) {
		properties, err = loadCUEIntoViper(v, file)
		if err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(file).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the values match the #Project schema").
				Wrap(err).
				BuildError()
		}
	} else {
		file = ""
	}

	for key, value := range opts.Overrides {
		v.Set(key, value)
	}

	p := &Project{Dir: dir, File: file}
	if err := v.Unmarshal(p); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if p.Properties, err = stringProperties(properties); err != nil {
		return nil, fmt.Errorf("failed to parse properties: %w", err)
	}
	if err := p.normalize(); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(cmp.Or(file, dir)).
			WithSuggestion("Set packager.mode to EAR or JAR").
			Wrap(err).
			BuildError()
	}
	return p, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("module.groupId", "")
	v.SetDefault("module.artifactId", "")
	v.SetDefault("module.version", "")
	v.SetDefault("module.packaging", "jar")
	v.SetDefault("module.finalName", "")
	v.SetDefault("module.buildDir", "target")
	v.SetDefault("module.classesDir", filepath.Join("target", "classes"))
	v.SetDefault("module.testClassesDir", filepath.Join("target", "test-classes"))
	v.SetDefault("module.resourcesDir", filepath.Join("src", "main", "resources"))
	v.SetDefault("packager.mode", string(ModeEAR))
	v.SetDefault("packager.descriptors", true)
	v.SetDefault("packager.skip", false)
	v.SetDefault("packager.fwkExclusionFilter", DefaultFwkExclusionFilter)
	v.SetDefault("packager.outputTimestamp", "")
	v.SetDefault("packager.ejbConf", filepath.Join("src", "main", "resources-ejb"))
	v.SetDefault("packager.earConf", filepath.Join("src", "main", "resources-ear"))
	v.SetDefault("packager.serverFramework", DefaultServerFramework)
	v.SetDefault("packager.libs", DefaultLibs)
	v.SetDefault("localRepository", "")
}

// normalize fills derived defaults and makes paths absolute.
func (p *Project) normalize() error {
	mode, err := ParseMode(string(p.Packager.Mode))
	if err != nil {
		return err
	}
	p.Packager.Mode = mode

	if p.Module.FinalName == "" {
		p.Module.FinalName = p.Module.ArtifactID + "-" + p.Module.Version
	}
	if p.LocalRepository == "" {
		if home, err := os.UserHomeDir(); err == nil {
			p.LocalRepository = filepath.Join(home, ".m2", "repository")
		}
	}

	for _, path := range []*string{
		&p.Module.BuildDir,
		&p.Module.ClassesDir,
		&p.Module.TestClassesDir,
		&p.Module.ResourcesDir,
		&p.Packager.EJBConf,
		&p.Packager.EARConf,
		&p.LocalRepository,
	} {
		if *path != "" && !filepath.IsAbs(*path) {
			*path = filepath.Join(p.Dir, filepath.FromSlash(*path))
		}
	}
	for i, repo := range p.Repositories {
		if !strings.Contains(repo.URL, "://") && !filepath.IsAbs(repo.URL) {
			p.Repositories[i].URL = filepath.Join(p.Dir, filepath.FromSlash(repo.URL))
		}
	}
	return nil
}

// loadCUEIntoViper validates the file against #Project and merges it into
// v. Properties are returned separately: Viper folds key case and splits
// dotted keys, and property names are neither.
func loadCUEIntoViper(v *viper.Viper, path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if len(data) > maxFileSize {
		return nil, fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes", path, len(data), maxFileSize)
	}

	ctx := cuecontext.New()
	schemaValue := ctx.CompileString(projectSchema)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("internal error: failed to compile project schema: %w", schemaValue.Err())
	}
	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return nil, formatCUEError(userValue.Err(), path)
	}

	unified := schemaValue.LookupPath(cue.ParsePath("#Project")).Unify(userValue)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return nil, formatCUEError(err, path)
	}
	properties, _ := configMap["properties"].(map[string]any)
	delete(configMap, "properties")

	if err := v.MergeConfigMap(configMap); err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}
	return properties, nil
}

func stringProperties(raw map[string]any) (props.Properties, error) {
	m, err := cast.ToStringMapStringE(raw)
	if err != nil {
		return nil, err
	}
	return props.Properties(m), nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false
	}
	return err == nil && !info.IsDir()
}
