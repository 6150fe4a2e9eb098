// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/earpack/earpack/internal/coords"
	"github.com/earpack/earpack/internal/props"
	"github.com/earpack/earpack/internal/resolve"
)

const (
	// ModeEAR wraps the module archive into an outer package archive.
	ModeEAR Mode = "EAR"
	// ModeJAR produces the module archive only.
	ModeJAR Mode = "JAR"

	// PackagingPOM marks aggregator modules, which are never packaged.
	PackagingPOM = "pom"

	// TestSkipProperty disables packaging when set to true.
	TestSkipProperty = "maven.test.skip"

	workDirName = "earpack"
)

// ErrInvalidMode is the sentinel error wrapped by InvalidModeError.
var ErrInvalidMode = errors.New("invalid packaging mode")

type (
	// Mode selects which archives a run produces.
	Mode string

	// InvalidModeError is returned when a Mode value is not recognized.
	// It wraps ErrInvalidMode for errors.Is() compatibility.
	InvalidModeError struct {
		Value Mode
	}

	// Module describes the module being packaged.
	Module struct {
		GroupID        string `mapstructure:"groupId"`
		ArtifactID     string `mapstructure:"artifactId"`
		Version        string `mapstructure:"version"`
		Packaging      string `mapstructure:"packaging"`
		FinalName      string `mapstructure:"finalName"`
		BuildDir       string `mapstructure:"buildDir"`
		ClassesDir     string `mapstructure:"classesDir"`
		TestClassesDir string `mapstructure:"testClassesDir"`
		ResourcesDir   string `mapstructure:"resourcesDir"`
	}

	// Packager holds the packaging settings.
	Packager struct {
		Mode               Mode     `mapstructure:"mode"`
		Descriptors        bool     `mapstructure:"descriptors"`
		Skip               bool     `mapstructure:"skip"`
		FwkExclusionFilter string   `mapstructure:"fwkExclusionFilter"`
		OutputTimestamp    string   `mapstructure:"outputTimestamp"`
		EJBConf            string   `mapstructure:"ejbConf"`
		EARConf            string   `mapstructure:"earConf"`
		ServerFramework    string   `mapstructure:"serverFramework"`
		Libs               []string `mapstructure:"libs"`
	}

	// Project is the loaded configuration of one module directory.
	Project struct {
		// Dir is the absolute module directory.
		Dir string `mapstructure:"-"`
		// File is the configuration file loaded, if any.
		File string `mapstructure:"-"`

		Module          Module               `mapstructure:"module"`
		Packager        Packager             `mapstructure:"packager"`
		Properties      props.Properties     `mapstructure:"-"`
		Dependencies    coords.Dependencies  `mapstructure:"dependencies"`
		Repositories    []resolve.Repository `mapstructure:"repositories"`
		LocalRepository string               `mapstructure:"localRepository"`
	}
)

// ParseMode returns the Mode named by s, ignoring case.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToUpper(strings.TrimSpace(s)))
	if err := m.Validate(); err != nil {
		return "", &InvalidModeError{Value: Mode(s)}
	}
	return m, nil
}

// String returns the string representation of the Mode.
func (m Mode) String() string { return string(m) }

// Validate returns an error if m is not a known mode.
func (m Mode) Validate() error {
	switch m {
	case ModeEAR, ModeJAR:
		return nil
	default:
		return &InvalidModeError{Value: m}
	}
}

// Error implements the error interface.
func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("invalid packaging mode %q (valid: EAR, JAR)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidModeError) Unwrap() error { return ErrInvalidMode }

// WorkDir is the scratch directory for generated and filtered content.
func (p *Project) WorkDir() string {
	return filepath.Join(p.Module.BuildDir, workDirName)
}

// GeneratedDir receives generated descriptors.
func (p *Project) GeneratedDir() string {
	return filepath.Join(p.WorkDir(), "generated")
}

// RecordPath is where resolved artifacts are recorded.
func (p *Project) RecordPath() string {
	return filepath.Join(p.WorkDir(), "resolved.toml")
}

// CreatedBy is the manifest creator stamp for archives of this module.
func (p *Project) CreatedBy() string {
	return fmt.Sprintf("earpack (%s:%s)", p.Module.GroupID, p.Module.ArtifactID)
}

// GeneratorID identifies the generator in generated descriptors.
func (p *Project) GeneratorID() string {
	return fmt.Sprintf("earpack (%s:%s:%s)", p.Module.GroupID, p.Module.ArtifactID, p.Module.Version)
}

// SkipReason returns why packaging should not run, or "".
func (p *Project) SkipReason() string {
	switch {
	case p.Packager.Skip:
		return "packager.skip is set"
	case strings.EqualFold(p.Module.Packaging, PackagingPOM):
		return "packaging is pom"
	case p.Properties.Bool(TestSkipProperty):
		return TestSkipProperty + " is true"
	default:
		return ""
	}
}
