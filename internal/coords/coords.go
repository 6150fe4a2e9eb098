// SPDX-License-Identifier: MPL-2.0

// Package coords describes dependency coordinates and the selections the
// packaging pipeline makes over a module's declared dependencies.
package coords

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultType is assumed when a coordinate does not name a type.
const DefaultType = "jar"

// ErrInvalidCoordinate is the sentinel error wrapped by InvalidCoordinateError.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

type (
	// Coordinate identifies one artifact in a repository. Values are
	// immutable by convention: derived coordinates are produced with the
	// With* methods, never by assigning fields on a shared value.
	Coordinate struct {
		GroupID    string `mapstructure:"groupId" toml:"group_id"`
		ArtifactID string `mapstructure:"artifactId" toml:"artifact_id"`
		Version    string `mapstructure:"version" toml:"version"`
		Classifier string `mapstructure:"classifier" toml:"classifier,omitempty"`
		Type       string `mapstructure:"type" toml:"type,omitempty"`
	}

	// InvalidCoordinateError is returned when required coordinate fields are
	// missing. It wraps ErrInvalidCoordinate for errors.Is() compatibility.
	InvalidCoordinateError struct {
		Value   Coordinate
		Missing []string
	}

	// handler describes how a dependency type maps onto a file.
	handler struct {
		extension  string
		classifier string
	}
)

// handlers mirrors the artifact handlers of Maven-layout repositories.
var handlers = map[string]handler{
	"jar":          {extension: "jar"},
	"test-jar":     {extension: "jar", classifier: "tests"},
	"ejb":          {extension: "jar"},
	"ejb-client":   {extension: "jar", classifier: "client"},
	"maven-plugin": {extension: "jar"},
	"java-source":  {extension: "jar", classifier: "sources"},
	"javadoc":      {extension: "jar", classifier: "javadoc"},
	"war":          {extension: "war"},
	"ear":          {extension: "ear"},
	"rar":          {extension: "rar"},
	"pom":          {extension: "pom"},
}

// Error implements the error interface.
func (e *InvalidCoordinateError) Error() string {
	return fmt.Sprintf("invalid coordinate %q: missing %s", e.Value.String(), strings.Join(e.Missing, ", "))
}

// Unwrap returns ErrInvalidCoordinate.
func (e *InvalidCoordinateError) Unwrap() error { return ErrInvalidCoordinate }

// Validate reports missing group, artifact, or version.
func (c Coordinate) Validate() error {
	var missing []string
	if strings.TrimSpace(c.GroupID) == "" {
		missing = append(missing, "groupId")
	}
	if strings.TrimSpace(c.ArtifactID) == "" {
		missing = append(missing, "artifactId")
	}
	if strings.TrimSpace(c.Version) == "" {
		missing = append(missing, "version")
	}
	if len(missing) > 0 {
		return &InvalidCoordinateError{Value: c, Missing: missing}
	}
	return nil
}

// EffectiveType returns Type, or DefaultType when unset.
func (c Coordinate) EffectiveType() string {
	if c.Type == "" {
		return DefaultType
	}
	return c.Type
}

// Extension returns the file extension the coordinate's type is stored with.
// Unknown types are stored under their own name.
func (c Coordinate) Extension() string {
	t := c.EffectiveType()
	if h, ok := handlers[t]; ok {
		return h.extension
	}
	return t
}

// EffectiveClassifier returns Classifier, or the classifier implied by the
// type (e.g. "tests" for test-jar).
func (c Coordinate) EffectiveClassifier() string {
	if c.Classifier != "" {
		return c.Classifier
	}
	return handlers[c.EffectiveType()].classifier
}

// FileName is the repository file name: artifact-version[-classifier].ext.
func (c Coordinate) FileName() string {
	name := c.ArtifactID + "-" + c.Version
	if cls := c.EffectiveClassifier(); cls != "" {
		name += "-" + cls
	}
	return name + "." + c.Extension()
}

// WithClassifier returns a copy of c carrying classifier.
func (c Coordinate) WithClassifier(classifier string) Coordinate {
	c.Classifier = classifier
	return c
}

// String formats c as group:artifact:type[:classifier]:version.
func (c Coordinate) String() string {
	parts := []string{c.GroupID, c.ArtifactID, c.EffectiveType()}
	if c.Classifier != "" {
		parts = append(parts, c.Classifier)
	}
	parts = append(parts, c.Version)
	return strings.Join(parts, ":")
}
