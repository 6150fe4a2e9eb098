// SPDX-License-Identifier: MPL-2.0

package coords

import (
	"strings"

	"golang.org/x/exp/slices"
)

const (
	memberMarker   = "member"
	memberClassify = "ejb"
)

// Dependencies is a module's declared dependency list, in declaration order.
type Dependencies []Coordinate

// ByArtifactID returns the first dependency with the given artifactId.
func (d Dependencies) ByArtifactID(artifactID string) (Coordinate, bool) {
	i := slices.IndexFunc(d, func(c Coordinate) bool { return c.ArtifactID == artifactID })
	if i < 0 {
		return Coordinate{}, false
	}
	return d[i], true
}

// Member returns the first dependency whose classifier mentions "member".
// This is the module's own per-member build output, expanded into the inner
// archive.
func (d Dependencies) Member() (Coordinate, bool) {
	i := slices.IndexFunc(d, func(c Coordinate) bool { return strings.Contains(c.Classifier, memberMarker) })
	if i < 0 {
		return Coordinate{}, false
	}
	return d[i], true
}

// MemberModules returns the dependencies whose artifactId mentions "member",
// re-classified as "ejb". The receiver is left untouched.
func (d Dependencies) MemberModules() Dependencies {
	var out Dependencies
	for _, c := range d {
		if strings.Contains(c.ArtifactID, memberMarker) {
			out = append(out, c.WithClassifier(memberClassify))
		}
	}
	return out
}

// TestArtifacts returns test-jar typed or "model" classified dependencies.
func (d Dependencies) TestArtifacts() Dependencies {
	var out Dependencies
	for _, c := range d {
		if c.Type == "test-jar" || c.Classifier == "model" {
			out = append(out, c)
		}
	}
	return out
}

// Clone returns an independent copy of d.
func (d Dependencies) Clone() Dependencies {
	return slices.Clone(d)
}
