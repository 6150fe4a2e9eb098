// SPDX-License-Identifier: MPL-2.0

// Package runners derives the test runner names a framework archive provides.
//
// The deployment descriptor declares one session bean per runner that
// survives the framework exclusion filter. Scanning the framework archive is
// comparatively expensive and its result depends only on the archive contents
// and the filter, so results are memoized per filter for the lifetime of the
// process.
package runners

import (
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/klauspost/compress/zip"
	"golang.org/x/sync/singleflight"

	"github.com/earpack/earpack/internal/filter"
	"github.com/earpack/earpack/internal/issue"
)

const (
	// Marker selects candidate entries: only names containing it are runners.
	Marker = "TestRunner"

	frameworkPackage = "org/eclipse/persistence/testing/framework/jpa/server/"
)

// known maps framework entries to runner names. An empty name marks the
// runner interface itself, which does not become a bean.
var known = map[string]string{
	frameworkPackage + "TestRunner.class":                "",
	frameworkPackage + "GenericTestRunner.class":         "GenericTestRunner",
	frameworkPackage + "SingleUnitTestRunnerBean.class":  "SingleUnitTestRunner",
	frameworkPackage + "TestRunner1Bean.class":           "TestRunner1",
	frameworkPackage + "TestRunner2Bean.class":           "TestRunner2",
	frameworkPackage + "TestRunner3Bean.class":           "TestRunner3",
	frameworkPackage + "TestRunner4Bean.class":           "TestRunner4",
	frameworkPackage + "TestRunner5Bean.class":           "TestRunner5",
	frameworkPackage + "TestRunner6Bean.class":           "TestRunner6",
}

type (
	// opener opens a nested archive for reading.
	opener func(name string) (*zip.ReadCloser, error)

	// Cache memoizes runner names per exclusion filter.
	//
	// The key is the filter string alone. Callers must pass the same archive
	// for a given filter within one Cache lifetime; a different archive under
	// a cached filter returns the first archive's result.
	Cache struct {
		results sync.Map // filter -> string
		group   singleflight.Group
		open    opener
	}
)

// defaultCache is shared by every pipeline in the process.
var defaultCache = NewCache()

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{open: zip.OpenReader}
}

// Names returns runner names from the process-wide cache.
func Names(archive, exclusionFilter string) (string, error) {
	return defaultCache.Names(archive, exclusionFilter)
}

// Names returns the space-joined, sorted set of runner names in archive that
// survive exclusionFilter.
//
// Concurrent calls for the same uncached filter share a single scan; calls
// for different filters proceed independently. Failures are not cached.
func (c *Cache) Names(archive, exclusionFilter string) (string, error) {
	if v, ok := c.results.Load(exclusionFilter); ok {
		return v.(string), nil
	}

	re, err := filter.ParseRegex(exclusionFilter)
	if err != nil {
		return "", err
	}

	v, err, _ := c.group.Do(exclusionFilter, func() (any, error) {
		if v, ok := c.results.Load(exclusionFilter); ok {
			return v, nil
		}
		names, scanErr := c.scan(archive, func(name string) bool { return re.MatchString(name) })
		if scanErr != nil {
			return "", scanErr
		}
		c.results.Store(exclusionFilter, names)
		return names, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Len reports how many filters have cached results.
func (c *Cache) Len() int {
	n := 0
	c.results.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (c *Cache) scan(archive string, excluded func(string) bool) (string, error) {
	zr, err := c.open(archive)
	if err != nil {
		return "", issue.NewIOError("open archive", archive, err)
	}
	defer zr.Close()

	set := make(map[string]struct{})
	for _, f := range zr.File {
		if !strings.Contains(f.Name, Marker) || excluded(f.Name) {
			continue
		}
		if name := runnerName(f.Name); name != "" {
			set[name] = struct{}{}
		}
	}

	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	slices.Sort(names)
	return strings.Join(names, " "), nil
}

// runnerName maps an entry to its runner name, falling back to the base name
// without extension.
func runnerName(entry string) string {
	if name, ok := known[entry]; ok {
		return name
	}
	base := path.Base(entry)
	return strings.TrimSuffix(base, path.Ext(base))
}

// BeanClass returns the fully qualified implementation class for a runner
// name, as declared in the framework archive.
func BeanClass(runner string) string {
	for entry, name := range known {
		if name == runner && name != "" {
			return strings.ReplaceAll(strings.TrimSuffix(entry, ".class"), "/", ".")
		}
	}
	return strings.ReplaceAll(frameworkPackage, "/", ".") + runner + "Bean"
}
