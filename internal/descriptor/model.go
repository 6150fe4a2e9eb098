// SPDX-License-Identifier: MPL-2.0

package descriptor

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/earpack/earpack/internal/props"
	"github.com/earpack/earpack/internal/runners"
)

const (
	transactionJTA           = "JTA"
	transactionResourceLocal = "RESOURCE_LOCAL"

	defaultPersistenceVersion = "3.0"
)

// Properties the generator owns on the server side. Any value the source
// document carries for these is dropped before the generated ones are added.
var serverManaged = map[string]bool{
	"eclipselink.target-server":   true,
	"eclipselink.target-database": true,
	"eclipselink.weaving":         true,
	"eclipselink.logging.level":   true,
}

// Connection settings only make sense outside a container.
var clientOnlyPrefixes = []string{
	"javax.persistence.jdbc.",
	"jakarta.persistence.jdbc.",
	"eclipselink.jdbc.",
}

type (
	persistenceDoc struct {
		XMLName xml.Name          `xml:"persistence"`
		Version string            `xml:"version,attr"`
		Units   []persistenceUnit `xml:"persistence-unit"`
	}

	persistenceUnit struct {
		Name             string     `xml:"name,attr"`
		TransactionType  string     `xml:"transaction-type,attr"`
		Description      string     `xml:"description"`
		Provider         string     `xml:"provider"`
		JTADataSource    string     `xml:"jta-data-source"`
		NonJTADataSource string     `xml:"non-jta-data-source"`
		MappingFiles     []string   `xml:"mapping-file"`
		JarFiles         []string   `xml:"jar-file"`
		Classes          []string   `xml:"class"`
		ExcludeUnlisted  string     `xml:"exclude-unlisted-classes"`
		SharedCacheMode  string     `xml:"shared-cache-mode"`
		ValidationMode   string     `xml:"validation-mode"`
		Properties       []property `xml:"properties>property"`
	}

	property struct {
		Name  string `xml:"name,attr"`
		Value string `xml:"value,attr"`
	}

	runnerBean struct {
		Name  string
		Class string
	}

	// renderData is what both templates execute against. Params carries
	// every parameter passed to Generate, by name.
	renderData struct {
		Params      map[string]string
		Version     string
		UnitName    string
		Units       []persistenceUnit
		Runners     []runnerBean
	}
)

// decodePersistence reads a persistence.xml document. Only the predefined XML
// entities are understood; a document referencing any other entity fails to
// decode, so nothing outside the source file is ever read.
func decodePersistence(r io.Reader) (*persistenceDoc, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = true
	var doc persistenceDoc
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// newRenderData applies params to the decoded source document.
func newRenderData(doc *persistenceDoc, params *Parameters) renderData {
	data := renderData{
		Params:   params.Map(),
		Version:  doc.Version,
		UnitName: params.Get(ParamUnitName),
	}
	if data.Version == "" {
		data.Version = defaultPersistenceVersion
	}
	for _, u := range doc.Units {
		data.Units = append(data.Units, serverUnit(u, params))
	}
	for name := range strings.FieldsSeq(params.Get(ParamTestRunners)) {
		data.Runners = append(data.Runners, runnerBean{Name: name, Class: runners.BeanClass(name)})
	}
	return data
}

func serverUnit(u persistenceUnit, params *Parameters) persistenceUnit {
	out := u
	out.JTADataSource, out.NonJTADataSource = "", ""

	dsName := params.Get(ParamDataSourceName)
	if strings.EqualFold(params.Get(ParamDataSourceType), transactionResourceLocal) {
		out.TransactionType = transactionResourceLocal
		out.NonJTADataSource = dsName
	} else {
		out.TransactionType = transactionJTA
		out.JTADataSource = dsName
	}

	out.Properties = nil
	for _, p := range u.Properties {
		if serverManaged[p.Name] || hasClientOnlyPrefix(p.Name) {
			continue
		}
		out.Properties = append(out.Properties, p)
	}
	out.Properties = appendIfSet(out.Properties, "eclipselink.target-server", targetServer(params))
	out.Properties = appendIfSet(out.Properties, "eclipselink.target-database", params.Get(ParamDBPlatform))
	out.Properties = appendIfSet(out.Properties, "eclipselink.weaving", params.Get(ParamServerWeaving))
	out.Properties = appendIfSet(out.Properties, "eclipselink.logging.level", params.Get(ParamLoggingLevel))
	return out
}

// targetServer prefers the platform class unless it is the unresolved
// placeholder the alias resolver falls back to.
func targetServer(params *Parameters) string {
	class := params.Get(ParamServerPlatformClass)
	if class != "" && class != props.PlatformClassFallback {
		return class
	}
	return params.Get(ParamServerPlatform)
}

func appendIfSet(ps []property, name, value string) []property {
	if value == "" {
		return ps
	}
	return append(ps, property{Name: name, Value: value})
}

func hasClientOnlyPrefix(name string) bool {
	for _, p := range clientOnlyPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}
