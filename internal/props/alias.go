// SPDX-License-Identifier: MPL-2.0

package props

import "strings"

const (
	// PlatformClassFallback is returned for "server-platform-class" when the
	// configured platform is not one of the known ones.
	PlatformClassFallback = "server-platform-class"

	platformKey     = "server.platform"
	loggingLevelKey = "eclipselink.logging.level"
)

type (
	// aliasKind selects how an alias produces its value.
	aliasKind int

	alias struct {
		kind aliasKind
		key  string
	}

	// AliasResolver maps logical parameter names onto property keys.
	// Lookup is a case-sensitive exact match; unknown names are used as
	// property keys directly.
	AliasResolver struct {
		source Source
	}
)

const (
	aliasKey aliasKind = iota
	aliasLower
	aliasPlatformClass
)

var aliases = map[string]alias{
	"default":                  {kind: aliasKey, key: "persistence-unit.name"},
	"data-source-name":         {kind: aliasKey, key: "persistence-unit.data-source-name"},
	"session-data-source-name": {kind: aliasKey, key: "persistence-unit.data-source-name"},
	"data-source2-name":        {kind: aliasKey, key: "persistence-unit.data-source2-name"},
	"data-source3-name":        {kind: aliasKey, key: "persistence-unit.data-source3-name"},
	"datasource-type":          {kind: aliasKey, key: "persistence-unit.data-source-type"},
	"transaction-type":         {kind: aliasKey, key: "persistence-unit.transaction-type"},
	"server-platform":          {kind: aliasKey, key: platformKey},
	"server-platform-class":    {kind: aliasPlatformClass, key: platformKey},
	"database-platform":        {kind: aliasKey, key: "db.platform"},
	"database2-platform":       {kind: aliasKey, key: "db2.platform"},
	"database3-platform":       {kind: aliasKey, key: "db3.platform"},
	"server-weaving":           {kind: aliasKey, key: "persistence-unit.server-weaving"},
	loggingLevelKey:            {kind: aliasLower, key: loggingLevelKey},
}

// platformClasses maps a server platform name to its platform class literal.
var platformClasses = map[string]string{
	"JBoss":     "jboss-platform",
	"weblogic":  "org.eclipse.persistence.platform.server.wls.WebLogic_12_Platform",
	"Glassfish": "glassfish-platform",
}

// NewAliasResolver returns a resolver reading from source.
func NewAliasResolver(source Source) *AliasResolver {
	if source == nil {
		source = Properties{}
	}
	return &AliasResolver{source: source}
}

// Resolve returns the value for the logical parameter name.
func (r *AliasResolver) Resolve(name string) (string, bool) {
	a, ok := aliases[name]
	if !ok {
		return r.source.Value(name)
	}

	switch a.kind {
	case aliasPlatformClass:
		platform, _ := r.source.Value(a.key)
		return PlatformClass(platform), true
	case aliasLower:
		v, found := r.source.Value(a.key)
		if !found {
			return "", false
		}
		return strings.ToLower(v), true
	default:
		return r.source.Value(a.key)
	}
}

// Value implements Source, so a resolver can feed anything that consumes raw
// properties (resource filtering in particular).
func (r *AliasResolver) Value(key string) (string, bool) {
	return r.Resolve(key)
}

// PlatformClass returns the class literal for a server platform name, or
// PlatformClassFallback.
func PlatformClass(platform string) string {
	if cls, ok := platformClasses[platform]; ok {
		return cls
	}
	return PlatformClassFallback
}
