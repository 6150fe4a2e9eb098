// SPDX-License-Identifier: MPL-2.0

package descriptor

// Template parameter names.
const (
	ParamGeneratorID         = "generator.id"
	ParamDataSourceType      = "data-source-type"
	ParamDataSourceName      = "data-source-name"
	ParamDBPlatform          = "db.platform"
	ParamServerPlatform      = "server.platform"
	ParamServerPlatformClass = "server.platform.class"
	ParamServerWeaving       = "server.weaving"
	ParamLoggingLevel        = "logging.level"
	ParamUnitName            = "unit.name"
	ParamTestRunners         = "testRunners"
)

// Parameters is the set of named template parameters. Every entry is
// visible to the templates as .Params; setting an existing name replaces its
// value.
type Parameters struct {
	names  []string
	values map[string]string
}

// NewParameters returns an empty parameter set.
func NewParameters() *Parameters {
	return &Parameters{values: make(map[string]string)}
}

// Set assigns value to name.
func (p *Parameters) Set(name, value string) *Parameters {
	if _, ok := p.values[name]; !ok {
		p.names = append(p.names, name)
	}
	p.values[name] = value
	return p
}

// Get returns the value of name, or "".
func (p *Parameters) Get(name string) string {
	if p == nil {
		return ""
	}
	return p.values[name]
}

// Has reports whether name was set.
func (p *Parameters) Has(name string) bool {
	if p == nil {
		return false
	}
	_, ok := p.values[name]
	return ok
}

// Names returns parameter names in insertion order.
func (p *Parameters) Names() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.names...)
}

// Map returns a copy of the parameters as a plain map. A nil set yields an
// empty map.
func (p *Parameters) Map() map[string]string {
	out := make(map[string]string, len(p.Names()))
	for _, n := range p.Names() {
		out[n] = p.values[n]
	}
	return out
}
