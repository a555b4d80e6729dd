package layout

import (
	"encoding/json"
	"strings"
)

// Parameter is one KEY[=VALUE] token from a table's parameters line, such as
// ENGINE=InnoDB. A bare token such as DEFAULT has no value.
type Parameter struct {
	Name     string
	Value    string
	HasValue bool
}

// String returns the value, or "NULL" for a parameter without one.
func (p Parameter) String() string {
	if !p.HasValue {
		return "NULL"
	}
	return p.Value
}

// MarshalJSON encodes the parameter's value, or null if it has none. The name
// is not included, since it is already the map key in serialized layouts.
func (p Parameter) MarshalJSON() ([]byte, error) {
	if !p.HasValue {
		return []byte("null"), nil
	}
	return json.Marshal(p.Value)
}

// ParseParameters tokenizes a parameters line, which is expected to begin with
// a closing paren as emitted by SHOW CREATE TABLE. Tokens are split on
// whitespace, and each token is split at its first equals sign. Quoted values
// containing whitespace are not handled specially.
func ParseParameters(line string) []Parameter {
	line = strings.TrimPrefix(line, ")")
	tokens := strings.Fields(line)
	params := make([]Parameter, 0, len(tokens))
	for _, token := range tokens {
		name, value, hasValue := strings.Cut(token, "=")
		params = append(params, Parameter{Name: name, Value: value, HasValue: hasValue})
	}
	return params
}

// ParameterMap indexes parameters by name. If a name appears more than once,
// the last occurrence wins.
type ParameterMap map[string]Parameter

// NewParameterMap builds a ParameterMap from a slice of parameters.
func NewParameterMap(params []Parameter) ParameterMap {
	pm := make(ParameterMap, len(params))
	for _, p := range params {
		pm[p.Name] = p
	}
	return pm
}

// Without returns a copy of pm with the named parameters removed.
func (pm ParameterMap) Without(names ...string) ParameterMap {
	result := make(ParameterMap, len(pm))
	for name, p := range pm {
		result[name] = p
	}
	for _, name := range names {
		delete(result, name)
	}
	return result
}
