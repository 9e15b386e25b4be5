package jsonapi

import (
	"net/url"
	"strconv"
	"strings"
)

// componentReplacer turns url.QueryEscape output into encodeURIComponent output.
var componentReplacer = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// Param is one registered query parameter. Values holds more than one entry
// only for list parameters.
type Param struct {
	Name   string   `json:"name"   yaml:"name"`
	Values []string `json:"values" yaml:"values"`
	List   bool     `json:"list"   yaml:"list"`
}

// QueryParams is an insertion-ordered parameter map. Overwriting a name keeps
// its original position.
type QueryParams struct {
	order  []string
	values map[string]Param
}

// NewQueryParams creates an empty parameter map.
func NewQueryParams() *QueryParams {
	return &QueryParams{
		values: make(map[string]Param),
	}
}

// Set registers a scalar parameter.
func (p *QueryParams) Set(name, value string) {
	p.put(Param{Name: name, Values: []string{value}})
}

// SetList registers a list parameter, encoded as name[1]=..&name[2]=..
func (p *QueryParams) SetList(name string, values []string) {
	p.put(Param{Name: name, Values: append([]string(nil), values...), List: true})
}

func (p *QueryParams) put(param Param) {
	if p.values == nil {
		p.values = make(map[string]Param)
	}

	if _, exists := p.values[param.Name]; !exists {
		p.order = append(p.order, param.Name)
	}

	p.values[param.Name] = param
}

// Get returns the scalar value of name. For list parameters the first value is returned.
func (p *QueryParams) Get(name string) (string, bool) {
	param, ok := p.values[name]
	if !ok || len(param.Values) == 0 {
		return "", false
	}

	return param.Values[0], true
}

// Values returns every value registered under name.
func (p *QueryParams) Values(name string) []string {
	param, ok := p.values[name]
	if !ok {
		return nil
	}

	return append([]string(nil), param.Values...)
}

// Has reports whether name is registered.
func (p *QueryParams) Has(name string) bool {
	_, ok := p.values[name]

	return ok
}

// Keys returns the parameter names in registration order.
func (p *QueryParams) Keys() []string {
	return append([]string(nil), p.order...)
}

// Len returns the number of registered parameters.
func (p *QueryParams) Len() int {
	return len(p.order)
}

// Snapshot returns an ordered copy of every parameter.
func (p *QueryParams) Snapshot() []Param {
	params := make([]Param, 0, len(p.order))

	for _, name := range p.order {
		param := p.values[name]
		param.Values = append([]string(nil), param.Values...)
		params = append(params, param)
	}

	return params
}

// Clone returns an independent copy.
func (p *QueryParams) Clone() *QueryParams {
	clone := NewQueryParams()

	for _, param := range p.Snapshot() {
		clone.put(param)
	}

	return clone
}

// Encode serializes the parameters in registration order.
func (p *QueryParams) Encode() string {
	if p == nil || len(p.order) == 0 {
		return ""
	}

	var buf strings.Builder

	for _, name := range p.order {
		param := p.values[name]

		if !param.List {
			writePair(&buf, name, param.Values[0])

			continue
		}

		for i, value := range param.Values {
			writePair(&buf, name+"["+strconv.Itoa(i+1)+"]", value)
		}
	}

	return buf.String()
}

func writePair(buf *strings.Builder, name, value string) {
	if buf.Len() > 0 {
		buf.WriteByte('&')
	}

	buf.WriteString(EncodeComponent(name))
	buf.WriteByte('=')
	buf.WriteString(EncodeComponent(value))
}

// EncodeComponent percent-encodes s the way JavaScript's encodeURIComponent does.
func EncodeComponent(s string) string {
	return componentReplacer.Replace(url.QueryEscape(s))
}
