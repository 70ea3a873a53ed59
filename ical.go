// Package ical implements an iCalendar parser, validator and formatter.
//
// iCalendar is defined in RFC 5545.
//
// Parse reads a stream into one or more Calendar values, recording any
// syntax or structural anomaly as a Finding instead of failing. Validate walks
// a Calendar and reports semantic findings. Format writes a Calendar back out
// as folded, escaped content lines.
package ical

import (
	"strings"
)

// ComponentKind classifies a component by its name.
type ComponentKind int

const (
	KindExtension ComponentKind = iota
	KindCalendar
	KindEvent
	KindToDo
	KindJournal
	KindFreeBusy
	KindAlarm
	KindTimezone
	KindStandard
	KindDaylight
)

// Component names defined by RFC 5545.
const (
	CompCalendar = "VCALENDAR"
	CompEvent    = "VEVENT"
	CompToDo     = "VTODO"
	CompJournal  = "VJOURNAL"
	CompFreeBusy = "VFREEBUSY"
	CompAlarm    = "VALARM"
	CompTimezone = "VTIMEZONE"
	CompStandard = "STANDARD"
	CompDaylight = "DAYLIGHT"
)

var componentKinds = map[string]ComponentKind{
	CompCalendar: KindCalendar,
	CompEvent:    KindEvent,
	CompToDo:     KindToDo,
	CompJournal:  KindJournal,
	CompFreeBusy: KindFreeBusy,
	CompAlarm:    KindAlarm,
	CompTimezone: KindTimezone,
	CompStandard: KindStandard,
	CompDaylight: KindDaylight,
}

// KindOf returns the kind for a component name. Names that are not defined
// by RFC 5545 (X- names and other IANA tokens) are KindExtension.
func KindOf(name string) ComponentKind {
	if k, ok := componentKinds[strings.ToUpper(name)]; ok {
		return k
	}
	return KindExtension
}

// A Calendar represents one VCALENDAR object
type Calendar struct {
	Properties []*Property
	Components []*Component
}

// A Component represents a BEGIN/END block nested in a Calendar
type Component struct {
	Name       string
	Properties []*Property
	Components []*Component
}

// A Property represents a content line inside a calendar or a component.
//
// Value always holds something that can be written back: when the raw value
// could not be decoded, Value is an Unknown carrying the raw text and Err
// records why decoding failed.
type Property struct {
	Name   string
	Params []*Param
	Value  Value
	Err    error

	// Line is the source line the property started on, zero when the
	// property was built in memory.
	Line int
}

// A Param represents a property parameter with one or more values
type Param struct {
	Name   string
	Values []string
}

// NewCalendar creates an empty Calendar
func NewCalendar() *Calendar {
	c := &Calendar{}
	c.Properties = make([]*Property, 0)
	c.Components = make([]*Component, 0)
	return c
}

// NewComponent creates an empty Component with the given name
func NewComponent(name string) *Component {
	c := &Component{Name: strings.ToUpper(name)}
	c.Properties = make([]*Property, 0)
	c.Components = make([]*Component, 0)
	return c
}

// NewProperty creates a Property holding v
func NewProperty(name string, v Value) *Property {
	p := &Property{Name: strings.ToUpper(name), Value: v}
	p.Params = make([]*Param, 0)
	return p
}

// NewParam creates a Param with the given values
func NewParam(name string, values ...string) *Param {
	p := &Param{Name: strings.ToUpper(name)}
	p.Values = append(make([]string, 0, len(values)), values...)
	return p
}

// Kind returns the kind of the component.
func (c *Component) Kind() ComponentKind {
	return KindOf(c.Name)
}

// AddProperty appends p to the calendar properties.
func (c *Calendar) AddProperty(p *Property) {
	c.Properties = append(c.Properties, p)
}

// RemoveProperty removes the property at index i, keeping the order of the
// remaining properties.
func (c *Calendar) RemoveProperty(i int) {
	c.Properties = removeProperty(c.Properties, i)
}

// Property returns the first property named name, or nil.
func (c *Calendar) Property(name string) *Property {
	return findProperty(c.Properties, name)
}

// PropertiesNamed returns every property named name, in order.
func (c *Calendar) PropertiesNamed(name string) []*Property {
	return filterProperties(c.Properties, name)
}

// AddComponent appends comp to the calendar components.
func (c *Calendar) AddComponent(comp *Component) {
	c.Components = append(c.Components, comp)
}

// RemoveComponent removes the component at index i.
func (c *Calendar) RemoveComponent(i int) {
	c.Components = removeComponent(c.Components, i)
}

// ComponentsNamed returns the top level components named name.
func (c *Calendar) ComponentsNamed(name string) []*Component {
	return filterComponents(c.Components, name)
}

// Events returns the VEVENT components of the calendar.
func (c *Calendar) Events() []*Component {
	return c.ComponentsNamed(CompEvent)
}

// AddProperty appends p to the component properties.
func (c *Component) AddProperty(p *Property) {
	c.Properties = append(c.Properties, p)
}

// RemoveProperty removes the property at index i.
func (c *Component) RemoveProperty(i int) {
	c.Properties = removeProperty(c.Properties, i)
}

// Property returns the first property named name, or nil.
func (c *Component) Property(name string) *Property {
	return findProperty(c.Properties, name)
}

// PropertiesNamed returns every property named name, in order.
func (c *Component) PropertiesNamed(name string) []*Property {
	return filterProperties(c.Properties, name)
}

// AddComponent appends a nested component.
func (c *Component) AddComponent(comp *Component) {
	c.Components = append(c.Components, comp)
}

// RemoveComponent removes the nested component at index i.
func (c *Component) RemoveComponent(i int) {
	c.Components = removeComponent(c.Components, i)
}

// ComponentsNamed returns the nested components named name.
func (c *Component) ComponentsNamed(name string) []*Component {
	return filterComponents(c.Components, name)
}

// AddParam appends a parameter, even if one with the same name exists.
func (p *Property) AddParam(param *Param) {
	p.Params = append(p.Params, param)
}

// SetParam replaces the first parameter named name, or appends a new one.
func (p *Property) SetParam(name string, values ...string) {
	if param := p.Param(name); param != nil {
		param.Values = append(param.Values[:0], values...)
		return
	}
	p.AddParam(NewParam(name, values...))
}

// RemoveParam removes every parameter named name.
func (p *Property) RemoveParam(name string) {
	kept := p.Params[:0]
	for _, param := range p.Params {
		if !strings.EqualFold(param.Name, name) {
			kept = append(kept, param)
		}
	}
	p.Params = kept
}

// Param returns the first parameter named name, or nil.
func (p *Property) Param(name string) *Param {
	for _, param := range p.Params {
		if strings.EqualFold(param.Name, name) {
			return param
		}
	}
	return nil
}

// ParamValue returns the first value of the parameter named name.
func (p *Property) ParamValue(name string) string {
	if param := p.Param(name); param != nil && len(param.Values) > 0 {
		return param.Values[0]
	}
	return ""
}

// Equal reports whether two calendars are structurally equal. Values are
// compared by decoded meaning; source lines and decode errors are ignored.
func (c *Calendar) Equal(o *Calendar) bool {
	if c == nil || o == nil {
		return c == o
	}
	return propertiesEqual(c.Properties, o.Properties) && componentsEqual(c.Components, o.Components)
}

// Equal reports whether two components are structurally equal.
func (c *Component) Equal(o *Component) bool {
	if c == nil || o == nil {
		return c == o
	}
	return strings.EqualFold(c.Name, o.Name) &&
		propertiesEqual(c.Properties, o.Properties) &&
		componentsEqual(c.Components, o.Components)
}

// Equal reports whether two properties have the same name, parameters and
// decoded value.
func (p *Property) Equal(o *Property) bool {
	if p == nil || o == nil {
		return p == o
	}
	if !strings.EqualFold(p.Name, o.Name) || len(p.Params) != len(o.Params) {
		return false
	}
	for i := range p.Params {
		if !p.Params[i].Equal(o.Params[i]) {
			return false
		}
	}
	return ValuesEqual(p.Value, o.Value)
}

// Equal reports whether two parameters have the same name and values.
func (p *Param) Equal(o *Param) bool {
	if !strings.EqualFold(p.Name, o.Name) || len(p.Values) != len(o.Values) {
		return false
	}
	for i := range p.Values {
		if p.Values[i] != o.Values[i] {
			return false
		}
	}
	return true
}

// model helpers

func findProperty(props []*Property, name string) *Property {
	for _, prop := range props {
		if strings.EqualFold(prop.Name, name) {
			return prop
		}
	}
	return nil
}

func filterProperties(props []*Property, name string) []*Property {
	var out []*Property
	for _, prop := range props {
		if strings.EqualFold(prop.Name, name) {
			out = append(out, prop)
		}
	}
	return out
}

func filterComponents(comps []*Component, name string) []*Component {
	var out []*Component
	for _, comp := range comps {
		if strings.EqualFold(comp.Name, name) {
			out = append(out, comp)
		}
	}
	return out
}

func removeProperty(props []*Property, i int) []*Property {
	if i < 0 || i >= len(props) {
		return props
	}
	return append(props[:i], props[i+1:]...)
}

func removeComponent(comps []*Component, i int) []*Component {
	if i < 0 || i >= len(comps) {
		return comps
	}
	return append(comps[:i], comps[i+1:]...)
}

func propertiesEqual(a, b []*Property) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func componentsEqual(a, b []*Component) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
