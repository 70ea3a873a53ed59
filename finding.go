package ical

import (
	"fmt"
	"strings"
)

// Severity tells whether a finding makes the calendar invalid.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// ParseSeverity maps "error" and "warning" to a Severity.
func ParseSeverity(s string) (Severity, bool) {
	switch strings.ToLower(s) {
	case "error":
		return SeverityError, true
	case "warning":
		return SeverityWarning, true
	}
	return SeverityError, false
}

// Rule identifiers. They are stable and may be used to filter findings or to
// configure a Validator.
const (
	RuleSyntaxLine         = "syntax.line"
	RuleSyntaxContinuation = "syntax.continuation"
	RuleSyntaxLineEnding   = "syntax.line-ending"

	RuleStructureEnd          = "structure.end"
	RuleStructureUnterminated = "structure.unterminated"
	RuleStructureOutside      = "structure.outside-calendar"

	RuleValueDecode = "value.decode"

	RuleCardinalityRequired   = "cardinality.required"
	RuleCardinalityNotAllowed = "cardinality.not-allowed"
	RuleUniquenessConflict    = "uniqueness.conflict"
	RuleUniquenessDuplicate   = "uniqueness.duplicate"
	RuleExclusion             = "exclusion.mutual"
	RuleDependency            = "dependency"
	RuleReferenceTZID         = "reference.tzid"
	RuleContainment           = "containment"
	RuleComponentEmpty        = "component.empty"

	RuleValueType      = "value.type"
	RuleValueInferred  = "value.inferred"
	RuleValueRedundant = "value.redundant"
	RuleValueUTC       = "value.utc"
	RuleValueLocal     = "value.local"
	RuleValueOrder     = "value.order"
	RuleValueRange     = "value.range"
	RuleValueEnum      = "value.enum"
	RuleValueEncoding  = "value.encoding"
	RuleNegativeZero   = "offset.negative-zero"

	RuleParamNotAllowed = "param.not-allowed"
	RuleParamDuplicate  = "param.duplicate"
	RuleParamMultiple   = "param.multiple"
	RuleParamValue      = "param.value"

	RuleRecurUntilCount = "recur.until-count"
	RuleRecurPart       = "recur.part"
	RuleRecurDTStart    = "recur.dtstart"

	RuleCalendarVersion = "calendar.version"
)

// A PathElem is one step from a calendar down to the subject of a finding.
type PathElem struct {
	Property bool
	Name     string
	Index    int
}

func (e PathElem) String() string {
	kind := "component"
	if e.Property {
		kind = "property"
	}
	return fmt.Sprintf("%s %q at index %d", kind, e.Name, e.Index)
}

// Path locates a component or property. The first element is the
// VCALENDAR, indexed by its position in the parsed stream.
type Path []PathElem

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, e := range p {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", in ")
}

// component returns a copy of p extended with a component step.
func (p Path) component(name string, index int) Path {
	return p.with(PathElem{Name: name, Index: index})
}

// property returns a copy of p extended with a property step.
func (p Path) property(name string, index int) Path {
	return p.with(PathElem{Property: true, Name: name, Index: index})
}

func (p Path) with(e PathElem) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, e)
}

// A Finding reports a structural or semantic problem. Findings never stop
// parsing or validation.
type Finding struct {
	Severity Severity
	Rule     string
	Path     Path
	// Line is the source line the finding refers to, zero when unknown.
	Line    int
	Message string
}

// String renders f as
//
//	In component "VEVENT" at index 0, in property "UID" at index 3: message
func (f Finding) String() string {
	var b strings.Builder
	if len(f.Path) > 0 {
		b.WriteString("In ")
		b.WriteString(f.Path.String())
		b.WriteString(": ")
	} else if f.Line > 0 {
		fmt.Fprintf(&b, "Line %d: ", f.Line)
	}
	b.WriteString(f.Message)
	return b.String()
}

// HasErrors reports whether findings holds at least one error.
func HasErrors(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}
