package ical

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// A Validator checks calendars against the semantic rules of RFC 5545.
//
// A Validator never modifies the calendars it checks and may be used from
// several goroutines at once.
type Validator struct {
	cfg      ValidateConfig
	disabled map[string]bool
	severity map[string]Severity

	// Logger receives every finding at debug level.
	Logger logrus.FieldLogger
}

// NewValidator returns a Validator configured by cfg. Unknown severity names
// in cfg are ignored.
func NewValidator(cfg ValidateConfig) *Validator {
	cfg.normalize()
	v := &Validator{
		cfg:      cfg,
		disabled: make(map[string]bool, len(cfg.DisabledRules)),
		severity: make(map[string]Severity, len(cfg.Severity)),
		Logger:   logrus.StandardLogger(),
	}
	for _, rule := range cfg.DisabledRules {
		v.disabled[rule] = true
	}
	for rule, s := range cfg.Severity {
		if sev, ok := ParseSeverity(s); ok {
			v.severity[rule] = sev
		}
	}
	return v
}

var defaultValidator = NewValidator(ValidateConfig{})

// Validate checks cal with the default configuration.
func Validate(cal *Calendar) []Finding {
	return defaultValidator.Validate(cal)
}

// Validate checks cal and returns every finding, in document order. Running
// it twice on the same calendar yields the same findings.
func (v *Validator) Validate(cal *Calendar) []Finding {
	return v.validate(cal, 0)
}

// ValidateAll checks each calendar concurrently. The findings of cals[i]
// are at index i, and paths are rooted at that index.
func (v *Validator) ValidateAll(ctx context.Context, cals []*Calendar) ([][]Finding, error) {
	out := make([][]Finding, len(cals))
	g, ctx := errgroup.WithContext(ctx)
	for i, cal := range cals {
		i, cal := i, cal
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = v.validate(cal, i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (v *Validator) validate(cal *Calendar, index int) []Finding {
	if cal == nil {
		return nil
	}
	c := &check{v: v, cal: cal, tzids: declaredTimezones(cal)}
	c.method = cal.Property(PropMethod) != nil
	c.calendar(Path{{Name: CompCalendar, Index: index}})

	v.Logger.WithFields(logrus.Fields{
		"calendar": index,
		"findings": len(c.findings),
	}).Debug("ical: validation done")
	return c.findings
}

// declaredTimezones collects the TZID of every VTIMEZONE of cal.
func declaredTimezones(cal *Calendar) map[string]bool {
	tzids := make(map[string]bool)
	for _, comp := range cal.Components {
		if comp.Kind() != KindTimezone {
			continue
		}
		if p := comp.Property(PropTZID); p != nil {
			if t, ok := p.Value.(Text); ok {
				tzids[string(t)] = true
			}
		}
	}
	return tzids
}

// check holds the state of one validation pass.
type check struct {
	v        *Validator
	cal      *Calendar
	tzids    map[string]bool
	method   bool
	findings []Finding
}

func (c *check) report(sev Severity, rule string, path Path, line int, msg string) {
	if c.v.disabled[rule] {
		return
	}
	if s, ok := c.v.severity[rule]; ok {
		sev = s
	}
	f := Finding{Severity: sev, Rule: rule, Path: path, Line: line, Message: msg}
	c.findings = append(c.findings, f)
	countFinding("validate", f)
	c.v.Logger.WithFields(logrus.Fields{
		"path": path.String(),
		"rule": rule,
	}).Debug(msg)
}

func (c *check) errorf(rule string, path Path, p *Property, msg string) {
	c.report(SeverityError, rule, path, lineOf(p), msg)
}

func (c *check) warnf(rule string, path Path, p *Property, msg string) {
	c.report(SeverityWarning, rule, path, lineOf(p), msg)
}

func lineOf(p *Property) int {
	if p == nil {
		return 0
	}
	return p.Line
}

func (c *check) calendar(path Path) {
	cal := c.cal
	c.cardinality(path, KindCalendar, cal.Properties, calendarProps, nil)
	for i, p := range cal.Properties {
		c.property(path.property(p.Name, i), KindCalendar, p)
	}

	if len(cal.Components) == 0 {
		c.errorf(RuleComponentEmpty, path, nil, "calendar must contain at least one component")
	}
	for i, comp := range cal.Components {
		c.component(path.component(comp.Name, i), KindCalendar, comp)
	}
}

func (c *check) component(path Path, parent ComponentKind, comp *Component) {
	kind := comp.Kind()
	if !canContain(parent, kind) {
		c.errorf(RuleContainment, path, nil, comp.Name+" is not allowed in "+kindName(parent))
	}

	for i, p := range comp.Properties {
		c.property(path.property(p.Name, i), kind, p)
	}

	if kind != KindExtension {
		if len(comp.Properties) == 0 {
			c.warnf(RuleComponentEmpty, path, nil, comp.Name+" has no properties")
		}
		var relax map[string]bool
		if kind == KindEvent && c.method {
			relax = map[string]bool{PropDTStart: true}
		}
		c.cardinality(path, kind, comp.Properties, propsFor(comp), relax)
		c.componentRules(path, comp)
	}

	for i, child := range comp.Components {
		c.component(path.component(child.Name, i), kind, child)
	}
}

func kindName(k ComponentKind) string {
	for name, kind := range componentKinds {
		if kind == k {
			return name
		}
	}
	return "an extension component"
}

// cardinality applies the occurrence rules of a component to its properties.
func (c *check) cardinality(path Path, kind ComponentKind, props []*Property, rules []propRule, relax map[string]bool) {
	for _, rule := range rules {
		var idx []int
		for i, p := range props {
			if strings.EqualFold(p.Name, rule.name) {
				idx = append(idx, i)
			}
		}

		if len(idx) == 0 && (rule.occ == required || rule.occ == oneOrMore) && !relax[rule.name] {
			c.errorf(RuleCardinalityRequired, path, nil, "missing required property "+rule.name)
		}

		if len(idx) > 1 && (rule.occ == required || rule.occ == optional) {
			first := props[idx[0]]
			for _, i := range idx[1:] {
				p := props[i]
				ppath := path.property(p.Name, i)
				switch {
				case !p.Equal(first):
					c.errorf(RuleUniquenessConflict, ppath, p,
						rule.name+" must not occur more than once, found conflicting value "+quoteValue(p.Value))
				case c.v.cfg.StrictDuplicates:
					c.errorf(RuleUniquenessDuplicate, ppath, p, rule.name+" must not occur more than once")
				}
			}
		}
	}

	for i, p := range props {
		if _, known := lookupProperty(p.Name); !known || findRule(rules, p.Name) {
			continue
		}
		c.errorf(RuleCardinalityNotAllowed, path.property(p.Name, i), p,
			p.Name+" is not allowed in "+kindName(kind))
	}
}

func quoteValue(v Value) string {
	s := EncodeValue(v)
	if len(s) > 40 {
		s = s[:40] + "..."
	}
	return "\"" + s + "\""
}
