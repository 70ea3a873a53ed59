package ical

import (
	"strings"
)

type occurrence int

const (
	optional occurrence = iota // at most once
	required                   // exactly once
	anyNumber
	oneOrMore
)

type propRule struct {
	name string
	occ  occurrence
}

func findRule(rules []propRule, name string) bool {
	for _, r := range rules {
		if strings.EqualFold(r.name, name) {
			return true
		}
	}
	return false
}

func rules(occ occurrence, names ...string) []propRule {
	out := make([]propRule, len(names))
	for i, n := range names {
		out[i] = propRule{name: n, occ: occ}
	}
	return out
}

func join(lists ...[]propRule) []propRule {
	var out []propRule
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

var calendarProps = join(
	rules(required, PropProductID, PropVersion),
	rules(optional, PropCalScale, PropMethod, PropUID, PropLastModified, PropURL,
		PropRefreshInterval, PropSource, PropColor),
	rules(anyNumber, PropName, PropDescription, PropCategories, PropImage),
)

var componentProps = map[ComponentKind][]propRule{
	KindEvent: join(
		rules(required, PropDTStamp, PropUID, PropDTStart),
		rules(optional, PropClass, PropCreated, PropDescription, PropGeo, PropLastModified,
			PropLocation, PropOrganizer, PropPriority, PropSequence, PropStatus, PropSummary,
			PropTransp, PropURL, PropRecurrenceID, PropRRule, PropDTEnd, PropDuration, PropColor),
		rules(anyNumber, PropAttach, PropAttendee, PropCategories, PropComment, PropContact,
			PropExDate, PropRequestStatus, PropRelatedTo, PropResources, PropRDate,
			PropImage, PropConference),
	),
	KindToDo: join(
		rules(required, PropDTStamp, PropUID),
		rules(optional, PropClass, PropCompleted, PropCreated, PropDescription, PropDTStart,
			PropGeo, PropLastModified, PropLocation, PropOrganizer, PropPercentComplete,
			PropPriority, PropRecurrenceID, PropSequence, PropStatus, PropSummary, PropURL,
			PropRRule, PropDue, PropDuration, PropColor),
		rules(anyNumber, PropAttach, PropAttendee, PropCategories, PropComment, PropContact,
			PropExDate, PropRequestStatus, PropRelatedTo, PropResources, PropRDate,
			PropImage, PropConference),
	),
	KindJournal: join(
		rules(required, PropDTStamp, PropUID),
		rules(optional, PropClass, PropCreated, PropDTStart, PropLastModified, PropOrganizer,
			PropRecurrenceID, PropSequence, PropStatus, PropSummary, PropURL, PropRRule, PropColor),
		rules(anyNumber, PropAttach, PropAttendee, PropCategories, PropComment, PropContact,
			PropDescription, PropExDate, PropRelatedTo, PropRDate, PropRequestStatus, PropImage),
	),
	KindFreeBusy: join(
		rules(required, PropDTStamp, PropUID),
		rules(optional, PropContact, PropDTStart, PropDTEnd, PropOrganizer, PropURL),
		rules(anyNumber, PropAttendee, PropComment, PropFreeBusy, PropRequestStatus),
	),
	KindTimezone: join(
		rules(required, PropTZID),
		rules(optional, PropLastModified, PropTZURL),
	),
	KindStandard: observanceProps,
	KindDaylight: observanceProps,
}

var observanceProps = join(
	rules(required, PropDTStart, PropTZOffsetTo, PropTZOffsetFrom),
	rules(optional, PropRRule),
	rules(anyNumber, PropComment, PropRDate, PropTZName),
)

var alarmBase = join(
	rules(required, PropAction, PropTrigger),
	rules(optional, PropDuration, PropRepeat),
)

// alarmProps depends on the ACTION of the alarm.
var alarmProps = map[string][]propRule{
	"AUDIO":   join(alarmBase, rules(optional, PropAttach)),
	"DISPLAY": join(alarmBase, rules(required, PropDescription)),
	"EMAIL": join(alarmBase,
		rules(required, PropDescription, PropSummary),
		rules(oneOrMore, PropAttendee),
		rules(anyNumber, PropAttach)),
}

// alarmOther is used for extension actions, which may carry anything the
// standard actions do.
var alarmOther = join(alarmBase,
	rules(anyNumber, PropAttach, PropDescription, PropSummary, PropAttendee))

func propsFor(comp *Component) []propRule {
	if comp.Kind() == KindAlarm {
		action := ""
		if p := comp.Property(PropAction); p != nil {
			action = strings.ToUpper(EncodeValue(p.Value))
		}
		if r, ok := alarmProps[action]; ok {
			return r
		}
		return alarmOther
	}
	return componentProps[comp.Kind()]
}

var containment = map[ComponentKind][]ComponentKind{
	KindCalendar: {KindEvent, KindToDo, KindJournal, KindFreeBusy, KindTimezone},
	KindEvent:    {KindAlarm},
	KindToDo:     {KindAlarm},
	KindTimezone: {KindStandard, KindDaylight},
}

// canContain reports whether a child of the given kind may nest in parent.
// Extension components may nest anywhere.
func canContain(parent, child ComponentKind) bool {
	if child == KindExtension {
		return true
	}
	for _, k := range containment[parent] {
		if k == child {
			return true
		}
	}
	return false
}

// componentRules applies the rules that relate several properties of comp.
func (c *check) componentRules(path Path, comp *Component) {
	switch comp.Kind() {
	case KindEvent:
		c.exclusive(path, comp, PropDTEnd, PropDuration)
		c.endAfterStart(path, comp, PropDTEnd)
		c.sameKindAsStart(path, comp, PropDTEnd)
		c.sameKindAsStart(path, comp, PropRecurrenceID)
		c.durationWithDate(path, comp)
	case KindToDo:
		c.exclusive(path, comp, PropDue, PropDuration)
		c.requires(path, comp, PropDuration, PropDTStart)
		c.endAfterStart(path, comp, PropDue)
		c.sameKindAsStart(path, comp, PropDue)
		c.sameKindAsStart(path, comp, PropRecurrenceID)
		c.durationWithDate(path, comp)
	case KindJournal:
		c.sameKindAsStart(path, comp, PropRecurrenceID)
	case KindFreeBusy:
		c.endAfterStart(path, comp, PropDTEnd)
		for _, name := range []string{PropDTStart, PropDTEnd} {
			if i, p := indexedProperty(comp.Properties, name); p != nil {
				if dt, ok := p.Value.(DateTime); ok && !dt.UTC {
					c.errorf(RuleValueUTC, path.property(p.Name, i), p, name+" of VFREEBUSY must be in UTC")
				}
			}
		}
	case KindTimezone:
		if len(comp.ComponentsNamed(CompStandard))+len(comp.ComponentsNamed(CompDaylight)) == 0 {
			c.errorf(RuleCardinalityRequired, path, nil, "VTIMEZONE must contain at least one STANDARD or DAYLIGHT")
		}
	case KindStandard, KindDaylight:
		if i, p := indexedProperty(comp.Properties, PropDTStart); p != nil {
			switch v := p.Value.(type) {
			case DateTime:
				if v.UTC || v.TZID != "" || p.Param(ParamTZID) != nil {
					c.errorf(RuleValueLocal, path.property(p.Name, i), p,
						"DTSTART of "+comp.Name+" must be a local time")
				}
			case Date:
				c.errorf(RuleValueType, path.property(p.Name, i), p,
					"DTSTART of "+comp.Name+" must be a DATE-TIME")
			}
		}
	case KindAlarm:
		c.together(path, comp, PropDuration, PropRepeat)
		c.trigger(path, comp)
	}

	c.recurrence(path, comp)
}

func indexedProperty(props []*Property, name string) (int, *Property) {
	for i, p := range props {
		if strings.EqualFold(p.Name, name) {
			return i, p
		}
	}
	return -1, nil
}

// exclusive reports a component that holds both a and b, once.
func (c *check) exclusive(path Path, comp *Component, a, b string) {
	if comp.Property(a) != nil && comp.Property(b) != nil {
		_, pb := indexedProperty(comp.Properties, b)
		c.errorf(RuleExclusion, path, pb, a+" and "+b+" must not occur together in "+comp.Name)
	}
}

// requires reports a component holding prop but not dep.
func (c *check) requires(path Path, comp *Component, prop, dep string) {
	if i, p := indexedProperty(comp.Properties, prop); p != nil && comp.Property(dep) == nil {
		c.errorf(RuleDependency, path.property(p.Name, i), p, prop+" requires "+dep+" in "+comp.Name)
	}
}

// together reports a component holding exactly one of a and b.
func (c *check) together(path Path, comp *Component, a, b string) {
	hasA, hasB := comp.Property(a) != nil, comp.Property(b) != nil
	if hasA != hasB {
		c.errorf(RuleDependency, path, nil, a+" and "+b+" must occur together in "+comp.Name)
	}
}

func (c *check) endAfterStart(path Path, comp *Component, end string) {
	start := comp.Property(PropDTStart)
	i, p := indexedProperty(comp.Properties, end)
	if start == nil || p == nil {
		return
	}
	switch s := start.Value.(type) {
	case DateTime:
		e, ok := p.Value.(DateTime)
		if ok && s.UTC == e.UTC && s.TZID == e.TZID && e.compare(s) < 0 {
			c.errorf(RuleValueOrder, path.property(p.Name, i), p, end+" must not be before DTSTART")
		}
	case Date:
		e, ok := p.Value.(Date)
		if ok && e.compare(s) < 0 {
			c.errorf(RuleValueOrder, path.property(p.Name, i), p, end+" must not be before DTSTART")
		}
	}
}

func (c *check) sameKindAsStart(path Path, comp *Component, name string) {
	start := comp.Property(PropDTStart)
	i, p := indexedProperty(comp.Properties, name)
	if start == nil || p == nil || start.Value == nil || p.Value == nil {
		return
	}
	st, pt := start.Value.Type(), p.Value.Type()
	if st != TypeUnknown && pt != TypeUnknown && st != pt {
		c.errorf(RuleValueType, path.property(p.Name, i), p,
			name+" must have the same value type as DTSTART, "+start.Value.Type().String())
	}
}

// durationWithDate reports a DURATION with a time part next to a DATE
// DTSTART.
func (c *check) durationWithDate(path Path, comp *Component) {
	start := comp.Property(PropDTStart)
	i, p := indexedProperty(comp.Properties, PropDuration)
	if start == nil || p == nil {
		return
	}
	if _, ok := start.Value.(Date); !ok {
		return
	}
	if d, ok := p.Value.(Duration); ok && d.hasTime() {
		c.errorf(RuleValueType, path.property(p.Name, i), p,
			"DURATION must be in days or weeks when DTSTART is a DATE")
	}
}

func (c *check) trigger(path Path, comp *Component) {
	i, p := indexedProperty(comp.Properties, PropTrigger)
	if p == nil {
		return
	}
	if dt, ok := p.Value.(DateTime); ok {
		ppath := path.property(p.Name, i)
		if !dt.UTC {
			c.errorf(RuleValueUTC, ppath, p, "absolute TRIGGER must be in UTC")
		}
		if p.Param(ParamRelated) != nil {
			c.errorf(RuleParamNotAllowed, ppath, p, "RELATED is only allowed on a relative TRIGGER")
		}
	}
}
