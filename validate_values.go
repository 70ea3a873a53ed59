package ical

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver"
	"golang.org/x/text/language"
)

// property checks one property on its own: its parameters, its value type
// and the range of its value.
func (c *check) property(path Path, kind ComponentKind, p *Property) {
	c.params(path, kind, p)

	if p.Err != nil {
		c.errorf(RuleValueDecode, path, p, p.Err.Error())
		return
	}
	if p.Value == nil {
		c.errorf(RuleValueType, path, p, p.Name+" has no value")
		return
	}

	c.valueType(path, p)

	switch strings.ToUpper(p.Name) {
	case PropVersion:
		if kind == KindCalendar {
			c.version(path, p)
		}
	case PropCalScale:
		c.enum(path, p, []string{"GREGORIAN"}, false)
	case PropClass:
		c.enum(path, p, []string{"PUBLIC", "PRIVATE", "CONFIDENTIAL"}, true)
	case PropTransp:
		c.enum(path, p, []string{"OPAQUE", "TRANSPARENT"}, false)
	case PropAction:
		c.enum(path, p, []string{"AUDIO", "DISPLAY", "EMAIL"}, true)
	case PropStatus:
		if allowed, ok := statusByComponent[kind]; ok {
			c.enum(path, p, allowed, false)
		}
	case PropPriority:
		c.intRange(path, p, 0, 9)
	case PropPercentComplete:
		c.intRange(path, p, 0, 100)
	case PropSequence, PropRepeat:
		c.intRange(path, p, 0, 1<<31-1)
	case PropGeo:
		c.geo(path, p)
	case PropDTStamp, PropCreated, PropLastModified, PropCompleted:
		if dt, ok := p.Value.(DateTime); ok && !dt.UTC {
			c.errorf(RuleValueUTC, path, p, p.Name+" must be in UTC")
		}
	case PropFreeBusy:
		for _, v := range elements(p.Value) {
			if pe, ok := v.(Period); ok && !periodUTC(pe) {
				c.errorf(RuleValueUTC, path, p, "FREEBUSY periods must be in UTC")
				break
			}
		}
	case PropTZOffsetFrom, PropTZOffsetTo:
		if o, ok := p.Value.(UTCOffset); ok && o.Negative && o.TotalSeconds() == 0 {
			c.warnf(RuleNegativeZero, path, p, p.Name+" of -0000 is not allowed, use +0000")
		}
	}
}

// elements returns the values of a List, or v itself.
func elements(v Value) []Value {
	if l, ok := v.(List); ok {
		return l
	}
	return []Value{v}
}

func periodUTC(p Period) bool {
	return p.Start.UTC && (p.End == nil || p.End.UTC)
}

// valueType checks the value against the types the property accepts and
// against its VALUE parameter.
func (c *check) valueType(path Path, p *Property) {
	info, known := lookupProperty(p.Name)
	if !known {
		return
	}

	declared := TypeUnknown
	if raw := p.ParamValue(ParamValue); raw != "" {
		t, ok := ParseValueType(raw)
		switch {
		case !ok:
			// extension value types are not checked
			return
		case !info.allows(t):
			c.errorf(RuleValueType, path, p, "VALUE="+t.String()+" is not allowed for "+p.Name)
			return
		case t == info.def:
			c.warnf(RuleValueRedundant, path, p, "VALUE="+t.String()+" is the default for "+p.Name)
		}
		declared = t
	}

	inferred := false
	for _, v := range elements(p.Value) {
		t := v.Type()
		switch {
		case t == TypeUnknown:
		case !info.allows(t):
			c.errorf(RuleValueType, path, p, t.String()+" is not a valid value type for "+p.Name)
			return
		case declared != TypeUnknown && t != declared:
			c.errorf(RuleValueType, path, p, fmt.Sprintf("value is %s but VALUE is %s", t, declared))
			return
		case declared == TypeUnknown && t != info.def && (t == TypeDate || t == TypePeriod):
			inferred = true
		}
	}
	if inferred {
		c.warnf(RuleValueInferred, path, p, p.Name+" value type was inferred, VALUE parameter is missing")
	}
}

func (c *check) version(path Path, p *Property) {
	raw := EncodeValue(p.Value)
	ver := raw
	if i := strings.IndexByte(raw, ';'); i >= 0 {
		if _, err := semver.NewVersion(raw[:i]); err != nil {
			c.errorf(RuleCalendarVersion, path, p, fmt.Sprintf("invalid minimum version %q", raw[:i]))
			return
		}
		ver = raw[i+1:]
	}
	v, err := semver.NewVersion(ver)
	if err != nil {
		c.errorf(RuleCalendarVersion, path, p, fmt.Sprintf("invalid version %q", ver))
		return
	}
	if v.Major() != 2 || v.Minor() != 0 {
		c.errorf(RuleCalendarVersion, path, p, fmt.Sprintf("unsupported version %q, expected 2.0", ver))
	}
}

// enum checks a TEXT value against a list. Open lists also accept X- names,
// and other tokens with a warning.
func (c *check) enum(path Path, p *Property, allowed []string, open bool) {
	s := EncodeValue(p.Value)
	switch {
	case containsFold(allowed, s):
	case open && IsExtensionName(s):
	case open:
		c.warnf(RuleValueEnum, path, p, fmt.Sprintf("unknown %s value %q", p.Name, s))
	default:
		c.errorf(RuleValueEnum, path, p, fmt.Sprintf("%s must be one of %s, got %q", p.Name, strings.Join(allowed, ", "), s))
	}
}

func (c *check) intRange(path Path, p *Property, lo, hi int) {
	n, ok := p.Value.(Integer)
	if !ok {
		return
	}
	if int(n) < lo || int(n) > hi {
		c.errorf(RuleValueRange, path, p, fmt.Sprintf("%s must be between %d and %d, got %d", p.Name, lo, hi, n))
	}
}

func (c *check) geo(path Path, p *Property) {
	l, ok := p.Value.(List)
	if !ok || len(l) != 2 {
		c.errorf(RuleValueType, path, p, "GEO must hold a latitude and a longitude")
		return
	}
	lat, ok1 := l[0].(Float)
	lon, ok2 := l[1].(Float)
	if !ok1 || !ok2 {
		return
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		c.errorf(RuleValueRange, path, p, "GEO coordinates out of range")
	}
}

// params checks the parameters of p.
func (c *check) params(path Path, kind ComponentKind, p *Property) {
	_, known := lookupProperty(p.Name)
	seen := make(map[string]bool, len(p.Params))

	for _, param := range p.Params {
		name := strings.ToUpper(param.Name)
		if seen[name] {
			c.errorf(RuleParamDuplicate, path, p, "parameter "+name+" occurs more than once")
		}
		seen[name] = true

		props, defined := paramProperties[name]
		if !defined {
			continue
		}
		if known && props != nil && !containsFold(props, p.Name) {
			c.errorf(RuleParamNotAllowed, path, p, "parameter "+name+" is not allowed on "+p.Name)
			continue
		}
		if len(param.Values) != 1 && !multiValueParams[name] {
			c.errorf(RuleParamMultiple, path, p, "parameter "+name+" must have exactly one value")
			continue
		}
		c.paramValue(path, kind, p, name, param.Values)
	}

	c.encoding(path, p)
	c.tzidParam(path, p)
}

func (c *check) paramValue(path Path, kind ComponentKind, p *Property, name string, values []string) {
	for _, v := range values {
		if enum, ok := paramEnums[name]; ok {
			switch {
			case containsFold(enum.values, v):
			case enum.open && IsExtensionName(v):
			case enum.open:
				c.warnf(RuleParamValue, path, p, fmt.Sprintf("unknown %s value %q", name, v))
			default:
				c.errorf(RuleParamValue, path, p, fmt.Sprintf("%s must be one of %s, got %q", name, strings.Join(enum.values, ", "), v))
			}
		}

		switch name {
		case ParamPartStat:
			if allowed, ok := partStatByComponent[kind]; ok && containsFold(paramEnums[name].values, v) && !containsFold(allowed, v) {
				c.errorf(RuleParamValue, path, p, fmt.Sprintf("PARTSTAT %q is not allowed in %s", v, kindName(kind)))
			}
		case ParamSentBy:
			if !strings.HasPrefix(strings.ToLower(v), "mailto:") {
				c.errorf(RuleParamValue, path, p, "SENT-BY must be a mailto: address")
			}
		case ParamDir, ParamAltRep, ParamDelegatedFrom, ParamDelegatedTo, ParamMember:
			if checkURI(v) != nil {
				c.errorf(RuleParamValue, path, p, fmt.Sprintf("%s must be a URI, got %q", name, v))
			}
		case ParamLanguage:
			if _, err := language.Parse(v); err != nil {
				c.errorf(RuleParamValue, path, p, fmt.Sprintf("LANGUAGE %q is not a language tag", v))
			}
		case ParamFmtType:
			if !strings.Contains(v, "/") {
				c.errorf(RuleParamValue, path, p, fmt.Sprintf("FMTTYPE %q is not a media type", v))
			}
		}
	}
}

// encoding checks that BINARY values and ENCODING=BASE64 go together.
func (c *check) encoding(path Path, p *Property) {
	base64 := strings.EqualFold(p.ParamValue(ParamEncoding), "BASE64")
	binary := false
	if _, ok := p.Value.(Binary); ok {
		binary = true
	}
	switch {
	case binary && !base64:
		c.errorf(RuleValueEncoding, path, p, "BINARY value requires ENCODING=BASE64")
	case base64 && !binary && p.Value != nil && p.Value.Type() != TypeUnknown:
		c.errorf(RuleValueEncoding, path, p, "ENCODING=BASE64 requires a BINARY value")
	}
}

// tzidParam checks a TZID parameter against the value it qualifies and
// against the VTIMEZONE components of the calendar.
func (c *check) tzidParam(path Path, p *Property) {
	tzid := p.ParamValue(ParamTZID)
	if tzid == "" {
		if dt, ok := p.Value.(DateTime); ok {
			tzid = dt.TZID
		}
	}
	if tzid == "" {
		return
	}

	if p.Param(ParamTZID) != nil {
		for _, v := range elements(p.Value) {
			switch v := v.(type) {
			case Date:
				c.errorf(RuleParamValue, path, p, "TZID is not allowed on a DATE value")
				return
			case DateTime:
				if v.UTC {
					c.errorf(RuleParamValue, path, p, "TZID is not allowed on a UTC value")
					return
				}
			}
		}
	}

	// A leading solidus marks a globally unique identifier that needs no
	// VTIMEZONE.
	if c.tzids[tzid] || strings.HasPrefix(tzid, "/") {
		return
	}
	sev := SeverityWarning
	if c.v.cfg.RequireTimezones {
		sev = SeverityError
	}
	c.report(sev, RuleReferenceTZID, path, lineOf(p), fmt.Sprintf("TZID %q has no matching VTIMEZONE", tzid))
}
