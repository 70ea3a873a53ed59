package ical

import (
	"fmt"
	"strings"
)

// recurrence checks every RRULE of comp against its own parts and against
// the DTSTART of comp.
func (c *check) recurrence(path Path, comp *Component) {
	start := comp.Property(PropDTStart)
	for i, p := range comp.Properties {
		if !strings.EqualFold(p.Name, PropRRule) {
			continue
		}
		r, ok := p.Value.(Recur)
		if !ok {
			continue
		}
		ppath := path.property(p.Name, i)
		if start == nil {
			c.errorf(RuleRecurDTStart, ppath, p, "RRULE requires DTSTART in "+comp.Name)
		}
		c.recurParts(ppath, p, r)
		if start != nil {
			c.recurStart(ppath, p, r, start.Value)
		}
	}
}

type intPart struct {
	name     string
	list     []int
	lo, hi   int
	negative bool
}

func (c *check) recurParts(path Path, p *Property, r Recur) {
	if r.Until != nil && r.Count != nil {
		c.errorf(RuleRecurUntilCount, path, p, "UNTIL and COUNT must not occur together")
	}
	if r.Count != nil && *r.Count < 1 {
		c.errorf(RuleRecurPart, path, p, "COUNT must be positive")
	}
	if r.Interval != nil && *r.Interval < 1 {
		c.errorf(RuleRecurPart, path, p, "INTERVAL must be positive")
	}

	for _, part := range []intPart{
		{"BYSECOND", r.BySecond, 0, 60, false},
		{"BYMINUTE", r.ByMinute, 0, 59, false},
		{"BYHOUR", r.ByHour, 0, 23, false},
		{"BYMONTHDAY", r.ByMonthDay, 1, 31, true},
		{"BYYEARDAY", r.ByYearDay, 1, 366, true},
		{"BYWEEKNO", r.ByWeekNo, 1, 53, true},
		{"BYMONTH", r.ByMonth, 1, 12, false},
		{"BYSETPOS", r.BySetPos, 1, 366, true},
	} {
		for _, n := range part.list {
			v := n
			if part.negative && v < 0 {
				v = -v
			}
			if v < part.lo || v > part.hi {
				c.errorf(RuleRecurPart, path, p, fmt.Sprintf("%s value %d out of range", part.name, n))
				break
			}
		}
	}

	for _, d := range r.ByDay {
		if d.Ordinal == 0 {
			continue
		}
		if d.Ordinal < -53 || d.Ordinal > 53 {
			c.errorf(RuleRecurPart, path, p, fmt.Sprintf("BYDAY ordinal in %s out of range", d))
			break
		}
		if r.Freq != Monthly && r.Freq != Yearly {
			c.errorf(RuleRecurPart, path, p, "BYDAY ordinals are only allowed with MONTHLY or YEARLY")
			break
		}
		if r.Freq == Yearly && len(r.ByWeekNo) > 0 {
			c.errorf(RuleRecurPart, path, p, "BYDAY ordinals are not allowed with YEARLY and BYWEEKNO")
			break
		}
	}

	if len(r.ByMonthDay) > 0 && r.Freq == Weekly {
		c.errorf(RuleRecurPart, path, p, "BYMONTHDAY is not allowed with WEEKLY")
	}
	if len(r.ByYearDay) > 0 && (r.Freq == Daily || r.Freq == Weekly || r.Freq == Monthly) {
		c.errorf(RuleRecurPart, path, p, "BYYEARDAY is not allowed with "+string(r.Freq))
	}
	if len(r.ByWeekNo) > 0 && r.Freq != Yearly {
		c.errorf(RuleRecurPart, path, p, "BYWEEKNO is only allowed with YEARLY")
	}
	if len(r.BySetPos) > 0 && !r.hasByPart() {
		c.errorf(RuleRecurPart, path, p, "BYSETPOS requires another BYxxx rule part")
	}

	for _, x := range r.Extensions {
		if !IsExtensionName(x.Name) {
			c.warnf(RuleRecurPart, path, p, "unknown rule part "+x.Name)
		}
	}
}

func (r Recur) hasByPart() bool {
	return len(r.BySecond)+len(r.ByMinute)+len(r.ByHour)+len(r.ByDay)+
		len(r.ByMonthDay)+len(r.ByYearDay)+len(r.ByWeekNo)+len(r.ByMonth) > 0
}

// recurStart checks the rule against the DTSTART value it repeats.
func (c *check) recurStart(path Path, p *Property, r Recur, start Value) {
	switch s := start.(type) {
	case Date:
		if len(r.BySecond)+len(r.ByMinute)+len(r.ByHour) > 0 {
			c.errorf(RuleRecurDTStart, path, p, "BYSECOND, BYMINUTE and BYHOUR are not allowed when DTSTART is a DATE")
		}
		if r.Until != nil {
			if _, ok := r.Until.(Date); !ok {
				c.errorf(RuleRecurDTStart, path, p, "UNTIL must be a DATE when DTSTART is a DATE")
			}
		}
	case DateTime:
		if r.Until == nil {
			return
		}
		u, ok := r.Until.(DateTime)
		switch {
		case !ok:
			c.errorf(RuleRecurDTStart, path, p, "UNTIL must be a DATE-TIME when DTSTART is a DATE-TIME")
		case (s.UTC || s.TZID != "") && !u.UTC:
			c.errorf(RuleRecurDTStart, path, p, "UNTIL must be in UTC when DTSTART has a time zone")
		case !s.UTC && s.TZID == "" && u.UTC:
			c.errorf(RuleRecurDTStart, path, p, "UNTIL must be a local time when DTSTART is floating")
		}
	}
}
