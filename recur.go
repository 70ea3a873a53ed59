package ical

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/teambition/rrule-go"
)

// Frequency is the FREQ part of a recurrence rule.
type Frequency string

// Frequencies defined by RFC 5545.
const (
	Secondly Frequency = "SECONDLY"
	Minutely Frequency = "MINUTELY"
	Hourly   Frequency = "HOURLY"
	Daily    Frequency = "DAILY"
	Weekly   Frequency = "WEEKLY"
	Monthly  Frequency = "MONTHLY"
	Yearly   Frequency = "YEARLY"
)

var frequencies = map[Frequency]rrule.Frequency{
	Secondly: rrule.SECONDLY,
	Minutely: rrule.MINUTELY,
	Hourly:   rrule.HOURLY,
	Daily:    rrule.DAILY,
	Weekly:   rrule.WEEKLY,
	Monthly:  rrule.MONTHLY,
	Yearly:   rrule.YEARLY,
}

// Weekday is a two letter day code as used by BYDAY and WKST.
type Weekday string

// Weekdays, in RFC 5545 order.
const (
	Sunday    Weekday = "SU"
	Monday    Weekday = "MO"
	Tuesday   Weekday = "TU"
	Wednesday Weekday = "WE"
	Thursday  Weekday = "TH"
	Friday    Weekday = "FR"
	Saturday  Weekday = "SA"
)

// rruleWeekdays follows rrule's numbering, Monday first.
var (
	rruleWeekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}
	rruleDays     = []rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA, rrule.SU}
)

func (d Weekday) valid() bool {
	for _, w := range rruleWeekdays {
		if w == d {
			return true
		}
	}
	return false
}

func (d Weekday) rrule() rrule.Weekday {
	for i, w := range rruleWeekdays {
		if w == d {
			return rruleDays[i]
		}
	}
	return rrule.MO
}

// WeekdayNum is a BYDAY entry. Ordinal is zero when the entry has no
// ordinal, as in "MO"; "-1SU" has Ordinal -1.
type WeekdayNum struct {
	Ordinal int
	Day     Weekday
}

func (w WeekdayNum) String() string {
	if w.Ordinal == 0 {
		return string(w.Day)
	}
	return strconv.Itoa(w.Ordinal) + string(w.Day)
}

// RecurPart is a rule part that is not defined by RFC 5545, kept as written.
type RecurPart struct {
	Name  string
	Value string
}

// Recur is a RECUR value. Count and Interval are nil when the rule does not
// set them. Until, when set, is a Date or a DateTime.
type Recur struct {
	Freq       Frequency
	Until      Value
	Count      *int
	Interval   *int
	BySecond   []int
	ByMinute   []int
	ByHour     []int
	ByDay      []WeekdayNum
	ByMonthDay []int
	ByYearDay  []int
	ByWeekNo   []int
	ByMonth    []int
	BySetPos   []int
	WeekStart  Weekday
	Extensions []RecurPart
}

func (Recur) Type() ValueType { return TypeRecur }

func (v Recur) encode(b *strings.Builder) {
	b.WriteString("FREQ=")
	b.WriteString(string(v.Freq))
	if v.Until != nil {
		b.WriteString(";UNTIL=")
		v.Until.encode(b)
	}
	if v.Count != nil {
		b.WriteString(";COUNT=")
		b.WriteString(strconv.Itoa(*v.Count))
	}
	if v.Interval != nil {
		b.WriteString(";INTERVAL=")
		b.WriteString(strconv.Itoa(*v.Interval))
	}
	writeInts(b, "BYSECOND", v.BySecond)
	writeInts(b, "BYMINUTE", v.ByMinute)
	writeInts(b, "BYHOUR", v.ByHour)
	if len(v.ByDay) > 0 {
		b.WriteString(";BYDAY=")
		for i, d := range v.ByDay {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(d.String())
		}
	}
	writeInts(b, "BYMONTHDAY", v.ByMonthDay)
	writeInts(b, "BYYEARDAY", v.ByYearDay)
	writeInts(b, "BYWEEKNO", v.ByWeekNo)
	writeInts(b, "BYMONTH", v.ByMonth)
	writeInts(b, "BYSETPOS", v.BySetPos)
	if v.WeekStart != "" {
		b.WriteString(";WKST=")
		b.WriteString(string(v.WeekStart))
	}
	for _, x := range v.Extensions {
		b.WriteByte(';')
		b.WriteString(x.Name)
		b.WriteByte('=')
		b.WriteString(x.Value)
	}
}

func writeInts(b *strings.Builder, name string, list []int) {
	if len(list) == 0 {
		return
	}
	b.WriteByte(';')
	b.WriteString(name)
	b.WriteByte('=')
	for i, n := range list {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(n))
	}
}

// decodeRecur parses a RECUR value
//
// recur = recur-rule-part *( ";" recur-rule-part )
//
// Range checks on BYxxx parts are left to the validator, so that a rule
// with an out of range entry is still decoded.
func decodeRecur(s string) (Recur, error) {
	var r Recur
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ";") {
		if part == "" {
			continue
		}
		name, val, ok := strings.Cut(part, "=")
		if !ok {
			return Recur{}, errors.Errorf("rule part %q has no value", part)
		}
		name = strings.ToUpper(name)
		if seen[name] {
			return Recur{}, errors.Errorf("rule part %s appears twice", name)
		}
		seen[name] = true

		var err error
		switch name {
		case "FREQ":
			r.Freq = Frequency(strings.ToUpper(val))
			if _, ok := frequencies[r.Freq]; !ok {
				err = errors.Errorf("unknown frequency %q", val)
			}
		case "UNTIL":
			r.Until, err = decodeUntil(val)
		case "COUNT":
			r.Count, err = decodeIntPtr(val)
		case "INTERVAL":
			r.Interval, err = decodeIntPtr(val)
		case "BYSECOND":
			r.BySecond, err = decodeIntList(val)
		case "BYMINUTE":
			r.ByMinute, err = decodeIntList(val)
		case "BYHOUR":
			r.ByHour, err = decodeIntList(val)
		case "BYDAY":
			r.ByDay, err = decodeWeekdayList(val)
		case "BYMONTHDAY":
			r.ByMonthDay, err = decodeIntList(val)
		case "BYYEARDAY":
			r.ByYearDay, err = decodeIntList(val)
		case "BYWEEKNO":
			r.ByWeekNo, err = decodeIntList(val)
		case "BYMONTH":
			r.ByMonth, err = decodeIntList(val)
		case "BYSETPOS":
			r.BySetPos, err = decodeIntList(val)
		case "WKST":
			r.WeekStart = Weekday(strings.ToUpper(val))
			if !r.WeekStart.valid() {
				err = errors.Errorf("unknown weekday %q", val)
			}
		default:
			r.Extensions = append(r.Extensions, RecurPart{Name: name, Value: val})
		}
		if err != nil {
			return Recur{}, errors.Wrap(err, name)
		}
	}
	if r.Freq == "" {
		return Recur{}, errors.New("FREQ is required")
	}
	return r, nil
}

func decodeUntil(s string) (Value, error) {
	if strings.IndexByte(s, 'T') < 0 {
		return decodeDate(s)
	}
	return decodeDateTime(s, "")
}

func decodeIntPtr(s string) (*int, error) {
	n, err := decodeInteger(s)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// decodeIntList parses a comma separated list of optionally signed integers.
func decodeIntList(s string) ([]int, error) {
	fields := strings.Split(s, ",")
	list := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := decodeInteger(strings.TrimPrefix(f, "+"))
		if err != nil {
			return nil, err
		}
		list = append(list, n)
	}
	return list, nil
}

// decodeWeekdayList parses BYDAY
//
// weekdaynum = [[plus / minus] ordwk] weekday
func decodeWeekdayList(s string) ([]WeekdayNum, error) {
	fields := strings.Split(s, ",")
	list := make([]WeekdayNum, 0, len(fields))
	for _, f := range fields {
		if len(f) < 2 {
			return nil, errors.Errorf("invalid weekday %q", f)
		}
		w := WeekdayNum{Day: Weekday(strings.ToUpper(f[len(f)-2:]))}
		if !w.Day.valid() {
			return nil, errors.Errorf("unknown weekday %q", f)
		}
		if ord := f[:len(f)-2]; ord != "" {
			n, err := decodeInteger(strings.TrimPrefix(ord, "+"))
			if err != nil {
				return nil, errors.Errorf("invalid ordinal in %q", f)
			}
			w.Ordinal = n
		}
		list = append(list, w)
	}
	return list, nil
}

// ROption converts the rule to options for github.com/teambition/rrule-go,
// anchored at dtstart. Date and floating UNTIL values are taken in the
// location of dtstart. Extension parts are dropped.
func (v Recur) ROption(dtstart time.Time) (*rrule.ROption, error) {
	freq, ok := frequencies[v.Freq]
	if !ok {
		return nil, errors.Errorf("unknown frequency %q", v.Freq)
	}
	opt := &rrule.ROption{
		Freq:       freq,
		Dtstart:    dtstart,
		Bysecond:   v.BySecond,
		Byminute:   v.ByMinute,
		Byhour:     v.ByHour,
		Bymonthday: v.ByMonthDay,
		Byyearday:  v.ByYearDay,
		Byweekno:   v.ByWeekNo,
		Bymonth:    v.ByMonth,
		Bysetpos:   v.BySetPos,
	}
	if v.Count != nil {
		opt.Count = *v.Count
	}
	if v.Interval != nil {
		opt.Interval = *v.Interval
	}
	switch until := v.Until.(type) {
	case Date:
		opt.Until = until.In(dtstart.Location())
	case DateTime:
		opt.Until = until.In(dtstart.Location())
	}
	if v.WeekStart != "" {
		opt.Wkst = v.WeekStart.rrule()
	}
	for _, d := range v.ByDay {
		wd := d.Day.rrule()
		if d.Ordinal != 0 {
			wd = wd.Nth(d.Ordinal)
		}
		opt.Byweekday = append(opt.Byweekday, wd)
	}
	return opt, nil
}

// RecurFromROption converts rrule-go options to a Recur. A non-zero Until is
// converted to UTC. Dtstart is not part of a RECUR value and is ignored.
//
// A Wkst of rrule.MO is the zero value of ROption and cannot be told apart
// from an unset one, so it yields no WKST part. Monday is the RFC 5545
// default, so the rule means the same.
func RecurFromROption(opt rrule.ROption) Recur {
	var v Recur
	for f, rf := range frequencies {
		if rf == opt.Freq {
			v.Freq = f
			break
		}
	}
	if !opt.Until.IsZero() {
		v.Until = UTCDateTime(opt.Until)
	}
	if opt.Count > 0 {
		n := opt.Count
		v.Count = &n
	}
	if opt.Interval > 1 {
		n := opt.Interval
		v.Interval = &n
	}
	v.BySecond = opt.Bysecond
	v.ByMinute = opt.Byminute
	v.ByHour = opt.Byhour
	v.ByMonthDay = opt.Bymonthday
	v.ByYearDay = opt.Byyearday
	v.ByWeekNo = opt.Byweekno
	v.ByMonth = opt.Bymonth
	v.BySetPos = opt.Bysetpos
	for _, wd := range opt.Byweekday {
		wd := wd
		v.ByDay = append(v.ByDay, WeekdayNum{Ordinal: wd.N(), Day: rruleWeekdays[wd.Day()]})
	}
	if wkst := opt.Wkst; wkst.Day() != rrule.MO.Day() {
		v.WeekStart = rruleWeekdays[wkst.Day()]
	}
	return v
}
