package ical

import (
	"encoding/base64"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// ValueType identifies the value data type of a property, as named by the
// VALUE parameter.
type ValueType int

const (
	TypeUnknown ValueType = iota
	TypeBinary
	TypeBoolean
	TypeCalAddress
	TypeDate
	TypeDateTime
	TypeDuration
	TypeFloat
	TypeInteger
	TypePeriod
	TypeRecur
	TypeText
	TypeTime
	TypeURI
	TypeUTCOffset
	TypeList
)

var valueTypeNames = [...]string{
	TypeUnknown:    "UNKNOWN",
	TypeBinary:     "BINARY",
	TypeBoolean:    "BOOLEAN",
	TypeCalAddress: "CAL-ADDRESS",
	TypeDate:       "DATE",
	TypeDateTime:   "DATE-TIME",
	TypeDuration:   "DURATION",
	TypeFloat:      "FLOAT",
	TypeInteger:    "INTEGER",
	TypePeriod:     "PERIOD",
	TypeRecur:      "RECUR",
	TypeText:       "TEXT",
	TypeTime:       "TIME",
	TypeURI:        "URI",
	TypeUTCOffset:  "UTC-OFFSET",
	TypeList:       "LIST",
}

func (t ValueType) String() string {
	if int(t) < len(valueTypeNames) {
		return valueTypeNames[t]
	}
	return "ValueType(" + strconv.Itoa(int(t)) + ")"
}

// ParseValueType maps a VALUE parameter to a ValueType. UNKNOWN and LIST are
// internal tags and never match.
func ParseValueType(s string) (ValueType, bool) {
	s = strings.ToUpper(s)
	for t := TypeBinary; t < TypeList; t++ {
		if valueTypeNames[t] == s {
			return t, true
		}
	}
	return TypeUnknown, false
}

// A Value is the decoded value of a property. The set of implementations is
// closed: Text, Integer, Float, Boolean, Date, DateTime, Time, Duration,
// Period, Recur, UTCOffset, Binary, CalAddress, URI, List and Unknown.
type Value interface {
	Type() ValueType
	encode(b *strings.Builder)
}

// EncodeValue returns the textual form of v, as it appears after the colon of
// a content line.
func EncodeValue(v Value) string {
	if v == nil {
		return ""
	}
	var b strings.Builder
	v.encode(&b)
	return b.String()
}

// ValuesEqual compares two values by decoded meaning.
func ValuesEqual(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return reflect.DeepEqual(a, b)
}

// Text is a TEXT value, held unescaped.
type Text string

// Integer is an INTEGER value; decoding enforces the signed 32-bit range.
type Integer int

// Float is a FLOAT value.
type Float float64

// Boolean is a BOOLEAN value.
type Boolean bool

// CalAddress is a CAL-ADDRESS value, usually a mailto: URI.
type CalAddress string

// URI is a URI value.
type URI string

// Binary is a BINARY value, held decoded.
type Binary []byte

// List holds the values of a multi-valued property, or the fields of a
// structured one such as GEO.
type List []Value

// Unknown holds a raw value that was not decoded, either because its type is
// not known or because decoding failed. It is written back verbatim.
type Unknown struct {
	Raw string
}

func (Text) Type() ValueType       { return TypeText }
func (Integer) Type() ValueType    { return TypeInteger }
func (Float) Type() ValueType      { return TypeFloat }
func (Boolean) Type() ValueType    { return TypeBoolean }
func (CalAddress) Type() ValueType { return TypeCalAddress }
func (URI) Type() ValueType        { return TypeURI }
func (Binary) Type() ValueType     { return TypeBinary }
func (List) Type() ValueType       { return TypeList }
func (Unknown) Type() ValueType    { return TypeUnknown }

func (v Text) encode(b *strings.Builder)       { b.WriteString(escapeText(string(v))) }
func (v Integer) encode(b *strings.Builder)    { b.WriteString(strconv.Itoa(int(v))) }
func (v Float) encode(b *strings.Builder)      { b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 64)) }
func (v CalAddress) encode(b *strings.Builder) { b.WriteString(string(v)) }
func (v URI) encode(b *strings.Builder)        { b.WriteString(string(v)) }
func (v Unknown) encode(b *strings.Builder)    { b.WriteString(v.Raw) }

func (v Boolean) encode(b *strings.Builder) {
	if v {
		b.WriteString("TRUE")
	} else {
		b.WriteString("FALSE")
	}
}

func (v Binary) encode(b *strings.Builder) {
	b.WriteString(base64.StdEncoding.EncodeToString(v))
}

func (v List) encode(b *strings.Builder) {
	v.encodeSep(b, ',')
}

func (v List) encodeSep(b *strings.Builder, sep byte) {
	for i, elem := range v {
		if i > 0 {
			b.WriteByte(sep)
		}
		if elem != nil {
			elem.encode(b)
		}
	}
}

// Date is a DATE value.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate returns the calendar date of t in its own location.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (Date) Type() ValueType { return TypeDate }

func (v Date) encode(b *strings.Builder) {
	fmt.Fprintf(b, "%04d%02d%02d", v.Year, int(v.Month), v.Day)
}

// In returns midnight of the date in loc.
func (v Date) In(loc *time.Location) time.Time {
	return time.Date(v.Year, v.Month, v.Day, 0, 0, 0, 0, loc)
}

func (v Date) compare(o Date) int {
	return DateTime{Year: v.Year, Month: v.Month, Day: v.Day}.compare(DateTime{Year: o.Year, Month: o.Month, Day: o.Day})
}

// Time is a TIME value.
type Time struct {
	Hour   int
	Minute int
	Second int
	UTC    bool
}

func (Time) Type() ValueType { return TypeTime }

func (v Time) encode(b *strings.Builder) {
	fmt.Fprintf(b, "%02d%02d%02d", v.Hour, v.Minute, v.Second)
	if v.UTC {
		b.WriteByte('Z')
	}
}

// DateTime is a DATE-TIME value. A DateTime is either UTC, floating, or
// associated with the time zone named by TZID. The identifier is recorded as
// written and never resolved while decoding.
type DateTime struct {
	Year   int
	Month  time.Month
	Day    int
	Hour   int
	Minute int
	Second int
	UTC    bool
	TZID   string
}

// NewDateTime returns t as a UTC DateTime when t is in UTC, and as a floating
// DateTime holding the wall clock of t otherwise.
func NewDateTime(t time.Time) DateTime {
	y, m, d := t.Date()
	return DateTime{
		Year: y, Month: m, Day: d,
		Hour: t.Hour(), Minute: t.Minute(), Second: t.Second(),
		UTC: t.Location() == time.UTC,
	}
}

// UTCDateTime returns t converted to UTC.
func UTCDateTime(t time.Time) DateTime {
	return NewDateTime(t.UTC())
}

func (DateTime) Type() ValueType { return TypeDateTime }

func (v DateTime) encode(b *strings.Builder) {
	fmt.Fprintf(b, "%04d%02d%02dT%02d%02d%02d", v.Year, int(v.Month), v.Day, v.Hour, v.Minute, v.Second)
	if v.UTC {
		b.WriteByte('Z')
	}
}

// Date returns the date part.
func (v DateTime) Date() Date {
	return Date{Year: v.Year, Month: v.Month, Day: v.Day}
}

// In returns the instant described by v. UTC values ignore loc; zoned values
// use their TZID when the local time zone database knows it and loc
// otherwise; floating values use loc.
func (v DateTime) In(loc *time.Location) time.Time {
	switch {
	case v.UTC:
		loc = time.UTC
	case v.TZID != "":
		if l, err := time.LoadLocation(v.TZID); err == nil {
			loc = l
		}
	}
	return time.Date(v.Year, v.Month, v.Day, v.Hour, v.Minute, v.Second, 0, loc)
}

func (v DateTime) compare(o DateTime) int {
	a := [...]int{v.Year, int(v.Month), v.Day, v.Hour, v.Minute, v.Second}
	c := [...]int{o.Year, int(o.Month), o.Day, o.Hour, o.Minute, o.Second}
	for i := range a {
		switch {
		case a[i] < c[i]:
			return -1
		case a[i] > c[i]:
			return 1
		}
	}
	return 0
}

// Duration is a DURATION value. Fields are magnitudes; Negative carries the
// sign of the whole duration.
type Duration struct {
	Negative bool
	Weeks    int
	Days     int
	Hours    int
	Minutes  int
	Seconds  int
}

// NewDuration splits d into days, hours, minutes and seconds. Sub-second
// precision is dropped.
func NewDuration(d time.Duration) Duration {
	var v Duration
	if d < 0 {
		v.Negative = true
		d = -d
	}
	secs := int(d / time.Second)
	v.Days, secs = secs/86400, secs%86400
	v.Hours, secs = secs/3600, secs%3600
	v.Minutes, v.Seconds = secs/60, secs%60
	return v
}

func (Duration) Type() ValueType { return TypeDuration }

// Std converts v to a time.Duration, counting a day as 24 hours.
func (v Duration) Std() time.Duration {
	d := time.Duration(v.Weeks)*7*24*time.Hour +
		time.Duration(v.Days)*24*time.Hour +
		time.Duration(v.Hours)*time.Hour +
		time.Duration(v.Minutes)*time.Minute +
		time.Duration(v.Seconds)*time.Second
	if v.Negative {
		return -d
	}
	return d
}

func (v Duration) hasTime() bool {
	return v.Hours != 0 || v.Minutes != 0 || v.Seconds != 0
}

func (v Duration) encode(b *strings.Builder) {
	if v.Negative {
		b.WriteByte('-')
	}
	b.WriteByte('P')
	if v.Weeks != 0 && v.Days == 0 && !v.hasTime() {
		fmt.Fprintf(b, "%dW", v.Weeks)
		return
	}
	days := v.Days + v.Weeks*7
	if days != 0 {
		fmt.Fprintf(b, "%dD", days)
	}
	if !v.hasTime() {
		if days == 0 {
			b.WriteString("T0S")
		}
		return
	}
	b.WriteByte('T')
	if v.Hours != 0 {
		fmt.Fprintf(b, "%dH", v.Hours)
	}
	// dur-hour may only be followed by dur-minute, so keep the minute when
	// hours and seconds are both present.
	if v.Minutes != 0 || (v.Hours != 0 && v.Seconds != 0) {
		fmt.Fprintf(b, "%dM", v.Minutes)
	}
	if v.Seconds != 0 {
		fmt.Fprintf(b, "%dS", v.Seconds)
	}
}

// Period is a PERIOD value: a start with either an explicit end or a
// duration. Exactly one of End and Duration is set.
type Period struct {
	Start    DateTime
	End      *DateTime
	Duration *Duration
}

func (Period) Type() ValueType { return TypePeriod }

func (v Period) encode(b *strings.Builder) {
	v.Start.encode(b)
	b.WriteByte('/')
	switch {
	case v.End != nil:
		v.End.encode(b)
	case v.Duration != nil:
		v.Duration.encode(b)
	}
}

// UTCOffset is a UTC-OFFSET value.
type UTCOffset struct {
	Negative bool
	Hours    int
	Minutes  int
	Seconds  int
}

// NewUTCOffset builds an offset from a number of seconds east of UTC.
func NewUTCOffset(seconds int) UTCOffset {
	var v UTCOffset
	if seconds < 0 {
		v.Negative = true
		seconds = -seconds
	}
	v.Hours, seconds = seconds/3600, seconds%3600
	v.Minutes, v.Seconds = seconds/60, seconds%60
	return v
}

func (UTCOffset) Type() ValueType { return TypeUTCOffset }

// TotalSeconds returns the offset in seconds east of UTC.
func (v UTCOffset) TotalSeconds() int {
	s := v.Hours*3600 + v.Minutes*60 + v.Seconds
	if v.Negative {
		return -s
	}
	return s
}

func (v UTCOffset) encode(b *strings.Builder) {
	if v.Negative {
		b.WriteByte('-')
	} else {
		b.WriteByte('+')
	}
	fmt.Fprintf(b, "%02d%02d", v.Hours, v.Minutes)
	if v.Seconds != 0 {
		fmt.Fprintf(b, "%02d", v.Seconds)
	}
}

// escapeText escapes a TEXT value
//
// ESCAPED-CHAR = ("\\" / "\;" / "\," / "\N" / "\n")
func escapeText(s string) string {
	if !strings.ContainsAny(s, "\\;,\r\n") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\', ';', ',':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
