package ical

import (
	"encoding/base64"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	dateLayoutLen     = len("20060102")
	timeLayoutLen     = len("150405")
	dateTimeLayoutLen = len("20060102T150405")
)

// DecodeValue decodes the raw value of the property called name, using the
// VALUE and TZID parameters in params. Raw must not be unfolded further, but
// is otherwise the text after the colon of the content line.
//
// On failure the returned value is an Unknown holding raw, and the error is a
// *DecodeError.
func DecodeValue(name string, params []*Param, raw string) (Value, error) {
	info, known := lookupProperty(name)

	typ := info.def
	if declared := paramValue(params, ParamValue); declared != "" {
		t, ok := ParseValueType(declared)
		if !ok {
			// An extension value type is kept as written.
			return Unknown{Raw: raw}, nil
		}
		typ = t
		if !known || !info.allows(t) {
			info = propertyInfo{def: t}
		}
	} else if !known {
		return Unknown{Raw: raw}, nil
	} else {
		typ = inferType(info, raw)
	}

	v, err := decodeTyped(info, typ, params, raw)
	if err != nil {
		decodeErrors.WithLabelValues(typ.String()).Inc()
		return Unknown{Raw: raw}, &DecodeError{Type: typ, Raw: raw, Err: err}
	}
	return v, nil
}

// inferType picks the value type of a property that has no VALUE parameter.
// Producers often omit VALUE=DATE and VALUE=PERIOD, so the shape of the
// first value decides between the default and its alternatives.
func inferType(info propertyInfo, raw string) ValueType {
	first := raw
	if info.multi {
		if i := strings.IndexByte(raw, ','); i >= 0 {
			first = raw[:i]
		}
	}
	switch {
	case info.allows(TypePeriod) && strings.IndexByte(first, '/') >= 0:
		return TypePeriod
	case info.def == TypeDateTime && info.allows(TypeDate) && len(first) == dateLayoutLen && isDigits(first):
		return TypeDate
	case info.def == TypeDuration && info.allows(TypeDateTime) && first != "" && isDigit(rune(first[0])):
		return TypeDateTime
	}
	return info.def
}

func decodeTyped(info propertyInfo, typ ValueType, params []*Param, raw string) (Value, error) {
	tzid := paramValue(params, ParamTZID)

	if info.verbatim && typ == TypeText {
		return Text(raw), nil
	}

	if info.sep != 0 || info.multi {
		sep := info.sep
		if sep == 0 {
			sep = ','
		}
		parts := splitUnescaped(raw, sep)
		list := make(List, 0, len(parts))
		for _, part := range parts {
			v, err := decodeScalar(typ, tzid, part)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil
	}

	return decodeScalar(typ, tzid, raw)
}

func decodeScalar(typ ValueType, tzid, s string) (Value, error) {
	switch typ {
	case TypeText:
		return Text(unescapeText(s)), nil
	case TypeInteger:
		n, err := decodeInteger(s)
		return Integer(n), err
	case TypeFloat:
		f, err := decodeFloat(s)
		return Float(f), err
	case TypeBoolean:
		switch strings.ToUpper(s) {
		case "TRUE":
			return Boolean(true), nil
		case "FALSE":
			return Boolean(false), nil
		}
		return nil, errors.New("boolean must be TRUE or FALSE")
	case TypeDate:
		return decodeDate(s)
	case TypeTime:
		return decodeTime(s)
	case TypeDateTime:
		return decodeDateTime(s, tzid)
	case TypeDuration:
		return decodeDuration(s)
	case TypePeriod:
		return decodePeriod(s, tzid)
	case TypeRecur:
		return decodeRecur(s)
	case TypeUTCOffset:
		return decodeUTCOffset(s)
	case TypeBinary:
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, errors.Wrap(err, "invalid base64")
		}
		return Binary(b), nil
	case TypeCalAddress:
		if err := checkURI(s); err != nil {
			return nil, err
		}
		return CalAddress(s), nil
	case TypeURI:
		if err := checkURI(s); err != nil {
			return nil, err
		}
		return URI(s), nil
	}
	return Unknown{Raw: s}, nil
}

// unescapeText reverses escapeText. Backslashes before any other character
// are kept as written.
func unescapeText(s string) string {
	if strings.IndexByte(s, '\\') < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		switch n := s[i+1]; n {
		case '\\', ';', ',':
			b.WriteByte(n)
			i++
		case 'n', 'N':
			b.WriteByte('\n')
			i++
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// splitUnescaped splits s on sep, ignoring separators preceded by a backslash.
func splitUnescaped(s string, sep byte) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case sep:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

// decodeInteger parses an INTEGER. A leading "+" and surrounding whitespace
// are rejected, and values outside the signed 32-bit range are an error.
func decodeInteger(s string) (int, error) {
	if s == "" {
		return 0, errors.New("empty integer")
	}
	digits := s
	if digits[0] == '-' {
		digits = digits[1:]
	}
	if !isDigits(digits) {
		return 0, errors.Errorf("invalid integer %q", s)
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, errors.Errorf("integer %q out of range", s)
	}
	return int(n), nil
}

// decodeFloat parses a FLOAT
//
// float = ["-"] 1*DIGIT ["." 1*DIGIT]
func decodeFloat(s string) (float64, error) {
	body := strings.TrimPrefix(s, "-")
	intPart, frac, hasFrac := strings.Cut(body, ".")
	if !isDigits(intPart) || (hasFrac && !isDigits(frac)) {
		return 0, errors.Errorf("invalid float %q", s)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Errorf("float %q out of range", s)
	}
	return f, nil
}

// decodeDate parses a DATE
//
// date = date-fullyear date-month date-mday ; YYYYMMDD
func decodeDate(s string) (Date, error) {
	if len(s) != dateLayoutLen || !isDigits(s) {
		return Date{}, errors.Errorf("date %q must be YYYYMMDD", s)
	}
	y, _ := strconv.Atoi(s[0:4])
	m, _ := strconv.Atoi(s[4:6])
	d, _ := strconv.Atoi(s[6:8])
	if m < 1 || m > 12 {
		return Date{}, errors.Errorf("month %02d out of range", m)
	}
	if last := time.Date(y, time.Month(m)+1, 0, 0, 0, 0, 0, time.UTC).Day(); d < 1 || d > last {
		return Date{}, errors.Errorf("invalid date %s, day %02d out of range", s, d)
	}
	return Date{Year: y, Month: time.Month(m), Day: d}, nil
}

// decodeTime parses a TIME
//
// time = time-hour time-minute time-second [time-utc] ; HHMMSS[Z]
func decodeTime(s string) (Time, error) {
	var t Time
	if strings.HasSuffix(s, "Z") {
		t.UTC = true
		s = s[:len(s)-1]
	}
	if len(s) != timeLayoutLen || !isDigits(s) {
		return Time{}, errors.Errorf("time %q must be HHMMSS[Z]", s)
	}
	t.Hour, _ = strconv.Atoi(s[0:2])
	t.Minute, _ = strconv.Atoi(s[2:4])
	t.Second, _ = strconv.Atoi(s[4:6])
	switch {
	case t.Hour > 23:
		return Time{}, errors.Errorf("hour %02d out of range", t.Hour)
	case t.Minute > 59:
		return Time{}, errors.Errorf("minute %02d out of range", t.Minute)
	case t.Second > 60:
		return Time{}, errors.Errorf("second %02d out of range", t.Second)
	}
	return t, nil
}

// decodeDateTime parses a DATE-TIME
//
// date-time = date "T" time ; YYYYMMDDTHHMMSS[Z]
//
// A trailing Z marks UTC; otherwise tzid, when not empty, is recorded.
func decodeDateTime(s, tzid string) (DateTime, error) {
	datePart, timePart, ok := strings.Cut(s, "T")
	if !ok {
		return DateTime{}, errors.Errorf("date-time %q has no T separator", s)
	}
	d, err := decodeDate(datePart)
	if err != nil {
		return DateTime{}, err
	}
	t, err := decodeTime(timePart)
	if err != nil {
		return DateTime{}, err
	}
	dt := DateTime{
		Year: d.Year, Month: d.Month, Day: d.Day,
		Hour: t.Hour, Minute: t.Minute, Second: t.Second,
		UTC: t.UTC,
	}
	if !dt.UTC {
		dt.TZID = tzid
	}
	return dt, nil
}

// decodeDuration parses a DURATION
//
// dur-value = (["+"] / "-") "P" (dur-date / dur-time / dur-week)
// dur-date  = dur-day [dur-time]
// dur-time  = "T" (dur-hour / dur-minute / dur-second)
// dur-week  = 1*DIGIT "W"
func decodeDuration(s string) (Duration, error) {
	var d Duration
	rest := s
	switch {
	case strings.HasPrefix(rest, "-"):
		d.Negative = true
		rest = rest[1:]
	case strings.HasPrefix(rest, "+"):
		rest = rest[1:]
	}
	if !strings.HasPrefix(rest, "P") {
		return Duration{}, errors.Errorf("duration %q must start with P", s)
	}
	rest = rest[1:]
	if rest == "" {
		return Duration{}, errors.Errorf("duration %q is empty", s)
	}

	inTime := false
	// order tracks the position of the last designator so that each one
	// appears at most once and in grammar order.
	order := 0
	seen := false
	for rest != "" {
		if rest[0] == 'T' {
			if inTime {
				return Duration{}, errors.Errorf("duration %q has two T designators", s)
			}
			inTime = true
			rest = rest[1:]
			if rest == "" {
				return Duration{}, errors.Errorf("duration %q has an empty time part", s)
			}
			continue
		}
		i := 0
		for i < len(rest) && isDigit(rune(rest[i])) {
			i++
		}
		if i == 0 || i == len(rest) {
			return Duration{}, errors.Errorf("invalid duration %q", s)
		}
		n, err := strconv.Atoi(rest[:i])
		if err != nil {
			return Duration{}, errors.Errorf("duration %q out of range", s)
		}
		var pos int
		switch designator := rest[i]; {
		case designator == 'W' && !inTime:
			d.Weeks, pos = n, 1
		case designator == 'D' && !inTime:
			d.Days, pos = n, 2
		case designator == 'H' && inTime:
			d.Hours, pos = n, 3
		case designator == 'M' && inTime:
			d.Minutes, pos = n, 4
		case designator == 'S' && inTime:
			d.Seconds, pos = n, 5
		default:
			return Duration{}, errors.Errorf("unexpected %q in duration %q", designator, s)
		}
		if pos <= order || (order == 1 && pos > 1) {
			return Duration{}, errors.Errorf("invalid designator order in duration %q", s)
		}
		order = pos
		seen = true
		rest = rest[i+1:]
	}
	if !seen {
		return Duration{}, errors.Errorf("duration %q has no components", s)
	}
	return d, nil
}

// decodePeriod parses a PERIOD
//
// period = period-explicit / period-start
// period-explicit = date-time "/" date-time
// period-start    = date-time "/" dur-value
func decodePeriod(s, tzid string) (Period, error) {
	startPart, endPart, ok := strings.Cut(s, "/")
	if !ok {
		return Period{}, errors.Errorf("period %q has no / separator", s)
	}
	start, err := decodeDateTime(startPart, tzid)
	if err != nil {
		return Period{}, errors.Wrap(err, "period start")
	}
	p := Period{Start: start}
	if strings.HasPrefix(endPart, "P") || strings.HasPrefix(endPart, "-") || strings.HasPrefix(endPart, "+") {
		dur, err := decodeDuration(endPart)
		if err != nil {
			return Period{}, errors.Wrap(err, "period duration")
		}
		p.Duration = &dur
		return p, nil
	}
	end, err := decodeDateTime(endPart, tzid)
	if err != nil {
		return Period{}, errors.Wrap(err, "period end")
	}
	p.End = &end
	return p, nil
}

// decodeUTCOffset parses a UTC-OFFSET
//
// utc-offset = time-numzone
// time-numzone = ("+" / "-") time-hour time-minute [time-second]
func decodeUTCOffset(s string) (UTCOffset, error) {
	var o UTCOffset
	if s == "" || (s[0] != '+' && s[0] != '-') {
		return UTCOffset{}, errors.Errorf("utc offset %q must start with + or -", s)
	}
	o.Negative = s[0] == '-'
	digits := s[1:]
	if (len(digits) != 4 && len(digits) != 6) || !isDigits(digits) {
		return UTCOffset{}, errors.Errorf("utc offset %q must be HHMM or HHMMSS", s)
	}
	o.Hours, _ = strconv.Atoi(digits[0:2])
	o.Minutes, _ = strconv.Atoi(digits[2:4])
	if len(digits) == 6 {
		o.Seconds, _ = strconv.Atoi(digits[4:6])
	}
	switch {
	case o.Hours > 23:
		return UTCOffset{}, errors.Errorf("offset hour %02d out of range", o.Hours)
	case o.Minutes > 59:
		return UTCOffset{}, errors.Errorf("offset minute %02d out of range", o.Minutes)
	case o.Seconds > 59:
		return UTCOffset{}, errors.Errorf("offset second %02d out of range", o.Seconds)
	}
	return o, nil
}

func checkURI(s string) error {
	if s == "" {
		return errors.New("empty uri")
	}
	u, err := url.Parse(s)
	if err != nil {
		return errors.Wrap(err, "invalid uri")
	}
	if u.Scheme == "" {
		return errors.Errorf("uri %q has no scheme", s)
	}
	return nil
}

func paramValue(params []*Param, name string) string {
	for _, p := range params {
		if strings.EqualFold(p.Name, name) && len(p.Values) > 0 {
			return p.Values[0]
		}
	}
	return ""
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !isDigit(r) {
			return false
		}
	}
	return true
}
