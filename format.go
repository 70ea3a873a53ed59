package ical

import (
	"bytes"
	"io"
	"strings"
	"unicode/utf8"
)

const (
	crlf = "\r\n"

	// maxLineOctets is the longest a physical line may be, without CRLF.
	maxLineOctets = 75
)

// Format writes the calendar to the provided io.Writer.
//
// Properties, parameters and components are written in the order they are
// stored. Lines longer than 75 octets are folded.
func Format(w io.Writer, cal *Calendar) error {
	var buf bytes.Buffer
	formatCalendar(&buf, cal)
	_, err := buf.WriteTo(w)
	return err
}

// FormatAll writes several calendars one after the other.
func FormatAll(w io.Writer, cals []*Calendar) error {
	var buf bytes.Buffer
	for _, cal := range cals {
		formatCalendar(&buf, cal)
	}
	_, err := buf.WriteTo(w)
	return err
}

func formatCalendar(buf *bytes.Buffer, cal *Calendar) {
	writeLine(buf, "BEGIN:"+CompCalendar)
	formatPropertiesList(buf, cal.Properties)
	for _, comp := range cal.Components {
		formatComponent(buf, comp)
	}
	writeLine(buf, "END:"+CompCalendar)
}

func formatComponent(buf *bytes.Buffer, comp *Component) {
	name := strings.ToUpper(comp.Name)
	writeLine(buf, "BEGIN:"+name)
	formatPropertiesList(buf, comp.Properties)
	for _, child := range comp.Components {
		formatComponent(buf, child)
	}
	writeLine(buf, "END:"+name)
}

func formatPropertiesList(buf *bytes.Buffer, props []*Property) {
	for _, prop := range props {
		formatProperty(buf, prop)
	}
}

func formatProperty(buf *bytes.Buffer, prop *Property) {
	var b strings.Builder
	b.WriteString(strings.ToUpper(prop.Name))

	for _, param := range prop.Params {
		b.WriteByte(';')
		b.WriteString(strings.ToUpper(param.Name))
		b.WriteByte('=')
		for i, v := range param.Values {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(quoteParamValue(v))
		}
	}

	b.WriteByte(':')
	encodePropertyValue(&b, prop)
	writeLine(buf, b.String())
}

// encodePropertyValue writes the value of prop, using the separator and
// escaping its name calls for.
func encodePropertyValue(b *strings.Builder, prop *Property) {
	if prop.Value == nil {
		return
	}
	info, _ := lookupProperty(prop.Name)
	switch v := prop.Value.(type) {
	case Text:
		if info.verbatim {
			b.WriteString(string(v))
			return
		}
	case List:
		if info.sep != 0 {
			v.encodeSep(b, info.sep)
			return
		}
	}
	prop.Value.encode(b)
}

// quoteParamValue applies RFC 6868 caret encoding and quotes values holding
// characters that are not SAFE-CHAR.
func quoteParamValue(s string) string {
	if strings.ContainsAny(s, "^\n\"") {
		var b strings.Builder
		for i := 0; i < len(s); i++ {
			switch s[i] {
			case '^':
				b.WriteString("^^")
			case '\n':
				b.WriteString("^n")
			case '"':
				b.WriteString("^'")
			case '\r':
			default:
				b.WriteByte(s[i])
			}
		}
		s = b.String()
	}
	if strings.ContainsAny(s, ":;,") {
		return `"` + s + `"`
	}
	return s
}

// writeLine writes a logical line, folded, followed by CRLF.
func writeLine(buf *bytes.Buffer, line string) {
	buf.WriteString(fold(line))
	buf.WriteString(crlf)
}

// fold splits line into physical lines of at most 75 octets. Each
// continuation starts with a single space, so it holds at most 74 octets of
// content. A split never falls inside a UTF-8 sequence or between a
// backslash and the character it escapes. Input that is not UTF-8 is split
// at the octet limit.
func fold(line string) string {
	if len(line) <= maxLineOctets {
		return line
	}
	var b strings.Builder
	b.Grow(len(line) + len(line)/maxLineOctets*3)
	limit := maxLineOctets
	for len(line) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		if cut == 0 {
			// not UTF-8, split at the octet limit
			cut = limit
		}
		if cut > 1 && line[cut-1] == '\\' && !escapedBackslash(line[:cut-1]) {
			cut--
		}
		b.WriteString(line[:cut])
		b.WriteString(crlf + " ")
		line = line[cut:]
		limit = maxLineOctets - 1
	}
	b.WriteString(line)
	return b.String()
}

// escapedBackslash reports whether s ends with an odd number of backslashes,
// so that a backslash following it is itself escaped.
func escapedBackslash(s string) bool {
	n := 0
	for i := len(s) - 1; i >= 0 && s[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}
