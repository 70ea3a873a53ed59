package ical

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// item is one token of a content line.
type item struct {
	typ itemType
	pos int // byte offset in the line
	val string
}

func (i item) String() string {
	if i.typ == itemEOF {
		return "EOF"
	}
	if len(i.val) > 10 {
		return fmt.Sprintf("%.10q...", i.val)
	}
	return fmt.Sprintf("%q", i.val)
}

type itemType int

const (
	itemError itemType = iota
	itemEOF

	itemName
	itemParamName
	itemParamValue // unquoted, caret encoding still applied
	itemValue

	itemColon
	itemSemiColon
	itemEqual
	itemComma
)

const eof = -1

// stateFn scans one token and returns the state for the next.
type stateFn func(*lexer) stateFn

// lexer scans one logical content line.
type lexer struct {
	input string
	start int // start of the pending item
	pos   int
	width int // width of the last rune read
	items []item
	err   *lexError
}

// lex scans a logical content line. It returns the items up to and including
// itemEOF, or an error item describing the first offending character.
func lex(input string) ([]item, error) {
	l := &lexer{input: input}
	for state := stateFn(lexName); state != nil; {
		state = state(l)
	}
	if l.err != nil {
		return l.items, l.err
	}
	return l.items, nil
}

type lexError struct {
	pos int
	msg string
}

func (e *lexError) Error() string {
	return fmt.Sprintf("column %d: %s", e.pos+1, e.msg)
}

func (l *lexer) emit(t itemType) {
	l.items = append(l.items, item{t, l.start, l.input[l.start:l.pos]})
	l.start = l.pos
}

// skip drops the pending input, such as a quote.
func (l *lexer) skip() {
	l.start = l.pos
}

// accept consumes runes while ok holds for them.
func (l *lexer) accept(ok func(rune) bool) {
	for ok(l.next()) {
	}
	l.backup()
}

// next consumes and returns the next rune, or eof.
func (l *lexer) next() rune {
	if l.pos >= len(l.input) {
		l.width = 0
		return eof
	}
	r, w := utf8.DecodeRuneInString(l.input[l.pos:])
	l.width = w
	l.pos += l.width
	return r
}

func (l *lexer) peek() rune {
	r := l.next()
	l.backup()
	return r
}

// backup undoes the last call of next, once.
func (l *lexer) backup() {
	l.pos -= l.width
}

// errorf stops the scan at the current position.
func (l *lexer) errorf(format string, args ...interface{}) stateFn {
	l.err = &lexError{pos: l.pos, msg: fmt.Sprintf(format, args...)}
	return nil
}

// lexDelim scans the delimiter after a name or a param value.
//
//	contentline = name *(";" param ) ":" value CRLF
func lexDelim(l *lexer) stateFn {
	switch r := l.next(); {
	case r == ';':
		l.emit(itemSemiColon)
		return lexParamName
	case r == ':':
		l.emit(itemColon)
		return lexValue
	case r == ',':
		l.emit(itemComma)
		return lexParamValue
	case r == eof:
		return l.errorf("missing \":\" before the value")
	default:
		return l.errorf("unexpected character %#U", r)
	}
}

// lexName scans the property name. Vendor prefixes of x-names are not
// checked here.
//
//	name = iana-token / x-name
func lexName(l *lexer) stateFn {
	l.accept(isName)
	if l.pos == l.start {
		return l.errorf("content line must start with a name, got %#U", l.peek())
	}
	l.emit(itemName)
	return lexDelim
}

func lexParamName(l *lexer) stateFn {
	l.accept(isName)
	if l.pos == l.start {
		return l.errorf("missing param name")
	}
	l.emit(itemParamName)

	if r := l.next(); r != '=' {
		return l.errorf("missing \"=\" sign after param name, got %#U", r)
	}
	l.emit(itemEqual)
	return lexParamValue
}

// lexParamValue scans one value of a parameter, quoted or not. The quotes
// are not part of the item.
func lexParamValue(l *lexer) stateFn {
	if l.peek() != '"' {
		l.accept(isSafeChar)
		l.emit(itemParamValue)
		return lexDelim
	}
	l.next()
	l.skip()
	l.accept(isQSafeChar)
	l.emit(itemParamValue)
	if l.next() != '"' {
		return l.errorf("quoted parameter value is not closed")
	}
	l.skip()
	return lexDelim
}

// lexValue takes the rest of the line. Only control characters other than
// HTAB are rejected.
func lexValue(l *lexer) stateFn {
	for {
		switch r := l.next(); {
		case r == eof:
			l.emit(itemValue)
			l.emit(itemEOF)
			return nil
		case !isValueChar(r):
			l.backup()
			return l.errorf("control character %#U in value", r)
		}
	}
}

func isName(r rune) bool {
	return r < utf8.RuneSelf && (r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || isDigit(r) || r == '-')
}

func isQSafeChar(r rune) bool {
	return r != eof && (r == '\t' || !unicode.IsControl(r)) && r != '"'
}

func isSafeChar(r rune) bool {
	return isQSafeChar(r) && r != ';' && r != ':' && r != ','
}

func isValueChar(r rune) bool {
	return r == '\t' || !unicode.IsControl(r)
}
