package ical

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"

	"github.com/dimchansky/utfbom"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// A Line is a logical content line, with continuation lines joined.
type Line struct {
	// Num is the physical line the logical line starts on, counting from 1.
	Num  int
	Text string
}

// physLine is a physical line without its terminator.
type physLine struct {
	num  int
	text []byte
}

// A LineReader unfolds a stream into logical lines.
//
// Lines are read lazily, one per call to Next. Anomalies that do not stop
// reading are collected and returned by Findings.
type LineReader struct {
	src  io.Reader
	r    *bufio.Reader
	opts options

	num      int
	pending  *physLine
	eof      bool
	warnedLF bool
	findings []Finding
}

// NewLineReader returns a LineReader reading from r. A byte order mark is
// skipped, and UTF-16 input is converted to UTF-8.
func NewLineReader(r io.Reader, opts ...Option) *LineReader {
	return &LineReader{src: r, opts: newOptions(opts)}
}

func (lr *LineReader) init() error {
	sr, enc := utfbom.Skip(lr.src)
	var r io.Reader = sr
	switch enc {
	case utfbom.UTF16BigEndian:
		r = transform.NewReader(sr, unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder())
	case utfbom.UTF16LittleEndian:
		r = transform.NewReader(sr, unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder())
	case utfbom.UTF32BigEndian, utfbom.UTF32LittleEndian:
		return &EncodingError{Reason: "UTF-32 input is not supported"}
	}
	lr.r = bufio.NewReader(r)
	return nil
}

// Next returns the next logical line, or io.EOF after the last one.
func (lr *LineReader) Next() (Line, error) {
	if lr.r == nil {
		if err := lr.init(); err != nil {
			return Line{}, err
		}
	}

	for {
		first, err := lr.nextPhysical()
		if err != nil {
			return Line{}, err
		}

		text := first.text
		if isContinuation(text) {
			lr.report(SeverityError, RuleSyntaxContinuation, first.num,
				"continuation line without a preceding line")
			text = text[1:]
		}
		buf := append([]byte(nil), text...)

		overflow := false
		for {
			next, err := lr.nextPhysical()
			if err == io.EOF {
				break
			}
			if err != nil {
				return Line{}, err
			}
			if !isContinuation(next.text) {
				lr.pending = next
				break
			}
			if !overflow {
				buf = append(buf, next.text[1:]...)
				overflow = len(buf) > lr.opts.cfg.MaxLineOctets
			}
		}
		if overflow || len(buf) > lr.opts.cfg.MaxLineOctets {
			if lr.opts.cfg.Strict {
				return Line{}, &SyntaxError{Line: first.num, Msg: "line exceeds the maximum length"}
			}
			lr.report(SeverityError, RuleSyntaxLine, first.num, "line exceeds the maximum length, dropped")
			continue
		}

		linesTotal.Inc()
		return Line{Num: first.num, Text: string(buf)}, nil
	}
}

// Findings returns the anomalies seen so far.
func (lr *LineReader) Findings() []Finding {
	return lr.findings
}

// takeFindings returns and forgets the anomalies seen so far.
func (lr *LineReader) takeFindings() []Finding {
	f := lr.findings
	lr.findings = nil
	return f
}

func (lr *LineReader) report(sev Severity, rule string, line int, msg string) {
	lr.findings = append(lr.findings, Finding{Severity: sev, Rule: rule, Line: line, Message: msg})
}

// nextPhysical returns the next non-empty physical line.
func (lr *LineReader) nextPhysical() (*physLine, error) {
	if lr.pending != nil {
		p := lr.pending
		lr.pending = nil
		return p, nil
	}
	for {
		if lr.eof {
			return nil, io.EOF
		}
		text, err := lr.readPhysical()
		if err != nil {
			return nil, err
		}
		if len(text) > 0 {
			return &physLine{num: lr.num, text: text}, nil
		}
	}
}

// readPhysical reads one physical line and strips its terminator. Bytes
// beyond the maximum line length are discarded while reading, so a single
// huge line cannot exhaust memory.
func (lr *LineReader) readPhysical() ([]byte, error) {
	limit := lr.opts.cfg.MaxLineOctets + len("\r\n")
	var buf []byte
	truncated := false
	for {
		frag, err := lr.r.ReadSlice('\n')
		if len(buf)+len(frag) <= limit {
			buf = append(buf, frag...)
		} else if !truncated {
			buf = append(buf, frag[:limit-len(buf)]...)
			truncated = true
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if err == io.EOF {
			lr.eof = true
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read calendar")
		}
		break
	}
	if len(buf) == 0 && lr.eof {
		return nil, nil
	}
	lr.num++
	if truncated {
		// Next drops it by length; the cut may split a rune.
		return buf, nil
	}

	switch {
	case bytes.HasSuffix(buf, []byte("\r\n")):
		buf = buf[:len(buf)-2]
	case bytes.HasSuffix(buf, []byte("\n")):
		if lr.opts.cfg.Strict {
			return nil, &SyntaxError{Line: lr.num, Msg: "line ends with LF instead of CRLF"}
		}
		if !lr.warnedLF {
			lr.warnedLF = true
			lr.report(SeverityWarning, RuleSyntaxLineEnding, lr.num, "line ends with LF instead of CRLF")
		}
		buf = buf[:len(buf)-1]
	case bytes.HasSuffix(buf, []byte("\r")):
		buf = buf[:len(buf)-1]
	}

	if !utf8.Valid(buf) {
		return nil, &EncodingError{Line: lr.num, Reason: "invalid UTF-8"}
	}
	return buf, nil
}

func isContinuation(text []byte) bool {
	return len(text) > 0 && (text[0] == ' ' || text[0] == '\t')
}
