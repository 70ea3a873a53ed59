package ical

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// An Option configures Parse and NewLineReader.
type Option func(*options)

type options struct {
	cfg ParseConfig
	log logrus.FieldLogger
}

func newOptions(opts []Option) options {
	o := options{log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	o.cfg.normalize()
	return o
}

// WithLogger sets the logger anomalies are reported to, at debug level.
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithConfig sets the parse configuration.
func WithConfig(cfg ParseConfig) Option {
	return func(o *options) {
		o.cfg = cfg
	}
}

// Strict is shorthand for a configuration with Strict set.
func Strict() Option {
	return func(o *options) {
		o.cfg.Strict = true
	}
}

// frame is an open BEGIN block. The bottom frame of an open calendar has
// cal set and comp nil.
type frame struct {
	name string
	path Path
	cal  *Calendar
	comp *Component
}

func (f *frame) addProperty(p *Property) int {
	if f.cal != nil {
		f.cal.AddProperty(p)
		return len(f.cal.Properties) - 1
	}
	f.comp.AddProperty(p)
	return len(f.comp.Properties) - 1
}

func (f *frame) addComponent(c *Component) int {
	if f.cal != nil {
		f.cal.AddComponent(c)
		return len(f.cal.Components) - 1
	}
	f.comp.AddComponent(c)
	return len(f.comp.Components) - 1
}

type parser struct {
	lr   *LineReader
	opts options

	cals     []*Calendar
	stack    []*frame
	outside  bool
	findings []Finding
}

// Parse reads every VCALENDAR object in r.
//
// Anomalies that leave the rest of the stream readable, such as a broken
// content line or a mismatched END, are returned as findings and parsing
// continues. The error is non-nil only for invalid encodings, read
// failures, and in strict mode for lines that do not tokenize.
// It's up to the caller to close the io.Reader.
func Parse(r io.Reader, opts ...Option) ([]*Calendar, []Finding, error) {
	p := &parser{opts: newOptions(opts)}
	p.lr = &LineReader{src: r, opts: p.opts}
	err := p.parse()
	p.opts.log.WithFields(logrus.Fields{
		"calendars": len(p.cals),
		"findings":  len(p.findings),
	}).Debug("ical: parse done")
	if err != nil {
		return nil, p.findings, err
	}
	return p.cals, p.findings, nil
}

// ParseCalendar reads a stream holding a single calendar. It returns an error
// when the stream holds no calendar.
func ParseCalendar(r io.Reader, opts ...Option) (*Calendar, []Finding, error) {
	cals, findings, err := Parse(r, opts...)
	if err != nil {
		return nil, findings, err
	}
	if len(cals) == 0 {
		return nil, findings, errors.New("ical: no VCALENDAR found")
	}
	return cals[0], findings, nil
}

func (p *parser) parse() error {
	for {
		line, err := p.lr.Next()
		p.collect(p.lr.takeFindings())
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if err := p.scanContentLine(line); err != nil {
			return err
		}
	}

	for len(p.stack) > 0 {
		top := p.stack[len(p.stack)-1]
		p.report(SeverityError, RuleStructureUnterminated, top.path, 0,
			fmt.Sprintf("%s is not terminated by END:%s", top.name, top.name))
		p.pop()
	}
	return nil
}

// scanContentLine parses a content-line of a calendar
func (p *parser) scanContentLine(line Line) error {
	items, err := lex(line.Text)
	if err != nil {
		if p.opts.cfg.Strict {
			return &SyntaxError{Line: line.Num, Msg: err.Error()}
		}
		p.report(SeverityError, RuleSyntaxLine, p.path(), line.Num,
			fmt.Sprintf("line %d is not a content line (%v), skipped", line.Num, err))
		return nil
	}

	cl := scanItems(items)
	switch cl.name {
	case "BEGIN":
		p.begin(line, strings.ToUpper(cl.value))
		return nil
	case "END":
		p.end(line, strings.ToUpper(cl.value))
		return nil
	}

	if len(p.stack) == 0 {
		p.dropOutside(line)
		return nil
	}

	prop := NewProperty(cl.name, nil)
	prop.Params = cl.params
	prop.Line = line.Num
	prop.Value, prop.Err = DecodeValue(prop.Name, prop.Params, cl.value)

	top := p.stack[len(p.stack)-1]
	i := top.addProperty(prop)
	if prop.Err != nil {
		p.report(SeverityError, RuleValueDecode, top.path.property(prop.Name, i), line.Num, prop.Err.Error())
	}
	return nil
}

// contentLine is a tokenized line.
type contentLine struct {
	name   string
	params []*Param
	value  string
}

// scanItems assembles the items of a line that lexed without error.
func scanItems(items []item) contentLine {
	cl := contentLine{params: make([]*Param, 0)}
	var param *Param
	for _, it := range items {
		switch it.typ {
		case itemName:
			cl.name = strings.ToUpper(it.val)
		case itemParamName:
			param = NewParam(it.val)
			cl.params = append(cl.params, param)
		case itemParamValue:
			param.Values = append(param.Values, decodeParamValue(it.val))
		case itemValue:
			cl.value = it.val
		}
	}
	return cl
}

// decodeParamValue resolves the RFC 6868 caret escapes ^n, ^^ and ^'.
func decodeParamValue(s string) string {
	if strings.IndexByte(s, '^') < 0 {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '^' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		switch s[i+1] {
		case 'n', 'N':
			b.WriteByte('\n')
		case '^':
			b.WriteByte('^')
		case '\'':
			b.WriteByte('"')
		default:
			b.WriteByte('^')
			continue
		}
		i++
	}
	return b.String()
}

func (p *parser) begin(line Line, name string) {
	if name == "" {
		p.report(SeverityError, RuleSyntaxLine, p.path(), line.Num, "BEGIN without a component name, skipped")
		return
	}

	if len(p.stack) == 0 {
		if name != CompCalendar {
			p.dropOutside(line)
			return
		}
		p.outside = false
		cal := NewCalendar()
		p.cals = append(p.cals, cal)
		p.stack = append(p.stack, &frame{
			name: CompCalendar,
			path: Path{{Name: CompCalendar, Index: len(p.cals) - 1}},
			cal:  cal,
		})
		return
	}

	top := p.stack[len(p.stack)-1]
	comp := NewComponent(name)
	i := top.addComponent(comp)
	p.stack = append(p.stack, &frame{name: name, path: top.path.component(name, i), comp: comp})
}

// end closes the innermost open component named name. Components opened
// after it are closed too, with a finding each. An END matching nothing is
// reported and ignored.
func (p *parser) end(line Line, name string) {
	match := -1
	for i := len(p.stack) - 1; i >= 0; i-- {
		if p.stack[i].name == name {
			match = i
			break
		}
	}
	if match < 0 {
		if len(p.stack) == 0 {
			p.dropOutside(line)
			return
		}
		p.report(SeverityError, RuleStructureEnd, p.path(), line.Num,
			fmt.Sprintf("END:%s does not match any open component, ignored", name))
		return
	}
	for len(p.stack)-1 > match {
		top := p.stack[len(p.stack)-1]
		p.report(SeverityError, RuleStructureEnd, top.path, line.Num,
			fmt.Sprintf("%s closed by END:%s", top.name, name))
		p.pop()
	}
	p.pop()
}

func (p *parser) pop() {
	top := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]
	if top.cal != nil {
		calendarsTotal.Inc()
	}
}

// dropOutside discards a line that is not inside any VCALENDAR. Only the
// first line of a run is reported.
func (p *parser) dropOutside(line Line) {
	if p.outside {
		return
	}
	p.outside = true
	p.report(SeverityError, RuleStructureOutside, nil, line.Num,
		fmt.Sprintf("line %d is outside of a VCALENDAR, dropped", line.Num))
}

// path returns the path of the innermost open block.
func (p *parser) path() Path {
	if len(p.stack) == 0 {
		return nil
	}
	return p.stack[len(p.stack)-1].path
}

func (p *parser) collect(findings []Finding) {
	for _, f := range findings {
		if f.Path == nil {
			f.Path = p.path()
		}
		p.add(f)
	}
}

func (p *parser) report(sev Severity, rule string, path Path, line int, msg string) {
	p.add(Finding{Severity: sev, Rule: rule, Path: path, Line: line, Message: msg})
}

func (p *parser) add(f Finding) {
	p.findings = append(p.findings, f)
	countFinding("parse", f)
	p.opts.log.WithFields(logrus.Fields{
		"line": f.Line,
		"rule": f.Rule,
	}).Debug(f.Message)
}
