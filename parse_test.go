package ical

import (
	"os"
	"reflect"
	"strings"
	"testing"
	"time"
)

var calendarList = []string{"testdata/example.ics", "testdata/with-alarm.ics"}

// icsLines joins lines into a CRLF terminated stream.
func icsLines(lines ...string) string {
	return strings.Join(lines, "\r\n") + "\r\n"
}

func parseFile(t *testing.T, filename string) ([]*Calendar, []Finding) {
	t.Helper()
	file, err := os.Open(filename)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	cals, findings, err := Parse(file)
	if err != nil {
		t.Fatalf("%s: %v", filename, err)
	}
	return cals, findings
}

func rulesOf(findings []Finding) []string {
	rules := make([]string, len(findings))
	for i, f := range findings {
		rules[i] = f.Rule
	}
	return rules
}

func TestParse(t *testing.T) {
	for _, filename := range calendarList {
		cals, findings := parseFile(t, filename)
		if len(cals) != 1 {
			t.Errorf("%s: got %d calendars, want 1", filename, len(cals))
			continue
		}
		if len(findings) != 0 {
			t.Errorf("%s: parse findings %v", filename, findings)
		}
		if findings := Validate(cals[0]); len(findings) != 0 {
			t.Errorf("%s: validate findings %v", filename, findings)
		}
	}
}

func TestParseExample(t *testing.T) {
	cals, _ := parseFile(t, "testdata/example.ics")
	cal := cals[0]

	if v := cal.Property(PropVersion); v == nil || v.Value != Text("2.0") {
		t.Errorf("VERSION = %v", v)
	}
	if got := len(cal.Components); got != 3 {
		t.Fatalf("got %d components, want 3", got)
	}

	tz := cal.ComponentsNamed(CompTimezone)
	if len(tz) != 1 || len(tz[0].Components) != 2 {
		t.Fatalf("VTIMEZONE = %+v", tz)
	}
	std := tz[0].Components[0]
	if std.Kind() != KindStandard {
		t.Errorf("first observance kind = %v, want KindStandard", std.Kind())
	}
	if off := std.Property(PropTZOffsetTo); off == nil || off.Value != (UTCOffset{Negative: true, Hours: 5}) {
		t.Errorf("TZOFFSETTO = %+v", off)
	}

	events := cal.Events()
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	start := events[0].Property(PropDTStart)
	want := DateTime{Year: 1997, Month: time.September, Day: 3, Hour: 16, Minute: 30, TZID: "America/New_York"}
	if start == nil || start.Value != want {
		t.Errorf("DTSTART = %+v, want %+v", start, want)
	}
	if start.Line != 25 {
		t.Errorf("DTSTART line = %d, want 25", start.Line)
	}

	cats := events[0].Property(PropCategories)
	if cats == nil || !ValuesEqual(cats.Value, List{Text("BUSINESS"), Text("HUMAN RESOURCES")}) {
		t.Errorf("CATEGORIES = %+v", cats)
	}

	todo := cal.ComponentsNamed(CompToDo)[0]
	if due := todo.Property(PropDue); due == nil || due.Value != (Date{Year: 2007, Month: time.May, Day: 1}) {
		t.Errorf("DUE = %+v", due)
	}
}

func TestParseWithAlarm(t *testing.T) {
	cals, _ := parseFile(t, "testdata/with-alarm.ics")
	event := cals[0].Events()[0]

	desc := event.Property(PropDescription)
	want := Text("The festival brings together more than 3000 musicians from 30 countries, with about 650 concerts; most of them free.")
	if desc == nil || desc.Value != want {
		t.Errorf("DESCRIPTION = %q, want %q", EncodeValue(desc.Value), want)
	}

	org := event.Property(PropOrganizer)
	if org.ParamValue(ParamCN) != "Doe, John" || org.Value != CalAddress("mailto:john.doe@example.com") {
		t.Errorf("ORGANIZER = %+v", org)
	}

	alarms := event.ComponentsNamed(CompAlarm)
	if len(alarms) != 1 {
		t.Fatalf("got %d alarms, want 1", len(alarms))
	}
	trigger := alarms[0].Property(PropTrigger)
	if trigger.Value != (Duration{Negative: true, Minutes: 15}) {
		t.Errorf("TRIGGER = %+v", trigger.Value)
	}
	if d := trigger.Value.(Duration).Std(); d != -15*time.Minute {
		t.Errorf("TRIGGER duration = %v", d)
	}
}

func TestParseBroken(t *testing.T) {
	cals, findings := parseFile(t, "testdata/broken.ics")
	if len(cals) != 1 {
		t.Fatalf("got %d calendars, want 1", len(cals))
	}
	events := cals[0].Events()
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	if s := events[1].Property(PropSummary); s == nil || s.Value != Text("Second") {
		t.Errorf("second event SUMMARY = %+v", s)
	}

	if got := rulesOf(findings); !reflect.DeepEqual(got, []string{RuleSyntaxLine, RuleValueDecode}) {
		t.Fatalf("findings = %v", findings)
	}

	syntax := findings[0]
	if syntax.Line != 13 {
		t.Errorf("syntax finding line = %d, want 13", syntax.Line)
	}
	if want := `component "VCALENDAR" at index 0, in component "VEVENT" at index 1`; syntax.Path.String() != want {
		t.Errorf("syntax finding path = %s, want %s", syntax.Path, want)
	}

	decode := findings[1]
	if decode.Line != 20 {
		t.Errorf("decode finding line = %d, want 20", decode.Line)
	}
	start := events[2].Property(PropDTStart)
	if start.Err == nil || start.Value != (Unknown{Raw: "2020021"}) {
		t.Errorf("broken DTSTART = %+v", start)
	}
}

var structureTests = []struct {
	name  string
	input string
	cals  int
	rules []string
}{
	{
		"unterminated",
		icsLines("BEGIN:VCALENDAR", "BEGIN:VEVENT", "UID:1"),
		1,
		[]string{RuleStructureUnterminated, RuleStructureUnterminated},
	},
	{
		"end closes nested component",
		icsLines("BEGIN:VCALENDAR", "BEGIN:VEVENT", "BEGIN:VALARM", "END:VEVENT", "END:VCALENDAR"),
		1,
		[]string{RuleStructureEnd},
	},
	{
		"end without begin",
		icsLines("BEGIN:VCALENDAR", "END:VTODO", "END:VCALENDAR"),
		1,
		[]string{RuleStructureEnd},
	},
	{
		"outside calendar",
		icsLines("X-FOO:bar", "BAZ:1", "BEGIN:VCALENDAR", "END:VCALENDAR", "TRAILING:1"),
		1,
		[]string{RuleStructureOutside, RuleStructureOutside},
	},
	{
		"several calendars",
		icsLines("BEGIN:VCALENDAR", "END:VCALENDAR", "BEGIN:VCALENDAR", "END:VCALENDAR"),
		2,
		nil,
	},
	{
		"empty stream",
		"",
		0,
		nil,
	},
}

func TestParseStructure(t *testing.T) {
	for _, tt := range structureTests {
		cals, findings, err := Parse(strings.NewReader(tt.input))
		if err != nil {
			t.Errorf("%s: %v", tt.name, err)
			continue
		}
		if len(cals) != tt.cals {
			t.Errorf("%s: got %d calendars, want %d", tt.name, len(cals), tt.cals)
		}
		if got := rulesOf(findings); len(got) != len(tt.rules) || (len(got) > 0 && !reflect.DeepEqual(got, tt.rules)) {
			t.Errorf("%s: findings = %v, want rules %v", tt.name, findings, tt.rules)
		}
	}
}

func TestParseUnterminatedKeepsContent(t *testing.T) {
	cals, _, err := Parse(strings.NewReader(icsLines("BEGIN:VCALENDAR", "BEGIN:VEVENT", "UID:1")))
	if err != nil {
		t.Fatal(err)
	}
	events := cals[0].Events()
	if len(events) != 1 || events[0].Property(PropUID) == nil {
		t.Errorf("events = %+v", events)
	}
}

func TestParseParams(t *testing.T) {
	input := icsLines(
		"BEGIN:VCALENDAR",
		"BEGIN:VEVENT",
		`ATTENDEE;CN="Doe, John";delegated-to="mailto:a@example.com","mailto:b@example.com";X-NOTE=line^nbreak ^'quoted^' ^^:mailto:jane@example.com`,
		"END:VEVENT",
		"END:VCALENDAR",
	)
	cal, _, err := ParseCalendar(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	p := cal.Events()[0].Property(PropAttendee)

	want := []*Param{
		{Name: "CN", Values: []string{"Doe, John"}},
		{Name: "DELEGATED-TO", Values: []string{"mailto:a@example.com", "mailto:b@example.com"}},
		{Name: "X-NOTE", Values: []string{"line\nbreak \"quoted\" ^"}},
	}
	if len(p.Params) != len(want) {
		t.Fatalf("params = %+v", p.Params)
	}
	for i := range want {
		if !p.Params[i].Equal(want[i]) {
			t.Errorf("param %d = %+v, want %+v", i, p.Params[i], want[i])
		}
	}
}

func TestParseExtensions(t *testing.T) {
	input := icsLines(
		"BEGIN:VCALENDAR",
		"X-WR-CALNAME:Team",
		"BEGIN:X-THING",
		"X-COLOR;VALUE=INTEGER:42",
		"END:X-THING",
		"END:VCALENDAR",
	)
	cal, findings, err := ParseCalendar(strings.NewReader(input))
	if err != nil || len(findings) != 0 {
		t.Fatalf("ParseCalendar() = %v, %v", findings, err)
	}
	if p := cal.Property("X-WR-CALNAME"); p == nil || p.Value != (Unknown{Raw: "Team"}) {
		t.Errorf("X-WR-CALNAME = %+v", p)
	}
	comp := cal.Components[0]
	if comp.Kind() != KindExtension || comp.Name != "X-THING" {
		t.Errorf("component = %+v", comp)
	}
	if p := comp.Property("X-COLOR"); p == nil || p.Value != Integer(42) {
		t.Errorf("X-COLOR = %+v", p)
	}
}

func TestParseStrict(t *testing.T) {
	for _, input := range []string{
		"BEGIN:VCALENDAR\nEND:VCALENDAR\n",
		icsLines("BEGIN:VCALENDAR", "not a content line", "END:VCALENDAR"),
	} {
		_, _, err := Parse(strings.NewReader(input), Strict())
		if _, ok := err.(*SyntaxError); !ok {
			t.Errorf("Parse(%q) error = %v, want a *SyntaxError", input, err)
		}
	}
}

func TestParseEncodingError(t *testing.T) {
	cals, _, err := Parse(strings.NewReader(icsLines("BEGIN:VCALENDAR", "SUMMARY:\xfe", "END:VCALENDAR")))
	if _, ok := err.(*EncodingError); !ok {
		t.Errorf("error = %v, want an *EncodingError", err)
	}
	if cals != nil {
		t.Errorf("calendars = %v, want nil", cals)
	}
}

func TestParseCalendarEmpty(t *testing.T) {
	if _, _, err := ParseCalendar(strings.NewReader("")); err == nil {
		t.Error("ParseCalendar() of an empty stream succeeded")
	}
}
