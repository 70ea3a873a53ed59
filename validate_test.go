package ical

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"
)

// calendarWith wraps component lines in a VCALENDAR that has VERSION and
// PRODID.
func calendarWith(lines ...string) []string {
	out := []string{"BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//Test//EN"}
	out = append(out, lines...)
	return append(out, "END:VCALENDAR")
}

// event returns a VEVENT with UID, DTSTAMP and DTSTART, followed by props.
func event(props ...string) []string {
	out := []string{"BEGIN:VEVENT", "UID:1@example.com", "DTSTAMP:20200101T000000Z", "DTSTART:20200101T100000Z"}
	out = append(out, props...)
	return append(out, "END:VEVENT")
}

func concat(parts ...[]string) []string {
	var out []string
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func mustParse(t *testing.T, lines []string) *Calendar {
	t.Helper()
	cal, _, err := ParseCalendar(strings.NewReader(icsLines(lines...)))
	if err != nil {
		t.Fatal(err)
	}
	return cal
}

func findRuleIn(findings []Finding, rule string) (Finding, bool) {
	for _, f := range findings {
		if f.Rule == rule {
			return f, true
		}
	}
	return Finding{}, false
}

func countRule(findings []Finding, rule string) int {
	n := 0
	for _, f := range findings {
		if f.Rule == rule {
			n++
		}
	}
	return n
}

func TestValidateValidEvent(t *testing.T) {
	cal := mustParse(t, calendarWith(event()...))
	if findings := Validate(cal); len(findings) != 0 {
		t.Errorf("Validate() = %v, want none", findings)
	}
}

func TestValidateDuplicateUID(t *testing.T) {
	cal := mustParse(t, calendarWith(
		"BEGIN:VEVENT",
		"UID:123",
		"UID:145",
		"DTSTAMP:20200101T000000Z",
		"DTSTART:20200101T100000Z",
		"END:VEVENT",
	))
	findings := Validate(cal)
	f, ok := findRuleIn(findings, RuleUniquenessConflict)
	if !ok {
		t.Fatalf("Validate() = %v, want a %s finding", findings, RuleUniquenessConflict)
	}
	want := Path{
		{Name: CompCalendar},
		{Name: CompEvent},
		{Property: true, Name: PropUID, Index: 1},
	}
	if !reflect.DeepEqual(f.Path, want) {
		t.Errorf("path = %s, want %s", f.Path, want)
	}
	if f.Line != 6 {
		t.Errorf("line = %d, want 6", f.Line)
	}
	if !strings.HasPrefix(f.String(), `In component "VCALENDAR" at index 0, in component "VEVENT" at index 0, in property "UID" at index 1: `) {
		t.Errorf("String() = %s", f)
	}
}

func TestValidateStrictDuplicates(t *testing.T) {
	cal := mustParse(t, calendarWith(event("SUMMARY:Same", "SUMMARY:Same")...))

	if findings := Validate(cal); len(findings) != 0 {
		t.Errorf("default Validate() = %v, want none", findings)
	}

	v := NewValidator(ValidateConfig{StrictDuplicates: true})
	findings := v.Validate(cal)
	if len(findings) != 1 || findings[0].Rule != RuleUniquenessDuplicate {
		t.Errorf("strict Validate() = %v, want one %s", findings, RuleUniquenessDuplicate)
	}
}

func TestValidateMissingDTStamp(t *testing.T) {
	cal := mustParse(t, calendarWith(
		"BEGIN:VEVENT",
		"UID:1@example.com",
		"DTSTART:20200101T100000Z",
		"END:VEVENT",
	))
	findings := Validate(cal)
	if len(findings) != 1 {
		t.Fatalf("Validate() = %v, want one finding", findings)
	}
	if f := findings[0]; f.Rule != RuleCardinalityRequired || !strings.Contains(f.Message, PropDTStamp) {
		t.Errorf("finding = %v", f)
	}

	stamp := NewProperty(PropDTStamp, UTCDateTime(time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)))
	cal.Components[0].AddProperty(stamp)
	if findings := Validate(cal); len(findings) != 0 {
		t.Errorf("Validate() after adding DTSTAMP = %v, want none", findings)
	}
}

func TestValidateExclusion(t *testing.T) {
	both := mustParse(t, calendarWith(event("DTEND:20200101T110000Z", "DURATION:PT1H")...))
	if n := countRule(Validate(both), RuleExclusion); n != 1 {
		t.Errorf("got %d %s findings, want 1", n, RuleExclusion)
	}

	neither := mustParse(t, calendarWith(event()...))
	if n := countRule(Validate(neither), RuleExclusion); n != 0 {
		t.Errorf("got %d %s findings, want 0", n, RuleExclusion)
	}
}

func TestValidateIdempotent(t *testing.T) {
	cal := mustParse(t, calendarWith(concat(
		event("DTEND:20190101T110000Z", "DURATION:PT1H", "PRIORITY:12", "STATUS:DONE",
			"DTSTART;TZID=Nowhere:20200101T100000", "RRULE:FREQ=WEEKLY;COUNT=2;UNTIL=20200301T000000Z"),
		[]string{"BEGIN:VJOURNAL", "BEGIN:VALARM", "END:VALARM", "END:VJOURNAL"},
	)...))

	first := Validate(cal)
	second := Validate(cal)
	if len(first) == 0 {
		t.Fatal("Validate() found nothing")
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Validate() is not idempotent:\n%v\n%v", first, second)
	}
}

func TestValidateTZID(t *testing.T) {
	missing := mustParse(t, calendarWith(
		"BEGIN:VEVENT",
		"UID:1@example.com",
		"DTSTAMP:20200101T000000Z",
		"DTSTART;TZID=Europe/Paris:20200101T100000",
		"END:VEVENT",
	))
	findings := Validate(missing)
	if len(findings) != 1 || findings[0].Rule != RuleReferenceTZID || findings[0].Severity != SeverityWarning {
		t.Errorf("Validate() = %v, want one %s warning", findings, RuleReferenceTZID)
	}

	strict := NewValidator(ValidateConfig{RequireTimezones: true})
	findings = strict.Validate(missing)
	if len(findings) != 1 || findings[0].Severity != SeverityError {
		t.Errorf("strict Validate() = %v, want one error", findings)
	}

	global := mustParse(t, calendarWith(
		"BEGIN:VEVENT",
		"UID:1@example.com",
		"DTSTAMP:20200101T000000Z",
		"DTSTART;TZID=/example.org/Paris:20200101T100000",
		"END:VEVENT",
	))
	if findings := Validate(global); len(findings) != 0 {
		t.Errorf("Validate() of a global TZID = %v, want none", findings)
	}
}

func TestValidateConfigOverrides(t *testing.T) {
	cal := mustParse(t, calendarWith(event("DTEND;TZID=Europe/Paris:20200101T120000")...))

	disabled := NewValidator(ValidateConfig{DisabledRules: []string{RuleReferenceTZID, RuleValueType}})
	if findings := disabled.Validate(cal); len(findings) != 0 {
		t.Errorf("Validate() with disabled rules = %v, want none", findings)
	}

	raised := NewValidator(ValidateConfig{Severity: map[string]string{RuleReferenceTZID: "error"}})
	f, ok := findRuleIn(raised.Validate(cal), RuleReferenceTZID)
	if !ok || f.Severity != SeverityError {
		t.Errorf("finding = %+v, want an error", f)
	}
}

func TestValidateMethodRelaxesDTStart(t *testing.T) {
	body := []string{"BEGIN:VEVENT", "UID:1@example.com", "DTSTAMP:20200101T000000Z", "END:VEVENT"}

	without := mustParse(t, calendarWith(body...))
	if _, ok := findRuleIn(Validate(without), RuleCardinalityRequired); !ok {
		t.Error("missing DTSTART not reported without METHOD")
	}

	with := mustParse(t, calendarWith(append([]string{"METHOD:REQUEST"}, body...)...))
	if findings := Validate(with); len(findings) != 0 {
		t.Errorf("Validate() with METHOD = %v, want none", findings)
	}
}

var ruleTests = []struct {
	name  string
	lines []string
	rule  string
}{
	{"alarm in journal", calendarWith(
		"BEGIN:VJOURNAL", "UID:1", "DTSTAMP:20200101T000000Z",
		"BEGIN:VALARM", "ACTION:AUDIO", "TRIGGER:-PT5M", "END:VALARM",
		"END:VJOURNAL"), RuleContainment},
	{"standard outside timezone", calendarWith(concat(event(), []string{
		"BEGIN:STANDARD", "DTSTART:19701101T020000", "TZOFFSETFROM:-0400", "TZOFFSETTO:-0500", "END:STANDARD",
	})...), RuleContainment},
	{"priority out of range", calendarWith(event("PRIORITY:10")...), RuleValueRange},
	{"geo out of range", calendarWith(event("GEO:91;0")...), RuleValueRange},
	{"percent complete", calendarWith(
		"BEGIN:VTODO", "UID:1", "DTSTAMP:20200101T000000Z", "PERCENT-COMPLETE:101", "END:VTODO"), RuleValueRange},
	{"event status", calendarWith(event("STATUS:DONE")...), RuleValueEnum},
	{"transp", calendarWith(event("TRANSP:SOMETIMES")...), RuleValueEnum},
	{"end before start", calendarWith(event("DTEND:20191231T100000Z")...), RuleValueOrder},
	{"floating dtstamp", calendarWith(
		"BEGIN:VEVENT", "UID:1", "DTSTAMP:20200101T000000", "DTSTART:20200101T100000Z", "END:VEVENT"), RuleValueUTC},
	{"decode error", calendarWith(event("SEQUENCE:one")...), RuleValueDecode},
	{"not allowed in event", calendarWith(event("TZOFFSETTO:+0100")...), RuleCardinalityNotAllowed},
	{"until and count", calendarWith(event("RRULE:FREQ=DAILY;COUNT=2;UNTIL=20200301T000000Z")...), RuleRecurUntilCount},
	{"ordinal byday weekly", calendarWith(event("RRULE:FREQ=WEEKLY;BYDAY=1MO")...), RuleRecurPart},
	{"byweekno daily", calendarWith(event("RRULE:FREQ=DAILY;BYWEEKNO=1")...), RuleRecurPart},
	{"bymonth range", calendarWith(event("RRULE:FREQ=YEARLY;BYMONTH=13")...), RuleRecurPart},
	{"bysetpos alone", calendarWith(event("RRULE:FREQ=MONTHLY;BYSETPOS=1")...), RuleRecurPart},
	{"floating until", calendarWith(event("RRULE:FREQ=DAILY;UNTIL=20200301T000000")...), RuleRecurDTStart},
	{"rrule without dtstart", calendarWith(
		"BEGIN:VTODO", "UID:1", "DTSTAMP:20200101T000000Z", "RRULE:FREQ=DAILY", "END:VTODO"), RuleRecurDTStart},
	{"byhour with date start", calendarWith(
		"BEGIN:VEVENT", "UID:1", "DTSTAMP:20200101T000000Z", "DTSTART;VALUE=DATE:20200101",
		"RRULE:FREQ=DAILY;BYHOUR=9", "END:VEVENT"), RuleRecurDTStart},
	{"partstat in event", calendarWith(event("ATTENDEE;PARTSTAT=COMPLETED:mailto:a@example.com")...), RuleParamValue},
	{"sent-by", calendarWith(event(`ATTENDEE;SENT-BY="http://example.com":mailto:a@example.com`)...), RuleParamValue},
	{"language", calendarWith(event("DESCRIPTION;LANGUAGE=not a tag:x")...), RuleParamValue},
	{"rsvp", calendarWith(event("ATTENDEE;RSVP=MAYBE:mailto:a@example.com")...), RuleParamValue},
	{"tzid on date", calendarWith(
		"BEGIN:VEVENT", "UID:1", "DTSTAMP:20200101T000000Z", "DTSTART;VALUE=DATE;TZID=/x:20200101", "END:VEVENT"), RuleParamValue},
	{"param not allowed", calendarWith(event("SUMMARY;CN=x:y")...), RuleParamNotAllowed},
	{"param duplicate", calendarWith(event("SUMMARY;LANGUAGE=en;LANGUAGE=fr:y")...), RuleParamDuplicate},
	{"param multiple", calendarWith(event(`SUMMARY;LANGUAGE=en,fr:y`)...), RuleParamMultiple},
	{"binary without encoding", calendarWith(event("ATTACH;VALUE=BINARY:SGVsbG8=")...), RuleValueEncoding},
	{"inferred date", calendarWith(
		"BEGIN:VEVENT", "UID:1", "DTSTAMP:20200101T000000Z", "DTSTART:20200101", "END:VEVENT"), RuleValueInferred},
	{"redundant value", calendarWith(
		"BEGIN:VEVENT", "UID:1", "DTSTAMP:20200101T000000Z", "DTSTART;VALUE=DATE-TIME:20200101T100000Z", "END:VEVENT"), RuleValueRedundant},
	{"value not allowed", calendarWith(
		"BEGIN:VEVENT", "UID:1", "DTSTAMP:20200101T000000Z", "DTSTART;VALUE=INTEGER:5", "END:VEVENT"), RuleValueType},
	{"mixed start and end", calendarWith(event("DTEND;VALUE=DATE:20200102")...), RuleValueType},
	{"duration with date start", calendarWith(
		"BEGIN:VEVENT", "UID:1", "DTSTAMP:20200101T000000Z", "DTSTART;VALUE=DATE:20200101", "DURATION:PT1H", "END:VEVENT"), RuleValueType},
	{"todo duration without start", calendarWith(
		"BEGIN:VTODO", "UID:1", "DTSTAMP:20200101T000000Z", "DURATION:PT1H", "END:VTODO"), RuleDependency},
	{"alarm duration without repeat", calendarWith(concat(
		[]string{"BEGIN:VEVENT", "UID:1", "DTSTAMP:20200101T000000Z", "DTSTART:20200101T100000Z"},
		[]string{"BEGIN:VALARM", "ACTION:AUDIO", "TRIGGER:-PT5M", "DURATION:PT5M", "END:VALARM"},
		[]string{"END:VEVENT"},
	)...), RuleDependency},
	{"display alarm without description", calendarWith(concat(
		[]string{"BEGIN:VEVENT", "UID:1", "DTSTAMP:20200101T000000Z", "DTSTART:20200101T100000Z"},
		[]string{"BEGIN:VALARM", "ACTION:DISPLAY", "TRIGGER:-PT5M", "END:VALARM"},
		[]string{"END:VEVENT"},
	)...), RuleCardinalityRequired},
	{"absolute trigger", calendarWith(concat(
		[]string{"BEGIN:VEVENT", "UID:1", "DTSTAMP:20200101T000000Z", "DTSTART:20200101T100000Z"},
		[]string{"BEGIN:VALARM", "ACTION:AUDIO", "TRIGGER;VALUE=DATE-TIME:20200101T090000", "END:VALARM"},
		[]string{"END:VEVENT"},
	)...), RuleValueUTC},
	{"timezone without observance", calendarWith(concat(
		[]string{"BEGIN:VTIMEZONE", "TZID:Test", "END:VTIMEZONE"}, event())...), RuleCardinalityRequired},
	{"observance in utc", calendarWith(concat([]string{
		"BEGIN:VTIMEZONE", "TZID:Test",
		"BEGIN:STANDARD", "DTSTART:19701101T020000Z", "TZOFFSETFROM:-0400", "TZOFFSETTO:-0500", "END:STANDARD",
		"END:VTIMEZONE",
	}, event())...), RuleValueLocal},
	{"negative zero offset", calendarWith(concat([]string{
		"BEGIN:VTIMEZONE", "TZID:Test",
		"BEGIN:STANDARD", "DTSTART:19701101T020000", "TZOFFSETFROM:-0000", "TZOFFSETTO:+0000", "END:STANDARD",
		"END:VTIMEZONE",
	}, event())...), RuleNegativeZero},
	{"freebusy in local time", calendarWith(
		"BEGIN:VFREEBUSY", "UID:1", "DTSTAMP:20200101T000000Z",
		"FREEBUSY:19970308T160000/PT8H30M", "END:VFREEBUSY"), RuleValueUTC},
	{"empty calendar", []string{"BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//Test//EN", "END:VCALENDAR"}, RuleComponentEmpty},
	{"empty component", calendarWith(concat(event(), []string{"BEGIN:VJOURNAL", "END:VJOURNAL"})...), RuleComponentEmpty},
	{"missing version", []string{"BEGIN:VCALENDAR", "PRODID:-//Test//EN", "BEGIN:VJOURNAL", "UID:1", "DTSTAMP:20200101T000000Z", "END:VJOURNAL", "END:VCALENDAR"}, RuleCardinalityRequired},
	{"version", []string{"BEGIN:VCALENDAR", "VERSION:3.0", "PRODID:-//Test//EN", "BEGIN:VJOURNAL", "UID:1", "DTSTAMP:20200101T000000Z", "END:VJOURNAL", "END:VCALENDAR"}, RuleCalendarVersion},
	{"calscale", []string{"BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//Test//EN", "CALSCALE:JULIAN", "BEGIN:VJOURNAL", "UID:1", "DTSTAMP:20200101T000000Z", "END:VJOURNAL", "END:VCALENDAR"}, RuleValueEnum},
}

func TestValidateRules(t *testing.T) {
	for _, tt := range ruleTests {
		cal := mustParse(t, tt.lines)
		findings := Validate(cal)
		if _, ok := findRuleIn(findings, tt.rule); !ok {
			t.Errorf("%s: findings = %v, want rule %s", tt.name, findings, tt.rule)
		}
	}
}

func TestValidateExtensionsPass(t *testing.T) {
	cal := mustParse(t, calendarWith(concat(
		event("X-MOOD:happy", "ATTENDEE;X-SHADE=blue;CUTYPE=X-ROBOT:mailto:a@example.com"),
		[]string{"BEGIN:X-WIDGET", "ANYTHING:goes", "BEGIN:X-PART", "END:X-PART", "END:X-WIDGET"},
	)...))
	if findings := Validate(cal); len(findings) != 0 {
		t.Errorf("Validate() = %v, want none", findings)
	}
}

func TestValidateRecurNameCase(t *testing.T) {
	cal := mustParse(t, calendarWith(event()...))
	count := 3
	cal.Events()[0].AddProperty(&Property{Name: "rrule", Value: Recur{
		Freq:  Daily,
		Until: DateTime{Year: 2020, Month: time.February, Day: 1, UTC: true},
		Count: &count,
	}})
	if _, ok := findRuleIn(Validate(cal), RuleRecurUntilCount); !ok {
		t.Error("lower case rrule skipped the recurrence rules")
	}
}

func TestValidateAlarmInExtension(t *testing.T) {
	cal := mustParse(t, calendarWith(concat(
		event(),
		[]string{"BEGIN:X-WRAP", "BEGIN:VALARM", "ACTION:AUDIO", "TRIGGER:-PT5M", "END:VALARM", "END:X-WRAP"},
	)...))
	f, ok := findRuleIn(Validate(cal), RuleContainment)
	if !ok {
		t.Fatal("VALARM nested in X-WRAP was not reported")
	}
	if want := `component "VCALENDAR" at index 0, in component "X-WRAP" at index 1, in component "VALARM" at index 0`; f.Path.String() != want {
		t.Errorf("path = %s, want %s", f.Path, want)
	}
}

func TestValidateAll(t *testing.T) {
	stream := icsLines(append(calendarWith(event()...), calendarWith(event("PRIORITY:10")...)...)...)
	cals, _, err := Parse(strings.NewReader(stream))
	if err != nil {
		t.Fatal(err)
	}
	out, err := defaultValidator.ValidateAll(context.Background(), cals)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d results, want 2", len(out))
	}
	if len(out[0]) != 0 {
		t.Errorf("first calendar findings = %v", out[0])
	}
	if len(out[1]) != 1 || out[1][0].Path[0].Index != 1 {
		t.Errorf("second calendar findings = %v, want one rooted at index 1", out[1])
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := defaultValidator.ValidateAll(ctx, cals); err == nil {
		t.Error("ValidateAll() with a cancelled context succeeded")
	}
}

func TestValidateDoesNotMutate(t *testing.T) {
	cal := mustParse(t, calendarWith(event("PRIORITY:10", "UID:2")...))
	before := mustParse(t, calendarWith(event("PRIORITY:10", "UID:2")...))
	Validate(cal)
	if !cal.Equal(before) {
		t.Error("Validate() modified the calendar")
	}
}

func TestFindingString(t *testing.T) {
	f := Finding{Line: 12, Message: "broken"}
	if got := f.String(); got != "Line 12: broken" {
		t.Errorf("String() = %q", got)
	}
	if !HasErrors([]Finding{{Severity: SeverityWarning}, f}) {
		t.Error("HasErrors() = false, want true")
	}
	if HasErrors([]Finding{{Severity: SeverityWarning}}) {
		t.Error("HasErrors() = true for warnings only")
	}
}
