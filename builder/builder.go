// Package builder assembles calendars with a fluent API.
//
// A builder only calls the construction operations of the ical object model
// and never validates; pass the result to ical.Validate for that.
//
//	cal := builder.New().
//		Version("2.0").
//		ProductID("-//Example Corp//Calendar 1.0//EN").
//		Event().
//		GenerateUID().
//		DTStamp(time.Now()).
//		Start(start).
//		Summary("Standup").
//		Finish().
//		Build()
package builder

import (
	"time"

	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	ical "github.com/luxifer/icalendar"
)

// CalendarBuilder builds one VCALENDAR.
type CalendarBuilder struct {
	cal *ical.Calendar
}

// New starts an empty calendar.
func New() *CalendarBuilder {
	return &CalendarBuilder{cal: ical.NewCalendar()}
}

// NewDefault starts a calendar with VERSION 2.0, the given PRODID and the
// GREGORIAN scale.
func NewDefault(productID string) *CalendarBuilder {
	return New().Version("2.0").ProductID(productID).CalScale("GREGORIAN")
}

// Build returns the calendar. The builder must not be used afterwards.
func (b *CalendarBuilder) Build() *ical.Calendar {
	return b.cal
}

// Add appends a property with value v.
func (b *CalendarBuilder) Add(name string, v ical.Value, params ...*ical.Param) *CalendarBuilder {
	b.cal.AddProperty(newProperty(name, v, params))
	return b
}

// Property starts a property whose parameters are added one by one.
func (b *CalendarBuilder) Property(name string, v ical.Value) *PropertyBuilder[*CalendarBuilder] {
	return &PropertyBuilder[*CalendarBuilder]{parent: b, to: b.cal, prop: ical.NewProperty(name, v)}
}

// Version sets VERSION, normally "2.0".
func (b *CalendarBuilder) Version(v string) *CalendarBuilder {
	return b.Add(ical.PropVersion, ical.Text(v))
}

// ProductID sets PRODID, the identifier of the producing software.
func (b *CalendarBuilder) ProductID(s string) *CalendarBuilder {
	return b.Add(ical.PropProductID, ical.Text(s))
}

// CalScale sets CALSCALE.
func (b *CalendarBuilder) CalScale(s string) *CalendarBuilder {
	return b.Add(ical.PropCalScale, ical.Text(s))
}

// Method sets the iTIP METHOD, such as REQUEST or PUBLISH.
func (b *CalendarBuilder) Method(s string) *CalendarBuilder {
	return b.Add(ical.PropMethod, ical.Text(s))
}

// Name sets the calendar NAME.
func (b *CalendarBuilder) Name(s string) *CalendarBuilder {
	return b.Add(ical.PropName, ical.Text(s))
}

// Description sets the calendar DESCRIPTION.
func (b *CalendarBuilder) Description(s string) *CalendarBuilder {
	return b.Add(ical.PropDescription, ical.Text(s))
}

// Color sets the calendar COLOR, a CSS3 color name.
func (b *CalendarBuilder) Color(s string) *CalendarBuilder {
	return b.Add(ical.PropColor, ical.Text(s))
}

// RefreshInterval sets the suggested polling interval.
func (b *CalendarBuilder) RefreshInterval(d time.Duration) *CalendarBuilder {
	return b.Add(ical.PropRefreshInterval, ical.NewDuration(d))
}

// Component starts a top level component of any kind.
func (b *CalendarBuilder) Component(name string) *ComponentBuilder {
	comp := ical.NewComponent(name)
	b.cal.AddComponent(comp)
	cb := &ComponentBuilder{cal: b, comp: comp}
	cb.props = props[*ComponentBuilder]{self: cb, to: comp}
	return cb
}

// Event starts a VEVENT.
func (b *CalendarBuilder) Event() *ComponentBuilder { return b.Component(ical.CompEvent) }

// ToDo starts a VTODO.
func (b *CalendarBuilder) ToDo() *ComponentBuilder { return b.Component(ical.CompToDo) }

// Journal starts a VJOURNAL.
func (b *CalendarBuilder) Journal() *ComponentBuilder { return b.Component(ical.CompJournal) }

// FreeBusy starts a VFREEBUSY.
func (b *CalendarBuilder) FreeBusy() *ComponentBuilder { return b.Component(ical.CompFreeBusy) }

// Timezone starts a VTIMEZONE with the given TZID.
func (b *CalendarBuilder) Timezone(tzid string) *ComponentBuilder {
	return b.Component(ical.CompTimezone).Text(ical.PropTZID, tzid)
}

// ComponentBuilder builds a component nested directly in the calendar.
type ComponentBuilder struct {
	props[*ComponentBuilder]
	cal  *CalendarBuilder
	comp *ical.Component
}

// Finish ends the component and returns to the calendar.
func (b *ComponentBuilder) Finish() *CalendarBuilder {
	return b.cal
}

// Child starts a component nested in this one.
func (b *ComponentBuilder) Child(name string) *SubComponentBuilder {
	comp := ical.NewComponent(name)
	b.comp.AddComponent(comp)
	sb := &SubComponentBuilder{parent: b}
	sb.props = props[*SubComponentBuilder]{self: sb, to: comp}
	return sb
}

// Alarm starts a VALARM in an event or a to-do.
func (b *ComponentBuilder) Alarm() *SubComponentBuilder { return b.Child(ical.CompAlarm) }

// Standard starts the standard time observance of a VTIMEZONE.
func (b *ComponentBuilder) Standard() *SubComponentBuilder { return b.Child(ical.CompStandard) }

// Daylight starts the daylight saving time observance of a VTIMEZONE.
func (b *ComponentBuilder) Daylight() *SubComponentBuilder { return b.Child(ical.CompDaylight) }

// SubComponentBuilder builds an alarm or a time zone observance.
type SubComponentBuilder struct {
	props[*SubComponentBuilder]
	parent *ComponentBuilder
}

// Finish ends the nested component and returns to its parent.
func (b *SubComponentBuilder) Finish() *ComponentBuilder {
	return b.parent
}

// PropertyBuilder adds parameters to a property before it is appended.
type PropertyBuilder[P any] struct {
	parent P
	to     adder
	prop   *ical.Property
}

// Param appends a parameter.
func (b *PropertyBuilder[P]) Param(name string, values ...string) *PropertyBuilder[P] {
	b.prop.AddParam(ical.NewParam(name, values...))
	return b
}

// Finish appends the property and returns to its owner.
func (b *PropertyBuilder[P]) Finish() P {
	b.to.AddProperty(b.prop)
	return b.parent
}

type adder interface {
	AddProperty(p *ical.Property)
}

func newProperty(name string, v ical.Value, params []*ical.Param) *ical.Property {
	p := ical.NewProperty(name, v)
	for _, param := range params {
		p.AddParam(param)
	}
	return p
}

// props holds the property setters shared by component builders. Each
// setter returns self so calls chain on the concrete builder.
type props[B any] struct {
	self B
	to   adder
}

// Add appends a property with value v.
func (p props[B]) Add(name string, v ical.Value, params ...*ical.Param) B {
	p.to.AddProperty(newProperty(name, v, params))
	return p.self
}

// Property starts a property whose parameters are added one by one.
func (p props[B]) Property(name string, v ical.Value) *PropertyBuilder[B] {
	return &PropertyBuilder[B]{parent: p.self, to: p.to, prop: ical.NewProperty(name, v)}
}

// Text appends a TEXT property.
func (p props[B]) Text(name, s string) B {
	return p.Add(name, ical.Text(s))
}

// UID sets the unique identifier.
func (p props[B]) UID(s string) B { return p.Text(ical.PropUID, s) }

// GenerateUID sets a random UUID as UID.
func (p props[B]) GenerateUID() B {
	return p.UID(uuid.New().String())
}

// Summary sets SUMMARY.
func (p props[B]) Summary(s string) B { return p.Text(ical.PropSummary, s) }

// Description sets DESCRIPTION.
func (p props[B]) Description(s string) B { return p.Text(ical.PropDescription, s) }

// Location sets LOCATION.
func (p props[B]) Location(s string) B { return p.Text(ical.PropLocation, s) }

// Status sets STATUS, such as CONFIRMED or NEEDS-ACTION.
func (p props[B]) Status(s string) B { return p.Text(ical.PropStatus, s) }

// Class sets the access CLASS: PUBLIC, PRIVATE or CONFIDENTIAL.
func (p props[B]) Class(s string) B { return p.Text(ical.PropClass, s) }

// Transp sets TRANSP, OPAQUE or TRANSPARENT to busy time searches.
func (p props[B]) Transp(s string) B { return p.Text(ical.PropTransp, s) }

// Comment appends a COMMENT.
func (p props[B]) Comment(s string) B { return p.Text(ical.PropComment, s) }

// Action sets the ACTION of an alarm: AUDIO, DISPLAY or EMAIL.
func (p props[B]) Action(s string) B { return p.Text(ical.PropAction, s) }

// TZName appends a TZNAME to an observance.
func (p props[B]) TZName(s string) B { return p.Text(ical.PropTZName, s) }

// URL sets the URL associated with the component.
func (p props[B]) URL(u string) B { return p.Add(ical.PropURL, ical.URI(u)) }

// Sequence sets the revision SEQUENCE number.
func (p props[B]) Sequence(n int) B { return p.Add(ical.PropSequence, ical.Integer(n)) }

// Priority sets PRIORITY, 1 highest to 9 lowest, 0 undefined.
func (p props[B]) Priority(n int) B { return p.Add(ical.PropPriority, ical.Integer(n)) }

// Repeat sets how many more times an alarm fires after the first.
func (p props[B]) Repeat(n int) B { return p.Add(ical.PropRepeat, ical.Integer(n)) }

// PercentComplete sets the progress of a to-do.
func (p props[B]) PercentComplete(n int) B {
	return p.Add(ical.PropPercentComplete, ical.Integer(n))
}

// Geo sets the latitude and longitude.
func (p props[B]) Geo(lat, lon float64) B {
	return p.Add(ical.PropGeo, ical.List{ical.Float(lat), ical.Float(lon)})
}

// Categories appends one CATEGORIES property holding every category.
func (p props[B]) Categories(categories ...string) B {
	list := make(ical.List, len(categories))
	for i, c := range categories {
		list[i] = ical.Text(c)
	}
	return p.Add(ical.PropCategories, list)
}

// Organizer sets the organizer address, with an optional common name.
func (p props[B]) Organizer(address, cn string) B {
	return p.calAddress(ical.PropOrganizer, address, cn)
}

// Attendee appends an attendee, with an optional common name.
func (p props[B]) Attendee(address, cn string) B {
	return p.calAddress(ical.PropAttendee, address, cn)
}

func (p props[B]) calAddress(name, address, cn string) B {
	var params []*ical.Param
	if cn != "" {
		params = append(params, ical.NewParam(ical.ParamCN, cn))
	}
	return p.Add(name, ical.CalAddress(address), params...)
}

// DTStamp sets the creation time of the object, in UTC.
func (p props[B]) DTStamp(t time.Time) B {
	return p.Add(ical.PropDTStamp, ical.UTCDateTime(t))
}

// Created sets the UTC time the object was created.
func (p props[B]) Created(t time.Time) B {
	return p.Add(ical.PropCreated, ical.UTCDateTime(t))
}

// LastModified sets the UTC time the object last changed.
func (p props[B]) LastModified(t time.Time) B {
	return p.Add(ical.PropLastModified, ical.UTCDateTime(t))
}

// Completed sets the UTC time a to-do was finished.
func (p props[B]) Completed(t time.Time) B {
	return p.Add(ical.PropCompleted, ical.UTCDateTime(t))
}

// Start sets DTSTART. UTC times are written in UTC, times in a named
// location carry a TZID, and times in time.Local are floating.
func (p props[B]) Start(t time.Time) B { return p.dateTime(ical.PropDTStart, t) }

// End sets DTEND, with the same location handling as Start.
func (p props[B]) End(t time.Time) B { return p.dateTime(ical.PropDTEnd, t) }

// Due sets DUE, with the same location handling as Start.
func (p props[B]) Due(t time.Time) B { return p.dateTime(ical.PropDue, t) }

// StartDate sets DTSTART to the date of t.
func (p props[B]) StartDate(t time.Time) B { return p.date(ical.PropDTStart, t) }

// EndDate sets DTEND to the date of t.
func (p props[B]) EndDate(t time.Time) B { return p.date(ical.PropDTEnd, t) }

// RecurrenceID identifies the instance a component overrides.
func (p props[B]) RecurrenceID(t time.Time) B { return p.dateTime(ical.PropRecurrenceID, t) }

// LocalStart sets DTSTART as a local time without TZID, as required in
// STANDARD and DAYLIGHT.
func (p props[B]) LocalStart(t time.Time) B {
	dt := ical.NewDateTime(t)
	dt.UTC = false
	return p.Add(ical.PropDTStart, dt)
}

func (p props[B]) dateTime(name string, t time.Time) B {
	dt := ical.NewDateTime(t)
	loc := t.Location()
	if loc == time.UTC || loc == time.Local {
		return p.Add(name, dt)
	}
	dt.TZID = loc.String()
	return p.Add(name, dt, ical.NewParam(ical.ParamTZID, dt.TZID))
}

func (p props[B]) date(name string, t time.Time) B {
	return p.Add(name, ical.NewDate(t), ical.NewParam(ical.ParamValue, "DATE"))
}

// Duration sets DURATION.
func (p props[B]) Duration(d time.Duration) B {
	return p.Add(ical.PropDuration, ical.NewDuration(d))
}

// Trigger sets a TRIGGER relative to the start of the parent component.
func (p props[B]) Trigger(d time.Duration) B {
	return p.Add(ical.PropTrigger, ical.NewDuration(d))
}

// TriggerAt sets an absolute TRIGGER.
func (p props[B]) TriggerAt(t time.Time) B {
	return p.Add(ical.PropTrigger, ical.UTCDateTime(t), ical.NewParam(ical.ParamValue, "DATE-TIME"))
}

// TZOffsetFrom sets the offset in effect before the observance starts, in
// seconds east of UTC.
func (p props[B]) TZOffsetFrom(seconds int) B {
	return p.Add(ical.PropTZOffsetFrom, ical.NewUTCOffset(seconds))
}

// TZOffsetTo sets the offset in effect once the observance starts, in
// seconds east of UTC.
func (p props[B]) TZOffsetTo(seconds int) B {
	return p.Add(ical.PropTZOffsetTo, ical.NewUTCOffset(seconds))
}

// RRule sets the recurrence rule.
func (p props[B]) RRule(r ical.Recur) B {
	return p.Add(ical.PropRRule, r)
}

// RRuleOption sets the recurrence rule from rrule-go options.
func (p props[B]) RRuleOption(opt rrule.ROption) B {
	return p.RRule(ical.RecurFromROption(opt))
}

// ExDate appends one EXDATE property holding every time, which must share
// a location.
func (p props[B]) ExDate(times ...time.Time) B {
	if len(times) == 0 {
		return p.self
	}
	list := make(ical.List, len(times))
	for i, t := range times {
		list[i] = ical.NewDateTime(t)
	}
	loc := times[0].Location()
	if loc == time.UTC || loc == time.Local {
		return p.Add(ical.PropExDate, list)
	}
	for i := range list {
		dt := list[i].(ical.DateTime)
		dt.TZID = loc.String()
		list[i] = dt
	}
	return p.Add(ical.PropExDate, list, ical.NewParam(ical.ParamTZID, loc.String()))
}
