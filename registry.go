package ical

import "strings"

// Property names defined by RFC 5545 and RFC 7986.
const (
	PropCalScale        = "CALSCALE"
	PropMethod          = "METHOD"
	PropProductID       = "PRODID"
	PropVersion         = "VERSION"
	PropAttach          = "ATTACH"
	PropCategories      = "CATEGORIES"
	PropClass           = "CLASS"
	PropComment         = "COMMENT"
	PropDescription     = "DESCRIPTION"
	PropGeo             = "GEO"
	PropLocation        = "LOCATION"
	PropPercentComplete = "PERCENT-COMPLETE"
	PropPriority        = "PRIORITY"
	PropResources       = "RESOURCES"
	PropStatus          = "STATUS"
	PropSummary         = "SUMMARY"
	PropCompleted       = "COMPLETED"
	PropDTEnd           = "DTEND"
	PropDue             = "DUE"
	PropDTStart         = "DTSTART"
	PropDuration        = "DURATION"
	PropFreeBusy        = "FREEBUSY"
	PropTransp          = "TRANSP"
	PropTZID            = "TZID"
	PropTZName          = "TZNAME"
	PropTZOffsetFrom    = "TZOFFSETFROM"
	PropTZOffsetTo      = "TZOFFSETTO"
	PropTZURL           = "TZURL"
	PropAttendee        = "ATTENDEE"
	PropContact         = "CONTACT"
	PropOrganizer       = "ORGANIZER"
	PropRecurrenceID    = "RECURRENCE-ID"
	PropRelatedTo       = "RELATED-TO"
	PropURL             = "URL"
	PropUID             = "UID"
	PropExDate          = "EXDATE"
	PropRDate           = "RDATE"
	PropRRule           = "RRULE"
	PropAction          = "ACTION"
	PropRepeat          = "REPEAT"
	PropTrigger         = "TRIGGER"
	PropCreated         = "CREATED"
	PropDTStamp         = "DTSTAMP"
	PropLastModified    = "LAST-MODIFIED"
	PropSequence        = "SEQUENCE"
	PropRequestStatus   = "REQUEST-STATUS"

	PropName            = "NAME"
	PropRefreshInterval = "REFRESH-INTERVAL"
	PropSource          = "SOURCE"
	PropColor           = "COLOR"
	PropImage           = "IMAGE"
	PropConference      = "CONFERENCE"
)

// Parameter names defined by RFC 5545.
const (
	ParamAltRep        = "ALTREP"
	ParamCN            = "CN"
	ParamCUType        = "CUTYPE"
	ParamDelegatedFrom = "DELEGATED-FROM"
	ParamDelegatedTo   = "DELEGATED-TO"
	ParamDir           = "DIR"
	ParamEncoding      = "ENCODING"
	ParamFmtType       = "FMTTYPE"
	ParamFBType        = "FBTYPE"
	ParamLanguage      = "LANGUAGE"
	ParamMember        = "MEMBER"
	ParamPartStat      = "PARTSTAT"
	ParamRange         = "RANGE"
	ParamRelated       = "RELATED"
	ParamRelType       = "RELTYPE"
	ParamRole          = "ROLE"
	ParamRSVP          = "RSVP"
	ParamSentBy        = "SENT-BY"
	ParamTZID          = "TZID"
	ParamValue         = "VALUE"
)

// propertyInfo describes how the value of a known property is typed.
type propertyInfo struct {
	def  ValueType
	alts []ValueType
	// multi properties hold a comma separated List.
	multi bool
	// sep is set for structured values whose fields are split on it.
	sep byte
	// verbatim text is neither unescaped nor escaped.
	verbatim bool
}

func (i propertyInfo) allows(t ValueType) bool {
	if t == i.def {
		return true
	}
	for _, alt := range i.alts {
		if alt == t {
			return true
		}
	}
	return false
}

var dateOrDateTime = []ValueType{TypeDate}

var properties = map[string]propertyInfo{
	PropCalScale:  {def: TypeText},
	PropMethod:    {def: TypeText},
	PropProductID: {def: TypeText},
	PropVersion:   {def: TypeText, verbatim: true},

	PropAttach:          {def: TypeURI, alts: []ValueType{TypeBinary}},
	PropCategories:      {def: TypeText, multi: true},
	PropClass:           {def: TypeText},
	PropComment:         {def: TypeText},
	PropDescription:     {def: TypeText},
	PropGeo:             {def: TypeFloat, sep: ';'},
	PropLocation:        {def: TypeText},
	PropPercentComplete: {def: TypeInteger},
	PropPriority:        {def: TypeInteger},
	PropResources:       {def: TypeText, multi: true},
	PropStatus:          {def: TypeText},
	PropSummary:         {def: TypeText},

	PropCompleted: {def: TypeDateTime},
	PropDTEnd:     {def: TypeDateTime, alts: dateOrDateTime},
	PropDue:       {def: TypeDateTime, alts: dateOrDateTime},
	PropDTStart:   {def: TypeDateTime, alts: dateOrDateTime},
	PropDuration:  {def: TypeDuration},
	PropFreeBusy:  {def: TypePeriod, multi: true},
	PropTransp:    {def: TypeText},

	PropTZID:         {def: TypeText},
	PropTZName:       {def: TypeText},
	PropTZOffsetFrom: {def: TypeUTCOffset},
	PropTZOffsetTo:   {def: TypeUTCOffset},
	PropTZURL:        {def: TypeURI},

	PropAttendee:      {def: TypeCalAddress},
	PropContact:       {def: TypeText},
	PropOrganizer:     {def: TypeCalAddress},
	PropRecurrenceID:  {def: TypeDateTime, alts: dateOrDateTime},
	PropRelatedTo:     {def: TypeText},
	PropURL:           {def: TypeURI},
	PropUID:           {def: TypeText},
	PropExDate:        {def: TypeDateTime, alts: dateOrDateTime, multi: true},
	PropRDate:         {def: TypeDateTime, alts: []ValueType{TypeDate, TypePeriod}, multi: true},
	PropRRule:         {def: TypeRecur},
	PropAction:        {def: TypeText},
	PropRepeat:        {def: TypeInteger},
	PropTrigger:       {def: TypeDuration, alts: []ValueType{TypeDateTime}},
	PropCreated:       {def: TypeDateTime},
	PropDTStamp:       {def: TypeDateTime},
	PropLastModified:  {def: TypeDateTime},
	PropSequence:      {def: TypeInteger},
	PropRequestStatus: {def: TypeText, sep: ';'},

	PropName:            {def: TypeText},
	PropRefreshInterval: {def: TypeDuration},
	PropSource:          {def: TypeURI},
	PropColor:           {def: TypeText},
	PropImage:           {def: TypeURI, alts: []ValueType{TypeBinary}},
	PropConference:      {def: TypeURI},
}

func lookupProperty(name string) (propertyInfo, bool) {
	info, ok := properties[strings.ToUpper(name)]
	return info, ok
}

// DefaultValueType returns the value type a property has when no VALUE
// parameter is present. Extension properties report TypeUnknown.
func DefaultValueType(name string) ValueType {
	if info, ok := lookupProperty(name); ok {
		return info.def
	}
	return TypeUnknown
}

// IsExtensionName reports whether name is an X- name.
func IsExtensionName(name string) bool {
	return len(name) > 2 && (name[0] == 'X' || name[0] == 'x') && name[1] == '-'
}

// paramProperties lists the properties each RFC 5545 parameter may be used
// on. A nil list means any property.
var paramProperties = map[string][]string{
	ParamAltRep:        {PropComment, PropContact, PropDescription, PropLocation, PropResources, PropSummary},
	ParamCN:            {PropAttendee, PropOrganizer},
	ParamCUType:        {PropAttendee},
	ParamDelegatedFrom: {PropAttendee},
	ParamDelegatedTo:   {PropAttendee},
	ParamDir:           {PropAttendee, PropOrganizer},
	ParamEncoding:      nil,
	ParamFmtType:       {PropAttach, PropImage},
	ParamFBType:        {PropFreeBusy},
	ParamLanguage: {PropCategories, PropComment, PropContact, PropDescription, PropLocation,
		PropResources, PropSummary, PropTZName, PropAttendee, PropOrganizer, PropRequestStatus, PropName},
	ParamMember:   {PropAttendee},
	ParamPartStat: {PropAttendee},
	ParamRange:    {PropRecurrenceID},
	ParamRelated:  {PropTrigger},
	ParamRelType:  {PropRelatedTo},
	ParamRole:     {PropAttendee},
	ParamRSVP:     {PropAttendee},
	ParamSentBy:   {PropAttendee, PropOrganizer},
	ParamTZID:     {PropDTStart, PropDTEnd, PropDue, PropExDate, PropRDate, PropRecurrenceID},
	ParamValue:    nil,
}

// multiValueParams may carry several comma separated values.
var multiValueParams = map[string]bool{
	ParamDelegatedFrom: true,
	ParamDelegatedTo:   true,
	ParamMember:        true,
}

// paramEnums lists the values an enumerated parameter accepts. Open
// enumerations also accept X- names and other IANA tokens, with a warning for
// the latter.
var paramEnums = map[string]struct {
	values []string
	open   bool
}{
	ParamCUType:   {values: []string{"INDIVIDUAL", "GROUP", "RESOURCE", "ROOM", "UNKNOWN"}, open: true},
	ParamEncoding: {values: []string{"8BIT", "BASE64"}},
	ParamFBType:   {values: []string{"FREE", "BUSY", "BUSY-UNAVAILABLE", "BUSY-TENTATIVE"}, open: true},
	ParamPartStat: {values: []string{"NEEDS-ACTION", "ACCEPTED", "DECLINED", "TENTATIVE", "DELEGATED", "COMPLETED", "IN-PROCESS"}, open: true},
	ParamRange:    {values: []string{"THISANDFUTURE"}},
	ParamRelated:  {values: []string{"START", "END"}},
	ParamRelType:  {values: []string{"PARENT", "CHILD", "SIBLING"}, open: true},
	ParamRole:     {values: []string{"CHAIR", "REQ-PARTICIPANT", "OPT-PARTICIPANT", "NON-PARTICIPANT"}, open: true},
	ParamRSVP:     {values: []string{"TRUE", "FALSE"}},
}

// partStatByComponent narrows PARTSTAT for the component an ATTENDEE is in.
var partStatByComponent = map[ComponentKind][]string{
	KindEvent:   {"NEEDS-ACTION", "ACCEPTED", "DECLINED", "TENTATIVE", "DELEGATED"},
	KindToDo:    {"NEEDS-ACTION", "ACCEPTED", "DECLINED", "TENTATIVE", "DELEGATED", "COMPLETED", "IN-PROCESS"},
	KindJournal: {"NEEDS-ACTION", "ACCEPTED", "DECLINED"},
}

var statusByComponent = map[ComponentKind][]string{
	KindEvent:   {"TENTATIVE", "CONFIRMED", "CANCELLED"},
	KindToDo:    {"NEEDS-ACTION", "COMPLETED", "IN-PROCESS", "CANCELLED"},
	KindJournal: {"DRAFT", "FINAL", "CANCELLED"},
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
