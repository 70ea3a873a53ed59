package ical

import (
	"io"
	"os"
	"testing"
)

func TestLex(t *testing.T) {
	file, err := os.Open("testdata/example.ics")
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	lr := NewLineReader(file)
	for {
		line, err := lr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}

		items, err := lex(line.Text)
		if err != nil {
			t.Errorf("line %d: %v", line.Num, err)
			continue
		}
		if last := items[len(items)-1]; last.typ != itemEOF {
			t.Errorf("line %d: last item is %v, want EOF", line.Num, last)
		}
	}
}

type lexItem struct {
	typ itemType
	val string
}

var lexTests = []struct {
	input string
	items []lexItem
}{
	{"VERSION:2.0", []lexItem{
		{itemName, "VERSION"}, {itemColon, ":"}, {itemValue, "2.0"}, {itemEOF, ""},
	}},
	{"X-EMPTY:", []lexItem{
		{itemName, "X-EMPTY"}, {itemColon, ":"}, {itemValue, ""}, {itemEOF, ""},
	}},
	{`ORGANIZER;CN="Doe, John";ROLE=CHAIR:mailto:john@example.com`, []lexItem{
		{itemName, "ORGANIZER"},
		{itemSemiColon, ";"}, {itemParamName, "CN"}, {itemEqual, "="}, {itemParamValue, "Doe, John"},
		{itemSemiColon, ";"}, {itemParamName, "ROLE"}, {itemEqual, "="}, {itemParamValue, "CHAIR"},
		{itemColon, ":"}, {itemValue, "mailto:john@example.com"}, {itemEOF, ""},
	}},
	{`ATTENDEE;MEMBER="mailto:a@example.com","mailto:b@example.com":mailto:c@example.com`, []lexItem{
		{itemName, "ATTENDEE"},
		{itemSemiColon, ";"}, {itemParamName, "MEMBER"}, {itemEqual, "="},
		{itemParamValue, "mailto:a@example.com"}, {itemComma, ","}, {itemParamValue, "mailto:b@example.com"},
		{itemColon, ":"}, {itemValue, "mailto:c@example.com"}, {itemEOF, ""},
	}},
	{"SUMMARY:tab\there; and:colons", []lexItem{
		{itemName, "SUMMARY"}, {itemColon, ":"}, {itemValue, "tab\there; and:colons"}, {itemEOF, ""},
	}},
	{"SUMMARY;LANGUAGE=:Ça va", []lexItem{
		{itemName, "SUMMARY"},
		{itemSemiColon, ";"}, {itemParamName, "LANGUAGE"}, {itemEqual, "="}, {itemParamValue, ""},
		{itemColon, ":"}, {itemValue, "Ça va"}, {itemEOF, ""},
	}},
}

func TestLexContentLine(t *testing.T) {
	for _, tt := range lexTests {
		items, err := lex(tt.input)
		if err != nil {
			t.Errorf("lex(%q) = %v", tt.input, err)
			continue
		}
		if len(items) != len(tt.items) {
			t.Errorf("lex(%q) = %v, want %d items", tt.input, items, len(tt.items))
			continue
		}
		for i, want := range tt.items {
			if items[i].typ != want.typ || items[i].val != want.val {
				t.Errorf("lex(%q) item %d = %d %q, want %d %q", tt.input, i, items[i].typ, items[i].val, want.typ, want.val)
			}
		}
	}
}

var lexErrors = []string{
	"NOCOLON",
	":no name",
	"BAD NAME:x",
	"A;=x:y",
	"A;B:y",
	`A;B="unterminated:y`,
	"A:control\x01char",
	"DTSTART;TZID=a\"b:x",
}

func TestLexErrors(t *testing.T) {
	for _, input := range lexErrors {
		if _, err := lex(input); err == nil {
			t.Errorf("lex(%q) succeeded, want an error", input)
		}
	}
}
