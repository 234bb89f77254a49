package calendar

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
)

func TestCalendar_Write(t *testing.T) {
	cal := New("makers_calendar_uk")
	cal.Add(Event{
		UID:         "abc",
		Stamp:       "20250730T183000",
		Start:       "20250730T183000",
		End:         "20250730T203000",
		Summary:     "Tech Talks Pesda",
		Description: "Talks; pizza, drinks\nand more",
		URL:         "https://example.com/e/1",
		Geo:         &Geo{Latitude: 53.181196, Longitude: -4.064392},
	})

	got, err := cal.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	want := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:makers_calendar_uk",
		"X-WR-CALNAME:makers_calendar_uk",
		"BEGIN:VEVENT",
		"UID:abc",
		"DTSTAMP:20250730T183000",
		"DTSTART:20250730T183000",
		"DTEND:20250730T203000",
		"SUMMARY:Tech Talks Pesda",
		`DESCRIPTION:Talks\; pizza\, drinks\nand more`,
		"URL:https://example.com/e/1",
		"GEO:53.181196;-4.064392",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\r\n")

	if string(got) != want {
		t.Errorf("Write() =\n%q\nwant\n%q", got, want)
	}
}

func TestCalendar_Write_OmitsEmptyProperties(t *testing.T) {
	cal := New("t")
	cal.Add(Event{UID: "u", Stamp: "20250101T000000", Start: "20250101T000000", Summary: "s"})

	got, err := cal.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	for _, name := range []string{"DTEND", "DESCRIPTION", "LOCATION", "URL", "GEO"} {
		if strings.Contains(string(got), name+":") {
			t.Errorf("output contains %s for an empty value:\n%s", name, got)
		}
	}
}

func TestCalendar_Write_Empty(t *testing.T) {
	got, err := (&Calendar{}).Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	want := "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:\r\nEND:VCALENDAR\r\n"
	if string(got) != want {
		t.Errorf("Bytes() = %q, want %q", got, want)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("boom") }

func TestCalendar_Write_Error(t *testing.T) {
	cal := New("t")
	if err := cal.Write(failingWriter{}); err == nil {
		t.Fatal("Write() expected error from failing writer")
	}
}

func TestCalendar_Write_EscapesText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{`back\slash`, `back\\slash`},
		{"a;b,c", `a\;b\,c`},
		{"one\ntwo", `one\ntwo`},
		{"one\r\ntwo", `one\ntwo`},
		{"stray\rcr", "straycr"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			cal := New("t")
			cal.Add(Event{UID: "u", Start: "20250101T000000", Summary: tt.in})

			got, err := cal.Bytes()
			if err != nil {
				t.Fatalf("Bytes() error = %v", err)
			}
			if line := "SUMMARY:" + tt.want + "\r\n"; !strings.Contains(string(got), line) {
				t.Errorf("output missing %q:\n%q", line, got)
			}
		})
	}
}

// unfold splits serialized output into physical lines, checks each against
// the 75-octet limit and returns the logical lines.
func unfold(t *testing.T, data []byte) []string {
	t.Helper()

	text := string(data)
	if !strings.HasSuffix(text, "\r\n") {
		t.Fatalf("output does not end with CRLF: %q", text)
	}

	var logical []string
	for i, l := range strings.Split(strings.TrimSuffix(text, "\r\n"), "\r\n") {
		if len(l) > 75 {
			t.Errorf("line %d has %d octets: %q", i, len(l), l)
		}
		if !utf8.ValidString(l) {
			t.Errorf("line %d split a multi-byte sequence: %q", i, l)
		}
		if strings.HasPrefix(l, " ") && len(logical) > 0 {
			logical[len(logical)-1] += l[1:]
			continue
		}
		logical = append(logical, l)
	}
	return logical
}

func TestCalendar_Write_FoldsLongLines(t *testing.T) {
	description := strings.Repeat("abcdefghij", 20) + " and some words at the end to fold on"

	cal := New("t")
	cal.Add(Event{UID: "u", Start: "20250101T000000", Summary: "s", Description: description})

	got, err := cal.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	if n := strings.Count(string(got), "\r\n "); n < 2 {
		t.Errorf("got %d continuation lines, want at least 2", n)
	}

	found := false
	for _, l := range unfold(t, got) {
		if l == "DESCRIPTION:"+description {
			found = true
		}
	}
	if !found {
		t.Errorf("unfolded output does not contain the description:\n%q", got)
	}
}

func TestCalendar_Write_FoldKeepsRunesWhole(t *testing.T) {
	summary := strings.Repeat("Ã¢", 60)

	cal := New("t")
	cal.Add(Event{UID: "u", Start: "20250101T000000", Summary: summary})

	got, err := cal.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	lines := unfold(t, got)
	found := false
	for _, l := range lines {
		if l == "SUMMARY:"+summary {
			found = true
		}
	}
	if !found {
		t.Errorf("unfolded output does not contain the summary: %q", lines)
	}
}

func TestSaveFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.ics")
	if err := os.WriteFile(path, []byte("stale content that is longer than the calendar"), 0o644); err != nil {
		t.Fatal(err)
	}

	cal := New("t")
	if err := cal.SaveFile(path); err != nil {
		t.Fatalf("SaveFile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := cal.Bytes()
	if string(data) != string(want) {
		t.Errorf("file = %q, want %q", data, want)
	}
}

func TestSaveFile_BadPath(t *testing.T) {
	err := New("t").SaveFile(filepath.Join(t.TempDir(), "missing", "out.ics"))
	if err == nil {
		t.Fatal("SaveFile() expected error for missing directory")
	}
}

func TestNewEventID(t *testing.T) {
	a := NewEventID("Meetup", "20250730T183000")
	b := NewEventID("Meetup", "20250730T183000")
	c := NewEventID("Meetup", "20250731T183000")

	if a != b {
		t.Errorf("NewEventID not stable: %q != %q", a, b)
	}
	if a == c {
		t.Errorf("NewEventID collision for different starts: %q", a)
	}

	id, err := uuid.Parse(a)
	if err != nil {
		t.Fatalf("NewEventID returned invalid uuid %q: %v", a, err)
	}
	if id.Version() != 5 {
		t.Errorf("uuid version = %d, want 5", id.Version())
	}
}
