package calendar

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	ics "github.com/arran4/golang-ical"
)

// lineBreaks collapses CRLF and stray CR so TEXT values carry only LF,
// which the encoder escapes as \n.
var lineBreaks = strings.NewReplacer(
	"\r\n", "\n",
	"\r", "",
)

func normalizeText(s string) string {
	return lineBreaks.Replace(s)
}

// toICS maps the calendar onto a golang-ical document. Empty optional
// properties are left out.
func (c *Calendar) toICS() *ics.Calendar {
	version := c.Version
	if version == "" {
		version = DefaultVersion
	}

	doc := &ics.Calendar{}
	doc.SetVersion(version)
	doc.SetProductId(normalizeText(c.ProdID))
	if c.Name != "" {
		doc.SetXWRCalName(normalizeText(c.Name))
	}

	for i := range c.Events {
		addEvent(doc, &c.Events[i])
	}
	return doc
}

func addEvent(doc *ics.Calendar, e *Event) {
	ev := doc.AddEvent(e.UID)

	setRaw(ev, ics.ComponentPropertyDtstamp, e.Stamp)
	setRaw(ev, ics.ComponentPropertyDtStart, e.Start)
	setRaw(ev, ics.ComponentPropertyDtEnd, e.End)

	if e.Summary != "" {
		ev.SetSummary(normalizeText(e.Summary))
	}
	if e.Description != "" {
		ev.SetDescription(normalizeText(e.Description))
	}
	if e.Location != "" {
		ev.SetLocation(normalizeText(e.Location))
	}
	if e.URL != "" {
		ev.SetURL(e.URL)
	}
	if e.Geo != nil {
		ev.SetGeo(formatFloat(e.Geo.Latitude), formatFloat(e.Geo.Longitude))
	}
}

// setRaw sets a floating date-time property verbatim, skipping empty values.
func setRaw(ev *ics.VEvent, prop ics.ComponentProperty, value string) {
	if value == "" {
		return
	}
	ev.SetProperty(prop, value)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Write serializes the calendar with CRLF line endings and lines folded at
// 75 octets.
func (c *Calendar) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if err := c.toICS().SerializeTo(bw, ics.WithNewLineWindows); err != nil {
		return err
	}
	return bw.Flush()
}
