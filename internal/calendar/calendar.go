// Package calendar builds iCalendar (RFC 5545) documents.
//
// Calendar and Event are the converter's model: a VCALENDAR with VEVENT
// components carrying floating local date-times. Serialization goes through
// github.com/arran4/golang-ical.
package calendar

import (
	"bytes"
	"fmt"
	"os"

	"github.com/google/uuid"
)

// DefaultVersion is the iCalendar version written to VERSION.
const DefaultVersion = "2.0"

// eventNamespace seeds deterministic event UIDs.
var eventNamespace = uuid.MustParse("6f1c3a52-8e0b-4b7e-9a43-2f3d5c7e9b10")

// Geo is a GEO property value.
type Geo struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Event is a single VEVENT.
// Start, End and Stamp are formatted as YYYYMMDDTHHMMSS.
type Event struct {
	UID         string `json:"uid"`
	Stamp       string `json:"stamp"`
	Start       string `json:"start"`
	End         string `json:"end,omitempty"`
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	URL         string `json:"url,omitempty"`
	Geo         *Geo   `json:"geo,omitempty"`
}

// Calendar is a VCALENDAR holding events in insertion order.
type Calendar struct {
	Version string
	ProdID  string
	Name    string
	Events  []Event
}

// New returns an empty calendar whose product id and display name are title.
func New(title string) *Calendar {
	return &Calendar{
		Version: DefaultVersion,
		ProdID:  title,
		Name:    title,
	}
}

// Add appends an event.
func (c *Calendar) Add(e Event) {
	c.Events = append(c.Events, e)
}

// Len returns the number of events.
func (c *Calendar) Len() int {
	return len(c.Events)
}

// Bytes serializes the calendar.
func (c *Calendar) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveFile writes the calendar to path, replacing any existing file.
func (c *Calendar) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create calendar file: %w", err)
	}

	if err := c.Write(f); err != nil {
		f.Close()
		return fmt.Errorf("write calendar file: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close calendar file: %w", err)
	}
	return nil
}

// NewEventID derives a stable UID from an event's name and start so that
// converting the same file twice yields the same identifiers.
func NewEventID(name, start string) string {
	return uuid.NewSHA1(eventNamespace, []byte(name+"\x00"+start)).String()
}
