package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/emilyselwood/csv-to-ics/internal/calendar"
	"github.com/emilyselwood/csv-to-ics/internal/csv"
	"github.com/emilyselwood/csv-to-ics/internal/logging"
)

// Column names recognised in the header line, compared after trimming and
// lowercasing.
const (
	ColName        = "name"
	ColDescription = "description"
	ColStartDate   = "start date"
	ColStartTime   = "start time"
	ColEndDate     = "end date"
	ColEndTime     = "end time"
	ColURL         = "url"
	ColLocation    = "location"
	ColLatitude    = "latitude"
	ColLongitude   = "longitude"
)

// RequiredColumns must all be present and non-empty for a row to become an
// event.
var RequiredColumns = []string{ColName, ColStartDate, ColStartTime}

// MissingColumns returns the required columns the header does not define.
func MissingColumns(idx HeaderIndex) []string {
	var missing []string
	for _, col := range RequiredColumns {
		if !idx.Has(col) {
			missing = append(missing, col)
		}
	}
	return missing
}

// BuildEvents maps each data row of table to a calendar event. Rows that
// cannot be mapped are left out and described in the returned issues.
func BuildEvents(ctx context.Context, table csv.Table) ([]calendar.Event, []RowIssue) {
	logger := logging.FromContext(ctx)
	idx := MakeHeaderIndex(table.Headers)

	events := make([]calendar.Event, 0, len(table.Rows))
	var issues []RowIssue

	for i, row := range table.Rows {
		rowNum := i + 1

		ev, reason := buildEvent(idx, row)
		if reason != "" {
			logger.Warn("row skipped", "row", rowNum, "reason", reason)
			issues = append(issues, RowIssue{Row: rowNum, Reason: reason})
			continue
		}

		logger.Debug("processing row", "row", rowNum, "name", ev.Summary, "start", ev.Start)
		events = append(events, ev)
	}

	return events, issues
}

// buildEvent returns the event for one row, or a non-empty reason the row
// was rejected.
func buildEvent(idx HeaderIndex, row []string) (calendar.Event, string) {
	required := make(map[string]string, len(RequiredColumns))
	for _, col := range RequiredColumns {
		if !idx.Has(col) {
			return calendar.Event{}, fmt.Sprintf("missing required column %q", col)
		}
		v, ok := idx.Lookup(row, col)
		if !ok || v == "" {
			return calendar.Event{}, fmt.Sprintf("required field %q is empty", col)
		}
		required[col] = v
	}

	start, err := FormatDateTime(required[ColStartDate], required[ColStartTime])
	if err != nil {
		return calendar.Event{}, err.Error()
	}

	name := required[ColName]
	ev := calendar.Event{
		UID:     calendar.NewEventID(name, start),
		Stamp:   start,
		Start:   start,
		Summary: name,
	}

	endDate, hasDate := idx.Lookup(row, ColEndDate)
	endTime, hasTime := idx.Lookup(row, ColEndTime)
	if hasDate && hasTime && endDate != "" && endTime != "" {
		end, err := FormatDateTime(endDate, endTime)
		if err != nil {
			return calendar.Event{}, "end: " + err.Error()
		}
		ev.End = end
	}

	ev.Description, _ = idx.Lookup(row, ColDescription)
	ev.URL, _ = idx.Lookup(row, ColURL)
	ev.Location, _ = idx.Lookup(row, ColLocation)
	ev.Geo = parseGeo(idx, row)

	return ev, ""
}

// parseGeo returns a position only when both coordinates parse and are in
// range.
func parseGeo(idx HeaderIndex, row []string) *calendar.Geo {
	latStr, ok1 := idx.Lookup(row, ColLatitude)
	lonStr, ok2 := idx.Lookup(row, ColLongitude)
	if !ok1 || !ok2 {
		return nil
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil || lat < -90 || lat > 90 {
		return nil
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil || lon < -180 || lon > 180 {
		return nil
	}
	return &calendar.Geo{Latitude: lat, Longitude: lon}
}
