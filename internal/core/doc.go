// Package core turns tokenized CSV tables into iCalendar files.
//
// It sits between the transports (the HTTP server and the csv2ics command)
// and the lower level packages: csv for tokenizing, calendar for output and
// database for the optional conversion history.
//
// # Column mapping
//
// Columns are found by header name, trimmed and compared case-insensitively.
// A row becomes an event when it has values for "name", "start date" and
// "start time". "end date" with "end time" sets the end, and "description",
// "url", "location", "latitude" and "longitude" are copied when present.
// Rows that cannot be mapped are skipped and reported as [RowIssue] values.
//
// Dates are read by position, so "2025-07-19" and "13:00" become
// "20250719T130000"; see [FormatDateTime].
//
// # Concurrency
//
// [Service.Convert] holds a [ConversionLimiter] slot for the whole
// conversion, so memory use is bounded by the configured concurrency and
// maximum file size.
//
// # Errors
//
// Technical errors are mapped to user-facing messages with [MapError]. The
// codes are listed in error_messages.go.
package core
