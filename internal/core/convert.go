package core

// convert.go holds the small conversions between CSV text, calendar
// date-times and PostgreSQL types.

import (
	"fmt"
	"strings"

	db "github.com/emilyselwood/csv-to-ics/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// MakeHeaderIndex creates a HeaderIndex from a header row.
// Keys are trimmed and lowercased for case-insensitive matching. When a
// name repeats, the first occurrence wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if _, seen := idx[key]; seen {
			continue
		}
		idx[key] = i
	}
	return idx
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// Lookup returns the value of the named column in row. It reports false
// when the column is unknown or the row is too short to hold it.
func (h HeaderIndex) Lookup(row []string, name string) (string, bool) {
	i, ok := h[normalizeHeader(name)]
	if !ok || i >= len(row) {
		return "", false
	}
	return row[i], true
}

// Has reports whether the named column is present.
func (h HeaderIndex) Has(name string) bool {
	_, ok := h[normalizeHeader(name)]
	return ok
}

// FormatDateTime turns a date like "2025-07-19" and a time like "13:00" or
// "13:00:00" into the iCalendar form "20250719T130000". Characters are
// taken by position; seconds default to "00" for times of six characters
// or fewer.
func FormatDateTime(date, clock string) (string, error) {
	d := []rune(date)
	c := []rune(clock)

	seconds := "00"
	if len(c) > 6 {
		s, err := extract(c, 6, 8, date, clock)
		if err != nil {
			return "", err
		}
		seconds = s
	}

	var b strings.Builder
	for _, part := range []struct {
		src        []rune
		start, end int
	}{
		{d, 0, 4}, {d, 5, 7}, {d, 8, 10},
	} {
		s, err := extract(part.src, part.start, part.end, date, clock)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	b.WriteByte('T')
	for _, part := range [][2]int{{0, 2}, {3, 5}} {
		s, err := extract(c, part[0], part[1], date, clock)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	b.WriteString(seconds)

	return b.String(), nil
}

func extract(src []rune, start, end int, date, clock string) (string, error) {
	if len(src) < end {
		return "", fmt.Errorf("invalid date format: expected something like '2025-07-19' and '13:00:00', got %q and %q", date, clock)
	}
	return string(src[start:end]), nil
}

// ToPgText converts a string to pgtype.Text.
// Returns invalid if the string is empty or only whitespace.
func ToPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// ToPgUUID converts a UUID string to pgtype.UUID.
// Returns invalid if the string does not parse.
func ToPgUUID(s string) pgtype.UUID {
	u, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: u, Valid: true}
}

// PgUUIDToString converts a pgtype.UUID to its string representation.
// Returns empty string if the UUID is invalid.
func PgUUIDToString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

// conversionFromDB maps a stored row to the API type.
func conversionFromDB(row db.Conversion) Conversion {
	c := Conversion{
		ID:           PgUUIDToString(row.ID),
		SourceName:   row.SourceName,
		Title:        row.Title,
		EventCount:   int(row.EventCount),
		SkippedCount: int(row.SkippedCount),
		ByteSize:     row.ByteSize,
	}
	if row.ClientIp.Valid {
		c.ClientIP = row.ClientIp.String
	}
	if row.UserAgent.Valid {
		c.UserAgent = row.UserAgent.String
	}
	if row.CreatedAt.Valid {
		c.CreatedAt = row.CreatedAt.Time
	}
	return c
}
