package core

import (
	"context"
	"time"

	"github.com/emilyselwood/csv-to-ics/internal/calendar"
	db "github.com/emilyselwood/csv-to-ics/internal/database"
	"github.com/jackc/pgx/v5/pgtype"
)

// HistoryStore persists conversion records.
// Satisfied by *database.Queries.
type HistoryStore interface {
	InsertConversion(ctx context.Context, arg db.InsertConversionParams) (db.Conversion, error)
	GetConversion(ctx context.Context, id pgtype.UUID) (db.Conversion, error)
	ListConversions(ctx context.Context, limit int32) ([]db.Conversion, error)
	DeleteConversionsBefore(ctx context.Context, before pgtype.Timestamptz) (int64, error)
}

// HeaderIndex maps normalized column names to their position in a row.
type HeaderIndex map[string]int

// RowIssue describes a data row that could not become an event.
type RowIssue struct {
	Row    int    `json:"row"` // 1-based data row number, header excluded
	Reason string `json:"reason"`
}

// ConvertRequest is the input to Service.Convert.
type ConvertRequest struct {
	SourceName string // file name, for history and logs
	Title      string // calendar title; the configured default when empty
	Data       []byte
}

// ConvertResult is the outcome of a conversion.
type ConvertResult struct {
	ID         string     `json:"id"`
	SourceName string     `json:"sourceName"`
	Title      string     `json:"title"`
	Headers    []string   `json:"headers"`
	Rows       int        `json:"rows"`
	Events     int        `json:"events"`
	Issues     []RowIssue `json:"issues,omitempty"`
	ICS        []byte     `json:"-"`
}

// Skipped returns the number of rows that produced no event.
func (r *ConvertResult) Skipped() int {
	return len(r.Issues)
}

// PreviewResult shows what a conversion would produce.
type PreviewResult struct {
	Headers []string         `json:"headers"`
	Rows    [][]string       `json:"rows"`
	Width   int              `json:"width"` // widest of header and rows
	Events  []calendar.Event `json:"events"`
	Issues  []RowIssue       `json:"issues,omitempty"`
}

// Conversion is a stored history record.
type Conversion struct {
	ID           string    `json:"id"`
	SourceName   string    `json:"sourceName"`
	Title        string    `json:"title"`
	EventCount   int       `json:"eventCount"`
	SkippedCount int       `json:"skippedCount"`
	ByteSize     int64     `json:"byteSize"`
	ClientIP     string    `json:"clientIp,omitempty"`
	UserAgent    string    `json:"userAgent,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}
