package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emilyselwood/csv-to-ics/internal/calendar"
	"github.com/emilyselwood/csv-to-ics/internal/config"
	"github.com/emilyselwood/csv-to-ics/internal/csv"
	db "github.com/emilyselwood/csv-to-ics/internal/database"
	"github.com/emilyselwood/csv-to-ics/internal/logging"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

var (
	ErrEmptyFile          = errors.New("empty file")
	ErrFileTooLarge       = errors.New("file too large")
	ErrNoFile             = errors.New("no file provided")
	ErrMissingColumns     = errors.New("missing required column")
	ErrConversionNotFound = errors.New("conversion not found")
	ErrHistoryDisabled    = errors.New("history disabled")
)

// Service converts CSV event lists into iCalendar files and keeps an
// optional history of conversions.
type Service struct {
	store    HistoryStore // nil when no database is configured
	limiter  *ConversionLimiter
	opts     csv.Options
	title    string
	maxSize  int64
	timeout  time.Duration
	listSize int32
}

// NewService builds a Service from cfg. store may be nil, in which case
// conversions are not recorded.
func NewService(store HistoryStore, cfg *config.Config) (*Service, error) {
	decoding, err := csv.ParseDecoding(cfg.Convert.Decoding)
	if err != nil {
		return nil, fmt.Errorf("csv decoding: %w", err)
	}

	return &Service{
		store:    store,
		limiter:  NewConversionLimiter(cfg.Convert.MaxConcurrent, cfg.Convert.MaxWaitTime),
		opts:     csv.Options{Decoding: decoding, SkipBOM: cfg.Convert.SkipBOM},
		title:    cfg.Calendar.DefaultTitle,
		maxSize:  cfg.Convert.MaxFileSize,
		timeout:  cfg.Convert.Timeout,
		listSize: int32(cfg.History.ListLimit),
	}, nil
}

// Limiter exposes the conversion limiter for status reporting and shutdown.
func (s *Service) Limiter() *ConversionLimiter {
	return s.limiter
}

// HistoryEnabled reports whether conversions are being recorded.
func (s *Service) HistoryEnabled() bool {
	return s.store != nil
}

// DefaultTitle is the calendar title used when a request names none.
func (s *Service) DefaultTitle() string {
	return s.title
}

// Parse tokenizes data with the service's decoding options.
func (s *Service) Parse(data []byte) (csv.Table, error) {
	if err := s.checkSize(int64(len(data))); err != nil {
		return csv.Table{}, err
	}
	return csv.ParseWith(data, s.opts), nil
}

// ParseReader tokenizes r without buffering it in the caller. Reading stops
// one byte past the size limit so oversized input is rejected.
func (s *Service) ParseReader(r io.Reader) (csv.Table, error) {
	if s.maxSize > 0 {
		r = io.LimitReader(r, s.maxSize+1)
	}
	cr := &countingReader{r: r}

	table, err := csv.ParseReader(cr, s.opts)
	if err != nil {
		return csv.Table{}, err
	}
	if err := s.checkSize(cr.n); err != nil {
		return csv.Table{}, err
	}
	return table, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Preview parses data and maps its rows without building a calendar or
// recording history. It never queues: when every conversion slot is taken
// it fails at once with ErrTooManyConversions.
func (s *Service) Preview(ctx context.Context, data []byte) (*PreviewResult, error) {
	table, err := s.Parse(data)
	if err != nil {
		return nil, err
	}

	if !s.limiter.TryAcquire() {
		return nil, ErrTooManyConversions
	}
	defer s.limiter.Release()

	events, issues := BuildEvents(ctx, table)
	return &PreviewResult{
		Headers: table.Headers,
		Rows:    table.Rows,
		Width:   table.Width(),
		Events:  events,
		Issues:  issues,
	}, nil
}

func (s *Service) checkSize(n int64) error {
	if n == 0 {
		return ErrEmptyFile
	}
	if s.maxSize > 0 && n > s.maxSize {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrFileTooLarge, n, s.maxSize)
	}
	return nil
}

// Convert turns req.Data into an iCalendar file. Rows that cannot become
// events are reported in the result rather than failing the conversion.
func (s *Service) Convert(ctx context.Context, req ConvertRequest) (*ConvertResult, error) {
	if err := s.checkSize(int64(len(req.Data))); err != nil {
		return nil, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = s.title
	}

	id := uuid.New()
	logger := logging.WithFields(ctx, "conversion_id", id.String(), "source", req.SourceName)
	logger.Info("conversion started", "bytes", len(req.Data), "title", title)
	start := time.Now()

	table := csv.ParseWith(req.Data, s.opts)
	cal, issues, err := s.buildCalendar(ctx, table, title)
	if err != nil {
		logger.Warn("conversion rejected", "error", err)
		return nil, err
	}

	ics, err := cal.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encode calendar: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &ConvertResult{
		ID:         id.String(),
		SourceName: req.SourceName,
		Title:      title,
		Headers:    table.Headers,
		Rows:       table.Len(),
		Events:     cal.Len(),
		Issues:     issues,
		ICS:        ics,
	}

	s.record(ctx, id, result, int64(len(req.Data)))

	logger.Info("conversion completed",
		"events", result.Events,
		"skipped", result.Skipped(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// ConvertFile reads the CSV at inPath and writes the calendar to outPath,
// replacing any existing file. It does not take a limiter slot.
func (s *Service) ConvertFile(ctx context.Context, inPath, outPath, title string) (*ConvertResult, error) {
	table, err := csv.ParseFileWith(inPath, s.opts)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(title) == "" {
		title = s.title
	}

	cal, issues, err := s.buildCalendar(ctx, table, title)
	if err != nil {
		return nil, err
	}
	if err := cal.SaveFile(outPath); err != nil {
		return nil, err
	}

	return &ConvertResult{
		SourceName: inPath,
		Title:      title,
		Headers:    table.Headers,
		Rows:       table.Len(),
		Events:     cal.Len(),
		Issues:     issues,
	}, nil
}

// buildCalendar maps table to a calendar. A header lacking required columns
// is only an error when it leaves no event at all.
func (s *Service) buildCalendar(ctx context.Context, table csv.Table, title string) (*calendar.Calendar, []RowIssue, error) {
	events, issues := BuildEvents(ctx, table)

	if len(events) == 0 {
		if missing := MissingColumns(MakeHeaderIndex(table.Headers)); len(missing) > 0 {
			return nil, issues, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
		}
	}

	cal := calendar.New(title)
	for _, ev := range events {
		cal.Add(ev)
	}
	return cal, issues, nil
}

// record stores a history row. Failures are logged, never returned: the
// calendar has already been produced.
func (s *Service) record(ctx context.Context, id uuid.UUID, r *ConvertResult, size int64) {
	if s.store == nil {
		return
	}

	_, err := s.store.InsertConversion(ctx, db.InsertConversionParams{
		ID:           pgtype.UUID{Bytes: id, Valid: true},
		SourceName:   r.SourceName,
		Title:        r.Title,
		EventCount:   int32(r.Events),
		SkippedCount: int32(r.Skipped()),
		ByteSize:     size,
		ClientIp:     ToPgText(GetIPAddressFromContext(ctx)),
		UserAgent:    ToPgText(GetUserAgentFromContext(ctx)),
	})
	if err != nil {
		logging.FromContext(ctx).Warn("failed to record conversion", "conversion_id", r.ID, "error", err)
	}
}

// History returns the most recent conversions, newest first. limit <= 0
// uses the configured list size. Without a store the list is empty.
func (s *Service) History(ctx context.Context, limit int) ([]Conversion, error) {
	if s.store == nil {
		return []Conversion{}, nil
	}
	if limit <= 0 || limit > int(s.listSize) {
		limit = int(s.listSize)
	}

	rows, err := s.store.ListConversions(ctx, int32(limit))
	if err != nil {
		return nil, fmt.Errorf("list conversions: %w", err)
	}

	out := make([]Conversion, 0, len(rows))
	for _, row := range rows {
		out = append(out, conversionFromDB(row))
	}
	return out, nil
}

// GetConversion returns one history record by ID.
func (s *Service) GetConversion(ctx context.Context, id string) (*Conversion, error) {
	if s.store == nil {
		return nil, ErrHistoryDisabled
	}

	pgID := ToPgUUID(id)
	if !pgID.Valid {
		return nil, ErrConversionNotFound
	}

	row, err := s.store.GetConversion(ctx, pgID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConversionNotFound
		}
		return nil, fmt.Errorf("get conversion: %w", err)
	}

	c := conversionFromDB(row)
	return &c, nil
}
