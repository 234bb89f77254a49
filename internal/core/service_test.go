package core

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/emilyselwood/csv-to-ics/internal/config"
	db "github.com/emilyselwood/csv-to-ics/internal/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// fakeStore is an in-memory HistoryStore.
type fakeStore struct {
	mu        sync.Mutex
	rows      []db.Conversion
	insertErr error
	deleted   []time.Time
}

func (f *fakeStore) InsertConversion(_ context.Context, arg db.InsertConversionParams) (db.Conversion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return db.Conversion{}, f.insertErr
	}
	row := db.Conversion{
		ID:           arg.ID,
		SourceName:   arg.SourceName,
		Title:        arg.Title,
		EventCount:   arg.EventCount,
		SkippedCount: arg.SkippedCount,
		ByteSize:     arg.ByteSize,
		ClientIp:     arg.ClientIp,
		UserAgent:    arg.UserAgent,
		CreatedAt:    pgtype.Timestamptz{Time: time.Now(), Valid: true},
	}
	f.rows = append(f.rows, row)
	return row, nil
}

func (f *fakeStore) GetConversion(_ context.Context, id pgtype.UUID) (db.Conversion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.ID == id {
			return row, nil
		}
	}
	return db.Conversion{}, pgx.ErrNoRows
}

func (f *fakeStore) ListConversions(_ context.Context, limit int32) ([]db.Conversion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []db.Conversion
	for i := len(f.rows) - 1; i >= 0 && int32(len(out)) < limit; i-- {
		out = append(out, f.rows[i])
	}
	return out, nil
}

func (f *fakeStore) DeleteConversionsBefore(_ context.Context, before pgtype.Timestamptz) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, before.Time)
	kept := f.rows[:0]
	var n int64
	for _, row := range f.rows {
		if row.CreatedAt.Time.Before(before.Time) {
			n++
			continue
		}
		kept = append(kept, row)
	}
	f.rows = kept
	return n, nil
}

func newTestService(t *testing.T, store HistoryStore) *Service {
	t.Helper()
	svc, err := NewService(store, config.Defaults())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

const serviceCSV = "Name,Start date,Start time,End date,End time,Description\n" +
	"Repair Cafe,2025-10-04,10:00,2025-10-04,13:00,Bring, fix, reuse\n" +
	"Bad,soon,13:00\n"

func TestService_Convert(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(t, store)

	ctx := ContextWithIPAddress(context.Background(), "198.51.100.7")
	ctx = ContextWithUserAgent(ctx, "test-agent")

	res, err := svc.Convert(ctx, ConvertRequest{
		SourceName: "events.csv",
		Title:      "Bangor Makers",
		Data:       []byte(serviceCSV),
	})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	if res.Events != 1 || res.Rows != 2 || res.Skipped() != 1 {
		t.Errorf("events=%d rows=%d skipped=%d", res.Events, res.Rows, res.Skipped())
	}
	if res.Title != "Bangor Makers" {
		t.Errorf("Title = %q", res.Title)
	}

	ics := string(res.ICS)
	for _, want := range []string{
		"BEGIN:VCALENDAR\r\n",
		"PRODID:Bangor Makers\r\n",
		"DTSTART:20251004T100000\r\n",
		"DTEND:20251004T130000\r\n",
		"SUMMARY:Repair Cafe\r\n",
		"END:VCALENDAR\r\n",
	} {
		if !strings.Contains(ics, want) {
			t.Errorf("ICS missing %q:\n%s", want, ics)
		}
	}

	if len(store.rows) != 1 {
		t.Fatalf("stored %d conversions, want 1", len(store.rows))
	}
	row := store.rows[0]
	if PgUUIDToString(row.ID) != res.ID {
		t.Errorf("stored ID = %s, result ID = %s", PgUUIDToString(row.ID), res.ID)
	}
	if row.EventCount != 1 || row.SkippedCount != 1 || row.ByteSize != int64(len(serviceCSV)) {
		t.Errorf("stored counts = %+v", row)
	}
	if row.ClientIp.String != "198.51.100.7" || row.UserAgent.String != "test-agent" {
		t.Errorf("stored client = %q / %q", row.ClientIp.String, row.UserAgent.String)
	}
}

func TestService_ConvertDefaultTitle(t *testing.T) {
	svc := newTestService(t, nil)

	res, err := svc.Convert(context.Background(), ConvertRequest{Title: "   ", Data: []byte(serviceCSV)})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if res.Title != "makers_calendar_uk" {
		t.Errorf("Title = %q, want default", res.Title)
	}
	if !bytes.Contains(res.ICS, []byte("X-WR-CALNAME:makers_calendar_uk\r\n")) {
		t.Errorf("ICS missing calendar name:\n%s", res.ICS)
	}
}

func TestService_ConvertErrors(t *testing.T) {
	cfg := config.Defaults()
	cfg.Convert.MaxFileSize = 64
	svc, err := NewService(nil, cfg)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	tests := []struct {
		name     string
		data     []byte
		wantErr  error
		wantCode string
	}{
		{"empty", nil, ErrEmptyFile, "FILE002"},
		{"too large", bytes.Repeat([]byte("a"), 65), ErrFileTooLarge, "FILE001"},
		{"no usable header", []byte("Title,When\nParty,2025-01-01\n"), ErrMissingColumns, "VAL002"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Convert(context.Background(), ConvertRequest{Data: tt.data})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got := MapError(err).Code; got != tt.wantCode {
				t.Errorf("code = %s, want %s", got, tt.wantCode)
			}
		})
	}
}

func TestService_ConvertHeaderOnly(t *testing.T) {
	svc := newTestService(t, nil)

	res, err := svc.Convert(context.Background(), ConvertRequest{Data: []byte("Name,Start date,Start time\n")})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if res.Events != 0 {
		t.Errorf("Events = %d, want 0", res.Events)
	}
}

func TestService_ConvertBusy(t *testing.T) {
	cfg := config.Defaults()
	cfg.Convert.MaxConcurrent = 1
	cfg.Convert.MaxWaitTime = 20 * time.Millisecond
	svc, err := NewService(nil, cfg)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if !svc.Limiter().TryAcquire() {
		t.Fatal("could not take the only slot")
	}
	defer svc.Limiter().Release()

	_, err = svc.Convert(context.Background(), ConvertRequest{Data: []byte(serviceCSV)})
	if !errors.Is(err, ErrTooManyConversions) {
		t.Errorf("err = %v, want ErrTooManyConversions", err)
	}
}

func TestService_HistoryFailureDoesNotFailConversion(t *testing.T) {
	store := &fakeStore{insertErr: errors.New("connection refused")}
	svc := newTestService(t, store)

	if _, err := svc.Convert(context.Background(), ConvertRequest{Data: []byte(serviceCSV)}); err != nil {
		t.Fatalf("Convert: %v", err)
	}
}

func TestService_History(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(t, store)

	var ids []string
	for _, name := range []string{"a.csv", "b.csv", "c.csv"} {
		res, err := svc.Convert(context.Background(), ConvertRequest{SourceName: name, Data: []byte(serviceCSV)})
		if err != nil {
			t.Fatalf("Convert(%s): %v", name, err)
		}
		ids = append(ids, res.ID)
	}

	list, err := svc.History(context.Background(), 2)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(list) != 2 || list[0].SourceName != "c.csv" || list[1].SourceName != "b.csv" {
		t.Errorf("History = %+v", list)
	}

	got, err := svc.GetConversion(context.Background(), ids[0])
	if err != nil {
		t.Fatalf("GetConversion: %v", err)
	}
	if got.SourceName != "a.csv" || got.EventCount != 1 {
		t.Errorf("GetConversion = %+v", got)
	}

	for _, id := range []string{"6ba7b810-9dad-11d1-80b4-00c04fd430c8", "nope"} {
		if _, err := svc.GetConversion(context.Background(), id); !errors.Is(err, ErrConversionNotFound) {
			t.Errorf("GetConversion(%q) err = %v, want ErrConversionNotFound", id, err)
		}
	}
}

func TestService_HistoryDisabled(t *testing.T) {
	svc := newTestService(t, nil)

	list, err := svc.History(context.Background(), 10)
	if err != nil || list == nil || len(list) != 0 {
		t.Errorf("History = %v, %v; want empty non-nil list", list, err)
	}
	if _, err := svc.GetConversion(context.Background(), "6ba7b810-9dad-11d1-80b4-00c04fd430c8"); !errors.Is(err, ErrHistoryDisabled) {
		t.Errorf("GetConversion err = %v, want ErrHistoryDisabled", err)
	}
	if svc.HistoryEnabled() {
		t.Error("HistoryEnabled = true without a store")
	}
}

func TestService_ConvertFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "events.csv")
	out := filepath.Join(dir, "events.ics")
	if err := os.WriteFile(in, []byte(serviceCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(out, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	svc := newTestService(t, nil)
	res, err := svc.ConvertFile(context.Background(), in, out, "")
	if err != nil {
		t.Fatalf("ConvertFile: %v", err)
	}
	if res.Events != 1 || len(res.Issues) != 1 {
		t.Errorf("events=%d issues=%+v", res.Events, res.Issues)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("BEGIN:VCALENDAR\r\n")) || bytes.Contains(data, []byte("stale")) {
		t.Errorf("output not replaced:\n%s", data)
	}

	if _, err := svc.ConvertFile(context.Background(), filepath.Join(dir, "missing.csv"), out, ""); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing input err = %v, want os.ErrNotExist", err)
	}
}

func TestNewService_BadDecoding(t *testing.T) {
	cfg := config.Defaults()
	cfg.Convert.Decoding = "ebcdic"

	if _, err := NewService(nil, cfg); err == nil {
		t.Error("NewService accepted an unknown decoding")
	}
}

func TestService_ConvertSkipsByteOrderMark(t *testing.T) {
	svc := newTestService(t, nil)

	data := append([]byte("\xef\xbb\xbf"), serviceCSV...)
	res, err := svc.Convert(context.Background(), ConvertRequest{Data: data})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if res.Headers[0] != "Name" || res.Events != 1 {
		t.Errorf("headers = %q, events = %d", res.Headers, res.Events)
	}
}

func TestService_Preview(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(t, store)

	res, err := svc.Preview(context.Background(), []byte(serviceCSV))
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if len(res.Headers) != 6 || len(res.Rows) != 2 {
		t.Errorf("headers = %q, rows = %d", res.Headers, len(res.Rows))
	}
	if len(res.Events) != 1 || res.Events[0].Summary != "Repair Cafe" {
		t.Errorf("events = %+v", res.Events)
	}
	if len(res.Issues) != 1 || res.Issues[0].Row != 2 {
		t.Errorf("issues = %+v", res.Issues)
	}
	// The unquoted commas in the description spill into two extra fields.
	if res.Width != 8 {
		t.Errorf("Width = %d, want 8", res.Width)
	}
	if len(store.rows) != 0 {
		t.Error("Preview should not record history")
	}

	if _, err := svc.Preview(context.Background(), nil); !errors.Is(err, ErrEmptyFile) {
		t.Errorf("empty preview err = %v", err)
	}
}

func TestService_PreviewBusy(t *testing.T) {
	cfg := config.Defaults()
	cfg.Convert.MaxConcurrent = 1
	cfg.Convert.MaxWaitTime = time.Minute
	svc, err := NewService(nil, cfg)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if !svc.Limiter().TryAcquire() {
		t.Fatal("could not take the only slot")
	}

	start := time.Now()
	_, err = svc.Preview(context.Background(), []byte(serviceCSV))
	if !errors.Is(err, ErrTooManyConversions) {
		t.Errorf("err = %v, want ErrTooManyConversions", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Preview waited %v for a slot, want an immediate failure", elapsed)
	}

	svc.Limiter().Release()
	if _, err := svc.Preview(context.Background(), []byte(serviceCSV)); err != nil {
		t.Fatalf("Preview after Release: %v", err)
	}
	if got := svc.Limiter().ActiveCount(); got != 0 {
		t.Errorf("ActiveCount = %d after Preview, want 0", got)
	}
}

func TestService_ParseReader(t *testing.T) {
	cfg := config.Defaults()
	cfg.Convert.MaxFileSize = 32
	svc, err := NewService(nil, cfg)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	tests := []struct {
		name    string
		input   string
		wantErr error
		headers string
	}{
		{name: "within limit", input: "\xef\xbb\xbfa,b\n1,2\n", headers: "a|b"},
		{name: "exactly at limit", input: strings.Repeat("x", 31) + "\n", headers: strings.Repeat("x", 31)},
		{name: "empty", input: "", wantErr: ErrEmptyFile},
		{name: "over limit", input: strings.Repeat("x", 40) + "\n", wantErr: ErrFileTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := svc.ParseReader(strings.NewReader(tt.input))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseReader: %v", err)
			}
			if got := strings.Join(table.Headers, "|"); got != tt.headers {
				t.Errorf("headers = %q, want %q", got, tt.headers)
			}
		})
	}
}
