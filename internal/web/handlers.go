package web

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"github.com/a-h/templ"
	"github.com/emilyselwood/csv-to-ics/internal/core"
	"github.com/emilyselwood/csv-to-ics/internal/web/templates"
	"github.com/go-chi/chi/v5"
)

// multipartOverhead leaves room for boundaries and the title field on top
// of the file itself.
const multipartOverhead = 64 << 10

// upload is a CSV file read from a multipart form.
type upload struct {
	name  string
	title string
	data  []byte
}

// openUpload opens the "file" field of a multipart request, bounded by the
// configured maximum file size. The caller closes the returned file.
func (s *Server) openUpload(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	maxSize := s.cfg.Convert.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, nil, fmt.Errorf("%w: %v", core.ErrFileTooLarge, err)
		}
		return nil, nil, fmt.Errorf("%w: %v", core.ErrNoFile, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", core.ErrNoFile, err)
	}
	return file, header, nil
}

// readUpload reads the whole file (and optional "title") of a multipart
// request.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	file, header, err := s.openUpload(w, r)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	return &upload{
		name:  header.Filename,
		title: r.FormValue("title"),
		data:  data,
	}, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, map[string]any{
		"status":  "ok",
		"history": s.service.HistoryEnabled(),
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	templ.Handler(templates.UploadPage(s.service.DefaultTitle(), s.service.HistoryEnabled())).ServeHTTP(w, r)
}

// handleConvert returns the calendar as a file download.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	up, err := s.readUpload(w, r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	res, err := s.service.Convert(ctx, core.ConvertRequest{
		SourceName: up.name,
		Title:      up.title,
		Data:       up.data,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/calendar; charset=utf-8")
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": calendarFileName(res.Title),
	}))
	h.Set("Content-Length", strconv.Itoa(len(res.ICS)))
	h.Set("X-Conversion-ID", res.ID)
	h.Set("X-Event-Count", strconv.Itoa(res.Events))
	h.Set("X-Skipped-Rows", strconv.Itoa(res.Skipped()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.ICS)
}

// handleParse returns the tokenized table as JSON.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	file, _, err := s.openUpload(w, r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	defer file.Close()

	table, err := s.service.ParseReader(file)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, r, table)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	up, err := s.readUpload(w, r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	res, err := s.service.Preview(r.Context(), up.data)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	templ.Handler(templates.Preview(up.name, res)).ServeHTTP(w, r)
}

func (s *Server) handlePreviewJSON(w http.ResponseWriter, r *http.Request) {
	up, err := s.readUpload(w, r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	res, err := s.service.Preview(r.Context(), up.data)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, r, res)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.History(r.Context(), parseLimit(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, r, items)
}

func (s *Server) handleHistoryPage(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.History(r.Context(), parseLimit(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	templ.Handler(templates.History(items)).ServeHTTP(w, r)
}

func (s *Server) handleHistoryEntry(w http.ResponseWriter, r *http.Request) {
	conv, err := s.service.GetConversion(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, r, conv)
}

// handleStatus reports conversion slot usage.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, s.service.Limiter().Status())
}

// parseLimit reads ?limit=, returning 0 (the service default) when absent
// or invalid.
func parseLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n < 1 {
		return 0
	}
	return n
}

// calendarFileName turns a title into a download name, keeping letters,
// digits, dashes and underscores.
func calendarFileName(title string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			return r
		case unicode.IsSpace(r):
			return '_'
		default:
			return -1
		}
	}, title)
	if name == "" {
		name = "calendar"
	}
	return name + ".ics"
}
