// Package csv provides a small, forgiving tokenizer for comma-separated text.
//
// The tokenizer turns a byte buffer into a header row plus data rows. It
// understands double-quoted fields (which may contain separators and
// newlines), skips blank lines and trims whitespace in front of each field.
// It never reports a parse error: malformed input is resolved by a fixed set
// of recovery rules and a Table is always returned.
//
// # Recovery rules
//
//   - Empty fields are dropped, so "a,,b," yields two fields.
//   - Blank lines produce no row.
//   - An unterminated quote consumes the rest of the buffer.
//   - There is no escape for a literal quote inside a quoted field.
//   - Rows are not padded or truncated to the header width.
//
// # Header capture
//
// The first non-empty line terminated by a newline becomes the header row.
// The final line of the buffer is always appended as a data row, even when
// no header has been captured yet; a single line with no trailing newline
// therefore produces one row and no headers.
//
// # Character handling
//
// By default every byte is widened to one rune (ISO-8859-1), without UTF-8
// decoding, so "â" (0xC3 0xA2) comes back as "Ã¢". Use [ParseWith] and
// [DecodeUTF8] to keep field bytes as they are.
//
// All functions are safe for concurrent use.
package csv

import (
	"fmt"
	"io"
	"os"
)

// Table is the result of tokenizing a buffer.
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// Len returns the number of data rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// Width returns the largest field count seen in the header or any row.
func (t Table) Width() int {
	w := len(t.Headers)
	for _, row := range t.Rows {
		if len(row) > w {
			w = len(row)
		}
	}
	return w
}

// Parse tokenizes buf with the default byte-widening decoding.
func Parse(buf []byte) Table {
	return ParseWith(buf, DefaultOptions())
}

// ParseString tokenizes an in-memory string.
func ParseString(s string) Table {
	return Parse([]byte(s))
}

// ParseWith tokenizes buf using opts.
func ParseWith(buf []byte, opts Options) Table {
	t := newTokenizer(opts)
	return t.run(opts.prepare(buf))
}

// ParseFile reads the whole file at path and tokenizes it.
// Only I/O failures are returned; the underlying *fs.PathError is wrapped.
func ParseFile(path string) (Table, error) {
	return ParseFileWith(path, DefaultOptions())
}

// ParseFileWith is ParseFile with explicit options.
func ParseFileWith(path string, opts Options) (Table, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("csv: read file: %w", err)
	}
	return ParseWith(buf, opts), nil
}

// ParseReader reads r to EOF and tokenizes the result.
// The input is buffered in memory; this is not a streaming parser.
func ParseReader(r io.Reader, opts Options) (Table, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return Table{}, fmt.Errorf("csv: read input: %w", err)
	}
	return ParseWith(buf, opts), nil
}
