package csv

const (
	separator = ','
	quote     = '"'
	newline   = '\n'
)

// state is the tokenizer's position within a line.
type state uint8

const (
	// stateSeparator skips whitespace in front of a field.
	stateSeparator state = iota
	// stateRecord accumulates an unquoted field.
	stateRecord
	// stateQuoted accumulates a quoted field until the closing quote.
	stateQuoted
)

func (s state) String() string {
	switch s {
	case stateSeparator:
		return "separator"
	case stateRecord:
		return "record"
	case stateQuoted:
		return "quoted"
	default:
		return "unknown"
	}
}

// tokenizer holds the mutable state of one parse call.
type tokenizer struct {
	decode func([]byte) string

	field     []byte   // bytes of the field being accumulated
	line      []string // fields of the current line
	hasHeader bool
	table     Table
}

func newTokenizer(opts Options) *tokenizer {
	return &tokenizer{
		decode: opts.fieldDecoder(),
		table: Table{
			Headers: []string{},
			Rows:    [][]string{},
		},
	}
}

// run drives the state machine over buf and returns the finished table.
func (t *tokenizer) run(buf []byte) Table {
	st := stateSeparator

	for i := 0; i < len(buf); {
		var consumed bool

		switch st {
		case stateSeparator:
			st, consumed = t.inSeparator(buf[i])
		case stateRecord:
			st, consumed = t.inRecord(buf[i])
		case stateQuoted:
			st, consumed = t.inQuoted(buf[i])
		}

		if consumed {
			i++
		}
	}

	// The last line is always a data row, header or not.
	t.flushField()
	if len(t.line) > 0 {
		t.table.Rows = append(t.table.Rows, t.line)
		t.line = nil
	}

	return t.table
}

// inSeparator consumes whitespace before a field. Anything else, including
// a newline, is handed to the record state unconsumed.
func (t *tokenizer) inSeparator(b byte) (state, bool) {
	if isSpace(b) && b != newline {
		return stateSeparator, true
	}
	return stateRecord, false
}

func (t *tokenizer) inRecord(b byte) (state, bool) {
	switch b {
	case separator:
		t.flushField()
		return stateSeparator, true
	case quote:
		return stateQuoted, true
	case newline:
		t.flushField()
		t.endLine()
		return stateSeparator, true
	default:
		t.field = append(t.field, b)
		return stateRecord, true
	}
}

func (t *tokenizer) inQuoted(b byte) (state, bool) {
	if b == quote {
		return stateRecord, true
	}
	t.field = append(t.field, b)
	return stateQuoted, true
}

// flushField moves the accumulated field onto the line. Empty fields are
// dropped.
func (t *tokenizer) flushField() {
	if len(t.field) == 0 {
		return
	}
	t.line = append(t.line, t.decode(t.field))
	t.field = t.field[:0]
}

// endLine stores a newline-terminated line as the header, if none has been
// captured yet, or as a data row. Empty lines are skipped.
func (t *tokenizer) endLine() {
	if len(t.line) == 0 {
		return
	}
	if !t.hasHeader {
		t.table.Headers = t.line
		t.hasHeader = true
	} else {
		t.table.Rows = append(t.table.Rows, t.line)
	}
	t.line = nil
}

// isSpace reports ASCII whitespace: space, tab, LF, FF and CR.
func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\f', '\r':
		return true
	}
	return false
}
