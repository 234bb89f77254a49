package csv

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Decoding selects how accumulated field bytes become a string.
type Decoding int

const (
	// DecodeBytes widens each byte to one rune (ISO-8859-1). Multi-byte
	// UTF-8 sequences are split into several characters. This is the default.
	DecodeBytes Decoding = iota
	// DecodeUTF8 keeps the field bytes unchanged, so UTF-8 text survives.
	DecodeUTF8
)

// String returns the configuration name of the decoding.
func (d Decoding) String() string {
	switch d {
	case DecodeBytes:
		return "bytes"
	case DecodeUTF8:
		return "utf8"
	default:
		return fmt.Sprintf("Decoding(%d)", d)
	}
}

// ParseDecoding converts a configuration value ("bytes", "latin1", "utf8")
// into a Decoding.
func ParseDecoding(s string) (Decoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "bytes", "latin1", "iso-8859-1":
		return DecodeBytes, nil
	case "utf8", "utf-8":
		return DecodeUTF8, nil
	default:
		return DecodeBytes, fmt.Errorf("unknown csv decoding %q", s)
	}
}

// Options configures a single parse call.
type Options struct {
	Decoding Decoding

	// SkipBOM drops a leading UTF-8 byte order mark before tokenizing.
	// Otherwise it becomes part of the first header name.
	SkipBOM bool
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// prepare applies the input-level options to buf.
func (o Options) prepare(buf []byte) []byte {
	if o.SkipBOM {
		return bytes.TrimPrefix(buf, utf8BOM)
	}
	return buf
}

// DefaultOptions returns the byte-widening configuration.
func DefaultOptions() Options {
	return Options{Decoding: DecodeBytes}
}

// fieldDecoder returns the function used to turn a field's bytes into a string.
func (o Options) fieldDecoder() func([]byte) string {
	if o.Decoding == DecodeUTF8 {
		return func(b []byte) string { return string(b) }
	}

	dec := charmap.ISO8859_1.NewDecoder()
	return func(b []byte) string {
		out, err := dec.Bytes(b)
		if err != nil {
			// ISO-8859-1 maps every byte, so this cannot happen in practice.
			return string(b)
		}
		return string(out)
	}
}
