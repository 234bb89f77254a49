package csv

import (
	"bytes"
	"testing"
)

// FuzzParse checks the invariants that must hold for any input: parsing
// never panics, never yields an empty field or an empty row, and the
// byte-widened output has one rune per consumed byte.
func FuzzParse(f *testing.F) {
	seeds := []string{
		"",
		"a,b,c",
		"c_a, c_b, c_c, c_d\n1,2,3,4\n5, 6, 7, 8",
		"c_a, c_b\n1,\"2, x\",\n\n",
		"\"unterminated",
		"\"\"\"\"",
		"\r\n\r\n",
		"caf\xc3\xa9,\xff\n",
	}
	for _, s := range seeds {
		f.Add([]byte(s))
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		got := Parse(data)

		check := func(kind string, row []string) {
			if len(row) == 0 {
				t.Fatalf("%s is empty for input %q", kind, data)
			}
			for _, field := range row {
				if field == "" {
					t.Fatalf("%s has an empty field for input %q", kind, data)
				}
			}
		}

		if len(got.Headers) > 0 {
			check("header", got.Headers)
		}
		for _, row := range got.Rows {
			check("row", row)
		}

		runes := 0
		for _, field := range got.Headers {
			runes += len([]rune(field))
		}
		for _, row := range got.Rows {
			for _, field := range row {
				runes += len([]rune(field))
			}
		}
		if runes > len(data) {
			t.Fatalf("output has %d characters, input only %d bytes", runes, len(data))
		}

		utf8 := ParseWith(data, Options{Decoding: DecodeUTF8})
		if len(utf8.Rows) != len(got.Rows) || len(utf8.Headers) != len(got.Headers) {
			t.Fatalf("decoding changed table shape for input %q", data)
		}
		if bytes.Count(data, []byte{newline}) == 0 && len(got.Headers) != 0 {
			t.Fatalf("headers captured without a newline for input %q", data)
		}
	})
}
