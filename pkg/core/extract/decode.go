package extract

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DecodeText turns a registry payload into a Go string. EDINET CSVs are
// UTF-16 with a BOM; older exports are Shift_JIS.
func DecodeText(b []byte) string {
	if bytes.HasPrefix(b, []byte{0xFF, 0xFE}) || bytes.HasPrefix(b, []byte{0xFE, 0xFF}) {
		dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
		if out, _, err := transform.Bytes(dec, b); err == nil {
			return string(out)
		}
	}
	if utf8.Valid(b) {
		return strings.TrimPrefix(string(b), "\ufeff")
	}
	if out, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), b); err == nil {
		return string(out)
	}
	return string(b)
}

// normalizeLine folds full-width digits, commas and Latin letters to ASCII.
func normalizeLine(line string) string {
	return norm.NFKC.String(line)
}
