package normalize

import (
	"strings"

	"github.com/sells-group/empresas-cli/internal/model"
)

// DANECodeLength is the exact digit count of a DANE municipality code.
const DANECodeLength = 8

// NormalizePhone reduces a phone value to its digits. Values with fewer than
// 7 or more than 10 digits are rejected. 7-digit numbers and 8-digit numbers
// not starting with 1 get the Bogotá prefix "1".
func NormalizePhone(c model.Cell) model.Cell {
	if c.Blank() {
		return model.Null()
	}
	d := digits(c.Value)
	switch {
	case len(d) < 7 || len(d) > 10:
		return model.Null()
	case len(d) == 7:
		return model.Str("1" + d)
	case len(d) == 8 && d[0] != '1':
		return model.Str("1" + d)
	}
	return model.Str(d)
}

// ValidateDANECode keeps a code only when it has exactly eight digits once
// non-digits are stripped. Nothing is padded or truncated.
func ValidateDANECode(c model.Cell) model.Cell {
	if !c.Valid {
		return c
	}
	d := digits(c.Value)
	if len(d) != DANECodeLength {
		return model.Null()
	}
	return model.Str(d)
}

// IsValidPhone reports whether v is a complete 10-digit phone number.
func IsValidPhone(v model.Cell) bool {
	return v.Valid && len(v.Value) == 10 && digits(v.Value) == v.Value
}

// IsValidDANECode reports whether v is an 8-digit code.
func IsValidDANECode(v model.Cell) bool {
	return v.Valid && len(v.Value) == DANECodeLength && digits(v.Value) == v.Value
}

func digits(s string) string {
	s = strings.TrimSpace(s)
	// Spreadsheet exports render integral numbers as "3001234567.0".
	s = strings.TrimSuffix(s, ".0")
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
