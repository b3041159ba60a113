package match

import (
	"bytes"
	"math"
	"regexp"
	"strconv"
	"strings"

	sonic "github.com/bytedance/sonic"
)

// maxScalarMagnitude bounds numeric scalars to integers a float64 holds exactly.
const maxScalarMagnitude = 1 << 53

// decimalPattern accepts plain decimal numbers only. ParseFloat alone would
// also take "NaN", "Inf" and hex floats.
var decimalPattern = regexp.MustCompile(`^[+-]?(?:[0-9]+(?:\.[0-9]*)?|\.[0-9]+)(?:[eE][+-]?[0-9]+)?$`)

// parseDecimal reports whether v is a finite decimal within maxScalarMagnitude.
func parseDecimal(v string) (float64, bool) {
	if !decimalPattern.MatchString(v) {
		return 0, false
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil || !inRange(parsed) {
		return 0, false
	}
	return parsed, true
}

func inRange(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && math.Abs(v) <= maxScalarMagnitude
}

// Scalar is a loosely typed document value. Stored documents carry numbers,
// numeric strings or free text ("240+", "100-200") in the same fields, so the
// raw text is kept next to the parsed number.
type Scalar struct {
	raw     string
	number  float64
	set     bool
	numeric bool
}

// Number builds a declared numeric scalar. Non-finite or out-of-range values
// are kept as malformed.
func Number(v float64) Scalar {
	raw := strconv.FormatFloat(v, 'f', -1, 64)
	if !inRange(v) {
		return Scalar{raw: raw, set: true}
	}
	return Scalar{raw: raw, number: v, set: true, numeric: true}
}

// Int builds a declared numeric scalar from an integer.
func Int(v int) Scalar {
	return Number(float64(v))
}

// Text builds a scalar from free text. Blank text is treated as absent.
func Text(v string) Scalar {
	v = strings.TrimSpace(v)
	if v == "" {
		return Scalar{}
	}
	out := Scalar{raw: v, set: true}
	if parsed, ok := parseDecimal(v); ok {
		out.number = parsed
		out.numeric = true
	}
	return out
}

// IsSet reports whether the field was present and non-null.
func (s Scalar) IsSet() bool { return s.set }

// IsNumeric reports whether the value parsed as a number.
func (s Scalar) IsNumeric() bool { return s.set && s.numeric }

// IsMalformed reports a present value that is not a number.
func (s Scalar) IsMalformed() bool { return s.set && !s.numeric }

// Float returns the parsed number, or 0 when absent or malformed.
func (s Scalar) Float() float64 {
	if !s.IsNumeric() {
		return 0
	}
	return s.number
}

// Int returns the number truncated toward zero, or 0 when absent or malformed.
func (s Scalar) Int() int {
	return int(s.Float())
}

// String returns the textual form; numbers render without trailing zeros.
func (s Scalar) String() string {
	if !s.set {
		return ""
	}
	return s.raw
}

// Equal compares presence and textual form.
func (s Scalar) Equal(other Scalar) bool {
	if s.set != other.set {
		return false
	}
	if s.IsNumeric() && other.IsNumeric() {
		return s.number == other.number
	}
	return s.raw == other.raw
}

// Value returns the document representation: nil, float64 or string.
func (s Scalar) Value() any {
	switch {
	case !s.set:
		return nil
	case s.numeric && s.raw == strconv.FormatFloat(s.number, 'f', -1, 64):
		return s.number
	default:
		return s.raw
	}
}

func (s Scalar) MarshalJSON() ([]byte, error) {
	return sonic.Marshal(s.Value())
}

func (s *Scalar) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*s = Scalar{}
		return nil
	}

	switch trimmed[0] {
	case '"':
		var text string
		if err := sonic.Unmarshal(trimmed, &text); err != nil {
			return err
		}
		*s = Text(text)
	case 't', 'f', '{', '[':
		*s = Scalar{raw: string(trimmed), set: true}
	default:
		parsed, ok := parseDecimal(string(trimmed))
		if !ok {
			*s = Scalar{raw: string(trimmed), set: true}
			return nil
		}
		*s = Number(parsed)
	}
	return nil
}
