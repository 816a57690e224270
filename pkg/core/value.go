package core

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// NULL sentinel conventions. Required fields that are not applicable carry
// the Required sentinel; Applicable fields that are conditionally
// inapplicable carry the Applicable sentinel (blank for text).
const (
	RequiredTextSentinel      = "NP"
	RequiredFlagSentinel      = "U"
	RequiredNumericSentinel   = -8888
	ApplicableNumericSentinel = -9999
	RequiredDateMarker        = "8888"
	ApplicableDateMarker      = "9999"
)

// Text renders a scanned database value as a string. NULL renders as "".
func Text(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case int:
		return strconv.Itoa(val)
	case int8:
		return strconv.FormatInt(int64(val), 10)
	case int16:
		return strconv.FormatInt(int64(val), 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint8:
		return strconv.FormatUint(uint64(val), 10)
	case uint16:
		return strconv.FormatUint(uint64(val), 10)
	case uint32:
		return strconv.FormatUint(uint64(val), 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 {
			return val.Format("2006-01-02")
		}
		return val.Format("2006-01-02 15:04:05")
	case interface{ Float64() float64 }:
		return strconv.FormatFloat(val.Float64(), 'f', -1, 64)
	case interface{ String() string }:
		return val.String()
	default:
		return ""
	}
}

// Display renders a value for use inside a report message.
func Display(v any) string {
	if v == nil {
		return "NULL"
	}
	return Text(v)
}

// IsNull reports whether v is a database NULL.
func IsNull(v any) bool {
	return v == nil
}

// IsBlank reports whether v is NULL, empty or whitespace only.
func IsBlank(v any) bool {
	return v == nil || strings.TrimSpace(Text(v)) == ""
}

// Number converts a scanned value to float64. Strings are parsed.
func Number(v any) (float64, bool) {
	switch val := v.(type) {
	case nil:
		return 0, false
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case interface{ Float64() float64 }:
		return val.Float64(), true
	default:
		return ParseNumber(Text(v))
	}
}

// ParseNumber parses a decimal string, ignoring surrounding whitespace.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// IsNumericSentinel reports whether v equals either numeric sentinel.
func IsNumericSentinel(v any) bool {
	n, ok := Number(v)
	return ok && (n == RequiredNumericSentinel || n == ApplicableNumericSentinel)
}

// IsPopulated reports whether v carries a real value for a field of the
// given type: not blank and not one of the NULL sentinels.
func IsPopulated(v any, f Field) bool {
	if IsBlank(v) {
		return false
	}
	s := strings.TrimSpace(Text(v))
	switch f.Type {
	case FieldInteger, FieldDecimal:
		return !IsNumericSentinel(v)
	case FieldDate:
		return !strings.Contains(s, RequiredDateMarker) && !strings.Contains(s, ApplicableDateMarker)
	case FieldText:
		if s == RequiredTextSentinel {
			return false
		}
		if f.MaxLength == 1 && s == RequiredFlagSentinel {
			return false
		}
		return true
	default:
		if s == RequiredTextSentinel {
			return false
		}
		return !IsNumericSentinel(v)
	}
}

// Equal compares two values, numerically when both parse as numbers.
func Equal(a, b any) bool {
	if na, ok := Number(a); ok {
		if nb, ok := Number(b); ok {
			return na == nb
		}
	}
	return Text(a) == Text(b)
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"1/2/2006",
	"1/2/2006 15:04:05",
	"20060102",
}

// Date converts a scanned value to a time. Strings are parsed with the
// layouts DuckDB, SQLite and shapefile exports produce.
func Date(v any) (time.Time, bool) {
	switch val := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return val, true
	}
	s := strings.TrimSpace(Text(v))
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Compare orders two values: numerically when both are numbers, by date
// when both are dates, otherwise by text. ok is false when either side is
// NULL.
func Compare(a, b any) (cmp int, ok bool) {
	if a == nil || b == nil {
		return 0, false
	}
	if na, okA := Number(a); okA {
		if nb, okB := Number(b); okB {
			switch {
			case na < nb:
				return -1, true
			case na > nb:
				return 1, true
			}
			return 0, true
		}
	}
	if da, okA := Date(a); okA {
		if db, okB := Date(b); okB {
			return da.Compare(db), true
		}
	}
	return strings.Compare(Text(a), Text(b)), true
}
