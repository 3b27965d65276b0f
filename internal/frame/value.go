package frame

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ValueKind discriminates the typed cell representations.
type ValueKind int

const (
	KindMissing ValueKind = iota
	KindFloat
	KindBool
	KindTime
	KindString
	KindRaw
)

// Value is one typed table cell. Missing values are represented explicitly
// rather than through NaN or zero sentinels so boolean and datetime columns
// stay well typed.
type Value struct {
	kind ValueKind
	f    float64
	b    bool
	t    time.Time
	s    string
	raw  any
}

var missing = Value{kind: KindMissing}

func Missing() Value            { return missing }
func Float(f float64) Value     { return Value{kind: KindFloat, f: f} }
func Bool(b bool) Value         { return Value{kind: KindBool, b: b} }
func Time(t time.Time) Value    { return Value{kind: KindTime, t: t.UTC()} }
func String(s string) Value     { return Value{kind: KindString, s: s} }
func Raw(v any) Value           { return Value{kind: KindRaw, raw: v} }
func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsMissing() bool { return v.kind == KindMissing }

func (v Value) Float() (float64, bool) {
	return v.f, v.kind == KindFloat
}

func (v Value) Bool() (bool, bool) {
	return v.b, v.kind == KindBool
}

func (v Value) Time() (time.Time, bool) {
	return v.t, v.kind == KindTime
}

func (v Value) String() (string, bool) {
	return v.s, v.kind == KindString
}

func (v Value) Raw() (any, bool) {
	return v.raw, v.kind == KindRaw
}

// Any returns the cell content as a plain Go value, nil when missing.
func (v Value) Any() any {
	switch v.kind {
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindTime:
		return v.t
	case KindString:
		return v.s
	case KindRaw:
		return v.raw
	default:
		return nil
	}
}

// Format renders the cell for display and parquet export.
func (v Value) Format() string {
	switch v.kind {
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindTime:
		return v.t.Format(time.RFC3339Nano)
	case KindString:
		return v.s
	case KindRaw:
		return fmt.Sprintf("%v", v.raw)
	default:
		return ""
	}
}

var truthyTokens = map[string]bool{
	"true": true, "t": true, "yes": true, "y": true, "1": true, "on": true,
}

var falsyTokens = map[string]bool{
	"false": true, "f": true, "no": true, "n": true, "0": true, "off": true,
}

// coerceNumeric parses any scalar into a float cell. Values that cannot be
// parsed become Missing; coercion never fails.
func coerceNumeric(v any) Value {
	switch x := v.(type) {
	case nil:
		return Missing()
	case float64:
		return Float(x)
	case float32:
		return Float(float64(x))
	case int:
		return Float(float64(x))
	case int32:
		return Float(float64(x))
	case int64:
		return Float(float64(x))
	case bool:
		if x {
			return Float(1)
		}
		return Float(0)
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return Missing()
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Missing()
		}
		return Float(f)
	default:
		return Missing()
	}
}

// coerceBool parses lenient truthy/falsy token sets into a bool cell.
func coerceBool(v any) Value {
	switch x := v.(type) {
	case nil:
		return Missing()
	case bool:
		return Bool(x)
	case float64:
		return Bool(x != 0)
	case int:
		return Bool(x != 0)
	case string:
		s := strings.ToLower(strings.TrimSpace(x))
		if truthyTokens[s] {
			return Bool(true)
		}
		if falsyTokens[s] {
			return Bool(false)
		}
		return Missing()
	default:
		return Missing()
	}
}

// coerceTime parses epoch milliseconds (optionally epoch seconds for small
// magnitudes) or ISO-8601 strings into a UTC time cell.
func coerceTime(v any) Value {
	switch x := v.(type) {
	case nil:
		return Missing()
	case time.Time:
		return Time(x)
	case int64:
		return epochToTime(x)
	case int:
		return epochToTime(int64(x))
	case float64:
		return epochToTime(int64(x))
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return Missing()
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return epochToTime(n)
		}
		for _, layout := range []string{
			time.RFC3339Nano,
			time.RFC3339,
			"2006-01-02T15:04:05",
			"2006-01-02 15:04:05",
			"2006-01-02",
		} {
			if t, err := time.Parse(layout, s); err == nil {
				return Time(t)
			}
		}
		return Missing()
	default:
		return Missing()
	}
}

// epochToTime treats values above 1e12 as milliseconds and the rest as
// seconds, matching the mixed conventions across exchange payloads.
func epochToTime(n int64) Value {
	if n <= 0 {
		return Missing()
	}
	if n >= 1_000_000_000_000 {
		return Time(time.UnixMilli(n))
	}
	return Time(time.Unix(n, 0))
}

// coerceIdentifier keeps identifiers as strings even when the payload
// serializes them as JSON numbers.
func coerceIdentifier(v any) Value {
	switch x := v.(type) {
	case nil:
		return Missing()
	case string:
		if x == "" {
			return Missing()
		}
		return String(x)
	case float64:
		if x == float64(int64(x)) {
			return String(strconv.FormatInt(int64(x), 10))
		}
		return String(strconv.FormatFloat(x, 'f', -1, 64))
	case int:
		return String(strconv.Itoa(x))
	case int64:
		return String(strconv.FormatInt(x, 10))
	default:
		return String(fmt.Sprintf("%v", x))
	}
}

// coercePassthrough keeps unclassified values as-is, typed when the payload
// already carries a native scalar type.
func coercePassthrough(v any) Value {
	switch x := v.(type) {
	case nil:
		return Missing()
	case string:
		return String(x)
	case bool:
		return Bool(x)
	case float64:
		return Float(x)
	case int:
		return Float(float64(x))
	case int64:
		return Float(float64(x))
	case time.Time:
		return Time(x)
	default:
		return Raw(x)
	}
}
