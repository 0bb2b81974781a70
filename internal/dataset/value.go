package dataset

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Kind is the dynamic type of a cell.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	default:
		return "null"
	}
}

// Value is a single typed cell. Numbers keep the text they were parsed from
// so that identifiers such as card numbers round-trip unchanged.
type Value struct {
	kind Kind
	text string
	num  float64
}

// Null returns the null value.
func Null() Value {
	return Value{}
}

// String returns a string value.
func String(s string) Value {
	return Value{kind: KindString, text: s}
}

// Number returns a numeric value.
func Number(f float64) Value {
	return Value{kind: KindNumber, text: strconv.FormatFloat(f, 'f', -1, 64), num: f}
}

// Parse converts a raw cell into a Value. Empty cells become null and cells
// that parse as finite floats become numbers; everything else is a string.
func Parse(cell string) Value {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return Null()
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return Value{kind: KindNumber, text: trimmed, num: f}
	}
	return Value{kind: KindString, text: cell}
}

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsNull() bool   { return v.kind == KindNull }
func (v Value) IsNumber() bool { return v.kind == KindNumber }

// Text returns the textual form of the value; null renders as "".
func (v Value) Text() string {
	return v.text
}

// Float returns the numeric value. Strings holding a number are coerced.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.text), 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Equal is exact structural equality. Numbers compare by value, not text.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == o.num
	case KindString:
		return v.text == o.text
	default:
		return true
	}
}

func (v Value) String() string {
	if v.kind == KindNull {
		return "<null>"
	}
	return v.text
}

// MarshalJSON renders null, numbers and strings as their JSON counterparts.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		return json.Marshal(v.num)
	case KindString:
		return json.Marshal(v.text)
	default:
		return []byte("null"), nil
	}
}

// appendKey writes an unambiguous encoding of v used for grouping.
func (v Value) appendKey(b *strings.Builder) {
	b.WriteByte(byte('0' + v.kind))
	var body string
	switch v.kind {
	case KindNumber:
		body = "0"
		if v.num != 0 {
			body = strconv.FormatFloat(v.num, 'g', -1, 64)
		}
	case KindString:
		body = v.text
	}
	b.WriteString(strconv.Itoa(len(body)))
	b.WriteByte(':')
	b.WriteString(body)
}

// Key encodes a tuple of values so that two tuples produce the same key if and
// only if they are structurally equal.
func Key(values []Value) string {
	var b strings.Builder
	for _, v := range values {
		v.appendKey(&b)
	}
	return b.String()
}
