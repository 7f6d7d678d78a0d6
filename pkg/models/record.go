package models

import (
	"encoding/json"
	"strconv"
	"time"
)

// ValueKind identifies which member of the Value sum is populated
type ValueKind string

const (
	ValueKindNull      ValueKind = "null"
	ValueKindString    ValueKind = "string"
	ValueKindNumber    ValueKind = "number"
	ValueKindBool      ValueKind = "bool"
	ValueKindTimestamp ValueKind = "timestamp"
)

// Value is a typed scalar field value. Records expose a closed set of scalar
// kinds rather than raw interface{} so that matching and audit code never
// needs reflection.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	ts   time.Time
}

// NullValue returns the null value
func NullValue() Value {
	return Value{kind: ValueKindNull}
}

// StringValue wraps a string
func StringValue(s string) Value {
	return Value{kind: ValueKindString, str: s}
}

// NumberValue wraps a float64
func NumberValue(f float64) Value {
	return Value{kind: ValueKindNumber, num: f}
}

// BoolValue wraps a bool
func BoolValue(b bool) Value {
	return Value{kind: ValueKindBool, b: b}
}

// TimeValue wraps a timestamp
func TimeValue(t time.Time) Value {
	return Value{kind: ValueKindTimestamp, ts: t}
}

// ValueFromAny converts a decoded JSON scalar into a Value.
// Unsupported shapes (objects, arrays) are treated as null.
func ValueFromAny(raw any) Value {
	switch v := raw.(type) {
	case nil:
		return NullValue()
	case string:
		return StringValue(v)
	case float64:
		return NumberValue(v)
	case int:
		return NumberValue(float64(v))
	case int64:
		return NumberValue(float64(v))
	case bool:
		return BoolValue(v)
	case time.Time:
		return TimeValue(v)
	default:
		return NullValue()
	}
}

// Kind returns the populated member of the sum
func (v Value) Kind() ValueKind {
	return v.kind
}

// IsNull reports whether the value is null
func (v Value) IsNull() bool {
	return v.kind == ValueKindNull || v.kind == ""
}

// String returns the canonical string form used for matching and audit text.
// Null renders as the empty string.
func (v Value) String() string {
	switch v.kind {
	case ValueKindString:
		return v.str
	case ValueKindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case ValueKindBool:
		return strconv.FormatBool(v.b)
	case ValueKindTimestamp:
		return v.ts.UTC().Format(time.RFC3339)
	default:
		return ""
	}
}

// Interface returns the value as a plain JSON-encodable scalar
func (v Value) Interface() any {
	switch v.kind {
	case ValueKindString:
		return v.str
	case ValueKindNumber:
		return v.num
	case ValueKindBool:
		return v.b
	case ValueKindTimestamp:
		return v.ts.UTC().Format(time.RFC3339)
	default:
		return nil
	}
}

// MarshalJSON encodes the value as its plain JSON scalar
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON decodes a JSON scalar. Timestamps arrive as RFC 3339 strings
// and stay strings; the matcher registry treats them identically either way.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = ValueFromAny(raw)
	return nil
}

// FieldsFromJSON decodes a jsonb attribute bag into typed values
func FieldsFromJSON(data []byte) (map[string]Value, error) {
	if len(data) == 0 {
		return map[string]Value{}, nil
	}
	var fields map[string]Value
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]Value{}
	}
	return fields, nil
}

// Record is a generic, identity-bearing attribute bag for one business entity
// instance. Field order is irrelevant; identity and creation time are stable.
type Record struct {
	ID         string           `json:"id"`
	TenantID   string           `json:"tenant_id"`
	ObjectType string           `json:"object_type"`
	Fields     map[string]Value `json:"fields"`
	CreatedAt  time.Time        `json:"created_at"`
}

// Get returns the value for a field. Missing fields read as null.
func (r *Record) Get(field string) Value {
	if r.Fields == nil {
		return NullValue()
	}
	v, ok := r.Fields[field]
	if !ok {
		return NullValue()
	}
	return v
}

// GetString returns the canonical string form of a field and whether the
// field is populated (present and non-null).
func (r *Record) GetString(field string) (string, bool) {
	v := r.Get(field)
	if v.IsNull() {
		return "", false
	}
	return v.String(), true
}

// PopulatedFieldCount counts non-null fields, used by the most_complete
// master selection strategy.
func (r *Record) PopulatedFieldCount() int {
	count := 0
	for _, v := range r.Fields {
		if !v.IsNull() {
			count++
		}
	}
	return count
}
