package table

// AsFloat converts a value to float64 if it holds any numeric Go type.
func AsFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
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
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	default:
		return 0, false
	}
}

// AsString converts a value to string if it holds textual data.
func AsString(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case []byte:
		return string(val), true
	default:
		return "", false
	}
}

// AsBool converts a value to bool if it holds a boolean.
func AsBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

// TypeOf reports the logical type of a concrete value. Nil values carry no
// type information and report false.
func TypeOf(v any) (Type, bool) {
	switch v.(type) {
	case nil:
		return 0, false
	case float32, float64:
		return Float, true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return Int, true
	case string, []byte:
		return String, true
	case bool:
		return Bool, true
	default:
		return 0, false
	}
}

// Conforms reports whether a value may be stored in a column of type t.
// Nil conforms to every type. Ints conform to float columns, since parquet
// sources may hand back either representation for numeric data.
func Conforms(v any, t Type) bool {
	if v == nil {
		return true
	}
	vt, ok := TypeOf(v)
	if !ok {
		return false
	}
	if vt == t {
		return true
	}
	return t == Float && vt == Int
}
