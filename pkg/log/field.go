package log

import "time"

// Field is a single structured key/value attached to an entry.
type Field struct {
	Key   string
	Value interface{}
}

// F creates a field with an arbitrary value.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Str creates a string field.
func Str(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Int creates an int field.
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Uint64 creates an uint64 field.
func Uint64(key string, value uint64) Field {
	return Field{Key: key, Value: value}
}

// Bool creates a bool field.
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Duration creates a duration field.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

// Err creates an error field under the standard error key.
func Err(err error) Field {
	return Field{Key: ErrorKey, Value: err}
}

// Component tags the entry with a component name.
func Component(name string) Field {
	return Field{Key: ComponentKey, Value: name}
}
