package maps

import (
	"reflect"
	"strings"
)

type structValue struct {
	reflect.Value
}
type pointerValue struct {
	reflect.Value
}

func asPointer(v reflect.Value) pointerValue {
	return pointerValue{v}
}

func asStruct(v reflect.Value) structValue {
	return structValue{v}
}

func (v structValue) pointer() interface{} {
	if !v.CanAddr() {
		copied := reflect.New(v.Type())
		copied.Elem().Set(v.Value)
		return copied.Interface()
	}
	return v.Addr().Interface()
}

func (v pointerValue) init() {
	v.Set(reflect.New(v.Type().Elem()))
}

func (v pointerValue) pointedValue() reflect.Value {
	return v.Elem()
}

// jsonKey returns the object key of a tagged field, "" when the field is
// untagged or explicitly skipped.
func jsonKey(field reflect.StructField) string {
	tag, ok := field.Tag.Lookup("json")
	if !ok {
		return ""
	}
	name := strings.Split(tag, ",")[0]
	if name == "-" {
		return ""
	}
	return name
}
