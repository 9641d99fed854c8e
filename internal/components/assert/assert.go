// Package assert checks constructor arguments. A failed check is a bug in the
// caller, so it panics instead of returning an error.
package assert

import (
	"fmt"
	"reflect"
)

// NotNil panics when `value` is nil, including typed nil pointers stored in
// an interface.
func NotNil(name string, value any) {
	if value == nil {
		panic(fmt.Sprintf("%s must not be nil", name))
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		if v.IsNil() {
			panic(fmt.Sprintf("%s must not be a nil %T", name, value))
		}
	}
}

func NonNegative(name string, value float64) {
	if value < 0 {
		panic(fmt.Sprintf("%s must not be negative, got %v", name, value))
	}
}
