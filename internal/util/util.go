// Package util holds small helpers shared by cmd and tests.
package util

import "reflect"

// IsZero reports whether i equals the zero value of its dynamic type.
// Used for config merging: zero fields are treated as "not set".
func IsZero(i interface{}) bool {
	v := reflect.ValueOf(i)
	return v.Interface() == reflect.Zero(v.Type()).Interface()
}

// Unwrap strips one layer of stackerr-style annotation.
// stackerr errors expose the original error via Underlying.
func Unwrap(err error) error {
	type hasUnderlying interface {
		Underlying() error
	}
	if eh, ok := err.(hasUnderlying); ok {
		return eh.Underlying()
	}
	return err
}
