package ir

import "reflect"

// reflectPointer extracts the code pointer of a func value for use as
// an identity token. Panics if fn is not a func — every caller in this
// package only ever passes the function fields of IR nodes.
func reflectPointer(fn any) uintptr {
	return reflect.ValueOf(fn).Pointer()
}
