package modkit

import "reflect"

// Lookup pulls a T out of a port set: the set itself or one of its exported fields
func Lookup[T any](ports any) (t T, ok bool) {
	if ports == nil {
		return t, false
	}
	if v, ok := ports.(T); ok {
		return v, true
	}
	rv := reflect.ValueOf(ports)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return t, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return t, false
	}
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if !f.CanInterface() {
			continue
		}
		if v, ok := f.Interface().(T); ok {
			return v, true
		}
	}
	return t, false
}

// PortsOf is Lookup over a module's port set
func PortsOf[T any](m Module) (T, bool) { return Lookup[T](m.Ports()) }

// MustPortsOf panics when m exposes no T
func MustPortsOf[T any](m Module) T {
	if v, ok := PortsOf[T](m); ok {
		return v
	}
	panic("modkit: requested port not found on module " + m.Name())
}
