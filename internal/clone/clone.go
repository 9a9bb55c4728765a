// Package clone deep copies declaration defaults and populated values so
// independent aggregates never share mutable state.
package clone

import "reflect"

// Value returns a deep copy of v. Maps, slices, arrays, pointers and exported
// struct fields are copied recursively; functions, channels and unexported
// struct fields are shared. A pointer reached twice is copied once, so
// cyclic graphs keep their shape.
func Value[T any](v T) T {
	src := reflect.ValueOf(&v).Elem()
	dst := reflect.New(src.Type()).Elem()
	c := copier{seen: map[uintptr]reflect.Value{}}
	c.into(dst, src)
	out, _ := dst.Interface().(T)
	return out
}

type copier struct {
	seen map[uintptr]reflect.Value
}

// into writes a deep copy of src to dst. dst is settable, has src's type and
// starts out zero or as a shallow copy of src.
func (c *copier) into(dst, src reflect.Value) {
	switch src.Kind() {
	case reflect.Pointer:
		if src.IsNil() {
			return
		}
		if done, ok := c.seen[src.Pointer()]; ok {
			dst.Set(done)
			return
		}
		ptr := reflect.New(src.Type().Elem())
		c.seen[src.Pointer()] = ptr
		c.into(ptr.Elem(), src.Elem())
		dst.Set(ptr)
	case reflect.Interface:
		if src.IsNil() {
			return
		}
		elem := reflect.New(src.Elem().Type()).Elem()
		c.into(elem, src.Elem())
		dst.Set(elem)
	case reflect.Struct:
		dst.Set(src)
		for i := range src.NumField() {
			if field := dst.Field(i); field.CanSet() {
				c.into(field, src.Field(i))
			}
		}
	case reflect.Map:
		if src.IsNil() {
			return
		}
		out := reflect.MakeMapWithSize(src.Type(), src.Len())
		for it := src.MapRange(); it.Next(); {
			value := reflect.New(src.Type().Elem()).Elem()
			c.into(value, it.Value())
			out.SetMapIndex(it.Key(), value)
		}
		dst.Set(out)
	case reflect.Slice:
		if src.IsNil() {
			return
		}
		out := reflect.MakeSlice(src.Type(), src.Len(), src.Len())
		c.elements(out, src)
		dst.Set(out)
	case reflect.Array:
		c.elements(dst, src)
	default:
		dst.Set(src)
	}
}

func (c *copier) elements(dst, src reflect.Value) {
	for i := range src.Len() {
		c.into(dst.Index(i), src.Index(i))
	}
}
