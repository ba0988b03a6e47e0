package nanomodel

import (
	"fmt"
	"reflect"
)

// FromStruct creates an instance of meta from a struct declared for
// MetaFromStruct. Zero values are left unset, except bools.
func FromStruct(meta *Meta, v any, opts ...ModelOption) (*Model, error) {
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return nil, fmt.Errorf("expected struct, got %s", val.Kind())
	}

	m, err := meta.New(opts...)
	if err != nil {
		return nil, err
	}

	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag := parseFieldTag(sf)
		if tag.skip || !meta.HasField(tag.attrName) {
			continue
		}
		fv := val.Field(i)
		if isZeroValue(fv) {
			continue
		}

		value := fv.Interface()
		if nf, ok := meta.Field(tag.attrName).(*NestedModelField); ok {
			if value, err = FromStruct(nf.meta, value); err != nil {
				return nil, fmt.Errorf("%s: %w", tag.attrName, err)
			}
		}
		if err := m.Set(tag.attrName, value); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Scan copies the model's attribute values into the struct pointed to by
// dst, matching fields the same way MetaFromStruct names them.
func (m *Model) Scan(dst any) error {
	val := reflect.ValueOf(dst)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("expected pointer to struct, got %T", dst)
	}
	val = val.Elem()
	if val.Kind() != reflect.Struct {
		return fmt.Errorf("expected pointer to struct, got pointer to %s", val.Kind())
	}

	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		fv := val.Field(i)

		// Skip unexported fields
		if !fv.CanSet() {
			continue
		}
		tag := parseFieldTag(sf)
		if tag.skip {
			continue
		}
		value := m.Get(tag.attrName)
		if isAbsent(value) {
			continue
		}
		if nested, ok := value.(*Model); ok {
			if err := scanNested(nested, fv); err != nil {
				return fmt.Errorf("failed to set field %s: %w", sf.Name, err)
			}
			continue
		}
		if err := setFieldFromInterface(fv, value); err != nil {
			return fmt.Errorf("failed to set field %s: %w", sf.Name, err)
		}
	}
	return nil
}

func scanNested(nested *Model, fv reflect.Value) error {
	switch {
	case fv.Kind() == reflect.Struct:
		return nested.Scan(fv.Addr().Interface())
	case fv.Kind() == reflect.Ptr && fv.Type().Elem().Kind() == reflect.Struct:
		if fv.IsNil() {
			fv.Set(reflect.New(fv.Type().Elem()))
		}
		return nested.Scan(fv.Interface())
	}
	return fmt.Errorf("cannot scan nested model into %s", fv.Type())
}

// isZeroValue checks if a reflect.Value is a zero value
func isZeroValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Bool:
		return false // Never skip bool values
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map:
		return v.IsNil()
	default:
		return v.IsZero()
	}
}

// setFieldFromInterface sets a field value from an interface{}
func setFieldFromInterface(field reflect.Value, value any) error {
	valReflect := reflect.ValueOf(value)

	// Try direct assignment first
	if valReflect.Type().AssignableTo(field.Type()) {
		field.Set(valReflect)
		return nil
	}

	switch field.Kind() {
	case reflect.Ptr:
		elem := reflect.New(field.Type().Elem())
		if err := setFieldFromInterface(elem.Elem(), value); err != nil {
			return err
		}
		field.Set(elem)
		return nil
	case reflect.Slice:
		items, err := toSlice(value)
		if err != nil {
			return err
		}
		out := reflect.MakeSlice(field.Type(), len(items), len(items))
		for i, item := range items {
			if item == nil {
				continue
			}
			if err := setFieldFromInterface(out.Index(i), item); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		field.Set(out)
		return nil
	case reflect.Map:
		entries, err := toMap(value)
		if err != nil {
			return err
		}
		out := reflect.MakeMapWithSize(field.Type(), len(entries))
		for k, e := range entries {
			ev := reflect.New(field.Type().Elem()).Elem()
			if e != nil {
				if err := setFieldFromInterface(ev, e); err != nil {
					return fmt.Errorf("key %s: %w", k, err)
				}
			}
			out.SetMapIndex(reflect.ValueOf(k).Convert(field.Type().Key()), ev)
		}
		field.Set(out)
		return nil
	}

	// Numbers and named string types convert directly
	if valReflect.Type().ConvertibleTo(field.Type()) && kindClass(valReflect.Kind()) != "" && kindClass(valReflect.Kind()) == kindClass(field.Kind()) {
		field.Set(valReflect.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot convert %T to %s", value, field.Type())
}

// kindClass groups kinds that convert into each other without changing
// meaning. int -> string is convertible in Go but yields a rune.
func kindClass(k reflect.Kind) string {
	switch k {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "bool"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	}
	return ""
}
